package patientapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/medcognis/triagedesk/internal/assistant"
	"github.com/medcognis/triagedesk/internal/triage"
)

const (
	// DefaultMaxUploadBytes caps a multipart upload body.
	DefaultMaxUploadBytes int64 = 10 << 20
	maxJSONBytes          int64 = 64 << 10
)

// Service is the triage boundary the handlers call.
type Service interface {
	Upload(ctx context.Context, filename string, content []byte) (*triage.Batch, error)
	List(ctx context.Context, level triage.RiskLevel) ([]triage.Patient, error)
	Get(ctx context.Context, id string) (*triage.Patient, bool, error)
	Stats(ctx context.Context) (triage.Stats, error)
	Assess(ctx context.Context, symptoms []string, v triage.Vitals, history []string) triage.Assessment
}

// Assistant answers chat messages. Optional.
type Assistant interface {
	Chat(ctx context.Context, message string, history []assistant.Turn) (*assistant.Reply, error)
}

// Option configures an API.
type Option func(*API)

// WithAssistant enables POST /api/v1/chat.
func WithAssistant(a Assistant) Option {
	return func(api *API) { api.assistant = a }
}

// WithMaxUploadBytes overrides DefaultMaxUploadBytes. Values <= 0 are ignored.
func WithMaxUploadBytes(n int64) Option {
	return func(api *API) {
		if n > 0 {
			api.maxUpload = n
		}
	}
}

type API struct {
	logger    log.Logger
	svc       Service
	assistant Assistant
	maxUpload int64
}

func New(logger log.Logger, svc Service, opts ...Option) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	api := &API{
		logger:    logger,
		svc:       svc,
		maxUpload: DefaultMaxUploadBytes,
	}
	for _, o := range opts {
		o(api)
	}
	return api
}

func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/uploads", a.handleUpload)
		r.Get("/patients", a.handleListPatients)
		r.Get("/patients/{id}", a.handleGetPatient)
		r.Post("/assess", a.handleAssess)
		r.Post("/reports/analyze", a.handleAnalyzeReport)
		r.Get("/stats", a.handleStats)
		r.Post("/chat", a.handleChat)
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing to do with errors here, headers are already out
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// decodeJSON reads a bounded JSON body into v. It writes the error response
// itself and reports whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	return true
}

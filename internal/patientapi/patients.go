package patientapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/medcognis/triagedesk/internal/ingest"
	"github.com/medcognis/triagedesk/internal/report"
	"github.com/medcognis/triagedesk/internal/triage"
)

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, `missing multipart field "file"`)
		return
	}
	defer func() { _ = file.Close() }()

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("triagedesk.upload.filename", header.Filename),
		attribute.Int64("triagedesk.upload.size", header.Size),
	)

	if _, err := ingest.FormatFor(header.Filename); err != nil {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported file type, expected one of "+strings.Join(ingest.Extensions, ", "))
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		a.logger.Error(ctx, err, "read upload", "filename", header.Filename)
		writeError(w, http.StatusBadRequest, "unreadable upload")
		return
	}

	batch, err := a.svc.Upload(ctx, header.Filename, content)
	if err != nil {
		if errors.Is(err, ingest.ErrUnsupportedFormat) {
			writeError(w, http.StatusUnsupportedMediaType, "unsupported file type")
			return
		}
		a.logger.Error(ctx, err, "upload failed", "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, batch)
}

type patientList struct {
	Total    int              `json:"total"`
	Patients []triage.Patient `json:"patients"`
}

func (a *API) handleListPatients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var level triage.RiskLevel
	if raw := r.URL.Query().Get("level"); raw != "" {
		l, ok := triage.ParseRiskLevel(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "level must be one of High, Medium, Low")
			return
		}
		level = l
	}

	patients, err := a.svc.List(ctx, level)
	if err != nil {
		a.logger.Error(ctx, err, "list patients")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if patients == nil {
		patients = []triage.Patient{}
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("triagedesk.patients.level", string(level)),
		attribute.Int("triagedesk.patients.count", len(patients)),
	)

	writeJSON(w, http.StatusOK, patientList{Total: len(patients), Patients: patients})
}

func (a *API) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	trace.SpanFromContext(ctx).SetAttributes(attribute.String("triagedesk.patient.id", id))

	p, ok, err := a.svc.Get(ctx, id)
	if err != nil {
		a.logger.Error(ctx, err, "get patient", "patient_id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

type assessRequest struct {
	Symptoms []string      `json:"symptoms"`
	History  []string      `json:"history"`
	Vitals   triage.Vitals `json:"vitals"`
}

// normalVitals fills any vital the request leaves out.
var normalVitals = triage.Vitals{HeartRate: 80, BloodPressure: "120/80", SpO2: 98, Temperature: 37.0}

func (a *API) handleAssess(w http.ResponseWriter, r *http.Request) {
	req := assessRequest{Vitals: normalVitals}
	if !decodeJSON(w, r, &req) {
		return
	}

	as := a.svc.Assess(r.Context(), req.Symptoms, req.Vitals, req.History)
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.Int("triagedesk.assess.score", as.RiskScore),
		attribute.String("triagedesk.assess.level", string(as.RiskLevel)),
	)
	writeJSON(w, http.StatusOK, as)
}

func (a *API) handleAnalyzeReport(w http.ResponseWriter, r *http.Request) {
	var req report.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Report) == "" {
		writeError(w, http.StatusBadRequest, "report is required")
		return
	}

	an := report.Analyze(req)
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.Int("triagedesk.report.symptoms", len(an.Symptoms)),
		attribute.String("triagedesk.report.level", string(an.RiskLevel)),
	)
	writeJSON(w, http.StatusOK, an)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	s, err := a.svc.Stats(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "board stats")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

package triage

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
)

var tracer = otel.Tracer("github.com/medcognis/triagedesk/internal/triage")

// Batch is the outcome of one upload.
type Batch struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Format      string    `json:"format"`
	ReceivedAt  time.Time `json:"received_at"`
	RowsRead    int       `json:"rows_read"`
	RowsSkipped int       `json:"rows_skipped"`
	HighRisk    int       `json:"high_risk"`
	Patients    []Patient `json:"patients"`
}

// Service is the business boundary for triage operations.
type Service struct {
	store      Store
	normalizer Normalizer
	logger     log.Logger
	metrics    *Metrics
	notifiers  []Notifier
}

// NewService creates a new triage service. metrics may be nil.
func NewService(store Store, normalizer Normalizer, logger log.Logger, metrics *Metrics, notifiers ...Notifier) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	active := make([]Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &Service{
		store:      store,
		normalizer: normalizer,
		logger:     logger,
		metrics:    metrics,
		notifiers:  active,
	}
}

// Upload normalizes a file, appends its records to the board and returns the
// batch. A file that parses to zero records is not an error.
func (s *Service) Upload(ctx context.Context, filename string, content []byte) (*Batch, error) {
	ctx, span := tracer.Start(ctx, "triage.Upload")
	defer span.End()
	span.SetAttributes(
		attribute.String("triage.upload.filename", filename),
		attribute.Int("triage.upload.bytes", len(content)),
	)

	up, err := s.normalizer.Normalize(ctx, filename, content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.observeUpload("unknown", "rejected", nil)
		return nil, fmt.Errorf("normalize %s: %w", filename, err)
	}

	batch := &Batch{
		ID:          ulid.Make().String(),
		Filename:    filename,
		Format:      up.Format,
		ReceivedAt:  time.Now().UTC(),
		RowsRead:    up.RowsRead,
		RowsSkipped: up.RowsSkipped,
		Patients:    up.Patients,
	}

	var high []Patient
	for _, p := range up.Patients {
		if p.RiskLevel == RiskHigh {
			high = append(high, p)
		}
	}
	batch.HighRisk = len(high)

	span.SetAttributes(
		attribute.String("triage.upload.batch_id", batch.ID),
		attribute.String("triage.upload.format", batch.Format),
		attribute.Int("triage.upload.patients", len(batch.Patients)),
		attribute.Int("triage.upload.skipped", batch.RowsSkipped),
	)

	if len(up.Patients) == 0 {
		s.metrics.observeUpload(up.Format, "empty", up)
		s.logger.Warn(ctx, "upload produced no records",
			"batch_id", batch.ID,
			"filename", filename,
			"format", up.Format,
			"rows_read", up.RowsRead,
		)
		return batch, nil
	}

	if err := s.store.Append(ctx, up.Patients...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.observeUpload(up.Format, "error", nil)
		return nil, fmt.Errorf("append batch %s: %w", batch.ID, err)
	}
	s.metrics.observeUpload(up.Format, "accepted", up)
	if b, err := s.store.Board(ctx); err == nil {
		s.metrics.setBoardSize(b.Len())
	}

	s.logger.Info(ctx, "upload accepted",
		"batch_id", batch.ID,
		"filename", filename,
		"format", up.Format,
		"patients", len(up.Patients),
		"rows_skipped", up.RowsSkipped,
		"high_risk", len(high),
	)

	if len(high) > 0 && len(s.notifiers) > 0 {
		// detach from the request so notifications outlive the response
		go s.notifyHighRisk(context.WithoutCancel(ctx), batch.ID, high)
	}

	return batch, nil
}

// List returns the ranked board, optionally filtered to one risk level.
func (s *Service) List(ctx context.Context, level RiskLevel) ([]Patient, error) {
	b, err := s.store.Board(ctx)
	if err != nil {
		return nil, err
	}
	return b.Filter(level), nil
}

// Get retrieves a patient by ID.
func (s *Service) Get(ctx context.Context, id string) (*Patient, bool, error) {
	return s.store.Get(ctx, id)
}

// Stats summarizes the current board.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	b, err := s.store.Board(ctx)
	if err != nil {
		return Stats{}, err
	}
	return b.Stats(), nil
}

// Assess runs the stateless assessor and records it in metrics.
func (s *Service) Assess(_ context.Context, symptoms []string, v Vitals, history []string) Assessment {
	a := Assess(symptoms, v, history)
	s.metrics.observeAssessment(a)
	return a
}

func (s *Service) notifyHighRisk(ctx context.Context, batchID string, patients []Patient) {
	L := s.logger.With("batch_id", batchID)
	for i := range patients {
		p := &patients[i]
		for _, n := range s.notifiers {
			err := n.Send(ctx, p)
			s.metrics.observeNotification(n.Name(), err)
			if err != nil {
				L.Error(ctx, err, "high-risk notification failed",
					"notifier", n.Name(),
					"patient_id", p.ID,
				)
			}
		}
	}
	L.Info(ctx, "high-risk notifications dispatched",
		"patients", len(patients),
		"notifiers", len(s.notifiers),
	)
}

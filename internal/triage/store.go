package triage

import "context"

// Store holds the session board. Implementations must make Append atomic
// with respect to Board and Get.
type Store interface {
	Append(ctx context.Context, patients ...Patient) error
	Get(ctx context.Context, id string) (*Patient, bool, error)
	Board(ctx context.Context) (Board, error)
}

// Upload is a normalized file: the assessed records plus parse counters.
type Upload struct {
	Format      string
	Patients    []Patient
	RowsRead    int
	RowsSkipped int
}

// Normalizer turns an uploaded file into assessed patient records.
type Normalizer interface {
	Normalize(ctx context.Context, filename string, content []byte) (*Upload, error)
}

// Notifier receives high-risk admissions.
type Notifier interface {
	Name() string
	Send(ctx context.Context, p *Patient) error
}

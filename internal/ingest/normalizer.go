package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/linnemanlabs/go-core/log"

	"github.com/medcognis/triagedesk/internal/triage"
)

var tracer = otel.Tracer("github.com/medcognis/triagedesk/internal/ingest")

// ErrUnsupportedFormat is returned for filenames whose extension does not
// select a parser.
var ErrUnsupportedFormat = errors.New("unsupported upload format")

// Upload formats, reported in triage.Upload.Format.
const (
	FormatCSV  = "csv"
	FormatTSV  = "tsv"
	FormatTXT  = "txt"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// Extensions lists the accepted filename suffixes.
var Extensions = []string{".csv", ".tsv", ".txt", ".json", ".xlsx"}

// Normalizer implements triage.Normalizer.
type Normalizer struct {
	logger log.Logger
	now    func() time.Time
}

// New creates a Normalizer. A nil logger discards output.
func New(logger log.Logger) *Normalizer {
	if logger == nil {
		logger = log.Nop()
	}
	return &Normalizer{
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// FormatFor returns the parser format selected by filename, matched
// case-insensitively on the extension.
func FormatFor(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return FormatCSV, nil
	case ".tsv":
		return FormatTSV, nil
	case ".txt":
		return FormatTXT, nil
	case ".json":
		return FormatJSON, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// Normalize parses content according to the extension of filename and
// assesses every admitted row.
func (n *Normalizer) Normalize(ctx context.Context, filename string, content []byte) (*triage.Upload, error) {
	_, span := tracer.Start(ctx, "ingest.Normalize")
	defer span.End()

	format, err := FormatFor(filename)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("ingest.format", format),
		attribute.Int("ingest.bytes", len(content)),
	)

	var t table
	switch format {
	case FormatJSON:
		t, err = parseJSON(decodeText(content))
	case FormatXLSX:
		t, err = parseWorkbook(content)
	default:
		t = parseDelimited(decodeText(content))
	}
	if err != nil {
		// whole-file failures produce an empty result, not an error
		n.logger.Warn(ctx, "upload discarded",
			"filename", filename,
			"format", format,
			"reason", err.Error(),
		)
		span.SetAttributes(attribute.String("ingest.discarded", err.Error()))
		return &triage.Upload{Format: format}, nil
	}

	admitted := n.now()
	up := &triage.Upload{
		Format:      format,
		Patients:    make([]triage.Patient, 0, len(t.rows)),
		RowsRead:    t.read,
		RowsSkipped: t.skipped,
	}
	for i, r := range t.rows {
		up.Patients = append(up.Patients, r.patient(i, admitted))
	}

	span.SetAttributes(
		attribute.Int("ingest.rows_read", up.RowsRead),
		attribute.Int("ingest.rows_skipped", up.RowsSkipped),
		attribute.Int("ingest.patients", len(up.Patients)),
	)
	return up, nil
}

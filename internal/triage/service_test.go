package triage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// mockStore implements Store for testing.
type mockStore struct {
	mu        sync.Mutex
	board     Board
	appendErr error
	boardErr  error
}

func (m *mockStore) Append(_ context.Context, patients ...Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.board = m.board.With(patients...)
	return nil
}

func (m *mockStore) Get(_ context.Context, id string) (*Patient, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.board.Find(id)
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

func (m *mockStore) Board(_ context.Context) (Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.boardErr != nil {
		return Board{}, m.boardErr
	}
	return m.board, nil
}

// mockNormalizer returns a fixed upload or error.
type mockNormalizer struct {
	upload *Upload
	err    error
}

func (m *mockNormalizer) Normalize(_ context.Context, _ string, _ []byte) (*Upload, error) {
	if m.err != nil {
		return nil, m.err
	}
	cp := *m.upload
	return &cp, nil
}

// chanNotifier reports every Send on a channel.
type chanNotifier struct {
	name string
	sent chan string
	err  error
}

func (n *chanNotifier) Name() string { return n.name }

func (n *chanNotifier) Send(_ context.Context, p *Patient) error {
	n.sent <- p.ID
	return n.err
}

func patientAt(id string, symptoms []string, v Vitals, history []string) Patient {
	p := Patient{ID: id, Name: "Patient " + id, Symptoms: symptoms, Vitals: v, History: history}
	p.Apply(Assess(symptoms, v, history), "")
	return p
}

func TestUpload_AppendsBatch(t *testing.T) {
	t.Parallel()

	store := &mockStore{board: NewBoard(DefaultSeed()...)}
	up := &Upload{
		Format: "csv",
		Patients: []Patient{
			patientAt("P-1000", []string{"Cough"}, normalVitals, nil),
			patientAt("P-1001", []string{"Dehydration"}, normalVitals, nil),
		},
		RowsRead: 3, RowsSkipped: 1,
	}
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	svc := NewService(store, &mockNormalizer{upload: up}, log.Nop(), m)

	batch, err := svc.Upload(context.Background(), "patients.csv", []byte("x"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if batch.ID == "" {
		t.Error("expected non-empty batch ID")
	}
	if batch.Format != "csv" {
		t.Errorf("Format = %q, want csv", batch.Format)
	}
	if len(batch.Patients) != 2 {
		t.Errorf("len(Patients) = %d, want 2", len(batch.Patients))
	}
	if batch.RowsSkipped != 1 {
		t.Errorf("RowsSkipped = %d, want 1", batch.RowsSkipped)
	}

	b, _ := store.Board(context.Background())
	if b.Len() != 7 {
		t.Errorf("board size = %d, want 7", b.Len())
	}
	// uploaded P-1001 shadows the seed record of the same id
	p, ok, _ := svc.Get(context.Background(), "P-1001")
	if !ok || p.Name != "Patient P-1001" {
		t.Errorf("Get(P-1001) = %+v, %v; want uploaded record", p, ok)
	}

	if got := testutil.ToFloat64(m.UploadsTotal.WithLabelValues("csv", "accepted")); got != 1 {
		t.Errorf("uploads accepted = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.UploadRows.WithLabelValues("skipped")); got != 1 {
		t.Errorf("rows skipped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.BoardSize); got != 7 {
		t.Errorf("board gauge = %v, want 7", got)
	}
}

func TestUpload_EmptyResultIsNotAnError(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	svc := NewService(store, &mockNormalizer{upload: &Upload{Format: "json"}}, log.Nop(), m)

	batch, err := svc.Upload(context.Background(), "empty.json", []byte("{}"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(batch.Patients) != 0 {
		t.Errorf("len(Patients) = %d, want 0", len(batch.Patients))
	}
	if store.board.Len() != 0 {
		t.Errorf("board size = %d, want 0", store.board.Len())
	}
	if got := testutil.ToFloat64(m.UploadsTotal.WithLabelValues("json", "empty")); got != 1 {
		t.Errorf("uploads empty = %v, want 1", got)
	}
}

func TestUpload_NormalizeError(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("unsupported")
	svc := NewService(&mockStore{}, &mockNormalizer{err: sentinel}, nil, nil)

	_, err := svc.Upload(context.Background(), "scan.pdf", []byte("x"))
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want wrapping %v", err, sentinel)
	}
}

func TestUpload_StoreError(t *testing.T) {
	t.Parallel()

	store := &mockStore{appendErr: errors.New("full")}
	up := &Upload{Format: "csv", Patients: []Patient{patientAt("P-1000", nil, normalVitals, nil)}, RowsRead: 1}
	svc := NewService(store, &mockNormalizer{upload: up}, log.Nop(), nil)

	if _, err := svc.Upload(context.Background(), "a.csv", []byte("x")); err == nil {
		t.Fatal("expected error from store")
	}
}

func TestUpload_NotifiesHighRiskOnly(t *testing.T) {
	t.Parallel()

	high := patientAt("P-1000", []string{"Chest Pain"}, normalVitals, []string{"Heart Disease"})
	low := patientAt("P-1001", []string{"Cough"}, normalVitals, nil)
	up := &Upload{Format: "csv", Patients: []Patient{high, low}, RowsRead: 2}

	ok := &chanNotifier{name: "ok", sent: make(chan string, 4)}
	failing := &chanNotifier{name: "failing", sent: make(chan string, 4), err: errors.New("boom")}
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	svc := NewService(&mockStore{}, &mockNormalizer{upload: up}, log.Nop(), m, ok, nil, failing)

	if _, err := svc.Upload(context.Background(), "a.csv", []byte("x")); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	for _, n := range []*chanNotifier{ok, failing} {
		select {
		case id := <-n.sent:
			if id != "P-1000" {
				t.Errorf("%s notified %q, want P-1000", n.name, id)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s: timed out waiting for notification", n.name)
		}
	}

	select {
	case id := <-ok.sent:
		t.Errorf("unexpected extra notification for %q", id)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUpload_NoNotificationWithoutHighRisk(t *testing.T) {
	t.Parallel()

	up := &Upload{Format: "csv", Patients: []Patient{patientAt("P-1000", []string{"Cough"}, normalVitals, nil)}, RowsRead: 1}
	n := &chanNotifier{name: "ok", sent: make(chan string, 1)}
	svc := NewService(&mockStore{}, &mockNormalizer{upload: up}, log.Nop(), nil, n)

	if _, err := svc.Upload(context.Background(), "a.csv", []byte("x")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	select {
	case id := <-n.sent:
		t.Errorf("unexpected notification for %q", id)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestList_FiltersAndRanks(t *testing.T) {
	t.Parallel()

	svc := NewService(&mockStore{board: NewBoard(DefaultSeed()...)}, nil, log.Nop(), nil)

	all, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	wantOrder := []string{"P-1005", "P-1001", "P-1003", "P-1002", "P-1004"}
	if len(all) != len(wantOrder) {
		t.Fatalf("len = %d, want %d", len(all), len(wantOrder))
	}
	for i, id := range wantOrder {
		if all[i].ID != id {
			t.Errorf("all[%d] = %s, want %s", i, all[i].ID, id)
		}
	}

	high, err := svc.List(context.Background(), RiskHigh)
	if err != nil {
		t.Fatalf("List(High): %v", err)
	}
	if len(high) != 2 || high[0].ID != "P-1005" || high[1].ID != "P-1001" {
		t.Errorf("List(High) = %v", ids(high))
	}
}

func TestList_StoreError(t *testing.T) {
	t.Parallel()

	svc := NewService(&mockStore{boardErr: errors.New("down")}, nil, log.Nop(), nil)
	if _, err := svc.List(context.Background(), ""); err == nil {
		t.Error("expected error")
	}
	if _, err := svc.Stats(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestService_AssessRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	svc := NewService(&mockStore{}, nil, log.Nop(), m)

	a := svc.Assess(context.Background(), []string{"Chest Pain"}, normalVitals, []string{"Heart Disease"})
	if a.RiskLevel != RiskHigh {
		t.Fatalf("RiskLevel = %q, want High", a.RiskLevel)
	}
	if got := testutil.ToFloat64(m.AssessmentsTotal.WithLabelValues("High")); got != 1 {
		t.Errorf("assessments High = %v, want 1", got)
	}
	if store := svc.store.(*mockStore); store.board.Len() != 0 {
		t.Error("Assess must not touch the board")
	}
}

func ids(ps []Patient) []string {
	out := make([]string, len(ps))
	for i := range ps {
		out[i] = ps[i].ID
	}
	return out
}

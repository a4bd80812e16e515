package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/medcognis/triagedesk/internal/triage"
)

// fakeBoard serves a fixed board.
type fakeBoard struct {
	board triage.Board
	err   error
}

func (f *fakeBoard) List(_ context.Context, level triage.RiskLevel) ([]triage.Patient, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.board.Filter(level), nil
}

func (f *fakeBoard) Get(_ context.Context, id string) (*triage.Patient, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	p, ok := f.board.Find(id)
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

func (f *fakeBoard) Assess(_ context.Context, symptoms []string, v triage.Vitals, history []string) triage.Assessment {
	return triage.Assess(symptoms, v, history)
}

func seededRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	RegisterPatientTools(r, &fakeBoard{board: triage.NewBoard(triage.DefaultSeed()...)})
	return r
}

func execute(t *testing.T, r *Registry, name, params string) (json.RawMessage, error) {
	t.Helper()
	tool, ok := r.Get(name)
	if !ok {
		t.Fatalf("tool %q not registered", name)
	}
	return tool.Execute(context.Background(), json.RawMessage(params))
}

func TestRegisterPatientTools_SchemasAreValidJSON(t *testing.T) {
	t.Parallel()

	r := seededRegistry(t)
	for _, d := range r.ToToolDefs() {
		var schema map[string]any
		if err := json.Unmarshal(d.InputSchema, &schema); err != nil {
			t.Errorf("%s: invalid schema: %v", d.Name, err)
		}
		if schema["type"] != "object" {
			t.Errorf("%s: schema type = %v, want object", d.Name, schema["type"])
		}
	}
}

func TestListPatients(t *testing.T) {
	t.Parallel()

	r := seededRegistry(t)

	tests := []struct {
		name      string
		params    string
		wantIDs   []string
		wantTotal int
		truncated bool
	}{
		{"all", `{}`, []string{"P-1005", "P-1001", "P-1003", "P-1002", "P-1004"}, 5, false},
		{"empty params", ``, []string{"P-1005", "P-1001", "P-1003", "P-1002", "P-1004"}, 5, false},
		{"high only", `{"risk_level":"High"}`, []string{"P-1005", "P-1001"}, 2, false},
		{"limited", `{"limit":2}`, []string{"P-1005", "P-1001"}, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := execute(t, r, "list_patients", tt.params)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			var got struct {
				Total     int  `json:"total"`
				Truncated bool `json:"truncated"`
				Patients  []struct {
					ID string `json:"id"`
				} `json:"patients"`
			}
			if err := json.Unmarshal(out, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Total != tt.wantTotal || got.Truncated != tt.truncated {
				t.Errorf("total/truncated = %d/%v, want %d/%v", got.Total, got.Truncated, tt.wantTotal, tt.truncated)
			}
			if len(got.Patients) != len(tt.wantIDs) {
				t.Fatalf("len = %d, want %d", len(got.Patients), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got.Patients[i].ID != id {
					t.Errorf("patients[%d] = %s, want %s", i, got.Patients[i].ID, id)
				}
			}
		})
	}
}

func TestListPatients_Errors(t *testing.T) {
	t.Parallel()

	r := seededRegistry(t)
	if _, err := execute(t, r, "list_patients", `{"risk_level":"critical"}`); err == nil {
		t.Error("expected error for invalid risk level")
	}
	if _, err := execute(t, r, "list_patients", `{`); err == nil {
		t.Error("expected error for invalid params")
	}

	failing := NewRegistry()
	RegisterPatientTools(failing, &fakeBoard{err: errors.New("store down")})
	if _, err := execute(t, failing, "list_patients", `{}`); err == nil || !strings.Contains(err.Error(), "store down") {
		t.Errorf("err = %v, want store error", err)
	}
}

func TestListPatients_LimitCapped(t *testing.T) {
	t.Parallel()

	var ps []triage.Patient
	for i := range 60 {
		ps = append(ps, triage.Patient{ID: fmt.Sprintf("P-%d", i)})
	}
	r := NewRegistry()
	RegisterPatientTools(r, &fakeBoard{board: triage.NewBoard(ps...)})

	out, err := execute(t, r, "list_patients", `{"limit":500}`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var got struct {
		Patients []json.RawMessage `json:"patients"`
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Patients) != maxListLimit {
		t.Errorf("len = %d, want %d", len(got.Patients), maxListLimit)
	}
}

func TestGetPatient(t *testing.T) {
	t.Parallel()

	r := seededRegistry(t)

	out, err := execute(t, r, "get_patient", `{"id":"P-1003"}`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var p triage.Patient
	if err := json.Unmarshal(out, &p); err != nil {
		t.Fatal(err)
	}
	if p.Name != "Robert Brown" || p.PredictedDisease != "Acute Gastroenteritis" {
		t.Errorf("patient = %q/%q", p.Name, p.PredictedDisease)
	}

	if _, err := execute(t, r, "get_patient", `{"id":"P-0"}`); err == nil {
		t.Error("expected not found error")
	}
	if _, err := execute(t, r, "get_patient", `{}`); err == nil {
		t.Error("expected error for missing id")
	}
}

func TestAssessRisk(t *testing.T) {
	t.Parallel()

	r := seededRegistry(t)

	out, err := execute(t, r, "assess_risk", `{"symptoms":["Chest Pain"],"history":["Heart Disease"]}`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var a triage.Assessment
	if err := json.Unmarshal(out, &a); err != nil {
		t.Fatal(err)
	}
	if a.RiskScore != 70 || a.RiskLevel != triage.RiskHigh {
		t.Errorf("score/level = %d/%s, want 70/High", a.RiskScore, a.RiskLevel)
	}

	out, err = execute(t, r, "assess_risk", `{"symptoms":[],"spo2":85,"heart_rate":130}`)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := json.Unmarshal(out, &a); err != nil {
		t.Fatal(err)
	}
	if a.RiskScore != 35 {
		t.Errorf("score = %d, want 35", a.RiskScore)
	}
}

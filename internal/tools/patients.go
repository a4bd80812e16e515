package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/medcognis/triagedesk/internal/triage"
)

// Board is the read side of the triage service the patient tools need.
type Board interface {
	List(ctx context.Context, level triage.RiskLevel) ([]triage.Patient, error)
	Get(ctx context.Context, id string) (*triage.Patient, bool, error)
	Assess(ctx context.Context, symptoms []string, v triage.Vitals, history []string) triage.Assessment
}

const (
	defaultListLimit = 10
	maxListLimit     = 50
)

// RegisterPatientTools adds list_patients, get_patient and assess_risk.
func RegisterPatientTools(r *Registry, b Board) {
	r.Register(&ListPatients{board: b})
	r.Register(&GetPatient{board: b})
	r.Register(&AssessRisk{board: b})
}

// patientSummary is the slim shape returned to the model.
type patientSummary struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Age        int              `json:"age"`
	RiskScore  int              `json:"risk_score"`
	RiskLevel  triage.RiskLevel `json:"risk_level"`
	Department string           `json:"department"`
	Symptoms   []string         `json:"symptoms"`
}

type ListPatients struct {
	board Board
}

func (t *ListPatients) Name() string { return "list_patients" }

func (t *ListPatients) Description() string {
	return `List patients on the triage board ranked by risk score, highest first.
Optionally filter to one risk level. Returns id, name, age, score, level, department and symptoms.`
}

func (t *ListPatients) Parameters() json.RawMessage {
	return json.RawMessage(`{
        "type": "object",
        "properties": {
            "risk_level": {
                "type": "string",
                "enum": ["High", "Medium", "Low"],
                "description": "Only return patients at this level. Omit for all."
            },
            "limit": {
                "type": "integer",
                "description": "Maximum patients to return (default 10, max 50)"
            }
        }
    }`)
}

func (t *ListPatients) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var input struct {
		RiskLevel string `json:"risk_level,omitempty"`
		Limit     int    `json:"limit,omitempty"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &input); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}

	var level triage.RiskLevel
	if input.RiskLevel != "" {
		l, ok := triage.ParseRiskLevel(input.RiskLevel)
		if !ok {
			return nil, fmt.Errorf("risk_level must be High, Medium or Low, got %q", input.RiskLevel)
		}
		level = l
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	patients, err := t.board.List(ctx, level)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}

	total := len(patients)
	patients = patients[:min(limit, total)]
	out := struct {
		Total     int              `json:"total"`
		Patients  []patientSummary `json:"patients"`
		Truncated bool             `json:"truncated,omitempty"`
	}{
		Total:     total,
		Patients:  make([]patientSummary, 0, len(patients)),
		Truncated: total > len(patients),
	}
	for i := range patients {
		p := &patients[i]
		out.Patients = append(out.Patients, patientSummary{
			ID:         p.ID,
			Name:       p.Name,
			Age:        p.Age,
			RiskScore:  p.RiskScore,
			RiskLevel:  p.RiskLevel,
			Department: p.Department,
			Symptoms:   p.Symptoms,
		})
	}
	return json.Marshal(out)
}

type GetPatient struct {
	board Board
}

func (t *GetPatient) Name() string { return "get_patient" }

func (t *GetPatient) Description() string {
	return `Fetch one patient's full record by id, including vitals, history,
risk justification and the suggested diagnosis and care steps.`
}

func (t *GetPatient) Parameters() json.RawMessage {
	return json.RawMessage(`{
        "type": "object",
        "properties": {
            "id": {
                "type": "string",
                "description": "Patient id, e.g. P-1001"
            }
        },
        "required": ["id"]
    }`)
}

func (t *GetPatient) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var input struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if input.ID == "" {
		return nil, fmt.Errorf("id is required")
	}

	p, ok, err := t.board.Get(ctx, input.ID)
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("patient %s not found", input.ID)
	}
	return json.Marshal(p)
}

type AssessRisk struct {
	board Board
}

func (t *AssessRisk) Name() string { return "assess_risk" }

func (t *AssessRisk) Description() string {
	return `Run the deterministic triage scorer on a hypothetical presentation.
Returns risk score (0-100), level, department, justification and a suggested diagnosis.
Nothing is added to the board.`
}

func (t *AssessRisk) Parameters() json.RawMessage {
	return json.RawMessage(`{
        "type": "object",
        "properties": {
            "symptoms": {"type": "array", "items": {"type": "string"}, "description": "Symptom names, e.g. Chest Pain"},
            "history": {"type": "array", "items": {"type": "string"}, "description": "Pre-existing conditions"},
            "heart_rate": {"type": "integer", "description": "Beats per minute (default 80)"},
            "spo2": {"type": "integer", "description": "Oxygen saturation percent (default 98)"},
            "temperature": {"type": "number", "description": "Degrees Celsius (default 37.0)"},
            "blood_pressure": {"type": "string", "description": "systolic/diastolic (default 120/80)"}
        },
        "required": ["symptoms"]
    }`)
}

func (t *AssessRisk) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	input := struct {
		Symptoms      []string `json:"symptoms"`
		History       []string `json:"history"`
		HeartRate     int      `json:"heart_rate"`
		SpO2          int      `json:"spo2"`
		Temperature   float64  `json:"temperature"`
		BloodPressure string   `json:"blood_pressure"`
	}{
		HeartRate:     80,
		SpO2:          98,
		Temperature:   37.0,
		BloodPressure: "120/80",
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	a := t.board.Assess(ctx, input.Symptoms, triage.Vitals{
		HeartRate:     input.HeartRate,
		BloodPressure: input.BloodPressure,
		SpO2:          input.SpO2,
		Temperature:   input.Temperature,
	}, input.History)
	return json.Marshal(a)
}

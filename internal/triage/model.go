package triage

import (
	"slices"
	"time"
)

// RiskLevel is the urgency tier derived from a risk score.
type RiskLevel string

const (
	// RiskLow means score below 40
	RiskLow RiskLevel = "Low"

	// RiskMedium means score in [40, 70)
	RiskMedium RiskLevel = "Medium"

	// RiskHigh means score of 70 or more
	RiskHigh RiskLevel = "High"
)

// ParseRiskLevel matches s exactly (case-sensitive) against the three tiers.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch RiskLevel(s) {
	case RiskLow, RiskMedium, RiskHigh:
		return RiskLevel(s), true
	}
	return "", false
}

// Gender of a patient record. Values outside the three constants are kept
// as supplied by the source file.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Vitals are the bedside measurements fed to the assessor.
type Vitals struct {
	HeartRate     int     `json:"heartRate" yaml:"heartRate"`
	BloodPressure string  `json:"bloodPressure" yaml:"bloodPressure"`
	SpO2          int     `json:"spo2" yaml:"spo2"`
	Temperature   float64 `json:"temperature" yaml:"temperature"`
}

// Assessment is the output of Assess.
type Assessment struct {
	RiskScore             int       `json:"riskScore"`
	RiskLevel             RiskLevel `json:"riskLevel"`
	Department            string    `json:"department"`
	Justification         []string  `json:"justification"`
	PredictedDisease      string    `json:"predicted_disease"`
	RecommendedSpecialist string    `json:"recommended_specialist"`
	CuringProcess         []string  `json:"curing_process"`
}

// Patient is a triaged patient record. Records are not mutated after they
// are added to a Board.
type Patient struct {
	ID                    string    `json:"id" yaml:"id"`
	Name                  string    `json:"name" yaml:"name"`
	Age                   int       `json:"age" yaml:"age"`
	Gender                Gender    `json:"gender" yaml:"gender"`
	Symptoms              []string  `json:"symptoms" yaml:"symptoms"`
	Vitals                Vitals    `json:"vitals" yaml:"vitals"`
	History               []string  `json:"history" yaml:"history"`
	RiskScore             int       `json:"riskScore" yaml:"riskScore"`
	RiskLevel             RiskLevel `json:"riskLevel" yaml:"riskLevel"`
	Department            string    `json:"department" yaml:"department"`
	AdmittedAt            time.Time `json:"admittedAt" yaml:"admittedAt"`
	Justification         []string  `json:"justification" yaml:"justification"`
	PredictedDisease      string    `json:"predicted_disease,omitempty" yaml:"predicted_disease"`
	RecommendedSpecialist string    `json:"recommended_specialist,omitempty" yaml:"recommended_specialist"`
	CuringProcess         []string  `json:"curing_process,omitempty" yaml:"curing_process"`
	Overridden            bool      `json:"riskLevelOverridden,omitempty" yaml:"-"`
}

// Clone returns a copy of p that shares no slices with it.
func (p Patient) Clone() Patient {
	p.Symptoms = slices.Clone(p.Symptoms)
	p.History = slices.Clone(p.History)
	p.Justification = slices.Clone(p.Justification)
	p.CuringProcess = slices.Clone(p.CuringProcess)
	return p
}

// Apply copies an assessment onto the patient. A non-empty override replaces
// the computed tier; the computed score is kept either way.
func (p *Patient) Apply(a Assessment, override RiskLevel) {
	p.RiskScore = a.RiskScore
	p.RiskLevel = a.RiskLevel
	p.Department = a.Department
	p.Justification = a.Justification
	p.PredictedDisease = a.PredictedDisease
	p.RecommendedSpecialist = a.RecommendedSpecialist
	p.CuringProcess = a.CuringProcess
	if override != "" {
		p.Overridden = override != a.RiskLevel
		p.RiskLevel = override
	}
}

package triage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

var seedAdmitted = time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)

// DefaultSeed returns the built-in demo patients. Their scores are static
// display data and are not recomputed.
func DefaultSeed() []Patient {
	return []Patient{
		{
			ID: "P-1001", Name: "John Doe", Age: 45, Gender: GenderMale,
			Symptoms:   []string{"Chest Pain", "Shortness of Breath"},
			Vitals:     Vitals{HeartRate: 110, BloodPressure: "150/95", SpO2: 92, Temperature: 37.2},
			History:    []string{"Hypertension"},
			RiskScore:  85,
			RiskLevel:  RiskHigh,
			Department: "Emergency",
			AdmittedAt: seedAdmitted,
			Justification: []string{
				"Critical symptom detected: Chest Pain",
				"Abnormal Heart Rate",
			},
			PredictedDisease:      "Acute Coronary Syndrome",
			RecommendedSpecialist: "Senior Cardiologist",
			CuringProcess:         []string{"Immediate 12-lead ECG", "Administer Aspirin", "Troponin Test"},
		},
		{
			ID: "P-1002", Name: "Jane Smith", Age: 29, Gender: GenderFemale,
			Symptoms:              []string{"Severe Migraine", "Nausea"},
			Vitals:                Vitals{HeartRate: 78, BloodPressure: "120/80", SpO2: 98, Temperature: 36.8},
			History:               []string{},
			RiskScore:             30,
			RiskLevel:             RiskLow,
			Department:            "Neurology",
			AdmittedAt:            seedAdmitted,
			Justification:         []string{"Moderate symptom detected: Severe Migraine"},
			PredictedDisease:      "Migraine with Aura",
			RecommendedSpecialist: "Neurology Specialist",
			CuringProcess:         []string{"Rest in dark room", "Hydration", "Oral Analgesics"},
		},
		{
			ID: "P-1003", Name: "Robert Brown", Age: 62, Gender: GenderMale,
			Symptoms:   []string{"Abdominal Pain", "Fever"},
			Vitals:     Vitals{HeartRate: 95, BloodPressure: "135/85", SpO2: 96, Temperature: 39.2},
			History:    []string{"Diabetes"},
			RiskScore:  55,
			RiskLevel:  RiskMedium,
			Department: "Internal Medicine",
			AdmittedAt: seedAdmitted,
			Justification: []string{
				"Moderate symptom detected: Abdominal Pain",
				"High Fever: 39.2°C",
			},
			PredictedDisease:      "Acute Gastroenteritis",
			RecommendedSpecialist: "Gastroenterology Specialist",
			CuringProcess:         []string{"Stool cultures", "IV Fluid rehydration", "Antispasmodics"},
		},
		{
			ID: "P-1004", Name: "Emily White", Age: 8, Gender: GenderFemale,
			Symptoms:              []string{"Cough", "Sore Throat"},
			Vitals:                Vitals{HeartRate: 90, BloodPressure: "100/60", SpO2: 99, Temperature: 37.5},
			History:               []string{"Asthma"},
			RiskScore:             15,
			RiskLevel:             RiskLow,
			Department:            "Pediatrics",
			AdmittedAt:            seedAdmitted,
			Justification:         []string{"Mild symptoms"},
			PredictedDisease:      "Viral Upper Respiratory Infection",
			RecommendedSpecialist: "General Physician",
			CuringProcess:         []string{"Steam inhalation", "Honey-based cough syrup", "Rest"},
		},
		{
			ID: "P-1005", Name: "Michael Green", Age: 55, Gender: GenderMale,
			Symptoms:              []string{"Sudden weakness in left arm", "Slurred speech"},
			Vitals:                Vitals{HeartRate: 88, BloodPressure: "160/100", SpO2: 95, Temperature: 37.0},
			History:               []string{"Smoker"},
			RiskScore:             92,
			RiskLevel:             RiskHigh,
			Department:            "Stroke Unit",
			AdmittedAt:            seedAdmitted,
			Justification:         []string{"Critical symptom detected: Stroke Symptoms"},
			PredictedDisease:      "Acute Ischemic Stroke",
			RecommendedSpecialist: "Stroke Neurology Chief",
			CuringProcess:         []string{"Immediate CT Head", "NIH Stroke Scale assessment", "Assess for tPA eligibility"},
		},
	}
}

type seedFile struct {
	Patients []Patient `yaml:"patients"`
}

// LoadSeed reads seed patients from a YAML file with a top-level "patients"
// list. An empty path returns DefaultSeed.
func LoadSeed(path string) ([]Patient, error) {
	if path == "" {
		return DefaultSeed(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i := range f.Patients {
		p := &f.Patients[i]
		if p.ID == "" {
			return nil, fmt.Errorf("seed patient %d: id is required", i)
		}
		if p.Gender == "" {
			p.Gender = GenderOther
		}
		if p.RiskLevel == "" {
			p.RiskLevel = LevelForScore(p.RiskScore)
		}
		p.RiskScore = min(max(p.RiskScore, 0), maxScore)
	}
	return f.Patients, nil
}

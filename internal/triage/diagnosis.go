package triage

import "slices"

// Diagnosis is an illustrative disease/specialist/process triple. It carries
// no medical validity.
type Diagnosis struct {
	Disease    string
	Specialist string
	Process    []string
}

type diagnosisRule struct {
	match func(symptoms []string) bool
	pick  func(level RiskLevel) Diagnosis
}

func hasAny(terms ...string) func([]string) bool {
	return func(symptoms []string) bool {
		for _, t := range terms {
			if slices.Contains(symptoms, t) {
				return true
			}
		}
		return false
	}
}

func byTier(high, other Diagnosis) func(RiskLevel) Diagnosis {
	return func(l RiskLevel) Diagnosis {
		if l == RiskHigh {
			return high
		}
		return other
	}
}

func fixed(d Diagnosis) func(RiskLevel) Diagnosis {
	return func(RiskLevel) Diagnosis { return d }
}

// diagnosisRules is evaluated in order, first match wins.
var diagnosisRules = []diagnosisRule{
	{
		match: hasAny("Chest Pain"),
		pick: byTier(
			Diagnosis{"Acute Coronary Syndrome", "Senior Cardiologist", []string{"Immediate ECG", "Troponin test", "Cardiology consult"}},
			Diagnosis{"Stable Angina", "Cardiology Specialist", []string{"Immediate ECG", "Troponin test", "Cardiology consult"}},
		),
	},
	{
		match: hasAny("Fever"),
		pick: byTier(
			Diagnosis{"Sepsis / Severe Infection", "Emergency Physician", []string{"IV rehydration", "Blood cultures", "Antipyretics"}},
			Diagnosis{"Viral Syndrome", "Internal Medicine Specialist", []string{"IV rehydration", "Blood cultures", "Antipyretics"}},
		),
	},
	{
		match: hasAny("Shortness of Breath", "Difficulty Breathing"),
		pick:  fixed(Diagnosis{"Respiratory Distress", "Pulmonology Chief", []string{"Oxygen therapy", "Nebulization", "Chest X-ray"}}),
	},
}

var fallbackDiagnosis = Diagnosis{"General Condition", "General Physician", []string{"Clinical observation", "Monitor vitals"}}

func lookupDiagnosis(symptoms []string, level RiskLevel) Diagnosis {
	for _, r := range diagnosisRules {
		if r.match(symptoms) {
			return r.pick(level)
		}
	}
	return fallbackDiagnosis
}

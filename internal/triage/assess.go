package triage

import (
	"fmt"
	"slices"
	"strconv"
)

// Point weights and thresholds of the additive scorer.
const (
	criticalPoints    = 40
	moderatePoints    = 20
	otherPoints       = 5
	heartRatePoints   = 15
	spo2Points        = 20
	feverPoints       = 10
	compoundRiskPoint = 30

	highThreshold   = 70
	mediumThreshold = 40
	maxScore        = 100
)

// Departments assigned per tier.
const (
	DeptEmergency = "Emergency / Trauma"
	DeptInternal  = "Internal Medicine"
	DeptGeneral   = "General Practice"
)

var (
	criticalSymptoms = []string{"Chest Pain", "Difficulty Breathing", "Severe Trauma", "Stroke Symptoms", "Unconscious"}
	moderateSymptoms = []string{"High Fever", "Persistent Vomiting", "Abdominal Pain", "Dehydration"}
)

// Assess scores a patient from symptoms, vitals and history. It is pure and
// never fails; any numeric vitals are accepted as-is.
//
// Justification entries follow rule order: symptoms in input order, heart
// rate, SpO2, temperature, then the history interaction.
func Assess(symptoms []string, v Vitals, history []string) Assessment {
	score := 0
	justification := make([]string, 0, len(symptoms)+4)

	for _, s := range symptoms {
		switch {
		case slices.Contains(criticalSymptoms, s):
			score += criticalPoints
			justification = append(justification, "Critical symptom detected: "+s)
		case slices.Contains(moderateSymptoms, s):
			score += moderatePoints
			justification = append(justification, "Moderate symptom detected: "+s)
		default:
			score += otherPoints
		}
	}

	if v.HeartRate > 120 || v.HeartRate < 40 {
		score += heartRatePoints
		justification = append(justification, fmt.Sprintf("Abnormal Heart Rate: %d bpm", v.HeartRate))
	}
	if v.SpO2 < 90 {
		score += spo2Points
		justification = append(justification, fmt.Sprintf("Low SpO2: %d%%", v.SpO2))
	}
	if v.Temperature > 39 {
		score += feverPoints
		justification = append(justification, "High Fever: "+formatTemp(v.Temperature)+"°C")
	}

	if slices.Contains(history, "Heart Disease") && slices.Contains(symptoms, "Chest Pain") {
		score += compoundRiskPoint
		justification = append(justification, "History of Heart Disease with Chest Pain increases risk significantly.")
	}

	// tier comes from the unclamped total, clamp only the reported score
	level, dept := tierFor(score)
	a := Assessment{
		RiskScore:     min(max(score, 0), maxScore),
		RiskLevel:     level,
		Department:    dept,
		Justification: justification,
	}
	d := lookupDiagnosis(symptoms, level)
	a.PredictedDisease = d.Disease
	a.RecommendedSpecialist = d.Specialist
	a.CuringProcess = slices.Clone(d.Process)
	return a
}

func tierFor(score int) (RiskLevel, string) {
	switch {
	case score >= highThreshold:
		return RiskHigh, DeptEmergency
	case score >= mediumThreshold:
		return RiskMedium, DeptInternal
	default:
		return RiskLow, DeptGeneral
	}
}

// LevelForScore returns the tier the thresholds assign to score.
func LevelForScore(score int) RiskLevel {
	l, _ := tierFor(score)
	return l
}

// formatTemp prints the shortest decimal form, so 39.5 stays "39.5" and 40 is "40".
func formatTemp(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

// CriticalSymptoms returns the symptom names worth the critical weight.
func CriticalSymptoms() []string { return slices.Clone(criticalSymptoms) }

// ModerateSymptoms returns the symptom names worth the moderate weight.
func ModerateSymptoms() []string { return slices.Clone(moderateSymptoms) }

// Package report extracts assessor inputs from free-text clinical notes.
package report

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/medcognis/triagedesk/internal/triage"
)

// Vitals used when a note does not mention them.
var DefaultVitals = triage.Vitals{
	HeartRate:     85,
	BloodPressure: "120/80",
	SpO2:          97,
	Temperature:   37.2,
}

// keyword maps a lower-case phrase to the symptom it implies.
type keyword struct {
	phrase  string
	symptom string
}

var symptomKeywords = func() []keyword {
	kws := []keyword{
		{"fever", "Fever"},
		{"cough", "Cough"},
		{"chest pain", "Chest Pain"},
		{"breath", "Shortness of Breath"},
	}
	for _, s := range append(triage.CriticalSymptoms(), triage.ModerateSymptoms()...) {
		kws = append(kws, keyword{strings.ToLower(s), s})
	}
	return kws
}()

var historyKeywords = []string{"Hypertension", "Diabetes", "Asthma", "Heart Disease"}

var (
	heartRateRe   = regexp.MustCompile(`(?i)heart rate[:\s]+(\d+)`)
	temperatureRe = regexp.MustCompile(`(?i)temp(?:erature)?[:\s]+(\d+\.?\d*)`)
	bloodPressRe  = regexp.MustCompile(`(?i)\bBP[:\s]+(\d+)(?:\s*/\s*(\d+))?`)
	spo2Re        = regexp.MustCompile(`(?i)\b(?:SpO2|O2)[:\s]+(\d+)`)
)

// Request is a free-text note plus the demographics typed next to it.
type Request struct {
	Report string `json:"report"`
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

// Analysis is the assessed result of a note. It is never stored.
type Analysis struct {
	Name     string        `json:"name"`
	Age      int           `json:"age"`
	Gender   triage.Gender `json:"gender"`
	Symptoms []string      `json:"symptoms"`
	History  []string      `json:"history"`
	Vitals   triage.Vitals `json:"vitals"`
	Summary  string        `json:"summary"`
	triage.Assessment
}

// Analyze pulls symptoms, vitals and history out of the note and runs them
// through the assessor.
func Analyze(req Request) Analysis {
	text := req.Report
	lower := strings.ToLower(text)

	a := Analysis{
		Name:     req.Name,
		Age:      max(req.Age, 0),
		Gender:   triage.Gender(req.Gender),
		Symptoms: Symptoms(lower),
		History:  make([]string, 0),
		Vitals:   ExtractVitals(text),
	}
	if a.Name == "" {
		a.Name = "Unknown Patient"
	}
	if a.Gender == "" {
		a.Gender = triage.GenderOther
	}
	for _, h := range historyKeywords {
		if strings.Contains(lower, strings.ToLower(h)) {
			a.History = append(a.History, h)
		}
	}

	a.Assessment = triage.Assess(a.Symptoms, a.Vitals, a.History)

	mentioned := "mild symptoms"
	if len(a.Symptoms) > 0 {
		mentioned = strings.Join(a.Symptoms, ", ")
	}
	a.Summary = "Patient presents with " + mentioned + "."
	return a
}

// Symptoms returns the symptoms whose keywords appear in the lower-cased
// note, in keyword order and without repeats.
func Symptoms(lower string) []string {
	out := make([]string, 0)
	for _, kw := range symptomKeywords {
		if strings.Contains(lower, kw.phrase) && !slices.Contains(out, kw.symptom) {
			out = append(out, kw.symptom)
		}
	}
	return out
}

// ExtractVitals reads labelled measurements from text. Anything not found
// keeps its DefaultVitals value.
func ExtractVitals(text string) triage.Vitals {
	v := DefaultVitals
	if m := heartRateRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			v.HeartRate = n
		}
	}
	if m := temperatureRe.FindStringSubmatch(text); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			v.Temperature = f
		}
	}
	if m := bloodPressRe.FindStringSubmatch(text); m != nil {
		v.BloodPressure = m[1]
		if m[2] != "" {
			v.BloodPressure += "/" + m[2]
		}
	}
	if m := spo2Re.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			v.SpO2 = n
		}
	}
	return v
}

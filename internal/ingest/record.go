package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/medcognis/triagedesk/internal/triage"
)

// Defaults applied when a column is absent, empty or unparseable.
const (
	DefaultHeartRate     = 80
	DefaultTemperature   = 37.0
	DefaultBloodPressure = "120/80"

	// FixedSpO2 is used for every uploaded row; saturation is not read
	// from input.
	FixedSpO2 = 98
)

var (
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

// parseInt reads the leading integer of s ("72.5" -> 72, "88bpm" -> 88).
func parseInt(s string, def int) int {
	m := leadingInt.FindString(strings.TrimSpace(s))
	if m == "" {
		return def
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return def
	}
	return n
}

// parseFloat reads the leading decimal number of s ("38.5C" -> 38.5).
func parseFloat(s string, def float64) float64 {
	m := leadingFloat.FindString(strings.TrimSpace(s))
	if m == "" {
		return def
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return def
	}
	return f
}

// splitList splits a ";"-separated cell, dropping empty pieces.
func splitList(s string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseGender keeps unknown values as supplied and maps the three known
// values case-insensitively.
func parseGender(s string) triage.Gender {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return triage.GenderOther
	case "male":
		return triage.GenderMale
	case "female":
		return triage.GenderFemale
	case "other":
		return triage.GenderOther
	}
	return triage.Gender(s)
}

// first returns the first non-empty value among keys.
func (r row) first(keys ...string) string {
	for _, k := range keys {
		if v := r[k]; v != "" {
			return v
		}
	}
	return ""
}

// patient builds an assessed record from the i-th admitted row.
func (r row) patient(i int, admitted time.Time) triage.Patient {
	symptoms := splitList(r["symptoms"])
	history := splitList(r.first("pre-existing_conditions", "pre_existing_conditions"))
	vitals := triage.Vitals{
		HeartRate:     parseInt(r["heart_rate"], DefaultHeartRate),
		BloodPressure: DefaultBloodPressure,
		SpO2:          FixedSpO2,
		Temperature:   parseFloat(r["temperature"], DefaultTemperature),
	}
	if bp := r["blood_pressure"]; bp != "" {
		vitals.BloodPressure = bp
	}

	id := r["patient_id"]
	name := "Patient " + id
	if id == "" {
		id = "P-" + strconv.Itoa(1000+i)
		name = "Patient " + strconv.Itoa(i+1)
	}

	p := triage.Patient{
		ID:         id,
		Name:       name,
		Age:        max(parseInt(r["age"], 0), 0),
		Gender:     parseGender(r["gender"]),
		Symptoms:   symptoms,
		Vitals:     vitals,
		History:    history,
		AdmittedAt: admitted,
	}

	override, _ := triage.ParseRiskLevel(strings.TrimSpace(r["risk_level"]))
	p.Apply(triage.Assess(symptoms, vitals, history), override)
	return p
}

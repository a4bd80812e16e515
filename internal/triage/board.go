package triage

import (
	"slices"
	"sort"
)

// Board is the session's patient collection: seed records followed by every
// uploaded batch in arrival order. It is a value; With returns a new Board
// and never modifies the receiver.
type Board struct {
	patients []Patient
}

// NewBoard returns a board holding a copy of patients.
func NewBoard(patients ...Patient) Board {
	return Board{patients: slices.Clone(patients)}
}

// With returns a new board with patients appended.
func (b Board) With(patients ...Patient) Board {
	next := make([]Patient, 0, len(b.patients)+len(patients))
	next = append(next, b.patients...)
	next = append(next, patients...)
	return Board{patients: next}
}

// Len reports the number of records.
func (b Board) Len() int { return len(b.patients) }

// Patients returns the records in insertion order.
func (b Board) Patients() []Patient {
	return slices.Clone(b.patients)
}

// Find returns the most recently added record with the given id. Duplicate
// ids are not rejected, the later record shadows the earlier one.
func (b Board) Find(id string) (Patient, bool) {
	for i := len(b.patients) - 1; i >= 0; i-- {
		if b.patients[i].ID == id {
			return b.patients[i], true
		}
	}
	return Patient{}, false
}

// Ranked returns the records ordered by risk score, highest first. Ties keep
// insertion order.
func (b Board) Ranked() []Patient {
	out := slices.Clone(b.patients)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RiskScore > out[j].RiskScore
	})
	return out
}

// Filter returns the ranked records at the given level, or all ranked
// records when level is empty.
func (b Board) Filter(level RiskLevel) []Patient {
	ranked := b.Ranked()
	if level == "" {
		return ranked
	}
	out := ranked[:0]
	for _, p := range ranked {
		if p.RiskLevel == level {
			out = append(out, p)
		}
	}
	return out
}

// Stats summarizes the board for the dashboard panels.
type Stats struct {
	Total            int               `json:"total"`
	RiskDistribution map[RiskLevel]int `json:"risk_distribution"`
	DepartmentLoad   map[string]int    `json:"department_load"`
	Top              []Patient         `json:"top_patients"`
}

const statsTopN = 10

// Stats counts records per risk level and department and lists the top
// ranked patients.
func (b Board) Stats() Stats {
	s := Stats{
		Total: len(b.patients),
		RiskDistribution: map[RiskLevel]int{
			RiskHigh:   0,
			RiskMedium: 0,
			RiskLow:    0,
		},
		DepartmentLoad: make(map[string]int),
	}
	for _, p := range b.patients {
		s.RiskDistribution[p.RiskLevel]++
		s.DepartmentLoad[p.Department]++
	}
	ranked := b.Ranked()
	s.Top = ranked[:min(statsTopN, len(ranked))]
	return s
}

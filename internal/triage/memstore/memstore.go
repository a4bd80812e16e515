// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"sync"

	"github.com/medcognis/triagedesk/internal/triage"
)

// Store holds the session board in memory. The board is lost on restart.
type Store struct {
	mu    sync.RWMutex
	board triage.Board
}

// New initializes a Store holding the given seed records.
func New(seed ...triage.Patient) *Store {
	return &Store{board: triage.NewBoard(seed...)}
}

// Append adds a batch to the board. Readers see either none or all of it.
func (s *Store) Append(_ context.Context, patients ...triage.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.board = s.board.With(patients...)
	return nil
}

// Get retrieves the most recent record with the given id. The result is a
// deep copy; mutating it never reaches the board.
func (s *Store) Get(_ context.Context, id string) (*triage.Patient, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.board.Find(id)
	if !ok {
		return nil, false, nil
	}
	c := p.Clone()
	return &c, true, nil
}

// Board returns the current board snapshot.
func (s *Store) Board(_ context.Context) (triage.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board, nil
}

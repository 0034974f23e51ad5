// Package bnmemstore provides in-memory implementations
// of the bnstore interfaces, suitable for tests
// and for hosts that persist governance state elsewhere.
package bnmemstore

import (
	"context"
	"sync"

	"github.com/Tobeyw/bane-labs/bn/bngov"
	"github.com/Tobeyw/bane-labs/bn/bnstore"
)

// PhaseStore is an in-memory [bnstore.PhaseStore].
type PhaseStore struct {
	mu sync.RWMutex

	phases map[uint64]bngov.Phase
	latest uint64
}

func NewPhaseStore() *PhaseStore {
	return &PhaseStore{
		phases: make(map[uint64]bngov.Phase),
	}
}

func (s *PhaseStore) SavePhase(_ context.Context, p bngov.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.phases[p.StartHeight] = p.Clone()
	return nil
}

func (s *PhaseStore) LoadPhase(_ context.Context, startHeight uint64) (bngov.Phase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.phases[startHeight]
	if !ok {
		return bngov.Phase{}, bnstore.ErrPhaseNotFound
	}
	return p.Clone(), nil
}

func (s *PhaseStore) LatestPhaseHeight(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.latest, nil
}

func (s *PhaseStore) SetLatestPhaseHeight(_ context.Context, startHeight uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest = startHeight
	return nil
}

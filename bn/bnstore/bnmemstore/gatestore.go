package bnmemstore

import (
	"context"
	"maps"
	"sync"

	"github.com/Tobeyw/bane-labs/bn/bngov"
)

// GateStore is an in-memory [bnstore.GateStore].
type GateStore struct {
	mu sync.RWMutex

	votes map[string]map[bngov.Identity]string
}

func NewGateStore() *GateStore {
	return &GateStore{
		votes: make(map[string]map[bngov.Identity]string),
	}
}

func (s *GateStore) SaveGateVote(_ context.Context, methodKey string, voter bngov.Identity, paramKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.votes[methodKey]
	if !ok {
		m = make(map[bngov.Identity]string)
		s.votes[methodKey] = m
	}
	m[voter] = paramKey
	return nil
}

func (s *GateStore) GateVotes(_ context.Context, methodKey string) (map[bngov.Identity]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := s.votes[methodKey]
	out := make(map[bngov.Identity]string, len(m))
	maps.Copy(out, m)
	return out, nil
}

func (s *GateStore) DeleteGateVotes(_ context.Context, methodKey string, voters []bngov.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.votes[methodKey]
	if m == nil {
		return nil
	}
	for _, v := range voters {
		delete(m, v)
	}
	if len(m) == 0 {
		delete(s.votes, methodKey)
	}
	return nil
}

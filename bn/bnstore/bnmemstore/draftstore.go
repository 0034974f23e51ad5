package bnmemstore

import (
	"context"
	"sync"

	"github.com/Tobeyw/bane-labs/bn/bngov"
	"github.com/Tobeyw/bane-labs/bn/bnstore"
)

// DraftStore is an in-memory [bnstore.DraftStore].
type DraftStore struct {
	mu sync.RWMutex

	drafts map[uint64]bngov.Draft

	windowSet  bool
	start, end uint64
}

func NewDraftStore() *DraftStore {
	return &DraftStore{
		drafts: make(map[uint64]bngov.Draft),
	}
}

func (s *DraftStore) SaveDraft(_ context.Context, d bngov.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drafts[d.ID] = d.Clone()
	return nil
}

func (s *DraftStore) LoadDraft(_ context.Context, id uint64) (bngov.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.drafts[id]
	if !ok {
		return bngov.Draft{}, bnstore.ErrDraftNotFound
	}
	return d.Clone(), nil
}

func (s *DraftStore) DraftWindow(_ context.Context) (start, end uint64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.windowSet {
		// Fresh store: empty window, next draft gets id 1.
		return 1, 0, nil
	}
	return s.start, s.end, nil
}

func (s *DraftStore) SetDraftWindow(_ context.Context, start, end uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.windowSet = true
	s.start, s.end = start, end
	return nil
}

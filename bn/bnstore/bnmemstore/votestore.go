package bnmemstore

import (
	"context"
	"slices"
	"sync"

	"github.com/Tobeyw/bane-labs/bn/bngov"
	"github.com/Tobeyw/bane-labs/bn/bnstore"
)

// VoteStore is an in-memory [bnstore.VoteStore].
type VoteStore struct {
	mu sync.RWMutex

	// Forward index: one active vote per identity.
	byVoter map[bngov.Identity]uint64

	// Reverse index for tallying.
	byDraft map[uint64]map[bngov.Identity]struct{}
}

func NewVoteStore() *VoteStore {
	return &VoteStore{
		byVoter: make(map[bngov.Identity]uint64),
		byDraft: make(map[uint64]map[bngov.Identity]struct{}),
	}
}

func (s *VoteStore) SaveVote(_ context.Context, voter bngov.Identity, draftID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(voter)

	s.byVoter[voter] = draftID
	set, ok := s.byDraft[draftID]
	if !ok {
		set = make(map[bngov.Identity]struct{})
		s.byDraft[draftID] = set
	}
	set[voter] = struct{}{}
	return nil
}

func (s *VoteStore) DeleteVote(_ context.Context, voter bngov.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(voter)
	return nil
}

func (s *VoteStore) VoteOf(_ context.Context, voter bngov.Identity) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byVoter[voter]
	if !ok {
		return 0, bnstore.ErrNoActiveVote
	}
	return id, nil
}

func (s *VoteStore) VotersOf(_ context.Context, draftID uint64) ([]bngov.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.byDraft[draftID]
	out := make([]bngov.Identity, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	slices.Sort(out)
	return out, nil
}

// removeLocked drops voter from both indexes. Caller must hold s.mu.
func (s *VoteStore) removeLocked(voter bngov.Identity) {
	prev, ok := s.byVoter[voter]
	if !ok {
		return
	}
	delete(s.byVoter, voter)
	if set := s.byDraft[prev]; set != nil {
		delete(set, voter)
		if len(set) == 0 {
			delete(s.byDraft, prev)
		}
	}
}

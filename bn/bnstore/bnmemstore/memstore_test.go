package bnmemstore_test

import (
	"testing"

	"github.com/Tobeyw/bane-labs/bn/bnstore"
	"github.com/Tobeyw/bane-labs/bn/bnstore/bnmemstore"
	"github.com/Tobeyw/bane-labs/bn/bnstore/bnstoretest"
)

func TestPhaseStore(t *testing.T) {
	t.Parallel()

	bnstoretest.TestPhaseStoreCompliance(t, func(t *testing.T) bnstore.PhaseStore {
		return bnmemstore.NewPhaseStore()
	})
}

func TestDraftStore(t *testing.T) {
	t.Parallel()

	bnstoretest.TestDraftStoreCompliance(t, func(t *testing.T) bnstore.DraftStore {
		return bnmemstore.NewDraftStore()
	})
}

func TestVoteStore(t *testing.T) {
	t.Parallel()

	bnstoretest.TestVoteStoreCompliance(t, func(t *testing.T) bnstore.VoteStore {
		return bnmemstore.NewVoteStore()
	})
}

func TestGateStore(t *testing.T) {
	t.Parallel()

	bnstoretest.TestGateStoreCompliance(t, func(t *testing.T) bnstore.GateStore {
		return bnmemstore.NewGateStore()
	})
}

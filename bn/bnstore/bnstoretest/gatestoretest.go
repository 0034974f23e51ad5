package bnstoretest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tobeyw/bane-labs/bn/bngov"
	"github.com/Tobeyw/bane-labs/bn/bnstore"
)

// GateStoreFactory returns a fresh, empty store for one test.
type GateStoreFactory func(t *testing.T) bnstore.GateStore

// TestGateStoreCompliance is the compliance test for [bnstore.GateStore].
func TestGateStoreCompliance(t *testing.T, f GateStoreFactory) {
	t.Helper()

	ctx := context.Background()

	t.Run("unknown method yields empty map", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		votes, err := s.GateVotes(ctx, "designate")
		require.NoError(t, err)
		require.Empty(t, votes)
	})

	t.Run("save and read back, param overwrite", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		require.NoError(t, s.SaveGateVote(ctx, "designate", "aa", "p1"))
		require.NoError(t, s.SaveGateVote(ctx, "designate", "bb", "p2"))
		require.NoError(t, s.SaveGateVote(ctx, "designate", "aa", "p3"))

		votes, err := s.GateVotes(ctx, "designate")
		require.NoError(t, err)
		require.Equal(t, map[bngov.Identity]string{"aa": "p3", "bb": "p2"}, votes)
	})

	t.Run("method keys are independent", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		require.NoError(t, s.SaveGateVote(ctx, "m1", "aa", "p"))
		require.NoError(t, s.SaveGateVote(ctx, "m2", "aa", "q"))

		votes, err := s.GateVotes(ctx, "m1")
		require.NoError(t, err)
		require.Equal(t, map[bngov.Identity]string{"aa": "p"}, votes)
	})

	t.Run("delete removes only the named voters", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		require.NoError(t, s.SaveGateVote(ctx, "m", "aa", "p"))
		require.NoError(t, s.SaveGateVote(ctx, "m", "bb", "p"))
		require.NoError(t, s.SaveGateVote(ctx, "m", "cc", "p"))

		require.NoError(t, s.DeleteGateVotes(ctx, "m", []bngov.Identity{"aa", "cc", "absent"}))

		votes, err := s.GateVotes(ctx, "m")
		require.NoError(t, err)
		require.Equal(t, map[bngov.Identity]string{"bb": "p"}, votes)
	})

	t.Run("returned map does not alias stored state", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		require.NoError(t, s.SaveGateVote(ctx, "m", "aa", "p"))

		votes, err := s.GateVotes(ctx, "m")
		require.NoError(t, err)
		votes["aa"] = "mutated"

		again, err := s.GateVotes(ctx, "m")
		require.NoError(t, err)
		require.Equal(t, "p", again["aa"])
	})
}

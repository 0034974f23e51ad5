package bnstoretest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tobeyw/bane-labs/bn/bngov"
	"github.com/Tobeyw/bane-labs/bn/bnstore"
)

// VoteStoreFactory returns a fresh, empty store for one test.
type VoteStoreFactory func(t *testing.T) bnstore.VoteStore

// TestVoteStoreCompliance is the compliance test for [bnstore.VoteStore].
func TestVoteStoreCompliance(t *testing.T, f VoteStoreFactory) {
	t.Helper()

	ctx := context.Background()

	t.Run("no active vote", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		_, err := s.VoteOf(ctx, "aa")
		require.ErrorIs(t, err, bnstore.ErrNoActiveVote)
	})

	t.Run("save, read back, reverse index", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		require.NoError(t, s.SaveVote(ctx, "bb", 3))
		require.NoError(t, s.SaveVote(ctx, "aa", 3))

		id, err := s.VoteOf(ctx, "aa")
		require.NoError(t, err)
		require.Equal(t, uint64(3), id)

		voters, err := s.VotersOf(ctx, 3)
		require.NoError(t, err)
		require.Equal(t, []bngov.Identity{"aa", "bb"}, voters)
	})

	t.Run("switching drafts moves the reverse index entry", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		require.NoError(t, s.SaveVote(ctx, "aa", 1))
		require.NoError(t, s.SaveVote(ctx, "aa", 2))

		voters, err := s.VotersOf(ctx, 1)
		require.NoError(t, err)
		require.Empty(t, voters)

		voters, err = s.VotersOf(ctx, 2)
		require.NoError(t, err)
		require.Equal(t, []bngov.Identity{"aa"}, voters)

		id, err := s.VoteOf(ctx, "aa")
		require.NoError(t, err)
		require.Equal(t, uint64(2), id)
	})

	t.Run("delete clears both indexes", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		require.NoError(t, s.SaveVote(ctx, "aa", 5))
		require.NoError(t, s.DeleteVote(ctx, "aa"))

		_, err := s.VoteOf(ctx, "aa")
		require.ErrorIs(t, err, bnstore.ErrNoActiveVote)

		voters, err := s.VotersOf(ctx, 5)
		require.NoError(t, err)
		require.Empty(t, voters)
	})

	t.Run("deleting an absent vote is not an error", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		require.NoError(t, s.DeleteVote(ctx, "nobody"))
	})

	t.Run("unvoted draft has no voters", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		voters, err := s.VotersOf(ctx, 9)
		require.NoError(t, err)
		require.Empty(t, voters)
	})
}

package bnstoretest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tobeyw/bane-labs/bn/bngov"
	"github.com/Tobeyw/bane-labs/bn/bnstore"
)

// DraftStoreFactory returns a fresh, empty store for one test.
type DraftStoreFactory func(t *testing.T) bnstore.DraftStore

// TestDraftStoreCompliance is the compliance test for [bnstore.DraftStore].
func TestDraftStoreCompliance(t *testing.T, f DraftStoreFactory) {
	t.Helper()

	ctx := context.Background()

	t.Run("fresh store window is empty at (1, 0)", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		start, end, err := s.DraftWindow(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(1), start)
		require.Equal(t, uint64(0), end)
	})

	t.Run("missing draft load", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		_, err := s.LoadDraft(ctx, 1)
		require.ErrorIs(t, err, bnstore.ErrDraftNotFound)
	})

	t.Run("save and load round trip", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		d := bngov.Draft{
			ID:          1,
			StartHeight: 50,
			Miners:      []bngov.Identity{"aa", "cc"},
		}
		require.NoError(t, s.SaveDraft(ctx, d))

		got, err := s.LoadDraft(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, d, got)
	})

	t.Run("window bounds persist, including empty windows", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		require.NoError(t, s.SetDraftWindow(ctx, 1, 3))

		start, end, err := s.DraftWindow(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(1), start)
		require.Equal(t, uint64(3), end)

		// Window reset after a pass: start beyond end.
		require.NoError(t, s.SetDraftWindow(ctx, 4, 3))

		start, end, err = s.DraftWindow(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(4), start)
		require.Equal(t, uint64(3), end)
	})

	t.Run("drafts outside the window remain loadable", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		d := bngov.Draft{ID: 2, StartHeight: 60, Miners: []bngov.Identity{"bb"}}
		require.NoError(t, s.SaveDraft(ctx, d))
		require.NoError(t, s.SetDraftWindow(ctx, 3, 2))

		got, err := s.LoadDraft(ctx, 2)
		require.NoError(t, err)
		require.Equal(t, d, got)
	})
}

// Package bnstoretest provides compliance tests
// that every bnstore implementation must pass.
package bnstoretest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tobeyw/bane-labs/bn/bngov"
	"github.com/Tobeyw/bane-labs/bn/bnstore"
)

// PhaseStoreFactory returns a fresh, empty store for one test.
// Cleanup belongs on t.
type PhaseStoreFactory func(t *testing.T) bnstore.PhaseStore

// TestPhaseStoreCompliance is the compliance test for [bnstore.PhaseStore].
func TestPhaseStoreCompliance(t *testing.T, f PhaseStoreFactory) {
	t.Helper()

	ctx := context.Background()

	t.Run("empty store reports zero latest height", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		latest, err := s.LatestPhaseHeight(ctx)
		require.NoError(t, err)
		require.Zero(t, latest)
	})

	t.Run("missing phase load", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		_, err := s.LoadPhase(ctx, 42)
		require.ErrorIs(t, err, bnstore.ErrPhaseNotFound)
	})

	t.Run("save and load round trip", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		p := bngov.Phase{
			StartHeight: 10,
			Miners:      []bngov.Identity{"aa", "bb", "cc"},
			PreHeight:   1,
		}
		require.NoError(t, s.SavePhase(ctx, p))

		got, err := s.LoadPhase(ctx, 10)
		require.NoError(t, err)
		require.Equal(t, p, got)
	})

	t.Run("loaded miners do not alias stored state", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		p := bngov.Phase{StartHeight: 5, Miners: []bngov.Identity{"aa", "bb"}, PreHeight: 1}
		require.NoError(t, s.SavePhase(ctx, p))

		got, err := s.LoadPhase(ctx, 5)
		require.NoError(t, err)
		got.Miners[0] = "zz"

		again, err := s.LoadPhase(ctx, 5)
		require.NoError(t, err)
		require.Equal(t, bngov.Identity("aa"), again.Miners[0])
	})

	t.Run("latest height pointer", func(t *testing.T) {
		t.Parallel()
		s := f(t)

		require.NoError(t, s.SetLatestPhaseHeight(ctx, 7))

		latest, err := s.LatestPhaseHeight(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(7), latest)

		require.NoError(t, s.SetLatestPhaseHeight(ctx, 20))

		latest, err = s.LatestPhaseHeight(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(20), latest)
	})
}

package bngov_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tobeyw/bane-labs/bn/bngov"
)

func TestMinersStrictlyAscending(t *testing.T) {
	t.Parallel()

	require.True(t, bngov.MinersStrictlyAscending([]bngov.Identity{"aa"}))
	require.True(t, bngov.MinersStrictlyAscending([]bngov.Identity{"aa", "ab", "b"}))

	require.False(t, bngov.MinersStrictlyAscending(nil))
	require.False(t, bngov.MinersStrictlyAscending([]bngov.Identity{}))
	require.False(t, bngov.MinersStrictlyAscending([]bngov.Identity{"bb", "aa"}))
	require.False(t, bngov.MinersStrictlyAscending([]bngov.Identity{"aa", "aa"}))
	require.False(t, bngov.MinersStrictlyAscending([]bngov.Identity{"aa", "bb", "bb"}))
}

func TestPhaseContains(t *testing.T) {
	t.Parallel()

	p := bngov.Phase{Miners: []bngov.Identity{"aa", "cc", "ee"}}

	require.True(t, p.Contains("aa"))
	require.True(t, p.Contains("ee"))
	require.False(t, p.Contains("bb"))
	require.False(t, p.Contains(""))
}

func TestMinerSetHash(t *testing.T) {
	t.Parallel()

	a := bngov.MinerSetHash([]bngov.Identity{"aa", "bb"})
	require.Len(t, a, 64) // hex of a 32-byte digest

	// Same set, same hash.
	require.Equal(t, a, bngov.MinerSetHash([]bngov.Identity{"aa", "bb"}))

	// Different sets differ.
	require.NotEqual(t, a, bngov.MinerSetHash([]bngov.Identity{"aa", "cc"}))
	require.NotEqual(t, a, bngov.MinerSetHash([]bngov.Identity{"aa"}))

	// Length prefixing distinguishes ambiguous concatenations.
	require.NotEqual(t,
		bngov.MinerSetHash([]bngov.Identity{"a", "abb"}),
		bngov.MinerSetHash([]bngov.Identity{"aa", "bb"}),
	)
}

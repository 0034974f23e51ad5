package bnengine_test

import (
	"context"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/Tobeyw/bane-labs/bn/bnengine"
	"github.com/Tobeyw/bane-labs/bn/bngov"
	"github.com/Tobeyw/bane-labs/bn/bngov/bngovtest"
	"github.com/Tobeyw/bane-labs/bn/bnstore/bnmemstore"
)

// Thresholds sized so that with miners holding 50 each,
// one vote cannot pass a draft and two votes exactly can.
const (
	testMinStake      = 10
	testPassThreshold = 100
	testBalance       = 50
)

type fixture struct {
	Engine *bnengine.Engine

	Miners   []bngov.Identity
	Balances *bngovtest.Balances
	Chain    *bngovtest.Chain
	Recorder *bngovtest.EventRecorder
}

func newFixture(t *testing.T, nMiners int) *fixture {
	t.Helper()

	miners := bngovtest.Miners(nMiners)
	balances := bngovtest.NewBalances(miners, testBalance)
	// Height 2 so that proposing is allowed immediately:
	// the genesis phase activates at height 1.
	chain := bngovtest.NewChain(2)
	rec := bngovtest.NewEventRecorder()

	e, err := bnengine.NewEngine(context.Background(), slogt.New(t), bnengine.EngineConfig{
		PhaseStore: bnmemstore.NewPhaseStore(),
		DraftStore: bnmemstore.NewDraftStore(),
		VoteStore:  bnmemstore.NewVoteStore(),

		Balances: balances,
		Heights:  chain,
		Sink:     rec,

		GenesisMiners: miners,

		MinVoteStake:  testMinStake,
		PassThreshold: testPassThreshold,
	})
	require.NoError(t, err)

	return &fixture{
		Engine:   e,
		Miners:   miners,
		Balances: balances,
		Chain:    chain,
		Recorder: rec,
	}
}

// passDraft proposes a draft starting at startHeight with the fixture's
// own miner set and passes it with two votes, returning the draft id.
func (fx *fixture) passDraft(t *testing.T, startHeight uint64) uint64 {
	t.Helper()

	ctx := context.Background()

	rcpt, err := fx.Engine.Propose(ctx, fx.Miners[0], startHeight, fx.Miners)
	require.NoError(t, err)
	require.Len(t, rcpt.Events, 1)
	id := rcpt.Events[0].(bngov.ProposeEvent).DraftID

	_, err = fx.Engine.Vote(ctx, fx.Miners[0], id)
	require.NoError(t, err)

	rcpt, err = fx.Engine.Vote(ctx, fx.Miners[1], id)
	require.NoError(t, err)
	require.IsType(t, bngov.VotePassEvent{}, rcpt.Events[len(rcpt.Events)-1])

	return id
}

func TestNewEngine_SeedsGenesis(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newFixture(t, 3)

	p, err := fx.Engine.CurrentPhase(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), p.StartHeight)
	require.Zero(t, p.PreHeight)
	require.Equal(t, fx.Miners, p.Miners)

	ok, err := fx.Engine.IsMiner(ctx, fx.Miners[0])
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = fx.Engine.IsMiner(ctx, "zzz-outsider")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewEngine_RejectsBadGenesis(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	for name, miners := range map[string][]bngov.Identity{
		"empty":         {},
		"descending":    {"bb", "aa"},
		"duplicate":     {"aa", "aa"},
		"dup in middle": {"aa", "bb", "bb", "cc"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := bnengine.NewEngine(ctx, slogt.New(t), bnengine.EngineConfig{
				PhaseStore: bnmemstore.NewPhaseStore(),
				DraftStore: bnmemstore.NewDraftStore(),
				VoteStore:  bnmemstore.NewVoteStore(),

				Balances: bngovtest.NewBalances(nil, 0),
				Heights:  bngovtest.NewChain(1),

				GenesisMiners: miners,
			})
			require.ErrorIs(t, err, bngov.ErrInvalidMinerSet)
		})
	}
}

func TestPropose(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("success emits propose event and fills the window", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, 3)

		candidate := []bngov.Identity{"aaa", "bbb"}
		rcpt, err := fx.Engine.Propose(ctx, fx.Miners[0], 10, candidate)
		require.NoError(t, err)

		require.Len(t, rcpt.Events, 1)
		require.Equal(t, bngov.ProposeEvent{
			Proposer:    fx.Miners[0],
			DraftID:     1,
			StartHeight: 10,
			Miners:      candidate,
		}, rcpt.Events[0])

		drafts, err := fx.Engine.Drafts(ctx)
		require.NoError(t, err)
		require.Len(t, drafts, 1)
		require.Equal(t, uint64(1), drafts[0].ID)
		require.Equal(t, candidate, drafts[0].Miners)
	})

	t.Run("draft ids are sequential", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, 3)

		for want := uint64(1); want <= 3; want++ {
			rcpt, err := fx.Engine.Propose(ctx, fx.Miners[0], 10+want, fx.Miners)
			require.NoError(t, err)
			require.Equal(t, want, rcpt.Events[0].(bngov.ProposeEvent).DraftID)
		}

		drafts, err := fx.Engine.Drafts(ctx)
		require.NoError(t, err)
		require.Len(t, drafts, 3)
	})

	t.Run("non-member is unauthorized", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, 3)

		_, err := fx.Engine.Propose(ctx, "zzz-outsider", 10, fx.Miners)
		require.ErrorIs(t, err, bngov.ErrUnauthorized)
	})

	t.Run("start height must be strictly future", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, 3)

		// Chain is at height 2; both 2 and below are rejected.
		_, err := fx.Engine.Propose(ctx, fx.Miners[0], 2, fx.Miners)
		require.ErrorIs(t, err, bngov.ErrInvalidHeight)

		_, err = fx.Engine.Propose(ctx, fx.Miners[0], 1, fx.Miners)
		require.ErrorIs(t, err, bngov.ErrInvalidHeight)
	})

	t.Run("miner set must be strictly ascending and non-empty", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, 3)

		for _, miners := range [][]bngov.Identity{
			{},
			{"bb", "aa"},
			{"aa", "aa"},
		} {
			_, err := fx.Engine.Propose(ctx, fx.Miners[0], 10, miners)
			require.ErrorIs(t, err, bngov.ErrInvalidMinerSet)
		}
	})

	t.Run("rejected until the chain passes the newest activation", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, 3)

		fx.passDraft(t, 10)

		// Chain still at height 2; the phase activated for height 10
		// has not taken effect yet.
		_, err := fx.Engine.Propose(ctx, fx.Miners[0], 30, fx.Miners)
		require.ErrorIs(t, err, bngov.ErrInvalidHeight)

		// At height 10 exactly it is still too soon.
		fx.Chain.SetHeight(10)
		_, err = fx.Engine.Propose(ctx, fx.Miners[0], 30, fx.Miners)
		require.ErrorIs(t, err, bngov.ErrInvalidHeight)

		fx.Chain.SetHeight(11)
		_, err = fx.Engine.Propose(ctx, fx.Miners[0], 30, fx.Miners)
		require.NoError(t, err)
	})

	t.Run("rejection leaves no draft behind", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, 3)

		_, err := fx.Engine.Propose(ctx, fx.Miners[0], 10, []bngov.Identity{"bb", "aa"})
		require.ErrorIs(t, err, bngov.ErrInvalidMinerSet)

		drafts, err := fx.Engine.Drafts(ctx)
		require.NoError(t, err)
		require.Empty(t, drafts)
	})
}

func TestVote(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("draft outside window", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, 3)

		_, err := fx.Engine.Vote(ctx, fx.Miners[0], 1)
		require.ErrorIs(t, err, bngov.ErrInvalidDraftID)
	})

	t.Run("insufficient stake", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, 3)

		_, err := fx.Engine.Propose(ctx, fx.Miners[0], 10, fx.Miners)
		require.NoError(t, err)

		fx.Balances.Set(fx.Miners[2], testMinStake-1)
		_, err = fx.Engine.Vote(ctx, fx.Miners[2], 1)
		require.ErrorIs(t, err, bngov.ErrInsufficientStake)
	})

	t.Run("re-voting the same draft is a silent no-op", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, 3)

		_, err := fx.Engine.Propose(ctx, fx.Miners[0], 10, fx.Miners)
		require.NoError(t, err)

		rcpt, err := fx.Engine.Vote(ctx, fx.Miners[0], 1)
		require.NoError(t, err)
		require.Len(t, rcpt.Events, 1)

		rcpt, err = fx.Engine.Vote(ctx, fx.Miners[0], 1)
		require.NoError(t, err)
		require.Empty(t, rcpt.Events)
	})

	t.Run("switching drafts moves the voter's weight", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, 3)

		_, err := fx.Engine.Propose(ctx, fx.Miners[0], 10, fx.Miners)
		require.NoError(t, err)
		_, err = fx.Engine.Propose(ctx, fx.Miners[0], 11, fx.Miners)
		require.NoError(t, err)

		// Miner 0 votes draft 1, then switches to draft 2.
		_, err = fx.Engine.Vote(ctx, fx.Miners[0], 1)
		require.NoError(t, err)
		_, err = fx.Engine.Vote(ctx, fx.Miners[0], 2)
		require.NoError(t, err)

		// If miner 0's weight still counted toward draft 1,
		// this vote would reach the pass threshold and reset the window.
		_, err = fx.Engine.Vote(ctx, fx.Miners[1], 1)
		require.NoError(t, err)

		drafts, err := fx.Engine.Drafts(ctx)
		require.NoError(t, err)
		require.Len(t, drafts, 2, "draft 1 must not have passed")

		// Draft 2 already holds miner 0's weight, so one more vote passes it.
		rcpt, err := fx.Engine.Vote(ctx, fx.Miners[2], 2)
		require.NoError(t, err)
		require.IsType(t, bngov.VotePassEvent{}, rcpt.Events[len(rcpt.Events)-1])
	})

	t.Run("tallies read live balances, not cast-time snapshots", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, 3)

		_, err := fx.Engine.Propose(ctx, fx.Miners[0], 10, fx.Miners)
		require.NoError(t, err)

		_, err = fx.Engine.Vote(ctx, fx.Miners[0], 1)
		require.NoError(t, err)

		// Miner 0's balance grows after casting;
		// the next tally must see the new weight and pass alone
		// with miner 2's small contribution.
		fx.Balances.Set(fx.Miners[0], testPassThreshold-testMinStake)
		fx.Balances.Set(fx.Miners[2], testMinStake)

		rcpt, err := fx.Engine.Vote(ctx, fx.Miners[2], 1)
		require.NoError(t, err)
		pass := rcpt.Events[len(rcpt.Events)-1].(bngov.VotePassEvent)
		require.Equal(t, uint64(testPassThreshold), pass.Tally)
	})
}

func TestVotePass(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("activation, window reset, stranded drafts unreachable", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, 3)

		candidate := []bngov.Identity{"aaa", "bbb"}
		_, err := fx.Engine.Propose(ctx, fx.Miners[0], 10, candidate)
		require.NoError(t, err)
		_, err = fx.Engine.Propose(ctx, fx.Miners[0], 12, fx.Miners)
		require.NoError(t, err)

		_, err = fx.Engine.Vote(ctx, fx.Miners[0], 1)
		require.NoError(t, err)
		rcpt, err := fx.Engine.Vote(ctx, fx.Miners[1], 1)
		require.NoError(t, err)

		require.Len(t, rcpt.Events, 2)
		pass := rcpt.Events[1].(bngov.VotePassEvent)
		require.Equal(t, uint64(2*testBalance), pass.Tally)
		require.Equal(t, uint64(10), pass.StartHeight)
		require.Equal(t, candidate, pass.Miners)
		require.Equal(t, uint64(1), pass.PreHeight)
		require.Equal(t, bngov.MinerSetHash(candidate), pass.MinersHash)

		// The whole window is discarded, loser draft 2 included.
		drafts, err := fx.Engine.Drafts(ctx)
		require.NoError(t, err)
		require.Empty(t, drafts)

		_, err = fx.Engine.Vote(ctx, fx.Miners[2], 2)
		require.ErrorIs(t, err, bngov.ErrInvalidDraftID)

		// The phase is queryable at and beyond its start height.
		p, err := fx.Engine.PhaseByHeight(ctx, 10)
		require.NoError(t, err)
		require.Equal(t, candidate, p.Miners)
	})

	t.Run("only one draft passes per window, next window starts fresh", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, 3)

		fx.passDraft(t, 10)
		fx.Chain.SetHeight(11)

		rcpt, err := fx.Engine.Propose(ctx, fx.Miners[0], 30, fx.Miners)
		require.NoError(t, err)
		// Window advanced past the passed window: new draft id continues the sequence.
		require.Equal(t, uint64(2), rcpt.Events[0].(bngov.ProposeEvent).DraftID)

		drafts, err := fx.Engine.Drafts(ctx)
		require.NoError(t, err)
		require.Len(t, drafts, 1)
		require.Equal(t, uint64(2), drafts[0].ID)
	})

	t.Run("round trip: proposed miners become the active committee", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, 3)

		candidate := []bngov.Identity{"alpha", "omega"}
		_, err := fx.Engine.Propose(ctx, fx.Miners[0], 10, candidate)
		require.NoError(t, err)
		_, err = fx.Engine.Vote(ctx, fx.Miners[0], 1)
		require.NoError(t, err)
		_, err = fx.Engine.Vote(ctx, fx.Miners[1], 1)
		require.NoError(t, err)

		fx.Chain.SetHeight(10)
		p, err := fx.Engine.CurrentPhase(ctx)
		require.NoError(t, err)
		require.Equal(t, candidate, p.Miners)
		require.Equal(t, uint64(1), p.PreHeight)

		ok, err := fx.Engine.IsMiner(ctx, "alpha")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = fx.Engine.IsMiner(ctx, fx.Miners[0])
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestRevokeVote(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("no active vote", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, 3)

		_, err := fx.Engine.RevokeVote(ctx, fx.Miners[0])
		require.ErrorIs(t, err, bngov.ErrInvalidDraftID)
	})

	t.Run("revocation removes the tally contribution", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, 3)

		_, err := fx.Engine.Propose(ctx, fx.Miners[0], 10, fx.Miners)
		require.NoError(t, err)

		_, err = fx.Engine.Vote(ctx, fx.Miners[0], 1)
		require.NoError(t, err)

		rcpt, err := fx.Engine.RevokeVote(ctx, fx.Miners[0])
		require.NoError(t, err)
		require.Equal(t, []bngov.Event{
			bngov.VoteEvent{Voter: fx.Miners[0], DraftID: 0},
		}, rcpt.Events)

		// With miner 0's weight gone, miner 1's vote alone cannot pass.
		_, err = fx.Engine.Vote(ctx, fx.Miners[1], 1)
		require.NoError(t, err)

		drafts, err := fx.Engine.Drafts(ctx)
		require.NoError(t, err)
		require.Len(t, drafts, 1)
	})

	t.Run("vote stranded outside the window cannot be revoked", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, 3)

		// Miner 2 votes for a losing draft, then the window passes without it.
		_, err := fx.Engine.Propose(ctx, fx.Miners[0], 10, fx.Miners)
		require.NoError(t, err)
		_, err = fx.Engine.Propose(ctx, fx.Miners[0], 12, fx.Miners)
		require.NoError(t, err)

		_, err = fx.Engine.Vote(ctx, fx.Miners[2], 2)
		require.NoError(t, err)

		_, err = fx.Engine.Vote(ctx, fx.Miners[0], 1)
		require.NoError(t, err)
		_, err = fx.Engine.Vote(ctx, fx.Miners[1], 1)
		require.NoError(t, err)

		_, err = fx.Engine.RevokeVote(ctx, fx.Miners[2])
		require.ErrorIs(t, err, bngov.ErrInvalidDraftID)
	})
}

func TestPhaseByHeight(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newFixture(t, 3)

	// Build a history: genesis at 1, then phases at 10 and 20.
	fx.passDraft(t, 10)
	fx.Chain.SetHeight(11)
	fx.passDraft(t, 20)

	for _, tc := range []struct {
		height    uint64
		wantStart uint64
	}{
		{height: 0, wantStart: 1},
		{height: 1, wantStart: 1},
		{height: 9, wantStart: 1},
		{height: 10, wantStart: 10},
		{height: 19, wantStart: 10},
		{height: 20, wantStart: 20},
		{height: 1_000_000, wantStart: 20},
	} {
		p, err := fx.Engine.PhaseByHeight(ctx, tc.height)
		require.NoError(t, err)
		require.Equal(t, tc.wantStart, p.StartHeight, "height %d", tc.height)
	}

	// Back-pointers link the full chain.
	p, err := fx.Engine.PhaseByHeight(ctx, 25)
	require.NoError(t, err)
	require.Equal(t, uint64(10), p.PreHeight)

	p, err = fx.Engine.PhaseByHeight(ctx, 15)
	require.NoError(t, err)
	require.Equal(t, uint64(1), p.PreHeight)
}

func TestEventSinkOrdering(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newFixture(t, 3)

	_, err := fx.Engine.Propose(ctx, fx.Miners[0], 10, fx.Miners)
	require.NoError(t, err)
	_, err = fx.Engine.Vote(ctx, fx.Miners[0], 1)
	require.NoError(t, err)
	_, err = fx.Engine.Vote(ctx, fx.Miners[1], 1)
	require.NoError(t, err)

	events := fx.Recorder.Events()
	require.Len(t, events, 4)
	require.Equal(t, "propose", events[0].Kind())
	require.Equal(t, "vote", events[1].Kind())
	require.Equal(t, "vote", events[2].Kind())
	require.Equal(t, "vote_pass", events[3].Kind())
}

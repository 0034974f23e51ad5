// Package bngovtest provides deterministic fixtures
// for governance tests.
package bngovtest

import (
	"context"
	"fmt"
	"sync"

	petname "github.com/dustinkirkland/golang-petname"

	"github.com/Tobeyw/bane-labs/bn/bngov"
)

// Miners returns n distinct identities in strictly ascending order.
//
// Each identity carries an ordering prefix followed by a readable
// petname, so logs involving identities are easy to follow
// while the ascending-order invariant holds regardless of the names.
func Miners(n int) []bngov.Identity {
	out := make([]bngov.Identity, n)
	for i := range out {
		out[i] = bngov.Identity(fmt.Sprintf("%03d-%s", i, petname.Generate(2, "-")))
	}
	return out
}

// Balances is a mutable in-memory [bngov.BalanceSource].
// Unknown identities report zero balance.
type Balances struct {
	mu sync.Mutex
	m  map[bngov.Identity]uint64
}

// NewBalances gives every provided identity the same starting balance.
func NewBalances(ids []bngov.Identity, each uint64) *Balances {
	m := make(map[bngov.Identity]uint64, len(ids))
	for _, id := range ids {
		m[id] = each
	}
	return &Balances{m: m}
}

func (b *Balances) Balance(_ context.Context, id bngov.Identity) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.m[id], nil
}

// Set overrides one identity's balance,
// modeling ledger movement between vote and tally.
func (b *Balances) Set(id bngov.Identity, amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.m[id] = amount
}

// Chain is a settable [bngov.HeightSource].
type Chain struct {
	mu     sync.Mutex
	height uint64
}

func NewChain(height uint64) *Chain {
	return &Chain{height: height}
}

func (c *Chain) CurrentHeight(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.height, nil
}

func (c *Chain) SetHeight(h uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.height = h
}

// EventRecorder is a [bngov.EventSink] that retains
// every published event in order.
type EventRecorder struct {
	mu     sync.Mutex
	events []bngov.Event
}

func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

func (r *EventRecorder) Publish(e bngov.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)
}

// Events returns a snapshot of everything published so far.
func (r *EventRecorder) Events() []bngov.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]bngov.Event, len(r.events))
	copy(out, r.events)
	return out
}

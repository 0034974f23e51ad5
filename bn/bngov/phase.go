package bngov

import "slices"

// GenesisPhaseHeight is the start height of the genesis phase.
const GenesisPhaseHeight = 1

// Phase is one activated committee configuration,
// effective from StartHeight until superseded by a later phase.
//
// Phases form a singly linked list through PreHeight,
// each value holding the start height of the phase it superseded.
// The genesis phase has PreHeight zero, which terminates backward walks.
// A phase is written once, on vote pass, and never modified after.
type Phase struct {
	StartHeight uint64
	Miners      []Identity
	PreHeight   uint64
}

// Contains reports whether id is a member of the phase's committee.
// Miners are strictly ascending, so this is a binary search.
func (p Phase) Contains(id Identity) bool {
	_, ok := slices.BinarySearch(p.Miners, id)
	return ok
}

// Clone returns a copy of p whose miner slice
// does not alias the receiver's.
func (p Phase) Clone() Phase {
	p.Miners = slices.Clone(p.Miners)
	return p
}

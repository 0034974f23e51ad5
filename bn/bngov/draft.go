package bngov

import "slices"

// Draft is a pending committee-change proposal.
//
// Draft ids are assigned sequentially from 1.
// A draft is immutable once created; it leaves the votable window
// when the window advances past it, but is never physically deleted.
type Draft struct {
	ID          uint64     `json:"id"`
	StartHeight uint64     `json:"start_height"`
	Miners      []Identity `json:"miners"`
}

// Clone returns a copy of d whose miner slice
// does not alias the receiver's.
func (d Draft) Clone() Draft {
	d.Miners = slices.Clone(d.Miners)
	return d
}

package bngov

// Event is one governance event emitted by a mutating operation.
//
// Events are returned to the caller on the operation's [Receipt],
// and additionally forwarded to the engine's [EventSink] when one
// is configured. They are an observation side channel,
// not part of core correctness.
type Event interface {
	// Kind returns a stable name for the event type,
	// suitable for tagging serialized events.
	Kind() string
}

// ProposeEvent is emitted when a new draft enters the window.
type ProposeEvent struct {
	Proposer    Identity   `json:"proposer"`
	DraftID     uint64     `json:"draft_id"`
	StartHeight uint64     `json:"start_height"`
	Miners      []Identity `json:"miners"`
}

func (ProposeEvent) Kind() string { return "propose" }

// VoteEvent is emitted when an identity's active vote changes.
// DraftID zero is the revocation sentinel.
type VoteEvent struct {
	Voter   Identity `json:"voter"`
	DraftID uint64   `json:"draft_id"`
}

func (VoteEvent) Kind() string { return "vote" }

// VotePassEvent is emitted when a draft's weighted tally
// reaches the pass threshold and a new phase activates.
type VotePassEvent struct {
	Tally       uint64     `json:"tally"`
	StartHeight uint64     `json:"start_height"`
	Miners      []Identity `json:"miners"`
	PreHeight   uint64     `json:"pre_height"`

	// MinersHash is the hex miner-set hash of the activated committee.
	MinersHash string `json:"miners_hash"`
}

func (VotePassEvent) Kind() string { return "vote_pass" }

// GateVoteEvent is emitted by the generic threshold gate
// when a committee member records a vote for a (method, param) pair.
type GateVoteEvent struct {
	Voter     Identity `json:"voter"`
	MethodKey string   `json:"method_key"`
	ParamKey  string   `json:"param_key"`
}

func (GateVoteEvent) Kind() string { return "gate_vote" }

// Receipt is the per-call output of a mutating operation:
// the append-only list of events the call emitted, in emission order.
type Receipt struct {
	Events []Event
}

// EventSink receives every event emitted by an engine or gate,
// in emission order.
//
// Publish must not block; sinks that fan out to slow consumers
// are expected to drop rather than stall a governance operation.
type EventSink interface {
	Publish(e Event)
}

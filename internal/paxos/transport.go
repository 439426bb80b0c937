package paxos

// NodeMetadata is transport-specific addressing information a Transport may
// need to reach a peer (a URL, a channel handle, nothing at all). The core
// never interprets it; it is only ever handed back to the Transport that
// issued it in the first place.
type NodeMetadata any

// Transport delivers a Command to a single named peer. Delivery is
// best-effort: a Transport may drop, delay, or reorder sends relative to one
// another, and Send must never block on or synchronously invoke the
// receiving replica (no reentrant call back into Receive).
type Transport interface {
	Send(node NodeID, metadata NodeMetadata, command Command, metas CommandMetas)
}

// Receiver accepts an inbound Command. Every layer of the stack (raw
// replica, Liveness, StateMachineReplica) is a Receiver, and each wraps the
// one beneath it.
type Receiver interface {
	Receive(command Command, metas CommandMetas)
}

// Replica is the full public contract a layer in the stack exposes upward:
// besides receiving commands, it can be driven by a periodic clock tick and
// asked to step up as leader.
type Replica interface {
	Receiver

	// Tick drives time-based behavior (liveness checks, retransmits). metas
	// is forwarded to whatever command the tick ends up producing.
	Tick(metas CommandMetas)

	// ProposeLeadership starts a new ballot in an attempt to become leader.
	ProposeLeadership(metas CommandMetas)

	// IsLeader reports whether this replica currently believes it holds
	// leadership (has completed phase 1 for the highest ballot it knows of).
	IsLeader() bool

	// Decisions exposes the resolved portion of the decision window, for
	// StateMachineReplica (or anything else) to drain.
	Decisions() *DecisionSet
}

// Proposer is implemented by anything that can be asked to drive a new
// client value into the log directly, bypassing the wire (a Proposal
// command is just this, addressed to a remote node instead). Every layer
// of the stack forwards it to whatever it wraps, so callers can hold any
// layer and still reach the underlying Node.
type Proposer interface {
	Propose(value Bytes, metas CommandMetas)
}

// GapFiller is implemented by a replica that can be asked to unblock a hole
// below its highest resolved slot by driving an empty value into it. Only
// meaningful for whichever replica currently holds leadership; an
// implementation is expected to no-op otherwise.
type GapFiller interface {
	FillGap(metas CommandMetas)
}

// ReplicatedState is the user state machine a StateMachineReplica drives.
// Execute is called once per non-empty resolved slot, in slot order, with no
// gaps.
type ReplicatedState interface {
	Execute(slot Slot, command Bytes)
}

package paxos

// slotStatus tags which of the three shapes a SlotRole currently has.
type slotStatus int

const (
	slotEmpty slotStatus = iota
	slotOpen
	slotResolved
)

// acceptorState is the per-slot acceptor sub-state: the highest ballot this
// node has promised, and the highest-ballot value it has accepted, if any.
type acceptorState struct {
	promised       Ballot
	hasPromised    bool
	acceptedBallot Ballot
	acceptedValue  Bytes
	hasAccepted    bool
}

// promiseOutcome is the acceptor's verdict on a single slot's Prepare.
type promiseOutcome struct {
	ok        bool
	hasValue  bool
	ballot    Ballot
	value     Bytes
	preempted Ballot
}

// receivePrepare is the acceptor rule from 4.1: a strictly higher ballot is
// promised; anything else is rejected with the current promise as the hint.
func (a *acceptorState) receivePrepare(bal Ballot) promiseOutcome {
	if a.hasPromised && !bal.Greater(a.promised) {
		return promiseOutcome{ok: false, preempted: a.promised}
	}
	a.promised = bal
	a.hasPromised = true
	return promiseOutcome{ok: true, hasValue: a.hasAccepted, ballot: a.acceptedBallot, value: a.acceptedValue}
}

// acceptOutcome is the acceptor's verdict on a single slot's Accept.
type acceptOutcome struct {
	ok        bool
	preempted Ballot
}

// receiveAccept is the acceptor rule from 4.1: a ballot at or above the
// current promise is accepted (equality is fine here, unlike Prepare).
func (a *acceptorState) receiveAccept(bal Ballot, value Bytes) acceptOutcome {
	if a.hasPromised && bal.Less(a.promised) {
		return acceptOutcome{ok: false, preempted: a.promised}
	}
	a.promised = bal
	a.hasPromised = true
	a.acceptedBallot = bal
	a.acceptedValue = value
	a.hasAccepted = true
	return acceptOutcome{ok: true}
}

// proposerState is the per-slot proposer sub-state, tracking this replica's
// own attempt (if any) to get a value chosen for the slot.
type proposerState struct {
	active bool
	ballot Ballot

	// value is what this replica wants chosen; adopted is set once a
	// promise reveals a higher-ballot value already accepted elsewhere,
	// which phase 1 safety requires this proposer to carry forward instead.
	// adoptedBallot is the ballot that value was accepted under, so a later
	// promise carrying a still-higher-ballot value can displace it.
	value         Bytes
	adopted       bool
	adoptedBallot Ballot

	promises map[NodeID]bool
	accepts  map[NodeID]bool
	rejected bool
	preempted Ballot

	phase proposerPhase
}

type proposerPhase int

const (
	phaseIdle proposerPhase = iota
	phasePreparing
	phaseAccepting
	phaseDone
)

// beginPrepare starts (or restarts) phase 1 for this slot under ballot.
func (p *proposerState) beginPrepare(ballot Ballot, value Bytes) {
	p.active = true
	p.ballot = ballot
	p.value = value
	p.adopted = false
	p.adoptedBallot = Ballot{}
	p.promises = map[NodeID]bool{}
	p.accepts = map[NodeID]bool{}
	p.rejected = false
	p.phase = phasePreparing
}

// beginAccept skips phase 1 (leader already holds a lease for ballot) and
// goes straight to phase 2 with this replica's own value.
func (p *proposerState) beginAccept(ballot Ballot, value Bytes) {
	p.active = true
	p.ballot = ballot
	p.value = value
	p.adopted = false
	p.adoptedBallot = Ballot{}
	p.promises = map[NodeID]bool{}
	p.accepts = map[NodeID]bool{}
	p.rejected = false
	p.phase = phaseAccepting
}

// receivePromise records a quorum vote for phase 1. If the acceptor had
// already accepted a value for this slot, this proposer must adopt
// whichever reported value carries the highest ballot (Paxos safety: can't
// pick a different value once one might already be chosen), upgrading away
// from an earlier, lower-ballot adoption as later promises arrive.
func (p *proposerState) receivePromise(from NodeID, hasValue bool, ballot Ballot, value Bytes) {
	if p.phase != phasePreparing || !p.active {
		return
	}
	p.promises[from] = true
	if hasValue && (!p.adopted || ballot.Greater(p.adoptedBallot)) {
		p.value = value
		p.adopted = true
		p.adoptedBallot = ballot
	}
}

func (p *proposerState) receiveReject(preempted Ballot) {
	if !p.active {
		return
	}
	p.rejected = true
	if preempted.Greater(p.preempted) {
		p.preempted = preempted
	}
}

func (p *proposerState) receiveAccepted(from NodeID) {
	if p.phase != phaseAccepting || !p.active {
		return
	}
	p.accepts[from] = true
}

// SlotRole is the complete per-slot state for one position in the
// replicated log: empty, open (acceptor and proposer sub-state live), or
// resolved (a value has reached quorum and is permanent). The learner role
// has no state of its own — a node learns a slot's outcome either by
// driving its own proposer attempt to quorum, or by trusting a Resolution
// broadcast from whichever node did.
type SlotRole struct {
	status slotStatus

	acceptor acceptorState
	proposer proposerState

	resolvedBallot Ballot
	resolvedValue  Bytes
}

// newOpenSlot returns a freshly opened slot with no acceptor promise and no
// proposer activity yet.
func newOpenSlot() *SlotRole {
	return &SlotRole{status: slotOpen}
}

// IsResolved reports whether a value has been chosen for this slot.
func (s *SlotRole) IsResolved() bool { return s.status == slotResolved }

// IsEmpty reports whether this slot is an untouched placeholder.
func (s *SlotRole) IsEmpty() bool { return s.status == slotEmpty }

// FillOpen promotes an empty placeholder slot into an open one, giving it
// live acceptor/proposer sub-state. A no-op if already open or resolved.
func (s *SlotRole) FillOpen() {
	if s.status == slotEmpty {
		s.status = slotOpen
	}
}

// ResolvedValue returns the chosen value and true, if resolved.
func (s *SlotRole) ResolvedValue() (Bytes, bool) {
	if s.status != slotResolved {
		return nil, false
	}
	return s.resolvedValue, true
}

// ResolvedBallot returns the ballot this slot was actually resolved under,
// and true, if resolved.
func (s *SlotRole) ResolvedBallot() (Ballot, bool) {
	if s.status != slotResolved {
		return Ballot{}, false
	}
	return s.resolvedBallot, true
}

// resolve marks the slot permanently decided. Once resolved, acceptor and
// proposer sub-state no longer matter: a chosen value never changes.
func (s *SlotRole) resolve(ballot Ballot, value Bytes) {
	if s.status == slotResolved {
		return
	}
	s.status = slotResolved
	s.resolvedBallot = ballot
	s.resolvedValue = value
}

// ReceivePrepare applies the acceptor rule to an open (or empty) slot. For
// an already-resolved slot it changes nothing and answers with a promise
// reporting the resolved ballot and value, mirroring ReceiveAccept's
// unconditional acceptance for a resolved slot.
func (s *SlotRole) ReceivePrepare(bal Ballot) promiseOutcome {
	if s.status == slotResolved {
		return promiseOutcome{ok: true, hasValue: true, ballot: s.resolvedBallot, value: s.resolvedValue}
	}
	s.FillOpen()
	return s.acceptor.receivePrepare(bal)
}

// ReceiveAccept applies the acceptor rule for phase 2.
func (s *SlotRole) ReceiveAccept(bal Ballot, value Bytes) acceptOutcome {
	if s.status == slotResolved {
		return acceptOutcome{ok: true}
	}
	s.FillOpen()
	return s.acceptor.receiveAccept(bal, value)
}

// Resolve marks the slot permanently decided, whether because this
// replica's own proposer attempt reached quorum or because a Resolution
// command reported the outcome. Idempotent: a slot already resolved never
// changes value.
func (s *SlotRole) Resolve(bal Ballot, value Bytes) {
	s.resolve(bal, value)
}

// BeginPrepare starts phase 1 for this slot's proposer under ballot, wanting
// value chosen if no higher-ballot value turns up.
func (s *SlotRole) BeginPrepare(ballot Ballot, value Bytes) {
	s.proposer.beginPrepare(ballot, value)
}

// BeginAccept skips phase 1 under an already-held leader lease.
func (s *SlotRole) BeginAccept(ballot Ballot, value Bytes) {
	s.proposer.beginAccept(ballot, value)
}

// ReceivePromise folds a Promise's per-slot entry (or bare non-entry, for
// slots this proposer has open but the acceptor had nothing to report for)
// into this slot's proposer state.
func (s *SlotRole) ReceivePromise(from NodeID, hasValue bool, ballot Ballot, value Bytes) {
	s.proposer.receivePromise(from, hasValue, ballot, value)
}

// ReceiveReject folds a Reject into this slot's proposer state.
func (s *SlotRole) ReceiveReject(preempted Ballot) {
	s.proposer.receiveReject(preempted)
}

// ReceiveProposerAccepted folds an Accepted vote into this slot's own
// proposer attempt.
func (s *SlotRole) ReceiveProposerAccepted(from NodeID) {
	s.proposer.receiveAccepted(from)
}

// ProposerActive reports whether this slot has a live proposer attempt.
func (s *SlotRole) ProposerActive() bool { return s.proposer.active }

// ProposerPhase reports the current phase of this slot's proposer attempt.
func (s *SlotRole) ProposerPhase() proposerPhase { return s.proposer.phase }

// ProposerBallot returns the ballot this slot's proposer is currently
// working with.
func (s *SlotRole) ProposerBallot() Ballot { return s.proposer.ballot }

// ProposerValue returns the value this slot's proposer currently intends to
// get chosen (which may have been adopted from a higher-ballot promise).
func (s *SlotRole) ProposerValue() Bytes { return s.proposer.value }

// PromiseCount returns how many distinct acceptors have promised this
// slot's current proposer ballot.
func (s *SlotRole) PromiseCount() int { return len(s.proposer.promises) }

// AcceptCount returns how many distinct acceptors have accepted this slot's
// current proposer ballot.
func (s *SlotRole) AcceptCount() int { return len(s.proposer.accepts) }

// ProposerRejected reports whether this slot's proposer attempt has been
// preempted, and by what ballot.
func (s *SlotRole) ProposerRejected() (Ballot, bool) {
	return s.proposer.preempted, s.proposer.rejected
}

// MarkPhase2 transitions this slot's proposer from phase 1 to phase 2 once
// a promise quorum has been reached, using value (possibly adopted).
func (s *SlotRole) MarkPhase2(value Bytes) {
	s.proposer.phase = phaseAccepting
	s.proposer.value = value
	s.proposer.accepts = map[NodeID]bool{}
}

// MarkProposerDone retires this slot's proposer attempt once the value has
// been resolved.
func (s *SlotRole) MarkProposerDone() {
	s.proposer.phase = phaseDone
}

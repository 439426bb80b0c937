package paxos

import "log"

// Node is the raw, undecorated replica: the message dispatch table from
// 4.3, ballot bookkeeping, and the single-slot combined acceptor/proposer
// machinery of SlotRole applied across the whole DecisionWindow. It
// implements Replica directly; Liveness and StateMachineReplica wrap it (or
// wrap each other) to add leader-election timing and ordered execution.
//
// Adapted from the teacher's internal/node/node.go, which wires one
// proposer, one acceptor and one learner together behind a single
// routeMessage switch; here that switch operates per slot across a whole
// window instead of once per process.
type Node struct {
	config    Configuration
	transport Transport
	peerMeta  map[NodeID]NodeMetadata
	snapshot  Snapshotter

	window *DecisionWindow

	ballot       Ballot
	isLeader     bool
	leaderBallot Ballot

	pendingValues []Bytes
}

// NewNode constructs a raw replica for config, sending outbound commands
// through transport (addressed using peerMeta), and persisting resolved
// slots through snapshot if non-nil.
func NewNode(config Configuration, transport Transport, peerMeta map[NodeID]NodeMetadata, snapshot Snapshotter) *Node {
	n := &Node{
		config:    config,
		transport: transport,
		peerMeta:  peerMeta,
		snapshot:  snapshot,
		window:    NewDecisionWindow(),
	}
	if snapshot != nil {
		resolved, err := snapshot.LoadResolved()
		if err != nil {
			log.Printf("paxos: node %d: loading snapshot: %v", config.Self, err)
		}
		for slot, entry := range resolved {
			role := n.window.Slot(slot)
			role.Resolve(entry.Ballot, entry.Value)
		}
	}
	return n
}

var _ Replica = (*Node)(nil)

// Decisions exposes the resolved portion of the window.
func (n *Node) Decisions() *DecisionSet { return n.window.Decisions() }

// IsLeader reports whether this node currently holds a completed leader
// lease.
func (n *Node) IsLeader() bool { return n.isLeader }

func (n *Node) metaFor(node NodeID) NodeMetadata { return n.peerMeta[node] }

func (n *Node) sendTo(node NodeID, cmd Command, metas CommandMetas) {
	if node == n.config.Self {
		return
	}
	n.transport.Send(node, n.metaFor(node), cmd, metas)
}

func (n *Node) broadcast(cmd Command, metas CommandMetas) {
	for _, p := range n.config.Peers {
		n.sendTo(p, cmd, metas)
	}
}

// nextBallot bumps this node's own ballot strictly past the last one it
// issued and any ballot folded in by observeForeignBallot, and returns it.
// Ballots carried by Prepare, Accept or Resolution commands are not folded
// in, so the minted ballot can still be lower than one of those.
func (n *Node) nextBallot() Ballot {
	n.ballot = Ballot{Round: n.ballot.Round + 1, Node: n.config.Self}
	return n.ballot
}

// observeForeignBallot folds a ballot seen on the wire into this node's own
// counter, so the next ballot it mints is higher than that ballot. It is
// called with the preempting ballot of a Reject (sent or received).
func (n *Node) observeForeignBallot(bal Ballot) {
	if bal.Greater(n.ballot) {
		n.ballot = bal
	}
}

func (n *Node) persist(slot Slot, role *SlotRole) {
	if n.snapshot == nil {
		return
	}
	value, _ := role.ResolvedValue()
	if err := n.snapshot.SaveResolved(slot, ResolvedEntry{Ballot: role.resolvedBallot, Value: value}); err != nil {
		log.Printf("paxos: node %d: saving slot %d: %v", n.config.Self, slot, err)
	}
}

// Receive is the full dispatch table from 4.3.
func (n *Node) Receive(command Command, metas CommandMetas) {
	switch c := command.(type) {
	case Proposal:
		n.handleProposal(c, metas)
	case Prepare:
		n.handlePrepare(c.Ballot, metas)
	case Promise:
		n.handlePromise(c, metas)
	case Accept:
		n.handleAccept(c, metas)
	case Reject:
		n.handleReject(c, metas)
	case Accepted:
		n.handleAccepted(c, metas)
	case Resolution:
		n.handleResolution(c, metas)
	case Catchup:
		n.handleCatchup(c, metas)
	default:
		log.Printf("paxos: node %d: ignoring unrecognized command %T", n.config.Self, command)
	}
}

// Tick retransmits outstanding phase-1 and phase-2 broadcasts for any slot
// whose proposer attempt has not yet resolved. The raw Node has no notion
// of elapsed time by itself; Liveness decides when to call this and when
// to step up as leader instead.
func (n *Node) Tick(metas CommandMetas) {
	for slot, role := range n.window.slots {
		if role.IsResolved() || !role.ProposerActive() {
			continue
		}
		switch role.ProposerPhase() {
		case phasePreparing:
			n.broadcast(Prepare{Ballot: role.ProposerBallot()}, metas)
		case phaseAccepting:
			n.broadcast(Accept{
				Ballot: role.ProposerBallot(),
				Values: []SlotValue{{Slot: slot, Value: role.ProposerValue()}},
			}, metas)
		}
	}
}

// FillGap looks for a hole below the highest slot this node knows is
// resolved and, if this node is leader and the slot has no proposer attempt
// already in flight, drives an empty value into it under the existing
// leader ballot (no new phase 1 needed, the lease already covers it). This
// is what lets execution move past a slot whose Accept this node missed
// entirely but whose later siblings it learned about via Resolution.
func (n *Node) FillGap(metas CommandMetas) {
	if !n.isLeader {
		return
	}
	highest, ok := n.window.HighestResolved()
	if !ok {
		return
	}
	slot, hasGap := n.window.LowestUnresolved(highest)
	if !hasGap {
		return
	}
	role := n.window.Slot(slot)
	if role.IsResolved() || role.ProposerActive() {
		return
	}
	role.BeginAccept(n.leaderBallot, Bytes{})
	n.driveAccept(slot, role, metas)
}

var _ GapFiller = (*Node)(nil)

// Propose asks this node to drive value into the next open slot. If this
// node is not currently leader, the value is queued and a new leadership
// attempt is started at once, preparing a fresh slot for every queued
// value. No check is made for an attempt already in flight: each call
// while not leader starts another ballot.
func (n *Node) Propose(value Bytes, metas CommandMetas) {
	if n.isLeader {
		n.proposeAtNextSlot(value, metas)
		return
	}
	n.pendingValues = append(n.pendingValues, value)
	n.ProposeLeadership(metas)
}

func (n *Node) handleProposal(c Proposal, metas CommandMetas) {
	n.Propose(c.Value, metas)
}

func (n *Node) proposeAtNextSlot(value Bytes, metas CommandMetas) {
	slot, role := n.window.NextSlot()
	role.BeginAccept(n.leaderBallot, value)
	n.driveAccept(slot, role, metas)
}

// driveAccept broadcasts phase 2 for slot/role and folds in this node's own
// acceptor vote for its own proposal.
func (n *Node) driveAccept(slot Slot, role *SlotRole, metas CommandMetas) {
	bal := role.ProposerBallot()
	value := role.ProposerValue()
	n.broadcast(Accept{Ballot: bal, Values: []SlotValue{{Slot: slot, Value: value}}}, metas)
	if outcome := role.ReceiveAccept(bal, value); outcome.ok {
		role.ReceiveProposerAccepted(n.config.Self)
		n.checkAcceptQuorum(slot, role, metas)
	}
}

func (n *Node) checkAcceptQuorum(slot Slot, role *SlotRole, metas CommandMetas) {
	if role.AcceptCount() < n.config.QuorumSize {
		return
	}
	bal := role.ProposerBallot()
	value := role.ProposerValue()
	role.Resolve(bal, value)
	role.MarkProposerDone()
	n.persist(slot, role)
	n.broadcast(Resolution{Ballot: bal, Values: []SlotValue{{Slot: slot, Value: value}}}, metas)
}

// ProposeLeadership starts a new ballot and drives phase 1 for every slot
// this node wants to own: slots it already has an active, unresolved
// proposer attempt for, plus one fresh slot per queued value.
func (n *Node) ProposeLeadership(metas CommandMetas) {
	bal := n.nextBallot()
	n.isLeader = false

	targets := n.targetsToPrepare()
	for _, t := range targets {
		n.window.Slot(t.slot).BeginPrepare(bal, t.value)
	}
	n.broadcast(Prepare{Ballot: bal}, metas)
	n.handlePrepare(bal, metas)
}

type proposalTarget struct {
	slot  Slot
	value Bytes
}

func (n *Node) targetsToPrepare() []proposalTarget {
	var targets []proposalTarget
	for s, role := range n.window.slots {
		if !role.IsResolved() && role.ProposerActive() {
			targets = append(targets, proposalTarget{slot: s, value: role.ProposerValue()})
		}
	}
	for _, v := range n.pendingValues {
		s, _ := n.window.NextSlot()
		targets = append(targets, proposalTarget{slot: s, value: v})
	}
	n.pendingValues = nil
	return targets
}

// handlePrepare is the acceptor side of a Prepare, whether it arrived on
// the wire from another node or was issued locally by this node's own
// ProposeLeadership (since every node is also an acceptor for every slot,
// including its own proposals).
func (n *Node) handlePrepare(bal Ballot, metas CommandMetas) {
	type slotOutcome struct {
		slot    Slot
		outcome promiseOutcome
	}
	var results []slotOutcome
	rejected := false
	var maxPreempted Ballot
	for s, role := range n.window.slots {
		if role.IsResolved() {
			continue
		}
		outcome := role.ReceivePrepare(bal)
		results = append(results, slotOutcome{s, outcome})
		if !outcome.ok {
			rejected = true
			if outcome.preempted.Greater(maxPreempted) {
				maxPreempted = outcome.preempted
			}
		}
	}

	if rejected {
		n.observeForeignBallot(maxPreempted)
		n.sendTo(bal.Node, Reject{Node: n.config.Self, Proposed: bal, Preempted: maxPreempted}, metas)
		if bal.Node == n.config.Self {
			n.handleReject(Reject{Node: n.config.Self, Proposed: bal, Preempted: maxPreempted}, metas)
		}
		return
	}

	var accepted []SlotBallotValue
	for _, r := range results {
		if r.outcome.hasValue {
			accepted = append(accepted, SlotBallotValue{Slot: r.slot, Ballot: r.outcome.ballot, Value: r.outcome.value})
		}
	}

	if bal.Node == n.config.Self {
		n.applyPromise(n.config.Self, bal, accepted, metas)
		return
	}
	n.sendTo(bal.Node, Promise{Node: n.config.Self, Ballot: bal, Accepted: accepted}, metas)
}

func (n *Node) handlePromise(c Promise, metas CommandMetas) {
	n.applyPromise(c.Node, c.Ballot, c.Accepted, metas)
}

// applyPromise folds one acceptor's Promise into every slot this node is
// actively preparing under bal: explicit (slot, ballot, value) entries
// where the acceptor had something accepted, and a bare promise for every
// other slot this node is preparing under the same ballot (the acceptor
// had nothing to report there, which still counts as a yes).
func (n *Node) applyPromise(from NodeID, bal Ballot, accepted []SlotBallotValue, metas CommandMetas) {
	mentioned := make(map[Slot]bool, len(accepted))
	for _, a := range accepted {
		mentioned[a.Slot] = true
		role, ok := n.window.Peek(a.Slot)
		if !ok || !n.isPreparingUnder(role, bal) {
			continue
		}
		role.ReceivePromise(from, true, a.Ballot, a.Value)
		n.checkPromiseQuorum(a.Slot, role, metas)
	}
	for s, role := range n.window.slots {
		if mentioned[s] || !n.isPreparingUnder(role, bal) {
			continue
		}
		role.ReceivePromise(from, false, Ballot{}, nil)
		n.checkPromiseQuorum(s, role, metas)
	}
}

func (n *Node) isPreparingUnder(role *SlotRole, bal Ballot) bool {
	return role.ProposerActive() && role.ProposerPhase() == phasePreparing && role.ProposerBallot().Equal(bal)
}

func (n *Node) checkPromiseQuorum(slot Slot, role *SlotRole, metas CommandMetas) {
	if role.PromiseCount() < n.config.QuorumSize {
		return
	}
	if role.ProposerBallot().Equal(n.ballot) {
		n.isLeader = true
		n.leaderBallot = n.ballot
	}
	value := role.ProposerValue()
	role.MarkPhase2(value)
	n.driveAccept(slot, role, metas)
}

func (n *Node) handleReject(c Reject, metas CommandMetas) {
	for _, role := range n.window.slots {
		if role.ProposerActive() && role.ProposerBallot().Equal(c.Proposed) {
			role.ReceiveReject(c.Preempted)
		}
	}
	n.observeForeignBallot(c.Preempted)
	if n.isLeader && n.leaderBallot.Equal(c.Proposed) {
		n.isLeader = false
	}
}

// handleAccept is the acceptor side of phase 2, for an Accept arriving from
// another node's proposer.
func (n *Node) handleAccept(c Accept, metas CommandMetas) {
	var acceptedSlots []Slot
	rejected := false
	var maxPreempted Ballot
	for _, sv := range c.Values {
		role := n.window.Slot(sv.Slot)
		outcome := role.ReceiveAccept(c.Ballot, sv.Value)
		if outcome.ok {
			acceptedSlots = append(acceptedSlots, sv.Slot)
			continue
		}
		rejected = true
		if outcome.preempted.Greater(maxPreempted) {
			maxPreempted = outcome.preempted
		}
	}
	if len(acceptedSlots) > 0 {
		n.sendTo(c.Ballot.Node, Accepted{Node: n.config.Self, Ballot: c.Ballot, Slots: acceptedSlots}, metas)
	}
	if rejected {
		n.observeForeignBallot(maxPreempted)
		n.sendTo(c.Ballot.Node, Reject{Node: n.config.Self, Proposed: c.Ballot, Preempted: maxPreempted}, metas)
	}
}

// handleAccepted is the proposer side of phase 2: another acceptor telling
// us it accepted our ballot for these slots.
func (n *Node) handleAccepted(c Accepted, metas CommandMetas) {
	for _, slot := range c.Slots {
		role, ok := n.window.Peek(slot)
		if !ok || role.IsResolved() {
			continue
		}
		if role.ProposerActive() && role.ProposerPhase() == phaseAccepting && role.ProposerBallot().Equal(c.Ballot) {
			role.ReceiveProposerAccepted(c.Node)
			n.checkAcceptQuorum(slot, role, metas)
		}
	}
}

// handleResolution trusts a Resolution broadcast directly: whoever sent it
// already confirmed quorum, so there's nothing left to verify.
func (n *Node) handleResolution(c Resolution, metas CommandMetas) {
	for _, sv := range c.Values {
		role := n.window.Slot(sv.Slot)
		role.Resolve(c.Ballot, sv.Value)
		n.persist(sv.Slot, role)
	}
}

// handleCatchup answers with every requested slot this node has resolved,
// plus every resolved slot from 0 up to this node's true highest resolved
// slot, rather than subtracting an arbitrary constant from its own
// position.
func (n *Node) handleCatchup(c Catchup, metas CommandMetas) {
	type resolved struct {
		slot   Slot
		ballot Ballot
		value  Bytes
	}
	var found []resolved
	seen := map[Slot]bool{}
	collect := func(slot Slot) {
		if seen[slot] {
			return
		}
		role, ok := n.window.Peek(slot)
		if !ok || !role.IsResolved() {
			return
		}
		value, _ := role.ResolvedValue()
		ballot, _ := role.ResolvedBallot()
		found = append(found, resolved{slot: slot, ballot: ballot, value: value})
		seen[slot] = true
	}
	for _, slot := range c.Slots {
		collect(slot)
	}
	if highest, ok := n.window.HighestResolved(); ok {
		for s := Slot(0); s <= highest; s++ {
			collect(s)
		}
	}
	if len(found) == 0 {
		return
	}
	// Each slot is reported under the ballot it actually resolved under
	// (not this node's current epoch), so group slots sharing a ballot into
	// one Resolution each.
	byBallot := map[Ballot][]SlotValue{}
	var order []Ballot
	for _, r := range found {
		if _, ok := byBallot[r.ballot]; !ok {
			order = append(order, r.ballot)
		}
		byBallot[r.ballot] = append(byBallot[r.ballot], SlotValue{Slot: r.slot, Value: r.value})
	}
	for _, bal := range order {
		n.sendTo(c.Node, Resolution{Ballot: bal, Values: byBallot[bal]}, metas)
	}
}

package paxos

import "time"

// DefaultLeaderTimeout is how long a follower waits without hearing
// anything before it assumes leadership has lapsed and tries to take over.
const DefaultLeaderTimeout = 2 * time.Second

// Timeout tracks how long it has been since the last message of interest,
// and answers two graduated questions: has it been a while (Near, past
// half the timeout) and has it been too long (Lapsed, past the full
// timeout). A Timeout that has never seen a message is always both.
type Timeout struct {
	latestMessage time.Time
	hasLatest     bool
	timeout       time.Duration
}

// NewTimeout returns a Timeout with no message recorded yet, so it reports
// Lapsed and Near immediately.
func NewTimeout(timeout time.Duration) *Timeout {
	return &Timeout{timeout: timeout}
}

// Clear forgets the last message, as if none had ever arrived.
func (t *Timeout) Clear() {
	t.hasLatest = false
}

// Bump records that a message of interest just arrived.
func (t *Timeout) Bump() {
	t.latestMessage = time.Now()
	t.hasLatest = true
}

// Lapsed reports whether the full timeout has elapsed since the last Bump.
func (t *Timeout) Lapsed() bool {
	if !t.hasLatest {
		return true
	}
	return time.Now().After(t.latestMessage.Add(t.timeout))
}

// Near reports whether at least half the timeout has elapsed since the
// last Bump.
func (t *Timeout) Near() bool {
	if !t.hasLatest {
		return true
	}
	return time.Now().After(t.latestMessage.Add(t.timeout / 2))
}

// fastForward is test-only: it backdates the last message by d (plus a
// hair more, so boundary comparisons land unambiguously past it) without
// needing the test to actually sleep.
func (t *Timeout) fastForward(d time.Duration) {
	if !t.hasLatest {
		t.Bump()
	}
	t.latestMessage = t.latestMessage.Add(-(d + time.Nanosecond))
}

// Liveness wraps a Replica with leader-election timing: it bumps a timer on
// every inbound command (except the ones that carry no evidence of a live
// leader), and on each Tick either nudges the inner replica to retransmit
// (if this node is leader and the timer is getting close) or tries to take
// over leadership (if this node is a follower and the timer has fully
// lapsed).
//
// Grounded directly on the original's Timeout/Liveness pair: bump on every
// Receive except Proposal and Catchup, tick_leader checks Near, tick_follower
// checks Lapsed and then clears the timer after proposing leadership.
type Liveness struct {
	inner   Replica
	timeout *Timeout
}

// NewLiveness wraps inner with a leader-election timer of the given
// duration.
func NewLiveness(inner Replica, timeout time.Duration) *Liveness {
	return &Liveness{inner: inner, timeout: NewTimeout(timeout)}
}

var _ Replica = (*Liveness)(nil)

// Receive bumps the liveness timer for anything except a Proposal (a
// client asking for work, not evidence the leader is alive) or a Catchup
// (typically sent by a node that is itself behind), then forwards to inner.
func (l *Liveness) Receive(command Command, metas CommandMetas) {
	switch command.(type) {
	case Proposal, Catchup:
	default:
		l.timeout.Bump()
	}
	l.inner.Receive(command, metas)
}

// Tick checks the liveness timer. A leader first gets a chance to unblock
// any gap below its highest resolved slot (if inner implements GapFiller),
// then ticks inner to retransmit once it's within half the timeout of going
// quiet; a follower proposes leadership once the full timeout has elapsed,
// then clears the timer so it doesn't immediately retrigger while the
// election is in flight.
func (l *Liveness) Tick(metas CommandMetas) {
	if l.inner.IsLeader() {
		if g, ok := l.inner.(GapFiller); ok {
			g.FillGap(metas)
		}
		if l.timeout.Near() {
			l.inner.Tick(metas)
		}
		return
	}
	if l.timeout.Lapsed() {
		l.inner.ProposeLeadership(metas)
		l.timeout.Clear()
	}
}

func (l *Liveness) ProposeLeadership(metas CommandMetas) { l.inner.ProposeLeadership(metas) }
func (l *Liveness) IsLeader() bool                       { return l.inner.IsLeader() }
func (l *Liveness) Decisions() *DecisionSet              { return l.inner.Decisions() }

// Propose forwards to inner if it (or whatever it wraps) implements
// Proposer.
func (l *Liveness) Propose(value Bytes, metas CommandMetas) {
	if p, ok := l.inner.(Proposer); ok {
		p.Propose(value, metas)
	}
}

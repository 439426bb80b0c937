package paxos

import (
	"testing"
	"time"
)

// fakeReplica is a minimal Replica recording what it was asked to do, used
// to test Liveness in isolation from the real dispatch logic.
type fakeReplica struct {
	commands           []Command
	ticked             int
	leader             bool
	proposedLeadership bool
	decisions          *DecisionSet
}

func newFakeReplica() *fakeReplica {
	return &fakeReplica{decisions: NewDecisionWindow().Decisions()}
}

func (f *fakeReplica) Receive(c Command, _ CommandMetas)     { f.commands = append(f.commands, c) }
func (f *fakeReplica) Tick(_ CommandMetas)                   { f.ticked++ }
func (f *fakeReplica) ProposeLeadership(_ CommandMetas)       { f.proposedLeadership = true }
func (f *fakeReplica) IsLeader() bool                         { return f.leader }
func (f *fakeReplica) Decisions() *DecisionSet                { return f.decisions }

const testTimeout = 2 * time.Second

func TestProposeDoesNotBumpTimeout(t *testing.T) {
	inner := newFakeReplica()
	l := NewLiveness(inner, testTimeout)

	l.Receive(Proposal{Value: Bytes("x")}, nil)
	l.Receive(Catchup{Node: 1, Slots: []Slot{1}}, nil)

	if !l.timeout.Lapsed() {
		t.Fatal("Proposal/Catchup should not count as liveness evidence")
	}
}

func TestCommandsBumpTimeout(t *testing.T) {
	bumping := []Command{
		Prepare{Ballot: Ballot{Round: 1, Node: 1}},
		Promise{Node: 1, Ballot: Ballot{Round: 1, Node: 1}},
		Reject{Node: 1, Proposed: Ballot{Round: 1, Node: 1}, Preempted: Ballot{Round: 1, Node: 1}},
		Accept{Ballot: Ballot{Round: 1, Node: 1}},
		Accepted{Node: 1, Ballot: Ballot{Round: 1, Node: 1}},
		Resolution{Ballot: Ballot{Round: 1, Node: 1}},
	}
	for _, cmd := range bumping {
		inner := newFakeReplica()
		l := NewLiveness(inner, testTimeout)
		l.Receive(cmd, nil)
		if l.timeout.Lapsed() {
			t.Fatalf("%T should bump the liveness timer", cmd)
		}
	}
}

func TestTickLeader(t *testing.T) {
	inner := newFakeReplica()
	inner.leader = true
	l := NewLiveness(inner, testTimeout)
	l.timeout.Bump()

	l.Tick(nil)
	if inner.ticked != 0 {
		t.Fatal("a leader well within its timeout should not retransmit yet")
	}

	l.timeout.fastForward(testTimeout / 2)
	l.Tick(nil)
	if inner.ticked != 1 {
		t.Fatal("a leader near its timeout should retransmit")
	}
}

func TestTickFollower(t *testing.T) {
	inner := newFakeReplica()
	l := NewLiveness(inner, testTimeout)
	l.timeout.Bump()

	l.Tick(nil)
	if inner.proposedLeadership {
		t.Fatal("a follower within its timeout should not try to take over")
	}

	l.timeout.fastForward(testTimeout)
	l.Tick(nil)
	if !inner.proposedLeadership {
		t.Fatal("a follower whose timeout has fully lapsed should propose leadership")
	}
}

package paxos

import (
	"reflect"
	"testing"
)

// fakeWindowReplica is a Replica whose Decisions() is backed by a real
// DecisionWindow the test can resolve slots in directly, with everything
// else a no-op. Used to drive StateMachineReplica in isolation.
type fakeWindowReplica struct {
	window *DecisionWindow
}

func newFakeWindowReplica() *fakeWindowReplica {
	return &fakeWindowReplica{window: NewDecisionWindow()}
}

func (f *fakeWindowReplica) Receive(Command, CommandMetas)  {}
func (f *fakeWindowReplica) Tick(CommandMetas)               {}
func (f *fakeWindowReplica) ProposeLeadership(CommandMetas)  {}
func (f *fakeWindowReplica) IsLeader() bool                  { return false }
func (f *fakeWindowReplica) Decisions() *DecisionSet         { return f.window.Decisions() }

// recordingStateMachine remembers the order and content of every Execute
// call.
type recordingStateMachine struct {
	executed []SlotValue
}

func (r *recordingStateMachine) Execute(slot Slot, command Bytes) {
	r.executed = append(r.executed, SlotValue{Slot: slot, Value: command})
}

func TestResolveExecutesDecisions(t *testing.T) {
	inner := newFakeWindowReplica()
	sm := &recordingStateMachine{}
	s := NewStateMachineReplica(inner, sm)

	resolveSlot(inner.window, 0, Ballot{Round: 1, Node: 1}, "0")
	s.Receive(Prepare{Ballot: Ballot{Round: 1, Node: 1}}, nil)

	want := []SlotValue{{Slot: 0, Value: Bytes("0")}}
	if !reflect.DeepEqual(sm.executed, want) {
		t.Fatalf("got %+v, want %+v", sm.executed, want)
	}

	// A hole at slot 1 must block slot 2 even though slot 2 already has a
	// resolved value.
	resolveSlot(inner.window, 2, Ballot{Round: 2, Node: 2}, "2")
	s.Receive(Prepare{Ballot: Ballot{Round: 1, Node: 1}}, nil)
	if len(sm.executed) != 1 {
		t.Fatalf("slot 2 should stay blocked behind the hole at slot 1, executed=%+v", sm.executed)
	}

	// Filling the hole unblocks both 1 and 2 in the same pass.
	resolveSlot(inner.window, 1, Ballot{Round: 2, Node: 2}, "1")
	s.Receive(Prepare{Ballot: Ballot{Round: 1, Node: 1}}, nil)

	want = []SlotValue{
		{Slot: 0, Value: Bytes("0")},
		{Slot: 1, Value: Bytes("1")},
		{Slot: 2, Value: Bytes("2")},
	}
	if !reflect.DeepEqual(sm.executed, want) {
		t.Fatalf("got %+v, want %+v", sm.executed, want)
	}
}

func TestAcceptedExecutesDecisions(t *testing.T) {
	inner := newFakeWindowReplica()
	sm := &recordingStateMachine{}
	s := NewStateMachineReplica(inner, sm)

	resolveSlot(inner.window, 0, Ballot{Round: 1, Node: 1}, "zero")
	resolveSlot(inner.window, 1, Ballot{Round: 1, Node: 1}, "one")
	s.Receive(Accepted{Node: 2, Ballot: Ballot{Round: 1, Node: 1}, Slots: []Slot{0, 1}}, nil)

	want := []SlotValue{
		{Slot: 0, Value: Bytes("zero")},
		{Slot: 1, Value: Bytes("one")},
	}
	if !reflect.DeepEqual(sm.executed, want) {
		t.Fatalf("got %+v, want %+v", sm.executed, want)
	}
}

func TestEmptyResolvedValueIsSkippedButAdvancesCursor(t *testing.T) {
	inner := newFakeWindowReplica()
	sm := &recordingStateMachine{}
	s := NewStateMachineReplica(inner, sm)

	role := inner.window.Slot(0)
	role.FillOpen()
	role.Resolve(Ballot{Round: 1, Node: 1}, Bytes{})
	resolveSlot(inner.window, 1, Ballot{Round: 1, Node: 1}, "one")

	s.Tick(nil)

	want := []SlotValue{{Slot: 1, Value: Bytes("one")}}
	if !reflect.DeepEqual(sm.executed, want) {
		t.Fatalf("got %+v, want %+v (slot 0 is a gap-filling no-op, not an executed command)", sm.executed, want)
	}
}

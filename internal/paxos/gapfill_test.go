package paxos

import "testing"

// recordingTransport records every broadcast Accept FillGap issues, without
// needing a real multi-node cluster.
type recordingTransport struct {
	sent []Command
}

func (t *recordingTransport) Send(node NodeID, _ NodeMetadata, command Command, _ CommandMetas) {
	t.sent = append(t.sent, command)
}

func TestFillGapDrivesEmptyValueIntoHoleBelowHighestResolved(t *testing.T) {
	transport := &recordingTransport{}
	config := NewConfiguration(1, []NodeID{2, 3})
	n := NewNode(config, transport, nil, nil)

	n.isLeader = true
	n.leaderBallot = Ballot{Round: 1, Node: 1}

	// Slot 0 is resolved; slot 1 is a hole; slot 2 is resolved out of band
	// (as if learned from a Resolution broadcast this node otherwise missed
	// the Accept for).
	n.window.Slot(0).Resolve(n.leaderBallot, Bytes("a"))
	n.window.Slot(2).Resolve(n.leaderBallot, Bytes("c"))

	n.FillGap(nil)

	role, ok := n.window.Peek(1)
	if !ok || !role.ProposerActive() || role.ProposerPhase() != phaseAccepting {
		t.Fatalf("slot 1: got role=%+v ok=%v, want an active phase-2 proposer attempt", role, ok)
	}
	if string(role.ProposerValue()) != "" {
		t.Fatalf("got value %q, want an empty filler value", role.ProposerValue())
	}

	found := false
	for _, cmd := range transport.sent {
		if accept, ok := cmd.(Accept); ok {
			for _, v := range accept.Values {
				if v.Slot == 1 {
					found = true
				}
			}
		}
	}
	if !found {
		t.Fatal("FillGap never broadcast an Accept for the gap slot")
	}
}

func TestFillGapNoopsWithoutLeadership(t *testing.T) {
	transport := &recordingTransport{}
	config := NewConfiguration(1, []NodeID{2, 3})
	n := NewNode(config, transport, nil, nil)

	n.window.Slot(0).Resolve(Ballot{Round: 1, Node: 2}, Bytes("a"))
	n.window.Slot(2).Resolve(Ballot{Round: 1, Node: 2}, Bytes("c"))

	n.FillGap(nil)

	if _, ok := n.window.Peek(1); ok {
		if n.window.slots[1].ProposerActive() {
			t.Fatal("FillGap acted without leadership")
		}
	}
	if len(transport.sent) != 0 {
		t.Fatalf("got %d sends, want 0 (not leader)", len(transport.sent))
	}
}

func TestFillGapNoopsWhenNoResolvedSlotsYet(t *testing.T) {
	transport := &recordingTransport{}
	config := NewConfiguration(1, []NodeID{2, 3})
	n := NewNode(config, transport, nil, nil)
	n.isLeader = true

	n.FillGap(nil)

	if len(transport.sent) != 0 {
		t.Fatalf("got %d sends, want 0 (nothing resolved yet)", len(transport.sent))
	}
}

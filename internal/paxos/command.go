package paxos

import (
	"encoding/json"
	"fmt"
)

// CommandMetas is an opaque correlation token. The core never looks inside
// it; it is threaded unchanged from the call that produced a Command through
// to whatever eventually observes its effect (a Send, a Tick, an execution).
type CommandMetas []byte

// Command is any of the wire messages exchanged between replicas. Each
// concrete type below implements MessageName and json.Marshaler so that
// encoding a Command always produces the tagged envelope
// {"messageName": ..., "payload": [...]}.
type Command interface {
	MessageName() string
}

// SlotBallotValue is the (slot, ballot, value) triple an acceptor reports for
// each slot it has previously accepted a value for, inside a Promise.
type SlotBallotValue struct {
	Slot   Slot
	Ballot Ballot
	Value  Bytes
}

func (s SlotBallotValue) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{s.Slot, s.Ballot, s.Value})
}

func (s *SlotBallotValue) UnmarshalJSON(data []byte) error {
	return decodeTuple(data, &s.Slot, &s.Ballot, &s.Value)
}

// SlotValue is a (slot, value) pair, used by Accept and Resolution to carry
// one or more slot assignments in a single message.
type SlotValue struct {
	Slot  Slot
	Value Bytes
}

func (s SlotValue) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{s.Slot, s.Value})
}

func (s *SlotValue) UnmarshalJSON(data []byte) error {
	return decodeTuple(data, &s.Slot, &s.Value)
}

// Proposal asks the receiving replica's leader to drive a new value into the
// next open slot. payload: bytes.
type Proposal struct {
	Value Bytes
}

func (Proposal) MessageName() string { return "Proposal" }

func (c Proposal) MarshalJSON() ([]byte, error) {
	return marshalEnvelope(c.MessageName(), c.Value)
}

// Prepare opens phase 1 for a ballot. It carries no slot: it applies to
// every open slot the receiving acceptor currently knows about. payload:
// ballot.
type Prepare struct {
	Ballot Ballot
}

func (Prepare) MessageName() string { return "Prepare" }

func (c Prepare) MarshalJSON() ([]byte, error) {
	return marshalEnvelope(c.MessageName(), c.Ballot)
}

// Promise is an acceptor's phase-1 reply: it promises not to accept any
// ballot lower than Ballot, and reports any values it had already accepted
// for slots in its window. payload: (node, ballot, [(slot, ballot, value)]).
type Promise struct {
	Node     NodeID
	Ballot   Ballot
	Accepted []SlotBallotValue
}

func (Promise) MessageName() string { return "Promise" }

func (c Promise) MarshalJSON() ([]byte, error) {
	accepted := c.Accepted
	if accepted == nil {
		accepted = []SlotBallotValue{}
	}
	return marshalEnvelope(c.MessageName(), []interface{}{c.Node, c.Ballot, accepted})
}

// Accept opens phase 2 for a ballot across one or more slots. payload:
// (ballot, [(slot, value)]).
type Accept struct {
	Ballot Ballot
	Values []SlotValue
}

func (Accept) MessageName() string { return "Accept" }

func (c Accept) MarshalJSON() ([]byte, error) {
	values := c.Values
	if values == nil {
		values = []SlotValue{}
	}
	return marshalEnvelope(c.MessageName(), []interface{}{c.Ballot, values})
}

// Reject is an acceptor's refusal of a ballot it has already promised past.
// Preempted is the acceptor's current promise, so the rejected proposer
// knows exactly how high to bump. payload: (node, proposed, preempted).
type Reject struct {
	Node      NodeID
	Proposed  Ballot
	Preempted Ballot
}

func (Reject) MessageName() string { return "Reject" }

func (c Reject) MarshalJSON() ([]byte, error) {
	return marshalEnvelope(c.MessageName(), []interface{}{c.Node, c.Proposed, c.Preempted})
}

// Accepted is an acceptor's phase-2 reply, naming the slots it accepted the
// given ballot's value for. payload: (node, ballot, [slot]).
type Accepted struct {
	Node   NodeID
	Ballot Ballot
	Slots  []Slot
}

func (Accepted) MessageName() string { return "Accepted" }

func (c Accepted) MarshalJSON() ([]byte, error) {
	slots := c.Slots
	if slots == nil {
		slots = []Slot{}
	}
	return marshalEnvelope(c.MessageName(), []interface{}{c.Node, c.Ballot, slots})
}

// Resolution announces slots that have reached quorum, for learners and
// catchup replies. payload: (ballot, [(slot, value)]).
type Resolution struct {
	Ballot Ballot
	Values []SlotValue
}

func (Resolution) MessageName() string { return "Resolution" }

func (c Resolution) MarshalJSON() ([]byte, error) {
	values := c.Values
	if values == nil {
		values = []SlotValue{}
	}
	return marshalEnvelope(c.MessageName(), []interface{}{c.Ballot, values})
}

// Catchup asks the receiver to resend resolutions for the named slots.
// payload: (node, [slot]).
type Catchup struct {
	Node  NodeID
	Slots []Slot
}

func (Catchup) MessageName() string { return "Catchup" }

func (c Catchup) MarshalJSON() ([]byte, error) {
	slots := c.Slots
	if slots == nil {
		slots = []Slot{}
	}
	return marshalEnvelope(c.MessageName(), []interface{}{c.Node, slots})
}

type envelope struct {
	MessageName string          `json:"messageName"`
	Payload     json.RawMessage `json:"payload"`
}

func marshalEnvelope(name string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{MessageName: name, Payload: raw})
}

// decodeTuple unmarshals a JSON array into dests positionally. It is the
// mirror image of the []interface{} tuples marshalEnvelope's callers build.
func decodeTuple(data []byte, dests ...interface{}) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("paxos: decoding tuple: %w", err)
	}
	if len(raw) != len(dests) {
		return fmt.Errorf("paxos: expected %d-element tuple, got %d", len(dests), len(raw))
	}
	for i, d := range dests {
		if err := json.Unmarshal(raw[i], d); err != nil {
			return fmt.Errorf("paxos: decoding tuple element %d: %w", i, err)
		}
	}
	return nil
}

// DecodeCommand parses a tagged wire envelope into its concrete Command.
func DecodeCommand(data []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("paxos: decoding envelope: %w", err)
	}
	switch env.MessageName {
	case "Proposal":
		var v Bytes
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		return Proposal{Value: v}, nil
	case "Prepare":
		var bal Ballot
		if err := json.Unmarshal(env.Payload, &bal); err != nil {
			return nil, err
		}
		return Prepare{Ballot: bal}, nil
	case "Promise":
		var node NodeID
		var bal Ballot
		var accepted []SlotBallotValue
		if err := decodeTuple(env.Payload, &node, &bal, &accepted); err != nil {
			return nil, err
		}
		return Promise{Node: node, Ballot: bal, Accepted: accepted}, nil
	case "Accept":
		var bal Ballot
		var values []SlotValue
		if err := decodeTuple(env.Payload, &bal, &values); err != nil {
			return nil, err
		}
		return Accept{Ballot: bal, Values: values}, nil
	case "Reject":
		var node NodeID
		var proposed, preempted Ballot
		if err := decodeTuple(env.Payload, &node, &proposed, &preempted); err != nil {
			return nil, err
		}
		return Reject{Node: node, Proposed: proposed, Preempted: preempted}, nil
	case "Accepted":
		var node NodeID
		var bal Ballot
		var slots []Slot
		if err := decodeTuple(env.Payload, &node, &bal, &slots); err != nil {
			return nil, err
		}
		return Accepted{Node: node, Ballot: bal, Slots: slots}, nil
	case "Resolution":
		var bal Ballot
		var values []SlotValue
		if err := decodeTuple(env.Payload, &bal, &values); err != nil {
			return nil, err
		}
		return Resolution{Ballot: bal, Values: values}, nil
	case "Catchup":
		var node NodeID
		var slots []Slot
		if err := decodeTuple(env.Payload, &node, &slots); err != nil {
			return nil, err
		}
		return Catchup{Node: node, Slots: slots}, nil
	default:
		return nil, fmt.Errorf("paxos: unknown messageName %q", env.MessageName)
	}
}

// EncodeCommand produces the tagged wire envelope for any Command.
func EncodeCommand(c Command) ([]byte, error) {
	return json.Marshal(c)
}

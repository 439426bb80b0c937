package paxos

import (
	"encoding/json"
	"testing"
)

func mustEncode(t *testing.T, c Command) string {
	t.Helper()
	data, err := EncodeCommand(c)
	if err != nil {
		t.Fatalf("EncodeCommand: %v", err)
	}
	return string(data)
}

func TestCommandWireShapes(t *testing.T) {
	cases := []struct {
		name string
		cmd  Command
		want string
	}{
		{
			"proposal",
			Proposal{Value: Bytes{}},
			`{"messageName":"Proposal","payload":[]}`,
		},
		{
			"prepare",
			Prepare{Ballot: Ballot{Round: 123, Node: 345}},
			`{"messageName":"Prepare","payload":[123,345]}`,
		},
		{
			"promise",
			Promise{
				Node:   42,
				Ballot: Ballot{Round: 123, Node: 345},
				Accepted: []SlotBallotValue{
					{Slot: 0, Ballot: Ballot{Round: 123, Node: 345}, Value: Bytes("hello")},
				},
			},
			`{"messageName":"Promise","payload":[42,[123,345],[[0,[123,345],[104,101,108,108,111]]]]}`,
		},
		{
			"accept",
			Accept{
				Ballot: Ballot{Round: 123, Node: 345},
				Values: []SlotValue{{Slot: 0, Value: Bytes("hello")}},
			},
			`{"messageName":"Accept","payload":[[123,345],[[0,[104,101,108,108,111]]]]}`,
		},
		{
			"reject",
			Reject{
				Node:      13,
				Proposed:  Ballot{Round: 123, Node: 345},
				Preempted: Ballot{Round: 123, Node: 345},
			},
			`{"messageName":"Reject","payload":[13,[123,345],[123,345]]}`,
		},
		{
			"accepted",
			Accepted{
				Node:   13,
				Ballot: Ballot{Round: 123, Node: 345},
				Slots:  []Slot{15},
			},
			`{"messageName":"Accepted","payload":[13,[123,345],[15]]}`,
		},
		{
			"resolution",
			Resolution{
				Ballot: Ballot{Round: 123, Node: 345},
				Values: []SlotValue{{Slot: 15, Value: Bytes{}}},
			},
			`{"messageName":"Resolution","payload":[[123,345],[[15,[]]]]}`,
		},
		{
			"catchup",
			Catchup{Node: 16, Slots: []Slot{444}},
			`{"messageName":"Catchup","payload":[16,[444]]}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mustEncode(t, tc.cmd)
			if got != tc.want {
				t.Fatalf("encode mismatch:\n got:  %s\n want: %s", got, tc.want)
			}

			decoded, err := DecodeCommand([]byte(got))
			if err != nil {
				t.Fatalf("DecodeCommand: %v", err)
			}
			roundTripped, err := EncodeCommand(decoded)
			if err != nil {
				t.Fatalf("EncodeCommand(roundtrip): %v", err)
			}
			if string(roundTripped) != tc.want {
				t.Fatalf("round trip mismatch:\n got:  %s\n want: %s", roundTripped, tc.want)
			}
		})
	}
}

func TestDecodeCommandUnknownMessageName(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"messageName":"Bogus","payload":[]}`))
	if err == nil {
		t.Fatal("expected an error for an unknown messageName")
	}
}

func TestBytesJSONRoundTrip(t *testing.T) {
	in := Bytes("hello")
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != "[104,101,108,108,111]" {
		t.Fatalf("got %s, want array of byte values", data)
	}
	var out Bytes
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if string(out) != "hello" {
		t.Fatalf("got %q, want %q", out, "hello")
	}
}

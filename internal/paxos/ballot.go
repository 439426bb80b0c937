package paxos

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// NodeID identifies a peer in the cluster. Stable for the lifetime of a
// Configuration.
type NodeID uint32

// Slot names a position in the replicated log.
type Slot uint64

// Bytes is an opaque command payload. Core Paxos machinery never inspects
// its contents; it only copies, compares, and forwards it.
//
// On the wire it is an array of unsigned bytes ("hello" -> [104,101,108,108,
// 111]), not Go's default base64 string, to match the payload shape the rest
// of the cluster (and any non-Go peer) expects.
type Bytes []byte

func (b Bytes) MarshalJSON() ([]byte, error) {
	if len(b) == 0 {
		return []byte("[]"), nil
	}
	buf := make([]byte, 0, 2+4*len(b))
	buf = append(buf, '[')
	for i, v := range b {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendUint(buf, uint64(v), 10)
	}
	buf = append(buf, ']')
	return buf, nil
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	// []byte/[]uint8 would make encoding/json expect a base64 string; decode
	// through []uint16 instead so each element is treated as a plain number.
	var nums []uint16
	if err := json.Unmarshal(data, &nums); err != nil {
		return err
	}
	out := make([]byte, len(nums))
	for i, n := range nums {
		out[i] = byte(n)
	}
	*b = Bytes(out)
	return nil
}

// Ballot totally orders leadership epochs across the cluster: (round, node).
// Round is bumped by a proposer whenever it needs a new epoch; Node breaks
// ties between proposers that bump to the same round concurrently.
type Ballot struct {
	Round uint32
	Node  NodeID
}

// Less reports whether b sorts strictly before other: first by round, then
// by node.
func (b Ballot) Less(other Ballot) bool {
	if b.Round != other.Round {
		return b.Round < other.Round
	}
	return b.Node < other.Node
}

// Greater reports whether b sorts strictly after other.
func (b Ballot) Greater(other Ballot) bool {
	return other.Less(b)
}

// Equal reports whether b and other name the same epoch.
func (b Ballot) Equal(other Ballot) bool {
	return b.Round == other.Round && b.Node == other.Node
}

// IsZero reports whether b is the zero ballot. Rounds are 1-based, so the
// zero ballot is always less than any ballot a proposer actually issues,
// regardless of which node owns it. Acceptors use this as their "never
// promised" sentinel.
func (b Ballot) IsZero() bool {
	return b.Round == 0
}

func (b Ballot) String() string {
	return fmt.Sprintf("(round=%d, node=%d)", b.Round, b.Node)
}

// MarshalJSON renders a Ballot as the 2-element [round, node] array every
// wire command embeds it as.
func (b Ballot) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]uint32{b.Round, uint32(b.Node)})
}

func (b *Ballot) UnmarshalJSON(data []byte) error {
	var arr [2]uint32
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	b.Round = arr[0]
	b.Node = NodeID(arr[1])
	return nil
}

// maxBallot returns whichever ballot sorts later.
func maxBallot(a, b Ballot) Ballot {
	if b.Greater(a) {
		return b
	}
	return a
}

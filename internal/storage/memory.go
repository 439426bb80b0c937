// Package storage provides implementations of paxos.Snapshotter, the
// pluggable persistence hook a Node uses to recover resolved slots across a
// restart without replaying them from peers.
//
// Adapted from the teacher's internal/storage/{storage,memory}.go doc-only
// stubs (a Storage interface with defensive byte-slice copying) and
// repurposed from per-acceptor single-value storage into a DecisionWindow-
// level record of every resolved slot.
package storage

import (
	"sync"

	"github.com/sibelianthe/paxos/internal/paxos"
)

// Memory is an in-process Snapshotter: resolved slots live only as long as
// the process does. Useful for tests and the demo; a real deployment would
// back SaveResolved/LoadResolved with a file or database instead.
type Memory struct {
	mu       sync.Mutex
	resolved map[paxos.Slot]paxos.ResolvedEntry
}

// NewMemory returns an empty Snapshotter.
func NewMemory() *Memory {
	return &Memory{resolved: map[paxos.Slot]paxos.ResolvedEntry{}}
}

var _ paxos.Snapshotter = (*Memory)(nil)

// SaveResolved records slot's outcome, copying the value defensively so a
// caller reusing its buffer can't corrupt what was persisted.
func (m *Memory) SaveResolved(slot paxos.Slot, entry paxos.ResolvedEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolved[slot] = paxos.ResolvedEntry{
		Ballot: entry.Ballot,
		Value:  append(paxos.Bytes(nil), entry.Value...),
	}
	return nil
}

// LoadResolved returns every slot saved so far, each value copied so the
// caller can't mutate internal state through the returned map.
func (m *Memory) LoadResolved() (map[paxos.Slot]paxos.ResolvedEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[paxos.Slot]paxos.ResolvedEntry, len(m.resolved))
	for slot, entry := range m.resolved {
		out[slot] = paxos.ResolvedEntry{
			Ballot: entry.Ballot,
			Value:  append(paxos.Bytes(nil), entry.Value...),
		}
	}
	return out, nil
}

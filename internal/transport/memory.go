// Package transport provides in-process implementations of paxos.Transport
// for tests and the bundled demo: every node lives in the same Go process
// and exchanges commands over buffered channels instead of a socket.
//
// Adapted from the teacher's internal/transport/{transport,memory}.go
// doc-only stubs (shared Network registry, one buffered inbox channel per
// node, non-blocking Send that drops on a full inbox) to the paxos
// package's Send(node, metadata, command, metas) contract.
package transport

import (
	"sync"

	"github.com/sibelianthe/paxos/internal/paxos"
)

const defaultInboxSize = 256

// Network is the shared registry every Memory transport in a cluster joins.
// It exists purely so Send can find a destination's inbox; it carries no
// protocol logic of its own.
type Network struct {
	mu    sync.Mutex
	nodes map[paxos.NodeID]*Memory
}

// NewNetwork returns an empty registry.
func NewNetwork() *Network {
	return &Network{nodes: map[paxos.NodeID]*Memory{}}
}

// Join registers self on the network and returns its transport handle.
func (n *Network) Join(self paxos.NodeID) *Memory {
	n.mu.Lock()
	defer n.mu.Unlock()
	m := &Memory{
		network: n,
		self:    self,
		inbox:   make(chan inboundCommand, defaultInboxSize),
	}
	n.nodes[self] = m
	return m
}

// Partition removes node from the registry so sends to it are silently
// dropped, simulating a network split. Rejoin re-adds it.
func (n *Network) Partition(node paxos.NodeID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.nodes, node)
}

// Rejoin restores a partitioned node's transport to the registry.
func (n *Network) Rejoin(m *Memory) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nodes[m.self] = m
}

type inboundCommand struct {
	command paxos.Command
	metas   paxos.CommandMetas
}

// Memory is one node's handle onto a Network. It implements paxos.Transport
// for outbound sends; inbound commands queue in a buffered channel for the
// node's own event loop to Drain.
type Memory struct {
	network *Network
	self    paxos.NodeID
	inbox   chan inboundCommand
}

var _ paxos.Transport = (*Memory)(nil)

// Send queues command for node's inbox. It never blocks: if the
// destination is unknown (partitioned, or never joined) or its inbox is
// full, the command is dropped, matching the best-effort delivery contract
// every layer above Transport is built to tolerate.
func (m *Memory) Send(node paxos.NodeID, _ paxos.NodeMetadata, command paxos.Command, metas paxos.CommandMetas) {
	m.network.mu.Lock()
	dest, ok := m.network.nodes[node]
	m.network.mu.Unlock()
	if !ok {
		return
	}
	select {
	case dest.inbox <- inboundCommand{command: command, metas: metas}:
	default:
	}
}

// Drain hands every currently queued command to receiver, in arrival
// order, without blocking once the inbox runs empty. A Node's event loop
// calls this once per tick.
func (m *Memory) Drain(receiver paxos.Receiver) {
	for {
		select {
		case msg := <-m.inbox:
			receiver.Receive(msg.command, msg.metas)
		default:
			return
		}
	}
}

// Pending reports how many commands are currently queued, for tests that
// want to assert delivery (or the lack of it) without racing Drain.
func (m *Memory) Pending() int {
	return len(m.inbox)
}

// Package transport's wire contract is paxos.Transport itself: the core
// owns that interface (see internal/paxos/transport.go) so every layer that
// drives a replica — Liveness, StateMachineReplica, a Node's own retransmit
// logic — can depend on it without importing an implementation. This file
// only has doc comments because there is nothing left for it to declare;
// the implementations live alongside it in memory.go.
package transport

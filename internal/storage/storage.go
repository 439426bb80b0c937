// The Storage contract itself is paxos.Snapshotter (see
// internal/paxos/snapshot.go): the core owns it so a Node can depend on
// durability without importing a particular backend. This file only
// carries doc comments; Memory, the implementation, lives in memory.go.
package storage

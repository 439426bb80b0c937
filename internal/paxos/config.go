package paxos

import "fmt"

// Configuration is the static cluster roster a replica is constructed with:
// its own id, its peers' ids, and the quorum size derived from them.
type Configuration struct {
	Self  NodeID
	Peers []NodeID

	// QuorumSize is floor(N/2)+1 over the full cluster (self plus peers). It
	// is computed once at construction rather than recomputed on every
	// message, since membership here is static.
	QuorumSize int
}

// NewConfiguration builds a Configuration for self among peers, deriving
// the quorum size from the total cluster size (peers plus self).
func NewConfiguration(self NodeID, peers []NodeID) Configuration {
	n := len(peers) + 1
	return Configuration{
		Self:       self,
		Peers:      append([]NodeID(nil), peers...),
		QuorumSize: n/2 + 1,
	}
}

// ClusterSize returns the total number of nodes, including self.
func (c Configuration) ClusterSize() int {
	return len(c.Peers) + 1
}

// HasQuorum reports whether count distinct votes meet this configuration's
// quorum requirement.
func (c Configuration) HasQuorum(count int) bool {
	return count >= c.QuorumSize
}

func (c Configuration) String() string {
	return fmt.Sprintf("Configuration{self=%d, peers=%v, quorum=%d}", c.Self, c.Peers, c.QuorumSize)
}

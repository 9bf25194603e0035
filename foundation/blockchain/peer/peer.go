// Package peer maintains the peer related information such as the set
// of known peers, their status and the messages exchanged with them.
package peer

import (
	"slices"
	"strings"
	"sync"
)

// Peer is a node in the network, identified by the host its private api
// listens on.
type Peer struct {
	Host string `json:"host"`
}

// New constructs a peer for the host.
func New(host string) Peer {
	return Peer{
		Host: strings.TrimSpace(host),
	}
}

// Match reports whether the peer is the node at the host.
func (p Peer) Match(host string) bool {
	return p.Host == strings.TrimSpace(host)
}

// =============================================================================

// PeerStatus is what a node reports about itself.
type PeerStatus struct {
	LatestBlockHash string `json:"latest_block_hash"`
	ChainLength     int    `json:"chain_length"`
	Mining          bool   `json:"mining"`
	KnownPeers      []Peer `json:"known_peers"`
}

// =============================================================================

// PeerSet is the set of peers a node was configured to dial.
type PeerSet struct {
	mu  sync.RWMutex
	set map[Peer]struct{}
}

// NewPeerSet constructs a set holding the hosts. Empty hosts are skipped.
func NewPeerSet(hosts ...string) *PeerSet {
	ps := PeerSet{
		set: make(map[Peer]struct{}),
	}

	for _, host := range hosts {
		ps.Add(New(host))
	}

	return &ps
}

// Add adds the peer and reports whether it was new.
func (ps *PeerSet) Add(peer Peer) bool {
	if peer.Host == "" {
		return false
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, exists := ps.set[peer]; exists {
		return false
	}
	ps.set[peer] = struct{}{}

	return true
}

// Remove removes the peer from the set.
func (ps *PeerSet) Remove(peer Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, peer)
}

// Copy returns the peers other than the node at the host, sorted by host.
func (ps *PeerSet) Copy(host string) []Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	peers := make([]Peer, 0, len(ps.set))
	for peer := range ps.set {
		if !peer.Match(host) {
			peers = append(peers, peer)
		}
	}

	slices.SortFunc(peers, func(a, b Peer) int {
		return strings.Compare(a.Host, b.Host)
	})

	return peers
}

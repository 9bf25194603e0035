package state

import (
	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
)

// Host returns the host this node is reachable on.
func (s *State) Host() string {
	return s.host
}

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// IsMining reports whether a mining operation is in flight.
func (s *State) IsMining() bool {
	if s.Worker == nil {
		return false
	}

	return s.Worker.IsMining()
}

// StopMining cancels the mining operation in flight, if any, and holds
// mining until the next transaction is admitted.
func (s *State) StopMining() {
	if s.Worker != nil {
		s.Worker.PauseMining()
	}
}

// LatestHash returns the hash of the block at the tip of the chain.
func (s *State) LatestHash() (string, error) {
	return s.db.LatestHash()
}

// Chain returns the blocks from the one after genesis to the tip.
func (s *State) Chain() ([]database.Block, error) {
	return s.db.Chain()
}

// Balance returns the balance of the account.
func (s *State) Balance(accountID database.AccountID) (int64, error) {
	return s.db.Balance(accountID)
}

// Mempool returns a copy of the mempool.
func (s *State) Mempool() []database.SignedTx {
	return s.mempool.Copy()
}

// MempoolLength returns the current length of the mempool.
func (s *State) MempoolLength() int {
	return s.mempool.Count()
}

// Peers returns the ids of the connected peers.
func (s *State) Peers() []string {
	return s.net().Peers()
}

// PendingRounds returns the number of voting rounds started by this node
// that are waiting on votes.
func (s *State) PendingRounds() int {
	return s.coordinator.Pending()
}

// Status returns the information shared with other nodes.
func (s *State) Status() (peer.PeerStatus, error) {
	tip, err := s.db.LatestHash()
	if err != nil {
		return peer.PeerStatus{}, err
	}

	chain, err := s.db.Chain()
	if err != nil {
		return peer.PeerStatus{}, err
	}

	var known []peer.Peer
	for _, id := range s.net().Peers() {
		known = append(known, peer.New(id))
	}

	status := peer.PeerStatus{
		LatestBlockHash: tip,
		ChainLength:     len(chain),
		Mining:          s.IsMining(),
		KnownPeers:      known,
	}

	return status, nil
}

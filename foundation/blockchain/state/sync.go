package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
	"github.com/ardanlabs/powchain/foundation/blockchain/vote"
)

// ProcessBlock takes a block received from a peer. Invalid and duplicate
// blocks are rejected. A block on top of the local tip is persisted and
// any local mining is cancelled. Otherwise the node is behind or forked
// and the sender is asked for its blocks. Valid blocks are relayed to every
// peer except the sender.
func (s *State) ProcessBlock(from string, blockData database.BlockData) error {
	block := database.ToBlock(blockData)

	s.evHandler("state: ProcessBlock: started: from[%s]: blk[%s]", from, block.SavedHash)
	defer s.evHandler("state: ProcessBlock: completed: blk[%s]", block.SavedHash)

	extends, err := s.acceptBlock(block)
	if err != nil {
		return err
	}

	s.broadcastBlock(block, from)

	if !extends {
		s.evHandler("state: ProcessBlock: predecessor[%s] is not the tip: requesting blocks", block.Predecessor)
		return s.RequestBlocks(from)
	}

	s.evHandler("viewer: block: ACCEPTED: blk[%s]: from[%s]", block.SavedHash, from)

	return nil
}

// acceptBlock validates the block and commits it when it extends the tip.
// The bool reports whether the block was committed.
func (s *State) acceptBlock(block database.Block) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.db.Exists(block.SavedHash)
	if err != nil {
		return false, err
	}
	if exists {
		return false, fmt.Errorf("block %s: %w", block.SavedHash, database.ErrDuplicateBlock)
	}

	if err := block.Validate(s.db, s.genesis.Difficulty, s.evHandler); err != nil {
		return false, err
	}

	tip, err := s.db.LatestHash()
	if err != nil {
		return false, err
	}
	if block.Predecessor != tip {
		return false, nil
	}

	// The network block wins the race. Mining can't start again until
	// the block is written.
	done := s.signalCancelMining()
	defer done()

	if err := s.db.Commit(block); err != nil {
		return false, err
	}

	s.updateMempool(block)

	return true, nil
}

// =============================================================================

// RequestBlocks asks the peer for the blocks after the local tip.
func (s *State) RequestBlocks(peerID string) error {
	tip, err := s.db.LatestHash()
	if err != nil {
		return err
	}

	msg, err := peer.Encode(peer.GetBlocks{LatestHash: tip})
	if err != nil {
		return err
	}

	s.evHandler("state: RequestBlocks: peer[%s]: tip[%s]", peerID, tip)

	return s.net().Send(peerID, msg)
}

// ServeGetBlocks answers a request for blocks. When the requester's tip is
// ours it's already synced. When it's an ancestor of our tip the blocks
// after it are returned. Otherwise the requester is on a fork and the whole
// chain is returned.
func (s *State) ServeGetBlocks(from string, req peer.GetBlocks) (peer.Blocks, error) {
	tip, err := s.db.LatestHash()
	if err != nil {
		return peer.Blocks{}, err
	}

	if req.LatestHash == tip {
		s.evHandler("state: ServeGetBlocks: peer[%s]: already synced", from)
		return peer.Blocks{Blocks: []database.BlockData{}, Info: peer.InfoAlreadySynced}, nil
	}

	segment, ok, err := s.db.Segment(req.LatestHash)
	if err != nil {
		return peer.Blocks{}, err
	}

	info := peer.InfoNone
	if !ok {
		segment, err = s.db.Chain()
		if err != nil {
			return peer.Blocks{}, err
		}
		info = peer.InfoForkDetected
	}

	s.evHandler("state: ServeGetBlocks: peer[%s]: blocks[%d]: info[%s]", from, len(segment), info)

	resp := peer.Blocks{
		Blocks: make([]database.BlockData, len(segment)),
		Info:   info,
	}
	for i, block := range segment {
		resp.Blocks[i] = database.NewBlockData(block)
	}

	return resp, nil
}

// ProcessBlocks handles the answer to a request for blocks. A fork is
// resolved by adopting the peer's chain when it's strictly longer. A plain
// batch must extend the tip linearly and is written all or nothing.
func (s *State) ProcessBlocks(from string, resp peer.Blocks) error {
	s.evHandler("state: ProcessBlocks: started: from[%s]: blocks[%d]: info[%s]", from, len(resp.Blocks), resp.Info)
	defer s.evHandler("state: ProcessBlocks: completed: from[%s]", from)

	blocks := make([]database.Block, len(resp.Blocks))
	for i, blockData := range resp.Blocks {
		blocks[i] = database.ToBlock(blockData)
	}

	switch resp.Info {
	case peer.InfoAlreadySynced:
		return nil

	case peer.InfoForkDetected:
		return s.adoptChain(blocks)
	}

	return s.appendBatch(blocks)
}

// =============================================================================

// adoptChain replaces the local chain with the peer's chain when the peer's
// is strictly longer. The chain is validated from genesis.
func (s *State) adoptChain(chain []database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	local, err := s.db.Chain()
	if err != nil {
		return err
	}

	if len(chain) <= len(local) {
		s.evHandler("state: adoptChain: peer chain[%d] not longer than local chain[%d]: ignored", len(chain), len(local))
		return nil
	}

	seen := make(map[string]bool, len(chain))
	oracle := database.StartingCredit(s.genesis.StartingCredit)
	predecessor := database.GenesisHash

	for i, block := range chain {
		if block.Predecessor != predecessor {
			return fmt.Errorf("block %s: predecessor %s, expected %s: %w", block.SavedHash, block.Predecessor, predecessor, database.ErrNonLinearChain)
		}

		if seen[block.SavedHash] {
			return fmt.Errorf("block %s: %w", block.SavedHash, database.ErrDuplicateBlock)
		}
		seen[block.SavedHash] = true

		if err := block.Validate(database.Pending(oracle, chain[:i]...), s.genesis.Difficulty, s.evHandler); err != nil {
			return err
		}

		predecessor = block.SavedHash
	}

	done := s.signalCancelMining()
	defer done()

	s.evHandler("viewer: chain: FORK: adopting peer chain[%d] over local chain[%d]", len(chain), len(local))

	if err := s.db.Replace(chain); err != nil {
		return err
	}

	s.updateMempool(chain...)

	return nil
}

// appendBatch validates a batch of blocks that must start on the local tip
// and follow one another, then writes all of them or none.
func (s *State) appendBatch(blocks []database.Block) error {
	if len(blocks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tip, err := s.db.LatestHash()
	if err != nil {
		return err
	}

	var successors int
	for _, block := range blocks {
		if block.Predecessor == tip {
			successors++
		}
	}
	if successors != 1 {
		return fmt.Errorf("batch has %d successors of tip %s: %w", successors, tip, database.ErrNonLinearChain)
	}

	predecessor := tip
	for i, block := range blocks {
		if block.Predecessor != predecessor {
			return fmt.Errorf("block %s: predecessor %s, expected %s: %w", block.SavedHash, block.Predecessor, predecessor, database.ErrNonLinearChain)
		}

		exists, err := s.db.Exists(block.SavedHash)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("block %s: %w", block.SavedHash, database.ErrDuplicateBlock)
		}

		if err := block.Validate(database.Pending(s.db, blocks[:i]...), s.genesis.Difficulty, s.evHandler); err != nil {
			return err
		}

		predecessor = block.SavedHash
	}

	done := s.signalCancelMining()
	defer done()

	if err := s.db.Commit(blocks...); err != nil {
		return err
	}

	s.updateMempool(blocks...)

	s.evHandler("viewer: chain: SYNCED: blocks[%d]: tip[%s]", len(blocks), predecessor)

	return nil
}

// isRejection reports whether the error is a validation failure that's
// logged and dropped rather than a failure of the node.
func isRejection(err error) bool {
	for _, target := range []error{
		database.ErrStructural,
		database.ErrSignature,
		database.ErrInsufficientBalance,
		database.ErrHashMismatch,
		database.ErrProofOfWork,
		database.ErrDuplicateBlock,
		database.ErrNonLinearChain,
		database.ErrNoNonceYet,
		vote.ErrUnknownRound,
		vote.ErrUnknownPeer,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

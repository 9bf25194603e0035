package state

import (
	"context"
	"fmt"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
)

// CreateGenesisBlock writes the genesis block and points the tip at it. It's
// a no-op when the chain already has a tip.
func (s *State) CreateGenesisBlock() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tip, err := s.db.LatestHash()
	if err != nil {
		return err
	}

	if tip != "" {
		s.evHandler("state: CreateGenesisBlock: chain exists: tip[%s]", tip)
		return nil
	}

	s.evHandler("state: CreateGenesisBlock: writing genesis[%s]", database.GenesisHash)

	return s.db.Commit(database.NewGenesisBlock())
}

// MineNewBlock drops the mempool transactions the chain no longer accepts,
// picks the best of the rest and runs AddBlock with them.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	s.mu.Lock()
	s.pruneMempool()
	s.mu.Unlock()

	trans, _, err := s.sequence(s.mempool.PickBest(int(s.genesis.TransPerBlock)))
	if err != nil {
		return database.Block{}, err
	}
	if len(trans) == 0 {
		return database.Block{}, ErrNoTransactions
	}

	return s.AddBlock(ctx, trans)
}

// AddBlock builds a block with the transactions on top of the current tip,
// mines it and, if it's still the winner once mining is over, validates,
// persists and broadcasts it. Cancelling the context pre-empts the block.
func (s *State) AddBlock(ctx context.Context, trans []database.SignedTx) (database.Block, error) {
	tip, err := s.db.LatestHash()
	if err != nil {
		return database.Block{}, err
	}
	if tip == "" {
		return database.Block{}, ErrNoGenesis
	}

	block := database.NewBlock(tip, trans)

	s.evHandler("state: AddBlock: MINING: perform POW: prevBlk[%s]: trans[%d]", tip, len(trans))

	// The leaves are computed once and shared by every miner.
	leaves := block.Leaves()
	difficulty := s.genesis.Difficulty
	solved := func(nonce uint64) bool {
		ok, err := database.ValidateNonce(leaves, nonce, difficulty)
		return err == nil && ok
	}

	t := time.Now()
	result, err := s.strategy.Mine(ctx, solved)
	s.evHandler("state: AddBlock: MINING: attempts[%d]: duration[%v]", result.Attempts, time.Since(t))
	if err != nil {
		return database.Block{}, err
	}

	if err := block.Seal(result.Nonce); err != nil {
		return database.Block{}, err
	}

	s.evHandler("viewer: block: MINING: SOLVED: nonce[%d]: blk[%s]", result.Nonce, block.SavedHash)

	if err := s.commitMined(ctx, tip, block); err != nil {
		return database.Block{}, err
	}

	s.broadcastBlock(block, "")

	return block, nil
}

// AddBlockWithoutValidation writes a block with a zero nonce on top of the
// current tip without mining or validating it. It's meant for bootstrapping
// trusted data and tests, never for input received from peers.
func (s *State) AddBlockWithoutValidation(trans []database.SignedTx) (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tip, err := s.db.LatestHash()
	if err != nil {
		return database.Block{}, err
	}
	if tip == "" {
		return database.Block{}, ErrNoGenesis
	}

	block := database.NewBlock(tip, trans)
	if err := block.Seal(0); err != nil {
		return database.Block{}, err
	}

	if err := s.db.Commit(block); err != nil {
		return database.Block{}, err
	}

	s.updateMempool(block)

	return block, nil
}

// =============================================================================

// commitMined performs the last checks on a mined block and persists it.
// The checks and the write happen under the chain lock so a block accepted
// from the network in the meantime wins the race.
func (s *State) commitMined(ctx context.Context, tip string, block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mining pre-empted: %w", err)
	}

	latest, err := s.db.LatestHash()
	if err != nil {
		return err
	}
	if latest != tip {
		return fmt.Errorf("mined on %s, tip is %s: %w", tip, latest, ErrChainMoved)
	}

	if err := block.Validate(s.db, s.genesis.Difficulty, s.evHandler); err != nil {
		return err
	}

	exists, err := s.db.Exists(block.SavedHash)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("block %s: %w", block.SavedHash, database.ErrDuplicateBlock)
	}

	if err := s.db.Commit(block); err != nil {
		return err
	}

	s.updateMempool(block)

	return nil
}

// updateMempool drops the transactions included in the blocks, then the
// ones the new chain no longer accepts.
func (s *State) updateMempool(blocks ...database.Block) {
	for _, block := range blocks {
		for _, tx := range block.Trans {
			s.mempool.Delete(tx)
		}
	}

	s.pruneMempool()
}

// pruneMempool evicts the transactions that would fail validation when the
// mempool is applied in selection order. A transaction spending funds that
// a block from a peer already spent never becomes valid again.
func (s *State) pruneMempool() {
	_, rejected, err := s.sequence(s.mempool.Copy())
	if err != nil {
		s.evHandler("state: pruneMempool: ERROR: %s", err)
		return
	}

	for _, tx := range rejected {
		s.evHandler("viewer: mempool: EVICTED: tx[%s]", tx)
		s.mempool.Delete(tx)
	}
}

// sequence applies the transactions in order on top of the chain. It
// returns the ones that validate against the balances left by the ones
// kept before them, and the ones that are rejected.
func (s *State) sequence(trans []database.SignedTx) (kept []database.SignedTx, rejected []database.SignedTx, err error) {
	var pending database.Block
	for _, tx := range trans {
		err := tx.Validate(database.Pending(s.db, pending))
		switch {
		case err == nil:
			pending.AddTransaction(tx)
		case isRejection(err):
			rejected = append(rejected, tx)
		default:
			return nil, nil, err
		}
	}

	return pending.Trans, rejected, nil
}

// broadcastBlock sends the block to every peer except the one specified.
func (s *State) broadcastBlock(block database.Block, except string) {
	msg, err := peer.Encode(peer.Block{Block: database.NewBlockData(block)})
	if err != nil {
		s.evHandler("state: broadcastBlock: ERROR: %s", err)
		return
	}

	s.evHandler("state: broadcastBlock: blk[%s]: except[%s]", block.SavedHash, except)
	s.net().Broadcast(msg, except)
}

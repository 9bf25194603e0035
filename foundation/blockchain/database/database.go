// Package database handles all the lower level support for maintaining the
// blockchain in storage and answering balance queries by replaying it.
package database

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Storage interface {
	WriteBlock(blockData BlockData) error
	ReadBlock(hash string) (BlockData, error)
	ListBlockHashes() ([]string, error)
	DeleteBlock(hash string) error
	ReadLatestHash() (string, error)
	WriteLatestHash(hash string) error
	ReadNonceHistory() ([]uint64, error)
	AppendNonce(nonce uint64) error
	ReadStartNonce() (uint64, bool, error)
	WriteStartNonce(nonce uint64) error
	Close() error
}

// =============================================================================

// Database manages the chain of blocks held by the storage. The tip pointer
// is only advanced after the blocks it references are written, so readers
// never observe a tip whose block is not yet stored.
type Database struct {
	mu             sync.RWMutex
	storage        Storage
	startingCredit int64
}

// New constructs a new database over the specified storage. Every account
// starts with the starting credit before any block is applied.
func New(storage Storage, startingCredit uint64) *Database {
	return &Database{
		storage:        storage,
		startingCredit: int64(startingCredit),
	}
}

// Close closes the underlying storage.
func (db *Database) Close() error {
	return db.storage.Close()
}

// LatestHash returns the hash of the block at the tip of the chain. An
// empty string is returned when no genesis block has been written.
func (db *Database) LatestHash() (string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	hash, err := db.storage.ReadLatestHash()
	if err != nil {
		return "", storageErr("read latest hash", err)
	}

	return hash, nil
}

// Exists reports whether a block with the specified hash is stored.
func (db *Database) Exists(hash string) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.exists(hash)
}

// ReadBlock returns the block stored under the specified hash.
func (db *Database) ReadBlock(hash string) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.readBlock(hash)
}

// Commit writes the blocks in order and then advances the tip to the last
// one. If any write fails, the blocks written so far are removed and the
// tip is left untouched.
func (db *Database) Commit(blocks ...Block) error {
	if len(blocks) == 0 {
		return nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	var written []string
	for _, block := range blocks {
		if err := db.storage.WriteBlock(NewBlockData(block)); err != nil {
			db.rollback(written)
			return storageErr("write block", err)
		}
		written = append(written, block.SavedHash)
	}

	if err := db.storage.WriteLatestHash(blocks[len(blocks)-1].SavedHash); err != nil {
		db.rollback(written)
		return storageErr("write latest hash", err)
	}

	return nil
}

// Chain returns every block from the one after genesis up to the tip,
// oldest first.
func (db *Database) Chain() ([]Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	blocks, _, err := db.walk("")
	return blocks, err
}

// Segment returns the blocks after the specified hash up to the tip, oldest
// first. The bool is false when the hash is not an ancestor of the tip.
func (db *Database) Segment(fromHash string) ([]Block, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.walk(fromHash)
}

// Replace adopts the specified chain, which must start on top of genesis.
// The new blocks are written, the tip is advanced and then the blocks of
// the old chain that are not part of the new one are deleted. Genesis is
// never deleted.
func (db *Database) Replace(chain []Block) error {
	if len(chain) == 0 {
		return fmt.Errorf("replace with empty chain: %w", ErrStructural)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	old, _, err := db.walk("")
	if err != nil {
		return err
	}

	keep := make(map[string]bool, len(chain))
	for _, block := range chain {
		keep[block.SavedHash] = true
	}

	var written []string
	for _, block := range chain {
		exists, err := db.exists(block.SavedHash)
		if err != nil {
			db.rollback(written)
			return err
		}
		if exists {
			continue
		}

		if err := db.storage.WriteBlock(NewBlockData(block)); err != nil {
			db.rollback(written)
			return storageErr("write block", err)
		}
		written = append(written, block.SavedHash)
	}

	if err := db.storage.WriteLatestHash(chain[len(chain)-1].SavedHash); err != nil {
		db.rollback(written)
		return storageErr("write latest hash", err)
	}

	for _, block := range old {
		if keep[block.SavedHash] || block.SavedHash == GenesisHash {
			continue
		}

		if err := db.storage.DeleteBlock(block.SavedHash); err != nil {
			return storageErr("delete stale block", err)
		}
	}

	return nil
}

// Balance implements the BalanceOracle interface. It replays every stored
// block on top of the starting credit.
func (db *Database) Balance(accountID AccountID) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	hashes, err := db.storage.ListBlockHashes()
	if err != nil {
		return 0, storageErr("list blocks", err)
	}

	balance := db.startingCredit
	for _, hash := range hashes {
		block, err := db.readBlock(hash)
		if err != nil {
			return 0, err
		}
		balance = applyBlock(balance, accountID, block)
	}

	return balance, nil
}

// =============================================================================

// NonceHistory returns the nonces previously found by mining.
func (db *Database) NonceHistory() ([]uint64, error) {
	nonces, err := db.storage.ReadNonceHistory()
	if err != nil {
		return nil, storageErr("read nonce history", err)
	}

	return nonces, nil
}

// AppendNonce records a nonce found by mining.
func (db *Database) AppendNonce(nonce uint64) error {
	if err := db.storage.AppendNonce(nonce); err != nil {
		return storageErr("append nonce", err)
	}

	return nil
}

// StartNonce returns the last calculated start nonce checkpoint.
func (db *Database) StartNonce() (uint64, bool, error) {
	nonce, ok, err := db.storage.ReadStartNonce()
	if err != nil {
		return 0, false, storageErr("read start nonce", err)
	}

	return nonce, ok, nil
}

// WriteStartNonce records the start nonce checkpoint.
func (db *Database) WriteStartNonce(nonce uint64) error {
	if err := db.storage.WriteStartNonce(nonce); err != nil {
		return storageErr("write start nonce", err)
	}

	return nil
}

// =============================================================================

func (db *Database) exists(hash string) (bool, error) {
	_, err := db.storage.ReadBlock(hash)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, storageErr("read block", err)
	}
}

func (db *Database) readBlock(hash string) (Block, error) {
	blockData, err := db.storage.ReadBlock(hash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Block{}, fmt.Errorf("block %s: %w", short(hash), ErrNotFound)
		}
		return Block{}, storageErr("read block", err)
	}

	return ToBlock(blockData), nil
}

// walk follows predecessor links back from the tip until it reaches the
// stop hash or genesis. The blocks are returned oldest first, excluding
// both the stop block and genesis.
func (db *Database) walk(stop string) ([]Block, bool, error) {
	hash, err := db.storage.ReadLatestHash()
	if err != nil {
		return nil, false, storageErr("read latest hash", err)
	}

	var blocks []Block
	for hash != "" && hash != GenesisHash {
		if hash == stop {
			slices.Reverse(blocks)
			return blocks, true, nil
		}

		block, err := db.readBlock(hash)
		if err != nil {
			return nil, false, err
		}

		blocks = append(blocks, block)
		hash = block.Predecessor
	}

	slices.Reverse(blocks)
	return blocks, stop == "" || stop == hash, nil
}

// rollback removes blocks written by a failed commit.
func (db *Database) rollback(hashes []string) {
	for _, hash := range hashes {
		if hash == GenesisHash {
			continue
		}
		db.storage.DeleteBlock(hash)
	}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageIO, err)
}

// Package memory implements the ability to read and write blocks to memory
// using maps.
package memory

import (
	"sync"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// Memory represents the serialization implementation for reading and storing
// blocks in memory. This implements the database.Storage interface.
type Memory struct {
	mu         sync.RWMutex
	blocks     map[string]database.BlockData
	latestHash string
	nonces     []uint64
	startNonce *uint64
}

// New constructs a Memory value for use.
func New() *Memory {
	return &Memory{
		blocks: make(map[string]database.BlockData),
	}
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// WriteBlock stores the block under its hash.
func (m *Memory) WriteBlock(blockData database.BlockData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks[blockData.Hash] = blockData
	return nil
}

// ReadBlock returns the block stored under the hash.
func (m *Memory) ReadBlock(hash string) (database.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blockData, exists := m.blocks[hash]
	if !exists {
		return database.BlockData{}, database.ErrNotFound
	}

	return blockData, nil
}

// ListBlockHashes returns the hash of every stored block.
func (m *Memory) ListBlockHashes() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hashes := make([]string, 0, len(m.blocks))
	for hash := range m.blocks {
		hashes = append(hashes, hash)
	}

	return hashes, nil
}

// DeleteBlock removes the block stored under the hash.
func (m *Memory) DeleteBlock(hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blocks, hash)
	return nil
}

// ReadLatestHash returns the tip pointer.
func (m *Memory) ReadLatestHash() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.latestHash, nil
}

// WriteLatestHash replaces the tip pointer.
func (m *Memory) WriteLatestHash(hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.latestHash = hash
	return nil
}

// ReadNonceHistory returns a copy of the nonce history.
func (m *Memory) ReadNonceHistory() ([]uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]uint64(nil), m.nonces...), nil
}

// AppendNonce adds the nonce to the end of the history.
func (m *Memory) AppendNonce(nonce uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nonces = append(m.nonces, nonce)
	return nil
}

// ReadStartNonce returns the start nonce checkpoint if one was written.
func (m *Memory) ReadStartNonce() (uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.startNonce == nil {
		return 0, false, nil
	}

	return *m.startNonce, true, nil
}

// WriteStartNonce replaces the start nonce checkpoint.
func (m *Memory) WriteStartNonce(nonce uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.startNonce = &nonce
	return nil
}

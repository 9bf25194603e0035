// Package disk implements the ability to read and write blocks to disk
// with each block in its own file named by its hash.
package disk

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// Set of file names used under the database path.
const (
	blocksDir       = "blocks"
	latestHashFile  = "latest_block_hash"
	nonceFile       = "nonce_history"
	startNonceFile  = "start_nonce"
	blockFileSuffix = ".json"
)

// Disk represents the serialization implementation for reading and storing
// blocks in their own separate files on disk. This implements the
// database.Storage interface.
type Disk struct {
	mu     sync.Mutex
	dbPath string
}

// New constructs a Disk value for use.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(filepath.Join(dbPath, blocksDir), 0755); err != nil {
		return nil, err
	}

	return &Disk{dbPath: dbPath}, nil
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each new block and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// WriteBlock takes the specified block and stores it on disk in a file
// labeled with the block hash.
func (d *Disk) WriteBlock(blockData database.BlockData) error {
	if blockData.Hash == "" {
		return errors.New("block has no hash")
	}

	// Marshal the block for writing to disk in a more human readable format.
	data, err := json.MarshalIndent(blockData, "", "  ")
	if err != nil {
		return err
	}

	return writeFile(d.blockPath(blockData.Hash), data)
}

// ReadBlock locates and returns the contents of the specified block.
func (d *Disk) ReadBlock(hash string) (database.BlockData, error) {
	f, err := os.Open(d.blockPath(hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return database.BlockData{}, database.ErrNotFound
		}
		return database.BlockData{}, err
	}
	defer f.Close()

	var blockData database.BlockData
	if err := json.NewDecoder(f).Decode(&blockData); err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// ListBlockHashes returns the hash of every block on disk.
func (d *Disk) ListBlockHashes() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(d.dbPath, blocksDir))
	if err != nil {
		return nil, err
	}

	hashes := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, blockFileSuffix) {
			continue
		}
		hashes = append(hashes, strings.TrimSuffix(name, blockFileSuffix))
	}

	return hashes, nil
}

// DeleteBlock removes the file for the specified block.
func (d *Disk) DeleteBlock(hash string) error {
	err := os.Remove(d.blockPath(hash))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

// ReadLatestHash returns the hash stored in the tip pointer file.
func (d *Disk) ReadLatestHash() (string, error) {
	data, err := os.ReadFile(filepath.Join(d.dbPath, latestHashFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

// WriteLatestHash replaces the tip pointer file.
func (d *Disk) WriteLatestHash(hash string) error {
	return writeFile(filepath.Join(d.dbPath, latestHashFile), []byte(hash))
}

// ReadNonceHistory returns the nonces in the order they were appended.
func (d *Disk) ReadNonceHistory() ([]uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := os.Open(filepath.Join(d.dbPath, nonceFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var nonces []uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		nonce, err := strconv.ParseUint(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse nonce %q: %w", line, err)
		}
		nonces = append(nonces, nonce)
	}

	return nonces, scanner.Err()
}

// AppendNonce adds the nonce as a new line of the history file.
func (d *Disk) AppendNonce(nonce uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(d.dbPath, nonceFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteString(strconv.FormatUint(nonce, 10) + "\n"); err != nil {
		return err
	}

	return nil
}

// ReadStartNonce returns the start nonce checkpoint if one was written.
func (d *Disk) ReadStartNonce() (uint64, bool, error) {
	data, err := os.ReadFile(filepath.Join(d.dbPath, startNonceFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, err
	}

	nonce, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, false, err
	}

	return nonce, true, nil
}

// WriteStartNonce replaces the start nonce checkpoint.
func (d *Disk) WriteStartNonce(nonce uint64) error {
	return writeFile(filepath.Join(d.dbPath, startNonceFile), []byte(strconv.FormatUint(nonce, 10)))
}

// =============================================================================

// blockPath forms the path to the specified block.
func (d *Disk) blockPath(hash string) string {
	return filepath.Join(d.dbPath, blocksDir, hash+blockFileSuffix)
}

// writeFile writes the data to a temp file and renames it into place so a
// reader never sees a partially written file.
func writeFile(name string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(name), ".tmp-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), name)
}

// Package boltdb implements the ability to read and write blocks to a single
// bolt database file.
package boltdb

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	bolt "go.etcd.io/bbolt"
)

// DBFilename is the name of the database file under the database path.
const DBFilename = "chain.db"

// Bucket names and meta keys.
var (
	bucketBlocks = []byte("blocks") // hash -> block json
	bucketNonces = []byte("nonces") // sequence (big-endian) -> nonce
	bucketMeta   = []byte("meta")   // tip and start nonce checkpoint

	metaKeyTip        = []byte("latest_block_hash")
	metaKeyStartNonce = []byte("start_nonce")
)

// Bolt represents the serialization implementation for reading and storing
// blocks in a bolt database. This implements the database.Storage interface.
type Bolt struct {
	db *bolt.DB
}

// New opens or creates the database under the specified path.
func New(dbPath string) (*Bolt, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bolt.Open(filepath.Join(dbPath, DBFilename), 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketBlocks, bucketNonces, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Close closes the database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// WriteBlock stores the block under its hash.
func (b *Bolt) WriteBlock(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlocks).Put([]byte(blockData.Hash), data)
	})
}

// ReadBlock retrieves the block stored under the hash.
func (b *Bolt) ReadBlock(hash string) (database.BlockData, error) {
	var blockData database.BlockData

	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketBlocks).Get([]byte(hash))
		if data == nil {
			return database.ErrNotFound
		}
		return json.Unmarshal(data, &blockData)
	})

	return blockData, err
}

// ListBlockHashes returns the hash of every stored block.
func (b *Bolt) ListBlockHashes() ([]string, error) {
	var hashes []string

	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlocks).ForEach(func(k, _ []byte) error {
			hashes = append(hashes, string(k))
			return nil
		})
	})

	return hashes, err
}

// DeleteBlock removes the block stored under the hash.
func (b *Bolt) DeleteBlock(hash string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlocks).Delete([]byte(hash))
	})
}

// ReadLatestHash returns the tip pointer.
func (b *Bolt) ReadLatestHash() (string, error) {
	var hash string

	err := b.db.View(func(tx *bolt.Tx) error {
		hash = string(tx.Bucket(bucketMeta).Get(metaKeyTip))
		return nil
	})

	return hash, err
}

// WriteLatestHash replaces the tip pointer.
func (b *Bolt) WriteLatestHash(hash string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(metaKeyTip, []byte(hash))
	})
}

// ReadNonceHistory returns the nonces in the order they were appended.
func (b *Bolt) ReadNonceHistory() ([]uint64, error) {
	var nonces []uint64

	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNonces).ForEach(func(_, v []byte) error {
			nonces = append(nonces, binary.BigEndian.Uint64(v))
			return nil
		})
	})

	return nonces, err
}

// AppendNonce adds the nonce to the end of the history.
func (b *Bolt) AppendNonce(nonce uint64) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketNonces)

		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}

		return bucket.Put(encode(seq), encode(nonce))
	})
}

// ReadStartNonce returns the start nonce checkpoint if one was written.
func (b *Bolt) ReadStartNonce() (uint64, bool, error) {
	var nonce uint64
	var found bool

	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketMeta).Get(metaKeyStartNonce)
		if len(v) != 8 {
			return nil
		}
		nonce, found = binary.BigEndian.Uint64(v), true
		return nil
	})

	return nonce, found, err
}

// WriteStartNonce replaces the start nonce checkpoint.
func (b *Bolt) WriteStartNonce(nonce uint64) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(metaKeyStartNonce, encode(nonce))
	})
}

func encode(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

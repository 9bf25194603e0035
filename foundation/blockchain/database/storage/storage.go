// Package storage selects the backend used to persist the chain.
package storage

import (
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/database/storage/boltdb"
	"github.com/ardanlabs/powchain/foundation/blockchain/database/storage/disk"
	"github.com/ardanlabs/powchain/foundation/blockchain/database/storage/memory"
)

// Set of backends that can be opened by name.
const (
	Disk   = "disk"
	Bolt   = "bolt"
	Memory = "memory"
)

// Open constructs the named backend rooted at the path. The memory backend
// ignores the path.
func Open(backend string, dbPath string) (database.Storage, error) {
	switch backend {
	case Disk:
		d, err := disk.New(dbPath)
		if err != nil {
			return nil, err
		}
		return d, nil

	case Bolt:
		b, err := boltdb.New(dbPath)
		if err != nil {
			return nil, err
		}
		return b, nil

	case Memory:
		return memory.New(), nil
	}

	return nil, fmt.Errorf("unknown storage backend %q", backend)
}

// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/powchain/foundation/validate"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date           time.Time `json:"date"`
	Difficulty     uint      `json:"difficulty" validate:"gte=1,lte=64"`                                       // Number of leading hex 0's the merkle root needs.
	StartingCredit uint64    `json:"starting_credit"`                                                          // Balance every account holds before any block.
	TransPerBlock  uint16    `json:"trans_per_block" validate:"gte=1"`                                         // The maximum number of transactions that can be in a block.
	MiningStrategy string    `json:"mining_strategy" validate:"oneof=bruteforce nonce-skip bitshift parallel"` // Nonce search used to mine new blocks.
}

// Default returns the genesis settings used for testing.
func Default() Genesis {
	return Genesis{
		Date:           time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC),
		Difficulty:     4,
		StartingCredit: 100,
		TransPerBlock:  10,
		MiningStrategy: "parallel",
	}
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decode genesis: %w", err)
	}

	if err := validate.Check(genesis); err != nil {
		return Genesis{}, fmt.Errorf("validate genesis: %w", err)
	}

	return genesis, nil
}

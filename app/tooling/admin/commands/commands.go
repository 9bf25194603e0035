// Package commands contains the functionality for the admin commands.
package commands

import (
	"fmt"
	"io"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
)

// Chain writes every block from the oldest to the tip.
func Chain(w io.Writer, db *database.Database) error {
	chain, err := db.Chain()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Genesis: %s\n", database.GenesisHash)
	for i, block := range chain {
		fmt.Fprintf(w, "\nBlock %d: %s\n", i+1, block.SavedHash)
		fmt.Fprintf(w, "  Predecessor: %s\n", block.Predecessor)
		if block.Nonce != nil {
			fmt.Fprintf(w, "  Nonce: %d\n", *block.Nonce)
		}
		for _, tx := range block.Trans {
			fmt.Fprintf(w, "  Tx %s: %s\n", tx.ID(), tx)
		}
	}

	return nil
}

// Balance writes the balance of the account.
func Balance(w io.Writer, db *database.Database, account string) error {
	accountID, err := database.ToAccountID(account)
	if err != nil {
		return err
	}

	bal, err := db.Balance(accountID)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Account: %s  Balance: %d\n", accountID, bal)

	return nil
}

// Verify checks the stored genesis block, then validates every block
// against the balances the blocks before it produce, starting from the
// starting credit.
func Verify(w io.Writer, db *database.Database, gen genesis.Genesis, ev func(v string, args ...any)) error {
	genesisBlock, err := db.ReadBlock(database.GenesisHash)
	if err != nil {
		return err
	}
	if !genesisBlock.IsGenesis() {
		return fmt.Errorf("genesis block %s: %w", database.GenesisHash, database.ErrHashMismatch)
	}

	chain, err := db.Chain()
	if err != nil {
		return err
	}

	predecessor := database.GenesisHash
	for i, block := range chain {
		if block.Predecessor != predecessor {
			return fmt.Errorf("block %d: %s: %w", i+1, block.SavedHash, database.ErrNonLinearChain)
		}

		oracle := database.Pending(database.StartingCredit(gen.StartingCredit), chain[:i]...)
		if err := block.Validate(oracle, gen.Difficulty, ev); err != nil {
			return fmt.Errorf("block %d: %w", i+1, err)
		}

		predecessor = block.SavedHash
	}

	fmt.Fprintf(w, "Verified %d blocks, tip %s\n", len(chain), predecessor)

	return nil
}

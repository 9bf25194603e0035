package database

import (
	"fmt"
	"strings"
)

// AccountID represents the name of an account that sends or receives value.
// Account ids are free-form names chosen by the account holder.
type AccountID string

// ToAccountID converts a string to an account and validates it is usable.
func ToAccountID(s string) (AccountID, error) {
	a := AccountID(s)
	if !a.IsAccountID() {
		return "", fmt.Errorf("invalid account %q: %w", s, ErrStructural)
	}

	return a, nil
}

// IsAccountID verifies the account id is not empty and holds no whitespace.
func (a AccountID) IsAccountID() bool {
	return a != "" && !strings.ContainsAny(string(a), " \t\r\n")
}

// =============================================================================

// BalanceOracle provides the current balance for an account.
type BalanceOracle interface {
	Balance(accountID AccountID) (int64, error)
}

// StartingCredit is a balance oracle for the chain made of genesis only.
// Every account holds the same credit.
type StartingCredit uint64

// Balance implements the BalanceOracle interface.
func (c StartingCredit) Balance(AccountID) (int64, error) {
	return int64(c), nil
}

// Pending wraps an oracle and adds the effect of blocks that are not yet
// persisted. It's used to validate a batch of blocks in order.
func Pending(oracle BalanceOracle, blocks ...Block) BalanceOracle {
	return pending{oracle: oracle, blocks: blocks}
}

type pending struct {
	oracle BalanceOracle
	blocks []Block
}

func (p pending) Balance(accountID AccountID) (int64, error) {
	balance, err := p.oracle.Balance(accountID)
	if err != nil {
		return 0, err
	}

	for _, block := range p.blocks {
		balance = applyBlock(balance, accountID, block)
	}

	return balance, nil
}

// applyBlock returns the balance after the block's transactions are applied
// for the specified account.
func applyBlock(balance int64, accountID AccountID, block Block) int64 {
	for _, tx := range block.Trans {
		if tx.Source == accountID {
			balance -= int64(tx.Amount)
		}
		if tx.Target == accountID {
			balance += int64(tx.Amount)
		}
	}

	return balance
}

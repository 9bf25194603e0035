// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"
	"sort"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyOldest = "oldest"
	StrategyAmount = "amount"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyOldest: oldestSelect,
	StrategyAmount: amountSelect,
}

// Func defines a function that takes a mempool of transactions grouped by
// source account and selects howMany of them in an order based on the
// functions strategy. All selector functions MUST respect timestamp ordering
// per source account. Receiving -1 for howMany must return all the
// transactions in the strategies ordering.
type Func func(transactions map[database.AccountID][]database.SignedTx, howMany int) []database.SignedTx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// oldestSelect returns the transactions in the order they were created.
var oldestSelect = func(m map[database.AccountID][]database.SignedTx, howMany int) []database.SignedTx {
	var all []database.SignedTx
	for _, txs := range m {
		all = append(all, txs...)
	}

	sort.Sort(byTimestamp(all))

	if howMany == -1 || howMany > len(all) {
		return all
	}

	return all[:howMany]
}

// amountSelect returns transactions with the largest amount first while
// respecting the timestamp order for each source account.
var amountSelect = func(m map[database.AccountID][]database.SignedTx, howMany int) []database.SignedTx {

	// Sort the transactions per account by timestamp.
	for key := range m {
		if len(m[key]) > 1 {
			sort.Sort(byTimestamp(m[key]))
		}
	}

	// Pick the first transaction in the slice for each account. Each iteration
	// represents a new row of selections. Keep doing that until all the
	// transactions have been selected.
	var rows [][]database.SignedTx
	for {
		var row []database.SignedTx
		for key := range m {
			if len(m[key]) > 0 {
				row = append(row, m[key][0])
				m[key] = m[key][1:]
			}
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}

	// Sort each row by amount so the largest transfers of a row are taken
	// first, then fill the request row by row.
	var final []database.SignedTx
	for _, row := range rows {
		sort.Sort(byAmount(row))
		for _, tx := range row {
			if howMany != -1 && len(final) == howMany {
				return final
			}
			final = append(final, tx)
		}
	}

	return final
}

// =============================================================================

// byTimestamp provides sorting support by the transaction timestamp, oldest
// first. Ties are broken by transaction id to keep the order deterministic.
type byTimestamp []database.SignedTx

func (bt byTimestamp) Len() int {
	return len(bt)
}

func (bt byTimestamp) Less(i, j int) bool {
	if bt[i].Timestamp == bt[j].Timestamp {
		return bt[i].ID() < bt[j].ID()
	}
	return bt[i].Timestamp < bt[j].Timestamp
}

func (bt byTimestamp) Swap(i, j int) {
	bt[i], bt[j] = bt[j], bt[i]
}

// =============================================================================

// byAmount provides sorting support by the transaction amount in descending
// order.
type byAmount []database.SignedTx

func (ba byAmount) Len() int {
	return len(ba)
}

func (ba byAmount) Less(i, j int) bool {
	if ba[i].Amount == ba[j].Amount {
		return ba[i].ID() < ba[j].ID()
	}
	return ba[i].Amount > ba[j].Amount
}

func (ba byAmount) Swap(i, j int) {
	ba[i], ba[j] = ba[j], ba[i]
}

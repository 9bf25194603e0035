package public

import "github.com/ardanlabs/powchain/foundation/blockchain/database"

type tx struct {
	ID        string             `json:"id"`
	Source    database.AccountID `json:"source"`
	Target    database.AccountID `json:"target"`
	Amount    uint64             `json:"amount"`
	Timestamp uint64             `json:"timestamp"`
	PublicKey string             `json:"public_key"`
	Signature string             `json:"signature"`
}

type block struct {
	Hash         string  `json:"hash"`
	Predecessor  string  `json:"predecessor"`
	Nonce        *uint64 `json:"nonce"`
	Root         string  `json:"root"`
	Transactions []tx    `json:"transactions"`
}

type balance struct {
	Account     database.AccountID `json:"account"`
	Balance     int64              `json:"balance"`
	LatestBlock string             `json:"latest_block"`
	Uncommitted int                `json:"uncommitted"`
}

type submitted struct {
	Status  string `json:"status"`
	RoundID string `json:"round_id"`
}

// =============================================================================

func toTx(signedTx database.SignedTx) tx {
	return tx{
		ID:        signedTx.ID(),
		Source:    signedTx.Source,
		Target:    signedTx.Target,
		Amount:    signedTx.Amount,
		Timestamp: signedTx.Timestamp,
		PublicKey: signedTx.PublicKey,
		Signature: signedTx.Signature,
	}
}

func toBlock(blk database.Block) block {
	trans := make([]tx, len(blk.Trans))
	for i, signedTx := range blk.Trans {
		trans[i] = toTx(signedTx)
	}

	var root string
	if blk.Nonce != nil {
		root, _ = database.TransRoot(blk.Leaves(), *blk.Nonce)
	}

	return block{
		Hash:         blk.SavedHash,
		Predecessor:  blk.Predecessor,
		Nonce:        blk.Nonce,
		Root:         root,
		Transactions: trans,
	}
}

package database

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/signature"
)

// =============================================================================

// Tx is the transactional information between two parties. The fields are
// declared in lexical order so the json encoding is the canonical form used
// for hashing and signing.
type Tx struct {
	Amount    uint64    `json:"amount"`    // Value transferred in the smallest unit.
	Source    AccountID `json:"source"`    // Account sending the value.
	Target    AccountID `json:"target"`    // Account receiving the value.
	Timestamp uint64    `json:"timestamp"` // Unix seconds when the transaction was created.
}

// NewTx constructs a new transaction stamped with the current time.
func NewTx(source AccountID, target AccountID, amount uint64) (Tx, error) {
	tx := Tx{
		Amount:    amount,
		Source:    source,
		Target:    target,
		Timestamp: uint64(time.Now().UTC().Unix()),
	}

	if err := tx.validateStructure(); err != nil {
		return Tx{}, err
	}

	return tx, nil
}

// Sign uses the specified private key to sign the transaction.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {
	if err := tx.validateStructure(); err != nil {
		return SignedTx{}, err
	}

	sig, pub, err := signature.Sign(tx, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	signedTx := SignedTx{
		Tx:        tx,
		PublicKey: pub,
		Signature: sig,
	}

	return signedTx, nil
}

// Canonical returns the canonical encoding of the transaction. This is the
// leaf committed to the merkle tree of a block.
func (tx Tx) Canonical() string {
	data, err := json.Marshal(tx)
	if err != nil {
		return ""
	}

	return string(data)
}

// ID returns the hash of the canonical form of the transaction.
func (tx Tx) ID() string {
	return signature.Hash(tx)
}

func (tx Tx) validateStructure() error {
	if !tx.Source.IsAccountID() {
		return fmt.Errorf("source account %q: %w", tx.Source, ErrStructural)
	}

	if !tx.Target.IsAccountID() {
		return fmt.Errorf("target account %q: %w", tx.Target, ErrStructural)
	}

	return nil
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how clients like
// a wallet provide transactions for inclusion into the blockchain.
type SignedTx struct {
	Tx
	PublicKey string `json:"public_key"` // Compressed secp256k1 public key, hex encoded.
	Signature string `json:"signature"`  // Signature over the canonical form, hex encoded.
}

// IsSigned reports whether the key material is present.
func (tx SignedTx) IsSigned() bool {
	return tx.PublicKey != "" && tx.Signature != ""
}

// Validate verifies the transaction is well formed, the source holds enough
// balance for the amount and the signature matches the canonical form.
func (tx SignedTx) Validate(oracle BalanceOracle) error {
	if err := tx.validateStructure(); err != nil {
		return err
	}

	if !tx.IsSigned() {
		return fmt.Errorf("transaction %s is not signed: %w", tx.ID(), ErrStructural)
	}

	balance, err := oracle.Balance(tx.Source)
	if err != nil {
		return err
	}

	if balance < 0 || uint64(balance) < tx.Amount {
		return fmt.Errorf("%s can't send %d with balance of %d: %w", tx.Source, tx.Amount, balance, ErrInsufficientBalance)
	}

	if err := signature.Verify(tx.Tx, tx.Signature, tx.PublicKey); err != nil {
		if errors.Is(err, signature.ErrInvalidSignature) {
			return fmt.Errorf("transaction %s: %w", tx.ID(), ErrSignature)
		}
		return fmt.Errorf("transaction %s: %s: %w", tx.ID(), err, ErrStructural)
	}

	return nil
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	return fmt.Sprintf("%s->%s:%d", tx.Source, tx.Target, tx.Amount)
}

package database

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ardanlabs/powchain/foundation/blockchain/merkle"
)

// GenesisHash is the well-known hash of the genesis block. It's the sha256
// of the canonical encoding of a block with no predecessor, no transactions
// and no nonce. The genesis block is never validated and never deleted.
var GenesisHash = func() string {
	data, err := json.Marshal(header{Transactions: []SignedTx{}})
	if err != nil {
		panic(err)
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}()

// header is the canonical encoding of a block whose hash is calculated.
// Fields are declared in lexical order.
type header struct {
	Nonce        *uint64 `json:"nonce"`
	Predecessor  string  `json:"predecessor"`
	Transactions any     `json:"transactions"`
}

// =============================================================================

// Block represents a group of transactions batched together and linked to
// the block before it by hash.
type Block struct {
	Predecessor string
	Trans       []SignedTx
	Nonce       *uint64
	SavedHash   string
}

// NewBlock constructs an unmined block on top of the specified predecessor.
func NewBlock(predecessor string, trans []SignedTx) Block {
	block := Block{
		Predecessor: predecessor,
		Trans:       make([]SignedTx, 0, len(trans)),
	}

	for _, tx := range trans {
		block.AddTransaction(tx)
	}

	return block
}

// AddTransaction appends the transaction to the block. Validation is
// deferred until the block is validated.
func (b *Block) AddTransaction(tx SignedTx) {
	b.Trans = append(b.Trans, tx)
}

// NewGenesisBlock constructs the transaction free root of the chain.
func NewGenesisBlock() Block {
	return Block{
		SavedHash: GenesisHash,
	}
}

// Seal sets the nonce found by mining and records the resulting hash.
func (b *Block) Seal(nonce uint64) error {
	b.Nonce = &nonce

	hash, err := b.Hash()
	if err != nil {
		return err
	}
	b.SavedHash = hash

	return nil
}

// IsGenesis reports whether this is the genesis block.
func (b Block) IsGenesis() bool {
	return b.Predecessor == "" && b.Nonce == nil && len(b.Trans) == 0 && b.SavedHash == GenesisHash
}

// Leaves returns the canonical encoding of each transaction in block order.
// The nonce leaf is appended separately by the proof of work check.
func (b Block) Leaves() []string {
	leaves := make([]string, len(b.Trans))
	for i, tx := range b.Trans {
		leaves[i] = tx.Canonical()
	}

	return leaves
}

// Hash returns the unique hash for the Block. It's a pure function of the
// predecessor, the canonical transactions and the nonce.
func (b Block) Hash() (string, error) {
	if b.Nonce == nil {
		return "", ErrNoNonceYet
	}

	root, err := TransRoot(b.Leaves(), *b.Nonce)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(header{
		Nonce:        b.Nonce,
		Predecessor:  b.Predecessor,
		Transactions: root,
	})
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// Validate takes a block and validates it to be included into the blockchain.
// Every transaction must validate against the balances left by the ones
// before it, the saved hash must match the
// recalculated hash and the nonce must satisfy the difficulty.
func (b Block) Validate(oracle BalanceOracle, difficulty uint, evHandler func(v string, args ...any)) error {
	evHandler("database: Validate: blk[%s]: check: transactions", short(b.SavedHash))

	// Earlier transactions of the block are applied before each check.
	for i, tx := range b.Trans {
		if err := tx.Validate(Pending(oracle, Block{Trans: b.Trans[:i]})); err != nil {
			return fmt.Errorf("block %s: %w", short(b.SavedHash), err)
		}
	}

	evHandler("database: Validate: blk[%s]: check: saved hash matches", short(b.SavedHash))

	hash, err := b.Hash()
	if err != nil {
		return fmt.Errorf("block %s: %w", short(b.SavedHash), err)
	}

	if hash != b.SavedHash {
		return fmt.Errorf("block %s: got %s: %w", short(b.SavedHash), short(hash), ErrHashMismatch)
	}

	evHandler("database: Validate: blk[%s]: check: nonce solves the difficulty", short(b.SavedHash))

	solved, err := ValidateNonce(b.Leaves(), *b.Nonce, difficulty)
	if err != nil {
		return err
	}

	if !solved {
		return fmt.Errorf("block %s: nonce %d: %w", short(b.SavedHash), *b.Nonce, ErrProofOfWork)
	}

	return nil
}

// =============================================================================

// TransRoot appends the decimal nonce to the leaves and returns the merkle
// root of the result. The leaves slice is never modified, so it can be
// shared by concurrent miners.
func TransRoot(leaves []string, nonce uint64) (string, error) {
	all := append(leaves[:len(leaves):len(leaves)], strconv.FormatUint(nonce, 10))
	return merkle.RootHex(all)
}

// ValidateNonce reports whether the nonce appended to the leaves produces a
// merkle root that starts with difficulty number of 0's.
func ValidateNonce(leaves []string, nonce uint64, difficulty uint) (bool, error) {
	root, err := TransRoot(leaves, nonce)
	if err != nil {
		return false, err
	}

	return isHashSolved(difficulty, root), nil
}

// isHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func isHashSolved(difficulty uint, hash string) bool {
	if int(difficulty) > len(hash) {
		return false
	}

	for i := range difficulty {
		if hash[i] != '0' {
			return false
		}
	}

	return true
}

// short returns a prefix of the hash for logging.
func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}

	return hash
}

// =============================================================================

// BlockData represents what is written to storage and sent over the network.
type BlockData struct {
	Hash        string     `json:"hash" validate:"required,len=64,hexadecimal"`
	Predecessor string     `json:"predecessor"`
	Trans       []SignedTx `json:"transactions"`
	Nonce       *uint64    `json:"nonce"`
}

// NewBlockData constructs the value to serialize to storage.
func NewBlockData(block Block) BlockData {
	trans := block.Trans
	if trans == nil {
		trans = []SignedTx{}
	}

	return BlockData{
		Hash:        block.SavedHash,
		Predecessor: block.Predecessor,
		Trans:       trans,
		Nonce:       block.Nonce,
	}
}

// ToBlock converts a BlockData into a Block.
func ToBlock(blockData BlockData) Block {
	return Block{
		Predecessor: blockData.Predecessor,
		Trans:       blockData.Trans,
		Nonce:       blockData.Nonce,
		SavedHash:   blockData.Hash,
	}
}

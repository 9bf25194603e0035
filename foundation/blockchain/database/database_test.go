package database_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/database/storage/memory"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	difficulty     = 2
	startingCredit = 100
)

func noopEvents(v string, args ...any) {}

func sign(t *testing.T, source, target string, amount uint64) database.SignedTx {
	t.Helper()

	pk, err := crypto.HexToECDSA("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}

	tx := database.Tx{
		Amount:    amount,
		Source:    database.AccountID(source),
		Target:    database.AccountID(target),
		Timestamp: 1700000000,
	}

	signedTx, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %s", err)
	}

	return signedTx
}

// mine performs a sequential search for a nonce and seals the block.
func mine(t *testing.T, block database.Block) database.Block {
	t.Helper()

	leaves := block.Leaves()
	for nonce := uint64(0); ; nonce++ {
		solved, err := database.ValidateNonce(leaves, nonce, difficulty)
		if err != nil {
			t.Fatalf("Should be able to check the nonce: %s", err)
		}

		if solved {
			if err := block.Seal(nonce); err != nil {
				t.Fatalf("Should be able to seal the block: %s", err)
			}
			return block
		}
	}
}

func newDB(t *testing.T) *database.Database {
	t.Helper()

	db := database.New(memory.New(), startingCredit)
	if err := db.Commit(database.NewGenesisBlock()); err != nil {
		t.Fatalf("Should be able to write the genesis block: %s", err)
	}

	return db
}

// =============================================================================

func Test_GenesisHash(t *testing.T) {
	const exp = "eb964b8804815047cbb9e7a9a10509d4a790c8bb09aaceaad98d9de3a0e80efe"

	if database.GenesisHash != exp {
		t.Logf("got: %s", database.GenesisHash)
		t.Logf("exp: %s", exp)
		t.Fatalf("Should get the well-known genesis hash.")
	}

	if !database.NewGenesisBlock().IsGenesis() {
		t.Fatalf("Should recognize the genesis block.")
	}
}

func Test_TransactionValidation(t *testing.T) {
	db := newDB(t)

	type table struct {
		name string
		tx   func() database.SignedTx
		err  error
	}

	tt := []table{
		{
			name: "valid",
			tx:   func() database.SignedTx { return sign(t, "alice", "bob", 10) },
		},
		{
			name: "insufficient",
			tx:   func() database.SignedTx { return sign(t, "alice", "bob", startingCredit+1) },
			err:  database.ErrInsufficientBalance,
		},
		{
			name: "tampered",
			tx: func() database.SignedTx {
				tx := sign(t, "alice", "bob", 10)
				tx.Amount = 20
				return tx
			},
			err: database.ErrSignature,
		},
		{
			name: "unsigned",
			tx: func() database.SignedTx {
				return database.SignedTx{Tx: database.Tx{Amount: 1, Source: "alice", Target: "bob"}}
			},
			err: database.ErrStructural,
		},
		{
			name: "no-target",
			tx: func() database.SignedTx {
				tx := sign(t, "alice", "bob", 10)
				tx.Target = ""
				return tx
			},
			err: database.ErrStructural,
		},
	}

	t.Log("Given the need to validate transactions.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling a %s transaction.", testID, tst.name)
				{
					err := tst.tx().Validate(db)
					if !errors.Is(err, tst.err) {
						t.Logf("\t\tTest %d:\tgot: %v", testID, err)
						t.Logf("\t\tTest %d:\texp: %v", testID, tst.err)
						t.Fatalf("\t%s\tTest %d:\tShould get back the expected error.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the expected error.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_BlockHash(t *testing.T) {
	t.Log("Given the need to hash blocks.")
	{
		t.Logf("\tTest 0:\tWhen handling an unmined block.")
		{
			block := database.NewBlock(database.GenesisHash, []database.SignedTx{sign(t, "alice", "bob", 10)})
			if _, err := block.Hash(); !errors.Is(err, database.ErrNoNonceYet) {
				t.Fatalf("\t%s\tTest 0:\tShould not hash a block without a nonce: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould not hash a block without a nonce.", success)
		}

		t.Logf("\tTest 1:\tWhen handling a mined block.")
		{
			block := mine(t, database.NewBlock(database.GenesisHash, []database.SignedTx{sign(t, "alice", "bob", 10)}))

			h1, _ := block.Hash()
			h2, _ := block.Hash()
			if h1 != h2 || h1 != block.SavedHash {
				t.Fatalf("\t%s\tTest 1:\tShould get a stable hash.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould get a stable hash.", success)

			changed := block
			changed.Trans = []database.SignedTx{sign(t, "alice", "bob", 11)}
			h3, _ := changed.Hash()
			if h3 == h1 {
				t.Fatalf("\t%s\tTest 1:\tShould get a different hash when the amount changes.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould get a different hash when the amount changes.", success)

			solved, _ := database.ValidateNonce(block.Leaves(), *block.Nonce, difficulty)
			again, _ := database.ValidateNonce(block.Leaves(), *block.Nonce, difficulty)
			if !solved || !again {
				t.Fatalf("\t%s\tTest 1:\tShould consistently accept the mined nonce.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould consistently accept the mined nonce.", success)

			if err := block.Validate(newDB(t), difficulty, noopEvents); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould validate the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould validate the block.", success)

			rt := database.ToBlock(database.NewBlockData(block))
			rh, _ := rt.Hash()
			if rh != h1 || rt.Validate(newDB(t), difficulty, noopEvents) != nil {
				t.Fatalf("\t%s\tTest 1:\tShould round trip through the persisted form.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould round trip through the persisted form.", success)
		}

		t.Logf("\tTest 2:\tWhen handling a corrupted block.")
		{
			block := mine(t, database.NewBlock(database.GenesisHash, []database.SignedTx{sign(t, "alice", "bob", 10)}))

			bad := block
			bad.SavedHash = "00" + block.SavedHash[2:]
			if bad.SavedHash == block.SavedHash {
				bad.SavedHash = "ff" + block.SavedHash[2:]
			}
			if err := bad.Validate(newDB(t), difficulty, noopEvents); !errors.Is(err, database.ErrHashMismatch) {
				t.Fatalf("\t%s\tTest 2:\tShould detect a hash mismatch: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould detect a hash mismatch.", success)

			if err := block.Validate(newDB(t), 64, noopEvents); !errors.Is(err, database.ErrProofOfWork) {
				t.Fatalf("\t%s\tTest 2:\tShould detect an unsolved nonce: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould detect an unsolved nonce.", success)
		}

		t.Logf("\tTest 3:\tWhen transactions in a block spend the same funds.")
		{
			overdraw := mine(t, database.NewBlock(database.GenesisHash, []database.SignedTx{
				sign(t, "alice", "bob", 60),
				sign(t, "alice", "carol", 60),
			}))
			if err := overdraw.Validate(newDB(t), difficulty, noopEvents); !errors.Is(err, database.ErrInsufficientBalance) {
				t.Fatalf("\t%s\tTest 3:\tShould reject the second spend: %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould reject the second spend.", success)

			chained := mine(t, database.NewBlock(database.GenesisHash, []database.SignedTx{
				sign(t, "alice", "bob", 60),
				sign(t, "bob", "carol", 150),
			}))
			if err := chained.Validate(newDB(t), difficulty, noopEvents); err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould let a transaction spend funds received earlier in the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould let a transaction spend funds received earlier in the block.", success)
		}
	}
}

func Test_Database(t *testing.T) {
	t.Log("Given the need to manage the chain.")
	{
		db := newDB(t)

		b1 := mine(t, database.NewBlock(database.GenesisHash, []database.SignedTx{sign(t, "alice", "bob", 10)}))
		b2 := mine(t, database.NewBlock(b1.SavedHash, []database.SignedTx{sign(t, "bob", "carol", 30)}))

		t.Logf("\tTest 0:\tWhen committing blocks.")
		{
			if err := db.Commit(b1, b2); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to commit blocks: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to commit blocks.", success)

			tip, _ := db.LatestHash()
			if tip != b2.SavedHash {
				t.Fatalf("\t%s\tTest 0:\tShould advance the tip to the last block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould advance the tip to the last block.", success)

			chain, err := db.Chain()
			if err != nil || len(chain) != 2 || chain[0].SavedHash != b1.SavedHash {
				t.Fatalf("\t%s\tTest 0:\tShould walk the chain oldest first: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould walk the chain oldest first.", success)
		}

		t.Logf("\tTest 1:\tWhen computing balances.")
		{
			exp := map[string]int64{"alice": 90, "bob": 80, "carol": 130, "dave": 100}
			for account, bal := range exp {
				got, err := db.Balance(database.AccountID(account))
				if err != nil || got != bal {
					t.Fatalf("\t%s\tTest 1:\tShould get balance %d for %s, got %d: %v", failed, bal, account, got, err)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould replay every block on top of the starting credit.", success)

			pending := database.Pending(db, b1)
			if got, _ := pending.Balance("alice"); got != 80 {
				t.Fatalf("\t%s\tTest 1:\tShould include pending blocks, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 1:\tShould include pending blocks.", success)
		}

		t.Logf("\tTest 2:\tWhen reading segments.")
		{
			seg, ok, err := db.Segment(b1.SavedHash)
			if err != nil || !ok || len(seg) != 1 || seg[0].SavedHash != b2.SavedHash {
				t.Fatalf("\t%s\tTest 2:\tShould get the blocks after the hash: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get the blocks after the hash.", success)

			seg, ok, _ = db.Segment(database.GenesisHash)
			if !ok || len(seg) != 2 {
				t.Fatalf("\t%s\tTest 2:\tShould get the whole chain after genesis.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould get the whole chain after genesis.", success)

			if _, ok, _ := db.Segment("unknown"); ok {
				t.Fatalf("\t%s\tTest 2:\tShould report an unknown hash.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould report an unknown hash.", success)
		}

		t.Logf("\tTest 3:\tWhen replacing the chain.")
		{
			f1 := mine(t, database.NewBlock(database.GenesisHash, []database.SignedTx{sign(t, "dave", "erin", 5)}))
			f2 := mine(t, database.NewBlock(f1.SavedHash, []database.SignedTx{sign(t, "erin", "frank", 1)}))
			f3 := mine(t, database.NewBlock(f2.SavedHash, nil))

			if err := db.Replace([]database.Block{f1, f2, f3}); err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould be able to replace the chain: %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould be able to replace the chain.", success)

			if exists, _ := db.Exists(b1.SavedHash); exists {
				t.Fatalf("\t%s\tTest 3:\tShould delete the stale blocks.", failed)
			}
			t.Logf("\t%s\tTest 3:\tShould delete the stale blocks.", success)

			if exists, _ := db.Exists(database.GenesisHash); !exists {
				t.Fatalf("\t%s\tTest 3:\tShould preserve genesis.", failed)
			}
			t.Logf("\t%s\tTest 3:\tShould preserve genesis.", success)

			if bal, _ := db.Balance("alice"); bal != startingCredit {
				t.Fatalf("\t%s\tTest 3:\tShould drop the effect of the stale blocks, got %d.", failed, bal)
			}
			t.Logf("\t%s\tTest 3:\tShould drop the effect of the stale blocks.", success)
		}
	}
}

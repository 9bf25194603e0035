// Package storagetest provides a contract test that every implementation of
// the database.Storage interface is expected to pass.
package storagetest

import (
	"errors"
	"slices"
	"testing"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Run exercises the storage contract against a fresh, empty storage.
func Run(t *testing.T, s database.Storage) {
	t.Helper()

	nonce := uint64(42)
	blk := database.BlockData{
		Hash:        "1111111111111111111111111111111111111111111111111111111111111111",
		Predecessor: database.GenesisHash,
		Trans:       []database.SignedTx{},
		Nonce:       &nonce,
	}

	t.Log("Given the need to store blocks and chain pointers.")
	{
		t.Logf("\tTest 0:\tWhen handling an empty storage.")
		{
			hash, err := s.ReadLatestHash()
			if err != nil || hash != "" {
				t.Fatalf("\t%s\tTest 0:\tShould get an empty tip: %q, %v", failed, hash, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get an empty tip.", success)

			if _, err := s.ReadBlock(blk.Hash); !errors.Is(err, database.ErrNotFound) {
				t.Fatalf("\t%s\tTest 0:\tShould get not found for a missing block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get not found for a missing block.", success)

			if _, ok, err := s.ReadStartNonce(); ok || err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould have no start nonce checkpoint: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould have no start nonce checkpoint.", success)
		}

		t.Logf("\tTest 1:\tWhen writing and reading a block.")
		{
			if err := s.WriteBlock(blk); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to write the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to write the block.", success)

			got, err := s.ReadBlock(blk.Hash)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to read the block: %v", failed, err)
			}
			if got.Hash != blk.Hash || got.Predecessor != blk.Predecessor || got.Nonce == nil || *got.Nonce != nonce {
				t.Logf("\t\tTest 1:\tgot: %+v", got)
				t.Logf("\t\tTest 1:\texp: %+v", blk)
				t.Fatalf("\t%s\tTest 1:\tShould read back the same block.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould read back the same block.", success)

			hashes, err := s.ListBlockHashes()
			if err != nil || !slices.Equal(hashes, []string{blk.Hash}) {
				t.Fatalf("\t%s\tTest 1:\tShould list the block: %v, %v", failed, hashes, err)
			}
			t.Logf("\t%s\tTest 1:\tShould list the block.", success)

			if err := s.DeleteBlock(blk.Hash); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to delete the block: %v", failed, err)
			}
			if _, err := s.ReadBlock(blk.Hash); !errors.Is(err, database.ErrNotFound) {
				t.Fatalf("\t%s\tTest 1:\tShould not find a deleted block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to delete the block.", success)
		}

		t.Logf("\tTest 2:\tWhen handling the chain pointers.")
		{
			if err := s.WriteLatestHash(blk.Hash); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to write the tip: %v", failed, err)
			}
			if hash, err := s.ReadLatestHash(); err != nil || hash != blk.Hash {
				t.Fatalf("\t%s\tTest 2:\tShould read back the tip: %q, %v", failed, hash, err)
			}
			t.Logf("\t%s\tTest 2:\tShould read back the tip.", success)

			for _, n := range []uint64{7, 3, 9} {
				if err := s.AppendNonce(n); err != nil {
					t.Fatalf("\t%s\tTest 2:\tShould be able to append a nonce: %v", failed, err)
				}
			}
			nonces, err := s.ReadNonceHistory()
			if err != nil || !slices.Equal(nonces, []uint64{7, 3, 9}) {
				t.Fatalf("\t%s\tTest 2:\tShould read the nonces in append order: %v, %v", failed, nonces, err)
			}
			t.Logf("\t%s\tTest 2:\tShould read the nonces in append order.", success)

			if err := s.WriteStartNonce(1234); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to write the checkpoint: %v", failed, err)
			}
			if n, ok, err := s.ReadStartNonce(); err != nil || !ok || n != 1234 {
				t.Fatalf("\t%s\tTest 2:\tShould read back the checkpoint: %d, %v", failed, n, err)
			}
			t.Logf("\t%s\tTest 2:\tShould read back the checkpoint.", success)
		}
	}
}

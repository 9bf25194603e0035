package mining_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/mining"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// history is an in-memory nonce history.
type history struct {
	nonces     []uint64
	start      uint64
	startSaved bool
}

func (h *history) NonceHistory() ([]uint64, error) { return slices.Clone(h.nonces), nil }
func (h *history) AppendNonce(n uint64) error      { h.nonces = append(h.nonces, n); return nil }
func (h *history) StartNonce() (uint64, bool, error) {
	return h.start, h.startSaved, nil
}
func (h *history) WriteStartNonce(n uint64) error {
	h.start, h.startSaved = n, true
	return nil
}

func proofOfWork(difficulty uint) mining.SolvedFunc {
	leaves := []string{`{"amount":10,"source":"alice","target":"bob","timestamp":1700000000}`}

	return func(nonce uint64) bool {
		ok, _ := database.ValidateNonce(leaves, nonce, difficulty)
		return ok
	}
}

// =============================================================================

func TestStrategies(t *testing.T) {
	const difficulty = 2

	type table struct {
		name     string
		strategy mining.Strategy
	}

	tt := []table{
		{name: "bruteforce", strategy: mining.Bruteforce{}},
		{name: "nonce-skip", strategy: mining.NonceSkip{History: &history{}, Start: mining.KMeans{}}},
		{name: "bitshift", strategy: mining.Bitshift{}},
		{name: "parallel", strategy: mining.Parallel{Workers: 4}},
	}

	solved := proofOfWork(difficulty)

	t.Log("Given the need to find a nonce that solves the proof of work.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen using the %s strategy.", testID, tst.name)
				{
					res, err := tst.strategy.Mine(context.Background(), solved)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to mine: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to mine.", success, testID)

					if !solved(res.Nonce) {
						t.Fatalf("\t%s\tTest %d:\tShould return a nonce that solves the difficulty: %d", failed, testID, res.Nonce)
					}
					t.Logf("\t%s\tTest %d:\tShould return a nonce that solves the difficulty.", success, testID)

					if res.Attempts == 0 {
						t.Fatalf("\t%s\tTest %d:\tShould report the attempts made.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould report the attempts made.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func TestCancellation(t *testing.T) {
	never := func(uint64) bool { return false }

	strategies := map[string]mining.Strategy{
		"bruteforce": mining.Bruteforce{},
		"nonce-skip": mining.NonceSkip{History: &history{}},
		"bitshift":   mining.Bitshift{},
		"parallel":   mining.Parallel{Workers: 3},
	}

	for name, strategy := range strategies {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := strategy.Mine(ctx, never); !errors.Is(err, context.Canceled) {
			t.Fatalf("%s: Should stop when the context is cancelled, got: %v", name, err)
		}
	}
}

func TestBruteforceFirst(t *testing.T) {
	res, err := mining.Bruteforce{}.Mine(context.Background(), func(n uint64) bool { return n >= 17 })
	if err != nil {
		t.Fatalf("Should be able to mine: %s", err)
	}

	if res.Nonce != 17 || res.Attempts != 18 {
		t.Fatalf("Should find the smallest nonce, got %d after %d attempts.", res.Nonce, res.Attempts)
	}
}

func TestBitshiftOrder(t *testing.T) {
	var tried []uint64
	solved := func(n uint64) bool {
		tried = append(tried, n)
		return n == 16500
	}

	res, err := mining.Bitshift{}.Mine(context.Background(), solved)
	if err != nil {
		t.Fatalf("Should be able to mine: %s", err)
	}

	if res.Nonce != 16500 {
		t.Fatalf("Should find the halved base, got %d.", res.Nonce)
	}

	if tried[0] != 33000 || tried[1] != 66000 {
		t.Fatalf("Should start by doubling the base, got %v.", tried[:2])
	}

	if top := tried[len(tried)-2]; top > mining.MaxNonce || top*2 <= mining.MaxNonce {
		t.Fatalf("Should double up to the bound before halving, got %d.", top)
	}
}

func TestBitshiftSkipsTried(t *testing.T) {
	seen := make(map[uint64]bool)
	solved := func(n uint64) bool {
		if seen[n] {
			t.Fatalf("Should not try nonce %d twice.", n)
		}
		seen[n] = true
		return n == 33001*4
	}

	if _, err := (mining.Bitshift{}).Mine(context.Background(), solved); err != nil {
		t.Fatalf("Should be able to mine: %s", err)
	}
}

func TestNonceSkip(t *testing.T) {
	h := history{nonces: []uint64{5}}
	ns := mining.NonceSkip{History: &h, Start: mining.KMeans{}}

	res, err := ns.Mine(context.Background(), func(n uint64) bool { return n >= 5 })
	if err != nil {
		t.Fatalf("Should be able to mine: %s", err)
	}

	if res.Nonce != 6 || res.Attempts != 6 {
		t.Fatalf("Should skip the used nonce, got %d after %d attempts.", res.Nonce, res.Attempts)
	}

	if !slices.Equal(h.nonces, []uint64{5, 6}) {
		t.Fatalf("Should append the found nonce to the history, got %v.", h.nonces)
	}
}

func TestNonceSkipCheckpoint(t *testing.T) {
	h := history{start: 1000, startSaved: true}
	ns := mining.NonceSkip{History: &h, Start: mining.KMeans{}}

	res, err := ns.Mine(context.Background(), func(n uint64) bool { return n%2 == 1 })
	if err != nil {
		t.Fatalf("Should be able to mine: %s", err)
	}

	if res.Nonce != 1001 {
		t.Fatalf("Should start from the checkpoint, got %d.", res.Nonce)
	}
}

func TestKMeans(t *testing.T) {
	hist := []uint64{
		10004, 100, 1003, 101, 10000,
		102, 1000, 10001, 103, 1001,
		104, 10002, 1002, 1004, 10003,
	}

	t.Log("Given the need to compute a start nonce from the history.")
	{
		t.Logf("\tTest 0:\tWhen the history holds 15 nonces in 3 groups.")
		{
			start, ok := mining.KMeans{}.StartNonce(hist)
			if !ok {
				t.Fatalf("\t%s\tTest 0:\tShould compute a start nonce.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould compute a start nonce.", success)

			if start != 101 {
				t.Fatalf("\t%s\tTest 0:\tShould get the midpoint of the lowest centroid and the minimum, got %d.", failed, start)
			}
			t.Logf("\t%s\tTest 0:\tShould get the midpoint of the lowest centroid and the minimum.", success)
		}

		t.Logf("\tTest 1:\tWhen the history is not at a recompute point.")
		{
			if _, ok := (mining.KMeans{}).StartNonce(append(hist, 5)); ok {
				t.Fatalf("\t%s\tTest 1:\tShould reuse the checkpoint for 16 nonces.", failed)
			}
			if _, ok := (mining.KMeans{}).StartNonce(hist[:10]); ok {
				t.Fatalf("\t%s\tTest 1:\tShould reuse the checkpoint below 15 nonces.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reuse the checkpoint.", success)
		}
	}
}

func TestParallel(t *testing.T) {
	t.Log("Given the need to mine with several workers.")
	{
		t.Logf("\tTest 0:\tWhen the quota is exhausted.")
		{
			p := mining.Parallel{Workers: 4, Target: 100}
			res, err := p.Mine(context.Background(), func(uint64) bool { return false })
			if !errors.Is(err, mining.ErrNonceNotFound) {
				t.Fatalf("\t%s\tTest 0:\tShould report nonce not found: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould report nonce not found.", success)

			if res.Attempts != 4*(100/4+1) {
				t.Fatalf("\t%s\tTest 0:\tShould try the full quota of every worker, got %d.", failed, res.Attempts)
			}
			t.Logf("\t%s\tTest 0:\tShould try the full quota of every worker.", success)
		}

		t.Logf("\tTest 1:\tWhen the solution lives in one stride.")
		{
			p := mining.Parallel{Workers: 4, Target: 1000}
			res, err := p.Mine(context.Background(), func(n uint64) bool { return n == 402 })
			if err != nil || res.Nonce != 402 {
				t.Fatalf("\t%s\tTest 1:\tShould find the nonce in worker 2's stride: %d, %v", failed, res.Nonce, err)
			}
			t.Logf("\t%s\tTest 1:\tShould find the nonce in worker 2's stride.", success)
		}
	}
}

func TestRetrieve(t *testing.T) {
	for _, name := range []string{mining.StrategyBruteforce, mining.StrategyBitshift, mining.StrategyParallel} {
		if _, err := mining.Retrieve(name, nil); err != nil {
			t.Fatalf("Should retrieve strategy %s: %s", name, err)
		}
	}

	if _, err := mining.Retrieve(mining.StrategyNonceSkip, nil); err == nil {
		t.Fatalf("Should require a history for nonce-skip.")
	}

	if _, err := mining.Retrieve(mining.StrategyNonceSkip, &history{}); err != nil {
		t.Fatalf("Should retrieve nonce-skip with a history: %s", err)
	}

	if _, err := mining.Retrieve("unknown", nil); err == nil {
		t.Fatalf("Should reject an unknown strategy.")
	}
}

// Package mining provides the different nonce search strategies used to
// solve the proof of work for a block.
package mining

import (
	"context"
	"errors"
	"fmt"
)

// MaxNonce is the upper bound of the nonce space searched by the bounded
// strategies.
const MaxNonce uint64 = 1 << 32

// ErrNonceNotFound is returned when a strategy exhausts its search space.
// This is a normal outcome of mining, not a failure of the node.
var ErrNonceNotFound = errors.New("nonce not found")

// List of different mining strategies.
const (
	StrategyBruteforce = "bruteforce"
	StrategyNonceSkip  = "nonce-skip"
	StrategyBitshift   = "bitshift"
	StrategyParallel   = "parallel"
)

// SolvedFunc reports whether the nonce satisfies the proof of work for the
// block being mined. It must be safe for concurrent use.
type SolvedFunc func(nonce uint64) bool

// Result is the outcome of a successful search.
type Result struct {
	Nonce    uint64
	Attempts uint64
}

// Strategy defines the behavior of a nonce search. Every implementation
// checks the context before each attempt so cancellation takes effect
// within one hash computation.
type Strategy interface {
	Mine(ctx context.Context, solved SolvedFunc) (Result, error)
}

// Retrieve returns the specified mining strategy. The history is required
// by the nonce-skip strategy only.
func Retrieve(strategy string, history History) (Strategy, error) {
	switch strategy {
	case StrategyBruteforce:
		return Bruteforce{}, nil

	case StrategyNonceSkip:
		if history == nil {
			return nil, fmt.Errorf("strategy %q requires a nonce history", strategy)
		}
		return NonceSkip{History: history, Start: KMeans{}}, nil

	case StrategyBitshift:
		return Bitshift{}, nil

	case StrategyParallel:
		return Parallel{}, nil
	}

	return nil, fmt.Errorf("strategy %q does not exist", strategy)
}

// =============================================================================

// Bruteforce scans the nonce space sequentially starting at zero.
type Bruteforce struct{}

// Mine implements the Strategy interface.
func (Bruteforce) Mine(ctx context.Context, solved SolvedFunc) (Result, error) {
	var attempts uint64

	for nonce := uint64(0); nonce <= MaxNonce; nonce++ {
		if err := ctx.Err(); err != nil {
			return Result{Attempts: attempts}, err
		}

		attempts++
		if solved(nonce) {
			return Result{Nonce: nonce, Attempts: attempts}, nil
		}
	}

	return Result{Attempts: attempts}, ErrNonceNotFound
}

package mining

import (
	"context"
	"fmt"
)

// History provides access to the persisted nonces found by previous mining
// operations and the start nonce checkpoint derived from them.
type History interface {
	NonceHistory() ([]uint64, error)
	AppendNonce(nonce uint64) error
	StartNonce() (uint64, bool, error)
	WriteStartNonce(nonce uint64) error
}

// StartNoncer decides where a nonce-skip search begins. When it returns
// false the last checkpoint is reused.
type StartNoncer interface {
	StartNonce(history []uint64) (uint64, bool)
}

// NonceSkip searches upward from a start nonce derived from the history of
// previously found nonces, skipping any nonce already present in it.
type NonceSkip struct {
	History History
	Start   StartNoncer
}

// Mine implements the Strategy interface.
func (ns NonceSkip) Mine(ctx context.Context, solved SolvedFunc) (Result, error) {
	history, err := ns.History.NonceHistory()
	if err != nil {
		return Result{}, fmt.Errorf("nonce history: %w", err)
	}

	start, err := ns.startNonce(history)
	if err != nil {
		return Result{}, err
	}

	used := make(map[uint64]struct{}, len(history))
	for _, n := range history {
		if n >= start {
			used[n] = struct{}{}
		}
	}

	var attempts uint64
	for nonce := start; nonce <= MaxNonce; nonce++ {
		if err := ctx.Err(); err != nil {
			return Result{Attempts: attempts}, err
		}

		if _, exists := used[nonce]; exists {
			continue
		}

		attempts++
		if solved(nonce) {
			if err := ns.History.AppendNonce(nonce); err != nil {
				return Result{}, fmt.Errorf("append nonce: %w", err)
			}
			return Result{Nonce: nonce, Attempts: attempts}, nil
		}
	}

	return Result{Attempts: attempts}, ErrNonceNotFound
}

// startNonce recomputes the start nonce when the heuristic asks for it and
// otherwise falls back to the last checkpoint.
func (ns NonceSkip) startNonce(history []uint64) (uint64, error) {
	if ns.Start != nil {
		if start, ok := ns.Start.StartNonce(history); ok {
			if err := ns.History.WriteStartNonce(start); err != nil {
				return 0, fmt.Errorf("write start nonce: %w", err)
			}
			return start, nil
		}
	}

	start, _, err := ns.History.StartNonce()
	if err != nil {
		return 0, fmt.Errorf("read start nonce: %w", err)
	}

	return start, nil
}

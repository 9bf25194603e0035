package mining

import "context"

// Range of base values explored by the bitshift strategy.
const (
	bitshiftFirstBase uint64 = 33000
	bitshiftLastBase  uint64 = 130000
)

// Bitshift covers a wide numeric range with few attempts. For each base
// value it tries the base doubled repeatedly up to MaxNonce and then halved
// repeatedly down to 1. Nonces already tried for an earlier base are
// skipped. When a base is exhausted the next base is used.
type Bitshift struct{}

// Mine implements the Strategy interface.
func (Bitshift) Mine(ctx context.Context, solved SolvedFunc) (Result, error) {
	tried := make(map[uint64]struct{})
	var attempts uint64

	try := func(nonce uint64) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		if _, exists := tried[nonce]; exists {
			return false, nil
		}
		tried[nonce] = struct{}{}

		attempts++
		return solved(nonce), nil
	}

	for base := bitshiftFirstBase; base <= bitshiftLastBase; base++ {
		for nonce := base; nonce <= MaxNonce; nonce <<= 1 {
			ok, err := try(nonce)
			if err != nil {
				return Result{Attempts: attempts}, err
			}
			if ok {
				return Result{Nonce: nonce, Attempts: attempts}, nil
			}
		}

		for nonce := base >> 1; nonce >= 1; nonce >>= 1 {
			ok, err := try(nonce)
			if err != nil {
				return Result{Attempts: attempts}, err
			}
			if ok {
				return Result{Nonce: nonce, Attempts: attempts}, nil
			}
		}
	}

	return Result{Attempts: attempts}, ErrNonceNotFound
}

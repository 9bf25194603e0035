package mining

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// Parallel splits the nonce space into interleaved strides, one per worker.
// Worker i tries i, i+W, i+2W and so on. The first worker to find a nonce
// wins and the others are cancelled. Because several nonces can solve the
// same block, which one is returned depends on the worker count and on
// scheduling, and is not reproducible across runs.
type Parallel struct {
	Workers int    // Defaults to the number of CPUs.
	Target  uint64 // Size of the nonce space searched. Defaults to MaxNonce.
}

// Mine implements the Strategy interface.
func (p Parallel) Mine(ctx context.Context, solved SolvedFunc) (Result, error) {
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	target := p.Target
	if target == 0 {
		target = MaxNonce
	}

	quota := target/uint64(workers) + 1
	step := uint64(workers)

	// Channel to receive the winning nonce. First writer wins.
	resultChan := make(chan uint64, 1)
	mineCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var attempts atomic.Uint64
	var wg sync.WaitGroup

	wg.Add(workers)
	for w := range workers {
		go func(workerID uint64) {
			defer wg.Done()

			nonce := workerID
			for range quota {
				if mineCtx.Err() != nil {
					return
				}

				attempts.Add(1)
				if solved(nonce) {
					select {
					case resultChan <- nonce:
					default:
					}
					cancel()
					return
				}

				nonce += step
			}
		}(uint64(w))
	}

	// Close done once every worker has returned so an exhausted search
	// can be told apart from one still running.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case nonce := <-resultChan:
		cancel()
		<-done
		return Result{Nonce: nonce, Attempts: attempts.Load()}, nil

	case <-done:
		select {
		case nonce := <-resultChan:
			return Result{Nonce: nonce, Attempts: attempts.Load()}, nil
		default:
		}

		if err := ctx.Err(); err != nil {
			return Result{Attempts: attempts.Load()}, err
		}
		return Result{Attempts: attempts.Load()}, ErrNonceNotFound
	}
}

package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/mining"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
)

// miningOperations runs one mining round per start signal until the worker
// shuts down. A round that leaves transactions behind signals the next one,
// unless mining is paused or the nonce space ran out for this set.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if w.isShutdown() {
				continue
			}

			if w.paused.Load() {
				w.evHandler("worker: miningOperations: MINING: paused: signal ignored")
				continue
			}

			err := w.mineRound()

			switch {
			case w.isShutdown():
			case w.paused.Load():
				w.evHandler("worker: miningOperations: MINING: paused: waiting on next admission")
			case errors.Is(err, mining.ErrNonceNotFound):
				w.evHandler("worker: miningOperations: MINING: waiting on next admission")
			default:
				if n := w.state.MempoolLength(); n > 0 {
					w.evHandler("worker: miningOperations: MINING: txs left[%d]: signal next round", n)
					w.startNext()
				}
			}

		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// mineRound mines one block from the best transactions in the mempool. A
// cancel request or a shutdown stops the search, and the round doesn't end until the
// requester calls done, so the requester's commit lands before the next
// round reads the tip.
func (w *Worker) mineRound() error {
	w.evHandler("worker: mineRound: MINING: started")
	defer w.evHandler("worker: mineRound: MINING: completed")

	if w.state.MempoolLength() == 0 {
		w.evHandler("worker: mineRound: MINING: nothing to mine")
		return nil
	}

	// A request left over from a round that already ended is stale.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: mineRound: MINING: dropped stale cancel request")
	default:
	}

	w.mining.Store(true)
	defer w.mining.Store(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The watcher hands back the requester's wait channel, or nil when the
	// round ended on its own.
	requested := make(chan chan struct{}, 1)
	go func() {
		select {
		case wait := <-w.cancelMining:
			w.evHandler("worker: mineRound: MINING: CANCEL: requested")
			cancel()
			requested <- wait
		case <-w.shut:
			w.evHandler("worker: mineRound: MINING: CANCEL: shutdown")
			cancel()
			requested <- nil
		case <-ctx.Done():
			requested <- nil
		}
	}()

	start := time.Now()
	block, err := w.state.MineNewBlock(ctx)
	elapsed := time.Since(start)

	cancel()
	wait := <-requested

	w.report(block, err, wait != nil, elapsed)

	if wait != nil {
		w.evHandler("worker: mineRound: MINING: CANCEL: waiting on requester")
		<-wait
		w.evHandler("worker: mineRound: MINING: CANCEL: released")
	}

	return err
}

// report logs the outcome of a mining round.
func (w *Worker) report(block database.Block, err error, cancelled bool, elapsed time.Duration) {
	switch {
	case err == nil:
		w.evHandler("worker: mineRound: MINING: blk[%s]: trans[%d]: duration[%v]", block.SavedHash, len(block.Trans), elapsed)

	case errors.Is(err, state.ErrNoTransactions):
		w.evHandler("worker: mineRound: MINING: WARNING: mempool drained before the round started")

	case errors.Is(err, mining.ErrNonceNotFound):
		w.evHandler("worker: mineRound: MINING: WARNING: nonce space exhausted: duration[%v]", elapsed)

	case errors.Is(err, state.ErrChainMoved):
		w.evHandler("worker: mineRound: MINING: WARNING: tip moved, block discarded: duration[%v]", elapsed)

	case cancelled:
		w.evHandler("worker: mineRound: MINING: CANCEL: complete: duration[%v]", elapsed)

	default:
		w.evHandler("worker: mineRound: MINING: ERROR: %s", err)
	}
}

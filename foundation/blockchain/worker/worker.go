// Package worker implements mining, peer synchronization and vote expiry
// for the blockchain.
package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/state"
)

// Set of default intervals used when the config leaves them unset.
const (
	defaultSyncInterval   = time.Minute
	defaultExpireInterval = time.Second
)

// Config represents the settings for the background operations.
type Config struct {
	SyncInterval   time.Duration
	ExpireInterval time.Duration
}

// =============================================================================

// Worker manages the POW workflows for the blockchain.
type Worker struct {
	state        *state.State
	wg           sync.WaitGroup
	syncTicker   *time.Ticker
	expireTicker *time.Ticker
	shut         chan struct{}
	startMining  chan bool
	cancelMining chan chan struct{}
	mining       atomic.Bool
	paused       atomic.Bool
	evHandler    state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, cfg Config, evHandler state.EventHandler) *Worker {
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = defaultSyncInterval
	}
	if cfg.ExpireInterval <= 0 {
		cfg.ExpireInterval = defaultExpireInterval
	}
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	w := Worker{
		state:        st,
		syncTicker:   time.NewTicker(cfg.SyncInterval),
		expireTicker: time.NewTicker(cfg.ExpireInterval),
		shut:         make(chan struct{}),
		startMining:  make(chan bool, 1),
		cancelMining: make(chan chan struct{}, 1),
		evHandler:    evHandler,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Update this node before starting any support G's.
	w.Sync()

	// Load the set of operations we need to run.
	operations := []func(){
		w.syncOperations,
		w.miningOperations,
		w.expireOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// Run returns once every operation G is up.
	started := make(chan struct{})
	for _, op := range operations {
		go func() {
			defer w.wg.Done()
			started <- struct{}{}
			op()
		}()
	}
	for range g {
		<-started
	}

	// Transactions admitted before the worker existed are mined now.
	w.SignalStartMining()

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown stops the tickers, cancels the round in flight and waits for
// every operation G to return.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop tickers")
	w.syncTicker.Stop()
	w.expireTicker.Stop()

	// Closing shut also cancels the mining round in flight.
	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining requests a mining round and lifts a pause. Requests
// collapse into one while a signal is already pending.
func (w *Worker) SignalStartMining() {
	w.paused.Store(false)

	select {
	case w.startMining <- true:
	default:
	}
	w.evHandler("worker: SignalStartMining: mining signaled")
}

// SignalCancelMining stops the mining round in flight. The round holds
// until done is called, so the caller can commit a block received from a
// peer before the next round reads the tip.
func (w *Worker) SignalCancelMining() (done func()) {
	wait := make(chan struct{})

	select {
	case w.cancelMining <- wait:
	default:
	}
	w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled")

	return func() { close(wait) }
}

// PauseMining stops the round in flight and holds further rounds until
// the next start signal.
func (w *Worker) PauseMining() {
	w.paused.Store(true)

	done := w.SignalCancelMining()
	done()

	w.evHandler("worker: PauseMining: MINING: paused")
}

// IsMining reports whether a mining operation is in flight.
func (w *Worker) IsMining() bool {
	return w.mining.Load()
}

// Sync asks every connected peer for the blocks after the local tip.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	for _, peerID := range w.state.Peers() {
		if err := w.state.RequestBlocks(peerID); err != nil {
			w.evHandler("worker: sync: requestBlocks: %s: ERROR: %s", peerID, err)
		}
	}
}

// =============================================================================

// startNext queues the next round without lifting a pause.
func (w *Worker) startNext() {
	select {
	case w.startMining <- true:
	default:
	}
}

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}

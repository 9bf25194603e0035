// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/mempool"
	"github.com/ardanlabs/powchain/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/powchain/foundation/blockchain/mining"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
	"github.com/ardanlabs/powchain/foundation/blockchain/vote"
)

// Set of errors returned by the state package.
var (
	ErrNoTransactions = errors.New("no transactions in mempool")
	ErrNoGenesis      = errors.New("genesis block has not been created")
	ErrChainMoved     = errors.New("chain tip moved while mining")
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining and peer synchronization.
type Worker interface {
	Shutdown()
	Sync()
	SignalStartMining()
	SignalCancelMining() (done func())
	PauseMining()
	IsMining() bool
}

// Network interface represents the behavior required to be implemented by
// any package providing the transport between peers. Peers are identified
// by the host string of their connection.
type Network interface {
	Send(peerID string, msg peer.Message) error
	Broadcast(msg peer.Message, except string)
	Peers() []string
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Host           string
	Database       *database.Database
	Genesis        genesis.Genesis
	MiningWorkers  int
	Strategy       mining.Strategy
	SelectStrategy string
	VoteTimeout    time.Duration
	VotePolicy     vote.Policy
	EvHandler      EventHandler
}

// State manages the blockchain database.
type State struct {
	mu sync.Mutex

	host      string
	evHandler EventHandler
	strategy  mining.Strategy

	genesis     genesis.Genesis
	db          *database.Database
	mempool     *mempool.Mempool
	coordinator *vote.Coordinator
	participant *vote.Participant

	netMu   sync.RWMutex
	network Network

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	// A configured strategy replaces the one named by the genesis. The
	// database doubles as the nonce history for the nonce-skip strategy.
	strategy := cfg.Strategy
	if strategy == nil {
		var err error
		strategy, err = mining.Retrieve(cfg.Genesis.MiningStrategy, cfg.Database)
		if err != nil {
			return nil, err
		}
		if _, ok := strategy.(mining.Parallel); ok {
			strategy = mining.Parallel{Workers: cfg.MiningWorkers}
		}
	}

	selectStrategy := cfg.SelectStrategy
	if selectStrategy == "" {
		selectStrategy = selector.StrategyOldest
	}
	mp, err := mempool.NewWithStrategy(selectStrategy)
	if err != nil {
		return nil, err
	}

	policy := cfg.VotePolicy
	if policy == nil {
		policy = vote.ValidateWith(cfg.Database)
	}

	state := State{
		host:      cfg.Host,
		evHandler: ev,
		strategy:  strategy,

		genesis:     cfg.Genesis,
		db:          cfg.Database,
		mempool:     mp,
		coordinator: vote.NewCoordinator(cfg.VoteTimeout),
		participant: vote.NewParticipant(policy),

		network: nopNetwork{},
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// SetNetwork registers the transport used to reach the peers. The
// transport needs the state to dispatch inbound messages, so it's
// constructed after the state and registered here.
func (s *State) SetNetwork(network Network) {
	s.netMu.Lock()
	defer s.netMu.Unlock()

	s.network = network
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	// Make sure the database file is properly closed.
	return s.db.Close()
}

// =============================================================================

// net returns the registered transport.
func (s *State) net() Network {
	s.netMu.RLock()
	defer s.netMu.RUnlock()

	return s.network
}

// signalCancelMining asks the worker to stop any mining in flight. The
// returned function must be called once the caller's state changes are done.
func (s *State) signalCancelMining() (done func()) {
	if s.Worker == nil {
		return func() {}
	}

	return s.Worker.SignalCancelMining()
}

// signalStartMining asks the worker to mine the mempool.
func (s *State) signalStartMining() {
	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}
}

// =============================================================================

// nopNetwork is used until a transport is registered.
type nopNetwork struct{}

func (nopNetwork) Send(peerID string, msg peer.Message) error { return nil }
func (nopNetwork) Broadcast(msg peer.Message, except string)  {}
func (nopNetwork) Peers() []string                            { return nil }

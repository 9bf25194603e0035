// Package vote implements the two round protocol that decides whether a
// transaction is admitted into the mempool. The coordinator asks every peer
// to vote and broadcasts the unanimous AND of the votes as the decision.
package vote

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/google/uuid"
)

// Set of errors returned when recording votes.
var (
	ErrUnknownRound = errors.New("unknown voting round")
	ErrUnknownPeer  = errors.New("peer is not part of the voting round")
)

// State represents the vote held for a peer in a round.
type State int

// Set of vote states.
const (
	NotVoted State = iota
	Yes
	No
)

// String implements the fmt.Stringer interface.
func (s State) String() string {
	switch s {
	case Yes:
		return "true"
	case No:
		return "false"
	}
	return "not-voted"
}

// Decision is the outcome of a voting round.
type Decision struct {
	RoundID string
	Tx      database.SignedTx
	Valid   bool
	Expired bool
}

// =============================================================================

type round struct {
	tx       database.SignedTx
	votes    map[string]State
	deadline time.Time
}

// Coordinator tracks the voting rounds started by this node.
type Coordinator struct {
	mu      sync.Mutex
	rounds  map[string]*round
	timeout time.Duration
}

// NewCoordinator constructs a coordinator. Rounds that have not collected
// every vote after the timeout are decided false by Expire. A zero timeout
// disables expiry, so a peer that never votes stalls its round.
func NewCoordinator(timeout time.Duration) *Coordinator {
	return &Coordinator{
		rounds:  make(map[string]*round),
		timeout: timeout,
	}
}

// Propose starts a round for the transaction with one not-voted entry per
// peer. When there are no peers the round is decided true immediately and
// the decision is returned with a true bool.
func (c *Coordinator) Propose(tx database.SignedTx, peers []string) (string, Decision, bool) {
	roundID := uuid.NewString()

	if len(peers) == 0 {
		return roundID, Decision{RoundID: roundID, Tx: tx, Valid: true}, true
	}

	r := round{
		tx:    tx,
		votes: make(map[string]State, len(peers)),
	}
	if c.timeout > 0 {
		r.deadline = time.Now().Add(c.timeout)
	}
	for _, peer := range peers {
		r.votes[peer] = NotVoted
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.rounds[roundID] = &r

	return roundID, Decision{}, false
}

// Record stores the vote of the peer. Once every peer has voted the round
// is removed and the decision is returned with a true bool.
func (c *Coordinator) Record(roundID string, peer string, valid bool) (Decision, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, exists := c.rounds[roundID]
	if !exists {
		return Decision{}, false, fmt.Errorf("round %s: %w", roundID, ErrUnknownRound)
	}

	if _, exists := r.votes[peer]; !exists {
		return Decision{}, false, fmt.Errorf("round %s: peer %s: %w", roundID, peer, ErrUnknownPeer)
	}

	r.votes[peer] = No
	if valid {
		r.votes[peer] = Yes
	}

	decision := Decision{RoundID: roundID, Tx: r.tx, Valid: true}
	for _, state := range r.votes {
		switch state {
		case NotVoted:
			return Decision{}, false, nil
		case No:
			decision.Valid = false
		}
	}

	delete(c.rounds, roundID)

	return decision, true, nil
}

// Expire decides false every round whose deadline has passed and removes it.
func (c *Coordinator) Expire(now time.Time) []Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	var decisions []Decision
	for roundID, r := range c.rounds {
		if r.deadline.IsZero() || now.Before(r.deadline) {
			continue
		}

		decisions = append(decisions, Decision{RoundID: roundID, Tx: r.tx, Expired: true})
		delete(c.rounds, roundID)
	}

	return decisions
}

// Votes returns a copy of the ledger of the specified round.
func (c *Coordinator) Votes(roundID string) map[string]State {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, exists := c.rounds[roundID]
	if !exists {
		return nil
	}

	votes := make(map[string]State, len(r.votes))
	for peer, state := range r.votes {
		votes[peer] = state
	}

	return votes
}

// Pending returns the number of rounds still collecting votes.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.rounds)
}

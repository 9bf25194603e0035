package vote

import (
	"sync"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// Policy decides locally whether a transaction may be admitted.
type Policy func(tx database.SignedTx) bool

// AcceptAll is a policy that votes true for every transaction.
func AcceptAll(database.SignedTx) bool {
	return true
}

// ValidateWith returns a policy that votes true when the transaction
// validates against the balance oracle.
func ValidateWith(oracle database.BalanceOracle) Policy {
	return func(tx database.SignedTx) bool {
		return tx.Validate(oracle) == nil
	}
}

// =============================================================================

// Participant tracks the rounds this node was asked to vote on.
type Participant struct {
	mu            sync.Mutex
	policy        Policy
	conversations map[string]database.SignedTx
}

// NewParticipant constructs a participant that votes using the policy.
func NewParticipant(policy Policy) *Participant {
	if policy == nil {
		policy = AcceptAll
	}

	return &Participant{
		policy:        policy,
		conversations: make(map[string]database.SignedTx),
	}
}

// Prepare records the round and returns this node's vote.
func (p *Participant) Prepare(roundID string, tx database.SignedTx) bool {
	p.mu.Lock()
	p.conversations[roundID] = tx
	p.mu.Unlock()

	return p.policy(tx)
}

// Apply clears the round and returns its transaction. The bool is true only
// when the round was known and the decision admits the transaction.
func (p *Participant) Apply(roundID string, valid bool) (database.SignedTx, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tx, exists := p.conversations[roundID]
	delete(p.conversations, roundID)

	return tx, exists && valid
}

// Pending returns the number of rounds waiting for a decision.
func (p *Participant) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.conversations)
}

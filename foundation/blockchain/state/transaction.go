package state

import (
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
	"github.com/ardanlabs/powchain/foundation/blockchain/vote"
)

// SubmitTransaction validates the transaction locally and starts a voting
// round with the connected peers to admit it into the mempool. With no
// peers the transaction is admitted right away.
func (s *State) SubmitTransaction(tx database.SignedTx) (string, error) {
	s.evHandler("state: SubmitTransaction: started: tx[%s]", tx)
	defer s.evHandler("state: SubmitTransaction: completed")

	if err := tx.Validate(s.db); err != nil {
		return "", err
	}

	peers := s.net().Peers()
	roundID, decision, decided := s.coordinator.Propose(tx, peers)
	if decided {
		s.applyDecision(decision)
		return roundID, nil
	}

	msg, err := peer.Encode(peer.PrepareToValidate{RoundID: roundID, Tx: tx})
	if err != nil {
		return "", err
	}

	s.evHandler("viewer: vote: PROPOSE: round[%s]: peers[%d]", roundID, len(peers))
	s.net().Broadcast(msg, "")

	return roundID, nil
}

// ExpireRounds decides false every voting round that is past its deadline
// and broadcasts the decisions.
func (s *State) ExpireRounds(now time.Time) {
	for _, decision := range s.coordinator.Expire(now) {
		s.evHandler("viewer: vote: EXPIRED: round[%s]", decision.RoundID)
		s.broadcastDecision(decision)
		s.applyDecision(decision)
	}
}

// =============================================================================

// processPrepare answers a request to vote with the local policy's vote.
func (s *State) processPrepare(from string, req peer.PrepareToValidate) error {
	valid := s.participant.Prepare(req.RoundID, req.Tx)

	s.evHandler("state: processPrepare: round[%s]: from[%s]: vote[%t]", req.RoundID, from, valid)

	msg, err := peer.Encode(peer.Vote{RoundID: req.RoundID, Valid: valid})
	if err != nil {
		return err
	}

	return s.net().Send(from, msg)
}

// processVote records the peer's vote. Once every peer has voted the
// decision is broadcast and applied locally.
func (s *State) processVote(from string, v peer.Vote) error {
	decision, decided, err := s.coordinator.Record(v.RoundID, from, v.Valid)
	if err != nil {
		return err
	}

	s.evHandler("state: processVote: round[%s]: from[%s]: vote[%t]", v.RoundID, from, v.Valid)

	if !decided {
		return nil
	}

	s.evHandler("viewer: vote: DECIDED: round[%s]: decision[%t]", decision.RoundID, decision.Valid)

	s.broadcastDecision(decision)
	s.applyDecision(decision)

	return nil
}

// processDecision applies the coordinator's decision for a round this node
// voted on.
func (s *State) processDecision(from string, d peer.GlobalDecision) error {
	tx, admitted := s.participant.Apply(d.RoundID, d.Valid)

	s.evHandler("state: processDecision: round[%s]: from[%s]: decision[%t]", d.RoundID, from, d.Valid)

	if admitted {
		s.admit(tx)
	}

	return nil
}

// =============================================================================

func (s *State) broadcastDecision(decision vote.Decision) {
	msg, err := peer.Encode(peer.GlobalDecision{RoundID: decision.RoundID, Valid: decision.Valid})
	if err != nil {
		s.evHandler("state: broadcastDecision: ERROR: %s", err)
		return
	}

	s.net().Broadcast(msg, "")
}

func (s *State) applyDecision(decision vote.Decision) {
	if decision.Valid {
		s.admit(decision.Tx)
	}
}

// admit places the transaction in the mempool and asks for it to be mined.
func (s *State) admit(tx database.SignedTx) {
	n := s.mempool.Upsert(tx)
	s.evHandler("viewer: mempool: ADMITTED: tx[%s]: count[%d]", tx, n)

	s.signalStartMining()
}

package state

import (
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
)

// HandleMessage dispatches a message received from a peer. The transport
// calls it for one message at a time per connection. Validation failures
// are logged and dropped; only failures of the node are returned.
func (s *State) HandleMessage(from string, msg peer.Message) error {
	err := s.handleMessage(from, msg)
	if err != nil && isRejection(err) {
		s.evHandler("state: HandleMessage: from[%s]: msg[%s]: REJECTED: %s", from, msg.Name, err)
		return nil
	}

	return err
}

func (s *State) handleMessage(from string, msg peer.Message) error {
	v, err := msg.Decode()
	if err != nil {
		return err
	}

	switch v := v.(type) {
	case peer.GetBlocks:
		resp, err := s.ServeGetBlocks(from, v)
		if err != nil {
			return err
		}

		out, err := peer.Encode(resp)
		if err != nil {
			return err
		}

		return s.net().Send(from, out)

	case peer.Blocks:
		return s.ProcessBlocks(from, v)

	case peer.Block:
		return s.ProcessBlock(from, v.Block)

	case peer.PrepareToValidate:
		return s.processPrepare(from, v)

	case peer.Vote:
		return s.processVote(from, v)

	case peer.GlobalDecision:
		return s.processDecision(from, v)
	}

	return fmt.Errorf("unhandled message %q", msg.Name)
}

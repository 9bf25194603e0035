package peer

import (
	"encoding/json"
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/validate"
)

// Name identifies the variant carried by a message.
type Name string

// Set of message names exchanged between peers.
const (
	NameGetBlocks         Name = "get-blocks"
	NameBlocks            Name = "blocks"
	NameBlock             Name = "block"
	NamePrepareToValidate Name = "prepare-to-validate"
	NameVote              Name = "vote"
	NameGlobalDecision    Name = "global-decision"
)

// Info tags a blocks response.
type Info string

// Set of values for a blocks response.
const (
	InfoNone          Info = "none"
	InfoAlreadySynced Info = "already-synced"
	InfoForkDetected  Info = "fork-detected"
)

// Message is the envelope sent over the wire between peers.
type Message struct {
	Name    Name            `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// Variant is implemented by every message payload.
type Variant interface {
	MessageName() Name
}

// =============================================================================

// GetBlocks asks a peer for the blocks after the requester's tip.
type GetBlocks struct {
	LatestHash string `json:"latest_hash" validate:"required"`
}

// Blocks answers a GetBlocks request.
type Blocks struct {
	Blocks []database.BlockData `json:"blocks" validate:"dive"`
	Info   Info                 `json:"info" validate:"oneof=none already-synced fork-detected"`
}

// Block carries a newly mined or relayed block.
type Block struct {
	Block database.BlockData `json:"block"`
}

// PrepareToValidate asks a peer to vote on admitting a transaction.
type PrepareToValidate struct {
	RoundID string            `json:"round_id" validate:"required,uuid"`
	Tx      database.SignedTx `json:"transaction"`
}

// Vote is a peer's answer to a PrepareToValidate.
type Vote struct {
	RoundID string `json:"round_id" validate:"required,uuid"`
	Valid   bool   `json:"vote"`
}

// GlobalDecision carries the outcome of a voting round.
type GlobalDecision struct {
	RoundID string `json:"round_id" validate:"required,uuid"`
	Valid   bool   `json:"decision"`
}

// MessageName implements the Variant interface.
func (GetBlocks) MessageName() Name { return NameGetBlocks }

// MessageName implements the Variant interface.
func (Blocks) MessageName() Name { return NameBlocks }

// MessageName implements the Variant interface.
func (Block) MessageName() Name { return NameBlock }

// MessageName implements the Variant interface.
func (PrepareToValidate) MessageName() Name { return NamePrepareToValidate }

// MessageName implements the Variant interface.
func (Vote) MessageName() Name { return NameVote }

// MessageName implements the Variant interface.
func (GlobalDecision) MessageName() Name { return NameGlobalDecision }

// =============================================================================

// Encode wraps the variant in a message envelope.
func Encode(v Variant) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}

	msg := Message{
		Name:    v.MessageName(),
		Payload: data,
	}

	return msg, nil
}

// Decode returns the typed variant carried by the message after validating
// its fields.
func (m Message) Decode() (Variant, error) {
	var v Variant

	switch m.Name {
	case NameGetBlocks:
		v = &GetBlocks{}
	case NameBlocks:
		v = &Blocks{}
	case NameBlock:
		v = &Block{}
	case NamePrepareToValidate:
		v = &PrepareToValidate{}
	case NameVote:
		v = &Vote{}
	case NameGlobalDecision:
		v = &GlobalDecision{}
	default:
		return nil, fmt.Errorf("unknown message %q: %w", m.Name, database.ErrStructural)
	}

	if err := json.Unmarshal(m.Payload, v); err != nil {
		return nil, fmt.Errorf("decode %s: %s: %w", m.Name, err, database.ErrStructural)
	}

	if err := validate.Check(v); err != nil {
		return nil, fmt.Errorf("validate %s: %s: %w", m.Name, err, database.ErrStructural)
	}

	return deref(v), nil
}

// deref returns the value form of the decoded variant so callers can
// switch on value types.
func deref(v Variant) Variant {
	switch v := v.(type) {
	case *GetBlocks:
		return *v
	case *Blocks:
		return *v
	case *Block:
		return *v
	case *PrepareToValidate:
		return *v
	case *Vote:
		return *v
	case *GlobalDecision:
		return *v
	}

	return v
}

package message

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// VoteOn is the tuple a validator signs over: (height, round, step,
// block-hash-or-nil). Nil represents abstention on a concrete proposal
// (spec.md §3).
type VoteOn struct {
	Height *big.Int
	Round  int64
	Step   Step
	Value  common.Hash
}

// Proposal is a sealed block candidate for (Height, Round), signed by the
// proposer. ValidRound == -1 means "no earlier polka is being claimed".
type Proposal struct {
	Round         int64
	Height        *big.Int
	ValidRound    int64
	ProposalBlock *Block
	Address       common.Address
	Signature     []byte
}

// VoteOn returns the canonical vote tuple a Proposal's associated prevote at
// its own round would carry; used only for signature-domain consistency in
// tests, proposals are signed over the block hash directly.
func (p *Proposal) VoteOn() VoteOn {
	return VoteOn{Height: p.Height, Round: p.Round, Step: StepPropose, Value: p.ProposalBlock.Hash()}
}

// Vote is a Prevote or Precommit: a signed VoteOn. Precommit additionally
// carries the signature used as a committed seal once aggregated into a
// Seal (spec.md §3 "Message").
type Vote struct {
	Step      Step
	Round     int64
	Height    *big.Int
	Value     common.Hash
	Address   common.Address
	Signature []byte
}

// VoteOn returns the canonical tuple this vote was signed over.
func (v *Vote) VoteOn() VoteOn {
	return VoteOn{Height: v.Height, Round: v.Round, Step: v.Step, Value: v.Value}
}

// NewPrevote constructs an unsigned Prevote.
func NewPrevote(height *big.Int, round int64, value common.Hash) *Vote {
	return &Vote{Step: StepPrevote, Height: height, Round: round, Value: value}
}

// NewPrecommit constructs an unsigned Precommit.
func NewPrecommit(height *big.Int, round int64, value common.Hash) *Vote {
	return &Vote{Step: StepPrecommit, Height: height, Round: round, Value: value}
}

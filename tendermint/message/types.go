// Package message defines the wire types exchanged between Tendermint-style
// validators: proposals, votes, block headers and the seal they assemble
// into. Encoding is RLP, following the shape of autonity's
// consensus/tendermint/messages package.
package message

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MaxRound bounds the round field so a malicious peer cannot force a round
// value that overflows downstream arithmetic.
const MaxRound = int64(1<<63 - 1)

// Step is the state-machine step a vote was cast at.
type Step uint8

const (
	StepPropose Step = iota
	StepPrevote
	StepPrecommit
	StepCommit
)

func (s Step) String() string {
	switch s {
	case StepPropose:
		return "propose"
	case StepPrevote:
		return "prevote"
	case StepPrecommit:
		return "precommit"
	case StepCommit:
		return "commit"
	default:
		return "unknown"
	}
}

// NilValue is the zero hash, representing abstention on a concrete proposal.
var NilValue = common.Hash{}

// CommitteeMember is one entry of a ValidatorSet: an address, its voting
// weight and the public key used to verify its Schnorr signatures.
type CommitteeMember struct {
	Address           common.Address
	VotingPower       *big.Int
	ConsensusKeyBytes []byte
}

// Committee is an ordered validator list, as embedded in a block header.
type Committee []CommitteeMember

// Header is the subset of block-header fields the consensus core reads or
// writes. Real chain headers carry far more (state root, tx root, ...); this
// module treats those as opaque and does not compute them (see spec.md §1
// Non-goals: Merkle root computation is out of scope).
type Header struct {
	ParentHash common.Hash
	Number     *big.Int
	Author     common.Address
	Time       uint64
	Score      *big.Int
	Committee  Committee

	// BFT seal fields, the consensus-specific extension of the header.
	Round          int64
	ProposerSeal   []byte
	PrecommitSeals [][]byte
}

// CommitteeMember returns the committee entry for addr, or nil if addr is
// not a member of this header's committee.
func (h *Header) CommitteeMember(addr common.Address) *CommitteeMember {
	for i := range h.Committee {
		if h.Committee[i].Address == addr {
			return &h.Committee[i]
		}
	}
	return nil
}

// SealFields is the number of fields a valid Tendermint seal carries: round,
// proposer signature, and the set of precommit signatures (spec.md §6).
const SealFields = 3

// Seal is the finality evidence embedded in a committed header.
type Seal struct {
	Round          int64
	ProposerSeal   []byte
	PrecommitSeals [][]byte
}

// SealFromHeader extracts the embedded Seal from a header.
func SealFromHeader(h *Header) Seal {
	return Seal{Round: h.Round, ProposerSeal: h.ProposerSeal, PrecommitSeals: h.PrecommitSeals}
}

// Block is a sealed or to-be-sealed block candidate. Body is opaque payload
// bytes (transactions are out of scope, spec.md §1).
type Block struct {
	Header *Header
	Body   []byte
}

// Number returns the block's height.
func (b *Block) Number() *big.Int {
	if b == nil || b.Header == nil {
		return nil
	}
	return b.Header.Number
}

// Hash returns the canonical hash of the block's header.
func (b *Block) Hash() common.Hash {
	if b == nil || b.Header == nil {
		return common.Hash{}
	}
	return HashHeader(b.Header)
}

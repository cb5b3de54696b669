// Package epoch verifies the finality evidence a block carries and tracks
// trust across epoch boundaries, when the committee signing blocks changes.
// CombinedProof's wrapping convention follows autonity's
// consensus/tendermint/accountability/types.go (typedMessage/encodedProof);
// its fields and the Trusted/Unconfirmed split follow
// original_source/engine.rs's combine_proofs/destructure_proofs helpers and
// ConstructedVerifier enum.
package epoch

import (
	"errors"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/clearmatics/tendercore/tendermint/message"
	"github.com/clearmatics/tendercore/tendermint/validator"
)

var (
	ErrInsufficientSigners = errors.New("epoch: precommit set below quorum threshold")
	ErrSignerNotInSet      = errors.New("epoch: signature from non-committee address")
	ErrBadSignature        = errors.New("epoch: invalid precommit signature")
)

// CombinedProof bundles the evidence needed to cross an epoch boundary: the
// signal that announced the new committee (SetProof) and the finality proof
// of the block that actually activates it (FinalityProof), tagged by the
// height the signal fired at.
type CombinedProof struct {
	SignalNumber  uint64
	SetProof      []byte
	FinalityProof []byte
}

type rlpCombinedProof struct {
	SignalNumber  uint64
	SetProof      []byte
	FinalityProof []byte
}

// EncodeRLP writes the 3-element list form ported from engine.rs's
// combine_proofs.
func (c *CombinedProof) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, rlpCombinedProof{c.SignalNumber, c.SetProof, c.FinalityProof})
}

// DecodeRLP reverses EncodeRLP, engine.rs's destructure_proofs.
func (c *CombinedProof) DecodeRLP(s *rlp.Stream) error {
	var w rlpCombinedProof
	if err := s.Decode(&w); err != nil {
		return err
	}
	c.SignalNumber, c.SetProof, c.FinalityProof = w.SignalNumber, w.SetProof, w.FinalityProof
	return nil
}

// FinalityProof is a header plus the set of precommit votes that finalized
// it, enough to check quorum without replaying the whole chain.
type FinalityProof struct {
	Header *message.Header
	Votes  []*message.Vote
}

// Finalizer is supplied by an Unconfirmed ConstructedVerifier; calling it
// with the finality proof that activates the pending committee promotes the
// verifier to Trusted, or returns an error if the proof doesn't check out.
type Finalizer func(proof FinalityProof) error

// Status classifies a ConstructedVerifier.
type Status int

const (
	// Trusted means VerifyLight can be called immediately.
	Trusted Status = iota
	// Unconfirmed means the committee is known but not yet proven final;
	// Finalize must succeed before VerifyLight is meaningful.
	Unconfirmed
	// Err means construction itself failed.
	Err
)

// ConstructedVerifier is the result of building a Verifier for a committee
// signalled mid-chain, mirroring engine.rs's
// ConstructedVerifier::{Trusted,Unconfirmed,Err}.
type ConstructedVerifier struct {
	Status   Status
	Verifier *Verifier
	Finalize Finalizer
	Error    error
}

// Verifier checks header seals against one frozen committee.
type Verifier struct {
	set *validator.Set
}

// New returns a Verifier trusting set outright (the genesis or
// already-finalized case).
func New(set *validator.Set) *Verifier {
	return &Verifier{set: set}
}

// Construct builds a ConstructedVerifier for a committee announced by a
// signal at signalHeight, requiring finalize to be called with the
// finality proof of the block that activates it before the verifier is
// trusted.
func Construct(set *validator.Set, signalHeight uint64) ConstructedVerifier {
	v := &Verifier{set: set}
	return ConstructedVerifier{
		Status:   Unconfirmed,
		Verifier: v,
		Finalize: func(proof FinalityProof) error {
			return v.CheckFinalityProof(proof)
		},
	}
}

// VerifyLight checks that header's embedded seal carries at least quorum
// distinct, validly-signed precommits from the verifier's committee, per
// spec.md §4.D. The precommits are checked against the hash of the header
// with its seal fields (Round, ProposerSeal, PrecommitSeals) cleared, the
// hash validators vote on before the seal is attached.
func (v *Verifier) VerifyLight(header *message.Header) error {
	seal := message.SealFromHeader(header)
	unsealed := *header
	unsealed.Round, unsealed.ProposerSeal, unsealed.PrecommitSeals = 0, nil, nil
	hash := message.HashHeader(&unsealed)
	return v.verifySeal(header.Number, seal.Round, hash, seal.PrecommitSeals)
}

// CheckFinalityProof checks a header-plus-commits bundle the same way
// VerifyLight checks an embedded seal, used to promote an Unconfirmed
// verifier to Trusted.
func (v *Verifier) CheckFinalityProof(proof FinalityProof) error {
	if proof.Header == nil {
		return ErrBadSignature
	}
	hash := message.HashHeader(proof.Header)
	power := new(big.Int)
	seen := make(map[common.Address]struct{})
	for _, vote := range proof.Votes {
		if vote.Step != message.StepPrecommit || vote.Value != hash {
			continue
		}
		member, ok := v.set.Member(vote.Address)
		if !ok {
			return ErrSignerNotInSet
		}
		if err := message.VerifyVote(&member, vote); err != nil {
			return ErrBadSignature
		}
		if _, dup := seen[vote.Address]; dup {
			continue
		}
		seen[vote.Address] = struct{}{}
		power.Add(power, member.VotingPower)
	}
	if !v.set.HasQuorum(power) {
		return ErrInsufficientSigners
	}
	return nil
}

// verifySeal checks that precommitSeals, positioned one-per-slot in the
// verifier's committee order (ascending address, as Members returns it),
// carry at least quorum voting power of valid precommit signatures over
// (height, round, hash).
func (v *Verifier) verifySeal(height *big.Int, round int64, hash common.Hash, precommitSeals [][]byte) error {
	set := v.set
	power := new(big.Int)
	members := set.Members()
	for i, sig := range precommitSeals {
		if i >= len(members) || len(sig) == 0 {
			continue
		}
		member := members[i]
		vote := &message.Vote{Step: message.StepPrecommit, Height: height, Round: round, Value: hash, Address: member.Address, Signature: sig}
		if err := message.VerifyVote(&member, vote); err != nil {
			continue
		}
		power.Add(power, member.VotingPower)
	}
	if !set.HasQuorum(power) {
		return ErrInsufficientSigners
	}
	return nil
}

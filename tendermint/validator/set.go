// Package validator tracks the committee entitled to vote at a given height
// and answers the proposer-selection and quorum-threshold questions the
// consensus worker needs every round. The map-plus-sorted-slice shape below
// follows sanketsaagar-Litechain's pkg/consensus/validator_set.go.
package validator

import (
	"errors"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/clearmatics/tendercore/tendermint/message"
)

var (
	ErrEpochProofUndecodable = errors.New("validator: epoch proof does not decode to a committee")
	ErrFinalityProofMissing  = errors.New("validator: finality proof carries no header")
	ErrInsufficientFinality  = errors.New("validator: finality proof below quorum threshold")
)

// Set is a concurrency-safe view of the committee active at one height. A
// new Set is constructed on every height and epoch transition rather than
// mutated in place, mirroring how the committee is frozen per-block in the
// spec's data model.
type Set struct {
	mu         sync.RWMutex
	members    map[common.Address]message.CommitteeMember
	ordered    []common.Address // stable order used for round-robin proposer selection
	totalPower *big.Int
}

// NewSet builds a Set from a committee list. The committee is sorted by
// address to give every validator on the network the same proposer
// ordering, following autonity's committee.Committee sort convention.
func NewSet(committee message.Committee) *Set {
	s := &Set{
		members:    make(map[common.Address]message.CommitteeMember, len(committee)),
		totalPower: new(big.Int),
	}
	for _, m := range committee {
		s.members[m.Address] = m
		s.totalPower.Add(s.totalPower, m.VotingPower)
	}
	s.ordered = make([]common.Address, 0, len(committee))
	for addr := range s.members {
		s.ordered = append(s.ordered, addr)
	}
	sort.Slice(s.ordered, func(i, j int) bool {
		return s.ordered[i].Hex() < s.ordered[j].Hex()
	})
	return s
}

// Size returns the committee cardinality.
func (s *Set) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ordered)
}

// TotalVotingPower returns the sum of every member's voting power.
func (s *Set) TotalVotingPower() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return new(big.Int).Set(s.totalPower)
}

// Member looks up a committee entry by address.
func (s *Set) Member(addr common.Address) (message.CommitteeMember, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[addr]
	return m, ok
}

// Contains reports whether addr is a member of this committee.
func (s *Set) Contains(addr common.Address) bool {
	_, ok := s.Member(addr)
	return ok
}

// Proposer returns the validator entitled to propose at the given round,
// selected by simple round-robin over the sorted committee. Round is taken
// modulo the committee size so that arbitrarily large rounds still resolve
// (spec.md §4.A "proposer selection is round-robin over the committee").
func (s *Set) Proposer(round int64) common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.ordered) == 0 {
		return common.Address{}
	}
	idx := round % int64(len(s.ordered))
	if idx < 0 {
		idx += int64(len(s.ordered))
	}
	return s.ordered[idx]
}

// IsProposer reports whether addr is the proposer for round.
func (s *Set) IsProposer(addr common.Address, round int64) bool {
	return s.Proposer(round) == addr
}

// Threshold returns the minimum accumulated voting power that constitutes a
// quorum: strictly more than two thirds of total voting power, i.e.
// floor(2*N/3) + 1, the standard BFT quorum bound tolerating up to
// floor((N-1)/3) byzantine weight.
func (s *Set) Threshold() *big.Int {
	s.mu.RLock()
	total := new(big.Int).Set(s.totalPower)
	s.mu.RUnlock()

	num := new(big.Int).Mul(total, big.NewInt(2))
	q := new(big.Int).Div(num, big.NewInt(3))
	return q.Add(q, big.NewInt(1))
}

// HasQuorum reports whether power meets or exceeds the committee's quorum
// threshold.
func (s *Set) HasQuorum(power *big.Int) bool {
	return power.Cmp(s.Threshold()) >= 0
}

// F returns the maximum byzantine voting power this committee tolerates,
// floor((totalPower-1)/3). The consensus worker does not call it; it has no
// round-skip rule.
func (s *Set) F() *big.Int {
	s.mu.RLock()
	total := new(big.Int).Set(s.totalPower)
	s.mu.RUnlock()

	n := new(big.Int).Sub(total, big.NewInt(1))
	return n.Div(n, big.NewInt(3))
}

// Members returns a copy of the committee, ordered by address.
func (s *Set) Members() message.Committee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(message.Committee, 0, len(s.ordered))
	for _, addr := range s.ordered {
		out = append(out, s.members[addr])
	}
	return out
}

// EpochSignalKind classifies the result of SignalsEpochEnd, mirroring
// original_source/engine.rs's ValidatorSet::signals_epoch_end {No, Yes,
// WaitForFinality}.
type EpochSignalKind int

const (
	// EpochSignalNo means header does not announce a committee change.
	EpochSignalNo EpochSignalKind = iota
	// EpochSignalYes means header announces a new committee right now,
	// carrying the RLP-encoded committee as Proof.
	EpochSignalYes
	// EpochSignalWaitForFinality means a signal was already observed at an
	// earlier header and is waiting on that header's finality evidence
	// before the transition can be trusted.
	EpochSignalWaitForFinality
)

// EpochSignal is the result of SignalsEpochEnd.
type EpochSignal struct {
	Kind  EpochSignalKind
	Proof []byte
}

// FinalityProof is a header plus the precommit votes that finalized it,
// mirroring epoch.FinalityProof (kept as a separate type here since epoch
// imports validator, and Go forbids the reverse import).
type FinalityProof struct {
	Header *message.Header
	Votes  []*message.Vote
}

// Finalizer is returned by EpochSet when the announced committee is not yet
// trusted: calling it with the finality proof of the block that activates
// the transition must succeed before the new set may be relied upon.
type Finalizer func(proof FinalityProof) error

// SignalsEpochEnd reports whether header announces a committee change: a
// non-empty embedded Committee that differs from s is the signal, RLP of
// that Committee is the proof a later EpochSet call consumes. The genesis
// header never signals (isFirst), matching engine.rs's is_first guard.
func (s *Set) SignalsEpochEnd(isFirst bool, header *message.Header) EpochSignal {
	if isFirst || header == nil || len(header.Committee) == 0 {
		return EpochSignal{Kind: EpochSignalNo}
	}
	if sameCommittee(s.Members(), NewSet(header.Committee).Members()) {
		return EpochSignal{Kind: EpochSignalNo}
	}
	proof, err := rlp.EncodeToBytes(header.Committee)
	if err != nil {
		return EpochSignal{Kind: EpochSignalNo}
	}
	return EpochSignal{Kind: EpochSignalYes, Proof: proof}
}

// EpochSet builds the committee a signal announced, from signalNumber and
// the Proof bytes SignalsEpochEnd produced, mirroring engine.rs's
// epoch_set(is_first, signal_number, proof). The genesis transition trusts
// immediately (nil Finalizer); any other transition returns a Finalizer
// that checks quorum-weighted precommits from THIS (the outgoing)
// committee over the block that activates the new one.
func (s *Set) EpochSet(isFirst bool, signalNumber uint64, proof []byte) (*Set, Finalizer, error) {
	var committee message.Committee
	if err := rlp.DecodeBytes(proof, &committee); err != nil {
		return nil, nil, ErrEpochProofUndecodable
	}
	next := NewSet(committee)
	if isFirst {
		return next, nil, nil
	}

	finalize := func(fp FinalityProof) error {
		if fp.Header == nil {
			return ErrFinalityProofMissing
		}
		hash := message.HashHeader(fp.Header)
		power := new(big.Int)
		seen := make(map[common.Address]struct{})
		for _, v := range fp.Votes {
			if v.Step != message.StepPrecommit || v.Value != hash {
				continue
			}
			member, ok := s.Member(v.Address)
			if !ok {
				continue
			}
			if err := message.VerifyVote(&member, v); err != nil {
				continue
			}
			if _, dup := seen[v.Address]; dup {
				continue
			}
			seen[v.Address] = struct{}{}
			power.Add(power, member.VotingPower)
		}
		if !s.HasQuorum(power) {
			return ErrInsufficientFinality
		}
		return nil
	}
	return next, finalize, nil
}

// sameCommittee reports whether a and b carry the same addresses and voting
// powers, in order.
func sameCommittee(a, b message.Committee) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Address != b[i].Address {
			return false
		}
		if (a[i].VotingPower == nil) != (b[i].VotingPower == nil) {
			return false
		}
		if a[i].VotingPower != nil && a[i].VotingPower.Cmp(b[i].VotingPower) != 0 {
			return false
		}
	}
	return true
}

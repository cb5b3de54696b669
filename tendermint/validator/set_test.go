package validator

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/clearmatics/tendercore/tendermint/message"
)

func committeeOf(stakes ...int64) message.Committee {
	c := make(message.Committee, len(stakes))
	for i, s := range stakes {
		addr := common.BigToAddress(big.NewInt(int64(i) + 1))
		c[i] = message.CommitteeMember{Address: addr, VotingPower: big.NewInt(s)}
	}
	return c
}

func TestThresholdIsTwoThirdsPlusOne(t *testing.T) {
	s := NewSet(committeeOf(1, 1, 1, 1)) // total 4
	require.Equal(t, big.NewInt(3), s.Threshold())
	require.False(t, s.HasQuorum(big.NewInt(2)))
	require.True(t, s.HasQuorum(big.NewInt(3)))
}

func TestProposerIsDeterministicRoundRobin(t *testing.T) {
	s := NewSet(committeeOf(1, 1, 1))
	p0 := s.Proposer(0)
	p1 := s.Proposer(1)
	p2 := s.Proposer(2)
	p3 := s.Proposer(3)
	require.NotEqual(t, p0, p1)
	require.Equal(t, p0, p3) // wraps after committee size
	require.True(t, s.Contains(p0) && s.Contains(p1) && s.Contains(p2))
}

func TestProposerHandlesNegativeRoundModulo(t *testing.T) {
	s := NewSet(committeeOf(1, 1, 1))
	// Rounds are always non-negative in practice, but the modulo must not panic.
	require.NotPanics(t, func() { s.Proposer(-1) })
}

func TestFToleratesUpToOneThirdMinusOne(t *testing.T) {
	s := NewSet(committeeOf(1, 1, 1, 1)) // total 4, F = floor(3/3) = 1
	require.Equal(t, big.NewInt(1), s.F())
}

func TestMembersPreservesTotalPower(t *testing.T) {
	s := NewSet(committeeOf(1, 1, 2))
	require.Equal(t, big.NewInt(4), s.TotalVotingPower())
	require.Equal(t, 3, s.Size())
}

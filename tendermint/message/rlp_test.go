package message

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"
)

func sampleHeader() *Header {
	return &Header{
		ParentHash: common.HexToHash("0xaa"),
		Number:     big.NewInt(42),
		Author:     common.HexToAddress("0x01"),
		Time:       1234,
		Score:      big.NewInt(42),
		Committee: Committee{
			{Address: common.HexToAddress("0x01"), VotingPower: big.NewInt(1), ConsensusKeyBytes: []byte{1, 2, 3}},
		},
		Round:          2,
		ProposerSeal:   []byte{0xde, 0xad},
		PrecommitSeals: [][]byte{{1}, {2}},
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := sampleHeader()
	enc, err := rlp.EncodeToBytes(h)
	require.NoError(t, err)

	var decoded Header
	require.NoError(t, rlp.DecodeBytes(enc, &decoded))
	require.Equal(t, h.ParentHash, decoded.ParentHash)
	require.Equal(t, h.Number, decoded.Number)
	require.Equal(t, h.Round, decoded.Round)
	require.Equal(t, h.ProposerSeal, decoded.ProposerSeal)
	require.Equal(t, h.PrecommitSeals, decoded.PrecommitSeals)
}

func TestProposalRoundTripWithNegativeValidRound(t *testing.T) {
	p := &Proposal{
		Round:         1,
		Height:        big.NewInt(10),
		ValidRound:    -1,
		ProposalBlock: &Block{Header: sampleHeader(), Body: []byte("body")},
		Address:       common.HexToAddress("0x02"),
		Signature:     []byte{1, 2, 3},
	}
	enc, err := rlp.EncodeToBytes(p)
	require.NoError(t, err)

	var decoded Proposal
	require.NoError(t, rlp.DecodeBytes(enc, &decoded))
	require.Equal(t, int64(-1), decoded.ValidRound)
	require.Equal(t, p.Round, decoded.Round)
	require.Equal(t, p.Address, decoded.Address)
}

func TestProposalRoundTripWithPositiveValidRound(t *testing.T) {
	p := &Proposal{
		Round:         4,
		Height:        big.NewInt(10),
		ValidRound:    2,
		ProposalBlock: &Block{Header: sampleHeader()},
		Address:       common.HexToAddress("0x02"),
	}
	enc, err := rlp.EncodeToBytes(p)
	require.NoError(t, err)

	var decoded Proposal
	require.NoError(t, rlp.DecodeBytes(enc, &decoded))
	require.Equal(t, int64(2), decoded.ValidRound)
}

func TestVoteRoundTrip(t *testing.T) {
	v := NewPrecommit(big.NewInt(7), 3, common.HexToHash("0xbeef"))
	v.Address = common.HexToAddress("0x03")
	v.Signature = []byte{9, 9, 9}

	enc, err := rlp.EncodeToBytes(v)
	require.NoError(t, err)

	var decoded Vote
	require.NoError(t, rlp.DecodeBytes(enc, &decoded))
	require.Equal(t, StepPrecommit, decoded.Step)
	require.Equal(t, v.Value, decoded.Value)
	require.Equal(t, v.Address, decoded.Address)
}

func TestSealRoundTrip(t *testing.T) {
	s := &Seal{Round: 5, ProposerSeal: []byte{1}, PrecommitSeals: [][]byte{{1}, {2}, {3}}}
	enc, err := rlp.EncodeToBytes(s)
	require.NoError(t, err)

	var decoded Seal
	require.NoError(t, rlp.DecodeBytes(enc, &decoded))
	require.Equal(t, *s, decoded)
}

package epoch

import (
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"

	"github.com/clearmatics/tendercore/tendermint/message"
	"github.com/clearmatics/tendercore/tendermint/validator"
)

func TestCombinedProofRLPRoundTrip(t *testing.T) {
	p := &CombinedProof{SignalNumber: 10, SetProof: []byte{1, 2}, FinalityProof: []byte{3, 4, 5}}
	enc, err := rlp.EncodeToBytes(p)
	require.NoError(t, err)

	var decoded CombinedProof
	require.NoError(t, rlp.DecodeBytes(enc, &decoded))
	require.Equal(t, *p, decoded)
}

func TestVerifyLightAcceptsQuorumOfValidSignatures(t *testing.T) {
	// Build a 4-member committee from known private keys so we can derive
	// both the address and the serialized pubkey consistently.
	privs := make([]*btcec.PrivateKey, 4)
	committee := make(message.Committee, 4)
	for i := range privs {
		priv, err := btcec.NewPrivateKey()
		require.NoError(t, err)
		privs[i] = priv
		committee[i] = message.CommitteeMember{
			Address:           message.DeriveAddress(priv.PubKey()),
			VotingPower:       big.NewInt(1),
			ConsensusKeyBytes: priv.PubKey().SerializeCompressed(),
		}
	}

	header := &message.Header{
		ParentHash: common.HexToHash("0x01"),
		Number:     big.NewInt(5),
		Author:     committee[0].Address,
		Committee:  committee,
		Round:      0,
	}
	hash := message.HashHeader(header)

	// Each precommit seal sits at its signer's slot in the committee as the
	// set orders it (ascending address), the order verifySeal reads.
	set := validator.NewSet(committee)
	privOf := make(map[common.Address]*btcec.PrivateKey, len(privs))
	for _, priv := range privs {
		privOf[message.DeriveAddress(priv.PubKey())] = priv
	}
	seals := make([][]byte, 4)
	for i, m := range set.Members()[:3] { // 3 of 4 sign: quorum for N=4 is 3
		signer := message.NewKeySigner(privOf[m.Address])
		digest, err := message.CanonicalDigest(message.VoteOn{Height: header.Number, Round: 0, Step: message.StepPrecommit, Value: hash})
		require.NoError(t, err)
		sig, err := signer.Sign(digest)
		require.NoError(t, err)
		seals[i] = sig
	}
	header.PrecommitSeals = seals

	v := New(set)
	require.NoError(t, v.VerifyLight(header))
}

func TestVerifyLightRejectsInsufficientSigners(t *testing.T) {
	privs := make([]*btcec.PrivateKey, 4)
	committee := make(message.Committee, 4)
	for i := range privs {
		priv, err := btcec.NewPrivateKey()
		require.NoError(t, err)
		privs[i] = priv
		committee[i] = message.CommitteeMember{
			Address:           message.DeriveAddress(priv.PubKey()),
			VotingPower:       big.NewInt(1),
			ConsensusKeyBytes: priv.PubKey().SerializeCompressed(),
		}
	}

	header := &message.Header{Number: big.NewInt(5), Committee: committee}
	hash := message.HashHeader(header)

	signer := message.NewKeySigner(privs[0])
	digest, err := message.CanonicalDigest(message.VoteOn{Height: header.Number, Round: 0, Step: message.StepPrecommit, Value: hash})
	require.NoError(t, err)
	sig, err := signer.Sign(digest)
	require.NoError(t, err)

	header.PrecommitSeals = [][]byte{sig} // only 1 of 4, below quorum

	set := validator.NewSet(committee)
	v := New(set)
	require.ErrorIs(t, v.VerifyLight(header), ErrInsufficientSigners)
}

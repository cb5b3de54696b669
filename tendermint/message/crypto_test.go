package message

import (
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestSignerAddressMatchesDeriveAddress(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	signer := NewKeySigner(priv)
	require.Equal(t, DeriveAddress(priv.PubKey()), signer.Address())
}

func TestVerifyVoteAcceptsGenuineSignatureAndRejectsTamperedValue(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	member := CommitteeMember{
		Address:           DeriveAddress(priv.PubKey()),
		VotingPower:       big.NewInt(1),
		ConsensusKeyBytes: priv.PubKey().SerializeCompressed(),
	}

	v := &Vote{Step: StepPrevote, Height: big.NewInt(1), Round: 0, Value: common.HexToHash("0xaa"), Address: member.Address}
	digest, err := CanonicalDigest(v.VoteOn())
	require.NoError(t, err)
	sig, err := NewKeySigner(priv).Sign(digest)
	require.NoError(t, err)
	v.Signature = sig

	require.NoError(t, VerifyVote(&member, v))

	tampered := *v
	tampered.Value = common.HexToHash("0xbb")
	require.Error(t, VerifyVote(&member, &tampered))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	priv1, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	priv2, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	digest, err := CanonicalDigest(VoteOn{Height: big.NewInt(1), Round: 0, Step: StepPrecommit, Value: common.HexToHash("0xcc")})
	require.NoError(t, err)
	sig, err := NewKeySigner(priv1).Sign(digest)
	require.NoError(t, err)

	require.Error(t, Verify(priv2.PubKey(), digest, sig))
}

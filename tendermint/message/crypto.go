package message

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// ErrInvalidSignature is returned by Verify when the Schnorr signature does
// not validate against the claimed public key.
var ErrInvalidSignature = errors.New("message: invalid schnorr signature")

// Signer produces Schnorr signatures over canonical VoteOn digests and knows
// its own address. The consensus worker is handed a Signer once an operator
// calls set_signer (spec.md §6); it never sees the underlying key material.
type Signer interface {
	Address() common.Address
	Sign(digest common.Hash) ([]byte, error)
}

// KeySigner is the concrete Signer backed by a secp256k1 private key, used
// by the schnorr signature scheme VoteOn messages are signed under.
type KeySigner struct {
	priv *btcec.PrivateKey
	addr common.Address
}

// NewKeySigner derives the signer's address from its public key and wraps
// the private key for signing.
func NewKeySigner(priv *btcec.PrivateKey) *KeySigner {
	return &KeySigner{priv: priv, addr: DeriveAddress(priv.PubKey())}
}

func (s *KeySigner) Address() common.Address { return s.addr }

func (s *KeySigner) Sign(digest common.Hash) ([]byte, error) {
	sig, err := schnorr.Sign(s.priv, digest[:])
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}

// DeriveAddress computes the validator address for a consensus public key,
// following the same keccak-of-uncompressed-point convention go-ethereum
// uses for ECDSA keys (crypto.PubkeyToAddress), applied here to the
// secp256k1 Schnorr key.
func DeriveAddress(pub *btcec.PublicKey) common.Address {
	raw := pub.SerializeUncompressed()[1:] // strip the 0x04 prefix byte
	return common.BytesToAddress(crypto.Keccak256(raw)[12:])
}

// CanonicalDigest hashes the RLP encoding of a VoteOn tuple: the digest every
// Schnorr signature in this protocol is computed over (spec.md §3 "Message").
func CanonicalDigest(v VoteOn) (common.Hash, error) {
	enc, err := rlp.EncodeToBytes([]interface{}{v.Height, uint64(v.Round), uint8(v.Step), v.Value})
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(enc), nil
}

// Verify checks that sig is a valid Schnorr signature by pub over digest.
func Verify(pub *btcec.PublicKey, digest common.Hash, sig []byte) error {
	parsed, err := schnorr.ParseSignature(sig)
	if err != nil {
		return err
	}
	if !parsed.Verify(digest[:], pub) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyVote checks a Vote's signature against the committee member that is
// supposed to have cast it.
func VerifyVote(member *CommitteeMember, v *Vote) error {
	pub, err := btcec.ParsePubKey(member.ConsensusKeyBytes)
	if err != nil {
		return err
	}
	digest, err := CanonicalDigest(v.VoteOn())
	if err != nil {
		return err
	}
	return Verify(pub, digest, v.Signature)
}

// VerifyProposalSignature checks a Proposal's signature against the
// committee member that is supposed to have proposed it.
func VerifyProposalSignature(member *CommitteeMember, p *Proposal) error {
	pub, err := btcec.ParsePubKey(member.ConsensusKeyBytes)
	if err != nil {
		return err
	}
	digest := HashHeader(p.ProposalBlock.Header)
	return Verify(pub, digest, p.Signature)
}

package message

import (
	"errors"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	errInvalidMessage        = errors.New("message: round exceeds MaxRound")
	errBadValidRoundEncoding = errors.New("message: bad ValidRound encoding, IsValidRoundNil set but ValidRound != 0")
	errNilProposalBlock      = errors.New("message: cannot encode proposal with nil block")
)

// rlpHeader is the on-the-wire shape of Header. ConsensusKey bytes live on
// CommitteeMember directly (not re-derived on decode, same as the teacher's
// ConsensusKeyBytes/ConsensusKey pairing in core/types/bft_test.go).
type rlpHeader struct {
	ParentHash     common.Hash
	Number         *big.Int
	Author         common.Address
	Time           uint64
	Score          *big.Int
	Committee      Committee
	Round          uint64
	ProposerSeal   []byte
	PrecommitSeals [][]byte
}

// HashHeader returns the canonical hash of a header: Keccak256 over its RLP
// encoding, matching autonity's Header.Hash() (core/types/bft_test.go).
func HashHeader(h *Header) common.Hash {
	enc, err := rlp.EncodeToBytes(h)
	if err != nil {
		return common.Hash{}
	}
	return crypto.Keccak256Hash(enc)
}

// EncodeRLP implements rlp.Encoder.
func (h *Header) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &rlpHeader{
		ParentHash:     h.ParentHash,
		Number:         h.Number,
		Author:         h.Author,
		Time:           h.Time,
		Score:          h.Score,
		Committee:      h.Committee,
		Round:          uint64(h.Round),
		ProposerSeal:   h.ProposerSeal,
		PrecommitSeals: h.PrecommitSeals,
	})
}

// DecodeRLP implements rlp.Decoder.
func (h *Header) DecodeRLP(s *rlp.Stream) error {
	var dec rlpHeader
	if err := s.Decode(&dec); err != nil {
		return err
	}
	h.ParentHash = dec.ParentHash
	h.Number = dec.Number
	h.Author = dec.Author
	h.Time = dec.Time
	h.Score = dec.Score
	h.Committee = dec.Committee
	h.Round = int64(dec.Round)
	h.ProposerSeal = dec.ProposerSeal
	h.PrecommitSeals = dec.PrecommitSeals
	return nil
}

// EncodeRLP implements rlp.Encoder.
func (b *Block) EncodeRLP(w io.Writer) error {
	if b.Header == nil {
		return errNilProposalBlock
	}
	return rlp.Encode(w, []interface{}{b.Header, b.Body})
}

// DecodeRLP implements rlp.Decoder.
func (b *Block) DecodeRLP(s *rlp.Stream) error {
	var dec struct {
		Header *Header
		Body   []byte
	}
	if err := s.Decode(&dec); err != nil {
		return err
	}
	b.Header = dec.Header
	b.Body = dec.Body
	return nil
}

// EncodeRLP implements rlp.Encoder. Mirrors autonity's Proposal wire shape:
// ValidRound == -1 is encoded as a separate IsValidRoundNil boolean since RLP
// has no native negative-integer representation (messages/messages.go).
func (p *Proposal) EncodeRLP(w io.Writer) error {
	if p.ProposalBlock == nil {
		return errNilProposalBlock
	}
	isValidRoundNil := p.ValidRound == -1
	var validRound uint64
	if !isValidRoundNil {
		validRound = uint64(p.ValidRound)
	}
	return rlp.Encode(w, []interface{}{
		uint64(p.Round),
		p.Height,
		validRound,
		isValidRoundNil,
		p.ProposalBlock,
		p.Address,
		p.Signature,
	})
}

// DecodeRLP implements rlp.Decoder.
func (p *Proposal) DecodeRLP(s *rlp.Stream) error {
	var dec struct {
		Round           uint64
		Height          *big.Int
		ValidRound      uint64
		IsValidRoundNil bool
		ProposalBlock   *Block
		Address         common.Address
		Signature       []byte
	}
	if err := s.Decode(&dec); err != nil {
		return err
	}
	if dec.Round > uint64(MaxRound) {
		return errInvalidMessage
	}
	var validRound int64
	if dec.IsValidRoundNil {
		if dec.ValidRound != 0 {
			return errBadValidRoundEncoding
		}
		validRound = -1
	} else {
		validRound = int64(dec.ValidRound)
	}
	if dec.ProposalBlock == nil {
		return errNilProposalBlock
	}
	p.Round = int64(dec.Round)
	p.Height = dec.Height
	p.ValidRound = validRound
	p.ProposalBlock = dec.ProposalBlock
	p.Address = dec.Address
	p.Signature = dec.Signature
	return nil
}

// EncodeRLP implements rlp.Encoder.
func (v *Vote) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, []interface{}{
		uint8(v.Step),
		uint64(v.Round),
		v.Height,
		v.Value,
		v.Address,
		v.Signature,
	})
}

// DecodeRLP implements rlp.Decoder.
func (v *Vote) DecodeRLP(s *rlp.Stream) error {
	var dec struct {
		Step      uint8
		Round     uint64
		Height    *big.Int
		Value     common.Hash
		Address   common.Address
		Signature []byte
	}
	if err := s.Decode(&dec); err != nil {
		return err
	}
	if dec.Round > uint64(MaxRound) {
		return errInvalidMessage
	}
	v.Step = Step(dec.Step)
	v.Round = int64(dec.Round)
	v.Height = dec.Height
	v.Value = dec.Value
	v.Address = dec.Address
	v.Signature = dec.Signature
	return nil
}

// EncodeRLP implements rlp.Encoder.
func (s *Seal) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, []interface{}{uint64(s.Round), s.ProposerSeal, s.PrecommitSeals})
}

// DecodeRLP implements rlp.Decoder.
func (s *Seal) DecodeRLP(stream *rlp.Stream) error {
	var dec struct {
		Round          uint64
		ProposerSeal   []byte
		PrecommitSeals [][]byte
	}
	if err := stream.Decode(&dec); err != nil {
		return err
	}
	s.Round = int64(dec.Round)
	s.ProposerSeal = dec.ProposerSeal
	s.PrecommitSeals = dec.PrecommitSeals
	return nil
}

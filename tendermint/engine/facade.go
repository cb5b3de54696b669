// Package engine exposes the consensus worker to a blockchain client as a
// synchronous API, generalizing every method of original_source/engine.rs's
// ConsensusEngine trait impl onto this module's core.Worker. Each call sends
// a typed Request with a single-use reply channel into the worker's event
// queue and blocks for the Result — engine.rs's
// crossbeam::bounded(1) + receiver.recv() pattern, reimplemented with Go
// channels (spec.md §4.G, §9).
package engine

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/clearmatics/tendercore/tendermint/core"
	"github.com/clearmatics/tendercore/tendermint/epoch"
	"github.com/clearmatics/tendercore/tendermint/fees"
	"github.com/clearmatics/tendercore/tendermint/message"
	"github.com/clearmatics/tendercore/tendermint/validator"
)

// Name is this engine's identifier, the ConsensusEngine.name() constant.
const Name = "tendercore-bft"

// EngineType mirrors engine.rs's engine_type() == PBFT.
const EngineType = "pbft"

// RecommendedConfirmations is 1: finality under this protocol is absolute
// once a seal is produced (spec.md §6 "recommended_confirmation = 1").
const RecommendedConfirmations = 1

// ErrNotProposer is returned by GenerateSeal when called while we are not
// this round's proposer (the None case of engine.rs's generate_seal).
var ErrNotProposer = errors.New("engine: not proposer this round")

// Facade is the synchronous request/reply wrapper around a core.Worker.
type Facade struct {
	worker *core.Worker
}

// New wraps worker in a Facade.
func New(worker *core.Worker) *Facade { return &Facade{worker: worker} }

// SealFields is the constant field count a valid seal carries
// (spec.md §6 "seal_fields (constant = 3)").
func (f *Facade) SealFields() int { return message.SealFields }

// SealsInternally reports whether a signer is installed, read directly off
// the atomic flag without entering the worker (spec.md §9).
func (f *Facade) SealsInternally() bool { return f.worker.HasSigner() }

// GenerateSeal returns the seal for the block we are proposing this round,
// or ErrNotProposer if we have nothing to offer.
func (f *Facade) GenerateSeal(block *message.Block, parent *message.Header) (*message.Seal, error) {
	res := f.worker.Do(&core.Request{Kind: core.ReqGenerateSeal})
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Seal == nil {
		return nil, ErrNotProposer
	}
	return res.Seal, nil
}

// VerifyBlockBasic is the stateless header sanity check.
func (f *Facade) VerifyBlockBasic(header *message.Header) error {
	res := f.worker.Do(&core.Request{Kind: core.ReqVerifyBlockBasic, Header: header})
	return res.Err
}

// VerifyBlockExternal is the full seal verification path.
func (f *Facade) VerifyBlockExternal(header *message.Header) error {
	res := f.worker.Do(&core.Request{Kind: core.ReqVerifyBlockExternal, Header: header})
	return res.Err
}

// IsProposal reports whether header carries the shape of a Tendermint
// proposal header.
func (f *Facade) IsProposal(header *message.Header) bool {
	res := f.worker.Do(&core.Request{Kind: core.ReqIsProposal, Header: header})
	return res.Bool
}

// HandleMessage decodes and routes one framed peer message.
func (f *Facade) HandleMessage(raw []byte) error {
	res := f.worker.Do(&core.Request{Kind: core.ReqHandleMessage, Raw: raw})
	return res.Err
}

// OnNewBlock acknowledges a freshly imported block.
func (f *Facade) OnNewBlock(block *message.Block) error {
	res := f.worker.Do(&core.Request{Kind: core.ReqOnNewBlock, Block: block})
	return res.Err
}

// OnCloseBlock distributes a block's collected fees by stake weight.
func (f *Facade) OnCloseBlock(totalFee, minFeePool *big.Int, author common.Address) (shares map[common.Address]*big.Int, bonus *big.Int, err error) {
	res := f.worker.Do(&core.Request{Kind: core.ReqOnCloseBlock, TotalFee: totalFee, MinPool: minFeePool, Author: author})
	return res.Shares, res.Bonus, res.Err
}

// CanChangeCanonChain is true iff header is not rewriting below the last
// committed block.
func (f *Facade) CanChangeCanonChain(header *message.Header) bool {
	res := f.worker.Do(&core.Request{Kind: core.ReqCanChangeCanonChain, Header: header})
	return res.Bool
}

// CalculateScore returns the deterministic fork-choice weight for height.
func (f *Facade) CalculateScore() (*big.Int, error) {
	res := f.worker.Do(&core.Request{Kind: core.ReqCalculateScore})
	return res.Score, res.Err
}

// PopulateFromParent sets header's score to CalculateScore's value for the
// worker's current height, mirroring engine.rs's populate_from_parent;
// parent is not read.
func (f *Facade) PopulateFromParent(header, parent *message.Header) error {
	score, err := f.CalculateScore()
	if err != nil {
		return err
	}
	header.Score = score
	return nil
}

// SetSigner installs signer as the key this engine seals with.
func (f *Facade) SetSigner(signer message.Signer) error {
	res := f.worker.Do(&core.Request{Kind: core.ReqSetSigner, Signer: signer})
	return res.Err
}

// SignalsEpochEnd reports whether header announces a committee change, the
// ConsensusEngine.signals_epoch_end hook (spec.md §6).
func (f *Facade) SignalsEpochEnd(isFirst bool, header *message.Header) (validator.EpochSignal, error) {
	res := f.worker.Do(&core.Request{Kind: core.ReqSignalsEpochEnd, IsFirst: isFirst, Header: header})
	if res.EpochSignal == nil {
		return validator.EpochSignal{}, res.Err
	}
	return *res.EpochSignal, res.Err
}

// IsEpochEnd checks header against the worker's pending-transition state,
// returning the combined proof once a previously signalled transition's
// activating block has arrived, or a nil proof if none is ready yet
// (spec.md §6 "is_epoch_end", §8 scenario 5).
func (f *Facade) IsEpochEnd(isFirst bool, header *message.Header) ([]byte, error) {
	res := f.worker.Do(&core.Request{Kind: core.ReqIsEpochEnd, IsFirst: isFirst, Header: header})
	if !res.Bool {
		return nil, res.Err
	}
	return res.Proof, res.Err
}

// EpochVerifier builds a verifier for a combined proof, returning Trusted,
// Unconfirmed (with a Finalize callback), or an error (spec.md §6
// "epoch_verifier").
func (f *Facade) EpochVerifier(header *message.Header, proof []byte) (*epoch.ConstructedVerifier, error) {
	res := f.worker.Do(&core.Request{Kind: core.ReqEpochVerifier, Header: header, Proof: proof})
	if res.EpochVerifier == nil {
		return nil, res.Err
	}
	return res.EpochVerifier, res.Err
}

// GetBestBlockFromBestProposalHeader returns header's parent hash: a
// proposal's parent is the last finalized block (spec.md §6).
func (f *Facade) GetBestBlockFromBestProposalHeader(header *message.Header) common.Hash {
	return header.ParentHash
}

// MinFee looks up the static minimum fee for an action kind.
func MinFee(kind fees.ActionKind) *big.Int { return fees.MinFee(kind) }

package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/clearmatics/tendercore/tendermint/epoch"
	"github.com/clearmatics/tendercore/tendermint/fees"
	"github.com/clearmatics/tendercore/tendermint/message"
	"github.com/clearmatics/tendercore/tendermint/validator"
	"github.com/clearmatics/tendercore/tendermint/vote"
)

// handleRequest answers one synchronous facade call, generalizing every
// ConsensusEngine method of original_source/engine.rs that needs worker
// state (spec.md §4.G, §6).
func (w *Worker) handleRequest(req *Request) {
	var res Result
	switch req.Kind {
	case ReqGenerateSeal:
		res = w.reqGenerateSeal()
	case ReqVerifyBlockBasic:
		res = w.reqVerifyBlockBasic(req.Header)
	case ReqVerifyBlockExternal:
		res = w.reqVerifyBlockExternal(req.Header)
	case ReqIsProposal:
		res = w.reqIsProposal(req.Header)
	case ReqHandleMessage:
		res = w.reqHandleMessage(req.Raw)
	case ReqOnNewBlock:
		res = w.reqOnNewBlock(req.Block)
	case ReqOnCloseBlock:
		res = w.reqOnCloseBlock(req)
	case ReqCanChangeCanonChain:
		res = w.reqCanChangeCanonChain(req.Header)
	case ReqCalculateScore:
		res = Result{Score: CalculateScore(w.height)}
	case ReqSetSigner:
		w.signer = req.Signer
		w.hasSigner.Store(req.Signer != nil)
		res = Result{Bool: true}
	case ReqSignalsEpochEnd:
		res = w.reqSignalsEpochEnd(req.IsFirst, req.Header)
	case ReqIsEpochEnd:
		res = w.reqIsEpochEnd(req.IsFirst, req.Header)
	case ReqEpochVerifier:
		res = w.reqEpochVerifier(req.Header, req.Proof)
	default:
		res = Result{Err: ErrUnexpectedMessage}
	}
	req.Reply <- res
}

// reqGenerateSeal returns the seal for the block we are proposing this
// round, or a nil Seal if we are not this round's proposer or have nothing
// ready yet (spec.md §6 "may return None if not proposer this view").
func (w *Worker) reqGenerateSeal() Result {
	if w.validators.Proposer(w.round) != w.selfAddr {
		return Result{}
	}
	p, ok := w.seenProposals[w.round]
	if !ok {
		return Result{}
	}
	seal := message.SealFromHeader(p.ProposalBlock.Header)
	return Result{Seal: &seal}
}

// reqVerifyBlockBasic is the stateless header sanity check: score present
// and author a committee member. The seal's three fields are fixed by
// Header's own Round/ProposerSeal/PrecommitSeals fields, so no separate
// field-count check is made.
func (w *Worker) reqVerifyBlockBasic(h *message.Header) Result {
	if h == nil || h.Score == nil {
		return Result{Err: ErrBadSeal}
	}
	if !w.validators.Contains(h.Author) {
		return Result{Err: ErrNotAuthorized}
	}
	return Result{Bool: true}
}

// reqVerifyBlockExternal is the full seal verification path, delegated to
// the epoch verifier.
func (w *Worker) reqVerifyBlockExternal(h *message.Header) Result {
	if w.verifier == nil {
		return Result{Err: ErrEpochProofInvalid}
	}
	if err := w.verifier.VerifyLight(h); err != nil {
		return Result{Err: err}
	}
	return Result{Bool: true}
}

// reqIsProposal reports whether h carries the shape of a genuine Tendermint
// proposal header: a round and a non-empty proposer signature.
func (w *Worker) reqIsProposal(h *message.Header) Result {
	if h == nil {
		return Result{Bool: false}
	}
	return Result{Bool: len(h.ProposerSeal) > 0}
}

// reqHandleMessage decodes and routes one framed peer message, returning
// DoubleVote if it duplicates an existing vote from the same signer with a
// different value (spec.md §8 scenario 4). Proposal and Vote share no RLP
// prefix a decoder could dispatch on, so this tries Proposal first (it
// requires a non-nil ProposalBlock) and falls back to Vote.
func (w *Worker) reqHandleMessage(raw []byte) Result {
	var p message.Proposal
	if err := rlp.DecodeBytes(raw, &p); err == nil && p.ProposalBlock != nil {
		w.onProposal(&p)
		return Result{Bool: true}
	}

	var v message.Vote
	if err := rlp.DecodeBytes(raw, &v); err != nil {
		return Result{Err: ErrUnexpectedMessage}
	}
	switch w.applyVote(&v) {
	case vote.Equivocation:
		return Result{Err: ErrDoubleVote}
	default:
		return Result{Bool: true}
	}
}

// reqOnNewBlock acknowledges a freshly imported block; epoch-begin handling
// is out of this worker's narrow scope (spec.md §1 "persistent block
// storage ... out of scope"), so this is a no-op success.
func (w *Worker) reqOnNewBlock(b *message.Block) Result {
	return Result{Bool: true}
}

// reqOnCloseBlock distributes a block's collected fees by stake weight,
// following fees.Distribute (spec.md §6, §8 scenario 6).
func (w *Worker) reqOnCloseBlock(req *Request) Result {
	stakes := make([]fees.Stake, 0, w.validators.Size())
	for _, m := range w.validators.Members() {
		stakes = append(stakes, fees.Stake{Address: m.Address, Power: m.VotingPower})
	}
	minPool := req.MinPool
	if minPool == nil {
		minPool = new(big.Int)
	}
	total := req.TotalFee
	if total == nil {
		total = new(big.Int)
	}
	shares, bonus := fees.Distribute(total, minPool, stakes, req.Author)
	return Result{Shares: shares, Bonus: bonus}
}

// reqCanChangeCanonChain is true iff h is not rewriting below the last
// committed block (spec.md §6).
func (w *Worker) reqCanChangeCanonChain(h *message.Header) Result {
	if h == nil || h.Number == nil {
		return Result{Bool: false}
	}
	return Result{Bool: h.Number.Cmp(w.height) >= 0}
}

// reqSignalsEpochEnd reports whether h announces a committee change,
// engine.rs's signals_epoch_end.
func (w *Worker) reqSignalsEpochEnd(isFirst bool, h *message.Header) Result {
	signal := w.validators.SignalsEpochEnd(isFirst, h)
	return Result{EpochSignal: &signal}
}

// reqIsEpochEnd is engine.rs's is_epoch_end: a header that signals a
// committee change right now only records that signal as pending, on the
// signalling header's own hash; the proof activating it is only returned
// once the following header is checked, paired with the signalling
// header's own embedded seal as finality evidence (spec.md §8 scenario 5:
// "H=100 signals, H=101 returns CombinedProof(100, set_proof,
// encode(header_100))").
func (w *Worker) reqIsEpochEnd(isFirst bool, h *message.Header) Result {
	if h == nil {
		return Result{}
	}
	if signal := w.validators.SignalsEpochEnd(isFirst, h); signal.Kind == validator.EpochSignalYes {
		w.pendingEpochProofs[message.HashHeader(h)] = epochPending{number: h.Number.Uint64(), proof: signal.Proof}
		return Result{}
	}

	pending, ok := w.pendingEpochProofs[h.ParentHash]
	if !ok {
		return Result{}
	}
	parent, ok := w.chain.BlockHeader(ByHashID(h.ParentHash))
	if !ok {
		return Result{}
	}
	delete(w.pendingEpochProofs, h.ParentHash)

	finalityProof, err := rlp.EncodeToBytes(parent)
	if err != nil {
		return Result{}
	}
	combined := &epoch.CombinedProof{SignalNumber: pending.number, SetProof: pending.proof, FinalityProof: finalityProof}
	encoded, err := rlp.EncodeToBytes(combined)
	if err != nil {
		return Result{}
	}
	return Result{Bool: true, Proof: encoded}
}

// reqEpochVerifier builds a ConstructedVerifier for proof, engine.rs's
// epoch_verifier(header, combined_proof): destructure the combined proof,
// derive isFirst from a zero signal number, and build the committee the
// signal announced via EpochSet.
func (w *Worker) reqEpochVerifier(h *message.Header, proof []byte) Result {
	var combined epoch.CombinedProof
	if err := rlp.DecodeBytes(proof, &combined); err != nil {
		return Result{EpochVerifier: &epoch.ConstructedVerifier{Status: epoch.Err, Error: err}}
	}

	isFirst := combined.SignalNumber == 0
	next, finalize, err := w.validators.EpochSet(isFirst, combined.SignalNumber, combined.SetProof)
	if err != nil {
		return Result{EpochVerifier: &epoch.ConstructedVerifier{Status: epoch.Err, Error: err}}
	}

	v := epoch.New(next)
	if finalize == nil {
		return Result{EpochVerifier: &epoch.ConstructedVerifier{Status: epoch.Trusted, Verifier: v}}
	}

	cv := epoch.ConstructedVerifier{
		Status:   epoch.Unconfirmed,
		Verifier: v,
		Finalize: func(fp epoch.FinalityProof) error {
			if err := finalize(validator.FinalityProof{Header: fp.Header, Votes: fp.Votes}); err != nil {
				return err
			}
			w.Submit(Event{Kind: EvEpochFinalized, EpochSet: next})
			return nil
		},
	}
	return Result{EpochVerifier: &cv}
}

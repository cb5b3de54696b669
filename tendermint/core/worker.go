// Package core implements the Tendermint-style state machine: the single
// goroutine that owns height/round/step, drives proposals and votes through
// to a committed seal, and answers synchronous facade queries. It
// generalizes autonity's consensus/tendermint/core/handler.go: the same
// single-consumer event loop and numbered checkUponConditions transitions,
// rebuilt against this module's own ChainClient and message types.
package core

import (
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/uuid"

	"github.com/clearmatics/tendercore/internal/log"
	"github.com/clearmatics/tendercore/tendermint/epoch"
	"github.com/clearmatics/tendercore/tendermint/message"
	"github.com/clearmatics/tendercore/tendermint/timeout"
	"github.com/clearmatics/tendercore/tendermint/validator"
	"github.com/clearmatics/tendercore/tendermint/vote"
)

const noRound int64 = -1

// noLock reports whether a locked/valid round slot is empty.
func noLock(round int64) bool { return round == noRound }

// eventQueueCap bounds the worker's single event channel; producers block
// once it fills rather than the worker ever blocking on anything but this
// queue (spec.md §5 "the worker never blocks except on the input queue").
const eventQueueCap = 256

// pendingCap bounds how many future-height proposals or votes are buffered
// per height before being dropped (spec.md §4.E "up to a per-peer cap").
const pendingCap = 64

// Worker is the single-threaded Tendermint state machine.
type Worker struct {
	log      log.Logger
	chain    ChainClient
	timeouts *timeout.Timeouts
	params   TimeoutParams
	selfAddr common.Address

	signer    message.Signer
	hasSigner atomic.Bool

	events chan Event
	done   chan struct{}

	validators *validator.Set
	verifier   *epoch.Verifier
	collector  *vote.Collector

	height *big.Int
	round  int64
	step   message.Step

	lockedRound int64
	lockedValue *message.Block
	validRound  int64
	validValue  *message.Block

	seenProposals map[int64]*message.Proposal // proposals observed this height, by round

	proposeToken, prevoteToken, precommitToken uuid.UUID

	pendingProposals map[uint64][]*message.Proposal
	bufferedVotes    map[uint64][]*message.Vote

	// pendingEpochProofs tracks a committee-change signal observed on a
	// header but not yet paired with that header's own finality proof,
	// keyed by the signalling header's hash, mirroring engine.rs's
	// transition_store (spec.md §8 scenario 5).
	pendingEpochProofs map[common.Hash]epochPending

	broadcast    func(step message.Step, height *big.Int, round int64, payload interface{})
	notifyCommit func(block *message.Block)
}

// epochPending is one entry of pendingEpochProofs: the height a committee
// change was signalled at and the RLP-encoded committee it announced.
type epochPending struct {
	number uint64
	proof  []byte
}

// Config bundles the dependencies New needs, following the teacher's
// pattern of a single options struct handed to a core constructor.
type Config struct {
	Chain        ChainClient
	Validators   *validator.Set
	Verifier     *epoch.Verifier
	Timeouts     *timeout.Timeouts
	Params       TimeoutParams
	Log          log.Logger
	SelfAddr     common.Address
	Broadcast    func(step message.Step, height *big.Int, round int64, payload interface{})
	NotifyCommit func(block *message.Block)
}

// New constructs a Worker at the height one past the chain's current best,
// per spec.md §4.E "Initial state: H = best_committed + 1".
func New(cfg Config) *Worker {
	info := cfg.Chain.ChainInfo()
	height := new(big.Int).Add(info.BestNumber, big.NewInt(1))

	w := &Worker{
		log:                cfg.Log,
		chain:              cfg.Chain,
		timeouts:           cfg.Timeouts,
		params:             cfg.Params,
		selfAddr:           cfg.SelfAddr,
		events:             make(chan Event, eventQueueCap),
		done:               make(chan struct{}),
		validators:         cfg.Validators,
		verifier:           cfg.Verifier,
		collector:          vote.NewCollector(),
		height:             height,
		lockedRound:        noRound,
		validRound:         noRound,
		seenProposals:      make(map[int64]*message.Proposal),
		pendingProposals:   make(map[uint64][]*message.Proposal),
		bufferedVotes:      make(map[uint64][]*message.Vote),
		pendingEpochProofs: make(map[common.Hash]epochPending),
		broadcast:          cfg.Broadcast,
		notifyCommit:       cfg.NotifyCommit,
	}
	return w
}

// Submit enqueues ev for processing, returning false if the worker has
// already been stopped.
func (w *Worker) Submit(ev Event) bool {
	select {
	case <-w.done:
		return false
	default:
	}
	select {
	case w.events <- ev:
		return true
	case <-w.done:
		return false
	}
}

// Do sends a facade Request and blocks for its Result, or returns
// ErrEngineStopped if the worker has shut down (spec.md §4.G, §9
// "pending replies complete with a terminal error").
func (w *Worker) Do(req *Request) Result {
	req.Reply = make(chan Result, 1)
	if !w.Submit(Event{Kind: EvRequest, Request: req}) {
		return Result{Err: ErrEngineStopped}
	}
	select {
	case r := <-req.Reply:
		return r
	case <-w.done:
		return Result{Err: ErrEngineStopped}
	}
}

// HasSigner reports whether a signer has been installed, readable without
// entering the worker (spec.md §9 "Global signer flag").
func (w *Worker) HasSigner() bool { return w.hasSigner.Load() }

// Stop closes the event queue; any request already blocked on a reply
// receives ErrEngineStopped.
func (w *Worker) Stop() { close(w.done) }

// Run drives the single-consumer event loop until Stop is called, taking
// events from the queue and fired timers from the Timeouts channel. It is
// the direct analogue of handler.go's mainEventLoop.
func (w *Worker) Run() {
	w.startRound(0)
	for {
		select {
		case <-w.done:
			return
		case ev := <-w.events:
			w.handle(ev)
		case fired := <-w.timeouts.Fired():
			w.handle(Event{Kind: EvTimeout, Timeout: TimeoutFired(fired)})
		}
	}
}

func (w *Worker) handle(ev Event) {
	switch ev.Kind {
	case EvNewHeight:
		w.startRound(0)
	case EvProposal:
		w.onProposal(ev.Proposal)
	case EvVote:
		w.onVote(ev.Vote)
	case EvTimeout:
		w.onTimeout(ev.Timeout)
	case EvProposalGenerated:
		w.onProposalGenerated(ev.ProposalGenerated)
	case EvHandleMessages:
		w.onHandleMessages(ev.RawMessages)
	case EvRequest:
		w.handleRequest(ev.Request)
	case EvEpochFinalized:
		w.onEpochFinalized(ev.EpochSet)
	}
}

// startRound enters Propose at the given round, transition 1 of spec.md
// §4.E.
func (w *Worker) startRound(round int64) {
	w.timeouts.StopAll()
	w.round = round
	w.step = message.StepPropose

	w.proposeToken = w.timeouts.Arm(w.height, round, message.StepPropose, w.params.Propose(round))

	proposer := w.validators.Proposer(round)
	if proposer != w.selfAddr {
		// Wait for the expected proposer; check whether it already
		// arrived out of order.
		if p, ok := w.seenProposals[round]; ok {
			w.onProposal(p)
		}
		return
	}
	if !w.hasSigner.Load() {
		return
	}
	if !noLock(w.validRound) && w.validValue != nil {
		w.proposeValue(round, w.validValue, w.validRound)
		return
	}
	// Otherwise wait for ProposalGenerated to deliver a freshly sealed
	// candidate block (spec.md §4.E transition 1).
}

// proposeValue signs and broadcasts a Proposal for block at round, claiming
// validRound as the polka that justifies re-proposing it.
func (w *Worker) proposeValue(round int64, block *message.Block, validRound int64) {
	p := &message.Proposal{
		Round:         round,
		Height:        w.height,
		ValidRound:    validRound,
		ProposalBlock: block,
		Address:       w.selfAddr,
	}
	digest := message.HashHeader(block.Header)
	sig, err := w.signer.Sign(digest)
	if err != nil {
		w.log.Error("failed to sign proposal", "err", err)
		return
	}
	p.Signature = sig
	w.seenProposals[round] = p
	w.broadcast(message.StepPropose, w.height, round, p)
	if round == w.round {
		w.onProposal(p)
	}
}

// onProposalGenerated handles a freshly sealed candidate block handed to us
// by the chain client because we are the current round's proposer.
func (w *Worker) onProposalGenerated(block *message.Block) {
	if w.step != message.StepPropose || w.validators.Proposer(w.round) != w.selfAddr {
		return
	}
	if _, already := w.seenProposals[w.round]; already {
		return
	}
	w.proposeValue(w.round, block, w.validRound)
}

// onProposal handles transition 2 of spec.md §4.E.
func (w *Worker) onProposal(p *message.Proposal) {
	if p.Height == nil || p.Height.Cmp(w.height) != 0 {
		w.bufferProposal(p)
		return
	}
	if p.Round != w.round {
		w.seenProposals[p.Round] = p
		// A prevote quorum for this round may already have formed while
		// its proposal was still in flight; re-check now that the block
		// it names has finally arrived (spec.md §8 scenario 3).
		w.checkPrevoteQuorum(p.Round)
		return
	}
	// A different proposal already recorded for this round is ignored; the
	// recorded one itself (stored by proposeValue or on early arrival) is
	// processed here.
	if seen, already := w.seenProposals[p.Round]; already && seen != p {
		return
	}

	member, ok := w.validators.Member(p.Address)
	if !ok || p.Address != w.validators.Proposer(p.Round) {
		w.log.Warn("dropping proposal from unexpected proposer", "addr", p.Address)
		return
	}
	if err := message.VerifyProposalSignature(&member, p); err != nil {
		w.log.Warn("dropping proposal with bad signature", "err", err)
		return
	}

	valid := p.ValidRound == noRound
	if !valid {
		if v, ok := w.collector.QuorumValue(w.validators, w.height, p.ValidRound, message.StepPrevote); ok && v == p.ProposalBlock.Hash() {
			valid = true
		}
	}

	w.seenProposals[p.Round] = p
	if w.step != message.StepPropose {
		return
	}

	var voteValue common.Hash
	if valid && w.lockCompatible(p) {
		voteValue = p.ProposalBlock.Hash()
	} else {
		voteValue = message.NilValue
	}
	w.enterPrevote(voteValue)
}

// lockCompatible reports whether p may be safely prevoted given our current
// lock, per invariant 2/3 of spec.md §3.
func (w *Worker) lockCompatible(p *message.Proposal) bool {
	if noLock(w.lockedRound) {
		return true
	}
	if w.lockedValue != nil && w.lockedValue.Hash() == p.ProposalBlock.Hash() {
		return true
	}
	return w.lockedRound <= p.ValidRound
}

func (w *Worker) enterPrevote(value common.Hash) {
	w.step = message.StepPrevote
	w.castVote(message.StepPrevote, value)
	w.prevoteToken = w.timeouts.Arm(w.height, w.round, message.StepPrevote, w.params.Prevote(w.round))
}

func (w *Worker) castVote(step message.Step, value common.Hash) {
	if !w.hasSigner.Load() {
		return
	}
	v := &message.Vote{Step: step, Height: w.height, Round: w.round, Value: value, Address: w.selfAddr}
	digest, err := message.CanonicalDigest(v.VoteOn())
	if err != nil {
		w.log.Error("failed to hash vote digest", "err", err)
		return
	}
	sig, err := w.signer.Sign(digest)
	if err != nil {
		w.log.Error("failed to sign vote", "err", err)
		return
	}
	v.Signature = sig
	w.broadcast(step, w.height, w.round, v)
	w.onVote(v) // count our own vote immediately
}

// onVote handles transitions 3 and 4 of spec.md §4.E, and the
// any-round precommit quorum of transition 6.
func (w *Worker) onVote(v *message.Vote) {
	_ = w.applyVote(v)
}

// applyVote is onVote's implementation, returning the insertion outcome so
// a facade caller (reqHandleMessage) can surface DoubleVote to the client
// per spec.md §7.
func (w *Worker) applyVote(v *message.Vote) vote.InsertResult {
	if v.Height == nil || v.Height.Cmp(w.height) < 0 {
		return vote.Duplicate // committed height: treat as a no-op
	}
	if v.Height.Cmp(w.height) > 0 {
		w.bufferVote(v)
		return vote.Inserted
	}

	res, prior := w.collector.Insert(v)
	switch res {
	case vote.Duplicate:
		return res
	case vote.Equivocation:
		w.log.Warn("double vote detected", "addr", v.Address, "height", v.Height, "round", v.Round, "prior", prior.Value, "new", v.Value)
		return res
	}

	switch v.Step {
	case message.StepPrevote:
		w.checkPrevoteQuorum(v.Round)
	case message.StepPrecommit:
		w.checkPrecommitQuorum(v.Round)
	}
	return res
}

func (w *Worker) checkPrevoteQuorum(round int64) {
	if nilPower := w.collector.PowerFor(w.validators, w.height, round, message.StepPrevote, message.NilValue); w.validators.HasQuorum(nilPower) {
		w.onPrevoteNilQuorum(round)
		return
	}
	value, ok := w.collector.QuorumValue(w.validators, w.height, round, message.StepPrevote)
	if !ok || value == message.NilValue {
		return
	}
	w.onPrevoteQuorum(round, value)
}

// onPrevoteQuorum is transition 3: a polka for a concrete block.
func (w *Worker) onPrevoteQuorum(round int64, value common.Hash) {
	p, have := w.seenProposals[round]
	if !have || p.ProposalBlock.Hash() != value {
		return // we never saw the block this polka is for; nothing to act on yet
	}
	w.validRound = round
	w.validValue = p.ProposalBlock

	if round != w.round || w.step != message.StepPrevote {
		return
	}
	w.lockedRound = round
	w.lockedValue = p.ProposalBlock
	w.step = message.StepPrecommit
	w.castVote(message.StepPrecommit, value)
	w.precommitToken = w.timeouts.Arm(w.height, w.round, message.StepPrecommit, w.params.Precommit(w.round))
}

// onPrevoteNilQuorum is transition 4. Unlike onPrevoteQuorum, this fires
// even if we are still at Propose (never having seen the round's
// proposal): a nil polka is enough evidence on its own, with no block to
// wait for (spec.md §8 scenario 2).
func (w *Worker) onPrevoteNilQuorum(round int64) {
	if round != w.round || w.step == message.StepPrecommit || w.step == message.StepCommit {
		return
	}
	w.step = message.StepPrecommit
	w.castVote(message.StepPrecommit, message.NilValue)
	w.precommitToken = w.timeouts.Arm(w.height, w.round, message.StepPrecommit, w.params.Precommit(w.round))
}

func (w *Worker) checkPrecommitQuorum(round int64) {
	value, ok := w.collector.QuorumValue(w.validators, w.height, round, message.StepPrecommit)
	if !ok || value == message.NilValue {
		return
	}
	w.onPrecommitQuorum(round, value)
}

// onPrecommitQuorum is transition 6: "On >= threshold Precommit for B at
// any (H,V')" — it acts regardless of which round currently has focus.
func (w *Worker) onPrecommitQuorum(round int64, value common.Hash) {
	p, have := w.seenProposals[round]
	if !have || p.ProposalBlock.Hash() != value {
		w.log.Warn("precommit quorum for a block we never saw", "round", round)
		return
	}

	votes := w.collector.Messages(w.height, round, message.StepPrecommit, value)
	members := w.validators.Members()
	precommitSeals := make([][]byte, len(members))
	for _, v := range votes {
		for i, m := range members {
			if m.Address == v.Address {
				precommitSeals[i] = v.Signature
			}
		}
	}

	header := *p.ProposalBlock.Header
	header.Round = round
	header.ProposerSeal = p.Signature
	header.PrecommitSeals = precommitSeals
	sealedBlock := &message.Block{Header: &header, Body: p.ProposalBlock.Body}

	raw, err := rlp.EncodeToBytes(sealedBlock)
	if err != nil {
		w.log.Error("failed to encode sealed block", "err", err)
		return
	}

	hash, err := w.chain.ImportBlock(raw)
	if err != nil {
		w.log.Error("import failed, will retry at next precommit timeout", "err", err)
		return
	}

	if w.notifyCommit != nil {
		w.notifyCommit(sealedBlock)
	}
	w.advanceHeight(hash)
}

// onTimeout dispatches an expired, still-current timer. Tokens are compared
// by value against the token issued for the current (H, V, S); a mismatch
// means the timer is stale and is silently dropped (spec.md §4.C, §9
// "generation counter").
func (w *Worker) onTimeout(f TimeoutFired) {
	if f.Height.Cmp(w.height) != 0 || f.Round != w.round {
		return
	}
	switch f.Step {
	case message.StepPropose:
		if f.Token != w.proposeToken || w.step != message.StepPropose {
			return
		}
		w.enterPrevote(message.NilValue)
	case message.StepPrevote:
		if f.Token != w.prevoteToken || w.step != message.StepPrevote {
			return
		}
		w.onPrevoteTimeout()
	case message.StepPrecommit:
		if f.Token != w.precommitToken || w.step != message.StepPrecommit {
			return
		}
		w.onPrecommitTimeout()
	}
}

// onPrevoteTimeout is transition 5.
func (w *Worker) onPrevoteTimeout() {
	w.step = message.StepPrecommit
	w.castVote(message.StepPrecommit, message.NilValue)
	w.precommitToken = w.timeouts.Arm(w.height, w.round, message.StepPrecommit, w.params.Precommit(w.round))
}

// onPrecommitTimeout is transition 7. A precommit quorum whose block import
// failed earlier is retried first; the round only advances if the height
// is still uncommitted afterwards.
func (w *Worker) onPrecommitTimeout() {
	height := w.height
	for r := int64(0); r <= w.round && w.height.Cmp(height) == 0; r++ {
		w.checkPrecommitQuorum(r)
	}
	if w.height.Cmp(height) != 0 {
		return
	}
	w.startRound(w.round + 1)
}

// advanceHeight is transition 8: finalize the height advance after a
// successful import.
func (w *Worker) advanceHeight(committedHash common.Hash) {
	w.timeouts.StopAll()
	w.collector.Prune(w.height)
	w.height = new(big.Int).Add(w.height, big.NewInt(1))
	w.lockedRound = noRound
	w.lockedValue = nil
	w.validRound = noRound
	w.validValue = nil
	w.seenProposals = make(map[int64]*message.Proposal)

	h := w.height.Uint64()
	for _, p := range w.pendingProposals[h] {
		w.seenProposals[p.Round] = p
	}
	delete(w.pendingProposals, h)

	buffered := w.bufferedVotes[h]
	delete(w.bufferedVotes, h)

	w.startRound(0)

	for _, v := range buffered {
		w.onVote(v)
	}
}

// onEpochFinalized swaps the live committee once a pending transition's
// finality proof has been checked by a ReqEpochVerifier Finalizer, closing
// engine.rs's Unconfirmed -> Trusted loop (spec.md §8 scenario 5).
func (w *Worker) onEpochFinalized(set *validator.Set) {
	if set == nil {
		return
	}
	w.validators = set
	w.verifier = epoch.New(set)
}

// onHandleMessages decodes raw peer bytes into Proposal or Vote frames and
// routes each into the worker, the NetworkExtension's inbound path (spec.md
// §4.F).
func (w *Worker) onHandleMessages(raw [][]byte) {
	for _, b := range raw {
		var p message.Proposal
		if err := rlp.DecodeBytes(b, &p); err == nil && p.ProposalBlock != nil {
			w.onProposal(&p)
			continue
		}
		var v message.Vote
		if err := rlp.DecodeBytes(b, &v); err == nil {
			w.onVote(&v)
			continue
		}
		w.log.Warn("dropping undecodable peer message")
	}
}

func (w *Worker) bufferProposal(p *message.Proposal) {
	if p.Height == nil || p.Height.Cmp(w.height) <= 0 {
		return // past height, drop
	}
	h := p.Height.Uint64()
	if len(w.pendingProposals[h]) >= pendingCap {
		return
	}
	w.pendingProposals[h] = append(w.pendingProposals[h], p)
}

func (w *Worker) bufferVote(v *message.Vote) {
	h := v.Height.Uint64()
	if len(w.bufferedVotes[h]) >= pendingCap {
		return
	}
	w.bufferedVotes[h] = append(w.bufferedVotes[h], v)
}

package core

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/clearmatics/tendercore/tendermint/epoch"
	"github.com/clearmatics/tendercore/tendermint/message"
	"github.com/clearmatics/tendercore/tendermint/validator"
)

// BlockID names a block by hash or by number, the lookup key ChainClient
// accepts (spec.md §6 "block_header(id)", "block(id)").
type BlockID struct {
	Hash   common.Hash
	Number *big.Int
	ByHash bool
}

// ByHashID builds a hash-keyed BlockID.
func ByHashID(h common.Hash) BlockID { return BlockID{Hash: h, ByHash: true} }

// ByNumberID builds a number-keyed BlockID.
func ByNumberID(n *big.Int) BlockID { return BlockID{Number: n} }

// ChainInfo is the snapshot the worker reads to learn where the canonical
// chain currently stands (spec.md §6 "chain_info()").
type ChainInfo struct {
	BestHash    common.Hash
	BestNumber  *big.Int
	BestScore   *big.Int
	GenesisHash common.Hash
}

// QueueInfo reports the chain client's import backlog.
type QueueInfo struct {
	Pending int
}

// ChainClient is the narrow capability surface the worker needs from the
// blockchain client: read headers/blocks, import a sealed block, and learn
// the current chain head. This is deliberately narrower than the real
// client (spec.md §9 "Cyclic collaborator graph": the broader client need
// not be visible to the worker).
type ChainClient interface {
	BlockHeader(id BlockID) (*message.Header, bool)
	Block(id BlockID) (*message.Block, bool)
	ImportBlock(raw []byte) (common.Hash, error)
	ChainInfo() ChainInfo
	QueueInfo() QueueInfo
	UpdateSealing(parent common.Hash, allowEmpty bool)
}

// TimeoutParams holds the base+delta durations for each step's timer,
// generalizing the teacher's proposeTimeout/prevoteTimeout/precommitTimeout
// fields (spec.md §4.C).
type TimeoutParams struct {
	ProposeBase, ProposeDelta     time.Duration
	PrevoteBase, PrevoteDelta     time.Duration
	PrecommitBase, PrecommitDelta time.Duration
}

func (p TimeoutParams) Propose(round int64) time.Duration {
	return p.ProposeBase + time.Duration(round)*p.ProposeDelta
}

func (p TimeoutParams) Prevote(round int64) time.Duration {
	return p.PrevoteBase + time.Duration(round)*p.PrevoteDelta
}

func (p TimeoutParams) Precommit(round int64) time.Duration {
	return p.PrecommitBase + time.Duration(round)*p.PrecommitDelta
}

// DefaultTimeoutParams mirrors the magnitudes autonity's core/timeout
// defaults use: a few seconds at round 0, growing 500ms per round.
var DefaultTimeoutParams = TimeoutParams{
	ProposeBase: 3 * time.Second, ProposeDelta: 500 * time.Millisecond,
	PrevoteBase: 3 * time.Second, PrevoteDelta: 500 * time.Millisecond,
	PrecommitBase: 3 * time.Second, PrecommitDelta: 500 * time.Millisecond,
}

// EventKind discriminates the single Event sum type the worker consumes,
// generalizing handler.go's mainEventLoop select over
// messageEventSub/timeoutEventSub/committedSub into one channel.
type EventKind int

const (
	EvNewHeight EventKind = iota
	EvProposal
	EvVote
	EvTimeout
	EvProposalGenerated
	EvHandleMessages
	EvRequest
	// EvEpochFinalized swaps the live committee once a pending epoch
	// transition's finality proof has checked out, closing the
	// Unconfirmed -> Trusted loop a ReqEpochVerifier Finalizer runs
	// outside the worker goroutine (spec.md §8 scenario 5).
	EvEpochFinalized
)

// Event is the single type flowing through the worker's event channel.
// Exactly one field is meaningful, selected by Kind.
type Event struct {
	Kind              EventKind
	Proposal          *message.Proposal
	Vote              *message.Vote
	Timeout           TimeoutFired
	ProposalGenerated *message.Block
	RawMessages       [][]byte
	Request           *Request
	EpochSet          *validator.Set
}

// TimeoutFired carries the token and tag a fired timer was armed with.
type TimeoutFired struct {
	Token  uuid.UUID
	Height *big.Int
	Round  int64
	Step   message.Step
}

// RequestKind discriminates a facade call, one per ConsensusEngine method
// that needs worker state (spec.md §6, §9).
type RequestKind int

const (
	ReqGenerateSeal RequestKind = iota
	ReqVerifyBlockBasic
	ReqVerifyBlockExternal
	ReqIsProposal
	ReqHandleMessage
	ReqOnNewBlock
	ReqOnCloseBlock
	ReqCanChangeCanonChain
	ReqCalculateScore
	ReqSetSigner
	// ReqSignalsEpochEnd, ReqIsEpochEnd and ReqEpochVerifier generalize
	// original_source/engine.rs's signals_epoch_end/is_epoch_end/
	// epoch_verifier ConsensusEngine methods (spec.md §6, §8 scenario 5).
	ReqSignalsEpochEnd
	ReqIsEpochEnd
	ReqEpochVerifier
)

// FeeInput is one action's paid fee and the minimum it owed, the input
// on_close_block sums over a block's actions (spec.md §6 "Fee schedule").
type FeeInput struct {
	Kind   interface{} // fees.ActionKind, kept as interface{} to avoid an import cycle
	Paid   *big.Int
	MinFee *big.Int
}

// Request is a single-use facade call: a typed payload plus a reply channel
// the caller blocks on, exactly engine.rs's crossbeam::bounded(1) +
// receiver.recv() pattern using a Go channel (spec.md §4.G, §9).
type Request struct {
	Kind     RequestKind
	Header   *message.Header
	Block    *message.Block
	Raw      []byte
	Signer   message.Signer
	Fees     []FeeInput
	MinPool  *big.Int
	TotalFee *big.Int
	Author   common.Address
	IsFirst  bool
	Proof    []byte
	Reply    chan Result
}

// Result is the reply to a Request. Only the fields relevant to the
// request's Kind are populated.
type Result struct {
	Seal          *message.Seal
	Err           error
	Bool          bool
	Hash          common.Hash
	Score         *big.Int
	Shares        map[common.Address]*big.Int
	Bonus         *big.Int
	EpochSignal   *validator.EpochSignal
	Proof         []byte
	EpochVerifier *epoch.ConstructedVerifier
}

// CalculateScore is a deterministic fork-choice weight, a pure function of
// height (Open Question 1, resolved in DESIGN.md: view does not
// contribute, following the teacher's populate_from_parent).
func CalculateScore(height *big.Int) *big.Int {
	return new(big.Int).Set(height)
}

package core

import "errors"

// Error kinds surfaced to callers, per spec.md §7. Recoverable conditions
// (DoubleVote, stale votes, stale timeouts) are logged and swallowed inside
// the worker rather than propagated; the rest are returned to the caller of
// EngineFacade.
var (
	ErrNotAuthorized     = errors.New("tendermint: signer not authorized for this validator set")
	ErrBadSeal           = errors.New("tendermint: bad seal")
	ErrDoubleVote        = errors.New("tendermint: double vote")
	ErrUnexpectedMessage = errors.New("tendermint: unexpected height or round")
	ErrEpochProofInvalid = errors.New("tendermint: epoch proof invalid")
	ErrEngineStopped     = errors.New("tendermint: engine stopped")
	ErrNotFromProposer   = errors.New("tendermint: proposal not from expected proposer")
)

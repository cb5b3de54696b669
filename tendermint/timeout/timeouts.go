// Package timeout manages the per-step timers the consensus worker arms for
// propose/prevote/precommit, using an injectable clock so tests can advance
// time deterministically rather than sleeping. The benbjohnson/clock
// dependency and token-based cancellation pattern are grounded on
// BigBossBooling-Empower1Blockchain's go.mod, which is the pack repo that
// pulls in both benbjohnson/clock and google/uuid.
package timeout

import (
	"math/big"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/clearmatics/tendercore/tendermint/message"
)

// Fired describes an expired timer, delivered on the Timeouts' channel.
type Fired struct {
	Token  uuid.UUID
	Height *big.Int
	Round  int64
	Step   message.Step
}

// Timeouts arms and cancels per-step deadlines. A fired timer is only
// meaningful if its token is still the one the worker is waiting on; Stop
// invalidates a token as well as stopping its clock.Timer, so a timer whose
// callback is already running still drops its delivery (mirrors how
// autonity's core/timeout.go discards obsolete timers rather than relying
// on race-free cancellation of an OS timer).
type Timeouts struct {
	clk clock.Clock

	mu     sync.Mutex
	valid  map[uuid.UUID]struct{}
	timers map[uuid.UUID]*clock.Timer

	fired chan Fired
}

// New returns a Timeouts backed by clk. Pass clock.New() in production and a
// clock.NewMock() in tests.
func New(clk clock.Clock) *Timeouts {
	return &Timeouts{
		clk:    clk,
		valid:  make(map[uuid.UUID]struct{}),
		timers: make(map[uuid.UUID]*clock.Timer),
		fired:  make(chan Fired, 16),
	}
}

// Fired returns the channel on which expired, still-valid timers are
// delivered.
func (t *Timeouts) Fired() <-chan Fired { return t.fired }

// Arm schedules a timeout for (height, round, step) after d and returns the
// token identifying it. Only the most recently armed token for a given
// (height, round, step) is meaningful; callers are expected to call Stop on
// superseded tokens themselves via StopAll at round/height transitions.
func (t *Timeouts) Arm(height *big.Int, round int64, step message.Step, d time.Duration) uuid.UUID {
	token := uuid.New()

	t.mu.Lock()
	t.valid[token] = struct{}{}
	timer := t.clk.AfterFunc(d, func() {
		t.mu.Lock()
		_, ok := t.valid[token]
		if ok {
			delete(t.valid, token)
		}
		delete(t.timers, token)
		t.mu.Unlock()

		if ok {
			t.fired <- Fired{Token: token, Height: height, Round: round, Step: step}
		}
	})
	t.timers[token] = timer
	t.mu.Unlock()

	return token
}

// Valid reports whether token still refers to a live, uncancelled timer.
func (t *Timeouts) Valid(token uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.valid[token]
	return ok
}

// Stop invalidates token. If its timer has not yet fired, the underlying
// clock timer is also stopped so it never fires.
func (t *Timeouts) Stop(token uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.valid, token)
	if timer, ok := t.timers[token]; ok {
		timer.Stop()
		delete(t.timers, token)
	}
}

// StopAll invalidates every outstanding timer, used when the worker advances
// round or height and every previously armed timeout becomes stale
// (spec.md §4.D "round and height transitions cancel pending timeouts").
func (t *Timeouts) StopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for token, timer := range t.timers {
		timer.Stop()
		delete(t.timers, token)
	}
	t.valid = make(map[uuid.UUID]struct{})
}

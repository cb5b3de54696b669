// Package vote stores the votes a worker has seen for the current and
// recent heights, and answers quorum queries over them. The nested-map
// shape follows autonity's consensus/tendermint/core/msg_store.go.
package vote

import (
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/clearmatics/tendercore/tendermint/message"
	"github.com/clearmatics/tendercore/tendermint/validator"
)

// InsertResult classifies the outcome of inserting a vote.
type InsertResult int

const (
	// Inserted means the vote was new and has been recorded.
	Inserted InsertResult = iota
	// Duplicate means an identical vote was already stored; a no-op.
	Duplicate
	// Equivocation means this validator already voted for a different
	// value at the same height/round/step — double-voting evidence
	// (spec.md §4.B "equivocation").
	Equivocation
)

type key struct {
	height uint64
	round  int64
	step   message.Step
}

// Collector holds every vote received for a bounded window of heights,
// indexed for both per-value tallying and equivocation detection.
type Collector struct {
	mu sync.Mutex
	// votes[key][address] = vote cast by that address at that height/round/step.
	votes map[key]map[common.Address]*message.Vote
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{votes: make(map[key]map[common.Address]*message.Vote)}
}

func keyOf(v *message.Vote) key {
	return key{height: v.Height.Uint64(), round: v.Round, step: v.Step}
}

// Insert records v, reporting whether it was new, a duplicate, or
// equivocation evidence against an already-stored vote from the same
// address.
func (c *Collector) Insert(v *message.Vote) (InsertResult, *message.Vote) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := keyOf(v)
	byAddr, ok := c.votes[k]
	if !ok {
		byAddr = make(map[common.Address]*message.Vote)
		c.votes[k] = byAddr
	}
	existing, ok := byAddr[v.Address]
	if !ok {
		byAddr[v.Address] = v
		return Inserted, nil
	}
	if existing.Value == v.Value {
		return Duplicate, nil
	}
	return Equivocation, existing
}

// PowerFor sums the voting power backing value at (height, round, step)
// according to set, without requiring a fixed quorum — callers decide what
// to do with the returned total.
func (c *Collector) PowerFor(set *validator.Set, height *big.Int, round int64, step message.Step, value common.Hash) *big.Int {
	c.mu.Lock()
	byAddr := c.votes[key{height: height.Uint64(), round: round, step: step}]
	votes := make([]*message.Vote, 0, len(byAddr))
	for _, v := range byAddr {
		votes = append(votes, v)
	}
	c.mu.Unlock()

	total := new(big.Int)
	for _, v := range votes {
		if v.Value != value {
			continue
		}
		member, ok := set.Member(v.Address)
		if !ok {
			continue
		}
		total.Add(total, member.VotingPower)
	}
	return total
}

// QuorumValue scans every distinct value voted for at (height, round, step)
// and returns the first one meeting set's quorum threshold, if any. Ties
// cannot both meet a >2/3 threshold, so at most one value can qualify.
func (c *Collector) QuorumValue(set *validator.Set, height *big.Int, round int64, step message.Step) (common.Hash, bool) {
	c.mu.Lock()
	byAddr := c.votes[key{height: height.Uint64(), round: round, step: step}]
	votes := make([]*message.Vote, 0, len(byAddr))
	for _, v := range byAddr {
		votes = append(votes, v)
	}
	c.mu.Unlock()

	seen := make(map[common.Hash]struct{})
	for _, v := range votes {
		seen[v.Value] = struct{}{}
	}
	for value := range seen {
		if set.HasQuorum(c.PowerFor(set, height, round, step, value)) {
			return value, true
		}
	}
	return common.Hash{}, false
}

// Count returns the number of distinct validators that have voted at
// (height, round, step), regardless of value.
func (c *Collector) Count(height *big.Int, round int64, step message.Step) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.votes[key{height: height.Uint64(), round: round, step: step}])
}

// Prune discards every vote at a height strictly below minHeight, following
// msg_store.go's DeleteMsgsBeforeHeight.
func (c *Collector) Prune(minHeight *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	min := minHeight.Uint64()
	for k := range c.votes {
		if k.height < min {
			delete(c.votes, k)
		}
	}
}

// Get returns every vote stored at height matching query, following
// msg_store.go's predicate-based Get; used by tooling that needs arbitrary
// cross-round/cross-step queries rather than a fixed (round, step, value)
// lookup.
func (c *Collector) Get(height uint64, query func(*message.Vote) bool) []*message.Vote {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*message.Vote
	for k, byAddr := range c.votes {
		if k.height != height {
			continue
		}
		for _, v := range byAddr {
			if query(v) {
				out = append(out, v)
			}
		}
	}
	return out
}

// Messages returns the votes cast for value at (height, round, step),
// ordered by ascending signer address, the stable order seal assembly
// requires (spec.md §4.A "messages(H, V, S, block)").
func (c *Collector) Messages(height *big.Int, round int64, step message.Step, value common.Hash) []*message.Vote {
	c.mu.Lock()
	byAddr := c.votes[key{height: height.Uint64(), round: round, step: step}]
	out := make([]*message.Vote, 0, len(byAddr))
	for _, v := range byAddr {
		if v.Value == value {
			out = append(out, v)
		}
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Address.Hex() < out[j].Address.Hex() })
	return out
}

// Package testclient is a minimal in-memory stand-in for the real
// blockchain client, existing only to drive the consensus worker in tests
// (spec.md §1: "The test client is not the hard part; it exists only to
// stand in for the real chain storage and transaction pool during unit
// tests"). It is ported from original_source/core/src/client/test_client.rs's
// TestBlockChainClient, keeping its ImportBlock parent-rewrite behavior
// (Open Question 2, resolved in DESIGN.md) verbatim.
package testclient

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/clearmatics/tendercore/tendermint/core"
	"github.com/clearmatics/tendercore/tendermint/message"
)

var (
	ErrUnknownParent  = errors.New("testclient: unknown block parent")
	ErrUnexpectedSlot = errors.New("testclient: unexpected block number")
)

// Client is an in-memory implementation of core.ChainClient.
type Client struct {
	mu sync.RWMutex

	genesisHash common.Hash
	blocks      map[common.Hash][]byte
	headers     map[common.Hash]*message.Header
	numbers     map[uint64]common.Hash // canonical index: height -> hash
	lastHash    common.Hash
	score       *big.Int
}

// New returns a Client seeded with a genesis block at height 0.
func New(genesis *message.Block) *Client {
	c := &Client{
		blocks:  make(map[common.Hash][]byte),
		headers: make(map[common.Hash]*message.Header),
		numbers: make(map[uint64]common.Hash),
		score:   new(big.Int),
	}
	hash := message.HashHeader(genesis.Header)
	c.genesisHash = hash
	c.lastHash = hash
	c.headers[hash] = genesis.Header
	c.numbers[0] = hash
	raw, _ := rlp.EncodeToBytes(genesis)
	c.blocks[hash] = raw
	return c
}

func (c *Client) resolve(id core.BlockID) (common.Hash, bool) {
	if id.ByHash {
		_, ok := c.headers[id.Hash]
		return id.Hash, ok
	}
	if id.Number == nil {
		return common.Hash{}, false
	}
	h, ok := c.numbers[id.Number.Uint64()]
	return h, ok
}

// BlockHeader implements core.ChainClient.
func (c *Client) BlockHeader(id core.BlockID) (*message.Header, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hash, ok := c.resolve(id)
	if !ok {
		return nil, false
	}
	h, ok := c.headers[hash]
	return h, ok
}

// Block implements core.ChainClient.
func (c *Client) Block(id core.BlockID) (*message.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hash, ok := c.resolve(id)
	if !ok {
		return nil, false
	}
	raw, ok := c.blocks[hash]
	if !ok {
		return nil, false
	}
	var b message.Block
	if err := rlp.DecodeBytes(raw, &b); err != nil {
		return nil, false
	}
	return &b, true
}

// ImportBlock decodes and stores a sealed block, following
// test_client.rs's import_block: a block at the height right after the
// canonical tip becomes the new tip, and the import then walks backward
// over `numbers`, overwriting every entry that disagrees with the new
// block's ancestry until it rejoins the existing canonical chain. A block
// at or below the tip height is stored but leaves `numbers` unchanged. This
// reorganizes the canonical height->hash index on fork arrival (Open
// Question 2: kept as an intentional reorg, documented in DESIGN.md, since
// the worker only calls ImportBlock with already-committed, quorum-backed
// blocks).
func (c *Client) ImportBlock(raw []byte) (common.Hash, error) {
	var b message.Block
	if err := rlp.DecodeBytes(raw, &b); err != nil {
		return common.Hash{}, err
	}
	header := b.Header
	hash := message.HashHeader(header)
	number := header.Number.Uint64()

	c.mu.Lock()
	defer c.mu.Unlock()

	tip := uint64(len(c.numbers))
	if number > tip {
		return common.Hash{}, ErrUnexpectedSlot
	}
	if number > 0 {
		parent, ok := c.headers[header.ParentHash]
		if !ok {
			return common.Hash{}, ErrUnknownParent
		}
		if parent.Number.Uint64() != number-1 {
			return common.Hash{}, ErrUnexpectedSlot
		}
	}

	c.headers[hash] = header
	c.blocks[hash] = raw

	if number == tip {
		c.score.Add(c.score, header.Score)
		c.lastHash = hash
		c.numbers[number] = hash

		parentHash := header.ParentHash
		if number > 0 {
			n := number - 1
			for n > 0 && c.numbers[n] != parentHash {
				c.numbers[n] = parentHash
				n--
				parentHash = c.headers[parentHash].ParentHash
			}
		}
	}
	return hash, nil
}

// ChainInfo implements core.ChainClient.
func (c *Client) ChainInfo() core.ChainInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	best := c.headers[c.lastHash]
	return core.ChainInfo{
		BestHash:    c.lastHash,
		BestNumber:  new(big.Int).Set(best.Number),
		BestScore:   new(big.Int).Set(c.score),
		GenesisHash: c.genesisHash,
	}
}

// QueueInfo implements core.ChainClient; this test double has no async
// import queue, so it always reports empty.
func (c *Client) QueueInfo() core.QueueInfo { return core.QueueInfo{} }

// UpdateSealing is a no-op: the test double has no miner to notify.
func (c *Client) UpdateSealing(parent common.Hash, allowEmpty bool) {}

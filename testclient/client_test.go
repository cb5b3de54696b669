package testclient

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"

	"github.com/clearmatics/tendercore/tendermint/core"
	"github.com/clearmatics/tendercore/tendermint/message"
)

func genesisBlock() *message.Block {
	return &message.Block{
		Header: &message.Header{Number: big.NewInt(0), Score: big.NewInt(0)},
		Body:   []byte("genesis"),
	}
}

func childOf(t *testing.T, parent *message.Header, author common.Address) *message.Block {
	t.Helper()
	return &message.Block{
		Header: &message.Header{
			ParentHash: message.HashHeader(parent),
			Number:     new(big.Int).Add(parent.Number, big.NewInt(1)),
			Author:     author,
			Score:      core.CalculateScore(new(big.Int).Add(parent.Number, big.NewInt(1))),
		},
		Body: []byte("body"),
	}
}

func encode(t *testing.T, b *message.Block) []byte {
	t.Helper()
	raw, err := rlp.EncodeToBytes(b)
	require.NoError(t, err)
	return raw
}

func TestImportBlockExtendsCanonicalChain(t *testing.T) {
	c := New(genesisBlock())
	genesis := c.headers[c.genesisHash]

	b1 := childOf(t, genesis, common.HexToAddress("0x01"))
	hash1, err := c.ImportBlock(encode(t, b1))
	require.NoError(t, err)
	require.Equal(t, b1.Hash(), hash1)

	info := c.ChainInfo()
	require.Equal(t, hash1, info.BestHash)
	require.Equal(t, big.NewInt(1), info.BestNumber)
}

func TestImportBlockRejectsUnknownParent(t *testing.T) {
	c := New(genesisBlock())
	orphan := &message.Block{
		Header: &message.Header{
			ParentHash: common.HexToHash("0xdeadbeef"),
			Number:     big.NewInt(1),
			Score:      big.NewInt(1),
		},
		Body: []byte("x"),
	}
	_, err := c.ImportBlock(encode(t, orphan))
	require.ErrorIs(t, err, ErrUnknownParent)
}

func TestImportBlockRewritesCanonicalIndexOnFork(t *testing.T) {
	c := New(genesisBlock())
	genesis := c.headers[c.genesisHash]

	b1 := childOf(t, genesis, common.HexToAddress("0x01"))
	_, err := c.ImportBlock(encode(t, b1))
	require.NoError(t, err)

	b2 := childOf(t, b1.Header, common.HexToAddress("0x01"))
	_, err = c.ImportBlock(encode(t, b2))
	require.NoError(t, err)

	b3 := childOf(t, b2.Header, common.HexToAddress("0x01"))
	_, err = c.ImportBlock(encode(t, b3))
	require.NoError(t, err)
	require.Equal(t, uint64(3), c.ChainInfo().BestNumber.Uint64())

	// A sealed fork descending from b1 (not b2) is stored without touching
	// the canonical index until it reaches the height after the tip; that
	// import walks the index backward, overwriting heights 3 and 2 to point
	// at the fork, per the ported reorg behavior.
	fork2 := childOf(t, b1.Header, common.HexToAddress("0x02"))
	_, err = c.ImportBlock(encode(t, fork2))
	require.NoError(t, err)
	fork3 := childOf(t, fork2.Header, common.HexToAddress("0x02"))
	_, err = c.ImportBlock(encode(t, fork3))
	require.NoError(t, err)
	fork4 := childOf(t, fork3.Header, common.HexToAddress("0x02"))
	hash4, err := c.ImportBlock(encode(t, fork4))
	require.NoError(t, err)

	require.Equal(t, hash4, c.ChainInfo().BestHash)
	require.Equal(t, fork2.Hash(), c.numbers[2])
	require.Equal(t, b1.Hash(), c.numbers[1])
}

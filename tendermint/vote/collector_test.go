package vote

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/clearmatics/tendercore/tendermint/message"
	"github.com/clearmatics/tendercore/tendermint/validator"
)

func fourEqualValidators() *validator.Set {
	c := message.Committee{
		{Address: common.HexToAddress("0x01"), VotingPower: big.NewInt(1)},
		{Address: common.HexToAddress("0x02"), VotingPower: big.NewInt(1)},
		{Address: common.HexToAddress("0x03"), VotingPower: big.NewInt(1)},
		{Address: common.HexToAddress("0x04"), VotingPower: big.NewInt(1)},
	}
	return validator.NewSet(c)
}

func TestInsertDetectsDuplicateAndEquivocation(t *testing.T) {
	c := NewCollector()
	v1 := message.NewPrevote(big.NewInt(1), 0, common.HexToHash("0xaa"))
	v1.Address = common.HexToAddress("0x01")

	res, _ := c.Insert(v1)
	require.Equal(t, Inserted, res)

	res, _ = c.Insert(v1)
	require.Equal(t, Duplicate, res)

	v2 := message.NewPrevote(big.NewInt(1), 0, common.HexToHash("0xbb"))
	v2.Address = common.HexToAddress("0x01")
	res, prior := c.Insert(v2)
	require.Equal(t, Equivocation, res)
	require.Equal(t, v1, prior)
}

func TestQuorumValueRequiresThreshold(t *testing.T) {
	set := fourEqualValidators()
	c := NewCollector()
	value := common.HexToHash("0xaa")

	addrs := []string{"0x01", "0x02", "0x03", "0x04"}
	for i := 0; i < 2; i++ {
		v := message.NewPrevote(big.NewInt(1), 0, value)
		v.Address = common.HexToAddress(addrs[i])
		_, _ = c.Insert(v)
	}
	_, ok := c.QuorumValue(set, big.NewInt(1), 0, message.StepPrevote)
	require.False(t, ok, "2 of 4 voting power is not a quorum")

	v := message.NewPrevote(big.NewInt(1), 0, value)
	v.Address = common.HexToAddress(addrs[2])
	_, _ = c.Insert(v)

	got, ok := c.QuorumValue(set, big.NewInt(1), 0, message.StepPrevote)
	require.True(t, ok)
	require.Equal(t, value, got)
}

func TestPruneDropsOldHeights(t *testing.T) {
	c := NewCollector()
	v := message.NewPrevote(big.NewInt(1), 0, common.HexToHash("0xaa"))
	v.Address = common.HexToAddress("0x01")
	_, _ = c.Insert(v)

	c.Prune(big.NewInt(2))
	require.Equal(t, 0, c.Count(big.NewInt(1), 0, message.StepPrevote))
}

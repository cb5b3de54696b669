package fees

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestDistributeWorkedExample(t *testing.T) {
	a := common.HexToAddress("0xaa")
	b := common.HexToAddress("0xbb")
	c := common.HexToAddress("0xcc")

	stakes := []Stake{
		{Address: a, Power: big.NewInt(1)},
		{Address: b, Power: big.NewInt(1)},
		{Address: c, Power: big.NewInt(2)},
	}

	shares, bonus := Distribute(big.NewInt(30), big.NewInt(30), stakes, a)
	require.Equal(t, big.NewInt(7), shares[a])
	require.Equal(t, big.NewInt(8), shares[b])
	require.Equal(t, big.NewInt(15), shares[c])
	require.Equal(t, big.NewInt(0), bonus)

	sum := new(big.Int)
	for _, v := range shares {
		sum.Add(sum, v)
	}
	require.Equal(t, big.NewInt(30), sum)
}

func TestDistributeAuthorBonusIsFeeAboveMinimum(t *testing.T) {
	a := common.HexToAddress("0xaa")
	stakes := []Stake{{Address: a, Power: big.NewInt(1)}}

	_, bonus := Distribute(big.NewInt(50), big.NewInt(30), stakes, a)
	require.Equal(t, big.NewInt(20), bonus)
}

func TestDistributeEmptyPoolYieldsZeroShares(t *testing.T) {
	a := common.HexToAddress("0xaa")
	stakes := []Stake{{Address: a, Power: big.NewInt(1)}}

	shares, _ := Distribute(big.NewInt(0), big.NewInt(0), stakes, a)
	require.Equal(t, big.NewInt(0), shares[a])
}

func TestMinFeeVariesByActionKind(t *testing.T) {
	require.True(t, MinFee(ActionContractCreate).Cmp(MinFee(ActionTransfer)) > 0)
}

// Package fees computes minimum transaction fees per action kind and
// distributes a collected fee pool across the committee by stake weight.
// Both pieces are ported from the Rust teacher's on_close_block pipeline in
// original_source/core/src/consensus/tendermint/engine.rs (the minimum_fee
// match table and the stake::fee_distribute call plus author bonus), since
// the distilled spec only states the worked numeric example, not the
// match/apportionment tables themselves.
package fees

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// ActionKind distinguishes the chargeable operations a block can contain,
// each carrying a different minimum fee (spec.md §4.H "fee schedule").
type ActionKind uint8

const (
	ActionTransfer ActionKind = iota
	ActionContractCall
	ActionContractCreate
	ActionValidatorUpdate
)

// MinFee returns the base fee an action of this kind must pay, following the
// teacher's minimum_fee match arms.
func MinFee(kind ActionKind) *big.Int {
	switch kind {
	case ActionTransfer:
		return big.NewInt(1)
	case ActionContractCall:
		return big.NewInt(5)
	case ActionContractCreate:
		return big.NewInt(20)
	case ActionValidatorUpdate:
		return big.NewInt(10)
	default:
		return big.NewInt(1)
	}
}

// Stake pairs a validator address with its voting power, the input the
// apportionment algorithm below distributes a fee pool over.
type Stake struct {
	Address common.Address
	Power   *big.Int
}

// Distribute splits minFeePool among stakes proportionally to voting power
// using the largest-remainder (Hamilton) apportionment method, and returns
// author's separate bonus: the whole of totalFee that is not part of
// minFeePool (a block's extra, over-the-minimum fees go entirely to its
// proposer, following the teacher's on_close_block).
//
// Largest-remainder guarantees every share is an integer and the shares sum
// exactly to minFeePool: each stake first receives
// floor(minFeePool * power / total), then the leftover units (minFeePool
// minus the sum of floors) are handed out one each, most-entitled-remainder
// first. Ties in the remainder are broken toward the lexicographically
// later address, matching the worked example in spec.md §4.H (stakes
// {A:1, B:1, C:2}, pool 30 -> A:7, B:8, C:15: A and B tie on a 0.5
// remainder, and the tie is broken in B's favor).
func Distribute(totalFee, minFeePool *big.Int, stakes []Stake, author common.Address) (shares map[common.Address]*big.Int, authorBonus *big.Int) {
	shares = make(map[common.Address]*big.Int, len(stakes))
	authorBonus = new(big.Int).Sub(totalFee, minFeePool)
	if authorBonus.Sign() < 0 {
		authorBonus = new(big.Int)
	}

	if minFeePool.Sign() <= 0 || len(stakes) == 0 {
		for _, s := range stakes {
			shares[s.Address] = new(big.Int)
		}
		return shares, authorBonus
	}

	total := new(big.Int)
	for _, s := range stakes {
		total.Add(total, s.Power)
	}
	if total.Sign() == 0 {
		for _, s := range stakes {
			shares[s.Address] = new(big.Int)
		}
		return shares, authorBonus
	}

	type share struct {
		addr      common.Address
		floor     *big.Int
		remainder *big.Int // scaled remainder: minFeePool*power mod total
	}
	parts := make([]share, 0, len(stakes))
	floorSum := new(big.Int)
	for _, s := range stakes {
		num := new(big.Int).Mul(minFeePool, s.Power)
		f := new(big.Int).Div(num, total)
		r := new(big.Int).Mod(num, total)
		parts = append(parts, share{addr: s.Address, floor: f, remainder: r})
		floorSum.Add(floorSum, f)
	}

	leftover := new(big.Int).Sub(minFeePool, floorSum)

	sort.Slice(parts, func(i, j int) bool {
		c := parts[i].remainder.Cmp(parts[j].remainder)
		if c != 0 {
			return c > 0 // larger remainder gets a unit first
		}
		// tie: lexicographically later address wins, i.e. sorts first here.
		return parts[i].addr.Hex() > parts[j].addr.Hex()
	})

	for i := range parts {
		if leftover.Sign() <= 0 {
			break
		}
		parts[i].floor.Add(parts[i].floor, big.NewInt(1))
		leftover.Sub(leftover, big.NewInt(1))
	}

	for _, p := range parts {
		shares[p.addr] = p.floor
	}
	return shares, authorBonus
}

// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakes

import (
	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/staking"
)

// Stake is the JSON shape of a position. Amounts travel as decimal
// strings so that consumers parsing JSON numbers as float64 never lose
// precision.
type Stake struct {
	ID              palisade.Bytes32 `json:"id"`
	Owner           palisade.Address `json:"owner"`
	Amount          uint64           `json:"amount,string"`
	StartTime       uint64           `json:"startTime"`
	LockDuration    uint64           `json:"lockDuration"`
	EndTime         uint64           `json:"endTime"`
	RewardRateBps   uint64           `json:"rewardRateBps"`
	AutoCompound    bool             `json:"autoCompound"`
	LastAccrualTime uint64           `json:"lastAccrualTime"`
	Locked          bool             `json:"locked"`
	// Accrued is the raw reward preview at serve time, only filled on
	// request.
	Accrued string `json:"accrued,omitempty"`
}

func convertStake(pos *staking.Position, now uint64) *Stake {
	return &Stake{
		ID:              pos.ID,
		Owner:           pos.Owner,
		Amount:          pos.Amount,
		StartTime:       pos.StartTime,
		LockDuration:    pos.LockDuration,
		EndTime:         pos.EndTime,
		RewardRateBps:   pos.RewardRateBps,
		AutoCompound:    pos.AutoCompound,
		LastAccrualTime: pos.LastAccrualTime,
		Locked:          pos.Locked(now),
	}
}

// PoolStats is the JSON shape of the pool totals.
type PoolStats struct {
	StakedBalance    uint64 `json:"stakedBalance,string"`
	RewardBalance    uint64 `json:"rewardBalance,string"`
	TotalStakesCount uint64 `json:"totalStakesCount"`
}

// CreateStakeRequest is the body of POST /stakes.
type CreateStakeRequest struct {
	Caller       palisade.Address `json:"caller"`
	Amount       uint64           `json:"amount,string"`
	Duration     uint64           `json:"duration"`
	AutoCompound bool             `json:"autoCompound"`
}

// CallerRequest is the body of the withdraw, claim and compound
// operations.
type CallerRequest struct {
	Caller palisade.Address `json:"caller"`
}

// AutoCompoundRequest is the body of POST /stakes/{id}/autocompound.
type AutoCompoundRequest struct {
	Caller  palisade.Address `json:"caller"`
	Enabled bool             `json:"enabled"`
}

// WithdrawResult reports what a withdraw paid out.
type WithdrawResult struct {
	Principal uint64 `json:"principal,string"`
	Reward    uint64 `json:"reward,string"`
}

// ClaimResult reports what a claim paid out.
type ClaimResult struct {
	Reward uint64 `json:"reward,string"`
}

// CompoundResult reports a folded reward and the principal after it.
type CompoundResult struct {
	Reward    uint64 `json:"reward,string"`
	NewAmount uint64 `json:"newAmount,string"`
}

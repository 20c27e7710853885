// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/staking/reward"
)

// Position is one locked stake. Identity and schedule are fixed at
// creation; Amount grows only by compounding and LastAccrualTime only
// advances, never past EndTime.
type Position struct {
	ID              palisade.Bytes32
	Seq             uint64
	Owner           palisade.Address
	Amount          uint64
	StartTime       uint64
	LockDuration    uint64
	EndTime         uint64
	RewardRateBps   uint64
	AutoCompound    bool
	LastAccrualTime uint64
}

// Accrued returns the raw reward earned up to now, cut off at EndTime.
func (p *Position) Accrued(now uint64) uint64 {
	return reward.Accrued(p.Amount, p.RewardRateBps, p.LastAccrualTime, p.EndTime, now)
}

// Locked reports whether the position is still within its lock period.
func (p *Position) Locked(now uint64) bool {
	return now < p.EndTime
}

// Copy returns a detached copy of the position.
func (p *Position) Copy() *Position {
	cpy := *p
	return &cpy
}

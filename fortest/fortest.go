// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package fortest provides random fixture data for tests.
package fortest

import (
	"crypto/rand"
	mathrand "math/rand/v2"

	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/staking"
)

func RandBytes32() (b palisade.Bytes32) {
	rand.Read(b[:])
	return
}

func RandAddress() (a palisade.Address) {
	rand.Read(a[:])
	return
}

func RandIntN(n int) int {
	return mathrand.N(n) //#nosec G404
}

// RandAmount returns a non-zero amount small enough that sums of many
// of them stay far from the uint64 range.
func RandAmount() uint64 {
	return 1 + mathrand.Uint64N(1_000_000_000) //#nosec G404
}

// RandLockDuration picks one of the supported lock tiers.
func RandLockDuration() uint64 {
	tiers := []uint64{
		palisade.LockPeriod30Days,
		palisade.LockPeriod90Days,
		palisade.LockPeriod180Days,
		palisade.LockPeriod365Days,
	}
	return tiers[mathrand.N(len(tiers))] //#nosec G404
}

// RandPosition builds a mid-lock position of the given sequence,
// consistent with the pool's own construction rules.
func RandPosition(seq uint64, now uint64) *staking.Position {
	owner := RandAddress()
	duration := RandLockDuration()
	start := now - duration/2
	return &staking.Position{
		ID:              palisade.NewStakeID(owner, seq),
		Seq:             seq,
		Owner:           owner,
		Amount:          RandAmount(),
		StartTime:       start,
		LockDuration:    duration,
		EndTime:         start + duration,
		RewardRateBps:   uint64(100 * (1 + RandIntN(50))),
		AutoCompound:    RandIntN(2) == 0,
		LastAccrualTime: start + mathrand.Uint64N(duration/2), //#nosec G404
	}
}

// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package reward computes time-proportional stake rewards. The math is
// pure integer arithmetic: the triple product amount*rate*elapsed is
// widened to 256 bits and the division truncates toward zero. No
// floating point is involved anywhere.
package reward

import (
	"github.com/holiman/uint256"

	"github.com/palisadelabs/palisade/palisade"
)

// denominator converts an annual basis-point rate into a per-second one.
var denominator = uint256.NewInt(palisade.BasisPointDenominator * palisade.SecondsPerYear)

// Accrued returns the reward earned by a stake of the given amount at
// the given annual rate over the window [lastAccrual, min(now, endTime)]:
//
//	floor(amount * rateBps * elapsed / (10_000 * 31_536_000))
//
// Time past endTime earns nothing, and an empty or inverted window
// yields 0. The quotient fits a uint64 for any table rate because
// elapsed can never exceed the lock duration.
func Accrued(amount, rateBps, lastAccrual, endTime, now uint64) uint64 {
	t := now
	if t > endTime {
		t = endTime
	}
	if t <= lastAccrual {
		return 0
	}
	elapsed := t - lastAccrual

	var x uint256.Int
	x.SetUint64(amount)
	x.Mul(&x, uint256.NewInt(rateBps))
	x.Mul(&x, uint256.NewInt(elapsed))
	x.Div(&x, denominator)
	return x.Uint64()
}

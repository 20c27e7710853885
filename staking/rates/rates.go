// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package rates holds the lock duration tiers and their annual reward
// rates. The table is consulted once, at stake creation; the chosen
// rate is pinned on the position and survives later table changes.
package rates

import "github.com/palisadelabs/palisade/palisade"

var table = map[uint64]uint64{
	palisade.LockPeriod30Days:  500,
	palisade.LockPeriod90Days:  800,
	palisade.LockPeriod180Days: 1200,
	palisade.LockPeriod365Days: 1800,
}

// Lookup returns the annual reward rate in basis points for the given
// lock duration, and whether the duration is a supported tier.
func Lookup(duration uint64) (uint64, bool) {
	rate, ok := table[duration]
	return rate, ok
}

// Durations lists the supported lock durations in ascending order.
func Durations() []uint64 {
	return []uint64{
		palisade.LockPeriod30Days,
		palisade.LockPeriod90Days,
		palisade.LockPeriod180Days,
		palisade.LockPeriod365Days,
	}
}

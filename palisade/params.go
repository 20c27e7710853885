// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package palisade

// Constants of the staking protocol.
const (
	// BasisPointDenominator scales reward rates expressed in basis points.
	BasisPointDenominator uint64 = 10_000

	// SecondsPerYear is the accrual year of 365 days.
	SecondsPerYear uint64 = 365 * 24 * 60 * 60

	// Supported lock periods (unit: second).
	LockPeriod30Days  uint64 = 30 * 24 * 60 * 60
	LockPeriod90Days  uint64 = 90 * 24 * 60 * 60
	LockPeriod180Days uint64 = 180 * 24 * 60 * 60
	LockPeriod365Days uint64 = 365 * 24 * 60 * 60
)

// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import "github.com/palisadelabs/palisade/palisade"

// EventType tags one kind of pool state transition.
type EventType string

const (
	StakeCreated        EventType = "StakeCreated"
	RewardClaimed       EventType = "RewardClaimed"
	StakeWithdrawn      EventType = "StakeWithdrawn"
	RewardCompounded    EventType = "RewardCompounded"
	AutoCompoundUpdated EventType = "AutoCompoundUpdated"
	ReserveFunded       EventType = "ReserveFunded"
)

// Event is one entry of the pool's audit stream. One wide shape serves
// every event type; fields a type does not use stay zero.
//
//   - StakeCreated: ID, Owner, Amount (principal), Duration, RateBps,
//     AutoCompound.
//   - RewardClaimed: ID, Owner, Amount (reward paid out).
//   - StakeWithdrawn: ID, Owner, Amount (principal returned).
//   - RewardCompounded: ID, Owner, Amount (reward), NewAmount.
//   - AutoCompoundUpdated: ID, Owner, AutoCompound.
//   - ReserveFunded: Owner (capability holder), Amount.
type Event struct {
	Type         EventType
	Time         uint64
	ID           palisade.Bytes32
	Owner        palisade.Address
	Amount       uint64
	Duration     uint64
	RateBps      uint64
	AutoCompound bool
	NewAmount    uint64
}

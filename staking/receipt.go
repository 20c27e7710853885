// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import "github.com/palisadelabs/palisade/palisade"

// Stats is the pool snapshot: total principal held, the reward reserve
// and the number of live positions.
type Stats struct {
	StakedBalance    uint64
	RewardBalance    uint64
	TotalStakesCount uint64
}

// Receipt describes one committed pool mutation: the state it touched
// and the events it appended. The node persists the touched state and
// journals the events in this order.
type Receipt struct {
	Events []Event

	// Position is the touched position after the operation, nil when
	// the operation destroyed it or touched none.
	Position *Position
	// Deleted is set to the id of a destroyed position.
	Deleted *palisade.Bytes32
	// Accounts holds the vault balances the operation moved money
	// in or out of, as of commit.
	Accounts map[palisade.Address]uint64

	Stats Stats
	// Seq is the id sequence after the operation.
	Seq uint64

	// Reward is the clamped reward the operation paid or compounded.
	Reward uint64
	// Principal is the principal a withdraw returned to the owner.
	Principal uint64
}

func (r *Receipt) add(ev Event) {
	r.Events = append(r.Events, ev)
}

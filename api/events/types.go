// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"strconv"

	"github.com/palisadelabs/palisade/eventdb"
	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/staking"
)

// FilteredEvent is the JSON shape of one journal row. Amounts travel
// as decimal strings; fields a type does not use are omitted.
type FilteredEvent struct {
	Seq          uint64            `json:"seq"`
	Time         uint64            `json:"time"`
	Type         staking.EventType `json:"type"`
	StakeID      *palisade.Bytes32 `json:"stakeID"`
	Owner        palisade.Address  `json:"owner"`
	Amount       uint64            `json:"amount,string"`
	Duration     uint64            `json:"duration,omitempty"`
	RateBps      uint64            `json:"rateBps,omitempty"`
	AutoCompound bool              `json:"autoCompound,omitempty"`
	NewAmount    string            `json:"newAmount,omitempty"`
}

// ConvertEvent turns a journal row into its JSON shape. The stake id
// is null on reserve events, which carry none.
func ConvertEvent(ev *eventdb.StoredEvent) *FilteredEvent {
	fe := &FilteredEvent{
		Seq:          ev.Seq,
		Time:         ev.Time,
		Type:         ev.Type,
		Owner:        ev.Owner,
		Amount:       ev.Amount,
		Duration:     ev.Duration,
		RateBps:      ev.RateBps,
		AutoCompound: ev.AutoCompound,
	}
	if !ev.ID.IsZero() {
		id := ev.ID
		fe.StakeID = &id
	}
	if ev.Type == staking.RewardCompounded {
		fe.NewAmount = strconv.FormatUint(ev.NewAmount, 10)
	}
	return fe
}

// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/staking"
)

// StoredEvent is one journal row: a pool event plus its assigned
// sequence number. Sequences are strictly increasing in journal order.
type StoredEvent struct {
	staking.Event
	Seq uint64
}

// OrderType ...
type OrderType string

const (
	ASC  OrderType = "ASC"
	DESC OrderType = "DESC"
)

// Range bounds matching events by time, inclusive on both ends.
type Range struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// Options paginate query results.
type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// Filter selects journal rows. Nil members match everything.
type Filter struct {
	StakeID *palisade.Bytes32   `json:"stakeID"`
	Owner   *palisade.Address   `json:"owner"`
	Types   []staking.EventType `json:"types"`
	Range   *Range              `json:"range"`
	Options *Options            `json:"options"`
	Order   OrderType           `json:"order"` // default asc
	// AfterSeq keeps only rows with a sequence strictly greater; it is
	// the replay cursor of event subscriptions.
	AfterSeq uint64 `json:"afterSeq"`
}

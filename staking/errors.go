// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import "github.com/pkg/errors"

// Sentinel errors returned by pool operations, matched with errors.Is.
// Vault errors (insufficient balance, overflow) propagate wrapped and
// sit outside this set.
var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDuration  = errors.New("invalid lock duration")
	ErrNotOwner         = errors.New("not the owner")
	ErrStakeStillLocked = errors.New("stake still locked")
	ErrZeroReward       = errors.New("zero reward")
	ErrStakeNotFound    = errors.New("stake not found")
)

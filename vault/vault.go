// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vault

import (
	"sync"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"

	"github.com/palisadelabs/palisade/palisade"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceOverflow     = errors.New("balance overflow")
)

// Vault is the funds engine. It keeps account balances in minor units
// and refuses any movement that would underflow or overflow a balance.
// All methods are safe for concurrent use.
type Vault struct {
	mu       sync.RWMutex
	balances map[palisade.Address]uint64
}

// New creates an empty vault.
func New() *Vault {
	return &Vault{
		balances: make(map[palisade.Address]uint64),
	}
}

// Restore creates a vault holding the given balances. The map is copied.
func Restore(balances map[palisade.Address]uint64) *Vault {
	v := New()
	for addr, b := range balances {
		if b > 0 {
			v.balances[addr] = b
		}
	}
	return v
}

// Balance returns the current balance of addr. Unknown accounts read as 0.
func (v *Vault) Balance(addr palisade.Address) uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.balances[addr]
}

// Deposit credits addr with amount and returns the new balance.
func (v *Vault) Deposit(addr palisade.Address, amount uint64) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	newBal, overflow := math.SafeAdd(v.balances[addr], amount)
	if overflow {
		return 0, ErrBalanceOverflow
	}
	v.balances[addr] = newBal
	return newBal, nil
}

// Withdraw debits addr by amount and returns the new balance.
func (v *Vault) Withdraw(addr palisade.Address, amount uint64) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	newBal, underflow := math.SafeSub(v.balances[addr], amount)
	if underflow {
		return 0, ErrInsufficientBalance
	}
	v.setBalance(addr, newBal)
	return newBal, nil
}

// Transfer moves amount from one account to another as a single step.
func (v *Vault) Transfer(from, to palisade.Address, amount uint64) error {
	if from == to {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	fromBal, underflow := math.SafeSub(v.balances[from], amount)
	if underflow {
		return ErrInsufficientBalance
	}
	toBal, overflow := math.SafeAdd(v.balances[to], amount)
	if overflow {
		return ErrBalanceOverflow
	}
	v.setBalance(from, fromBal)
	v.balances[to] = toBal
	return nil
}

// Accounts returns a copy of all accounts with a non-zero balance.
func (v *Vault) Accounts() map[palisade.Address]uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make(map[palisade.Address]uint64, len(v.balances))
	for addr, b := range v.balances {
		out[addr] = b
	}
	return out
}

// setBalance stores the balance, dropping emptied accounts so that
// Accounts never reports zero entries.
func (v *Vault) setBalance(addr palisade.Address, bal uint64) {
	if bal == 0 {
		delete(v.balances, addr)
		return
	}
	v.balances[addr] = bal
}

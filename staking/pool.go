// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"

	"github.com/palisadelabs/palisade/log"
	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/staking/rates"
	"github.com/palisadelabs/palisade/vault"
)

var logger = log.WithContext("pkg", "staking")

// AdminCap is the capability authorizing reward reserve funding. It is
// minted exactly once, by the pool constructor, and cannot be forged:
// only a value handed out by New or Restore passes the pool's identity
// check. Funding debits the holder's vault account.
type AdminCap struct {
	pool   *Pool
	holder palisade.Address
}

// Holder returns the vault account that pays for reserve funding.
func (c *AdminCap) Holder() palisade.Address {
	return c.holder
}

// Pool is the staking ledger. It holds every live position, the total
// staked balance and the reward reserve, and settles all movements
// against the vault. One lock guards the three aggregate fields and the
// position set as a single consistency unit; every mutation validates
// completely before it changes anything.
//
// The pool performs no I/O and never reads a clock: every operation
// takes the caller's now and returns a Receipt for the caller to
// persist and journal.
type Pool struct {
	mu    sync.RWMutex
	vault *vault.Vault

	positions map[palisade.Bytes32]*Position
	order     []*Position // live positions in creation order
	seq       uint64

	staked  uint64
	reserve uint64
}

// New creates an empty pool backed by the given vault and mints the
// admin capability bound to holder.
func New(holder palisade.Address, v *vault.Vault) (*Pool, *AdminCap) {
	p := &Pool{
		vault:     v,
		positions: make(map[palisade.Bytes32]*Position),
	}
	return p, &AdminCap{pool: p, holder: holder}
}

// Restore rebuilds a pool from persisted state and re-mints the admin
// capability. It refuses state that violates the ledger invariants.
func Restore(holder palisade.Address, v *vault.Vault, positions []*Position, stats Stats, seq uint64) (*Pool, *AdminCap, error) {
	p, cap := New(holder, v)

	var stakedSum uint64
	for _, pos := range positions {
		if pos.Amount == 0 {
			return nil, nil, errors.Errorf("position %v has zero amount", pos.ID)
		}
		if pos.EndTime != pos.StartTime+pos.LockDuration {
			return nil, nil, errors.Errorf("position %v has inconsistent schedule", pos.ID)
		}
		if pos.Seq > seq {
			return nil, nil, errors.Errorf("position %v is ahead of the id sequence", pos.ID)
		}
		if _, dup := p.positions[pos.ID]; dup {
			return nil, nil, errors.Errorf("duplicate position %v", pos.ID)
		}
		sum, overflow := math.SafeAdd(stakedSum, pos.Amount)
		if overflow {
			return nil, nil, errors.New("staked balance overflows")
		}
		stakedSum = sum

		cpy := pos.Copy()
		p.positions[cpy.ID] = cpy
		p.order = append(p.order, cpy)
	}
	sort.Slice(p.order, func(i, j int) bool { return p.order[i].Seq < p.order[j].Seq })

	if stakedSum != stats.StakedBalance {
		return nil, nil, errors.Errorf("staked balance mismatch: have %v, positions sum to %v", stats.StakedBalance, stakedSum)
	}
	if uint64(len(positions)) != stats.TotalStakesCount {
		return nil, nil, errors.Errorf("stake count mismatch: have %v, loaded %v", stats.TotalStakesCount, len(positions))
	}

	p.staked = stats.StakedBalance
	p.reserve = stats.RewardBalance
	p.seq = seq
	p.updateGauges()
	return p, cap, nil
}

// Create locks amount for owner over the given duration. The deposit is
// debited from the owner's vault account; the reward rate is pinned
// from the rate table and never changes afterwards.
func (p *Pool) Create(owner palisade.Address, amount, duration uint64, autoCompound bool, now uint64) (rec *Receipt, err error) {
	defer func() { countOp("create", err) }()

	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	rateBps, ok := rates.Lookup(duration)
	if !ok {
		return nil, ErrInvalidDuration
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	newStaked, overflow := math.SafeAdd(p.staked, amount)
	if overflow {
		return nil, errors.Wrap(vault.ErrBalanceOverflow, "staked balance")
	}
	bal, err := p.vault.Withdraw(owner, amount)
	if err != nil {
		return nil, errors.Wrap(err, "stake deposit")
	}

	p.seq++
	pos := &Position{
		ID:              palisade.NewStakeID(owner, p.seq),
		Seq:             p.seq,
		Owner:           owner,
		Amount:          amount,
		StartTime:       now,
		LockDuration:    duration,
		EndTime:         now + duration,
		RewardRateBps:   rateBps,
		AutoCompound:    autoCompound,
		LastAccrualTime: now,
	}
	p.positions[pos.ID] = pos
	p.order = append(p.order, pos)
	p.staked = newStaked
	p.updateGauges()

	rec = p.newReceipt()
	rec.Position = pos.Copy()
	rec.Accounts[owner] = bal
	rec.add(Event{
		Type:         StakeCreated,
		Time:         now,
		ID:           pos.ID,
		Owner:        owner,
		Amount:       amount,
		Duration:     duration,
		RateBps:      rateBps,
		AutoCompound: autoCompound,
	})

	logger.Debug("stake created", "id", pos.ID, "owner", owner, "amount", amount, "duration", duration)
	return rec, nil
}

// Withdraw pays out an expired position: the principal plus the final
// reward, the latter clamped to whatever the reserve can cover. The
// position is destroyed.
func (p *Pool) Withdraw(caller palisade.Address, id palisade.Bytes32, now uint64) (rec *Receipt, err error) {
	defer func() { countOp("withdraw", err) }()

	p.mu.Lock()
	defer p.mu.Unlock()

	pos, err := p.get(id)
	if err != nil {
		return nil, err
	}
	if pos.Owner != caller {
		return nil, ErrNotOwner
	}
	if pos.Locked(now) {
		return nil, ErrStakeStillLocked
	}

	reward := pos.Accrued(now)
	if reward > p.reserve {
		// a reserve shortfall is absorbed: the remainder is forfeit
		reward = p.reserve
	}
	payout, overflow := math.SafeAdd(pos.Amount, reward)
	if overflow {
		return nil, errors.Wrap(vault.ErrBalanceOverflow, "stake payout")
	}
	bal, err := p.vault.Deposit(pos.Owner, payout)
	if err != nil {
		return nil, errors.Wrap(err, "stake payout")
	}

	p.staked -= pos.Amount
	p.reserve -= reward
	p.remove(pos)
	p.updateGauges()

	rec = p.newReceipt()
	deleted := pos.ID
	rec.Deleted = &deleted
	rec.Accounts[pos.Owner] = bal
	rec.Principal = pos.Amount
	rec.Reward = reward
	if reward > 0 {
		rec.add(Event{Type: RewardClaimed, Time: now, ID: pos.ID, Owner: pos.Owner, Amount: reward})
		metricRewardCount().AddWithLabel(int64(reward), map[string]string{"kind": "withdraw"})
	}
	rec.add(Event{Type: StakeWithdrawn, Time: now, ID: pos.ID, Owner: pos.Owner, Amount: pos.Amount})

	logger.Debug("stake withdrawn", "id", pos.ID, "owner", pos.Owner, "amount", pos.Amount, "reward", reward)
	return rec, nil
}

// Claim pays out the reward accrued since LastAccrualTime, clamped to
// the reserve, and advances LastAccrualTime to min(now, EndTime). A
// clamped shortfall is forfeit: the skipped remainder can never be
// claimed later.
func (p *Pool) Claim(caller palisade.Address, id palisade.Bytes32, now uint64) (rec *Receipt, err error) {
	defer func() { countOp("claim", err) }()

	p.mu.Lock()
	defer p.mu.Unlock()

	pos, reward, err := p.settle(caller, id, now)
	if err != nil {
		return nil, err
	}
	bal, err := p.vault.Deposit(pos.Owner, reward)
	if err != nil {
		return nil, errors.Wrap(err, "reward payout")
	}

	p.reserve -= reward
	pos.LastAccrualTime = accrualCut(pos, now)
	p.updateGauges()

	rec = p.newReceipt()
	rec.Position = pos.Copy()
	rec.Accounts[pos.Owner] = bal
	rec.Reward = reward
	rec.add(Event{Type: RewardClaimed, Time: now, ID: pos.ID, Owner: pos.Owner, Amount: reward})
	metricRewardCount().AddWithLabel(int64(reward), map[string]string{"kind": "claim"})

	logger.Debug("reward claimed", "id", pos.ID, "owner", pos.Owner, "reward", reward)
	return rec, nil
}

// Compound moves the accrued reward into the position's principal
// instead of paying it out. Compounding is permitted after expiry to
// settle the final accrual window, though the added principal earns
// nothing further.
func (p *Pool) Compound(caller palisade.Address, id palisade.Bytes32, now uint64) (rec *Receipt, err error) {
	defer func() { countOp("compound", err) }()

	p.mu.Lock()
	defer p.mu.Unlock()

	pos, reward, err := p.settle(caller, id, now)
	if err != nil {
		return nil, err
	}
	newAmount, overflow := math.SafeAdd(pos.Amount, reward)
	if overflow {
		return nil, errors.Wrap(vault.ErrBalanceOverflow, "position amount")
	}
	newStaked, overflow := math.SafeAdd(p.staked, reward)
	if overflow {
		return nil, errors.Wrap(vault.ErrBalanceOverflow, "staked balance")
	}

	p.reserve -= reward
	pos.Amount = newAmount
	p.staked = newStaked
	pos.LastAccrualTime = accrualCut(pos, now)
	p.updateGauges()

	rec = p.newReceipt()
	rec.Position = pos.Copy()
	rec.Reward = reward
	rec.add(Event{Type: RewardCompounded, Time: now, ID: pos.ID, Owner: pos.Owner, Amount: reward, NewAmount: newAmount})
	metricRewardCount().AddWithLabel(int64(reward), map[string]string{"kind": "compound"})

	logger.Debug("reward compounded", "id", pos.ID, "owner", pos.Owner, "reward", reward, "amount", newAmount)
	return rec, nil
}

// SetAutoCompound sets the owner's standing authorization for the
// compounding scheduler. An event is appended only when the flag
// actually changes.
func (p *Pool) SetAutoCompound(caller palisade.Address, id palisade.Bytes32, enabled bool, now uint64) (rec *Receipt, err error) {
	defer func() { countOp("set_auto_compound", err) }()

	p.mu.Lock()
	defer p.mu.Unlock()

	pos, err := p.get(id)
	if err != nil {
		return nil, err
	}
	if pos.Owner != caller {
		return nil, ErrNotOwner
	}

	changed := pos.AutoCompound != enabled
	pos.AutoCompound = enabled

	rec = p.newReceipt()
	rec.Position = pos.Copy()
	if changed {
		rec.add(Event{Type: AutoCompoundUpdated, Time: now, ID: pos.ID, Owner: pos.Owner, AutoCompound: enabled})
	}
	return rec, nil
}

// FundReserve tops up the reward reserve, debiting the capability
// holder's vault account. Only the capability minted by this pool's
// constructor is accepted.
func (p *Pool) FundReserve(cap *AdminCap, amount uint64, now uint64) (rec *Receipt, err error) {
	defer func() { countOp("fund_reserve", err) }()

	if cap == nil || cap.pool != p {
		return nil, ErrNotOwner
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	newReserve, overflow := math.SafeAdd(p.reserve, amount)
	if overflow {
		return nil, errors.Wrap(vault.ErrBalanceOverflow, "reward reserve")
	}
	bal, err := p.vault.Withdraw(cap.holder, amount)
	if err != nil {
		return nil, errors.Wrap(err, "reserve funding")
	}

	p.reserve = newReserve
	p.updateGauges()

	rec = p.newReceipt()
	rec.Accounts[cap.holder] = bal
	rec.add(Event{Type: ReserveFunded, Time: now, Owner: cap.holder, Amount: amount})

	logger.Debug("reserve funded", "holder", cap.holder, "amount", amount, "reserve", newReserve)
	return rec, nil
}

// GetPosition returns a copy of the position with the given id.
func (p *Pool) GetPosition(id palisade.Bytes32) (*Position, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	pos, err := p.get(id)
	if err != nil {
		return nil, err
	}
	return pos.Copy(), nil
}

// Positions returns copies of all live positions in creation order.
func (p *Pool) Positions() []*Position {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*Position, 0, len(p.order))
	for _, pos := range p.order {
		out = append(out, pos.Copy())
	}
	return out
}

// PositionsByOwner returns copies of owner's live positions in creation
// order.
func (p *Pool) PositionsByOwner(owner palisade.Address) []*Position {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []*Position
	for _, pos := range p.order {
		if pos.Owner == owner {
			out = append(out, pos.Copy())
		}
	}
	return out
}

// Stats returns the pool snapshot.
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats()
}

// Seq returns the current id sequence.
func (p *Pool) Seq() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.seq
}

// Accrued previews the raw reward accrued by the position up to now,
// before any reserve clamping.
func (p *Pool) Accrued(id palisade.Bytes32, now uint64) (uint64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	pos, err := p.get(id)
	if err != nil {
		return 0, err
	}
	return pos.Accrued(now), nil
}

// settle runs the shared claim/compound validation: position lookup,
// ownership, accrual and reserve clamping. Called with the lock held.
func (p *Pool) settle(caller palisade.Address, id palisade.Bytes32, now uint64) (*Position, uint64, error) {
	pos, err := p.get(id)
	if err != nil {
		return nil, 0, err
	}
	if pos.Owner != caller {
		return nil, 0, ErrNotOwner
	}
	reward := pos.Accrued(now)
	if reward > p.reserve {
		reward = p.reserve
	}
	if reward == 0 {
		return nil, 0, ErrZeroReward
	}
	return pos, reward, nil
}

func (p *Pool) get(id palisade.Bytes32) (*Position, error) {
	pos, ok := p.positions[id]
	if !ok {
		return nil, ErrStakeNotFound
	}
	return pos, nil
}

func (p *Pool) remove(pos *Position) {
	delete(p.positions, pos.ID)
	for i, o := range p.order {
		if o == pos {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

func (p *Pool) stats() Stats {
	return Stats{
		StakedBalance:    p.staked,
		RewardBalance:    p.reserve,
		TotalStakesCount: uint64(len(p.order)),
	}
}

func (p *Pool) newReceipt() *Receipt {
	return &Receipt{
		Accounts: make(map[palisade.Address]uint64),
		Stats:    p.stats(),
		Seq:      p.seq,
	}
}

// accrualCut returns the right edge of the settled accrual window.
// LastAccrualTime advances to it even when the payout was clamped, so a
// shortfall remainder is lost rather than carried.
func accrualCut(pos *Position, now uint64) uint64 {
	if now > pos.EndTime {
		return pos.EndTime
	}
	return now
}

// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package node owns the running services around the pool: it commits
// every mutation to the snapshot store and the journal, fans events out
// to subscribers, drives the auto-compound scheduler and runs
// housekeeping.
package node

import (
	"context"
	"time"

	"github.com/palisadelabs/palisade/api/admin"
	"github.com/palisadelabs/palisade/api/subscriptions"
	"github.com/palisadelabs/palisade/co"
	"github.com/palisadelabs/palisade/eventdb"
	"github.com/palisadelabs/palisade/log"
	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/pooldb"
	"github.com/palisadelabs/palisade/staking"
	"github.com/palisadelabs/palisade/vault"
)

var logger = log.WithContext("pkg", "node")

type Options struct {
	// SchedulerInterval is the period of the auto-compound scan.
	SchedulerInterval time.Duration
	// StatsInterval is the period of pool status logging and gauge
	// refresh.
	StatsInterval time.Duration
	// SkipClockCheck disables the NTP drift check (solo mode).
	SkipClockCheck bool
}

// Node wires the pool to its durable stores. Every mutation runs
// through commit: snapshot first, then the journal, then the
// subscriber fanout.
type Node struct {
	goes co.Goes

	pool    *staking.Pool
	cap     *staking.AdminCap
	vault   *vault.Vault
	db      *pooldb.PoolDB
	journal *eventdb.EventDB
	subs    *subscriptions.Subscriptions
	health  *admin.Health
	options Options
}

func New(
	pool *staking.Pool,
	cap *staking.AdminCap,
	vlt *vault.Vault,
	db *pooldb.PoolDB,
	journal *eventdb.EventDB,
	subs *subscriptions.Subscriptions,
	health *admin.Health,
	options Options,
) *Node {
	if options.SchedulerInterval <= 0 {
		options.SchedulerInterval = 10 * time.Minute
	}
	if options.StatsInterval <= 0 {
		options.StatsInterval = 10 * time.Minute
	}
	return &Node{
		pool:    pool,
		cap:     cap,
		vault:   vlt,
		db:      db,
		journal: journal,
		subs:    subs,
		health:  health,
		options: options,
	}
}

// Run blocks until ctx is done and all service loops have drained.
func (n *Node) Run(ctx context.Context) error {
	n.goes.Go(func() { n.schedulerLoop(ctx) })
	n.goes.Go(func() { n.houseKeeping(ctx) })
	n.goes.Wait()
	return nil
}

// Now samples the wall clock once; it is the only clock the pool ever
// sees.
func (n *Node) Now() uint64 {
	return uint64(time.Now().Unix())
}

// commit makes a committed pool mutation durable and visible. A store
// failure here cannot be rolled back (the pool already moved), so it is
// logged and flips health: the in-memory ledger is ahead of disk and
// operators restart from disk truth.
func (n *Node) commit(rec *staking.Receipt) {
	if err := n.db.SaveOp(rec); err != nil {
		logger.Error("failed to persist operation", "err", err)
		n.health.MarkLedgerBehind()
	}
	if len(rec.Events) == 0 {
		return
	}
	rows, err := n.journal.Log(rec.Events)
	if err != nil {
		logger.Error("failed to journal events", "err", err)
		n.health.MarkJournalBehind()
		return
	}
	n.subs.Publish(rows)
}

func (n *Node) Create(owner palisade.Address, amount, duration uint64, autoCompound bool) (*staking.Receipt, error) {
	rec, err := n.pool.Create(owner, amount, duration, autoCompound, n.Now())
	if err != nil {
		return nil, err
	}
	n.commit(rec)
	return rec, nil
}

func (n *Node) Withdraw(caller palisade.Address, id palisade.Bytes32) (*staking.Receipt, error) {
	rec, err := n.pool.Withdraw(caller, id, n.Now())
	if err != nil {
		return nil, err
	}
	n.commit(rec)
	return rec, nil
}

func (n *Node) Claim(caller palisade.Address, id palisade.Bytes32) (*staking.Receipt, error) {
	rec, err := n.pool.Claim(caller, id, n.Now())
	if err != nil {
		return nil, err
	}
	n.commit(rec)
	return rec, nil
}

func (n *Node) Compound(caller palisade.Address, id palisade.Bytes32) (*staking.Receipt, error) {
	rec, err := n.pool.Compound(caller, id, n.Now())
	if err != nil {
		return nil, err
	}
	n.commit(rec)
	return rec, nil
}

func (n *Node) SetAutoCompound(caller palisade.Address, id palisade.Bytes32, enabled bool) (*staking.Receipt, error) {
	rec, err := n.pool.SetAutoCompound(caller, id, enabled, n.Now())
	if err != nil {
		return nil, err
	}
	n.commit(rec)
	return rec, nil
}

// FundReserve tops up the reward reserve on the capability the node
// holds; the admin endpoint is the only caller.
func (n *Node) FundReserve(amount uint64) (*staking.Receipt, error) {
	rec, err := n.pool.FundReserve(n.cap, amount, n.Now())
	if err != nil {
		return nil, err
	}
	n.commit(rec)
	return rec, nil
}

func (n *Node) AccountBalance(addr palisade.Address) uint64 {
	return n.vault.Balance(addr)
}

func (n *Node) GetPosition(id palisade.Bytes32) (*staking.Position, error) {
	return n.pool.GetPosition(id)
}

func (n *Node) Positions() []*staking.Position {
	return n.pool.Positions()
}

func (n *Node) PositionsByOwner(owner palisade.Address) []*staking.Position {
	return n.pool.PositionsByOwner(owner)
}

func (n *Node) Stats() staking.Stats {
	return n.pool.Stats()
}

func (n *Node) Accrued(id palisade.Bytes32) (uint64, error) {
	return n.pool.Accrued(id, n.Now())
}

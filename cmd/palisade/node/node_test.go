// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palisadelabs/palisade/api/admin"
	"github.com/palisadelabs/palisade/api/subscriptions"
	"github.com/palisadelabs/palisade/eventdb"
	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/pooldb"
	"github.com/palisadelabs/palisade/staking"
	"github.com/palisadelabs/palisade/vault"
)

var (
	holder = palisade.BytesToAddress([]byte("holder"))
	alice  = palisade.BytesToAddress([]byte("alice"))
)

func newTestNode(t *testing.T) *Node {
	v := vault.New()
	_, err := v.Deposit(alice, 1_000_000)
	require.NoError(t, err)
	_, err = v.Deposit(holder, 1_000_000)
	require.NoError(t, err)
	pool, cap := staking.New(holder, v)

	db, err := pooldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	journal, err := eventdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(journal.Close)

	subs := subscriptions.New(journal, []string{"*"})
	t.Cleanup(subs.Close)

	return New(pool, cap, v, db, journal, subs, new(admin.Health), Options{
		SchedulerInterval: time.Hour,
		StatsInterval:     time.Hour,
		SkipClockCheck:    true,
	})
}

func TestCommit(t *testing.T) {
	n := newTestNode(t)

	rec, err := n.Create(alice, 1000, palisade.LockPeriod30Days, false)
	require.NoError(t, err)
	id := rec.Position.ID

	// snapshot has the position and the moved balances
	pos, err := n.db.GetPosition(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), pos.Amount)
	ledger, err := n.db.LoadLedger()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), ledger.Stats.StakedBalance)
	assert.Equal(t, uint64(999_000), ledger.Accounts[alice])
	assert.Equal(t, rec.Seq, ledger.Seq)

	// journal has the creation row
	rows, err := n.journal.Filter(context.Background(), &eventdb.Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, staking.StakeCreated, rows[0].Type)
	assert.Equal(t, id, rows[0].ID)

	// a no-change toggle journals nothing
	_, err = n.SetAutoCompound(alice, id, false)
	require.NoError(t, err)
	seq, err := n.journal.MaxSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)
}

func TestCommitFailureFlipsHealth(t *testing.T) {
	n := newTestNode(t)

	require.NoError(t, n.db.Close())

	_, err := n.Create(alice, 1000, palisade.LockPeriod30Days, false)
	require.NoError(t, err, "the pool mutation itself must not fail")

	status := n.health.Status(0)
	assert.False(t, status.Healthy)
	assert.False(t, status.LedgerSynced)
	assert.True(t, status.JournalSynced)
}

func TestFundReserve(t *testing.T) {
	n := newTestNode(t)

	rec, err := n.FundReserve(500)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), rec.Stats.RewardBalance)
	assert.Equal(t, uint64(999_500), n.AccountBalance(holder))

	ledger, err := n.db.LoadLedger()
	require.NoError(t, err)
	assert.Equal(t, uint64(500), ledger.Stats.RewardBalance)

	rows, err := n.journal.Filter(context.Background(), &eventdb.Filter{
		Types: []staking.EventType{staking.ReserveFunded},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, holder, rows[0].Owner)
	assert.Equal(t, uint64(500), rows[0].Amount)
}

func TestCompoundTick(t *testing.T) {
	now := uint64(time.Now().Unix())

	v := vault.New()
	_, err := v.Deposit(holder, 1_000_000)
	require.NoError(t, err)

	// two mid-lock positions restored from a snapshot: only the one
	// with the flag set is swept
	mk := func(seq uint64, autoCompound bool) *staking.Position {
		return &staking.Position{
			ID:              palisade.NewStakeID(alice, seq),
			Seq:             seq,
			Owner:           alice,
			Amount:          1_000_000,
			StartTime:       now - palisade.LockPeriod30Days/2,
			LockDuration:    palisade.LockPeriod30Days,
			EndTime:         now + palisade.LockPeriod30Days/2,
			RewardRateBps:   500,
			AutoCompound:    autoCompound,
			LastAccrualTime: now - palisade.LockPeriod30Days/2,
		}
	}
	flagged, idle := mk(1, true), mk(2, false)
	pool, cap, err := staking.Restore(holder, v, []*staking.Position{flagged, idle}, staking.Stats{
		StakedBalance:    2_000_000,
		RewardBalance:    100_000,
		TotalStakesCount: 2,
	}, 2)
	require.NoError(t, err)

	db, err := pooldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	journal, err := eventdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(journal.Close)
	subs := subscriptions.New(journal, []string{"*"})
	t.Cleanup(subs.Close)

	n := New(pool, cap, v, db, journal, subs, new(admin.Health), Options{
		SchedulerInterval: time.Hour,
		StatsInterval:     time.Hour,
		SkipClockCheck:    true,
	})

	accrued, err := pool.Accrued(flagged.ID, n.Now())
	require.NoError(t, err)
	require.NotZero(t, accrued)

	n.compoundTick()

	pos, err := pool.GetPosition(flagged.ID)
	require.NoError(t, err)
	assert.Greater(t, pos.Amount, uint64(1_000_000))
	assert.GreaterOrEqual(t, pos.LastAccrualTime, now)

	untouched, err := pool.GetPosition(idle.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), untouched.Amount)

	rows, err := n.journal.Filter(context.Background(), &eventdb.Filter{
		Types: []staking.EventType{staking.RewardCompounded},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, flagged.ID, rows[0].ID)

	// the snapshot moved with the sweep
	saved, err := db.GetPosition(flagged.ID)
	require.NoError(t, err)
	assert.Equal(t, pos.Amount, saved.Amount)
}

func TestRunStopsOnCancel(t *testing.T) {
	n := newTestNode(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("node did not stop on cancel")
	}
}

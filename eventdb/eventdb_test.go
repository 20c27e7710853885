// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palisadelabs/palisade/eventdb"
	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/staking"
)

var (
	alice = palisade.BytesToAddress([]byte("alice"))
	bob   = palisade.BytesToAddress([]byte("bob"))
	admin = palisade.BytesToAddress([]byte("admin"))

	stakeA = palisade.NewStakeID(alice, 1)
	stakeB = palisade.NewStakeID(bob, 2)
)

func sampleEvents() []staking.Event {
	return []staking.Event{
		{Type: staking.ReserveFunded, Time: 100, Owner: admin, Amount: 50_000},
		{Type: staking.StakeCreated, Time: 110, ID: stakeA, Owner: alice, Amount: 1000,
			Duration: palisade.LockPeriod30Days, RateBps: 500, AutoCompound: true},
		{Type: staking.StakeCreated, Time: 120, ID: stakeB, Owner: bob, Amount: 2000,
			Duration: palisade.LockPeriod90Days, RateBps: 800},
		{Type: staking.RewardClaimed, Time: 130, ID: stakeB, Owner: bob, Amount: 3},
		{Type: staking.RewardCompounded, Time: 140, ID: stakeA, Owner: alice, Amount: 4, NewAmount: 1004},
		{Type: staking.StakeWithdrawn, Time: 150, ID: stakeB, Owner: bob, Amount: 2000},
	}
}

func newTestDB(t *testing.T) *eventdb.EventDB {
	t.Helper()
	db, err := eventdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestLog(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	events := sampleEvents()
	stored, err := db.Log(events[:3])
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for i, ev := range stored {
		assert.Equal(t, uint64(i+1), ev.Seq, "sequences must start at 1 and ascend")
		assert.Equal(t, events[i], ev.Event)
	}

	stored, err = db.Log(events[3:])
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, uint64(4), stored[0].Seq)

	maxSeq, err := db.MaxSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), maxSeq)

	// empty batches are a no-op
	stored, err = db.Log(nil)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestFilter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	events := sampleEvents()
	_, err := db.Log(events)
	require.NoError(t, err)

	all, err := db.Filter(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, len(events))
	for i, ev := range all {
		assert.Equal(t, events[i], ev.Event, "rows must round-trip in journal order")
	}

	byStake, err := db.Filter(ctx, &eventdb.Filter{StakeID: &stakeB})
	require.NoError(t, err)
	require.Len(t, byStake, 3)
	for _, ev := range byStake {
		assert.Equal(t, stakeB, ev.ID)
	}

	byOwner, err := db.Filter(ctx, &eventdb.Filter{Owner: &alice})
	require.NoError(t, err)
	assert.Len(t, byOwner, 2)

	byType, err := db.Filter(ctx, &eventdb.Filter{
		Types: []staking.EventType{staking.StakeCreated, staking.ReserveFunded},
	})
	require.NoError(t, err)
	assert.Len(t, byType, 3)

	ranged, err := db.Filter(ctx, &eventdb.Filter{Range: &eventdb.Range{From: 120, To: 140}})
	require.NoError(t, err)
	assert.Len(t, ranged, 3)

	desc, err := db.Filter(ctx, &eventdb.Filter{
		Order:   eventdb.DESC,
		Options: &eventdb.Options{Offset: 0, Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.Equal(t, uint64(6), desc[0].Seq)
	assert.Equal(t, uint64(5), desc[1].Seq)

	paged, err := db.Filter(ctx, &eventdb.Filter{Options: &eventdb.Options{Offset: 2, Limit: 2}})
	require.NoError(t, err)
	require.Len(t, paged, 2)
	assert.Equal(t, uint64(3), paged[0].Seq)

	replay, err := db.Filter(ctx, &eventdb.Filter{AfterSeq: 4})
	require.NoError(t, err)
	require.Len(t, replay, 2)
	assert.Equal(t, uint64(5), replay[0].Seq)

	none, err := db.Filter(ctx, &eventdb.Filter{Owner: &admin, Types: []staking.EventType{staking.StakeCreated}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFilterZeroStakeID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.Log(sampleEvents())
	require.NoError(t, err)

	// reserve funding rows carry no stake id and must never match one
	var zero palisade.Bytes32
	matched, err := db.Filter(ctx, &eventdb.Filter{StakeID: &zero})
	require.NoError(t, err)
	assert.Empty(t, matched)

	funded, err := db.Filter(ctx, &eventdb.Filter{Types: []staking.EventType{staking.ReserveFunded}})
	require.NoError(t, err)
	require.Len(t, funded, 1)
	assert.True(t, funded[0].ID.IsZero())
	assert.Equal(t, admin, funded[0].Owner)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")

	db, err := eventdb.New(path)
	require.NoError(t, err)
	_, err = db.Log(sampleEvents())
	require.NoError(t, err)
	db.Close()

	db, err = eventdb.New(path)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, path, db.Path())
	all, err := db.Filter(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, len(sampleEvents()))

	// sequences continue past the reopened journal's tail
	stored, err := db.Log(sampleEvents()[:1])
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, uint64(len(sampleEvents())+1), stored[0].Seq)
}

// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palisadelabs/palisade/api/events"
	"github.com/palisadelabs/palisade/eventdb"
	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/staking"
)

var (
	owner   = palisade.BytesToAddress([]byte("owner"))
	stakeID = palisade.BytesToBytes32([]byte("stake"))
)

func initEventServer(t *testing.T, limit uint64) *httptest.Server {
	db, err := eventdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(db.Close)

	evs := []staking.Event{
		{Type: staking.ReserveFunded, Time: 1, Owner: owner, Amount: 500},
		{Type: staking.StakeCreated, Time: 2, ID: stakeID, Owner: owner, Amount: 1000, Duration: palisade.LockPeriod30Days, RateBps: 500},
		{Type: staking.RewardClaimed, Time: 3, ID: stakeID, Owner: owner, Amount: 2},
		{Type: staking.RewardCompounded, Time: 4, ID: stakeID, Owner: owner, Amount: 2, NewAmount: 1002},
		{Type: staking.StakeWithdrawn, Time: 5, ID: stakeID, Owner: owner, Amount: 1002},
	}
	_, err = db.Log(evs)
	require.NoError(t, err)

	router := mux.NewRouter()
	events.New(db, limit).Mount(router, "/events")
	return httptest.NewServer(router)
}

func filterEvents(t *testing.T, ts *httptest.Server, filter interface{}) ([]*events.FilteredEvent, int) {
	data, err := json.Marshal(filter)
	require.NoError(t, err)
	res, err := http.Post(ts.URL+"/events", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, res.StatusCode
	}
	var fes []*events.FilteredEvent
	require.NoError(t, json.Unmarshal(body, &fes))
	return fes, res.StatusCode
}

func TestFilterEvents(t *testing.T) {
	ts := initEventServer(t, 10)
	defer ts.Close()

	// everything
	fes, status := filterEvents(t, ts, &eventdb.Filter{})
	require.Equal(t, http.StatusOK, status)
	require.Len(t, fes, 5)
	assert.Equal(t, uint64(1), fes[0].Seq)
	assert.Nil(t, fes[0].StakeID, "reserve events carry no stake id")
	require.NotNil(t, fes[1].StakeID)
	assert.Equal(t, stakeID, *fes[1].StakeID)
	assert.Equal(t, "1002", fes[3].NewAmount)
	assert.Empty(t, fes[1].NewAmount)

	// by type, descending
	fes, status = filterEvents(t, ts, &eventdb.Filter{
		Types: []staking.EventType{staking.RewardClaimed, staking.RewardCompounded},
		Order: eventdb.DESC,
	})
	require.Equal(t, http.StatusOK, status)
	require.Len(t, fes, 2)
	assert.Equal(t, staking.RewardCompounded, fes[0].Type)

	// by stake id
	fes, status = filterEvents(t, ts, &eventdb.Filter{StakeID: &stakeID})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, fes, 4)

	// by time range
	fes, status = filterEvents(t, ts, &eventdb.Filter{Range: &eventdb.Range{From: 2, To: 3}})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, fes, 2)

	// replay cursor
	fes, status = filterEvents(t, ts, &eventdb.Filter{AfterSeq: 3})
	require.Equal(t, http.StatusOK, status)
	require.Len(t, fes, 2)
	assert.Equal(t, uint64(4), fes[0].Seq)
}

func TestFilterEventsRejections(t *testing.T) {
	ts := initEventServer(t, 3)
	defer ts.Close()

	// limit above the cap
	_, status := filterEvents(t, ts, &eventdb.Filter{Options: &eventdb.Options{Limit: 4}})
	assert.Equal(t, http.StatusForbidden, status)

	// inverted range
	_, status = filterEvents(t, ts, &eventdb.Filter{Range: &eventdb.Range{From: 9, To: 1}})
	assert.Equal(t, http.StatusBadRequest, status)

	// unpaginated query past the cap
	_, status = filterEvents(t, ts, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// within the cap when paginated
	fes, status := filterEvents(t, ts, &eventdb.Filter{Options: &eventdb.Options{Offset: 2, Limit: 3}})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, fes, 3)

	// unknown body fields are rejected
	_, status = filterEvents(t, ts, map[string]interface{}{"bogus": 1})
	assert.Equal(t, http.StatusBadRequest, status)
}

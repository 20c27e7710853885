// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palisadelabs/palisade/api/events"
	"github.com/palisadelabs/palisade/api/subscriptions"
	"github.com/palisadelabs/palisade/eventdb"
	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/staking"
)

var owner = palisade.BytesToAddress([]byte("owner"))

func initSubServer(t *testing.T, preload int) (*httptest.Server, *subscriptions.Subscriptions, *eventdb.EventDB) {
	db, err := eventdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(db.Close)

	for i := 0; i < preload; i++ {
		_, err := db.Log([]staking.Event{{
			Type:   staking.ReserveFunded,
			Time:   uint64(i + 1),
			Owner:  owner,
			Amount: uint64(100 * (i + 1)),
		}})
		require.NoError(t, err)
	}

	subs := subscriptions.New(db, []string{"*"})
	router := mux.NewRouter()
	subs.Mount(router, "/subscriptions")
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, subs, db
}

func dial(t *testing.T, ts *httptest.Server, query string) (*websocket.Conn, *http.Response) {
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/subscriptions/events" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	t.Cleanup(func() { conn.Close() })
	return conn, resp
}

func readEvent(t *testing.T, conn *websocket.Conn) *events.FilteredEvent {
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var fe events.FilteredEvent
	require.NoError(t, json.Unmarshal(msg, &fe))
	return &fe
}

func TestSubscribeReplay(t *testing.T) {
	ts, subs, db := initSubServer(t, 5)
	defer subs.Close()

	conn, resp := dial(t, ts, "?pos=2")
	assert.NotEmpty(t, resp.Header.Get("X-Subscription-Id"))

	// rows 3..5 replayed from the journal
	for want := uint64(3); want <= 5; want++ {
		fe := readEvent(t, conn)
		assert.Equal(t, want, fe.Seq)
		assert.Equal(t, staking.ReserveFunded, fe.Type)
	}

	// then the stream goes live
	rows, err := db.Log([]staking.Event{{Type: staking.ReserveFunded, Time: 9, Owner: owner, Amount: 1}})
	require.NoError(t, err)
	subs.Publish(rows)

	fe := readEvent(t, conn)
	assert.Equal(t, uint64(6), fe.Seq)
}

func TestSubscribeLiveOnly(t *testing.T) {
	ts, subs, db := initSubServer(t, 3)
	defer subs.Close()

	conn, _ := dial(t, ts, "")

	// nothing replayed; the first frame is the next committed row
	rows, err := db.Log([]staking.Event{{Type: staking.ReserveFunded, Time: 7, Owner: owner, Amount: 42}})
	require.NoError(t, err)
	subs.Publish(rows)

	fe := readEvent(t, conn)
	assert.Equal(t, uint64(4), fe.Seq)
	assert.Equal(t, uint64(42), fe.Amount)
}

func TestSubscribeBadCursor(t *testing.T) {
	ts, subs, _ := initSubServer(t, 0)
	defer subs.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/subscriptions/events?pos=abc"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCloseDisconnectsSubscribers(t *testing.T) {
	ts, subs, _ := initSubServer(t, 0)

	conn, _ := dial(t, ts, "")

	done := make(chan struct{})
	go func() {
		defer close(done)
		// the shutdown close frame surfaces as a read error
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	subs.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber not disconnected on close")
	}
}

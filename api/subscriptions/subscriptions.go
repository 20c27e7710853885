// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package subscriptions streams committed pool events over WebSocket,
// with cursor replay from the journal for late or reconnecting
// subscribers.
package subscriptions

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"

	"github.com/palisadelabs/palisade/api/events"
	"github.com/palisadelabs/palisade/api/restutil"
	"github.com/palisadelabs/palisade/eventdb"
	"github.com/palisadelabs/palisade/log"
)

var logger = log.WithContext("pkg", "subscriptions")

const (
	// per-subscriber queue; a subscriber this far behind misses rows
	// and recovers through the pos cursor on reconnect
	eventQueueSize = 128

	// journal rows fetched per page while replaying a cursor
	replayPageSize = 256

	// connection liveness timings
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type Subscriptions struct {
	db         *eventdb.EventDB
	dispatcher *dispatcher
	messages   *messageCache
	upgrader   *websocket.Upgrader
	done       chan struct{}
	wg         sync.WaitGroup
}

func New(db *eventdb.EventDB, allowedOrigins []string) *Subscriptions {
	return &Subscriptions{
		db:         db,
		dispatcher: newDispatcher(),
		messages:   newMessageCache(eventQueueSize * 2),
		upgrader: &websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin:       checkOrigin(allowedOrigins),
		},
		done: make(chan struct{}),
	}
}

// Publish fans freshly journaled rows out to all subscribers. The node
// calls it once per committed operation, after the journal write.
func (s *Subscriptions) Publish(rows []*eventdb.StoredEvent) {
	s.dispatcher.publish(rows)
}

func (s *Subscriptions) handleSubscribeEvents(w http.ResponseWriter, req *http.Request) error {
	hasPos := req.URL.Query().Get("pos") != ""
	var cursor uint64
	if hasPos {
		parsed, err := strconv.ParseUint(req.URL.Query().Get("pos"), 10, 64)
		if err != nil {
			return restutil.BadRequest(errors.WithMessage(err, "pos"))
		}
		cursor = parsed
	}

	// Subscribing before the cursor is resolved and the handshake is
	// written closes the gap: any row committed from here on is either
	// in the queue or behind the cursor.
	queue := make(chan *eventdb.StoredEvent, eventQueueSize)
	s.dispatcher.subscribe(queue)
	defer s.dispatcher.unsubscribe(queue)

	if !hasPos {
		// no cursor means live-only: start right after the newest row
		maxSeq, err := s.db.MaxSeq(req.Context())
		if err != nil {
			return err
		}
		cursor = maxSeq
	}

	subID := uuid.New()
	conn, err := s.upgrader.Upgrade(w, req, http.Header{"X-Subscription-Id": {subID}})
	if err != nil {
		// the upgrader has already replied
		return nil
	}
	defer conn.Close()

	logger.Debug("subscriber connected", "id", subID, "pos", cursor)
	defer logger.Debug("subscriber gone", "id", subID)

	s.wg.Add(1)
	defer s.wg.Done()

	// Subscribers never send data; the read loop only keeps the
	// connection honest (pongs, close frames, dead peers).
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.replay(req, conn, &cursor); err != nil {
		return err
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case row := <-queue:
			if row.Seq <= cursor {
				// already sent during replay
				continue
			}
			if err := s.writeRow(conn, row); err != nil {
				return err
			}
			cursor = row.Seq
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		case <-closed:
			return nil
		case <-s.done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"))
			return nil
		}
	}
}

// replay streams journal rows past the cursor page by page, advancing
// the cursor as it goes. Rows committed while replaying wait in the
// subscriber queue and get deduplicated against the cursor.
func (s *Subscriptions) replay(req *http.Request, conn *websocket.Conn, cursor *uint64) error {
	for {
		rows, err := s.db.Filter(req.Context(), &eventdb.Filter{
			AfterSeq: *cursor,
			Options:  &eventdb.Options{Limit: replayPageSize},
		})
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := s.writeRow(conn, row); err != nil {
				return err
			}
			*cursor = row.Seq
		}
		if len(rows) < replayPageSize {
			return nil
		}
	}
}

func (s *Subscriptions) writeRow(conn *websocket.Conn, row *eventdb.StoredEvent) error {
	msg, _, err := s.messages.GetOrAdd(row.Seq, func() ([]byte, error) {
		return json.Marshal(events.ConvertEvent(row))
	})
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, msg)
}

// Close disconnects every subscriber and waits the handlers out. The
// http server cannot do this itself: upgraded connections are hijacked
// out of it.
func (s *Subscriptions) Close() {
	close(s.done)
	s.wg.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/events").
		Methods(http.MethodGet).
		Name("GET /subscriptions/events").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleSubscribeEvents))
}

func checkOrigin(allowedOrigins []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, allowed := range allowedOrigins {
			if allowed == "*" || strings.EqualFold(allowed, origin) {
				return true
			}
		}
		return false
	}
}

// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package api assembles the public http surface of a node.
package api

import (
	"net/http"
	"net/http/pprof"
	"strings"
	"sync/atomic"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/palisadelabs/palisade/api/doc"
	"github.com/palisadelabs/palisade/api/events"
	"github.com/palisadelabs/palisade/api/stakes"
	"github.com/palisadelabs/palisade/api/subscriptions"
	"github.com/palisadelabs/palisade/eventdb"
	"github.com/palisadelabs/palisade/log"
	"github.com/palisadelabs/palisade/palisade"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins  string
	EventsLimit     uint64
	PprofOn         bool
	EnableReqLogger *atomic.Bool
	EnableMetrics   bool
}

// New return api router. The returned closer disconnects the
// subscription conns, which are hijacked out of the http server and
// survive its shutdown otherwise.
func New(
	genesisID palisade.Bytes32,
	ledger stakes.Ledger,
	db *eventdb.EventDB,
	subs *subscriptions.Subscriptions,
	opts Options,
) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}
	if opts.EnableReqLogger == nil {
		opts.EnableReqLogger = new(atomic.Bool)
	}

	router := mux.NewRouter()

	// serve the Open API document
	router.PathPrefix("/doc").Handler(
		http.StripPrefix("/doc/", http.FileServer(http.FS(doc.FS))),
	)

	stakes.New(ledger).Mount(router, "/stakes")
	events.New(db, opts.EventsLimit).Mount(router, "/events")
	subs.Mount(router, "/subscriptions")

	if opts.PprofOn {
		router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		router.HandleFunc("/debug/pprof/trace", pprof.Trace)
		router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	}

	router.Use(genesisGuard(genesisID))
	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type", "x-genesis-id"}),
		handlers.ExposedHeaders([]string{"x-genesis-id", "x-palisade-ver"}),
	)(handler)
	handler = RequestLoggerHandler(handler, logger, opts.EnableReqLogger)

	return handler.ServeHTTP, subs.Close // subscriptions handles hijacked conns, which need to be closed
}

// genesisGuard stamps every response with the genesis id and the Open
// API version, and turns away clients pinned to a different genesis.
func genesisGuard(genesisID palisade.Bytes32) mux.MiddlewareFunc {
	id := genesisID.String()
	ver := doc.Version()
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if want := r.Header.Get("x-genesis-id"); want != "" && want != id {
				http.Error(w, "genesis id mismatch", http.StatusForbidden)
				return
			}
			w.Header().Set("x-genesis-id", id)
			w.Header().Set("x-palisade-ver", ver)
			h.ServeHTTP(w, r)
		})
	}
}

// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package httpserver starts the node's listeners: the public API, the
// metrics endpoint and the admin endpoint. Every Start function returns
// the bound URL and a closer.
package httpserver

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/palisadelabs/palisade/co"
)

func StartAPIServer(addr string, handler http.Handler, timeout time.Duration) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen API addr [%v]", addr)
	}

	if timeout > 0 {
		handler = handleAPITimeout(handler, timeout)
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second}
	var goes co.Goes
	goes.Go(func() {
		srv.Serve(listener)
	})
	return "http://" + listener.Addr().String() + "/", func() {
		srv.Close()
		goes.Wait()
	}, nil
}

// handleAPITimeout caps request handling time. Subscription requests
// are exempt: http.TimeoutHandler does not support hijacking and the
// conns it would guard are long-lived on purpose.
func handleAPITimeout(handler http.Handler, timeout time.Duration) http.Handler {
	forward := http.TimeoutHandler(handler, timeout, "API request timeout")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/subscriptions") {
			handler.ServeHTTP(w, r)
			return
		}
		forward.ServeHTTP(w, r)
	})
}

// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>
package httpserver

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palisadelabs/palisade/api/admin"
	"github.com/palisadelabs/palisade/metrics"
	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/staking"
)

type stubNode struct{}

func (stubNode) FundReserve(_ uint64) (*staking.Receipt, error) {
	return &staking.Receipt{}, nil
}

func (stubNode) AccountBalance(_ palisade.Address) uint64 { return 0 }

func TestStartMetricsServer(t *testing.T) {
	metrics.InitializePrometheusMetrics()

	url, closer, err := StartMetricsServer("127.0.0.1:0")
	require.NoError(t, err)
	defer closer()

	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestStartAdminServer(t *testing.T) {
	logLevel := new(slog.LevelVar)
	apiLogs := new(atomic.Bool)

	url, closer, err := StartAdminServer("127.0.0.1:0", logLevel, stubNode{}, new(admin.Health), apiLogs)
	require.NoError(t, err)
	defer closer()

	// health lives beside the admin prefix on the same listener
	res, err := http.Get(strings.TrimSuffix(url, "/admin") + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(url + "/loglevel")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestStartAPIServer(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/slow") || strings.HasPrefix(r.URL.Path, "/subscriptions") {
			time.Sleep(200 * time.Millisecond)
		}
		w.WriteHeader(http.StatusOK)
	})

	url, closer, err := StartAPIServer("127.0.0.1:0", handler, 50*time.Millisecond)
	require.NoError(t, err)
	defer closer()

	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	// a handler overrunning the timeout gets cut off
	res, err = http.Get(url + "slow")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)

	// subscriptions are exempt, long-lived conns must survive
	res, err = http.Get(url + "subscriptions")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

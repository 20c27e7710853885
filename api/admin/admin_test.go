// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palisadelabs/palisade/api/admin"
	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/staking"
	"github.com/palisadelabs/palisade/vault"
)

var holder = palisade.BytesToAddress([]byte("holder"))

// testNode drives a bare pool with the capability it minted.
type testNode struct {
	pool  *staking.Pool
	cap   *staking.AdminCap
	vault *vault.Vault
}

func (n *testNode) FundReserve(amount uint64) (*staking.Receipt, error) {
	return n.pool.FundReserve(n.cap, amount, 1000)
}

func (n *testNode) AccountBalance(addr palisade.Address) uint64 {
	return n.vault.Balance(addr)
}

func initAdminServer(t *testing.T) (*httptest.Server, *testNode, *admin.Health, *slog.LevelVar) {
	v := vault.New()
	_, err := v.Deposit(holder, 1_000_000)
	require.NoError(t, err)
	pool, cap := staking.New(holder, v)

	node := &testNode{pool: pool, cap: cap, vault: v}
	health := &admin.Health{}
	logLevel := new(slog.LevelVar)
	logRequests := new(atomic.Bool)

	ts := httptest.NewServer(admin.New(logLevel, logRequests, node, health))
	t.Cleanup(ts.Close)
	return ts, node, health, logLevel
}

func httpPut(t *testing.T, url string, body interface{}) ([]byte, int) {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(data))
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	r, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	res.Body.Close()
	return r, res.StatusCode
}

func httpPost(t *testing.T, url string, body interface{}) ([]byte, int) {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	r, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	res.Body.Close()
	return r, res.StatusCode
}

func httpGet(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url)
	require.NoError(t, err)
	r, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	res.Body.Close()
	return r, res.StatusCode
}

func TestHealth(t *testing.T) {
	ts, _, health, _ := initAdminServer(t)

	body, status := httpGet(t, ts.URL+"/health")
	require.Equal(t, http.StatusOK, status)
	var hs admin.HealthStatus
	require.NoError(t, json.Unmarshal(body, &hs))
	assert.True(t, hs.Healthy)
	assert.True(t, hs.LedgerSynced)

	health.SetClockDrift(3 * time.Second)
	_, status = httpGet(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, status)

	// tighter drift budget than the measured drift
	body, status = httpGet(t, ts.URL+"/health?maxClockDrift=1s")
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.NoError(t, json.Unmarshal(body, &hs))
	assert.False(t, hs.Healthy)
	assert.Equal(t, "3s", hs.ClockDrift)

	health.MarkLedgerBehind()
	body, status = httpGet(t, ts.URL+"/health")
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.NoError(t, json.Unmarshal(body, &hs))
	assert.False(t, hs.LedgerSynced)

	_, status = httpGet(t, ts.URL+"/health?maxClockDrift=bogus")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLogLevel(t *testing.T) {
	ts, _, _, logLevel := initAdminServer(t)

	body, status := httpGet(t, ts.URL+"/admin/loglevel")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"currentLevel":"info"}`, string(body))

	body, status = httpPut(t, ts.URL+"/admin/loglevel", map[string]string{"level": "trace"})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"currentLevel":"trace"}`, string(body))
	assert.Equal(t, slog.Level(-8), logLevel.Level())

	_, status = httpPut(t, ts.URL+"/admin/loglevel", map[string]string{"level": "loud"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRequestLogging(t *testing.T) {
	ts, _, _, _ := initAdminServer(t)

	body, status := httpGet(t, ts.URL+"/admin/apilogs")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"enabled":false}`, string(body))

	body, status = httpPost(t, ts.URL+"/admin/apilogs", map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"enabled":true}`, string(body))

	_, status = httpPost(t, ts.URL+"/admin/apilogs", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestFundReserve(t *testing.T) {
	ts, node, _, _ := initAdminServer(t)

	body, status := httpPost(t, ts.URL+"/admin/reserve", map[string]string{"amount": "500"})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"rewardBalance":"500"}`, string(body))
	assert.Equal(t, uint64(500), node.pool.Stats().RewardBalance)

	_, status = httpPost(t, ts.URL+"/admin/reserve", map[string]string{"amount": "0"})
	assert.Equal(t, http.StatusBadRequest, status)

	// more than the holder has left
	_, status = httpPost(t, ts.URL+"/admin/reserve", map[string]string{"amount": "10000000"})
	assert.Equal(t, http.StatusPaymentRequired, status)
}

func TestGetAccount(t *testing.T) {
	ts, _, _, _ := initAdminServer(t)

	body, status := httpGet(t, ts.URL+"/admin/accounts/"+holder.String())
	require.Equal(t, http.StatusOK, status)
	var account struct {
		Address palisade.Address `json:"address"`
		Balance uint64           `json:"balance,string"`
	}
	require.NoError(t, json.Unmarshal(body, &account))
	assert.Equal(t, holder, account.Address)
	assert.Equal(t, uint64(1_000_000), account.Balance)

	// unknown accounts read zero
	body, status = httpGet(t, ts.URL+"/admin/accounts/"+palisade.BytesToAddress([]byte("nobody")).String())
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &account))
	assert.Equal(t, uint64(0), account.Balance)

	_, status = httpGet(t, ts.URL+"/admin/accounts/junk")
	assert.Equal(t, http.StatusBadRequest, status)
}

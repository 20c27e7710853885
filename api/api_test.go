// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palisadelabs/palisade/api"
	"github.com/palisadelabs/palisade/api/subscriptions"
	"github.com/palisadelabs/palisade/eventdb"
	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/staking"
	"github.com/palisadelabs/palisade/vault"
)

var (
	genesisID = palisade.BytesToBytes32([]byte("genesis"))
	alice     = palisade.BytesToAddress([]byte("alice"))
)

// apiLedger exposes a bare pool under a fixed clock.
type apiLedger struct {
	pool *staking.Pool
	now  uint64
}

func (l *apiLedger) Create(owner palisade.Address, amount, duration uint64, autoCompound bool) (*staking.Receipt, error) {
	return l.pool.Create(owner, amount, duration, autoCompound, l.now)
}

func (l *apiLedger) Withdraw(caller palisade.Address, id palisade.Bytes32) (*staking.Receipt, error) {
	return l.pool.Withdraw(caller, id, l.now)
}

func (l *apiLedger) Claim(caller palisade.Address, id palisade.Bytes32) (*staking.Receipt, error) {
	return l.pool.Claim(caller, id, l.now)
}

func (l *apiLedger) Compound(caller palisade.Address, id palisade.Bytes32) (*staking.Receipt, error) {
	return l.pool.Compound(caller, id, l.now)
}

func (l *apiLedger) SetAutoCompound(caller palisade.Address, id palisade.Bytes32, enabled bool) (*staking.Receipt, error) {
	return l.pool.SetAutoCompound(caller, id, enabled, l.now)
}

func (l *apiLedger) GetPosition(id palisade.Bytes32) (*staking.Position, error) {
	return l.pool.GetPosition(id)
}

func (l *apiLedger) Positions() []*staking.Position { return l.pool.Positions() }

func (l *apiLedger) PositionsByOwner(owner palisade.Address) []*staking.Position {
	return l.pool.PositionsByOwner(owner)
}

func (l *apiLedger) Stats() staking.Stats { return l.pool.Stats() }

func (l *apiLedger) Accrued(id palisade.Bytes32) (uint64, error) {
	return l.pool.Accrued(id, l.now)
}

func (l *apiLedger) Now() uint64 { return l.now }

func initAPIServer(t *testing.T) *httptest.Server {
	v := vault.New()
	_, err := v.Deposit(alice, 10_000)
	require.NoError(t, err)
	pool, _ := staking.New(alice, v)

	db, err := eventdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(db.Close)

	subs := subscriptions.New(db, []string{"*"})
	handler, closer := api.New(genesisID, &apiLedger{pool: pool, now: 1000}, db, subs, api.Options{
		AllowedOrigins: "*",
		EventsLimit:    100,
	})
	t.Cleanup(closer)

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestVersionHeaders(t *testing.T) {
	ts := initAPIServer(t)

	res, err := http.Get(ts.URL + "/stakes/pool")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, genesisID.String(), res.Header.Get("x-genesis-id"))
	assert.NotEmpty(t, res.Header.Get("x-palisade-ver"))

	var stats struct {
		TotalStakesCount uint64 `json:"totalStakesCount"`
	}
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, uint64(0), stats.TotalStakesCount)
}

func TestGenesisGuard(t *testing.T) {
	ts := initAPIServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/stakes/pool", nil)
	require.NoError(t, err)
	req.Header.Set("x-genesis-id", palisade.Bytes32{0xff}.String())
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	// a client pinned to the right genesis passes
	req.Header.Set("x-genesis-id", genesisID.String())
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestServeDoc(t *testing.T) {
	ts := initAPIServer(t)

	res, err := http.Get(ts.URL + "/doc/palisade.yaml")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "openapi:")
	assert.Contains(t, string(body), "/stakes/{id}/withdraw:")
}

func TestPprofOffByDefault(t *testing.T) {
	ts := initAPIServer(t)

	res, err := http.Get(ts.URL + "/debug/pprof/cmdline")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

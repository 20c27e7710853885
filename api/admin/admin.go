// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package admin is the operator surface, served on its own listener:
// health, log verbosity, request-log toggling, reserve funding and
// vault balance lookups.
package admin

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/palisadelabs/palisade/api/restutil"
	"github.com/palisadelabs/palisade/log"
	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/staking"
)

// Node is the slice of the running node the admin surface drives. The
// node holds the admin capability; reserve funding goes through the
// same commit path as every other mutation.
type Node interface {
	FundReserve(amount uint64) (*staking.Receipt, error)
	AccountBalance(addr palisade.Address) uint64
}

type Admin struct {
	logLevel    *slog.LevelVar
	logRequests *atomic.Bool
	node        Node
	health      *Health
}

func New(logLevel *slog.LevelVar, logRequests *atomic.Bool, node Node, health *Health) http.HandlerFunc {
	admin := &Admin{
		logLevel:    logLevel,
		logRequests: logRequests,
		node:        node,
		health:      health,
	}

	router := mux.NewRouter()

	router.Path("/health").
		Methods(http.MethodGet).
		Name("GET /health").
		HandlerFunc(restutil.WrapHandlerFunc(admin.handleGetHealth))

	sub := router.PathPrefix("/admin").Subrouter()
	sub.Path("/loglevel").
		Methods(http.MethodGet).
		Name("GET /admin/loglevel").
		HandlerFunc(restutil.WrapHandlerFunc(admin.handleGetLogLevel))
	sub.Path("/loglevel").
		Methods(http.MethodPut).
		Name("PUT /admin/loglevel").
		HandlerFunc(restutil.WrapHandlerFunc(admin.handleSetLogLevel))
	sub.Path("/apilogs").
		Methods(http.MethodGet).
		Name("GET /admin/apilogs").
		HandlerFunc(restutil.WrapHandlerFunc(admin.handleGetRequestLogging))
	sub.Path("/apilogs").
		Methods(http.MethodPost).
		Name("POST /admin/apilogs").
		HandlerFunc(restutil.WrapHandlerFunc(admin.handleSetRequestLogging))
	sub.Path("/reserve").
		Methods(http.MethodPost).
		Name("POST /admin/reserve").
		HandlerFunc(restutil.WrapHandlerFunc(admin.handleFundReserve))
	sub.Path("/accounts/{address}").
		Methods(http.MethodGet).
		Name("GET /admin/accounts/{address}").
		HandlerFunc(restutil.WrapHandlerFunc(admin.handleGetAccount))

	return handlers.CompressHandler(router).ServeHTTP
}

func (a *Admin) handleGetHealth(w http.ResponseWriter, req *http.Request) error {
	maxClockDrift := defaultMaxClockDrift
	if q := req.URL.Query().Get("maxClockDrift"); q != "" {
		parsed, err := time.ParseDuration(q)
		if err != nil {
			return restutil.BadRequest(errors.WithMessage(err, "maxClockDrift"))
		}
		maxClockDrift = parsed
	}

	status := a.health.Status(maxClockDrift)
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	return restutil.WriteJSON(w, status)
}

type logLevelRequest struct {
	Level string `json:"level"`
}

type logLevelResponse struct {
	CurrentLevel string `json:"currentLevel"`
}

func (a *Admin) handleGetLogLevel(w http.ResponseWriter, req *http.Request) error {
	return restutil.WriteJSON(w, &logLevelResponse{
		CurrentLevel: log.LevelString(a.logLevel.Level()),
	})
}

func (a *Admin) handleSetLogLevel(w http.ResponseWriter, req *http.Request) error {
	var body logLevelRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}

	switch body.Level {
	case "trace":
		a.logLevel.Set(log.LevelTrace)
	case "debug":
		a.logLevel.Set(log.LevelDebug)
	case "info":
		a.logLevel.Set(log.LevelInfo)
	case "warn":
		a.logLevel.Set(log.LevelWarn)
	case "error":
		a.logLevel.Set(log.LevelError)
	case "crit":
		a.logLevel.Set(log.LevelCrit)
	default:
		return restutil.BadRequest(errors.Errorf("invalid verbosity level: %s", body.Level))
	}

	log.Warn("admin changed the log level", "level", log.LevelString(a.logLevel.Level()))

	return restutil.WriteJSON(w, &logLevelResponse{
		CurrentLevel: log.LevelString(a.logLevel.Level()),
	})
}

type requestLoggingRequest struct {
	Enabled *bool `json:"enabled"`
}

func (a *Admin) handleGetRequestLogging(w http.ResponseWriter, req *http.Request) error {
	enabled := a.logRequests.Load()
	return restutil.WriteJSON(w, &requestLoggingRequest{Enabled: &enabled})
}

func (a *Admin) handleSetRequestLogging(w http.ResponseWriter, req *http.Request) error {
	var body requestLoggingRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.Enabled == nil {
		return restutil.BadRequest(errors.New("missing 'enabled' field"))
	}

	a.logRequests.Store(*body.Enabled)
	log.Warn("admin changed the request logger", "enabled", *body.Enabled)

	return restutil.WriteJSON(w, &body)
}

type fundReserveRequest struct {
	Amount uint64 `json:"amount,string"`
}

type fundReserveResponse struct {
	RewardBalance uint64 `json:"rewardBalance,string"`
}

func (a *Admin) handleFundReserve(w http.ResponseWriter, req *http.Request) error {
	var body fundReserveRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	rec, err := a.node.FundReserve(body.Amount)
	if err != nil {
		return restutil.PoolError(err)
	}
	return restutil.WriteJSON(w, &fundReserveResponse{
		RewardBalance: rec.Stats.RewardBalance,
	})
}

type accountResponse struct {
	Address palisade.Address `json:"address"`
	Balance uint64           `json:"balance,string"`
}

func (a *Admin) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	addr, err := palisade.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "address"))
	}
	return restutil.WriteJSON(w, &accountResponse{
		Address: addr,
		Balance: a.node.AccountBalance(addr),
	})
}

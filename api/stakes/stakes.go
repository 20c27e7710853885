// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakes

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/palisadelabs/palisade/api/restutil"
	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/staking"
)

// Ledger is the node surface the stakes resource drives. Mutations
// commit through it so that every change is persisted and journaled
// before the response goes out; reads come straight from the pool.
type Ledger interface {
	Create(owner palisade.Address, amount, duration uint64, autoCompound bool) (*staking.Receipt, error)
	Withdraw(caller palisade.Address, id palisade.Bytes32) (*staking.Receipt, error)
	Claim(caller palisade.Address, id palisade.Bytes32) (*staking.Receipt, error)
	Compound(caller palisade.Address, id palisade.Bytes32) (*staking.Receipt, error)
	SetAutoCompound(caller palisade.Address, id palisade.Bytes32, enabled bool) (*staking.Receipt, error)

	GetPosition(id palisade.Bytes32) (*staking.Position, error)
	Positions() []*staking.Position
	PositionsByOwner(owner palisade.Address) []*staking.Position
	Stats() staking.Stats
	Accrued(id palisade.Bytes32) (uint64, error)
	Now() uint64
}

type Stakes struct {
	ledger Ledger
}

func New(ledger Ledger) *Stakes {
	return &Stakes{ledger}
}

func (s *Stakes) handleGetPool(w http.ResponseWriter, req *http.Request) error {
	stats := s.ledger.Stats()
	return restutil.WriteJSON(w, &PoolStats{
		StakedBalance:    stats.StakedBalance,
		RewardBalance:    stats.RewardBalance,
		TotalStakesCount: stats.TotalStakesCount,
	})
}

func (s *Stakes) handleCreateStake(w http.ResponseWriter, req *http.Request) error {
	var body CreateStakeRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.Caller.IsZero() {
		return restutil.BadRequest(errors.New("caller: zero address"))
	}
	rec, err := s.ledger.Create(body.Caller, body.Amount, body.Duration, body.AutoCompound)
	if err != nil {
		return restutil.PoolError(err)
	}
	return restutil.WriteJSON(w, convertStake(rec.Position, s.ledger.Now()))
}

func (s *Stakes) handleGetStake(w http.ResponseWriter, req *http.Request) error {
	id, err := palisade.ParseBytes32(mux.Vars(req)["id"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "id"))
	}
	pos, err := s.ledger.GetPosition(id)
	if err != nil {
		return restutil.PoolError(err)
	}
	stake := convertStake(pos, s.ledger.Now())
	if q := req.URL.Query().Get("accrued"); q != "" {
		withAccrued, err := strconv.ParseBool(q)
		if err != nil {
			return restutil.BadRequest(errors.WithMessage(err, "accrued"))
		}
		if withAccrued {
			accrued, err := s.ledger.Accrued(id)
			if err != nil {
				return restutil.PoolError(err)
			}
			stake.Accrued = strconv.FormatUint(accrued, 10)
		}
	}
	return restutil.WriteJSON(w, stake)
}

func (s *Stakes) handleListStakes(w http.ResponseWriter, req *http.Request) error {
	var positions []*staking.Position
	if q := req.URL.Query().Get("owner"); q != "" {
		owner, err := palisade.ParseAddress(q)
		if err != nil {
			return restutil.BadRequest(errors.WithMessage(err, "owner"))
		}
		positions = s.ledger.PositionsByOwner(owner)
	} else {
		positions = s.ledger.Positions()
	}
	now := s.ledger.Now()
	converted := make([]*Stake, len(positions))
	for i, pos := range positions {
		converted[i] = convertStake(pos, now)
	}
	return restutil.WriteJSON(w, converted)
}

func (s *Stakes) handleWithdrawStake(w http.ResponseWriter, req *http.Request) error {
	caller, id, err := s.parseCall(req)
	if err != nil {
		return err
	}
	rec, err := s.ledger.Withdraw(caller, id)
	if err != nil {
		return restutil.PoolError(err)
	}
	return restutil.WriteJSON(w, &WithdrawResult{
		Principal: rec.Principal,
		Reward:    rec.Reward,
	})
}

func (s *Stakes) handleClaimReward(w http.ResponseWriter, req *http.Request) error {
	caller, id, err := s.parseCall(req)
	if err != nil {
		return err
	}
	rec, err := s.ledger.Claim(caller, id)
	if err != nil {
		return restutil.PoolError(err)
	}
	return restutil.WriteJSON(w, &ClaimResult{Reward: rec.Reward})
}

func (s *Stakes) handleCompoundReward(w http.ResponseWriter, req *http.Request) error {
	caller, id, err := s.parseCall(req)
	if err != nil {
		return err
	}
	rec, err := s.ledger.Compound(caller, id)
	if err != nil {
		return restutil.PoolError(err)
	}
	return restutil.WriteJSON(w, &CompoundResult{
		Reward:    rec.Reward,
		NewAmount: rec.Position.Amount,
	})
}

func (s *Stakes) handleSetAutoCompound(w http.ResponseWriter, req *http.Request) error {
	id, err := palisade.ParseBytes32(mux.Vars(req)["id"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "id"))
	}
	var body AutoCompoundRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.Caller.IsZero() {
		return restutil.BadRequest(errors.New("caller: zero address"))
	}
	rec, err := s.ledger.SetAutoCompound(body.Caller, id, body.Enabled)
	if err != nil {
		return restutil.PoolError(err)
	}
	return restutil.WriteJSON(w, convertStake(rec.Position, s.ledger.Now()))
}

// parseCall pulls the id path variable and the caller body shared by
// the withdraw, claim and compound handlers.
func (s *Stakes) parseCall(req *http.Request) (palisade.Address, palisade.Bytes32, error) {
	id, err := palisade.ParseBytes32(mux.Vars(req)["id"])
	if err != nil {
		return palisade.Address{}, palisade.Bytes32{}, restutil.BadRequest(errors.WithMessage(err, "id"))
	}
	var body CallerRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return palisade.Address{}, palisade.Bytes32{}, restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.Caller.IsZero() {
		return palisade.Address{}, palisade.Bytes32{}, restutil.BadRequest(errors.New("caller: zero address"))
	}
	return body.Caller, id, nil
}

func (s *Stakes) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/pool").
		Methods(http.MethodGet).
		Name("GET /stakes/pool").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleGetPool))
	sub.Path("").
		Methods(http.MethodPost).
		Name("POST /stakes").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleCreateStake))
	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /stakes").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleListStakes))
	sub.Path("/{id}").
		Methods(http.MethodGet).
		Name("GET /stakes/{id}").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleGetStake))
	sub.Path("/{id}/withdraw").
		Methods(http.MethodPost).
		Name("POST /stakes/{id}/withdraw").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleWithdrawStake))
	sub.Path("/{id}/claim").
		Methods(http.MethodPost).
		Name("POST /stakes/{id}/claim").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleClaimReward))
	sub.Path("/{id}/compound").
		Methods(http.MethodPost).
		Name("POST /stakes/{id}/compound").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleCompoundReward))
	sub.Path("/{id}/autocompound").
		Methods(http.MethodPost).
		Name("POST /stakes/{id}/autocompound").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleSetAutoCompound))
}

// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package restutil holds the plumbing shared by the API resource
// packages: error-returning handlers, status-coded errors and strict
// JSON helpers.
package restutil

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/palisadelabs/palisade/staking"
	"github.com/palisadelabs/palisade/vault"
)

type httpError struct {
	cause  error
	status int
}

func (e *httpError) Error() string {
	return e.cause.Error()
}

// HTTPError creates an error carrying an http status code.
func HTTPError(cause error, status int) error {
	return &httpError{
		cause:  cause,
		status: status,
	}
}

// BadRequest convenience method to create http bad request error.
func BadRequest(cause error) error {
	return &httpError{
		cause:  cause,
		status: http.StatusBadRequest,
	}
}

// Forbidden convenience method to create http forbidden error.
func Forbidden(cause error) error {
	return &httpError{
		cause:  cause,
		status: http.StatusForbidden,
	}
}

// PoolError converts a pool operation error to its status-coded
// counterpart. Errors outside the pool taxonomy pass through unchanged
// and end up as internal server errors.
func PoolError(cause error) error {
	switch {
	case cause == nil:
		return nil
	case errors.Is(cause, staking.ErrStakeNotFound):
		return HTTPError(cause, http.StatusNotFound)
	case errors.Is(cause, staking.ErrNotOwner):
		return HTTPError(cause, http.StatusForbidden)
	case errors.Is(cause, staking.ErrStakeStillLocked):
		return HTTPError(cause, http.StatusLocked)
	case errors.Is(cause, vault.ErrInsufficientBalance):
		return HTTPError(cause, http.StatusPaymentRequired)
	case errors.Is(cause, staking.ErrInvalidAmount),
		errors.Is(cause, staking.ErrInvalidDuration),
		errors.Is(cause, staking.ErrZeroReward),
		errors.Is(cause, vault.ErrBalanceOverflow):
		return BadRequest(cause)
	default:
		return cause
	}
}

// HandlerFunc like http.HandlerFunc, but it returns an error.
// If the returned error is httpError type, httpError.status will be responded,
// otherwise http.StatusInternalServerError responded.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// WrapHandlerFunc convert HandlerFunc to http.HandlerFunc.
func WrapHandlerFunc(f HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err != nil {
			if he, ok := err.(*httpError); ok {
				if he.cause != nil {
					http.Error(w, he.cause.Error(), he.status)
				} else {
					w.WriteHeader(he.status)
				}
			} else {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

// content types
const (
	JSONContentType = "application/json; charset=utf-8"
)

// ParseJSON parse a JSON object using strict mode.
func ParseJSON(r io.Reader, v interface{}) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// WriteJSON response an object in JSON encoding.
func WriteJSON(w http.ResponseWriter, obj interface{}) error {
	w.Header().Set("Content-Type", JSONContentType)
	return json.NewEncoder(w).Encode(obj)
}

// M shortcut for type map[string]interface{}.
type M map[string]interface{}

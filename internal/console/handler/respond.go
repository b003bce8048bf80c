package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xela07ax/agentvault/internal/domain"
	"github.com/xela07ax/agentvault/internal/infra/auth"
)

// ErrorResponse is the body of every failed call.
type ErrorResponse struct {
	Code    string `json:"error_code"`
	Message string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps vault errors to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotOwner), errors.Is(err, domain.ErrNotController):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrRouteNotExists), errors.Is(err, domain.ErrNoPendingRequest):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRequestAlreadyPending):
		return http.StatusConflict
	case errors.Is(err, domain.ErrExecutionFailed):
		return http.StatusBadGateway
	case domain.IsClientError(err):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), ErrorResponse{Code: domain.CodeOf(err), Message: err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "bad_request", Message: msg})
}

// callerFrom returns the on-ledger address of the authenticated caller.
func callerFrom(r *http.Request) (common.Address, bool) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok || !common.IsHexAddress(claims.Address) {
		return common.Address{}, false
	}
	return common.HexToAddress(claims.Address), true
}

func parseAddress(s string) (common.Address, error) {
	return domain.ParseAddress(s)
}

// parseAmount reads a human amount; empty means zero.
func parseAmount(s string) (uint256.Int, error) {
	if s == "" {
		return uint256.Int{}, nil
	}
	return domain.ParseUnits(s)
}

func decode(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

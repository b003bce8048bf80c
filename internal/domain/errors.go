package domain

import "errors"

// Core errors. All of them are terminal: the core never retries.
var (
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrAgentDisabled          = errors.New("agent disabled")
	ErrRouteNotAllowed        = errors.New("pool not allowed")
	ErrRouteNotExists         = errors.New("route not exists")
	ErrTradeTooBig            = errors.New("limit: maxPerTrade")
	ErrAmountZero             = errors.New("amount=0")
	ErrAddressZero            = errors.New("address=0")
	ErrNotController          = errors.New("not controller")
	ErrNotOwner               = errors.New("not owner")
	ErrExecutionBackendNotSet = errors.New("execution backend not set")
	ErrRequestAlreadyPending  = errors.New("request already pending")
	ErrDailyCapExceeded       = errors.New("limit: dailyCap")
	ErrNoPendingRequest       = errors.New("no pending request")
	ErrExecutionFailed        = errors.New("execution failed")
	ErrInvalidRoute           = errors.New("invalid route")
	ErrOverflow               = errors.New("amount overflow")
	ErrControllerIsOwner      = errors.New("controller is owner")
)

// Stable codes used by HTTP responses and the errors_total metric.
const (
	CodeOK                     = "ok"
	CodeInsufficientBalance    = "insufficient_balance"
	CodeAgentDisabled          = "agent_disabled"
	CodeRouteNotAllowed        = "route_not_allowed"
	CodeRouteNotExists         = "route_not_exists"
	CodeTradeTooBig            = "trade_too_big"
	CodeAmountZero             = "amount_zero"
	CodeAddressZero            = "address_zero"
	CodeNotController          = "not_controller"
	CodeNotOwner               = "not_owner"
	CodeExecutionBackendNotSet = "execution_backend_not_set"
	CodeRequestAlreadyPending  = "request_already_pending"
	CodeDailyCapExceeded       = "daily_cap_exceeded"
	CodeNoPendingRequest       = "no_pending_request"
	CodeExecutionFailed        = "execution_failed"
	CodeInvalidRoute           = "invalid_route"
	CodeOverflow               = "overflow"
	CodeControllerIsOwner      = "controller_is_owner"
	CodeMalformedInput         = "malformed_input"
	CodeInternal               = "internal"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInsufficientBalance, CodeInsufficientBalance},
	{ErrAgentDisabled, CodeAgentDisabled},
	{ErrRouteNotAllowed, CodeRouteNotAllowed},
	{ErrRouteNotExists, CodeRouteNotExists},
	{ErrTradeTooBig, CodeTradeTooBig},
	{ErrAmountZero, CodeAmountZero},
	{ErrAddressZero, CodeAddressZero},
	{ErrNotController, CodeNotController},
	{ErrNotOwner, CodeNotOwner},
	{ErrExecutionBackendNotSet, CodeExecutionBackendNotSet},
	{ErrRequestAlreadyPending, CodeRequestAlreadyPending},
	{ErrDailyCapExceeded, CodeDailyCapExceeded},
	{ErrNoPendingRequest, CodeNoPendingRequest},
	{ErrExecutionFailed, CodeExecutionFailed},
	{ErrInvalidRoute, CodeInvalidRoute},
	{ErrOverflow, CodeOverflow},
	{ErrControllerIsOwner, CodeControllerIsOwner},
	{ErrMalformedAddress, CodeMalformedInput},
	{ErrMalformedHash, CodeMalformedInput},
}

// CodeOf maps err to a stable code. nil maps to "ok", unknown errors to "internal".
func CodeOf(err error) string {
	if err == nil {
		return CodeOK
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}

// IsClientError reports whether err was caused by the caller's input or permissions.
func IsClientError(err error) bool {
	switch CodeOf(err) {
	case CodeInternal, CodeExecutionFailed, CodeOK:
		return false
	}
	return true
}

package handler

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/xela07ax/agentvault/internal/domain"
	"github.com/xela07ax/agentvault/internal/engine"
)

type SwapHandler struct {
	vault  *engine.Vault
	logger *zap.Logger
}

func NewSwapHandler(v *engine.Vault, logger *zap.Logger) *SwapHandler {
	return &SwapHandler{vault: v, logger: logger.Named("swap-handler")}
}

// SwapBody is the HTTP form of a swap. Amounts are human units; an empty
// route_id selects the default route.
type SwapBody struct {
	Agent        string `json:"agent"`
	Principal    string `json:"principal"`
	RouteID      string `json:"route_id"`
	ZeroForOne   bool   `json:"zero_for_one"`
	AmountIn     string `json:"amount_in"`
	MinAmountOut string `json:"min_amount_out"`
	Sensitive    bool   `json:"sensitive"`
}

type SwapResponse struct {
	Status    domain.SwapStatus `json:"status"`
	RouteID   string            `json:"route_id"`
	AmountIn  string            `json:"amount_in"`
	AmountOut string            `json:"amount_out"`
	RequestID string            `json:"request_id,omitempty"`
	Seq       uint64            `json:"seq,omitempty"`
}

func (h *SwapHandler) Swap(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body SwapBody
	if err := decode(r, &body); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	req, err := body.toRequest(caller)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	res, err := h.vault.Swap(r.Context(), req)
	if err != nil {
		h.logger.Info("swap rejected",
			zap.String("trace_id", engine.TraceID(r.Context())),
			zap.String("agent", req.Agent.Hex()),
			zap.String("code", domain.CodeOf(err)))
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if res.Status == domain.SwapPending {
		status = http.StatusAccepted
	}
	writeJSON(w, status, SwapResponse{
		Status:    res.Status,
		RouteID:   res.RouteID.Hex(),
		AmountIn:  domain.FormatUnits(res.AmountIn),
		AmountOut: domain.FormatUnits(res.AmountOut),
		RequestID: res.RequestID,
		Seq:       res.Seq,
	})
}

type ConsumeRequest struct {
	Principal string `json:"principal"`
	Agent     string `json:"agent"`
	Amount    string `json:"amount"`
}

// Consume spends allowance for settlement done outside the vault. Controller only.
func (h *SwapHandler) Consume(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req ConsumeRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	principal, err := parseAddress(req.Principal)
	if err != nil {
		badRequest(w, "principal: "+err.Error())
		return
	}
	agent, err := parseAddress(req.Agent)
	if err != nil {
		badRequest(w, "agent: "+err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		badRequest(w, "amount: "+err.Error())
		return
	}

	if err := h.vault.ConsumeAgentBalance(r.Context(), caller, principal, agent, amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.vault.Account(principal, agent))
}

func (b SwapBody) toRequest(caller common.Address) (domain.SwapRequest, error) {
	agent, err := parseAddress(b.Agent)
	if err != nil {
		return domain.SwapRequest{}, err
	}
	principal, err := parseAddress(b.Principal)
	if err != nil {
		return domain.SwapRequest{}, err
	}
	req := domain.SwapRequest{
		Caller:     caller,
		Agent:      agent,
		Principal:  principal,
		ZeroForOne: b.ZeroForOne,
		Sensitive:  b.Sensitive,
	}
	if b.RouteID != "" {
		if req.RouteID, err = domain.ParseHash(b.RouteID); err != nil {
			return domain.SwapRequest{}, err
		}
	}
	if req.AmountIn, err = parseAmount(b.AmountIn); err != nil {
		return domain.SwapRequest{}, err
	}
	if req.MinAmountOut, err = parseAmount(b.MinAmountOut); err != nil {
		return domain.SwapRequest{}, err
	}
	return req, nil
}

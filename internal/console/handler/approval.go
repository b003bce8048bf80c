package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/agentvault/internal/console/service"
	"github.com/xela07ax/agentvault/internal/domain"
	"github.com/xela07ax/agentvault/internal/engine"
	"github.com/xela07ax/agentvault/internal/repository/postgres"
)

// ApprovalHistory is the durable decision log.
type ApprovalHistory interface {
	GetApproval(ctx context.Context, id string) (*domain.ApprovalView, error)
	GetApprovals(ctx context.Context, status string) ([]*domain.ApprovalView, error)
}

type ApprovalHandler struct {
	vault   *engine.Vault
	history ApprovalHistory
}

func NewApprovalHandler(v *engine.Vault, history ApprovalHistory) *ApprovalHandler {
	return &ApprovalHandler{vault: v, history: history}
}

// Pending shows the single parked request.
func (h *ApprovalHandler) Pending(w http.ResponseWriter, r *http.Request) {
	view, ok := h.vault.Pending()
	if !ok {
		writeError(w, domain.ErrNoPendingRequest)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Approve executes the parked request. On success the agent is disabled.
func (h *ApprovalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	res, err := h.vault.ApproveAndExecute(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SwapResponse{
		Status:    res.Status,
		RouteID:   res.RouteID.Hex(),
		AmountIn:  domain.FormatUnits(res.AmountIn),
		AmountOut: domain.FormatUnits(res.AmountOut),
		RequestID: res.RequestID,
		Seq:       res.Seq,
	})
}

func (h *ApprovalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	view, err := h.vault.RejectPending(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// List reads decision history, PENDING by default.
func (h *ApprovalHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = string(domain.StatusPending)
	}
	list, err := h.history.GetApprovals(r.Context(), status)
	if err != nil {
		h.historyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ApprovalHandler) GetDetails(w http.ResponseWriter, r *http.Request) {
	approval, err := h.history.GetApproval(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.historyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, approval)
}

func (h *ApprovalHandler) historyError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrHistoryDisabled):
		status = http.StatusNotImplemented
	case errors.Is(err, postgres.ErrApprovalNotFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, ErrorResponse{Code: "history", Message: err.Error()})
}

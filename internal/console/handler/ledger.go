package handler

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"github.com/xela07ax/agentvault/internal/engine"
)

// LedgerHandler moves the caller's own funds. The principal is always the
// authenticated address.
type LedgerHandler struct {
	vault *engine.Vault
}

func NewLedgerHandler(v *engine.Vault) *LedgerHandler {
	return &LedgerHandler{vault: v}
}

type AmountRequest struct {
	Agent  string `json:"agent,omitempty"`
	Amount string `json:"amount"`
}

func (h *LedgerHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/deposit", h.Deposit)
	r.Post("/withdraw", h.Withdraw)
	r.Post("/allocate", h.Allocate)
	r.Post("/deallocate", h.Deallocate)
	r.Get("/balance", h.Balance)
	r.Get("/accounts/{agent}", h.Account)
	return r
}

func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.vault.Deposit)
}

func (h *LedgerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.vault.Withdraw)
}

func (h *LedgerHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	h.moveAgent(w, r, h.vault.AllocateToAgent)
}

func (h *LedgerHandler) Deallocate(w http.ResponseWriter, r *http.Request) {
	h.moveAgent(w, r, h.vault.DeallocateFromAgent)
}

func (h *LedgerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.vault.Balance(principal))
}

func (h *LedgerHandler) Account(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	agent, err := parseAddress(chi.URLParam(r, "agent"))
	if err != nil {
		badRequest(w, "agent: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.vault.Account(principal, agent))
}

// principal is ?principal= when given, the caller otherwise. Reads are open
// to any authenticated user.
func (h *LedgerHandler) principal(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	if p := r.URL.Query().Get("principal"); p != "" {
		addr, err := parseAddress(p)
		if err != nil {
			badRequest(w, "principal: "+err.Error())
			return common.Address{}, false
		}
		return addr, true
	}
	caller, ok := callerFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
	return caller, ok
}

func (h *LedgerHandler) move(w http.ResponseWriter, r *http.Request,
	op func(context.Context, common.Address, uint256.Int) error,
) {
	caller, ok := callerFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req AmountRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		badRequest(w, "amount: "+err.Error())
		return
	}
	if err := op(r.Context(), caller, amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.vault.Balance(caller))
}

func (h *LedgerHandler) moveAgent(w http.ResponseWriter, r *http.Request,
	op func(context.Context, common.Address, common.Address, uint256.Int) error,
) {
	caller, ok := callerFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req AmountRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
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
	if err := op(r.Context(), caller, agent, amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.vault.Account(caller, agent))
}

package handler

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xela07ax/agentvault/internal/domain"
	"github.com/xela07ax/agentvault/internal/engine"
	"github.com/xela07ax/agentvault/internal/identity"
	"github.com/xela07ax/agentvault/internal/policy"
)

// FlagSwitcher broadcasts operator flags (kill-switch, quarantine, sandbox).
type FlagSwitcher interface {
	BlockAgent(ctx context.Context, agent common.Address) error
	UnblockAgent(ctx context.Context, agent common.Address) error
	SetQuarantine(ctx context.Context, agent common.Address, on bool) error
	SetSandboxMode(ctx context.Context, agent common.Address, on bool) error
}

type AgentHandler struct {
	vault  *engine.Vault
	flags  FlagSwitcher
	logger *zap.Logger
}

func NewAgentHandler(v *engine.Vault, flags FlagSwitcher, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{vault: v, flags: flags, logger: logger.Named("agent-handler")}
}

// AgentConfigRequest replaces an agent's whole configuration. The identity is
// given either as an ENS name or as a raw 32-byte binding.
type AgentConfigRequest struct {
	Enabled         bool     `json:"enabled"`
	IdentityName    string   `json:"identity_name,omitempty"`
	IdentityBinding string   `json:"identity_binding,omitempty"`
	AllowedRoutes   []string `json:"allowed_routes"`
	MaxPerTrade     string   `json:"max_per_trade"`
	DailyCap        string   `json:"daily_cap,omitempty"`
	DailyCapEnabled bool     `json:"daily_cap_enabled"`
}

type LimitsRequest struct {
	MaxPerTrade     string `json:"max_per_trade"`
	DailyCap        string `json:"daily_cap"`
	DailyCapEnabled bool   `json:"daily_cap_enabled"`
}

type ToggleRequest struct {
	Enabled bool `json:"enabled"`
}

type VerifyRequest struct {
	Name string `json:"name"`
}

type VerifyResponse struct {
	Agent    string `json:"agent"`
	Name     string `json:"name"`
	Namehash string `json:"namehash"`
	Match    bool   `json:"match"`
}

func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.vault.Agents())
}

func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentParam(w, r)
	if !ok {
		return
	}
	view, found := h.vault.Agent(agent)
	if !found {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Code: "not_found", Message: "agent not configured"})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *AgentHandler) AllowedRoutes(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentParam(w, r)
	if !ok {
		return
	}
	ids := h.vault.AllowedRoutes(agent)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AgentHandler) SetConfig(w http.ResponseWriter, r *http.Request) {
	caller, agent, ok := callerAndAgent(w, r)
	if !ok {
		return
	}
	var req AgentConfigRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	in := policy.ConfigInput{Enabled: req.Enabled, DailyCapEnabled: req.DailyCapEnabled}
	var err error
	switch {
	case req.IdentityName != "":
		in.IdentityBinding = identity.Namehash(req.IdentityName)
	case req.IdentityBinding != "":
		if in.IdentityBinding, err = domain.ParseHash(req.IdentityBinding); err != nil {
			badRequest(w, "identity_binding: "+err.Error())
			return
		}
	}
	for _, s := range req.AllowedRoutes {
		id, err := domain.ParseHash(s)
		if err != nil {
			badRequest(w, "allowed_routes: "+err.Error())
			return
		}
		in.AllowedRoutes = append(in.AllowedRoutes, id)
	}
	if in.MaxPerTrade, err = parseAmount(req.MaxPerTrade); err != nil {
		badRequest(w, "max_per_trade: "+err.Error())
		return
	}
	if in.DailyCap, err = parseAmount(req.DailyCap); err != nil {
		badRequest(w, "daily_cap: "+err.Error())
		return
	}

	if err := h.vault.SetAgentConfig(r.Context(), caller, agent, in); err != nil {
		writeError(w, err)
		return
	}
	h.respondAgent(w, agent)
}

func (h *AgentHandler) SetLimits(w http.ResponseWriter, r *http.Request) {
	caller, agent, ok := callerAndAgent(w, r)
	if !ok {
		return
	}
	var req LimitsRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	maxPerTrade, err := parseAmount(req.MaxPerTrade)
	if err != nil {
		badRequest(w, "max_per_trade: "+err.Error())
		return
	}
	dailyCap, err := parseAmount(req.DailyCap)
	if err != nil {
		badRequest(w, "daily_cap: "+err.Error())
		return
	}

	if err := h.vault.SetLimits(r.Context(), caller, agent, maxPerTrade, dailyCap, req.DailyCapEnabled); err != nil {
		writeError(w, err)
		return
	}
	h.respondAgent(w, agent)
}

// SetEnabled is the owner's direct switch, distinct from the broadcast kill-switch.
func (h *AgentHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	caller, agent, ok := callerAndAgent(w, r)
	if !ok {
		return
	}
	var req ToggleRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := h.vault.SetAgentEnabled(r.Context(), caller, agent, req.Enabled); err != nil {
		writeError(w, err)
		return
	}
	h.respondAgent(w, agent)
}

func (h *AgentHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.flag(w, r, "kill-switch-block", func(ctx context.Context, a common.Address, _ bool) error {
		return h.flags.BlockAgent(ctx, a)
	}, false)
}

func (h *AgentHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.flag(w, r, "kill-switch-unblock", func(ctx context.Context, a common.Address, _ bool) error {
		return h.flags.UnblockAgent(ctx, a)
	}, false)
}

func (h *AgentHandler) SetQuarantine(w http.ResponseWriter, r *http.Request) {
	h.flag(w, r, "quarantine", h.flags.SetQuarantine, true)
}

func (h *AgentHandler) SetSandbox(w http.ResponseWriter, r *http.Request) {
	h.flag(w, r, "sandbox", h.flags.SetSandboxMode, true)
}

func (h *AgentHandler) flag(w http.ResponseWriter, r *http.Request, action string,
	op func(context.Context, common.Address, bool) error, withBody bool,
) {
	agent, ok := agentParam(w, r)
	if !ok {
		return
	}
	var req ToggleRequest
	if withBody {
		if err := decode(r, &req); err != nil {
			badRequest(w, "invalid request body")
			return
		}
	}
	if err := op(r.Context(), agent, req.Enabled); err != nil {
		h.logger.Error("agent flag failed", zap.String("action", action), zap.String("agent", agent.Hex()), zap.Error(err))
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AgentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentParam(w, r)
	if !ok {
		return
	}
	var req VerifyRequest
	if err := decode(r, &req); err != nil || req.Name == "" {
		badRequest(w, "name is required")
		return
	}
	match, err := h.vault.VerifyIdentity(agent, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{
		Agent:    agent.Hex(),
		Name:     identity.Normalize(req.Name),
		Namehash: identity.Namehash(req.Name).Hex(),
		Match:    match,
	})
}

func (h *AgentHandler) respondAgent(w http.ResponseWriter, agent common.Address) {
	view, _ := h.vault.Agent(agent)
	writeJSON(w, http.StatusOK, view)
}

func agentParam(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	agent, err := parseAddress(chi.URLParam(r, "agent"))
	if err != nil {
		badRequest(w, "agent: "+err.Error())
		return common.Address{}, false
	}
	return agent, true
}

func callerAndAgent(w http.ResponseWriter, r *http.Request) (common.Address, common.Address, bool) {
	caller, ok := callerFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return common.Address{}, common.Address{}, false
	}
	agent, ok := agentParam(w, r)
	return caller, agent, ok
}

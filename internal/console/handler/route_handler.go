package handler

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/agentvault/internal/domain"
	"github.com/xela07ax/agentvault/internal/engine"
)

// RouteHandler manages swap routes and the controller role.
type RouteHandler struct {
	vault *engine.Vault
}

func NewRouteHandler(v *engine.Vault) *RouteHandler {
	return &RouteHandler{vault: v}
}

type RouteRequest struct {
	Asset0  string `json:"asset0"`
	Asset1  string `json:"asset1"`
	Fee     uint32 `json:"fee"`
	Pool    string `json:"pool"`
	Default bool   `json:"default"`
}

type RouteView struct {
	ID      string `json:"id"`
	Asset0  string `json:"asset0"`
	Asset1  string `json:"asset1"`
	Fee     uint32 `json:"fee"`
	Pool    string `json:"pool"`
	Enabled bool   `json:"enabled"`
	Default bool   `json:"default"`
}

type ControllerRequest struct {
	Address string `json:"address"`
}

func newRouteView(rt domain.Route) RouteView {
	return RouteView{
		ID:      rt.ID.Hex(),
		Asset0:  rt.Asset0.Hex(),
		Asset1:  rt.Asset1.Hex(),
		Fee:     rt.Fee,
		Pool:    rt.Pool.Hex(),
		Enabled: rt.Enabled,
		Default: rt.Default,
	}
}

func (h *RouteHandler) List(w http.ResponseWriter, r *http.Request) {
	routes := h.vault.Routes()
	out := make([]RouteView, len(routes))
	for i, rt := range routes {
		out[i] = newRouteView(rt)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := routeIDParam(w, r)
	if !ok {
		return
	}
	rt, err := h.vault.Route(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRouteView(rt))
}

func (h *RouteHandler) GetDefault(w http.ResponseWriter, r *http.Request) {
	rt, err := h.vault.DefaultRoute()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRouteView(rt))
}

// Register adds a route; with "default" it also becomes the default route.
func (h *RouteHandler) Register(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req RouteRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	a0, err0 := parseAddress(req.Asset0)
	a1, err1 := parseAddress(req.Asset1)
	pool, err2 := parseAddress(req.Pool)
	if err0 != nil || err1 != nil || err2 != nil {
		badRequest(w, "asset0, asset1 and pool must be addresses")
		return
	}

	register := h.vault.RegisterRoute
	if req.Default {
		register = h.vault.SetDefaultRoute
	}
	id, err := register(r.Context(), caller, a0, a1, req.Fee, pool)
	if err != nil {
		writeError(w, err)
		return
	}

	rt, err := h.vault.Route(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newRouteView(rt))
}

func (h *RouteHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req ToggleRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	id, ok := routeIDParam(w, r)
	if !ok {
		return
	}
	if err := h.vault.SetRouteEnabled(r.Context(), caller, id, req.Enabled); err != nil {
		writeError(w, err)
		return
	}
	rt, _ := h.vault.Route(id)
	writeJSON(w, http.StatusOK, newRouteView(rt))
}

func (h *RouteHandler) GetController(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ControllerRequest{Address: h.vault.Controller().Hex()})
}

func (h *RouteHandler) SetController(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req ControllerRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		badRequest(w, "address: "+err.Error())
		return
	}
	if err := h.vault.SetController(r.Context(), caller, addr); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ControllerRequest{Address: addr.Hex()})
}

func routeIDParam(w http.ResponseWriter, r *http.Request) (common.Hash, bool) {
	id, err := domain.ParseHash(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, err.Error())
		return common.Hash{}, false
	}
	return id, true
}

package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/xela07ax/agentvault/internal/audit"
	"github.com/xela07ax/agentvault/internal/domain"
	"github.com/xela07ax/agentvault/internal/engine"
	"github.com/xela07ax/agentvault/internal/repository/postgres"
)

// AuditLogs reads stored history.
type AuditLogs interface {
	FetchLogs(ctx context.Context, f postgres.EventFilter) ([]audit.Event, error)
	Stats(ctx context.Context) (*domain.HistoryStats, error)
}

type AuditHandler struct {
	vault   *engine.Vault
	service AuditLogs
}

func NewAuditHandler(v *engine.Vault, s AuditLogs) *AuditHandler {
	return &AuditHandler{vault: v, service: s}
}

// Events pages through the in-memory journal.
// GET /v1/events?since=<seq>&limit=<n>
func (h *AuditHandler) Events(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var since uint64
	if s := q.Get("since"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			badRequest(w, "since must be a sequence number")
			return
		}
		since = v
	}
	limit, err := intParam(q.Get("limit"), 100)
	if err != nil {
		badRequest(w, "limit must be a number")
		return
	}
	writeJSON(w, http.StatusOK, h.vault.Events(since, limit))
}

// GetLogs returns stored history with filters.
// GET /v1/audit?agent=...&kind=...&since=RFC3339&limit=n
func (h *AuditHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := postgres.EventFilter{
		Agent: q.Get("agent"),
		Kind:  audit.Kind(q.Get("kind")),
	}
	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			badRequest(w, "since must be RFC3339")
			return
		}
		f.Since = t
	}
	limit, err := intParam(q.Get("limit"), 100)
	if err != nil {
		badRequest(w, "limit must be a number")
		return
	}
	f.Limit = limit

	logs, err := h.service.FetchLogs(r.Context(), f)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Code: "history", Message: "Failed to fetch audit logs"})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// DashboardResponse combines live vault counters with stored history.
type DashboardResponse struct {
	Vault   domain.VaultStats    `json:"vault"`
	History *domain.HistoryStats `json:"history,omitempty"`
}

// GetStats serves the dashboard. History is omitted when unavailable.
func (h *AuditHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	resp := DashboardResponse{Vault: h.vault.Stats()}
	if hist, err := h.service.Stats(r.Context()); err == nil {
		resp.History = hist
	}
	writeJSON(w, http.StatusOK, resp)
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

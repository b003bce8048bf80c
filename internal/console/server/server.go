package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/agentvault/internal/console/handler"
	"github.com/xela07ax/agentvault/internal/domain"
	"github.com/xela07ax/agentvault/internal/engine"
	"github.com/xela07ax/agentvault/internal/infra/auth"
)

// Handlers groups the domain handlers the console serves.
type Handlers struct {
	Auth     *handler.AuthHandler
	Ledger   *handler.LedgerHandler
	Swap     *handler.SwapHandler
	Agents   *handler.AgentHandler
	Routes   *handler.RouteHandler
	Approval *handler.ApprovalHandler
	Audit    *handler.AuditHandler
}

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger

	// RS256 token check shared with the gRPC gateway
	authValidator auth.TokenValidator
	metrics       http.Handler
	h             Handlers
}

// NewConsoleServer builds the HTTP surface. metrics may be nil.
func NewConsoleServer(logger *zap.Logger, validator auth.TokenValidator, metrics http.Handler, h Handlers) *ConsoleServer {
	s := &ConsoleServer{
		router:        chi.NewRouter(),
		logger:        logger.Named("console-api"),
		authValidator: validator,
		metrics:       metrics,
		h:             h,
	}
	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// 1. Infrastructure middleware for every route
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(engine.TracingMiddleware)

	// 2. Public routes
	r.Group(func(r chi.Router) {
		r.Post("/auth/token", s.h.Auth.Login)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		if s.metrics != nil {
			r.Handle("/metrics", s.metrics)
		}
	})

	// 3. Authenticated perimeter (RS256)
	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(s.authValidator, s.logger))

		// Principals move their own funds
		r.Mount("/v1/ledger", s.h.Ledger.Routes())

		// Read models
		r.Get("/v1/agents", s.h.Agents.List)
		r.Get("/v1/agents/{agent}", s.h.Agents.Get)
		r.Get("/v1/agents/{agent}/routes", s.h.Agents.AllowedRoutes)
		r.Post("/v1/agents/{agent}/verify", s.h.Agents.Verify)
		r.Get("/v1/routes", s.h.Routes.List)
		r.Get("/v1/routes/default", s.h.Routes.GetDefault)
		r.Get("/v1/routes/{id}", s.h.Routes.Get)
		r.Get("/v1/controller", s.h.Routes.GetController)
		r.Get("/v1/approvals/pending", s.h.Approval.Pending)
		r.Get("/v1/events", s.h.Audit.Events)

		// Execution: agents act for themselves, the controller for anyone
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireScope(domain.ScopeAgent, domain.ScopeOperator, domain.ScopeOwner))
			r.Post("/v1/swaps", s.h.Swap.Swap)
			r.Post("/v1/consume", s.h.Swap.Consume)
		})

		// Operator switches broadcast to every gateway
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireScope(domain.ScopeOperator, domain.ScopeOwner))
			r.Post("/v1/agents/{agent}/block", s.h.Agents.Block)
			r.Post("/v1/agents/{agent}/unblock", s.h.Agents.Unblock)
			r.Post("/v1/agents/{agent}/quarantine", s.h.Agents.SetQuarantine)
			r.Post("/v1/agents/{agent}/sandbox", s.h.Agents.SetSandbox)
			r.Get("/v1/approvals", s.h.Approval.List)
			r.Get("/v1/approvals/{id}", s.h.Approval.GetDetails)
			r.Get("/v1/audit", s.h.Audit.GetLogs)
			r.Get("/v1/dashboard/stats", s.h.Audit.GetStats)
		})

		// Owner administration; the vault checks the address again
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireScope(domain.ScopeOwner))
			r.Put("/v1/agents/{agent}/config", s.h.Agents.SetConfig)
			r.Put("/v1/agents/{agent}/limits", s.h.Agents.SetLimits)
			r.Post("/v1/agents/{agent}/enabled", s.h.Agents.SetEnabled)
			r.Post("/v1/routes", s.h.Routes.Register)
			r.Post("/v1/routes/{id}/enabled", s.h.Routes.SetEnabled)
			r.Put("/v1/controller", s.h.Routes.SetController)
			r.Post("/v1/approvals/pending/approve", s.h.Approval.Approve)
			r.Post("/v1/approvals/pending/reject", s.h.Approval.Reject)
		})
	})
}

// ServeHTTP makes ConsoleServer a plain http.Handler.
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

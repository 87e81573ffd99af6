package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/authgate/internal/auth"
)

// API path prefixes gated by apiPolicy.
const (
	apiPrefix      = "/api/v1"
	apiAdminPrefix = apiPrefix + "/admin"
)

// healthCheckTimeout bounds each dependency check in GET /health.
const healthCheckTimeout = 2 * time.Second

// apiPolicy restricts the protected API group: admin endpoints to ADMIN,
// everything else to any signed-in role.
func apiPolicy() *auth.Policy {
	return auth.NewPolicy(
		auth.AccessRule{Prefix: apiAdminPrefix, Roles: []auth.Role{auth.RoleAdmin}},
		auth.AccessRule{Prefix: apiPrefix, Roles: []auth.Role{auth.RoleUser, auth.RoleAdmin}},
	)
}

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route(apiPrefix, func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		// Credential endpoints, throttled per client
		r.Group(func(r chi.Router) {
			r.Use(s.rateLimitMiddleware)
			r.Post("/auth/register", s.handleRegister)
			r.Post("/auth/login", s.handleLogin)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.apiGateMiddleware)

			r.Get("/auth/me", s.handleMe)
			r.Post("/auth/logout", s.handleLogout)

			// WS ticket requires authentication; the ticket carries the session id
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Delete("/admin/sessions/{sid}", s.handleRevokeSession)
		})
	})

	// Browser areas
	r.Group(func(r chi.Router) {
		r.Use(s.browserGateMiddleware)

		r.Handle(auth.DashboardAreaPrefix, s.areaHandler("dashboard"))
		r.Handle(auth.DashboardAreaPrefix+"/*", s.areaHandler("dashboard"))
		r.Handle(auth.AdminAreaPrefix, s.areaHandler("admin"))
		r.Handle(auth.AdminAreaPrefix+"/*", s.areaHandler("admin"))
	})

	return r
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// handleHealth reports the server status and each configured dependency.
// Any failing dependency turns the status to "degraded" with a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Version: s.version}

	if len(s.health) > 0 {
		resp.Dependencies = make(map[string]string, len(s.health))
	}
	for name, checker := range s.health {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := checker.HealthCheck(ctx)
		cancel()

		if err != nil {
			s.logger.Warn("health check failed", "dependency", name, "error", err)
			resp.Dependencies[name] = "unavailable"
			resp.Status = "degraded"
			continue
		}
		resp.Dependencies[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

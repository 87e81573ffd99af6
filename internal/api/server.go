package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/authgate/internal/auth"
	"github.com/nerrad567/authgate/internal/infrastructure/config"
	"github.com/nerrad567/authgate/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is any dependency reported by GET /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Auth     *auth.Authenticator
	Signer   *auth.Signer

	// Sessions backs strict revocation checks. Required when
	// Security.Revocation.Strict is set.
	Sessions auth.SessionChecker

	// Hub, when set, is used instead of a server-owned hub. The caller runs it.
	Hub *Hub

	// Health lists the dependencies reported by GET /health, by name.
	Health map[string]HealthChecker

	Version string
}

// Server is the HTTP API server for authgate.
//
// It manages the HTTP listener, routes, middleware, request gates and
// WebSocket hub. The server is created with New() and started with Start().
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Server struct {
	cfg         config.APIConfig
	logger      *logging.Logger
	auth        *auth.Authenticator
	browserGate *auth.Gate
	apiGate     *auth.Gate
	health      map[string]HealthChecker
	version     string
	hub         *Hub
	externalHub bool
	tickets     *ticketStore
	limiters    *clientLimiters

	mu     sync.Mutex
	server *http.Server
	addr   string
	cancel context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("authenticator is required")
	}
	if deps.Signer == nil {
		return nil, fmt.Errorf("signer is required")
	}

	gateOpts := []auth.GateOption{
		auth.WithLoginPath(deps.Config.LoginPath),
		auth.WithGateLogger(deps.Logger.With("component", "gate").Logger),
	}
	if deps.Security.Revocation.Strict {
		if deps.Sessions == nil {
			return nil, fmt.Errorf("session registry is required for strict revocation")
		}
		gateOpts = append(gateOpts, auth.WithRevocationCheck(deps.Sessions, deps.Security.Revocation.FailOpen))
	}

	browserGate, err := auth.NewGate(deps.Signer, auth.DefaultPolicy(), gateOpts...)
	if err != nil {
		return nil, fmt.Errorf("building browser gate: %w", err)
	}
	apiGate, err := auth.NewGate(deps.Signer, apiPolicy(),
		append(gateOpts, auth.WithoutAdminAreaRedirect())...)
	if err != nil {
		return nil, fmt.Errorf("building api gate: %w", err)
	}

	s := &Server{
		cfg:         deps.Config,
		logger:      deps.Logger,
		auth:        deps.Auth,
		browserGate: browserGate,
		apiGate:     apiGate,
		health:      deps.Health,
		version:     deps.Version,
		tickets:     newTicketStore(),
	}

	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
	}
	s.hub.OnSessionRevoked(s.tickets.revokeSession)

	if deps.Security.RateLimit.Enabled {
		s.limiters = newClientLimiters(deps.Security.RateLimit)
	}

	return s, nil
}

// Hub returns the WebSocket hub, for wiring it as an event sink.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the fully wired router without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener and serves in a background goroutine.
//
// It also starts the hub (unless injected), the ticket cleanup loop and the
// rate limiter eviction loop. Binding errors are returned synchronously.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port)))
	if err != nil {
		return fmt.Errorf("binding api listener: %w", err)
	}

	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}
	go s.cleanTicketsLoop(srvCtx)
	if s.limiters != nil {
		go s.cleanLimitersLoop(srvCtx)
	}

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}
	s.addr = ln.Addr().String()

	srv := s.server
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", s.addr, "cert", s.cfg.TLS.CertFile)
			err = srv.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.addr)
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	s.mu.Lock()
	srv, cancel := s.server, s.cancel
	s.server, s.cancel = nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	ctx, done := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer done()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}

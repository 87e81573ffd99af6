package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
)

// DefaultLoginPath is where denied browser requests are sent.
const DefaultLoginPath = "/auth"

// GateState is the outcome of evaluating one request.
type GateState int

const (
	StateUnchecked GateState = iota
	StateNoRuleMatch
	StateMissingOrInvalidToken
	StateInsufficientRole
	StateAdminAreaRedirect
	StateAuthorized
)

func (s GateState) String() string {
	switch s {
	case StateUnchecked:
		return "unchecked"
	case StateNoRuleMatch:
		return "no_rule_match"
	case StateMissingOrInvalidToken:
		return "missing_or_invalid_token"
	case StateInsufficientRole:
		return "insufficient_role"
	case StateAdminAreaRedirect:
		return "admin_area_redirect"
	case StateAuthorized:
		return "authorized"
	default:
		return fmt.Sprintf("GateState(%d)", int(s))
	}
}

// Decision is the result of Gate.Evaluate.
//
// RedirectTo is set for browser redirects: the login path on a deny and
// the admin area for StateAdminAreaRedirect. Err carries the verification
// or registry failure behind StateMissingOrInvalidToken.
type Decision struct {
	State      GateState
	Claims     *Claims
	RedirectTo string
	Err        error
}

// Allowed reports whether the request may proceed to its handler.
func (d Decision) Allowed() bool {
	return d.State == StateNoRuleMatch || d.State == StateAuthorized
}

// IsRegistryError reports whether a gate decision failed because the
// session registry could not be reached.
func (d Decision) IsRegistryError() bool {
	return errors.Is(d.Err, ErrRegistryUnavailable)
}

// SessionChecker is the registry view the gate needs for strict revocation.
type SessionChecker interface {
	IsActive(ctx context.Context, sid string) (bool, error)
}

// Gate decides whether a request for a path may proceed.
// It reads the registry only in strict revocation mode and never writes to it.
type Gate struct {
	signer        *Signer
	policy        *Policy
	sessions      SessionChecker
	failOpen      bool
	adminRedirect bool
	loginPath     string
	logger        *slog.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithRevocationCheck makes the gate reject tokens whose session is no longer
// in the registry. failOpen lets requests through when the registry errors.
func WithRevocationCheck(sessions SessionChecker, failOpen bool) GateOption {
	return func(g *Gate) {
		g.sessions = sessions
		g.failOpen = failOpen
	}
}

// WithoutAdminAreaRedirect disables sending admins from /dashboard to /admin.
// The API-mode gate uses it.
func WithoutAdminAreaRedirect() GateOption {
	return func(g *Gate) {
		g.adminRedirect = false
	}
}

// WithLoginPath overrides DefaultLoginPath.
func WithLoginPath(p string) GateOption {
	return func(g *Gate) {
		if p != "" {
			g.loginPath = p
		}
	}
}

// WithGateLogger sets the logger for registry failures.
func WithGateLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGate returns a Gate using signer for verification and policy for rules.
func NewGate(signer *Signer, policy *Policy, opts ...GateOption) (*Gate, error) {
	if signer == nil {
		return nil, fmt.Errorf("%w: signer is required", ErrValidation)
	}
	if policy == nil {
		return nil, fmt.Errorf("%w: policy is required", ErrValidation)
	}

	g := &Gate{
		signer:        signer,
		policy:        policy,
		adminRedirect: true,
		loginPath:     DefaultLoginPath,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Strict reports whether the gate consults the session registry.
func (g *Gate) Strict() bool {
	return g.sessions != nil
}

// Evaluate runs the gate for reqPath using the raw Authorization header value.
// Rules are matched against the cleaned path, so dot segments cannot move a
// request from one area's rule into another's.
func (g *Gate) Evaluate(ctx context.Context, reqPath, authorization string) Decision {
	reqPath = CleanPath(reqPath)
	required, ok := g.policy.RequiredRoles(reqPath)
	if !ok {
		return Decision{State: StateNoRuleMatch}
	}

	token, ok := BearerToken(authorization)
	if !ok {
		return g.deny(fmt.Errorf("%w: missing bearer token", ErrUnauthorized))
	}

	claims, err := g.signer.Verify(token)
	if err != nil {
		return g.deny(err)
	}

	if g.sessions != nil {
		active, err := g.sessions.IsActive(ctx, claims.SessionID)
		switch {
		case err != nil && g.failOpen:
			g.logger.Warn("session registry unavailable, allowing request",
				"sid", claims.SessionID, "error", err)
		case err != nil:
			g.logger.Warn("session registry unavailable, denying request",
				"sid", claims.SessionID, "error", err)
			return g.deny(err)
		case !active:
			return g.deny(fmt.Errorf("%w: session %s revoked", ErrUnauthorized, claims.SessionID))
		}
	}

	if !IsAuthorized(claims.Role, required) {
		return Decision{
			State:      StateInsufficientRole,
			Claims:     claims,
			RedirectTo: g.loginPath,
		}
	}

	if g.adminRedirect && claims.Role == RoleAdmin && strings.HasPrefix(reqPath, DashboardAreaPrefix) {
		return Decision{
			State:      StateAdminAreaRedirect,
			Claims:     claims,
			RedirectTo: AdminAreaPrefix,
		}
	}

	return Decision{State: StateAuthorized, Claims: claims}
}

func (g *Gate) deny(err error) Decision {
	return Decision{
		State:      StateMissingOrInvalidToken,
		RedirectTo: g.loginPath,
		Err:        err,
	}
}

// CleanPath returns the canonical form of a request path: rooted, with dot
// segments and repeated slashes removed. A trailing slash is kept.
func CleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	np := path.Clean(p)
	if p[len(p)-1] == '/' && np != "/" {
		np += "/"
	}
	return np
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

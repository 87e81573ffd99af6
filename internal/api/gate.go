package api

import (
	"context"
	"net/http"

	"github.com/nerrad567/authgate/internal/auth"
)

// browserGateMiddleware protects the HTML areas. Denied requests are
// redirected (to the login page, or an ADMIN on /dashboard to /admin)
// rather than answered with an error body. Paths with dot segments are
// first redirected to their clean form, so the handler never serves a
// path other than the one the gate checked.
func (s *Server) browserGateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if clean := auth.CleanPath(r.URL.Path); clean != r.URL.Path {
			u := *r.URL
			u.Path = clean
			u.RawPath = ""
			http.Redirect(w, r, u.String(), http.StatusMovedPermanently)
			return
		}

		d := s.browserGate.Evaluate(r.Context(), r.URL.Path, r.Header.Get("Authorization"))

		switch {
		case d.State == auth.StateNoRuleMatch:
			next.ServeHTTP(w, r)
		case d.Allowed():
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), d.Claims)))
		default:
			s.logger.Debug("browser request redirected",
				"path", r.URL.Path,
				"state", d.State.String(),
				"location", d.RedirectTo,
			)
			http.Redirect(w, r, d.RedirectTo, http.StatusFound)
		}
	})
}

// apiGateMiddleware protects the JSON API. Missing or invalid credentials
// get 401, a role outside the rule gets 403.
func (s *Server) apiGateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := s.apiGate.Evaluate(r.Context(), r.URL.Path, r.Header.Get("Authorization"))

		switch d.State {
		case auth.StateNoRuleMatch:
			next.ServeHTTP(w, r)
		case auth.StateAuthorized:
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), d.Claims)))
		case auth.StateInsufficientRole:
			writeForbidden(w, "insufficient role")
		default:
			if d.IsRegistryError() {
				writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "session registry unavailable")
				return
			}
			writeUnauthorized(w, "unauthorised")
		}
	})
}

func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, ctxKeyClaims, claims)
}

// claimsFromContext returns the verified claims stored by a gate middleware.
func claimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ctxKeyClaims).(*auth.Claims)
	return claims, ok && claims != nil
}

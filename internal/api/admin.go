package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleRevokeSession removes a session from the registry. The API gate
// has already restricted this route to ADMIN.
func (s *Server) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "unauthorised")
		return
	}

	sid := chi.URLParam(r, "sid")
	if err := s.auth.RevokeSession(r.Context(), claims, sid); err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	s.tickets.revokeSession(sid)
	w.WriteHeader(http.StatusNoContent)
}

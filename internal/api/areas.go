package api

import (
	"net/http"
	"path"
	"strings"
)

// areaResponse is served for a protected area when no static directory
// is configured.
type areaResponse struct {
	Area   string `json:"area"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// areaHandler serves a browser area that has already passed the gate.
// With api.static_dir set the area's files come from disk, otherwise a
// small JSON description of the caller is returned.
func (s *Server) areaHandler(area string) http.Handler {
	if s.cfg.StaticDir != "" {
		return staticAreaHandler(http.Dir(s.cfg.StaticDir), area)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok {
			writeUnauthorized(w, "unauthorised")
			return
		}
		writeJSON(w, http.StatusOK, areaResponse{
			Area:   area,
			UserID: claims.Subject,
			Role:   string(claims.Role),
		})
	})
}

// staticAreaHandler serves files under /<area>/ from fileSystem with SPA
// fallback: directories and unknown paths get /<area>/index.html so
// client-side routing works. Paths outside /<area> are not served.
func staticAreaHandler(fileSystem http.FileSystem, area string) http.Handler {
	fileServer := http.FileServer(fileSystem)
	root := "/" + area
	index := root + "/index.html"

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Gated content must not be stored by shared caches.
		w.Header().Set("Cache-Control", "private, no-cache, must-revalidate")

		name := path.Clean("/" + r.URL.Path)
		if name != root && !strings.HasPrefix(name, root+"/") {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "not found")
			return
		}

		if f, err := fileSystem.Open(name); err == nil {
			info, statErr := f.Stat()
			f.Close()
			if statErr == nil && !info.IsDir() {
				fileServer.ServeHTTP(w, r)
				return
			}
		}

		f, err := fileSystem.Open(index)
		if err != nil {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "not found")
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			writeInternalError(w, "internal server error")
			return
		}
		http.ServeContent(w, r, "index.html", info.ModTime(), f)
	})
}

package httpserver

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/CyNexa/InSOC/internal/auditlog"
	"github.com/CyNexa/InSOC/internal/services/feed"
	"github.com/CyNexa/InSOC/internal/soc"
)

// authed gates a handler behind a shared bearer token. An empty configured
// token disables the check for that surface.
func (s *Server) authed(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			writeError(w, soc.ErrAuth)
			return
		}
		next(w, r)
	}
}

// writeError maps the service error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, soc.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, soc.ErrAuth):
		status = http.StatusUnauthorized
	case errors.Is(err, soc.ErrStoreUnavailable), errors.Is(err, auditlog.ErrUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, soc.ErrExecutor):
		status = http.StatusBadGateway
	case errors.Is(err, feed.ErrReplay):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

package middleware

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/recruiter-reports/internal"
	"github.com/frahmantamala/recruiter-reports/internal/auth"
)

// RequireAdmin lets through only requests whose token carries the admin
// claim. It must run after Authenticate.
func RequireAdmin(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				writeAppError(w, log, internal.ErrInvalidToken)
				return
			}
			if !claims.Admin {
				log.Warn("access denied: admin claim missing",
					"subject", claims.Subject,
					"method", r.Method,
					"path", r.URL.Path)
				writeAppError(w, log, internal.ErrNotAdmin)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Deny refuses every request. It stands in for Authenticate when no signing
// secret is configured.
func Deny(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Warn("request refused: token verification not configured", "method", r.Method, "path", r.URL.Path)
			writeAppError(w, log, internal.ErrInvalidToken)
		})
	}
}

package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/recruiter-reports/internal"
	"github.com/frahmantamala/recruiter-reports/internal/auth"
	"github.com/frahmantamala/recruiter-reports/pkg/logger"
)

// TokenVerifier checks a bearer token.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Authenticate requires a valid bearer token and stores its claims in the
// request context.
func Authenticate(verifier TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeAppError(w, log, internal.ErrInvalidToken)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				appErr := internal.ErrInvalidToken
				if errors.Is(err, auth.ErrTokenExpired) {
					appErr = appErr.WithDetails(map[string]string{"reason": "expired"})
				}
				log.Warn("rejected bearer token", "path", r.URL.Path, "error", err)
				writeAppError(w, log, appErr)
				return
			}

			ctx := auth.WithClaims(r.Context(), claims)
			ctx = internal.ContextWithSubject(ctx, claims.Subject)
			ctx = logger.With(ctx, "subject", claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func writeAppError(w http.ResponseWriter, log *slog.Logger, appErr *internal.AppError) {
	status, body := appErr.ToHTTPResponse()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("failed to encode error response", "error", err)
	}
}

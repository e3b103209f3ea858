package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"blogmate/internal/domain"
)

// ProfileLookup resolves the profile that carries a principal's admin flag.
type ProfileLookup interface {
	GetByPrincipal(ctx context.Context, principalID string) (*domain.Profile, error)
}

// Authenticator validates the bearer token, loads the caller's admin flag
// from its profile and stores a domain.ContextPrincipal in the request
// context. A principal without a profile is authenticated as a non-admin.
func Authenticator(validator JWTValidator, profiles ProfileLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "unauthorized: bearer token required")
				return
			}
			claims, err := validator.Validate(r.Context(), token)
			if err != nil || claims.Subject == "" {
				logger.DebugContext(r.Context(), "rejected bearer token", "error", err)
				writeError(w, r, http.StatusUnauthorized, "unauthorized: invalid bearer token")
				return
			}

			principal := domain.ContextPrincipal{ID: claims.Subject, Email: claims.Email}
			prof, err := profiles.GetByPrincipal(r.Context(), claims.Subject)
			var notFound *domain.NotFoundError
			switch {
			case errors.As(err, &notFound):
			case err != nil:
				logger.ErrorContext(r.Context(), "profile lookup failed", "principal_id", claims.Subject, "error", err)
				writeError(w, r, http.StatusInternalServerError, "internal error")
				return
			default:
				principal.IsAdmin = prof.IsAdmin
			}

			next.ServeHTTP(w, r.WithContext(domain.WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAdmin rejects callers whose profile is not marked admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := domain.PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "unauthorized: bearer token required")
			return
		}
		if !p.IsAdmin {
			writeError(w, r, http.StatusForbidden, "admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

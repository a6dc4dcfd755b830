package middleware

import (
	"net/http"
	"strings"

	"github.com/printly/printly-backend/api/responses"
	pkgerrors "github.com/printly/printly-backend/pkg/errors"
	"github.com/printly/printly-backend/pkg/logger"
)

// TokenValidator checks a capability token; the admin auth service satisfies
// it.
type TokenValidator interface {
	Validate(token string) error
}

// AdminGuard rejects requests that do not carry a valid admin capability
// token in the Authorization header.
func AdminGuard(validator TokenValidator, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := bearerToken(r)
			if token == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "capability token required").
					WithSuggestion("log in at /api/admin/v1/auth/login"))
				return
			}
			if err := validator.Validate(token); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/drydock-dev/drydock/internal/api/response"
	"github.com/drydock-dev/drydock/internal/auth"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UsernameKey contextKey = "username"
)

// OperatorAuth guards the operator API with bearer JWTs. The authenticated
// identity lands in the request context for handlers and audit entries.
func OperatorAuth(jwtMgr *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				response.Error(w, http.StatusUnauthorized, response.KindUnauthorized, "missing authorization header")
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			if token == header {
				response.Error(w, http.StatusUnauthorized, response.KindUnauthorized, "invalid authorization format")
				return
			}

			claims, err := jwtMgr.Validate(token)
			if err != nil {
				response.Error(w, http.StatusUnauthorized, response.KindUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UsernameKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UsernameFromContext returns the authenticated operator name, or "" on
// unauthenticated routes.
func UsernameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(UsernameKey).(string); ok {
		return v
	}
	return ""
}

package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/drydock-dev/drydock/internal/domain"
)

// AuditContext stamps the request's identity onto the context so audit
// entries written by the service layer carry the operator, request id and
// source address without every handler threading them through.
func AuditContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			meta := domain.AuditMetadata{
				RequestID: chimiddleware.GetReqID(ctx),
				IPAddress: r.RemoteAddr,
			}
			if uid, ok := ctx.Value(UserIDKey).(string); ok {
				meta.UserID = uid
			}
			if name, ok := ctx.Value(UsernameKey).(string); ok {
				meta.Username = name
			}

			next.ServeHTTP(w, r.WithContext(domain.WithAuditMetadata(ctx, meta)))
		})
	}
}

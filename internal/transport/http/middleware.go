package http

import (
	"context"
	"net/http"

	"kwikly/internal/domain"
	"kwikly/internal/security"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const (
	userIDCtxKey   contextKey = "userID"
	userRoleCtxKey contextKey = "userRole"
)

// authenticator rejects requests without a verified token and stores the
// caller's ID and role on the context.
func authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			respondMessage(w, http.StatusUnauthorized, "authorization token required")
			return
		}
		userID, err := security.UserIDFromClaims(claims)
		if err != nil {
			respondMessage(w, http.StatusUnauthorized, "invalid token claims: "+err.Error())
			return
		}
		role, err := security.RoleFromClaims(claims)
		if err != nil {
			respondMessage(w, http.StatusUnauthorized, "invalid token claims: "+err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), userIDCtxKey, userID)
		ctx = context.WithValue(ctx, userRoleCtxKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if roleFromContext(r.Context()) != domain.RoleAdmin {
			respondMessage(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDCtxKey).(string)
	return id
}

func roleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(userRoleCtxKey).(string)
	return role
}

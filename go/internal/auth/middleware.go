package auth

import (
	"context"
	"net/http"

	"github.com/mcdev12/tempo/go/internal/models"
)

// Cookie names shared with the browser client.
const (
	SessionIDCookie    = "sessionId"
	SessionTokenCookie = "sessionToken"
)

type contextKey string

const (
	userContextKey      contextKey = "user"
	sessionIDContextKey contextKey = "session_id"
)

// Middleware resolves the sessionId cookie and stores the user in the request context.
// Requests without a valid session, or whose lookup failed, continue anonymously.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		cookie, err := req.Cookie(SessionIDCookie)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, req)
			return
		}

		user, err := r.ResolveSessionID(req.Context(), cookie.Value)
		if err != nil || user == nil {
			next.ServeHTTP(w, req)
			return
		}

		ctx := context.WithValue(req.Context(), userContextKey, user)
		ctx = context.WithValue(ctx, sessionIDContextKey, cookie.Value)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// UserFromContext returns the user resolved by Middleware, if any.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok && user != nil
}

// SessionIDFromContext returns the session id the user was resolved from.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDContextKey).(string)
	return id
}

package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// UserHeader carries the authenticated user identity, injected by the
// gateway in front of this service. Authentication itself happens
// upstream; this middleware only validates and propagates the identity.
const UserHeader = "X-User-ID"

type contextKey string

const userKey contextKey = "user"

// UserContext returns middleware that extracts the user identity header
// into the request context, rejecting requests without a valid UUID.
func UserContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(r.Header.Get(UserHeader))
			if err != nil || id == uuid.Nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "missing or invalid user identity",
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), id)))
		})
	}
}

// WithUser returns a context carrying the given user identity.
func WithUser(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userKey, id)
}

// User extracts the user identity from the context.
func User(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userKey).(uuid.UUID)
	return id, ok
}

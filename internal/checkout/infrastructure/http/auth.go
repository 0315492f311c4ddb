package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kryslink/mediconnect-orders/pkg/idempotency"
)

type ctxKey int

const userIDKey ctxKey = iota

// SessionResolver maps a bearer token to a user id.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// Auth rejects requests without a resolvable session before any handler
// runs. The resolved identity is the only source of the acting user; it
// is never read from request bodies.
type Auth struct {
	log      *slog.Logger
	sessions SessionResolver
}

func NewAuth(log *slog.Logger, sessions SessionResolver) *Auth {
	return &Auth{log: log, sessions: sessions}
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		userID, err := a.sessions.Resolve(r.Context(), token)
		if err != nil {
			if !errors.Is(err, idempotency.ErrSessionNotFound) {
				a.log.Error("session lookup failed", "err", err)
			}
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

// UserID returns the authenticated user for the request, or "" when the
// context carries none.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

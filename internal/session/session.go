package session

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

const CookieName = "SID"

type contextKey struct{}

// Middleware resolves the caller's session id from the SID cookie, minting
// a fresh one when absent. The broker itself keeps no session state beyond
// the records keyed by this id.
func Middleware(secureCookies bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sid string

			cookie, err := r.Cookie(CookieName)
			if err == nil && cookie.Value != "" {
				sid = cookie.Value
			} else {
				sid = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    sid,
					Path:     "/",
					HttpOnly: true,
					Secure:   secureCookies,
					SameSite: http.SameSiteLaxMode,
				})
				logger.Debug("New session minted", "session_id", sid)
			}

			ctx := context.WithValue(r.Context(), contextKey{}, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the session id placed by Middleware, or "" when the
// request did not pass through it.
func FromContext(ctx context.Context) string {
	sid, _ := ctx.Value(contextKey{}).(string)
	return sid
}

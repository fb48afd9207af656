// ABOUTME: Session identity middleware for the editor.
// ABOUTME: Issues a session cookie on first visit and puts the session ID in the request context.

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const sessionContextKey contextKey = "session"

const (
	// CookieName holds the editor session ID.
	CookieName = "dic_session"
	// HeaderName lets non-browser clients pick a session explicitly.
	HeaderName = "X-Dic-Session"
)

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := extractSession(r)
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := WithSession(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithSession returns ctx carrying the session ID.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionContextKey, id)
}

// SessionFromContext returns the session ID, or "" outside the middleware.
func SessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionContextKey).(string)
	return id
}

// extractSession reads a well-formed session ID from the header or cookie.
func extractSession(r *http.Request) string {
	if id := normalize(r.Header.Get(HeaderName)); id != "" {
		return id
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return normalize(c.Value)
	}
	return ""
}

func normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return ""
	}
	return id.String()
}

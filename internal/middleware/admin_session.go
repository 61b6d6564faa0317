package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hospitalhub/accessgate/internal/audit"
	apperrors "github.com/hospitalhub/accessgate/internal/errors"
	"github.com/hospitalhub/accessgate/internal/httputil"
)

const AdminSessionCookie = "admin_session"

// Authenticator resolves a session token to an admin username.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, bool)
}

type AdminSessionMiddleware struct {
	auth       Authenticator
	configured bool
}

// NewAdminSessionMiddleware creates the admin gate. When configured is false
// every admin route answers 503.
func NewAdminSessionMiddleware(auth Authenticator, configured bool) *AdminSessionMiddleware {
	return &AdminSessionMiddleware{auth: auth, configured: configured}
}

func (m *AdminSessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.configured {
			httputil.WriteErrorWithStatus(w, http.StatusServiceUnavailable,
				apperrors.Internal("Admin not configured"))
			return
		}

		token := SessionToken(r)
		if token == "" {
			httputil.WriteError(w, apperrors.Unauthorized("Administrator authentication required"))
			return
		}

		username, ok := m.auth.Authenticate(r.Context(), token)
		if !ok {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventAuthFailure})
			httputil.WriteError(w, apperrors.InvalidToken("Invalid or expired session"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), username)))
	})
}

// SessionToken reads the admin token from the Authorization header, falling
// back to the session cookie.
func SessionToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if cookie, err := r.Cookie(AdminSessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func SetSessionCookie(w http.ResponseWriter, token string, maxAge time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AdminSessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AdminSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

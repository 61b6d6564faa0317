package middleware

import (
	"net/http"
)

// apiHeaders apply to every JSON route. Nothing served here is meant to be
// rendered, framed or cached.
var apiHeaders = map[string]string{
	"X-Content-Type-Options":  "nosniff",
	"X-Frame-Options":         "DENY",
	"Referrer-Policy":         "no-referrer",
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	"Cache-Control":           "no-store",
}

const hstsValue = "max-age=31536000; includeSubDomains"

type SecurityHeadersMiddleware struct {
	hsts bool
}

// NewSecurityHeadersMiddleware adds HSTS only in production, where the
// server sits behind TLS.
func NewSecurityHeadersMiddleware(isProduction bool) *SecurityHeadersMiddleware {
	return &SecurityHeadersMiddleware{hsts: isProduction}
}

func (m *SecurityHeadersMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for k, v := range apiHeaders {
			h.Set(k, v)
		}
		if m.hsts {
			h.Set("Strict-Transport-Security", hstsValue)
		}
		next.ServeHTTP(w, r)
	})
}

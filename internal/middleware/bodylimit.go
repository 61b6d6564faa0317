package middleware

import (
	"net/http"

	apperrors "github.com/hospitalhub/accessgate/internal/errors"
	"github.com/hospitalhub/accessgate/internal/httputil"
)

// DefaultMaxBodySize fits a login or a code note several times over.
const DefaultMaxBodySize = 64 << 10

type BodyLimitMiddleware struct {
	maxSize int64
}

func NewBodyLimitMiddleware(maxSize int64) *BodyLimitMiddleware {
	if maxSize <= 0 {
		maxSize = DefaultMaxBodySize
	}
	return &BodyLimitMiddleware{maxSize: maxSize}
}

// Handler rejects oversized bodies up front when Content-Length says so and
// caps streamed bodies otherwise, so decodeJSON sees a read error.
func (m *BodyLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > m.maxSize {
			httputil.WriteErrorWithStatus(w, http.StatusRequestEntityTooLarge,
				apperrors.ValidationError("Request body too large"))
			return
		}
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, m.maxSize)
		}
		next.ServeHTTP(w, r)
	})
}

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/hospitalhub/accessgate/internal/audit"
	apperrors "github.com/hospitalhub/accessgate/internal/errors"
	"github.com/hospitalhub/accessgate/internal/httputil"
)

// Limiter is satisfied by the Redis and in-memory rate limiters.
type Limiter interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Time)
}

type IPRateLimitMiddleware struct {
	limiter Limiter
	limit   int
	window  time.Duration
	prefix  string
}

func NewIPRateLimitMiddleware(limiter Limiter, limit int, window time.Duration, prefix string) *IPRateLimitMiddleware {
	return &IPRateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		window:  window,
		prefix:  prefix,
	}
}

func (m *IPRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := audit.ClientIP(r)

		key := fmt.Sprintf("ip:%s:%s", m.prefix, ip)
		allowed, resetAt := m.limiter.CheckLimit(r.Context(), key, m.limit, m.window)

		if !allowed {
			secondsLeft := int(time.Until(resetAt).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(secondsLeft))
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventRateLimitExceed,
				Details: map[string]interface{}{"bucket": m.prefix},
			})
			httputil.WriteError(w, apperrors.RateLimitExceeded())
			return
		}

		next.ServeHTTP(w, r)
	})
}

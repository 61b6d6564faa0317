package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// RequestLogger attaches the global logger, tagged with the chi request id, to
// every request context and writes one access line per request.
func RequestLogger(next http.Handler) http.Handler {
	return NewRequestLogger(log.Logger)(next)
}

// NewRequestLogger is RequestLogger with an explicit base logger.
func NewRequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			event := hlog.FromRequest(r).Info()
			if status >= http.StatusInternalServerError {
				event = hlog.FromRequest(r).Error()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("request")
		})

		withRequestID := func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if id := chimiddleware.GetReqID(r.Context()); id != "" {
					l := zerolog.Ctx(r.Context()).With().Str("req_id", id).Logger()
					r = r.WithContext(l.WithContext(r.Context()))
				}
				next.ServeHTTP(w, r)
			})
		}

		return hlog.NewHandler(logger)(withRequestID(access(next)))
	}
}

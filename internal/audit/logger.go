package audit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventLoginSuccess        EventType = "login_success"
	EventLoginFailure        EventType = "login_failure"
	EventLogout              EventType = "logout"
	EventAuthFailure         EventType = "auth_failure"
	EventRateLimitExceed     EventType = "rate_limit_exceeded"
	EventCodeGenerate        EventType = "code_generate"
	EventCodeValidate        EventType = "code_validate"
	EventCodeValidateFailure EventType = "code_validate_failure"
	EventCodeExpired         EventType = "code_expired"
	EventCodeDeactivate      EventType = "code_deactivate"
	EventCodeDelete          EventType = "code_delete"
)

type Event struct {
	Type      EventType
	Admin     string
	CodeID    string
	IP        string
	UserAgent string
	Details   map[string]interface{}
}

func Log(ctx context.Context, event Event) {
	logger := log.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &log.Logger
	}

	child := logger.With().
		Str("audit", "security").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.Admin != "" {
		child = child.With().Str("admin", event.Admin).Logger()
	}
	if event.CodeID != "" {
		child = child.With().Str("code_id", event.CodeID).Logger()
	}
	if event.IP != "" {
		child = child.With().Str("ip", event.IP).Logger()
	}
	if event.UserAgent != "" {
		child = child.With().Str("user_agent", event.UserAgent).Logger()
	}

	logEvent := child.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("security audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = ClientIP(r)
	event.UserAgent = r.UserAgent()
	Log(r.Context(), event)
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// remote address without its port.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

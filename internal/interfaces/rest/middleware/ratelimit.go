package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ALI7-sys/CopIt/internal/application"
	"github.com/ALI7-sys/CopIt/internal/interfaces/rest"
)

// RequestCounter counts requests per key within a fixed window.
type RequestCounter interface {
	Incr(ctx context.Context, key string, period time.Duration) (int64, error)
}

// Limit is a declarative per-route rate limit.
type Limit struct {
	Name     string
	Requests int
	Period   time.Duration
}

func (l Limit) periodLabel() string {
	switch l.Period {
	case time.Minute:
		return "minute"
	case time.Hour:
		return "hour"
	default:
		return l.Period.String()
	}
}

// RateLimit enforces a fixed-window limit keyed by caller and route name.
// When the counter backend is down the request passes; availability beats
// strict limiting here.
func RateLimit(counter RequestCounter, limit Limit, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := Caller(r.Context()) + ":" + limit.Name

			count, err := counter.Incr(r.Context(), key, limit.Period)
			if err != nil {
				logger.Warn("rate limit counter unavailable", "route", limit.Name, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(limit.Requests) {
				rest.WriteError(w, application.NewRateLimitError(limit.Requests, limit.periodLabel()), logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

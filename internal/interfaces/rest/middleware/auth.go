package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/ALI7-sys/CopIt/internal/application"
	"github.com/ALI7-sys/CopIt/internal/interfaces/rest"
)

type contextKey string

// CallerKey holds the authenticated caller identity used for rate limit
// keying.
const CallerKey contextKey = "caller"

// Auth checks the Bearer token in constant time. The optional X-User-ID
// header scopes rate limits per caller; without it the client IP is the
// identity.
func Auth(apiToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(apiToken)) != 1 {
				rest.WriteError(w, application.NewAuthError(), logger)
				return
			}

			caller := r.Header.Get("X-User-ID")
			if caller == "" {
				caller = clientIP(r)
			}

			ctx := context.WithValue(r.Context(), CallerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Caller returns the authenticated caller identity from the context.
func Caller(ctx context.Context) string {
	if caller, ok := ctx.Value(CallerKey).(string); ok {
		return caller
	}
	return "anonymous"
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

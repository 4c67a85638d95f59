package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/devconnect/realtime-service/internal/auth"
	"github.com/devconnect/realtime-service/internal/domain/model"
)

type ctxKey int

const principalKey ctxKey = iota

// PrincipalFrom returns the authenticated principal placed by the auth
// middleware.
func PrincipalFrom(ctx context.Context) (*model.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*model.Principal)
	return p, ok
}

// NewAuthMiddleware validates the bearer credential and resolves it to a
// fresh principal on every request, so bans and role changes apply without
// token reissue.
func NewAuthMiddleware(logger *slog.Logger, resolver *auth.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if credential == "" {
				http.Error(w, "missing token", http.StatusUnauthorized)
				return
			}

			principal, err := resolver.Resolve(r.Context(), credential)
			if err != nil {
				logger.Warn("http auth rejected", "error", err, "remote", r.RemoteAddr)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRequestLogger logs each request with latency after it completes.
func NewRequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("uri", r.RequestURI),
				slog.String("remote", r.RemoteAddr),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

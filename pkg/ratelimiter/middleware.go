package ratelimiter

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/starter/pkg/clientip"
	"github.com/dmitrymomot/starter/pkg/logger"
)

// KeyFunc extracts the part of a rate limit key contributed by the request.
type KeyFunc func(r *http.Request) string

// ClientIP keys by the request's RemoteAddr. Forwarding headers are not
// consulted; behind proxies mount a clientip.Resolver middleware first.
func ClientIP(r *http.Request) string {
	return clientip.GetIP(r)
}

// Route keys by method and path, so each form has its own bucket.
func Route(r *http.Request) string {
	return r.Method + " " + r.URL.Path
}

// Composite joins the non-empty parts of several key funcs.
func Composite(fns ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(fns))
		for _, fn := range fns {
			if p := fn(r); p != "" {
				parts = append(parts, p)
			}
		}
		return strings.Join(parts, "|")
	}
}

type middlewareConfig struct {
	reject http.Handler
	log    *slog.Logger
	now    func() time.Time
}

type MiddlewareOption func(*middlewareConfig)

// WithRejectHandler serves denied requests. Retry-After is already set.
func WithRejectHandler(h http.Handler) MiddlewareOption {
	return func(c *middlewareConfig) {
		if h != nil {
			c.reject = h
		}
	}
}

func WithLogger(l *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// Middleware throttles requests per key. A failing store lets the request
// through and logs the error.
func Middleware(limiter Limiter, key KeyFunc, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{
		reject: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
		log: logger.Discard(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			res, err := limiter.Allow(r.Context(), k)
			if err != nil {
				cfg.log.ErrorContext(r.Context(), "rate limiter unavailable",
					logger.Component("ratelimiter"), logger.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed() {
				cfg.log.WarnContext(r.Context(), "rate limit exceeded",
					logger.Component("ratelimiter"), slog.String("key", k))
				secs := int(res.RetryAfter(cfg.now()).Round(time.Second).Seconds())
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				cfg.reject.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

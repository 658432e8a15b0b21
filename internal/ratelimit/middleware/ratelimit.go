// Package middleware enforces per-client request rates on the HTTP routes.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"breachledger/internal/ratelimit/models"
	"breachledger/pkg/platform/circuit"
	"breachledger/pkg/platform/httputil"
	"breachledger/pkg/requestcontext"
)

// BucketStore counts requests in a sliding window.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

// Middleware applies per-class limits. When a fallback is configured, primary
// store failures trip a circuit breaker and requests are counted locally until
// the primary recovers.
type Middleware struct {
	primary  BucketStore
	fallback BucketStore
	breaker  *circuit.Breaker
	limits   map[models.EndpointClass]models.Limit
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithFallback counts requests in fallback while the breaker is open.
func WithFallback(fallback BucketStore, breaker *circuit.Breaker) Option {
	return func(m *Middleware) {
		m.fallback = fallback
		m.breaker = breaker
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Middleware) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithLimit overrides the allowance for one class.
func WithLimit(class models.EndpointClass, limit models.Limit) Option {
	return func(m *Middleware) {
		m.limits[class] = limit
	}
}

// WithDisabled turns every limiter into a passthrough.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(primary BucketStore, opts ...Option) *Middleware {
	m := &Middleware{
		primary: primary,
		logger:  slog.Default(),
		limits: map[models.EndpointClass]models.Limit{
			models.ClassVerify:   {RequestsPerWindow: 60, Window: time.Minute},
			models.ClassRegistry: {RequestsPerWindow: 300, Window: time.Minute},
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.fallback != nil && m.breaker == nil {
		m.breaker = circuit.New("ratelimit")
	}
	return m
}

// RateLimit limits class per client IP. Requests without a resolved client
// address pass through.
func (m *Middleware) RateLimit(class models.EndpointClass) func(http.Handler) http.Handler {
	return m.limit(class, func(r *http.Request) string {
		ip := requestcontext.ClientIP(r.Context())
		if ip == "" {
			return ""
		}
		return models.NewIPRateLimitKey(class, ip)
	})
}

// RateLimitAuthenticated limits class per authenticated user and must run
// after the auth middleware.
func (m *Middleware) RateLimitAuthenticated(class models.EndpointClass) func(http.Handler) http.Handler {
	return m.limit(class, func(r *http.Request) string {
		userID := requestcontext.UserID(r.Context())
		if userID.IsNil() {
			return ""
		}
		return models.NewUserRateLimitKey(class, userID.String())
	})
}

func (m *Middleware) limit(class models.EndpointClass, keyFor func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}
			limit, ok := m.limits[class]
			key := keyFor(r)
			if !ok || key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			result, degraded, err := m.allow(ctx, key, limit)
			if err != nil {
				m.logger.WarnContext(ctx, "rate limit check failed, allowing request",
					"error", err,
					"class", class,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if degraded {
				w.Header().Set("X-RateLimit-Status", "degraded")
			}
			if !result.Allowed {
				m.logger.InfoContext(ctx, "rate limit exceeded",
					"class", class,
					"key", key,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeRateLimitExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allow consults the primary store unless the breaker routes to the fallback.
// degraded reports that the fallback answered.
func (m *Middleware) allow(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, bool, error) {
	if m.fallback == nil {
		res, err := m.primary.Allow(ctx, key, limit.RequestsPerWindow, limit.Window)
		return res, false, err
	}

	if m.breaker.Allow() {
		res, err := m.primary.Allow(ctx, key, limit.RequestsPerWindow, limit.Window)
		if err == nil {
			if _, change := m.breaker.RecordSuccess(); change.Closed {
				m.logger.InfoContext(ctx, "rate limit store recovered", "breaker", m.breaker.Name())
			}
			return res, false, nil
		}
		if _, change := m.breaker.RecordFailure(); change.Opened {
			m.logger.WarnContext(ctx, "rate limit store failing, switching to local windows",
				"breaker", m.breaker.Name(),
				"error", err,
			)
		}
		if !m.breaker.IsOpen() {
			return nil, false, err
		}
	}

	res, err := m.fallback.Allow(ctx, key, limit.RequestsPerWindow, limit.Window)
	return res, true, err
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"breachledger/internal/ratelimit/models"
	"breachledger/internal/ratelimit/store/bucket"
	id "breachledger/pkg/domain"
	"breachledger/pkg/platform/circuit"
	"breachledger/pkg/requestcontext"
)

// flakyStore delegates to an in-memory store until failing is set.
type flakyStore struct {
	mu      sync.Mutex
	inner   *bucket.InMemoryBucketStore
	failing bool
	calls   int
}

func (f *flakyStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	f.mu.Lock()
	f.calls++
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return nil, errors.New("connection refused")
	}
	return f.inner.Allow(ctx, key, limit, window)
}

func (f *flakyStore) setFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = v
}

type RateLimitSuite struct {
	suite.Suite
	primary *flakyStore
	logger  *slog.Logger
}

func TestRateLimitSuite(t *testing.T) {
	suite.Run(t, new(RateLimitSuite))
}

func (s *RateLimitSuite) SetupTest() {
	s.primary = &flakyStore{inner: bucket.New()}
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func fromIP(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/verify/abc", nil)
	return req.WithContext(requestcontext.WithClientIP(req.Context(), ip))
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func (s *RateLimitSuite) TestAllowsUnderLimitAndSetsHeaders() {
	m := New(s.primary, WithLogger(s.logger),
		WithLimit(models.ClassVerify, models.Limit{RequestsPerWindow: 2, Window: time.Minute}))
	h := m.RateLimit(models.ClassVerify)(okHandler())

	rr := serve(h, fromIP("192.0.2.1"))
	s.Equal(http.StatusOK, rr.Code)
	s.Equal("2", rr.Header().Get("X-RateLimit-Limit"))
	s.Equal("1", rr.Header().Get("X-RateLimit-Remaining"))
	s.NotEmpty(rr.Header().Get("X-RateLimit-Reset"))
	s.Empty(rr.Header().Get("X-RateLimit-Status"))
}

func (s *RateLimitSuite) TestRejectsOverLimit() {
	m := New(s.primary, WithLogger(s.logger),
		WithLimit(models.ClassVerify, models.Limit{RequestsPerWindow: 1, Window: time.Minute}))
	h := m.RateLimit(models.ClassVerify)(okHandler())

	s.Equal(http.StatusOK, serve(h, fromIP("192.0.2.1")).Code)
	rr := serve(h, fromIP("192.0.2.1"))
	s.Equal(http.StatusTooManyRequests, rr.Code)
	s.NotEmpty(rr.Header().Get("Retry-After"))

	var body models.RateLimitExceededResponse
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &body))
	s.Equal("rate_limit_exceeded", body.Error)
	s.Positive(body.RetryAfter)

	s.Equal(http.StatusOK, serve(h, fromIP("192.0.2.2")).Code, "other clients keep their own window")
}

func (s *RateLimitSuite) TestPassesThroughWithoutClientIP() {
	m := New(s.primary, WithLogger(s.logger))
	req := httptest.NewRequest(http.MethodGet, "/verify/abc", nil)

	rr := serve(m.RateLimit(models.ClassVerify)(okHandler()), req)
	s.Equal(http.StatusOK, rr.Code)
	s.Zero(s.primary.calls)
}

func (s *RateLimitSuite) TestAuthenticatedKeysByUser() {
	m := New(s.primary, WithLogger(s.logger),
		WithLimit(models.ClassRegistry, models.Limit{RequestsPerWindow: 1, Window: time.Minute}))
	h := m.RateLimitAuthenticated(models.ClassRegistry)(okHandler())

	asUser := func(u id.UserID) *http.Request {
		req := fromIP("192.0.2.1")
		return req.WithContext(requestcontext.WithUserID(req.Context(), u))
	}
	alice := id.UserID(uuid.New())
	bob := id.UserID(uuid.New())

	s.Equal(http.StatusOK, serve(h, asUser(alice)).Code)
	s.Equal(http.StatusTooManyRequests, serve(h, asUser(alice)).Code)
	s.Equal(http.StatusOK, serve(h, asUser(bob)).Code, "same address, different user")
}

func (s *RateLimitSuite) TestFailsOpenWithoutFallback() {
	s.primary.setFailing(true)
	m := New(s.primary, WithLogger(s.logger))

	rr := serve(m.RateLimit(models.ClassVerify)(okHandler()), fromIP("192.0.2.1"))
	s.Equal(http.StatusOK, rr.Code)
	s.Empty(rr.Header().Get("X-RateLimit-Limit"))
}

func (s *RateLimitSuite) TestFallbackWhileBreakerOpenThenRecovers() {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	breaker := circuit.New("ratelimit-test",
		circuit.WithFailureThreshold(1),
		circuit.WithSuccessThreshold(1),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	m := New(s.primary, WithLogger(s.logger),
		WithFallback(bucket.New(), breaker),
		WithLimit(models.ClassVerify, models.Limit{RequestsPerWindow: 1, Window: time.Minute}))
	h := m.RateLimit(models.ClassVerify)(okHandler())

	s.primary.setFailing(true)
	rr := serve(h, fromIP("192.0.2.1"))
	s.Equal(http.StatusOK, rr.Code)
	s.Equal("degraded", rr.Header().Get("X-RateLimit-Status"))
	s.True(breaker.IsOpen())

	rr = serve(h, fromIP("192.0.2.1"))
	s.Equal(http.StatusTooManyRequests, rr.Code, "fallback still enforces the limit")
	s.Equal(1, s.primary.calls, "open breaker skips the primary")

	s.primary.setFailing(false)
	now = now.Add(2 * time.Minute)
	rr = serve(h, fromIP("192.0.2.1"))
	s.Equal(http.StatusOK, rr.Code)
	s.Empty(rr.Header().Get("X-RateLimit-Status"))
	s.False(breaker.IsOpen())
}

func TestDisabledIsPassthrough(t *testing.T) {
	store := &flakyStore{inner: bucket.New()}
	m := New(store, WithDisabled(true))
	h := m.RateLimit(models.ClassVerify)(okHandler())

	for i := 0; i < 100; i++ {
		require.Equal(t, http.StatusOK, serve(h, fromIP("192.0.2.1")).Code)
	}
	assert.Zero(t, store.calls)
}

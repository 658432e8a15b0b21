package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"

	"breachledger/internal/incident/chain"
	"breachledger/internal/incident/handler"
	incidentmetrics "breachledger/internal/incident/metrics"
	"breachledger/internal/incident/service"
	"breachledger/internal/incident/store"
	"breachledger/internal/incident/token"
	"breachledger/internal/incident/verification"
	jwttoken "breachledger/internal/jwt_token"
	"breachledger/internal/platform/config"
	"breachledger/internal/platform/httpserver"
	"breachledger/internal/platform/kafka"
	httpmetrics "breachledger/internal/platform/metrics"
	platformotel "breachledger/internal/platform/otel"
	"breachledger/internal/platform/postgres"
	platformredis "breachledger/internal/platform/redis"
	ratelimit "breachledger/internal/ratelimit/middleware"
	ratelimitmodels "breachledger/internal/ratelimit/models"
	"breachledger/internal/ratelimit/store/bucket"
	id "breachledger/pkg/domain"
	"breachledger/pkg/platform/audit"
	"breachledger/pkg/platform/audit/publisher"
	auditmemory "breachledger/pkg/platform/audit/store/memory"
	auditpostgres "breachledger/pkg/platform/audit/store/postgres"
	"breachledger/pkg/platform/audit/worker"
	"breachledger/pkg/platform/circuit"
	authmw "breachledger/pkg/platform/middleware/auth"
	"breachledger/pkg/platform/middleware/metadata"
	request "breachledger/pkg/platform/middleware/request"
	"breachledger/pkg/platform/middleware/requesttime"
)

// incidentStore is what both store implementations offer the wiring.
type incidentStore interface {
	chain.TxRunner
	service.Reader
	verification.Lookup
}

// organizationStore names tenants on verification proofs.
type organizationStore interface {
	verification.OrganizationDirectory
	Upsert(ctx context.Context, orgID id.OrganizationID, name string) error
}

// outboxStore is an audit store the relay can drain.
type outboxStore interface {
	audit.Store
	worker.Outbox
}

// app is the fully wired registry.
type app struct {
	router  http.Handler
	relay   *worker.Worker
	closers []func() error

	// background loops run until the serve context ends.
	background []func(ctx context.Context) error
}

func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// newApp connects the configured backends and builds the HTTP router. With no
// database URL the registry runs on the in-memory store.
func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger, reg *prometheus.Registry) (*app, error) {
	a := &app{}
	var checks []httpserver.Check

	var (
		incidents incidentStore
		orgs      organizationStore
		events    outboxStore
	)
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if cfg.Database.Migrate {
			if err := postgres.Migrate(ctx, db, log); err != nil {
				_ = a.Close()
				return nil, err
			}
		}
		incidents = store.NewPostgres(db, cfg.Database.TxTimeout)
		orgs = store.NewPostgresOrganizations(db)
		events = auditpostgres.New(db)
		checks = append(checks, httpserver.Check{Name: "postgres", Probe: pingDB(db)})
	} else {
		log.WarnContext(ctx, "no database configured, using in-memory incident store")
		incidents = store.NewInMemoryStore()
		orgs = store.NewInMemoryOrganizations()
		events = auditmemory.NewInMemoryStore()
	}

	for _, seed := range cfg.Organizations {
		orgID, err := id.ParseOrganizationID(seed.ID)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("organization seed %q: %w", seed.ID, err)
		}
		if err := orgs.Upsert(ctx, orgID, seed.Name); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("seed organization %s: %w", seed.ID, err)
		}
	}

	tokens, err := token.NewGenerator([]byte(cfg.Verification.TokenSecret))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	m := incidentmetrics.NewWithRegistry(reg)

	verifyOpts := []verification.Option{
		verification.WithLogger(log),
		verification.WithMetrics(m),
		verification.WithEventStore(events),
	}
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if redisClient != nil {
		a.closers = append(a.closers, redisClient.Close)
		cache := verification.NewRedisProofCache(redisClient.Client, cfg.Verification.CacheTTL)
		verifyOpts = append(verifyOpts, verification.WithCache(cache, circuit.New("proof-cache")))
		checks = append(checks, httpserver.Check{Name: "redis", Probe: redisClient.Health})
	}
	verifier := verification.New(incidents, orgs, tokens, verifyOpts...)

	limiter, local := newRateLimiter(cfg.RateLimit, redisClient, log)
	a.background = append(a.background, func(ctx context.Context) error {
		return local.RunSweeper(ctx, time.Minute)
	})

	manager := chain.New(incidents, tokens,
		chain.WithLogger(log),
		chain.WithMetrics(m),
		chain.WithEventStore(events),
	)
	registry := service.New(manager, incidents,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithTracer(otel.Tracer("breachledger/incident")),
		service.WithProofPurger(verifier),
	)

	producer, err := kafka.New(cfg.Kafka)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if producer != nil {
		a.closers = append(a.closers, closeKafka(producer))
		if err := kafka.EnsureTopic(ctx, producer, cfg.Kafka); err != nil {
			log.WarnContext(ctx, "kafka topic bootstrap failed, relying on broker auto-creation", "error", err)
		}
		a.relay = worker.NewWorker(events, publisher.NewKafkaPublisher(producer, cfg.Kafka.Topic),
			worker.WithLogger(log),
			worker.WithInterval(cfg.Kafka.RelayInterval),
			worker.WithBatchSize(cfg.Kafka.RelayBatch),
			worker.WithRetention(cfg.Kafka.OutboxRetention, time.Hour),
		)
	}

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	authenticate := authmw.RequireAuth(jwttoken.NewMiddlewareValidator(jwtService), log)
	perUser := limiter.RateLimitAuthenticated(ratelimitmodels.ClassRegistry)
	requireAuth := func(next http.Handler) http.Handler {
		return authenticate(perUser(next))
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(platformotel.Middleware)
	r.Use(httpmetrics.NewWithRegistry(reg).Middleware)
	r.Use(request.Logger(log))
	r.Use(request.Recovery(log))
	r.Use(request.Timeout(cfg.Server.RequestTimeout))
	r.Use(request.ContentTypeJSON)

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/healthz", httpserver.Health(2*time.Second, checks...))
	handler.New(registry, verifier, log).Register(r, requireAuth, limiter.RateLimit(ratelimitmodels.ClassVerify))

	a.router = r
	return a, nil
}

// newRateLimiter shares windows through Redis when it is configured, counting
// locally while Redis is unreachable. The local store is returned for sweeping.
func newRateLimiter(cfg config.RateLimitConfig, redisClient *platformredis.Client, log *slog.Logger) (*ratelimit.Middleware, *bucket.InMemoryBucketStore) {
	opts := []ratelimit.Option{
		ratelimit.WithLogger(log),
		ratelimit.WithDisabled(cfg.Disabled),
		ratelimit.WithLimit(ratelimitmodels.ClassVerify, ratelimitmodels.Limit{RequestsPerWindow: cfg.VerifyRequests, Window: cfg.Window}),
		ratelimit.WithLimit(ratelimitmodels.ClassRegistry, ratelimitmodels.Limit{RequestsPerWindow: cfg.RegistryRequests, Window: cfg.Window}),
	}
	local := bucket.New()
	if redisClient == nil {
		return ratelimit.New(local, opts...), local
	}
	opts = append(opts, ratelimit.WithFallback(local, circuit.New("ratelimit")))
	return ratelimit.New(bucket.NewRedis(redisClient.Client), opts...), local
}

func pingDB(db *sql.DB) func(ctx context.Context) error {
	return db.PingContext
}

func closeKafka(client *kgo.Client) func() error {
	return func() error {
		client.Close()
		return nil
	}
}

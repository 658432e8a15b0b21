package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the full service configuration. Values come from an optional YAML
// file, overridden by environment variables, falling back to env-default tags.
type Config struct {
	Env          string             `yaml:"env" env:"BREACHLEDGER_ENV" env-default:"development"`
	Server       ServerConfig       `yaml:"server"`
	Auth         AuthConfig         `yaml:"auth"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Verification VerificationConfig `yaml:"verification"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Log          LogConfig          `yaml:"log"`

	// Organizations seeds the names shown on verification proofs.
	Organizations []OrganizationSeed `yaml:"organizations"`
}

// OrganizationSeed names one tenant. Membership itself is managed elsewhere.
type OrganizationSeed struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"BREACHLEDGER_ADDR" env-default:":8080"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"BREACHLEDGER_REQUEST_TIMEOUT" env-default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"BREACHLEDGER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// AuthConfig holds the bearer token settings.
type AuthConfig struct {
	JWTSigningKey string `yaml:"jwt_signing_key" env:"BREACHLEDGER_JWT_SIGNING_KEY" env-default:"dev-secret-key-change-in-production"`
	JWTIssuer     string `yaml:"jwt_issuer" env:"BREACHLEDGER_JWT_ISSUER"`
	JWTAudience   string `yaml:"jwt_audience" env:"BREACHLEDGER_JWT_AUDIENCE"`
}

// DatabaseConfig selects the incident store. An empty URL runs the in-memory store.
type DatabaseConfig struct {
	URL             string        `yaml:"url" env:"BREACHLEDGER_DATABASE_URL"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"BREACHLEDGER_DB_MAX_OPEN_CONNS" env-default:"20"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"BREACHLEDGER_DB_MAX_IDLE_CONNS" env-default:"10"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"BREACHLEDGER_DB_CONN_MAX_LIFETIME" env-default:"30m"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env:"BREACHLEDGER_DB_CONN_MAX_IDLE_TIME" env-default:"5m"`
	TxTimeout       time.Duration `yaml:"tx_timeout" env:"BREACHLEDGER_DB_TX_TIMEOUT" env-default:"5s"`
	Migrate         bool          `yaml:"migrate" env:"BREACHLEDGER_DB_MIGRATE" env-default:"true"`
}

// RedisConfig enables the verification proof cache. An empty URL disables it.
type RedisConfig struct {
	URL          string        `yaml:"url" env:"BREACHLEDGER_REDIS_URL"`
	PoolSize     int           `yaml:"pool_size" env:"BREACHLEDGER_REDIS_POOL_SIZE" env-default:"10"`
	MinIdleConns int           `yaml:"min_idle_conns" env:"BREACHLEDGER_REDIS_MIN_IDLE_CONNS" env-default:"2"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"BREACHLEDGER_REDIS_DIAL_TIMEOUT" env-default:"2s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"BREACHLEDGER_REDIS_READ_TIMEOUT" env-default:"500ms"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"BREACHLEDGER_REDIS_WRITE_TIMEOUT" env-default:"500ms"`
}

// KafkaConfig enables the outbox relay. No brokers disables it.
type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers" env:"BREACHLEDGER_KAFKA_BROKERS" env-separator:","`
	Topic         string        `yaml:"topic" env:"BREACHLEDGER_KAFKA_TOPIC" env-default:"incident-events"`
	Partitions    int32         `yaml:"partitions" env:"BREACHLEDGER_KAFKA_PARTITIONS" env-default:"3"`
	Replication   int16         `yaml:"replication" env:"BREACHLEDGER_KAFKA_REPLICATION" env-default:"1"`
	RelayInterval time.Duration `yaml:"relay_interval" env:"BREACHLEDGER_KAFKA_RELAY_INTERVAL" env-default:"1s"`
	RelayBatch    int           `yaml:"relay_batch" env:"BREACHLEDGER_KAFKA_RELAY_BATCH" env-default:"100"`

	// OutboxRetention keeps delivered outbox rows this long before pruning. Zero keeps them forever.
	OutboxRetention time.Duration `yaml:"outbox_retention" env:"BREACHLEDGER_OUTBOX_RETENTION" env-default:"168h"`
}

// VerificationConfig holds the token secret and the proof cache policy.
type VerificationConfig struct {
	TokenSecret string        `yaml:"token_secret" env:"BREACHLEDGER_TOKEN_SECRET"`
	CacheTTL    time.Duration `yaml:"cache_ttl" env:"BREACHLEDGER_VERIFY_CACHE_TTL" env-default:"10m"`
}

// RateLimitConfig bounds request rates. Windows are shared through Redis when
// it is configured and kept per process otherwise.
type RateLimitConfig struct {
	Disabled         bool          `yaml:"disabled" env:"BREACHLEDGER_RATELIMIT_DISABLED" env-default:"false"`
	VerifyRequests   int           `yaml:"verify_requests" env:"BREACHLEDGER_RATELIMIT_VERIFY_REQUESTS" env-default:"60"`
	RegistryRequests int           `yaml:"registry_requests" env:"BREACHLEDGER_RATELIMIT_REGISTRY_REQUESTS" env-default:"300"`
	Window           time.Duration `yaml:"window" env:"BREACHLEDGER_RATELIMIT_WINDOW" env-default:"1m"`
}

// TelemetryConfig enables OTLP trace export. An empty endpoint disables it.
type TelemetryConfig struct {
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"BREACHLEDGER_OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"BREACHLEDGER_SERVICE_NAME" env-default:"breachledger"`
	SampleRatio  float64 `yaml:"sample_ratio" env:"BREACHLEDGER_TRACE_SAMPLE_RATIO" env-default:"1.0"`
	Insecure     bool    `yaml:"insecure" env:"BREACHLEDGER_OTLP_INSECURE" env-default:"true"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" env:"BREACHLEDGER_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"BREACHLEDGER_LOG_FORMAT" env-default:"json"`
}

// Load reads configuration from path (when non-empty) and the environment.
func Load(path string) (*Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Auth.JWTSigningKey == "" {
		errs = append(errs, errors.New("auth.jwt_signing_key is required"))
	}
	if len(c.Verification.TokenSecret) < 32 {
		errs = append(errs, errors.New("verification.token_secret must be at least 32 bytes"))
	}
	if c.Verification.CacheTTL <= 0 {
		errs = append(errs, errors.New("verification.cache_ttl must be positive"))
	}
	if !c.RateLimit.Disabled && (c.RateLimit.VerifyRequests <= 0 || c.RateLimit.RegistryRequests <= 0 || c.RateLimit.Window <= 0) {
		errs = append(errs, errors.New("rate_limit requests and window must be positive unless disabled"))
	}
	if c.IsProduction() && c.Auth.JWTSigningKey == "dev-secret-key-change-in-production" {
		errs = append(errs, errors.New("auth.jwt_signing_key must be set in production"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Usage returns the environment variable help text.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}

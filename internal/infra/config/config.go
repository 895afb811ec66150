package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory   = "memory"
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"

	PaymentsEdge   = "edge"
	PaymentsStripe = "stripe"
	PaymentsMemory = "memory"

	BarrierDelay = "delay"
	BarrierPoll  = "poll"
)

// defaultCompensationBackoff spans 17.5s so a compensating delete keeps retrying past a
// breaker that opened just before it (10s).
const defaultCompensationBackoff = "500ms,2s,5s,10s"

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string
	HTTPAddr string
	// PublicBaseURL is where the local payment page is served in memory mode.
	PublicBaseURL string

	BackendMode       string
	SupabaseURL       string
	SupabaseAnonKey   string
	SupabaseJWTSecret string
	DatabaseURL       string
	RedisURL          string

	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	KafkaConsumerGroup string
	// KafkaInvalidation turns on the availability invalidation consumer.
	KafkaInvalidation  bool
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	IdempotencyTTL     time.Duration

	AvailabilityTTL         time.Duration
	AvailabilityHorizonDays int
	PendingHoldTTL          time.Duration
	PropagationDelay        time.Duration
	WriteBarrier            string
	CompensationBackoff     []time.Duration
	NotConfiguredPolicy     string

	PaymentProvider  string
	StripeSecretKey  string
	StripeSuccessURL string
	StripeCancelURL  string
	Currency         string

	HTTPClientTimeout time.Duration
	SessionIdleTTL    time.Duration
}

// LoadDotEnv reads a .env file into the environment when it exists. Variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:                 getEnv("APP_ENV", "dev"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		PublicBaseURL:       getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		BackendMode:         strings.ToLower(getEnv("BACKEND_MODE", BackendMemory)),
		SupabaseURL:         strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseAnonKey:     os.Getenv("SUPABASE_ANON_KEY"),
		SupabaseJWTSecret:   os.Getenv("SUPABASE_JWT_SECRET"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		MongoURI:            os.Getenv("MONGO_URI"),
		MongoDB:             getEnv("MONGO_DB", "rentflow"),
		KafkaTopicPrefix:    getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaConsumerGroup:  getEnv("KAFKA_CONSUMER_GROUP", "rentflow-availability"),
		WriteBarrier:        strings.ToLower(getEnv("WRITE_BARRIER", BarrierDelay)),
		NotConfiguredPolicy: strings.ToLower(getEnv("NOT_CONFIGURED_POLICY", "keep")),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeSuccessURL:    getEnv("STRIPE_SUCCESS_URL", "rentflow://payment/success"),
		StripeCancelURL:     getEnv("STRIPE_CANCEL_URL", "rentflow://payment/cancel"),
		Currency:            strings.ToUpper(getEnv("CURRENCY", "USD")),
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	defaultProvider := PaymentsEdge
	if cfg.BackendMode == BackendMemory {
		defaultProvider = PaymentsMemory
	}
	cfg.PaymentProvider = strings.ToLower(getEnv("PAYMENT_PROVIDER", defaultProvider))

	var err error
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"IDEMP_TTL", 24 * time.Hour, &cfg.IdempotencyTTL},
		{"OUTBOX_POLL_INTERVAL", 500 * time.Millisecond, &cfg.OutboxPollInterval},
		{"AVAILABILITY_TTL", 5 * time.Minute, &cfg.AvailabilityTTL},
		{"PENDING_HOLD_TTL", 30 * time.Minute, &cfg.PendingHoldTTL},
		{"PROPAGATION_DELAY", 1200 * time.Millisecond, &cfg.PropagationDelay},
		{"HTTP_CLIENT_TIMEOUT", 10 * time.Second, &cfg.HTTPClientTimeout},
		{"SESSION_IDLE_TTL", 2 * time.Hour, &cfg.SessionIdleTTL},
	}
	for _, d := range durations {
		if *d.dst, err = parseDurationEnv(d.key, d.def); err != nil {
			return Config{}, err
		}
	}
	if cfg.RetryBackoff, err = parseDurationListEnv("RETRY_BACKOFF", "1s,5s,30s"); err != nil {
		return Config{}, err
	}
	if cfg.CompensationBackoff, err = parseDurationListEnv("COMPENSATION_BACKOFF", defaultCompensationBackoff); err != nil {
		return Config{}, err
	}
	if cfg.KafkaInvalidation, err = parseBoolEnv("KAFKA_INVALIDATION_ENABLED", true); err != nil {
		return Config{}, err
	}
	if cfg.AvailabilityHorizonDays, err = parseIntEnv("AVAILABILITY_HORIZON_DAYS", 365); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsLocal reports whether the process runs on a developer machine.
func (c Config) IsLocal() bool {
	return c.Env == "dev" || c.Env == "local"
}

func (c *Config) validate() error {
	switch c.BackendMode {
	case BackendMemory:
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY are required for BACKEND_MODE=%s", c.BackendMode)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for BACKEND_MODE=%s", c.BackendMode)
		}
	default:
		return fmt.Errorf("invalid BACKEND_MODE %q", c.BackendMode)
	}
	switch c.PaymentProvider {
	case PaymentsMemory, PaymentsStripe:
	case PaymentsEdge:
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required for PAYMENT_PROVIDER=%s", c.PaymentProvider)
		}
	default:
		return fmt.Errorf("invalid PAYMENT_PROVIDER %q", c.PaymentProvider)
	}
	if c.WriteBarrier != BarrierDelay && c.WriteBarrier != BarrierPoll {
		return fmt.Errorf("invalid WRITE_BARRIER %q", c.WriteBarrier)
	}
	if c.NotConfiguredPolicy != "keep" && c.NotConfiguredPolicy != "compensate" {
		return fmt.Errorf("invalid NOT_CONFIGURED_POLICY %q", c.NotConfiguredPolicy)
	}
	if c.AvailabilityHorizonDays <= 0 {
		return fmt.Errorf("AVAILABILITY_HORIZON_DAYS must be positive")
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("invalid CURRENCY %q", c.Currency)
	}
	if c.SupabaseJWTSecret == "" {
		if !c.IsLocal() {
			return fmt.Errorf("SUPABASE_JWT_SECRET is required outside dev")
		}
		c.SupabaseJWTSecret = "rentflow-dev-secret"
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s duration: negative", key)
	}
	return d, nil
}

func parseDurationListEnv(key, def string) ([]time.Duration, error) {
	var out []time.Duration
	for _, raw := range strings.Split(getEnv(key, def), ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("invalid %s component %q: %w", key, raw, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}

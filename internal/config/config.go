package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName         = "Custodia"
	defaultAppEnv          = "development"
	defaultPort            = "3000"
	defaultLogLevel        = "info"
	defaultCurrency        = "USD"
	defaultCORSOrigins     = "*"
	defaultLoginRateLimit  = 5
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultStoreTimeout    = 5 * time.Second
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	storeSecondsEnvVar     = "STORE_TIMEOUT_SECONDS"
	storeDurationEnvVar    = "STORE_TIMEOUT"
	loginRateLimitEnvVar   = "LOGIN_RATE_LIMIT"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName         string
	Env             string
	Port            string
	LogLevel        string
	DatabaseURL     string
	RedisURL        string
	NATSURL         string
	DefaultCurrency string
	CORSOrigins     string
	LoginRateLimit  int
	ShutdownPeriod  time.Duration
	IdempotencyTTL  time.Duration
	StoreTimeout    time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		Env:             strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:            getEnv("PORT", defaultPort),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		NATSURL:         os.Getenv("NATS_URL"),
		DefaultCurrency: strings.ToUpper(getEnv("DEFAULT_CURRENCY", defaultCurrency)),
		CORSOrigins:     getEnv("CORS_ORIGINS", defaultCORSOrigins),
		LoginRateLimit:  defaultLoginRateLimit,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.StoreTimeout, err = durationFromEnv(storeSecondsEnvVar, storeDurationEnvVar, defaultStoreTimeout); err != nil {
		return Config{}, err
	}

	if v := os.Getenv(loginRateLimitEnvVar); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid %s: %q", loginRateLimitEnvVar, v)
		}
		cfg.LoginRateLimit = n
	}

	if !currencyPattern.MatchString(cfg.DefaultCurrency) {
		return Config{}, fmt.Errorf("invalid DEFAULT_CURRENCY %q: expected a three letter code", cfg.DefaultCurrency)
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.Env)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.Env)
		}
	}

	return cfg, nil
}

// IsDev reports whether the service runs in a local development environment,
// where the in-memory ledger and a missing Redis are tolerated.
func (c Config) IsDev() bool {
	switch c.Env {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// durationFromEnv prefers the whole-seconds variable over the Go duration one.
func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

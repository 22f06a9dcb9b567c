package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL        string
	HTTPListenAddr     string
	MetricsListenAddr  string
	MigrationsDir      string
	LogLevel           string
	ServiceName        string

	// MasterSecret is the process-wide secret all stored credentials are
	// encrypted under. The process refuses to start without it.
	MasterSecret string

	// ProvidersFile points to the YAML registry of OAuth providers.
	ProvidersFile string

	// OAuthRedirectBaseURL is the externally reachable base URL the
	// provider redirects back to after authorization.
	OAuthRedirectBaseURL string

	// RefreshAheadWindow is how far before token expiry a proactive
	// refresh is triggered.
	RefreshAheadWindow time.Duration

	// RetryMaxAttempts and RetryBaseDelay parameterize the shared retry
	// policy used for token exchange and destination uploads.
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration

	// HTTPClientTimeout bounds every outbound call (token endpoints,
	// source fetches, destination uploads).
	HTTPClientTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		HTTPListenAddr:       getEnv("HTTP_LISTEN_ADDR", ":8080"),
		MetricsListenAddr:    getEnv("METRICS_LISTEN_ADDR", ":9090"),
		MigrationsDir:        getEnv("MIGRATIONS_DIR", "migrations"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		ServiceName:          getEnv("SERVICE_NAME", "feedline"),
		MasterSecret:         getEnv("MASTER_SECRET", ""),
		ProvidersFile:        getEnv("OAUTH_PROVIDERS_FILE", "providers.yaml"),
		OAuthRedirectBaseURL: getEnv("OAUTH_REDIRECT_BASE_URL", "http://localhost:8080"),
		RefreshAheadWindow:   getDuration("TOKEN_REFRESH_AHEAD", 5*time.Minute),
		RetryMaxAttempts:     getInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:       getDuration("RETRY_BASE_DELAY", time.Second),
		HTTPClientTimeout:    getDuration("HTTP_CLIENT_TIMEOUT", 30*time.Second),
	}

	return cfg, nil
}

// Validate checks settings the process cannot run without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.MasterSecret == "" {
		return fmt.Errorf("MASTER_SECRET is required: stored credentials cannot be decrypted without it")
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.RetryMaxAttempts)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

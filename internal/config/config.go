package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the endpoint and policy settings of the access layer. All
// values come from the environment (or a .env file next to the binary).
type Config struct {
	// ModernBaseURL is the base URL of the resource-oriented REST backend,
	// e.g. "https://api.taskdeck.example/v1". Empty disables the modern
	// transport.
	ModernBaseURL string

	// LegacyURL is the single endpoint of the script backend that
	// multiplexes all actions. Empty disables the legacy transport.
	LegacyURL string

	// RefreshURL is the token refresh endpoint.
	RefreshURL string

	// CacheURL is the cache invalidation endpoint of the modern backend.
	CacheURL string

	// PreferModern routes calls to the modern transport first.
	PreferModern bool

	// FallbackEnabled allows falling through to the legacy transport when
	// the modern one fails at the transport level.
	FallbackEnabled bool

	// RequestTimeout bounds every network call so a lost connection cannot
	// hang the caller.
	RequestTimeout time.Duration

	// ProbeCooldown is how long an unhealthy transport is skipped before a
	// request re-probes it.
	ProbeCooldown time.Duration

	// OAuth settings for the sign-in flow.
	OAuthClientID     string
	OAuthClientSecret string
	OAuthAuthURL      string
	OAuthTokenURL     string
	OAuthRedirectURL  string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is merged in first when present; real environment
// variables win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ModernBaseURL:     getEnvOrDefault("TASKDECK_MODERN_URL", ""),
		LegacyURL:         getEnvOrDefault("TASKDECK_LEGACY_URL", ""),
		RefreshURL:        getEnvOrDefault("TASKDECK_REFRESH_URL", ""),
		CacheURL:          getEnvOrDefault("TASKDECK_CACHE_URL", ""),
		PreferModern:      getEnvBoolOrDefault("TASKDECK_PREFER_MODERN", true),
		FallbackEnabled:   getEnvBoolOrDefault("TASKDECK_FALLBACK_ENABLED", true),
		RequestTimeout:    getEnvDurationOrDefault("TASKDECK_REQUEST_TIMEOUT", 15*time.Second),
		ProbeCooldown:     getEnvDurationOrDefault("TASKDECK_PROBE_COOLDOWN", 30*time.Second),
		OAuthClientID:     getEnvOrDefault("TASKDECK_OAUTH_CLIENT_ID", ""),
		OAuthClientSecret: getEnvOrDefault("TASKDECK_OAUTH_CLIENT_SECRET", ""),
		OAuthAuthURL:      getEnvOrDefault("TASKDECK_OAUTH_AUTH_URL", ""),
		OAuthTokenURL:     getEnvOrDefault("TASKDECK_OAUTH_TOKEN_URL", ""),
		OAuthRedirectURL:  getEnvOrDefault("TASKDECK_OAUTH_REDIRECT_URL", "http://localhost:8910/callback"),
	}
}

// Validate checks that the configuration can serve requests at all.
func (c *Config) Validate() error {
	if c.ModernBaseURL == "" && c.LegacyURL == "" {
		return fmt.Errorf("at least one backend must be configured (TASKDECK_MODERN_URL or TASKDECK_LEGACY_URL)")
	}
	if c.PreferModern && c.ModernBaseURL == "" && !c.FallbackEnabled {
		return fmt.Errorf("modern transport preferred with fallback disabled, but TASKDECK_MODERN_URL is empty")
	}
	if c.RefreshURL == "" {
		return fmt.Errorf("token refresh endpoint is required (TASKDECK_REFRESH_URL)")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	env "github.com/netflix/go-env"

	"github.com/wikiscout/wikiscout/internal/types"
)

// Type alias for Config
type Config = types.Config

// minRefreshInterval is the smallest allowed console auto-refresh period.
// Each refresh re-runs the last query against the search service.
const minRefreshInterval = time.Minute

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var config Config

	_, err := env.UnmarshalFromEnviron(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values and adjusts them to safe ranges
func validateConfig(config *Config) error {
	// Clamp search parameters the service expects to be positive
	if config.TopK < 1 {
		config.TopK = 1
	}
	if config.ScrappingTotalLimit < 1 {
		config.ScrappingTotalLimit = 1
	}
	if config.RequestsPerSecond < 1 {
		config.RequestsPerSecond = 1
	}

	if err := validateBaseURL(config.APIBaseURL); err != nil {
		return err
	}

	if config.RequestsPerSecond > 100 {
		return fmt.Errorf("WIKISCOUT_REQUESTS_PER_SECOND cannot exceed 100 requests/second")
	}
	if config.RateBurst <= 0 {
		return fmt.Errorf("WIKISCOUT_RATE_BURST must be greater than 0")
	}
	if config.RateBurst > int(config.RequestsPerSecond*10) {
		return fmt.Errorf("WIKISCOUT_RATE_BURST should not exceed 10x the rate limit")
	}

	if config.HTTPTimeout <= 0 {
		return fmt.Errorf("WIKISCOUT_HTTP_TIMEOUT must be greater than 0")
	}
	if config.MaxIdleConns <= 0 {
		return fmt.Errorf("WIKISCOUT_MAX_IDLE_CONNS must be greater than 0")
	}
	if config.IdleConnTimeout <= 0 {
		return fmt.Errorf("WIKISCOUT_IDLE_CONN_TIMEOUT must be greater than 0")
	}

	if config.WebUIPort < 1 || config.WebUIPort > 65535 {
		return fmt.Errorf("WIKISCOUT_WEBUI_PORT must be between 1 and 65535")
	}
	if config.WebUIHost == "" {
		return fmt.Errorf("WIKISCOUT_WEBUI_HOST cannot be empty")
	}

	if config.RefreshInterval < 0 {
		return fmt.Errorf("WIKISCOUT_REFRESH_INTERVAL cannot be negative")
	}
	if config.RefreshInterval > 0 && config.RefreshInterval < minRefreshInterval {
		config.RefreshInterval = minRefreshInterval
	}

	return nil
}

// validateBaseURL validates the search service base URL format
func validateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("WIKISCOUT_API_BASE_URL cannot be empty")
	}

	parsedURL, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid WIKISCOUT_API_BASE_URL format: %w", err)
	}

	if parsedURL.Scheme == "" {
		return fmt.Errorf("WIKISCOUT_API_BASE_URL must include scheme (http:// or https://)")
	}
	if !strings.HasPrefix(parsedURL.Scheme, "http") {
		return fmt.Errorf("WIKISCOUT_API_BASE_URL scheme must be http or https")
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("WIKISCOUT_API_BASE_URL must include a valid host")
	}

	return nil
}

package searchapi

import (
	"fmt"
	"time"

	"github.com/wikiscout/wikiscout/internal/types"
)

// Config holds the settings for the outbound search service client.
type Config struct {
	BaseURL         string
	RequestTimeout  time.Duration
	RateLimit       float64
	RateBurst       int
	MaxIdleConns    int
	IdleConnTimeout time.Duration
}

// NewConfigFromTypes builds a client config from the application config.
func NewConfigFromTypes(cfg *types.Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return &Config{
		BaseURL:         cfg.APIBaseURL,
		RequestTimeout:  cfg.HTTPTimeout,
		RateLimit:       cfg.RequestsPerSecond,
		RateBurst:       cfg.RateBurst,
		MaxIdleConns:    cfg.MaxIdleConns,
		IdleConnTimeout: cfg.IdleConnTimeout,
	}, nil
}

// Validate checks the config and adjusts missing values to safe defaults.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}

	if c.RateLimit <= 0 {
		c.RateLimit = 5.0
	}
	if c.RateLimit > 100 {
		c.RateLimit = 100.0
	}

	if c.RateBurst <= 0 {
		c.RateBurst = 10
	}

	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 60 * time.Second
	}
	if c.RequestTimeout > 600*time.Second {
		c.RequestTimeout = 600 * time.Second
	}

	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 10
	}
	if c.IdleConnTimeout <= 0 {
		c.IdleConnTimeout = 90 * time.Second
	}

	return nil
}

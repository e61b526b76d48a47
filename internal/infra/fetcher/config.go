package fetcher

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the tunables shared by every URL-based engine (http, rss,
// headless-browser). Defaults match the hard timeout ceiling engine
// behavior requires: a fetch must never block the scheduler loop past its
// own configured maximum.
type Config struct {
	// Timeout bounds a single fetch attempt. Must stay at or below 60s.
	Timeout time.Duration

	// MaxBodySize caps the HTTP response body read, to bound memory use
	// against a malicious or misbehaving server.
	MaxBodySize int64

	// MaxRedirects caps how many redirect hops a fetch follows.
	MaxRedirects int

	// DenyPrivateIPs blocks fetches whose target resolves to a loopback,
	// private, or link-local address (SSRF prevention).
	DenyPrivateIPs bool
}

const maxAllowedTimeout = 60 * time.Second

// DefaultConfig returns the production defaults: 30s timeout, 10MB body
// cap, 5 redirects, private IPs denied.
func DefaultConfig() Config {
	return Config{
		Timeout:        30 * time.Second,
		MaxBodySize:    10 * 1024 * 1024,
		MaxRedirects:   5,
		DenyPrivateIPs: true,
	}
}

// Validate checks the invariants LoadConfigFromEnv and callers both rely
// on: a positive timeout no greater than the 60s ceiling, a sane body size,
// and a non-negative redirect count.
func (c *Config) Validate() error {
	if c.Timeout <= 0 || c.Timeout > maxAllowedTimeout {
		return fmt.Errorf("timeout must be in (0, %v], got %v", maxAllowedTimeout, c.Timeout)
	}
	if c.MaxBodySize < 1024 || c.MaxBodySize > 100*1024*1024 {
		return fmt.Errorf("max body size must be between 1KB and 100MB, got %d", c.MaxBodySize)
	}
	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}
	return nil
}

// LoadConfigFromEnv loads Config from FETCH_* environment variables,
// falling back to DefaultConfig for anything unset, then validates the
// result.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if val := os.Getenv("FETCH_TIMEOUT"); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_TIMEOUT: %w", err)
		}
		cfg.Timeout = parsed
	}
	if val := os.Getenv("FETCH_MAX_BODY_SIZE"); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_MAX_BODY_SIZE: %w", err)
		}
		cfg.MaxBodySize = parsed
	}
	if val := os.Getenv("FETCH_MAX_REDIRECTS"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_MAX_REDIRECTS: %w", err)
		}
		cfg.MaxRedirects = parsed
	}
	if val := os.Getenv("FETCH_DENY_PRIVATE_IPS"); val != "" {
		cfg.DenyPrivateIPs = val == "true"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("fetch config validation failed: %w", err)
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// DaemonConfig holds the environment-driven tunables for the sentrywatchd
// daemon: where its embedded database and PID marker live, which ports its
// health and metrics servers bind, the reasoner subprocess's invocation
// parameters, and the per-domain fetch rate limits. Target, reminder, and
// notification-target definitions themselves come from the store, not from
// this config: populating them is the external CLI collaborator's job.
type DaemonConfig struct {
	DataDir       string
	DBPath        string
	HealthPort    int
	MetricsPort   int
	AgentCommand  string
	AgentTimeout  time.Duration
	AgentMaxTurns int
	RateLimits    map[string]float64
}

// DefaultDaemonConfig returns production-ready defaults.
func DefaultDaemonConfig() DaemonConfig {
	return DaemonConfig{
		DataDir:       "./data",
		DBPath:        "./data/sentrywatch.db",
		HealthPort:    9091,
		MetricsPort:   9090,
		AgentCommand:  "agent-reasoner",
		AgentTimeout:  120 * time.Second,
		AgentMaxTurns: 6,
		RateLimits:    map[string]float64{},
	}
}

// Validate checks the config's numeric ranges using the shared validators.
func (c *DaemonConfig) Validate() error {
	var errs []error
	if err := ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}
	if err := ValidatePositiveDuration(c.AgentTimeout); err != nil {
		errs = append(errs, fmt.Errorf("agent timeout: %w", err))
	}
	if err := ValidateIntRange(c.AgentMaxTurns, 1, 50); err != nil {
		errs = append(errs, fmt.Errorf("agent max turns: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadDaemonConfigFromEnv loads DaemonConfig from the environment with the
// fail-open strategy used throughout this stack: every field falls back to
// its default on a missing or invalid value, recording the fallback on
// metrics rather than aborting startup.
func LoadDaemonConfigFromEnv(logger *slog.Logger, metrics *ConfigMetrics) DaemonConfig {
	cfg := DefaultDaemonConfig()
	metrics.RecordLoadTimestamp()

	cfg.DataDir = LoadEnvString("SENTRYWATCH_DATA_DIR", cfg.DataDir)
	cfg.DBPath = LoadEnvString("SENTRYWATCH_DB_PATH", cfg.DataDir+"/sentrywatch.db")

	applyInt := func(field, envKey string, cur int, min, max int, target *int) {
		result := LoadEnvInt(envKey, cur, func(v int) error { return ValidateIntRange(v, min, max) })
		*target = result.Value.(int)
		if result.FallbackApplied {
			metrics.RecordFallback(field, "invalid_value")
			logger.Warn("config fallback applied", slog.String("field", field), slog.String("warning", result.Warnings[0]))
		}
	}
	applyInt("health_port", "HEALTH_PORT", cfg.HealthPort, 1024, 65535, &cfg.HealthPort)
	applyInt("metrics_port", "METRICS_PORT", cfg.MetricsPort, 1024, 65535, &cfg.MetricsPort)
	applyInt("agent_max_turns", "AGENT_MAX_TURNS", cfg.AgentMaxTurns, 1, 50, &cfg.AgentMaxTurns)

	cfg.AgentCommand = LoadEnvString("AGENT_COMMAND", cfg.AgentCommand)

	durResult := LoadEnvDuration("AGENT_TIMEOUT", cfg.AgentTimeout, ValidatePositiveDuration)
	cfg.AgentTimeout = durResult.Value.(time.Duration)
	if durResult.FallbackApplied {
		metrics.RecordFallback("agent_timeout", "invalid_value")
		logger.Warn("config fallback applied", slog.String("field", "agent_timeout"), slog.String("warning", durResult.Warnings[0]))
	}

	cfg.RateLimits = parseRateLimits(LoadEnvString("SENTRYWATCH_RATE_LIMITS", ""))

	metrics.SetFallbackActive("health_port", false)
	return cfg
}

// parseRateLimits parses a "host=requests_per_second,host2=rate2" string
// into a domain->rate map for ratelimit.New. Malformed entries are skipped
// rather than aborting the whole list, matching this stack's fail-open
// posture for environment configuration.
func parseRateLimits(raw string) map[string]float64 {
	out := map[string]float64{}
	if raw == "" {
		return out
	}
	for _, pair := range strings.Split(raw, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) != 2 {
			continue
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			continue
		}
		out[strings.TrimSpace(kv[0])] = rate
	}
	return out
}

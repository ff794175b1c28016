package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/whaletrack/swap-classifier/internal/swapcore"
)

type Config struct {
	// RPC settings
	RPCUrl       string
	PollInterval time.Duration

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// Stream provider
	StreamProvider string
	TritonAPIKey   string

	// LLM / OpenRouter settings
	OpenRouterAPIKey string

	// API
	APIAddr string
	APIKey  string
	DevMode bool

	// Core classification config (spec §5/§6)
	Core *swapcore.CoreConfig

	// DiagnoseFixtureTTL bounds how long a recorded upstream-tx fixture
	// stays replayable via /v1/diagnose. Optional, defaults to 24h.
	DiagnoseFixtureTTL time.Duration
}

// Load reads all configuration from environment variables
// Validates all required vars first, then panics with complete list if any are missing
func Load() *Config {
	// Validate all required env vars first
	validateRequiredEnvVars()

	core, err := loadCoreConfig()
	if err != nil {
		panic(fmt.Sprintf("invalid core classification config: %v", err))
	}

	return &Config{
		// RPC
		RPCUrl:       mustEnv("SOLANA_RPC_URL"),
		PollInterval: mustDurationEnv("POLL_INTERVAL"),

		// Redis
		RedisAddr: mustEnv("REDIS_ADDR"),

		// ClickHouse
		ClickHouseAddr:     mustEnv("CLICKHOUSE_ADDR"),
		ClickHouseDatabase: mustEnv("CLICKHOUSE_DATABASE"),
		ClickHouseUsername: mustEnv("CLICKHOUSE_USERNAME"),
		ClickHousePassword: mustEnv("CLICKHOUSE_PASSWORD"),

		// HTTP
		HTTPTimeout:  mustDurationEnv("HTTP_TIMEOUT"),
		MaxRetries:   mustIntEnv("MAX_RETRIES"),
		RetryBackoff: mustDurationEnv("RETRY_BACKOFF"),

		// Stream
		StreamProvider: mustEnv("STREAM_PROVIDER"),
		TritonAPIKey:   mustEnv("TRITON_API_KEY"),

		// LLM / OpenRouter
		OpenRouterAPIKey: mustEnv("OPENROUTER_API_KEY"),

		// API
		APIAddr: mustEnv("API_ADDR"),
		APIKey:  mustEnv("API_KEY"),
		DevMode: mustBoolEnv("DEV"),

		Core:               core,
		DiagnoseFixtureTTL: optionalDurationEnv("DIAGNOSE_FIXTURE_TTL", 24*time.Hour),
	}
}

// optionalDurationEnv reads a duration env var, returning fallback if
// unset or unparsable.
func optionalDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

// loadCoreConfig builds a swapcore.CoreConfig from the CORE_* env vars.
// Unlike the rest of Load, these are optional: a deployment with no
// CORE_TOKENS set gets a single-token SOL-only ladder, since every
// installation of this system tracks native SOL at minimum.
func loadCoreConfig() (*swapcore.CoreConfig, error) {
	coreTokens := splitCSVEnv("CORE_TOKENS", []string{defaultNativeMint})
	nativeWrapGroup := splitCSVEnv("CORE_NATIVE_WRAP_GROUP", []string{defaultNativeMint})
	deniedMints := splitCSVEnv("CORE_DENIED_MINTS", nil)

	rentEpsilon := decimal.New(5000, -9) // 0.000005 native SOL, lamports-denominated default
	if raw := strings.TrimSpace(os.Getenv("CORE_RENT_EPSILON_NATIVE")); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid CORE_RENT_EPSILON_NATIVE: %w", err)
		}
		rentEpsilon = v
	}

	decimalsOverrides, err := parseDecimalsOverrides(os.Getenv("CORE_DECIMALS_OVERRIDES"))
	if err != nil {
		return nil, err
	}

	var minThreshold *decimal.Decimal
	if raw := strings.TrimSpace(os.Getenv("CORE_MIN_VALUE_THRESHOLD_QUOTE")); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid CORE_MIN_VALUE_THRESHOLD_QUOTE: %w", err)
		}
		minThreshold = &v
	}

	return swapcore.NewCoreConfig(coreTokens, nativeWrapGroup, deniedMints, rentEpsilon, decimalsOverrides, minThreshold)
}

// defaultNativeMint is wrapped-SOL's mint address, used as the sole
// default core token / wrap-group member when CORE_TOKENS is unset.
const defaultNativeMint = "So11111111111111111111111111111111111111112"

// splitCSVEnv reads a comma-separated env var, trimming whitespace and
// dropping empty entries; returns fallback if the var is unset.
func splitCSVEnv(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDecimalsOverrides parses "mint:decimals,mint:decimals" pairs.
func parseDecimalsOverrides(raw string) (map[string]int32, error) {
	raw = strings.TrimSpace(raw)
	out := map[string]int32{}
	if raw == "" {
		return out, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid CORE_DECIMALS_OVERRIDES entry %q: want mint:decimals", pair)
		}
		d, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid decimals for mint %q: %w", kv[0], err)
		}
		out[strings.TrimSpace(kv[0])] = int32(d)
	}
	return out, nil
}

// validateRequiredEnvVars checks all required env vars and panics with complete list if any are missing
func validateRequiredEnvVars() {
	required := []string{
		"SOLANA_RPC_URL",
		"POLL_INTERVAL",
		"REDIS_ADDR",
		"CLICKHOUSE_ADDR",
		"CLICKHOUSE_DATABASE",
		"CLICKHOUSE_USERNAME",
		"CLICKHOUSE_PASSWORD",
		"HTTP_TIMEOUT",
		"MAX_RETRIES",
		"RETRY_BACKOFF",
		"STREAM_PROVIDER",
		"TRITON_API_KEY",
		"OPENROUTER_API_KEY",
		"API_ADDR",
		"API_KEY",
		"DEV",
	}

	var missing []string
	for _, key := range required {
		val := strings.TrimSpace(os.Getenv(key))
		if val == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		panic(fmt.Sprintf(
			"missing required environment variables:\n  %s\n\nPlease set all required variables in your .env file.",
			strings.Join(missing, "\n  "),
		))
	}
}

// mustEnv reads a required string env or panics
func mustEnv(key string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		panic(fmt.Sprintf("missing required environment variable: %s", key))
	}
	return val
}

// mustIntEnv reads a required int env or panics
func mustIntEnv(key string) int {
	val := mustEnv(key)
	intVal, err := strconv.Atoi(val)
	if err != nil {
		panic(fmt.Sprintf("invalid integer for %s: %v (got: %q)", key, err, val))
	}
	return intVal
}

// mustDurationEnv reads a required duration env or panics
func mustDurationEnv(key string) time.Duration {
	val := mustEnv(key)
	durationVal, err := time.ParseDuration(val)
	if err != nil {
		panic(fmt.Sprintf("invalid duration for %s: %v (got: %q). Examples: 30s, 5m, 1h", key, err, val))
	}
	return durationVal
}

// mustBoolEnv reads a required bool env or panics
func mustBoolEnv(key string) bool {
	val := mustEnv(key)
	boolVal, err := strconv.ParseBool(val)
	if err != nil {
		panic(fmt.Sprintf("invalid boolean for %s: %v (got: %q). Must be: true, false, 1, 0, t, f", key, err, val))
	}
	return boolVal
}

// Validate is optional since all fields are mustEnv-driven
func (c *Config) Validate() error {
	return nil
}

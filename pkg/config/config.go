// Package config loads relayer options from the environment. Every option has a
// default; numeric options clamp to their documented interval with a warning, and
// unparseable values fall back to the default.
package config

import (
	"strconv"
	"time"

	"cosmossdk.io/log"
	"github.com/spf13/viper"
)

// Environment option names.
const (
	EnvLogLevel             = "LOG_LEVEL"
	EnvDBFile               = "DB_FILE"
	EnvMetricsAddr          = "METRICS_ADDR"
	EnvPollInterval         = "RELAY_POLL_INTERVAL"
	EnvMaxAgeDest           = "RELAY_MAX_AGE_DEST"
	EnvMaxAgeSrc            = "RELAY_MAX_AGE_SRC"
	EnvTimeoutBlocks        = "RELAY_TIMEOUT_BLOCKS"
	EnvTimeoutSeconds       = "RELAY_TIMEOUT_SECONDS"
	EnvMaxRetries           = "NETWORK_MAX_RETRIES"
	EnvRetryBackoff         = "NETWORK_RETRY_BACKOFF"
	EnvRequestTimeout       = "NETWORK_REQUEST_TIMEOUT"
	EnvEstimatedBlockTime   = "ESTIMATED_BLOCK_TIME"
	EnvEstimatedIndexerTime = "ESTIMATED_INDEXER_TIME"
)

// Defaults.
const (
	DefaultLogLevel             = "info"
	DefaultDBFile               = "relayer.db"
	DefaultPollInterval         = 5 * time.Second
	DefaultMaxAge               = 10 * time.Minute
	DefaultTimeoutBlocks        = 2
	DefaultTimeoutSeconds       = 10
	DefaultMaxRetries           = 3
	DefaultRetryBackoff         = time.Second
	DefaultRequestTimeout       = 30 * time.Second
	DefaultEstimatedBlockTime   = 6 * time.Second
	DefaultEstimatedIndexerTime = 2 * time.Second
)

// Config holds the resolved relayer options.
type Config struct {
	LogLevel    string
	DBFile      string
	MetricsAddr string

	PollInterval time.Duration
	MaxAgeDest   time.Duration
	MaxAgeSrc    time.Duration

	// TimeoutBlocks and TimeoutSeconds are the slack margins applied to packet timeout
	// cutoffs so packets on the verge are preferred to the timeout side.
	TimeoutBlocks  uint64
	TimeoutSeconds uint64

	MaxRetries     uint
	RetryBackoff   time.Duration
	RequestTimeout time.Duration

	EstimatedBlockTime   time.Duration
	EstimatedIndexerTime time.Duration
}

// DefaultConfig returns the configuration with every option at its default.
func DefaultConfig() Config {
	return Config{
		LogLevel:             DefaultLogLevel,
		DBFile:               DefaultDBFile,
		PollInterval:         DefaultPollInterval,
		MaxAgeDest:           DefaultMaxAge,
		MaxAgeSrc:            DefaultMaxAge,
		TimeoutBlocks:        DefaultTimeoutBlocks,
		TimeoutSeconds:       DefaultTimeoutSeconds,
		MaxRetries:           DefaultMaxRetries,
		RetryBackoff:         DefaultRetryBackoff,
		RequestTimeout:       DefaultRequestTimeout,
		EstimatedBlockTime:   DefaultEstimatedBlockTime,
		EstimatedIndexerTime: DefaultEstimatedIndexerTime,
	}
}

// Load reads the environment and returns the resolved configuration.
func Load(logger log.Logger) Config {
	v := viper.New()
	v.AutomaticEnv()
	return load(v, logger)
}

func load(v *viper.Viper, logger log.Logger) Config {
	cfg := DefaultConfig()

	if s := v.GetString(EnvLogLevel); s != "" {
		cfg.LogLevel = s
	}
	if s := v.GetString(EnvDBFile); s != "" {
		cfg.DBFile = s
	}
	cfg.MetricsAddr = v.GetString(EnvMetricsAddr)

	cfg.PollInterval = millisOption(v, logger, EnvPollInterval, cfg.PollInterval, 1000, 60_000)
	cfg.MaxAgeDest = millisOption(v, logger, EnvMaxAgeDest, cfg.MaxAgeDest, 1000, 86_400_000)
	cfg.MaxAgeSrc = millisOption(v, logger, EnvMaxAgeSrc, cfg.MaxAgeSrc, 1000, 86_400_000)
	cfg.TimeoutBlocks = uintOption(v, logger, EnvTimeoutBlocks, cfg.TimeoutBlocks, 0, 1000)
	cfg.TimeoutSeconds = uintOption(v, logger, EnvTimeoutSeconds, cfg.TimeoutSeconds, 0, 86_400)
	cfg.MaxRetries = uint(uintOption(v, logger, EnvMaxRetries, uint64(cfg.MaxRetries), 0, 10))
	cfg.RetryBackoff = millisOption(v, logger, EnvRetryBackoff, cfg.RetryBackoff, 100, 30_000)
	cfg.RequestTimeout = millisOption(v, logger, EnvRequestTimeout, cfg.RequestTimeout, 1000, 120_000)
	cfg.EstimatedBlockTime = millisOption(v, logger, EnvEstimatedBlockTime, cfg.EstimatedBlockTime, 500, 60_000)
	cfg.EstimatedIndexerTime = millisOption(v, logger, EnvEstimatedIndexerTime, cfg.EstimatedIndexerTime, 0, 30_000)

	return cfg
}

// millisOption reads an integer option expressed in milliseconds, clamping to
// [minMs, maxMs]. Unparseable values fall back to def.
func millisOption(v *viper.Viper, logger log.Logger, name string, def time.Duration, minMs, maxMs int64) time.Duration {
	raw := v.GetString(name)
	if raw == "" {
		return def
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		logger.Warn("unparseable option, using default", "option", name, "value", raw, "default", def)
		return def
	}
	if ms < minMs {
		logger.Warn("option below range, clamping", "option", name, "value", ms, "min", minMs)
		ms = minMs
	}
	if ms > maxMs {
		logger.Warn("option above range, clamping", "option", name, "value", ms, "max", maxMs)
		ms = maxMs
	}
	return time.Duration(ms) * time.Millisecond
}

// uintOption reads an unsigned integer option, clamping to [minVal, maxVal].
func uintOption(v *viper.Viper, logger log.Logger, name string, def, minVal, maxVal uint64) uint64 {
	raw := v.GetString(name)
	if raw == "" {
		return def
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		logger.Warn("unparseable option, using default", "option", name, "value", raw, "default", def)
		return def
	}
	if n < minVal {
		logger.Warn("option below range, clamping", "option", name, "value", n, "min", minVal)
		n = minVal
	}
	if n > maxVal {
		logger.Warn("option above range, clamping", "option", name, "value", n, "max", maxVal)
		n = maxVal
	}
	return n
}

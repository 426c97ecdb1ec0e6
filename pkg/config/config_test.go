package config

import (
	"testing"
	"time"

	"cosmossdk.io/log"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func loadFrom(t *testing.T, env map[string]string) Config {
	t.Helper()
	v := viper.New()
	for key, value := range env {
		v.Set(key, value)
	}
	return load(v, log.NewNopLogger())
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg := loadFrom(t, nil)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()

	cfg := loadFrom(t, map[string]string{
		EnvLogLevel:       "debug",
		EnvDBFile:         "/tmp/other.db",
		EnvMetricsAddr:    "localhost:9090",
		EnvPollInterval:   "2500",
		EnvTimeoutBlocks:  "5",
		EnvTimeoutSeconds: "60",
		EnvMaxRetries:     "5",
	})
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/other.db", cfg.DBFile)
	assert.Equal(t, "localhost:9090", cfg.MetricsAddr)
	assert.Equal(t, 2500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, uint64(5), cfg.TimeoutBlocks)
	assert.Equal(t, uint64(60), cfg.TimeoutSeconds)
	assert.Equal(t, uint(5), cfg.MaxRetries)
}

func TestLoadClampsToRange(t *testing.T) {
	t.Parallel()

	// RELAY_POLL_INTERVAL clamps into [1000, 60000] ms.
	cfg := loadFrom(t, map[string]string{EnvPollInterval: "10"})
	assert.Equal(t, time.Second, cfg.PollInterval)

	cfg = loadFrom(t, map[string]string{EnvPollInterval: "99999999"})
	assert.Equal(t, time.Minute, cfg.PollInterval)

	cfg = loadFrom(t, map[string]string{EnvMaxRetries: "500"})
	assert.Equal(t, uint(10), cfg.MaxRetries)
}

func TestLoadFallsBackOnGarbage(t *testing.T) {
	t.Parallel()

	cfg := loadFrom(t, map[string]string{
		EnvPollInterval:   "not-a-number",
		EnvTimeoutBlocks:  "-3",
		EnvRequestTimeout: "12.5",
	})
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, uint64(DefaultTimeoutBlocks), cfg.TimeoutBlocks)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsDefaults(t *testing.T) {
	cfg, err := ParseArgs(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, int64(4096), cfg.Server.MaxBodySize)
	assert.Equal(t, 25, cfg.Registry.MaxNameLength)
	assert.Equal(t, 500, cfg.Registry.MaxInfoLength)
	assert.Zero(t, cfg.Registry.StaleAfter)
	assert.Equal(t, time.Minute, cfg.Registry.SweepInterval)
	assert.Empty(t, cfg.Storage.Path)
	assert.Equal(t, 30, cfg.RateLimit.HardLimitCount)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestParseArgsFlags(t *testing.T) {
	cfg, err := ParseArgs([]string{
		"--address", ":9000",
		"--trust-proxy",
		"--registry-stale-after", "2m",
		"--registry-allowed-version", "0.1.5",
		"--registry-allowed-version", "0.1.6",
		"--db-path", "history.db",
		"--log-level", "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.True(t, cfg.Server.TrustProxy)
	assert.Equal(t, 2*time.Minute, cfg.Registry.StaleAfter)
	assert.Equal(t, []string{"0.1.5", "0.1.6"}, cfg.Registry.AllowedVersions)
	assert.Equal(t, "history.db", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestParseArgsEnv(t *testing.T) {
	t.Setenv("LOBBY_LISTEN_ADDRESS", ":7000")
	t.Setenv("LOBBY_REGISTRY_ALLOWED_VERSIONS", "a,b")
	t.Setenv("LOBBY_RATE_LIMIT_HARD_COUNT", "5")

	cfg, err := ParseArgs(nil)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Address)
	assert.Equal(t, []string{"a", "b"}, cfg.Registry.AllowedVersions)
	assert.Equal(t, 5, cfg.RateLimit.HardLimitCount)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		mutate  func(*Config)
		name    string
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "negative stale", mutate: func(c *Config) { c.Registry.StaleAfter = -time.Second }, wantErr: true},
		{name: "stale without sweep", mutate: func(c *Config) {
			c.Registry.StaleAfter = time.Minute
			c.Registry.SweepInterval = 0
		}, wantErr: true},
		{name: "limit without window", mutate: func(c *Config) { c.RateLimit.HardLimitWin = 0 }, wantErr: true},
		{name: "limit disabled", mutate: func(c *Config) {
			c.RateLimit.HardLimitCount = 0
			c.RateLimit.HardLimitWin = 0
		}},
		{name: "prune without db", mutate: func(c *Config) { c.Storage.PruneOlder = time.Hour }, wantErr: true},
		{name: "zero body", mutate: func(c *Config) { c.Server.MaxBodySize = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseArgs(nil)
			require.NoError(t, err)

			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "3000", cfg.HTTPServer.Port)
	assert.Equal(t, 24*time.Hour, cfg.Auction.MinDuration)
	assert.Equal(t, 168*time.Hour, cfg.Auction.MaxDuration)
	assert.Equal(t, 0.05, cfg.Auction.MinBidIncrease)
	assert.Equal(t, 15*time.Second, cfg.Auction.SweepInterval)
	assert.Equal(t, 3, cfg.Auction.ConflictRetries)
	assert.Equal(t, 30, cfg.RateLimit.BidLimit)
	assert.Equal(t, time.Minute, cfg.RateLimit.BidWindow)
	assert.Equal(t, "notifications", cfg.Notification.Subject)
	assert.Equal(t, "auction.events", cfg.Notification.Channel)
	assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
}

func TestLoadConfig_FromFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
env: prod
http_server:
  port: "8080"
auction:
  min_duration: 12h
  min_bid_increase: 0.1
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "8080", cfg.HTTPServer.Port)
	assert.Equal(t, 12*time.Hour, cfg.Auction.MinDuration)
	assert.Equal(t, 0.1, cfg.Auction.MinBidIncrease)
	// Untouched fields keep their defaults.
	assert.Equal(t, 168*time.Hour, cfg.Auction.MaxDuration)
}

func TestLoadConfig_MissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPServer.Port)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadWithOptions(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5005", cfg.Node.URL)
	assert.Equal(t, 10*time.Second, cfg.Node.RequestTimeout)
	assert.Equal(t, 4*time.Second, cfg.Submit.PollInterval)
	assert.True(t, cfg.Submit.VerifySignatures)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, "meridian_submitter", cfg.Kafka.ConsumerGroup)
	assert.Equal(t, "8080", cfg.API.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("NODE_URL", "http://node.internal:5005")
	t.Setenv("SUBMIT_POLL_INTERVAL", "2s")
	t.Setenv("SUBMIT_VERIFY_SIGNATURES", "false")
	t.Setenv("KAFKA_IN_FLIGHT", "8")

	cfg, err := LoadWithOptions(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "http://node.internal:5005", cfg.Node.URL)
	assert.Equal(t, 2*time.Second, cfg.Submit.PollInterval)
	assert.False(t, cfg.Submit.VerifySignatures)
	assert.Equal(t, 8, cfg.Kafka.InFlight)
}

func TestLoadIgnoresUnparsableValues(t *testing.T) {
	t.Setenv("SUBMIT_POLL_INTERVAL", "soon")
	t.Setenv("KAFKA_IN_FLIGHT", "many")

	cfg, err := LoadWithOptions(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, 4*time.Second, cfg.Submit.PollInterval)
	assert.Equal(t, 32, cfg.Kafka.InFlight)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile,
		[]byte("NODE_URL=http://from-env-file:5005\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("NODE_URL") })

	cfg, err := LoadWithOptions(LoadOptions{EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, "http://from-env-file:5005", cfg.Node.URL)
}

func TestLoadMissingExplicitEnvFileFails(t *testing.T) {
	_, err := LoadWithOptions(LoadOptions{EnvFile: "/nonexistent/path.env"})
	assert.Error(t, err)
}

func TestLoadConfigFileOverlay(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(`
node:
  url: http://from-config-file:5005
submit:
  poll_interval: 6s
  verify_signatures: false
api:
  rate_limit: 25
`), 0o600))

	cfg, err := LoadWithOptions(LoadOptions{ConfigFile: configFile})
	require.NoError(t, err)

	assert.Equal(t, "http://from-config-file:5005", cfg.Node.URL)
	assert.Equal(t, 6*time.Second, cfg.Submit.PollInterval)
	assert.False(t, cfg.Submit.VerifySignatures)
	assert.Equal(t, 25, cfg.API.RateLimit)
	// Keys the file does not set keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Node:   NodeConfig{URL: "http://localhost:5005", RequestTimeout: time.Second},
			Submit: SubmitConfig{PollInterval: time.Second},
		}
	}

	assert.NoError(t, valid().Validate())

	t.Run("empty node url", func(t *testing.T) {
		cfg := valid()
		cfg.Node.URL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive poll interval", func(t *testing.T) {
		cfg := valid()
		cfg.Submit.PollInterval = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive request timeout", func(t *testing.T) {
		cfg := valid()
		cfg.Node.RequestTimeout = -time.Second
		assert.Error(t, cfg.Validate())
	})
}

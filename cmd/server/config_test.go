package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/authfence/pkg/authfence"
)

func parseConfig(t *testing.T, configFile string, args ...string) (*serverConfig, error) {
	t.Helper()
	v := viper.New()
	flags := pflag.NewFlagSet("authfence", pflag.ContinueOnError)
	require.NoError(t, registerFlags(flags, v))
	require.NoError(t, flags.Parse(args))
	return loadConfig(v, configFile)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(t, "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Empty(t, cfg.PolicyFile)
	assert.Equal(t, time.Duration(0), cfg.SweepInterval)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoadConfig_Flags(t *testing.T) {
	cfg, err := parseConfig(t, "",
		"--addr", ":9090",
		"--log-level", "debug",
		"--redis-db", "2",
		"--sweep-interval", "5m",
	)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("AUTHFENCE_REDIS_ADDR", "localhost:6379")
	t.Setenv("AUTHFENCE_SHUTDOWN_TIMEOUT", "3s")

	cfg, err := parseConfig(t, "")
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestLoadConfig_FlagBeatsEnv(t *testing.T) {
	t.Setenv("AUTHFENCE_ADDR", ":7000")

	cfg, err := parseConfig(t, "", "--addr", ":7001")
	require.NoError(t, err)
	assert.Equal(t, ":7001", cfg.Addr)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeFile(t, "authfence.yaml", `
addr: ":7070"
log_level: warn
redis_addr: "redis:6379"
shutdown_timeout: 2s
`)

	cfg, err := parseConfig(t, path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := parseConfig(t, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad log level", []string{"--log-level", "loud"}},
		{"zero shutdown timeout", []string{"--shutdown-timeout", "0s"}},
		{"negative sweep", []string{"--sweep-interval=-1m"}},
		{"empty addr", []string{"--addr", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig(t, "", tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestLimiterConfig_Default(t *testing.T) {
	cfg := &serverConfig{}
	lc, err := cfg.limiterConfig()
	require.NoError(t, err)

	assert.Equal(t, authfence.DefaultConfig(), lc)
}

func TestLimiterConfig_PolicyFileAndSweepOverride(t *testing.T) {
	path := writeFile(t, "policies.yaml", `
policies:
  login:
    limit: 3
    window: 1m
sweep_interval: 10m
`)

	cfg := &serverConfig{PolicyFile: path}
	lc, err := cfg.limiterConfig()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, lc.SweepInterval)

	policy, ok := lc.GetPolicy("login")
	require.True(t, ok)
	assert.Equal(t, 3, policy.Limit)
	assert.Equal(t, time.Minute, policy.Window)

	cfg.SweepInterval = time.Minute
	lc, err = cfg.limiterConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, lc.SweepInterval)
}

func TestLimiterConfig_BadPolicyFile(t *testing.T) {
	path := writeFile(t, "policies.yaml", `
policies:
  login:
    limit: 0
    window: 1m
`)

	cfg := &serverConfig{PolicyFile: path}
	_, err := cfg.limiterConfig()
	assert.ErrorIs(t, err, authfence.ErrInvalidConfig)
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = newLogger("loud")
	assert.Error(t, err)
}

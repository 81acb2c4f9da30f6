package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yourusername/authfence/pkg/authfence"
)

const envPrefix = "AUTHFENCE"

// serverConfig holds the settings for the HTTP service
type serverConfig struct {
	Addr            string        `mapstructure:"addr"`
	LogLevel        string        `mapstructure:"log_level"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	PolicyFile      string        `mapstructure:"policy_file"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// registerFlags defines the command line flags and binds each one to its
// viper key. Flag names use dashes, keys and env vars use underscores.
func registerFlags(flags *pflag.FlagSet, v *viper.Viper) error {
	flags.String("addr", ":8080", "listen address")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("redis-addr", "", "redis address; empty uses the in-memory store")
	flags.String("redis-password", "", "redis password")
	flags.Int("redis-db", 0, "redis database number")
	flags.String("policy-file", "", "YAML file with per-purpose policies")
	flags.Duration("sweep-interval", 0, "evict expired windows this often (0 disables)")
	flags.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")

	for _, name := range []string{
		"addr", "log-level", "redis-addr", "redis-password", "redis-db",
		"policy-file", "sweep-interval", "shutdown-timeout",
	} {
		if err := v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// loadConfig resolves settings from flags, AUTHFENCE_* environment variables
// and an optional config file, in viper's usual precedence order.
func loadConfig(v *viper.Viper, configFile string) (*serverConfig, error) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg serverConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *serverConfig) validate() error {
	if c.Addr == "" {
		return errors.New("addr cannot be empty")
	}
	if c.SweepInterval < 0 {
		return errors.New("sweep interval cannot be negative")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return nil
}

// limiterConfig returns the policy configuration the limiter runs with.
// The sweep interval flag overrides the one in the policy file when set.
func (c *serverConfig) limiterConfig() (*authfence.Config, error) {
	cfg := authfence.DefaultConfig()
	if c.PolicyFile != "" {
		loaded, err := authfence.LoadConfigFromFile(c.PolicyFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if c.SweepInterval > 0 {
		cfg.SweepInterval = c.SweepInterval
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if lvl.Level() == zapcore.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = lvl
	return zcfg.Build()
}

package authfence

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Purposes used by the CRM's pre-authentication routes.
const (
	PurposeLogin         = "login"
	PurposeSignup        = "signup"
	PurposePasswordReset = "pwreset"
)

// Config holds the caller-side rate limiting configuration: one policy per
// purpose label, the key strategy and the optional sweep interval.
type Config struct {
	// Policies maps a purpose label ("login", "signup", ...) to its quota
	Policies map[string]PolicyConfig `yaml:"policies" mapstructure:"policies"`

	// KeyExtractor specifies how to identify clients
	// Examples: "fingerprint", "origin", "header:X-API-Key"
	KeyExtractor string `yaml:"key_extractor,omitempty" mapstructure:"key_extractor"`

	// SweepInterval controls how often expired windows are evicted.
	// "0s" keeps passive expiry only.
	SweepInterval time.Duration `yaml:"sweep_interval,omitempty" mapstructure:"sweep_interval"`
}

// PolicyConfig defines the fixed window quota for a purpose.
type PolicyConfig struct {
	// Limit is the number of requests allowed per window
	Limit int `yaml:"limit" mapstructure:"limit"`

	// Window is the length of each window, e.g. "10m"
	Window time.Duration `yaml:"window" mapstructure:"window"`
}

// DefaultConfig returns the quotas the CRM's auth routes use.
func DefaultConfig() *Config {
	return &Config{
		Policies: map[string]PolicyConfig{
			PurposeLogin:         {Limit: 20, Window: 10 * time.Minute},
			PurposeSignup:        {Limit: 10, Window: 10 * time.Minute},
			PurposePasswordReset: {Limit: 5, Window: 10 * time.Minute},
		},
		KeyExtractor: "fingerprint",
	}
}

// LoadConfigFromFile loads configuration from a YAML file.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrInvalidConfig, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", ErrInvalidConfig, err)
	}

	if config.KeyExtractor == "" {
		config.KeyExtractor = "fingerprint"
	}
	if config.Policies == nil {
		config.Policies = make(map[string]PolicyConfig)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	for purpose, policy := range c.Policies {
		if purpose == "" {
			return fmt.Errorf("%w: empty purpose label", ErrInvalidConfig)
		}
		if err := policy.Validate(); err != nil {
			return fmt.Errorf("%w: invalid policy for purpose %s: %v", ErrInvalidConfig, purpose, err)
		}
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("%w: sweep interval cannot be negative", ErrInvalidConfig)
	}
	if _, err := ParseKeyExtractorConfig(c.KeyExtractor); err != nil {
		return err
	}
	return nil
}

// Validate checks if a PolicyConfig is valid.
func (p PolicyConfig) Validate() error {
	if p.Limit <= 0 || p.Window <= 0 {
		return ErrInvalidPolicy
	}
	return nil
}

// GetPolicy returns the policy for a purpose.
func (c *Config) GetPolicy(purpose string) (PolicyConfig, bool) {
	policy, ok := c.Policies[purpose]
	return policy, ok
}

// SetPolicy sets the policy for a purpose.
func (c *Config) SetPolicy(purpose string, policy PolicyConfig) error {
	if purpose == "" {
		return fmt.Errorf("%w: empty purpose label", ErrInvalidConfig)
	}
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Policies == nil {
		c.Policies = make(map[string]PolicyConfig)
	}
	c.Policies[purpose] = policy
	return nil
}

// Purposes returns the configured purpose labels in sorted order.
func (c *Config) Purposes() []string {
	purposes := make([]string, 0, len(c.Policies))
	for purpose := range c.Policies {
		purposes = append(purposes, purpose)
	}
	sort.Strings(purposes)
	return purposes
}

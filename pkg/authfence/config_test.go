package authfence

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())

	login, ok := config.GetPolicy(PurposeLogin)
	require.True(t, ok)
	assert.Equal(t, PolicyConfig{Limit: 20, Window: 10 * time.Minute}, login)

	signup, _ := config.GetPolicy(PurposeSignup)
	assert.Equal(t, 10, signup.Limit)

	reset, _ := config.GetPolicy(PurposePasswordReset)
	assert.Equal(t, 5, reset.Limit)

	assert.Equal(t, []string{"login", "pwreset", "signup"}, config.Purposes())
	assert.Equal(t, time.Duration(0), config.SweepInterval)
}

func TestPolicyConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  PolicyConfig
		wantErr bool
	}{
		{name: "valid", policy: PolicyConfig{Limit: 5, Window: time.Minute}},
		{name: "zero limit", policy: PolicyConfig{Limit: 0, Window: time.Minute}, wantErr: true},
		{name: "negative limit", policy: PolicyConfig{Limit: -1, Window: time.Minute}, wantErr: true},
		{name: "zero window", policy: PolicyConfig{Limit: 5}, wantErr: true},
		{name: "negative window", policy: PolicyConfig{Limit: 5, Window: -time.Second}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPolicy)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	config := DefaultConfig()
	config.Policies["broken"] = PolicyConfig{Limit: 0, Window: time.Minute}
	assert.ErrorIs(t, config.Validate(), ErrInvalidConfig)

	config = DefaultConfig()
	config.KeyExtractor = "bogus"
	assert.ErrorIs(t, config.Validate(), ErrInvalidConfig)

	config = DefaultConfig()
	config.SweepInterval = -time.Second
	assert.ErrorIs(t, config.Validate(), ErrInvalidConfig)
}

func TestConfig_SetPolicy(t *testing.T) {
	config := &Config{}

	require.NoError(t, config.SetPolicy("invite", PolicyConfig{Limit: 3, Window: time.Hour}))
	policy, ok := config.GetPolicy("invite")
	require.True(t, ok)
	assert.Equal(t, 3, policy.Limit)

	assert.ErrorIs(t, config.SetPolicy("invite", PolicyConfig{}), ErrInvalidConfig)
	assert.ErrorIs(t, config.SetPolicy("", PolicyConfig{Limit: 1, Window: time.Second}), ErrInvalidConfig)

	_, ok = config.GetPolicy("missing")
	assert.False(t, ok)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "authfence.yaml")
	content := `
policies:
  login:
    limit: 20
    window: 10m
  pwreset:
    limit: 5
    window: 10m
key_extractor: origin
sweep_interval: 5m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	config, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "origin", config.KeyExtractor)
	assert.Equal(t, 5*time.Minute, config.SweepInterval)
	assert.Equal(t, PolicyConfig{Limit: 5, Window: 10 * time.Minute}, config.Policies["pwreset"])
	assert.Len(t, config.Policies, 2)
}

func TestLoadConfigFromFile_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sweep_interval: 0s\n"), 0o600))

	config, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fingerprint", config.KeyExtractor)
	assert.NotNil(t, config.Policies)
}

func TestLoadConfigFromFile_Errors(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policies: [not, a, map]\n"), 0o600))
	_, err = LoadConfigFromFile(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	path = filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policies:\n  login:\n    limit: 0\n    window: 1m\n"), 0o600))
	_, err = LoadConfigFromFile(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

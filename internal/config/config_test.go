package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "load default configuration",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0", cfg.ServerHost)
				assert.Equal(t, 8080, cfg.ServerPort)
				assert.Equal(t, "postgres", cfg.DBDriver)
				assert.Equal(t, 25, cfg.DBMaxOpenConnections)
				assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
				assert.Equal(t, 4*time.Hour, cfg.AuthTokenExpiration)
				assert.Equal(t, 8, cfg.TokenizeMaxAttempts)
				assert.Equal(t, GovernanceModeClientPolicy, cfg.GovernanceMode)
				assert.Equal(t, 2*time.Second, cfg.GovernanceTimeout)
				assert.Equal(t, "token_rest", cfg.MetricsNamespace)
			},
		},
		{
			name: "load custom governance configuration",
			envVars: map[string]string{
				"GOVERNANCE_MODE":             "remote",
				"GOVERNANCE_TIMEOUT_SECONDS":  "5",
				"GOVERNANCE_REMOTE_URL":       "https://governance.internal/decide",
				"GOVERNANCE_REMOTE_RETRY_MAX": "4",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, GovernanceModeRemote, cfg.GovernanceMode)
				assert.Equal(t, 5*time.Second, cfg.GovernanceTimeout)
				assert.Equal(t, "https://governance.internal/decide", cfg.GovernanceRemoteURL)
				assert.Equal(t, 4, cfg.GovernanceRemoteRetryMax)
			},
		},
		{
			name: "load custom tokenization configuration",
			envVars: map[string]string{
				"TOKENIZE_MAX_ATTEMPTS": "3",
				"MASTER_KEYS":           "mk-2026:c21HYmptNzFOeGQxSWc1RlMwd2o5U2xiekFJcm5vbEM=",
				"ACTIVE_MASTER_KEY_ID":  "mk-2026",
				"KMS_KEY_URI":           "base64key://smGbjm71Nxd1Ig5FS0wj9SlbzAIrnolCz9bQQ6uAhl4=",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 3, cfg.TokenizeMaxAttempts)
				assert.Equal(t, "mk-2026:c21HYmptNzFOeGQxSWc1RlMwd2o5U2xiekFJcm5vbEM=", cfg.MasterKeys)
				assert.Equal(t, "mk-2026", cfg.ActiveMasterKeyID)
				assert.Equal(t, "base64key://smGbjm71Nxd1Ig5FS0wj9SlbzAIrnolCz9bQQ6uAhl4=", cfg.KMSKeyURI)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg := Load()
			tt.validate(t, cfg)
		})
	}
}

func TestGetGinMode(t *testing.T) {
	tests := []struct {
		logLevel string
		expected string
	}{
		{"debug", "debug"},
		{"info", "release"},
		{"error", "release"},
		{"", "release"},
	}

	for _, tt := range tests {
		t.Run(tt.logLevel, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}
			assert.Equal(t, tt.expected, cfg.GetGinMode())
		})
	}
}

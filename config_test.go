package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	session "github.com/projectflow/go-session"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := session.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, session.BackendDirect, cfg.Backend)
	assert.Equal(t, "http://localhost:5000/api", cfg.APIBaseURL)
	assert.Equal(t, 168, cfg.TokenTTLHours)
	assert.Empty(t, cfg.StateDSN)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("PROJECTFLOW_BACKEND", "managed")
	t.Setenv("PROJECTFLOW_IDENTITY_URL", "https://identity.example.com")
	t.Setenv("PROJECTFLOW_IDENTITY_KEY", "anon-key")
	t.Setenv("PROJECTFLOW_STATE_DSN", "file:state.db")
	t.Setenv("PROJECTFLOW_TOKEN_TTL_HOURS", "24")

	cfg, err := session.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, session.BackendManaged, cfg.Backend)
	assert.Equal(t, "https://identity.example.com", cfg.IdentityURL)
	assert.Equal(t, "anon-key", cfg.IdentityKey)
	assert.Equal(t, "file:state.db", cfg.StateDSN)
	assert.Equal(t, 24, cfg.TokenTTLHours)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     session.Config
		wantErr string
	}{
		{
			name: "direct with base url",
			cfg:  session.Config{Backend: session.BackendDirect, APIBaseURL: "http://localhost:5000/api"},
		},
		{
			name:    "direct without base url",
			cfg:     session.Config{Backend: session.BackendDirect},
			wantErr: "API base URL",
		},
		{
			name: "managed with identity url",
			cfg:  session.Config{Backend: session.BackendManaged, IdentityURL: "https://identity.example.com"},
		},
		{
			name:    "managed without identity url",
			cfg:     session.Config{Backend: session.BackendManaged},
			wantErr: "identity service URL",
		},
		{
			name:    "unknown backend",
			cfg:     session.Config{Backend: "firebase"},
			wantErr: "unknown backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	t.Setenv("PROJECTFLOW_BACKEND", "firebase")

	_, err := session.LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}

package session

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// BackendKind selects which adapter variant the process runs with. The
// choice is made once at start, never per-call.
type BackendKind string

const (
	// BackendDirect talks to the bespoke REST API with bearer tokens.
	BackendDirect BackendKind = "direct"
	// BackendManaged delegates identity to the hosted service plus a
	// profile store.
	BackendManaged BackendKind = "managed"
)

// Config carries everything the process needs to assemble a session
// stack. Values come from the environment; see the env tags.
type Config struct {
	// Backend picks the adapter variant.
	Backend BackendKind `env:"PROJECTFLOW_BACKEND" envDefault:"direct"`

	// APIBaseURL is the direct variant's REST root.
	APIBaseURL string `env:"PROJECTFLOW_API_URL" envDefault:"http://localhost:5000/api"`

	// IdentityURL is the managed variant's identity-service root.
	IdentityURL string `env:"PROJECTFLOW_IDENTITY_URL"`

	// IdentityKey is the managed variant's public API key.
	IdentityKey string `env:"PROJECTFLOW_IDENTITY_KEY"`

	// StateDSN locates the sqlite database backing LocalStore. Empty
	// means state is kept in memory only.
	StateDSN string `env:"PROJECTFLOW_STATE_DSN"`

	// SigningKey and TokenTTLHours configure the reference backend's
	// token service.
	SigningKey    string `env:"PROJECTFLOW_SIGNING_KEY"`
	TokenTTLHours int    `env:"PROJECTFLOW_TOKEN_TTL_HOURS" envDefault:"168"`
}

// LoadConfig reads Config from the environment and validates the backend
// selection.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("session: failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the backend selection and its required settings.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendDirect:
		if c.APIBaseURL == "" {
			return fmt.Errorf("session: direct backend requires an API base URL")
		}
	case BackendManaged:
		if c.IdentityURL == "" {
			return fmt.Errorf("session: managed backend requires an identity service URL")
		}
	default:
		return fmt.Errorf("session: unknown backend kind %q", c.Backend)
	}
	return nil
}

// Package provider assembles a session.Backend from configuration. The
// variant is chosen exactly once, at process start; nothing in the
// session layer branches on it afterwards.
package provider

import (
	"fmt"

	session "github.com/projectflow/go-session"
	"github.com/projectflow/go-session/provider/direct"
	"github.com/projectflow/go-session/provider/managed"
)

// FromConfig builds the backend the configuration selects. The store
// receives the direct variant's bearer token and the managed variant's
// session handle.
func FromConfig(cfg session.Config, store session.Store) (session.Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case session.BackendDirect:
		return direct.New(direct.Config{
			BaseURL: cfg.APIBaseURL,
		}, store), nil
	case session.BackendManaged:
		return managed.New(managed.Config{
			BaseURL:  cfg.IdentityURL,
			APIKey:   cfg.IdentityKey,
			Sessions: store,
		})
	default:
		return nil, fmt.Errorf("provider: unknown backend kind %q", cfg.Backend)
	}
}

package managed

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	session "github.com/projectflow/go-session"
)

// TokenValidator checks identity-service access tokens against the
// service's JWKS before any network round-trip, so an expired handle is
// recognized locally and reported with the same typed error the remote
// check would produce.
type TokenValidator struct {
	jwks *keyfunc.JWKS
}

// NewTokenValidator fetches the JWKS from the given URL and keeps it
// refreshed in the background.
func NewTokenValidator(jwksURL string) (*TokenValidator, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("managed: failed to load JWKS: %w", err)
	}
	return &TokenValidator{jwks: jwks}, nil
}

// NewTokenValidatorFromJWKS wraps an already constructed key set. Useful
// with keyfunc.NewGiven in tests.
func NewTokenValidatorFromJWKS(jwks *keyfunc.JWKS) *TokenValidator {
	return &TokenValidator{jwks: jwks}
}

// Validate parses and verifies the token. Expired or otherwise invalid
// tokens map to session.ErrTokenInvalid so callers get the standard
// eviction signal.
func (v *TokenValidator) Validate(raw string) error {
	token, err := jwt.Parse(raw, v.jwks.Keyfunc)
	if err != nil {
		rich := session.ErrTokenInvalid.Clone()
		rich.Source = err
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return rich.WithMetadata(map[string]any{"cause": "expired"})
		}
		return rich.WithMetadata(map[string]any{"cause": err.Error()})
	}

	if !token.Valid {
		return session.ErrTokenInvalid
	}

	return nil
}

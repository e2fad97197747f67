package server

import (
	stderrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	session "github.com/projectflow/go-session"
)

// DefaultTokenTTL is the fixed validity horizon the credential encodes.
const DefaultTokenTTL = 7 * 24 * time.Hour

const tokenIssuer = "projectflow"

// TokenService mints and verifies the HS256 bearer tokens the direct
// adapter carries. Clients treat the token as opaque; only this package
// inspects it.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

// NewTokenService creates a token service. A zero ttl falls back to
// DefaultTokenTTL.
func NewTokenService(signingKey []byte, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		signingKey: signingKey,
		ttl:        ttl,
		now:        time.Now,
	}
}

// WithClock injects a custom clock (useful for tests).
func (ts *TokenService) WithClock(clock func() time.Time) *TokenService {
	if clock != nil {
		ts.now = clock
	}
	return ts
}

// Generate signs a token for the given account id.
func (ts *TokenService) Generate(accountID string) (string, error) {
	now := ts.now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ts.signingKey)
}

// Verify parses the token and returns the account id it was minted for.
// Expired, malformed, or mis-signed tokens all map to the standard
// token-invalid error.
func (ts *TokenService) Verify(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return ts.signingKey, nil
	}, jwt.WithTimeFunc(ts.now))
	if err != nil {
		rich := session.ErrTokenInvalid.Clone()
		rich.Source = err
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return "", rich.WithMetadata(map[string]any{"cause": "expired"})
		}
		return "", rich.WithMetadata(map[string]any{"cause": err.Error()})
	}

	if !token.Valid || claims.Subject == "" {
		return "", session.ErrTokenInvalid
	}

	return claims.Subject, nil
}

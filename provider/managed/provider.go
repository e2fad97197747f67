package managed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	session "github.com/projectflow/go-session"
)

const defaultProfileTable = "profiles"

// Config holds the managed adapter's settings.
type Config struct {
	// BaseURL is the identity service root, e.g. https://xyz.identity.example.
	BaseURL string

	// APIKey is the public API key sent with every request.
	APIKey string

	// ProfileTable names the profile relation. Defaults to "profiles".
	ProfileTable string

	// HTTPClient overrides the transport. Defaults to a 10s-timeout
	// client.
	HTTPClient *http.Client

	// Sessions is where the adapter keeps its session handle between
	// restarts. Session persistence is this adapter's own concern, not
	// the controller's; defaults to an in-memory slot.
	Sessions session.TokenStore

	// Validator optionally pre-checks access tokens locally via JWKS,
	// catching expiry without a network round-trip.
	Validator *TokenValidator

	Logger session.Logger
}

// Provider talks to the identity service and the profile store. It
// implements session.Backend.
type Provider struct {
	config     Config
	httpClient *http.Client
	sessions   session.TokenStore
	validator  *TokenValidator
	logger     session.Logger
}

var _ session.Backend = (*Provider)(nil)

// New creates a managed adapter.
func New(cfg Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("managed: base URL is required")
	}
	if cfg.ProfileTable == "" {
		cfg.ProfileTable = defaultProfileTable
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	sessions := cfg.Sessions
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = session.DefaultLogger()
	}

	return &Provider{
		config:     cfg,
		httpClient: client,
		sessions:   sessions,
		validator:  cfg.Validator,
		logger:     logger,
	}, nil
}

type accountPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type authPayload struct {
	AccessToken string          `json:"access_token"`
	User        *accountPayload `json:"user"`
	Error       string          `json:"error"`
	Message     string          `json:"msg"`
}

type profileRow struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Avatar string `json:"avatar"`
}

func (r profileRow) toUser() session.User {
	return session.User{
		ID:     r.ID,
		Name:   r.Name,
		Email:  r.Email,
		Role:   r.Role,
		Avatar: r.Avatar,
	}
}

// SignUp implements session.Backend. Step one creates the identity
// account; step two inserts the profile row with the role-derived
// avatar. A step-two failure is surfaced as ErrProfileOutOfSync and the
// remote account is left in place.
func (p *Provider) SignUp(ctx context.Context, input session.SignUpInput) (*session.User, error) {
	role, ok := session.ParseRole(input.Role)
	if !ok {
		return nil, errors.New("Invalid role. Must be teacher or student", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest)
	}

	auth := &authPayload{}
	status, err := p.do(ctx, http.MethodPost, "/auth/v1/signup", map[string]string{
		"email":    input.Email,
		"password": input.Password,
	}, "", auth)
	if err != nil {
		return nil, err
	}

	if status >= http.StatusBadRequest || auth.User == nil {
		if status == http.StatusConflict || status == http.StatusUnprocessableEntity {
			return nil, session.ErrEmailTaken
		}
		return nil, identityError(status, auth)
	}

	row := profileRow{
		ID:     auth.User.ID,
		Name:   input.Name,
		Email:  auth.User.Email,
		Role:   role,
		Avatar: session.AvatarForRole(role),
	}

	if err := p.insertProfile(ctx, auth.AccessToken, row); err != nil {
		rich := session.ErrProfileOutOfSync.Clone()
		rich.Source = err
		return nil, rich.WithMetadata(map[string]any{
			"account_id": auth.User.ID,
		})
	}

	p.storeHandle(ctx, auth.AccessToken)

	user := row.toUser()
	return &user, nil
}

// LogIn implements session.Backend.
func (p *Provider) LogIn(ctx context.Context, email, password string) (*session.User, error) {
	auth := &authPayload{}
	status, err := p.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	}, "", auth)
	if err != nil {
		return nil, err
	}

	if status >= http.StatusBadRequest || auth.User == nil {
		// The service reports bad credentials and unknown accounts the
		// same way; keep them merged.
		if status == http.StatusBadRequest || status == http.StatusUnauthorized {
			return nil, session.ErrInvalidCredentials
		}
		return nil, identityError(status, auth)
	}

	user, err := p.fetchProfile(ctx, auth.AccessToken, auth.User.ID)
	if err != nil {
		return nil, err
	}

	p.storeHandle(ctx, auth.AccessToken)
	return user, nil
}

// CurrentUser implements session.Backend. The held session handle is
// validated with the service, then the profile row is fetched.
func (p *Provider) CurrentUser(ctx context.Context) (*session.User, error) {
	handle, err := p.sessions.GetToken(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read session handle")
	}
	if handle == "" {
		return nil, session.ErrTokenMissing
	}

	if p.validator != nil {
		if err := p.validator.Validate(handle); err != nil {
			return nil, err
		}
	}

	account := &accountPayload{}
	status, err := p.do(ctx, http.MethodGet, "/auth/v1/user", nil, handle, account)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, session.ErrTokenInvalid
	}
	if status >= http.StatusBadRequest || account.ID == "" {
		return nil, identityError(status, nil)
	}

	return p.fetchProfile(ctx, handle, account.ID)
}

// ListUsers implements session.Backend. Whatever row-level policy the
// service enforces decides which profiles come back.
func (p *Provider) ListUsers(ctx context.Context) ([]session.User, error) {
	handle, err := p.sessions.GetToken(ctx)
	if err != nil {
		p.logger.Warn("failed to read session handle: %v", err)
	}

	rows := []profileRow{}
	status, err := p.do(ctx, http.MethodGet, p.profilePath(""), nil, handle, &rows)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest {
		return nil, identityError(status, nil)
	}

	users := make([]session.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

// LogOut implements session.Backend. The remote sign-out is attempted
// with the current handle; the local handle is dropped regardless.
func (p *Provider) LogOut(ctx context.Context) error {
	handle, err := p.sessions.GetToken(ctx)
	if err != nil {
		p.logger.Warn("failed to read session handle: %v", err)
	}

	if err := p.sessions.ClearToken(ctx); err != nil {
		p.logger.Warn("failed to clear session handle: %v", err)
	}

	if handle == "" {
		return nil
	}

	status, err := p.do(ctx, http.MethodPost, "/auth/v1/logout", nil, handle, nil)
	if err != nil {
		return err
	}
	if status >= http.StatusBadRequest && status != http.StatusUnauthorized {
		return identityError(status, nil)
	}
	return nil
}

func (p *Provider) profilePath(accountID string) string {
	path := "/rest/v1/" + p.config.ProfileTable
	if accountID != "" {
		path += "?id=eq." + accountID
	}
	return path
}

func (p *Provider) insertProfile(ctx context.Context, handle string, row profileRow) error {
	status, err := p.do(ctx, http.MethodPost, p.profilePath(""), row, handle, nil)
	if err != nil {
		return err
	}
	if status >= http.StatusBadRequest {
		return errors.New("profile insert rejected", errors.CategoryInternal).
			WithMetadata(map[string]any{"status": status})
	}
	return nil
}

func (p *Provider) fetchProfile(ctx context.Context, handle, accountID string) (*session.User, error) {
	rows := []profileRow{}
	status, err := p.do(ctx, http.MethodGet, p.profilePath(accountID), nil, handle, &rows)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest {
		return nil, identityError(status, nil)
	}
	if len(rows) == 0 {
		return nil, session.ErrUserNotFound
	}

	user := rows[0].toUser()
	return &user, nil
}

func (p *Provider) storeHandle(ctx context.Context, handle string) {
	if handle == "" {
		return
	}
	if err := p.sessions.SetToken(ctx, handle); err != nil {
		p.logger.Warn("failed to persist session handle: %v", err)
	}
}

func (p *Provider) do(ctx context.Context, method, path string, payload any, handle string, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, errors.Wrap(err, errors.CategoryInternal, "failed to encode request payload")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.config.BaseURL+path, body)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		req.Header.Set("apikey", p.config.APIKey)
	}
	if handle != "" {
		req.Header.Set("Authorization", "Bearer "+handle)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		rich := session.ErrBackendUnreachable.Clone()
		rich.Source = err
		return 0, rich.WithMetadata(map[string]any{
			"method": method,
			"path":   path,
			"cause":  err.Error(),
		})
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && resp.StatusCode < http.StatusBadRequest {
			return resp.StatusCode, errors.Wrap(err, errors.CategoryInternal, "failed to decode response")
		}
	}

	return resp.StatusCode, nil
}

func identityError(status int, auth *authPayload) error {
	message := ""
	if auth != nil {
		message = auth.Error
		if message == "" {
			message = auth.Message
		}
	}
	if message == "" {
		message = fmt.Sprintf("identity service error (status %d)", status)
	}
	return errors.New(message, errors.CategoryInternal).
		WithMetadata(map[string]any{"status": status})
}

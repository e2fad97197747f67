package direct

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

const defaultBaseURL = "http://localhost:5000/api"

// Config holds the direct adapter's settings.
type Config struct {
	// BaseURL is the REST root, e.g. http://localhost:5000/api.
	BaseURL string

	// HTTPClient overrides the transport. Defaults to a 10s-timeout
	// client.
	HTTPClient *http.Client

	Logger session.Logger
}

// Client talks to the credential service. It implements session.Backend.
type Client struct {
	config     Config
	httpClient *http.Client
	tokens     session.TokenStore
	logger     session.Logger
}

var _ session.Backend = (*Client)(nil)

// New creates a direct adapter. The TokenStore receives the bearer token
// on successful signup and login, and is consulted on every
// authenticated call.
func New(cfg Config, tokens session.TokenStore) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = session.DefaultLogger()
	}

	if tokens == nil {
		tokens = session.NewMemoryStore()
	}

	return &Client{
		config:     cfg,
		httpClient: client,
		tokens:     tokens,
		logger:     logger,
	}
}

type userPayload struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Avatar string `json:"avatar"`
}

func (p userPayload) toUser() session.User {
	return session.User{
		ID:     p.ID,
		Name:   p.Name,
		Email:  p.Email,
		Role:   p.Role,
		Avatar: p.Avatar,
	}
}

type apiResponse struct {
	Success bool          `json:"success"`
	User    *userPayload  `json:"user,omitempty"`
	Users   []userPayload `json:"users,omitempty"`
	Token   string        `json:"token,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// SignUp implements session.Backend.
func (c *Client) SignUp(ctx context.Context, input session.SignUpInput) (*session.User, error) {
	resp, status, err := c.do(ctx, http.MethodPost, "/auth/signup", input, false)
	if err != nil {
		return nil, err
	}

	if !resp.Success || resp.User == nil {
		return nil, mapSignupError(status, resp.Error)
	}

	if resp.Token != "" {
		if err := c.tokens.SetToken(ctx, resp.Token); err != nil {
			c.logger.Warn("failed to persist token: %v", err)
		}
	}

	user := resp.User.toUser()
	return &user, nil
}

// LogIn implements session.Backend.
func (c *Client) LogIn(ctx context.Context, email, password string) (*session.User, error) {
	payload := map[string]string{"email": email, "password": password}

	resp, status, err := c.do(ctx, http.MethodPost, "/auth/login", payload, false)
	if err != nil {
		return nil, err
	}

	if !resp.Success || resp.User == nil {
		if status == http.StatusUnauthorized {
			return nil, session.ErrInvalidCredentials
		}
		return nil, serverError(status, resp.Error, "Login failed. Please try again.")
	}

	if resp.Token != "" {
		if err := c.tokens.SetToken(ctx, resp.Token); err != nil {
			c.logger.Warn("failed to persist token: %v", err)
		}
	}

	user := resp.User.toUser()
	return &user, nil
}

// CurrentUser implements session.Backend. With no stored token it fails
// immediately with the missing-token error; the server would answer 401
// anyway, so there is nothing to ask it.
func (c *Client) CurrentUser(ctx context.Context) (*session.User, error) {
	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read stored token")
	}
	if token == "" {
		return nil, session.ErrTokenMissing
	}

	resp, status, err := c.do(ctx, http.MethodGet, "/auth/me", nil, true)
	if err != nil {
		return nil, err
	}

	if !resp.Success || resp.User == nil {
		switch status {
		case http.StatusUnauthorized:
			return nil, session.ErrTokenInvalid
		case http.StatusNotFound:
			return nil, session.ErrUserNotFound
		default:
			return nil, serverError(status, resp.Error, "Failed to get user")
		}
	}

	user := resp.User.toUser()
	return &user, nil
}

// ListUsers implements session.Backend. The endpoint is unauthenticated
// in this variant; the bearer token is attached when present but the
// server does not require it.
func (c *Client) ListUsers(ctx context.Context) ([]session.User, error) {
	resp, status, err := c.do(ctx, http.MethodGet, "/auth/users", nil, true)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, serverError(status, resp.Error, "Failed to get users")
	}

	users := make([]session.User, 0, len(resp.Users))
	for _, p := range resp.Users {
		users = append(users, p.toUser())
	}
	return users, nil
}

// LogOut implements session.Backend. The server holds no session state
// for this variant; logging out is clearing the client-held token.
func (c *Client) LogOut(ctx context.Context) error {
	return c.tokens.ClearToken(ctx)
}

func (c *Client) do(ctx context.Context, method, path string, payload any, authed bool) (*apiResponse, int, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.CategoryInternal, "failed to encode request payload")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.CategoryInternal, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	if authed {
		token, err := c.tokens.GetToken(ctx)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.CategoryInternal, "failed to read stored token")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, transportError(err, method, path)
	}
	defer httpResp.Body.Close()

	resp := &apiResponse{}
	if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
		resp = &apiResponse{
			Error: fmt.Sprintf("HTTP error! status: %d", httpResp.StatusCode),
		}
	}

	return resp, httpResp.StatusCode, nil
}

// transportError wraps a failed round-trip in the typed transport
// signal. Callers branch on session.IsTransportError, not on message
// text.
func transportError(err error, method, path string) error {
	rich := session.ErrBackendUnreachable.Clone()
	rich.Source = err
	return rich.WithMetadata(map[string]any{
		"method": method,
		"path":   path,
		"cause":  err.Error(),
	})
}

func mapSignupError(status int, message string) error {
	switch status {
	case http.StatusConflict:
		return session.ErrEmailTaken
	case http.StatusBadRequest:
		// Older deployments report duplicate emails as 400 with the
		// conflict message instead of 409. Recognize both.
		if message == session.ErrEmailTaken.Message {
			return session.ErrEmailTaken
		}
		if message == "" {
			message = "Sign up failed. Please try again."
		}
		return errors.New(message, errors.CategoryValidation).
			WithCode(errors.CodeBadRequest)
	default:
		return serverError(status, message, "Sign up failed. Please try again.")
	}
}

func serverError(status int, message, fallback string) error {
	if message == "" {
		message = fallback
	}
	return errors.New(message, errors.CategoryInternal).
		WithMetadata(map[string]any{"status": status})
}

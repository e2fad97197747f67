package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	session "github.com/projectflow/go-session"
	"github.com/projectflow/go-session/server"
)

func TestMain(m *testing.M) {
	server.HashCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type apiResponse struct {
	Success bool           `json:"success"`
	User    *session.User  `json:"user"`
	Users   []session.User `json:"users"`
	Token   string         `json:"token"`
	Error   string         `json:"error"`
}

func newTestServer(t *testing.T) *server.Server {
	t.Helper()

	db, err := server.OpenDatabase(context.Background(), "file:"+filepath.Join(t.TempDir(), "accounts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return server.New(db, server.Config{
		SigningKey: "test-signing-key",
		TokenTTL:   time.Hour,
	})
}

func doJSON(t *testing.T, s *server.Server, method, path string, payload any, headers map[string]string) (int, apiResponse) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := apiResponse{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func signupPayload() map[string]string {
	return map[string]string{
		"name":     "Grace",
		"email":    "grace@example.com",
		"password": "hunter22",
		"role":     session.RoleTeacher,
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	status, body := doJSON(t, s, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)
}

func TestSignupHappyPath(t *testing.T) {
	s := newTestServer(t)

	status, body := doJSON(t, s, http.MethodPost, "/api/auth/signup", signupPayload(), nil)
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, body.Success)
	assert.NotEmpty(t, body.Token)

	require.NotNil(t, body.User)
	assert.NotEmpty(t, body.User.ID)
	assert.Equal(t, "grace@example.com", body.User.Email)
	assert.Equal(t, session.RoleTeacher, body.User.Role)
	assert.Equal(t, session.AvatarTeacher, body.User.Avatar)
}

func TestSignupValidationMessages(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		mutate  func(map[string]string)
		message string
	}{
		{
			name:    "missing name",
			mutate:  func(p map[string]string) { delete(p, "name") },
			message: "All fields are required",
		},
		{
			name:    "missing password",
			mutate:  func(p map[string]string) { delete(p, "password") },
			message: "All fields are required",
		},
		{
			name:    "bad email shape",
			mutate:  func(p map[string]string) { p["email"] = "not-an-email" },
			message: "A valid email is required",
		},
		{
			name:    "short password",
			mutate:  func(p map[string]string) { p["password"] = "abc" },
			message: "Password must be at least 6 characters long",
		},
		{
			name:    "unknown role",
			mutate:  func(p map[string]string) { p["role"] = "admin" },
			message: "Invalid role. Must be teacher or student",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := signupPayload()
			tt.mutate(payload)

			status, body := doJSON(t, s, http.MethodPost, "/api/auth/signup", payload, nil)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.False(t, body.Success)
			assert.Equal(t, tt.message, body.Error)
		})
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	s := newTestServer(t)

	status, _ := doJSON(t, s, http.MethodPost, "/api/auth/signup", signupPayload(), nil)
	require.Equal(t, http.StatusCreated, status)

	status, body := doJSON(t, s, http.MethodPost, "/api/auth/signup", signupPayload(), nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "User with this email already exists", body.Error)
}

func TestSignupDuplicateEmailIsCaseInsensitive(t *testing.T) {
	s := newTestServer(t)

	status, _ := doJSON(t, s, http.MethodPost, "/api/auth/signup", signupPayload(), nil)
	require.Equal(t, http.StatusCreated, status)

	payload := signupPayload()
	payload["email"] = "Grace@Example.com"
	status, body := doJSON(t, s, http.MethodPost, "/api/auth/signup", payload, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "User with this email already exists", body.Error)
}

func TestLoginHappyPath(t *testing.T) {
	s := newTestServer(t)

	status, created := doJSON(t, s, http.MethodPost, "/api/auth/signup", signupPayload(), nil)
	require.Equal(t, http.StatusCreated, status)

	status, body := doJSON(t, s, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "grace@example.com",
		"password": "hunter22",
	}, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)
	assert.NotEmpty(t, body.Token)
	require.NotNil(t, body.User)
	assert.Equal(t, created.User.ID, body.User.ID)
}

func TestLoginIsCaseInsensitiveOnEmail(t *testing.T) {
	s := newTestServer(t)

	payload := signupPayload()
	payload["email"] = "Ada@Example.com"
	status, created := doJSON(t, s, http.MethodPost, "/api/auth/signup", payload, nil)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "ada@example.com", created.User.Email, "email is stored normalized")

	status, body := doJSON(t, s, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "hunter22",
	}, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created.User.ID, body.User.ID)
}

func TestLoginDoesNotEnumerateAccounts(t *testing.T) {
	s := newTestServer(t)

	status, _ := doJSON(t, s, http.MethodPost, "/api/auth/signup", signupPayload(), nil)
	require.Equal(t, http.StatusCreated, status)

	// Wrong password on a real account and any password on an unknown
	// account must be indistinguishable.
	wrongStatus, wrongBody := doJSON(t, s, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "grace@example.com",
		"password": "wrong-password",
	}, nil)
	unknownStatus, unknownBody := doJSON(t, s, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever1",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, wrongStatus)
	assert.Equal(t, http.StatusUnauthorized, unknownStatus)
	assert.Equal(t, "Invalid email or password", wrongBody.Error)
	assert.Equal(t, wrongBody.Error, unknownBody.Error)
}

func TestLoginRequiresBothFields(t *testing.T) {
	s := newTestServer(t)

	status, body := doJSON(t, s, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "grace@example.com",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Email and password are required", body.Error)
}

func TestMeRequiresToken(t *testing.T) {
	s := newTestServer(t)

	status, body := doJSON(t, s, http.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "No token provided", body.Error)
}

func TestMeRejectsBadToken(t *testing.T) {
	s := newTestServer(t)

	status, body := doJSON(t, s, http.MethodGet, "/api/auth/me", nil, map[string]string{
		"Authorization": "Bearer not-a-jwt",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired token", body.Error)
}

func TestMeRejectsExpiredToken(t *testing.T) {
	s := newTestServer(t)

	status, created := doJSON(t, s, http.MethodPost, "/api/auth/signup", signupPayload(), nil)
	require.Equal(t, http.StatusCreated, status)

	// Mint a token whose lifetime is already behind us.
	past := time.Now().Add(-48 * time.Hour)
	stale, err := s.Tokens().WithClock(func() time.Time { return past }).Generate(created.User.ID)
	require.NoError(t, err)
	s.Tokens().WithClock(time.Now)

	status, body := doJSON(t, s, http.MethodGet, "/api/auth/me", nil, map[string]string{
		"Authorization": "Bearer " + stale,
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired token", body.Error)
}

func TestMeReturnsCurrentUser(t *testing.T) {
	s := newTestServer(t)

	status, created := doJSON(t, s, http.MethodPost, "/api/auth/signup", signupPayload(), nil)
	require.Equal(t, http.StatusCreated, status)

	status, body := doJSON(t, s, http.MethodGet, "/api/auth/me", nil, map[string]string{
		"Authorization": "Bearer " + created.Token,
	})
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, body.User)
	assert.Equal(t, created.User.ID, body.User.ID)
	assert.Equal(t, created.User.Email, body.User.Email)
}

func TestMeUnknownAccount(t *testing.T) {
	s := newTestServer(t)

	// Valid signature, but the subject never existed.
	stale, err := s.Tokens().Generate("c7b0a9de-0000-4000-8000-000000000000")
	require.NoError(t, err)

	status, body := doJSON(t, s, http.MethodGet, "/api/auth/me", nil, map[string]string{
		"Authorization": "Bearer " + stale,
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "User not found", body.Error)
}

func TestListUsersIsUnauthenticated(t *testing.T) {
	s := newTestServer(t)

	for _, p := range []map[string]string{
		signupPayload(),
		{"name": "Alan", "email": "alan@example.com", "password": "enigma1", "role": session.RoleStudent},
	} {
		status, _ := doJSON(t, s, http.MethodPost, "/api/auth/signup", p, nil)
		require.Equal(t, http.StatusCreated, status)
	}

	status, body := doJSON(t, s, http.MethodGet, "/api/auth/users", nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.Users, 2)

	avatars := []string{body.Users[0].Avatar, body.Users[1].Avatar}
	assert.ElementsMatch(t, []string{session.AvatarTeacher, session.AvatarStudent}, avatars)
}

func TestDeterministicIDs(t *testing.T) {
	db, err := server.OpenDatabase(context.Background(), "file:"+filepath.Join(t.TempDir(), "first.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := server.New(db, server.Config{
		SigningKey:       "test-signing-key",
		DeterministicIDs: true,
	})

	status, created := doJSON(t, s, http.MethodPost, "/api/auth/signup", signupPayload(), nil)
	require.Equal(t, http.StatusCreated, status)

	// Same normalized email always derives the same id.
	db2, err := server.OpenDatabase(context.Background(), "file:"+filepath.Join(t.TempDir(), "second.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db2.Close() })

	s2 := server.New(db2, server.Config{
		SigningKey:       "test-signing-key",
		DeterministicIDs: true,
	})
	status, again := doJSON(t, s2, http.MethodPost, "/api/auth/signup", signupPayload(), nil)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, created.User.ID, again.User.ID)
}

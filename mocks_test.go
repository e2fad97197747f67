package session_test

import (
	"context"

	session "github.com/projectflow/go-session"
)

// mockBackend lets each test script the five capability calls and count
// how often they fire.
type mockBackend struct {
	signUpFn      func(ctx context.Context, input session.SignUpInput) (*session.User, error)
	logInFn       func(ctx context.Context, email, password string) (*session.User, error)
	currentUserFn func(ctx context.Context) (*session.User, error)
	listUsersFn   func(ctx context.Context) ([]session.User, error)
	logOutFn      func(ctx context.Context) error

	signUpCalls      int
	logInCalls       int
	currentUserCalls int
	listUsersCalls   int
	logOutCalls      int
}

var _ session.Backend = (*mockBackend)(nil)

func (m *mockBackend) SignUp(ctx context.Context, input session.SignUpInput) (*session.User, error) {
	m.signUpCalls++
	if m.signUpFn != nil {
		return m.signUpFn(ctx, input)
	}
	role, _ := session.ParseRole(input.Role)
	return &session.User{
		ID:     "mock-id",
		Name:   input.Name,
		Email:  input.Email,
		Role:   role,
		Avatar: session.AvatarForRole(role),
	}, nil
}

func (m *mockBackend) LogIn(ctx context.Context, email, password string) (*session.User, error) {
	m.logInCalls++
	if m.logInFn != nil {
		return m.logInFn(ctx, email, password)
	}
	return nil, session.ErrInvalidCredentials
}

func (m *mockBackend) CurrentUser(ctx context.Context) (*session.User, error) {
	m.currentUserCalls++
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx)
	}
	return nil, session.ErrTokenMissing
}

func (m *mockBackend) ListUsers(ctx context.Context) ([]session.User, error) {
	m.listUsersCalls++
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx)
	}
	return nil, nil
}

func (m *mockBackend) LogOut(ctx context.Context) error {
	m.logOutCalls++
	if m.logOutFn != nil {
		return m.logOutFn(ctx)
	}
	return nil
}

func teacherUser(id, name string) session.User {
	return session.User{
		ID:     id,
		Name:   name,
		Email:  name + "@example.com",
		Role:   session.RoleTeacher,
		Avatar: session.AvatarTeacher,
	}
}

func studentUser(id, name string) session.User {
	return session.User{
		ID:     id,
		Name:   name,
		Email:  name + "@example.com",
		Role:   session.RoleStudent,
		Avatar: session.AvatarStudent,
	}
}

type silentLogger struct{}

func (silentLogger) Debug(string, ...any) {}
func (silentLogger) Info(string, ...any)  {}
func (silentLogger) Warn(string, ...any)  {}
func (silentLogger) Error(string, ...any) {}

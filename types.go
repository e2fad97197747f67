package session

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Logger is the minimal logging surface this package needs. Callers plug
// in their own implementation through the With* builders.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// SignUpInput carries the four fields a new account needs. Avatar is not
// part of the input: it is derived from Role exactly once at signup.
type SignUpInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Validate enforces the local preconditions checked before any network
// call: none of the four fields may be empty.
func (i SignUpInput) Validate() error {
	err := validation.ValidateStruct(&i,
		validation.Field(&i.Name, validation.Required),
		validation.Field(&i.Email, validation.Required),
		validation.Field(&i.Password, validation.Required),
		validation.Field(&i.Role, validation.Required),
	)
	if err != nil {
		return ErrFieldsRequired.Clone().WithMetadata(map[string]any{
			"fields": err.Error(),
		})
	}
	return nil
}

// Backend is the capability set both adapter variants implement. The
// Controller is written once against this interface; the concrete
// variant is selected at process start, never per-call.
type Backend interface {
	// SignUp creates a new account. The returned User carries the
	// backend-assigned id and the role-derived avatar.
	SignUp(ctx context.Context, input SignUpInput) (*User, error)

	// LogIn authenticates by email (case-insensitive) and password. An
	// unknown account and a wrong password are indistinguishable to the
	// caller.
	LogIn(ctx context.Context, email, password string) (*User, error)

	// CurrentUser re-validates the held credential and returns the
	// associated User. A missing, invalid, or expired credential fails
	// with a token error (IsTokenError), distinct from "not found".
	CurrentUser(ctx context.Context) (*User, error)

	// ListUsers returns every known account with secrets stripped.
	ListUsers(ctx context.Context) ([]User, error)

	// LogOut clears backend-held session state where applicable.
	LogOut(ctx context.Context) error
}

// DefaultLogger returns the fallback stdout logger used when no Logger
// is configured.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

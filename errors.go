package session

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeFieldsRequired     = "session_fields_required"
	TextCodeInvalidCredentials = "session_invalid_credentials"
	TextCodeEmailTaken         = "session_email_taken"
	TextCodeTokenInvalid       = "session_token_invalid"
	TextCodeTokenMissing       = "session_token_missing"
	TextCodeUnreachable        = "session_backend_unreachable"
	TextCodeProfileOutOfSync   = "session_profile_out_of_sync"
	TextCodeInvalidTransition  = "session_invalid_transition"
	TextCodeUserNotFound       = "session_user_not_found"
)

// ErrUserNotFound is returned when a validated credential points at an
// account that no longer exists. Distinct from ErrTokenInvalid.
var ErrUserNotFound = errors.New("User not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrFieldsRequired is returned when a signup or login field is empty,
// before any network call is made.
var ErrFieldsRequired = errors.New("All fields are required", errors.CategoryValidation).
	WithTextCode(TextCodeFieldsRequired).
	WithCode(errors.CodeBadRequest)

// ErrInvalidCredentials covers both an unknown account and a wrong
// password. The two cases share one message so callers cannot enumerate
// accounts.
var ErrInvalidCredentials = errors.New("Invalid email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrEmailTaken is returned when signup hits an already registered email.
var ErrEmailTaken = errors.New("User with this email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrTokenInvalid is returned when the held credential fails
// re-validation. Kept distinct from ErrInvalidCredentials so the
// controller knows to evict the cached snapshot.
var ErrTokenInvalid = errors.New("Invalid or expired token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMissing is returned when re-validation is attempted with no
// stored credential.
var ErrTokenMissing = errors.New("No token provided", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMissing).
	WithCode(errors.CodeUnauthorized)

// ErrBackendUnreachable is the typed transport failure. Adapters wrap
// dial, DNS, and timeout errors with it instead of letting callers sniff
// error text.
var ErrBackendUnreachable = errors.New("Unable to reach the authentication backend", errors.CategoryOperation).
	WithTextCode(TextCodeUnreachable)

// ErrProfileOutOfSync is returned by the managed adapter when the
// identity account was created but the profile row insert failed. The
// orphaned account id travels in the error metadata.
var ErrProfileOutOfSync = errors.New("Account created but profile setup failed", errors.CategoryInternal).
	WithTextCode(TextCodeProfileOutOfSync)

// ErrInvalidTransition is returned when a controller operation is invoked
// from a state that does not allow it, e.g. a second Initialize.
var ErrInvalidTransition = errors.New("invalid session state transition", errors.CategoryConflict).
	WithTextCode(TextCodeInvalidTransition).
	WithCode(errors.CodeConflict)

func hasTextCode(err error, codes ...string) bool {
	if err == nil {
		return false
	}

	var rich *errors.Error
	if !errors.As(err, &rich) {
		return false
	}

	for _, code := range codes {
		if rich.TextCode == code {
			return true
		}
	}
	return false
}

// IsValidationError reports whether err is a local precondition failure.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	return errors.As(err, &rich) && rich.Category == errors.CategoryValidation
}

// IsCredentialError reports whether err is a credential rejection of any
// kind: wrong password, unknown account, or a bad token.
func IsCredentialError(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	return errors.As(err, &rich) && rich.Category == errors.CategoryAuth
}

// IsTokenError reports whether err specifically means the held credential
// is missing, invalid, or expired. This is the eviction signal: a stale
// snapshot must not survive it.
func IsTokenError(err error) bool {
	return hasTextCode(err, TextCodeTokenInvalid, TextCodeTokenMissing)
}

// IsConflictError reports whether err is a duplicate-email conflict.
func IsConflictError(err error) bool {
	return hasTextCode(err, TextCodeEmailTaken)
}

// IsTransportError reports whether err means the backend could not be
// reached at all. Distinct from credential rejection: the controller
// keeps optimistic state on transport failures.
func IsTransportError(err error) bool {
	return hasTextCode(err, TextCodeUnreachable)
}

// IsInconsistencyError reports whether err is the managed variant's
// two-step signup failing after the first step succeeded.
func IsInconsistencyError(err error) bool {
	return hasTextCode(err, TextCodeProfileOutOfSync)
}

// ErrorMessage maps any error to the human-readable string the
// application shows. Rich errors keep their message; transport failures
// get the connectivity hint; anything else falls back to err.Error().
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	if IsTransportError(err) {
		return "Network error: unable to connect to the server. Please check your connection and make sure the backend is running."
	}

	var rich *errors.Error
	if errors.As(err, &rich) && rich.Message != "" {
		return rich.Message
	}

	return err.Error()
}

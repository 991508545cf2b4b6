package identity

import "errors"

// Error carries a provider-style code and a message meant to be shown to the
// user as is.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code, so errors.Is(err, ErrWeakPassword) works for any
// *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidEmail      = &Error{Code: "auth/invalid-email", Message: "The email address is badly formatted."}
	ErrWeakPassword      = &Error{Code: "auth/weak-password", Message: "Password should be at least 6 characters."}
	ErrEmailInUse        = &Error{Code: "auth/email-already-in-use", Message: "The email address is already in use by another account."}
	ErrInvalidCredential = &Error{Code: "auth/invalid-credential", Message: "Invalid email or password."}
	ErrUserNotFound      = &Error{Code: "auth/user-not-found", Message: "There is no user record corresponding to this identifier."}
	ErrInvalidToken      = &Error{Code: "auth/invalid-id-token", Message: "The sign-in token is invalid or has expired."}
	ErrUnverifiedEmail   = &Error{Code: "auth/unverified-email", Message: "Verify your email address before signing in."}
	ErrProviderDisabled  = &Error{Code: "auth/operation-not-allowed", Message: "This sign-in method is not enabled."}
)

// networkError wraps a failure of the remote store.
func networkError(err error) *Error {
	return &Error{
		Code:    "auth/network-request-failed",
		Message: "A network error has occurred. Please try again.",
		Err:     err,
	}
}

// Code returns the code of err, or "" when err is not an identity error.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

package identity

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the service reports to its callers.
type Kind int

const (
	KindStoreUnavailable Kind = iota
	KindValidation
	KindPasswordMismatch
	KindDuplicateAccount
	KindInvalidCredentials
	KindAccountInactive
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPasswordMismatch:
		return "password_mismatch"
	case KindDuplicateAccount:
		return "duplicate_account"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindAccountInactive:
		return "account_inactive"
	default:
		return "store_unavailable"
	}
}

// Message is the text shown to the caller for k.
func (k Kind) Message() string {
	switch k {
	case KindValidation:
		return "Please fill out all required fields."
	case KindPasswordMismatch:
		return "Passwords do not match."
	case KindDuplicateAccount:
		return "An account with that email already exists."
	case KindInvalidCredentials:
		return "Invalid email or password."
	case KindAccountInactive:
		return "This account is currently inactive."
	default:
		return "Something went wrong. Please try again."
	}
}

// Error is returned by Service operations. Err holds the underlying cause, if
// any, for logging only.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the caller-facing text.
func (e *Error) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.Message()
}

func newError(kind Kind, err error) *Error { return &Error{Kind: kind, Err: err} }

// KindOf reports the kind of err. Errors that are not *Error are treated as
// store failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStoreUnavailable
}

// MessageOf returns the caller-facing text for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message()
	}
	return KindStoreUnavailable.Message()
}

package service

import "errors"

// Kind classifies a service failure; the HTTP layer maps it to a status code.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindStorage
)

// Error is returned by every Service operation that fails.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrUserNotFound        = &Error{Kind: KindNotFound, Message: "User not found."}
	ErrTransactionNotFound = &Error{Kind: KindNotFound, Message: "Transaction not found."}
	ErrInvalidCredentials  = &Error{Kind: KindUnauthorized, Message: "Invalid credentials."}
	ErrEmailTaken          = &Error{Kind: KindConflict, Message: "Email is already registered."}
)

// NewError builds an Error of the given kind, for callers that validate input
// before it reaches the service.
func NewError(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

func validationError(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func storageError(err error) error {
	return &Error{Kind: KindStorage, Message: "storage error", Err: err}
}

// KindOf extracts the Kind of err, or KindStorage for errors from outside the service.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// Package apperr classifies user-facing failures.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// AuthRequest: the one-time code could not be sent.
	AuthRequest Kind = iota + 1
	// AuthVerify: the submitted code was rejected.
	AuthVerify
	// Fetch: the visitor list query failed.
	Fetch
	// NotFound: no candidate table held the requested visitor.
	NotFound
	// StorageAccess: the local credential store could not be read or written.
	StorageAccess
)

func (k Kind) String() string {
	switch k {
	case AuthRequest:
		return "auth request"
	case AuthVerify:
		return "auth verify"
	case Fetch:
		return "fetch"
	case NotFound:
		return "not found"
	case StorageAccess:
		return "storage access"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Fallback is the message shown when the cause carries no text.
func (k Kind) Fallback() string {
	switch k {
	case AuthRequest:
		return "Failed to send sign-in link."
	case AuthVerify:
		return "Invalid code."
	case Fetch:
		return "Failed to load visitors."
	case NotFound:
		return "Visitor not found."
	}
	return "Something went wrong."
}

type Error struct {
	Kind Kind
	Err  error
}

func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Fallback()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// messager is implemented by backend errors that carry a human message.
type messager interface {
	UserMessage() string
}

// Message converts err into the text shown next to the failing control.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var m messager
	if errors.As(err, &m) {
		if msg := m.UserMessage(); msg != "" {
			return msg
		}
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Err == nil {
			return e.Kind.Fallback()
		}
		if msg := e.Err.Error(); msg != "" {
			return msg
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

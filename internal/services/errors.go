// Package services defines the business logic for place search, search
// history, and user accounts. This file centralizes common service-level
// error values and the typed errors produced by the search pipeline so
// that they can be consistently returned by service methods and checked
// by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound indicates that the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrSearchNotFound indicates that the requested search record does
	// not exist.
	ErrSearchNotFound = errors.New("search record not found")

	// ErrEmailTaken is returned when registration is attempted with an
	// email address that already belongs to another account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned when a login attempt presents a
	// password that does not match the stored digest.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidInput is returned when a required field is blank.
	ErrInvalidInput = errors.New("name, email and password are required")
)

// FetchError indicates that the upstream catalog could not be reached or
// answered with a non-OK status. Status is the HTTP status code received,
// or zero when the failure happened below HTTP (DNS, dial, timeout).
type FetchError struct {
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch places: upstream status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("fetch places: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError indicates that the upstream payload could not be decoded.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse places: %v", e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// PersistError indicates that a fully parsed result could not be stored.
// It wraps ErrUserNotFound when the record references an unknown user.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string { return fmt.Sprintf("persist search: %v", e.Err) }

func (e *PersistError) Unwrap() error { return e.Err }

// Package common defines shared constants and sentinel errors used across
// the taskhub server layers. Callers should use errors.Is / errors.As to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	ErrInvalidCredentials = errors.New("no active account found with the given credentials")

	// Lookup errors surfaced by the task workflows.
	ErrTaskNotFound = errors.New("task not found")
	ErrUserNotFound = errors.New("user not found")

	// Auth errors (invalid, malformed or wrong-type token).
	ErrInvalidToken = errors.New("token is invalid")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token is expired")
)

// ConstraintError reports a violated uniqueness constraint. Constraint holds
// the database constraint (or unique index) name so services can map it back
// to an input field.
type ConstraintError struct {
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint %q: %v", e.Constraint, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

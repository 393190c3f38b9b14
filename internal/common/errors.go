// Package common defines sentinel errors shared by the server registries,
// the session layer and the client driver. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Registry-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// ErrConflict reports a lost compare-and-replace race. It is transient:
	// the caller may re-read and try again.
	ErrConflict = errors.New("concurrent modification")

	// Authentication errors.
	ErrorUnauthorized = errors.New("wrong password")
	ErrAlreadyOnline  = errors.New("user already online")

	// Document errors.
	ErrSectionLocked     = errors.New("section locked by another session")
	ErrSectionOutOfRange = errors.New("section out of range")
	ErrSectionNotLocked  = errors.New("section is not locked")
	ErrInvalidSections   = errors.New("section count must be positive")

	// ErrAddressSpaceExhausted is returned once every chat address has been issued.
	ErrAddressSpaceExhausted = errors.New("chat address space exhausted")
)

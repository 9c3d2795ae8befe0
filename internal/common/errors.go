// Package common defines shared constants and sentinel errors used across
// client and server layers of Gatekeeper. Callers should use errors.Is to
// match these values; details are attached with fmt.Errorf("%w: ...").
package common

import "errors"

var (
	// Validation errors. Always client-correctable.
	ErrorInvalidArgument = errors.New("invalid argument")

	// Account errors.
	ErrorConflict    = errors.New("account already exists")
	ErrorNotFound    = errors.New("not found")
	ErrorNotLoggedIn = errors.New("not logged in")
	ErrorForbidden   = errors.New("forbidden")

	// Id allocator errors.
	ErrorClockRegression = errors.New("clock moved backwards")
	ErrorConfiguration   = errors.New("configuration error")

	// Service-level errors (collaborator failures).
	ErrorStorage  = errors.New("storage error")
	ErrorInternal = errors.New("internal error")

	// Auth errors (invalid or malformed session token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

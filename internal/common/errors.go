// Package common contains shared constants and sentinel errors used across
// client and server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Input rejected before any I/O took place.
	ErrValidation = errors.New("validation error")

	// Store or blob backend unreachable.
	ErrConnectivity = errors.New("connectivity error")

	// Write/delete denied by the access policy.
	ErrPermission = errors.New("permission denied")

	// A multi-step operation left the system in a mixed state; a
	// compensating action was attempted before this was raised.
	ErrPartialFailure = errors.New("partial failure")

	// Admin token errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)

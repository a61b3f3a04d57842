package license

import "errors"

// Domain rejections. All of these are recoverable by the caller retrying with
// corrected input; anything else coming out of the engine is a storage
// failure.
var (
	// ErrMissingParameter indicates a malformed request (caller error).
	ErrMissingParameter = errors.New("missing required parameter")
	// ErrUnknownCredential indicates the credential is not in the store.
	ErrUnknownCredential = errors.New("unknown credential")
	// ErrAccountDisabled indicates the account exists but is inactive.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrUnauthorized indicates the caller does not hold the admin role.
	// It never distinguishes which part of the check failed.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict indicates the credential already exists as a key.
	ErrConflict = errors.New("credential already exists")
	// ErrNotFound indicates the target account does not exist.
	ErrNotFound = errors.New("account not found")
	// ErrProtectedRole indicates an attempt to disable an admin account.
	ErrProtectedRole = errors.New("admin accounts cannot be disabled")
)

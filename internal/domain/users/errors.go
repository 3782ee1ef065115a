package users

import "errors"

var (
	// ErrNotFound indicates no user exists for the subject id.
	ErrNotFound = errors.New("user not found")
	// ErrAlreadyExists indicates a duplicate-key failure on create. Two
	// concurrent first sign-ins can race here; callers re-read instead of
	// failing.
	ErrAlreadyExists = errors.New("user already exists")
	// ErrInvalidExternalToken indicates the identity provider rejected the token.
	ErrInvalidExternalToken = errors.New("invalid identity token")
	// ErrUpstream indicates the identity provider could not be reached.
	ErrUpstream = errors.New("identity provider unavailable")
)

package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for auth operations. Check them with errors.Is.
var (
	// ErrInvalidCredentials covers unknown email, wrong password and
	// inactive accounts alike so callers cannot tell them apart.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnauthorized is the umbrella for every token verification failure.
	ErrUnauthorized = errors.New("unauthorized")

	ErrTokenMalformed = fmt.Errorf("%w: token malformed", ErrUnauthorized)
	ErrTokenExpired   = fmt.Errorf("%w: token expired", ErrUnauthorized)
	ErrTokenSignature = fmt.Errorf("%w: token signature invalid", ErrUnauthorized)

	// ErrRegistryUnavailable wraps any transport failure talking to Redis.
	ErrRegistryUnavailable = errors.New("session registry unavailable")
	ErrSessionNotFound     = errors.New("session not found")

	ErrMissingSecret = errors.New("signing secret is required")
	ErrEmailExists   = errors.New("email already registered")
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidRole   = errors.New("invalid role")

	// ErrValidation marks caller input problems (missing fields, bad format).
	ErrValidation = errors.New("validation failed")
)

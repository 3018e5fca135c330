package model

import "errors"

var (
	// ErrNotFound is returned by stores when the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	ErrTokenRevoked  = errors.New("refresh token revoked")
	ErrTokenExpired  = errors.New("refresh token expired")
	ErrTokenMismatch = errors.New("refresh token mismatch")
)

var (
	// ErrInvalidCredentials is returned when an authentication exchange is rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmptyCredentials is returned when email or password is missing.
	ErrEmptyCredentials = errors.New("email and password are required")
	// ErrLoginSuperseded is returned to a login call whose result was discarded
	// because a later login or logout was initiated before it completed.
	ErrLoginSuperseded = errors.New("login superseded by a later request")
	// ErrSessionLoading is returned while the persisted session lookup is in flight.
	ErrSessionLoading = errors.New("session is loading")
	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("session gate already initialized")
	// ErrNoIdentity is returned when an identity-scoped operation runs without a session.
	ErrNoIdentity = errors.New("no authenticated identity")
)

var (
	ErrUnknownRoute     = errors.New("unknown route")
	ErrUnknownDomain    = errors.New("unknown domain")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrTreeBuilt        = errors.New("store tree already built")
	ErrTreeNotBuilt     = errors.New("store tree not built")
)

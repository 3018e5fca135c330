package model

import "context"

// SessionStatus is the resolution status of a session.
type SessionStatus string

const (
	// StatusLoading means the persisted session lookup has not completed yet.
	StatusLoading SessionStatus = "loading"
	// StatusResolved means the lookup completed; identity may be present or absent.
	StatusResolved SessionStatus = "resolved"
)

// AppState is the tri-state signal consumed by routing.
type AppState string

const (
	StateLoading         AppState = "loading"
	StateUnauthenticated AppState = "unauthenticated"
	StateAuthenticated   AppState = "authenticated"
)

// Session is an immutable snapshot of the authentication state.
// Every transition produces a new value with a higher Version.
type Session struct {
	Identity *Identity
	Status   SessionStatus
	Version  uint64
}

// State derives the routing state of the session.
func (s Session) State() AppState {
	switch {
	case s.Status != StatusResolved:
		return StateLoading
	case s.Identity == nil:
		return StateUnauthenticated
	default:
		return StateAuthenticated
	}
}

// Authenticated reports whether the session is resolved with an identity.
func (s Session) Authenticated() bool {
	return s.State() == StateAuthenticated
}

// SessionSource exposes the current session and its transitions.
type SessionSource interface {
	Session() (Session, bool)
	Subscribe(listener func(Session)) (unsubscribe func())
	Wait(ctx context.Context) (Session, error)
}

// CredentialBackend checks persisted sessions and performs authentication exchanges.
type CredentialBackend interface {
	// CheckPersistedSession returns the identity of a previously established
	// session. ok is false when no session was persisted.
	CheckPersistedSession(ctx context.Context) (identity Identity, ok bool, err error)
	// Authenticate exchanges credentials for an identity and the grant that
	// would let the session survive a restart. Nothing is persisted yet. It
	// fails with ErrInvalidCredentials when the credentials are rejected.
	Authenticate(ctx context.Context, credentials Credentials) (Identity, Grant, error)
	// Persist makes grant the persisted session of this device.
	Persist(ctx context.Context, grant Grant) error
	// Discard revokes the grant of a login whose result was dropped.
	Discard(ctx context.Context, grant Grant) error
	// EndSession forgets the persisted session of the given identity.
	EndSession(ctx context.Context, identity Identity) error
}

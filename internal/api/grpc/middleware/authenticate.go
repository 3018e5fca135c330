package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dtroode/agrogestion/internal/logger"
	"github.com/dtroode/agrogestion/internal/model"
)

var (
	errMissingToken    = errors.New("missing authorization token")
	errInvalidToken    = errors.New("invalid authorization token")
	errSessionMismatch = errors.New("token does not belong to the active session")
)

// TokenService resolves user ID from bearer tokens.
type TokenService interface {
	GetUserID(ctx context.Context, token string) (uuid.UUID, error)
}

// SessionReader exposes the current session of the gate.
type SessionReader interface {
	Session() (model.Session, bool)
}

// Authenticate validates bearer tokens against the active session and injects
// its identity into the context.
type Authenticate struct {
	tokenService   TokenService
	sessions       SessionReader
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokenService TokenService, sessions SessionReader, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{
		tokenService:   tokenService,
		sessions:       sessions,
		contextManager: contextManager,
		logger:         logger,
	}
}

// AuthFunc parses the Authorization header and returns a context carrying the
// session identity. The token must be valid and belong to the identity the
// gate currently holds.
func (m *Authenticate) AuthFunc(ctx context.Context) (context.Context, error) {
	var tokenString string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if authHeaders := md.Get("authorization"); len(authHeaders) > 0 {
			tokenString = strings.TrimPrefix(authHeaders[0], "Bearer ")
		}
	}

	identity, err := m.authenticate(ctx, tokenString)
	if err != nil {
		m.logger.Debug("Authenticate: request rejected", "error", err.Error())
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	return m.contextManager.SetIdentityToContext(ctx, identity), nil
}

func (m *Authenticate) authenticate(ctx context.Context, tokenString string) (model.Identity, error) {
	if tokenString == "" {
		return model.Identity{}, errMissingToken
	}

	userID, err := m.tokenService.GetUserID(ctx, tokenString)
	if err != nil || userID == uuid.Nil {
		return model.Identity{}, errInvalidToken
	}

	session, ok := m.sessions.Session()
	if !ok || !session.Authenticated() || session.Identity.ID != userID {
		return model.Identity{}, errSessionMismatch
	}

	return *session.Identity, nil
}

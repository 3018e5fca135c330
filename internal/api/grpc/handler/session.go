package handler

import (
	"context"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/agrogestion/internal/logger"
	"github.com/dtroode/agrogestion/internal/model"
)

// Gate defines the session operations served by the Session service.
type Gate interface {
	Login(ctx context.Context, credentials model.Credentials) (model.Identity, error)
	Logout(ctx context.Context) error
	Session() (model.Session, bool)
	Busy() bool
}

// RouteReader reports the route on screen.
type RouteReader interface {
	Current() string
}

var _ SessionServer = (*Session)(nil)

// Session handles gRPC endpoints for the session gate.
type Session struct {
	gate   Gate
	routes RouteReader
	logger *logger.Logger
}

// NewSession creates a new Session handler.
func NewSession(gate Gate, routes RouteReader, logger *logger.Logger) *Session {
	return &Session{gate: gate, routes: routes, logger: logger}
}

type identityView struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type sessionView struct {
	State       model.AppState `json:"state"`
	Version     uint64         `json:"version"`
	Busy        bool           `json:"busy"`
	Route       string         `json:"route"`
	Identity    *identityView  `json:"identity,omitempty"`
	AccessToken string         `json:"access_token,omitempty"`
}

// view reports the session. accessToken is set only in the Login response;
// State and Logout never expose the token of the current identity.
func (h *Session) view(accessToken string) (*structpb.Struct, error) {
	s, ok := h.gate.Session()

	v := sessionView{
		State:   model.StateLoading,
		Version: s.Version,
		Busy:    h.gate.Busy(),
		Route:   h.routes.Current(),
	}
	if ok {
		v.State = s.State()
	}
	if s.Authenticated() {
		v.Identity = &identityView{
			ID:          s.Identity.ID.String(),
			Email:       s.Identity.Email,
			DisplayName: s.Identity.DisplayName,
		}
		v.AccessToken = accessToken
	}

	return toStruct(v)
}

// Login authenticates with the "email" and "password" fields of req. A
// rejected login leaves the session unchanged.
func (h *Session) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	credentials := model.Credentials{
		Email:    stringField(req, "email"),
		Password: stringField(req, "password"),
	}

	h.logger.Debug("Session handler: processing login request", "email", credentials.Email)

	identity, err := h.gate.Login(ctx, credentials)
	if err != nil {
		return nil, handleError(err)
	}

	h.logger.Info("Session handler: login completed", "user_id", identity.ID.String())

	resp, err := h.view(identity.AccessToken)
	if err != nil {
		return nil, handleError(err)
	}
	return resp, nil
}

// Logout ends the current session.
func (h *Session) Logout(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := h.gate.Logout(ctx); err != nil {
		return nil, handleError(err)
	}

	resp, err := h.view("")
	if err != nil {
		return nil, handleError(err)
	}
	return resp, nil
}

// State returns the current session and route.
func (h *Session) State(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	resp, err := h.view("")
	if err != nil {
		return nil, handleError(err)
	}
	return resp, nil
}

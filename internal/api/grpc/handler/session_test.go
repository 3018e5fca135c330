package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/agrogestion/internal/mocks"
	"github.com/dtroode/agrogestion/internal/model"
	"github.com/dtroode/agrogestion/internal/route"
	"github.com/dtroode/agrogestion/internal/testutil"
)

func loginRequest(t *testing.T, email, password string) *structpb.Struct {
	t.Helper()
	req, err := structpb.NewStruct(map[string]any{"email": email, "password": password})
	require.NoError(t, err)
	return req
}

func TestSession_Login(t *testing.T) {
	t.Parallel()

	a, backend := newTestApp(t, nil)
	h := NewSession(a.Gate, a.Navigator, testutil.MakeNoopLogger())
	ana := anaIdentity()

	grant := model.Grant{UserID: ana.ID, RefreshToken: "refresh-ana"}
	backend.On("Authenticate", mock.Anything, model.Credentials{Email: "ana@campo.ar", Password: "secreto"}).
		Return(ana, grant, nil).Once()
	backend.On("Persist", mock.Anything, grant).Return(nil).Once()

	resp, err := h.Login(context.Background(), loginRequest(t, "ana@campo.ar", "secreto"))
	require.NoError(t, err)

	assert.Equal(t, string(model.StateAuthenticated), stringField(resp, "state"))
	assert.Equal(t, route.Dashboard, stringField(resp, "route"))
	assert.Equal(t, "access-ana", stringField(resp, "access_token"))

	identity := resp.GetFields()["identity"].GetStructValue()
	require.NotNil(t, identity)
	assert.Equal(t, ana.ID.String(), stringField(identity, "id"))
	assert.Equal(t, "Ana", stringField(identity, "display_name"))

	state, err := h.State(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, string(model.StateAuthenticated), stringField(state, "state"))
	assert.NotContains(t, state.GetFields(), "access_token")
}

func TestSession_Login_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		email    string
		password string
		setup    func(backend *mocks.CredentialBackend)
		want     codes.Code
	}{
		{
			name:     "empty password",
			email:    "ana@campo.ar",
			password: "",
			want:     codes.InvalidArgument,
		},
		{
			name:     "rejected credentials",
			email:    "ana@campo.ar",
			password: "otro",
			setup: func(backend *mocks.CredentialBackend) {
				backend.On("Authenticate", mock.Anything, mock.Anything).
					Return(model.Identity{}, model.Grant{}, model.ErrInvalidCredentials).Once()
			},
			want: codes.Unauthenticated,
		},
		{
			name:     "backend failure",
			email:    "ana@campo.ar",
			password: "secreto",
			setup: func(backend *mocks.CredentialBackend) {
				backend.On("Authenticate", mock.Anything, mock.Anything).
					Return(model.Identity{}, model.Grant{}, assert.AnError).Once()
			},
			want: codes.Internal,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a, backend := newTestApp(t, nil)
			if tt.setup != nil {
				tt.setup(backend)
			}
			h := NewSession(a.Gate, a.Navigator, testutil.MakeNoopLogger())

			_, err := h.Login(context.Background(), loginRequest(t, tt.email, tt.password))
			assert.Equal(t, tt.want, status.Code(err))

			s, _ := a.Gate.Session()
			assert.Equal(t, model.StateUnauthenticated, s.State())
			assert.Equal(t, route.Login, a.Navigator.Current())
		})
	}
}

func TestSession_LogoutAndState(t *testing.T) {
	t.Parallel()

	ana := anaIdentity()
	a, backend := newTestApp(t, &ana)
	h := NewSession(a.Gate, a.Navigator, testutil.MakeNoopLogger())

	resp, err := h.State(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, string(model.StateAuthenticated), stringField(resp, "state"))
	assert.Equal(t, route.Dashboard, stringField(resp, "route"))
	assert.False(t, resp.GetFields()["busy"].GetBoolValue())
	assert.NotContains(t, resp.GetFields(), "access_token")

	backend.On("EndSession", mock.Anything, ana).Return(nil).Once()

	resp, err = h.Logout(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, string(model.StateUnauthenticated), stringField(resp, "state"))
	assert.Equal(t, route.Login, stringField(resp, "route"))
	assert.Nil(t, resp.GetFields()["identity"])
	assert.Empty(t, stringField(resp, "access_token"))
}

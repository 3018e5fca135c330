package route

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/agrogestion/internal/mocks"
	"github.com/dtroode/agrogestion/internal/model"
	"github.com/dtroode/agrogestion/internal/session"
	"github.com/dtroode/agrogestion/internal/testutil"
)

type recordingHistory struct {
	*Stack
	mu    sync.Mutex
	calls []string
}

func newRecordingHistory() *recordingHistory {
	return &recordingHistory{Stack: NewStack()}
}

func (r *recordingHistory) Navigate(route string) error {
	r.record("navigate:" + route)
	return r.Stack.Navigate(route)
}

func (r *recordingHistory) Replace(route string) error {
	r.record("replace:" + route)
	return r.Stack.Replace(route)
}

func (r *recordingHistory) Reset(route string) error {
	r.record("reset:" + route)
	return r.Stack.Reset(route)
}

func (r *recordingHistory) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recordingHistory) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

func waitGate(t *testing.T, g *session.Gate) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := g.Wait(ctx)
	require.NoError(t, err)
}

func TestNavigator_PersistedSession(t *testing.T) {
	t.Parallel()

	u1 := model.Identity{ID: uuid.New(), Email: "u1@farm.test"}
	release := make(chan time.Time)

	backend := mocks.NewCredentialBackend(t)
	backend.On("CheckPersistedSession", mock.Anything).WaitUntil(release).Return(u1, true, nil).Once()

	gate := session.NewGate(backend, testutil.MakeNoopLogger())
	history := newRecordingHistory()
	nav := NewNavigator(DefaultTable(), gate, history, testutil.MakeNoopLogger())
	stop := nav.Start()
	defer stop()

	require.NoError(t, gate.Initialize(context.Background()))

	assert.Equal(t, model.StateLoading, nav.Reachability().State)
	assert.Empty(t, nav.Reachability().Routes)
	_, err := nav.Go(Products)
	assert.ErrorIs(t, err, model.ErrSessionLoading)
	assert.Empty(t, history.recorded())

	close(release)
	waitGate(t, gate)

	r := nav.Reachability()
	assert.Equal(t, model.StateAuthenticated, r.State)
	assert.Equal(t, Dashboard, r.Entry)
	assert.False(t, r.Allows(Login))
	assert.Len(t, r.Routes, len(DefaultTable().Protected()))

	assert.Equal(t, []string{"reset:Dashboard"}, history.recorded())
	assert.Equal(t, []string{Dashboard}, history.Routes())
}

func TestNavigator_LoginLogout(t *testing.T) {
	t.Parallel()

	u1 := model.Identity{ID: uuid.New(), Email: "u1@farm.test"}
	creds := model.Credentials{Email: "u1@farm.test", Password: "secret"}

	backend := mocks.NewCredentialBackend(t)
	backend.On("CheckPersistedSession", mock.Anything).Return(model.Identity{}, false, nil).Once()
	grant := model.Grant{UserID: u1.ID, RefreshToken: "rt-u1"}
	backend.On("Authenticate", mock.Anything, creds).Return(u1, grant, nil).Twice()
	backend.On("Persist", mock.Anything, grant).Return(nil).Twice()
	backend.On("EndSession", mock.Anything, u1).Return(nil).Once()

	gate := session.NewGate(backend, testutil.MakeNoopLogger())
	history := newRecordingHistory()
	nav := NewNavigator(DefaultTable(), gate, history, testutil.MakeNoopLogger())
	stop := nav.Start()
	defer stop()

	require.NoError(t, gate.Initialize(context.Background()))
	waitGate(t, gate)
	assert.Equal(t, Login, nav.Current())

	target, err := nav.Go(Transfers)
	require.NoError(t, err)
	assert.Equal(t, Target{Route: Login, Redirected: true}, target)
	assert.Equal(t, []string{Login}, history.Routes())

	_, err = gate.Login(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, []string{Dashboard}, history.Routes())
	_, ok := nav.Back()
	assert.False(t, ok)

	_, err = nav.Go(Products)
	require.NoError(t, err)
	_, err = nav.Go(Fields)
	require.NoError(t, err)
	assert.Equal(t, []string{Dashboard, Products, Fields}, history.Routes())

	target, err = nav.Go(Login)
	require.NoError(t, err)
	assert.Equal(t, Target{Route: Dashboard, Redirected: true}, target)
	assert.Equal(t, []string{Dashboard}, history.Routes())

	_, err = nav.Go(Expenses)
	require.NoError(t, err)

	require.NoError(t, gate.Logout(context.Background()))
	assert.Equal(t, Login, nav.Current())
	assert.Equal(t, []string{Login}, history.Routes())
	_, ok = nav.Back()
	assert.False(t, ok, "back navigation must not reach a protected route")

	_, err = gate.Login(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, []string{Dashboard}, history.Routes())
	_, ok = nav.Back()
	assert.False(t, ok, "back navigation must not reach the login route")

	_, err = nav.Go("Settings")
	assert.ErrorIs(t, err, model.ErrUnknownRoute)

	for _, call := range history.recorded() {
		assert.NotEqual(t, "navigate:"+Login, call)
		assert.NotEqual(t, "navigate:"+Dashboard, call)
	}
	assert.Equal(t, []string{
		"reset:Login",
		"reset:Dashboard",
		"navigate:Products",
		"navigate:Fields",
		"navigate:Expenses",
		"reset:Login",
		"reset:Dashboard",
	}, history.recorded())
}

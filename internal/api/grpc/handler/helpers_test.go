package handler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/agrogestion/internal/app"
	"github.com/dtroode/agrogestion/internal/mocks"
	"github.com/dtroode/agrogestion/internal/model"
	"github.com/dtroode/agrogestion/internal/store"
	"github.com/dtroode/agrogestion/internal/testutil"
)

type staticLoader map[string]store.Fixture

func (l staticLoader) Load(_ context.Context, identity model.Identity) (store.Fixture, error) {
	return l[identity.Email], nil
}

var testNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func anaIdentity() model.Identity {
	return model.Identity{
		ID:          uuid.MustParse("6f1c2a4e-8b0d-4c8e-9a51-1f2d3c4b5a69"),
		Email:       "ana@campo.ar",
		DisplayName: "Ana",
		AccessToken: "access-ana",
	}
}

func anaFixture() store.Fixture {
	expires := testNow.Add(5 * 24 * time.Hour)
	return store.Fixture{
		Products: []store.Product{
			{ID: "p1", Name: "Urea", Warehouse: "Central", Unit: "kg", Stock: 2, MinStock: 10},
			{ID: "p2", Name: "Glifosato", Warehouse: "Central", Unit: "l", Stock: 40, MinStock: 5, ExpiresAt: &expires},
		},
		Transfers: []store.Transfer{
			{ID: "t1", ProductID: "p2", To: "Norte", Quantity: 5, RequestedAt: testNow.Add(-time.Hour)},
		},
	}
}

// newTestApp starts an app whose persisted session is persisted, or
// unauthenticated when persisted is nil.
func newTestApp(t *testing.T, persisted *model.Identity) (*app.App, *mocks.CredentialBackend) {
	t.Helper()

	backend := mocks.NewCredentialBackend(t)
	if persisted != nil {
		backend.On("CheckPersistedSession", mock.Anything).Return(*persisted, true, nil).Once()
	} else {
		backend.On("CheckPersistedSession", mock.Anything).Return(model.Identity{}, false, nil).Once()
	}

	a, err := app.New(app.Deps{
		Backend: backend,
		Loader:  staticLoader{"ana@campo.ar": anaFixture()},
		Logger:  testutil.MakeNoopLogger(),
		Clock:   func() time.Time { return testNow },
	})
	require.NoError(t, err)
	t.Cleanup(a.Stop)

	require.NoError(t, a.Start(context.Background()))
	settle(t, a)

	return a, backend
}

func settle(t *testing.T, a *app.App) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.Tree.Settle(ctx))
}

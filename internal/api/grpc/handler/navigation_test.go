package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dtroode/agrogestion/internal/model"
	"github.com/dtroode/agrogestion/internal/route"
	"github.com/dtroode/agrogestion/internal/testutil"
)

func TestNavigation_Authenticated(t *testing.T) {
	t.Parallel()

	ana := anaIdentity()
	a, _ := newTestApp(t, &ana)
	h := NewNavigation(a.Navigator, testutil.MakeNoopLogger())
	ctx := context.Background()

	resp, err := h.Go(ctx, wrapperspb.String(route.Products))
	require.NoError(t, err)
	assert.Equal(t, route.Products, stringField(resp, "route"))
	assert.False(t, resp.GetFields()["redirected"].GetBoolValue())
	assert.Equal(t, route.Products, stringField(resp, "current"))

	resp, err = h.Go(ctx, wrapperspb.String(route.Login))
	require.NoError(t, err)
	assert.Equal(t, route.Dashboard, stringField(resp, "route"))
	assert.True(t, resp.GetFields()["redirected"].GetBoolValue())

	current, err := h.Current(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, route.Dashboard, current.GetValue())

	resp, err = h.Back(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	assert.False(t, resp.GetFields()["moved"].GetBoolValue())
	assert.Equal(t, route.Dashboard, stringField(resp, "current"))

	resp, err = h.Reachable(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, string(model.StateAuthenticated), stringField(resp, "state"))
	assert.Equal(t, route.Dashboard, stringField(resp, "entry"))
	routes := resp.GetFields()["routes"].GetListValue().GetValues()
	assert.Len(t, routes, len(route.DefaultTable().Protected()))
	assert.Equal(t, "Panel Principal", stringField(routes[0].GetStructValue(), "title"))
}

func TestNavigation_Unauthenticated(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, nil)
	h := NewNavigation(a.Navigator, testutil.MakeNoopLogger())
	ctx := context.Background()

	resp, err := h.Go(ctx, wrapperspb.String(route.Expenses))
	require.NoError(t, err)
	assert.Equal(t, route.Login, stringField(resp, "route"))
	assert.True(t, resp.GetFields()["redirected"].GetBoolValue())

	_, err = h.Go(ctx, wrapperspb.String("weather"))
	assert.Equal(t, codes.NotFound, status.Code(err))

	resp, err = h.Reachable(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	routes := resp.GetFields()["routes"].GetListValue().GetValues()
	require.Len(t, routes, 1)
	assert.Equal(t, route.Login, stringField(routes[0].GetStructValue(), "name"))
}

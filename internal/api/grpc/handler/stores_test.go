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
	"github.com/dtroode/agrogestion/internal/testutil"
)

func TestStores_Snapshot(t *testing.T) {
	t.Parallel()

	ana := anaIdentity()
	a, _ := newTestApp(t, &ana)
	h := NewStores(a.Tree, testutil.MakeNoopLogger())

	resp, err := h.Snapshot(context.Background(), wrapperspb.String(string(model.DomainStock)))
	require.NoError(t, err)

	assert.Equal(t, string(model.DomainStock), stringField(resp, "domain"))
	assert.True(t, resp.GetFields()["available"].GetBoolValue())
	products := resp.GetFields()["state"].GetStructValue().GetFields()["products"].GetListValue().GetValues()
	require.Len(t, products, 2)
	assert.Equal(t, "Urea", stringField(products[0].GetStructValue(), "name"))

	_, err = h.Snapshot(context.Background(), wrapperspb.String("crops"))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestStores_StatusAndRetry(t *testing.T) {
	t.Parallel()

	ana := anaIdentity()
	a, _ := newTestApp(t, &ana)
	h := NewStores(a.Tree, testutil.MakeNoopLogger())

	resp, err := h.Status(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	domains := resp.GetFields()["domains"].GetListValue().GetValues()
	require.Len(t, domains, len(a.Tree.Domains()))
	assert.Equal(t, string(model.DomainActivity), stringField(domains[0].GetStructValue(), "domain"))
	for _, d := range domains {
		assert.Empty(t, stringField(d.GetStructValue(), "error"))
	}

	resp, err = h.Retry(context.Background(), wrapperspb.String(string(model.DomainTransfer)))
	require.NoError(t, err)
	assert.Equal(t, string(model.DomainTransfer), stringField(resp, "domain"))

	_, err = h.Retry(context.Background(), wrapperspb.String("crops"))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestStores_Refresh(t *testing.T) {
	t.Parallel()

	ana := anaIdentity()
	a, _ := newTestApp(t, &ana)
	h := NewStores(a.Tree, testutil.MakeNoopLogger())

	resp, err := h.Refresh(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)

	domains := resp.GetFields()["domains"].GetListValue().GetValues()
	require.Len(t, domains, len(a.Tree.Domains()))
	for _, d := range domains {
		assert.True(t, d.GetStructValue().GetFields()["available"].GetBoolValue())
		assert.Empty(t, stringField(d.GetStructValue(), "error"))
	}

	snapshot, err := h.Snapshot(context.Background(), wrapperspb.String(string(model.DomainStock)))
	require.NoError(t, err)
	products := snapshot.GetFields()["state"].GetStructValue().GetFields()["products"].GetListValue().GetValues()
	assert.Len(t, products, 2)
}

package handler

import (
	"context"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/agrogestion/internal/dashboard"
	"github.com/dtroode/agrogestion/internal/logger"
)

// SummaryBuilder builds the dashboard of the current identity.
type SummaryBuilder interface {
	Summary() dashboard.Summary
}

var _ DashboardServer = (*Dashboard)(nil)

// Dashboard handles the gRPC endpoint of the home screen.
type Dashboard struct {
	builder SummaryBuilder
	logger  *logger.Logger
}

// NewDashboard creates a new Dashboard handler.
func NewDashboard(builder SummaryBuilder, logger *logger.Logger) *Dashboard {
	return &Dashboard{builder: builder, logger: logger}
}

// Summary returns the dashboard summary. Domains that could not be read are
// listed under "errors" with their sections empty.
func (h *Dashboard) Summary(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	summary := h.builder.Summary()
	if len(summary.Errors) > 0 {
		h.logger.Warn("Dashboard handler: partial summary", "errors", len(summary.Errors))
	}

	resp, err := toStruct(summary)
	if err != nil {
		return nil, handleError(err)
	}
	return resp, nil
}

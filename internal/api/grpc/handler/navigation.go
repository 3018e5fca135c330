package handler

import (
	"context"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dtroode/agrogestion/internal/logger"
	"github.com/dtroode/agrogestion/internal/model"
	"github.com/dtroode/agrogestion/internal/route"
)

// Navigator defines the navigation operations served by the Navigation service.
type Navigator interface {
	Go(name string) (route.Target, error)
	Back() (string, bool)
	Current() string
	Reachability() route.Reachability
	Table() *route.Table
}

var _ NavigationServer = (*Navigation)(nil)

// Navigation handles gRPC endpoints for routing.
type Navigation struct {
	navigator Navigator
	logger    *logger.Logger
}

// NewNavigation creates a new Navigation handler.
func NewNavigation(navigator Navigator, logger *logger.Logger) *Navigation {
	return &Navigation{navigator: navigator, logger: logger}
}

// Go navigates to the route named by req. Unreachable routes redirect.
func (h *Navigation) Go(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	target, err := h.navigator.Go(req.GetValue())
	if err != nil {
		return nil, handleError(err)
	}

	if target.Redirected {
		h.logger.Info("Navigation handler: request redirected",
			"requested", req.GetValue(),
			"route", target.Route)
	}

	resp, err := toStruct(struct {
		route.Target
		Current string `json:"current"`
	}{Target: target, Current: h.navigator.Current()})
	if err != nil {
		return nil, handleError(err)
	}
	return resp, nil
}

// Back returns to the previous route when allowed.
func (h *Navigation) Back(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	current, moved := h.navigator.Back()

	resp, err := toStruct(struct {
		Moved   bool   `json:"moved"`
		Current string `json:"current"`
	}{Moved: moved, Current: current})
	if err != nil {
		return nil, handleError(err)
	}
	return resp, nil
}

// Current returns the route on screen.
func (h *Navigation) Current(_ context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String(h.navigator.Current()), nil
}

// Reachable lists the routes the current session may show.
func (h *Navigation) Reachable(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	r := h.navigator.Reachability()
	table := h.navigator.Table()

	routes := make([]route.Route, 0, len(r.Routes))
	for _, name := range r.Routes {
		if rt, ok := table.Route(name); ok {
			routes = append(routes, rt)
		}
	}

	resp, err := toStruct(struct {
		State  model.AppState `json:"state"`
		Entry  string         `json:"entry"`
		Routes []route.Route  `json:"routes"`
	}{State: r.State, Entry: r.Entry, Routes: routes})
	if err != nil {
		return nil, handleError(err)
	}
	return resp, nil
}

// Package app composes the session gate, the store tree and the navigator.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dtroode/agrogestion/internal/dashboard"
	"github.com/dtroode/agrogestion/internal/logger"
	"github.com/dtroode/agrogestion/internal/model"
	"github.com/dtroode/agrogestion/internal/route"
	"github.com/dtroode/agrogestion/internal/session"
	"github.com/dtroode/agrogestion/internal/store"
)

// Deps are the collaborators of the application. Only Backend and Logger
// are required.
type Deps struct {
	Backend   model.CredentialBackend
	Loader    store.Loader
	Logger    *logger.Logger
	Table     *route.Table
	History   route.History
	Providers []store.Provider
	Clock     func() time.Time
}

// App is the registry of process-wide components. It is passed explicitly to
// the transport layer instead of living in package state.
type App struct {
	Gate      *session.Gate
	Tree      *store.Tree
	Navigator *route.Navigator
	History   route.History

	logger *logger.Logger

	mu      sync.Mutex
	stopNav func()
}

// New builds the gate, the store tree and the navigator, in that order.
// Nothing runs until Start.
func New(deps Deps) (*App, error) {
	if deps.Backend == nil || deps.Logger == nil {
		return nil, fmt.Errorf("credential backend and logger are required")
	}
	if deps.Table == nil {
		deps.Table = route.DefaultTable()
	}
	if deps.History == nil {
		deps.History = route.NewStack()
	}

	gate := session.NewGate(deps.Backend, deps.Logger.Component("session"))

	tree, err := store.NewTree(gate, deps.Loader, deps.Logger.Component("store"), deps.Providers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create store tree: %w", err)
	}
	if deps.Clock != nil {
		tree.WithClock(deps.Clock)
	}

	nav := route.NewNavigator(deps.Table, gate, deps.History, deps.Logger.Component("route"))

	return &App{
		Gate:      gate,
		Tree:      tree,
		Navigator: nav,
		History:   deps.History,
		logger:    deps.Logger,
	}, nil
}

// Start initializes the session gate, builds the store tree and starts
// routing. It returns once the session has resolved and every store has
// been constructed.
func (a *App) Start(ctx context.Context) error {
	if err := a.Gate.Initialize(ctx); err != nil {
		return err
	}

	if err := a.Tree.Build(ctx); err != nil {
		return fmt.Errorf("failed to build store tree: %w", err)
	}

	a.mu.Lock()
	a.stopNav = a.Navigator.Start()
	a.mu.Unlock()

	s, _ := a.Gate.Session()
	a.logger.Info("App: started", "state", string(s.State()), "route", a.Navigator.Current())

	return nil
}

// Summary returns the dashboard summary of the current identity.
func (a *App) Summary() dashboard.Summary {
	return dashboard.Build(a.Tree)
}

// Stop detaches the navigator and the store tree from the session.
func (a *App) Stop() {
	a.mu.Lock()
	stop := a.stopNav
	a.stopNav = nil
	a.mu.Unlock()

	if stop != nil {
		stop()
	}
	a.Tree.Close()
}

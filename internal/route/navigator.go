package route

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dtroode/agrogestion/internal/logger"
	"github.com/dtroode/agrogestion/internal/model"
)

// Navigator applies route reachability to a navigation history. On every
// authentication transition it resets the history to the entry or home
// route, so nothing navigated on the previous side of the transition can be
// reached by going back.
type Navigator struct {
	table    *Table
	sessions model.SessionSource
	history  History
	logger   *logger.Logger

	mu    sync.Mutex
	state model.AppState
}

// NewNavigator creates a navigator. Start must be called to follow the session.
func NewNavigator(table *Table, sessions model.SessionSource, history History, logger *logger.Logger) *Navigator {
	return &Navigator{
		table:    table,
		sessions: sessions,
		history:  history,
		logger:   logger,
		state:    model.StateLoading,
	}
}

// Start subscribes to session transitions and applies the current session.
func (n *Navigator) Start() (stop func()) {
	stop = n.sessions.Subscribe(n.onSession)
	if s, ok := n.sessions.Session(); ok {
		n.onSession(s)
	}
	return stop
}

func (n *Navigator) onSession(s model.Session) {
	n.mu.Lock()
	defer n.mu.Unlock()

	state := s.State()
	if state == n.state {
		return
	}
	n.state = state

	var target string
	switch state {
	case model.StateUnauthenticated:
		target = n.table.Entry().Name
	case model.StateAuthenticated:
		target = n.table.Home().Name
	default:
		return
	}

	if err := n.history.Reset(target); err != nil {
		n.logger.Error("Navigator: failed to reset history", "route", target, "error", err.Error())
		return
	}
	n.logger.Debug("Navigator: history reset", "state", string(state), "route", target)
}

// Go navigates to name. Reachable routes are pushed; unreachable ones
// redirect to the entry or home route with a replace.
func (n *Navigator) Go(name string) (Target, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	s, ok := n.sessions.Session()
	target, err := Resolve(n.table, s, ok, name)
	if err != nil {
		return Target{}, err
	}

	if target.Route == n.history.Current() {
		return target, nil
	}

	if target.Redirected {
		err = n.unwindTo(target.Route)
	} else {
		err = n.history.Navigate(target.Route)
	}
	if err != nil {
		return Target{}, fmt.Errorf("failed to navigate: %w", err)
	}

	return target, nil
}

// unwindTo goes back to route when it is on the history, and replaces the
// current route with it otherwise.
func (n *Navigator) unwindTo(route string) error {
	if slices.Contains(n.history.Routes(), route) {
		for n.history.Current() != route {
			if _, ok := n.history.Back(); !ok {
				break
			}
		}
		if n.history.Current() == route {
			return nil
		}
	}
	return n.history.Replace(route)
}

// Back returns to the previous route when it is reachable for the current
// session.
func (n *Navigator) Back() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	routes := n.history.Routes()
	if len(routes) < 2 {
		return n.history.Current(), false
	}

	s, ok := n.sessions.Session()
	if !Reachable(n.table, s, ok).Allows(routes[len(routes)-2]) {
		return n.history.Current(), false
	}

	return n.history.Back()
}

// Current returns the route on top of the history.
func (n *Navigator) Current() string {
	return n.history.Current()
}

// Reachability returns the reachable routes for the current session.
func (n *Navigator) Reachability() Reachability {
	s, ok := n.sessions.Session()
	return Reachable(n.table, s, ok)
}

// Table returns the route table.
func (n *Navigator) Table() *Table {
	return n.table
}

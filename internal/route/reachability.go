package route

import (
	"fmt"
	"slices"

	"github.com/dtroode/agrogestion/internal/model"
)

// Reachability is the set of routes that may be shown for a session.
type Reachability struct {
	State model.AppState `json:"state"`
	// Entry is the route shown first; empty while loading.
	Entry  string   `json:"entry"`
	Routes []string `json:"routes"`
}

// Allows reports whether name is reachable.
func (r Reachability) Allows(name string) bool {
	return slices.Contains(r.Routes, name)
}

// Reachable computes the reachable routes. ok is false before the session
// gate is initialized, which is treated as loading.
func Reachable(t *Table, s model.Session, ok bool) Reachability {
	state := model.StateLoading
	if ok {
		state = s.State()
	}

	switch state {
	case model.StateUnauthenticated:
		return Reachability{State: state, Entry: t.entry, Routes: []string{t.entry}}
	case model.StateAuthenticated:
		var names []string
		for _, r := range t.Protected() {
			names = append(names, r.Name)
		}
		return Reachability{State: state, Entry: t.home, Routes: names}
	default:
		return Reachability{State: model.StateLoading}
	}
}

// Target is where a navigation request ends up.
type Target struct {
	Route string `json:"route"`
	// Redirected is set when Route differs from the requested name.
	Redirected bool `json:"redirected"`
}

// Resolve maps a requested route to the route that may be shown. Protected
// routes redirect to the entry route without an identity, and the entry route
// redirects to home with one.
func Resolve(t *Table, s model.Session, ok bool, name string) (Target, error) {
	if _, known := t.Route(name); !known {
		return Target{}, fmt.Errorf("%w: %s", model.ErrUnknownRoute, name)
	}

	r := Reachable(t, s, ok)
	switch {
	case r.State == model.StateLoading:
		return Target{}, model.ErrSessionLoading
	case r.Allows(name):
		return Target{Route: name}, nil
	default:
		return Target{Route: r.Entry, Redirected: true}, nil
	}
}

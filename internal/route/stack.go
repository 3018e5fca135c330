package route

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dtroode/agrogestion/internal/model"
)

var _ History = (*Stack)(nil)

// History is a router that also keeps the navigated routes.
type History interface {
	model.Router
	// Reset drops the whole history and leaves route as its only entry.
	Reset(route string) error
	Back() (string, bool)
	Current() string
	Routes() []string
}

// Stack is an in-memory navigation stack.
type Stack struct {
	mu     sync.Mutex
	routes []string
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Navigate pushes route.
func (s *Stack) Navigate(route string) error {
	if route == "" {
		return fmt.Errorf("%w: empty name", model.ErrUnknownRoute)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, route)
	return nil
}

// Replace swaps the current route for route, leaving no way back to it.
// On an empty stack route becomes the root.
func (s *Stack) Replace(route string) error {
	if route == "" {
		return fmt.Errorf("%w: empty name", model.ErrUnknownRoute)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.routes) == 0 {
		s.routes = []string{route}
		return nil
	}
	s.routes[len(s.routes)-1] = route
	return nil
}

// Reset makes route the root and only entry.
func (s *Stack) Reset(route string) error {
	if route == "" {
		return fmt.Errorf("%w: empty name", model.ErrUnknownRoute)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = []string{route}
	return nil
}

// Back pops the current route. The root is never popped.
func (s *Stack) Back() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.routes) < 2 {
		return s.current(), false
	}
	s.routes = s.routes[:len(s.routes)-1]
	return s.current(), true
}

// Current returns the route on top, or an empty string.
func (s *Stack) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current()
}

func (s *Stack) current() string {
	if len(s.routes) == 0 {
		return ""
	}
	return s.routes[len(s.routes)-1]
}

// Routes returns the stack, root first.
func (s *Stack) Routes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.routes)
}

// Package route computes which screens are reachable for a session and keeps
// the navigation stack in step with authentication transitions.
package route

import (
	"fmt"
	"slices"
)

// Class tells whether a route needs an authenticated identity.
type Class string

const (
	ClassPublic    Class = "public"
	ClassProtected Class = "protected"
)

// Route is a named screen.
type Route struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Class Class  `json:"class"`
}

// Table is the immutable set of application routes.
type Table struct {
	entry  string
	home   string
	routes []Route
}

// NewTable validates and builds a route table. The entry route must be the
// only public route and home must be protected.
func NewTable(entry, home string, routes ...Route) (*Table, error) {
	seen := make(map[string]Route, len(routes))
	public := 0
	for _, r := range routes {
		if r.Name == "" {
			return nil, fmt.Errorf("route without a name")
		}
		if _, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("duplicate route %s", r.Name)
		}
		switch r.Class {
		case ClassPublic:
			public++
		case ClassProtected:
		default:
			return nil, fmt.Errorf("route %s has unknown class %q", r.Name, r.Class)
		}
		seen[r.Name] = r
	}

	if e, ok := seen[entry]; !ok || e.Class != ClassPublic {
		return nil, fmt.Errorf("entry route %s must be declared public", entry)
	}
	if public != 1 {
		return nil, fmt.Errorf("exactly one public route expected, got %d", public)
	}
	if h, ok := seen[home]; !ok || h.Class != ClassProtected {
		return nil, fmt.Errorf("home route %s must be declared protected", home)
	}

	return &Table{entry: entry, home: home, routes: slices.Clone(routes)}, nil
}

// Route names of the default table.
const (
	Login       = "Login"
	Dashboard   = "Dashboard"
	Products    = "Products"
	Transfers   = "Transfers"
	Fumigations = "Fumigations"
	Fields      = "Fields"
	Expenses    = "Expenses"
)

// DefaultTable returns the application screens.
func DefaultTable() *Table {
	t, err := NewTable(Login, Dashboard,
		Route{Name: Login, Title: "Iniciar sesión", Class: ClassPublic},
		Route{Name: Dashboard, Title: "Panel Principal", Class: ClassProtected},
		Route{Name: Products, Title: "Productos", Class: ClassProtected},
		Route{Name: Transfers, Title: "Transferencias", Class: ClassProtected},
		Route{Name: Fumigations, Title: "Fumigaciones", Class: ClassProtected},
		Route{Name: Fields, Title: "Campos", Class: ClassProtected},
		Route{Name: Expenses, Title: "Gastos", Class: ClassProtected},
	)
	if err != nil {
		panic(err)
	}
	return t
}

// Entry returns the public entry route.
func (t *Table) Entry() Route {
	r, _ := t.Route(t.entry)
	return r
}

// Home returns the first protected route shown after authentication.
func (t *Table) Home() Route {
	r, _ := t.Route(t.home)
	return r
}

// Route returns a route by name.
func (t *Table) Route(name string) (Route, bool) {
	i := slices.IndexFunc(t.routes, func(r Route) bool { return r.Name == name })
	if i < 0 {
		return Route{}, false
	}
	return t.routes[i], true
}

// Routes returns every route in declaration order.
func (t *Table) Routes() []Route {
	return slices.Clone(t.routes)
}

// Protected returns the protected routes in declaration order.
func (t *Table) Protected() []Route {
	var out []Route
	for _, r := range t.routes {
		if r.Class == ClassProtected {
			out = append(out, r)
		}
	}
	return out
}

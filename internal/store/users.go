package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/agrogestion/internal/model"
)

// Member is an organisation member.
type Member struct {
	ID     string `yaml:"id" json:"id"`
	Email  string `yaml:"email" json:"email"`
	Name   string `yaml:"name" json:"name"`
	Role   string `yaml:"role" json:"role"`
	Active bool   `yaml:"active" json:"active"`
}

// UsersState is the list of members.
type UsersState struct {
	Members []Member `json:"members"`
}

var _ Handle = (*Users)(nil)

// Users manages organisation members.
type Users struct {
	Store[UsersState]
	scope  *Scope
	audit  Auditor
	loader Loader
}

// NewUsers creates the members store.
func NewUsers(scope *Scope, audit Auditor, loader Loader) *Users {
	return &Users{scope: scope, audit: audit, loader: loader}
}

// Domain implements Handle.
func (u *Users) Domain() model.Domain { return model.DomainUsers }

// Snapshot implements Handle.
func (u *Users) Snapshot() any { return u.State() }

// Hydrate loads the identity's organisation members.
func (u *Users) Hydrate(ctx context.Context, identity model.Identity) error {
	return u.hydrate(ctx, loadWith(u.loader, identity, func(f Fixture) UsersState {
		return UsersState{Members: slices.Clone(f.Members)}
	}))
}

// Add registers an active member. Emails are unique, case-insensitive.
func (u *Users) Add(m Member) (Member, error) {
	if _, err := u.scope.Identity(); err != nil {
		return Member{}, err
	}
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	m.Name = strings.TrimSpace(m.Name)
	if m.Email == "" || m.Name == "" {
		return Member{}, fmt.Errorf("%w: member needs an email and a name", ErrInvalid)
	}
	if m.Role == "" {
		m.Role = "operator"
	}
	m.ID = uuid.NewString()
	m.Active = true

	err := u.mutate(u.scope, func(cur UsersState, _ model.Identity) (UsersState, error) {
		for _, existing := range cur.Members {
			if strings.EqualFold(existing.Email, m.Email) {
				return cur, fmt.Errorf("%w: member %s", ErrDuplicate, m.Email)
			}
		}
		return UsersState{Members: append(slices.Clone(cur.Members), m)}, nil
	})
	if err != nil {
		return Member{}, err
	}

	return m, u.audit.Record(model.DomainUsers, "member.added", m.Email)
}

// Deactivate marks a member inactive.
func (u *Users) Deactivate(id string) error {
	var email string
	err := u.mutate(u.scope, func(cur UsersState, _ model.Identity) (UsersState, error) {
		i := slices.IndexFunc(cur.Members, func(m Member) bool { return m.ID == id })
		if i < 0 {
			return cur, fmt.Errorf("member %s: %w", id, model.ErrNotFound)
		}
		if !cur.Members[i].Active {
			return cur, fmt.Errorf("%w: member %s already inactive", ErrState, id)
		}
		members := slices.Clone(cur.Members)
		members[i].Active = false
		email = members[i].Email
		return UsersState{Members: members}, nil
	})
	if err != nil {
		return err
	}

	return u.audit.Record(model.DomainUsers, "member.deactivated", email)
}

// Active returns active members.
func (u *Users) Active() []Member {
	var out []Member
	for _, m := range u.State().Members {
		if m.Active {
			out = append(out, m)
		}
	}
	return out
}

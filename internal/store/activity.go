package store

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/agrogestion/internal/model"
)

// maxActivityEntries bounds the in-memory audit log.
const maxActivityEntries = 500

// Entry is one audit log record.
type Entry struct {
	ID         string       `json:"id"`
	ActorID    uuid.UUID    `json:"actor_id"`
	ActorEmail string       `json:"actor_email"`
	Domain     model.Domain `json:"domain"`
	Action     string       `json:"action"`
	Detail     string       `json:"detail,omitempty"`
	At         time.Time    `json:"at"`
}

// ActivityState is the audit log, oldest entry first.
type ActivityState struct {
	Entries []Entry `json:"entries"`
}

// Auditor records mutations performed by other stores.
type Auditor interface {
	Record(domain model.Domain, action, detail string) error
}

var (
	_ Handle  = (*Activity)(nil)
	_ Auditor = (*Activity)(nil)
)

// Activity is the audit log of the current identity.
type Activity struct {
	Store[ActivityState]
	scope *Scope
}

// NewActivity creates the activity store.
func NewActivity(scope *Scope) *Activity {
	return &Activity{scope: scope}
}

// Domain implements Handle.
func (a *Activity) Domain() model.Domain { return model.DomainActivity }

// Snapshot implements Handle.
func (a *Activity) Snapshot() any { return a.State() }

// Hydrate keeps the entries recorded by identity and drops the rest, so a
// reload after a reset starts an empty log.
func (a *Activity) Hydrate(ctx context.Context, identity model.Identity) error {
	return a.hydrate(ctx, func(context.Context) (ActivityState, error) {
		kept := slices.DeleteFunc(slices.Clone(a.State().Entries), func(e Entry) bool {
			return e.ActorID != identity.ID
		})
		return ActivityState{Entries: kept}, nil
	})
}

// Record appends an entry attributed to the current identity.
func (a *Activity) Record(domain model.Domain, action, detail string) error {
	id, at := uuid.NewString(), a.scope.Now()

	return a.mutate(a.scope, func(cur ActivityState, actor model.Identity) (ActivityState, error) {
		entry := Entry{
			ID:         id,
			ActorID:    actor.ID,
			ActorEmail: actor.Email,
			Domain:     domain,
			Action:     action,
			Detail:     detail,
			At:         at,
		}
		entries := append(slices.Clone(cur.Entries), entry)
		if len(entries) > maxActivityEntries {
			entries = entries[len(entries)-maxActivityEntries:]
		}
		return ActivityState{Entries: entries}, nil
	})
}

// Recent returns up to n entries, newest first.
func (a *Activity) Recent(n int) []Entry {
	entries := a.State().Entries
	out := make([]Entry, 0, min(n, len(entries)))
	for i := len(entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, entries[i])
	}
	return out
}

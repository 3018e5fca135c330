package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/agrogestion/internal/model"
)

// Fumigation is a scheduled application of a stocked product to a field.
type Fumigation struct {
	ID          string     `yaml:"id" json:"id"`
	Field       string     `yaml:"field" json:"field"`
	ProductID   string     `yaml:"product_id" json:"product_id"`
	Quantity    float64    `yaml:"quantity" json:"quantity"`
	ScheduledAt time.Time  `yaml:"scheduled_at" json:"scheduled_at"`
	CompletedAt *time.Time `yaml:"completed_at" json:"completed_at,omitempty"`
}

// Done reports whether the fumigation was applied.
func (f Fumigation) Done() bool { return f.CompletedAt != nil }

// FumigationState is the list of fumigations.
type FumigationState struct {
	Fumigations []Fumigation `json:"fumigations"`
}

var _ Handle = (*Fumigations)(nil)

// Fumigations schedules and completes fumigations against stock.
type Fumigations struct {
	Store[FumigationState]
	scope  *Scope
	audit  Auditor
	loader Loader
	stock  *Stock

	// ops serializes operations spanning this store and stock.
	ops sync.Mutex
}

// NewFumigations creates the fumigation store.
func NewFumigations(scope *Scope, audit Auditor, loader Loader, stock *Stock) *Fumigations {
	return &Fumigations{scope: scope, audit: audit, loader: loader, stock: stock}
}

// Domain implements Handle.
func (f *Fumigations) Domain() model.Domain { return model.DomainFumigation }

// Snapshot implements Handle.
func (f *Fumigations) Snapshot() any { return f.State() }

// Hydrate loads the identity's fumigations.
func (f *Fumigations) Hydrate(ctx context.Context, identity model.Identity) error {
	return f.hydrate(ctx, loadWith(f.loader, identity, func(fx Fixture) FumigationState {
		return FumigationState{Fumigations: slices.Clone(fx.Fumigations)}
	}))
}

// Schedule plans a fumigation of field with qty of the given product.
func (f *Fumigations) Schedule(field, productID string, qty float64, at time.Time) (Fumigation, error) {
	if _, err := f.scope.Identity(); err != nil {
		return Fumigation{}, err
	}
	field = strings.TrimSpace(field)
	if field == "" || qty <= 0 || at.IsZero() {
		return Fumigation{}, fmt.Errorf("%w: fumigation needs a field, a positive quantity and a date", ErrInvalid)
	}
	product, err := f.stock.Product(productID)
	if err != nil {
		return Fumigation{}, err
	}

	item := Fumigation{
		ID:          uuid.NewString(),
		Field:       field,
		ProductID:   product.ID,
		Quantity:    qty,
		ScheduledAt: at,
	}
	err = f.mutate(f.scope, func(cur FumigationState, _ model.Identity) (FumigationState, error) {
		return FumigationState{Fumigations: append(slices.Clone(cur.Fumigations), item)}, nil
	})
	if err != nil {
		return Fumigation{}, err
	}

	return item, f.audit.Record(model.DomainFumigation, "fumigation.scheduled",
		fmt.Sprintf("%s on %s", product.Name, field))
}

// Complete marks a fumigation as applied and consumes its quantity from stock.
func (f *Fumigations) Complete(id string) (Fumigation, error) {
	if _, err := f.scope.Identity(); err != nil {
		return Fumigation{}, err
	}

	f.ops.Lock()
	defer f.ops.Unlock()

	var item Fumigation
	for _, existing := range f.State().Fumigations {
		if existing.ID == id {
			item = existing
		}
	}
	if item.ID == "" {
		return Fumigation{}, fmt.Errorf("fumigation %s: %w", id, model.ErrNotFound)
	}
	if item.Done() {
		return Fumigation{}, fmt.Errorf("%w: fumigation %s already completed", ErrState, id)
	}

	if _, err := f.stock.Adjust(item.ProductID, -item.Quantity); err != nil {
		return Fumigation{}, fmt.Errorf("failed to consume stock: %w", err)
	}

	now := f.scope.Now()
	err := f.mutate(f.scope, func(cur FumigationState, _ model.Identity) (FumigationState, error) {
		i := slices.IndexFunc(cur.Fumigations, func(x Fumigation) bool { return x.ID == id })
		if i < 0 {
			return cur, fmt.Errorf("fumigation %s: %w", id, model.ErrNotFound)
		}
		items := slices.Clone(cur.Fumigations)
		items[i].CompletedAt = &now
		item = items[i]
		return FumigationState{Fumigations: items}, nil
	})
	if err != nil {
		return Fumigation{}, err
	}

	return item, f.audit.Record(model.DomainFumigation, "fumigation.completed", item.Field)
}

// Pending returns fumigations not yet applied, earliest first.
func (f *Fumigations) Pending() []Fumigation {
	var out []Fumigation
	for _, item := range f.State().Fumigations {
		if !item.Done() {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out
}

package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/agrogestion/internal/model"
)

// Harvest is a planned or recorded harvest of one field.
type Harvest struct {
	ID          string     `yaml:"id" json:"id"`
	Field       string     `yaml:"field" json:"field"`
	Crop        string     `yaml:"crop" json:"crop"`
	PlannedAt   time.Time  `yaml:"planned_at" json:"planned_at"`
	HarvestedAt *time.Time `yaml:"harvested_at" json:"harvested_at,omitempty"`
	YieldKg     float64    `yaml:"yield_kg" json:"yield_kg,omitempty"`
}

// HarvestState is the list of harvests.
type HarvestState struct {
	Harvests []Harvest `json:"harvests"`
}

var _ Handle = (*Harvests)(nil)

// Harvests plans and records harvests per field.
type Harvests struct {
	Store[HarvestState]
	scope  *Scope
	audit  Auditor
	loader Loader
}

// NewHarvests creates the harvest store.
func NewHarvests(scope *Scope, audit Auditor, loader Loader) *Harvests {
	return &Harvests{scope: scope, audit: audit, loader: loader}
}

// Domain implements Handle.
func (h *Harvests) Domain() model.Domain { return model.DomainHarvest }

// Snapshot implements Handle.
func (h *Harvests) Snapshot() any { return h.State() }

// Hydrate loads the identity's harvests.
func (h *Harvests) Hydrate(ctx context.Context, identity model.Identity) error {
	return h.hydrate(ctx, loadWith(h.loader, identity, func(f Fixture) HarvestState {
		return HarvestState{Harvests: slices.Clone(f.Harvests)}
	}))
}

// Plan schedules a harvest.
func (h *Harvests) Plan(field, crop string, at time.Time) (Harvest, error) {
	if _, err := h.scope.Identity(); err != nil {
		return Harvest{}, err
	}
	field, crop = strings.TrimSpace(field), strings.TrimSpace(crop)
	if field == "" || crop == "" || at.IsZero() {
		return Harvest{}, fmt.Errorf("%w: harvest needs a field, a crop and a date", ErrInvalid)
	}

	item := Harvest{ID: uuid.NewString(), Field: field, Crop: crop, PlannedAt: at}
	err := h.mutate(h.scope, func(cur HarvestState, _ model.Identity) (HarvestState, error) {
		return HarvestState{Harvests: append(slices.Clone(cur.Harvests), item)}, nil
	})
	if err != nil {
		return Harvest{}, err
	}

	return item, h.audit.Record(model.DomainHarvest, "harvest.planned", fmt.Sprintf("%s on %s", crop, field))
}

// Record stores the yield of a planned harvest.
func (h *Harvests) Record(id string, yieldKg float64) (Harvest, error) {
	if _, err := h.scope.Identity(); err != nil {
		return Harvest{}, err
	}
	if yieldKg < 0 {
		return Harvest{}, fmt.Errorf("%w: yield must not be negative", ErrInvalid)
	}

	now := h.scope.Now()
	var item Harvest
	err := h.mutate(h.scope, func(cur HarvestState, _ model.Identity) (HarvestState, error) {
		i := slices.IndexFunc(cur.Harvests, func(x Harvest) bool { return x.ID == id })
		if i < 0 {
			return cur, fmt.Errorf("harvest %s: %w", id, model.ErrNotFound)
		}
		if cur.Harvests[i].HarvestedAt != nil {
			return cur, fmt.Errorf("%w: harvest %s already recorded", ErrState, id)
		}
		items := slices.Clone(cur.Harvests)
		items[i].HarvestedAt = &now
		items[i].YieldKg = yieldKg
		item = items[i]
		return HarvestState{Harvests: items}, nil
	})
	if err != nil {
		return Harvest{}, err
	}

	return item, h.audit.Record(model.DomainHarvest, "harvest.recorded", fmt.Sprintf("%s %.0f kg", item.Field, yieldKg))
}

// Upcoming returns unrecorded harvests planned from now until the window ends, soonest first.
func (h *Harvests) Upcoming(within time.Duration) []Harvest {
	now := h.scope.Now()
	limit := now.Add(within)
	var out []Harvest
	for _, item := range h.State().Harvests {
		if item.HarvestedAt == nil && !item.PlannedAt.Before(now) && !item.PlannedAt.After(limit) {
			out = append(out, item)
		}
	}
	slices.SortStableFunc(out, func(a, b Harvest) int { return a.PlannedAt.Compare(b.PlannedAt) })
	return out
}

// Fields returns the distinct fields with harvests, sorted.
func (h *Harvests) Fields() []string {
	var out []string
	for _, item := range h.State().Harvests {
		if !slices.Contains(out, item.Field) {
			out = append(out, item.Field)
		}
	}
	slices.Sort(out)
	return out
}

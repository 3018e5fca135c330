package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/agrogestion/internal/model"
)

// Product is a stocked item in one warehouse.
type Product struct {
	ID        string     `yaml:"id" json:"id"`
	Name      string     `yaml:"name" json:"name"`
	Warehouse string     `yaml:"warehouse" json:"warehouse"`
	Unit      string     `yaml:"unit" json:"unit,omitempty"`
	Stock     float64    `yaml:"stock" json:"stock"`
	MinStock  float64    `yaml:"min_stock" json:"min_stock"`
	ExpiresAt *time.Time `yaml:"expires_at" json:"expires_at,omitempty"`
}

// Low reports whether the product is at or below its minimum stock.
func (p Product) Low() bool {
	return p.MinStock > 0 && p.Stock <= p.MinStock
}

// StockState is the inventory.
type StockState struct {
	Products []Product `json:"products"`
}

func (s StockState) index(id string) int {
	return slices.IndexFunc(s.Products, func(p Product) bool { return p.ID == id })
}

var _ Handle = (*Stock)(nil)

// Stock is the inventory store.
type Stock struct {
	Store[StockState]
	scope  *Scope
	audit  Auditor
	loader Loader
}

// NewStock creates the inventory store.
func NewStock(scope *Scope, audit Auditor, loader Loader) *Stock {
	return &Stock{scope: scope, audit: audit, loader: loader}
}

// Domain implements Handle.
func (s *Stock) Domain() model.Domain { return model.DomainStock }

// Snapshot implements Handle.
func (s *Stock) Snapshot() any { return s.State() }

// Hydrate loads the identity's products.
func (s *Stock) Hydrate(ctx context.Context, identity model.Identity) error {
	return s.hydrate(ctx, loadWith(s.loader, identity, func(f Fixture) StockState {
		return StockState{Products: slices.Clone(f.Products)}
	}))
}

// AddProduct adds a product. Name and warehouse are required and the pair must be unique.
func (s *Stock) AddProduct(p Product) (Product, error) {
	if _, err := s.scope.Identity(); err != nil {
		return Product{}, err
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Warehouse = strings.TrimSpace(p.Warehouse)
	if p.Name == "" || p.Warehouse == "" || p.Stock < 0 || p.MinStock < 0 {
		return Product{}, fmt.Errorf("%w: product needs a name, a warehouse and non-negative quantities", ErrInvalid)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	err := s.mutate(s.scope, func(cur StockState, _ model.Identity) (StockState, error) {
		for _, existing := range cur.Products {
			if existing.ID == p.ID || (strings.EqualFold(existing.Name, p.Name) && existing.Warehouse == p.Warehouse) {
				return cur, fmt.Errorf("%w: product %q in %q", ErrDuplicate, p.Name, p.Warehouse)
			}
		}
		return StockState{Products: append(slices.Clone(cur.Products), p)}, nil
	})
	if err != nil {
		return Product{}, err
	}

	return p, s.audit.Record(model.DomainStock, "product.added", p.Name)
}

// Adjust changes a product's stock by delta.
func (s *Stock) Adjust(id string, delta float64) (Product, error) {
	var updated Product
	err := s.mutate(s.scope, func(cur StockState, _ model.Identity) (StockState, error) {
		i := cur.index(id)
		if i < 0 {
			return cur, fmt.Errorf("product %s: %w", id, model.ErrNotFound)
		}
		p := cur.Products[i]
		if p.Stock+delta < 0 {
			return cur, fmt.Errorf("%w: %s has %.2f", ErrInsufficientStock, p.Name, p.Stock)
		}
		p.Stock += delta
		products := slices.Clone(cur.Products)
		products[i] = p
		updated = p
		return StockState{Products: products}, nil
	})
	if err != nil {
		return Product{}, err
	}

	return updated, s.audit.Record(model.DomainStock, "stock.adjusted", fmt.Sprintf("%s %+.2f", updated.Name, delta))
}

// Move transfers qty of a product into another warehouse, creating the
// destination product when the warehouse does not stock it yet.
func (s *Stock) Move(id, toWarehouse string, qty float64) error {
	if _, err := s.scope.Identity(); err != nil {
		return err
	}
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalid)
	}

	var name string
	err := s.mutate(s.scope, func(cur StockState, _ model.Identity) (StockState, error) {
		i := cur.index(id)
		if i < 0 {
			return cur, fmt.Errorf("product %s: %w", id, model.ErrNotFound)
		}
		src := cur.Products[i]
		if src.Stock < qty {
			return cur, fmt.Errorf("%w: %s has %.2f", ErrInsufficientStock, src.Name, src.Stock)
		}
		name = src.Name

		products := slices.Clone(cur.Products)
		products[i].Stock -= qty

		j := slices.IndexFunc(products, func(p Product) bool {
			return p.Warehouse == toWarehouse && strings.EqualFold(p.Name, src.Name)
		})
		if j >= 0 {
			products[j].Stock += qty
		} else {
			dst := src
			dst.ID = uuid.NewString()
			dst.Warehouse = toWarehouse
			dst.Stock = qty
			products = append(products, dst)
		}
		return StockState{Products: products}, nil
	})
	if err != nil {
		return err
	}

	return s.audit.Record(model.DomainStock, "stock.moved", fmt.Sprintf("%s %.2f -> %s", name, qty, toWarehouse))
}

// Product returns a product by id.
func (s *Stock) Product(id string) (Product, error) {
	state := s.State()
	i := state.index(id)
	if i < 0 {
		return Product{}, fmt.Errorf("product %s: %w", id, model.ErrNotFound)
	}
	return state.Products[i], nil
}

// LowStock returns products at or below their minimum stock.
func (s *Stock) LowStock() []Product {
	var out []Product
	for _, p := range s.State().Products {
		if p.Low() {
			out = append(out, p)
		}
	}
	return out
}

// ExpiringSoon returns products expiring within the given window, soonest first.
// Already expired products are included.
func (s *Stock) ExpiringSoon(within time.Duration) []Product {
	limit := s.scope.Now().Add(within)
	var out []Product
	for _, p := range s.State().Products {
		if p.ExpiresAt != nil && !p.ExpiresAt.After(limit) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	return out
}

// Warehouses returns the distinct warehouses, sorted.
func (s *Stock) Warehouses() []string {
	var out []string
	for _, p := range s.State().Products {
		if !slices.Contains(out, p.Warehouse) {
			out = append(out, p.Warehouse)
		}
	}
	slices.Sort(out)
	return out
}

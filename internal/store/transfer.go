package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/agrogestion/internal/model"
)

// TransferStatus is the lifecycle state of a transfer.
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferCompleted TransferStatus = "completed"
	TransferCancelled TransferStatus = "cancelled"
)

// Transfer moves a quantity of a product between warehouses.
type Transfer struct {
	ID          string         `yaml:"id" json:"id"`
	ProductID   string         `yaml:"product_id" json:"product_id"`
	To          string         `yaml:"to" json:"to"`
	Quantity    float64        `yaml:"quantity" json:"quantity"`
	Status      TransferStatus `yaml:"status" json:"status"`
	RequestedAt time.Time      `yaml:"requested_at" json:"requested_at"`
}

// TransferState is the list of transfers.
type TransferState struct {
	Transfers []Transfer `json:"transfers"`
}

var _ Handle = (*Transfers)(nil)

// Transfers requests and settles stock transfers.
type Transfers struct {
	Store[TransferState]
	scope  *Scope
	audit  Auditor
	loader Loader
	stock  *Stock

	// ops serializes operations spanning this store and stock.
	ops sync.Mutex
}

// NewTransfers creates the transfer store.
func NewTransfers(scope *Scope, audit Auditor, loader Loader, stock *Stock) *Transfers {
	return &Transfers{scope: scope, audit: audit, loader: loader, stock: stock}
}

// Domain implements Handle.
func (t *Transfers) Domain() model.Domain { return model.DomainTransfer }

// Snapshot implements Handle.
func (t *Transfers) Snapshot() any { return t.State() }

// Hydrate loads the identity's transfers. Entries without a status are pending.
func (t *Transfers) Hydrate(ctx context.Context, identity model.Identity) error {
	return t.hydrate(ctx, loadWith(t.loader, identity, func(f Fixture) TransferState {
		items := slices.Clone(f.Transfers)
		for i := range items {
			if items[i].Status == "" {
				items[i].Status = TransferPending
			}
		}
		return TransferState{Transfers: items}
	}))
}

// Request creates a pending transfer. Stock is not moved until Complete.
func (t *Transfers) Request(productID, to string, qty float64) (Transfer, error) {
	if _, err := t.scope.Identity(); err != nil {
		return Transfer{}, err
	}
	to = strings.TrimSpace(to)
	if to == "" || qty <= 0 {
		return Transfer{}, fmt.Errorf("%w: transfer needs a destination and a positive quantity", ErrInvalid)
	}
	product, err := t.stock.Product(productID)
	if err != nil {
		return Transfer{}, err
	}
	if product.Warehouse == to {
		return Transfer{}, fmt.Errorf("%w: %s is already in %s", ErrInvalid, product.Name, to)
	}

	item := Transfer{
		ID:          uuid.NewString(),
		ProductID:   product.ID,
		To:          to,
		Quantity:    qty,
		Status:      TransferPending,
		RequestedAt: t.scope.Now(),
	}
	err = t.mutate(t.scope, func(cur TransferState, _ model.Identity) (TransferState, error) {
		return TransferState{Transfers: append(slices.Clone(cur.Transfers), item)}, nil
	})
	if err != nil {
		return Transfer{}, err
	}

	return item, t.audit.Record(model.DomainTransfer, "transfer.requested",
		fmt.Sprintf("%s %.2f -> %s", product.Name, qty, to))
}

// Complete moves the stock and marks the transfer completed.
func (t *Transfers) Complete(id string) (Transfer, error) {
	t.ops.Lock()
	defer t.ops.Unlock()

	item, err := t.pending(id)
	if err != nil {
		return Transfer{}, err
	}

	if err := t.stock.Move(item.ProductID, item.To, item.Quantity); err != nil {
		return Transfer{}, fmt.Errorf("failed to move stock: %w", err)
	}

	item, err = t.settle(id, TransferCompleted)
	if err != nil {
		return Transfer{}, err
	}

	return item, t.audit.Record(model.DomainTransfer, "transfer.completed", item.ID)
}

// Cancel marks a pending transfer cancelled.
func (t *Transfers) Cancel(id string) (Transfer, error) {
	t.ops.Lock()
	defer t.ops.Unlock()

	if _, err := t.pending(id); err != nil {
		return Transfer{}, err
	}

	item, err := t.settle(id, TransferCancelled)
	if err != nil {
		return Transfer{}, err
	}

	return item, t.audit.Record(model.DomainTransfer, "transfer.cancelled", item.ID)
}

// Pending returns transfers waiting to be completed, oldest first.
func (t *Transfers) Pending() []Transfer {
	var out []Transfer
	for _, item := range t.State().Transfers {
		if item.Status == TransferPending {
			out = append(out, item)
		}
	}
	slices.SortStableFunc(out, func(a, b Transfer) int { return a.RequestedAt.Compare(b.RequestedAt) })
	return out
}

func (t *Transfers) pending(id string) (Transfer, error) {
	if _, err := t.scope.Identity(); err != nil {
		return Transfer{}, err
	}
	for _, item := range t.State().Transfers {
		if item.ID != id {
			continue
		}
		if item.Status != TransferPending {
			return Transfer{}, fmt.Errorf("%w: transfer %s is %s", ErrState, id, item.Status)
		}
		return item, nil
	}
	return Transfer{}, fmt.Errorf("transfer %s: %w", id, model.ErrNotFound)
}

func (t *Transfers) settle(id string, status TransferStatus) (Transfer, error) {
	var settled Transfer
	err := t.mutate(t.scope, func(cur TransferState, _ model.Identity) (TransferState, error) {
		i := slices.IndexFunc(cur.Transfers, func(x Transfer) bool { return x.ID == id })
		if i < 0 {
			return cur, fmt.Errorf("transfer %s: %w", id, model.ErrNotFound)
		}
		items := slices.Clone(cur.Transfers)
		items[i].Status = status
		settled = items[i]
		return TransferState{Transfers: items}, nil
	})
	return settled, err
}

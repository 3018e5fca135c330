// Package dashboard builds the home screen summary out of the domain stores.
package dashboard

import (
	"time"

	"github.com/dtroode/agrogestion/internal/model"
	"github.com/dtroode/agrogestion/internal/store"
)

const (
	// PreviewSize is the number of items shown per section.
	PreviewSize = 3

	ExpiryWindow  = 30 * 24 * time.Hour
	HarvestWindow = 14 * 24 * time.Hour
)

// Source gives access to the stores the summary reads.
type Source interface {
	Stock() (*store.Stock, error)
	Transfers() (*store.Transfers, error)
	Fumigations() (*store.Fumigations, error)
	Harvests() (*store.Harvests, error)
}

var _ Source = (*store.Tree)(nil)

// Section is a preview of a list: the first items and how many were left out.
type Section[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	More  int `json:"more"`
}

func preview[T any](items []T) Section[T] {
	s := Section[T]{Items: items, Total: len(items)}
	if len(items) > PreviewSize {
		s.Items = items[:PreviewSize]
		s.More = len(items) - PreviewSize
	}
	if s.Items == nil {
		s.Items = []T{}
	}
	return s
}

// Summary is the dashboard content.
type Summary struct {
	TotalProducts         int `json:"total_products"`
	LowStockCount         int `json:"low_stock_count"`
	PendingTransfersCount int `json:"pending_transfers_count"`
	WarehouseCount        int `json:"warehouse_count"`

	LowStock           Section[store.Product]    `json:"low_stock"`
	ExpiringSoon       Section[store.Product]    `json:"expiring_soon"`
	PendingTransfers   Section[store.Transfer]   `json:"pending_transfers"`
	PendingFumigations Section[store.Fumigation] `json:"pending_fumigations"`
	UpcomingHarvests   Section[store.Harvest]    `json:"upcoming_harvests"`

	// Errors holds the domains that could not be read. Their sections are empty.
	Errors map[model.Domain]string `json:"errors,omitempty"`
}

// Build computes the summary. A store that is unavailable or failed to load
// only empties its own sections.
func Build(src Source) Summary {
	s := Summary{
		LowStock:           preview[store.Product](nil),
		ExpiringSoon:       preview[store.Product](nil),
		PendingTransfers:   preview[store.Transfer](nil),
		PendingFumigations: preview[store.Fumigation](nil),
		UpcomingHarvests:   preview[store.Harvest](nil),
	}
	fail := func(domain model.Domain, err error) {
		if s.Errors == nil {
			s.Errors = make(map[model.Domain]string)
		}
		s.Errors[domain] = err.Error()
	}

	if stock, err := usable(src.Stock()); err != nil {
		fail(model.DomainStock, err)
	} else {
		low := stock.LowStock()
		s.TotalProducts = len(stock.State().Products)
		s.LowStockCount = len(low)
		s.WarehouseCount = len(stock.Warehouses())
		s.LowStock = preview(low)
		s.ExpiringSoon = preview(stock.ExpiringSoon(ExpiryWindow))
	}

	if transfers, err := usable(src.Transfers()); err != nil {
		fail(model.DomainTransfer, err)
	} else {
		pending := transfers.Pending()
		s.PendingTransfersCount = len(pending)
		s.PendingTransfers = preview(pending)
	}

	if fumigations, err := usable(src.Fumigations()); err != nil {
		fail(model.DomainFumigation, err)
	} else {
		s.PendingFumigations = preview(fumigations.Pending())
	}

	if harvests, err := usable(src.Harvests()); err != nil {
		fail(model.DomainHarvest, err)
	} else {
		s.UpcomingHarvests = preview(harvests.Upcoming(HarvestWindow))
	}

	return s
}

func usable[H store.Handle](h H, err error) (H, error) {
	if err != nil {
		return h, err
	}
	if st := h.Status(); st.Err != nil {
		return h, st.Err
	}
	return h, nil
}

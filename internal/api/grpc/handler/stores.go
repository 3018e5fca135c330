package handler

import (
	"context"
	"errors"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dtroode/agrogestion/internal/logger"
	"github.com/dtroode/agrogestion/internal/model"
	"github.com/dtroode/agrogestion/internal/store"
)

// Tree defines the store tree operations served by the Stores service.
type Tree interface {
	Lookup(domain model.Domain) (store.Handle, error)
	Retry(ctx context.Context, domain model.Domain) error
	Refresh(ctx context.Context) error
	Domains() []model.Domain
	Statuses() map[model.Domain]store.Status
	Failures() map[model.Domain]error
}

var _ StoresServer = (*Stores)(nil)

// Stores handles gRPC endpoints for the domain stores.
type Stores struct {
	tree   Tree
	logger *logger.Logger
}

// NewStores creates a new Stores handler.
func NewStores(tree Tree, logger *logger.Logger) *Stores {
	return &Stores{tree: tree, logger: logger}
}

type storeStatus struct {
	Domain    model.Domain `json:"domain"`
	Available bool         `json:"available"`
	Busy      bool         `json:"busy"`
	Error     string       `json:"error,omitempty"`
}

func (h *Stores) status(domain model.Domain) storeStatus {
	st := storeStatus{Domain: domain}
	if err, failed := h.tree.Failures()[domain]; failed {
		st.Error = err.Error()
	}
	s, ok := h.tree.Statuses()[domain]
	st.Available = ok
	st.Busy = s.Busy
	return st
}

// Snapshot returns the state of the domain named by req.
func (h *Stores) Snapshot(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	domain := model.Domain(req.GetValue())

	handle, err := h.tree.Lookup(domain)
	if err != nil {
		return nil, handleError(err)
	}

	resp, err := toStruct(struct {
		storeStatus
		State any `json:"state"`
	}{storeStatus: h.status(domain), State: handle.Snapshot()})
	if err != nil {
		h.logger.Error("Stores handler: failed to encode snapshot",
			"domain", string(domain),
			"error", err.Error())
		return nil, handleError(err)
	}
	return resp, nil
}

// Retry reconstructs or reloads the domain named by req.
func (h *Stores) Retry(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	domain := model.Domain(req.GetValue())

	if err := h.tree.Retry(ctx, domain); err != nil {
		h.logger.Warn("Stores handler: retry failed",
			"domain", string(domain),
			"error", err.Error())
		return nil, handleError(err)
	}

	resp, err := toStruct(h.status(domain))
	if err != nil {
		return nil, handleError(err)
	}
	return resp, nil
}

// Refresh reloads every store and returns the resulting statuses. Load
// failures are reported per domain rather than failing the call.
func (h *Stores) Refresh(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := h.tree.Refresh(ctx); err != nil {
		if errors.Is(err, model.ErrTreeNotBuilt) || ctx.Err() != nil {
			return nil, handleError(err)
		}
		h.logger.Warn("Stores handler: refresh incomplete", "error", err.Error())
	}
	return h.statuses()
}

// Status lists the status of every domain in construction order.
func (h *Stores) Status(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return h.statuses()
}

func (h *Stores) statuses() (*structpb.Struct, error) {
	domains := h.tree.Domains()
	out := make([]storeStatus, 0, len(domains))
	for _, d := range domains {
		out = append(out, h.status(d))
	}

	resp, err := toStruct(struct {
		Domains []storeStatus `json:"domains"`
	}{Domains: out})
	if err != nil {
		return nil, handleError(err)
	}
	return resp, nil
}

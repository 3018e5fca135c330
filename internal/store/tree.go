package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dtroode/agrogestion/internal/logger"
	"github.com/dtroode/agrogestion/internal/model"
)

// Provider constructs one domain store of the tree.
type Provider struct {
	Domain model.Domain
	// Requires lists domains that must be constructed first. They must be
	// declared by earlier providers.
	Requires []model.Domain
	// Scoped stores hold identity data: they are constructed after the
	// session resolves and are reset whenever the identity changes.
	Scoped bool
	New    func(t *Tree) (Handle, error)
}

// DefaultProviders returns the application stores in construction order.
func DefaultProviders() []Provider {
	return []Provider{
		{
			Domain: model.DomainActivity,
			Scoped: true,
			New: func(t *Tree) (Handle, error) {
				return NewActivity(t.Scope()), nil
			},
		},
		{
			Domain:   model.DomainStock,
			Requires: []model.Domain{model.DomainActivity},
			Scoped:   true,
			New: func(t *Tree) (Handle, error) {
				audit, err := t.Activity()
				if err != nil {
					return nil, err
				}
				return NewStock(t.Scope(), audit, t.Loader()), nil
			},
		},
		{
			Domain:   model.DomainFumigation,
			Requires: []model.Domain{model.DomainActivity, model.DomainStock},
			Scoped:   true,
			New: func(t *Tree) (Handle, error) {
				audit, err := t.Activity()
				if err != nil {
					return nil, err
				}
				stock, err := t.Stock()
				if err != nil {
					return nil, err
				}
				return NewFumigations(t.Scope(), audit, t.Loader(), stock), nil
			},
		},
		{
			Domain:   model.DomainTransfer,
			Requires: []model.Domain{model.DomainActivity, model.DomainStock},
			Scoped:   true,
			New: func(t *Tree) (Handle, error) {
				audit, err := t.Activity()
				if err != nil {
					return nil, err
				}
				stock, err := t.Stock()
				if err != nil {
					return nil, err
				}
				return NewTransfers(t.Scope(), audit, t.Loader(), stock), nil
			},
		},
		{
			Domain:   model.DomainHarvest,
			Requires: []model.Domain{model.DomainActivity},
			Scoped:   true,
			New: func(t *Tree) (Handle, error) {
				audit, err := t.Activity()
				if err != nil {
					return nil, err
				}
				return NewHarvests(t.Scope(), audit, t.Loader()), nil
			},
		},
		{
			Domain:   model.DomainExpense,
			Requires: []model.Domain{model.DomainActivity},
			Scoped:   true,
			New: func(t *Tree) (Handle, error) {
				audit, err := t.Activity()
				if err != nil {
					return nil, err
				}
				return NewExpenses(t.Scope(), audit, t.Loader()), nil
			},
		},
		{
			Domain:   model.DomainUsers,
			Requires: []model.Domain{model.DomainActivity},
			Scoped:   true,
			New: func(t *Tree) (Handle, error) {
				audit, err := t.Activity()
				if err != nil {
					return nil, err
				}
				return NewUsers(t.Scope(), audit, t.Loader()), nil
			},
		},
	}
}

type hydration struct {
	identity model.Identity
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// Tree owns exactly one instance of each domain store and keeps the
// identity-scoped ones in step with the session.
type Tree struct {
	sessions  model.SessionSource
	loader    Loader
	logger    *logger.Logger
	scope     *Scope
	providers []Provider

	// hydrateMu serializes hydration runs and retries.
	hydrateMu sync.Mutex

	// sessionMu serializes session transitions handled by the tree.
	sessionMu sync.Mutex
	current   *hydration
	// applied is the version of the last session handled.
	applied uint64

	mu          sync.RWMutex
	built       bool
	base        context.Context
	handles     map[model.Domain]Handle
	failures    map[model.Domain]error
	unsubscribe func()
}

// NewTree creates a tree over the given providers, or DefaultProviders when
// none are given. Providers are validated but not constructed until Build.
func NewTree(sessions model.SessionSource, loader Loader, logger *logger.Logger, providers ...Provider) (*Tree, error) {
	if len(providers) == 0 {
		providers = DefaultProviders()
	}
	if loader == nil {
		loader = NopLoader{}
	}

	seen := make(map[model.Domain]Provider, len(providers))
	for _, p := range providers {
		if p.New == nil {
			return nil, fmt.Errorf("provider %s has no constructor", p.Domain)
		}
		if _, ok := seen[p.Domain]; ok {
			return nil, fmt.Errorf("duplicate provider for %s", p.Domain)
		}
		for _, dep := range p.Requires {
			required, ok := seen[dep]
			if !ok {
				return nil, fmt.Errorf("provider %s requires %s which is not declared before it", p.Domain, dep)
			}
			if !p.Scoped && required.Scoped {
				return nil, fmt.Errorf("unscoped provider %s cannot require scoped %s", p.Domain, dep)
			}
		}
		seen[p.Domain] = p
	}

	return &Tree{
		sessions:  sessions,
		loader:    loader,
		logger:    logger,
		scope:     NewScope(sessions, nil),
		providers: slices.Clone(providers),
		handles:   make(map[model.Domain]Handle, len(providers)),
		failures:  make(map[model.Domain]error),
	}, nil
}

// WithClock replaces the clock used by the stores. It must be called before Build.
func (t *Tree) WithClock(now func() time.Time) *Tree {
	t.scope = NewScope(t.sessions, now)
	return t
}

// Scope returns the identity scope shared by the stores.
func (t *Tree) Scope() *Scope { return t.scope }

// Loader returns the fixture loader used for hydration.
func (t *Tree) Loader() Loader { return t.loader }

// Build constructs the stores in provider order. Unscoped stores are
// constructed immediately, scoped ones once the session has resolved.
// A provider that fails, or whose dependency failed, leaves its domain
// unavailable without affecting the others. Build runs once.
func (t *Tree) Build(ctx context.Context) error {
	t.mu.Lock()
	if t.built {
		t.mu.Unlock()
		return model.ErrTreeBuilt
	}
	t.built = true
	t.base = context.WithoutCancel(ctx)
	t.mu.Unlock()

	t.hydrateMu.Lock()
	for _, p := range t.providers {
		if p.Scoped {
			continue
		}
		if h := t.construct(p); h != nil {
			if err := h.Hydrate(ctx, model.Identity{}); err != nil {
				t.logger.Warn("Tree: failed to load store", "domain", string(p.Domain), "error", err.Error())
			}
		}
	}
	t.hydrateMu.Unlock()

	if _, err := t.sessions.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for session: %w", err)
	}

	t.hydrateMu.Lock()
	for _, p := range t.providers {
		if p.Scoped {
			t.construct(p)
		}
	}
	t.hydrateMu.Unlock()

	unsubscribe := t.sessions.Subscribe(t.onSession)
	t.mu.Lock()
	t.unsubscribe = unsubscribe
	t.mu.Unlock()

	if s, ok := t.sessions.Session(); ok {
		t.onSession(s)
	}

	t.logger.Info("Tree: built", "stores", len(t.providers), "failed", len(t.constructionFailures()))

	return nil
}

// construct runs one provider and records the handle or the failure.
// Callers hold hydrateMu.
func (t *Tree) construct(p Provider) Handle {
	h, err := t.runProvider(p)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		delete(t.handles, p.Domain)
		t.failures[p.Domain] = err
		t.logger.Error("Tree: failed to construct store", "domain", string(p.Domain), "error", err.Error())
		return nil
	}
	delete(t.failures, p.Domain)
	t.handles[p.Domain] = h
	return h
}

func (t *Tree) runProvider(p Provider) (h Handle, err error) {
	t.mu.RLock()
	for _, dep := range p.Requires {
		if cause, failed := t.failures[dep]; failed {
			t.mu.RUnlock()
			return nil, fmt.Errorf("dependency %s failed: %w", dep, cause)
		}
	}
	t.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			h, err = nil, fmt.Errorf("provider panicked: %v", r)
		}
	}()

	h, err = p.New(t)
	if err != nil {
		return nil, err
	}
	if h == nil || h.Domain() != p.Domain {
		return nil, fmt.Errorf("provider returned a store for the wrong domain")
	}
	return h, nil
}

// onSession follows session transitions. A session older than the last one
// handled is ignored: Build reads the session outside the broadcast and may
// deliver it after a newer transition.
func (t *Tree) onSession(s model.Session) {
	t.sessionMu.Lock()
	defer t.sessionMu.Unlock()

	if s.Version <= t.applied {
		return
	}
	t.applied = s.Version

	switch s.State() {
	case model.StateAuthenticated:
		if t.current != nil && t.current.identity.ID == s.Identity.ID {
			return
		}
		t.resetScoped()
		t.current = t.startHydration(*s.Identity)
	case model.StateUnauthenticated:
		if t.current == nil {
			return
		}
		t.resetScoped()
		t.current = nil
	}
}

// resetScoped cancels the running hydration and clears every scoped store.
// Callers hold sessionMu.
func (t *Tree) resetScoped() {
	if t.current != nil {
		t.current.cancel()
	}
	for _, h := range t.scopedHandles() {
		h.Reset()
	}
}

func (t *Tree) startHydration(identity model.Identity) *hydration {
	t.mu.RLock()
	base := t.base
	t.mu.RUnlock()

	ctx, cancel := context.WithCancel(base)
	run := &hydration{identity: identity, ctx: ctx, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(run.done)

		t.hydrateMu.Lock()
		defer t.hydrateMu.Unlock()

		for _, h := range t.scopedHandles() {
			if run.ctx.Err() != nil {
				return
			}
			t.hydrateOne(run.ctx, h, identity)
		}
		t.logger.Debug("Tree: stores hydrated", "user_id", identity.ID.String())
	}()

	return run
}

func (t *Tree) hydrateOne(ctx context.Context, h Handle, identity model.Identity) error {
	err := h.Hydrate(ctx, identity)
	if err != nil && !errors.Is(err, context.Canceled) {
		t.logger.Warn("Tree: failed to load store",
			"domain", string(h.Domain()),
			"user_id", identity.ID.String(),
			"error", err.Error())
	}
	return err
}

func (t *Tree) scopedHandles() []Handle {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Handle
	for _, p := range t.providers {
		if h, ok := t.handles[p.Domain]; ok && p.Scoped {
			out = append(out, h)
		}
	}
	return out
}

// Settle waits until the hydration for the current identity has finished.
func (t *Tree) Settle(ctx context.Context) error {
	t.sessionMu.Lock()
	run := t.current
	t.sessionMu.Unlock()
	if run == nil {
		return nil
	}

	select {
	case <-run.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retry reconstructs a domain that failed to construct, together with every
// dependent that failed because of it, or reloads a domain whose load failed.
func (t *Tree) Retry(ctx context.Context, domain model.Domain) error {
	t.hydrateMu.Lock()
	defer t.hydrateMu.Unlock()

	t.mu.RLock()
	built := t.built
	_, constructFailed := t.failures[domain]
	h := t.handles[domain]
	t.mu.RUnlock()

	if !built {
		return model.ErrTreeNotBuilt
	}
	i := slices.IndexFunc(t.providers, func(p Provider) bool { return p.Domain == domain })
	if i < 0 {
		return fmt.Errorf("%w: %s", model.ErrUnknownDomain, domain)
	}

	if constructFailed {
		return t.reconstruct(ctx, i)
	}

	if h.Status().Err == nil {
		return nil
	}
	return t.reload(ctx, t.providers[i], h)
}

// Refresh reloads every constructed store: unscoped stores as they are and
// scoped stores for the current identity. Scoped stores are skipped while no
// identity is signed in. Load failures are joined in the returned error and
// kept in the store status.
func (t *Tree) Refresh(ctx context.Context) error {
	t.hydrateMu.Lock()
	defer t.hydrateMu.Unlock()

	t.mu.RLock()
	built := t.built
	t.mu.RUnlock()
	if !built {
		return model.ErrTreeNotBuilt
	}

	var errs []error
	reloaded := 0
	for _, p := range t.providers {
		t.mu.RLock()
		h, ok := t.handles[p.Domain]
		t.mu.RUnlock()
		if !ok {
			continue
		}

		err := t.reload(ctx, p, h)
		switch {
		case err == nil:
			reloaded++
		case errors.Is(err, model.ErrNoIdentity):
		case errors.Is(err, context.Canceled) && ctx.Err() == nil:
			// identity changed under the reload
		default:
			errs = append(errs, fmt.Errorf("%s: %w", p.Domain, err))
		}
	}

	t.logger.Debug("Tree: stores refreshed", "count", reloaded, "failed", len(errs))

	return errors.Join(errs...)
}

func (t *Tree) reconstruct(ctx context.Context, from int) error {
	var rebuilt []Provider
	for _, p := range t.providers[from:] {
		t.mu.RLock()
		_, failed := t.failures[p.Domain]
		t.mu.RUnlock()
		if !failed {
			continue
		}
		if h := t.construct(p); h != nil {
			rebuilt = append(rebuilt, p)
		}
	}

	target := t.providers[from].Domain
	t.mu.RLock()
	cause, stillFailed := t.failures[target]
	t.mu.RUnlock()
	if stillFailed {
		return fmt.Errorf("%w: %s: %w", model.ErrStoreUnavailable, target, cause)
	}

	t.logger.Info("Tree: stores reconstructed", "domain", string(target), "count", len(rebuilt))

	for _, p := range rebuilt {
		t.mu.RLock()
		h := t.handles[p.Domain]
		t.mu.RUnlock()
		if err := t.reload(ctx, p, h); err != nil && !errors.Is(err, model.ErrNoIdentity) {
			return err
		}
	}
	return nil
}

// reload hydrates one store for the identity of the running hydration, so
// that an identity change cancels the reload too. Callers hold hydrateMu.
func (t *Tree) reload(ctx context.Context, p Provider, h Handle) error {
	if !p.Scoped {
		return h.Hydrate(ctx, model.Identity{})
	}

	t.sessionMu.Lock()
	run := t.current
	t.sessionMu.Unlock()
	if run == nil {
		return model.ErrNoIdentity
	}

	runCtx, cancel := context.WithCancel(run.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return t.hydrateOne(runCtx, h, run.identity)
}

// Lookup returns the store of a domain. A domain that failed to construct
// returns ErrStoreUnavailable wrapping the cause.
func (t *Tree) Lookup(domain model.Domain) (Handle, error) {
	if !slices.ContainsFunc(t.providers, func(p Provider) bool { return p.Domain == domain }) {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownDomain, domain)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if cause, ok := t.failures[domain]; ok {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrStoreUnavailable, domain, cause)
	}
	h, ok := t.handles[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrStoreUnavailable, domain, model.ErrTreeNotBuilt)
	}
	return h, nil
}

func lookupAs[H Handle](t *Tree, domain model.Domain) (H, error) {
	var zero H
	h, err := t.Lookup(domain)
	if err != nil {
		return zero, err
	}
	typed, ok := h.(H)
	if !ok {
		return zero, fmt.Errorf("%w: %s is provided by %T", model.ErrStoreUnavailable, domain, h)
	}
	return typed, nil
}

func (t *Tree) Activity() (*Activity, error) { return lookupAs[*Activity](t, model.DomainActivity) }

func (t *Tree) Stock() (*Stock, error) { return lookupAs[*Stock](t, model.DomainStock) }

func (t *Tree) Fumigations() (*Fumigations, error) {
	return lookupAs[*Fumigations](t, model.DomainFumigation)
}

func (t *Tree) Transfers() (*Transfers, error) { return lookupAs[*Transfers](t, model.DomainTransfer) }

func (t *Tree) Harvests() (*Harvests, error) { return lookupAs[*Harvests](t, model.DomainHarvest) }

func (t *Tree) Expenses() (*Expenses, error) { return lookupAs[*Expenses](t, model.DomainExpense) }

func (t *Tree) Users() (*Users, error) { return lookupAs[*Users](t, model.DomainUsers) }

// Domains returns the provided domains in construction order.
func (t *Tree) Domains() []model.Domain {
	out := make([]model.Domain, 0, len(t.providers))
	for _, p := range t.providers {
		out = append(out, p.Domain)
	}
	return out
}

// Failures returns construction and load failures per domain.
func (t *Tree) Failures() map[model.Domain]error {
	out := t.constructionFailures()
	for d, s := range t.Statuses() {
		if s.Err != nil {
			out[d] = s.Err
		}
	}
	return out
}

func (t *Tree) constructionFailures() map[model.Domain]error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[model.Domain]error, len(t.failures))
	for d, err := range t.failures {
		out[d] = err
	}
	return out
}

// Statuses returns the status of every constructed store.
func (t *Tree) Statuses() map[model.Domain]Status {
	t.mu.RLock()
	handles := make(map[model.Domain]Handle, len(t.handles))
	for d, h := range t.handles {
		handles[d] = h
	}
	t.mu.RUnlock()

	out := make(map[model.Domain]Status, len(handles))
	for d, h := range handles {
		out[d] = h.Status()
	}
	return out
}

// Close stops following the session and cancels any running hydration.
func (t *Tree) Close() {
	t.mu.Lock()
	unsubscribe := t.unsubscribe
	t.unsubscribe = nil
	t.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}

	t.sessionMu.Lock()
	if t.current != nil {
		t.current.cancel()
	}
	t.sessionMu.Unlock()
}

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

// Expense is a spending record.
type Expense struct {
	ID          string    `yaml:"id" json:"id"`
	Category    string    `yaml:"category" json:"category"`
	Description string    `yaml:"description" json:"description,omitempty"`
	Amount      float64   `yaml:"amount" json:"amount"`
	SpentAt     time.Time `yaml:"spent_at" json:"spent_at"`
}

// ExpenseState is the list of expenses.
type ExpenseState struct {
	Expenses []Expense `json:"expenses"`
}

var _ Handle = (*Expenses)(nil)

// Expenses tracks spending by category.
type Expenses struct {
	Store[ExpenseState]
	scope  *Scope
	audit  Auditor
	loader Loader
}

// NewExpenses creates the expense store.
func NewExpenses(scope *Scope, audit Auditor, loader Loader) *Expenses {
	return &Expenses{scope: scope, audit: audit, loader: loader}
}

// Domain implements Handle.
func (e *Expenses) Domain() model.Domain { return model.DomainExpense }

// Snapshot implements Handle.
func (e *Expenses) Snapshot() any { return e.State() }

// Hydrate loads the identity's expenses.
func (e *Expenses) Hydrate(ctx context.Context, identity model.Identity) error {
	return e.hydrate(ctx, loadWith(e.loader, identity, func(f Fixture) ExpenseState {
		return ExpenseState{Expenses: slices.Clone(f.Expenses)}
	}))
}

// Add records an expense. A zero SpentAt is set to the current time.
func (e *Expenses) Add(item Expense) (Expense, error) {
	if _, err := e.scope.Identity(); err != nil {
		return Expense{}, err
	}
	item.Category = strings.ToLower(strings.TrimSpace(item.Category))
	if item.Category == "" || item.Amount <= 0 {
		return Expense{}, fmt.Errorf("%w: expense needs a category and a positive amount", ErrInvalid)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.SpentAt.IsZero() {
		item.SpentAt = e.scope.Now()
	}

	err := e.mutate(e.scope, func(cur ExpenseState, _ model.Identity) (ExpenseState, error) {
		return ExpenseState{Expenses: append(slices.Clone(cur.Expenses), item)}, nil
	})
	if err != nil {
		return Expense{}, err
	}

	return item, e.audit.Record(model.DomainExpense, "expense.added", fmt.Sprintf("%s %.2f", item.Category, item.Amount))
}

// Total returns the sum of all expenses.
func (e *Expenses) Total() float64 {
	var total float64
	for _, item := range e.State().Expenses {
		total += item.Amount
	}
	return total
}

// ByCategory returns the sum of expenses per category.
func (e *Expenses) ByCategory() map[string]float64 {
	out := make(map[string]float64)
	for _, item := range e.State().Expenses {
		out[item.Category] += item.Amount
	}
	return out
}

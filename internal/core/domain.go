package core

import (
	"errors"
	"strings"
	"time"
)

// Kind classifies the direction of a money movement.
type Kind string

const (
	KindIncome     Kind = "income"
	KindExpense    Kind = "expense"
	KindInvestment Kind = "investment"
)

// Kinds lists every valid kind in display order.
var Kinds = []Kind{KindIncome, KindExpense, KindInvestment}

func (k Kind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindInvestment:
		return true
	}
	return false
}

type (
	// Money carries a monetary amount as integer cents. Sums over cents
	// are exact; conversion to a two-decimal display value happens only
	// at presentation.
	Money struct {
		Cents int64
	}

	// Category is an owner-scoped label for transactions. Name is unique
	// within an owner. The kind is informational: a transaction carries
	// its own kind and may drift from its category's.
	Category struct {
		ID      string
		OwnerID string
		Name    string
		Kind    Kind
	}

	// Transaction is a single ledger entry. Immutable once recorded,
	// except for category reassignment during a category delete.
	Transaction struct {
		ID       string
		OwnerID  string
		Date     time.Time
		Amount   Money
		Kind     Kind
		Category string
		Note     string
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidKind   = errors.New("invalid kind")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyCategory = errors.New("empty category")
	ErrEmptyName     = errors.New("empty name")
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Signed returns the amount as a balance delta: positive for income,
// negative for expenses and investments.
func (m Money) Signed(k Kind) int64 {
	if k == KindIncome {
		return m.Cents
	}
	return -m.Cents
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if !c.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Note) > 500 {
		return errors.New("note too long (max 500 characters)")
	}
	return nil
}

// Day truncates t to midnight UTC, the canonical transaction date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

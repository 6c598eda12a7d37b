// Package ledger exposes owner-scoped access to categories and
// transactions, fronted by a short-lived read cache. The backing store is
// the sole source of truth: every pass reloads, computes and renders from
// scratch, and every write invalidates the owner's cached collections
// before returning.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"finanzas/internal/cache"
	"finanzas/internal/core"
)

// Repository is the persistence port implemented by internal/storage.
// All methods are owner-scoped; row-level visibility is enforced by the
// store itself, never by callers filtering in memory.
type Repository interface {
	// Categories returns the owner's categories sorted by name.
	Categories(ctx context.Context, ownerID string) ([]core.Category, error)
	// InsertCategory adds a category, failing with ErrDuplicateCategory
	// when the name is already taken within the owner's scope.
	InsertCategory(ctx context.Context, c core.Category) error
	// SeedCategories inserts the given categories, skipping names that
	// already exist, as one atomic unit. Returns the number inserted.
	SeedCategories(ctx context.Context, ownerID string, defaults []core.Category) (int, error)
	// DeleteCategory removes a category by name. When transactions
	// reference it, reassignTo must name another existing category; the
	// reassignment and the delete happen in one transaction. An empty
	// reassignTo with referencing transactions fails with
	// ErrCategoryInUse. Deleting a name the owner does not have is a
	// no-op.
	DeleteCategory(ctx context.Context, ownerID, name, reassignTo string) error

	// Transactions returns the owner's transactions sorted by date
	// ascending.
	Transactions(ctx context.Context, ownerID string) ([]core.Transaction, error)
	InsertTransaction(ctx context.Context, t core.Transaction) error
	// DeleteTransaction removes a transaction by id. Ids that do not
	// exist or belong to another owner are a silent no-op.
	DeleteTransaction(ctx context.Context, ownerID, id string) error
	// GetTransaction fetches one transaction, failing with ErrNotFound.
	GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error)
}

// EventPublisher receives notifications about ledger writes. Publishing is
// best-effort: a failed publish is logged and never fails the write.
type EventPublisher interface {
	TransactionRecorded(ctx context.Context, ownerID, transactionID string) error
	TransactionDeleted(ctx context.Context, ownerID, transactionID string) error
}

// DefaultCategories is the seed set inserted on an owner's first visit.
var DefaultCategories = []struct {
	Name string
	Kind core.Kind
}{
	{"Salary", core.KindIncome},
	{"Extra", core.KindIncome},
	{"Rent", core.KindExpense},
	{"Food", core.KindExpense},
	{"Transport", core.KindExpense},
	{"Services", core.KindExpense},
	{"Entertainment", core.KindExpense},
	{"Health", core.KindExpense},
	{"Savings", core.KindInvestment},
	{"Crypto", core.KindInvestment},
}

const (
	// DefaultCacheTTL bounds how stale a read may be when another
	// process wrote the same owner's data. Writes from this process
	// invalidate synchronously and never wait for expiry.
	DefaultCacheTTL = 45 * time.Second

	cacheMaxOwners = 512
)

// Store is the cached ledger. Cache entries are keyed by owner id, one
// cache per collection, so invalidation after a write is scoped to the
// owner that was touched.
type Store struct {
	repo   Repository
	events EventPublisher // optional
	cats   *cache.TTLCache[[]core.Category]
	txs    *cache.TTLCache[[]core.Transaction]
}

// NewStore builds a Store over repo. events may be nil when no broker is
// configured.
func NewStore(repo Repository, ttl time.Duration, events EventPublisher) *Store {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Store{
		repo:   repo,
		events: events,
		cats:   cache.New[[]core.Category](cacheMaxOwners, ttl),
		txs:    cache.New[[]core.Transaction](cacheMaxOwners, ttl),
	}
}

// Caches exposes the store's caches for janitor registration.
func (s *Store) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.cats, s.txs}
}

// LoadCategories returns the owner's categories sorted by name, serving
// from cache when a live entry exists. The result is never nil.
func (s *Store) LoadCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	if cats, ok := s.cats.Get(ownerID); ok {
		return cats, nil
	}
	cats, err := s.repo.Categories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	if cats == nil {
		cats = []core.Category{}
	}
	s.cats.Set(ownerID, cats)
	return cats, nil
}

// LoadTransactions returns the owner's transactions sorted by date
// ascending, serving from cache when a live entry exists. The result is
// never nil.
func (s *Store) LoadTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	if txs, ok := s.txs.Get(ownerID); ok {
		return txs, nil
	}
	txs, err := s.repo.Transactions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	s.txs.Set(ownerID, txs)
	return txs, nil
}

// EnsureDefaultCategories seeds the default set when the owner has no
// categories at all, and no-ops otherwise. The store-level uniqueness
// constraint makes the seed idempotent even when two sessions race on a
// first login.
func (s *Store) EnsureDefaultCategories(ctx context.Context, ownerID string) error {
	cats, err := s.LoadCategories(ctx, ownerID)
	if err != nil {
		return err
	}
	if len(cats) > 0 {
		return nil
	}
	defaults := make([]core.Category, 0, len(DefaultCategories))
	for _, d := range DefaultCategories {
		defaults = append(defaults, core.Category{
			ID:      uuid.NewString(),
			OwnerID: ownerID,
			Name:    d.Name,
			Kind:    d.Kind,
		})
	}
	n, err := s.repo.SeedCategories(ctx, ownerID, defaults)
	if err != nil {
		return fmt.Errorf("seed default categories: %w", err)
	}
	s.cats.Delete(ownerID)
	slog.InfoContext(ctx, "Seeded default categories", "owner_id", ownerID, "inserted", n)
	return nil
}

// AddCategory inserts a category for the owner.
func (s *Store) AddCategory(ctx context.Context, ownerID, name string, kind core.Kind) (core.Category, error) {
	c := core.Category{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Name:    strings.TrimSpace(name),
		Kind:    kind,
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.repo.InsertCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("add category %q: %w", c.Name, err)
	}
	s.cats.Delete(ownerID)
	return c, nil
}

// DeleteCategory removes a category by name. Transactions referencing it
// are reassigned to reassignTo first; with no target and live references
// the delete fails with ErrCategoryInUse and nothing changes.
func (s *Store) DeleteCategory(ctx context.Context, ownerID, name, reassignTo string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyName
	}
	if err := s.repo.DeleteCategory(ctx, ownerID, name, strings.TrimSpace(reassignTo)); err != nil {
		return fmt.Errorf("delete category %q: %w", name, err)
	}
	// Reassignment rewrites transactions, so both collections are stale.
	s.cats.Delete(ownerID)
	s.txs.Delete(ownerID)
	return nil
}

// AddTransaction records a ledger entry dated at midnight UTC of the given
// day. Amounts must be strictly positive; direction comes from the kind.
func (s *Store) AddTransaction(ctx context.Context, ownerID string, date time.Time, amount core.Money, kind core.Kind, category, note string) (core.Transaction, error) {
	t := core.Transaction{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		Date:     core.Day(date),
		Amount:   amount,
		Kind:     kind,
		Category: strings.TrimSpace(category),
		Note:     strings.TrimSpace(note),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.repo.InsertTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	s.txs.Delete(ownerID)
	s.publish(ctx, "recorded", t.ID, ownerID, func() error {
		return s.events.TransactionRecorded(ctx, ownerID, t.ID)
	})
	return t, nil
}

// DeleteTransaction removes a transaction by id. Foreign or unknown ids
// are a silent no-op; the store predicate enforces ownership.
func (s *Store) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	if err := s.repo.DeleteTransaction(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	s.txs.Delete(ownerID)
	s.publish(ctx, "deleted", id, ownerID, func() error {
		return s.events.TransactionDeleted(ctx, ownerID, id)
	})
	return nil
}

func (s *Store) publish(ctx context.Context, action, id, ownerID string, fn func() error) {
	if s.events == nil {
		return
	}
	if err := fn(); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"action", action, "transaction_id", id, "owner_id", ownerID, "error", err)
	}
}

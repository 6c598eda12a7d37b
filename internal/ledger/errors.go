package ledger

import "errors"

var (
	// ErrStoreUnavailable wraps connectivity or driver failures from the
	// backing store. Callers surface it immediately; nothing is retried.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrDuplicateCategory is returned when a category name already
	// exists within the owner's scope.
	ErrDuplicateCategory = errors.New("duplicate category")

	// ErrCategoryInUse is returned when deleting a category that still
	// has transactions referencing it and no reassignment target was
	// given.
	ErrCategoryInUse = errors.New("category in use")

	// ErrNotFound is returned when an operation names an entity the
	// owner does not have (e.g. a reassignment target that does not
	// exist).
	ErrNotFound = errors.New("not found")
)

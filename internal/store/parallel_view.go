package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/domain"
)

// ParallelViewStore defines the interface for parallel view data persistence.
type ParallelViewStore interface {
	// Create saves a new parallel view to the store.
	// Returns ErrParallelViewExists when a view for the same
	// (memory, author) pair already exists. Implementations must map
	// the unique-constraint violation raised by a concurrent insert to
	// the same error, so the constraint stays the authoritative guard.
	Create(ctx context.Context, view *domain.ParallelView) error

	// GetByID retrieves a parallel view by its unique ID.
	// Returns ErrParallelViewNotFound if the view does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ParallelView, error)

	// ExistsForAuthor reports whether the author already has a view on
	// the memory. This pre-check is an optimization only; Create
	// remains safe without it.
	ExistsForAuthor(ctx context.Context, memoryID, authorID uuid.UUID) (bool, error)

	// FindByMemoryIDs retrieves all parallel views attached to any of
	// the given memories, ordered by creation time ascending.
	FindByMemoryIDs(ctx context.Context, memoryIDs []uuid.UUID) ([]*domain.ParallelView, error)

	// WithTx returns a new ParallelViewStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ParallelViewStore
}

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/domain"
)

// MemoryStore defines the interface for memory data persistence.
type MemoryStore interface {
	// Create saves a new memory and its ordered media references.
	// IMPORTANT: This method writes multiple rows and MUST be run
	// within a transaction for atomicity. Use WithTx together with
	// store.RunInTransaction.
	Create(ctx context.Context, memory *domain.Memory) error

	// GetByID retrieves a memory by its unique ID, media included.
	// Returns ErrMemoryNotFound if the memory does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Memory, error)

	// FindByFamily retrieves the family's memories newest first with
	// offset pagination, along with the total count.
	FindByFamily(ctx context.Context, familyID uuid.UUID, page Page) ([]*domain.Memory, int, error)

	// FindByFamilyCreatedOn retrieves the family's memories created on
	// the given UTC calendar day.
	FindByFamilyCreatedOn(ctx context.Context, familyID uuid.UUID, day time.Time) ([]*domain.Memory, error)

	// WithTx returns a new MemoryStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) MemoryStore
}

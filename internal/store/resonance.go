package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/domain"
)

// ResonanceStore defines the interface for resonance data persistence.
// Rows are only ever created and deleted, never updated in place.
type ResonanceStore interface {
	// Create saves a new resonance row.
	// Returns ErrResonanceExists when a row for the same (user, target)
	// pair already exists; the partial unique indexes back this under
	// concurrent inserts.
	Create(ctx context.Context, resonance *domain.Resonance) error

	// FindForTarget retrieves the resonance row for the exact
	// (user, target) pair. Returns ErrResonanceNotFound if absent.
	FindForTarget(ctx context.Context, userID uuid.UUID, target domain.ResonanceTarget) (*domain.Resonance, error)

	// Delete removes a resonance row by its ID.
	// Returns ErrResonanceNotFound if the row does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteForTarget removes the resonance row for the (user, target)
	// pair if one exists, returning the number of deleted rows.
	// Deleting an absent row is not an error.
	DeleteForTarget(ctx context.Context, userID uuid.UUID, target domain.ResonanceTarget) (int64, error)

	// ExistsForMemory reports whether the user currently resonates
	// with the memory.
	ExistsForMemory(ctx context.Context, userID, memoryID uuid.UUID) (bool, error)

	// CountByMemoryIDs returns the resonance count for each of the
	// given memories. Memories with no resonances are absent from the
	// result map.
	CountByMemoryIDs(ctx context.Context, memoryIDs []uuid.UUID) (map[uuid.UUID]int, error)

	// CountByParallelViewIDs returns the resonance count for each of
	// the given parallel views. Views with no resonances are absent
	// from the result map.
	CountByParallelViewIDs(ctx context.Context, viewIDs []uuid.UUID) (map[uuid.UUID]int, error)

	// WithTx returns a new ResonanceStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ResonanceStore
}

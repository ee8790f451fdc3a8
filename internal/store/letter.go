package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/domain"
)

// LetterStore defines the interface for letter data persistence.
type LetterStore interface {
	// Create saves a new letter to the store.
	// All letters must be valid according to domain validation rules.
	Create(ctx context.Context, letter *domain.Letter) error

	// GetByID retrieves a letter by its unique ID.
	// Returns ErrLetterNotFound if the letter does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Letter, error)

	// Update saves changes to an existing letter (status and opened-at).
	// Returns ErrLetterNotFound if the letter does not exist.
	Update(ctx context.Context, letter *domain.Letter) error

	// PromoteUnlockable promotes, in a single statement, every sealed
	// letter for the receiver whose unlock time has elapsed at the
	// given instant to the unlockable status. Returns the number of
	// promoted rows. This is a display optimization, not a
	// correctness gate: the open path evaluates the unlock time
	// against the wall clock directly.
	PromoteUnlockable(ctx context.Context, receiverID uuid.UUID, now time.Time) (int64, error)

	// FindPendingByReceiver retrieves all sealed and unlockable
	// letters addressed to the receiver, ordered by unlock time
	// ascending. Opened letters are never included.
	FindPendingByReceiver(ctx context.Context, receiverID uuid.UUID) ([]*domain.Letter, error)

	// FindBySender retrieves the sender's letters newest first with
	// offset pagination, along with the total count.
	FindBySender(ctx context.Context, senderID uuid.UUID, page Page) ([]*domain.Letter, int, error)

	// FindOpenedByReceiver retrieves the receiver's opened letters,
	// optionally filtered to those opened in the given year, ordered
	// by opened-at descending.
	FindOpenedByReceiver(ctx context.Context, receiverID uuid.UUID, year *int) ([]*domain.Letter, error)

	// GetOpenedYears returns the distinct years in which the receiver
	// opened letters, descending.
	GetOpenedYears(ctx context.Context, receiverID uuid.UUID) ([]int, error)

	// WithTx returns a new LetterStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	WithTx(tx *sql.Tx) LetterStore
}

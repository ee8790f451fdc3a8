package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/domain"
	"github.com/phrazzld/hearth-api/internal/platform/logger"
	"github.com/phrazzld/hearth-api/internal/store"
)

// PostgresLetterStore implements the store.LetterStore interface
// using a PostgreSQL database as the storage backend.
type PostgresLetterStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresLetterStore creates a new PostgreSQL implementation of the LetterStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresLetterStore(db store.DBTX, logger *slog.Logger) *PostgresLetterStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresLetterStore{
		db:     db,
		logger: logger.With(slog.String("component", "letter_store")),
	}
}

// Ensure PostgresLetterStore implements store.LetterStore interface
var _ store.LetterStore = (*PostgresLetterStore)(nil)

// letterColumns is the column list shared by every letter select.
const letterColumns = "id, sender_id, receiver_id, family_id, content, unlock_time, status, opened_at, created_at"

// WithTx implements store.LetterStore.WithTx
func (s *PostgresLetterStore) WithTx(tx *sql.Tx) store.LetterStore {
	return &PostgresLetterStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.LetterStore.Create
// It saves a new letter to the database, handling domain validation.
func (s *PostgresLetterStore) Create(ctx context.Context, letter *domain.Letter) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := letter.Validate(); err != nil {
		log.Warn("letter validation failed during create",
			slog.String("error", err.Error()),
			slog.String("letter_id", letter.ID.String()))
		return err
	}

	query := `
		INSERT INTO letters (id, sender_id, receiver_id, family_id, content, unlock_time, status, opened_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		letter.ID,
		letter.SenderID,
		letter.ReceiverID,
		letter.FamilyID,
		letter.Content,
		letter.UnlockTime,
		letter.Status,
		letter.OpenedAt,
		letter.CreatedAt,
	)

	if err != nil {
		log.Error("failed to create letter",
			slog.String("error", err.Error()),
			slog.String("letter_id", letter.ID.String()),
			slog.String("sender_id", letter.SenderID.String()))
		return MapError(err)
	}

	log.Info("letter created successfully",
		slog.String("letter_id", letter.ID.String()),
		slog.String("sender_id", letter.SenderID.String()),
		slog.String("receiver_id", letter.ReceiverID.String()),
		slog.Time("unlock_time", letter.UnlockTime))
	return nil
}

// GetByID implements store.LetterStore.GetByID
// Returns store.ErrLetterNotFound if the letter does not exist.
func (s *PostgresLetterStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Letter, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + letterColumns + ` FROM letters WHERE id = $1`

	letter, err := scanLetter(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("letter not found", slog.String("letter_id", id.String()))
			return nil, store.ErrLetterNotFound
		}
		log.Error("failed to get letter by ID",
			slog.String("error", err.Error()),
			slog.String("letter_id", id.String()))
		return nil, err
	}

	return letter, nil
}

// Update implements store.LetterStore.Update
// It persists the letter's status and opened-at fields.
// Returns store.ErrLetterNotFound if the letter does not exist.
func (s *PostgresLetterStore) Update(ctx context.Context, letter *domain.Letter) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := letter.Validate(); err != nil {
		log.Warn("letter validation failed during update",
			slog.String("error", err.Error()),
			slog.String("letter_id", letter.ID.String()))
		return err
	}

	query := `
		UPDATE letters
		SET status = $1, opened_at = $2, updated_at = now()
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, letter.Status, letter.OpenedAt, letter.ID)
	if err != nil {
		log.Error("failed to update letter",
			slog.String("error", err.Error()),
			slog.String("letter_id", letter.ID.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("letter_id", letter.ID.String()))
		return err
	}

	if rowsAffected == 0 {
		log.Debug("letter not found for update",
			slog.String("letter_id", letter.ID.String()))
		return store.ErrLetterNotFound
	}

	log.Info("letter updated successfully",
		slog.String("letter_id", letter.ID.String()),
		slog.String("status", string(letter.Status)))
	return nil
}

// PromoteUnlockable implements store.LetterStore.PromoteUnlockable
// It promotes every sealed letter for the receiver whose unlock time
// has elapsed to the unlockable status in a single statement.
func (s *PostgresLetterStore) PromoteUnlockable(
	ctx context.Context,
	receiverID uuid.UUID,
	now time.Time,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE letters
		SET status = $1, updated_at = now()
		WHERE receiver_id = $2 AND status = $3 AND unlock_time <= $4
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		domain.LetterStatusUnlockable,
		receiverID,
		domain.LetterStatusSealed,
		now,
	)
	if err != nil {
		log.Error("failed to promote unlockable letters",
			slog.String("error", err.Error()),
			slog.String("receiver_id", receiverID.String()))
		return 0, err
	}

	promoted, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("receiver_id", receiverID.String()))
		return 0, err
	}

	if promoted > 0 {
		log.Debug("promoted sealed letters to unlockable",
			slog.String("receiver_id", receiverID.String()),
			slog.Int64("count", promoted))
	}
	return promoted, nil
}

// FindPendingByReceiver implements store.LetterStore.FindPendingByReceiver
// It retrieves all sealed and unlockable letters for the receiver,
// ordered by unlock time ascending. Opened letters are never included.
func (s *PostgresLetterStore) FindPendingByReceiver(
	ctx context.Context,
	receiverID uuid.UUID,
) ([]*domain.Letter, error) {
	query := `
		SELECT ` + letterColumns + `
		FROM letters
		WHERE receiver_id = $1 AND status IN ($2, $3)
		ORDER BY unlock_time ASC
	`

	return s.queryLetters(ctx, query,
		receiverID, domain.LetterStatusSealed, domain.LetterStatusUnlockable)
}

// FindBySender implements store.LetterStore.FindBySender
// It retrieves the sender's letters newest first with offset pagination.
func (s *PostgresLetterStore) FindBySender(
	ctx context.Context,
	senderID uuid.UUID,
	page store.Page,
) ([]*domain.Letter, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	page = page.Normalize()

	var total int
	countQuery := `SELECT COUNT(*) FROM letters WHERE sender_id = $1`
	if err := s.db.QueryRowContext(ctx, countQuery, senderID).Scan(&total); err != nil {
		log.Error("failed to count sent letters",
			slog.String("error", err.Error()),
			slog.String("sender_id", senderID.String()))
		return nil, 0, err
	}

	query := `
		SELECT ` + letterColumns + `
		FROM letters
		WHERE sender_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	letters, err := s.queryLetters(ctx, query, senderID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	return letters, total, nil
}

// FindOpenedByReceiver implements store.LetterStore.FindOpenedByReceiver
// It retrieves the receiver's opened letters, optionally filtered to a
// single opened-at year, ordered by opened-at descending.
func (s *PostgresLetterStore) FindOpenedByReceiver(
	ctx context.Context,
	receiverID uuid.UUID,
	year *int,
) ([]*domain.Letter, error) {
	if year != nil {
		startOfYear := time.Date(*year, time.January, 1, 0, 0, 0, 0, time.UTC)
		endOfYear := startOfYear.AddDate(1, 0, 0)

		query := `
			SELECT ` + letterColumns + `
			FROM letters
			WHERE receiver_id = $1 AND status = $2 AND opened_at >= $3 AND opened_at < $4
			ORDER BY opened_at DESC
		`
		return s.queryLetters(ctx, query,
			receiverID, domain.LetterStatusOpened, startOfYear, endOfYear)
	}

	query := `
		SELECT ` + letterColumns + `
		FROM letters
		WHERE receiver_id = $1 AND status = $2
		ORDER BY opened_at DESC
	`
	return s.queryLetters(ctx, query, receiverID, domain.LetterStatusOpened)
}

// GetOpenedYears implements store.LetterStore.GetOpenedYears
// It returns the distinct years in which the receiver opened letters,
// descending.
func (s *PostgresLetterStore) GetOpenedYears(
	ctx context.Context,
	receiverID uuid.UUID,
) ([]int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT DISTINCT EXTRACT(YEAR FROM opened_at)::int AS year
		FROM letters
		WHERE receiver_id = $1 AND status = $2 AND opened_at IS NOT NULL
		ORDER BY year DESC
	`

	rows, err := s.db.QueryContext(ctx, query, receiverID, domain.LetterStatusOpened)
	if err != nil {
		log.Error("failed to query letter years",
			slog.String("error", err.Error()),
			slog.String("receiver_id", receiverID.String()))
		return nil, err
	}
	defer closeRows(rows, log)

	years := []int{}
	for rows.Next() {
		var year int
		if err := rows.Scan(&year); err != nil {
			log.Error("failed to scan year row", slog.String("error", err.Error()))
			return nil, err
		}
		years = append(years, year)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return years, nil
}

// queryLetters runs a letter select and scans all rows.
func (s *PostgresLetterStore) queryLetters(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.Letter, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query letters", slog.String("error", err.Error()))
		return nil, err
	}
	defer closeRows(rows, log)

	letters := []*domain.Letter{}
	for rows.Next() {
		letter, err := scanLetter(rows)
		if err != nil {
			log.Error("failed to scan letter row", slog.String("error", err.Error()))
			return nil, err
		}
		letters = append(letters, letter)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return letters, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanLetter scans a single letter row in letterColumns order.
func scanLetter(row rowScanner) (*domain.Letter, error) {
	var letter domain.Letter
	var status string
	var openedAt sql.NullTime

	err := row.Scan(
		&letter.ID,
		&letter.SenderID,
		&letter.ReceiverID,
		&letter.FamilyID,
		&letter.Content,
		&letter.UnlockTime,
		&status,
		&openedAt,
		&letter.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	letter.Status = domain.LetterStatus(status)
	if openedAt.Valid {
		t := openedAt.Time
		letter.OpenedAt = &t
	}
	return &letter, nil
}

// closeRows closes the row set and logs any close failure.
func closeRows(rows *sql.Rows, log *slog.Logger) {
	if err := rows.Close(); err != nil {
		log.Error("failed to close rows", slog.String("error", err.Error()))
	}
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/domain"
	"github.com/phrazzld/hearth-api/internal/platform/logger"
	"github.com/phrazzld/hearth-api/internal/store"
)

// PostgresResonanceStore implements the store.ResonanceStore interface
// using a PostgreSQL database as the storage backend.
type PostgresResonanceStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresResonanceStore creates a new PostgreSQL implementation of the ResonanceStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresResonanceStore(db store.DBTX, logger *slog.Logger) *PostgresResonanceStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresResonanceStore{
		db:     db,
		logger: logger.With(slog.String("component", "resonance_store")),
	}
}

// Ensure PostgresResonanceStore implements store.ResonanceStore interface
var _ store.ResonanceStore = (*PostgresResonanceStore)(nil)

// WithTx implements store.ResonanceStore.WithTx
func (s *PostgresResonanceStore) WithTx(tx *sql.Tx) store.ResonanceStore {
	return &PostgresResonanceStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.ResonanceStore.Create
// The partial unique indexes on (user_id, memory_id) and
// (user_id, parallel_view_id) back the at-most-one-row invariant: a
// violation raised by a concurrent insert is mapped to
// store.ErrResonanceExists so the service can convert the lost race
// into a removal.
func (s *PostgresResonanceStore) Create(ctx context.Context, resonance *domain.Resonance) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := resonance.Validate(); err != nil {
		log.Warn("resonance validation failed during create",
			slog.String("error", err.Error()),
			slog.String("resonance_id", resonance.ID.String()))
		return err
	}

	query := `
		INSERT INTO resonances (id, user_id, memory_id, parallel_view_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		resonance.ID,
		resonance.UserID,
		resonance.MemoryID,
		resonance.ParallelViewID,
		resonance.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("duplicate resonance insert lost the race",
				slog.String("user_id", resonance.UserID.String()))
			return fmt.Errorf("%w: %v", store.ErrResonanceExists, err)
		}
		log.Error("failed to create resonance",
			slog.String("error", err.Error()),
			slog.String("resonance_id", resonance.ID.String()),
			slog.String("user_id", resonance.UserID.String()))
		return MapError(err)
	}

	log.Debug("resonance created",
		slog.String("resonance_id", resonance.ID.String()),
		slog.String("user_id", resonance.UserID.String()))
	return nil
}

// FindForTarget implements store.ResonanceStore.FindForTarget
// Target matching is exact: a memory resonance only matches rows whose
// parallel_view_id is null, and vice versa.
func (s *PostgresResonanceStore) FindForTarget(
	ctx context.Context,
	userID uuid.UUID,
	target domain.ResonanceTarget,
) (*domain.Resonance, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := target.Validate(); err != nil {
		return nil, err
	}

	var row *sql.Row
	if target.ParallelViewID != nil {
		query := `
			SELECT id, user_id, memory_id, parallel_view_id, created_at
			FROM resonances
			WHERE user_id = $1 AND parallel_view_id = $2 AND memory_id IS NULL
		`
		row = s.db.QueryRowContext(ctx, query, userID, *target.ParallelViewID)
	} else {
		query := `
			SELECT id, user_id, memory_id, parallel_view_id, created_at
			FROM resonances
			WHERE user_id = $1 AND memory_id = $2 AND parallel_view_id IS NULL
		`
		row = s.db.QueryRowContext(ctx, query, userID, *target.MemoryID)
	}

	var resonance domain.Resonance
	var memoryID, parallelViewID uuid.NullUUID
	err := row.Scan(
		&resonance.ID,
		&resonance.UserID,
		&memoryID,
		&parallelViewID,
		&resonance.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrResonanceNotFound
		}
		log.Error("failed to find resonance for target",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}

	if memoryID.Valid {
		id := memoryID.UUID
		resonance.MemoryID = &id
	}
	if parallelViewID.Valid {
		id := parallelViewID.UUID
		resonance.ParallelViewID = &id
	}
	return &resonance, nil
}

// Delete implements store.ResonanceStore.Delete
// Returns store.ErrResonanceNotFound if the row does not exist.
func (s *PostgresResonanceStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM resonances WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete resonance",
			slog.String("error", err.Error()),
			slog.String("resonance_id", id.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("resonance_id", id.String()))
		return err
	}

	if rowsAffected == 0 {
		return store.ErrResonanceNotFound
	}

	log.Debug("resonance deleted", slog.String("resonance_id", id.String()))
	return nil
}

// DeleteForTarget implements store.ResonanceStore.DeleteForTarget
// Deleting an absent row is not an error; the returned count tells
// callers whether anything matched.
func (s *PostgresResonanceStore) DeleteForTarget(
	ctx context.Context,
	userID uuid.UUID,
	target domain.ResonanceTarget,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := target.Validate(); err != nil {
		return 0, err
	}

	var result sql.Result
	var err error
	if target.ParallelViewID != nil {
		query := `DELETE FROM resonances WHERE user_id = $1 AND parallel_view_id = $2 AND memory_id IS NULL`
		result, err = s.db.ExecContext(ctx, query, userID, *target.ParallelViewID)
	} else {
		query := `DELETE FROM resonances WHERE user_id = $1 AND memory_id = $2 AND parallel_view_id IS NULL`
		result, err = s.db.ExecContext(ctx, query, userID, *target.MemoryID)
	}
	if err != nil {
		log.Error("failed to delete resonance for target",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return 0, err
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return 0, err
	}
	return deleted, nil
}

// ExistsForMemory implements store.ResonanceStore.ExistsForMemory
func (s *PostgresResonanceStore) ExistsForMemory(
	ctx context.Context,
	userID, memoryID uuid.UUID,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM resonances
			WHERE user_id = $1 AND memory_id = $2 AND parallel_view_id IS NULL
		)
	`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, userID, memoryID).Scan(&exists); err != nil {
		log.Error("failed to check resonance existence",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("memory_id", memoryID.String()))
		return false, err
	}
	return exists, nil
}

// CountByMemoryIDs implements store.ResonanceStore.CountByMemoryIDs
func (s *PostgresResonanceStore) CountByMemoryIDs(
	ctx context.Context,
	memoryIDs []uuid.UUID,
) (map[uuid.UUID]int, error) {
	if len(memoryIDs) == 0 {
		return map[uuid.UUID]int{}, nil
	}

	placeholders, args := uuidPlaceholders(memoryIDs)
	query := `
		SELECT memory_id, COUNT(*)
		FROM resonances
		WHERE memory_id IN (` + placeholders + `) AND parallel_view_id IS NULL
		GROUP BY memory_id
	`
	return s.queryCounts(ctx, query, args...)
}

// CountByParallelViewIDs implements store.ResonanceStore.CountByParallelViewIDs
func (s *PostgresResonanceStore) CountByParallelViewIDs(
	ctx context.Context,
	viewIDs []uuid.UUID,
) (map[uuid.UUID]int, error) {
	if len(viewIDs) == 0 {
		return map[uuid.UUID]int{}, nil
	}

	placeholders, args := uuidPlaceholders(viewIDs)
	query := `
		SELECT parallel_view_id, COUNT(*)
		FROM resonances
		WHERE parallel_view_id IN (` + placeholders + `) AND memory_id IS NULL
		GROUP BY parallel_view_id
	`
	return s.queryCounts(ctx, query, args...)
}

// queryCounts runs an id/count grouping query into a map.
func (s *PostgresResonanceStore) queryCounts(
	ctx context.Context,
	query string,
	args ...any,
) (map[uuid.UUID]int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query resonance counts", slog.String("error", err.Error()))
		return nil, err
	}
	defer closeRows(rows, log)

	counts := map[uuid.UUID]int{}
	for rows.Next() {
		var id uuid.UUID
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			log.Error("failed to scan count row", slog.String("error", err.Error()))
			return nil, err
		}
		counts[id] = count
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return counts, nil
}

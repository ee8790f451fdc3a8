package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/domain"
	"github.com/phrazzld/hearth-api/internal/platform/logger"
	"github.com/phrazzld/hearth-api/internal/store"
)

// PostgresParallelViewStore implements the store.ParallelViewStore
// interface using a PostgreSQL database as the storage backend.
type PostgresParallelViewStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresParallelViewStore creates a new PostgreSQL implementation of the ParallelViewStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresParallelViewStore(db store.DBTX, logger *slog.Logger) *PostgresParallelViewStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresParallelViewStore{
		db:     db,
		logger: logger.With(slog.String("component", "parallel_view_store")),
	}
}

// Ensure PostgresParallelViewStore implements store.ParallelViewStore interface
var _ store.ParallelViewStore = (*PostgresParallelViewStore)(nil)

// WithTx implements store.ParallelViewStore.WithTx
func (s *PostgresParallelViewStore) WithTx(tx *sql.Tx) store.ParallelViewStore {
	return &PostgresParallelViewStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.ParallelViewStore.Create
// The unique index on (memory_id, author_id) is the authoritative
// one-view-per-author guard: a violation raised by a concurrent insert
// is mapped to store.ErrParallelViewExists, the same error the
// application-level pre-check produces.
func (s *PostgresParallelViewStore) Create(ctx context.Context, view *domain.ParallelView) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := view.Validate(); err != nil {
		log.Warn("parallel view validation failed during create",
			slog.String("error", err.Error()),
			slog.String("parallel_view_id", view.ID.String()))
		return err
	}

	images, err := json.Marshal(normalizeTags(view.Images))
	if err != nil {
		return fmt.Errorf("failed to encode parallel view images: %w", err)
	}
	tags, err := json.Marshal(normalizeTags(view.Tags))
	if err != nil {
		return fmt.Errorf("failed to encode parallel view tags: %w", err)
	}

	query := `
		INSERT INTO parallel_views (id, memory_id, author_id, content, images, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		view.ID,
		view.MemoryID,
		view.AuthorID,
		view.Content,
		images,
		tags,
		view.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("duplicate parallel view insert lost the race",
				slog.String("memory_id", view.MemoryID.String()),
				slog.String("author_id", view.AuthorID.String()))
			return fmt.Errorf("%w: %v", store.ErrParallelViewExists, err)
		}
		log.Error("failed to create parallel view",
			slog.String("error", err.Error()),
			slog.String("parallel_view_id", view.ID.String()),
			slog.String("memory_id", view.MemoryID.String()))
		return MapError(err)
	}

	log.Info("parallel view created successfully",
		slog.String("parallel_view_id", view.ID.String()),
		slog.String("memory_id", view.MemoryID.String()),
		slog.String("author_id", view.AuthorID.String()))
	return nil
}

// GetByID implements store.ParallelViewStore.GetByID
// Returns store.ErrParallelViewNotFound if the view does not exist.
func (s *PostgresParallelViewStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ParallelView, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, memory_id, author_id, content, images, tags, created_at
		FROM parallel_views
		WHERE id = $1
	`

	view, err := scanParallelView(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("parallel view not found", slog.String("parallel_view_id", id.String()))
			return nil, store.ErrParallelViewNotFound
		}
		log.Error("failed to get parallel view by ID",
			slog.String("error", err.Error()),
			slog.String("parallel_view_id", id.String()))
		return nil, err
	}

	return view, nil
}

// ExistsForAuthor implements store.ParallelViewStore.ExistsForAuthor
func (s *PostgresParallelViewStore) ExistsForAuthor(
	ctx context.Context,
	memoryID, authorID uuid.UUID,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM parallel_views WHERE memory_id = $1 AND author_id = $2
		)
	`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, memoryID, authorID).Scan(&exists); err != nil {
		log.Error("failed to check parallel view existence",
			slog.String("error", err.Error()),
			slog.String("memory_id", memoryID.String()),
			slog.String("author_id", authorID.String()))
		return false, err
	}
	return exists, nil
}

// FindByMemoryIDs implements store.ParallelViewStore.FindByMemoryIDs
func (s *PostgresParallelViewStore) FindByMemoryIDs(
	ctx context.Context,
	memoryIDs []uuid.UUID,
) ([]*domain.ParallelView, error) {
	if len(memoryIDs) == 0 {
		return []*domain.ParallelView{}, nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	placeholders, args := uuidPlaceholders(memoryIDs)
	query := `
		SELECT id, memory_id, author_id, content, images, tags, created_at
		FROM parallel_views
		WHERE memory_id IN (` + placeholders + `)
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query parallel views", slog.String("error", err.Error()))
		return nil, err
	}
	defer closeRows(rows, log)

	views := []*domain.ParallelView{}
	for rows.Next() {
		view, err := scanParallelView(rows)
		if err != nil {
			log.Error("failed to scan parallel view row", slog.String("error", err.Error()))
			return nil, err
		}
		views = append(views, view)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return views, nil
}

// scanParallelView scans a single parallel view row.
func scanParallelView(row rowScanner) (*domain.ParallelView, error) {
	var view domain.ParallelView
	var images, tags []byte

	err := row.Scan(
		&view.ID,
		&view.MemoryID,
		&view.AuthorID,
		&view.Content,
		&images,
		&tags,
		&view.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(images) > 0 {
		if err := json.Unmarshal(images, &view.Images); err != nil {
			return nil, fmt.Errorf("failed to decode parallel view images: %w", err)
		}
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &view.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode parallel view tags: %w", err)
		}
	}
	if view.Images == nil {
		view.Images = []string{}
	}
	if view.Tags == nil {
		view.Tags = []string{}
	}
	return &view, nil
}

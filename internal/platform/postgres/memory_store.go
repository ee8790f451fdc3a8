package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/domain"
	"github.com/phrazzld/hearth-api/internal/platform/logger"
	"github.com/phrazzld/hearth-api/internal/store"
)

// PostgresMemoryStore implements the store.MemoryStore interface
// using a PostgreSQL database as the storage backend.
type PostgresMemoryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMemoryStore creates a new PostgreSQL implementation of the MemoryStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresMemoryStore(db store.DBTX, logger *slog.Logger) *PostgresMemoryStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMemoryStore{
		db:     db,
		logger: logger.With(slog.String("component", "memory_store")),
	}
}

// Ensure PostgresMemoryStore implements store.MemoryStore interface
var _ store.MemoryStore = (*PostgresMemoryStore)(nil)

// WithTx implements store.MemoryStore.WithTx
func (s *PostgresMemoryStore) WithTx(tx *sql.Tx) store.MemoryStore {
	return &PostgresMemoryStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.MemoryStore.Create
// It saves a new memory and its ordered media references. Callers must
// run this within a transaction; the memory row and its media rows are
// separate statements.
func (s *PostgresMemoryStore) Create(ctx context.Context, memory *domain.Memory) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := memory.Validate(); err != nil {
		log.Warn("memory validation failed during create",
			slog.String("error", err.Error()),
			slog.String("memory_id", memory.ID.String()))
		return err
	}

	tags, err := json.Marshal(normalizeTags(memory.Tags))
	if err != nil {
		return fmt.Errorf("failed to encode memory tags: %w", err)
	}

	query := `
		INSERT INTO memories (id, author_id, family_id, type, content, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		memory.ID,
		memory.AuthorID,
		memory.FamilyID,
		memory.Type,
		memory.Content,
		tags,
		memory.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create memory",
			slog.String("error", err.Error()),
			slog.String("memory_id", memory.ID.String()),
			slog.String("author_id", memory.AuthorID.String()))
		return MapError(err)
	}

	mediaQuery := `
		INSERT INTO memory_media (id, memory_id, url, sort)
		VALUES ($1, $2, $3, $4)
	`
	for _, media := range memory.Media {
		if _, err := s.db.ExecContext(ctx, mediaQuery, media.ID, media.MemoryID, media.URL, media.Sort); err != nil {
			log.Error("failed to create memory media",
				slog.String("error", err.Error()),
				slog.String("memory_id", memory.ID.String()),
				slog.String("media_id", media.ID.String()))
			return MapError(err)
		}
	}

	log.Info("memory created successfully",
		slog.String("memory_id", memory.ID.String()),
		slog.String("author_id", memory.AuthorID.String()),
		slog.String("family_id", memory.FamilyID.String()),
		slog.Int("media_count", len(memory.Media)))
	return nil
}

// GetByID implements store.MemoryStore.GetByID
// Returns store.ErrMemoryNotFound if the memory does not exist.
func (s *PostgresMemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Memory, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, author_id, family_id, type, content, tags, created_at
		FROM memories
		WHERE id = $1
	`

	memory, err := scanMemory(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("memory not found", slog.String("memory_id", id.String()))
			return nil, store.ErrMemoryNotFound
		}
		log.Error("failed to get memory by ID",
			slog.String("error", err.Error()),
			slog.String("memory_id", id.String()))
		return nil, err
	}

	if err := s.attachMedia(ctx, []*domain.Memory{memory}); err != nil {
		return nil, err
	}
	return memory, nil
}

// FindByFamily implements store.MemoryStore.FindByFamily
// It retrieves the family's memories newest first with offset pagination.
func (s *PostgresMemoryStore) FindByFamily(
	ctx context.Context,
	familyID uuid.UUID,
	page store.Page,
) ([]*domain.Memory, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	page = page.Normalize()

	var total int
	countQuery := `SELECT COUNT(*) FROM memories WHERE family_id = $1`
	if err := s.db.QueryRowContext(ctx, countQuery, familyID).Scan(&total); err != nil {
		log.Error("failed to count memories",
			slog.String("error", err.Error()),
			slog.String("family_id", familyID.String()))
		return nil, 0, err
	}

	query := `
		SELECT id, author_id, family_id, type, content, tags, created_at
		FROM memories
		WHERE family_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	memories, err := s.queryMemories(ctx, query, familyID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}

	if err := s.attachMedia(ctx, memories); err != nil {
		return nil, 0, err
	}
	return memories, total, nil
}

// FindByFamilyCreatedOn implements store.MemoryStore.FindByFamilyCreatedOn
// It retrieves the family's memories created on the given UTC calendar day.
func (s *PostgresMemoryStore) FindByFamilyCreatedOn(
	ctx context.Context,
	familyID uuid.UUID,
	day time.Time,
) ([]*domain.Memory, error) {
	y, m, d := day.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	query := `
		SELECT id, author_id, family_id, type, content, tags, created_at
		FROM memories
		WHERE family_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC
	`

	memories, err := s.queryMemories(ctx, query, familyID, start, end)
	if err != nil {
		return nil, err
	}

	if err := s.attachMedia(ctx, memories); err != nil {
		return nil, err
	}
	return memories, nil
}

// queryMemories runs a memory select and scans all rows.
func (s *PostgresMemoryStore) queryMemories(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.Memory, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query memories", slog.String("error", err.Error()))
		return nil, err
	}
	defer closeRows(rows, log)

	memories := []*domain.Memory{}
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			log.Error("failed to scan memory row", slog.String("error", err.Error()))
			return nil, err
		}
		memories = append(memories, memory)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return memories, nil
}

// attachMedia loads the ordered media references for the given
// memories in one query and distributes them onto the entities.
func (s *PostgresMemoryStore) attachMedia(ctx context.Context, memories []*domain.Memory) error {
	if len(memories) == 0 {
		return nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	byID := make(map[uuid.UUID]*domain.Memory, len(memories))
	ids := make([]uuid.UUID, 0, len(memories))
	for _, memory := range memories {
		byID[memory.ID] = memory
		ids = append(ids, memory.ID)
	}

	placeholders, args := uuidPlaceholders(ids)
	query := `
		SELECT id, memory_id, url, sort
		FROM memory_media
		WHERE memory_id IN (` + placeholders + `)
		ORDER BY sort ASC
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query memory media", slog.String("error", err.Error()))
		return err
	}
	defer closeRows(rows, log)

	for rows.Next() {
		var media domain.MemoryMedia
		if err := rows.Scan(&media.ID, &media.MemoryID, &media.URL, &media.Sort); err != nil {
			log.Error("failed to scan media row", slog.String("error", err.Error()))
			return err
		}
		if memory, ok := byID[media.MemoryID]; ok {
			memory.Media = append(memory.Media, media)
		}
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return err
	}

	return nil
}

// scanMemory scans a single memory row.
func scanMemory(row rowScanner) (*domain.Memory, error) {
	var memory domain.Memory
	var memoryType string
	var tags []byte

	err := row.Scan(
		&memory.ID,
		&memory.AuthorID,
		&memory.FamilyID,
		&memoryType,
		&memory.Content,
		&tags,
		&memory.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	memory.Type = domain.MemoryType(memoryType)
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &memory.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode memory tags: %w", err)
		}
	}
	if memory.Tags == nil {
		memory.Tags = []string{}
	}
	return &memory, nil
}

// normalizeTags replaces a nil tag slice with an empty one so the
// stored JSON is always an array.
func normalizeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// uuidPlaceholders expands the given IDs into a $1,$2,... placeholder
// list and the matching argument slice.
func uuidPlaceholders(ids []uuid.UUID) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	return strings.Join(placeholders, ", "), args
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/domain"
	"github.com/phrazzld/hearth-api/internal/platform/logger"
	"github.com/phrazzld/hearth-api/internal/store"
)

// PostgresDirectoryStore implements the store.UserDirectory and
// store.FamilyDirectory interfaces as read-only lookups over the users
// and families tables. Account management writes to these tables from
// a separate service.
type PostgresDirectoryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresDirectoryStore creates a new PostgreSQL implementation of
// the directory interfaces. If logger is nil, a default logger will be used.
func NewPostgresDirectoryStore(db store.DBTX, logger *slog.Logger) *PostgresDirectoryStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresDirectoryStore{
		db:     db,
		logger: logger.With(slog.String("component", "directory_store")),
	}
}

// Ensure PostgresDirectoryStore implements the directory interfaces
var (
	_ store.UserDirectory   = (*PostgresDirectoryStore)(nil)
	_ store.FamilyDirectory = (*PostgresDirectoryStore)(nil)
)

// Resolve implements store.UserDirectory.Resolve
// Returns store.ErrUserNotFound if the user does not exist.
func (s *PostgresDirectoryStore) Resolve(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, family_id, nickname, COALESCE(avatar, '')
		FROM users
		WHERE id = $1
	`

	var profile domain.Profile
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.ID,
		&profile.FamilyID,
		&profile.Nickname,
		&profile.Avatar,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("user not found", slog.String("user_id", userID.String()))
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to resolve user",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}

	return &profile, nil
}

// GetName implements store.FamilyDirectory.GetName
// Returns store.ErrFamilyNotFound if the family does not exist.
func (s *PostgresDirectoryStore) GetName(ctx context.Context, familyID uuid.UUID) (string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM families WHERE id = $1`, familyID).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("family not found", slog.String("family_id", familyID.String()))
			return "", store.ErrFamilyNotFound
		}
		log.Error("failed to get family name",
			slog.String("error", err.Error()),
			slog.String("family_id", familyID.String()))
		return "", err
	}

	return name, nil
}

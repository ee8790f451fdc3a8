package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/domain"
)

// UserDirectory resolves user IDs to family membership and display
// profiles. Account management (registration, credentials, family
// join) lives outside this service; the directory is a read-only view.
type UserDirectory interface {
	// Resolve returns the profile for the given user ID.
	// Returns ErrUserNotFound if the user does not exist.
	Resolve(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
}

// FamilyDirectory resolves family IDs to display names, used to enrich
// notification payloads.
type FamilyDirectory interface {
	// GetName returns the display name for the given family ID.
	// Returns ErrFamilyNotFound if the family does not exist.
	GetName(ctx context.Context, familyID uuid.UUID) (string, error)
}

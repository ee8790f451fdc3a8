package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/domain"
	"github.com/phrazzld/hearth-api/internal/store"
)

// profileCache memoizes directory lookups for the duration of one
// service call, so enriching a list resolves each member once.
type profileCache struct {
	directory store.UserDirectory
	cache     map[uuid.UUID]*domain.Profile
}

func newProfileCache(directory store.UserDirectory) *profileCache {
	return &profileCache{
		directory: directory,
		cache:     make(map[uuid.UUID]*domain.Profile),
	}
}

func (c *profileCache) resolve(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	if profile, ok := c.cache[userID]; ok {
		return profile, nil
	}

	profile, err := c.directory.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.cache[userID] = profile
	return profile, nil
}

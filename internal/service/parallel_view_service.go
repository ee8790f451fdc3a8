package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/domain"
	"github.com/phrazzld/hearth-api/internal/store"
)

// AddParallelViewInput carries the caller-supplied fields for a new
// parallel view.
type AddParallelViewInput struct {
	Content string
	Images  []string
	Tags    []string
}

// ParallelViewService owns the registry of parallel views: at most one
// view per author on each memory, and never on the author's own memory.
type ParallelViewService interface {
	// AddParallelView attaches the author's perspective to another
	// family member's memory. Fails with ErrDuplicateParallelView if
	// the author already has a view on the memory, including when a
	// concurrent request wins the race.
	AddParallelView(ctx context.Context, authorID, familyID, memoryID uuid.UUID, input AddParallelViewInput) (*FormattedParallelView, error)
}

// parallelViewServiceImpl implements the ParallelViewService interface
type parallelViewServiceImpl struct {
	memories  store.MemoryStore
	views     store.ParallelViewStore
	directory store.UserDirectory
	logger    *slog.Logger
}

// NewParallelViewService creates a new ParallelViewService.
// It returns an error if any of the required dependencies are nil.
func NewParallelViewService(
	memories store.MemoryStore,
	views store.ParallelViewStore,
	directory store.UserDirectory,
	logger *slog.Logger,
) (ParallelViewService, error) {
	if memories == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "memory store cannot be nil"}
	}
	if views == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "parallel view store cannot be nil"}
	}
	if directory == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "user directory cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &parallelViewServiceImpl{
		memories:  memories,
		views:     views,
		directory: directory,
		logger:    logger.With("component", "parallel_view_service"),
	}, nil
}

// AddParallelView runs the guard chain in order: the memory must
// exist, belong to the author's family, not be the author's own, and
// not already carry a view from this author. The uniqueness pre-check
// is advisory; the insert's unique constraint is the authoritative
// guard, and a violation there reports the same duplicate error.
func (s *parallelViewServiceImpl) AddParallelView(
	ctx context.Context,
	authorID, familyID, memoryID uuid.UUID,
	input AddParallelViewInput,
) (*FormattedParallelView, error) {
	memory, err := s.memories.GetByID(ctx, memoryID)
	if err != nil {
		if errors.Is(err, store.ErrMemoryNotFound) {
			return nil, ErrMemoryNotFound
		}
		return nil, NewServiceError("add_parallel_view", "failed to retrieve memory", err)
	}

	if memory.FamilyID != familyID {
		s.logger.Warn("parallel view attempt on another family's memory",
			"memory_id", memoryID,
			"author_id", authorID)
		return nil, ErrNotFamilyMember
	}

	if memory.AuthorID == authorID {
		return nil, ErrOwnMemoryView
	}

	exists, err := s.views.ExistsForAuthor(ctx, memoryID, authorID)
	if err != nil {
		return nil, NewServiceError("add_parallel_view", "failed to check for existing view", err)
	}
	if exists {
		return nil, ErrDuplicateParallelView
	}

	view, err := domain.NewParallelView(memoryID, authorID, input.Content, input.Images, input.Tags)
	if err != nil {
		return nil, NewServiceError("add_parallel_view", "failed to create parallel view object", err)
	}

	if err := s.views.Create(ctx, view); err != nil {
		if errors.Is(err, store.ErrParallelViewExists) {
			// Lost the race to a concurrent insert.
			return nil, ErrDuplicateParallelView
		}
		s.logger.Error("failed to save parallel view",
			"error", err,
			"memory_id", memoryID,
			"author_id", authorID)
		return nil, NewServiceError("add_parallel_view", "failed to save parallel view", err)
	}

	s.logger.Info("parallel view added",
		"view_id", view.ID,
		"memory_id", memoryID,
		"author_id", authorID)

	author, err := s.directory.Resolve(ctx, authorID)
	if err != nil {
		return nil, NewServiceError("add_parallel_view", "failed to resolve author", err)
	}

	return &FormattedParallelView{
		ID:             view.ID,
		MemoryID:       view.MemoryID,
		Content:        view.Content,
		Images:         view.Images,
		Tags:           view.Tags,
		CreatedAt:      view.CreatedAt,
		Author:         author,
		ResonanceCount: 0,
	}, nil
}

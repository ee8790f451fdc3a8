package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/domain"
	"github.com/phrazzld/hearth-api/internal/events"
	"github.com/phrazzld/hearth-api/internal/store"
)

// notificationDescriptionLimit is the maximum description length (in
// runes) carried by an admin notification.
const notificationDescriptionLimit = 50

// CreateMemoryInput carries the caller-supplied fields for a new memory.
type CreateMemoryInput struct {
	Type      domain.MemoryType
	Content   string
	Tags      []string
	MediaURLs []string
}

// FormattedMemory is a memory as returned to callers: author profile,
// flattened media URLs, resonance count, the one-year-ago marker, and
// nested parallel views.
type FormattedMemory struct {
	ID             uuid.UUID                `json:"id"`
	Type           domain.MemoryType        `json:"type"`
	Content        string                   `json:"content"`
	Tags           []string                 `json:"tags"`
	CreatedAt      time.Time                `json:"created_at"`
	IsOldMemory    bool                     `json:"is_old_memory"`
	Author         *domain.Profile          `json:"author"`
	MediaURLs      []string                 `json:"media_urls"`
	ResonanceCount int                      `json:"resonance_count"`
	ParallelViews  []*FormattedParallelView `json:"parallel_views,omitempty"`
}

// FormattedParallelView is a parallel view as returned to callers.
type FormattedParallelView struct {
	ID             uuid.UUID       `json:"id"`
	MemoryID       uuid.UUID       `json:"memory_id"`
	Content        string          `json:"content"`
	Images         []string        `json:"images"`
	Tags           []string        `json:"tags"`
	CreatedAt      time.Time       `json:"created_at"`
	Author         *domain.Profile `json:"author"`
	ResonanceCount int             `json:"resonance_count"`
}

// MemoryPage is one page of a family's memories.
type MemoryPage struct {
	Items      []*FormattedMemory `json:"items"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}

// MemoryService owns creation and retrieval of memory records.
type MemoryService interface {
	// CreateMemory persists a memory and its media references
	// atomically, then emits a fire-and-forget admin notification.
	CreateMemory(ctx context.Context, authorID, familyID uuid.UUID, input CreateMemoryInput) (*FormattedMemory, error)

	// GetMemories returns a page of the family's memories, newest
	// first, each with nested parallel views and resonance counts.
	GetMemories(ctx context.Context, familyID uuid.UUID, page store.Page) (*MemoryPage, error)

	// GetMemoryByID returns a single formatted memory.
	GetMemoryByID(ctx context.Context, id uuid.UUID) (*FormattedMemory, error)

	// GetYearAgoMemories returns the family's memories created on this
	// calendar day exactly one year ago.
	GetYearAgoMemories(ctx context.Context, familyID uuid.UUID) ([]*FormattedMemory, error)
}

// memoryServiceImpl implements the MemoryService interface
type memoryServiceImpl struct {
	db         *sql.DB
	memories   store.MemoryStore
	views      store.ParallelViewStore
	resonances store.ResonanceStore
	directory  store.UserDirectory
	families   store.FamilyDirectory
	emitter    events.Emitter
	logger     *slog.Logger
	now        func() time.Time
	runTx      func(ctx context.Context, fn store.TxFn) error
}

// NewMemoryService creates a new MemoryService.
// It returns an error if any of the required dependencies are nil.
func NewMemoryService(
	db *sql.DB,
	memories store.MemoryStore,
	views store.ParallelViewStore,
	resonances store.ResonanceStore,
	directory store.UserDirectory,
	families store.FamilyDirectory,
	emitter events.Emitter,
	logger *slog.Logger,
) (MemoryService, error) {
	if db == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "db cannot be nil"}
	}
	if memories == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "memory store cannot be nil"}
	}
	if views == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "parallel view store cannot be nil"}
	}
	if resonances == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "resonance store cannot be nil"}
	}
	if directory == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "user directory cannot be nil"}
	}
	if families == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "family directory cannot be nil"}
	}
	if emitter == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "emitter cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &memoryServiceImpl{
		db:         db,
		memories:   memories,
		views:      views,
		resonances: resonances,
		directory:  directory,
		families:   families,
		emitter:    emitter,
		logger:     logger.With("component", "memory_service"),
		now:        func() time.Time { return time.Now().UTC() },
	}
	s.runTx = func(ctx context.Context, fn store.TxFn) error {
		return store.RunInTransaction(ctx, s.db, fn)
	}
	return s, nil
}

// CreateMemory persists the memory and its media in one transaction,
// then emits the admin notification. Notification failures are logged
// and never fail the creation.
func (s *memoryServiceImpl) CreateMemory(
	ctx context.Context,
	authorID, familyID uuid.UUID,
	input CreateMemoryInput,
) (*FormattedMemory, error) {
	memory, err := domain.NewMemory(authorID, familyID, input.Type, input.Content, input.Tags, input.MediaURLs)
	if err != nil {
		return nil, NewServiceError("create_memory", "failed to create memory object", err)
	}

	// Resolve before writing anything: the profile is needed
	// unconditionally, and a failure here must not leave a committed
	// memory behind.
	author, err := s.directory.Resolve(ctx, authorID)
	if err != nil {
		return nil, NewServiceError("create_memory", "failed to resolve author", err)
	}

	err = s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.memories.WithTx(tx).Create(ctx, memory)
	})
	if err != nil {
		s.logger.Error("failed to save memory",
			"error", err,
			"memory_id", memory.ID,
			"author_id", authorID)
		return nil, NewServiceError("create_memory", "failed to save memory", err)
	}

	s.logger.Info("memory created",
		"memory_id", memory.ID,
		"author_id", authorID,
		"family_id", familyID,
		"type", memory.Type)

	s.notifyMemoryCreated(ctx, memory, author)

	return &FormattedMemory{
		ID:             memory.ID,
		Type:           memory.Type,
		Content:        memory.Content,
		Tags:           memory.Tags,
		CreatedAt:      memory.CreatedAt,
		IsOldMemory:    memory.CreatedOn(yearAgoToday(s.now())),
		Author:         author,
		MediaURLs:      mediaURLs(memory),
		ResonanceCount: 0,
	}, nil
}

// notifyMemoryCreated emits the admin notification for a new memory.
// Best effort: failures are logged and swallowed.
func (s *memoryServiceImpl) notifyMemoryCreated(
	ctx context.Context,
	memory *domain.Memory,
	author *domain.Profile,
) {
	familyName, err := s.families.GetName(ctx, memory.FamilyID)
	if err != nil {
		s.logger.Warn("failed to resolve family name for notification",
			"error", err,
			"family_id", memory.FamilyID)
		familyName = "unknown family"
	}

	notification := &events.Notification{
		Type:        events.TargetTypeMemory,
		TargetID:    memory.ID,
		Title:       author.Nickname + " added a new memory",
		Description: events.Truncate(memory.Content, notificationDescriptionLimit),
		FamilyName:  familyName,
		AuthorName:  author.Nickname,
		CreatedAt:   memory.CreatedAt,
	}

	if err := s.emitter.Emit(ctx, events.EventMemoryCreated, notification); err != nil {
		s.logger.Warn("failed to emit memory notification",
			"error", err,
			"memory_id", memory.ID)
	}
}

// GetMemories returns a formatted page of the family's memories.
func (s *memoryServiceImpl) GetMemories(
	ctx context.Context,
	familyID uuid.UUID,
	page store.Page,
) (*MemoryPage, error) {
	page = page.Normalize()

	memories, total, err := s.memories.FindByFamily(ctx, familyID, page)
	if err != nil {
		return nil, NewServiceError("get_memories", "failed to list memories", err)
	}

	items, err := s.formatMemories(ctx, memories, true)
	if err != nil {
		return nil, NewServiceError("get_memories", "failed to format memories", err)
	}

	return &MemoryPage{
		Items:      items,
		Total:      total,
		Page:       page.Number,
		Limit:      page.Size,
		TotalPages: page.TotalPages(total),
	}, nil
}

// GetMemoryByID returns a single formatted memory.
func (s *memoryServiceImpl) GetMemoryByID(ctx context.Context, id uuid.UUID) (*FormattedMemory, error) {
	memory, err := s.memories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrMemoryNotFound) {
			return nil, ErrMemoryNotFound
		}
		return nil, NewServiceError("get_memory", "failed to retrieve memory", err)
	}

	items, err := s.formatMemories(ctx, []*domain.Memory{memory}, true)
	if err != nil {
		return nil, NewServiceError("get_memory", "failed to format memory", err)
	}
	return items[0], nil
}

// GetYearAgoMemories returns the family's memories from this calendar
// day one year ago. Parallel views are not nested on this projection.
func (s *memoryServiceImpl) GetYearAgoMemories(
	ctx context.Context,
	familyID uuid.UUID,
) ([]*FormattedMemory, error) {
	day := yearAgoToday(s.now())

	memories, err := s.memories.FindByFamilyCreatedOn(ctx, familyID, day)
	if err != nil {
		return nil, NewServiceError("get_year_ago_memories", "failed to list memories", err)
	}

	items, err := s.formatMemories(ctx, memories, false)
	if err != nil {
		return nil, NewServiceError("get_year_ago_memories", "failed to format memories", err)
	}
	return items, nil
}

// formatMemories assembles the response projection for a batch of
// memories: author profiles, resonance counts, the one-year-ago
// marker, and (when requested) nested parallel views with their own
// counts.
func (s *memoryServiceImpl) formatMemories(
	ctx context.Context,
	memories []*domain.Memory,
	withViews bool,
) ([]*FormattedMemory, error) {
	if len(memories) == 0 {
		return []*FormattedMemory{}, nil
	}

	memoryIDs := make([]uuid.UUID, 0, len(memories))
	for _, memory := range memories {
		memoryIDs = append(memoryIDs, memory.ID)
	}

	memoryCounts, err := s.resonances.CountByMemoryIDs(ctx, memoryIDs)
	if err != nil {
		return nil, err
	}

	viewsByMemory := map[uuid.UUID][]*domain.ParallelView{}
	viewCounts := map[uuid.UUID]int{}
	if withViews {
		views, err := s.views.FindByMemoryIDs(ctx, memoryIDs)
		if err != nil {
			return nil, err
		}

		viewIDs := make([]uuid.UUID, 0, len(views))
		for _, view := range views {
			viewsByMemory[view.MemoryID] = append(viewsByMemory[view.MemoryID], view)
			viewIDs = append(viewIDs, view.ID)
		}

		viewCounts, err = s.resonances.CountByParallelViewIDs(ctx, viewIDs)
		if err != nil {
			return nil, err
		}
	}

	profiles := newProfileCache(s.directory)
	yearAgo := yearAgoToday(s.now())

	items := make([]*FormattedMemory, 0, len(memories))
	for _, memory := range memories {
		author, err := profiles.resolve(ctx, memory.AuthorID)
		if err != nil {
			return nil, err
		}

		item := &FormattedMemory{
			ID:             memory.ID,
			Type:           memory.Type,
			Content:        memory.Content,
			Tags:           memory.Tags,
			CreatedAt:      memory.CreatedAt,
			IsOldMemory:    memory.CreatedOn(yearAgo),
			Author:         author,
			MediaURLs:      mediaURLs(memory),
			ResonanceCount: memoryCounts[memory.ID],
		}

		for _, view := range viewsByMemory[memory.ID] {
			viewAuthor, err := profiles.resolve(ctx, view.AuthorID)
			if err != nil {
				return nil, err
			}
			item.ParallelViews = append(item.ParallelViews, &FormattedParallelView{
				ID:             view.ID,
				MemoryID:       view.MemoryID,
				Content:        view.Content,
				Images:         view.Images,
				Tags:           view.Tags,
				CreatedAt:      view.CreatedAt,
				Author:         viewAuthor,
				ResonanceCount: viewCounts[view.ID],
			})
		}

		items = append(items, item)
	}

	return items, nil
}

// mediaURLs flattens a memory's media references to their URLs in sort
// order.
func mediaURLs(memory *domain.Memory) []string {
	urls := make([]string, 0, len(memory.Media))
	for _, media := range memory.Media {
		urls = append(urls, media.URL)
	}
	return urls
}

// yearAgoToday returns the UTC calendar day exactly one year before
// the given instant.
func yearAgoToday(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y-1, m, d, 0, 0, 0, 0, time.UTC)
}

package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for ParallelView
var (
	ErrEmptyParallelViewID       = errors.New("parallel view ID cannot be empty")
	ErrEmptyParallelViewMemoryID = errors.New("parallel view memory ID cannot be empty")
	ErrEmptyParallelViewAuthorID = errors.New("parallel view author ID cannot be empty")
	ErrEmptyParallelViewContent  = errors.New("parallel view content cannot be empty")
)

// ParallelView represents an alternate account of the same event,
// authored by a family member other than the memory's author. At most
// one parallel view may exist per (memory, author) pair; the database
// unique constraint is the authoritative guard.
type ParallelView struct {
	ID        uuid.UUID `json:"id"`
	MemoryID  uuid.UUID `json:"memory_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Content   string    `json:"content"`
	Images    []string  `json:"images"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// NewParallelView creates a new ParallelView on the given memory.
// It generates a new UUID for the view ID and sets the creation
// timestamp. The author-is-not-the-memory-author rule is enforced at
// the service layer since it requires the owning memory.
// Returns an error if validation fails.
func NewParallelView(
	memoryID, authorID uuid.UUID,
	content string,
	images, tags []string,
) (*ParallelView, error) {
	view := &ParallelView{
		ID:        uuid.New(),
		MemoryID:  memoryID,
		AuthorID:  authorID,
		Content:   content,
		Images:    images,
		Tags:      tags,
		CreatedAt: time.Now().UTC(),
	}

	if err := view.Validate(); err != nil {
		return nil, err
	}

	return view, nil
}

// Validate checks if the ParallelView has valid data.
// Returns an error if any field fails validation.
func (v *ParallelView) Validate() error {
	if v.ID == uuid.Nil {
		return ErrEmptyParallelViewID
	}

	if v.MemoryID == uuid.Nil {
		return ErrEmptyParallelViewMemoryID
	}

	if v.AuthorID == uuid.Nil {
		return ErrEmptyParallelViewAuthorID
	}

	if v.Content == "" {
		return ErrEmptyParallelViewContent
	}

	return nil
}

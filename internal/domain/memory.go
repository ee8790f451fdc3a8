package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MemoryType represents the kind of content a memory records.
type MemoryType string

// Possible memory types.
const (
	MemoryTypeText  MemoryType = "text"
	MemoryTypePhoto MemoryType = "photo"
	MemoryTypeVoice MemoryType = "voice"
)

// Common validation errors for Memory
var (
	ErrEmptyMemoryID       = errors.New("memory ID cannot be empty")
	ErrEmptyMemoryAuthorID = errors.New("memory author ID cannot be empty")
	ErrEmptyMemoryFamilyID = errors.New("memory family ID cannot be empty")
	ErrEmptyMemoryContent  = errors.New("memory content cannot be empty")
	ErrInvalidMemoryType   = errors.New("invalid memory type")
	ErrEmptyMediaURL       = errors.New("media URL cannot be empty")
)

// Memory represents a family-scoped record authored by one member.
// The family ID is fixed at creation and never reassigned.
type Memory struct {
	ID        uuid.UUID     `json:"id"`
	AuthorID  uuid.UUID     `json:"author_id"`
	FamilyID  uuid.UUID     `json:"family_id"`
	Type      MemoryType    `json:"type"`
	Content   string        `json:"content"`
	Tags      []string      `json:"tags"`
	Media     []MemoryMedia `json:"media"`
	CreatedAt time.Time     `json:"created_at"`
}

// MemoryMedia is an ordered media reference attached to a memory.
type MemoryMedia struct {
	ID       uuid.UUID `json:"id"`
	MemoryID uuid.UUID `json:"memory_id"`
	URL      string    `json:"url"`
	Sort     int       `json:"sort"`
}

// NewMemory creates a new Memory with the given author, family, type,
// content, tags, and media URLs. Media references are assigned their
// sort order from the slice position. Returns an error if validation
// fails.
func NewMemory(
	authorID, familyID uuid.UUID,
	memoryType MemoryType,
	content string,
	tags []string,
	mediaURLs []string,
) (*Memory, error) {
	memory := &Memory{
		ID:        uuid.New(),
		AuthorID:  authorID,
		FamilyID:  familyID,
		Type:      memoryType,
		Content:   content,
		Tags:      tags,
		CreatedAt: time.Now().UTC(),
	}

	for i, url := range mediaURLs {
		memory.Media = append(memory.Media, MemoryMedia{
			ID:       uuid.New(),
			MemoryID: memory.ID,
			URL:      url,
			Sort:     i,
		})
	}

	if err := memory.Validate(); err != nil {
		return nil, err
	}

	return memory, nil
}

// Validate checks if the Memory has valid data.
// Returns an error if any field fails validation.
func (m *Memory) Validate() error {
	if m.ID == uuid.Nil {
		return ErrEmptyMemoryID
	}

	if m.AuthorID == uuid.Nil {
		return ErrEmptyMemoryAuthorID
	}

	if m.FamilyID == uuid.Nil {
		return ErrEmptyMemoryFamilyID
	}

	if m.Content == "" {
		return ErrEmptyMemoryContent
	}

	if !isValidMemoryType(m.Type) {
		return ErrInvalidMemoryType
	}

	for _, media := range m.Media {
		if media.URL == "" {
			return ErrEmptyMediaURL
		}
	}

	return nil
}

// CreatedOn reports whether the memory was created on the given
// calendar day in UTC.
func (m *Memory) CreatedOn(day time.Time) bool {
	y1, m1, d1 := m.CreatedAt.UTC().Date()
	y2, m2, d2 := day.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// isValidMemoryType checks if the given type is a valid MemoryType.
func isValidMemoryType(memoryType MemoryType) bool {
	switch memoryType {
	case MemoryTypeText, MemoryTypePhoto, MemoryTypeVoice:
		return true
	default:
		return false
	}
}

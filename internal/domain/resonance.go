package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Resonance
var (
	ErrEmptyResonanceID     = errors.New("resonance ID cannot be empty")
	ErrEmptyResonanceUserID = errors.New("resonance user ID cannot be empty")
	ErrAmbiguousTarget      = errors.New("resonance must target exactly one of memory or parallel view")
)

// ResonanceTarget identifies the single entity a resonance attaches to:
// either a memory or a parallel view, never both. When ParallelViewID
// is set the memory ID is ignored for storage purposes.
type ResonanceTarget struct {
	MemoryID       *uuid.UUID
	ParallelViewID *uuid.UUID
}

// NewMemoryTarget returns a target pointing at a memory.
func NewMemoryTarget(memoryID uuid.UUID) ResonanceTarget {
	return ResonanceTarget{MemoryID: &memoryID}
}

// NewParallelViewTarget returns a target pointing at a parallel view.
func NewParallelViewTarget(parallelViewID uuid.UUID) ResonanceTarget {
	return ResonanceTarget{ParallelViewID: &parallelViewID}
}

// ResolveTarget applies the toggle endpoints' target resolution rule:
// if a parallel view ID is provided the target is the parallel view,
// otherwise the target is the memory.
func ResolveTarget(memoryID uuid.UUID, parallelViewID *uuid.UUID) ResonanceTarget {
	if parallelViewID != nil && *parallelViewID != uuid.Nil {
		return NewParallelViewTarget(*parallelViewID)
	}
	return NewMemoryTarget(memoryID)
}

// Validate checks that the target references exactly one entity.
func (t ResonanceTarget) Validate() error {
	hasMemory := t.MemoryID != nil && *t.MemoryID != uuid.Nil
	hasView := t.ParallelViewID != nil && *t.ParallelViewID != uuid.Nil
	if hasMemory == hasView {
		return ErrAmbiguousTarget
	}
	return nil
}

// Resonance is a lightweight, toggleable acknowledgment attached to
// exactly one target. Its presence is its sole state: a user resonates
// with a target iff a row exists for the (user, target) pair, and at
// most one such row may exist at any time.
type Resonance struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	MemoryID       *uuid.UUID `json:"memory_id,omitempty"`
	ParallelViewID *uuid.UUID `json:"parallel_view_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewResonance creates a new Resonance for the given user and target.
// Returns an error if validation fails.
func NewResonance(userID uuid.UUID, target ResonanceTarget) (*Resonance, error) {
	resonance := &Resonance{
		ID:             uuid.New(),
		UserID:         userID,
		MemoryID:       target.MemoryID,
		ParallelViewID: target.ParallelViewID,
		CreatedAt:      time.Now().UTC(),
	}

	if err := resonance.Validate(); err != nil {
		return nil, err
	}

	return resonance, nil
}

// Validate checks if the Resonance has valid data.
// Returns an error if any field fails validation.
func (r *Resonance) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyResonanceID
	}

	if r.UserID == uuid.Nil {
		return ErrEmptyResonanceUserID
	}

	return r.Target().Validate()
}

// Target returns the resonance's target reference.
func (r *Resonance) Target() ResonanceTarget {
	return ResonanceTarget{MemoryID: r.MemoryID, ParallelViewID: r.ParallelViewID}
}

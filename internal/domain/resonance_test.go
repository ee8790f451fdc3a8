package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestResolveTarget(t *testing.T) {
	t.Parallel() // Enable parallel execution
	memoryID := uuid.New()
	viewID := uuid.New()

	// No view ID: the memory is the target
	target := ResolveTarget(memoryID, nil)
	if target.MemoryID == nil || *target.MemoryID != memoryID {
		t.Errorf("Expected memory target %s, got %v", memoryID, target.MemoryID)
	}
	if target.ParallelViewID != nil {
		t.Errorf("Expected nil parallel view target, got %v", target.ParallelViewID)
	}

	// View ID present: the view wins over the memory
	target = ResolveTarget(memoryID, &viewID)
	if target.ParallelViewID == nil || *target.ParallelViewID != viewID {
		t.Errorf("Expected parallel view target %s, got %v", viewID, target.ParallelViewID)
	}
	if target.MemoryID != nil {
		t.Errorf("Expected nil memory target, got %v", target.MemoryID)
	}

	// Nil-UUID view ID falls back to the memory
	nilID := uuid.Nil
	target = ResolveTarget(memoryID, &nilID)
	if target.MemoryID == nil || *target.MemoryID != memoryID {
		t.Errorf("Expected memory target %s, got %v", memoryID, target.MemoryID)
	}
}

func TestResonanceTargetValidate(t *testing.T) {
	t.Parallel() // Enable parallel execution
	memoryID := uuid.New()
	viewID := uuid.New()

	if err := NewMemoryTarget(memoryID).Validate(); err != nil {
		t.Errorf("Expected no error for memory target, got %v", err)
	}

	if err := NewParallelViewTarget(viewID).Validate(); err != nil {
		t.Errorf("Expected no error for parallel view target, got %v", err)
	}

	// Neither set
	if err := (ResonanceTarget{}).Validate(); err != ErrAmbiguousTarget {
		t.Errorf("Expected error %v, got %v", ErrAmbiguousTarget, err)
	}

	// Both set
	both := ResonanceTarget{MemoryID: &memoryID, ParallelViewID: &viewID}
	if err := both.Validate(); err != ErrAmbiguousTarget {
		t.Errorf("Expected error %v, got %v", ErrAmbiguousTarget, err)
	}
}

func TestNewResonance(t *testing.T) {
	t.Parallel() // Enable parallel execution
	userID := uuid.New()
	memoryID := uuid.New()

	resonance, err := NewResonance(userID, NewMemoryTarget(memoryID))

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if resonance.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if resonance.UserID != userID {
		t.Errorf("Expected user ID %s, got %s", userID, resonance.UserID)
	}

	if resonance.MemoryID == nil || *resonance.MemoryID != memoryID {
		t.Errorf("Expected memory ID %s, got %v", memoryID, resonance.MemoryID)
	}

	// Test invalid user
	_, err = NewResonance(uuid.Nil, NewMemoryTarget(memoryID))
	if err != ErrEmptyResonanceUserID {
		t.Errorf("Expected error %v, got %v", ErrEmptyResonanceUserID, err)
	}

	// Test ambiguous target
	_, err = NewResonance(userID, ResonanceTarget{})
	if err != ErrAmbiguousTarget {
		t.Errorf("Expected error %v, got %v", ErrAmbiguousTarget, err)
	}
}

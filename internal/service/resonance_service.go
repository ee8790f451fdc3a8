package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/domain"
	"github.com/phrazzld/hearth-api/internal/store"
)

// ToggleAction reports which way a toggle flipped.
type ToggleAction string

const (
	ActionAdded   ToggleAction = "added"
	ActionRemoved ToggleAction = "removed"
)

// ToggleResult is the outcome of a resonance toggle.
type ToggleResult struct {
	Action    ToggleAction `json:"action"`
	Resonates bool         `json:"resonates"`
}

// ResonanceService owns the ledger of resonance acknowledgments.
type ResonanceService interface {
	// Toggle flips the user's resonance on the target: absent rows are
	// created, present rows are removed. Runs in a transaction so
	// concurrent toggles settle to a single row at most.
	Toggle(ctx context.Context, userID uuid.UUID, target domain.ResonanceTarget) (*ToggleResult, error)

	// Remove deletes the user's resonance on the target if present.
	// Removing an absent resonance is a no-op.
	Remove(ctx context.Context, userID uuid.UUID, target domain.ResonanceTarget) error

	// Has reports whether the user currently resonates with the memory.
	Has(ctx context.Context, userID, memoryID uuid.UUID) (bool, error)
}

// resonanceServiceImpl implements the ResonanceService interface
type resonanceServiceImpl struct {
	db         *sql.DB
	resonances store.ResonanceStore
	logger     *slog.Logger
	runTx      func(ctx context.Context, fn store.TxFn) error
}

// NewResonanceService creates a new ResonanceService.
// It returns an error if any of the required dependencies are nil.
func NewResonanceService(
	db *sql.DB,
	resonances store.ResonanceStore,
	logger *slog.Logger,
) (ResonanceService, error) {
	if db == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "db cannot be nil"}
	}
	if resonances == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "resonance store cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &resonanceServiceImpl{
		db:         db,
		resonances: resonances,
		logger:     logger.With("component", "resonance_service"),
	}
	s.runTx = func(ctx context.Context, fn store.TxFn) error {
		return store.RunInTransaction(ctx, s.db, fn)
	}
	return s, nil
}

// Toggle checks for an existing row and flips it inside one
// transaction. If two toggles race past the check, the partial unique
// indexes reject the second insert; that loser deletes the winner's
// row instead, so the pair still nets out to one add and one remove.
func (s *resonanceServiceImpl) Toggle(
	ctx context.Context,
	userID uuid.UUID,
	target domain.ResonanceTarget,
) (*ToggleResult, error) {
	if err := target.Validate(); err != nil {
		return nil, NewServiceError("toggle_resonance", "invalid target", err)
	}

	var result *ToggleResult
	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.resonances.WithTx(tx)

		existing, err := txStore.FindForTarget(ctx, userID, target)
		if err != nil && !errors.Is(err, store.ErrResonanceNotFound) {
			return err
		}

		if existing != nil {
			if err := txStore.Delete(ctx, existing.ID); err != nil {
				return err
			}
			result = &ToggleResult{Action: ActionRemoved, Resonates: false}
			return nil
		}

		resonance, err := domain.NewResonance(userID, target)
		if err != nil {
			return err
		}

		// A unique violation puts the transaction into the aborted
		// state, so no recovery statement can run here. Propagate and
		// handle after the rollback.
		if err := txStore.Create(ctx, resonance); err != nil {
			return err
		}

		result = &ToggleResult{Action: ActionAdded, Resonates: true}
		return nil
	})
	if errors.Is(err, store.ErrResonanceExists) {
		// Lost the insert race. The transaction has rolled back; the
		// winner's row is removed with a fresh single-statement delete.
		if _, derr := s.resonances.DeleteForTarget(ctx, userID, target); derr != nil {
			s.logger.Error("failed to remove resonance after lost race",
				"error", derr,
				"user_id", userID)
			return nil, NewServiceError("toggle_resonance", "failed to toggle resonance", derr)
		}
		result = &ToggleResult{Action: ActionRemoved, Resonates: false}
		err = nil
	}
	if err != nil {
		s.logger.Error("failed to toggle resonance",
			"error", err,
			"user_id", userID)
		return nil, NewServiceError("toggle_resonance", "failed to toggle resonance", err)
	}

	s.logger.Info("resonance toggled",
		"user_id", userID,
		"action", result.Action)

	return result, nil
}

// Remove deletes the resonance for the (user, target) pair. Absence is
// success: the caller asked for a state, not an event.
func (s *resonanceServiceImpl) Remove(
	ctx context.Context,
	userID uuid.UUID,
	target domain.ResonanceTarget,
) error {
	if err := target.Validate(); err != nil {
		return NewServiceError("remove_resonance", "invalid target", err)
	}

	deleted, err := s.resonances.DeleteForTarget(ctx, userID, target)
	if err != nil {
		return NewServiceError("remove_resonance", "failed to remove resonance", err)
	}

	if deleted > 0 {
		s.logger.Info("resonance removed", "user_id", userID)
	}
	return nil
}

// Has reports the user's current resonance state on a memory.
func (s *resonanceServiceImpl) Has(ctx context.Context, userID, memoryID uuid.UUID) (bool, error) {
	exists, err := s.resonances.ExistsForMemory(ctx, userID, memoryID)
	if err != nil {
		return false, NewServiceError("has_resonance", "failed to check resonance", err)
	}
	return exists, nil
}

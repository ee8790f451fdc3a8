package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// LetterStatus represents the lifecycle state of a time-locked letter.
type LetterStatus string

// Possible letter status values. Transitions are monotonic:
// sealed -> unlockable -> opened, with sealed -> opened allowed when
// the unlock time has already elapsed.
const (
	LetterStatusSealed     LetterStatus = "sealed"
	LetterStatusUnlockable LetterStatus = "unlockable"
	LetterStatusOpened     LetterStatus = "opened"
)

// Common validation errors for Letter
var (
	ErrEmptyLetterID         = errors.New("letter ID cannot be empty")
	ErrEmptyLetterSenderID   = errors.New("letter sender ID cannot be empty")
	ErrEmptyLetterReceiverID = errors.New("letter receiver ID cannot be empty")
	ErrEmptyLetterFamilyID   = errors.New("letter family ID cannot be empty")
	ErrEmptyLetterContent    = errors.New("letter content cannot be empty")
	ErrInvalidLetterStatus   = errors.New("invalid letter status")
	ErrLetterAlreadyOpened   = errors.New("letter is already opened")
)

// Letter represents a sealed, time-locked message from one family
// member to another. The letter cannot be opened before its unlock
// time has elapsed.
type Letter struct {
	ID         uuid.UUID    `json:"id"`
	SenderID   uuid.UUID    `json:"sender_id"`
	ReceiverID uuid.UUID    `json:"receiver_id"`
	FamilyID   uuid.UUID    `json:"family_id"`
	Content    string       `json:"content"`
	UnlockTime time.Time    `json:"unlock_time"`
	Status     LetterStatus `json:"status"`
	OpenedAt   *time.Time   `json:"opened_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// NewLetter creates a new sealed Letter from the sender to the receiver.
// It generates a new UUID for the letter ID, sets the status to sealed,
// and sets the creation timestamp. The unlock-time-in-the-future rule is
// enforced at the service layer since it depends on the current instant.
// Returns an error if validation fails.
func NewLetter(
	senderID, receiverID, familyID uuid.UUID,
	content string,
	unlockTime time.Time,
) (*Letter, error) {
	letter := &Letter{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		FamilyID:   familyID,
		Content:    content,
		UnlockTime: unlockTime,
		Status:     LetterStatusSealed,
		OpenedAt:   nil,
		CreatedAt:  time.Now().UTC(),
	}

	if err := letter.Validate(); err != nil {
		return nil, err
	}

	return letter, nil
}

// Validate checks if the Letter has valid data.
// Returns an error if any field fails validation.
func (l *Letter) Validate() error {
	if l.ID == uuid.Nil {
		return ErrEmptyLetterID
	}

	if l.SenderID == uuid.Nil {
		return ErrEmptyLetterSenderID
	}

	if l.ReceiverID == uuid.Nil {
		return ErrEmptyLetterReceiverID
	}

	if l.FamilyID == uuid.Nil {
		return ErrEmptyLetterFamilyID
	}

	if l.Content == "" {
		return ErrEmptyLetterContent
	}

	if !isValidLetterStatus(l.Status) {
		return ErrInvalidLetterStatus
	}

	return nil
}

// Unlockable reports whether the letter may be opened at the given
// instant. This is the authoritative open gate: it compares the unlock
// time against the wall clock directly, independent of whether the
// persisted status has been promoted to unlockable by a list read.
func (l *Letter) Unlockable(now time.Time) bool {
	return !l.UnlockTime.After(now)
}

// Open transitions the letter to the opened state and records the open
// instant. Opening is idempotent at the service layer; calling Open on
// an already-opened letter returns ErrLetterAlreadyOpened so callers
// can short-circuit without mutating OpenedAt.
func (l *Letter) Open(now time.Time) error {
	if l.Status == LetterStatusOpened {
		return ErrLetterAlreadyOpened
	}

	openedAt := now.UTC()
	l.Status = LetterStatusOpened
	l.OpenedAt = &openedAt
	return nil
}

// DaysUntilUnlock returns the number of whole or partial days remaining
// until the unlock time, never negative. A letter unlocking later today
// reports 1; an unlockable letter reports 0.
func (l *Letter) DaysUntilUnlock(now time.Time) int {
	remaining := l.UnlockTime.Sub(now)
	if remaining <= 0 {
		return 0
	}

	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// isValidLetterStatus checks if the given status is a valid LetterStatus.
func isValidLetterStatus(status LetterStatus) bool {
	switch status {
	case LetterStatusSealed, LetterStatusUnlockable, LetterStatusOpened:
		return true
	default:
		return false
	}
}

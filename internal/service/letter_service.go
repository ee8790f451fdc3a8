package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/domain"
	"github.com/phrazzld/hearth-api/internal/store"
)

// CreateLetterInput carries the caller-supplied fields for a new letter.
type CreateLetterInput struct {
	ReceiverID uuid.UUID
	Content    string
	UnlockTime time.Time
}

// EnrichedLetter is a letter annotated with the display profiles of
// its participants.
type EnrichedLetter struct {
	*domain.Letter
	Sender   *domain.Profile `json:"sender,omitempty"`
	Receiver *domain.Profile `json:"receiver,omitempty"`
}

// PendingLetter is a not-yet-opened letter as shown in the receiver's
// pending list, annotated with countdown and openability.
type PendingLetter struct {
	*domain.Letter
	Sender          *domain.Profile `json:"sender,omitempty"`
	DaysUntilUnlock int             `json:"days_until_unlock"`
	CanOpen         bool            `json:"can_open"`
}

// LetterPage is one page of a sender's letters.
type LetterPage struct {
	Items      []*EnrichedLetter `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}

// LetterService owns the letter lifecycle: creation, lazy status
// promotion, opening, and the read projections.
type LetterService interface {
	// CreateLetter seals a new time-locked letter from the sender to a
	// member of the same family. The unlock time must be strictly in
	// the future.
	CreateLetter(ctx context.Context, senderID, familyID uuid.UUID, input CreateLetterInput) (*EnrichedLetter, error)

	// GetPendingLetters returns the receiver's sealed and unlockable
	// letters ordered by unlock time, after opportunistically
	// promoting sealed letters whose unlock time has elapsed.
	GetPendingLetters(ctx context.Context, receiverID uuid.UUID) ([]*PendingLetter, error)

	// OpenLetter opens a letter on behalf of its receiver. Opening an
	// already-opened letter returns it unchanged.
	OpenLetter(ctx context.Context, userID, letterID uuid.UUID) (*EnrichedLetter, error)

	// GetSentLetters returns a page of the sender's letters, newest first.
	GetSentLetters(ctx context.Context, senderID uuid.UUID, page store.Page) (*LetterPage, error)

	// GetOpenedLetters returns the receiver's opened letters,
	// optionally filtered by the year they were opened.
	GetOpenedLetters(ctx context.Context, receiverID uuid.UUID, year *int) ([]*EnrichedLetter, error)

	// GetLetterYears returns the distinct years in which the receiver
	// opened letters, descending.
	GetLetterYears(ctx context.Context, receiverID uuid.UUID) ([]int, error)
}

// letterServiceImpl implements the LetterService interface
type letterServiceImpl struct {
	letters   store.LetterStore
	directory store.UserDirectory
	logger    *slog.Logger
	now       func() time.Time
}

// NewLetterService creates a new LetterService.
// It returns an error if any of the required dependencies are nil.
func NewLetterService(
	letters store.LetterStore,
	directory store.UserDirectory,
	logger *slog.Logger,
) (LetterService, error) {
	if letters == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "letter store cannot be nil"}
	}
	if directory == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "user directory cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &letterServiceImpl{
		letters:   letters,
		directory: directory,
		logger:    logger.With("component", "letter_service"),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateLetter validates the receiver's family membership and the
// unlock time, then persists the sealed letter.
func (s *letterServiceImpl) CreateLetter(
	ctx context.Context,
	senderID, familyID uuid.UUID,
	input CreateLetterInput,
) (*EnrichedLetter, error) {
	// The receiver must resolve to a member of the sender's family.
	// An unknown receiver gets the same answer as a cross-family one.
	receiver, err := s.directory.Resolve(ctx, input.ReceiverID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrReceiverNotFamilyMember
		}
		return nil, NewServiceError("create_letter", "failed to resolve receiver", err)
	}
	if receiver.FamilyID != familyID {
		s.logger.Warn("letter receiver belongs to a different family",
			"sender_id", senderID,
			"receiver_id", input.ReceiverID)
		return nil, ErrReceiverNotFamilyMember
	}

	if !input.UnlockTime.After(s.now()) {
		return nil, ErrUnlockTimeNotFuture
	}

	letter, err := domain.NewLetter(senderID, input.ReceiverID, familyID, input.Content, input.UnlockTime)
	if err != nil {
		return nil, NewServiceError("create_letter", "failed to create letter object", err)
	}

	if err := s.letters.Create(ctx, letter); err != nil {
		s.logger.Error("failed to save letter",
			"error", err,
			"letter_id", letter.ID,
			"sender_id", senderID)
		return nil, NewServiceError("create_letter", "failed to save letter", err)
	}

	s.logger.Info("letter created",
		"letter_id", letter.ID,
		"sender_id", senderID,
		"receiver_id", input.ReceiverID,
		"unlock_time", letter.UnlockTime)

	sender, err := s.directory.Resolve(ctx, senderID)
	if err != nil {
		return nil, NewServiceError("create_letter", "failed to resolve sender", err)
	}

	return &EnrichedLetter{Letter: letter, Sender: sender, Receiver: receiver}, nil
}

// GetPendingLetters first promotes sealed letters whose unlock time
// has elapsed, then returns the pending list. The promotion is a
// display optimization: the open gate never depends on it having run.
func (s *letterServiceImpl) GetPendingLetters(
	ctx context.Context,
	receiverID uuid.UUID,
) ([]*PendingLetter, error) {
	now := s.now()

	if _, err := s.letters.PromoteUnlockable(ctx, receiverID, now); err != nil {
		s.logger.Error("failed to promote unlockable letters",
			"error", err,
			"receiver_id", receiverID)
		return nil, NewServiceError("get_pending_letters", "failed to promote unlockable letters", err)
	}

	letters, err := s.letters.FindPendingByReceiver(ctx, receiverID)
	if err != nil {
		return nil, NewServiceError("get_pending_letters", "failed to list pending letters", err)
	}

	profiles := newProfileCache(s.directory)
	pending := make([]*PendingLetter, 0, len(letters))
	for _, letter := range letters {
		sender, err := profiles.resolve(ctx, letter.SenderID)
		if err != nil {
			return nil, NewServiceError("get_pending_letters", "failed to resolve sender", err)
		}
		pending = append(pending, &PendingLetter{
			Letter:          letter,
			Sender:          sender,
			DaysUntilUnlock: letter.DaysUntilUnlock(now),
			CanOpen:         letter.Status == domain.LetterStatusUnlockable,
		})
	}

	return pending, nil
}

// OpenLetter opens the letter for its receiver. The temporal gate
// compares the unlock time against the wall clock directly: a sealed
// letter whose unlock time has elapsed opens even if no list read has
// promoted it to unlockable.
func (s *letterServiceImpl) OpenLetter(
	ctx context.Context,
	userID, letterID uuid.UUID,
) (*EnrichedLetter, error) {
	letter, err := s.letters.GetByID(ctx, letterID)
	if err != nil {
		if errors.Is(err, store.ErrLetterNotFound) {
			return nil, ErrLetterNotFound
		}
		return nil, NewServiceError("open_letter", "failed to retrieve letter", err)
	}

	if letter.ReceiverID != userID {
		s.logger.Warn("open attempt by non-receiver",
			"letter_id", letterID,
			"user_id", userID)
		return nil, ErrNotLetterReceiver
	}

	now := s.now()
	if letter.Status == domain.LetterStatusSealed && !letter.Unlockable(now) {
		return nil, ErrLetterStillSealed
	}

	// Already opened: return as-is, opened-at stays untouched.
	if letter.Status != domain.LetterStatusOpened {
		if err := letter.Open(now); err != nil {
			return nil, NewServiceError("open_letter", "failed to open letter", err)
		}
		if err := s.letters.Update(ctx, letter); err != nil {
			s.logger.Error("failed to persist opened letter",
				"error", err,
				"letter_id", letterID)
			return nil, NewServiceError("open_letter", "failed to persist opened letter", err)
		}
		s.logger.Info("letter opened",
			"letter_id", letterID,
			"receiver_id", userID)
	}

	sender, err := s.directory.Resolve(ctx, letter.SenderID)
	if err != nil {
		return nil, NewServiceError("open_letter", "failed to resolve sender", err)
	}

	return &EnrichedLetter{Letter: letter, Sender: sender}, nil
}

// GetSentLetters returns a page of the sender's letters with receiver
// profiles attached.
func (s *letterServiceImpl) GetSentLetters(
	ctx context.Context,
	senderID uuid.UUID,
	page store.Page,
) (*LetterPage, error) {
	page = page.Normalize()

	letters, total, err := s.letters.FindBySender(ctx, senderID, page)
	if err != nil {
		return nil, NewServiceError("get_sent_letters", "failed to list sent letters", err)
	}

	profiles := newProfileCache(s.directory)
	items := make([]*EnrichedLetter, 0, len(letters))
	for _, letter := range letters {
		receiver, err := profiles.resolve(ctx, letter.ReceiverID)
		if err != nil {
			return nil, NewServiceError("get_sent_letters", "failed to resolve receiver", err)
		}
		items = append(items, &EnrichedLetter{Letter: letter, Receiver: receiver})
	}

	return &LetterPage{
		Items:      items,
		Total:      total,
		Page:       page.Number,
		Limit:      page.Size,
		TotalPages: page.TotalPages(total),
	}, nil
}

// GetOpenedLetters returns the receiver's opened letters with sender
// profiles, optionally restricted to one opened-at year.
func (s *letterServiceImpl) GetOpenedLetters(
	ctx context.Context,
	receiverID uuid.UUID,
	year *int,
) ([]*EnrichedLetter, error) {
	letters, err := s.letters.FindOpenedByReceiver(ctx, receiverID, year)
	if err != nil {
		return nil, NewServiceError("get_opened_letters", "failed to list opened letters", err)
	}

	profiles := newProfileCache(s.directory)
	items := make([]*EnrichedLetter, 0, len(letters))
	for _, letter := range letters {
		sender, err := profiles.resolve(ctx, letter.SenderID)
		if err != nil {
			return nil, NewServiceError("get_opened_letters", "failed to resolve sender", err)
		}
		items = append(items, &EnrichedLetter{Letter: letter, Sender: sender})
	}

	return items, nil
}

// GetLetterYears returns the distinct opened-at years for the receiver.
func (s *letterServiceImpl) GetLetterYears(
	ctx context.Context,
	receiverID uuid.UUID,
) ([]int, error) {
	years, err := s.letters.GetOpenedYears(ctx, receiverID)
	if err != nil {
		return nil, NewServiceError("get_letter_years", "failed to list letter years", err)
	}
	return years, nil
}

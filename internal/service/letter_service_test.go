package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/domain"
	"github.com/phrazzld/hearth-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLetterServiceForTest builds a letter service over fakes with a
// fixed clock.
func newLetterServiceForTest(
	t *testing.T,
	letters *fakeLetterStore,
	directory *fakeDirectory,
	now time.Time,
) LetterService {
	t.Helper()
	svc, err := NewLetterService(letters, directory, slog.Default())
	require.NoError(t, err)
	svc.(*letterServiceImpl).now = func() time.Time { return now }
	return svc
}

func TestCreateLetter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	familyID := uuid.New()

	t.Run("success", func(t *testing.T) {
		letters := newFakeLetterStore()
		directory := newFakeDirectory()
		sender := directory.addProfile(familyID, "Mom")
		receiver := directory.addProfile(familyID, "Kid")
		svc := newLetterServiceForTest(t, letters, directory, now)

		letter, err := svc.CreateLetter(ctx, sender.ID, familyID, CreateLetterInput{
			ReceiverID: receiver.ID,
			Content:    "Open this when you graduate",
			UnlockTime: now.Add(365 * 24 * time.Hour),
		})

		require.NoError(t, err)
		assert.Equal(t, domain.LetterStatusSealed, letter.Status)
		assert.Nil(t, letter.OpenedAt)
		assert.Equal(t, sender.ID, letter.Sender.ID)
		assert.Equal(t, receiver.ID, letter.Receiver.ID)

		stored, err := letters.GetByID(ctx, letter.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.LetterStatusSealed, stored.Status)
	})

	t.Run("receiver in another family", func(t *testing.T) {
		letters := newFakeLetterStore()
		directory := newFakeDirectory()
		sender := directory.addProfile(familyID, "Mom")
		stranger := directory.addProfile(uuid.New(), "Stranger")
		svc := newLetterServiceForTest(t, letters, directory, now)

		_, err := svc.CreateLetter(ctx, sender.ID, familyID, CreateLetterInput{
			ReceiverID: stranger.ID,
			Content:    "hello",
			UnlockTime: now.Add(time.Hour),
		})

		assert.ErrorIs(t, err, ErrReceiverNotFamilyMember)
	})

	t.Run("unknown receiver", func(t *testing.T) {
		letters := newFakeLetterStore()
		directory := newFakeDirectory()
		sender := directory.addProfile(familyID, "Mom")
		svc := newLetterServiceForTest(t, letters, directory, now)

		_, err := svc.CreateLetter(ctx, sender.ID, familyID, CreateLetterInput{
			ReceiverID: uuid.New(),
			Content:    "hello",
			UnlockTime: now.Add(time.Hour),
		})

		assert.ErrorIs(t, err, ErrReceiverNotFamilyMember)
	})

	t.Run("unlock time not in the future", func(t *testing.T) {
		letters := newFakeLetterStore()
		directory := newFakeDirectory()
		sender := directory.addProfile(familyID, "Mom")
		receiver := directory.addProfile(familyID, "Kid")
		svc := newLetterServiceForTest(t, letters, directory, now)

		for _, unlockTime := range []time.Time{now, now.Add(-time.Minute)} {
			_, err := svc.CreateLetter(ctx, sender.ID, familyID, CreateLetterInput{
				ReceiverID: receiver.ID,
				Content:    "hello",
				UnlockTime: unlockTime,
			})
			assert.ErrorIs(t, err, ErrUnlockTimeNotFuture)
		}
	})
}

func TestGetPendingLetters(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	familyID := uuid.New()

	letters := newFakeLetterStore()
	directory := newFakeDirectory()
	sender := directory.addProfile(familyID, "Dad")
	receiver := directory.addProfile(familyID, "Kid")
	svc := newLetterServiceForTest(t, letters, directory, now)

	// One letter already past its unlock time, one still locked.
	elapsed, err := domain.NewLetter(sender.ID, receiver.ID, familyID, "past due", now.Add(-time.Hour))
	require.NoError(t, err)
	require.NoError(t, letters.Create(ctx, elapsed))

	locked, err := domain.NewLetter(sender.ID, receiver.ID, familyID, "still locked", now.Add(30*time.Hour))
	require.NoError(t, err)
	require.NoError(t, letters.Create(ctx, locked))

	// An opened letter never appears in the pending list.
	opened, err := domain.NewLetter(sender.ID, receiver.ID, familyID, "long gone", now.Add(-72*time.Hour))
	require.NoError(t, err)
	require.NoError(t, opened.Open(now.Add(-time.Hour)))
	require.NoError(t, letters.Create(ctx, opened))

	pending, err := svc.GetPendingLetters(ctx, receiver.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	// Ordered by unlock time: the elapsed one first, promoted to
	// unlockable by the batch sweep and openable now.
	assert.Equal(t, elapsed.ID, pending[0].ID)
	assert.Equal(t, domain.LetterStatusUnlockable, pending[0].Status)
	assert.True(t, pending[0].CanOpen)
	assert.Equal(t, 0, pending[0].DaysUntilUnlock)

	assert.Equal(t, locked.ID, pending[1].ID)
	assert.Equal(t, domain.LetterStatusSealed, pending[1].Status)
	assert.False(t, pending[1].CanOpen)
	assert.Equal(t, 2, pending[1].DaysUntilUnlock)

	assert.Equal(t, 1, letters.promoteCalls)

	// The sender profile resolves once despite two letters.
	assert.Equal(t, 1, directory.resolveCalls)
}

func TestGetPendingLetters_PromotionFailureAbortsRead(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	letters := newFakeLetterStore()
	letters.promoteErr = assert.AnError
	directory := newFakeDirectory()
	svc := newLetterServiceForTest(t, letters, directory, now)

	_, err := svc.GetPendingLetters(ctx, uuid.New())
	assert.Error(t, err)
}

func TestOpenLetter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	familyID := uuid.New()

	setup := func(t *testing.T, unlockTime time.Time) (*fakeLetterStore, *fakeDirectory, LetterService, *domain.Letter, *domain.Profile) {
		letters := newFakeLetterStore()
		directory := newFakeDirectory()
		sender := directory.addProfile(familyID, "Dad")
		receiver := directory.addProfile(familyID, "Kid")
		svc := newLetterServiceForTest(t, letters, directory, now)

		letter, err := domain.NewLetter(sender.ID, receiver.ID, familyID, "surprise", unlockTime)
		require.NoError(t, err)
		require.NoError(t, letters.Create(ctx, letter))
		return letters, directory, svc, letter, receiver
	}

	t.Run("not found", func(t *testing.T) {
		_, _, svc, _, receiver := setup(t, now.Add(-time.Hour))
		_, err := svc.OpenLetter(ctx, receiver.ID, uuid.New())
		assert.ErrorIs(t, err, ErrLetterNotFound)
	})

	t.Run("not the receiver", func(t *testing.T) {
		letters, _, svc, letter, _ := setup(t, now.Add(-time.Hour))
		_, err := svc.OpenLetter(ctx, uuid.New(), letter.ID)
		assert.ErrorIs(t, err, ErrNotLetterReceiver)

		// The rejected attempt leaves the letter untouched.
		stored, err := letters.GetByID(ctx, letter.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.LetterStatusSealed, stored.Status)
		assert.Nil(t, stored.OpenedAt)
	})

	t.Run("still sealed", func(t *testing.T) {
		_, _, svc, letter, receiver := setup(t, now.Add(time.Hour))
		_, err := svc.OpenLetter(ctx, receiver.ID, letter.ID)
		assert.ErrorIs(t, err, ErrLetterStillSealed)
	})

	// A sealed letter whose unlock time has elapsed opens directly,
	// even though no pending-list read has promoted it to unlockable.
	t.Run("sealed but elapsed opens without sweep", func(t *testing.T) {
		letters, _, svc, letter, receiver := setup(t, now.Add(-time.Hour))

		stored, err := letters.GetByID(ctx, letter.ID)
		require.NoError(t, err)
		require.Equal(t, domain.LetterStatusSealed, stored.Status)

		opened, err := svc.OpenLetter(ctx, receiver.ID, letter.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.LetterStatusOpened, opened.Status)
		require.NotNil(t, opened.OpenedAt)
		assert.True(t, opened.OpenedAt.Equal(now))
		assert.Equal(t, 0, letters.promoteCalls)
	})

	t.Run("reopen is idempotent", func(t *testing.T) {
		_, _, svc, letter, receiver := setup(t, now.Add(-time.Hour))

		first, err := svc.OpenLetter(ctx, receiver.ID, letter.ID)
		require.NoError(t, err)

		again, err := svc.OpenLetter(ctx, receiver.ID, letter.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.LetterStatusOpened, again.Status)
		assert.True(t, again.OpenedAt.Equal(*first.OpenedAt))
	})
}

func TestGetSentLetters(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	familyID := uuid.New()

	letters := newFakeLetterStore()
	directory := newFakeDirectory()
	sender := directory.addProfile(familyID, "Dad")
	receiver := directory.addProfile(familyID, "Kid")
	svc := newLetterServiceForTest(t, letters, directory, now)

	for i := 0; i < 3; i++ {
		letter, err := domain.NewLetter(sender.ID, receiver.ID, familyID, "letter", now.Add(time.Hour))
		require.NoError(t, err)
		letter.CreatedAt = now.Add(time.Duration(i) * time.Minute)
		require.NoError(t, letters.Create(ctx, letter))
	}

	page, err := svc.GetSentLetters(ctx, sender.ID, store.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, receiver.ID, page.Items[0].Receiver.ID)
	// Newest first
	assert.True(t, page.Items[0].CreatedAt.After(page.Items[1].CreatedAt))
}

func TestGetOpenedLettersAndYears(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	familyID := uuid.New()

	letters := newFakeLetterStore()
	directory := newFakeDirectory()
	sender := directory.addProfile(familyID, "Dad")
	receiver := directory.addProfile(familyID, "Kid")
	svc := newLetterServiceForTest(t, letters, directory, now)

	openedIn := func(t *testing.T, year int) *domain.Letter {
		t.Helper()
		letter, err := domain.NewLetter(sender.ID, receiver.ID, familyID, "letter", now.Add(-48*time.Hour))
		require.NoError(t, err)
		openedAt := time.Date(year, 3, 10, 9, 0, 0, 0, time.UTC)
		require.NoError(t, letter.Open(openedAt))
		require.NoError(t, letters.Create(ctx, letter))
		return letter
	}

	in2024 := openedIn(t, 2024)
	openedIn(t, 2025)
	openedIn(t, 2025)

	all, err := svc.GetOpenedLetters(ctx, receiver.ID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	year := 2024
	filtered, err := svc.GetOpenedLetters(ctx, receiver.ID, &year)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, in2024.ID, filtered[0].ID)
	assert.Equal(t, sender.ID, filtered[0].Sender.ID)

	years, err := svc.GetLetterYears(ctx, receiver.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{2025, 2024}, years)
}

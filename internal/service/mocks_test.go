package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/hearth-api/internal/domain"
	"github.com/phrazzld/hearth-api/internal/events"
	"github.com/phrazzld/hearth-api/internal/store"
)

// Stateful in-memory fakes for the store interfaces. They mirror the
// postgres stores' contracts (sentinel errors, ordering, uniqueness)
// closely enough to drive the services through full scenarios.

// fakeLetterStore is an in-memory store.LetterStore.
type fakeLetterStore struct {
	letters    map[uuid.UUID]*domain.Letter
	createErr  error
	updateErr  error
	promoteErr error

	promoteCalls int
}

func newFakeLetterStore() *fakeLetterStore {
	return &fakeLetterStore{letters: make(map[uuid.UUID]*domain.Letter)}
}

func (f *fakeLetterStore) Create(ctx context.Context, letter *domain.Letter) error {
	if f.createErr != nil {
		return f.createErr
	}
	copied := *letter
	f.letters[letter.ID] = &copied
	return nil
}

func (f *fakeLetterStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Letter, error) {
	letter, ok := f.letters[id]
	if !ok {
		return nil, store.ErrLetterNotFound
	}
	copied := *letter
	return &copied, nil
}

func (f *fakeLetterStore) Update(ctx context.Context, letter *domain.Letter) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.letters[letter.ID]; !ok {
		return store.ErrLetterNotFound
	}
	copied := *letter
	f.letters[letter.ID] = &copied
	return nil
}

func (f *fakeLetterStore) PromoteUnlockable(
	ctx context.Context,
	receiverID uuid.UUID,
	now time.Time,
) (int64, error) {
	f.promoteCalls++
	if f.promoteErr != nil {
		return 0, f.promoteErr
	}
	var promoted int64
	for _, letter := range f.letters {
		if letter.ReceiverID == receiverID &&
			letter.Status == domain.LetterStatusSealed &&
			letter.Unlockable(now) {
			letter.Status = domain.LetterStatusUnlockable
			promoted++
		}
	}
	return promoted, nil
}

func (f *fakeLetterStore) FindPendingByReceiver(
	ctx context.Context,
	receiverID uuid.UUID,
) ([]*domain.Letter, error) {
	var pending []*domain.Letter
	for _, letter := range f.letters {
		if letter.ReceiverID == receiverID && letter.Status != domain.LetterStatusOpened {
			copied := *letter
			pending = append(pending, &copied)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].UnlockTime.Before(pending[j].UnlockTime)
	})
	return pending, nil
}

func (f *fakeLetterStore) FindBySender(
	ctx context.Context,
	senderID uuid.UUID,
	page store.Page,
) ([]*domain.Letter, int, error) {
	var sent []*domain.Letter
	for _, letter := range f.letters {
		if letter.SenderID == senderID {
			copied := *letter
			sent = append(sent, &copied)
		}
	}
	sort.Slice(sent, func(i, j int) bool {
		return sent[i].CreatedAt.After(sent[j].CreatedAt)
	})

	total := len(sent)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return sent[start:end], total, nil
}

func (f *fakeLetterStore) FindOpenedByReceiver(
	ctx context.Context,
	receiverID uuid.UUID,
	year *int,
) ([]*domain.Letter, error) {
	var opened []*domain.Letter
	for _, letter := range f.letters {
		if letter.ReceiverID != receiverID || letter.Status != domain.LetterStatusOpened {
			continue
		}
		if year != nil && letter.OpenedAt.UTC().Year() != *year {
			continue
		}
		copied := *letter
		opened = append(opened, &copied)
	}
	sort.Slice(opened, func(i, j int) bool {
		return opened[i].OpenedAt.After(*opened[j].OpenedAt)
	})
	return opened, nil
}

func (f *fakeLetterStore) GetOpenedYears(ctx context.Context, receiverID uuid.UUID) ([]int, error) {
	seen := make(map[int]bool)
	for _, letter := range f.letters {
		if letter.ReceiverID == receiverID && letter.Status == domain.LetterStatusOpened {
			seen[letter.OpenedAt.UTC().Year()] = true
		}
	}
	years := make([]int, 0, len(seen))
	for year := range seen {
		years = append(years, year)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

func (f *fakeLetterStore) WithTx(tx *sql.Tx) store.LetterStore { return f }

// fakeMemoryStore is an in-memory store.MemoryStore.
type fakeMemoryStore struct {
	memories  map[uuid.UUID]*domain.Memory
	createErr error
}

func newFakeMemoryStore() *fakeMemoryStore {
	return &fakeMemoryStore{memories: make(map[uuid.UUID]*domain.Memory)}
}

func (f *fakeMemoryStore) Create(ctx context.Context, memory *domain.Memory) error {
	if f.createErr != nil {
		return f.createErr
	}
	copied := *memory
	f.memories[memory.ID] = &copied
	return nil
}

func (f *fakeMemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Memory, error) {
	memory, ok := f.memories[id]
	if !ok {
		return nil, store.ErrMemoryNotFound
	}
	copied := *memory
	return &copied, nil
}

func (f *fakeMemoryStore) FindByFamily(
	ctx context.Context,
	familyID uuid.UUID,
	page store.Page,
) ([]*domain.Memory, int, error) {
	var found []*domain.Memory
	for _, memory := range f.memories {
		if memory.FamilyID == familyID {
			copied := *memory
			found = append(found, &copied)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i].CreatedAt.After(found[j].CreatedAt)
	})

	total := len(found)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return found[start:end], total, nil
}

func (f *fakeMemoryStore) FindByFamilyCreatedOn(
	ctx context.Context,
	familyID uuid.UUID,
	day time.Time,
) ([]*domain.Memory, error) {
	var found []*domain.Memory
	for _, memory := range f.memories {
		if memory.FamilyID == familyID && memory.CreatedOn(day) {
			copied := *memory
			found = append(found, &copied)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i].CreatedAt.Before(found[j].CreatedAt)
	})
	return found, nil
}

func (f *fakeMemoryStore) WithTx(tx *sql.Tx) store.MemoryStore { return f }

// fakeParallelViewStore is an in-memory store.ParallelViewStore.
type fakeParallelViewStore struct {
	views     map[uuid.UUID]*domain.ParallelView
	createErr error
}

func newFakeParallelViewStore() *fakeParallelViewStore {
	return &fakeParallelViewStore{views: make(map[uuid.UUID]*domain.ParallelView)}
}

func (f *fakeParallelViewStore) Create(ctx context.Context, view *domain.ParallelView) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.views {
		if existing.MemoryID == view.MemoryID && existing.AuthorID == view.AuthorID {
			return store.ErrParallelViewExists
		}
	}
	copied := *view
	f.views[view.ID] = &copied
	return nil
}

func (f *fakeParallelViewStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ParallelView, error) {
	view, ok := f.views[id]
	if !ok {
		return nil, store.ErrParallelViewNotFound
	}
	copied := *view
	return &copied, nil
}

func (f *fakeParallelViewStore) ExistsForAuthor(
	ctx context.Context,
	memoryID, authorID uuid.UUID,
) (bool, error) {
	for _, view := range f.views {
		if view.MemoryID == memoryID && view.AuthorID == authorID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeParallelViewStore) FindByMemoryIDs(
	ctx context.Context,
	memoryIDs []uuid.UUID,
) ([]*domain.ParallelView, error) {
	wanted := make(map[uuid.UUID]bool, len(memoryIDs))
	for _, id := range memoryIDs {
		wanted[id] = true
	}
	var found []*domain.ParallelView
	for _, view := range f.views {
		if wanted[view.MemoryID] {
			copied := *view
			found = append(found, &copied)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i].CreatedAt.Before(found[j].CreatedAt)
	})
	return found, nil
}

func (f *fakeParallelViewStore) WithTx(tx *sql.Tx) store.ParallelViewStore { return f }

// fakeResonanceStore is an in-memory store.ResonanceStore.
type fakeResonanceStore struct {
	rows      map[uuid.UUID]*domain.Resonance
	createErr error

	deleteForTargetCalls int
}

func newFakeResonanceStore() *fakeResonanceStore {
	return &fakeResonanceStore{rows: make(map[uuid.UUID]*domain.Resonance)}
}

func sameTarget(r *domain.Resonance, target domain.ResonanceTarget) bool {
	if target.ParallelViewID != nil {
		return r.ParallelViewID != nil && *r.ParallelViewID == *target.ParallelViewID
	}
	return r.MemoryID != nil && target.MemoryID != nil && *r.MemoryID == *target.MemoryID
}

func (f *fakeResonanceStore) Create(ctx context.Context, resonance *domain.Resonance) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.rows {
		if existing.UserID == resonance.UserID && sameTarget(existing, resonance.Target()) {
			return store.ErrResonanceExists
		}
	}
	copied := *resonance
	f.rows[resonance.ID] = &copied
	return nil
}

func (f *fakeResonanceStore) FindForTarget(
	ctx context.Context,
	userID uuid.UUID,
	target domain.ResonanceTarget,
) (*domain.Resonance, error) {
	for _, row := range f.rows {
		if row.UserID == userID && sameTarget(row, target) {
			copied := *row
			return &copied, nil
		}
	}
	return nil, store.ErrResonanceNotFound
}

func (f *fakeResonanceStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.rows[id]; !ok {
		return store.ErrResonanceNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeResonanceStore) DeleteForTarget(
	ctx context.Context,
	userID uuid.UUID,
	target domain.ResonanceTarget,
) (int64, error) {
	f.deleteForTargetCalls++
	var deleted int64
	for id, row := range f.rows {
		if row.UserID == userID && sameTarget(row, target) {
			delete(f.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeResonanceStore) ExistsForMemory(ctx context.Context, userID, memoryID uuid.UUID) (bool, error) {
	for _, row := range f.rows {
		if row.UserID == userID && row.MemoryID != nil && *row.MemoryID == memoryID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeResonanceStore) CountByMemoryIDs(
	ctx context.Context,
	memoryIDs []uuid.UUID,
) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int)
	for _, row := range f.rows {
		if row.MemoryID == nil {
			continue
		}
		for _, id := range memoryIDs {
			if *row.MemoryID == id {
				counts[id]++
			}
		}
	}
	return counts, nil
}

func (f *fakeResonanceStore) CountByParallelViewIDs(
	ctx context.Context,
	viewIDs []uuid.UUID,
) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int)
	for _, row := range f.rows {
		if row.ParallelViewID == nil {
			continue
		}
		for _, id := range viewIDs {
			if *row.ParallelViewID == id {
				counts[id]++
			}
		}
	}
	return counts, nil
}

func (f *fakeResonanceStore) WithTx(tx *sql.Tx) store.ResonanceStore {
	return &fakeResonanceTx{store: f}
}

// errTxAborted mimics the error Postgres raises for statements issued
// on a transaction that already failed.
var errTxAborted = errors.New("current transaction is aborted, commands ignored until end of transaction block")

// fakeResonanceTx is the transaction-scoped view of the fake store. A
// failed insert leaves it aborted: every later statement errors until
// the transaction ends, as Postgres does.
type fakeResonanceTx struct {
	store   *fakeResonanceStore
	aborted bool
}

func (t *fakeResonanceTx) Create(ctx context.Context, resonance *domain.Resonance) error {
	if t.aborted {
		return errTxAborted
	}
	if err := t.store.Create(ctx, resonance); err != nil {
		t.aborted = true
		return err
	}
	return nil
}

func (t *fakeResonanceTx) FindForTarget(
	ctx context.Context,
	userID uuid.UUID,
	target domain.ResonanceTarget,
) (*domain.Resonance, error) {
	if t.aborted {
		return nil, errTxAborted
	}
	return t.store.FindForTarget(ctx, userID, target)
}

func (t *fakeResonanceTx) Delete(ctx context.Context, id uuid.UUID) error {
	if t.aborted {
		return errTxAborted
	}
	return t.store.Delete(ctx, id)
}

func (t *fakeResonanceTx) DeleteForTarget(
	ctx context.Context,
	userID uuid.UUID,
	target domain.ResonanceTarget,
) (int64, error) {
	if t.aborted {
		return 0, errTxAborted
	}
	return t.store.DeleteForTarget(ctx, userID, target)
}

func (t *fakeResonanceTx) ExistsForMemory(ctx context.Context, userID, memoryID uuid.UUID) (bool, error) {
	if t.aborted {
		return false, errTxAborted
	}
	return t.store.ExistsForMemory(ctx, userID, memoryID)
}

func (t *fakeResonanceTx) CountByMemoryIDs(
	ctx context.Context,
	memoryIDs []uuid.UUID,
) (map[uuid.UUID]int, error) {
	if t.aborted {
		return nil, errTxAborted
	}
	return t.store.CountByMemoryIDs(ctx, memoryIDs)
}

func (t *fakeResonanceTx) CountByParallelViewIDs(
	ctx context.Context,
	viewIDs []uuid.UUID,
) (map[uuid.UUID]int, error) {
	if t.aborted {
		return nil, errTxAborted
	}
	return t.store.CountByParallelViewIDs(ctx, viewIDs)
}

func (t *fakeResonanceTx) WithTx(tx *sql.Tx) store.ResonanceStore { return t }

// fakeDirectory implements store.UserDirectory and store.FamilyDirectory.
type fakeDirectory struct {
	profiles map[uuid.UUID]*domain.Profile
	families map[uuid.UUID]string

	resolveCalls int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		profiles: make(map[uuid.UUID]*domain.Profile),
		families: make(map[uuid.UUID]string),
	}
}

func (f *fakeDirectory) addProfile(familyID uuid.UUID, nickname string) *domain.Profile {
	profile := &domain.Profile{
		ID:       uuid.New(),
		FamilyID: familyID,
		Nickname: nickname,
	}
	f.profiles[profile.ID] = profile
	return profile
}

func (f *fakeDirectory) Resolve(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	f.resolveCalls++
	profile, ok := f.profiles[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return profile, nil
}

func (f *fakeDirectory) GetName(ctx context.Context, familyID uuid.UUID) (string, error) {
	name, ok := f.families[familyID]
	if !ok {
		return "", store.ErrFamilyNotFound
	}
	return name, nil
}

// fakeEmitter records emitted notifications.
type fakeEmitter struct {
	emitted []emittedNotification
	emitErr error
}

type emittedNotification struct {
	event        string
	notification *events.Notification
}

func (f *fakeEmitter) Emit(ctx context.Context, event string, notification *events.Notification) error {
	f.emitted = append(f.emitted, emittedNotification{event: event, notification: notification})
	return f.emitErr
}

// passthroughTx runs the transaction function directly with a nil
// transaction; the fakes ignore WithTx.
func passthroughTx(ctx context.Context, fn store.TxFn) error {
	return fn(ctx, nil)
}

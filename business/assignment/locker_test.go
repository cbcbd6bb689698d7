package assignment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kyle-eros/eros-scheduling-sub002/domain"
)

// memoryLedger mimics the conditional-insert semantics of the Postgres
// repository: one mutex-guarded transaction per batch, overlap checked
// against committed rows only, all-or-nothing.
type memoryLedger struct {
	mu   sync.Mutex
	rows []domain.ActiveAssignment
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (m *memoryLedger) overlaps(captionID uint64, date time.Time, cooldownDays int) bool {
	for _, r := range m.rows {
		if !r.IsActive || r.CaptionID != captionID {
			continue
		}
		gap := dateOnly(date).Sub(dateOnly(r.ScheduledDate))
		if gap < 0 {
			gap = -gap
		}
		if gap <= time.Duration(cooldownDays)*24*time.Hour {
			return true
		}
	}
	return false
}

func (m *memoryLedger) LockBatch(ctx context.Context, batch []domain.ActiveAssignment, cooldownDays int) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var conflicts []uint64
	for _, a := range batch {
		if m.overlaps(a.CaptionID, a.ScheduledDate, cooldownDays) {
			conflicts = append(conflicts, a.CaptionID)
		}
	}
	if len(conflicts) > 0 {
		return conflicts, nil
	}

	m.rows = append(m.rows, batch...)
	return nil, nil
}

func (m *memoryLedger) WindowViolations(ctx context.Context, assignmentIDs []string, cooldownDays int) ([]uint64, error) {
	return nil, nil
}

func idSet(assignmentIDs []string) map[string]bool {
	set := make(map[string]bool, len(assignmentIDs))
	for _, id := range assignmentIDs {
		set[id] = true
	}
	return set
}

func (m *memoryLedger) CountActiveByIDs(ctx context.Context, assignmentIDs []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := idSet(assignmentIDs)
	var n int64
	for _, r := range m.rows {
		if r.IsActive && set[r.AssignmentID] {
			n++
		}
	}
	return n, nil
}

func (m *memoryLedger) DeactivateByIDs(ctx context.Context, assignmentIDs []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := idSet(assignmentIDs)
	var n int64
	for i := range m.rows {
		if m.rows[i].IsActive && set[m.rows[i].AssignmentID] {
			m.rows[i].IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *memoryLedger) Deactivate(ctx context.Context, assignmentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.rows {
		if m.rows[i].AssignmentID == assignmentID {
			m.rows[i].IsActive = false
			return nil
		}
	}
	return errors.New("assignment_id not found")
}

func (m *memoryLedger) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for i := range m.rows {
		if m.rows[i].IsActive && m.rows[i].ExpiresAt.Before(now) {
			m.rows[i].IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *memoryLedger) activeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, r := range m.rows {
		if r.IsActive {
			n++
		}
	}
	return n
}

func candidatesFor(ids []uint64, date time.Time) []domain.LockCandidate {
	out := make([]domain.LockCandidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.LockCandidate{
			CaptionID:     id,
			ScheduledDate: date,
			SendHour:      20,
		})
	}
	return out
}

func TestLock_HappyPath(t *testing.T) {
	ledger := &memoryLedger{}
	locker := NewLocker(ledger, nil, nil, 7, 7)
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	got, err := locker.Lock(context.Background(), "sched-1", "creator-1", candidatesFor([]uint64{1, 2, 3}, date))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d assignments, want 3", len(got))
	}
	for _, a := range got {
		if a.AssignmentID == "" {
			t.Error("assignment missing id")
		}
		if !a.IsActive {
			t.Error("new assignment not active")
		}
		if want := date.AddDate(0, 0, 7); !a.ExpiresAt.Equal(want) {
			t.Errorf("expires_at %v, want %v", a.ExpiresAt, want)
		}
	}
	if ledger.activeCount() != 3 {
		t.Fatalf("ledger holds %d active rows, want 3", ledger.activeCount())
	}
}

func TestLock_ConflictRollsBackWholeBatch(t *testing.T) {
	ledger := &memoryLedger{}
	locker := NewLocker(ledger, nil, nil, 7, 7)
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	if _, err := locker.Lock(context.Background(), "sched-1", "creator-1", candidatesFor([]uint64{10}, date)); err != nil {
		t.Fatal(err)
	}

	// 5 candidates, one of which (10) is already reserved 3 days away
	_, err := locker.Lock(context.Background(), "sched-2", "creator-2",
		candidatesFor([]uint64{10, 11, 12, 13, 14}, date.AddDate(0, 0, 3)))

	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("want ConflictError, got %v", err)
	}
	if len(conflict.CaptionIDs) != 1 || conflict.CaptionIDs[0] != 10 {
		t.Fatalf("conflict ids %v, want [10]", conflict.CaptionIDs)
	}

	// zero rows from the losing batch may survive
	if n := ledger.activeCount(); n != 1 {
		t.Fatalf("ledger holds %d active rows, want only the first batch's 1", n)
	}
}

func TestLock_ScheduleMayLockSecondBatch(t *testing.T) {
	// verification and rollback are scoped to the batch's own rows: a
	// second conflict-free batch under the same schedule id must succeed
	// and must not touch the first batch's reservations
	ledger := &memoryLedger{}
	locker := NewLocker(ledger, nil, nil, 7, 7)
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	first, err := locker.Lock(context.Background(), "sched-1", "creator-1", candidatesFor([]uint64{1}, date))
	if err != nil {
		t.Fatal(err)
	}

	second, err := locker.Lock(context.Background(), "sched-1", "creator-1", candidatesFor([]uint64{2}, date))
	if err != nil {
		t.Fatalf("second batch under the same schedule failed: %v", err)
	}

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("batch sizes %d and %d, want 1 and 1", len(first), len(second))
	}
	if n := ledger.activeCount(); n != 2 {
		t.Fatalf("ledger holds %d active rows, want both batches' 2", n)
	}
}

type recordingInvalidator struct {
	creators []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, creatorID string) error {
	r.creators = append(r.creators, creatorID)
	return nil
}

func TestLock_InvalidatesPatternCacheOnSuccess(t *testing.T) {
	ledger := &memoryLedger{}
	invalidator := &recordingInvalidator{}
	locker := NewLocker(ledger, nil, invalidator, 7, 7)
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	if _, err := locker.Lock(context.Background(), "sched-1", "creator-1", candidatesFor([]uint64{1}, date)); err != nil {
		t.Fatal(err)
	}
	if len(invalidator.creators) != 1 || invalidator.creators[0] != "creator-1" {
		t.Fatalf("invalidated %v, want [creator-1]", invalidator.creators)
	}

	// a conflicting lock leaves history untouched, so the cache stays
	if _, err := locker.Lock(context.Background(), "sched-2", "creator-1", candidatesFor([]uint64{1}, date)); err == nil {
		t.Fatal("want conflict")
	}
	if len(invalidator.creators) != 1 {
		t.Fatalf("conflicting lock invalidated the cache: %v", invalidator.creators)
	}
}

type channelNotifier struct {
	alerts chan string
}

func (n *channelNotifier) SendAlert(event string, payload map[string]any) error {
	n.alerts <- event
	return nil
}

func TestLock_ConflictBurstRaisesOneAlert(t *testing.T) {
	ledger := &memoryLedger{}
	notifier := &channelNotifier{alerts: make(chan string, 2)}
	locker := NewLocker(ledger, notifier, nil, 7, 7)
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	if _, err := locker.Lock(context.Background(), "sched-0", "creator-1", candidatesFor([]uint64{10}, date)); err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= conflictBurstThreshold; i++ {
		_, err := locker.Lock(context.Background(), fmt.Sprintf("sched-%d", i), "creator-1",
			candidatesFor([]uint64{10}, date))
		var conflict *domain.ConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("attempt %d: want ConflictError, got %v", i, err)
		}
	}

	select {
	case event := <-notifier.alerts:
		if event != "lock_conflict_burst" {
			t.Fatalf("alert event %q, want lock_conflict_burst", event)
		}
	case <-time.After(time.Second):
		t.Fatal("no alert after a full conflict streak")
	}

	// one more conflict starts a new streak and must not alert yet
	if _, err := locker.Lock(context.Background(), "sched-again", "creator-1", candidatesFor([]uint64{10}, date)); err == nil {
		t.Fatal("want conflict")
	}
	select {
	case event := <-notifier.alerts:
		t.Fatalf("unexpected second alert %q", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLock_OutsideCooldownWindowSucceeds(t *testing.T) {
	ledger := &memoryLedger{}
	locker := NewLocker(ledger, nil, nil, 7, 7)
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	if _, err := locker.Lock(context.Background(), "sched-1", "creator-1", candidatesFor([]uint64{10}, date)); err != nil {
		t.Fatal(err)
	}

	// 8 days later is outside the 7-day window
	if _, err := locker.Lock(context.Background(), "sched-2", "creator-2",
		candidatesFor([]uint64{10}, date.AddDate(0, 0, 8))); err != nil {
		t.Fatalf("reuse outside the window should succeed, got %v", err)
	}
}

func TestLock_DuplicateCaptionInBatch(t *testing.T) {
	ledger := &memoryLedger{}
	locker := NewLocker(ledger, nil, nil, 7, 7)
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	candidates := []domain.LockCandidate{
		{CaptionID: 1, ScheduledDate: date},
		{CaptionID: 1, ScheduledDate: date.AddDate(0, 0, 1)},
	}

	_, err := locker.Lock(context.Background(), "sched-1", "creator-1", candidates)
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("want ConflictError for in-batch duplicate, got %v", err)
	}
	if ledger.activeCount() != 0 {
		t.Fatal("duplicate batch left rows behind")
	}
}

func TestLock_Validation(t *testing.T) {
	locker := NewLocker(&memoryLedger{}, nil, nil, 7, 7)
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	if _, err := locker.Lock(context.Background(), "", "creator-1", candidatesFor([]uint64{1}, date)); err == nil {
		t.Error("missing schedule_id accepted")
	}
	if _, err := locker.Lock(context.Background(), "sched-1", "", candidatesFor([]uint64{1}, date)); err == nil {
		t.Error("missing creator_id accepted")
	}
	if _, err := locker.Lock(context.Background(), "sched-1", "creator-1", nil); err == nil {
		t.Error("empty batch accepted")
	}
}

func TestLock_ConcurrentSameCaption(t *testing.T) {
	ledger := &memoryLedger{}
	locker := NewLocker(ledger, nil, nil, 7, 7)
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	const racers = 16
	var wg sync.WaitGroup
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			scheduleID := string(rune('a' + i))
			_, errs[i] = locker.Lock(context.Background(), "sched-"+scheduleID, "creator-1",
				candidatesFor([]uint64{42}, date))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		var conflict *domain.ConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("unexpected error type: %v", err)
		}
	}

	if winners != 1 {
		t.Fatalf("%d racers won the same caption, want exactly 1", winners)
	}
	if ledger.activeCount() != 1 {
		t.Fatalf("ledger holds %d active rows, want 1", ledger.activeCount())
	}
}

func TestCancel(t *testing.T) {
	ledger := &memoryLedger{}
	locker := NewLocker(ledger, nil, nil, 7, 7)
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	got, err := locker.Lock(context.Background(), "sched-1", "creator-1", candidatesFor([]uint64{1}, date))
	if err != nil {
		t.Fatal(err)
	}

	if err := locker.Cancel(context.Background(), got[0].AssignmentID); err != nil {
		t.Fatal(err)
	}
	if ledger.activeCount() != 0 {
		t.Fatal("cancelled assignment still active")
	}

	// the caption is immediately reusable
	if _, err := locker.Lock(context.Background(), "sched-2", "creator-2", candidatesFor([]uint64{1}, date)); err != nil {
		t.Fatalf("caption should be free after cancel, got %v", err)
	}

	if err := locker.Cancel(context.Background(), ""); err == nil {
		t.Error("empty assignment id accepted")
	}
}

func TestSweeper(t *testing.T) {
	ledger := &memoryLedger{}
	locker := NewLocker(ledger, nil, nil, 7, 1)

	past := time.Now().AddDate(0, 0, -10)
	if _, err := locker.Lock(context.Background(), "sched-old", "creator-1", candidatesFor([]uint64{1}, past)); err != nil {
		t.Fatal(err)
	}
	future := time.Now().AddDate(0, 0, 10)
	if _, err := locker.Lock(context.Background(), "sched-new", "creator-1", candidatesFor([]uint64{2}, future)); err != nil {
		t.Fatal(err)
	}

	sweeper := NewSweeper(ledger)
	if err := sweeper.SweepExpired(context.Background()); err != nil {
		t.Fatal(err)
	}

	if n := ledger.activeCount(); n != 1 {
		t.Fatalf("after sweep %d active rows, want 1", n)
	}
}

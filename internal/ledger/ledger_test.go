package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/adabguard/adabguard/internal/db"
)

type fakeStore struct {
	mu       sync.Mutex
	rows     map[string]db.OffenseRecord
	failGets bool
	failPuts bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]db.OffenseRecord)}
}

var errStoreDown = errors.New("store down")

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) GetOffense(_ context.Context, userID int64, date string) (*db.OffenseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGets {
		return nil, errStoreDown
	}
	for _, row := range f.rows {
		if row.UserID == userID && row.MessageDate == date {
			copied := row
			return &copied, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) GetLatestOffense(_ context.Context, userID int64) (*db.OffenseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGets {
		return nil, errStoreDown
	}
	var latest *db.OffenseRecord
	for _, row := range f.rows {
		if row.UserID != userID {
			continue
		}
		if latest == nil || row.LastEventTime > latest.LastEventTime {
			copied := row
			latest = &copied
		}
	}
	if latest == nil {
		return nil, db.ErrNotFound
	}
	return latest, nil
}

func (f *fakeStore) SumMonthOffenses(_ context.Context, userID int64, yearMonth string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGets {
		return 0, errStoreDown
	}
	sum := 0
	for _, row := range f.rows {
		if row.UserID == userID && len(row.MessageDate) >= len(yearMonth) && row.MessageDate[:len(yearMonth)] == yearMonth {
			sum += row.DailyCount
		}
	}
	return sum, nil
}

func (f *fakeStore) UpsertOffense(_ context.Context, record *db.OffenseRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPuts {
		return errStoreDown
	}
	f.rows[fmt.Sprintf("%d/%s", record.UserID, record.MessageDate)] = *record
	return nil
}

func (f *fakeStore) GetSettings(context.Context, int64) (*db.Settings, error) { return nil, db.ErrNotFound }
func (f *fakeStore) SetSettings(context.Context, *db.Settings) error          { return nil }

func (f *fakeStore) snapshot() map[string]db.OffenseRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := make(map[string]db.OffenseRecord, len(f.rows))
	for k, v := range f.rows {
		copied[k] = v
	}
	return copied
}

func TestRecordOffenseSameDayIncrements(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	led := New(store)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	for n := 1; n <= 5; n++ {
		daily, err := led.RecordOffense(ctx, 42, -100, "someuser", "Some User", now.Add(time.Duration(n)*time.Minute))
		if err != nil {
			t.Fatalf("record offense %d: %v", n, err)
		}
		if daily != n {
			t.Fatalf("offense %d: got daily %d, want %d", n, daily, n)
		}
	}

	latest, err := store.GetLatestOffense(ctx, 42)
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest.TotalCount != 5 {
		t.Fatalf("got lifetime %d, want 5", latest.TotalCount)
	}
}

func TestRecordOffenseCarriesLifetimeAcrossDayGap(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	led := New(store)
	ctx := context.Background()
	dayOne := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	for n := 0; n < 3; n++ {
		if _, err := led.RecordOffense(ctx, 7, -100, "u", "U", dayOne.Add(time.Duration(n)*time.Minute)); err != nil {
			t.Fatalf("seed offense: %v", err)
		}
	}

	// Two quiet days, then the next offense starts a fresh daily chain.
	dayFour := dayOne.AddDate(0, 0, 3)
	daily, err := led.RecordOffense(ctx, 7, -100, "u", "U", dayFour)
	if err != nil {
		t.Fatalf("record after gap: %v", err)
	}
	if daily != 1 {
		t.Fatalf("got daily %d after gap, want 1", daily)
	}

	latest, err := store.GetLatestOffense(ctx, 7)
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest.TotalCount != 4 {
		t.Fatalf("got lifetime %d, want 4", latest.TotalCount)
	}
	if latest.MessageDate != db.Day(dayFour) {
		t.Fatalf("latest row is %s, want %s", latest.MessageDate, db.Day(dayFour))
	}
}

func TestStatsAcrossMonth(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	led := New(store)
	ctx := context.Background()

	days := []time.Time{
		time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 28, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 28, 23, 0, 0, 0, time.UTC),
	}
	for _, at := range days {
		if _, err := led.RecordOffense(ctx, 9, -100, "u", "U", at); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	stats, err := led.Stats(ctx, 9, time.Date(2025, 3, 28, 23, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Monthly != 5 {
		t.Fatalf("got monthly %d, want 5", stats.Monthly)
	}
	if stats.Daily != 2 {
		t.Fatalf("got daily %d, want 2", stats.Daily)
	}
	if stats.Lifetime != 5 {
		t.Fatalf("got lifetime %d, want 5", stats.Lifetime)
	}

	// A month later only the lifetime chain remains visible.
	later, err := led.Stats(ctx, 9, time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("stats next month: %v", err)
	}
	if later.Daily != 0 || later.Monthly != 0 || later.Lifetime != 5 {
		t.Fatalf("unexpected next month stats: %+v", later)
	}
}

func TestStatsForUnknownUserIsZero(t *testing.T) {
	t.Parallel()

	led := New(newFakeStore())
	stats, err := led.Stats(context.Background(), 12345, time.Now())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats != (Stats{}) {
		t.Fatalf("got %+v, want zero stats", stats)
	}
}

func TestStorageFailureLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	led := New(store)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	if _, err := led.RecordOffense(ctx, 5, -100, "u", "U", now); err != nil {
		t.Fatalf("seed offense: %v", err)
	}
	before := store.snapshot()

	store.failPuts = true
	if _, err := led.RecordOffense(ctx, 5, -100, "u", "U", now.Add(time.Minute)); err == nil {
		t.Fatal("expected error on failed persist")
	}
	store.failPuts = false

	store.failGets = true
	if _, err := led.RecordOffense(ctx, 5, -100, "u", "U", now.Add(time.Minute)); err == nil {
		t.Fatal("expected error on failed lookup")
	}
	store.failGets = false

	after := store.snapshot()
	if len(after) != len(before) {
		t.Fatalf("row count changed: %d -> %d", len(before), len(after))
	}
	for k, row := range before {
		if after[k] != row {
			t.Fatalf("row %s changed after failed record: %+v -> %+v", k, row, after[k])
		}
	}
}

func TestRecordOffenseSerializesPerUser(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	led := New(store)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	const offenses = 64
	var wg sync.WaitGroup
	for i := 0; i < offenses; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := led.RecordOffense(ctx, 11, -100, "u", "U", now.Add(time.Duration(i)*time.Millisecond)); err != nil {
				t.Errorf("record: %v", err)
			}
		}(i)
	}
	wg.Wait()

	stats, err := led.Stats(ctx, 11, now)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Daily != offenses || stats.Lifetime != offenses {
		t.Fatalf("lost updates: got %+v, want daily=lifetime=%d", stats, offenses)
	}
}

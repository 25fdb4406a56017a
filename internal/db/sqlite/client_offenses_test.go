package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/adabguard/adabguard/internal/db"
)

func TestOffenseUpsertAndLookups(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, err := NewSQLiteClient(ctx, t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if _, err := client.GetOffense(ctx, 42, "2025-03-10"); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty table, got %v", err)
	}
	if _, err := client.GetLatestOffense(ctx, 42); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for latest on empty table, got %v", err)
	}

	first := &db.OffenseRecord{
		UserID:        42,
		ChatID:        -100500,
		UserName:      "someuser",
		FirstName:     "Some",
		MessageDate:   "2025-03-10",
		LastEventTime: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC).Format(time.RFC3339Nano),
		DailyCount:    1,
		TotalCount:    1,
	}
	if err := client.UpsertOffense(ctx, first); err != nil {
		t.Fatalf("insert offense: %v", err)
	}

	first.DailyCount = 2
	first.TotalCount = 2
	first.UserName = "renamed"
	first.LastEventTime = time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC).Format(time.RFC3339Nano)
	if err := client.UpsertOffense(ctx, first); err != nil {
		t.Fatalf("update offense: %v", err)
	}

	got, err := client.GetOffense(ctx, 42, "2025-03-10")
	if err != nil {
		t.Fatalf("get offense: %v", err)
	}
	if got.DailyCount != 2 || got.TotalCount != 2 || got.UserName != "renamed" {
		t.Fatalf("upsert did not update in place: %+v", got)
	}
}

func TestLatestOffenseAndMonthSum(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, err := NewSQLiteClient(ctx, t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	rows := []db.OffenseRecord{
		{UserID: 7, ChatID: -1, MessageDate: "2025-02-27", LastEventTime: "2025-02-27T10:00:00Z", DailyCount: 3, TotalCount: 3},
		{UserID: 7, ChatID: -1, MessageDate: "2025-03-01", LastEventTime: "2025-03-01T10:00:00Z", DailyCount: 2, TotalCount: 5},
		{UserID: 7, ChatID: -1, MessageDate: "2025-03-14", LastEventTime: "2025-03-14T10:00:00Z", DailyCount: 1, TotalCount: 6},
		{UserID: 8, ChatID: -1, MessageDate: "2025-03-14", LastEventTime: "2025-03-14T11:00:00Z", DailyCount: 9, TotalCount: 9},
	}
	for i := range rows {
		if err := client.UpsertOffense(ctx, &rows[i]); err != nil {
			t.Fatalf("insert row %d: %v", i, err)
		}
	}

	latest, err := client.GetLatestOffense(ctx, 7)
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest.MessageDate != "2025-03-14" || latest.TotalCount != 6 {
		t.Fatalf("unexpected latest row: %+v", latest)
	}

	march, err := client.SumMonthOffenses(ctx, 7, "2025-03")
	if err != nil {
		t.Fatalf("sum month: %v", err)
	}
	if march != 3 {
		t.Fatalf("got march sum %d, want 3", march)
	}

	empty, err := client.SumMonthOffenses(ctx, 7, "2025-04")
	if err != nil {
		t.Fatalf("sum empty month: %v", err)
	}
	if empty != 0 {
		t.Fatalf("got empty month sum %d, want 0", empty)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, err := NewSQLiteClient(ctx, t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if _, err := client.GetSettings(ctx, -100500); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown chat, got %v", err)
	}

	settings := db.DefaultSettings(-100500, "ar")
	if err := client.SetSettings(ctx, settings); err != nil {
		t.Fatalf("set settings: %v", err)
	}
	settings.Language = "en"
	if err := client.SetSettings(ctx, settings); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	got, err := client.GetSettings(ctx, -100500)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if got.Language != "en" || !got.Enabled {
		t.Fatalf("unexpected settings: %+v", got)
	}
}

package history

import (
	"context"
	"embed"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad/warnbridge/internal/dispatch"
)

//go:embed testdata/migrations/*.sql
var testMigrationsFS embed.FS

func openMigratedTestDB(t *testing.T) *DB {
	t.Helper()

	origFS, origDir := MigrationsFS, MigrationsDir
	MigrationsFS, MigrationsDir = testMigrationsFS, "testdata/migrations"
	t.Cleanup(func() { MigrationsFS, MigrationsDir = origFS, origDir })

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "history.db")

	db, err := Open(context.Background(), Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestMigrate_CreatesDeliveryRecordsTable(t *testing.T) {
	db := openMigratedTestDB(t)

	var name string
	err := db.QueryRowContext(context.Background(),
		"SELECT name FROM sqlite_master WHERE type='table' AND name='delivery_records'").Scan(&name)
	if err != nil {
		t.Fatalf("delivery_records table not found: %v", err)
	}
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := openMigratedTestDB(t)

	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("second Migrate() call error = %v, want nil", err)
	}
}

func TestStore_RecordThenRecent(t *testing.T) {
	db := openMigratedTestDB(t)
	store := NewStore(db, nil)

	now := time.Now()
	store.Record(dispatch.DeliveryRecord{
		ID: "rec-1", JobID: "job-1", Timestamp: now,
		RouteName: "r1", Service: "log", Target: "info", Topic: "x/y",
		Outcome: dispatch.OutcomeDelivered, AttemptCount: 0,
	})
	store.Record(dispatch.DeliveryRecord{
		ID: "rec-2", JobID: "job-2", Timestamp: now.Add(time.Second),
		RouteName: "r1", Service: "log", Target: "info", Topic: "x/y",
		Outcome: dispatch.OutcomeFailedOver, AttemptCount: 3,
	})

	recent, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recent))
	}
	if recent[0].ID != "rec-2" {
		t.Errorf("recent[0].ID = %q, want %q (most recent first)", recent[0].ID, "rec-2")
	}
	if recent[1].Outcome != dispatch.OutcomeDelivered {
		t.Errorf("recent[1].Outcome = %q, want %q", recent[1].Outcome, dispatch.OutcomeDelivered)
	}
}

func TestStore_RecentDefaultsLimitWhenNonPositive(t *testing.T) {
	db := openMigratedTestDB(t)
	store := NewStore(db, nil)

	store.Record(dispatch.DeliveryRecord{ID: "rec-1", JobID: "job-1", Timestamp: time.Now(), Outcome: dispatch.OutcomeDelivered})

	recent, err := store.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("len(recent) = %d, want 1", len(recent))
	}
}

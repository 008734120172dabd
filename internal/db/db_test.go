package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lucasnoah/axpipe/internal/config"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := d.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestMigrate(t *testing.T) {
	d := testDB(t)

	for _, table := range []string{"schema_version", "engine_events"} {
		var name string
		err := d.conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}

	// Migrating twice is a no-op.
	if err := d.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestLogAndListEvents(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	events := []Event{
		{Kind: KindStageStarted, StageID: "01-brainstorm", Timestamp: base},
		{Kind: KindCheckpointCreated, StageID: "01-brainstorm", Detail: "cp-01-x", Timestamp: base.Add(time.Minute)},
		{Kind: KindStageCompleted, StageID: "01-brainstorm", Timestamp: base.Add(2 * time.Minute)},
		{Kind: KindContextUpdated, Detail: "45%", Timestamp: base.Add(3 * time.Minute)},
	}
	for _, e := range events {
		if err := d.LogEvent(ctx, e); err != nil {
			t.Fatalf("LogEvent: %v", err)
		}
	}

	got, err := d.Events(ctx, Filter{})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d events, want 4", len(got))
	}
	if got[0].Kind != KindContextUpdated {
		t.Errorf("newest event = %q, want %q", got[0].Kind, KindContextUpdated)
	}
	if got[0].StageID != "" {
		t.Errorf("StageID = %q, want empty", got[0].StageID)
	}
	if !got[3].Timestamp.Equal(base) {
		t.Errorf("oldest timestamp = %v, want %v", got[3].Timestamp, base)
	}

	got, err = d.Events(ctx, Filter{Kind: KindCheckpointCreated})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Detail != "cp-01-x" {
		t.Errorf("kind filter = %+v", got)
	}

	got, err = d.Events(ctx, Filter{StageID: "01-brainstorm", Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Kind != KindStageCompleted {
		t.Errorf("stage filter = %+v", got)
	}
}

func TestLogEventDefaultsTimestamp(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	before := time.Now().Add(-time.Second)

	if err := d.LogEvent(ctx, Event{Kind: KindTaskCompleted, Detail: "write tests"}); err != nil {
		t.Fatal(err)
	}
	got, err := d.Events(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Timestamp.Before(before) {
		t.Errorf("events = %+v", got)
	}
}

func TestReset(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	if err := d.LogEvent(ctx, Event{Kind: KindAICall}); err != nil {
		t.Fatal(err)
	}
	if err := d.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	got, err := d.Events(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d events after reset, want 0", len(got))
	}
}

func TestOpenJournalSQLite(t *testing.T) {
	layout := config.Defaults().Layout(t.TempDir())
	j, err := OpenJournal(context.Background(), config.JournalConfig{Driver: "sqlite"}, layout)
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	defer j.Close()

	if _, err := os.Stat(layout.JournalPath()); err != nil {
		t.Errorf("journal file not created: %v", err)
	}
	if err := j.LogEvent(context.Background(), Event{Kind: KindStageStarted, StageID: "01"}); err != nil {
		t.Fatal(err)
	}
}

func TestOpenJournalUnknownDriver(t *testing.T) {
	layout := config.Defaults().Layout(t.TempDir())
	if _, err := OpenJournal(context.Background(), config.JournalConfig{Driver: "oracle"}, layout); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := OpenJournal(context.Background(), config.JournalConfig{Driver: "postgres"}, layout); err == nil {
		t.Fatal("expected error for postgres without dsn")
	}
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	if err := Discard.LogEvent(ctx, Event{Kind: KindAICall}); err != nil {
		t.Fatal(err)
	}
	got, err := Discard.Events(ctx, Filter{})
	if err != nil || len(got) != 0 {
		t.Errorf("Discard.Events = %v, %v", got, err)
	}
}

func TestPostgresJournal(t *testing.T) {
	dsn := os.Getenv("AX_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("AX_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	j, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer j.Close()
	if err := j.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	stage := "pg-" + filepath.Base(t.TempDir())
	if err := j.LogEvent(ctx, Event{Kind: KindStageStarted, StageID: stage}); err != nil {
		t.Fatal(err)
	}
	if err := j.LogEvent(ctx, Event{Kind: KindStageCompleted, StageID: stage, Detail: "ok"}); err != nil {
		t.Fatal(err)
	}
	got, err := j.Events(ctx, Filter{StageID: stage})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Kind != KindStageCompleted {
		t.Errorf("events = %+v", got)
	}
}

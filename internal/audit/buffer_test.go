package audit

import (
	"context"
	"testing"

	"shopdesk-backend/internal/config"
	"shopdesk-backend/internal/store"
)

func testDB(t *testing.T) (*store.Store, context.Context) {
	t.Helper()
	ctx := context.Background()
	s, err := store.New(ctx, config.DatabaseConfig{
		Driver: "sqlite",
		Path:   t.TempDir(),
		Name:   "test",
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return s, ctx
}

func countEvents(t *testing.T, s *store.Store, ctx context.Context) int64 {
	t.Helper()
	row, err := store.QueryRow(ctx, s.DB, "SELECT COUNT(*) AS n FROM _audit_events")
	if err != nil {
		t.Fatalf("count events: %v", err)
	}
	n, _ := row["n"].(int64)
	return n
}

func TestLogger_FlushBatch(t *testing.T) {
	s, ctx := testDB(t)

	// a long interval so only the explicit Flush writes
	l := NewLogger(s, true, 100, 60_000)
	defer l.Close()

	l.Enqueue(Event{Action: "record.create", Entity: "vehicles", RecordID: "r1", UserID: "u1"})
	l.Enqueue(Event{Action: "values.set", Entity: "vehicles", RecordID: "r1", UserID: "u1", Detail: "partial"})
	l.Flush()

	if n := countEvents(t, s, ctx); n != 2 {
		t.Fatalf("expected 2 events after flush, got %d", n)
	}

	// flushing an empty buffer is a no-op
	l.Flush()
	if n := countEvents(t, s, ctx); n != 2 {
		t.Fatalf("expected 2 events after empty flush, got %d", n)
	}
}

func TestLogger_DisabledDropsEvents(t *testing.T) {
	s, ctx := testDB(t)

	l := NewLogger(s, false, 0, 0)
	l.Enqueue(Event{Action: "record.create", Entity: "vehicles"})
	l.Flush()
	l.Close()

	if n := countEvents(t, s, ctx); n != 0 {
		t.Fatalf("disabled logger should drop events, got %d", n)
	}

	// a nil logger is safe too
	var nilLogger *Logger
	nilLogger.Enqueue(Event{Action: "noop"})
	nilLogger.Close()
}

func TestCleanupOldEvents(t *testing.T) {
	s, ctx := testDB(t)

	l := NewLogger(s, true, 100, 60_000)
	l.Enqueue(Event{Action: "record.create", Entity: "vehicles", RecordID: "r1"})
	l.Flush()
	l.Close()

	// nothing is fresh enough to delete
	CleanupOldEvents(ctx, s, 7)
	if n := countEvents(t, s, ctx); n != 1 {
		t.Fatalf("fresh event should survive cleanup, got %d", n)
	}
}

// Package audit is a best-effort write trail for schema and value
// mutations. Events are buffered in memory and flushed in batches; a failed
// flush is logged and dropped, never surfaced to the request that caused it.
package audit

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"shopdesk-backend/internal/store"
)

// Event is one audit entry.
type Event struct {
	Action   string
	Entity   string
	RecordID string
	UserID   string
	Detail   string
}

// Logger collects events in memory and periodically flushes them to the
// _audit_events table in a batch insert.
type Logger struct {
	mu      sync.Mutex
	events  []Event
	store   *store.Store
	maxSize int
	ticker  *time.Ticker
	done    chan struct{}
	enabled bool
}

// NewLogger creates a logger that flushes on a timer or when full.
// A disabled logger accepts and drops events.
func NewLogger(s *store.Store, enabled bool, maxSize int, flushIntervalMs int) *Logger {
	l := &Logger{
		store:   s,
		maxSize: maxSize,
		done:    make(chan struct{}),
		enabled: enabled,
	}
	if !enabled {
		return l
	}
	l.ticker = time.NewTicker(time.Duration(flushIntervalMs) * time.Millisecond)
	go l.run()
	return l
}

func (l *Logger) run() {
	for {
		select {
		case <-l.done:
			return
		case <-l.ticker.C:
			l.Flush()
		}
	}
}

// Enqueue adds an event to the buffer. If the buffer is full, a flush is
// triggered asynchronously.
func (l *Logger) Enqueue(event Event) {
	if l == nil || !l.enabled {
		return
	}
	l.mu.Lock()
	l.events = append(l.events, event)
	shouldFlush := len(l.events) >= l.maxSize
	l.mu.Unlock()
	if shouldFlush {
		go l.Flush()
	}
}

// Flush writes all buffered events to the database in a single batch insert.
// Failures are logged and the batch is dropped.
func (l *Logger) Flush() {
	l.mu.Lock()
	if len(l.events) == 0 {
		l.mu.Unlock()
		return
	}
	batch := l.events
	l.events = nil
	l.mu.Unlock()

	ctx := context.Background()
	pb := l.store.Dialect.NewParamBuilder()
	rows := make([]string, len(batch))
	for i, ev := range batch {
		rows[i] = fmt.Sprintf("(%s, %s, %s, %s, %s, %s)",
			pb.Add(uuid.NewString()), pb.Add(ev.Action), pb.Add(ev.Entity),
			pb.Add(ev.RecordID), pb.Add(ev.UserID), pb.Add(ev.Detail))
	}
	sqlStr := "INSERT INTO _audit_events (id, action, entity, record_id, user_id, detail) VALUES " +
		strings.Join(rows, ", ")
	if _, err := l.store.DB.ExecContext(ctx, sqlStr, pb.Params()...); err != nil {
		log.Printf("ERROR: audit flush (%d events dropped): %v", len(batch), err)
	}
}

// Close stops the flush loop and drains the buffer.
func (l *Logger) Close() {
	if l == nil || !l.enabled {
		return
	}
	l.ticker.Stop()
	close(l.done)
	l.Flush()
}

package audit

import (
	"context"
	"fmt"
	"log"
	"time"

	"shopdesk-backend/internal/store"
)

// CleanupOldEvents deletes audit events older than retentionDays.
func CleanupOldEvents(ctx context.Context, s *store.Store, retentionDays int) {
	pb := s.Dialect.NewParamBuilder()
	whereExpr := s.Dialect.IntervalDeleteExpr("created_at", pb, fmt.Sprintf("%d", retentionDays))
	sqlStr := fmt.Sprintf("DELETE FROM _audit_events WHERE %s", whereExpr)
	result, err := s.DB.ExecContext(ctx, sqlStr, pb.Params()...)
	if err != nil {
		log.Printf("ERROR: audit cleanup: %v", err)
		return
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Printf("ERROR: audit cleanup rows affected: %v", err)
		return
	}
	if rowsAffected > 0 {
		log.Printf("Audit cleanup: deleted %d old events", rowsAffected)
	}
}

// StartCleanup runs CleanupOldEvents once at startup and then daily.
// The returned stop function halts the loop.
func StartCleanup(s *store.Store, retentionDays int) (stop func()) {
	done := make(chan struct{})
	go func() {
		CleanupOldEvents(context.Background(), s, retentionDays)
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				CleanupOldEvents(context.Background(), s, retentionDays)
			}
		}
	}()
	return func() { close(done) }
}

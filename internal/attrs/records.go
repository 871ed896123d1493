package attrs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shopdesk-backend/internal/store"
)

// Record is an instance of a dynamically defined entity. It is purely an
// identity anchor: all typed data lives in values that reference it.
type Record struct {
	ID        string    `json:"id"`
	EntityID  string    `json:"entity_id"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRecord creates a new record for the given entity type and returns its id.
func (s *Store) CreateRecord(ctx context.Context, entityType, createdBy string) (string, error) {
	entity, err := s.registry.GetEntityBySlug(ctx, entityType)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	pb := s.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		"INSERT INTO dyn_records (id, entity_id, created_by) VALUES (%s, %s, %s)",
		pb.Add(id), pb.Add(entity.ID), pb.Add(createdBy),
	)
	if _, err := store.Exec(ctx, s.store.DB, sqlStr, pb.Params()...); err != nil {
		return "", fmt.Errorf("create record for %s: %w", entityType, err)
	}
	return id, nil
}

// GetRecord fetches a record, verifying it belongs to the given entity type.
func (s *Store) GetRecord(ctx context.Context, entityType, recordID string) (*Record, error) {
	entity, err := s.registry.GetEntityBySlug(ctx, entityType)
	if err != nil {
		return nil, err
	}
	pb := s.store.Dialect.NewParamBuilder()
	row, err := store.QueryRow(ctx, s.store.DB,
		fmt.Sprintf("SELECT * FROM dyn_records WHERE id = %s AND entity_id = %s",
			pb.Add(recordID), pb.Add(entity.ID)), pb.Params()...)
	if err != nil {
		return nil, err
	}
	rec := scanRecord(row)
	return &rec, nil
}

// DeleteRecord removes a record and all its stored values.
func (s *Store) DeleteRecord(ctx context.Context, entityType, recordID string) error {
	if err := s.DeleteValues(ctx, entityType, recordID); err != nil {
		return err
	}
	entity, err := s.registry.GetEntityBySlug(ctx, entityType)
	if err != nil {
		return err
	}
	pb := s.store.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, s.store.DB,
		fmt.Sprintf("DELETE FROM dyn_records WHERE id = %s AND entity_id = %s",
			pb.Add(recordID), pb.Add(entity.ID)), pb.Params()...)
	if err != nil {
		return fmt.Errorf("delete record %s/%s: %w", entityType, recordID, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListRecords returns one page of records for an entity type, newest first,
// along with the total count.
func (s *Store) ListRecords(ctx context.Context, entityType string, page, perPage int) ([]Record, int, error) {
	entity, err := s.registry.GetEntityBySlug(ctx, entityType)
	if err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	pb := s.store.Dialect.NewParamBuilder()
	countRow, err := store.QueryRow(ctx, s.store.DB,
		fmt.Sprintf("SELECT COUNT(*) AS count FROM dyn_records WHERE entity_id = %s", pb.Add(entity.ID)),
		pb.Params()...)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, 0, fmt.Errorf("count records for %s: %w", entityType, err)
	}
	total := 0
	if countRow != nil {
		total = asInt(countRow["count"])
	}

	pb = s.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		"SELECT * FROM dyn_records WHERE entity_id = %s ORDER BY created_at DESC, id LIMIT %s OFFSET %s",
		pb.Add(entity.ID), pb.Add(perPage), pb.Add((page-1)*perPage),
	)
	rows, err := store.QueryRows(ctx, s.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		return nil, 0, fmt.Errorf("list records for %s: %w", entityType, err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, scanRecord(row))
	}
	return records, total, nil
}

func scanRecord(row map[string]any) Record {
	return Record{
		ID:        asString(row["id"]),
		EntityID:  asString(row["entity_id"]),
		CreatedBy: asString(row["created_by"]),
		CreatedAt: asTime(row["created_at"]),
		UpdatedAt: asTime(row["updated_at"]),
	}
}

func asInt(v any) int {
	switch val := v.(type) {
	case int64:
		return int(val)
	case int:
		return val
	case float64:
		return int(val)
	default:
		return 0
	}
}

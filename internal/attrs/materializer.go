package attrs

import (
	"context"
	"fmt"
)

// MaterializedRecord merges fixed record metadata with the attribute map so
// API consumers get one object per record.
type MaterializedRecord struct {
	Record
	Attributes map[string]Attribute `json:"attributes"`
}

// Materialize produces one object per record id, in the given order.
// Each call is a fresh pass over the store; nothing is cached between calls.
func (s *Store) Materialize(ctx context.Context, entityType string, recordIDs []string) ([]MaterializedRecord, error) {
	entity, err := s.registry.GetEntityBySlug(ctx, entityType)
	if err != nil {
		return nil, err
	}

	out := make([]MaterializedRecord, 0, len(recordIDs))
	for _, id := range recordIDs {
		rec, err := s.GetRecord(ctx, entityType, id)
		if err != nil {
			return nil, fmt.Errorf("materialize %s/%s: %w", entityType, id, err)
		}
		values, err := s.valuesForEntity(ctx, entity, id)
		if err != nil {
			return nil, err
		}
		out = append(out, MaterializedRecord{Record: *rec, Attributes: values})
	}
	return out, nil
}

// MaterializeList returns one page of materialized records plus the total
// record count for the entity type.
func (s *Store) MaterializeList(ctx context.Context, entityType string, page, perPage int) ([]MaterializedRecord, int, error) {
	entity, err := s.registry.GetEntityBySlug(ctx, entityType)
	if err != nil {
		return nil, 0, err
	}
	records, total, err := s.ListRecords(ctx, entityType, page, perPage)
	if err != nil {
		return nil, 0, err
	}

	out := make([]MaterializedRecord, 0, len(records))
	for _, rec := range records {
		values, err := s.valuesForEntity(ctx, entity, rec.ID)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, MaterializedRecord{Record: rec, Attributes: values})
	}
	return out, total, nil
}

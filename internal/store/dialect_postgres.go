package store

import (
	"fmt"
	"strings"
	"time"
)

// PostgresDialect implements Dialect for PostgreSQL via pgx/stdlib.
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string       { return "postgres" }
func (d *PostgresDialect) DriverName() string { return "pgx" }

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *PostgresDialect) NewParamBuilder() ParamBuilder {
	return &pgParamBuilder{}
}

func (d *PostgresDialect) NowExpr() string { return "NOW()" }

func (d *PostgresDialect) TimeParam(t time.Time) any { return t }
func (d *PostgresDialect) BoolParam(b bool) any      { return b }

func (d *PostgresDialect) IntervalDeleteExpr(createdAtCol string, pb ParamBuilder, days string) string {
	ph := pb.Add(days)
	return fmt.Sprintf("%s < now() - (%s || ' days')::interval", createdAtCol, ph)
}

func (d *PostgresDialect) SystemTablesSQL() string {
	return pgSystemTablesSQL
}

func (d *PostgresDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	// With pgx/stdlib, the underlying error message includes the PG code
	errStr := err.Error()
	if strings.Contains(errStr, "23505") || strings.Contains(errStr, "unique constraint") || strings.Contains(errStr, "duplicate key") {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	return err
}

// --- PostgreSQL DDL ---

const pgSystemTablesSQL = `
CREATE TABLE IF NOT EXISTS dyn_entities (
    id            UUID PRIMARY KEY,
    slug          TEXT NOT NULL UNIQUE,
    label         TEXT NOT NULL,
    icon          TEXT NOT NULL DEFAULT '',
    description   TEXT NOT NULL DEFAULT '',
    display_order INT NOT NULL DEFAULT 0,
    active        BOOLEAN NOT NULL DEFAULT true,
    created_at    TIMESTAMPTZ DEFAULT NOW(),
    updated_at    TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS dyn_fields (
    id            UUID PRIMARY KEY,
    entity_id     UUID NOT NULL REFERENCES dyn_entities(id) ON DELETE CASCADE,
    name          TEXT NOT NULL,
    label         TEXT NOT NULL,
    type          TEXT NOT NULL,
    options       JSONB NOT NULL DEFAULT '{}',
    rule          TEXT NOT NULL DEFAULT '',
    required      BOOLEAN NOT NULL DEFAULT false,
    is_unique     BOOLEAN NOT NULL DEFAULT false,
    show_in_list  BOOLEAN NOT NULL DEFAULT true,
    show_in_form  BOOLEAN NOT NULL DEFAULT true,
    display_order INT NOT NULL DEFAULT 0,
    default_value TEXT NOT NULL DEFAULT '',
    active        BOOLEAN NOT NULL DEFAULT true,
    created_at    TIMESTAMPTZ DEFAULT NOW(),
    updated_at    TIMESTAMPTZ DEFAULT NOW(),
    UNIQUE(entity_id, name)
);

CREATE TABLE IF NOT EXISTS dyn_records (
    id         UUID PRIMARY KEY,
    entity_id  UUID NOT NULL REFERENCES dyn_entities(id) ON DELETE CASCADE,
    created_by TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_dyn_records_entity ON dyn_records(entity_id);

CREATE TABLE IF NOT EXISTS dyn_values (
    id           UUID PRIMARY KEY,
    record_id    UUID NOT NULL REFERENCES dyn_records(id) ON DELETE CASCADE,
    field_id     UUID NOT NULL REFERENCES dyn_fields(id) ON DELETE CASCADE,
    value_text   TEXT,
    value_number NUMERIC,
    value_date   TIMESTAMPTZ,
    value_bool   BOOLEAN,
    updated_at   TIMESTAMPTZ DEFAULT NOW(),
    UNIQUE(record_id, field_id)
);
CREATE INDEX IF NOT EXISTS idx_dyn_values_record ON dyn_values(record_id);

CREATE TABLE IF NOT EXISTS custom_fields (
    id            UUID PRIMARY KEY,
    entity_kind   TEXT NOT NULL,
    name          TEXT NOT NULL,
    label         TEXT NOT NULL,
    type          TEXT NOT NULL DEFAULT 'text',
    options       JSONB NOT NULL DEFAULT '{}',
    required      BOOLEAN NOT NULL DEFAULT false,
    active        BOOLEAN NOT NULL DEFAULT true,
    display_order INT NOT NULL DEFAULT 0,
    show_in_table BOOLEAN NOT NULL DEFAULT true,
    show_in_form  BOOLEAN NOT NULL DEFAULT true,
    created_at    TIMESTAMPTZ DEFAULT NOW(),
    UNIQUE(entity_kind, name)
);

CREATE TABLE IF NOT EXISTS custom_field_values (
    id         UUID PRIMARY KEY,
    field_id   UUID NOT NULL REFERENCES custom_fields(id) ON DELETE CASCADE,
    entity_id  TEXT NOT NULL,
    value      TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMPTZ DEFAULT NOW(),
    UNIQUE(field_id, entity_id)
);

CREATE TABLE IF NOT EXISTS _users (
    id            UUID PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    roles         TEXT NOT NULL DEFAULT '[]',
    active        BOOLEAN DEFAULT true,
    created_at    TIMESTAMPTZ DEFAULT NOW(),
    updated_at    TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS _refresh_tokens (
    id         UUID PRIMARY KEY,
    user_id    UUID NOT NULL REFERENCES _users(id) ON DELETE CASCADE,
    token      TEXT NOT NULL UNIQUE,
    expires_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_refresh_tokens_token ON _refresh_tokens(token);
CREATE INDEX IF NOT EXISTS idx_refresh_tokens_expires ON _refresh_tokens(expires_at);

CREATE TABLE IF NOT EXISTS _audit_events (
    id         UUID PRIMARY KEY,
    action     TEXT NOT NULL,
    entity     TEXT NOT NULL DEFAULT '',
    record_id  TEXT NOT NULL DEFAULT '',
    user_id    TEXT NOT NULL DEFAULT '',
    detail     TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_audit_events_created ON _audit_events(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_audit_events_entity ON _audit_events(entity, created_at DESC);
`

// Compile-time check
var _ Dialect = (*PostgresDialect)(nil)

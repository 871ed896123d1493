package store

import (
	"fmt"
	"strings"
	"time"
)

// SQLiteDialect implements Dialect for SQLite via modernc.org/sqlite.
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string       { return "sqlite" }
func (d *SQLiteDialect) DriverName() string { return "sqlite" }

func (d *SQLiteDialect) Placeholder(index int) string {
	return fmt.Sprintf("?%d", index)
}

func (d *SQLiteDialect) NewParamBuilder() ParamBuilder {
	return &sqliteParamBuilder{}
}

func (d *SQLiteDialect) NowExpr() string { return "datetime('now')" }

func (d *SQLiteDialect) TimeParam(t time.Time) any {
	return t.UTC().Format(time.RFC3339Nano)
}

func (d *SQLiteDialect) BoolParam(b bool) any {
	if b {
		return 1
	}
	return 0
}

func (d *SQLiteDialect) IntervalDeleteExpr(createdAtCol string, pb ParamBuilder, days string) string {
	ph := pb.Add(days)
	return fmt.Sprintf("%s < datetime('now', '-' || %s || ' days')", createdAtCol, ph)
}

func (d *SQLiteDialect) SystemTablesSQL() string {
	return sqliteSystemTablesSQL
}

func (d *SQLiteDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	errStr := err.Error()
	if strings.Contains(errStr, "UNIQUE constraint failed") || strings.Contains(errStr, "constraint failed: UNIQUE") {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	return err
}

// --- SQLite DDL ---

const sqliteSystemTablesSQL = `
CREATE TABLE IF NOT EXISTS dyn_entities (
    id            TEXT PRIMARY KEY,
    slug          TEXT NOT NULL UNIQUE,
    label         TEXT NOT NULL,
    icon          TEXT NOT NULL DEFAULT '',
    description   TEXT NOT NULL DEFAULT '',
    display_order INTEGER NOT NULL DEFAULT 0,
    active        INTEGER NOT NULL DEFAULT 1,
    created_at    TEXT DEFAULT (datetime('now')),
    updated_at    TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dyn_fields (
    id            TEXT PRIMARY KEY,
    entity_id     TEXT NOT NULL REFERENCES dyn_entities(id) ON DELETE CASCADE,
    name          TEXT NOT NULL,
    label         TEXT NOT NULL,
    type          TEXT NOT NULL,
    options       TEXT NOT NULL DEFAULT '{}',
    rule          TEXT NOT NULL DEFAULT '',
    required      INTEGER NOT NULL DEFAULT 0,
    is_unique     INTEGER NOT NULL DEFAULT 0,
    show_in_list  INTEGER NOT NULL DEFAULT 1,
    show_in_form  INTEGER NOT NULL DEFAULT 1,
    display_order INTEGER NOT NULL DEFAULT 0,
    default_value TEXT NOT NULL DEFAULT '',
    active        INTEGER NOT NULL DEFAULT 1,
    created_at    TEXT DEFAULT (datetime('now')),
    updated_at    TEXT DEFAULT (datetime('now')),
    UNIQUE(entity_id, name)
);

CREATE TABLE IF NOT EXISTS dyn_records (
    id         TEXT PRIMARY KEY,
    entity_id  TEXT NOT NULL REFERENCES dyn_entities(id) ON DELETE CASCADE,
    created_by TEXT NOT NULL DEFAULT '',
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_dyn_records_entity ON dyn_records(entity_id);

CREATE TABLE IF NOT EXISTS dyn_values (
    id           TEXT PRIMARY KEY,
    record_id    TEXT NOT NULL REFERENCES dyn_records(id) ON DELETE CASCADE,
    field_id     TEXT NOT NULL REFERENCES dyn_fields(id) ON DELETE CASCADE,
    value_text   TEXT,
    value_number REAL,
    value_date   TEXT,
    value_bool   INTEGER,
    updated_at   TEXT DEFAULT (datetime('now')),
    UNIQUE(record_id, field_id)
);
CREATE INDEX IF NOT EXISTS idx_dyn_values_record ON dyn_values(record_id);

CREATE TABLE IF NOT EXISTS custom_fields (
    id            TEXT PRIMARY KEY,
    entity_kind   TEXT NOT NULL,
    name          TEXT NOT NULL,
    label         TEXT NOT NULL,
    type          TEXT NOT NULL DEFAULT 'text',
    options       TEXT NOT NULL DEFAULT '{}',
    required      INTEGER NOT NULL DEFAULT 0,
    active        INTEGER NOT NULL DEFAULT 1,
    display_order INTEGER NOT NULL DEFAULT 0,
    show_in_table INTEGER NOT NULL DEFAULT 1,
    show_in_form  INTEGER NOT NULL DEFAULT 1,
    created_at    TEXT DEFAULT (datetime('now')),
    UNIQUE(entity_kind, name)
);

CREATE TABLE IF NOT EXISTS custom_field_values (
    id         TEXT PRIMARY KEY,
    field_id   TEXT NOT NULL REFERENCES custom_fields(id) ON DELETE CASCADE,
    entity_id  TEXT NOT NULL,
    value      TEXT NOT NULL DEFAULT '',
    updated_at TEXT DEFAULT (datetime('now')),
    UNIQUE(field_id, entity_id)
);

CREATE TABLE IF NOT EXISTS _users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    roles         TEXT NOT NULL DEFAULT '[]',
    active        INTEGER DEFAULT 1,
    created_at    TEXT DEFAULT (datetime('now')),
    updated_at    TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS _refresh_tokens (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL REFERENCES _users(id) ON DELETE CASCADE,
    token      TEXT NOT NULL UNIQUE,
    expires_at TEXT NOT NULL,
    created_at TEXT DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_refresh_tokens_token ON _refresh_tokens(token);
CREATE INDEX IF NOT EXISTS idx_refresh_tokens_expires ON _refresh_tokens(expires_at);

CREATE TABLE IF NOT EXISTS _audit_events (
    id         TEXT PRIMARY KEY,
    action     TEXT NOT NULL,
    entity     TEXT NOT NULL DEFAULT '',
    record_id  TEXT NOT NULL DEFAULT '',
    user_id    TEXT NOT NULL DEFAULT '',
    detail     TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_audit_events_created ON _audit_events(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_audit_events_entity ON _audit_events(entity, created_at DESC);
`

// Compile-time check
var _ Dialect = (*SQLiteDialect)(nil)

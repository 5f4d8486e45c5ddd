package storage

// SchemaVersion is the current event log schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the event log schema.
const Schema = `
-- Audit events, append-only
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    entity TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    label TEXT NOT NULL,
    policy TEXT NOT NULL,
    op TEXT NOT NULL,
    seq INTEGER NOT NULL,

    snapshot TEXT,
    diff TEXT,
    meta TEXT,

    created_at TIMESTAMP NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Per-entity streams are read in (entity, entity_id, seq) order
CREATE INDEX IF NOT EXISTS idx_events_entity_seq ON events(entity, entity_id, seq);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
CREATE INDEX IF NOT EXISTS idx_events_label ON events(label);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

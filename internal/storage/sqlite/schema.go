// ABOUTME: SQLite database schema for the passage index
// ABOUTME: One row per embedded chunk, partitioned by source document title
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
CREATE TABLE IF NOT EXISTS passages (
    id TEXT PRIMARY KEY,
    source_id TEXT NOT NULL,
    partition TEXT NOT NULL,
    content TEXT NOT NULL,
    vector BLOB NOT NULL,
    dimension INTEGER NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_passages_partition ON passages(partition);
CREATE INDEX IF NOT EXISTS idx_passages_source ON passages(source_id);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 2

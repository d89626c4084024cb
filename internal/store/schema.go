package store

// schemaSQL defines the SQLite schema for the declaration index.
// Tables:
//   - file_index: content hash per analyzed file, for incremental indexing
//   - declarations: one row per class or free function, with the merged record as JSON
//   - members: methods, properties and constants of indexed classes
const schemaSQL = `
CREATE TABLE IF NOT EXISTS file_index (
    file_path TEXT PRIMARY KEY,
    scan_hash TEXT NOT NULL,
    scanned_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS declarations (
    decl_key TEXT PRIMARY KEY,        -- lowercase name, no leading separator
    name TEXT NOT NULL,               -- App\Models\User
    entity_type TEXT NOT NULL,        -- class, function
    kind TEXT,                        -- class, interface, trait, enum
    file_path TEXT NOT NULL,
    line_start INTEGER,
    line_end INTEGER,
    data TEXT NOT NULL,               -- JSON of the merged declaration
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS members (
    owner_key TEXT NOT NULL,
    member_kind TEXT NOT NULL,        -- method, property, constant
    name TEXT NOT NULL,
    visibility TEXT,
    signature TEXT,                   -- method signature or member type
    PRIMARY KEY (owner_key, member_kind, name)
);

CREATE INDEX IF NOT EXISTS idx_declarations_file ON declarations(file_path);
CREATE INDEX IF NOT EXISTS idx_members_name ON members(name);
`

// initSchema creates the database tables and indexes if they don't exist.
func (s *Store) initSchema() error {
	_, err := s.db.Exec(schemaSQL)
	return err
}

package history

// Schema DDL for the in-memory query database. The JSONL file is the source
// of truth; the database is rebuilt from it on every Open.
const (
	createVersions = `CREATE TABLE versions (
    record_id TEXT PRIMARY KEY,
    extension TEXT NOT NULL,
    version TEXT NOT NULL UNIQUE,
    fingerprint TEXT NOT NULL,
    defaults TEXT NOT NULL,
    complete INTEGER NOT NULL,
    recorded_at TEXT NOT NULL,
    seq INTEGER NOT NULL
);`

	idxVersionsSeq = `CREATE INDEX idx_versions_seq ON versions(seq);`
)

var schemaDDL = []string{
	createVersions,
	idxVersionsSeq,
}

const selectRecords = `SELECT record_id, extension, version, fingerprint, defaults, complete, recorded_at, seq
FROM versions ORDER BY seq`

const insertRecord = `INSERT INTO versions
    (record_id, extension, version, fingerprint, defaults, complete, recorded_at, seq)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

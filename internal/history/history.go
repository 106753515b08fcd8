// Package history keeps the ledger of versions an extension has published.
//
// Each extension has one <dir>/<extension>.versions.jsonl file holding a
// record per published version: its descriptor fingerprint and the defaults
// it generated at the time. The file is the source of truth; Open loads it
// into an in-memory SQLite database used for queries. The ledger lets a
// build catch a published version that was edited or removed, and recorded
// settings that newer code can no longer read.
package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/settings-sdk/pkg/extension"
	"github.com/mesh-intelligence/settings-sdk/pkg/types"
	"github.com/mesh-intelligence/settings-sdk/pkg/value"
)

// Ledger errors.
var (
	ErrVersionMutated = errors.New("published version changed")
	ErrLedgerClosed   = errors.New("history ledger is closed")
	ErrWrongExtension = errors.New("ledger belongs to another extension")
)

// Record is one published version as stored in the ledger.
type Record struct {
	RecordID    string        `json:"record_id"`
	Extension   string        `json:"extension"`
	Version     types.Version `json:"version"`
	Fingerprint string        `json:"fingerprint"`
	Defaults    value.Value   `json:"defaults"`
	Complete    bool          `json:"complete"`
	RecordedAt  time.Time     `json:"recorded_at"`
	Seq         int           `json:"seq"`
}

// Ledger is an open version history for one extension.
type Ledger struct {
	mu        sync.Mutex
	path      string
	extension string
	db        *sql.DB
	now       func() time.Time
}

// FileName returns the ledger file name of the named extension.
func FileName(extension string) string {
	return extension + ".versions.jsonl"
}

// Open loads the ledger of the named extension from dir, creating dir if
// needed. Malformed lines and records of other extensions are skipped.
func Open(dir, extension string) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening query database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	l := &Ledger{
		path:      filepath.Join(dir, FileName(extension)),
		extension: extension,
		db:        db,
		now:       time.Now,
	}
	if err := l.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load %s: %w", l.path, err)
	}
	return l, nil
}

// Path returns the ledger file path.
func (l *Ledger) Path() string { return l.path }

// Close releases the query database. Close is idempotent.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

// load inserts every usable line of the ledger file in one transaction.
// Duplicate versions keep the first line.
func (l *Ledger) load() error {
	lines, err := readJSONL(l.path)
	if err != nil {
		return err
	}

	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertRecord)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, line := range lines {
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.Extension != l.extension || rec.RecordID == "" || rec.Version == "" || rec.Fingerprint == "" {
			continue
		}
		args, err := recordArgs(rec)
		if err != nil {
			continue
		}
		if _, err := stmt.Exec(args...); err != nil {
			continue
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

func recordArgs(rec Record) ([]any, error) {
	defaults, err := json.Marshal(rec.Defaults)
	if err != nil {
		return nil, err
	}
	return []any{
		rec.RecordID,
		rec.Extension,
		string(rec.Version),
		rec.Fingerprint,
		string(defaults),
		rec.Complete,
		rec.RecordedAt.UTC().Format(time.RFC3339Nano),
		rec.Seq,
	}, nil
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func queryRecords(q querier) ([]Record, error) {
	rows, err := q.Query(selectRecords)
	if err != nil {
		return nil, fmt.Errorf("querying versions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec        Record
			version    string
			defaults   string
			recordedAt string
		)
		if err := rows.Scan(&rec.RecordID, &rec.Extension, &version, &rec.Fingerprint,
			&defaults, &rec.Complete, &recordedAt, &rec.Seq); err != nil {
			return nil, fmt.Errorf("scanning version row: %w", err)
		}
		rec.Version = types.Version(version)
		if rec.Defaults, err = value.Parse([]byte(defaults)); err != nil {
			return nil, fmt.Errorf("version %s defaults: %w", version, err)
		}
		if rec.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("version %s recorded_at: %w", version, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Versions returns the recorded versions in the order they were published.
func (l *Ledger) Versions() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil, ErrLedgerClosed
	}
	return queryRecords(l.db)
}

// Record appends every registered version of ext that the ledger does not
// hold yet and rewrites the ledger file. It returns the new records. If a
// recorded version's descriptor changed, nothing is written and the error
// wraps ErrVersionMutated.
func (l *Ledger) Record(ext *extension.Extension) ([]Record, error) {
	if ext.Name() != l.extension {
		return nil, fmt.Errorf("%w: %s, not %s", ErrWrongExtension, l.extension, ext.Name())
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil, ErrLedgerClosed
	}

	existing, err := queryRecords(l.db)
	if err != nil {
		return nil, err
	}
	recorded := make(map[types.Version]Record, len(existing))
	seq := 0
	for _, rec := range existing {
		recorded[rec.Version] = rec
		seq = max(seq, rec.Seq)
	}

	var (
		mutated []string
		added   []Record
	)
	for _, info := range ext.Versions() {
		if rec, ok := recorded[info.Version]; ok {
			if rec.Fingerprint != info.Fingerprint {
				mutated = append(mutated, string(info.Version))
			}
			continue
		}
		gen, err := ext.Generate(info.Version, extension.GenerateInput{})
		if err != nil {
			return nil, fmt.Errorf("generate %s defaults: %w", info.Version, err)
		}
		seq++
		added = append(added, Record{
			RecordID:    newRecordID(),
			Extension:   l.extension,
			Version:     info.Version,
			Fingerprint: info.Fingerprint,
			Defaults:    gen.Value,
			Complete:    gen.Complete,
			RecordedAt:  l.now().UTC(),
			Seq:         seq,
		})
	}
	if len(mutated) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrVersionMutated, strings.Join(mutated, ", "))
	}
	if len(added) == 0 {
		return nil, nil
	}

	tx, err := l.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning record transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range added {
		args, err := recordArgs(rec)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", rec.Version, err)
		}
		if _, err := tx.Exec(insertRecord, args...); err != nil {
			return nil, fmt.Errorf("insert %s: %w", rec.Version, err)
		}
	}

	all, err := queryRecords(tx)
	if err != nil {
		return nil, err
	}
	lines := make([]json.RawMessage, len(all))
	for i, rec := range all {
		if lines[i], err = json.Marshal(rec); err != nil {
			return nil, fmt.Errorf("encode %s: %w", rec.Version, err)
		}
	}
	if err := writeJSONL(l.path, lines); err != nil {
		return nil, fmt.Errorf("persist %s: %w", l.path, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing record transaction: %w", err)
	}
	return added, nil
}

func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

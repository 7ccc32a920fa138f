// Package manifest records export and import runs in a SQLite database so a
// mirror can later be checked against the run that produced it.
package manifest

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNoRun is returned when no completed run of the requested kind exists.
var ErrNoRun = errors.New("no completed run")

// Kind distinguishes export runs from import runs.
type Kind string

const (
	KindExport Kind = "export"
	KindImport Kind = "import"
)

// Run status values.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

// EntryType is stored as an integer, 1 for directories as in a file mode.
type EntryType int

const (
	EntryLeaf   EntryType = 0
	EntryFolder EntryType = 1
)

// Run is one row of the runs table.
type Run struct {
	ID         string
	Kind       Kind
	RemoteRoot string
	MirrorDir  string
	Started    time.Time
	Finished   time.Time
	Status     string
	Error      string
	Folders    int
	Leaves     int
}

// Entry is one folder or leaf touched by a run. LocalPath is slash-separated
// and relative to the mirror root.
type Entry struct {
	Type       EntryType
	RemotePath string
	LocalPath  string
}

// Store is an open manifest database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	remote_root TEXT NOT NULL,
	mirror_dir TEXT NOT NULL,
	started INTEGER NOT NULL,
	finished INTEGER,
	status TEXT NOT NULL,
	error TEXT,
	folders INTEGER DEFAULT 0,
	leaves INTEGER DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_kind_started ON runs(kind, started);

CREATE TABLE IF NOT EXISTS entries (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	type INTEGER NOT NULL,
	remote_path TEXT NOT NULL,
	local_path TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
) WITHOUT ROWID;
`

// Open opens (creating if needed) the manifest at dbPath.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create manifest dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin inserts a running run and returns a Recorder collecting its entries.
func (s *Store) Begin(kind Kind, remoteRoot, mirrorDir string) (*Recorder, error) {
	r := &Recorder{
		store: s,
		run: Run{
			ID:         uuid.NewString(),
			Kind:       kind,
			RemoteRoot: remoteRoot,
			MirrorDir:  mirrorDir,
			Started:    time.Now().UTC(),
			Status:     StatusRunning,
		},
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (id, kind, remote_root, mirror_dir, started, status) VALUES (?, ?, ?, ?, ?, ?)`,
		r.run.ID, string(kind), remoteRoot, mirrorDir, r.run.Started.UnixNano(), r.run.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return r, nil
}

// LatestRun returns the most recent successful run of kind.
func (s *Store) LatestRun(kind Kind) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT id, kind, remote_root, mirror_dir, started, finished, status, error, folders, leaves
		FROM runs WHERE kind = ? AND status = ?
		ORDER BY started DESC LIMIT 1`, string(kind), StatusOK)

	var (
		run      Run
		k        string
		started  int64
		finished sql.NullInt64
		errText  sql.NullString
	)
	err := row.Scan(&run.ID, &k, &run.RemoteRoot, &run.MirrorDir, &started, &finished,
		&run.Status, &errText, &run.Folders, &run.Leaves)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", kind, ErrNoRun)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	run.Kind = Kind(k)
	run.Started = time.Unix(0, started).UTC()
	if finished.Valid {
		run.Finished = time.Unix(0, finished.Int64).UTC()
	}
	run.Error = errText.String
	return &run, nil
}

// Entries returns the entries of a run in the order they were recorded.
func (s *Store) Entries(runID string) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT type, remote_path, local_path FROM entries WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Type, &e.RemotePath, &e.LocalPath); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

package manifest

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/agentic-research/procmirror/internal/mirror"
)

// Recorder collects the entries of one run. It implements mirror.Observer;
// entries stay in memory until Finish writes them in a single transaction.
type Recorder struct {
	store *Store

	mu      sync.Mutex
	run     Run
	entries []Entry
}

// RunID returns the id of the run being recorded.
func (r *Recorder) RunID() string {
	return r.run.ID
}

// Counts returns the folders and leaves recorded so far.
func (r *Recorder) Counts() (folders, leaves int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run.Folders, r.run.Leaves
}

func (r *Recorder) add(t EntryType, remotePath, localPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, Entry{
		Type:       t,
		RemotePath: remotePath,
		LocalPath:  filepath.ToSlash(localPath),
	})
	if t == EntryFolder {
		r.run.Folders++
	} else {
		r.run.Leaves++
	}
}

func (r *Recorder) FolderMirrored(remotePath, localPath string) {
	r.add(EntryFolder, remotePath, localPath)
}

func (r *Recorder) LeafExported(remotePath, localPath string) {
	r.add(EntryLeaf, remotePath, localPath)
}

func (r *Recorder) LeafImported(remotePath, localPath string) {
	r.add(EntryLeaf, remotePath, localPath)
}

// Finish stores the collected entries and closes the run as ok, or as failed
// when runErr is non-nil. Entries of a failed run are kept for inspection.
func (r *Recorder) Finish(runErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.run.Finished = time.Now().UTC()
	r.run.Status = StatusOK
	var errText *string
	if runErr != nil {
		r.run.Status = StatusFailed
		msg := runErr.Error()
		r.run.Error = msg
		errText = &msg
	}

	tx, err := r.store.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	stmt, err := tx.Prepare(`INSERT INTO entries (run_id, seq, type, remote_path, local_path) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, e := range r.entries {
		if _, err := stmt.Exec(r.run.ID, i, int(e.Type), e.RemotePath, e.LocalPath); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.RemotePath, err)
		}
	}

	_, err = tx.Exec(`UPDATE runs SET finished = ?, status = ?, error = ?, folders = ?, leaves = ? WHERE id = ?`,
		r.run.Finished.UnixNano(), r.run.Status, errText, r.run.Folders, r.run.Leaves, r.run.ID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return tx.Commit()
}

var _ mirror.Observer = (*Recorder)(nil)

package manifest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/procmirror/api"
	"github.com/agentic-research/procmirror/internal/localtree"
	"github.com/agentic-research/procmirror/internal/mirror"
	"github.com/agentic-research/procmirror/internal/remote"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "manifest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_LatestRunEmpty(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LatestRun(KindExport)
	assert.ErrorIs(t, err, ErrNoRun)
}

func TestRecorder_Finish(t *testing.T) {
	s := openTestStore(t)

	rec, err := s.Begin(KindExport, "/", "/mirror")
	require.NoError(t, err)
	rec.FolderMirrored("/Sales", "Sales")
	rec.LeafExported("/Sales/Invoice", filepath.Join("Sales", "Invoice.waj"))
	require.NoError(t, rec.Finish(nil))

	run, err := s.LatestRun(KindExport)
	require.NoError(t, err)
	assert.Equal(t, rec.RunID(), run.ID)
	assert.Equal(t, StatusOK, run.Status)
	assert.Equal(t, 1, run.Folders)
	assert.Equal(t, 1, run.Leaves)
	assert.Equal(t, "/mirror", run.MirrorDir)
	assert.False(t, run.Finished.Before(run.Started))

	entries, err := s.Entries(run.ID)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Type: EntryFolder, RemotePath: "/Sales", LocalPath: "Sales"},
		{Type: EntryLeaf, RemotePath: "/Sales/Invoice", LocalPath: "Sales/Invoice.waj"},
	}, entries)
}

func TestRecorder_FailedRunIsNotLatest(t *testing.T) {
	s := openTestStore(t)

	ok, err := s.Begin(KindExport, "/", "/mirror")
	require.NoError(t, err)
	require.NoError(t, ok.Finish(nil))

	failed, err := s.Begin(KindExport, "/", "/mirror")
	require.NoError(t, err)
	require.NoError(t, failed.Finish(errors.New("controller crashed")))

	imp, err := s.Begin(KindImport, "/", "/mirror")
	require.NoError(t, err)
	require.NoError(t, imp.Finish(nil))

	run, err := s.LatestRun(KindExport)
	require.NoError(t, err)
	assert.Equal(t, ok.RunID(), run.ID)

	run, err = s.LatestRun(KindImport)
	require.NoError(t, err)
	assert.Equal(t, imp.RunID(), run.ID)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.db")
	s, err := Open(path)
	require.NoError(t, err)
	rec, err := s.Begin(KindExport, "/", "/mirror")
	require.NoError(t, err)
	require.NoError(t, rec.Finish(nil))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	run, err := s.LatestRun(KindExport)
	require.NoError(t, err)
	assert.Equal(t, rec.RunID(), run.ID)
}

// exportRecorded runs a real export over a memory namespace with a Recorder
// attached and returns the recorded entries.
func exportRecorded(t *testing.T, s *Store, tree *localtree.Tree) []Entry {
	t.Helper()
	ns := remote.NewMemoryNamespace(tree.Filesystem())
	ns.AddLeaf("/", api.Leaf{Name: "Top", Content: "t"})
	ns.AddLeaf("/Sales", api.Leaf{Name: "Invoice", Content: "i"})
	ns.AddLeaf("/Sales/EU", api.Leaf{Name: "Quote", Content: "q"})
	ns.AddFolder("/Ops")

	rec, err := s.Begin(KindExport, "/", tree.Path())
	require.NoError(t, err)

	m := mirror.New(ns)
	m.Log, _ = test.NewNullLogger()
	m.Observer = rec
	runErr := m.ExportAll(context.Background(), "/", tree)
	require.NoError(t, runErr)
	require.NoError(t, rec.Finish(runErr))

	run, err := s.LatestRun(KindExport)
	require.NoError(t, err)
	assert.Equal(t, 3, run.Folders)
	assert.Equal(t, 3, run.Leaves)

	entries, err := s.Entries(run.ID)
	require.NoError(t, err)
	return entries
}

func TestDiff_CleanAfterExport(t *testing.T) {
	s := openTestStore(t)
	tree := localtree.New(memfs.New(), "/mirror")
	entries := exportRecorded(t, s, tree)

	report, err := Diff(entries, tree, nil)
	require.NoError(t, err)
	assert.True(t, report.Clean(), "%+v", report)
}

func TestDiff_ReportsDrift(t *testing.T) {
	s := openTestStore(t)
	fs := memfs.New()
	tree := localtree.New(fs, "/mirror")
	entries := exportRecorded(t, s, tree)

	require.NoError(t, util.RemoveAll(fs, "/mirror/Ops"))
	require.NoError(t, fs.Remove("/mirror/Sales/Invoice.waj"))
	require.NoError(t, util.WriteFile(fs, "/mirror/Sales/New.waj", []byte("n"), 0o644))
	require.NoError(t, fs.MkdirAll("/mirror/Scratch", 0o755))

	report, err := Diff(entries, tree, nil)
	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.Equal(t, []string{"Ops"}, report.MissingFolders)
	assert.Equal(t, []string{"Scratch"}, report.ExtraFolders)
	assert.Equal(t, []string{"Sales/Invoice.waj"}, report.MissingFiles)
	assert.Equal(t, []string{"Sales/New.waj"}, report.ExtraFiles)
}

func TestDiff_Ignore(t *testing.T) {
	s := openTestStore(t)
	fs := memfs.New()
	tree := localtree.New(fs, "/mirror")
	entries := exportRecorded(t, s, tree)

	require.NoError(t, util.WriteFile(fs, "/mirror/.git/HEAD", []byte("ref"), 0o644))
	require.NoError(t, util.WriteFile(fs, "/mirror/Sales/notes.txt", []byte("n"), 0o644))
	require.NoError(t, fs.Remove("/mirror/Top.waj"))

	report, err := Diff(entries, tree, []string{".git", "**/*.txt", "Top.waj"})
	require.NoError(t, err)
	assert.True(t, report.Clean(), "%+v", report)
}

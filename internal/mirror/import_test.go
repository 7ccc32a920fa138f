package mirror

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/procmirror/internal/errs"
	"github.com/agentic-research/procmirror/internal/localtree"
	"github.com/agentic-research/procmirror/internal/remote"
)

func TestImportAll_ReconstructsRemotePath(t *testing.T) {
	tests := []struct {
		name string
		root string
		want string
	}{
		{"relative", "", "Sales/Invoice"},
		{"namespace root", "/", "/Sales/Invoice"},
		{"subfolder root", "/Imported", "/Imported/Sales/Invoice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := memfs.New()
			require.NoError(t, util.WriteFile(fs, "/mirror/Sales/Invoice.waj", []byte("x"), 0o644))
			c := newScripted(fs)
			m := newMirror(c)
			m.RemoteRoot = tt.root

			require.NoError(t, m.ImportAll(context.Background(), localtree.New(fs, "/mirror")))
			assert.Equal(t, []string{"in " + tt.want}, c.calls)
		})
	}
}

func TestImportAll_RoundTrip(t *testing.T) {
	fs := memfs.New()
	src := newScripted(fs)
	salesTree(src)
	local := localtree.New(fs, "/mirror")
	ctx := context.Background()

	require.NoError(t, newMirror(src).ExportAll(ctx, "/", local))

	dst := remote.NewMemoryNamespace(fs)
	require.NoError(t, newMirror(dst).ImportAll(ctx, local))

	assert.Equal(t, src.Leaves(), dst.Leaves())
}

func TestImportAll_RoundTrip_OSFilesystem(t *testing.T) {
	fs, err := localtree.OSFilesystem()
	require.NoError(t, err)
	root, err := localtree.OSRel(fs, filepath.Join(t.TempDir(), "mirror"))
	require.NoError(t, err)
	src := newScripted(fs)
	salesTree(src)
	local := localtree.New(fs, root)
	ctx := context.Background()

	require.NoError(t, newMirror(src).ExportAll(ctx, "/", local))
	assert.Equal(t, "quote", readFile(t, fs, filepath.Join(root, "Sales", "EU", "Quote.waj")))

	dst := remote.NewMemoryNamespace(fs)
	require.NoError(t, newMirror(dst).ImportAll(ctx, local))

	assert.Equal(t, src.Leaves(), dst.Leaves())
}

func TestImportAll_DecodeFailure(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "/mirror/Sales/notes.txt", []byte("x"), 0o644))
	c := newScripted(fs)

	err := newMirror(c).ImportAll(context.Background(), localtree.New(fs, "/mirror"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrPathDecode)
	assert.Empty(t, c.calls)
}

func TestImportAll_Ignore(t *testing.T) {
	fs := memfs.New()
	for _, p := range []string{
		"/mirror/Sales/Invoice.waj",
		"/mirror/Sales/notes.txt",
		"/mirror/.git/HEAD",
		"/mirror/.git/objects/ab.waj",
	} {
		require.NoError(t, util.WriteFile(fs, p, []byte("x"), 0o644))
	}
	c := newScripted(fs)
	m := newMirror(c)
	m.Ignore = []string{"**/*.txt", ".git"}

	require.NoError(t, m.ImportAll(context.Background(), localtree.New(fs, "/mirror")))
	assert.Equal(t, []string{"in /Sales/Invoice"}, c.calls)
}

func TestImportAll_TransferFailureAborts(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "/mirror/A.waj", []byte("a"), 0o644))
	require.NoError(t, util.WriteFile(fs, "/mirror/B.waj", []byte("b"), 0o644))
	c := newScripted(fs)
	c.fail["in /A"] = errors.New("rejected")

	err := newMirror(c).ImportAll(context.Background(), localtree.New(fs, "/mirror"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTransfer)
	assert.Equal(t, []string{"in /A"}, c.calls)
}

func TestImportAll_Observer(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "/mirror/Sales/Invoice.waj", []byte("x"), 0o644))
	obs := &recordingObserver{}
	m := newMirror(newScripted(fs))
	m.Observer = obs

	require.NoError(t, m.ImportAll(context.Background(), localtree.New(fs, "/mirror")))
	require.Len(t, obs.imported, 1)
	assert.Contains(t, obs.imported[0], "/Sales/Invoice=")
}

func TestImportAll_EmptyMirror(t *testing.T) {
	fs := memfs.New()
	local := localtree.New(fs, "/mirror")
	require.NoError(t, local.Create())
	c := newScripted(fs)

	require.NoError(t, newMirror(c).ImportAll(context.Background(), local))
	assert.Empty(t, c.calls)
}

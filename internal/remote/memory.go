package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/agentic-research/procmirror/api"
	"github.com/agentic-research/procmirror/internal/transcode"
)

const rootPath = transcode.Separator

type memFolder struct {
	children []string // names, insertion order
	leaves   []api.Leaf
}

// MemoryNamespace is an in-process NamespaceClient. Transfers read and
// write leaf content through fs, so it pairs with whatever filesystem
// backs the local tree.
type MemoryNamespace struct {
	mu      sync.RWMutex
	fs      billy.Filesystem
	folders map[string]*memFolder // remote path -> folder
}

// NewMemoryNamespace returns a namespace holding only the root folder.
func NewMemoryNamespace(fs billy.Filesystem) *MemoryNamespace {
	return &MemoryNamespace{
		fs:      fs,
		folders: map[string]*memFolder{rootPath: {}},
	}
}

// LoadFixture builds a namespace from a JSON-encoded api.Folder describing
// the root's children and leaves.
func LoadFixture(fs billy.Filesystem, r io.Reader) (*MemoryNamespace, error) {
	var root api.Folder
	if err := json.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	m := NewMemoryNamespace(fs)
	m.addTree(rootPath, root)
	return m, nil
}

func (m *MemoryNamespace) addTree(p string, f api.Folder) {
	for _, l := range f.Leaves {
		m.AddLeaf(p, l)
	}
	for _, c := range f.Children {
		cp := transcode.JoinRemote(p, c.Name)
		m.AddFolder(cp)
		m.addTree(cp, c)
	}
}

// AddFolder creates the folder at p and any missing ancestors.
func (m *MemoryNamespace) AddFolder(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addFolderLocked(p)
}

func (m *MemoryNamespace) addFolderLocked(p string) *memFolder {
	p = normalize(p)
	if f, ok := m.folders[p]; ok {
		return f
	}
	segs, err := transcode.RelativeRemote(rootPath, p)
	if err != nil || len(segs) == 0 {
		return m.folders[rootPath]
	}
	parent := rootPath
	for _, s := range segs {
		cur := transcode.JoinRemote(parent, s)
		if _, ok := m.folders[cur]; !ok {
			m.folders[cur] = &memFolder{}
			pf := m.folders[parent]
			pf.children = append(pf.children, s)
		}
		parent = cur
	}
	return m.folders[p]
}

// AddLeaf stores a leaf in folder p, replacing a leaf with the same path.
// A leaf without a path is addressed by folder and name.
func (m *MemoryNamespace) AddLeaf(p string, leaf api.Leaf) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addLeafLocked(p, leaf)
}

func (m *MemoryNamespace) addLeafLocked(p string, leaf api.Leaf) {
	p = normalize(p)
	if leaf.Path == "" {
		leaf.Path = transcode.JoinRemote(p, leaf.Name)
	}
	f := m.addFolderLocked(p)
	for i := range f.leaves {
		if f.leaves[i].Path == leaf.Path {
			f.leaves[i] = leaf
			return
		}
	}
	f.leaves = append(f.leaves, leaf)
}

// Leaves returns every leaf, ordered by path.
func (m *MemoryNamespace) Leaves() []api.Leaf {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []api.Leaf
	for _, f := range m.folders {
		out = append(out, f.leaves...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ListChildFolders implements NamespaceClient.
func (m *MemoryNamespace) ListChildFolders(ctx context.Context, remotePath string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, err := m.folder(remotePath)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), f.children...), nil
}

// ListLeaves implements NamespaceClient.
func (m *MemoryNamespace) ListLeaves(ctx context.Context, remotePath string) ([]api.Leaf, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, err := m.folder(remotePath)
	if err != nil {
		return nil, err
	}
	return append([]api.Leaf(nil), f.leaves...), nil
}

// TransferLeafOut implements NamespaceClient.
func (m *MemoryNamespace) TransferLeafOut(ctx context.Context, remotePath, dstFile string) error {
	m.mu.RLock()
	leaf, err := m.leaf(remotePath)
	m.mu.RUnlock()
	if err != nil {
		return err
	}
	return util.WriteFile(m.fs, m.fsPath(dstFile), []byte(leaf.Content), 0o644)
}

// TransferLeafIn implements NamespaceClient. Missing parent folders are
// created, as the controller does on import.
func (m *MemoryNamespace) TransferLeafIn(ctx context.Context, srcFile, remotePath string) error {
	data, err := util.ReadFile(m.fs, m.fsPath(srcFile))
	if err != nil {
		return fmt.Errorf("read %s: %w", srcFile, err)
	}
	remotePath = normalize(remotePath)
	segs, err := transcode.RelativeRemote(rootPath, remotePath)
	if err != nil || len(segs) == 0 {
		return fmt.Errorf("invalid leaf path %q", remotePath)
	}

	parent := rootPath
	for _, s := range segs[:len(segs)-1] {
		parent = transcode.JoinRemote(parent, s)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.addLeafLocked(parent, api.Leaf{
		Name:    segs[len(segs)-1],
		Path:    remotePath,
		Content: string(data),
	})
	return nil
}

// fsPath maps an OS path below the filesystem root to a path inside m.fs.
func (m *MemoryNamespace) fsPath(p string) string {
	if !filepath.IsAbs(p) {
		return p
	}
	rel, err := filepath.Rel(m.fs.Root(), p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return rel
}

func (m *MemoryNamespace) folder(p string) (*memFolder, error) {
	p = normalize(p)
	f, ok := m.folders[p]
	if !ok {
		return nil, fmt.Errorf("folder %q: %w", p, ErrNotFound)
	}
	return f, nil
}

func (m *MemoryNamespace) leaf(p string) (api.Leaf, error) {
	for _, f := range m.folders {
		for _, l := range f.leaves {
			if l.Path == p {
				return l, nil
			}
		}
	}
	return api.Leaf{}, fmt.Errorf("leaf %q: %w", p, ErrNotFound)
}

var _ NamespaceClient = (*MemoryNamespace)(nil)

// normalize anchors p at the root and drops a trailing separator.
func normalize(p string) string {
	if !strings.HasPrefix(p, rootPath) {
		p = rootPath + p
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, transcode.Separator)
	}
	return p
}

// Package localtree is a thin handle over one directory of a billy.Filesystem.
//
// Create and EnsureChild are deliberately distinct contracts: Create fails on
// an existing path, EnsureChild treats an existing directory as success.
package localtree

import (
	"fmt"
	"os"
	"path/filepath"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/agentic-research/procmirror/internal/errs"
	"github.com/agentic-research/procmirror/internal/transcode"
)

const dirPerm = 0o755

// Tree is a directory inside fs. It holds no open handles.
type Tree struct {
	fs   billy.Filesystem
	path string
}

// New returns a handle for path inside fs. Nothing is touched on disk.
func New(fs billy.Filesystem, path string) *Tree {
	return &Tree{fs: fs, path: filepath.Clean(path)}
}

// Path returns the directory path within the filesystem.
func (t *Tree) Path() string {
	return t.path
}

// Filesystem returns the backing filesystem.
func (t *Tree) Filesystem() billy.Filesystem {
	return t.fs
}

// FilePath returns the path of a file named name directly inside t.
func (t *Tree) FilePath(name string) string {
	return t.fs.Join(t.path, name)
}

// Create creates the directory (and missing parents). It fails with
// errs.ErrAlreadyExists, touching nothing, when the path is already present.
func (t *Tree) Create() error {
	_, err := t.fs.Stat(t.path)
	switch {
	case err == nil:
		return errs.E(errs.KindAlreadyExists, "create", t.path, os.ErrExist)
	case !os.IsNotExist(err):
		return errs.E(errs.KindIO, "create", t.path, err)
	}
	if err := t.fs.MkdirAll(t.path, dirPerm); err != nil {
		return errs.E(errs.KindIO, "create", t.path, err)
	}
	return nil
}

// Clear removes everything at the path and recreates it as an empty
// directory. Safe to call whether or not the path exists.
func (t *Tree) Clear() error {
	if err := util.RemoveAll(t.fs, t.path); err != nil && !os.IsNotExist(err) {
		return errs.E(errs.KindIO, "clear", t.path, err)
	}
	if err := t.fs.MkdirAll(t.path, dirPerm); err != nil {
		return errs.E(errs.KindIO, "clear", t.path, err)
	}
	return nil
}

// EnsureChild returns the child directory name, creating it if absent.
func (t *Tree) EnsureChild(name string) (*Tree, error) {
	if err := transcode.ValidateName(name); err != nil {
		return nil, err
	}
	child := &Tree{fs: t.fs, path: t.fs.Join(t.path, name)}

	info, err := t.fs.Stat(child.path)
	switch {
	case err == nil && info.IsDir():
		return child, nil
	case err == nil:
		return nil, errs.E(errs.KindIO, "ensure child", child.path, fmt.Errorf("a file occupies the directory name"))
	case !os.IsNotExist(err):
		return nil, errs.E(errs.KindIO, "ensure child", child.path, err)
	}

	if err := t.fs.MkdirAll(child.path, dirPerm); err != nil {
		return nil, errs.E(errs.KindIO, "ensure child", child.path, err)
	}
	return child, nil
}

// Exists reports whether an entry called name is directly inside t.
func (t *Tree) Exists(name string) bool {
	_, err := t.fs.Stat(t.FilePath(name))
	return err == nil
}

// WalkFunc receives paths relative to the tree root.
type WalkFunc func(rel string, info os.FileInfo) error

// Walk visits every entry below t (not t itself) in lexical order.
func (t *Tree) Walk(fn WalkFunc) error {
	return util.Walk(t.fs, t.path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return errs.E(errs.KindIO, "walk", p, err)
		}
		rel, err := filepath.Rel(t.path, p)
		if err != nil {
			return errs.E(errs.KindIO, "walk", p, err)
		}
		if rel == "." {
			return nil
		}
		return fn(rel, info)
	})
}

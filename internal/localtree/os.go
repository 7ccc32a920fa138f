package localtree

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// OSFilesystem returns the operating system filesystem rooted at the volume
// holding the working directory. Paths inside it come from OSRel.
func OSFilesystem() (billy.Filesystem, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}
	root := filepath.VolumeName(wd) + string(filepath.Separator)
	return osfs.New(root, osfs.WithChrootOS()), nil
}

// OSRel converts an OS path into a path inside fs. Relative paths resolve
// against the working directory.
func OSRel(fs billy.Filesystem, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	rel, err := filepath.Rel(fs.Root(), abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", abs, fs.Root())
	}
	return rel, nil
}

// Open returns a handle for an OS path. Relative paths resolve against the
// working directory.
func Open(path string) (*Tree, error) {
	fs, err := OSFilesystem()
	if err != nil {
		return nil, err
	}
	rel, err := OSRel(fs, path)
	if err != nil {
		return nil, err
	}
	return New(fs, rel), nil
}

// OSPath returns the path of name inside t as the operating system sees it.
// Tools outside the process, such as the controller, need this form.
func (t *Tree) OSPath(name string) string {
	return filepath.Join(t.fs.Root(), t.FilePath(name))
}

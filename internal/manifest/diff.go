package manifest

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/agentic-research/procmirror/internal/localtree"
)

// Report lists the differences between a recorded export and a mirror on
// disk. Paths are slash-separated and relative to the mirror root.
type Report struct {
	MissingFolders []string
	ExtraFolders   []string
	MissingFiles   []string
	ExtraFiles     []string
}

// Clean reports whether the mirror matches the run exactly.
func (r Report) Clean() bool {
	return len(r.MissingFolders)+len(r.ExtraFolders)+len(r.MissingFiles)+len(r.ExtraFiles) == 0
}

// Diff compares the entries of an export run with the tree. Entries below
// the tree matching an ignore pattern are left out on both sides.
func Diff(entries []Entry, tree *localtree.Tree, ignore []string) (Report, error) {
	wantDirs := map[string]bool{}
	wantFiles := map[string]bool{}
	for _, e := range entries {
		if e.Type == EntryFolder {
			wantDirs[e.LocalPath] = true
		} else {
			wantFiles[e.LocalPath] = true
		}
	}

	gotDirs := map[string]bool{}
	gotFiles := map[string]bool{}
	err := tree.Walk(func(rel string, info os.FileInfo) error {
		rel = filepath.ToSlash(rel)
		if matchAny(ignore, rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			gotDirs[rel] = true
		} else {
			gotFiles[rel] = true
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	var r Report
	r.MissingFolders = minus(wantDirs, gotDirs, ignore)
	r.ExtraFolders = minus(gotDirs, wantDirs, nil)
	r.MissingFiles = minus(wantFiles, gotFiles, ignore)
	r.ExtraFiles = minus(gotFiles, wantFiles, nil)
	return r, nil
}

// minus returns the sorted keys of a absent from b, skipping ignored ones.
func minus(a, b map[string]bool, ignore []string) []string {
	var out []string
	for k := range a {
		if !b[k] && !matchAny(ignore, k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func matchAny(patterns []string, p string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

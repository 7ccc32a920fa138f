// Package transcode maps remote leaf paths to local file paths and back.
//
// Remote paths are segments joined by "/". Local paths are segments joined
// by the OS separator, with the export extension appended to the leaf's
// file name. Encode and Decode are exact inverses for every name accepted
// by ValidateName.
//
// Precondition: a leaf display name (and a folder name) must not contain
// the remote separator or the OS separator. Such names are rejected with
// errs.ErrInvalidName rather than encoded ambiguously.
package transcode

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agentic-research/procmirror/internal/errs"
)

// Separator joins remote path segments.
const Separator = "/"

// DefaultExtension is appended to leaf names when materialized locally.
const DefaultExtension = ".waj"

// ValidateName checks that name is usable as one segment on both sides:
// non-empty, not "." or "..", and free of either separator.
func ValidateName(name string) error {
	switch {
	case name == "":
		return errs.E(errs.KindInvalidName, "validate", name, fmt.Errorf("empty name"))
	case name == "." || name == "..":
		return errs.E(errs.KindInvalidName, "validate", name, fmt.Errorf("reserved name"))
	case strings.Contains(name, Separator):
		return errs.E(errs.KindInvalidName, "validate", name, fmt.Errorf("contains remote separator %q", Separator))
	case strings.ContainsRune(name, filepath.Separator):
		return errs.E(errs.KindInvalidName, "validate", name, fmt.Errorf("contains path separator %q", filepath.Separator))
	}
	return nil
}

// FileName returns the local file name for a leaf display name.
func FileName(displayName, ext string) (string, error) {
	if err := ValidateName(displayName); err != nil {
		return "", err
	}
	return displayName + ext, nil
}

// Encode returns "<leaf name><ext>" for a full remote leaf path. The folder
// chain is dropped: directory nesting comes from the traversal, not from here.
func Encode(remoteLeafPath, ext string) (string, error) {
	return FileName(baseName(remoteLeafPath), ext)
}

// Decode reconstructs a remote path from a path relative to the mirror
// root: OS separators become "/" and exactly one trailing ext is stripped.
func Decode(relativeLocalPath, ext string) (string, error) {
	if ext == "" || !strings.HasSuffix(relativeLocalPath, ext) {
		return "", errs.E(errs.KindPathDecode, "decode", relativeLocalPath,
			fmt.Errorf("missing extension %q", ext))
	}
	rel := strings.TrimSuffix(relativeLocalPath, ext)
	rel = strings.ReplaceAll(rel, string(filepath.Separator), Separator)
	rel = strings.TrimPrefix(rel, Separator)

	if rel == "" || strings.HasSuffix(rel, Separator) {
		return "", errs.E(errs.KindPathDecode, "decode", relativeLocalPath,
			fmt.Errorf("empty leaf name"))
	}
	return rel, nil
}

// JoinRemote appends name to a remote folder path.
func JoinRemote(parent, name string) string {
	switch {
	case parent == "":
		return name
	case strings.HasSuffix(parent, Separator):
		return parent + name
	default:
		return parent + Separator + name
	}
}

// RelativeRemote strips root from p and returns the remaining segments.
// It fails when p does not live under root.
func RelativeRemote(root, p string) ([]string, error) {
	prefix := root
	if prefix != "" && !strings.HasSuffix(prefix, Separator) {
		prefix += Separator
	}
	if !strings.HasPrefix(p, prefix) {
		return nil, fmt.Errorf("remote path %q is outside root %q", p, root)
	}
	rest := strings.TrimPrefix(p, prefix)
	if rest == "" {
		return nil, nil
	}
	return strings.Split(rest, Separator), nil
}

// LocalPath returns the mirror-relative local path of a remote leaf: the
// folder chain below root as nested directories, then the encoded file name.
func LocalPath(root, remoteLeafPath, ext string) (string, error) {
	segs, err := RelativeRemote(root, remoteLeafPath)
	if err != nil {
		return "", err
	}
	if len(segs) == 0 {
		return "", errs.E(errs.KindInvalidName, "encode", remoteLeafPath, fmt.Errorf("path names the root"))
	}
	for _, s := range segs {
		if err := ValidateName(s); err != nil {
			return "", err
		}
	}
	segs[len(segs)-1] += ext
	return filepath.Join(segs...), nil
}

// RemotePath is the inverse of LocalPath.
func RemotePath(root, relativeLocalPath, ext string) (string, error) {
	rel, err := Decode(relativeLocalPath, ext)
	if err != nil {
		return "", err
	}
	return JoinRemote(root, rel), nil
}

func baseName(p string) string {
	if i := strings.LastIndex(p, Separator); i >= 0 {
		return p[i+1:]
	}
	return p
}

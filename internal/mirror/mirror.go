// Package mirror projects the remote folder/process namespace onto a local
// directory tree (export) and replays that tree back into the namespace
// (import).
//
// Export is two independent walks of the remote tree: one creates the
// directory structure, the next transfers leaves into it. Both are driven by
// Walk, which carries traversal state down the recursion in a Node value.
package mirror

import (
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/agentic-research/procmirror/internal/remote"
	"github.com/agentic-research/procmirror/internal/transcode"
)

// Observer is told about every folder and leaf a run touches. Local paths
// are relative to the mirror root.
type Observer interface {
	FolderMirrored(remotePath, localPath string)
	LeafExported(remotePath, localPath string)
	LeafImported(remotePath, localPath string)
}

type nopObserver struct{}

func (nopObserver) FolderMirrored(string, string) {}
func (nopObserver) LeafExported(string, string)   {}
func (nopObserver) LeafImported(string, string)   {}

// Mirror drives one NamespaceClient. It keeps no state between calls, so a
// single Mirror can run any number of exports and imports in sequence.
type Mirror struct {
	Client remote.NamespaceClient

	// Extension is appended to leaf names on export and stripped on import.
	Extension string
	// RemoteRoot is the folder imported leaves are rebuilt under.
	RemoteRoot string
	// Ignore holds doublestar patterns, matched against slash-separated
	// paths relative to the mirror root, that import skips.
	Ignore []string
	// FoldCase makes sibling names that differ only in case collide, as
	// they would on a case-insensitive filesystem.
	FoldCase bool

	Log      logrus.FieldLogger
	Observer Observer
}

// New returns a Mirror with the default extension, the namespace root as
// RemoteRoot and the standard logger. FoldCase is set on platforms whose
// default filesystems ignore case.
func New(client remote.NamespaceClient) *Mirror {
	return &Mirror{
		Client:     client,
		Extension:  transcode.DefaultExtension,
		RemoteRoot: transcode.Separator,
		FoldCase:   caseInsensitiveOS(),
		Log:        logrus.StandardLogger(),
	}
}

func caseInsensitiveOS() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}

// nameKey is the key sibling names are compared by.
func (m *Mirror) nameKey(name string) string {
	if m.FoldCase {
		return strings.ToLower(name)
	}
	return name
}

func (m *Mirror) logger() logrus.FieldLogger {
	if m.Log == nil {
		return logrus.StandardLogger()
	}
	return m.Log
}

func (m *Mirror) observer() Observer {
	if m.Observer == nil {
		return nopObserver{}
	}
	return m.Observer
}

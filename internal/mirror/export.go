package mirror

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/agentic-research/procmirror/api"
	"github.com/agentic-research/procmirror/internal/errs"
	"github.com/agentic-research/procmirror/internal/localtree"
	"github.com/agentic-research/procmirror/internal/transcode"
)

// structureVisitor creates nothing itself; Walk's EnsureChild calls build the
// tree. It reports each mirrored folder.
type structureVisitor struct {
	log      logrus.FieldLogger
	observer Observer
}

func (s structureVisitor) Visit(ctx context.Context, n Node) error {
	if len(n.Segments) == 0 {
		return nil
	}
	s.log.WithFields(logrus.Fields{"remote": n.RemotePath, "local": n.LocalRel()}).Debug("folder mirrored")
	s.observer.FolderMirrored(n.RemotePath, n.LocalRel())
	return nil
}

// leafExporter transfers every leaf of a folder into the folder's local
// directory.
type leafExporter struct {
	m *Mirror
}

func (e leafExporter) Visit(ctx context.Context, n Node) error {
	leaves, err := e.m.Client.ListLeaves(ctx, n.RemotePath)
	if err != nil {
		return errs.E(errs.KindRemoteQuery, "list leaves", n.RemotePath, err)
	}

	// Resolve and check every file name before the first transfer.
	names := make([]string, len(leaves))
	seen := make(map[string]struct{}, len(leaves))
	for i, leaf := range leaves {
		name, err := e.fileName(n, leaf)
		if err != nil {
			return err
		}
		key := e.m.nameKey(name)
		if _, dup := seen[key]; dup {
			return errs.E(errs.KindNameCollision, "export", leaf.Path,
				fmt.Errorf("leaf name %q appears twice in %s", leaf.Name, n.RemotePath))
		}
		seen[key] = struct{}{}
		names[i] = name
	}

	log := e.m.logger()
	for i, leaf := range leaves {
		if n.Local.Exists(names[i]) {
			return errs.E(errs.KindNameCollision, "export", leaf.Path,
				fmt.Errorf("%s already exists in %s", names[i], n.Local.OSPath(".")))
		}
		dst := n.Local.OSPath(names[i])
		if err := e.m.Client.TransferLeafOut(ctx, leaf.Path, dst); err != nil {
			return errs.E(errs.KindTransfer, "export", leaf.Path, err)
		}

		rel := filepath.Join(n.LocalRel(), names[i])
		log.WithFields(logrus.Fields{"remote": leaf.Path, "local": rel}).Info("exported")
		e.m.observer().LeafExported(leaf.Path, rel)
	}
	return nil
}

// fileName returns the local file name for leaf. The name must be derivable
// from the leaf's remote path, and that path must sit directly in n, so that
// importing the file rebuilds the same path.
func (e leafExporter) fileName(n Node, leaf api.Leaf) (string, error) {
	name, err := transcode.FileName(leaf.Name, e.m.Extension)
	if err != nil {
		return "", err
	}
	encoded, err := transcode.Encode(leaf.Path, e.m.Extension)
	if err != nil {
		return "", errs.E(errs.KindPathMismatch, "export", leaf.Path, err)
	}
	if encoded != name {
		return "", errs.E(errs.KindPathMismatch, "export", leaf.Path,
			fmt.Errorf("path does not end in leaf name %q", leaf.Name))
	}
	if want := transcode.JoinRemote(n.RemotePath, leaf.Name); leaf.Path != want {
		return "", errs.E(errs.KindPathMismatch, "export", leaf.Path,
			fmt.Errorf("leaf is listed in %s, want path %s", n.RemotePath, want))
	}
	return name, nil
}

// CreateStructure mirrors the folder tree below remoteRoot into local,
// creating directories only.
func (m *Mirror) CreateStructure(ctx context.Context, remoteRoot string, local *localtree.Tree) error {
	return m.Walk(ctx, remoteRoot, local, structureVisitor{log: m.logger(), observer: m.observer()})
}

// ExportLeaves walks the remote tree again and transfers each leaf into its
// folder's local directory. Directories missing locally are created.
func (m *Mirror) ExportLeaves(ctx context.Context, remoteRoot string, local *localtree.Tree) error {
	return m.Walk(ctx, remoteRoot, local, leafExporter{m: m})
}

// ExportAll replaces the contents of local with a fresh mirror of the remote
// tree below remoteRoot. Nothing is rolled back on failure; rerunning starts
// from a clear tree again.
func (m *Mirror) ExportAll(ctx context.Context, remoteRoot string, local *localtree.Tree) error {
	m.logger().WithFields(logrus.Fields{"remote": remoteRoot, "local": local.OSPath(".")}).Info("export started")

	if err := local.Clear(); err != nil {
		return err
	}
	if err := m.CreateStructure(ctx, remoteRoot, local); err != nil {
		return fmt.Errorf("create structure: %w", err)
	}
	if err := m.ExportLeaves(ctx, remoteRoot, local); err != nil {
		return fmt.Errorf("export leaves: %w", err)
	}
	return nil
}

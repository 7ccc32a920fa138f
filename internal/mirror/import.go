package mirror

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"

	"github.com/agentic-research/procmirror/internal/errs"
	"github.com/agentic-research/procmirror/internal/localtree"
	"github.com/agentic-research/procmirror/internal/transcode"
)

// ImportAll replays every file below local into the namespace under
// RemoteRoot. Directories only contribute path segments. Files are visited
// in lexical order, though nothing depends on it. The first error aborts.
func (m *Mirror) ImportAll(ctx context.Context, local *localtree.Tree) error {
	log := m.logger()
	log.WithFields(logrus.Fields{"remote": m.RemoteRoot, "local": local.OSPath(".")}).Info("import started")

	return local.Walk(func(rel string, info os.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.ignored(rel) {
			log.WithField("local", rel).Debug("ignored")
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}

		remotePath, err := transcode.RemotePath(m.RemoteRoot, rel, m.Extension)
		if err != nil {
			return err
		}
		if err := m.Client.TransferLeafIn(ctx, local.OSPath(rel), remotePath); err != nil {
			return errs.E(errs.KindTransfer, "import", remotePath, err)
		}

		log.WithFields(logrus.Fields{"remote": remotePath, "local": rel}).Info("imported")
		m.observer().LeafImported(remotePath, rel)
		return nil
	})
}

func (m *Mirror) ignored(rel string) bool {
	slashed := filepath.ToSlash(rel)
	for _, pattern := range m.Ignore {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
	}
	return false
}

// Package remote talks to the automation controller that owns the remote
// namespace of folders and processes (leaves).
package remote

import (
	"context"
	"errors"

	"github.com/agentic-research/procmirror/api"
)

// ErrNotFound is returned when a remote folder or leaf does not exist.
var ErrNotFound = errors.New("not found")

// NamespaceClient is the collaborator the mirror drives. Every call is a
// blocking, single-shot query; implementations must not assume the caller
// caches results, and callers must not assume implementations do.
type NamespaceClient interface {
	// ListChildFolders returns the names of the folders directly inside
	// remotePath, in the order the controller reports them.
	ListChildFolders(ctx context.Context, remotePath string) ([]string, error)
	// ListLeaves returns the leaves directly inside remotePath.
	ListLeaves(ctx context.Context, remotePath string) ([]api.Leaf, error)
	// TransferLeafOut writes the content of the leaf at remotePath to dstFile.
	TransferLeafOut(ctx context.Context, remotePath, dstFile string) error
	// TransferLeafIn registers the content of srcFile under remotePath.
	TransferLeafIn(ctx context.Context, srcFile, remotePath string) error
}

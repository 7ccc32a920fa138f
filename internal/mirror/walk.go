package mirror

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/agentic-research/procmirror/internal/errs"
	"github.com/agentic-research/procmirror/internal/localtree"
	"github.com/agentic-research/procmirror/internal/transcode"
)

// Node is one step of a walk: a remote folder and the local directory that
// mirrors it.
type Node struct {
	RemotePath string
	Local      *localtree.Tree
	// Segments are the folder names from the walk root down to this node.
	// Empty for the root.
	Segments []string
}

// LocalRel returns the node's directory relative to the mirror root.
func (n Node) LocalRel() string {
	if len(n.Segments) == 0 {
		return "."
	}
	return filepath.Join(n.Segments...)
}

func (n Node) child(name string, local *localtree.Tree) Node {
	segs := make([]string, len(n.Segments), len(n.Segments)+1)
	copy(segs, n.Segments)
	return Node{
		RemotePath: transcode.JoinRemote(n.RemotePath, name),
		Local:      local,
		Segments:   append(segs, name),
	}
}

// Visitor is called once per folder, parent before children.
type Visitor interface {
	Visit(ctx context.Context, n Node) error
}

// VisitorFunc adapts a function to Visitor.
type VisitorFunc func(ctx context.Context, n Node) error

func (f VisitorFunc) Visit(ctx context.Context, n Node) error { return f(ctx, n) }

// Walk traverses the remote tree below remoteRoot depth-first, pre-order,
// visiting remoteRoot itself first. Child folders are taken in the order the
// client lists them; each gets its local directory via EnsureChild before
// it is visited. The first error aborts the walk.
func (m *Mirror) Walk(ctx context.Context, remoteRoot string, local *localtree.Tree, v Visitor) error {
	return m.walk(ctx, Node{RemotePath: remoteRoot, Local: local}, v)
}

func (m *Mirror) walk(ctx context.Context, n Node, v Visitor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := v.Visit(ctx, n); err != nil {
		return err
	}

	names, err := m.Client.ListChildFolders(ctx, n.RemotePath)
	if err != nil {
		return errs.E(errs.KindRemoteQuery, "list folders", n.RemotePath, err)
	}
	if err := m.checkUnique(n.RemotePath, names); err != nil {
		return err
	}

	for _, name := range names {
		local, err := n.Local.EnsureChild(name)
		if err != nil {
			return err
		}
		if err := m.walk(ctx, n.child(name, local), v); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mirror) checkUnique(folder string, names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		key := m.nameKey(name)
		if _, dup := seen[key]; dup {
			return errs.E(errs.KindNameCollision, "list folders", transcode.JoinRemote(folder, name),
				fmt.Errorf("folder name %q appears twice", name))
		}
		seen[key] = struct{}{}
	}
	return nil
}

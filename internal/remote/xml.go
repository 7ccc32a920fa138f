package remote

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/agentic-research/procmirror/api"
	"github.com/agentic-research/procmirror/internal/transcode"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseFolderTree decodes a /getallfolders reply.
func ParseFolderTree(data []byte) (*api.FolderTree, error) {
	var tree api.FolderTree
	if err := decodeXML(data, &tree); err != nil {
		return nil, fmt.Errorf("parse folder tree: %w", err)
	}
	return &tree, nil
}

// ParseLeafList decodes a /getprocessesoffolder reply. Names and paths are
// kept verbatim, spaces included. Leaves reported without a path, or with a
// blank one, get one derived from folder and name.
func ParseLeafList(data []byte, folder string) ([]api.Leaf, error) {
	var list api.LeafList
	if err := decodeXML(data, &list); err != nil {
		return nil, fmt.Errorf("parse process list: %w", err)
	}
	for i := range list.Leaves {
		if strings.TrimSpace(list.Leaves[i].Path) == "" {
			list.Leaves[i].Path = transcode.JoinRemote(folder, list.Leaves[i].Name)
		}
	}
	return list.Leaves, nil
}

// ChildFolderNames returns the names of the folders directly inside
// remotePath. The root is "" or "/".
func ChildFolderNames(tree *api.FolderTree, remotePath string) ([]string, error) {
	children := tree.Folders
	if !isRoot(remotePath) {
		f := findFolder(tree.Folders, transcode.Separator, strings.TrimSuffix(remotePath, transcode.Separator))
		if f == nil {
			return nil, fmt.Errorf("folder %q: %w", remotePath, ErrNotFound)
		}
		children = f.Children
	}

	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Name)
	}
	return names, nil
}

// findFolder searches depth-first. A folder without a reported Path is
// addressed by its parent path joined with its name.
func findFolder(folders []api.Folder, parent, target string) *api.Folder {
	for i := range folders {
		f := &folders[i]
		p := f.Path
		if strings.TrimSpace(p) == "" {
			p = transcode.JoinRemote(parent, f.Name)
		}
		p = strings.TrimSuffix(p, transcode.Separator)
		if p == target {
			return f
		}
		if found := findFolder(f.Children, p, target); found != nil {
			return found
		}
	}
	return nil
}

func isRoot(p string) bool {
	return p == "" || p == transcode.Separator
}

func decodeXML(data []byte, v any) error {
	data = bytes.TrimPrefix(data, utf8BOM)
	dec := xml.NewDecoder(bytes.NewReader(data))
	// Controller output is utf-8 whatever the declaration says.
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	return dec.Decode(v)
}

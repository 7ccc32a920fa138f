package api

import "encoding/xml"

// FolderTree is the controller's reply to /getallfolders.
// The root itself is implicit; Folders are its top-level children.
type FolderTree struct {
	XMLName xml.Name `xml:"Folders" json:"-"`
	// Folders directly under the remote root.
	Folders []Folder `xml:"Folder" json:"folders,omitempty"`
}

// Folder represents a remote container.
// It can contain other folders or leaves (processes).
type Folder struct {
	// Name of the folder. Mirrored verbatim as a directory name.
	Name string `xml:"Name" json:"name"`
	// Path is the full remote path, segments joined by "/".
	Path string `xml:"Path" json:"path,omitempty"`
	// Children folders, in the order the controller reports them.
	Children []Folder `xml:"Folders>Folder" json:"children,omitempty"`
	// Leaves directly inside this folder. Never populated from
	// /getallfolders; used by in-memory namespaces and fixtures.
	Leaves []Leaf `xml:"-" json:"leaves,omitempty"`
}

// LeafList is the controller's reply to /getprocessesoffolder.
type LeafList struct {
	XMLName xml.Name `xml:"Processes" json:"-"`
	Leaves  []Leaf   `xml:"Process" json:"leaves,omitempty"`
}

// Leaf represents a process: a terminal item with no children.
type Leaf struct {
	// Name is the display name; the local file is "<Name><extension>".
	Name string `xml:"Name" json:"name"`
	// Path is the full remote path of the leaf.
	Path string `xml:"Path" json:"path,omitempty"`
	// Content is the exported payload. Only fixtures carry it.
	Content string `xml:"-" json:"content,omitempty"`
}

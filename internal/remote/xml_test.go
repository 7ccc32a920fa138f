package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const folderTreeXML = `<?xml version="1.0" encoding="utf-16"?>
<Folders>
  <Folder>
    <Name>Sales</Name>
    <Path>/Sales</Path>
    <Folders>
      <Folder>
        <Name>EU</Name>
        <Path>/Sales/EU</Path>
        <Folders />
      </Folder>
      <Folder>
        <Name>US</Name>
        <Path>/Sales/US</Path>
      </Folder>
    </Folders>
  </Folder>
  <Folder>
    <Name>Ops</Name>
    <Folders>
      <Folder>
        <Name>Nightly</Name>
      </Folder>
    </Folders>
  </Folder>
</Folders>`

func TestParseFolderTree(t *testing.T) {
	tree, err := ParseFolderTree([]byte(folderTreeXML))
	require.NoError(t, err)
	require.Len(t, tree.Folders, 2)

	assert.Equal(t, "Sales", tree.Folders[0].Name)
	assert.Equal(t, "/Sales", tree.Folders[0].Path)
	require.Len(t, tree.Folders[0].Children, 2)
	assert.Equal(t, "/Sales/US", tree.Folders[0].Children[1].Path)
}

func TestParseFolderTree_BOM(t *testing.T) {
	data := append(append([]byte{}, utf8BOM...), []byte(`<Folders><Folder><Name>A</Name></Folder></Folders>`)...)
	tree, err := ParseFolderTree(data)
	require.NoError(t, err)
	require.Len(t, tree.Folders, 1)
	assert.Equal(t, "A", tree.Folders[0].Name)
}

func TestParseFolderTree_Malformed(t *testing.T) {
	_, err := ParseFolderTree([]byte(`<Folders><Folder>`))
	assert.Error(t, err)
}

func TestChildFolderNames(t *testing.T) {
	tree, err := ParseFolderTree([]byte(folderTreeXML))
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		want []string
	}{
		{"root slash", "/", []string{"Sales", "Ops"}},
		{"root empty", "", []string{"Sales", "Ops"}},
		{"reported path", "/Sales", []string{"EU", "US"}},
		{"trailing separator", "/Sales/", []string{"EU", "US"}},
		{"empty folder", "/Sales/EU", []string{}},
		{"derived path", "/Ops", []string{"Nightly"}},
		{"derived nested", "/Ops/Nightly", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ChildFolderNames(tree, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChildFolderNames_NotFound(t *testing.T) {
	tree, err := ParseFolderTree([]byte(folderTreeXML))
	require.NoError(t, err)

	_, err = ChildFolderNames(tree, "/Missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseLeafList(t *testing.T) {
	data := []byte(`<Processes>
  <Process><Name>Invoice</Name><Path>/Sales/Invoice</Path></Process>
  <Process><Name>Report</Name></Process>
  <Process><Name>Blank</Name><Path> </Path></Process>
</Processes>`)

	leaves, err := ParseLeafList(data, "/Sales")
	require.NoError(t, err)
	require.Len(t, leaves, 3)

	assert.Equal(t, "Invoice", leaves[0].Name)
	assert.Equal(t, "/Sales/Invoice", leaves[0].Path)
	assert.Equal(t, "Report", leaves[1].Name)
	assert.Equal(t, "/Sales/Report", leaves[1].Path)
	assert.Equal(t, "/Sales/Blank", leaves[2].Path)
}

func TestParseLeafList_KeepsSurroundingSpaces(t *testing.T) {
	tests := []struct {
		name     string
		xml      string
		wantName string
		wantPath string
	}{
		{
			name:     "reported path",
			xml:      `<Process><Name> Invoice </Name><Path>/Sales/ Invoice </Path></Process>`,
			wantName: " Invoice ",
			wantPath: "/Sales/ Invoice ",
		},
		{
			name:     "derived path",
			xml:      `<Process><Name>Report </Name></Process>`,
			wantName: "Report ",
			wantPath: "/Sales/Report ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leaves, err := ParseLeafList([]byte("<Processes>"+tt.xml+"</Processes>"), "/Sales")
			require.NoError(t, err)
			require.Len(t, leaves, 1)
			assert.Equal(t, tt.wantName, leaves[0].Name)
			assert.Equal(t, tt.wantPath, leaves[0].Path)
		})
	}
}

func TestChildFolderNames_KeepsSurroundingSpaces(t *testing.T) {
	tree, err := ParseFolderTree([]byte(`<Folders>
  <Folder>
    <Name> Sales</Name>
    <Folders>
      <Folder><Name>EU </Name></Folder>
    </Folders>
  </Folder>
  <Folder><Name>Sales</Name></Folder>
</Folders>`))
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		want []string
	}{
		{"root", "/", []string{" Sales", "Sales"}},
		{"leading space", "/ Sales", []string{"EU "}},
		{"trimmed name is a different folder", "/Sales", []string{}},
		{"trailing space", "/ Sales/EU ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ChildFolderNames(tree, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLeafList_Empty(t *testing.T) {
	leaves, err := ParseLeafList([]byte(`<Processes />`), "/")
	require.NoError(t, err)
	assert.Empty(t, leaves)
}

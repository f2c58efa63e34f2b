package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"docscribe/internal/pathutil"
)

const (
	NodeDirectory = "directory"
	NodeFile      = "file"
)

// FileTreeNode is the display tree of a project's files.
type FileTreeNode struct {
	Name     string          `json:"name"`
	Type     string          `json:"type,omitempty"`
	Path     string          `json:"path,omitempty"`
	Children []*FileTreeNode `json:"children,omitempty"`
}

// EmptyTree is the root used when the tree cannot be loaded.
func EmptyTree() *FileTreeNode {
	return &FileTreeNode{Name: "root", Type: NodeDirectory, Path: "root", Children: []*FileTreeNode{}}
}

func (n *FileTreeNode) IsDir() bool {
	if n == nil {
		return false
	}
	return n.Type == NodeDirectory || n.Type == "folder" || len(n.Children) > 0
}

// CountFiles returns the number of file leaves under n.
func (n *FileTreeNode) CountFiles() int {
	count := 0
	n.Walk(func(_ string, node *FileTreeNode) bool {
		if !node.IsDir() {
			count++
		}
		return true
	})
	return count
}

// Walk visits n depth-first with each node's project path. Returning false
// from fn skips the node's children. The root itself is visited with an
// empty path and does not prefix its children.
func (n *FileTreeNode) Walk(fn func(path string, node *FileTreeNode) bool) {
	if n == nil {
		return
	}
	if !fn("", n) {
		return
	}
	for _, c := range n.Children {
		c.walk("", fn)
	}
}

func (n *FileTreeNode) walk(parent string, fn func(string, *FileTreeNode) bool) {
	if n == nil {
		return
	}
	p := n.pathUnder(parent)
	if !fn(p, n) {
		return
	}
	for _, c := range n.Children {
		c.walk(p, fn)
	}
}

func (n *FileTreeNode) pathUnder(parent string) string {
	if p := pathutil.Normalize(n.Path); p != "" {
		return p
	}
	return pathutil.Join(parent, n.Name)
}

// Paths lists every file path in the tree, sorted.
func (n *FileTreeNode) Paths() []string {
	var out []string
	n.Walk(func(p string, node *FileTreeNode) bool {
		if p != "" && !node.IsDir() {
			out = append(out, p)
		}
		return true
	})
	sort.Strings(out)
	return out
}

// Render draws the tree with box characters, keeping only the files for
// which keep returns true (nil keeps everything). Directories left without
// visible files are omitted.
func (n *FileTreeNode) Render(keep func(path string) bool) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(n.Name)
	sb.WriteString("\n")
	renderChildren(&sb, n.Children, "", "", keep)
	return strings.TrimRight(sb.String(), "\n")
}

func renderChildren(sb *strings.Builder, children []*FileTreeNode, parent, prefix string, keep func(string) bool) {
	type row struct {
		node *FileTreeNode
		path string
	}
	rows := make([]row, 0, len(children))
	for _, c := range children {
		p := c.pathUnder(parent)
		if c.visible(p, keep) {
			rows = append(rows, row{node: c, path: p})
		}
	}
	for i, r := range rows {
		isLast := i == len(rows)-1
		sb.WriteString(prefix)
		if isLast {
			sb.WriteString("└── ")
		} else {
			sb.WriteString("├── ")
		}
		sb.WriteString(r.node.Name)
		sb.WriteString("\n")
		if r.node.IsDir() {
			next := prefix + "│   "
			if isLast {
				next = prefix + "    "
			}
			renderChildren(sb, r.node.Children, r.path, next, keep)
		}
	}
}

func (n *FileTreeNode) visible(p string, keep func(string) bool) bool {
	if !n.IsDir() {
		return keep == nil || keep(p)
	}
	if keep == nil {
		return true
	}
	for _, c := range n.Children {
		if c.visible(c.pathUnder(p), keep) {
			return true
		}
	}
	return false
}

// ParseTree decodes either tree shape the backend produces: a node object
// ({"name", "type", "children"}) or the nested filename map whose leaves
// carry "functions"/"classes".
func ParseTree(raw []byte) (*FileTreeNode, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	if isNodeObject(probe) {
		var node FileTreeNode
		if err := json.Unmarshal(raw, &node); err != nil {
			return nil, fmt.Errorf("decode tree node: %w", err)
		}
		if node.Type == "" {
			node.Type = NodeDirectory
		}
		return &node, nil
	}
	root := EmptyTree()
	root.Children = nestedChildren(probe, "")
	return root, nil
}

func isNodeObject(m map[string]json.RawMessage) bool {
	name, ok := m["name"]
	if !ok || len(name) == 0 || name[0] != '"' {
		return false
	}
	_, children := m["children"]
	_, typ := m["type"]
	return children || typ
}

func nestedChildren(m map[string]json.RawMessage, parent string) []*FileTreeNode {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]*FileTreeNode, 0, len(names))
	for _, name := range names {
		p := pathutil.Join(parent, name)
		var sub map[string]json.RawMessage
		if err := json.Unmarshal(m[name], &sub); err != nil || isLeaf(sub) {
			out = append(out, &FileTreeNode{Name: name, Type: NodeFile, Path: p})
			continue
		}
		out = append(out, &FileTreeNode{Name: name, Type: NodeDirectory, Path: p, Children: nestedChildren(sub, p)})
	}
	return out
}

func isLeaf(m map[string]json.RawMessage) bool {
	_, fn := m["functions"]
	_, cls := m["classes"]
	return fn || cls
}

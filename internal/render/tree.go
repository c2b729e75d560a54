package render

import (
	"fmt"
	"strings"
)

// TreeNode is one labelled line of a tree view
type TreeNode struct {
	Label    string
	Children []TreeNode
}

// RenderTree draws nodes with box-drawing branches. In porcelain mode each
// line is indented by two spaces per level instead.
func (r *Renderer) RenderTree(nodes []TreeNode) error {
	for i, n := range nodes {
		if err := r.renderTreeNode(n, "", i == len(nodes)-1, true); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) renderTreeNode(n TreeNode, prefix string, last, top bool) error {
	var line, childPrefix string
	switch {
	case r.opts.Porcelain:
		line = prefix + n.Label
		childPrefix = prefix + "  "
	case top:
		line = n.Label
	case last:
		line = prefix + "└── " + n.Label
		childPrefix = prefix + "    "
	default:
		line = prefix + "├── " + n.Label
		childPrefix = prefix + "│   "
	}
	if top && !r.opts.Porcelain {
		childPrefix = ""
	}
	if _, err := fmt.Fprintln(r.writer, strings.TrimRight(line, " ")); err != nil {
		return err
	}
	for i, c := range n.Children {
		if err := r.renderTreeNode(c, childPrefix, i == len(n.Children)-1, false); err != nil {
			return err
		}
	}
	return nil
}

package pathtree

import (
	"fmt"
	"io"
	"strings"
)

// Row is one visible line of a rendered tree.
type Row[R Record] struct {
	Node     *Node[R]
	Depth    int
	Expanded bool
}

// Flatten lists the visible descendants of root (root itself excluded). A
// node's children are listed only when expanded(node.Path) is true; a nil
// expanded shows everything.
func Flatten[R Record](root *Node[R], order Order, expanded func(path string) bool) []Row[R] {
	rows := make([]Row[R], 0, root.TotalNodes)
	var visit func(n *Node[R])
	visit = func(n *Node[R]) {
		for _, child := range n.Sorted(order) {
			open := !child.IsLeaf() && (expanded == nil || expanded(child.Path))
			rows = append(rows, Row[R]{Node: child, Depth: child.Depth - 1, Expanded: open})
			if open {
				visit(child)
			}
		}
	}
	visit(root)
	return rows
}

// Render writes an indented text tree. label may be nil, in which case each
// line shows the segment name with its record and node counts.
func Render[R Record](w io.Writer, root *Node[R], order Order, label func(*Node[R]) string) error {
	if label == nil {
		label = DefaultLabel[R]
	}
	for _, row := range Flatten(root, order, nil) {
		if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", row.Depth), label(row.Node)); err != nil {
			return err
		}
	}
	return nil
}

// DefaultLabel renders "name/ (records, nodes)" for directories and the bare
// name for leaves holding a single record.
func DefaultLabel[R Record](n *Node[R]) string {
	if n.IsLeaf() {
		if n.TotalRecords > 1 {
			return fmt.Sprintf("%s (x%d)", n.Name, n.TotalRecords)
		}
		return n.Name
	}
	return fmt.Sprintf("%s/ (%d records, %d nodes)", n.Name, n.TotalRecords, n.TotalNodes)
}

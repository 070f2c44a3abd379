// Package pathtree groups flat slash-delimited paths into a directory-like
// tree with per-node aggregate counts. Trees are always rebuilt from scratch;
// there is no incremental insert or remove.
package pathtree

import (
	"fmt"
	"sort"
	"strings"

	"benchtop/internal/shared/observability"
	"benchtop/internal/shared/util"
)

// Record is anything that can be placed in a tree by its path.
type Record interface {
	TreePath() string
}

// Node is one path segment. Records holds the records whose path ends here,
// in input order.
type Node[R Record] struct {
	Name     string
	Path     string
	Depth    int
	Children map[string]*Node[R]
	Records  []R

	// TotalRecords counts records at this node and every descendant.
	TotalRecords int
	// TotalNodes counts every descendant node, not just direct children.
	TotalNodes int
}

// Order controls sibling ordering. Names always compare case-sensitively.
type Order int

const (
	// DirsFirst lists nodes that have children before leaf nodes.
	DirsFirst Order = iota
	// Interleaved sorts siblings purely by name.
	Interleaved
)

func newNode[R Record](name, p string, depth int) *Node[R] {
	return &Node[R]{Name: name, Path: p, Depth: depth, Children: make(map[string]*Node[R])}
}

// Build constructs a tree from records. Empty segments are ignored, so
// "/a//b/" and "a/b" land on the same node; a record with no segments
// terminates at the root.
func Build[R Record](records []R) *Node[R] {
	root := newNode[R]("", "", 0)
	for _, rec := range records {
		node := root
		for _, seg := range util.SplitSegments(rec.TreePath()) {
			child, ok := node.Children[seg]
			if !ok {
				p := seg
				if node.Path != "" {
					p = node.Path + "/" + seg
				}
				child = newNode[R](seg, p, node.Depth+1)
				node.Children[seg] = child
			}
			node = child
		}
		node.Records = append(node.Records, rec)
	}
	aggregate(root)

	observability.TreeBuildsTotal.Inc()
	observability.TreeBuildRecords.Observe(float64(len(records)))
	return root
}

func aggregate[R Record](n *Node[R]) {
	n.TotalRecords = len(n.Records)
	n.TotalNodes = len(n.Children)
	for _, child := range n.Children {
		aggregate(child)
		n.TotalRecords += child.TotalRecords
		n.TotalNodes += child.TotalNodes
	}
}

// IsLeaf reports whether the node has no children.
func (n *Node[R]) IsLeaf() bool {
	return len(n.Children) == 0
}

// Sorted returns the direct children in display order.
func (n *Node[R]) Sorted(order Order) []*Node[R] {
	out := make([]*Node[R], 0, len(n.Children))
	for _, child := range n.Children {
		out = append(out, child)
	}
	sort.Slice(out, func(i, j int) bool {
		if order == DirsFirst {
			di, dj := !out[i].IsLeaf(), !out[j].IsLeaf()
			if di != dj {
				return di
			}
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Find returns the node at p, or nil. The empty path is the root.
func (n *Node[R]) Find(p string) *Node[R] {
	node := n
	for _, seg := range util.SplitSegments(p) {
		next, ok := node.Children[seg]
		if !ok {
			return nil
		}
		node = next
	}
	return node
}

// Walk visits n and its descendants depth-first in order. Returning false
// from fn skips the node's subtree.
func (n *Node[R]) Walk(order Order, fn func(*Node[R]) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Sorted(order) {
		child.Walk(order, fn)
	}
}

// AllRecords returns every record in the subtree in walk order.
func (n *Node[R]) AllRecords(order Order) []R {
	out := make([]R, 0, n.TotalRecords)
	n.Walk(order, func(node *Node[R]) bool {
		out = append(out, node.Records...)
		return true
	})
	return out
}

// Verify checks the aggregate-count invariant over the whole subtree.
func Verify[R Record](n *Node[R]) error {
	records := len(n.Records)
	nodes := len(n.Children)
	for name, child := range n.Children {
		if child.Name != name {
			return fmt.Errorf("node %q stored under key %q", child.Name, name)
		}
		if err := Verify(child); err != nil {
			return err
		}
		records += child.TotalRecords
		nodes += child.TotalNodes
	}
	if records != n.TotalRecords {
		return fmt.Errorf("node %q: total records %d, subtree has %d", n.Path, n.TotalRecords, records)
	}
	if nodes != n.TotalNodes {
		return fmt.Errorf("node %q: total nodes %d, subtree has %d", n.Path, n.TotalNodes, nodes)
	}
	return nil
}

// Filter keeps records for which match(record, query) holds. An empty query
// keeps everything. A nil match falls back to case-insensitive substring
// search over the record path.
func Filter[R Record](records []R, query string, match func(R, string) bool) []R {
	query = strings.TrimSpace(query)
	if query == "" {
		return records
	}
	if match == nil {
		match = MatchPath[R]
	}
	out := make([]R, 0, len(records))
	for _, rec := range records {
		if match(rec, query) {
			out = append(out, rec)
		}
	}
	return out
}

// MatchPath is the default Filter predicate.
func MatchPath[R Record](rec R, query string) bool {
	return strings.Contains(strings.ToLower(rec.TreePath()), strings.ToLower(query))
}

// BuildFiltered filters then rebuilds.
func BuildFiltered[R Record](records []R, query string, match func(R, string) bool) *Node[R] {
	return Build(Filter(records, query, match))
}

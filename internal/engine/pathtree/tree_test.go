package pathtree

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type rec struct {
	P     string
	Label string
}

func (r rec) TreePath() string { return r.P }

func recs(paths ...string) []rec {
	out := make([]rec, 0, len(paths))
	for _, p := range paths {
		out = append(out, rec{P: p})
	}
	return out
}

func TestBuild_ExampleScenario(t *testing.T) {
	root := Build(recs("/a/b.txt", "/a/c.txt", "/d.txt"))

	if len(root.Children) != 2 {
		t.Fatalf("expected 2 root children, got %d", len(root.Children))
	}
	a := root.Find("a")
	if a == nil || a.TotalRecords != 2 {
		t.Fatalf("expected node a with 2 records, got %+v", a)
	}
	d := root.Find("d.txt")
	if d == nil || d.TotalRecords != 1 {
		t.Fatalf("expected node d.txt with 1 record, got %+v", d)
	}
	if root.TotalRecords != 3 {
		t.Fatalf("expected root total 3, got %d", root.TotalRecords)
	}
	if root.TotalNodes != 4 {
		t.Fatalf("expected 4 descendant nodes, got %d", root.TotalNodes)
	}
	if err := Verify(root); err != nil {
		t.Fatal(err)
	}
}

func TestBuild_SharedPrefixesAndEmptySegments(t *testing.T) {
	root := Build(recs("docs/api/v1", "/docs//api/v2/", "docs", ""))

	docs := root.Find("docs")
	if docs == nil {
		t.Fatal("expected docs node")
	}
	if len(docs.Records) != 1 {
		t.Fatalf("expected one record terminating at docs, got %d", len(docs.Records))
	}
	if docs.TotalRecords != 3 {
		t.Fatalf("expected docs subtree to hold 3 records, got %d", docs.TotalRecords)
	}
	if len(root.Records) != 1 {
		t.Fatalf("expected empty path to terminate at root, got %d", len(root.Records))
	}
	if got := root.Find("docs/api/v2"); got == nil || got.Path != "docs/api/v2" || got.Depth != 3 {
		t.Fatalf("unexpected v2 node %+v", got)
	}
	if root.Find("docs/missing") != nil {
		t.Fatal("expected nil for missing path")
	}
}

func TestBuild_DuplicatePathsKeepInputOrder(t *testing.T) {
	root := Build([]rec{{P: "x/y", Label: "first"}, {P: "x/y", Label: "second"}})
	leaf := root.Find("x/y")
	if len(leaf.Records) != 2 || leaf.Records[0].Label != "first" || leaf.Records[1].Label != "second" {
		t.Fatalf("unexpected records %+v", leaf.Records)
	}
	if DefaultLabel(leaf) != "y (x2)" {
		t.Fatalf("unexpected label %q", DefaultLabel(leaf))
	}
}

func TestBuild_RootTotalEqualsInputCount(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	segments := []string{"a", "b", "C", "docs", "api", "x.txt", "README.md"}
	for trial := 0; trial < 50; trial++ {
		n := rng.Intn(40)
		input := make([]rec, 0, n)
		for i := 0; i < n; i++ {
			depth := rng.Intn(4)
			parts := make([]string, 0, depth)
			for j := 0; j < depth; j++ {
				parts = append(parts, segments[rng.Intn(len(segments))])
			}
			input = append(input, rec{P: "/" + strings.Join(parts, "/")})
		}
		root := Build(input)
		if root.TotalRecords != len(input) {
			t.Fatalf("trial %d: root total %d != input %d", trial, root.TotalRecords, len(input))
		}
		if err := Verify(root); err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	input := recs("/z/1", "/a/2", "/a/b/3", "/B/4", "/a/2")
	first := Build(input)
	second := Build(input)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("rebuild differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(Flatten(first, DirsFirst, nil), Flatten(second, DirsFirst, nil)); diff != "" {
		t.Fatalf("flatten differs:\n%s", diff)
	}
}

func TestSorted_Orders(t *testing.T) {
	root := Build(recs("b.txt", "a/x", "C/y", "A.md"))

	names := func(nodes []*Node[rec]) string {
		parts := make([]string, 0, len(nodes))
		for _, n := range nodes {
			parts = append(parts, n.Name)
		}
		return strings.Join(parts, ",")
	}

	if got := names(root.Sorted(Interleaved)); got != "A.md,C,a,b.txt" {
		t.Fatalf("interleaved order: %s", got)
	}
	if got := names(root.Sorted(DirsFirst)); got != "C,a,A.md,b.txt" {
		t.Fatalf("dirs-first order: %s", got)
	}
}

func TestFlatten_RespectsExpanded(t *testing.T) {
	root := Build(recs("a/b/c", "a/d", "e"))
	rows := Flatten(root, DirsFirst, func(p string) bool { return p == "a" })

	var got []string
	for _, r := range rows {
		got = append(got, strings.Repeat(" ", r.Depth)+r.Node.Name)
	}
	want := []string{"a", " b", " d", "e"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected rows (-want +got):\n%s", diff)
	}
	if !rows[0].Expanded || rows[1].Expanded {
		t.Fatalf("unexpected expanded flags: %+v", rows[:2])
	}
}

func TestFilterAndBuildFiltered(t *testing.T) {
	input := recs("/docs/Intro", "/docs/api", "/blog/post")
	if got := Filter(input, "  ", nil); len(got) != 3 {
		t.Fatalf("empty query must keep all, got %d", len(got))
	}
	root := BuildFiltered(input, "INTRO", nil)
	if root.TotalRecords != 1 || root.Find("docs/Intro") == nil {
		t.Fatalf("unexpected filtered tree: total=%d", root.TotalRecords)
	}

	byLabel := func(r rec, q string) bool { return r.Label == q }
	labelled := []rec{{P: "/x", Label: "keep"}, {P: "/y", Label: "drop"}}
	if got := Filter(labelled, "keep", byLabel); len(got) != 1 || got[0].P != "/x" {
		t.Fatalf("custom match failed: %+v", got)
	}
}

func TestRender(t *testing.T) {
	var sb strings.Builder
	if err := Render(&sb, Build(recs("/a/b.txt", "/a/c.txt", "/d.txt")), DirsFirst, nil); err != nil {
		t.Fatal(err)
	}
	want := "a/ (2 records, 2 nodes)\n  b.txt\n  c.txt\nd.txt\n"
	if sb.String() != want {
		t.Fatalf("unexpected render:\n%s", sb.String())
	}
}

func TestAllRecords(t *testing.T) {
	root := Build(recs("b", "a/x", "a"))
	var got []string
	for _, r := range root.AllRecords(Interleaved) {
		got = append(got, r.P)
	}
	if diff := cmp.Diff([]string{"a", "a/x", "b"}, got); diff != "" {
		t.Fatalf("unexpected order:\n%s", diff)
	}
}

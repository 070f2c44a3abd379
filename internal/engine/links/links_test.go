package links

import (
	"net/url"
	"strings"
	"testing"

	"benchtop/internal/engine/pathtree"
)

const page = `<html><body>
<nav>
  <a href="/docs/intro">Intro</a>
  <a href="/docs/intro#setup">Setup</a>
  <a href="guide/start.html">Start</a>
</nav>
<main>
  <a href="/docs/intro">Introduction</a>
  <a href="/docs/intro">Intro</a>
  <a href="https://other.example/x?y=1">  Other
     site </a>
  <a href="mailto:me@example.com">mail</a>
  <a href="javascript:void(0)">js</a>
  <a href="#top">top</a>
  <a href="/private/keys">secret</a>
  <a href="/img"><img src="a.png" alt="Logo"></a>
</main>
</body></html>`

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestExtract(t *testing.T) {
	base := mustURL(t, "https://example.com/docs/index.html")
	got, err := Extract(base, strings.NewReader(page), Options{
		StripFragments: true,
		Exclude:        []string{"example.com/private/**"},
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	hrefs := make([]string, 0, len(got))
	for _, l := range got {
		hrefs = append(hrefs, l.Href)
	}
	want := []string{
		"https://example.com/docs/intro",
		"https://example.com/docs/guide/start.html",
		"https://other.example/x?y=1",
		"https://example.com/img",
	}
	if strings.Join(hrefs, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected hrefs:\n%s", strings.Join(hrefs, "\n"))
	}

	intro := got[0]
	if intro.Occurrences() != 4 {
		t.Fatalf("expected 4 occurrences of intro, got %d (%v)", intro.Occurrences(), intro.Captions)
	}
	if intro.Caption() != "Intro" {
		t.Fatalf("expected most frequent caption Intro, got %q", intro.Caption())
	}
	if intro.Depth != 2 || intro.TreePath() != "example.com/docs/intro" {
		t.Fatalf("unexpected depth/tree path: %d %q", intro.Depth, intro.TreePath())
	}
	if got[2].Caption() != "Other site" || got[2].Query != "y=1" {
		t.Fatalf("unexpected external link %+v", got[2])
	}
	if got[3].Caption() != "Logo" {
		t.Fatalf("expected image alt caption, got %q", got[3].Caption())
	}
}

func TestExtract_KeepsFragments(t *testing.T) {
	base := mustURL(t, "https://example.com/")
	got, err := Extract(base, strings.NewReader(`<a href="/a#x">1</a><a href="/a#y">2</a><a href="/a">3</a>`), Options{})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected fragment-distinct links, got %d", len(got))
	}
	if got[0].Fragment != "x" {
		t.Fatalf("expected fragment x, got %q", got[0].Fragment)
	}
}

func TestExtract_BadExclude(t *testing.T) {
	_, err := Extract(nil, strings.NewReader(`<a href="/a">a</a>`), Options{Exclude: []string{"[oops"}})
	if err == nil {
		t.Fatal("expected invalid glob to fail")
	}
}

func TestCaption_TieBreak(t *testing.T) {
	l := Link{Captions: map[string]int{"beta": 2, "alpha": 2, "": 5}}
	if l.Caption() != "alpha" {
		t.Fatalf("expected alpha, got %q", l.Caption())
	}
}

func TestCollection_MergeAndTree(t *testing.T) {
	base := mustURL(t, "https://example.com/")
	first, _ := Extract(base, strings.NewReader(`<a href="/a/b">B</a><a href="/a/c">C</a>`), Options{})
	second, _ := Extract(base, strings.NewReader(`<a href="/a/b">Bee</a><a href="/d">D</a>`), Options{})

	c := NewCollection()
	c.Merge(first)
	c.Merge(second)
	if c.Len() != 3 {
		t.Fatalf("expected 3 distinct links, got %d", c.Len())
	}
	merged := c.Links()
	if merged[0].Occurrences() != 2 {
		t.Fatalf("expected merged caption counts, got %v", merged[0].Captions)
	}

	root := pathtree.Build(merged)
	host := root.Find("example.com")
	if host == nil || host.TotalRecords != 3 {
		t.Fatalf("expected host node with 3 records, got %+v", host)
	}
	if a := root.Find("example.com/a"); a == nil || a.TotalRecords != 2 {
		t.Fatalf("expected /a with 2 records, got %+v", a)
	}
	if hosts := c.Hosts(); len(hosts) != 1 || hosts[0] != "example.com" {
		t.Fatalf("unexpected hosts %v", hosts)
	}
}

func TestParse_Title(t *testing.T) {
	doc, err := Parse(nil, strings.NewReader(`<html><head><title> Getting
 started </title></head><body><a href="https://x.dev/a">a</a></body></html>`), Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Title != "Getting started" || len(doc.Links) != 1 {
		t.Fatalf("unexpected document %+v", doc)
	}
}

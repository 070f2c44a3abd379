// Package links extracts deduplicated hyperlink records from HTML pages.
package links

import (
	"io"
	"net/url"
	"sort"
	"strings"

	"benchtop/internal/core/errors"
	"benchtop/internal/shared/util"

	"github.com/gobwas/glob"
	"golang.org/x/net/html"
)

// Link is one distinct href found on a page. It is immutable once
// extracted; repeated occurrences only bump Captions.
type Link struct {
	Href     string         `json:"href"`
	Host     string         `json:"host"`
	Path     string         `json:"path"`
	Segments []string       `json:"segments"`
	Query    string         `json:"query,omitempty"`
	Fragment string         `json:"fragment,omitempty"`
	Captions map[string]int `json:"captions"`
	Depth    int            `json:"depth"`
}

// Caption is the most frequent non-empty display text, ties broken by the
// lexicographically smallest caption.
func (l Link) Caption() string {
	best, count := "", 0
	for caption, n := range l.Captions {
		if caption == "" {
			continue
		}
		if n > count || (n == count && caption < best) {
			best, count = caption, n
		}
	}
	return best
}

// Occurrences is how many anchors pointed at this href.
func (l Link) Occurrences() int {
	total := 0
	for _, n := range l.Captions {
		total += n
	}
	return total
}

func (l Link) TreePath() string {
	return l.Host + "/" + strings.TrimPrefix(l.Path, "/")
}

// Lookup exposes link fields to the filter engine.
func (l Link) Lookup(field string) (any, bool) {
	switch field {
	case "href":
		return l.Href, true
	case "host":
		return l.Host, true
	case "path":
		return l.Path, true
	case "query":
		return l.Query, true
	case "fragment":
		return l.Fragment, true
	case "caption":
		return l.Caption(), true
	case "depth":
		return l.Depth, true
	case "count":
		return l.Occurrences(), true
	}
	return nil, false
}

type Options struct {
	StripFragments bool
	// Exclude holds glob patterns matched against host+path.
	Exclude []string
}

// Document is the part of a parsed page the link views need.
type Document struct {
	Title string
	Links []Link
}

// Extract parses an HTML document and returns its links in order of first
// appearance, resolved against base.
func Extract(base *url.URL, r io.Reader, opts Options) ([]Link, error) {
	doc, err := Parse(base, r, opts)
	if err != nil {
		return nil, err
	}
	return doc.Links, nil
}

// Parse is Extract plus the page title.
func Parse(base *url.URL, r io.Reader, opts Options) (Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return Document{}, errors.Wrap(err, errors.CodeParse, "parse html")
	}
	excludes, err := util.CompileGlobs(opts.Exclude, "links.exclude")
	if err != nil {
		return Document{}, errors.Wrap(err, errors.CodeValidationError, "compile link excludes")
	}

	var doc Document
	c := NewCollection()
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if doc.Title == "" {
					doc.Title = textContent(n)
				}
			case "a":
				if href, ok := attr(n, "href"); ok {
					if link, ok := resolve(base, href, opts.StripFragments); ok && !excluded(excludes, link) {
						c.add(link, textContent(n))
					}
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			traverse(child)
		}
	}
	traverse(root)
	doc.Links = c.Links()
	return doc, nil
}

func excluded(patterns []glob.Glob, l Link) bool {
	return util.MatchAny(patterns, l.TreePath())
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var traverse func(*html.Node)
	traverse = func(node *html.Node) {
		switch {
		case node.Type == html.TextNode:
			sb.WriteString(node.Data)
			sb.WriteString(" ")
		case node.Type == html.ElementNode && node.Data == "img":
			if alt, ok := attr(node, "alt"); ok {
				sb.WriteString(alt)
				sb.WriteString(" ")
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

var skippedSchemes = map[string]bool{
	"javascript": true,
	"mailto":     true,
	"tel":        true,
	"data":       true,
}

func resolve(base *url.URL, href string, stripFragment bool) (Link, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return Link{}, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return Link{}, false
	}
	if skippedSchemes[strings.ToLower(ref.Scheme)] {
		return Link{}, false
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return Link{}, false
	}
	if stripFragment {
		u.Fragment = ""
		u.RawFragment = ""
	}
	// A bare "#top" on the current page resolves to the page itself.
	if stripFragment && base != nil && u.String() == base.String() && strings.HasPrefix(href, "#") {
		return Link{}, false
	}

	segments := util.SplitSegments(u.Path)
	return Link{
		Href:     u.String(),
		Host:     strings.ToLower(u.Host),
		Path:     u.Path,
		Segments: segments,
		Query:    u.RawQuery,
		Fragment: u.Fragment,
		Depth:    len(segments),
	}, true
}

// Collection deduplicates links by href across one or more pages.
type Collection struct {
	order []string
	links map[string]*Link
}

func NewCollection() *Collection {
	return &Collection{links: make(map[string]*Link)}
}

func (c *Collection) add(l Link, caption string) {
	existing, ok := c.links[l.Href]
	if !ok {
		l.Captions = make(map[string]int)
		existing = &l
		c.links[l.Href] = existing
		c.order = append(c.order, l.Href)
	}
	existing.Captions[caption]++
}

// Merge folds links from another page in, summing caption counts.
func (c *Collection) Merge(links []Link) {
	for _, l := range links {
		existing, ok := c.links[l.Href]
		if !ok {
			cp := l
			cp.Captions = make(map[string]int, len(l.Captions))
			for k, v := range l.Captions {
				cp.Captions[k] = v
			}
			c.links[l.Href] = &cp
			c.order = append(c.order, l.Href)
			continue
		}
		for k, v := range l.Captions {
			existing.Captions[k] += v
		}
	}
}

func (c *Collection) Len() int { return len(c.order) }

// Links returns copies in order of first appearance.
func (c *Collection) Links() []Link {
	out := make([]Link, 0, len(c.order))
	for _, href := range c.order {
		l := *c.links[href]
		caps := make(map[string]int, len(l.Captions))
		for k, v := range l.Captions {
			caps[k] = v
		}
		l.Captions = caps
		out = append(out, l)
	}
	return out
}

// Hosts returns the distinct hosts, sorted.
func (c *Collection) Hosts() []string {
	seen := make(map[string]struct{})
	for _, l := range c.links {
		seen[l.Host] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

package browser

import (
	"benchtop/internal/data/github"
)

// State is the coarse lifecycle of a Browser.
type State int

const (
	NoRepository State = iota
	LoadingTree
	TreeReady
	LoadingCommits
	CommitsReady
	Error
)

func (s State) String() string {
	switch s {
	case NoRepository:
		return "no-repository"
	case LoadingTree:
		return "loading-tree"
	case TreeReady:
		return "tree-ready"
	case LoadingCommits:
		return "loading-commits"
	case CommitsReady:
		return "commits-ready"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// ShareLinks are the derived URLs for the selected file. Pinned variants
// use the selected commit; the others follow the default branch.
type ShareLinks struct {
	Latest    string
	Pinned    string
	CDNLatest string
	CDNPinned string
}

func (l ShareLinks) IsZero() bool {
	return l == ShareLinks{}
}

// Compare holds the two revisions of the selected file to diff.
type Compare struct {
	A string
	B string
}

func (c Compare) Ready() bool {
	return c.A != "" && c.B != ""
}

// View is a point-in-time copy of everything a renderer needs.
type View struct {
	State       State
	Repository  github.RepoRef
	Meta        github.Repository
	Branch      string
	Path        string
	Entries     []github.Entry
	File        string
	Commits     []github.Commit
	SHA         string
	Content     []byte
	Stats       *github.CommitStats
	Links       ShareLinks
	Compare     Compare
	FileError   string
	CommitError string
	CanRetry    bool
}

// Breadcrumbs splits Path into its cumulative prefixes, root first.
func (v View) Breadcrumbs() []string {
	if v.Path == "" {
		return nil
	}
	var out []string
	cur := ""
	for _, seg := range splitPath(v.Path) {
		if cur == "" {
			cur = seg
		} else {
			cur += "/" + seg
		}
		out = append(out, cur)
	}
	return out
}

package github

import (
	"net/url"
	"strings"
	"time"

	"benchtop/internal/core/errors"
)

// RepoRef names a repository as owner/name.
type RepoRef struct {
	Owner string
	Name  string
}

func (r RepoRef) String() string {
	return r.Owner + "/" + r.Name
}

func (r RepoRef) IsZero() bool {
	return r.Owner == "" || r.Name == ""
}

// ParseRepo accepts "owner/name" and github.com URLs, with or without a
// trailing ".git".
func ParseRepo(s string) (RepoRef, error) {
	raw := strings.TrimSpace(s)
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return RepoRef{}, errors.Wrap(err, errors.CodeValidationError, "invalid repository url")
		}
		raw = u.Path
	} else if strings.HasPrefix(raw, "github.com/") {
		raw = strings.TrimPrefix(raw, "github.com/")
	}
	parts := strings.Split(strings.Trim(raw, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return RepoRef{}, errors.AddContext(
			errors.New(errors.CodeValidationError, "repository must be owner/name"),
			errors.CtxRepo, s)
	}
	return RepoRef{Owner: parts[0], Name: strings.TrimSuffix(parts[1], ".git")}, nil
}

type Repository struct {
	FullName      string    `json:"full_name"`
	Description   string    `json:"description"`
	DefaultBranch string    `json:"default_branch"`
	HTMLURL       string    `json:"html_url"`
	Private       bool      `json:"private"`
	Stars         int       `json:"stargazers_count"`
	Forks         int       `json:"forks_count"`
	PushedAt      time.Time `json:"pushed_at"`
}

// Entry is one item of a directory listing.
type Entry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	SHA         string `json:"sha"`
	Type        string `json:"type"`
	Size        int64  `json:"size"`
	HTMLURL     string `json:"html_url"`
	DownloadURL string `json:"download_url"`
}

func (e Entry) IsDir() bool {
	return e.Type == "dir"
}

// File is a single blob from the contents API. Content holds the decoded
// bytes.
type File struct {
	Entry
	Encoding string `json:"encoding"`
	Raw      string `json:"content"`
	Content  []byte `json:"-"`
}

type Signature struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Date  time.Time `json:"date"`
}

type User struct {
	Login string `json:"login"`
}

type CommitStats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Total     int `json:"total"`
}

type CommitFile struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Changes   int    `json:"changes"`
}

type Commit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message   string    `json:"message"`
		Author    Signature `json:"author"`
		Committer Signature `json:"committer"`
	} `json:"commit"`
	Author  *User `json:"author"`
	Parents []struct {
		SHA string `json:"sha"`
	} `json:"parents"`
	// Stats and Files are only present on single-commit responses.
	Stats *CommitStats `json:"stats,omitempty"`
	Files []CommitFile `json:"files,omitempty"`
}

func (c Commit) Short() string {
	if len(c.SHA) > 7 {
		return c.SHA[:7]
	}
	return c.SHA
}

// Title is the first line of the commit message.
func (c Commit) Title() string {
	title, _, _ := strings.Cut(c.Commit.Message, "\n")
	return strings.TrimSpace(title)
}

func (c Commit) AuthorName() string {
	if c.Author != nil && c.Author.Login != "" {
		return c.Author.Login
	}
	return c.Commit.Author.Name
}

func (c Commit) Date() time.Time {
	return c.Commit.Author.Date
}

// CommitQuery filters the commit list.
type CommitQuery struct {
	Path    string
	SHA     string
	PerPage int
	Page    int
}

type TreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
	Size int64  `json:"size"`
}

func (e TreeEntry) TreePath() string {
	return e.Path
}

// Tree is a recursive git tree. Truncated is set by GitHub when the
// repository is too large to list in one response.
type Tree struct {
	SHA       string      `json:"sha"`
	Truncated bool        `json:"truncated"`
	Entries   []TreeEntry `json:"tree"`
}

// Blobs returns only the file entries.
func (t Tree) Blobs() []TreeEntry {
	out := make([]TreeEntry, 0, len(t.Entries))
	for _, e := range t.Entries {
		if e.Type == "blob" {
			out = append(out, e)
		}
	}
	return out
}

// RateLimit is the quota reported by the most recent response.
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

package ports

import (
	"context"
	"io"

	"benchtop/internal/data/github"
	"benchtop/internal/data/items"
)

// FetchedPage is one HTTP response as the crawler sees it.
type FetchedPage struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// PageFetcher abstracts page retrieval for the documentation crawler.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (FetchedPage, error)
}

// RepositoryReader is the read-only GitHub surface the repository browser
// drives. Responses may be served from an in-session cache.
type RepositoryReader interface {
	Repository(ctx context.Context, repo github.RepoRef) (github.Repository, error)
	Contents(ctx context.Context, repo github.RepoRef, path, ref string) ([]github.Entry, error)
	File(ctx context.Context, repo github.RepoRef, path, ref string) (github.File, error)
	Commits(ctx context.Context, repo github.RepoRef, q github.CommitQuery) ([]github.Commit, error)
	Commit(ctx context.Context, repo github.RepoRef, sha string) (github.Commit, error)
	Tree(ctx context.Context, repo github.RepoRef, ref string) (github.Tree, error)
	ClearCache()
}

// ItemStore abstracts persistence of user items.
type ItemStore interface {
	Create(ctx context.Context, item items.Item) (items.Item, error)
	Get(ctx context.Context, id string) (items.Item, error)
	Update(ctx context.Context, item items.Item) (items.Item, error)
	Save(ctx context.Context, item items.Item) (items.Item, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]items.Item, error)
	ListAutorun(ctx context.Context) ([]items.Item, error)
	ReplaceAll(ctx context.Context, all []items.Item) error
	Export(ctx context.Context, w io.Writer, format items.Format) error
	Import(ctx context.Context, r io.Reader, format items.Format, replace bool) (int, error)
	Backup(ctx context.Context, path string) error
	Restore(ctx context.Context, path string) (int, error)
	Close() error
}

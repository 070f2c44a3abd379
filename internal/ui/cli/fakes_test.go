package cli

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	coreapp "benchtop/internal/core/app"
	"benchtop/internal/core/config"
	"benchtop/internal/core/errors"
	"benchtop/internal/core/ports"
	"benchtop/internal/data/github"

	"github.com/stretchr/testify/require"
)

// staticRepo serves a small fixed repository: README.md and docs/guide.md,
// where README.md has two commits.
type staticRepo struct {
	files map[string]string // "path@sha" -> content
}

func newStaticRepo() *staticRepo {
	return &staticRepo{files: map[string]string{
		"README.md@bbbbbbbbbb": "# Hello\n\nsecond\n",
		"README.md@aaaaaaaaaa": "# Hello\n\nfirst\n",
		"docs/guide.md@cccccccccc": "guide\n",
	}}
}

func (r *staticRepo) Repository(ctx context.Context, repo github.RepoRef) (github.Repository, error) {
	if repo.String() != "octo/hello" {
		return github.Repository{}, errors.New(errors.CodeNotFound, "repository "+repo.String())
	}
	return github.Repository{FullName: "octo/hello", DefaultBranch: "main", Description: "test repo"}, nil
}

func (r *staticRepo) Contents(ctx context.Context, repo github.RepoRef, p, ref string) ([]github.Entry, error) {
	switch p {
	case "":
		return []github.Entry{
			{Name: "README.md", Path: "README.md", Type: "file", Size: 18},
			{Name: "docs", Path: "docs", Type: "dir"},
		}, nil
	case "docs":
		return []github.Entry{{Name: "guide.md", Path: "docs/guide.md", Type: "file", Size: 6}}, nil
	}
	return nil, errors.New(errors.CodeNotFound, p)
}

func (r *staticRepo) File(ctx context.Context, repo github.RepoRef, p, ref string) (github.File, error) {
	body, ok := r.files[p+"@"+ref]
	if !ok {
		return github.File{}, errors.New(errors.CodeNotFound, p+"@"+ref)
	}
	return github.File{Entry: github.Entry{Name: path.Base(p), Path: p, Type: "file", Size: int64(len(body))}, Content: []byte(body)}, nil
}

func (r *staticRepo) Commits(ctx context.Context, repo github.RepoRef, q github.CommitQuery) ([]github.Commit, error) {
	var out []github.Commit
	for key := range r.files {
		file, sha, _ := strings.Cut(key, "@")
		if file == q.Path {
			out = append(out, testCommit(sha))
		}
	}
	// newest first
	sort.Slice(out, func(i, j int) bool { return out[i].SHA > out[j].SHA })
	return out, nil
}

func (r *staticRepo) Commit(ctx context.Context, repo github.RepoRef, sha string) (github.Commit, error) {
	c := testCommit(sha)
	c.Stats = &github.CommitStats{Additions: 1, Deletions: 1, Total: 2}
	return c, nil
}

func (r *staticRepo) Tree(ctx context.Context, repo github.RepoRef, ref string) (github.Tree, error) {
	return github.Tree{SHA: "tree", Entries: []github.TreeEntry{
		{Path: "README.md", Type: "blob"},
		{Path: "docs", Type: "tree"},
		{Path: "docs/guide.md", Type: "blob"},
	}}, nil
}

func (r *staticRepo) ClearCache() {}

func testCommit(sha string) github.Commit {
	var c github.Commit
	c.SHA = sha
	c.Commit.Message = "change " + sha[:3] + "\n\nbody"
	c.Commit.Author = github.Signature{Name: "Ada", Date: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	return c
}

type staticSite map[string]string

func (s staticSite) Fetch(ctx context.Context, rawURL string) (ports.FetchedPage, error) {
	body, ok := s[rawURL]
	if !ok {
		return ports.FetchedPage{}, errors.New(errors.CodeNotFound, rawURL)
	}
	return ports.FetchedPage{URL: rawURL, StatusCode: 200, ContentType: "text/html", Body: []byte(body)}, nil
}

var testSite = staticSite{
	"https://docs.test/": `<html><head><title>Home</title></head><body>
		<a href="/guide/">Guide</a>
		<a href="/guide/install">Install</a>
		<a href="https://elsewhere.test/blog">Blog</a></body></html>`,
	"https://docs.test/guide/":        `<html><head><title>Guide</title></head><body><a href="/guide/install">Install</a></body></html>`,
	"https://docs.test/guide/install": `<html><head><title>Install</title></head><body><a href="/">Home</a></body></html>`,
}

// writeTestConfig writes a config whose state lives under a temp dir.
func writeTestConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	body := "version = 1\n\n[paths]\nstate_dir = \"" + dir + "\"\n" + extra
	p := filepath.Join(dir, "benchtop.toml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func newTestApp(t *testing.T, cfg *config.Config) *coreapp.App {
	t.Helper()
	dir := t.TempDir()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg.Paths.StateDir = dir
	cfg.Crawler.RequestsPerSecond = 0
	paths, err := config.ResolvePaths(cfg, dir)
	require.NoError(t, err)
	a, err := coreapp.New(cfg, paths, coreapp.WithRepositoryReader(newStaticRepo()), coreapp.WithFetcher(testSite))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// Package browser drives the repository file and commit panels. All state
// lives on a Browser value; operations may be issued from concurrent
// goroutines and a response that arrives after a newer selection on the
// same panel is dropped.
package browser

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"

	"benchtop/internal/core/errors"
	"benchtop/internal/core/ports"
	"benchtop/internal/data/github"
	"benchtop/internal/engine/diff"
	"benchtop/internal/engine/pathtree"
)

type Options struct {
	WebBaseURL     string
	CDNBaseURL     string
	CommitsPerPage int
	DiffContext    int
	Diff           *diff.Engine
}

func DefaultOptions() Options {
	return Options{
		WebBaseURL:     "https://github.com",
		CDNBaseURL:     "https://cdn.jsdelivr.net/gh",
		CommitsPerPage: 30,
		DiffContext:    3,
	}
}

type Browser struct {
	reader ports.RepositoryReader
	opts   Options

	mu   sync.Mutex
	view View
	// generation counters, one per panel
	fileGen   uint64
	commitGen uint64

	fileLoading   bool
	commitLoading bool
	commitsLoaded bool

	commits     map[string]github.Commit
	retryFile   func(context.Context) error
	retryCommit func(context.Context) error
}

func New(reader ports.RepositoryReader, opts Options) *Browser {
	def := DefaultOptions()
	if opts.WebBaseURL == "" {
		opts.WebBaseURL = def.WebBaseURL
	}
	if opts.CDNBaseURL == "" {
		opts.CDNBaseURL = def.CDNBaseURL
	}
	if opts.CommitsPerPage <= 0 {
		opts.CommitsPerPage = def.CommitsPerPage
	}
	if opts.DiffContext < 0 {
		opts.DiffContext = def.DiffContext
	}
	if opts.Diff == nil {
		opts.Diff = diff.NewEngine(16)
	}
	opts.WebBaseURL = strings.TrimRight(opts.WebBaseURL, "/")
	opts.CDNBaseURL = strings.TrimRight(opts.CDNBaseURL, "/")
	return &Browser{
		reader:  reader,
		opts:    opts,
		commits: make(map[string]github.Commit),
	}
}

// Snapshot returns a copy of the current view state.
func (b *Browser) Snapshot() View {
	b.mu.Lock()
	defer b.mu.Unlock()

	v := b.view
	v.State = b.stateLocked()
	v.Entries = append([]github.Entry(nil), b.view.Entries...)
	v.Commits = append([]github.Commit(nil), b.view.Commits...)
	v.Content = append([]byte(nil), b.view.Content...)
	if b.view.Stats != nil {
		stats := *b.view.Stats
		v.Stats = &stats
	}
	v.CanRetry = (v.FileError != "" && b.retryFile != nil) || (v.CommitError != "" && b.retryCommit != nil)
	return v
}

func (b *Browser) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Browser) stateLocked() State {
	switch {
	case b.view.Repository.IsZero():
		return NoRepository
	case b.fileLoading:
		return LoadingTree
	case b.commitLoading:
		return LoadingCommits
	case b.view.FileError != "" || b.view.CommitError != "":
		return Error
	case b.commitsLoaded:
		return CommitsReady
	default:
		return TreeReady
	}
}

// SelectRepository switches to repo, dropping every cache and all panel
// state, then loads the repository metadata and its root listing.
func (b *Browser) SelectRepository(ctx context.Context, repo github.RepoRef) error {
	if repo.IsZero() {
		return errors.New(errors.CodeValidationError, "repository must be owner/name")
	}
	b.reader.ClearCache()
	b.opts.Diff.ClearCache()

	b.mu.Lock()
	b.fileGen++
	b.commitGen++
	gen := b.fileGen
	b.view = View{Repository: repo}
	b.commits = make(map[string]github.Commit)
	b.fileLoading, b.commitLoading, b.commitsLoaded = true, false, false
	b.retryFile, b.retryCommit = nil, nil
	b.mu.Unlock()

	slog.Info("selecting repository", "repo", repo.String())

	meta, err := b.reader.Repository(ctx, repo)
	var entries []github.Entry
	if err == nil {
		entries, err = b.reader.Contents(ctx, repo, "", meta.DefaultBranch)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.fileGen {
		// A newer listing superseded the root one; keep the metadata if it
		// still belongs to the current repository.
		if err == nil && b.view.Repository == repo && b.view.Branch == "" {
			b.view.Meta = meta
			b.view.Branch = meta.DefaultBranch
		}
		slog.Debug("dropping stale repository response", "repo", repo.String())
		return nil
	}
	b.fileLoading = false
	if err != nil {
		b.failFilesLocked(err, func(ctx context.Context) error { return b.SelectRepository(ctx, repo) })
		return err
	}
	b.view.Meta = meta
	b.view.Branch = meta.DefaultBranch
	b.view.Entries = sortEntries(entries)
	b.retryFile = nil
	return nil
}

// SelectPath lists the directory p. The commit panel is left untouched.
func (b *Browser) SelectPath(ctx context.Context, p string) error {
	p = cleanPath(p)

	b.mu.Lock()
	repo, branch := b.view.Repository, b.view.Branch
	if repo.IsZero() {
		b.mu.Unlock()
		return errors.New(errors.CodeValidationError, "no repository selected")
	}
	b.fileGen++
	gen := b.fileGen
	b.view.Path = p
	b.view.FileError = ""
	b.fileLoading = true
	b.mu.Unlock()

	entries, err := b.reader.Contents(ctx, repo, p, branch)

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.fileGen {
		slog.Debug("dropping stale listing", "repo", repo.String(), "path", p)
		return nil
	}
	b.fileLoading = false
	if err != nil {
		b.failFilesLocked(err, func(ctx context.Context) error { return b.SelectPath(ctx, p) })
		return err
	}
	b.view.Entries = sortEntries(entries)
	b.retryFile = nil
	return nil
}

// SelectFile loads the commits touching p and pins the newest one.
func (b *Browser) SelectFile(ctx context.Context, p string) error {
	p = cleanPath(p)
	if p == "" {
		return errors.New(errors.CodeValidationError, "file path is required")
	}

	b.mu.Lock()
	repo, branch := b.view.Repository, b.view.Branch
	if repo.IsZero() {
		b.mu.Unlock()
		return errors.New(errors.CodeValidationError, "no repository selected")
	}
	gen := b.resetCommitPanelLocked()
	b.view.File = p
	b.view.Commits = nil
	b.view.Compare = Compare{}
	b.commitsLoaded = false
	b.mu.Unlock()

	commits, err := b.reader.Commits(ctx, repo, github.CommitQuery{Path: p, SHA: branch, PerPage: b.opts.CommitsPerPage})
	if err == nil && len(commits) == 0 {
		err = errors.AddContext(errors.New(errors.CodeNotFound, "no commits for "+p), errors.CtxPath, p)
	}

	b.mu.Lock()
	if gen != b.commitGen {
		b.mu.Unlock()
		slog.Debug("dropping stale commit list", "repo", repo.String(), "path", p)
		return nil
	}
	if err != nil {
		b.commitLoading = false
		b.failCommitsLocked(err, func(ctx context.Context) error { return b.SelectFile(ctx, p) })
		b.mu.Unlock()
		return err
	}
	b.view.Commits = commits
	b.view.SHA = commits[0].SHA
	b.commitsLoaded = true
	b.mu.Unlock()

	return b.loadRevision(ctx, gen, repo, p, commits[0].SHA)
}

// SelectCommit moves the commit pointer to sha and reloads the selected
// file at that revision.
func (b *Browser) SelectCommit(ctx context.Context, sha string) error {
	sha = strings.TrimSpace(sha)
	if sha == "" {
		return errors.New(errors.CodeValidationError, "commit sha is required")
	}

	b.mu.Lock()
	repo, file := b.view.Repository, b.view.File
	if repo.IsZero() || file == "" {
		b.mu.Unlock()
		return errors.New(errors.CodeValidationError, "no file selected")
	}
	gen := b.resetCommitPanelLocked()
	b.view.SHA = sha
	b.mu.Unlock()

	return b.loadRevision(ctx, gen, repo, file, sha)
}

// resetCommitPanelLocked starts a new commit-panel generation and clears
// the file content tied to the previous commit pointer.
func (b *Browser) resetCommitPanelLocked() uint64 {
	b.commitGen++
	b.view.SHA = ""
	b.view.Content = nil
	b.view.Stats = nil
	b.view.Links = ShareLinks{}
	b.view.CommitError = ""
	b.commitLoading = true
	return b.commitGen
}

func (b *Browser) loadRevision(ctx context.Context, gen uint64, repo github.RepoRef, file, sha string) error {
	f, err := b.reader.File(ctx, repo, file, sha)
	var commit github.Commit
	if err == nil {
		commit, err = b.commitDetail(ctx, repo, sha)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.commitGen {
		slog.Debug("dropping stale revision", "repo", repo.String(), "path", file, "sha", sha)
		return nil
	}
	b.commitLoading = false
	if err != nil {
		b.failCommitsLocked(err, func(ctx context.Context) error { return b.SelectCommit(ctx, sha) })
		return err
	}
	b.view.Content = f.Content
	b.view.Stats = commit.Stats
	b.view.Links = shareLinks(b.opts, repo, b.view.Branch, file, sha)
	b.retryCommit = nil
	return nil
}

// commitDetail serves single-commit responses from the commit cache.
func (b *Browser) commitDetail(ctx context.Context, repo github.RepoRef, sha string) (github.Commit, error) {
	b.mu.Lock()
	c, ok := b.commits[sha]
	b.mu.Unlock()
	if ok {
		return c, nil
	}

	c, err := b.reader.Commit(ctx, repo, sha)
	if err != nil {
		return github.Commit{}, err
	}

	b.mu.Lock()
	if b.view.Repository == repo {
		b.commits[sha] = c
	}
	b.mu.Unlock()
	return c, nil
}

// SetCompare records the two revisions Compare diffs. Either side may be
// cleared with an empty string.
func (b *Browser) SetCompare(a, c string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.view.File == "" {
		return errors.New(errors.CodeValidationError, "no file selected")
	}
	b.view.Compare = Compare{A: strings.TrimSpace(a), B: strings.TrimSpace(c)}
	return nil
}

// Compare diffs the selected file between the two compare revisions. A
// side where the file does not exist diffs as empty.
func (b *Browser) Compare(ctx context.Context) (diff.FileDiff, error) {
	b.mu.Lock()
	repo, file, cmp := b.view.Repository, b.view.File, b.view.Compare
	b.mu.Unlock()

	if file == "" {
		return diff.FileDiff{}, errors.New(errors.CodeValidationError, "no file selected")
	}
	if !cmp.Ready() {
		return diff.FileDiff{}, errors.New(errors.CodeValidationError, "both compare revisions are required")
	}

	oldContent, err := b.contentAt(ctx, repo, file, cmp.A)
	if err != nil {
		return diff.FileDiff{}, err
	}
	newContent, err := b.contentAt(ctx, repo, file, cmp.B)
	if err != nil {
		return diff.FileDiff{}, err
	}
	return b.opts.Diff.Compute(file+"@"+shortSHA(cmp.A), file+"@"+shortSHA(cmp.B), oldContent, newContent, b.opts.DiffContext), nil
}

func (b *Browser) contentAt(ctx context.Context, repo github.RepoRef, file, ref string) (string, error) {
	f, err := b.reader.File(ctx, repo, file, ref)
	if errors.IsCode(err, errors.CodeNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.AddContext(err, errors.CtxSHA, ref)
	}
	return string(f.Content), nil
}

// RepositoryTree builds the full file tree of the current branch.
func (b *Browser) RepositoryTree(ctx context.Context) (*pathtree.Node[github.TreeEntry], error) {
	b.mu.Lock()
	repo, branch := b.view.Repository, b.view.Branch
	b.mu.Unlock()
	if repo.IsZero() {
		return nil, errors.New(errors.CodeValidationError, "no repository selected")
	}
	if branch == "" {
		branch = "HEAD"
	}
	tree, err := b.reader.Tree(ctx, repo, branch)
	if err != nil {
		return nil, err
	}
	return pathtree.Build(tree.Blobs()), nil
}

// Retry re-issues the last failed action, file panel first.
func (b *Browser) Retry(ctx context.Context) error {
	b.mu.Lock()
	var retry func(context.Context) error
	switch {
	case b.view.FileError != "" && b.retryFile != nil:
		retry = b.retryFile
	case b.view.CommitError != "" && b.retryCommit != nil:
		retry = b.retryCommit
	}
	b.mu.Unlock()

	if retry == nil {
		return errors.New(errors.CodeValidationError, "nothing to retry")
	}
	return retry(ctx)
}

func (b *Browser) failFilesLocked(err error, retry func(context.Context) error) {
	slog.Warn("file panel request failed", "repo", b.view.Repository.String(), "path", b.view.Path, "error", err)
	b.view.FileError = errors.Short(err)
	b.retryFile = retry
}

func (b *Browser) failCommitsLocked(err error, retry func(context.Context) error) {
	slog.Warn("commit panel request failed", "repo", b.view.Repository.String(), "path", b.view.File, "error", err)
	b.view.CommitError = errors.Short(err)
	b.retryCommit = retry
}

func shareLinks(opts Options, repo github.RepoRef, branch, file, sha string) ShareLinks {
	if branch == "" {
		branch = "HEAD"
	}
	p := escapePath(file)
	return ShareLinks{
		Latest:    opts.WebBaseURL + "/" + repo.String() + "/blob/" + url.PathEscape(branch) + "/" + p,
		Pinned:    opts.WebBaseURL + "/" + repo.String() + "/blob/" + sha + "/" + p,
		CDNLatest: opts.CDNBaseURL + "/" + repo.String() + "@" + url.PathEscape(branch) + "/" + p,
		CDNPinned: opts.CDNBaseURL + "/" + repo.String() + "@" + sha + "/" + p,
	}
}

// sortEntries lists directories before files, then by name.
func sortEntries(entries []github.Entry) []github.Entry {
	out := append([]github.Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsDir() != out[j].IsDir() {
			return out[i].IsDir()
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func cleanPath(p string) string {
	return strings.Join(splitPath(p), "/")
}

func splitPath(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func escapePath(p string) string {
	segs := splitPath(p)
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

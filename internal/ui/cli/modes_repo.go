package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	coreapp "benchtop/internal/core/app"
	"benchtop/internal/core/browser"
	"benchtop/internal/data/github"
	"benchtop/internal/engine/diff"
	"benchtop/internal/engine/pathtree"
	"benchtop/internal/engine/viewer"

	"github.com/dustin/go-humanize"
)

type repoReport struct {
	Repository string              `json:"repository" yaml:"repository"`
	Branch     string              `json:"branch" yaml:"branch"`
	Path       string              `json:"path,omitempty" yaml:"path,omitempty"`
	Entries    []github.Entry      `json:"entries,omitempty" yaml:"entries,omitempty"`
	File       string              `json:"file,omitempty" yaml:"file,omitempty"`
	SHA        string              `json:"sha,omitempty" yaml:"sha,omitempty"`
	Commits    []commitSummary     `json:"commits,omitempty" yaml:"commits,omitempty"`
	Stats      *github.CommitStats `json:"stats,omitempty" yaml:"stats,omitempty"`
	Links      *browser.ShareLinks `json:"links,omitempty" yaml:"links,omitempty"`
	Diff       string              `json:"diff,omitempty" yaml:"diff,omitempty"`
}

type commitSummary struct {
	SHA    string    `json:"sha" yaml:"sha"`
	Title  string    `json:"title" yaml:"title"`
	Author string    `json:"author" yaml:"author"`
	Date   time.Time `json:"date" yaml:"date"`
}

func runRepoMode(ctx context.Context, w io.Writer, a *coreapp.App, opts cliOptions) error {
	repo, err := github.ParseRepo(opts.repo)
	if err != nil {
		return err
	}
	b := a.Browser
	if err := b.SelectRepository(ctx, repo); err != nil {
		return err
	}

	if opts.tree {
		root, err := b.RepositoryTree(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s (%d files)\n", repo, root.TotalRecords)
		return pathtree.Render(w, root, treeOrder(a.Config), nil)
	}

	if opts.path != "" {
		if err := b.SelectPath(ctx, opts.path); err != nil {
			return err
		}
	}

	var fileDiff *diff.FileDiff
	if opts.file != "" {
		if err := b.SelectFile(ctx, opts.file); err != nil {
			return err
		}
		if opts.sha != "" {
			if err := b.SelectCommit(ctx, opts.sha); err != nil {
				return err
			}
		}
		if opts.compare != "" {
			from, to, _ := strings.Cut(opts.compare, ":")
			if err := b.SetCompare(from, to); err != nil {
				return err
			}
			d, err := b.Compare(ctx)
			if err != nil {
				return err
			}
			fileDiff = &d
		}
	}

	v := b.Snapshot()
	if opts.format != formatText {
		return encode(w, opts.format, buildRepoReport(v, fileDiff))
	}
	return printRepo(ctx, w, a, v, fileDiff)
}

func buildRepoReport(v browser.View, d *diff.FileDiff) repoReport {
	r := repoReport{
		Repository: v.Repository.String(),
		Branch:     v.Branch,
		Path:       v.Path,
		File:       v.File,
		SHA:        v.SHA,
		Stats:      v.Stats,
	}
	if v.File == "" {
		r.Entries = v.Entries
	}
	for _, c := range v.Commits {
		r.Commits = append(r.Commits, commitSummary{SHA: c.SHA, Title: c.Title(), Author: c.AuthorName(), Date: c.Date()})
	}
	if !v.Links.IsZero() {
		links := v.Links
		r.Links = &links
	}
	if d != nil {
		r.Diff = d.Unified()
	}
	return r
}

func printRepo(ctx context.Context, w io.Writer, a *coreapp.App, v browser.View, d *diff.FileDiff) error {
	fmt.Fprintf(w, "%s (%s)", v.Repository, v.Branch)
	if v.Meta.Description != "" {
		fmt.Fprintf(w, " - %s", v.Meta.Description)
	}
	fmt.Fprintln(w)

	if v.File == "" {
		fmt.Fprintf(w, "/%s\n", v.Path)
		for _, e := range v.Entries {
			if e.IsDir() {
				fmt.Fprintf(w, "  %s/\n", e.Name)
				continue
			}
			fmt.Fprintf(w, "  %-40s %s\n", e.Name, humanize.Bytes(uint64(e.Size)))
		}
		return nil
	}

	fmt.Fprintf(w, "%s @ %s\n", v.File, shortRef(v.SHA))
	for _, c := range v.Commits {
		marker := " "
		if c.SHA == v.SHA {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s %s (%s, %s)\n", marker, c.Short(), c.Title(), c.AuthorName(), humanize.Time(c.Date()))
	}
	if v.Stats != nil {
		fmt.Fprintf(w, "+%d -%d\n", v.Stats.Additions, v.Stats.Deletions)
	}
	if !v.Links.IsZero() {
		fmt.Fprintf(w, "view:   %s\npinned: %s\ncdn:    %s\ncdn@:   %s\n", v.Links.Latest, v.Links.Pinned, v.Links.CDNLatest, v.Links.CDNPinned)
	}

	if d != nil {
		fmt.Fprintln(w)
		s := d.Stats()
		fmt.Fprintf(w, "%s vs %s: +%d -%d\n", d.OldPath, d.NewPath, s.Added, s.Removed)
		fmt.Fprint(w, d.Unified())
		return nil
	}

	view, err := a.Viewer().Render(ctx, viewer.File{Path: v.File, SHA: v.SHA, Content: v.Content}, 100)
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, view.Body)
	return nil
}

func shortRef(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

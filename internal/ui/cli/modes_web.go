package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	coreapp "benchtop/internal/core/app"
	"benchtop/internal/core/config"
	"benchtop/internal/engine/crawler"
	"benchtop/internal/engine/filter"
	"benchtop/internal/engine/links"
	"benchtop/internal/engine/pathtree"
)

type linkSummary struct {
	Href        string `json:"href" yaml:"href"`
	Caption     string `json:"caption,omitempty" yaml:"caption,omitempty"`
	Occurrences int    `json:"occurrences" yaml:"occurrences"`
}

func treeOrder(cfg *config.Config) pathtree.Order {
	if config.Enabled(cfg.Links.DirsFirst) {
		return pathtree.DirsFirst
	}
	return pathtree.Interleaved
}

func runLinksMode(ctx context.Context, w io.Writer, a *coreapp.App, opts cliOptions, set *filter.Set) error {
	doc, err := a.Links(ctx, opts.links)
	if err != nil {
		return err
	}
	res := filter.Apply(set, doc.Links)

	if opts.format != formatText {
		out := make([]linkSummary, 0, res.Count)
		for _, l := range res.Items {
			out = append(out, linkSummary{Href: l.Href, Caption: l.Caption(), Occurrences: l.Occurrences()})
		}
		return encode(w, opts.format, out)
	}

	if doc.Title != "" {
		fmt.Fprintln(w, doc.Title)
	}
	root := pathtree.Build(res.Items)
	if err := pathtree.Render(w, root, treeOrder(a.Config), linkLabel); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d of %d links", res.Count, res.Total)
	if desc := describeFilters(set); desc != "" {
		fmt.Fprintf(w, " matching %s", desc)
	}
	fmt.Fprintln(w)
	return nil
}

func linkLabel(n *pathtree.Node[links.Link]) string {
	if len(n.Records) == 1 && n.IsLeaf() {
		if caption := n.Records[0].Caption(); caption != "" {
			return fmt.Sprintf("%s  %q", n.Name, caption)
		}
	}
	return pathtree.DefaultLabel(n)
}

type crawlReport struct {
	Pages  []crawler.Page    `json:"pages" yaml:"pages"`
	Links  int               `json:"links" yaml:"links"`
	Errors map[string]string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func runCrawlMode(ctx context.Context, w io.Writer, a *coreapp.App, opts cliOptions, set *filter.Set) error {
	copts := a.CrawlerOptions()
	if opts.depth >= 0 {
		copts.MaxDepth = opts.depth
	}
	if opts.pages > 0 {
		copts.MaxPages = opts.pages
	}

	res, err := a.Crawl(ctx, opts.crawl, copts)
	if err != nil {
		return err
	}
	pages := filter.Apply(set, res.Pages)

	if opts.format != formatText {
		return encode(w, opts.format, crawlReport{Pages: pages.Items, Links: len(res.Links), Errors: res.Errors})
	}

	root := pathtree.Build(pages.Items)
	if err := pathtree.Render(w, root, treeOrder(a.Config), pageLabel); err != nil {
		return err
	}

	if len(res.Errors) > 0 {
		fmt.Fprintln(w, "errors:")
		urls := make([]string, 0, len(res.Errors))
		for u := range res.Errors {
			urls = append(urls, u)
		}
		sort.Strings(urls)
		for _, u := range urls {
			fmt.Fprintf(w, "  %s: %s\n", u, res.Errors[u])
		}
	}
	fmt.Fprintf(w, "%d of %d pages, %d links\n", pages.Count, pages.Total, len(res.Links))
	return nil
}

// Package crawler walks documentation sites breadth-first and collects
// their pages and links.
package crawler

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"benchtop/internal/core/errors"
	"benchtop/internal/core/ports"
	"benchtop/internal/engine/links"
	"benchtop/internal/shared/observability"
	"benchtop/internal/shared/util"

	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	MaxPages int
	// MaxDepth 0 visits only the start page.
	MaxDepth          int
	Concurrency       int
	RequestsPerSecond float64
	SameHost          bool
	// PathPrefix limits the crawl to URLs under this path on the start host.
	PathPrefix string
	// PrefixFromStart uses the start URL's directory when PathPrefix is empty.
	PrefixFromStart bool
	Include         []string
	Exclude         []string
	StripFragments  bool
}

func DefaultOptions() Options {
	return Options{
		MaxPages:          200,
		MaxDepth:          5,
		Concurrency:       4,
		RequestsPerSecond: 2,
		SameHost:          true,
		StripFragments:    true,
	}
}

// Page is one visited URL.
type Page struct {
	URL        string    `json:"url"`
	Host       string    `json:"host"`
	Path       string    `json:"path"`
	Title      string    `json:"title,omitempty"`
	Depth      int       `json:"depth"`
	StatusCode int       `json:"status_code,omitempty"`
	LinkCount  int       `json:"link_count"`
	Err        string    `json:"error,omitempty"`
	FetchedAt  time.Time `json:"fetched_at"`
}

func (p Page) TreePath() string {
	return p.Host + "/" + strings.TrimPrefix(p.Path, "/")
}

func (p Page) Lookup(field string) (any, bool) {
	switch field {
	case "url":
		return p.URL, true
	case "host":
		return p.Host, true
	case "path":
		return p.Path, true
	case "title":
		return p.Title, true
	case "depth":
		return p.Depth, true
	case "status":
		return p.StatusCode, true
	case "links":
		return p.LinkCount, true
	case "error":
		return p.Err, true
	case "fetched":
		return p.FetchedAt, true
	}
	return nil, false
}

type Result struct {
	Pages []Page
	// Links is every distinct link seen on any page, in discovery order.
	Links []links.Link
	// Errors maps a page URL to a short failure message.
	Errors map[string]string
}

type Crawler struct {
	fetcher  ports.PageFetcher
	opts     Options
	include  []glob.Glob
	exclude  []glob.Glob
	limiters *util.LimiterRegistry
}

// New validates opts and starts the per-host rate limiter registry.
// Callers must Close the crawler.
func New(fetcher ports.PageFetcher, opts Options) (*Crawler, error) {
	if fetcher == nil {
		return nil, errors.New(errors.CodeValidationError, "crawler requires a page fetcher")
	}
	def := DefaultOptions()
	if opts.MaxPages <= 0 {
		opts.MaxPages = def.MaxPages
	}
	if opts.MaxDepth < 0 {
		opts.MaxDepth = 0
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = def.Concurrency
	}
	include, err := util.CompileGlobs(opts.Include, "crawler.include")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "compile crawler include")
	}
	exclude, err := util.CompileGlobs(opts.Exclude, "crawler.exclude")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "compile crawler exclude")
	}
	return &Crawler{
		fetcher:  fetcher,
		opts:     opts,
		include:  include,
		exclude:  exclude,
		limiters: util.NewLimiterRegistry(opts.RequestsPerSecond, 1, 5*time.Minute),
	}, nil
}

func (c *Crawler) Close() {
	c.limiters.Close()
}

type queued struct {
	url   *url.URL
	depth int
}

type visit struct {
	page  Page
	links []links.Link
}

// Crawl visits start and then, level by level, every in-scope link until
// MaxDepth or MaxPages is reached. Fetch failures are recorded per page and
// never abort the crawl; only context cancellation does.
func (c *Crawler) Crawl(ctx context.Context, start string) (Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "crawler.Crawl")
	defer span.End()
	span.SetAttributes(attribute.String("crawler.start", start))

	startedAt := time.Now()
	defer func() { observability.CrawlDuration.Observe(time.Since(startedAt).Seconds()) }()

	root, err := url.Parse(strings.TrimSpace(start))
	if err != nil || root.Host == "" || (root.Scheme != "http" && root.Scheme != "https") {
		return Result{}, errors.AddContext(
			errors.New(errors.CodeValidationError, "crawl start must be an absolute http(s) URL"),
			errors.CtxURL, start)
	}
	if c.opts.StripFragments {
		root.Fragment = ""
	}
	prefix := c.opts.PathPrefix
	if prefix == "" && c.opts.PrefixFromStart {
		prefix = startDir(root.Path)
	}

	res := Result{Errors: make(map[string]string)}
	all := links.NewCollection()
	seen := map[string]bool{root.String(): true}
	frontier := []queued{{url: root, depth: 0}}

	for len(frontier) > 0 {
		visits, err := c.fetchLevel(ctx, frontier)
		if err != nil {
			return res, err
		}

		var next []queued
		for _, v := range visits {
			res.Pages = append(res.Pages, v.page)
			if v.page.Err != "" {
				res.Errors[v.page.URL] = v.page.Err
			}
			all.Merge(v.links)
			if v.page.Depth >= c.opts.MaxDepth {
				continue
			}
			for _, l := range v.links {
				if len(seen) >= c.opts.MaxPages {
					break
				}
				if seen[l.Href] {
					continue
				}
				target, err := url.Parse(l.Href)
				if err != nil || !c.inScope(root, target, prefix, l) {
					continue
				}
				seen[l.Href] = true
				next = append(next, queued{url: target, depth: v.page.Depth + 1})
			}
		}
		frontier = next
	}

	res.Links = all.Links()
	span.SetAttributes(attribute.Int("crawler.pages", len(res.Pages)))
	slog.Info("crawl finished", "url", start, "pages", len(res.Pages), "links", len(res.Links), "errors", len(res.Errors))
	return res, nil
}

// fetchLevel fetches one BFS level with bounded concurrency. Results keep
// frontier order so repeated crawls of an unchanged site are identical.
func (c *Crawler) fetchLevel(ctx context.Context, frontier []queued) ([]visit, error) {
	visits := make([]visit, len(frontier))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	for i, q := range frontier {
		g.Go(func() error {
			v, err := c.visit(gctx, q)
			if err != nil {
				return err
			}
			visits[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return visits, nil
}

// visit returns an error only when the crawl must stop.
func (c *Crawler) visit(ctx context.Context, q queued) (visit, error) {
	page := Page{
		URL:   q.url.String(),
		Host:  strings.ToLower(q.url.Host),
		Path:  q.url.Path,
		Depth: q.depth,
	}
	if err := c.limiters.Get(page.Host).Wait(ctx, 1); err != nil {
		return visit{}, err
	}

	fetched, err := c.fetcher.Fetch(ctx, page.URL)
	page.FetchedAt = time.Now()
	if err != nil {
		if ctx.Err() != nil {
			return visit{}, ctx.Err()
		}
		observability.CrawlerPagesTotal.WithLabelValues("error").Inc()
		slog.Debug("crawl fetch failed", "url", page.URL, "error", err)
		page.Err = errors.Short(err)
		page.StatusCode = fetched.StatusCode
		return visit{page: page}, nil
	}
	page.StatusCode = fetched.StatusCode

	if !isHTML(fetched) {
		observability.CrawlerPagesTotal.WithLabelValues("skipped").Inc()
		return visit{page: page}, nil
	}

	base := q.url
	if fetched.URL != "" {
		if final, err := url.Parse(fetched.URL); err == nil {
			base = final
		}
	}
	doc, err := links.Parse(base, bytes.NewReader(fetched.Body), links.Options{StripFragments: c.opts.StripFragments})
	if err != nil {
		observability.CrawlerPagesTotal.WithLabelValues("error").Inc()
		page.Err = errors.Short(err)
		return visit{page: page}, nil
	}
	observability.CrawlerPagesTotal.WithLabelValues("ok").Inc()
	page.Title = doc.Title
	page.LinkCount = len(doc.Links)
	return visit{page: page, links: doc.Links}, nil
}

func isHTML(p ports.FetchedPage) bool {
	ct := strings.ToLower(p.ContentType)
	if ct == "" {
		return bytes.Contains(bytes.ToLower(firstBytes(p.Body, 512)), []byte("<html"))
	}
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

func firstBytes(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

func (c *Crawler) inScope(root, target *url.URL, prefix string, l links.Link) bool {
	if target.Scheme != "http" && target.Scheme != "https" {
		return false
	}
	if c.opts.SameHost && !strings.EqualFold(target.Host, root.Host) {
		return false
	}
	if prefix != "" {
		if !strings.EqualFold(target.Host, root.Host) {
			return false
		}
		if !util.HasPathPrefix(target.Path, prefix) {
			return false
		}
	}
	key := l.TreePath()
	if len(c.include) > 0 && !util.MatchAny(c.include, key) {
		return false
	}
	return !util.MatchAny(c.exclude, key)
}

// startDir is the directory part of a start path: "/guide/" stays, while
// "/guide/install" becomes "/guide".
func startDir(p string) string {
	if p == "" || strings.HasSuffix(p, "/") {
		return p
	}
	return path.Dir(p)
}

// Package app wires configuration into the browser, store, crawler and
// viewer so the CLI and TUI share one set of services.
package app

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"sync"

	"benchtop/internal/core/browser"
	"benchtop/internal/core/config"
	"benchtop/internal/core/errors"
	"benchtop/internal/core/layout"
	"benchtop/internal/core/ports"
	"benchtop/internal/core/themes"
	"benchtop/internal/data/github"
	"benchtop/internal/data/items"
	"benchtop/internal/engine/crawler"
	"benchtop/internal/engine/diff"
	"benchtop/internal/engine/links"
	"benchtop/internal/engine/viewer"
	"benchtop/internal/shared/version"
)

type App struct {
	Config  *config.Config
	Paths   config.ResolvedPaths
	Tabs    []layout.Tab
	GitHub  *github.Client
	Browser *browser.Browser
	Fetcher ports.PageFetcher
	Themes  *themes.Picker
	Diff    *diff.Engine

	mu     sync.RWMutex
	viewer *viewer.Registry
	store  ports.ItemStore

	onTheme func(themes.Theme)
}

// Option customizes New; tests use it to swap adapters.
type Option func(*App)

func WithRepositoryReader(r ports.RepositoryReader) Option {
	return func(a *App) {
		a.Browser = browser.New(r, a.browserOptions())
	}
}

func WithFetcher(f ports.PageFetcher) Option {
	return func(a *App) { a.Fetcher = f }
}

func WithStore(s ports.ItemStore) Option {
	return func(a *App) { a.store = s }
}

func New(cfg *config.Config, paths config.ResolvedPaths, opts ...Option) (*App, error) {
	tabs, err := layout.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Paths:  paths,
		Tabs:   tabs,
		Diff:   diff.NewEngine(32),
		Themes: themes.NewPicker(paths.ThemeFile, cfg.UI.Theme),
	}
	a.GitHub = github.New(github.Options{
		BaseURL:           cfg.GitHub.APIBaseURL,
		Token:             cfg.GitHub.Token,
		Timeout:           cfg.GitHub.Timeout,
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
		Burst:             cfg.GitHub.Burst,
		UserAgent:         "benchtop/" + version.Version,
	})
	a.Browser = browser.New(a.GitHub, a.browserOptions())
	a.Fetcher = crawler.NewHTTPFetcher(cfg.Crawler.Timeout, cfg.Crawler.UserAgent)
	a.viewer = a.newViewer(a.Themes.Current())

	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *App) browserOptions() browser.Options {
	return browser.Options{
		WebBaseURL:     a.Config.GitHub.WebBaseURL,
		CDNBaseURL:     a.Config.GitHub.CDNBaseURL,
		CommitsPerPage: a.Config.GitHub.CommitsPerPage,
		DiffContext:    3,
		Diff:           a.Diff,
	}
}

func (a *App) newViewer(t themes.Theme) *viewer.Registry {
	return viewer.NewRegistry(a.Config.UI.RenderCache, viewer.DefaultModules(t.Markdown, t.Code)...)
}

// Viewer returns the file view registry for the current theme.
func (a *App) Viewer() *viewer.Registry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.viewer
}

// Store opens the item database on first use.
func (a *App) Store() (ports.ItemStore, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store != nil {
		return a.store, nil
	}
	s, err := items.Open(a.Paths.DBPath, a.Config.Store.BusyTimeout)
	if err != nil {
		return nil, err
	}
	a.store = s
	return s, nil
}

// OnThemeChange registers fn to run after every theme switch.
func (a *App) OnThemeChange(fn func(themes.Theme)) {
	a.mu.Lock()
	a.onTheme = fn
	a.mu.Unlock()
}

// SetTheme selects and persists a theme, rebuilding the viewer so cached
// renders pick up the new styles.
func (a *App) SetTheme(name string) (themes.Theme, error) {
	t, err := a.Themes.Select(name)
	if err != nil {
		return t, err
	}
	a.mu.Lock()
	a.viewer = a.newViewer(t)
	fn := a.onTheme
	a.mu.Unlock()

	slog.Info("theme changed", "theme", t.Name)
	if fn != nil {
		fn(t)
	}
	return t, nil
}

// ApplyConfig takes a reloaded config. Only the theme is applied live;
// other changes need a restart.
func (a *App) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	a.mu.Lock()
	changed := cfg.UI.Theme != a.Config.UI.Theme
	a.Config.UI.Theme = cfg.UI.Theme
	a.mu.Unlock()

	if !changed || cfg.UI.Theme == a.Themes.Current().Name {
		return
	}
	if _, err := a.SetTheme(cfg.UI.Theme); err != nil {
		slog.Warn("ignoring theme from reloaded config", "theme", cfg.UI.Theme, "error", err)
	}
}

// CrawlerOptions maps the crawler config section.
func (a *App) CrawlerOptions() crawler.Options {
	c := a.Config.Crawler
	return crawler.Options{
		MaxPages:          c.MaxPages,
		MaxDepth:          c.MaxDepth,
		Concurrency:       c.Concurrency,
		RequestsPerSecond: c.RequestsPerSecond,
		SameHost:          config.Enabled(c.SameHost),
		PathPrefix:        c.PathPrefix,
		PrefixFromStart:   c.PathPrefix == "",
		Include:           c.Include,
		Exclude:           c.Exclude,
		StripFragments:    config.Enabled(a.Config.Links.StripFragments),
	}
}

// Crawl runs one documentation crawl from start.
func (a *App) Crawl(ctx context.Context, start string, opts crawler.Options) (crawler.Result, error) {
	c, err := crawler.New(a.Fetcher, opts)
	if err != nil {
		return crawler.Result{}, err
	}
	defer c.Close()
	return c.Crawl(ctx, start)
}

// Links fetches one page and extracts its links.
func (a *App) Links(ctx context.Context, rawURL string) (links.Document, error) {
	base, err := url.Parse(rawURL)
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return links.Document{}, errors.AddContext(
			errors.New(errors.CodeValidationError, "links source must be an absolute http(s) URL"),
			errors.CtxURL, rawURL)
	}
	page, err := a.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return links.Document{}, err
	}
	if u, err := url.Parse(page.URL); err == nil && page.URL != "" {
		base = u
	}
	return links.Parse(base, bytes.NewReader(page.Body), links.Options{
		StripFragments: config.Enabled(a.Config.Links.StripFragments),
		Exclude:        a.Config.Links.Exclude,
	})
}

func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

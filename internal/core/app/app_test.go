package app

import (
	"context"
	"path/filepath"
	"testing"

	"benchtop/internal/core/config"
	"benchtop/internal/core/errors"
	"benchtop/internal/core/ports"
	"benchtop/internal/core/themes"
	"benchtop/internal/data/items"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pagesFetcher map[string]string

func (f pagesFetcher) Fetch(ctx context.Context, rawURL string) (ports.FetchedPage, error) {
	body, ok := f[rawURL]
	if !ok {
		return ports.FetchedPage{}, errors.New(errors.CodeNotFound, rawURL)
	}
	return ports.FetchedPage{URL: rawURL, StatusCode: 200, ContentType: "text/html", Body: []byte(body)}, nil
}

var site = pagesFetcher{
	"https://docs.test/": `<html><head><title>Home</title></head><body>
		<a href="/guide/">Guide</a> <a href="/guide/#top">Guide again</a>
		<a href="https://elsewhere.test/">Away</a></body></html>`,
	"https://docs.test/guide/": `<html><head><title>Guide</title></head><body><a href="/">Home</a></body></html>`,
}

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Paths.StateDir = dir
	paths, err := config.ResolvePaths(cfg, dir)
	require.NoError(t, err)

	a, err := New(cfg, paths, append([]Option{WithFetcher(site)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNew_Defaults(t *testing.T) {
	a := newTestApp(t)

	assert.Len(t, a.Tabs, 5)
	assert.Equal(t, "dark", a.Themes.Current().Name)
	assert.Equal(t, []string{"image", "markdown", "binary", "code", "text"}, a.Viewer().Modules())
}

func TestNew_RejectsBadLayout(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tabs = []config.Tab{{Kind: "weather"}}
	_, err := New(cfg, config.ResolvedPaths{})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestApp_SetThemeRebuildsViewer(t *testing.T) {
	a := newTestApp(t)
	before := a.Viewer()

	var seen []string
	a.OnThemeChange(func(th themes.Theme) { seen = append(seen, th.Name) })

	_, err := a.SetTheme("nord")
	require.NoError(t, err)
	assert.NotSame(t, before, a.Viewer())
	assert.Equal(t, []string{"nord"}, seen)
	assert.FileExists(t, a.Paths.ThemeFile)

	_, err = a.SetTheme("neon")
	assert.Error(t, err)
	assert.Equal(t, []string{"nord"}, seen)
}

func TestApp_ApplyConfigOnlyFollowsThemeChanges(t *testing.T) {
	a := newTestApp(t)
	_, err := a.SetTheme("dracula")
	require.NoError(t, err)

	same := config.DefaultConfig()
	a.ApplyConfig(same)
	assert.Equal(t, "dracula", a.Themes.Current().Name, "unchanged config keeps the picked theme")

	changed := config.DefaultConfig()
	changed.UI.Theme = "light"
	a.ApplyConfig(changed)
	assert.Equal(t, "light", a.Themes.Current().Name)
}

func TestApp_StoreAndHealth(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	health := NewHealthService(a).Check(ctx)
	assert.Equal(t, "up", health.Status)
	assert.Equal(t, "closed", health.Components["store"])
	assert.Equal(t, "no-repository", health.Components["browser"])

	store, err := a.Store()
	require.NoError(t, err)
	_, err = store.Create(ctx, items.Item{Name: "hello", Type: "snippet"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(a.Paths.StateDir, "items.db"), a.Paths.DBPath)

	again, err := a.Store()
	require.NoError(t, err)
	assert.Same(t, store, again)

	health = NewHealthService(a).Check(ctx)
	assert.Equal(t, "ok", health.Components["store"])
	assert.Equal(t, "dark", health.Components["theme"])
}

func TestApp_Links(t *testing.T) {
	a := newTestApp(t)

	doc, err := a.Links(context.Background(), "https://docs.test/")
	require.NoError(t, err)
	assert.Equal(t, "Home", doc.Title)
	require.Len(t, doc.Links, 2)
	assert.Equal(t, "https://docs.test/guide/", doc.Links[0].Href)
	assert.Equal(t, 2, doc.Links[0].Occurrences())

	_, err = a.Links(context.Background(), "docs.test")
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
	_, err = a.Links(context.Background(), "https://docs.test/missing")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestApp_Crawl(t *testing.T) {
	a := newTestApp(t)

	opts := a.CrawlerOptions()
	opts.RequestsPerSecond = 0
	res, err := a.Crawl(context.Background(), "https://docs.test/", opts)
	require.NoError(t, err)
	require.Len(t, res.Pages, 2)
	assert.Equal(t, "Home", res.Pages[0].Title)
	assert.Equal(t, "Guide", res.Pages[1].Title)
}

func TestApp_CrawlScopedToStartDirectory(t *testing.T) {
	a := newTestApp(t)

	opts := a.CrawlerOptions()
	opts.RequestsPerSecond = 0
	assert.True(t, opts.PrefixFromStart)
	res, err := a.Crawl(context.Background(), "https://docs.test/guide/", opts)
	require.NoError(t, err)
	require.Len(t, res.Pages, 1, "home page is outside /guide/")
	assert.Equal(t, "Guide", res.Pages[0].Title)

	a.Config.Crawler.PathPrefix = "/"
	opts = a.CrawlerOptions()
	opts.RequestsPerSecond = 0
	assert.False(t, opts.PrefixFromStart)
	res, err = a.Crawl(context.Background(), "https://docs.test/guide/", opts)
	require.NoError(t, err)
	assert.Len(t, res.Pages, 2)
}

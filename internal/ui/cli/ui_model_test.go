package cli

import (
	"context"
	"strings"
	"testing"

	"benchtop/internal/core/config"

	tea "github.com/charmbracelet/bubbletea"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// settle runs cmd and feeds the app messages it yields back into the model.
// Framework commands (blinks, ticks) are not executed.
func settle(t *testing.T, m model, cmd tea.Cmd) model {
	t.Helper()
	for i := 0; cmd != nil && i < 10; i++ {
		msg := cmd()
		switch msg.(type) {
		case browserMsg, renderMsg, diffMsg, webLoadedMsg, itemsMsg, statusMsg, themeMsg:
		default:
			return m
		}
		updated, next := m.Update(msg)
		m = updated.(model)
		cmd = next
	}
	return m
}

func step(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	updated, cmd := m.Update(msg)
	state, ok := updated.(model)
	if !ok {
		t.Fatalf("expected model type, got %T", updated)
	}
	return settle(t, state, cmd)
}

// typeInput enters s into the open prompt without running blink commands.
func typeInput(t *testing.T, m model, s string) model {
	t.Helper()
	updated, _ := m.Update(runes(s))
	return updated.(model)
}

func webTabsConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Tabs = []config.Tab{
		{Kind: "links", Title: "Links", Source: "https://docs.test/"},
		{Kind: "docs", Title: "Docs", Source: "https://docs.test/"},
		{Kind: "items", Title: "Items"},
		{Kind: "themes", Title: "Themes"},
	}
	return cfg
}

func TestModel_RepositoryBrowseAndCompare(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.GitHub.DefaultRepository = "octo/hello"
	a := newTestApp(t, cfg)

	m := initialModel(context.Background(), a)
	m = step(t, m, tea.WindowSizeMsg{Width: 160, Height: 60})
	m = settle(t, m, m.Init())

	entries := m.repo.entries.Items()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if first := entries[0].(item); first.key != "docs" {
		t.Fatalf("expected directories first, got %q", first.key)
	}

	m = step(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.repo.view.File != "README.md" {
		t.Fatalf("expected README.md selected, got %q", m.repo.view.File)
	}
	if m.repo.view.SHA != "bbbbbbbbbb" {
		t.Fatalf("expected newest commit pinned, got %q", m.repo.view.SHA)
	}
	if m.repo.module != "markdown" {
		t.Fatalf("expected markdown viewer, got %q", m.repo.module)
	}
	if len(m.repo.commits.Items()) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(m.repo.commits.Items()))
	}

	m = step(t, m, runes("p"))
	if m.repo.focus != focusCommits {
		t.Fatalf("expected commit pane focus, got %v", m.repo.focus)
	}
	m = step(t, m, runes("d"))
	if !m.statusErr {
		t.Fatal("expected diff without marks to be rejected")
	}

	m = step(t, m, runes("a"))
	m = step(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = step(t, m, runes("b"))
	if !m.repo.view.Compare.Ready() {
		t.Fatalf("expected compare ready, got %+v", m.repo.view.Compare)
	}
	m = step(t, m, runes("d"))
	if !m.repo.diffing || !strings.Contains(m.repo.body, "first") {
		t.Fatalf("expected diff body, got %q", m.repo.body)
	}

	m = step(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	if m.repo.diffing {
		t.Fatal("expected backspace to leave the diff")
	}
	if !strings.Contains(m.View(), "octo/hello@main") {
		t.Fatal("expected breadcrumb header in view")
	}
}

func TestModel_RepositoryPrompt(t *testing.T) {
	a := newTestApp(t, nil)
	m := initialModel(context.Background(), a)
	if !strings.Contains(m.View(), "No repository selected") {
		t.Fatal("expected empty repository hint")
	}

	m = step(t, m, runes(":"))
	if m.purpose != inputSource {
		t.Fatalf("expected source prompt, got %v", m.purpose)
	}
	m = typeInput(t, m, "octo/missing")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.statusErr || !strings.Contains(m.status, "not found") {
		t.Fatalf("expected not found status, got %q", m.status)
	}
	if !m.repo.view.CanRetry {
		t.Fatal("expected retry to be offered")
	}

	m = step(t, m, runes(":"))
	m = typeInput(t, m, "octo/hello")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.repo.view.Branch != "main" || len(m.repo.view.Entries) != 2 {
		t.Fatalf("unexpected view after switch: %+v", m.repo.view)
	}
}

func TestModel_LinksTreeFilterAndExpand(t *testing.T) {
	a := newTestApp(t, webTabsConfig())
	m := initialModel(context.Background(), a)
	m = settle(t, m, m.Init())

	p := m.web[0]
	if !p.loaded || p.total != 3 {
		t.Fatalf("expected 3 links loaded, got loaded=%v total=%d err=%q", p.loaded, p.total, p.err)
	}
	if len(p.rows) != 2 {
		t.Fatalf("expected two collapsed hosts, got %d rows", len(p.rows))
	}

	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	p = m.web[0]
	if !p.rows[0].expanded || len(p.rows) != 3 {
		t.Fatalf("expected docs.test expanded into 3 rows, got %+v", p.rows)
	}

	m = step(t, m, runes("/"))
	m = typeInput(t, m, "install")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.web[0].count != 1 {
		t.Fatalf("expected 1 match, got %d", m.web[0].count)
	}
	if !strings.Contains(m.View(), "1 of 3 matching href~install") {
		t.Fatal("expected filter summary in view")
	}

	m = step(t, m, runes("x"))
	if m.web[0].count != 3 {
		t.Fatalf("expected filters cleared, got %d", m.web[0].count)
	}
}

func TestModel_DocsTabCrawlsOnActivate(t *testing.T) {
	a := newTestApp(t, webTabsConfig())
	m := initialModel(context.Background(), a)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.activeTab().Title != "Docs" {
		t.Fatalf("expected Docs tab, got %q", m.activeTab().Title)
	}
	p := m.web[1]
	if !p.loaded || p.total != 3 {
		t.Fatalf("expected 3 crawled pages, got loaded=%v total=%d err=%q", p.loaded, p.total, p.err)
	}

	m = step(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m = step(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.activeTab().Title != "Themes" {
		t.Fatalf("expected wrap to Themes, got %q", m.activeTab().Title)
	}
}

func TestModel_ItemsCreateToggleDelete(t *testing.T) {
	a := newTestApp(t, webTabsConfig())
	m := initialModel(context.Background(), a)
	m.active = 2
	m = step(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = settle(t, m, m.activate())
	if !m.items.loaded || len(m.items.all) != 0 {
		t.Fatalf("expected empty loaded store, got %+v", m.items)
	}

	m = step(t, m, runes("n"))
	m = typeInput(t, m, "hello:script:x,y")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.items.all) != 1 || m.items.all[0].Type != "script" {
		t.Fatalf("expected created item, got %+v", m.items.all)
	}

	m = step(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if !m.items.all[0].Autorun {
		t.Fatal("expected autorun toggled on")
	}

	m = step(t, m, runes("/"))
	m = typeInput(t, m, "autorun:boolean:eq:false")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.items.shown) != 0 {
		t.Fatalf("expected filter to hide the item, got %d", len(m.items.shown))
	}

	m = step(t, m, runes("x"))
	m = step(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	if len(m.items.all) != 0 {
		t.Fatalf("expected item deleted, got %d", len(m.items.all))
	}
}

func TestModel_ThemePickerAndQuit(t *testing.T) {
	a := newTestApp(t, webTabsConfig())
	m := initialModel(context.Background(), a)
	m.active = 3
	m = step(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	m = step(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if a.Themes.Current().Name == "dark" {
		t.Fatal("expected a different theme to be selected")
	}
	if !strings.HasPrefix(m.status, "theme ") {
		t.Fatalf("expected theme status, got %q", m.status)
	}

	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

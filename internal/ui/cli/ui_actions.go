package cli

import (
	"context"
	"fmt"
	"path"
	"strings"

	coreapp "benchtop/internal/core/app"
	"benchtop/internal/core/browser"
	"benchtop/internal/core/errors"
	"benchtop/internal/core/layout"
	"benchtop/internal/data/github"
	"benchtop/internal/data/items"
	"benchtop/internal/engine/viewer"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

type keyMap struct {
	Quit         key.Binding
	NextTab      key.Binding
	PrevTab      key.Binding
	Pane         key.Binding
	Open         key.Binding
	Back         key.Binding
	Up           key.Binding
	Down         key.Binding
	Retry        key.Binding
	MarkA        key.Binding
	MarkB        key.Binding
	Diff         key.Binding
	Repository   key.Binding
	Filter       key.Binding
	ClearFilters key.Binding
	New          key.Binding
	Autorun      key.Binding
	Delete       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:         key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
		NextTab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		PrevTab:      key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous tab")),
		Pane:         key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pane")),
		Open:         key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Back:         key.NewBinding(key.WithKeys("backspace", "esc"), key.WithHelp("backspace", "up")),
		Up:           key.NewBinding(key.WithKeys("up", "k")),
		Down:         key.NewBinding(key.WithKeys("down", "j")),
		Retry:        key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		MarkA:        key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "compare a")),
		MarkB:        key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "compare b")),
		Diff:         key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "diff")),
		Repository:   key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "open repository")),
		Filter:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		ClearFilters: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear filters")),
		New:          key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new item")),
		Autorun:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle autorun")),
		Delete:       key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "delete")),
	}
}

func handleKeyActions(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if !listFiltering(m) {
			return m, tea.Quit
		}
	case key.Matches(msg, m.keys.NextTab):
		if len(m.tabs) > 0 {
			m.active = (m.active + 1) % len(m.tabs)
		}
		return m, m.activate()
	case key.Matches(msg, m.keys.PrevTab):
		if len(m.tabs) > 0 {
			m.active = (m.active - 1 + len(m.tabs)) % len(m.tabs)
		}
		return m, m.activate()
	}

	switch m.activeTab().Kind {
	case layout.Repo:
		return handleRepoKeys(msg, m)
	case layout.Links, layout.Docs:
		return handleWebKeys(msg, m)
	case layout.Items:
		return handleItemsKeys(msg, m)
	case layout.Themes:
		return handleThemeKeys(msg, m)
	}
	return m, nil
}

// listFiltering reports whether the focused bubbles list owns the keyboard.
func listFiltering(m model) bool {
	switch m.activeTab().Kind {
	case layout.Repo:
		return m.repo.entries.FilterState() == list.Filtering || m.repo.commits.FilterState() == list.Filtering
	case layout.Items:
		return m.items.list.FilterState() == list.Filtering
	case layout.Themes:
		return m.themes.FilterState() == list.Filtering
	}
	return false
}

// activate starts the first load for the newly selected tab.
func (m model) activate() tea.Cmd {
	tab := m.activeTab()
	switch tab.Kind {
	case layout.Repo:
		if m.repo.view.State != browser.NoRepository {
			return nil
		}
		repo, err := tab.Repository()
		if err != nil || repo.IsZero() {
			return nil
		}
		return browserCmd(m.ctx, m.app.Browser, func(ctx context.Context) error {
			return m.app.Browser.SelectRepository(ctx, repo)
		})
	case layout.Links, layout.Docs:
		p := m.web[m.active]
		if p.loaded || p.loading || p.err != "" {
			return nil
		}
		if p.source == "" {
			return nil
		}
		m.web[m.active].loading = true
		return webLoadCmd(m.ctx, m.app, m.active, p.kind, p.source)
	case layout.Items:
		if m.items.loaded {
			return nil
		}
		return loadItemsCmd(m.ctx, m.app)
	}
	return nil
}

func handleRepoKeys(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	if listFiltering(m) {
		return updateRepoFocus(msg, m)
	}
	b := m.app.Browser
	v := m.repo.view

	switch {
	case key.Matches(msg, m.keys.Repository):
		return m.openInput(inputSource, "owner/name"), nil
	case key.Matches(msg, m.keys.Pane):
		m.repo.focus = (m.repo.focus + 1) % 3
		if m.repo.focus == focusCommits && v.File == "" {
			m.repo.focus = focusContent
		}
		return m, nil
	case key.Matches(msg, m.keys.Retry):
		if !v.CanRetry {
			return m, nil
		}
		return m, browserCmd(m.ctx, b, b.Retry)
	case key.Matches(msg, m.keys.Back):
		if m.repo.diffing {
			m.repo.diffing = false
			return m, renderCmd(m.ctx, m.app, v, m.contentWidth())
		}
		if v.Path == "" || v.State == browser.NoRepository {
			return m, nil
		}
		parent := parentPath(v.Path)
		m.repo.focus = focusEntries
		return m, browserCmd(m.ctx, b, func(ctx context.Context) error { return b.SelectPath(ctx, parent) })
	}

	switch m.repo.focus {
	case focusEntries:
		if key.Matches(msg, m.keys.Open) {
			sel, ok := m.repo.entries.SelectedItem().(item)
			if !ok {
				return m, nil
			}
			if sel.key == ".." {
				parent := parentPath(v.Path)
				return m, browserCmd(m.ctx, b, func(ctx context.Context) error { return b.SelectPath(ctx, parent) })
			}
			for _, e := range v.Entries {
				if e.Path != sel.key {
					continue
				}
				if e.IsDir() {
					return m, browserCmd(m.ctx, b, func(ctx context.Context) error { return b.SelectPath(ctx, e.Path) })
				}
				m.repo.compareA = ""
				return m, browserCmd(m.ctx, b, func(ctx context.Context) error { return b.SelectFile(ctx, e.Path) })
			}
			return m, nil
		}
	case focusCommits:
		sel, ok := m.repo.commits.SelectedItem().(item)
		switch {
		case key.Matches(msg, m.keys.Open) && ok:
			return m, browserCmd(m.ctx, b, func(ctx context.Context) error { return b.SelectCommit(ctx, sel.key) })
		case key.Matches(msg, m.keys.MarkA) && ok:
			m.repo.compareA = sel.key
			return m.setStatus("compare a = "+shortRef(sel.key), false), nil
		case key.Matches(msg, m.keys.MarkB) && ok:
			if m.repo.compareA == "" {
				return m.setStatus("mark compare a first", true), nil
			}
			if err := b.SetCompare(m.repo.compareA, sel.key); err != nil {
				return m.setStatus(errors.Short(err), true), nil
			}
			m.repo.view = b.Snapshot()
			return m.setStatus("compare b = "+shortRef(sel.key)+", press d", false), nil
		case key.Matches(msg, m.keys.Diff):
			if !m.repo.view.Compare.Ready() {
				return m.setStatus("mark two commits with a and b first", true), nil
			}
			return m, diffCmd(m.ctx, b)
		}
	case focusContent:
		var cmd tea.Cmd
		m.repo.content, cmd = m.repo.content.Update(msg)
		return m, cmd
	}
	return updateRepoFocus(msg, m)
}

func updateRepoFocus(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.repo.focus {
	case focusEntries:
		m.repo.entries, cmd = m.repo.entries.Update(msg)
	case focusCommits:
		m.repo.commits, cmd = m.repo.commits.Update(msg)
	case focusContent:
		m.repo.content, cmd = m.repo.content.Update(msg)
	}
	return m, cmd
}

func handleWebKeys(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	p := m.web[m.active]
	order := treeOrder(m.app.Config)

	switch {
	case key.Matches(msg, m.keys.Repository):
		return m.openInput(inputSource, "https://..."), nil
	case key.Matches(msg, m.keys.Retry):
		if p.loading || p.source == "" {
			return m, nil
		}
		p.loading = true
		p.err = ""
		m.web[m.active] = p
		return m, webLoadCmd(m.ctx, m.app, m.active, p.kind, p.source)
	case key.Matches(msg, m.keys.Filter):
		return m.openInput(inputFilter, "text or field:kind:op:value"), nil
	case key.Matches(msg, m.keys.ClearFilters):
		p.filters.Clear()
		p.rebuild(order)
	case key.Matches(msg, m.keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if p.cursor < len(p.rows)-1 {
			p.cursor++
		}
	case key.Matches(msg, m.keys.Open):
		if p.cursor < len(p.rows) && p.rows[p.cursor].dir {
			row := p.rows[p.cursor]
			p.expanded[row.path] = !row.expanded
			p.rebuild(order)
		}
	}
	m.web[m.active] = p
	return m, nil
}

func handleItemsKeys(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	if listFiltering(m) {
		var cmd tea.Cmd
		m.items.list, cmd = m.items.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Filter):
		return m.openInput(inputFilter, "text or field:kind:op:value"), nil
	case key.Matches(msg, m.keys.ClearFilters):
		m.items.filters.Clear()
		return m.refreshItems(), nil
	case key.Matches(msg, m.keys.Retry):
		return m, loadItemsCmd(m.ctx, m.app)
	case key.Matches(msg, m.keys.New):
		return m.openInput(inputNewItem, "name[:type[:tags]]"), nil
	case key.Matches(msg, m.keys.Autorun):
		if it, ok := m.selectedItem(); ok {
			it.Autorun = !it.Autorun
			return m, saveItemCmd(m.ctx, m.app, it)
		}
		return m, nil
	case key.Matches(msg, m.keys.Delete):
		if it, ok := m.selectedItem(); ok {
			return m, deleteItemCmd(m.ctx, m.app, it.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.items.list, cmd = m.items.list.Update(msg)
	return m, cmd
}

func (m model) selectedItem() (items.Item, bool) {
	sel, ok := m.items.list.SelectedItem().(item)
	if !ok {
		return items.Item{}, false
	}
	for _, it := range m.items.shown {
		if it.ID == sel.key {
			return it, true
		}
	}
	return items.Item{}, false
}

func handleThemeKeys(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Open) && !listFiltering(m) {
		sel, ok := m.themes.SelectedItem().(item)
		if !ok {
			return m, nil
		}
		t, err := m.app.SetTheme(sel.key)
		if err != nil {
			return m.setStatus(errors.Short(err), true), nil
		}
		return m.Update(themeMsg{theme: t})
	}
	var cmd tea.Cmd
	m.themes, cmd = m.themes.Update(msg)
	return m, cmd
}

func (m model) openInput(purpose inputPurpose, placeholder string) model {
	m.purpose = purpose
	m.input.Reset()
	m.input.Placeholder = placeholder
	m.input.Focus()
	return m
}

func handleInputKeys(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.purpose = inputNone
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		purpose := m.purpose
		m.purpose = inputNone
		m.input.Blur()
		if value == "" {
			return m, nil
		}
		return submitInput(m, purpose, value)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func submitInput(m model, purpose inputPurpose, value string) (tea.Model, tea.Cmd) {
	switch purpose {
	case inputSource:
		if kind := m.activeTab().Kind; kind == layout.Links || kind == layout.Docs {
			p := m.web[m.active]
			p.source = value
			p.loading = true
			p.loaded = false
			p.err = ""
			p.cursor = 0
			m.web[m.active] = p
			return m, webLoadCmd(m.ctx, m.app, m.active, p.kind, value)
		}
		repo, err := github.ParseRepo(value)
		if err != nil {
			return m.setStatus(errors.Short(err), true), nil
		}
		m.repo.compareA = ""
		m.repo.focus = focusEntries
		b := m.app.Browser
		return m, browserCmd(m.ctx, b, func(ctx context.Context) error { return b.SelectRepository(ctx, repo) })

	case inputFilter:
		kind := m.activeTab().Kind
		defaultField := "href"
		switch kind {
		case layout.Docs:
			defaultField = "url"
		case layout.Items:
			defaultField = "name"
		}
		def, err := parseFilterSpec(value, defaultField)
		if err != nil {
			return m.setStatus(errors.Short(err), true), nil
		}
		if kind == layout.Items {
			if _, err := m.items.filters.Add(def); err != nil {
				return m.setStatus(errors.Short(err), true), nil
			}
			return m.refreshItems(), nil
		}
		p := m.web[m.active]
		if p.filters == nil {
			return m, nil
		}
		if _, err := p.filters.Add(def); err != nil {
			return m.setStatus(errors.Short(err), true), nil
		}
		p.rebuild(treeOrder(m.app.Config))
		m.web[m.active] = p
		return m, nil

	case inputNewItem:
		parts := strings.SplitN(value, ":", 3)
		it := items.Item{Name: parts[0], Type: "snippet"}
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			it.Type = parts[1]
		}
		if len(parts) > 2 {
			it.Tags = items.ParseTags(parts[2])
		}
		return m, createItemCmd(m.ctx, m.app, it)
	}
	return m, nil
}

func parentPath(p string) string {
	parent := path.Dir(strings.Trim(p, "/"))
	if parent == "." || parent == "/" {
		return ""
	}
	return parent
}

// browserCmd runs op off the UI goroutine and reports the resulting snapshot.
func browserCmd(ctx context.Context, b *browser.Browser, op func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		err := op(ctx)
		return browserMsg{view: b.Snapshot(), err: err}
	}
}

func renderCmd(ctx context.Context, a *coreapp.App, v browser.View, width int) tea.Cmd {
	file := viewer.File{Path: v.File, SHA: v.SHA, Content: v.Content, Size: int64(len(v.Content))}
	registry := a.Viewer()
	return func() tea.Msg {
		out, err := registry.Render(ctx, file, width)
		return renderMsg{sha: v.SHA, file: v.File, body: out.Body, module: out.Module, err: err}
	}
}

func diffCmd(ctx context.Context, b *browser.Browser) tea.Cmd {
	return func() tea.Msg {
		fd, err := b.Compare(ctx)
		if err != nil {
			return diffMsg{err: err}
		}
		stats := fd.Stats()
		body := fmt.Sprintf("+%d -%d\n\n%s", stats.Added, stats.Removed, fd.Unified())
		return diffMsg{body: body}
	}
}

func webLoadCmd(ctx context.Context, a *coreapp.App, tab int, kind layout.Kind, source string) tea.Cmd {
	return func() tea.Msg {
		if kind == layout.Docs {
			res, err := a.Crawl(ctx, source, a.CrawlerOptions())
			return webLoadedMsg{tab: tab, result: res, err: err}
		}
		doc, err := a.Links(ctx, source)
		return webLoadedMsg{tab: tab, doc: doc, err: err}
	}
}

func loadItemsCmd(ctx context.Context, a *coreapp.App) tea.Cmd {
	return func() tea.Msg {
		store, err := a.Store()
		if err != nil {
			return itemsMsg{err: err}
		}
		all, err := store.List(ctx)
		return itemsMsg{items: all, err: err}
	}
}

// itemWriteCmd runs write against the store and reloads the listing.
func itemWriteCmd(ctx context.Context, a *coreapp.App, write func(store itemWriter) error) tea.Cmd {
	return func() tea.Msg {
		store, err := a.Store()
		if err != nil {
			return itemsMsg{err: err}
		}
		if err := write(store); err != nil {
			return statusMsg{text: errors.Short(err), err: true}
		}
		all, err := store.List(ctx)
		return itemsMsg{items: all, err: err}
	}
}

type itemWriter interface {
	Create(ctx context.Context, item items.Item) (items.Item, error)
	Save(ctx context.Context, item items.Item) (items.Item, error)
	Delete(ctx context.Context, id string) error
}

func createItemCmd(ctx context.Context, a *coreapp.App, it items.Item) tea.Cmd {
	return itemWriteCmd(ctx, a, func(store itemWriter) error {
		_, err := store.Create(ctx, it)
		return err
	})
}

func saveItemCmd(ctx context.Context, a *coreapp.App, it items.Item) tea.Cmd {
	return itemWriteCmd(ctx, a, func(store itemWriter) error {
		_, err := store.Save(ctx, it)
		return err
	})
}

func deleteItemCmd(ctx context.Context, a *coreapp.App, id string) tea.Cmd {
	return itemWriteCmd(ctx, a, func(store itemWriter) error {
		return store.Delete(ctx, id)
	})
}

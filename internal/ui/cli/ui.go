package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	coreapp "benchtop/internal/core/app"
	"benchtop/internal/core/browser"
	"benchtop/internal/core/errors"
	"benchtop/internal/core/layout"
	"benchtop/internal/core/themes"
	"benchtop/internal/data/items"
	"benchtop/internal/engine/crawler"
	"benchtop/internal/engine/filter"
	"benchtop/internal/engine/links"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

type item struct {
	title, desc string
	key         string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type inputPurpose int

const (
	inputNone inputPurpose = iota
	inputSource
	inputFilter
	inputNewItem
)

type model struct {
	ctx    context.Context
	app    *coreapp.App
	tabs   []layout.Tab
	active int
	styles themes.Styles
	keys   keyMap

	width, height int
	lastUpdate    time.Time
	status        string
	statusErr     bool

	input   textinput.Model
	purpose inputPurpose

	repo   repoPanel
	web    []webPanel
	items  itemsPanel
	themes list.Model
}

type repoFocus int

const (
	focusEntries repoFocus = iota
	focusCommits
	focusContent
)

type repoPanel struct {
	view     browser.View
	focus    repoFocus
	entries  list.Model
	commits  list.Model
	content  viewport.Model
	body     string
	module   string
	compareA string
	diffing  bool
}

// webPanel backs a links or docs tab. Only the slice matching kind is used.
type webPanel struct {
	kind     layout.Kind
	source   string
	loaded   bool
	loading  bool
	err      string
	title    string
	links    []links.Link
	pages    []crawler.Page
	crawlErr map[string]string
	filters  *filter.Set
	expanded map[string]bool
	rows     []treeRow
	cursor   int
	count    int
	total    int
}

type treeRow struct {
	path     string
	label    string
	depth    int
	dir      bool
	expanded bool
}

type itemsPanel struct {
	loaded  bool
	all     []items.Item
	shown   []items.Item
	filters *filter.Set
	list    list.Model
	err     string
}

type browserMsg struct {
	view browser.View
	err  error
}

type renderMsg struct {
	sha    string
	file   string
	body   string
	module string
	err    error
}

type diffMsg struct {
	body string
	err  error
}

type webLoadedMsg struct {
	tab    int
	doc    links.Document
	result crawler.Result
	err    error
}

type itemsMsg struct {
	items []items.Item
	err   error
}

type themeMsg struct {
	theme themes.Theme
}

type statusMsg struct {
	text string
	err  bool
}

func newList(title string) list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	return l
}

func initialModel(ctx context.Context, a *coreapp.App) model {
	input := textinput.New()
	input.CharLimit = 256

	m := model{
		ctx:        ctx,
		app:        a,
		tabs:       a.Tabs,
		styles:     a.Themes.Current().Styles(),
		keys:       defaultKeyMap(),
		lastUpdate: time.Now(),
		input:      input,
		repo: repoPanel{
			entries: newList("Files"),
			commits: newList("Commits"),
			content: viewport.New(0, 0),
		},
		web:    make([]webPanel, len(a.Tabs)),
		items:  itemsPanel{list: newList("Items"), filters: filter.NewSet()},
		themes: newList("Themes"),
	}
	m.repo.view = a.Browser.Snapshot()

	for i, tab := range m.tabs {
		if tab.Kind == layout.Links || tab.Kind == layout.Docs {
			m.web[i] = webPanel{
				kind:     tab.Kind,
				source:   tab.Source,
				filters:  filter.NewSet(),
				expanded: make(map[string]bool),
			}
		}
	}

	names := themes.Names()
	themeItems := make([]list.Item, 0, len(names))
	for _, name := range names {
		t, _ := themes.Lookup(name)
		themeItems = append(themeItems, item{title: name, desc: fmt.Sprintf("markdown=%s code=%s", t.Markdown, t.Code), key: name})
	}
	m.themes.SetItems(themeItems)
	return m
}

func (m model) Init() tea.Cmd {
	return m.activate()
}

func (m model) activeTab() layout.Tab {
	if m.active < 0 || m.active >= len(m.tabs) {
		return layout.Tab{}
	}
	return m.tabs[m.active]
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.purpose != inputNone {
			return handleInputKeys(msg, m)
		}
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m = m.resize()
		return m, nil
	case browserMsg:
		m.lastUpdate = time.Now()
		return m.applyBrowser(msg)
	case renderMsg:
		if msg.sha != m.repo.view.SHA || msg.file != m.repo.view.File {
			return m, nil
		}
		if msg.err != nil {
			m.repo.body = m.styles.Error.Render(msg.err.Error())
		} else {
			m.repo.body = msg.body
			m.repo.module = msg.module
		}
		m.repo.diffing = false
		m.repo.content.SetContent(m.repo.body)
		m.repo.content.GotoTop()
		return m, nil
	case diffMsg:
		if msg.err != nil {
			return m.setStatus(errors.Short(msg.err), true), nil
		}
		m.repo.diffing = true
		m.repo.body = msg.body
		m.repo.content.SetContent(msg.body)
		m.repo.content.GotoTop()
		m.repo.focus = focusContent
		return m, nil
	case webLoadedMsg:
		return m.applyWeb(msg), nil
	case itemsMsg:
		if msg.err != nil {
			m.items.err = msg.err.Error()
			return m, nil
		}
		m.items.loaded = true
		m.items.err = ""
		m.items.all = msg.items
		m = m.refreshItems()
		return m, nil
	case themeMsg:
		m.styles = msg.theme.Styles()
		m = m.setStatus("theme "+msg.theme.Name, false)
		if m.repo.view.File != "" {
			return m, renderCmd(m.ctx, m.app, m.repo.view, m.contentWidth())
		}
		return m, nil
	case statusMsg:
		return m.setStatus(msg.text, msg.err), nil
	}

	// Anything else (list filter results, cursor blinks) goes to the
	// focused component.
	var cmd tea.Cmd
	switch m.activeTab().Kind {
	case layout.Repo:
		switch m.repo.focus {
		case focusEntries:
			m.repo.entries, cmd = m.repo.entries.Update(msg)
		case focusCommits:
			m.repo.commits, cmd = m.repo.commits.Update(msg)
		}
	case layout.Items:
		m.items.list, cmd = m.items.list.Update(msg)
	case layout.Themes:
		m.themes, cmd = m.themes.Update(msg)
	}
	if m.purpose != inputNone {
		var inputCmd tea.Cmd
		m.input, inputCmd = m.input.Update(msg)
		cmd = tea.Batch(cmd, inputCmd)
	}
	return m, cmd
}

func (m model) setStatus(text string, isErr bool) model {
	m.status = text
	m.statusErr = isErr
	return m
}

func (m model) resize() model {
	h, v := m.styles.Doc.GetFrameSize()
	width := m.width - h
	height := m.height - v - 6
	if height < 5 {
		height = 5
	}
	half := width / 2
	m.repo.entries.SetSize(half, height/2)
	m.repo.commits.SetSize(half, height-height/2)
	m.repo.content.Width = width - half - 1
	m.repo.content.Height = height
	m.items.list.SetSize(width, height-2)
	m.themes.SetSize(width, height)
	m.input.Width = width - 4
	return m
}

func (m model) contentWidth() int {
	if m.repo.content.Width > 0 {
		return m.repo.content.Width
	}
	return 80
}

func (m model) applyBrowser(msg browserMsg) (tea.Model, tea.Cmd) {
	prev := m.repo.view
	v := msg.view
	m.repo.view = v
	if msg.err != nil {
		m = m.setStatus(errors.Short(msg.err), true)
	} else if v.State != browser.LoadingTree && v.State != browser.LoadingCommits {
		m = m.setStatus(v.State.String(), false)
	}

	entryItems := make([]list.Item, 0, len(v.Entries)+1)
	if v.Path != "" {
		entryItems = append(entryItems, item{title: "..", desc: "parent directory", key: ".."})
	}
	for _, e := range v.Entries {
		desc := formatSize(e.Size)
		if e.IsDir() {
			desc = "directory"
		}
		entryItems = append(entryItems, item{title: entryTitle(e.Name, e.IsDir()), desc: desc, key: e.Path})
	}
	m.repo.entries.SetItems(entryItems)
	if prev.Path != v.Path {
		m.repo.entries.ResetSelected()
	}

	commitItems := make([]list.Item, 0, len(v.Commits))
	for _, c := range v.Commits {
		marker := ""
		if c.SHA == v.SHA {
			marker = "* "
		}
		desc := fmt.Sprintf("%s %s, %s", c.Short(), c.AuthorName(), formatTime(c.Date()))
		commitItems = append(commitItems, item{title: marker + c.Title(), desc: desc, key: c.SHA})
	}
	m.repo.commits.SetItems(commitItems)

	if v.SHA != "" && (v.SHA != prev.SHA || v.File != prev.File || len(v.Content) != len(prev.Content)) && len(v.Content) > 0 {
		return m, renderCmd(m.ctx, m.app, v, m.contentWidth())
	}
	if v.File == "" && prev.File != "" {
		m.repo.body = ""
		m.repo.module = ""
		m.repo.content.SetContent("")
	}
	return m, nil
}

func (m model) applyWeb(msg webLoadedMsg) model {
	if msg.tab < 0 || msg.tab >= len(m.web) {
		return m
	}
	p := m.web[msg.tab]
	p.loading = false
	if msg.err != nil {
		p.err = msg.err.Error()
		m.web[msg.tab] = p
		return m
	}
	p.loaded = true
	p.err = ""
	switch p.kind {
	case layout.Links:
		p.title = msg.doc.Title
		p.links = msg.doc.Links
	case layout.Docs:
		p.pages = msg.result.Pages
		p.crawlErr = msg.result.Errors
		if len(p.pages) > 0 {
			p.title = p.pages[0].Title
		}
	}
	p.rebuild(treeOrder(m.app.Config))
	m.web[msg.tab] = p
	return m
}

// refreshItems reapplies the item filter set and keeps the selection in range.
func (m model) refreshItems() model {
	res := filter.Apply(m.items.filters, m.items.all)
	m.items.shown = res.Items
	listItems := make([]list.Item, 0, res.Count)
	for _, it := range res.Items {
		title := it.Name
		if it.Autorun {
			title += " [autorun]"
		}
		desc := fmt.Sprintf("%s  %s  updated %s", it.Type, strings.Join(it.Tags, ","), formatTime(it.UpdatedAt))
		listItems = append(listItems, item{title: title, desc: desc, key: it.ID})
	}
	m.items.list.SetItems(listItems)
	return m
}

func (m model) View() string {
	tabs := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		style := m.styles.Tab
		if i == m.active {
			style = m.styles.ActiveTab
		}
		tabs = append(tabs, style.Render(fmt.Sprintf("%d %s", i+1, tab.Title)))
	}

	status := m.styles.Status.Render(fmt.Sprintf("Last update: %s", m.lastUpdate.Format("15:04:05")))
	if m.status != "" {
		style := m.styles.Status
		if m.statusErr {
			style = m.styles.Error
		}
		status += " | " + style.Render(m.status)
	}

	header := fmt.Sprintf("%s\n%s\n%s\n", m.styles.Title.Render("benchtop"), strings.Join(tabs, ""), status)

	var body string
	switch m.activeTab().Kind {
	case layout.Repo:
		body = renderRepoPanel(m)
	case layout.Links, layout.Docs:
		body = renderWebPanel(m, m.web[m.active])
	case layout.Items:
		body = renderItemsPanel(m)
	case layout.Themes:
		body = renderThemesPanel(m)
	}

	footer := renderHelp(m)
	if m.purpose != inputNone {
		footer = m.input.View()
	}
	return m.styles.Doc.Render(header + "\n" + body + "\n\n" + footer)
}

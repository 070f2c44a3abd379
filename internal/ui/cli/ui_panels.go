package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"benchtop/internal/core/browser"
	"benchtop/internal/core/layout"
	"benchtop/internal/engine/crawler"
	"benchtop/internal/engine/filter"
	"benchtop/internal/engine/pathtree"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

func formatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return humanize.Time(t)
}

func entryTitle(name string, dir bool) string {
	if dir {
		return name + "/"
	}
	return name
}

func renderHelp(m model) string {
	var keys string
	switch m.activeTab().Kind {
	case layout.Repo:
		keys = "Keys: tab next tab | : open repo | p pane | enter open | backspace up | a/b mark compare | d diff | r retry | q quit"
	case layout.Links, layout.Docs:
		keys = "Keys: tab next tab | : open URL | j/k move | enter expand | / filter | x clear filters | r reload | q quit"
	case layout.Items:
		keys = "Keys: tab next tab | / filter | x clear filters | n new | space autorun | ctrl+d delete | r reload | q quit"
	case layout.Themes:
		keys = "Keys: tab next tab | enter apply theme | q quit"
	default:
		keys = "Keys: tab next tab | q quit"
	}
	return m.styles.Status.Render(keys)
}

func renderRepoPanel(m model) string {
	v := m.repo.view
	if v.State == browser.NoRepository {
		return m.styles.Muted.Render("No repository selected. Press : and enter owner/name.")
	}

	crumbs := []string{v.Repository.String()}
	if v.Branch != "" {
		crumbs[0] += "@" + v.Branch
	}
	for _, c := range v.Breadcrumbs() {
		crumbs = append(crumbs, c[strings.LastIndex(c, "/")+1:])
	}
	lines := []string{m.styles.Title.Render(strings.Join(crumbs, " / "))}
	if v.Meta.Description != "" {
		lines = append(lines, m.styles.Muted.Render(v.Meta.Description))
	}

	left := m.repo.entries.View()
	if v.FileError != "" {
		left += "\n" + m.styles.Error.Render(v.FileError)
	}
	if v.File != "" {
		left += "\n\n" + m.repo.commits.View()
		if v.CommitError != "" {
			left += "\n" + m.styles.Error.Render(v.CommitError)
		}
	}

	right := renderFileDetails(m)
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right))
	if v.CanRetry {
		lines = append(lines, m.styles.Warning.Render("Press r to retry."))
	}
	return strings.Join(lines, "\n")
}

func renderFileDetails(m model) string {
	v := m.repo.view
	if v.File == "" {
		return ""
	}
	head := []string{m.styles.Selected.Render(v.File)}
	if v.SHA != "" {
		meta := "@ " + shortRef(v.SHA)
		if v.Stats != nil {
			meta += fmt.Sprintf("  %s %s",
				m.styles.Success.Render(fmt.Sprintf("+%d", v.Stats.Additions)),
				m.styles.Error.Render(fmt.Sprintf("-%d", v.Stats.Deletions)))
		}
		if m.repo.module != "" && !m.repo.diffing {
			meta += "  [" + m.repo.module + "]"
		}
		head = append(head, meta)
	}
	if m.repo.compareA != "" || v.Compare.A != "" {
		head = append(head, m.styles.Muted.Render(fmt.Sprintf("compare a=%s b=%s", shortRef(v.Compare.A), shortRef(v.Compare.B))))
	}
	if !v.Links.IsZero() {
		head = append(head,
			m.styles.Link.Render(v.Links.Latest),
			m.styles.Link.Render(v.Links.Pinned))
	}
	return strings.Join(head, "\n") + "\n" + m.repo.content.View()
}

func renderWebPanel(m model, p webPanel) string {
	if p.loading {
		return m.styles.Muted.Render("Loading " + p.source + " ...")
	}
	if p.err != "" {
		return m.styles.Error.Render(p.err) + "\n" + m.styles.Warning.Render("Press r to retry.")
	}
	if !p.loaded {
		if p.source == "" {
			return m.styles.Muted.Render("No URL configured. Press : to enter one.")
		}
		return m.styles.Muted.Render("Nothing loaded yet.")
	}

	lines := []string{}
	if p.title != "" {
		lines = append(lines, m.styles.Title.Render(p.title))
	}
	summary := fmt.Sprintf("%d of %d", p.count, p.total)
	if desc := describeFilters(p.filters); desc != "" {
		summary += " matching " + desc
	}
	lines = append(lines, m.styles.Status.Render(summary))

	height := m.height - 12
	if height < 5 {
		height = 20
	}
	start := 0
	if p.cursor >= height {
		start = p.cursor - height + 1
	}
	for i := start; i < len(p.rows) && i < start+height; i++ {
		row := p.rows[i]
		marker := "  "
		if row.dir {
			marker = "+ "
			if row.expanded {
				marker = "- "
			}
		}
		line := strings.Repeat("  ", row.depth) + marker + row.label
		if i == p.cursor {
			line = m.styles.Selected.Render(line)
		}
		lines = append(lines, line)
	}
	if len(p.rows) == 0 {
		lines = append(lines, m.styles.Muted.Render("No matches."))
	}

	if len(p.crawlErr) > 0 {
		urls := make([]string, 0, len(p.crawlErr))
		for u := range p.crawlErr {
			urls = append(urls, u)
		}
		sort.Strings(urls)
		lines = append(lines, m.styles.Warning.Render(fmt.Sprintf("%d pages failed", len(urls))))
		for _, u := range urls {
			lines = append(lines, m.styles.Muted.Render("  "+u+": "+p.crawlErr[u]))
		}
	}
	return strings.Join(lines, "\n")
}

func renderItemsPanel(m model) string {
	if m.items.err != "" {
		return m.styles.Error.Render(m.items.err)
	}
	summary := fmt.Sprintf("%d of %d items", len(m.items.shown), len(m.items.all))
	if desc := describeFilters(m.items.filters); desc != "" {
		summary += " matching " + desc
	}
	return m.styles.Status.Render(summary) + "\n" + m.items.list.View()
}

func renderThemesPanel(m model) string {
	current := m.app.Themes.Current()
	return m.styles.Status.Render("Current theme: "+current.Name) + "\n" + m.themes.View()
}

// rebuild recomputes the visible tree rows from the loaded data, filters and
// expansion state.
func (p *webPanel) rebuild(order pathtree.Order) {
	isOpen := func(path string) bool { return p.expanded[path] }
	switch p.kind {
	case layout.Links:
		res := filter.Apply(p.filters, p.links)
		p.count, p.total = res.Count, res.Total
		p.rows = treeRows(pathtree.Build(res.Items), order, isOpen, linkLabel)
	case layout.Docs:
		res := filter.Apply(p.filters, p.pages)
		p.count, p.total = res.Count, res.Total
		p.rows = treeRows(pathtree.Build(res.Items), order, isOpen, pageLabel)
	}
	if p.cursor >= len(p.rows) {
		p.cursor = len(p.rows) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

func treeRows[R pathtree.Record](root *pathtree.Node[R], order pathtree.Order, expanded func(string) bool, label func(*pathtree.Node[R]) string) []treeRow {
	flat := pathtree.Flatten(root, order, expanded)
	rows := make([]treeRow, 0, len(flat))
	for _, r := range flat {
		rows = append(rows, treeRow{
			path:     r.Node.Path,
			label:    label(r.Node),
			depth:    r.Depth,
			dir:      !r.Node.IsLeaf(),
			expanded: r.Expanded,
		})
	}
	return rows
}

func pageLabel(n *pathtree.Node[crawler.Page]) string {
	if len(n.Records) == 1 && n.Records[0].Title != "" {
		return fmt.Sprintf("%s  %q", n.Name, n.Records[0].Title)
	}
	return pathtree.DefaultLabel(n)
}

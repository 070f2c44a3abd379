// Package themes holds the built-in color themes and the persisted picker.
package themes

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is a named palette plus the renderer styles used by the file
// viewer for markdown and highlighted code.
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Accent    lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Muted     lipgloss.Color
	Text      lipgloss.Color
	Highlight lipgloss.Color

	Markdown string // glamour standard style
	Code     string // chroma style
}

var builtins = []Theme{
	{
		Name:      "dark",
		Primary:   "#3B82F6",
		Accent:    "#A78BFA",
		Success:   "#10B981",
		Warning:   "#FBBF24",
		Error:     "#F87171",
		Muted:     "#64748B",
		Text:      "#E2E8F0",
		Highlight: "#1E293B",
		Markdown:  "dark",
		Code:      "monokai",
	},
	{
		Name:      "light",
		Primary:   "#1D4ED8",
		Accent:    "#7C3AED",
		Success:   "#047857",
		Warning:   "#B45309",
		Error:     "#B91C1C",
		Muted:     "#6B7280",
		Text:      "#111827",
		Highlight: "#E5E7EB",
		Markdown:  "light",
		Code:      "github",
	},
	{
		Name:      "nord",
		Primary:   "#88C0D0",
		Accent:    "#B48EAD",
		Success:   "#A3BE8C",
		Warning:   "#EBCB8B",
		Error:     "#BF616A",
		Muted:     "#4C566A",
		Text:      "#ECEFF4",
		Highlight: "#3B4252",
		Markdown:  "dark",
		Code:      "nord",
	},
	{
		Name:      "solarized",
		Primary:   "#268BD2",
		Accent:    "#6C71C4",
		Success:   "#859900",
		Warning:   "#B58900",
		Error:     "#DC322F",
		Muted:     "#586E75",
		Text:      "#EEE8D5",
		Highlight: "#073642",
		Markdown:  "dark",
		Code:      "solarized-dark",
	},
	{
		Name:      "dracula",
		Primary:   "#BD93F9",
		Accent:    "#FF79C6",
		Success:   "#50FA7B",
		Warning:   "#F1FA8C",
		Error:     "#FF5555",
		Muted:     "#6272A4",
		Text:      "#F8F8F2",
		Highlight: "#44475A",
		Markdown:  "dracula",
		Code:      "dracula",
	},
}

// Names lists the built-in themes in display order.
func Names() []string {
	out := make([]string, len(builtins))
	for i, t := range builtins {
		out[i] = t.Name
	}
	return out
}

func Lookup(name string) (Theme, bool) {
	for _, t := range builtins {
		if t.Name == name {
			return t, true
		}
	}
	return Theme{}, false
}

// Styles are the lipgloss styles the TUI renders with.
type Styles struct {
	Title     lipgloss.Style
	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
	Status    lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Muted     lipgloss.Style
	Selected  lipgloss.Style
	Link      lipgloss.Style
	Doc       lipgloss.Style
}

func (t Theme) Styles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(t.Primary).
			Bold(true),
		Tab: lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(t.Muted),
		ActiveTab: lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(t.Text).
			Background(t.Highlight).
			Bold(true),
		Status: lipgloss.NewStyle().
			Foreground(t.Muted).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(t.Error).
			Bold(true),
		Success: lipgloss.NewStyle().
			Foreground(t.Success).
			Bold(true),
		Warning: lipgloss.NewStyle().
			Foreground(t.Warning).
			Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(t.Muted),
		Selected: lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		Link:     lipgloss.NewStyle().Foreground(t.Primary).Underline(true),
		Doc:      lipgloss.NewStyle().Margin(1, 2),
	}
}

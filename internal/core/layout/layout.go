// Package layout turns the [[tabs]] config section into the static list of
// TUI widgets.
package layout

import (
	"fmt"
	"net/url"
	"strings"

	"benchtop/internal/core/config"
	"benchtop/internal/core/errors"
	"benchtop/internal/data/github"
)

type Kind string

const (
	Repo   Kind = config.TabRepo
	Links  Kind = config.TabLinks
	Docs   Kind = config.TabDocs
	Items  Kind = config.TabItems
	Themes Kind = config.TabThemes
)

// Tab is one widget. Source is a repository for repo tabs, a start URL for
// links and docs tabs, and empty otherwise.
type Tab struct {
	Kind   Kind
	Title  string
	Source string
}

// Repository parses the source of a repo tab. An empty source yields a
// zero ref and no error.
func (t Tab) Repository() (github.RepoRef, error) {
	if t.Source == "" {
		return github.RepoRef{}, nil
	}
	return github.ParseRepo(t.Source)
}

func (t Tab) URL() (*url.URL, error) {
	if t.Source == "" {
		return nil, nil
	}
	u, err := url.Parse(t.Source)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid tab source")
	}
	return u, nil
}

// Default is the layout used when the config declares no tabs.
func Default(cfg *config.Config) []Tab {
	return []Tab{
		{Kind: Repo, Title: "Repository", Source: cfg.GitHub.DefaultRepository},
		{Kind: Links, Title: "Links"},
		{Kind: Docs, Title: "Docs"},
		{Kind: Items, Title: "Items"},
		{Kind: Themes, Title: "Themes"},
	}
}

// FromConfig validates the configured tabs and falls back to Default when
// there are none. Titles must be unique so tabs can be addressed by name.
func FromConfig(cfg *config.Config) ([]Tab, error) {
	if len(cfg.Tabs) == 0 {
		return Default(cfg), nil
	}

	tabs := make([]Tab, 0, len(cfg.Tabs))
	titles := make(map[string]int, len(cfg.Tabs))
	for i, raw := range cfg.Tabs {
		tab := Tab{
			Kind:   Kind(strings.ToLower(strings.TrimSpace(raw.Kind))),
			Title:  strings.TrimSpace(raw.Title),
			Source: strings.TrimSpace(raw.Source),
		}
		if tab.Title == "" {
			tab.Title = string(tab.Kind)
		}
		if err := validate(tab); err != nil {
			return nil, errors.AddContext(err, errors.CtxField, fmt.Sprintf("tabs[%d]", i))
		}
		key := strings.ToLower(tab.Title)
		if prev, dup := titles[key]; dup {
			return nil, errors.Newf(errors.CodeValidationError, "tabs[%d] repeats the title of tabs[%d]: %q", i, prev, tab.Title)
		}
		titles[key] = i
		tabs = append(tabs, tab)
	}
	return tabs, nil
}

func validate(tab Tab) error {
	switch tab.Kind {
	case Repo:
		if _, err := tab.Repository(); err != nil {
			return err
		}
	case Links, Docs:
		u, err := tab.URL()
		if err != nil {
			return err
		}
		if u != nil && (u.Host == "" || (u.Scheme != "http" && u.Scheme != "https")) {
			return errors.New(errors.CodeValidationError, "tab source must be an absolute http(s) URL")
		}
	case Items, Themes:
		if tab.Source != "" {
			return errors.Newf(errors.CodeValidationError, "%s tabs take no source", tab.Kind)
		}
	default:
		return errors.Newf(errors.CodeValidationError, "unknown tab kind %q", tab.Kind)
	}
	return nil
}

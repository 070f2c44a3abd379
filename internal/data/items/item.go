// Package items persists user items (snippets, scripts, styles) in sqlite.
package items

import (
	"sort"
	"strings"
	"time"

	"benchtop/internal/core/errors"
)

type Item struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Type      string    `json:"type" yaml:"type"`
	Code      string    `json:"code" yaml:"code"`
	Tags      []string  `json:"tags" yaml:"tags"`
	Notes     string    `json:"notes" yaml:"notes"`
	Autorun   bool      `json:"autorun" yaml:"autorun"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Validate checks the fields a save requires.
func (it Item) Validate() error {
	if strings.TrimSpace(it.Name) == "" {
		return errors.New(errors.CodeValidationError, "name is required")
	}
	if strings.TrimSpace(it.Type) == "" {
		return errors.AddContext(errors.New(errors.CodeValidationError, "type is required"), errors.CtxItem, it.Name)
	}
	return nil
}

func (it Item) normalized() Item {
	it.Name = strings.TrimSpace(it.Name)
	it.Type = strings.ToLower(strings.TrimSpace(it.Type))
	it.Tags = normalizeTags(it.Tags)
	return it
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ParseTags splits a comma separated tag list.
func ParseTags(s string) []string {
	return normalizeTags(strings.Split(s, ","))
}

// Lookup exposes item fields to the filter engine.
func (it Item) Lookup(field string) (any, bool) {
	switch field {
	case "id":
		return it.ID, true
	case "name":
		return it.Name, true
	case "type":
		return it.Type, true
	case "code":
		return it.Code, true
	case "tags":
		return it.Tags, true
	case "notes":
		return it.Notes, true
	case "autorun":
		return it.Autorun, true
	case "created":
		return it.CreatedAt, true
	case "updated":
		return it.UpdatedAt, true
	}
	return nil, false
}

// Fields lists the names Lookup understands.
func Fields() []string {
	return []string{"name", "type", "tags", "notes", "autorun", "created", "updated", "code", "id"}
}

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", errors.New(errors.CodeValidationError, "unknown format "+s)
}

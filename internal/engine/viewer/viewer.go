// Package viewer renders repository files for the terminal. Each file type
// is handled by a Module; the Registry picks the first module that accepts
// a file.
package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"benchtop/internal/core/errors"
	"benchtop/internal/shared/cache"
	"benchtop/internal/shared/observability"

	"github.com/cespare/xxhash/v2"
)

// File is one blob at a revision.
type File struct {
	Path    string
	SHA     string
	Content []byte
	Size    int64
}

func (f File) Ext() string {
	return strings.ToLower(path.Ext(f.Path))
}

func (f File) size() int64 {
	if f.Size > 0 {
		return f.Size
	}
	return int64(len(f.Content))
}

// Module is one rendering strategy.
type Module interface {
	Name() string
	Test(f File) bool
	Render(f File, width int) (string, error)
	// Prepare loads whatever the module needs before its first render.
	Prepare(ctx context.Context) error
}

type View struct {
	Module string
	Body   string
	Cached bool
}

type Registry struct {
	modules []Module

	mu       sync.Mutex
	prepared map[string]bool
	renders  *cache.LRU[string, View]
}

// NewRegistry tries modules in order. The text module is always appended
// as the fallback.
func NewRegistry(cacheSize int, modules ...Module) *Registry {
	all := append([]Module(nil), modules...)
	all = append(all, TextModule{})
	return &Registry{
		modules:  all,
		prepared: make(map[string]bool),
		renders:  cache.NewLRU[string, View](cacheSize),
	}
}

// DefaultModules returns the built-in modules for a theme.
func DefaultModules(markdownStyle, codeStyle string) []Module {
	return []Module{
		ImageModule{},
		NewMarkdownModule(markdownStyle),
		BinaryModule{},
		NewCodeModule(codeStyle),
	}
}

func (r *Registry) Modules() []string {
	out := make([]string, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m.Name())
	}
	return out
}

// Pick returns the first module that accepts f.
func (r *Registry) Pick(f File) Module {
	for _, m := range r.modules {
		if m.Test(f) {
			return m
		}
	}
	return TextModule{}
}

// Render renders f at width, preparing the chosen module on first use.
func (r *Registry) Render(ctx context.Context, f File, width int) (View, error) {
	if width <= 0 {
		width = 80
	}
	key := renderKey(f, width)
	if v, ok := r.renders.Get(key); ok {
		v.Cached = true
		return v, nil
	}

	m := r.Pick(f)
	if err := r.prepare(ctx, m); err != nil {
		return View{}, err
	}

	start := time.Now()
	body, err := m.Render(f, width)
	observability.ViewerRenderDuration.WithLabelValues(m.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Debug("render failed, falling back to text", "path", f.Path, "module", m.Name(), "error", err)
		m = TextModule{}
		if body, err = m.Render(f, width); err != nil {
			return View{}, errors.AddContext(err, errors.CtxPath, f.Path)
		}
	}

	v := View{Module: m.Name(), Body: body}
	r.renders.Put(key, v)
	return v, nil
}

func (r *Registry) ClearCache() {
	r.renders.Clear()
}

func (r *Registry) prepare(ctx context.Context, m Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.prepared[m.Name()] {
		return nil
	}
	if err := m.Prepare(ctx); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "prepare "+m.Name()+" view")
	}
	r.prepared[m.Name()] = true
	return nil
}

func renderKey(f File, width int) string {
	rev := f.SHA
	if rev == "" {
		rev = fmt.Sprintf("%016x", xxhash.Sum64(f.Content))
	}
	return fmt.Sprintf("%s@%s#%d", f.Path, rev, width)
}

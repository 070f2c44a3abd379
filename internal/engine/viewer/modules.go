package viewer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"sync"

	"benchtop/internal/engine/diff"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/quick"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
)

// TextModule prints content as is. It accepts everything.
type TextModule struct{}

func (TextModule) Name() string                  { return "text" }
func (TextModule) Test(File) bool                { return true }
func (TextModule) Prepare(context.Context) error { return nil }

func (TextModule) Render(f File, _ int) (string, error) {
	return strings.ReplaceAll(string(f.Content), "\t", "    "), nil
}

var imageExts = map[string]string{
	".png":  "PNG",
	".jpg":  "JPEG",
	".jpeg": "JPEG",
	".gif":  "GIF",
	".webp": "WebP",
	".bmp":  "BMP",
	".ico":  "ICO",
	".svg":  "SVG",
}

// ImageModule summarizes images; the terminal cannot show them inline.
type ImageModule struct{}

func (ImageModule) Name() string                  { return "image" }
func (ImageModule) Prepare(context.Context) error { return nil }

func (ImageModule) Test(f File) bool {
	_, ok := imageExts[f.Ext()]
	return ok
}

func (ImageModule) Render(f File, _ int) (string, error) {
	format := imageExts[f.Ext()]
	size := humanize.Bytes(uint64(f.size()))
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Content)); err == nil {
		return fmt.Sprintf("%s image, %dx%d, %s", format, cfg.Width, cfg.Height, size), nil
	}
	return fmt.Sprintf("%s image, %s", format, size), nil
}

// BinaryModule summarizes non-text blobs.
type BinaryModule struct{}

func (BinaryModule) Name() string                  { return "binary" }
func (BinaryModule) Prepare(context.Context) error { return nil }

func (BinaryModule) Test(f File) bool {
	return diff.IsBinary(string(f.Content))
}

func (BinaryModule) Render(f File, _ int) (string, error) {
	out := fmt.Sprintf("binary file, %s", humanize.Bytes(uint64(f.size())))
	if f.SHA != "" {
		out += fmt.Sprintf(" (blob %s)", shortSHA(f.SHA))
	}
	return out, nil
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// MarkdownModule renders markdown with glamour. Renderers are built per
// wrap width and reused.
type MarkdownModule struct {
	style     string
	mu        *sync.Mutex
	renderers map[int]*glamour.TermRenderer
}

func NewMarkdownModule(style string) *MarkdownModule {
	if style == "" {
		style = "dark"
	}
	return &MarkdownModule{style: style, mu: &sync.Mutex{}, renderers: make(map[int]*glamour.TermRenderer)}
}

func (m *MarkdownModule) Name() string { return "markdown" }

func (m *MarkdownModule) Test(f File) bool {
	switch f.Ext() {
	case ".md", ".markdown", ".mdown", ".mkd":
		return true
	}
	return false
}

// Prepare builds the default-width renderer so a bad style fails early.
func (m *MarkdownModule) Prepare(context.Context) error {
	_, err := m.renderer(80)
	return err
}

func (m *MarkdownModule) renderer(width int) (*glamour.TermRenderer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.renderers[width]; ok {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(m.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	m.renderers[width] = r
	return r, nil
}

func (m *MarkdownModule) Render(f File, width int) (string, error) {
	r, err := m.renderer(width)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return r.Render(string(f.Content))
}

// CodeModule highlights source code with chroma for 256-color terminals.
type CodeModule struct {
	style string
}

func NewCodeModule(style string) CodeModule {
	if style == "" {
		style = "monokai"
	}
	return CodeModule{style: style}
}

func (CodeModule) Name() string { return "code" }

func (CodeModule) Test(f File) bool {
	return lexers.Match(f.Path) != nil
}

func (c CodeModule) Prepare(context.Context) error {
	if styles.Get(c.style) == styles.Fallback && c.style != "swapoff" {
		return fmt.Errorf("unknown code style %q", c.style)
	}
	return nil
}

func (c CodeModule) Render(f File, _ int) (string, error) {
	lexer := lexers.Match(f.Path)
	if lexer == nil {
		return "", fmt.Errorf("no lexer for %s", f.Path)
	}
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, string(f.Content), lexer.Config().Name, "terminal256", c.style); err != nil {
		return "", err
	}
	return buf.String(), nil
}

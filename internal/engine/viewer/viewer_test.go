package viewer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"
)

type countingModule struct {
	name     string
	prepares int
	renders  int
	fail     bool
}

func (m *countingModule) Name() string { return m.name }
func (m *countingModule) Test(f File) bool {
	return strings.HasSuffix(f.Path, ".count")
}
func (m *countingModule) Prepare(context.Context) error {
	m.prepares++
	return nil
}
func (m *countingModule) Render(f File, width int) (string, error) {
	m.renders++
	if m.fail {
		return "", errors.New("boom")
	}
	return strings.ToUpper(string(f.Content)), nil
}

func TestRegistry_PickOrder(t *testing.T) {
	r := NewRegistry(8, DefaultModules("notty", "monokai")...)
	cases := []struct {
		path    string
		content string
		want    string
	}{
		{"README.md", "# Hi", "markdown"},
		{"logo.png", "\x89PNG", "image"},
		{"blob.dat", "a\x00b", "binary"},
		{"main.go", "package main", "code"},
		{"notes.unknownext", "plain words", "text"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			if got := r.Pick(File{Path: tc.path, Content: []byte(tc.content)}).Name(); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
	if mods := r.Modules(); mods[len(mods)-1] != "text" {
		t.Fatalf("text must be the fallback, got %v", mods)
	}
}

func TestRegistry_PreparesOnceAndCaches(t *testing.T) {
	m := &countingModule{name: "count"}
	r := NewRegistry(4, m)
	f := File{Path: "a.count", SHA: "abc", Content: []byte("hello")}

	for i := 0; i < 3; i++ {
		v, err := r.Render(context.Background(), f, 40)
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		if v.Body != "HELLO" || v.Module != "count" {
			t.Fatalf("unexpected view %+v", v)
		}
		if i > 0 && !v.Cached {
			t.Fatal("expected cached view on repeat render")
		}
	}
	if m.prepares != 1 || m.renders != 1 {
		t.Fatalf("expected 1 prepare and 1 render, got %d/%d", m.prepares, m.renders)
	}

	if _, err := r.Render(context.Background(), f, 100); err != nil {
		t.Fatalf("render: %v", err)
	}
	if m.renders != 2 {
		t.Fatalf("different width must re-render, got %d renders", m.renders)
	}

	r.ClearCache()
	_, _ = r.Render(context.Background(), f, 40)
	if m.renders != 3 {
		t.Fatalf("expected re-render after clear, got %d", m.renders)
	}
}

func TestRegistry_FallsBackToText(t *testing.T) {
	r := NewRegistry(4, &countingModule{name: "count", fail: true})
	v, err := r.Render(context.Background(), File{Path: "x.count", Content: []byte("a\tb")}, 0)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if v.Module != "text" || v.Body != "a    b" {
		t.Fatalf("unexpected fallback view %+v", v)
	}
}

func TestMarkdownModule(t *testing.T) {
	m := NewMarkdownModule("notty")
	if err := m.Prepare(context.Background()); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	out, err := m.Render(File{Path: "README.md", Content: []byte("# Title\n\nSome *text*.")}, 60)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Title") || !strings.Contains(out, "text") {
		t.Fatalf("unexpected markdown output %q", out)
	}

	if err := NewMarkdownModule("/no/such/style.json").Prepare(context.Background()); err == nil {
		t.Fatal("expected unknown style to fail")
	}
}

func TestCodeModule(t *testing.T) {
	c := NewCodeModule("monokai")
	if err := c.Prepare(context.Background()); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	out, err := c.Render(File{Path: "main.go", Content: []byte("package main\n\nfunc main() {}\n")}, 80)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "\x1b[") || !strings.Contains(out, "main") {
		t.Fatalf("expected ANSI highlighted output, got %q", out)
	}
	if err := NewCodeModule("not-a-style").Prepare(context.Background()); err == nil {
		t.Fatal("expected unknown code style to fail")
	}
}

func TestImageAndBinarySummaries(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 2))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, _ := ImageModule{}.Render(File{Path: "a.png", Content: buf.Bytes()}, 80)
	if !strings.HasPrefix(out, "PNG image, 3x2, ") {
		t.Fatalf("unexpected image summary %q", out)
	}

	out, _ = BinaryModule{}.Render(File{Path: "a.bin", SHA: "0123456789abcdef", Size: 2048}, 80)
	if out != "binary file, 2.0 kB (blob 0123456)" {
		t.Fatalf("unexpected binary summary %q", out)
	}
}

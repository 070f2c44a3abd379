package themes

import (
	"os"
	"path/filepath"
	"testing"

	"benchtop/internal/core/errors"
)

func TestBuiltins(t *testing.T) {
	names := Names()
	want := []string{"dark", "light", "nord", "solarized", "dracula"}
	if len(names) != len(want) {
		t.Fatalf("expected %d themes, got %v", len(want), names)
	}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("expected %s at %d, got %s", n, i, names[i])
		}
		th, ok := Lookup(n)
		if !ok {
			t.Fatalf("lookup %s failed", n)
		}
		if th.Markdown == "" || th.Code == "" {
			t.Fatalf("theme %s lacks renderer styles", n)
		}
	}
	if _, ok := Lookup("neon"); ok {
		t.Fatal("unexpected theme neon")
	}
}

func TestPicker_PersistsSelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "theme.toml")

	p := NewPicker(path, "")
	if p.Current().Name != DefaultTheme {
		t.Fatalf("expected default theme, got %s", p.Current().Name)
	}
	if _, err := p.Select(" Nord "); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	again := NewPicker(path, "light")
	if again.Current().Name != "nord" {
		t.Fatalf("expected persisted nord, got %s", again.Current().Name)
	}
}

func TestPicker_Fallbacks(t *testing.T) {
	dir := t.TempDir()

	if got := NewPicker(filepath.Join(dir, "none.toml"), "light").Current().Name; got != "light" {
		t.Fatalf("expected configured fallback light, got %s", got)
	}

	broken := filepath.Join(dir, "broken.toml")
	if err := os.WriteFile(broken, []byte("theme = "), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := NewPicker(broken, "bogus").Current().Name; got != DefaultTheme {
		t.Fatalf("expected dark for unusable state, got %s", got)
	}
}

func TestPicker_SelectUnknown(t *testing.T) {
	p := NewPicker("", "dracula")
	_, err := p.Select("neon")
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
	if p.Current().Name != "dracula" {
		t.Fatalf("failed select must keep current theme, got %s", p.Current().Name)
	}
}

func TestPicker_Cycle(t *testing.T) {
	p := NewPicker("", "solarized")
	th, err := p.Cycle()
	if err != nil {
		t.Fatalf("Cycle failed: %v", err)
	}
	if th.Name != "dracula" {
		t.Fatalf("expected dracula, got %s", th.Name)
	}
	th, _ = p.Cycle()
	if th.Name != "dark" {
		t.Fatalf("expected wrap to dark, got %s", th.Name)
	}
}

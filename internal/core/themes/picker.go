package themes

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"sync"

	"benchtop/internal/core/errors"
	"benchtop/internal/shared/util"

	"github.com/BurntSushi/toml"
)

const DefaultTheme = "dark"

type stateFile struct {
	Theme string `toml:"theme"`
}

// Picker tracks the selected theme and persists it to a small TOML file so
// the choice survives restarts.
type Picker struct {
	mu      sync.Mutex
	path    string
	current Theme
}

// NewPicker restores the selection saved at path. When nothing usable is
// saved it starts from fallback, then from the dark theme.
func NewPicker(path, fallback string) *Picker {
	p := &Picker{path: path}
	for _, name := range []string{p.load(), fallback, DefaultTheme} {
		if t, ok := Lookup(strings.ToLower(strings.TrimSpace(name))); ok {
			p.current = t
			break
		}
	}
	return p
}

func (p *Picker) load() string {
	if p.path == "" {
		return ""
	}
	var st stateFile
	if _, err := toml.DecodeFile(p.path, &st); err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("ignoring unreadable theme state", "path", p.path, "error", err)
		}
		return ""
	}
	return st.Theme
}

func (p *Picker) Current() Theme {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Picker) Names() []string {
	return Names()
}

// Select switches to the named theme and persists the choice.
func (p *Picker) Select(name string) (Theme, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	t, ok := Lookup(name)
	if !ok {
		return Theme{}, errors.AddContext(
			errors.New(errors.CodeValidationError, "unknown theme "+name),
			errors.CtxField, "theme")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = t
	if p.path == "" {
		return t, nil
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(stateFile{Theme: t.Name}); err != nil {
		return t, errors.Wrap(err, errors.CodeInternal, "encode theme state")
	}
	if err := util.WriteFileWithDirs(p.path, buf.Bytes(), 0o644); err != nil {
		return t, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "save theme"), errors.CtxPath, p.path)
	}
	return t, nil
}

// Cycle selects the theme after the current one, wrapping around.
func (p *Picker) Cycle() (Theme, error) {
	names := Names()
	cur := p.Current().Name
	next := names[0]
	for i, n := range names {
		if n == cur {
			next = names[(i+1)%len(names)]
			break
		}
	}
	return p.Select(next)
}

// Package diff computes line-based file diffs for the repository compare
// view.
package diff

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"benchtop/internal/shared/cache"

	"github.com/cespare/xxhash/v2"
	"github.com/sergi/go-diff/diffmatchpatch"
)

type LineKind int

const (
	Context LineKind = iota
	Added
	Removed
)

func (k LineKind) Prefix() string {
	switch k {
	case Added:
		return "+"
	case Removed:
		return "-"
	default:
		return " "
	}
}

// Line is one diff line. OldNum and NewNum are 1-based and zero on the side
// the line does not exist.
type Line struct {
	Kind    LineKind
	OldNum  int
	NewNum  int
	Content string
}

type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
}

type FileDiff struct {
	OldPath  string
	NewPath  string
	Hunks    []Hunk
	IsNew    bool
	IsDelete bool
	IsBinary bool
}

type Stats struct {
	Added   int
	Removed int
}

func (d FileDiff) Stats() Stats {
	var s Stats
	for _, h := range d.Hunks {
		for _, l := range h.Lines {
			switch l.Kind {
			case Added:
				s.Added++
			case Removed:
				s.Removed++
			}
		}
	}
	return s
}

// Identical reports whether the two sides had no textual difference.
func (d FileDiff) Identical() bool {
	return !d.IsBinary && len(d.Hunks) == 0
}

// Unified renders d in unified diff format.
func (d FileDiff) Unified() string {
	var sb strings.Builder
	if d.IsBinary {
		fmt.Fprintf(&sb, "Binary files a/%s and b/%s differ\n", d.OldPath, d.NewPath)
		return sb.String()
	}
	if len(d.Hunks) == 0 {
		return ""
	}
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", d.OldPath, d.NewPath)
	for _, h := range d.Hunks {
		sb.WriteString(h.Header())
		sb.WriteByte('\n')
		for _, l := range h.Lines {
			sb.WriteString(l.Kind.Prefix())
			sb.WriteString(l.Content)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// IsBinary treats content with a NUL byte or invalid UTF-8 in its first 8KB
// as binary.
func IsBinary(content string) bool {
	head := content
	if len(head) > 8000 {
		head = head[:8000]
	}
	if strings.IndexByte(head, 0) >= 0 {
		return true
	}
	// The cut may split a rune.
	for i := 0; i < utf8.UTFMax && len(head) < len(content) && !utf8.ValidString(head); i++ {
		head = head[:len(head)-1]
	}
	return !utf8.ValidString(head)
}

type cacheKey struct {
	old, new uint64
	context  int
}

// Engine computes diffs and memoizes them by content hash.
type Engine struct {
	dmp   *diffmatchpatch.DiffMatchPatch
	cache *cache.LRU[cacheKey, FileDiff]
}

func NewEngine(cacheSize int) *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	return &Engine{dmp: dmp, cache: cache.NewLRU[cacheKey, FileDiff](cacheSize)}
}

var defaultEngine = NewEngine(32)

// Compute diffs two file versions with the shared engine.
func Compute(oldPath, newPath, oldContent, newContent string, context int) FileDiff {
	return defaultEngine.Compute(oldPath, newPath, oldContent, newContent, context)
}

// Compute returns the line diff of the two contents with context lines of
// unchanged text around each hunk.
func (e *Engine) Compute(oldPath, newPath, oldContent, newContent string, context int) FileDiff {
	if context < 0 {
		context = 0
	}
	d := FileDiff{
		OldPath:  oldPath,
		NewPath:  newPath,
		IsNew:    oldContent == "" && newContent != "",
		IsDelete: newContent == "" && oldContent != "",
	}
	if IsBinary(oldContent) || IsBinary(newContent) {
		d.IsBinary = oldContent != newContent
		return d
	}
	if oldContent == newContent {
		return d
	}

	key := cacheKey{old: xxhash.Sum64String(oldContent), new: xxhash.Sum64String(newContent), context: context}
	cached, _ := e.cache.GetOrCompute(key, func() (FileDiff, error) {
		return FileDiff{Hunks: e.hunks(oldContent, newContent, context)}, nil
	})
	d.Hunks = cached.Hunks
	return d
}

func (e *Engine) ClearCache() {
	e.cache.Clear()
}

type op struct {
	kind    LineKind
	oldPos  int // old lines consumed before this op
	newPos  int
	content string
}

func (e *Engine) hunks(oldContent, newContent string, context int) []Hunk {
	a, b, lines := e.dmp.DiffLinesToChars(oldContent, newContent)
	diffs := e.dmp.DiffMain(a, b, false)
	diffs = e.dmp.DiffCharsToLines(diffs, lines)

	ops := toOps(diffs)
	var changes []int
	for i, o := range ops {
		if o.kind != Context {
			changes = append(changes, i)
		}
	}
	if len(changes) == 0 {
		return nil
	}

	var out []Hunk
	start := changes[0]
	end := changes[0]
	for _, idx := range changes[1:] {
		if idx-end-1 > 2*context {
			out = append(out, buildHunk(ops, start, end, context))
			start = idx
		}
		end = idx
	}
	return append(out, buildHunk(ops, start, end, context))
}

func toOps(diffs []diffmatchpatch.Diff) []op {
	var ops []op
	oldPos, newPos := 0, 0
	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			o := op{oldPos: oldPos, newPos: newPos, content: line}
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				o.kind = Context
				oldPos++
				newPos++
			case diffmatchpatch.DiffDelete:
				o.kind = Removed
				oldPos++
			case diffmatchpatch.DiffInsert:
				o.kind = Added
				newPos++
			}
			ops = append(ops, o)
		}
	}
	return ops
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	parts := strings.SplitAfter(text, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\n")
	}
	return parts
}

// buildHunk covers the changes between ops[first] and ops[last] plus up to
// context unchanged lines on either side.
func buildHunk(ops []op, first, last, context int) Hunk {
	from := max(first-context, 0)
	to := min(last+context, len(ops)-1)

	h := Hunk{OldStart: ops[from].oldPos + 1, NewStart: ops[from].newPos + 1}
	for _, o := range ops[from : to+1] {
		l := Line{Kind: o.kind, Content: o.content}
		switch o.kind {
		case Context:
			l.OldNum, l.NewNum = o.oldPos+1, o.newPos+1
			h.OldCount++
			h.NewCount++
		case Removed:
			l.OldNum = o.oldPos + 1
			h.OldCount++
		case Added:
			l.NewNum = o.newPos + 1
			h.NewCount++
		}
		h.Lines = append(h.Lines, l)
	}
	// An empty side points at the line before the hunk, as in unified diffs.
	if h.OldCount == 0 {
		h.OldStart--
	}
	if h.NewCount == 0 {
		h.NewStart--
	}
	return h
}

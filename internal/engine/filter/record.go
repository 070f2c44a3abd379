package filter

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ohler55/ojg/jp"
)

// Record exposes named fields to the engine.
type Record interface {
	Lookup(field string) (any, bool)
}

// MapRecord adapts decoded JSON-like data. Field keys starting with '$' are
// JSONPath expressions; anything else is a top-level key.
type MapRecord map[string]any

var compiledPaths sync.Map // string -> jp.Expr

func (m MapRecord) Lookup(field string) (any, bool) {
	if !strings.HasPrefix(field, "$") {
		v, ok := m[field]
		return v, ok
	}
	expr, err := compilePath(field)
	if err != nil {
		return nil, false
	}
	results := expr.Get(map[string]any(m))
	if len(results) == 0 {
		return nil, false
	}
	return results[0], true
}

func compilePath(field string) (jp.Expr, error) {
	if cached, ok := compiledPaths.Load(field); ok {
		return cached.(jp.Expr), nil
	}
	expr, err := jp.ParseString(field)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath %q: %w", field, err)
	}
	compiledPaths.Store(field, expr)
	return expr, nil
}

// Stringify renders a field value the way text and select filters see it.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, Stringify(p))
		}
		return strings.Join(parts, ", ")
	case time.Time:
		return val.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

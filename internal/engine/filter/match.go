package filter

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Matches evaluates d against r. Unparseable filter or field values pass.
func (d Definition) Matches(r Record) bool {
	raw, found := r.Lookup(d.Field)
	switch d.Kind {
	case KindText:
		return matchText(d.Value, raw)
	case KindNumber:
		return matchNumber(d.Op, d.Value, raw, found)
	case KindBoolean:
		return matchBoolean(d.Value, raw)
	case KindSelect:
		return matchSelect(d.Value, d.Options, raw)
	case KindDate:
		return matchDate(d.Op, d.Value, raw, found)
	}
	return true
}

func matchText(value string, raw any) bool {
	if value == "" {
		return true
	}
	return strings.Contains(strings.ToLower(Stringify(raw)), strings.ToLower(value))
}

func matchNumber(op Operator, value string, raw any, found bool) bool {
	want, ok := parseNumber(value)
	if !ok || !found {
		return true
	}
	got, ok := toFloat(raw)
	if !ok {
		return true
	}
	return compareFloat(op, got, want)
}

// parseNumber reads a decimal or float literal. NaN is not a number here;
// infinities are, and order after every finite value.
func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, !math.IsNaN(v)
	case float32:
		return float64(v), !math.IsNaN(float64(v))
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		return parseNumber(v)
	}
	return 0, false
}

func compareFloat(op Operator, got, want float64) bool {
	switch op {
	case OpGt:
		return got > want
	case OpLt:
		return got < want
	case OpGte:
		return got >= want
	case OpLte:
		return got <= want
	default:
		return got == want
	}
}

// matchBoolean is tri-state: an empty or unparseable filter value is unset.
// A missing field counts as false.
func matchBoolean(value string, raw any) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return true
	}
	want, err := strconv.ParseBool(value)
	if err != nil {
		return true
	}
	got, ok := toBool(raw)
	if !ok {
		return true
	}
	return got == want
}

func toBool(raw any) (bool, bool) {
	switch v := raw.(type) {
	case nil:
		return false, true
	case bool:
		return v, true
	case string:
		if strings.TrimSpace(v) == "" {
			return false, true
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	}
	if f, ok := toFloat(raw); ok {
		return f != 0, true
	}
	return false, false
}

func matchSelect(value string, options []string, raw any) bool {
	if value == "" {
		return true
	}
	if len(options) > 0 && !contains(options, value) {
		return true
	}
	return Stringify(raw) == value
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// matchDate compares calendar days in each value's own location; the time
// of day never affects the outcome.
func matchDate(op Operator, value string, raw any, found bool) bool {
	want, ok := ParseDate(value)
	if !ok || !found {
		return true
	}
	var got time.Time
	switch v := raw.(type) {
	case time.Time:
		got = v
	case string:
		parsed, ok := ParseDate(v)
		if !ok {
			return true
		}
		got = parsed
	default:
		return true
	}

	g, w := calendarDay(got), calendarDay(want)
	switch op {
	case OpGt:
		return g.After(w)
	case OpLt:
		return g.Before(w)
	case OpGte:
		return !g.Before(w)
	case OpLte:
		return !g.After(w)
	default:
		return g.Equal(w)
	}
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseDate accepts the common ISO, US and RFC layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

package filter

import (
	"sort"

	"benchtop/internal/shared/observability"

	"github.com/RoaringBitmap/roaring"
)

// Result is the derived, filtered view of a collection.
type Result[R Record] struct {
	Items   []R
	Indices []int
	Count   int
	Total   int
	// Matched counts, per definition ID, the records that definition alone
	// lets through.
	Matched map[string]int
}

// Apply evaluates every record against every active definition and keeps
// the records that pass all of them, in their original order. A nil or
// empty set returns the whole collection.
func Apply[R Record](set *Set, records []R) Result[R] {
	observability.FilterEvaluationsTotal.Inc()

	defs := set.Definitions()
	res := Result[R]{Total: len(records), Matched: make(map[string]int, len(defs))}
	if len(defs) == 0 {
		res.Items = append([]R(nil), records...)
		res.Indices = make([]int, len(records))
		for i := range records {
			res.Indices[i] = i
		}
		res.Count = len(records)
		return res
	}

	bitmaps := make([]*roaring.Bitmap, 0, len(defs))
	for _, def := range defs {
		bm := roaring.New()
		for i, rec := range records {
			if def.Matches(rec) {
				bm.Add(uint32(i))
			}
		}
		res.Matched[def.ID] = int(bm.GetCardinality())
		bitmaps = append(bitmaps, bm)
	}

	survivors := roaring.FastAnd(bitmaps...)
	res.Count = int(survivors.GetCardinality())
	res.Items = make([]R, 0, res.Count)
	res.Indices = make([]int, 0, res.Count)
	it := survivors.Iterator()
	for it.HasNext() {
		i := int(it.Next())
		res.Items = append(res.Items, records[i])
		res.Indices = append(res.Indices, i)
	}
	return res
}

// Facets returns the distinct non-empty string values of field, sorted.
// The filter bar offers these as select options.
func Facets[R Record](records []R, field string) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		raw, ok := rec.Lookup(field)
		if !ok {
			continue
		}
		if list, isList := raw.([]string); isList {
			for _, v := range list {
				if v != "" {
					seen[v] = struct{}{}
				}
			}
			continue
		}
		if v := Stringify(raw); v != "" {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// maxSelectOptions bounds how many distinct values a field may have before
// it is treated as free text.
const maxSelectOptions = 8

// InferKind guesses the filter kind for a field from sample values.
func InferKind(values []any) Kind {
	nonEmpty := make([]any, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		nonEmpty = append(nonEmpty, v)
	}
	if len(nonEmpty) == 0 {
		return KindText
	}

	allBool, allNum, allDate := true, true, true
	distinct := make(map[string]struct{})
	for _, v := range nonEmpty {
		distinct[Stringify(v)] = struct{}{}
		if _, ok := v.(bool); !ok {
			allBool = false
		}
		if _, ok := toFloat(v); !ok {
			allNum = false
		}
		switch dv := v.(type) {
		case string:
			if _, ok := ParseDate(dv); !ok {
				allDate = false
			}
		default:
			if _, ok := v.(interface{ IsZero() bool }); !ok {
				allDate = false
			}
		}
	}
	switch {
	case allBool:
		return KindBoolean
	case allNum:
		return KindNumber
	case allDate:
		return KindDate
	case len(distinct) <= maxSelectOptions && len(distinct) < len(nonEmpty):
		return KindSelect
	default:
		return KindText
	}
}

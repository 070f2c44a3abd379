package cli

import (
	"strings"

	"benchtop/internal/core/errors"
	"benchtop/internal/engine/filter"
)

// parseFilterSpec reads "field:kind:op:value"; the value may itself contain
// colons. Input whose second segment is not a filter kind, such as a URL, is
// a text filter on defaultField.
func parseFilterSpec(spec, defaultField string) (filter.Definition, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return filter.Definition{}, errors.New(errors.CodeValidationError, "empty filter")
	}
	parts := strings.SplitN(spec, ":", 4)
	if len(parts) < 2 {
		return filter.Definition{Kind: filter.KindText, Field: defaultField, Value: spec}, nil
	}
	kind, ok := filter.ParseKind(parts[1])
	if !ok {
		return filter.Definition{Kind: filter.KindText, Field: defaultField, Value: spec}, nil
	}
	if len(parts) != 4 {
		return filter.Definition{}, errors.AddContext(
			errors.New(errors.CodeValidationError, "filter must be formatted as field:kind:op:value"),
			errors.CtxField, spec)
	}
	op, ok := filter.ParseOperator(parts[2])
	if !ok {
		return filter.Definition{}, errors.Newf(errors.CodeValidationError, "unknown filter operator %q", parts[2])
	}
	return filter.Definition{Kind: kind, Field: strings.TrimSpace(parts[0]), Op: op, Value: parts[3]}, nil
}

func buildFilterSet(specs []string, defaultField string) (*filter.Set, error) {
	set := filter.NewSet()
	for _, spec := range specs {
		def, err := parseFilterSpec(spec, defaultField)
		if err != nil {
			return nil, err
		}
		if _, err := set.Add(def); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func describeFilters(set *filter.Set) string {
	defs := set.Definitions()
	if len(defs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(defs))
	for _, d := range defs {
		op := string(d.Op)
		if !d.Kind.Ordered() {
			op = "~"
		}
		parts = append(parts, d.Field+op+d.Value)
	}
	return strings.Join(parts, " & ")
}

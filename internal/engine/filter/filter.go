// Package filter evaluates typed per-field predicates over flat record
// collections. Evaluation is permissive: values that fail to parse never
// exclude a record.
package filter

import (
	"strings"
	"sync"

	"benchtop/internal/core/errors"

	"github.com/google/uuid"
)

type Kind string

const (
	KindText    Kind = "text"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindSelect  Kind = "select"
	KindDate    Kind = "date"
)

type Operator string

const (
	OpEq  Operator = "="
	OpGt  Operator = ">"
	OpLt  Operator = "<"
	OpGte Operator = ">="
	OpLte Operator = "<="
)

// Definition is one user-configured predicate on a single field.
type Definition struct {
	ID    string   `json:"id" yaml:"id"`
	Kind  Kind     `json:"kind" yaml:"kind"`
	Field string   `json:"field" yaml:"field"`
	Op    Operator `json:"op,omitempty" yaml:"op,omitempty"`
	Value string   `json:"value" yaml:"value"`
	// Options lists the allowed values of a select filter. Empty means any.
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
}

// Ordered reports whether the kind takes a comparison operator.
func (k Kind) Ordered() bool {
	return k == KindNumber || k == KindDate
}

// ParseKind reads a kind name case-insensitively.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindText, KindNumber, KindBoolean, KindSelect, KindDate:
		return k, true
	}
	return "", false
}

var operatorNames = map[string]Operator{
	"eq":  OpEq,
	"gt":  OpGt,
	"lt":  OpLt,
	"gte": OpGte,
	"lte": OpLte,
}

// ParseOperator accepts the symbols or their shell-safe names (eq, gt, lt,
// gte, lte). Empty means equality.
func ParseOperator(s string) (Operator, bool) {
	s = strings.TrimSpace(s)
	switch op := Operator(s); op {
	case OpEq, OpGt, OpLt, OpGte, OpLte:
		return op, true
	case "":
		return OpEq, true
	}
	op, ok := operatorNames[strings.ToLower(s)]
	return op, ok
}

func (d Definition) normalized() (Definition, error) {
	kind, ok := ParseKind(string(d.Kind))
	if !ok {
		return d, errors.New(errors.CodeValidationError, "unknown filter kind "+string(d.Kind))
	}
	d.Kind = kind
	d.Field = strings.TrimSpace(d.Field)
	if d.Field == "" {
		return d, errors.New(errors.CodeValidationError, "filter field is required")
	}
	op, ok := ParseOperator(string(d.Op))
	if !ok {
		return d, errors.New(errors.CodeValidationError, "unknown filter operator "+string(d.Op))
	}
	if !kind.Ordered() {
		op = OpEq
	}
	d.Op = op
	return d, nil
}

// Set holds the active definitions keyed by synthetic ID, in insertion
// order. Several definitions may target the same field.
type Set struct {
	mu    sync.RWMutex
	order []string
	defs  map[string]Definition
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{defs: make(map[string]Definition)}
}

// Add validates def, assigns a fresh ID and appends it.
func (s *Set) Add(def Definition) (string, error) {
	def, err := def.normalized()
	if err != nil {
		return "", err
	}
	def.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs[def.ID] = def
	s.order = append(s.order, def.ID)
	return def.ID, nil
}

// Put inserts or replaces def under def.ID, keeping the position of an
// existing entry.
func (s *Set) Put(def Definition) error {
	if strings.TrimSpace(def.ID) == "" {
		return errors.New(errors.CodeValidationError, "filter id is required")
	}
	def, err := def.normalized()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.defs[def.ID]; !ok {
		s.order = append(s.order, def.ID)
	}
	s.defs[def.ID] = def
	return nil
}

// Update changes the value of an existing definition.
func (s *Set) Update(id, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.defs[id]
	if !ok {
		return errors.New(errors.CodeNotFound, "filter "+id)
	}
	def.Value = value
	s.defs[id] = def
	return nil
}

// Remove deletes the definition with id and reports whether it existed.
func (s *Set) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.defs[id]; !ok {
		return false
	}
	delete(s.defs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear drops every definition.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.defs = make(map[string]Definition)
}

func (s *Set) Get(id string) (Definition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.defs[id]
	return def, ok
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Definitions returns a copy of the active definitions in insertion order.
func (s *Set) Definitions() []Definition {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Definition, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.defs[id])
	}
	return out
}

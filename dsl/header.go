package dsl

import (
	"fmt"

	"github.com/reoring/sheetdb/rules"
)

// HeaderDef accumulates the named, ordered schema of one sheet. Fields keep
// their first insertion position; re-adding a field replaces its rules in
// place.
type HeaderDef struct {
	name     string
	order    []string
	fields   map[string]rules.Ruleset
	types    *rules.TypeRegistry
	rulesets *rules.SchemaRegistry
	vet      *rules.Validator
	err      error
}

// Header starts a header bound to the process-default registries.
func Header(name string) *HeaderDef {
	return HeaderWith(name, nil, nil)
}

// HeaderWith starts a header bound to explicit registries. Nil registries
// fall back to the process defaults.
func HeaderWith(name string, types *rules.TypeRegistry, rulesets *rules.SchemaRegistry) *HeaderDef {
	if types == nil {
		types = rules.DefaultTypes
	}
	if rulesets == nil {
		rulesets = rules.DefaultRulesets
	}
	h := &HeaderDef{
		name:     name,
		fields:   map[string]rules.Ruleset{},
		types:    types,
		rulesets: rulesets,
		vet:      checker(types, rulesets),
	}
	if name == "" {
		h.err = fmt.Errorf("dsl: header name must not be empty")
	}
	return h
}

// Name returns the header name.
func (h *HeaderDef) Name() string { return h.name }

// Types returns the type registry the header is bound to.
func (h *HeaderDef) Types() *rules.TypeRegistry { return h.types }

// Rulesets returns the schema registry the header is bound to.
func (h *HeaderDef) Rulesets() *rules.SchemaRegistry { return h.rulesets }

// Err returns the first error recorded by the chain, nil when every
// mutation committed.
func (h *HeaderDef) Err() error { return h.err }

// Add appends fields to the header. Each argument is a *FieldDef or a bare
// field name (string), which adds the field with no rules. A field added
// twice keeps its original position and takes the later rules. A FieldDef
// carrying an error makes the header error sticky.
func (h *HeaderDef) Add(fields ...any) *HeaderDef {
	if h.err != nil {
		return h
	}
	for _, field := range fields {
		switch fd := field.(type) {
		case *FieldDef:
			if fd.Err() != nil {
				h.err = fmt.Errorf("header %q: %w", h.name, fd.Err())
				return h
			}
			if !h.commit(fd.Name(), fd.Ruleset()) {
				return h
			}
		case string:
			if !h.commit(fd, rules.Ruleset{}) {
				return h
			}
		default:
			h.err = fmt.Errorf("header %q: Add accepts *FieldDef or string, got %T", h.name, field)
			return h
		}
	}
	return h
}

// commit vets one field's rules against the header's registries and stores
// them. Returns false after recording a sticky error.
func (h *HeaderDef) commit(name string, rs rules.Ruleset) bool {
	if name == "" {
		h.err = fmt.Errorf("header %q: field name must not be empty", h.name)
		return false
	}
	if err := h.vet.CheckSchema(rules.Schema{name: rs}); err != nil {
		h.err = fmt.Errorf("header %q: %w", h.name, err)
		return false
	}
	if _, exists := h.fields[name]; !exists {
		h.order = append(h.order, name)
	}
	h.fields[name] = rs
	return true
}

// Remove deletes fields from the header. Each argument is a *FieldDef or a
// field name. Removing an absent field records a sticky ErrUnknownField.
func (h *HeaderDef) Remove(fields ...any) *HeaderDef {
	if h.err != nil {
		return h
	}
	for _, field := range fields {
		var name string
		switch fd := field.(type) {
		case *FieldDef:
			name = fd.Name()
		case string:
			name = fd
		default:
			h.err = fmt.Errorf("header %q: Remove accepts *FieldDef or string, got %T", h.name, field)
			return h
		}
		if _, ok := h.fields[name]; !ok {
			h.err = fmt.Errorf("header %q: remove %q: %w", h.name, name, ErrUnknownField)
			return h
		}
		delete(h.fields, name)
		for i, n := range h.order {
			if n == name {
				h.order = append(h.order[:i], h.order[i+1:]...)
				break
			}
		}
	}
	return h
}

// ApplyRule sets one rule on a selection of fields. fields selects the
// targets:
//
//	nil        every field present when the call starts
//	string     exactly that field; absent is an error
//	[]string   those fields; absent names are skipped
//
// Each application is vetted individually; the first rejection stops the
// call and leaves later fields untouched.
func (h *HeaderDef) ApplyRule(rule string, value any, fields any) *HeaderDef {
	if h.err != nil {
		return h
	}
	if rule == "type" {
		if _, ok := value.(string); !ok {
			name, err := h.types.Declare(value)
			if err != nil {
				h.err = fmt.Errorf("header %q: %w", h.name, err)
				return h
			}
			value = name
		}
	}
	var targets []string
	switch sel := fields.(type) {
	case nil:
		targets = h.AllFields()
	case string:
		if _, ok := h.fields[sel]; !ok {
			h.err = fmt.Errorf("header %q: apply %q to %q: %w", h.name, rule, sel, ErrUnknownField)
			return h
		}
		targets = []string{sel}
	case []string:
		for _, name := range sel {
			if _, ok := h.fields[name]; ok {
				targets = append(targets, name)
			}
		}
	default:
		h.err = fmt.Errorf("header %q: ApplyRule accepts nil, string or []string, got %T", h.name, fields)
		return h
	}
	for _, name := range targets {
		rs := h.fields[name].Clone()
		rs[rule] = value
		if !h.commit(name, rs) {
			return h
		}
	}
	return h
}

// AllFields returns the field names in insertion order.
func (h *HeaderDef) AllFields() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// Field returns a copy of one field's rules and whether the field exists.
func (h *HeaderDef) Field(name string) (rules.Ruleset, bool) {
	rs, ok := h.fields[name]
	if !ok {
		return nil, false
	}
	return rs.Clone(), true
}

// FieldsWhere returns the fields carrying the named rule, in insertion
// order. With a value argument, only fields whose rule equals that value
// match.
func (h *HeaderDef) FieldsWhere(rule string, value ...any) []string {
	var out []string
	for _, name := range h.order {
		v, ok := h.fields[name][rule]
		if !ok {
			continue
		}
		if len(value) > 0 && !rules.Equal(v, value[0]) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Schema returns the header's schema as a fresh copy.
func (h *HeaderDef) Schema() rules.Schema {
	s := make(rules.Schema, len(h.fields))
	for name, rs := range h.fields {
		s[name] = rs.Clone()
	}
	return s
}

// RegisterSchema publishes the header's schema in its registry under the
// header name, so nested rules can reference it. Later registrations
// overwrite.
func (h *HeaderDef) RegisterSchema() {
	h.rulesets.Register(h.name, h.Schema())
}

// DeleteSchema removes the header's entry from its registry. Documents
// validated against schemas still referencing the name start failing with
// an unknown-ruleset issue.
func (h *HeaderDef) DeleteSchema() {
	h.rulesets.Remove(h.name)
}

// Package dsl provides the declarative builders for field rules and headers:
// the schema-definition surface of the store.
//
// Builders commit schema-first: every rule is validated by the engine at
// declaration time, and a rejected rule never enters the schema. Builder
// errors are sticky; chains keep reading fluently and errors surface at Err
// (or when a header is installed on a sheet).
package dsl

import (
	"errors"
	"fmt"

	"github.com/reoring/sheetdb/rules"
)

// ErrUnknownField is returned when an operation names a field the header
// does not contain.
var ErrUnknownField = errors.New("dsl: unknown field")

// checker builds the throwaway engine used to vet rule commits against the
// given registries.
func checker(types *rules.TypeRegistry, rulesets *rules.SchemaRegistry) *rules.Validator {
	v, err := rules.NewValidator(rules.Schema{}, rules.Config{}, types, rulesets)
	if err != nil {
		// An empty schema cannot be rejected.
		panic(err)
	}
	return v
}

// FieldDef accumulates the rule-set of one field. The zero value is not
// usable; construct with Field or FieldWith.
type FieldDef struct {
	name    string
	ruleset rules.Ruleset
	types   *rules.TypeRegistry
	vet     *rules.Validator
	err     error
}

// Field starts a field definition bound to the process-default registries.
func Field(name string) *FieldDef {
	return FieldWith(name, nil, nil)
}

// FieldWith starts a field definition bound to explicit registries. Nil
// registries fall back to the process defaults.
func FieldWith(name string, types *rules.TypeRegistry, rulesets *rules.SchemaRegistry) *FieldDef {
	if types == nil {
		types = rules.DefaultTypes
	}
	if rulesets == nil {
		rulesets = rules.DefaultRulesets
	}
	f := &FieldDef{
		name:    name,
		ruleset: rules.Ruleset{},
		types:   types,
		vet:     checker(types, rulesets),
	}
	if name == "" {
		f.err = errors.New("dsl: field name must not be empty")
	}
	return f
}

// Name returns the field name.
func (f *FieldDef) Name() string { return f.name }

// Err returns the first error recorded by the chain, nil when every rule
// committed.
func (f *FieldDef) Err() error { return f.err }

// Rule commits one rule. The engine vets the rule name and value first; a
// rejected rule leaves the definition unchanged and makes the error sticky.
func (f *FieldDef) Rule(rule string, value any) *FieldDef {
	if f.err != nil {
		return f
	}
	candidate := f.ruleset.Clone()
	candidate[rule] = value
	if err := f.vet.CheckSchema(rules.Schema{f.name: candidate}); err != nil {
		f.err = fmt.Errorf("field %q: %w", f.name, err)
		return f
	}
	f.ruleset = candidate
	return f
}

// Required marks the field as mandatory (or explicitly optional).
func (f *FieldDef) Required(v bool) *FieldDef { return f.Rule("required", v) }

// Nullable permits (or forbids) nil values.
func (f *FieldDef) Nullable(v bool) *FieldDef { return f.Rule("nullable", v) }

// Empty permits (or forbids) empty strings and containers.
func (f *FieldDef) Empty(v bool) *FieldDef { return f.Rule("empty", v) }

// ReadOnly rejects writes to the field when set.
func (f *FieldDef) ReadOnly(v bool) *FieldDef { return f.Rule("readonly", v) }

// Type constrains the field to v's type. v may be a sample value, a
// reflect.Type or anything exposing TypeName() string; the resolved name is
// registered in the bound type registry on first use. Conflicting
// redefinition of a name is rejected.
func (f *FieldDef) Type(v any) *FieldDef {
	if f.err != nil {
		return f
	}
	name, err := f.types.Declare(v)
	if err != nil {
		f.err = fmt.Errorf("field %q: %w", f.name, err)
		return f
	}
	return f.Rule("type", name)
}

// TypeName constrains the field to an already-registered type name.
func (f *FieldDef) TypeName(name string) *FieldDef { return f.Rule("type", name) }

// Allowed restricts values to the given set.
func (f *FieldDef) Allowed(vs ...any) *FieldDef { return f.Rule("allowed", vs) }

// Forbidden rejects the given values.
func (f *FieldDef) Forbidden(vs ...any) *FieldDef { return f.Rule("forbidden", vs) }

// Min sets the lower bound of the value.
func (f *FieldDef) Min(v any) *FieldDef { return f.Rule("min", v) }

// Max sets the upper bound of the value.
func (f *FieldDef) Max(v any) *FieldDef { return f.Rule("max", v) }

// MinLength sets the minimum length of strings and containers.
func (f *FieldDef) MinLength(n int) *FieldDef { return f.Rule("minlength", n) }

// MaxLength sets the maximum length of strings and containers.
func (f *FieldDef) MaxLength(n int) *FieldDef { return f.Rule("maxlength", n) }

// Regex requires string values to match expr, anchored at the start.
func (f *FieldDef) Regex(expr string) *FieldDef { return f.Rule("regex", expr) }

// Default supplies the value materialized for the field when it is missing
// and normalization runs.
func (f *FieldDef) Default(v any) *FieldDef { return f.Rule("default", v) }

// Coerce names the built-in coercer applied during normalization.
func (f *FieldDef) Coerce(name string) *FieldDef { return f.Rule("coerce", name) }

// DependsOn requires the named fields to be present whenever this field is.
func (f *FieldDef) DependsOn(fields ...string) *FieldDef {
	return f.Rule("dependencies", fields)
}

// Schema attaches a nested schema: an inline rules.Schema, a loose map, a
// registry reference by name, or another header.
func (f *FieldDef) Schema(nested any) *FieldDef {
	if h, ok := nested.(*HeaderDef); ok {
		if h.Err() != nil {
			if f.err == nil {
				f.err = fmt.Errorf("field %q: nested header: %w", f.name, h.Err())
			}
			return f
		}
		return f.Rule("schema", h.Schema())
	}
	return f.Rule("schema", nested)
}

// Ruleset returns a copy of the committed rules.
func (f *FieldDef) Ruleset() rules.Ruleset { return f.ruleset.Clone() }

// SchemaFragment returns the single-field schema {name: ruleset}.
func (f *FieldDef) SchemaFragment() rules.Schema {
	return rules.Schema{f.name: f.ruleset.Clone()}
}

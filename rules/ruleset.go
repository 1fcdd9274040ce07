package rules

import "sort"

// Document is an arbitrary mapping validated against a Schema. It is an alias
// so JSON-decoded maps flow through the engine without conversion.
type Document = map[string]any

// Ruleset maps rule names to rule values and describes the constraints on a
// single field, e.g. {"type": "string", "required": true}.
type Ruleset map[string]any

// Clone returns a copy of the rule-set. Rule values are copied by reference;
// they are treated as immutable once committed.
func (r Ruleset) Clone() Ruleset {
	if r == nil {
		return nil
	}
	out := make(Ruleset, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Schema maps field names to rule-sets.
type Schema map[string]Ruleset

// Clone returns a copy of the schema with cloned rule-sets.
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	out := make(Schema, len(s))
	for f, rs := range s {
		out[f] = rs.Clone()
	}
	return out
}

// Fields returns the field names in ascending order. Validation iterates in
// this order so issue ordering stays deterministic; insertion order, when it
// matters, is the concern of the builder layer.
func (s Schema) Fields() []string {
	fs := make([]string, 0, len(s))
	for f := range s {
		fs = append(fs, f)
	}
	sort.Strings(fs)
	return fs
}

// asSchema converts loosely-typed nested schema values (as decoded from JSON
// or YAML) into a Schema. Returns false when the shape does not fit.
func asSchema(v any) (Schema, bool) {
	switch t := v.(type) {
	case Schema:
		return t, true
	case map[string]Ruleset:
		return Schema(t), true
	case map[string]any:
		out := make(Schema, len(t))
		for f, rv := range t {
			rs, ok := asRuleset(rv)
			if !ok {
				return nil, false
			}
			out[f] = rs
		}
		return out, true
	default:
		return nil, false
	}
}

// asRuleset converts loosely-typed rule-set values into a Ruleset.
func asRuleset(v any) (Ruleset, bool) {
	switch t := v.(type) {
	case Ruleset:
		return t, true
	case map[string]any:
		return Ruleset(t), true
	default:
		return nil, false
	}
}

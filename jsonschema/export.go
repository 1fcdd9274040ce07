package jsonschema

import (
	"github.com/reoring/sheetdb/rules"
)

// typeNames maps rule-vocabulary type names onto JSON Schema type/format
// pairs. Custom registered types have no JSON representation and export
// untyped.
var typeNames = map[string]struct{ typ, format string }{
	"string":   {"string", ""},
	"str":      {"string", ""},
	"int":      {"integer", ""},
	"integer":  {"integer", ""},
	"float":    {"number", ""},
	"number":   {"number", ""},
	"bool":     {"boolean", ""},
	"boolean":  {"boolean", ""},
	"list":     {"array", ""},
	"map":      {"object", ""},
	"dict":     {"object", ""},
	"datetime": {"string", "date-time"},
	"binary":   {"string", "byte"},
}

// FromSchema exports a rule schema as a JSON Schema object. Named nested
// rule sets resolve through rsets (nil falls back to the process default);
// unresolvable references export as a bare object.
//
// The export is intentionally lossy where JSON Schema has no equivalent:
// map-form dependencies and custom type names are dropped.
func FromSchema(s rules.Schema, rsets *rules.SchemaRegistry) *Schema {
	if rsets == nil {
		rsets = rules.DefaultRulesets
	}
	out := &Schema{
		Type:       "object",
		Properties: map[string]*Schema{},
	}
	for _, field := range s.Fields() {
		rs := s[field]
		prop := fromRuleset(rs, rsets)
		out.Properties[field] = prop

		if req, ok := rs["required"].(bool); ok && req {
			out.Required = append(out.Required, field)
		}
		switch dep := rs["dependencies"].(type) {
		case string:
			out.dependentRequired(field, []string{dep})
		case []string:
			out.dependentRequired(field, dep)
		case []any:
			names := make([]string, 0, len(dep))
			for _, d := range dep {
				if n, ok := d.(string); ok {
					names = append(names, n)
				}
			}
			out.dependentRequired(field, names)
		}
	}
	return out
}

func (s *Schema) dependentRequired(field string, on []string) {
	if len(on) == 0 {
		return
	}
	if s.DependentRequired == nil {
		s.DependentRequired = map[string][]string{}
	}
	s.DependentRequired[field] = on
}

func fromRuleset(rs rules.Ruleset, rsets *rules.SchemaRegistry) *Schema {
	out := &Schema{}
	isArray := false

	if tn, ok := rs["type"].(string); ok {
		if m, known := typeNames[tn]; known {
			out.Type = m.typ
			out.Format = m.format
			isArray = m.typ == "array"
		}
	}
	if nb, ok := rs["nullable"].(bool); ok && nb {
		out.Nullable = true
	}
	if ro, ok := rs["readonly"].(bool); ok && ro {
		out.ReadOnly = true
	}
	if dv, ok := rs["default"]; ok {
		out.Default = dv
	}
	if allowed, ok := anySlice(rs["allowed"]); ok {
		out.Enum = allowed
	}
	if banned, ok := anySlice(rs["forbidden"]); ok {
		out.Not = &Schema{Enum: banned}
	}
	if expr, ok := rs["regex"].(string); ok {
		out.Pattern = expr
	}
	if f, ok := floatValue(rs["min"]); ok {
		out.Minimum = &f
	}
	if f, ok := floatValue(rs["max"]); ok {
		out.Maximum = &f
	}
	if n, ok := intValue(rs["minlength"]); ok {
		if isArray {
			out.MinItems = &n
		} else {
			out.MinLength = &n
		}
	}
	if n, ok := intValue(rs["maxlength"]); ok {
		if isArray {
			out.MaxItems = &n
		} else {
			out.MaxLength = &n
		}
	}
	if sub, ok := rs["schema"]; ok {
		if nested, resolved := resolveNested(sub, rsets); resolved {
			child := FromSchema(nested, rsets)
			out.Properties = child.Properties
			out.Required = child.Required
			out.DependentRequired = child.DependentRequired
		}
		if out.Type == "" {
			out.Type = "object"
		}
	}
	return out
}

func resolveNested(sub any, rsets *rules.SchemaRegistry) (rules.Schema, bool) {
	switch t := sub.(type) {
	case string:
		return rsets.Resolve(t)
	case rules.Schema:
		return t, true
	case map[string]rules.Ruleset:
		return rules.Schema(t), true
	case map[string]any:
		out := make(rules.Schema, len(t))
		for f, rv := range t {
			switch r := rv.(type) {
			case rules.Ruleset:
				out[f] = r
			case map[string]any:
				out[f] = rules.Ruleset(r)
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}

func anySlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

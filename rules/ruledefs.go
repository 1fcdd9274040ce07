package rules

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"time"
)

// ruleCheck verifies a rule's configured value at schema-commit time. path is
// the JSON Pointer of the field the rule is attached to.
type ruleCheck func(v8r *Validator, path string, value any) *Issue

// ruleDefs is the rule vocabulary. A rule name outside this table is rejected
// when a schema is committed, not silently carried along. Populated in init to
// break the initialization cycle through checkSchemaRule.
var ruleDefs map[string]ruleCheck

func init() {
	ruleDefs = map[string]ruleCheck{
		"required":     boolRule("required"),
		"nullable":     boolRule("nullable"),
		"empty":        boolRule("empty"),
		"readonly":     boolRule("readonly"),
		"type":         checkTypeRule,
		"allowed":      listRule("allowed"),
		"forbidden":    listRule("forbidden"),
		"min":          boundRule("min"),
		"max":          boundRule("max"),
		"minlength":    lengthRule("minlength"),
		"maxlength":    lengthRule("maxlength"),
		"regex":        checkRegexRule,
		"default":      checkDefaultRule,
		"coerce":       checkCoerceRule,
		"dependencies": checkDependenciesRule,
		"schema":       checkSchemaRule,
	}
}

// KnownRules returns the rule vocabulary in ascending order.
func KnownRules() []string {
	ns := make([]string, 0, len(ruleDefs))
	for n := range ruleDefs {
		ns = append(ns, n)
	}
	sort.Strings(ns)
	return ns
}

// IsKnownRule reports whether name is part of the rule vocabulary.
func IsKnownRule(name string) bool {
	_, ok := ruleDefs[name]
	return ok
}

func badRuleValue(path, rule, format string, args ...any) *Issue {
	return &Issue{
		Path:    path,
		Code:    CodeInvalidRule,
		Message: fmt.Sprintf(format, args...),
		Rule:    rule,
	}
}

func boolRule(rule string) ruleCheck {
	return func(_ *Validator, path string, v any) *Issue {
		if _, ok := v.(bool); !ok {
			return badRuleValue(path, rule, "%s wants a bool, got %T", rule, v)
		}
		return nil
	}
}

func listRule(rule string) ruleCheck {
	return func(_ *Validator, path string, v any) *Issue {
		if _, ok := asAnySlice(v); !ok {
			return badRuleValue(path, rule, "%s wants a list, got %T", rule, v)
		}
		return nil
	}
}

func boundRule(rule string) ruleCheck {
	return func(_ *Validator, path string, v any) *Issue {
		switch v.(type) {
		case int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64, string, time.Time:
			return nil
		default:
			return badRuleValue(path, rule, "%s wants a number, string or time, got %T", rule, v)
		}
	}
}

func lengthRule(rule string) ruleCheck {
	return func(_ *Validator, path string, v any) *Issue {
		n, ok := asInt(v)
		if !ok {
			return badRuleValue(path, rule, "%s wants an integer, got %T", rule, v)
		}
		if n < 0 {
			return badRuleValue(path, rule, "%s must not be negative, got %d", rule, n)
		}
		return nil
	}
}

func checkTypeRule(v8r *Validator, path string, v any) *Issue {
	name, ok := v.(string)
	if !ok {
		return badRuleValue(path, "type", "type wants a type name, got %T", v)
	}
	if !v8r.types.Has(name) {
		return &Issue{
			Path:    path,
			Code:    CodeUnknownType,
			Message: fmt.Sprintf("unknown type %q", name),
			Rule:    "type",
		}
	}
	return nil
}

func checkRegexRule(_ *Validator, path string, v any) *Issue {
	expr, ok := v.(string)
	if !ok {
		return badRuleValue(path, "regex", "regex wants a pattern string, got %T", v)
	}
	if _, err := regexp.Compile(expr); err != nil {
		return badRuleValue(path, "regex", "regex %q does not compile: %v", expr, err)
	}
	return nil
}

func checkDefaultRule(_ *Validator, _ string, _ any) *Issue {
	// Any value may serve as a default; conformance is the validation
	// stage's concern, applied after the default is materialized.
	return nil
}

func checkCoerceRule(_ *Validator, path string, v any) *Issue {
	name, ok := v.(string)
	if !ok {
		return badRuleValue(path, "coerce", "coerce wants a coercer name, got %T", v)
	}
	if _, ok := LookupCoercer(name); !ok {
		return badRuleValue(path, "coerce", "unknown coercer %q", name)
	}
	return nil
}

func checkDependenciesRule(_ *Validator, path string, v any) *Issue {
	switch dep := v.(type) {
	case string:
		return nil
	case map[string]any:
		return nil
	default:
		if _, ok := asStringSlice(dep); ok {
			return nil
		}
		return badRuleValue(path, "dependencies",
			"dependencies wants a field name, a list of names or a name-to-values map, got %T", v)
	}
}

func checkSchemaRule(v8r *Validator, path string, v any) *Issue {
	switch s := v.(type) {
	case string:
		// A registry reference; resolution is deferred to validation so
		// schemas and their referenced rule sets may register in any order.
		if s == "" {
			return badRuleValue(path, "schema", "schema reference must not be empty")
		}
		return nil
	default:
		nested, ok := asSchema(s)
		if !ok {
			return badRuleValue(path, "schema", "schema wants a nested schema or a registry name, got %T", v)
		}
		if iss := v8r.checkSchema(nested); len(iss) > 0 {
			// Surface the first nested defect with the nested path attached.
			child := iss[0]
			child.Path = path + child.Path
			return &child
		}
		return nil
	}
}

// ---- shared shape helpers ----

func asAnySlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func asStringSlice(v any) ([]string, bool) {
	if ss, ok := v.([]string); ok {
		return ss, true
	}
	items, ok := asAnySlice(v)
	if !ok {
		return nil, false
	}
	out := make([]string, len(items))
	for i, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		if n == float32(int64(n)) {
			return int64(n), true
		}
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

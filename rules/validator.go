package rules

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/reoring/sheetdb/i18n"
)

// Validator checks documents against a Schema under a Config. It is built
// once per schema revision; the schema is vetted at construction so that a
// malformed rule never reaches document validation.
//
// A Validator is not safe for concurrent use. The layers above serialize
// access; share nothing, or build one Validator per goroutine with WithConfig.
type Validator struct {
	schema   Schema
	cfg      Config
	types    *TypeRegistry
	rulesets *SchemaRegistry

	last    Issues
	reCache map[string]*regexp.Regexp
}

// NewValidator builds a Validator for schema. Nil registries fall back to the
// process-wide DefaultTypes and DefaultRulesets. The schema is validated
// rule-by-rule; any defect fails construction with ErrRuleRejected.
func NewValidator(schema Schema, cfg Config, types *TypeRegistry, rulesets *SchemaRegistry) (*Validator, error) {
	if types == nil {
		types = DefaultTypes
	}
	if rulesets == nil {
		rulesets = DefaultRulesets
	}
	v := &Validator{
		schema:   schema.Clone(),
		cfg:      cfg,
		types:    types,
		rulesets: rulesets,
		reCache:  map[string]*regexp.Regexp{},
	}
	if iss := v.checkSchema(v.schema); len(iss) > 0 {
		return nil, rejected(iss)
	}
	return v, nil
}

// WithConfig returns a Validator sharing this one's vetted schema and
// registries but running under cfg.
func (v *Validator) WithConfig(cfg Config) *Validator {
	return &Validator{
		schema:   v.schema,
		cfg:      cfg,
		types:    v.types,
		rulesets: v.rulesets,
		reCache:  map[string]*regexp.Regexp{},
	}
}

// WithSchema returns a Validator for a new schema, keeping this one's config
// and registries. The schema is re-vetted.
func (v *Validator) WithSchema(schema Schema) (*Validator, error) {
	return NewValidator(schema, v.cfg, v.types, v.rulesets)
}

// Schema returns a copy of the active schema.
func (v *Validator) Schema() Schema { return v.schema.Clone() }

// Config returns the active configuration.
func (v *Validator) Config() Config { return v.cfg }

// Types returns the bound type registry.
func (v *Validator) Types() *TypeRegistry { return v.types }

// Rulesets returns the bound named rule-set registry.
func (v *Validator) Rulesets() *SchemaRegistry { return v.rulesets }

// Validate reports whether doc conforms. The issues of the run are retained
// and readable via Errors until the next run.
func (v *Validator) Validate(doc Document) bool {
	_, iss := v.process(doc, false)
	v.last = iss
	return len(iss) == 0
}

// ValidatePartial is Validate without presence rules: absent fields are fine,
// defaults are not materialized. Used for field-subset updates.
func (v *Validator) ValidatePartial(doc Document) bool {
	_, iss := v.process(doc, true)
	v.last = iss
	return len(iss) == 0
}

// Errors returns the issues recorded by the most recent Validate or
// ValidatePartial call.
func (v *Validator) Errors() Issues { return v.last }

// Validated normalizes and validates doc, returning the normalized copy. The
// input document is never mutated. On failure the error wraps
// ErrValidationFailed and carries the Issues.
func (v *Validator) Validated(doc Document) (Document, error) {
	out, iss := v.process(doc, false)
	v.last = iss
	if len(iss) > 0 {
		return nil, failed(iss)
	}
	return out, nil
}

// ValidatedPartial is Validated in field-subset mode.
func (v *Validator) ValidatedPartial(doc Document) (Document, error) {
	out, iss := v.process(doc, true)
	v.last = iss
	if len(iss) > 0 {
		return nil, failed(iss)
	}
	return out, nil
}

// CheckSchema validates a schema against the rule vocabulary: every rule name
// must be known and every rule value well-formed. Builders call this before
// committing a rule, so a bad rule is rejected at declaration time.
func (v *Validator) CheckSchema(s Schema) error {
	if iss := v.checkSchema(s); len(iss) > 0 {
		return rejected(iss)
	}
	return nil
}

func (v *Validator) checkSchema(s Schema) Issues {
	var iss Issues
	for _, field := range s.Fields() {
		rs := s[field]
		path := "/" + field
		names := make([]string, 0, len(rs))
		for name := range rs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			check, known := ruleDefs[name]
			if !known {
				iss = append(iss, Issue{
					Path:    path,
					Code:    CodeUnknownRule,
					Message: i18n.T(CodeUnknownRule, nil),
					Hint:    fmt.Sprintf("rule %q is not part of the vocabulary", name),
					Rule:    name,
				})
				continue
			}
			if bad := check(v, path, rs[name]); bad != nil {
				iss = append(iss, *bad)
			}
		}
	}
	return iss
}

// process runs the pipeline on a deep copy of doc: the normalization stage
// (when configured), then validation. partial suppresses presence rules and
// default materialization.
func (v *Validator) process(doc Document, partial bool) (Document, Issues) {
	out := cloneDocument(doc)
	var iss Issues
	if v.cfg.Normalize {
		iss = append(iss, v.normalizeMapping(out, v.schema, partial)...)
	}
	iss = append(iss, v.validateMapping(out, v.schema, partial)...)
	return out, iss
}

// normalizeMapping mutates doc in place: purges, defaults, coercion, then
// recursion into nested schemas. Normalization is idempotent; coercers map
// their own output to itself.
func (v *Validator) normalizeMapping(doc Document, schema Schema, partial bool) Issues {
	var iss Issues
	if v.cfg.PurgeUnknown {
		for _, k := range sortedKeys(doc) {
			if _, known := schema[k]; !known {
				delete(doc, k)
			}
		}
	}
	if v.cfg.PurgeReadonly {
		for _, f := range schema.Fields() {
			if ro, ok := schema[f]["readonly"].(bool); ok && ro {
				delete(doc, f)
			}
		}
	}
	for _, f := range schema.Fields() {
		rs := schema[f]
		if !partial {
			if dv, has := rs["default"]; has {
				if _, present := doc[f]; !present {
					doc[f] = cloneValue(dv)
				}
			}
		}
		value, present := doc[f]
		if !present || value == nil {
			continue
		}
		if cname, has := rs["coerce"].(string); has {
			if c, ok := LookupCoercer(cname); ok {
				nv, err := c(value)
				if err != nil {
					iss = append(iss, Issue{
						Path:    "/" + f,
						Code:    CodeCoercionFailed,
						Message: i18n.T(CodeCoercionFailed, nil),
						Cause:   err,
						Rule:    "coerce",
					})
				} else {
					doc[f] = nv
					value = nv
				}
			}
		}
		if sub, has := rs["schema"]; has {
			if nested, ok := v.nestedSchema(sub); ok {
				if m, isMap := value.(map[string]any); isMap {
					iss = append(iss, rebase(f, v.normalizeMapping(m, nested, partial))...)
				}
			}
		}
	}
	return iss
}

// validateMapping walks doc against schema. Unknown keys first (sorted), then
// schema fields (sorted), so issues come out in a stable order.
func (v *Validator) validateMapping(doc Document, schema Schema, partial bool) Issues {
	var iss Issues
	for _, k := range sortedKeys(doc) {
		if _, known := schema[k]; known {
			continue
		}
		switch {
		case v.cfg.UnknownRules != nil:
			iss = append(iss, v.validateField(k, doc[k], v.cfg.UnknownRules, doc, partial)...)
		case v.cfg.unknownAllowed():
		default:
			iss = append(iss, Issue{
				Path:    "/" + k,
				Code:    CodeUnknownField,
				Message: i18n.T(CodeUnknownField, nil),
			})
		}
	}
	for _, f := range schema.Fields() {
		rs := schema[f]
		value, present := doc[f]
		if !present {
			if partial {
				continue
			}
			if isRequired(rs, v.cfg.RequireAll) {
				iss = append(iss, Issue{
					Path:    "/" + f,
					Code:    CodeRequired,
					Message: i18n.T(CodeRequired, nil),
					Rule:    "required",
				})
			}
			continue
		}
		iss = append(iss, v.validateField(f, value, rs, doc, partial)...)
	}
	return iss
}

func isRequired(rs Ruleset, requireAll bool) bool {
	if r, ok := rs["required"].(bool); ok {
		return r
	}
	return requireAll
}

// validateField applies the value-level rules to one present field. Rule
// order is fixed: nullability short-circuits, then readonly, type (failure
// drops the remaining rules), emptiness, membership, bounds, lengths, regex,
// dependencies and nested schema.
func (v *Validator) validateField(field string, value any, rs Ruleset, doc Document, partial bool) Issues {
	var iss Issues
	path := "/" + field
	report := func(code, rule string, params map[string]any) {
		iss = append(iss, Issue{
			Path:    path,
			Code:    code,
			Message: i18n.T(code, nil),
			Rule:    rule,
			Params:  params,
		})
	}

	if value == nil {
		if v.cfg.IgnoreNoneValues {
			return nil
		}
		if nb, ok := rs["nullable"].(bool); ok && nb {
			return nil
		}
		report(CodeNotNullable, "nullable", nil)
		return iss
	}

	if ro, ok := rs["readonly"].(bool); ok && ro {
		report(CodeReadonly, "readonly", nil)
	}

	if tn, ok := rs["type"].(string); ok {
		if !v.types.Check(tn, value) {
			report(CodeInvalidType, "type", map[string]any{
				"expected": tn,
				"got":      fmt.Sprintf("%T", value),
			})
			return iss
		}
	}

	if isEmptyValue(value) {
		if allowEmpty, ok := rs["empty"].(bool); ok {
			if !allowEmpty {
				report(CodeEmpty, "empty", nil)
			}
			// Empty values drop the remaining value rules either way.
			return iss
		}
	}

	if raw, has := rs["allowed"]; has {
		allowed, _ := asAnySlice(raw)
		for _, el := range scalarOrElements(value) {
			if !memberOf(allowed, el) {
				report(CodeNotAllowed, "allowed", map[string]any{"got": el})
				break
			}
		}
	}

	if raw, has := rs["forbidden"]; has {
		banned, _ := asAnySlice(raw)
		for _, el := range scalarOrElements(value) {
			if memberOf(banned, el) {
				report(CodeForbidden, "forbidden", map[string]any{"got": el})
				break
			}
		}
	}

	if bound, has := rs["min"]; has {
		if c, ok := compareValues(value, bound); ok && c < 0 {
			report(CodeTooSmall, "min", map[string]any{"min": bound, "got": value})
		}
	}
	if bound, has := rs["max"]; has {
		if c, ok := compareValues(value, bound); ok && c > 0 {
			report(CodeTooBig, "max", map[string]any{"max": bound, "got": value})
		}
	}

	if raw, has := rs["minlength"]; has {
		if l, ok := valueLen(value); ok {
			if m, _ := asInt(raw); int64(l) < m {
				report(CodeTooShort, "minlength", map[string]any{"minlength": m, "got": l})
			}
		}
	}
	if raw, has := rs["maxlength"]; has {
		if l, ok := valueLen(value); ok {
			if m, _ := asInt(raw); int64(l) > m {
				report(CodeTooLong, "maxlength", map[string]any{"maxlength": m, "got": l})
			}
		}
	}

	if expr, ok := rs["regex"].(string); ok {
		// Patterns anchor at the start of the value, not the end.
		if s, isStr := value.(string); isStr {
			if re := v.compiled(expr); re != nil && !re.MatchString(s) {
				report(CodePattern, "regex", map[string]any{"pattern": expr})
			}
		}
	}

	if dep, has := rs["dependencies"]; has {
		iss = append(iss, v.checkDependencies(field, dep, doc)...)
	}

	if sub, has := rs["schema"]; has {
		iss = append(iss, v.checkNested(field, value, sub, partial)...)
	}

	return iss
}

func (v *Validator) checkDependencies(field string, dep any, doc Document) Issues {
	var iss Issues
	unmet := func(on string, params map[string]any) {
		if params == nil {
			params = map[string]any{}
		}
		params["on"] = on
		iss = append(iss, Issue{
			Path:    "/" + field,
			Code:    CodeDependency,
			Message: i18n.T(CodeDependency, nil),
			Rule:    "dependencies",
			Params:  params,
		})
	}
	switch d := dep.(type) {
	case string:
		if _, ok := doc[d]; !ok {
			unmet(d, nil)
		}
	case map[string]any:
		for _, name := range sortedKeys(d) {
			want := d[name]
			got, ok := doc[name]
			if !ok {
				unmet(name, nil)
				continue
			}
			wants, isList := asAnySlice(want)
			if !isList {
				wants = []any{want}
			}
			if !memberOf(wants, got) {
				unmet(name, map[string]any{"want": want, "got": got})
			}
		}
	default:
		names, _ := asStringSlice(d)
		for _, name := range names {
			if _, ok := doc[name]; !ok {
				unmet(name, nil)
			}
		}
	}
	return iss
}

func (v *Validator) checkNested(field string, value, sub any, partial bool) Issues {
	nested, ok := v.nestedSchema(sub)
	if !ok {
		ref, _ := sub.(string)
		return Issues{{
			Path:    "/" + field,
			Code:    CodeUnknownRuleset,
			Message: i18n.T(CodeUnknownRuleset, nil),
			Rule:    "schema",
			Params:  map[string]any{"ref": ref},
		}}
	}
	m, isMap := value.(map[string]any)
	if !isMap {
		return Issues{{
			Path:    "/" + field,
			Code:    CodeInvalidType,
			Message: i18n.T(CodeInvalidType, nil),
			Hint:    "a nested schema needs a document value",
			Rule:    "schema",
		}}
	}
	return rebase(field, v.validateMapping(m, nested, partial))
}

// nestedSchema resolves a schema rule value: a registry reference by name or
// an inline nested schema.
func (v *Validator) nestedSchema(sub any) (Schema, bool) {
	if name, ok := sub.(string); ok {
		return v.rulesets.Resolve(name)
	}
	return asSchema(sub)
}

func (v *Validator) compiled(expr string) *regexp.Regexp {
	if re, ok := v.reCache[expr]; ok {
		return re
	}
	// Patterns reaching this point passed CheckSchema, so they compile.
	re, err := regexp.Compile(`\A(?:` + expr + `)`)
	if err != nil {
		re = nil
	}
	v.reCache[expr] = re
	return re
}

// ---- value helpers ----

func sortedKeys(m map[string]any) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

// scalarOrElements yields the membership-check units of a value: the elements
// for list values, the value itself otherwise.
func scalarOrElements(v any) []any {
	if _, isBytes := v.([]byte); isBytes {
		return []any{v}
	}
	if els, ok := asAnySlice(v); ok {
		return els
	}
	return []any{v}
}

func memberOf(list []any, v any) bool {
	for _, it := range list {
		if Equal(it, v) {
			return true
		}
	}
	return false
}

// Equal compares values the way documents round-tripped through JSON
// expect: numerics compare by magnitude across representations, everything
// else by deep equality.
func Equal(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// compareValues orders two values when they are mutually comparable:
// numerics by magnitude, strings lexicographically, times chronologically
// (RFC 3339 strings count as times when compared against one). Returns false
// for incomparable pairs; the bound rules skip those, the type rule is the
// place to catch them.
func compareValues(a, b any) (int, bool) {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	if at, aok := asTime(a); aok {
		if bt, bok := asTime(b); bok {
			switch {
			case at.Before(bt):
				return -1, true
			case at.After(bt):
				return 1, true
			default:
				return 0, true
			}
		}
	}
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return strings.Compare(as, bs), true
		}
	}
	return 0, false
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		return parsed, err == nil
	default:
		return time.Time{}, false
	}
}

// valueLen measures strings in runes and containers in elements.
func valueLen(v any) (int, bool) {
	switch t := v.(type) {
	case string:
		return utf8.RuneCountInString(t), true
	case []byte:
		return len(t), true
	case map[string]any:
		return len(t), true
	default:
		if els, ok := asAnySlice(v); ok {
			return len(els), true
		}
		return 0, false
	}
}

func isEmptyValue(v any) bool {
	l, ok := valueLen(v)
	return ok && l == 0
}

// cloneDocument deep-copies a document so normalization never mutates caller
// state. Maps and slices are copied recursively; scalars as-is.
func cloneDocument(doc Document) Document {
	if doc == nil {
		return Document{}
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneDocument(t)
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = cloneValue(el)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []byte:
		out := make([]byte, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

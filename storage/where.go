package storage

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strings"
)

// condFunc adapts a plain predicate to Condition.
type condFunc func(Document) bool

func (f condFunc) Match(doc Document) bool { return f(doc) }

// FieldExpr builds conditions over one document field. Paths may use dots to
// traverse nested documents: Where("profile.age").Gt(17).
//
// Every test except Missing treats an absent field as a non-match.
type FieldExpr struct {
	path []string
}

// Where starts a condition on the named field.
func Where(field string) *FieldExpr {
	return &FieldExpr{path: strings.Split(field, ".")}
}

func (f *FieldExpr) lookup(doc Document) (any, bool) {
	var cur any = doc
	for _, seg := range f.path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func (f *FieldExpr) test(fn func(any) bool) Condition {
	return condFunc(func(doc Document) bool {
		v, ok := f.lookup(doc)
		if !ok {
			return false
		}
		return fn(v)
	})
}

// Eq matches documents whose field equals v. Numeric values compare by
// magnitude across representations, so 3 matches 3.0 from a JSON round trip.
func (f *FieldExpr) Eq(v any) Condition {
	return f.test(func(got any) bool { return looseEq(got, v) })
}

// Ne matches documents whose field is present and differs from v.
func (f *FieldExpr) Ne(v any) Condition {
	return f.test(func(got any) bool { return !looseEq(got, v) })
}

// Gt matches field values strictly greater than v. Incomparable values never
// match.
func (f *FieldExpr) Gt(v any) Condition {
	return f.test(func(got any) bool { c, ok := Compare(got, v); return ok && c > 0 })
}

// Ge matches field values greater than or equal to v.
func (f *FieldExpr) Ge(v any) Condition {
	return f.test(func(got any) bool { c, ok := Compare(got, v); return ok && c >= 0 })
}

// Lt matches field values strictly less than v.
func (f *FieldExpr) Lt(v any) Condition {
	return f.test(func(got any) bool { c, ok := Compare(got, v); return ok && c < 0 })
}

// Le matches field values less than or equal to v.
func (f *FieldExpr) Le(v any) Condition {
	return f.test(func(got any) bool { c, ok := Compare(got, v); return ok && c <= 0 })
}

// Exists matches documents that carry the field at all.
func (f *FieldExpr) Exists() Condition {
	return condFunc(func(doc Document) bool { _, ok := f.lookup(doc); return ok })
}

// Missing matches documents that do not carry the field.
func (f *FieldExpr) Missing() Condition {
	return condFunc(func(doc Document) bool { _, ok := f.lookup(doc); return !ok })
}

// OneOf matches field values equal to any of vs.
func (f *FieldExpr) OneOf(vs ...any) Condition {
	return f.test(func(got any) bool {
		for _, v := range vs {
			if looseEq(got, v) {
				return true
			}
		}
		return false
	})
}

// Matches matches string values against a regular expression, anchored at
// the start of the value. An invalid pattern panics; patterns are program
// constants, not data.
func (f *FieldExpr) Matches(expr string) Condition {
	re := regexp.MustCompile(`\A(?:` + expr + `)`)
	return f.test(func(got any) bool {
		s, ok := got.(string)
		return ok && re.MatchString(s)
	})
}

// HasPrefix matches string values starting with prefix.
func (f *FieldExpr) HasPrefix(prefix string) Condition {
	return f.test(func(got any) bool {
		s, ok := got.(string)
		return ok && strings.HasPrefix(s, prefix)
	})
}

// Contains matches string values containing v as a substring, and list
// values containing v as a member.
func (f *FieldExpr) Contains(v any) Condition {
	return f.test(func(got any) bool {
		switch t := got.(type) {
		case string:
			s, ok := v.(string)
			return ok && strings.Contains(t, s)
		case []any:
			for _, el := range t {
				if looseEq(el, v) {
					return true
				}
			}
			return false
		default:
			return false
		}
	})
}

// And matches documents satisfying every condition.
func And(conds ...Condition) Condition {
	return condFunc(func(doc Document) bool {
		for _, c := range conds {
			if !c.Match(doc) {
				return false
			}
		}
		return true
	})
}

// Or matches documents satisfying at least one condition.
func Or(conds ...Condition) Condition {
	return condFunc(func(doc Document) bool {
		for _, c := range conds {
			if c.Match(doc) {
				return true
			}
		}
		return false
	})
}

// Not inverts a condition.
func Not(cond Condition) Condition {
	return condFunc(func(doc Document) bool { return !cond.Match(doc) })
}

// ---- value comparison ----

func laxFloat(v any) (float64, bool) {
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

func looseEq(a, b any) bool {
	af, aok := laxFloat(a)
	bf, bok := laxFloat(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders two field values: numerics compare by magnitude across
// representations, strings lexically. The second result reports whether the
// pair is comparable at all.
func Compare(a, b any) (int, bool) {
	if af, aok := laxFloat(a); aok {
		if bf, bok := laxFloat(b); bok {
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
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

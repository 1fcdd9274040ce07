package rules

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coercer rewrites a raw value into the representation a field expects. It
// runs during normalization, before any validation rule sees the value.
type Coercer func(any) (any, error)

// coercers is the built-in table referenced by the `coerce` rule. Names are
// fixed; custom conversion belongs in the caller, not in the schema.
var coercers = map[string]Coercer{
	"int":    coerceInt,
	"float":  coerceFloat,
	"string": coerceString,
	"bool":   coerceBool,
	"lower":  coerceLower,
	"upper":  coerceUpper,
	"trim":   coerceTrim,
}

// LookupCoercer returns the named built-in coercer.
func LookupCoercer(name string) (Coercer, bool) {
	c, ok := coercers[name]
	return c, ok
}

// CoercerNames returns the built-in coercer names, unsorted.
func CoercerNames() []string {
	ns := make([]string, 0, len(coercers))
	for n := range coercers {
		ns = append(ns, n)
	}
	return ns
}

func coerceInt(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return nil, fmt.Errorf("value %d overflows int64", n)
		}
		return int64(n), nil
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to int", n.String())
		}
		return floatToInt(f)
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to int", n)
		}
		return floatToInt(f)
	case bool:
		if n {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to int", v)
	}
}

func floatToInt(f float64) (any, error) {
	if f != math.Trunc(f) || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("value %v is not integral", f)
	}
	return int64(f), nil
}

func coerceFloat(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to float", n.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to float", n)
		}
		return f, nil
	case bool:
		if n {
			return float64(1), nil
		}
		return float64(0), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to float", v)
	}
}

func coerceString(v any) (any, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case json.Number:
		return s.String(), nil
	case bool:
		return strconv.FormatBool(s), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v), nil
	case float32:
		return strconv.FormatFloat(float64(s), 'g', -1, 64), nil
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to string", v)
	}
}

func coerceBool(v any) (any, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(b)))
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to bool", b)
		}
		return parsed, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f, _ := coerceFloat(v)
		return f.(float64) != 0, nil
	case float32:
		return b != 0, nil
	case float64:
		return b != 0, nil
	case json.Number:
		f, err := b.Float64()
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to bool", b.String())
		}
		return f != 0, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to bool", v)
	}
}

func coerceLower(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("lower requires a string, got %T", v)
	}
	return strings.ToLower(s), nil
}

func coerceUpper(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("upper requires a string, got %T", v)
	}
	return strings.ToUpper(s), nil
}

func coerceTrim(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("trim requires a string, got %T", v)
	}
	return strings.TrimSpace(s), nil
}

package rules

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"
)

// TypeRegistry maps type display names to their accepted native
// representations. The engine consults it for every `type` rule; builders
// extend it when a field declares a custom type.
//
// A name, once registered, always maps to the same underlying type:
// re-registering the identical type is a no-op, a conflicting registration is
// rejected. Without that, a later registration would silently change the
// semantics of every field already using the name.
type TypeRegistry struct {
	mu      sync.RWMutex
	entries map[string]typeEntry
}

type typeEntry struct {
	native reflect.Type // nil for built-ins with multiple representations
	check  func(any) bool
}

// NewTypeRegistry returns a registry seeded with the built-in types and their
// aliases: string/str, int/integer, float/number, bool/boolean, list,
// map/dict, datetime, binary.
func NewTypeRegistry() *TypeRegistry {
	tr := &TypeRegistry{entries: map[string]typeEntry{}}
	builtin := map[string]func(any) bool{
		"string":   isStringValue,
		"str":      isStringValue,
		"int":      isIntValue,
		"integer":  isIntValue,
		"float":    isFloatValue,
		"number":   isFloatValue,
		"bool":     isBoolValue,
		"boolean":  isBoolValue,
		"list":     isListValue,
		"map":      isMapValue,
		"dict":     isMapValue,
		"datetime": isDatetimeValue,
		"binary":   isBinaryValue,
	}
	for name, check := range builtin {
		tr.entries[name] = typeEntry{check: check}
	}
	return tr
}

// DefaultTypes is the process-wide registry used when no explicit registry is
// injected. Construct a private registry per store (or per test) when
// isolation matters.
var DefaultTypes = NewTypeRegistry()

// Register binds name to the native type rt. Registering the same pair again
// is a no-op; binding an already-registered name to a different type fails.
func (tr *TypeRegistry) Register(name string, rt reflect.Type) error {
	if name == "" {
		return fmt.Errorf("%w: empty type name", ErrUnresolvableType)
	}
	if rt == nil {
		return fmt.Errorf("%w: nil type for %q", ErrUnresolvableType, name)
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if prev, ok := tr.entries[name]; ok {
		if prev.native == rt {
			return nil
		}
		return fmt.Errorf("%w: %q is already registered to a different type", ErrUnresolvableType, name)
	}
	tr.entries[name] = typeEntry{native: rt, check: checkerFor(rt)}
	return nil
}

// Declare resolves a display name for v's type, registers it when absent and
// returns the name. v may be a value, a reflect.Type, or anything exposing a
// TypeName() string method as a fallback identifier.
func (tr *TypeRegistry) Declare(v any) (string, error) {
	name, rt, err := resolveType(v)
	if err != nil {
		return "", err
	}
	tr.mu.RLock()
	_, exists := tr.entries[name]
	tr.mu.RUnlock()
	if exists {
		// Existing built-ins and prior registrations win; Register below
		// re-checks for conflicts when the native types differ.
		if err := tr.register(name, rt); err != nil {
			return "", err
		}
		return name, nil
	}
	if err := tr.Register(name, rt); err != nil {
		return "", err
	}
	return name, nil
}

// register is Declare's conflict re-check: built-in entries (nil native) are
// treated as authoritative for their name, so declaring `int` resolves to the
// built-in rather than a conflict.
func (tr *TypeRegistry) register(name string, rt reflect.Type) error {
	tr.mu.RLock()
	prev, ok := tr.entries[name]
	tr.mu.RUnlock()
	if ok && (prev.native == nil || prev.native == rt) {
		return nil
	}
	return tr.Register(name, rt)
}

// Has reports whether name is registered.
func (tr *TypeRegistry) Has(name string) bool {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	_, ok := tr.entries[name]
	return ok
}

// Check reports whether v conforms to the named type. Unknown names never
// match.
func (tr *TypeRegistry) Check(name string, v any) bool {
	tr.mu.RLock()
	e, ok := tr.entries[name]
	tr.mu.RUnlock()
	if !ok {
		return false
	}
	return e.check(v)
}

// Names returns the registered type names in ascending order.
func (tr *TypeRegistry) Names() []string {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	ns := make([]string, 0, len(tr.entries))
	for n := range tr.entries {
		ns = append(ns, n)
	}
	sort.Strings(ns)
	return ns
}

// typeNamer is the explicit-identifier fallback for anonymous types.
type typeNamer interface{ TypeName() string }

// canonicalNames folds the predeclared Go types and a few stdlib stand-ins
// onto the built-in vocabulary, so Declare(3.14) yields "float" rather than
// a shadow type named "float64". Named user types are left alone.
var canonicalNames = map[reflect.Type]string{
	reflect.TypeOf(""):               "string",
	reflect.TypeOf(int(0)):           "int",
	reflect.TypeOf(int8(0)):          "int",
	reflect.TypeOf(int16(0)):         "int",
	reflect.TypeOf(int32(0)):         "int",
	reflect.TypeOf(int64(0)):         "int",
	reflect.TypeOf(uint(0)):          "int",
	reflect.TypeOf(uint8(0)):         "int",
	reflect.TypeOf(uint16(0)):        "int",
	reflect.TypeOf(uint32(0)):        "int",
	reflect.TypeOf(uint64(0)):        "int",
	reflect.TypeOf(float32(0)):       "float",
	reflect.TypeOf(float64(0)):       "float",
	reflect.TypeOf(false):            "bool",
	reflect.TypeOf([]byte(nil)):      "binary",
	reflect.TypeOf([]any(nil)):       "list",
	reflect.TypeOf(map[string]any{}): "map",
	reflect.TypeOf(time.Time{}):      "datetime",
	reflect.TypeOf(json.Number("")):  "number",
}

// resolveType derives (name, reflect.Type) for v: the built-in vocabulary
// first, then the type's own name, then its string form for unnamed types,
// then an explicit TypeName() method.
func resolveType(v any) (string, reflect.Type, error) {
	var rt reflect.Type
	switch t := v.(type) {
	case nil:
		return "", nil, fmt.Errorf("%w: cannot derive a type from nil", ErrUnresolvableType)
	case reflect.Type:
		rt = t
	default:
		rt = reflect.TypeOf(v)
	}
	if name, ok := canonicalNames[rt]; ok {
		return name, rt, nil
	}
	if name := rt.Name(); name != "" {
		return name, rt, nil
	}
	if s := rt.String(); s != "" && !strings.ContainsAny(s, " \t") {
		return s, rt, nil
	}
	if n, ok := v.(typeNamer); ok && n.TypeName() != "" {
		return n.TypeName(), rt, nil
	}
	return "", nil, fmt.Errorf("%w: cannot derive a name for %v", ErrUnresolvableType, rt)
}

// checkerFor builds the conformance check for a user-registered native type.
// Interface types accept implementors; concrete types require an exact
// dynamic type match.
func checkerFor(rt reflect.Type) func(any) bool {
	if rt.Kind() == reflect.Interface {
		return func(v any) bool {
			if v == nil {
				return false
			}
			return reflect.TypeOf(v).Implements(rt)
		}
	}
	return func(v any) bool {
		if v == nil {
			return false
		}
		return reflect.TypeOf(v) == rt
	}
}

// ---- built-in conformance checks ----
//
// Documents round-trip through JSON in every shipped storage engine, so the
// numeric checks accept the JSON-decoded representations as well as the Go
// natives: `int` matches an integral float64 or json.Number, `datetime`
// matches an RFC 3339 string.

func isStringValue(v any) bool {
	_, ok := v.(string)
	return ok
}

func isBoolValue(v any) bool {
	_, ok := v.(bool)
	return ok
}

func isIntValue(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return n == float32(int64(n))
	case float64:
		return n == float64(int64(n))
	case json.Number:
		_, err := n.Int64()
		return err == nil
	default:
		return false
	}
}

func isFloatValue(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	case json.Number:
		_, err := n.Float64()
		return err == nil
	default:
		return false
	}
}

func isListValue(v any) bool {
	if _, ok := v.([]byte); ok {
		return false
	}
	if v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func isMapValue(v any) bool {
	if v == nil {
		return false
	}
	rt := reflect.TypeOf(v)
	return rt.Kind() == reflect.Map && rt.Key().Kind() == reflect.String
}

func isDatetimeValue(v any) bool {
	switch t := v.(type) {
	case time.Time, *time.Time:
		return true
	case string:
		_, err := time.Parse(time.RFC3339, t)
		return err == nil
	default:
		return false
	}
}

func isBinaryValue(v any) bool {
	_, ok := v.([]byte)
	return ok
}

// SchemaRegistry is the named rule-set registry the engine consults when a
// `schema` rule references a name instead of carrying a nested schema.
// Registration is additive and overwriting; entries are never pruned
// implicitly (see Sheet.SetHeader for the accumulation contract).
type SchemaRegistry struct {
	mu   sync.RWMutex
	sets map[string]Schema
}

// NewSchemaRegistry returns an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{sets: map[string]Schema{}}
}

// DefaultRulesets is the process-wide named rule-set registry used when no
// explicit registry is injected.
var DefaultRulesets = NewSchemaRegistry()

// Register stores s under name, overwriting any previous entry.
func (sr *SchemaRegistry) Register(name string, s Schema) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.sets[name] = s.Clone()
}

// Resolve returns the schema registered under name.
func (sr *SchemaRegistry) Resolve(name string) (Schema, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	s, ok := sr.sets[name]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Remove deletes the entry for name, reporting whether it existed.
func (sr *SchemaRegistry) Remove(name string) bool {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if _, ok := sr.sets[name]; !ok {
		return false
	}
	delete(sr.sets, name)
	return true
}

// Names returns the registered names in ascending order.
func (sr *SchemaRegistry) Names() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	ns := make([]string, 0, len(sr.sets))
	for n := range sr.sets {
		ns = append(ns, n)
	}
	sort.Strings(ns)
	return ns
}

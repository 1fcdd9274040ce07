package rules

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Normalization must be a fixpoint: whatever Validated emits, feeding it back
// yields the same document and still validates.
func TestNormalization_IdempotentProperty(t *testing.T) {
	v := mustValidator(t, Schema{
		"name": {"type": "string", "coerce": "trim", "default": "anon"},
		"age":  {"type": "int", "coerce": "int", "min": 0, "max": 130},
		"tag":  {"type": "string", "coerce": "lower"},
	}, Config{Normalize: true, PurgeUnknown: true})

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("normalized output re-normalizes to itself", prop.ForAll(
		func(name string, age int, tag string, junk int) bool {
			doc := Document{
				"name": "  " + name + " ",
				"age":  age,
				"tag":  tag,
				"junk": junk,
			}
			out, err := v.Validated(doc)
			if err != nil {
				return false
			}
			if !v.Validate(out) {
				return false
			}
			again, err := v.Validated(out)
			if err != nil {
				return false
			}
			return reflect.DeepEqual(out, again)
		},
		gen.AlphaString(),
		gen.IntRange(0, 130),
		gen.AlphaString(),
		gen.Int(),
	))

	properties.Property("coercion accepts every printed integer", prop.ForAll(
		func(n int64) bool {
			out, err := v.Validated(Document{"name": "x", "age": n, "tag": "t"})
			if err != nil {
				// Bounds still apply; out-of-range is a legitimate reject.
				return n < 0 || n > 130
			}
			return out["age"] == n
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}

package jsonschema

import (
	"reflect"
	"testing"

	"github.com/reoring/sheetdb/rules"
)

func TestFromSchema_MapsRuleVocabulary(t *testing.T) {
	rsets := rules.NewSchemaRegistry()
	rsets.Register("address", rules.Schema{"city": {"type": "string", "required": true}})

	js := FromSchema(rules.Schema{
		"name":  {"type": "string", "required": true, "minlength": 1, "maxlength": 64, "regex": "[a-z]+"},
		"age":   {"type": "int", "min": 0, "max": 130, "nullable": true},
		"role":  {"type": "string", "allowed": []any{"admin", "user"}, "default": "user"},
		"tags":  {"type": "list", "minlength": 1},
		"admin": {"type": "bool", "readonly": true},
		"addr":  {"schema": "address"},
		"city":  {"dependencies": []string{"addr"}},
		"born":  {"type": "datetime"},
	}, rsets)

	if js.Type != "object" {
		t.Fatalf("root type = %q, want object", js.Type)
	}
	if !reflect.DeepEqual(js.Required, []string{"name"}) {
		t.Fatalf("required = %v, want [name]", js.Required)
	}

	name := js.Properties["name"]
	if name.Type != "string" || *name.MinLength != 1 || *name.MaxLength != 64 || name.Pattern != "[a-z]+" {
		t.Fatalf("name export wrong: %+v", name)
	}

	age := js.Properties["age"]
	if age.Type != "integer" || *age.Minimum != 0 || *age.Maximum != 130 || !age.Nullable {
		t.Fatalf("age export wrong: %+v", age)
	}

	role := js.Properties["role"]
	if len(role.Enum) != 2 || role.Default != "user" {
		t.Fatalf("role export wrong: %+v", role)
	}

	tags := js.Properties["tags"]
	if tags.Type != "array" || tags.MinItems == nil || *tags.MinItems != 1 || tags.MinLength != nil {
		t.Fatalf("list lengths must export as item bounds: %+v", tags)
	}

	if !js.Properties["admin"].ReadOnly {
		t.Fatalf("readonly lost: %+v", js.Properties["admin"])
	}

	addr := js.Properties["addr"]
	if addr.Type != "object" || addr.Properties["city"] == nil || !reflect.DeepEqual(addr.Required, []string{"city"}) {
		t.Fatalf("nested reference export wrong: %+v", addr)
	}

	if !reflect.DeepEqual(js.DependentRequired["city"], []string{"addr"}) {
		t.Fatalf("dependentRequired = %v", js.DependentRequired)
	}

	born := js.Properties["born"]
	if born.Type != "string" || born.Format != "date-time" {
		t.Fatalf("datetime export wrong: %+v", born)
	}
}

func TestFromSchema_DanglingReferenceExportsBareObject(t *testing.T) {
	js := FromSchema(rules.Schema{"addr": {"schema": "nowhere"}}, rules.NewSchemaRegistry())
	addr := js.Properties["addr"]
	if addr.Type != "object" || len(addr.Properties) != 0 {
		t.Fatalf("dangling reference export = %+v, want bare object", addr)
	}
}

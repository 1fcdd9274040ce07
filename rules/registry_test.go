package rules

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestTypeRegistry_BuiltinsAndAliases(t *testing.T) {
	tr := NewTypeRegistry()

	cases := []struct {
		name  string
		value any
		ok    bool
	}{
		{"string", "x", true},
		{"str", "x", true},
		{"string", 1, false},
		{"int", 1, true},
		{"integer", int64(1), true},
		{"int", 1.5, false},
		{"float", 1.5, true},
		{"number", 1, true},
		{"bool", true, true},
		{"boolean", "true", false},
		{"list", []any{1}, true},
		{"list", []byte("x"), false},
		{"map", map[string]any{}, true},
		{"dict", map[string]int{}, true},
		{"datetime", time.Now(), true},
		{"datetime", "2024-06-01T12:00:00Z", true},
		{"datetime", "june first", false},
		{"binary", []byte("x"), true},
	}
	for _, tc := range cases {
		if got := tr.Check(tc.name, tc.value); got != tc.ok {
			t.Errorf("Check(%q, %T(%v)) = %v, want %v", tc.name, tc.value, tc.value, got, tc.ok)
		}
	}

	if tr.Check("nope", "x") {
		t.Error("unknown type name matched a value")
	}
}

type ledgerEntry struct{ Amount int64 }

func TestTypeRegistry_NoSilentRebinding(t *testing.T) {
	tr := NewTypeRegistry()
	rt := reflect.TypeOf(ledgerEntry{})

	if err := tr.Register("ledgerEntry", rt); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	// Same name, same type: a no-op, not a conflict.
	if err := tr.Register("ledgerEntry", rt); err != nil {
		t.Fatalf("idempotent Register: %v", err)
	}
	// Same name, different type: rejected.
	err := tr.Register("ledgerEntry", reflect.TypeOf(""))
	if err == nil {
		t.Fatal("conflicting registration accepted")
	}
	if !errors.Is(err, ErrUnresolvableType) {
		t.Fatalf("error does not wrap ErrUnresolvableType: %v", err)
	}

	if !tr.Check("ledgerEntry", ledgerEntry{Amount: 1}) {
		t.Fatal("registered type does not match its own values")
	}
	if tr.Check("ledgerEntry", "not a ledger entry") {
		t.Fatal("registered type matched a foreign value")
	}
}

func TestTypeRegistry_Declare(t *testing.T) {
	tr := NewTypeRegistry()

	name, err := tr.Declare(ledgerEntry{})
	if err != nil {
		t.Fatalf("Declare: %v", err)
	}
	if name != "ledgerEntry" {
		t.Fatalf("Declare name = %q, want %q", name, "ledgerEntry")
	}
	if !tr.Has("ledgerEntry") {
		t.Fatal("Declare did not register the type")
	}

	// Declaring a value of a predeclared type resolves to the built-in
	// vocabulary, not a shadow name like "float64".
	for _, tc := range []struct {
		value any
		want  string
	}{
		{42, "int"},
		{int64(7), "int"},
		{3.14, "float"},
		{"x", "string"},
		{true, "bool"},
		{[]byte("b"), "binary"},
		{time.Now(), "datetime"},
	} {
		name, err = tr.Declare(tc.value)
		if err != nil {
			t.Fatalf("Declare(%v): %v", tc.value, err)
		}
		if name != tc.want {
			t.Fatalf("Declare(%v) = %q, want %q", tc.value, name, tc.want)
		}
	}
}

func TestSchemaRegistry_RegisterResolveRemove(t *testing.T) {
	sr := NewSchemaRegistry()
	addr := Schema{"city": {"type": "string"}}

	sr.Register("address", addr)
	got, ok := sr.Resolve("address")
	if !ok {
		t.Fatal("registered rule set not resolvable")
	}
	if !reflect.DeepEqual(got, addr) {
		t.Fatalf("Resolve = %v, want %v", got, addr)
	}

	// Resolve hands out copies: mutating one must not leak back.
	got["city"]["type"] = "int"
	fresh, _ := sr.Resolve("address")
	if fresh["city"]["type"] != "string" {
		t.Fatal("Resolve leaked internal state")
	}

	// Registration overwrites.
	sr.Register("address", Schema{"city": {"type": "int"}})
	got, _ = sr.Resolve("address")
	if got["city"]["type"] != "int" {
		t.Fatal("re-registration did not overwrite")
	}

	if !sr.Remove("address") {
		t.Fatal("Remove reported a missing entry")
	}
	if sr.Remove("address") {
		t.Fatal("Remove reported success twice")
	}
	if _, ok := sr.Resolve("address"); ok {
		t.Fatal("removed entry still resolvable")
	}
}

func TestSchemaRegistry_Names(t *testing.T) {
	sr := NewSchemaRegistry()
	sr.Register("zeta", Schema{})
	sr.Register("alpha", Schema{})
	got := sr.Names()
	want := []string{"alpha", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Names = %v, want %v", got, want)
	}
}

package dsl

import (
	"errors"
	"testing"

	"github.com/reoring/sheetdb/rules"
)

func freshField(t *testing.T, name string) *FieldDef {
	t.Helper()
	return FieldWith(name, rules.NewTypeRegistry(), rules.NewSchemaRegistry())
}

func TestField_BuildsFragment(t *testing.T) {
	f := freshField(t, "age").Type(0).Min(18).Max(130)
	if err := f.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	frag := f.SchemaFragment()
	rs, ok := frag["age"]
	if !ok {
		t.Fatalf("fragment missing field: %v", frag)
	}
	if got := rs["type"]; got != "int" {
		t.Fatalf("type = %v, want int", got)
	}
	if got := rs["min"]; got != 18 {
		t.Fatalf("min = %v, want 18", got)
	}
	if got := rs["max"]; got != 130 {
		t.Fatalf("max = %v, want 130", got)
	}
}

func TestField_RejectedRuleIsStickyAndUncommitted(t *testing.T) {
	f := freshField(t, "age").Min(0).Rule("bogus", true).Max(10)
	err := f.Err()
	if err == nil {
		t.Fatal("Err() = nil, want rejection")
	}
	if !errors.Is(err, rules.ErrRuleRejected) {
		t.Fatalf("Err() = %v, want ErrRuleRejected", err)
	}
	rs := f.Ruleset()
	if _, ok := rs["bogus"]; ok {
		t.Fatal("rejected rule was committed")
	}
	if _, ok := rs["max"]; ok {
		t.Fatal("rule after the rejection was committed")
	}
	if _, ok := rs["min"]; !ok {
		t.Fatal("rule before the rejection was lost")
	}
}

func TestField_BadRegexRejected(t *testing.T) {
	f := freshField(t, "code").Regex("(")
	if f.Err() == nil {
		t.Fatal("Err() = nil, want rejection for unparsable expression")
	}
	iss, ok := rules.AsIssues(f.Err())
	if !ok || len(iss) == 0 || iss[0].Code != rules.CodeInvalidRule {
		t.Fatalf("issues = %v, want %s", iss, rules.CodeInvalidRule)
	}
}

func TestField_TypeDeclaresCustomType(t *testing.T) {
	type coordinate struct{ Lat, Lon float64 }
	types := rules.NewTypeRegistry()
	f := FieldWith("pos", types, rules.NewSchemaRegistry()).Type(coordinate{})
	if err := f.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if got := f.Ruleset()["type"]; got != "coordinate" {
		t.Fatalf("type = %v, want coordinate", got)
	}
	if !types.Has("coordinate") {
		t.Fatal("type registry did not learn coordinate")
	}
}

func TestField_EmptyNameRejected(t *testing.T) {
	f := Field("")
	if f.Err() == nil {
		t.Fatal("Err() = nil for empty field name")
	}
}

func TestField_SchemaAcceptsHeader(t *testing.T) {
	types := rules.NewTypeRegistry()
	rsets := rules.NewSchemaRegistry()
	addr := HeaderWith("address", types, rsets).
		Add(FieldWith("city", types, rsets).TypeName("string").Required(true))
	if err := addr.Err(); err != nil {
		t.Fatalf("header Err() = %v", err)
	}
	f := FieldWith("home", types, rsets).Schema(addr)
	if err := f.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	nested, ok := f.Ruleset()["schema"].(rules.Schema)
	if !ok {
		t.Fatalf("schema rule = %T, want rules.Schema", f.Ruleset()["schema"])
	}
	if _, ok := nested["city"]; !ok {
		t.Fatalf("nested schema missing city: %v", nested)
	}
}

func TestField_RulesetIsACopy(t *testing.T) {
	f := freshField(t, "n").Min(1)
	rs := f.Ruleset()
	rs["min"] = 99
	if got := f.Ruleset()["min"]; got != 1 {
		t.Fatalf("mutating the returned ruleset leaked in: min = %v", got)
	}
}

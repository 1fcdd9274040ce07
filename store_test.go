package sheetdb_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/reoring/sheetdb"
	"github.com/reoring/sheetdb/dsl"
	"github.com/reoring/sheetdb/rules"
	"github.com/reoring/sheetdb/storage"
)

func TestOpen_RejectsNilEngine(t *testing.T) {
	if _, err := sheetdb.Open(nil); err == nil {
		t.Fatal("Open(nil) succeeded")
	}
}

func TestStore_SheetIsIdempotent(t *testing.T) {
	eng := storage.Memory()
	db, err := sheetdb.Open(eng,
		sheetdb.WithTypes(rules.NewTypeRegistry()),
		sheetdb.WithRulesets(rules.NewSchemaRegistry()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	first, err := db.Sheet("users", sheetdb.WithHeader(
		dsl.Header("users_header").Add(dsl.Field("name").TypeName("string"))))
	if err != nil {
		t.Fatalf("Sheet: %v", err)
	}
	// The second open returns the same instance; its options are ignored.
	second, err := db.Sheet("users", sheetdb.WithAllowUnknown(true))
	if err != nil {
		t.Fatalf("Sheet twice: %v", err)
	}
	if first != second {
		t.Fatal("Sheet returned a new instance for an existing name")
	}
	if second.AllowUnknown() {
		t.Fatal("options of the second open were applied")
	}

	tables, err := eng.Tables()
	if err != nil {
		t.Fatalf("Tables: %v", err)
	}
	want := []string{"_config", "users", "users_recycled"}
	if !reflect.DeepEqual(tables, want) {
		t.Fatalf("engine tables = %v, want %v", tables, want)
	}

	// The alias resolves to the same instance too.
	aliased, err := db.Table("users")
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if aliased != first {
		t.Fatal("Table alias returned a different instance")
	}
}

func TestStore_CompanionTablesSharedConfig(t *testing.T) {
	eng := storage.Memory()
	db, err := sheetdb.Open(eng,
		sheetdb.WithTypes(rules.NewTypeRegistry()),
		sheetdb.WithRulesets(rules.NewSchemaRegistry()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := db.Sheet("users"); err != nil {
		t.Fatalf("Sheet(users): %v", err)
	}
	if _, err := db.Sheet("orders"); err != nil {
		t.Fatalf("Sheet(orders): %v", err)
	}

	tables, err := eng.Tables()
	if err != nil {
		t.Fatalf("Tables: %v", err)
	}
	want := []string{"_config", "orders", "orders_recycled", "users", "users_recycled"}
	if !reflect.DeepEqual(tables, want) {
		t.Fatalf("engine tables = %v, want %v", tables, want)
	}
	if got, want := db.Sheets(), []string{"orders", "users"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Sheets() = %v, want %v", got, want)
	}
}

func TestStore_RejectsReservedNames(t *testing.T) {
	db, err := sheetdb.Open(storage.Memory())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := db.Sheet(""); err == nil {
		t.Fatal("empty sheet name accepted")
	}
	if _, err := db.Sheet("_config"); err == nil {
		t.Fatal("reserved sheet name accepted")
	}
}

func TestStore_SheetRejectsErroredHeader(t *testing.T) {
	db, err := sheetdb.Open(storage.Memory(),
		sheetdb.WithTypes(rules.NewTypeRegistry()),
		sheetdb.WithRulesets(rules.NewSchemaRegistry()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	broken := dsl.Header("broken").Add(dsl.Field("x").Rule("bogus", 1))
	if _, err := db.Sheet("users", sheetdb.WithHeader(broken)); err == nil {
		t.Fatal("errored header accepted")
	}
}

func TestStore_DefaultHeaderIsEmptyAndNamed(t *testing.T) {
	ctx := context.Background()
	rsets := rules.NewSchemaRegistry()
	db, err := sheetdb.Open(storage.Memory(),
		sheetdb.WithTypes(rules.NewTypeRegistry()),
		sheetdb.WithRulesets(rsets))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sheet, err := db.Sheet("users")
	if err != nil {
		t.Fatalf("Sheet: %v", err)
	}
	if got := sheet.Header().Name(); got != "users_header" {
		t.Fatalf("default header name = %q, want users_header", got)
	}
	if _, ok := rsets.Resolve("users_header"); !ok {
		t.Fatal("default header not registered")
	}
	// Empty schema plus the strict default: every field is unknown.
	if _, err := sheet.Insert(ctx, sheetdb.Document{"name": "ada"}); err == nil {
		t.Fatal("insert into a headerless strict sheet succeeded")
	}
	if err := sheet.SetAllowUnknown(true); err != nil {
		t.Fatalf("SetAllowUnknown: %v", err)
	}
	if _, err := sheet.Insert(ctx, sheetdb.Document{"name": "ada"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
}

func TestStore_Close(t *testing.T) {
	db, err := sheetdb.Open(storage.Memory(),
		sheetdb.WithTypes(rules.NewTypeRegistry()),
		sheetdb.WithRulesets(rules.NewSchemaRegistry()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := db.Sheet("users"); err != nil {
		t.Fatalf("Sheet: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

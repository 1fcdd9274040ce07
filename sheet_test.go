package sheetdb_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/reoring/sheetdb"
	"github.com/reoring/sheetdb/dsl"
	"github.com/reoring/sheetdb/rules"
	"github.com/reoring/sheetdb/storage"
)

func TestSheet_SetHeaderSwapsSchemaAndRegistryTogether(t *testing.T) {
	rsets := rules.NewSchemaRegistry()
	db, err := sheetdb.Open(storage.Memory(),
		sheetdb.WithTypes(rules.NewTypeRegistry()),
		sheetdb.WithRulesets(rsets))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sheet, err := db.Sheet("crew", sheetdb.WithHeader(crewHeader(t)))
	if err != nil {
		t.Fatalf("Sheet: %v", err)
	}

	next := dsl.Header("crew_header_v2").
		Add(dsl.Field("callsign").TypeName("string").Required(true))
	if err := sheet.SetHeader(next); err != nil {
		t.Fatalf("SetHeader: %v", err)
	}

	if sheet.Header() != next {
		t.Fatal("Header() does not return the swapped header")
	}
	if _, ok := sheet.Schema()["callsign"]; !ok {
		t.Fatalf("validator schema not swapped: %v", sheet.Schema())
	}
	reg, ok := rsets.Resolve("crew_header_v2")
	if !ok {
		t.Fatal("swapped header not registered under its name")
	}
	if _, ok := reg["callsign"]; !ok {
		t.Fatalf("registered schema out of step with the header: %v", reg)
	}
	// Registration is additive: the previous header entry survives.
	if _, ok := rsets.Resolve("crew_header"); !ok {
		t.Fatal("previous header entry was pruned")
	}
}

func TestSheet_SetHeaderRejectsBadHeaders(t *testing.T) {
	sheet := openCrew(t)

	if err := sheet.SetHeader(nil); !errors.Is(err, sheetdb.ErrInvalidHeader) {
		t.Fatalf("err = %v, want ErrInvalidHeader for nil", err)
	}
	broken := dsl.Header("broken").Add(dsl.Field("x").Rule("bogus", 1))
	if err := sheet.SetHeader(broken); !errors.Is(err, sheetdb.ErrInvalidHeader) {
		t.Fatalf("err = %v, want ErrInvalidHeader for errored header", err)
	}
	if _, ok := sheet.Schema()["name"]; !ok {
		t.Fatal("rejected SetHeader clobbered the active schema")
	}
}

func TestSheet_WhereBuildsConditions(t *testing.T) {
	ctx := context.Background()
	sheet := openCrew(t)
	_, err := sheet.InsertMultiple(ctx, []sheetdb.Document{
		{"name": "ada", "age": 36, "role": "pilot"},
		{"name": "bob", "age": 41, "role": "medic"},
	})
	if err != nil {
		t.Fatalf("InsertMultiple: %v", err)
	}
	recs, err := sheet.Search(ctx, sheet.Where("role").Eq("pilot"))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(recs) != 1 || recs[0].Doc["name"] != "ada" {
		t.Fatalf("Search = %v", recs)
	}
}

func TestSheet_RecycleStampsAndMoves(t *testing.T) {
	ctx := context.Background()
	sheet := openCrew(t)
	_, err := sheet.InsertMultiple(ctx, []sheetdb.Document{
		{"name": "ada", "age": 36},
		{"name": "bob", "age": 17},
		{"name": "carol", "age": 15},
	})
	if err != nil {
		t.Fatalf("InsertMultiple: %v", err)
	}

	moved, err := sheet.Recycle(ctx, sheet.Where("age").Lt(18), nil)
	if err != nil {
		t.Fatalf("Recycle: %v", err)
	}
	if len(moved) != 2 {
		t.Fatalf("moved ids = %v, want 2", moved)
	}
	if n, _ := sheet.Count(ctx); n != 1 {
		t.Fatalf("Count = %d after recycle, want 1", n)
	}

	recs, err := sheet.Recycled().All(ctx)
	if err != nil {
		t.Fatalf("recycled All: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("recycled holds %d docs, want 2", len(recs))
	}
	batch, _ := recs[0].Doc[sheetdb.RecycleBatchField].(string)
	if _, err := uuid.Parse(batch); err != nil {
		t.Fatalf("batch stamp %q is not a uuid: %v", batch, err)
	}
	for _, r := range recs {
		if r.Doc[sheetdb.RecycleBatchField] != batch {
			t.Fatal("documents of one call carry different batch ids")
		}
		at, _ := r.Doc[sheetdb.RecycledAtField].(string)
		if _, err := time.Parse(time.RFC3339, at); err != nil {
			t.Fatalf("recycled-at stamp %q: %v", at, err)
		}
		if !rules.Equal(r.Doc[sheetdb.RecycledFromField], moved[0]) &&
			!rules.Equal(r.Doc[sheetdb.RecycledFromField], moved[1]) {
			t.Fatalf("recycled-from = %v, not one of %v", r.Doc[sheetdb.RecycledFromField], moved)
		}
	}

	// Strict by-id recycle: a missing id fails before anything moves.
	if _, err := sheet.Recycle(ctx, nil, []int64{99}); !errors.Is(err, storage.ErrMissingDocument) {
		t.Fatalf("err = %v, want ErrMissingDocument", err)
	}
}

func TestSheet_SaveAndLoadConfig(t *testing.T) {
	ctx := context.Background()
	eng := storage.Memory()
	db, err := sheetdb.Open(eng,
		sheetdb.WithTypes(rules.NewTypeRegistry()),
		sheetdb.WithRulesets(rules.NewSchemaRegistry()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sheet, err := db.Sheet("crew", sheetdb.WithHeader(crewHeader(t)))
	if err != nil {
		t.Fatalf("Sheet: %v", err)
	}

	sheet.SetPurgeUnknown(true)
	if err := sheet.SetAllowUnknown(true); err != nil {
		t.Fatalf("SetAllowUnknown: %v", err)
	}
	if err := sheet.SaveConfig(ctx); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	// Drift the live config, then restore from the stored document.
	sheet.SetPurgeUnknown(false)
	if err := sheet.SetAllowUnknown(false); err != nil {
		t.Fatalf("SetAllowUnknown: %v", err)
	}
	if err := sheet.LoadConfig(ctx); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !sheet.PurgeUnknown() || !sheet.AllowUnknown() {
		t.Fatalf("Options after load = %v", sheet.Options())
	}

	// Saving twice keeps a single config document per sheet.
	if err := sheet.SaveConfig(ctx); err != nil {
		t.Fatalf("SaveConfig again: %v", err)
	}
	confTab, err := eng.Table("_config")
	if err != nil {
		t.Fatalf("config table: %v", err)
	}
	if n, _ := confTab.Count(ctx); n != 1 {
		t.Fatalf("_config holds %d docs for one sheet, want 1", n)
	}

	// Loading with nothing stored is a no-op.
	other, err := db.Sheet("cargo")
	if err != nil {
		t.Fatalf("Sheet(cargo): %v", err)
	}
	if err := other.LoadConfig(ctx); err != nil {
		t.Fatalf("LoadConfig without a stored entry: %v", err)
	}
}

func TestSheet_LoadConfigRejectsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	eng := storage.Memory()
	db, _ := sheetdb.Open(eng,
		sheetdb.WithTypes(rules.NewTypeRegistry()),
		sheetdb.WithRulesets(rules.NewSchemaRegistry()))
	sheet, err := db.Sheet("crew", sheetdb.WithHeader(crewHeader(t)))
	if err != nil {
		t.Fatalf("Sheet: %v", err)
	}

	confTab, err := eng.Table("_config")
	if err != nil {
		t.Fatalf("config table: %v", err)
	}
	_, err = confTab.Insert(ctx, sheetdb.Document{"sheet": "crew", "normalize": "yes"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := sheet.LoadConfig(ctx); !errors.Is(err, sheetdb.ErrInvalidConfigValue) {
		t.Fatalf("err = %v, want ErrInvalidConfigValue", err)
	}
}

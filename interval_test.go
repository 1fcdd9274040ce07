package sheetdb_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/reoring/sheetdb"
	"github.com/reoring/sheetdb/storage"
)

func TestExpandDocIDs(t *testing.T) {
	cases := []struct {
		name string
		refs []any
		want []int64
	}{
		{"single ids", []any{1, 4, 2}, []int64{1, 2, 4}},
		{"range", []any{[]any{3, 7}}, []int64{3, 4, 5, 6, 7}},
		{"reversed endpoints", []any{[]any{7, 3}}, []int64{3, 4, 5, 6, 7}},
		{"mixed and overlapping", []any{1, []any{3, 5}, 4, int64(9)}, []int64{1, 3, 4, 5, 9}},
		{"int64 pair", []any{[]int64{2, 4}}, []int64{2, 3, 4}},
		{"int pair", []any{[]int{2, 3}}, []int64{2, 3}},
		{"integral floats", []any{float64(2), []any{float64(4), float64(5)}}, []int64{2, 4, 5}},
		{"degenerate range", []any{[]any{6, 6}}, []int64{6}},
		{"empty", nil, []int64{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := sheetdb.ExpandDocIDs(tc.refs)
			if err != nil {
				t.Fatalf("ExpandDocIDs: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ExpandDocIDs = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestExpandDocIDs_RejectsBadShapes(t *testing.T) {
	cases := []struct {
		name string
		refs []any
	}{
		{"one-element range", []any{[]any{3}}},
		{"three-element range", []any{[]any{1, 2, 3}}},
		{"string id", []any{"7"}},
		{"fractional float", []any{3.5}},
		{"range with string endpoint", []any{[]any{1, "2"}}},
		{"nil element", []any{nil}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := sheetdb.ExpandDocIDs(tc.refs); !errors.Is(err, sheetdb.ErrInvalidInterval) {
				t.Fatalf("err = %v, want ErrInvalidInterval", err)
			}
		})
	}
}

func TestExpandDocIDs_RangeProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("a two-element range expands to every id between its endpoints",
		prop.ForAll(func(a, b int) bool {
			got, err := sheetdb.ExpandDocIDs([]any{[]any{a, b}})
			if err != nil {
				return false
			}
			lo, hi := a, b
			if lo > hi {
				lo, hi = hi, lo
			}
			if len(got) != hi-lo+1 {
				return false
			}
			for i, id := range got {
				if id != int64(lo+i) {
					return false
				}
			}
			return true
		}, gen.IntRange(1, 500), gen.IntRange(1, 500)))

	properties.TestingRun(t)
}

func rec(id int64, doc sheetdb.Document) storage.Record {
	return storage.Record{ID: id, Doc: doc}
}

func TestOrderBy(t *testing.T) {
	recs := []storage.Record{
		rec(1, sheetdb.Document{"name": "carol", "age": 41}),
		rec(2, sheetdb.Document{"name": "dan", "age": 36}),
		rec(3, sheetdb.Document{"name": "bob"}),
		rec(4, sheetdb.Document{"name": "ada", "age": 36}),
	}

	// Single key: the age tie keeps input order (stable).
	byAge := sheetdb.OrderBy(recs, []string{"age"}, false)
	if got, want := sheetdb.GetIDs(byAge), []int64{2, 4, 1, 3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order by age = %v, want %v", got, want)
	}

	// Reverse still sorts the record missing the field last.
	byAgeDesc := sheetdb.OrderBy(recs, []string{"age"}, true)
	if got, want := sheetdb.GetIDs(byAgeDesc), []int64{1, 2, 4, 3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order by age desc = %v, want %v", got, want)
	}

	// Second key breaks the age tie: ada before dan.
	byAgeName := sheetdb.OrderBy(recs, []string{"age", "name"}, false)
	if got, want := sheetdb.GetIDs(byAgeName), []int64{4, 2, 1, 3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order by age,name = %v, want %v", got, want)
	}

	// Input order is untouched.
	if recs[0].ID != 1 || recs[3].ID != 4 {
		t.Fatal("OrderBy mutated its input")
	}
}

func TestOrderBy_StringsAndStability(t *testing.T) {
	recs := []storage.Record{
		rec(1, sheetdb.Document{"city": "berlin", "n": 2}),
		rec(2, sheetdb.Document{"city": "amsterdam", "n": 1}),
		rec(3, sheetdb.Document{"city": "berlin", "n": 1}),
	}
	got := sheetdb.OrderBy(recs, []string{"city"}, false)
	if want := []int64{2, 1, 3}; !reflect.DeepEqual(sheetdb.GetIDs(got), want) {
		t.Fatalf("order by city = %v, want %v (ties keep input order)", sheetdb.GetIDs(got), want)
	}
	if empty := sheetdb.OrderBy(recs, nil, false); !reflect.DeepEqual(sheetdb.GetIDs(empty), []int64{1, 2, 3}) {
		t.Fatalf("no sort fields should keep input order, got %v", sheetdb.GetIDs(empty))
	}
}

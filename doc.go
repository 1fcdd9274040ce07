// Package sheetdb provides schema-validated document tables:
//
// - Declarative field rules and headers via dsl (schema-first commit: a bad rule never lands)
// - A stable error model via rules.Issues (JSON Pointer, code, message)
// - Validated tables: writes normalize and validate before touching storage
// - Pluggable document storage (memory, single JSON file, sqlite/postgres)
//
// Design policy:
// - Keep only public APIs in the root package; the collaborators live in rules/, dsl/ and storage/.
// - Validation is synchronous; storage operations take a context.
// - Registries default to process-wide instances, injectable per store for isolation.
//
// Typical usage:
//
//	eng, err := storage.OpenJSONFile("crew.json")
//	db, err := sheetdb.Open(eng)
//
//	header := dsl.Header("crew").
//		Add(dsl.Field("name").TypeName("string").Required(true)).
//		Add(dsl.Field("age").TypeName("int").Min(0).Coerce("int"))
//	sheet, err := db.Sheet("crew", sheetdb.WithHeader(header))
//
//	id, err := sheet.Insert(ctx, sheetdb.Document{"name": "ada", "age": "36"})
//	recs, err := sheet.Search(ctx, sheet.Where("age").Ge(18))
package sheetdb

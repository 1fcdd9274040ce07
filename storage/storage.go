// Package storage provides the document store engines the schema layer sits
// on: an in-memory engine, a JSON-file engine with write-through persistence
// and a SQL engine (SQLite or PostgreSQL).
//
// An Engine hands out Tables by name; creating a table is idempotent and its
// existence persists even while empty. Tables store schemaless documents
// under monotonically assigned int64 identifiers starting at 1. Engines
// serialize access internally, so a Table is safe for concurrent use.
package storage

import (
	"context"
	"errors"
)

// Document is one stored mapping.
type Document = map[string]any

// Record pairs a document with its table-local identifier.
type Record struct {
	ID  int64
	Doc Document
}

// ErrMissingDocument is returned when an operation addresses a document
// identifier that does not exist in the table.
var ErrMissingDocument = errors.New("storage: document does not exist")

// Condition selects documents during Search, Update and Remove.
type Condition interface {
	Match(Document) bool
}

// Update describes a document modification: merging a field mapping, or an
// arbitrary in-place transform. The zero value changes nothing.
type Update struct {
	fields Document
	apply  func(Document)
}

// Fields returns an Update that merges doc's keys into matching documents.
func Fields(doc Document) Update { return Update{fields: doc} }

// Apply returns an Update that runs fn on each matching document, mutating
// it in place. No rollback happens if fn misbehaves.
func Apply(fn func(Document)) Update { return Update{apply: fn} }

// FieldChanges exposes the field mapping of a Fields update, so callers can
// inspect (and validate) what is about to be written. Transform updates
// report false.
func (u Update) FieldChanges() (Document, bool) {
	if u.fields == nil {
		return nil, false
	}
	return u.fields, true
}

// run mutates doc according to the update.
func (u Update) run(doc Document) {
	if u.fields != nil {
		for k, v := range u.fields {
			doc[k] = v
		}
	}
	if u.apply != nil {
		u.apply(doc)
	}
}

// UpdateSpec pairs an update with the condition selecting its targets, for
// batched UpdateMultiple calls.
type UpdateSpec struct {
	Update Update
	Cond   Condition
}

// Table is one named document collection.
//
// For Update and Remove, explicit ids win over cond, and nil/nil means every
// document. Addressing a missing id fails with ErrMissingDocument before
// anything is written.
type Table interface {
	Name() string

	Insert(ctx context.Context, doc Document) (int64, error)
	InsertMultiple(ctx context.Context, docs []Document) ([]int64, error)

	Update(ctx context.Context, u Update, cond Condition, ids []int64) ([]int64, error)
	UpdateMultiple(ctx context.Context, specs []UpdateSpec) ([]int64, error)

	Get(ctx context.Context, id int64) (Document, bool, error)
	All(ctx context.Context) ([]Record, error)
	Search(ctx context.Context, cond Condition) ([]Record, error)

	Remove(ctx context.Context, cond Condition, ids []int64) ([]int64, error)
	Count(ctx context.Context) (int, error)
	Truncate(ctx context.Context) error
}

// Engine is a document store holding named tables.
type Engine interface {
	// Table opens the named table, creating it when absent. The table then
	// exists until the backing store is deleted, even while empty.
	Table(name string) (Table, error)
	// Tables lists the known table names in ascending order.
	Tables() ([]string, error)
	Close() error
}

// cloneDoc deep-copies a document so engine state never aliases caller
// state in either direction.
func cloneDoc(doc Document) Document {
	if doc == nil {
		return Document{}
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneVal(v)
	}
	return out
}

func cloneVal(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneDoc(t)
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = cloneVal(el)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []byte:
		out := make([]byte, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

// targetIDs resolves the Update/Remove addressing convention against the
// full id set of a table: ids beat cond, nil/nil selects everything. The
// docs callback fetches a document by id for condition matching.
func targetIDs(all []int64, doc func(int64) (Document, bool), cond Condition, ids []int64) ([]int64, error) {
	if ids != nil {
		out := make([]int64, 0, len(ids))
		for _, id := range ids {
			if _, ok := doc(id); !ok {
				return nil, ErrMissingDocument
			}
			out = append(out, id)
		}
		return out, nil
	}
	var out []int64
	for _, id := range all {
		d, ok := doc(id)
		if !ok {
			continue
		}
		if cond == nil || cond.Match(d) {
			out = append(out, id)
		}
	}
	return out, nil
}

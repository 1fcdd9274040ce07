package sheetdb

import (
	"github.com/reoring/sheetdb/rules"
)

// DocBuilder assembles a document field by field, validating each
// assignment as it lands. A known field validates against its own rules; an
// unknown field goes through the table's unknown-field policy. Cross-field
// rules (dependencies) cannot be judged on a single assignment and are
// enforced by Build on the complete document.
type DocBuilder struct {
	table *Table
	doc   Document
	err   error
}

// Model returns a builder for documents of this table.
func (t *Table) Model() *DocBuilder {
	return &DocBuilder{table: t, doc: Document{}}
}

// checkAssignment validates a single key/value pair against the field's
// narrowed schema under the table's config.
func (t *Table) checkAssignment(key string, value any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	narrowed := rules.Schema{}
	if rs, ok := t.validator.Schema()[key]; ok {
		delete(rs, "dependencies")
		narrowed[key] = rs
	}
	nv, err := t.validator.WithSchema(narrowed)
	if err != nil {
		return err
	}
	_, err = nv.ValidatedPartial(Document{key: value})
	return err
}

// Set assigns one field, failing fast when the value does not conform. A
// failed Set leaves the document unchanged.
func (b *DocBuilder) Set(key string, value any) error {
	if err := b.table.checkAssignment(key, value); err != nil {
		return err
	}
	b.doc[key] = value
	return nil
}

// With is Set for chaining: the first failure sticks and later calls are
// ignored.
func (b *DocBuilder) With(key string, value any) *DocBuilder {
	if b.err != nil {
		return b
	}
	if err := b.Set(key, value); err != nil {
		b.err = err
	}
	return b
}

// Err returns the first error recorded by With.
func (b *DocBuilder) Err() error { return b.err }

// Build validates and normalizes the assembled document. The builder stays
// usable afterwards; Build never mutates it.
func (b *DocBuilder) Build() (Document, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.table.Validated(b.doc)
}

package dsl

import "github.com/reoring/sheetdb/jsonschema"

// JSONSchema exports the header as a JSON Schema object. Nested references
// resolve through the header's own registry. An errored header does not
// export.
func (h *HeaderDef) JSONSchema() (*jsonschema.Schema, error) {
	if err := h.Err(); err != nil {
		return nil, err
	}
	return jsonschema.FromSchema(h.Schema(), h.rulesets), nil
}

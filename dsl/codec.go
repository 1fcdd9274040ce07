package dsl

import (
	"fmt"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/reoring/sheetdb/rules"
)

// headerDoc is the wire form of a header. Fields are a list so the
// insertion order survives the round trip.
type headerDoc struct {
	Name   string     `json:"name" yaml:"name"`
	Fields []fieldDoc `json:"fields" yaml:"fields"`
}

type fieldDoc struct {
	Name  string         `json:"name" yaml:"name"`
	Rules map[string]any `json:"rules,omitempty" yaml:"rules,omitempty"`
}

func headerToDoc(h *HeaderDef) (headerDoc, error) {
	if err := h.Err(); err != nil {
		return headerDoc{}, err
	}
	doc := headerDoc{Name: h.Name()}
	for _, name := range h.AllFields() {
		rs, _ := h.Field(name)
		fd := fieldDoc{Name: name}
		if len(rs) > 0 {
			fd.Rules = map[string]any(rs)
		}
		doc.Fields = append(doc.Fields, fd)
	}
	return doc, nil
}

// docToHeader rebuilds a header from its wire form. Every field's rules go
// through the same vetting as hand-built headers, so a tampered or stale
// document cannot smuggle in a defective schema.
func docToHeader(doc headerDoc, types *rules.TypeRegistry, rulesets *rules.SchemaRegistry) (*HeaderDef, error) {
	h := HeaderWith(doc.Name, types, rulesets)
	for _, fd := range doc.Fields {
		rs := rules.Ruleset{}
		for rule, value := range fd.Rules {
			rs[rule] = value
		}
		if !h.commit(fd.Name, rs) {
			break
		}
	}
	if err := h.Err(); err != nil {
		return nil, err
	}
	return h, nil
}

// EncodeHeaderJSON serializes a header to JSON. An errored header does not
// encode.
func EncodeHeaderJSON(h *HeaderDef) ([]byte, error) {
	doc, err := headerToDoc(h)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// DecodeHeaderJSON rebuilds a header from EncodeHeaderJSON output, bound to
// the process-default registries.
func DecodeHeaderJSON(data []byte) (*HeaderDef, error) {
	return DecodeHeaderJSONWith(data, nil, nil)
}

// DecodeHeaderJSONWith rebuilds a header from JSON, bound to explicit
// registries.
func DecodeHeaderJSONWith(data []byte, types *rules.TypeRegistry, rulesets *rules.SchemaRegistry) (*HeaderDef, error) {
	var doc headerDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("dsl: decode header: %w", err)
	}
	return docToHeader(doc, types, rulesets)
}

// EncodeHeaderYAML serializes a header to YAML. An errored header does not
// encode.
func EncodeHeaderYAML(h *HeaderDef) ([]byte, error) {
	doc, err := headerToDoc(h)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

// DecodeHeaderYAML rebuilds a header from EncodeHeaderYAML output, bound to
// the process-default registries.
func DecodeHeaderYAML(data []byte) (*HeaderDef, error) {
	return DecodeHeaderYAMLWith(data, nil, nil)
}

// DecodeHeaderYAMLWith rebuilds a header from YAML, bound to explicit
// registries.
func DecodeHeaderYAMLWith(data []byte, types *rules.TypeRegistry, rulesets *rules.SchemaRegistry) (*HeaderDef, error) {
	var doc headerDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("dsl: decode header: %w", err)
	}
	return docToHeader(doc, types, rulesets)
}

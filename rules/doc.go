// Package rules implements the document validation engine: a rule vocabulary
// (required, type, allowed, min/max, regex, dependencies, nested schema, …),
// a normalization phase (defaults, coercion, purges) and the registries the
// vocabulary resolves against.
//
// The engine is deliberately two-phased. CheckSchema vets a Schema when it is
// committed, so rule defects surface at declaration time with ErrRuleRejected.
// Validate/Validated run documents against a vetted schema and report
// structured Issues, wrapped in ErrValidationFailed when a caller wants an
// error.
//
//	v, err := rules.NewValidator(rules.Schema{
//	    "name": {"type": "string", "required": true, "minlength": 1},
//	    "age":  {"type": "int", "min": 0},
//	}, rules.Config{Normalize: true}, nil, nil)
//	if err != nil { ... }
//	doc, err := v.Validated(map[string]any{"name": "ada", "age": 36})
//
// Two registries parameterize the vocabulary: TypeRegistry maps type names to
// conformance checks (extensible, never silently rebindable) and
// SchemaRegistry holds named rule-sets for by-reference nested schemas.
// Package-level defaults exist for both; inject private instances when
// isolation matters.
//
// Validators are not safe for concurrent use; see the Validator doc.
package rules

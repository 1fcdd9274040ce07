package sheetdb

import (
	"errors"

	"github.com/reoring/sheetdb/dsl"
	"github.com/reoring/sheetdb/rules"
)

var (
	// ErrUnknownField reports an operation naming a field the schema does
	// not contain.
	ErrUnknownField = dsl.ErrUnknownField
	// ErrInvalidConfigValue reports a config option set to a value of the
	// wrong shape.
	ErrInvalidConfigValue = errors.New("sheetdb: invalid config value")
	// ErrInvalidHeader reports a nil or error-carrying header.
	ErrInvalidHeader = errors.New("sheetdb: invalid header")
	// ErrInvalidInterval reports a document reference that is neither an
	// integer id nor a two-element inclusive range.
	ErrInvalidInterval = errors.New("sheetdb: invalid interval")
)

// Validation sentinels, re-exported so callers rarely need to import the
// rules package directly.
var (
	ErrRuleRejected     = rules.ErrRuleRejected
	ErrUnresolvableType = rules.ErrUnresolvableType
	ErrValidationFailed = rules.ErrValidationFailed
)

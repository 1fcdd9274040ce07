package rules

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidType    = "invalid_type"
	CodeRequired       = "required"
	CodeUnknownField   = "unknown_field"
	CodeNotAllowed     = "not_allowed"
	CodeForbidden      = "forbidden_value"
	CodeTooSmall       = "too_small"
	CodeTooBig         = "too_big"
	CodeTooShort       = "too_short"
	CodeTooLong        = "too_long"
	CodePattern        = "pattern"
	CodeEmpty          = "empty_not_allowed"
	CodeNotNullable    = "not_nullable"
	CodeReadonly       = "readonly_field"
	CodeDependency     = "dependency_unmet"
	CodeCoercionFailed = "coercion_failed"
	// Schema-level validation (CheckSchema)
	CodeUnknownRule    = "unknown_rule"
	CodeInvalidRule    = "invalid_rule_value"
	CodeUnknownType    = "unknown_type"
	CodeUnknownRuleset = "unknown_ruleset"
)

// Sentinel error kinds. Engine failures wrap one of these together with the
// Issues that describe them, so callers can branch with errors.Is and still
// extract structured entries via AsIssues.
var (
	// ErrRuleRejected marks a rule that failed schema-level validation.
	ErrRuleRejected = errors.New("rules: rule rejected")
	// ErrUnresolvableType marks a type that cannot be named or registered.
	ErrUnresolvableType = errors.New("rules: unresolvable type")
	// ErrValidationFailed marks a document that failed full validation.
	ErrValidationFailed = errors.New("rules: validation failed")
)

// Issue represents a single validation entry.
type Issue struct {
	Path    string // JSON Pointer (for example: /profile/age).
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: remediation hints, expected shapes, etc.
	Cause   error  // Optional: underlying error.
	// Rule optionally records the rule name that produced this issue.
	Rule string
	// Params carries structured parameters (e.g., {"min":1, "max":10, "got":42})
	// for i18n and observability.
	Params map[string]any
}

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. invalid_type at /path
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// rejected wraps schema-level issues so both errors.Is(err, ErrRuleRejected)
// and AsIssues(err) hold.
func rejected(iss Issues) error {
	return fmt.Errorf("%w: %w", ErrRuleRejected, iss)
}

// failed wraps document-level issues under ErrValidationFailed.
func failed(iss Issues) error {
	return fmt.Errorf("%w: %w", ErrValidationFailed, iss)
}

// rebase prefixes child issue paths with /field, mirroring how nested schemas
// report their errors relative to the parent document.
func rebase(field string, child Issues) Issues {
	base := "/" + field
	out := make(Issues, 0, len(child))
	for _, it := range child {
		p := it.Path
		switch {
		case p == "" || p == "/":
			p = base
		case p[0] == '/':
			p = base + p
		default:
			p = base + "/" + p
		}
		it.Path = p
		out = append(out, it)
	}
	return out
}

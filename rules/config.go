package rules

// Config bundles the validation behavior of a Validator. The zero value is a
// strict validator: unknown fields rejected, no normalization.
type Config struct {
	// AllowUnknown permits fields that are absent from the schema.
	AllowUnknown bool
	// UnknownRules, when non-nil, validates every unknown field against this
	// rule-set instead of accepting it verbatim. Implies AllowUnknown.
	UnknownRules Ruleset
	// IgnoreNoneValues skips value-level checks for nil values; presence
	// rules still apply.
	IgnoreNoneValues bool
	// Normalize enables the normalization phase: defaults, coercion and
	// purges run before validation and Validated returns the result.
	Normalize bool
	// PurgeUnknown drops unknown fields during normalization instead of
	// reporting them.
	PurgeUnknown bool
	// PurgeReadonly drops fields marked readonly during normalization.
	PurgeReadonly bool
	// RequireAll flips the default of the required rule to true; a field's
	// explicit required:false still opts out.
	RequireAll bool
}

// unknownAllowed reports whether unknown fields pass at all.
func (c Config) unknownAllowed() bool {
	return c.AllowUnknown || c.UnknownRules != nil
}

package sheetdb

import (
	"go.uber.org/zap"

	"github.com/reoring/sheetdb/dsl"
	"github.com/reoring/sheetdb/rules"
)

// Option configures a Store at Open time.
type Option func(*Store)

// WithLogger installs the store's logger. The default is zap.NewNop().
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTypes binds the store and every sheet it opens to an explicit type
// registry instead of the process default.
func WithTypes(types *rules.TypeRegistry) Option {
	return func(s *Store) {
		if types != nil {
			s.types = types
		}
	}
}

// WithRulesets binds the store to an explicit named rule-set registry
// instead of the process default.
func WithRulesets(rulesets *rules.SchemaRegistry) Option {
	return func(s *Store) {
		if rulesets != nil {
			s.rulesets = rulesets
		}
	}
}

// SheetOption configures a sheet on its first open. Later opens of the same
// name return the existing sheet and ignore the options.
type SheetOption func(*sheetSettings)

type sheetSettings struct {
	header *dsl.HeaderDef
	cfg    rules.Config
}

// defaultSheetSettings mirrors the validated-table defaults: strict about
// unknown fields, normalizing on write so defaults and coercions land in the
// stored document.
func defaultSheetSettings() sheetSettings {
	return sheetSettings{cfg: rules.Config{Normalize: true}}
}

// WithHeader installs the sheet's initial header.
func WithHeader(h *dsl.HeaderDef) SheetOption {
	return func(ss *sheetSettings) { ss.header = h }
}

// WithAllowUnknown permits document fields absent from the schema.
func WithAllowUnknown(v bool) SheetOption {
	return func(ss *sheetSettings) { ss.cfg.AllowUnknown = v }
}

// WithUnknownRules validates unknown fields against rs instead of accepting
// them verbatim. Implies allowing unknown fields.
func WithUnknownRules(rs rules.Ruleset) SheetOption {
	return func(ss *sheetSettings) { ss.cfg.UnknownRules = rs }
}

// WithIgnoreNoneValues skips value-level checks for nil values.
func WithIgnoreNoneValues(v bool) SheetOption {
	return func(ss *sheetSettings) { ss.cfg.IgnoreNoneValues = v }
}

// WithNormalize toggles the normalization phase on writes.
func WithNormalize(v bool) SheetOption {
	return func(ss *sheetSettings) { ss.cfg.Normalize = v }
}

// WithPurgeUnknown drops unknown fields during normalization instead of
// reporting them.
func WithPurgeUnknown(v bool) SheetOption {
	return func(ss *sheetSettings) { ss.cfg.PurgeUnknown = v }
}

// WithPurgeReadonly drops readonly fields during normalization.
func WithPurgeReadonly(v bool) SheetOption {
	return func(ss *sheetSettings) { ss.cfg.PurgeReadonly = v }
}

// WithRequireAll makes every schema field required unless it opts out with
// an explicit required:false.
func WithRequireAll(v bool) SheetOption {
	return func(ss *sheetSettings) { ss.cfg.RequireAll = v }
}

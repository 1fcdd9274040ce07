package sheetdb

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/reoring/sheetdb/rules"
	"github.com/reoring/sheetdb/storage"
)

// Document is the unit of storage, an alias shared with the storage package.
type Document = storage.Document

// Record pairs a document with its table-assigned id.
type Record = storage.Record

// Table is a validated view over one storage table: every mapping write
// passes through the rule engine first, and a document that fails
// validation is never written. Field-subset updates validate in partial
// mode, so presence rules do not fire for fields the update leaves alone.
//
// A Table serializes schema access internally and may be shared across
// goroutines; the storage engines serialize their own state.
type Table struct {
	name  string
	store storage.Table
	log   *zap.Logger

	mu        sync.Mutex
	validator *rules.Validator
}

func newTable(name string, st storage.Table, schema rules.Schema, cfg rules.Config, types *rules.TypeRegistry, rulesets *rules.SchemaRegistry, log *zap.Logger) (*Table, error) {
	v, err := rules.NewValidator(schema, cfg, types, rulesets)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Table{name: name, store: st, log: log, validator: v}, nil
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Insert validates doc and writes the normalized result. Nothing is written
// when validation fails.
func (t *Table) Insert(ctx context.Context, doc Document) (int64, error) {
	t.mu.Lock()
	out, err := t.validator.Validated(doc)
	t.mu.Unlock()
	if err != nil {
		t.log.Warn("insert rejected", zap.String("table", t.name), zap.Error(err))
		return 0, err
	}
	return t.store.Insert(ctx, out)
}

// InsertMultiple validates every document before any write, then inserts
// them in order. The first invalid document fails the whole batch and its
// error names the offending position.
func (t *Table) InsertMultiple(ctx context.Context, docs []Document) ([]int64, error) {
	outs := make([]Document, len(docs))
	t.mu.Lock()
	for i, doc := range docs {
		out, err := t.validator.Validated(doc)
		if err != nil {
			t.mu.Unlock()
			t.log.Warn("batch insert rejected",
				zap.String("table", t.name), zap.Int("index", i), zap.Error(err))
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		outs[i] = out
	}
	t.mu.Unlock()
	return t.store.InsertMultiple(ctx, outs)
}

// vetUpdate validates a Fields update in partial mode and rebuilds it with
// the normalized field set. Apply updates pass through untouched.
func (t *Table) vetUpdate(u storage.Update) (storage.Update, error) {
	fields, ok := u.FieldChanges()
	if !ok {
		return u, nil
	}
	t.mu.Lock()
	out, err := t.validator.ValidatedPartial(fields)
	t.mu.Unlock()
	if err != nil {
		t.log.Warn("update rejected", zap.String("table", t.name), zap.Error(err))
		return storage.Update{}, err
	}
	return storage.Fields(out), nil
}

// Update validates a Fields update (partial mode) and applies it to the
// documents selected by cond and ids. Apply updates run unvalidated.
func (t *Table) Update(ctx context.Context, u storage.Update, cond storage.Condition, ids []int64) ([]int64, error) {
	vetted, err := t.vetUpdate(u)
	if err != nil {
		return nil, err
	}
	return t.store.Update(ctx, vetted, cond, ids)
}

// UpdateMultiple validates every Fields update before any write, then
// applies the updates in order.
func (t *Table) UpdateMultiple(ctx context.Context, specs []storage.UpdateSpec) ([]int64, error) {
	vetted := make([]storage.UpdateSpec, len(specs))
	for i, spec := range specs {
		u, err := t.vetUpdate(spec.Update)
		if err != nil {
			return nil, fmt.Errorf("update %d: %w", i, err)
		}
		vetted[i] = storage.UpdateSpec{Update: u, Cond: spec.Cond}
	}
	return t.store.UpdateMultiple(ctx, vetted)
}

// Remove deletes the documents selected by cond and ids and returns their
// ids.
func (t *Table) Remove(ctx context.Context, cond storage.Condition, ids []int64) ([]int64, error) {
	return t.store.Remove(ctx, cond, ids)
}

// Truncate deletes every document and resets id assignment.
func (t *Table) Truncate(ctx context.Context) error {
	return t.store.Truncate(ctx)
}

// Get returns the document with the given id.
func (t *Table) Get(ctx context.Context, id int64) (Document, bool, error) {
	return t.store.Get(ctx, id)
}

// All returns every record in ascending id order.
func (t *Table) All(ctx context.Context) ([]Record, error) {
	return t.store.All(ctx)
}

// Search returns the records matching cond in ascending id order.
func (t *Table) Search(ctx context.Context, cond storage.Condition) ([]Record, error) {
	return t.store.Search(ctx, cond)
}

// Count returns the number of documents.
func (t *Table) Count(ctx context.Context) (int, error) {
	return t.store.Count(ctx)
}

// Raw returns the table contents as an id-keyed map.
func (t *Table) Raw(ctx context.Context) (map[int64]Document, error) {
	recs, err := t.store.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]Document, len(recs))
	for _, r := range recs {
		out[r.ID] = r.Doc
	}
	return out, nil
}

// GetDocs fetches the documents referenced by refs (ids and inclusive
// ranges, see ExpandDocIDs). Ids with no document are skipped.
func (t *Table) GetDocs(ctx context.Context, refs []any) ([]Record, error) {
	ids, err := ExpandDocIDs(refs)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		doc, ok, err := t.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, Record{ID: id, Doc: doc})
		}
	}
	return out, nil
}

// GetOrdered returns records sorted by the named fields. A nil refs fetches
// the whole table; otherwise refs expands like GetDocs.
func (t *Table) GetOrdered(ctx context.Context, refs []any, by []string, reverse bool) ([]Record, error) {
	var (
		recs []Record
		err  error
	)
	if refs == nil {
		recs, err = t.store.All(ctx)
	} else {
		recs, err = t.GetDocs(ctx, refs)
	}
	if err != nil {
		return nil, err
	}
	return OrderBy(recs, by, reverse), nil
}

// GetIDs extracts the id of each record, preserving order.
func GetIDs(records []Record) []int64 {
	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

// Validate checks doc against the schema without writing anything.
func (t *Table) Validate(doc Document) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.validator.Validated(doc)
	return err
}

// Validated returns the normalized form of doc, or the validation error.
func (t *Table) Validated(doc Document) (Document, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.validator.Validated(doc)
}

// ValidateErrors returns the issues for doc without raising: an empty
// result means the document conforms.
func (t *Table) ValidateErrors(doc Document) rules.Issues {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.validator.Validate(doc)
	return t.validator.Errors()
}

// Schema returns a copy of the active schema.
func (t *Table) Schema() rules.Schema {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.validator.Schema()
}

// SetSchema swaps the active schema. The new schema is vetted first; on
// rejection the previous schema stays active.
func (t *Table) SetSchema(s rules.Schema) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.setSchemaLocked(s)
}

func (t *Table) setSchemaLocked(s rules.Schema) error {
	v, err := t.validator.WithSchema(s)
	if err != nil {
		return err
	}
	t.validator = v
	return nil
}

func (t *Table) config() rules.Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.validator.Config()
}

func (t *Table) setConfig(mutate func(*rules.Config)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cfg := t.validator.Config()
	mutate(&cfg)
	t.validator = t.validator.WithConfig(cfg)
}

// AllowUnknown reports whether unknown document fields are accepted.
func (t *Table) AllowUnknown() bool {
	cfg := t.config()
	return cfg.AllowUnknown || cfg.UnknownRules != nil
}

// UnknownRules returns the rule-set unknown fields validate against, nil
// when unknown fields are accepted or rejected wholesale.
func (t *Table) UnknownRules() rules.Ruleset {
	return t.config().UnknownRules.Clone()
}

// SetAllowUnknown accepts a bool, or a rule-set shaped map that unknown
// fields must satisfy. Any other value fails with ErrInvalidConfigValue.
func (t *Table) SetAllowUnknown(v any) error {
	switch val := v.(type) {
	case bool:
		t.setConfig(func(c *rules.Config) {
			c.AllowUnknown = val
			c.UnknownRules = nil
		})
		return nil
	case rules.Ruleset:
		return t.setUnknownRules(val)
	case map[string]any:
		return t.setUnknownRules(rules.Ruleset(val))
	default:
		return fmt.Errorf("%w: allow_unknown wants bool or rule map, got %T", ErrInvalidConfigValue, v)
	}
}

func (t *Table) setUnknownRules(rs rules.Ruleset) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.validator.CheckSchema(rules.Schema{"*": rs}); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfigValue, err)
	}
	cfg := t.validator.Config()
	cfg.UnknownRules = rs.Clone()
	t.validator = t.validator.WithConfig(cfg)
	return nil
}

// IgnoreNoneValues reports whether nil values skip value-level checks.
func (t *Table) IgnoreNoneValues() bool { return t.config().IgnoreNoneValues }

// SetIgnoreNoneValues toggles skipping value-level checks for nil values.
func (t *Table) SetIgnoreNoneValues(v bool) {
	t.setConfig(func(c *rules.Config) { c.IgnoreNoneValues = v })
}

// Normalize reports whether the normalization phase runs on writes.
func (t *Table) Normalize() bool { return t.config().Normalize }

// SetNormalize toggles the normalization phase.
func (t *Table) SetNormalize(v bool) {
	t.setConfig(func(c *rules.Config) { c.Normalize = v })
}

// PurgeUnknown reports whether normalization drops unknown fields.
func (t *Table) PurgeUnknown() bool { return t.config().PurgeUnknown }

// SetPurgeUnknown toggles dropping unknown fields during normalization.
func (t *Table) SetPurgeUnknown(v bool) {
	t.setConfig(func(c *rules.Config) { c.PurgeUnknown = v })
}

// PurgeReadonly reports whether normalization drops readonly fields.
func (t *Table) PurgeReadonly() bool { return t.config().PurgeReadonly }

// SetPurgeReadonly toggles dropping readonly fields during normalization.
func (t *Table) SetPurgeReadonly(v bool) {
	t.setConfig(func(c *rules.Config) { c.PurgeReadonly = v })
}

// RequireAll reports whether every schema field defaults to required.
func (t *Table) RequireAll() bool { return t.config().RequireAll }

// SetRequireAll toggles the required default for schema fields.
func (t *Table) SetRequireAll(v bool) {
	t.setConfig(func(c *rules.Config) { c.RequireAll = v })
}

// SetOption sets one config option by its document key, for config loaded
// from stored documents or files:
//
//	allow_unknown       bool or rule map
//	ignore_none_values  bool
//	normalize           bool
//	purge_unknown       bool
//	purge_readonly      bool
//	require_all         bool
//
// Unknown names and wrong value types fail with ErrInvalidConfigValue.
func (t *Table) SetOption(name string, value any) error {
	if name == "allow_unknown" {
		return t.SetAllowUnknown(value)
	}
	set, known := map[string]func(bool){
		"ignore_none_values": t.SetIgnoreNoneValues,
		"normalize":          t.SetNormalize,
		"purge_unknown":      t.SetPurgeUnknown,
		"purge_readonly":     t.SetPurgeReadonly,
		"require_all":        t.SetRequireAll,
	}[name]
	if !known {
		return fmt.Errorf("%w: unknown option %q", ErrInvalidConfigValue, name)
	}
	b, ok := value.(bool)
	if !ok {
		return fmt.Errorf("%w: option %q wants bool, got %T", ErrInvalidConfigValue, name, value)
	}
	set(b)
	return nil
}

// Options returns the config as a document, the shape SetOption accepts and
// Sheet.SaveConfig persists.
func (t *Table) Options() Document {
	cfg := t.config()
	var allowUnknown any = cfg.AllowUnknown
	if cfg.UnknownRules != nil {
		allowUnknown = map[string]any(cfg.UnknownRules.Clone())
	}
	return Document{
		"allow_unknown":      allowUnknown,
		"ignore_none_values": cfg.IgnoreNoneValues,
		"normalize":          cfg.Normalize,
		"purge_unknown":      cfg.PurgeUnknown,
		"purge_readonly":     cfg.PurgeReadonly,
		"require_all":        cfg.RequireAll,
	}
}

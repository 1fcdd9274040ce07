package sheetdb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reoring/sheetdb/dsl"
	"github.com/reoring/sheetdb/storage"
)

// Recycled-document stamps, written by Recycle next to the original fields.
const (
	RecycledFromField = "_recycled_from"
	RecycledAtField   = "_recycled_at"
	RecycleBatchField = "_recycle_batch"
)

// Sheet is a Table with a named header attached. The header is the editable
// face of the schema: swapping it re-points the validator and republishes
// the schema under the header's name in one step, so nested references by
// name always resolve to the active revision.
type Sheet struct {
	*Table
	header   *dsl.HeaderDef
	recycled storage.Table
	confTab  storage.Table
}

// Header returns the active header.
func (s *Sheet) Header() *dsl.HeaderDef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header
}

// SetHeader swaps the active header. A nil or error-carrying header fails
// with ErrInvalidHeader, as does a header whose schema the engine rejects;
// the previous header stays active on failure. On success the validator
// schema and the registry entry change together.
func (s *Sheet) SetHeader(h *dsl.HeaderDef) error {
	if h == nil {
		return fmt.Errorf("%w: nil header", ErrInvalidHeader)
	}
	if err := h.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	schema := h.Schema()
	if err := s.setSchemaLocked(schema); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	s.validator.Rulesets().Register(h.Name(), schema)
	s.header = h
	s.log.Debug("header swapped",
		zap.String("table", s.name), zap.String("header", h.Name()))
	return nil
}

// Where starts a search condition on the named field.
func (s *Sheet) Where(field string) *storage.FieldExpr {
	return storage.Where(field)
}

// Recycle moves the documents selected by cond and ids into the sheet's
// recycled companion table instead of deleting them. Each moved document is
// stamped with its original id, the move time (RFC 3339) and a batch id
// shared by the whole call. Returns the original ids of the moved documents.
func (s *Sheet) Recycle(ctx context.Context, cond storage.Condition, ids []int64) ([]int64, error) {
	var targets []Record
	switch {
	case ids != nil:
		for _, id := range ids {
			doc, ok, err := s.store.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("recycle %d: %w", id, storage.ErrMissingDocument)
			}
			targets = append(targets, Record{ID: id, Doc: doc})
		}
	case cond != nil:
		recs, err := s.store.Search(ctx, cond)
		if err != nil {
			return nil, err
		}
		targets = recs
	default:
		recs, err := s.store.All(ctx)
		if err != nil {
			return nil, err
		}
		targets = recs
	}
	if len(targets) == 0 {
		return nil, nil
	}

	batch := uuid.NewString()
	stamp := time.Now().UTC().Format(time.RFC3339)
	moved := make([]Document, len(targets))
	for i, rec := range targets {
		doc := rec.Doc
		doc[RecycledFromField] = rec.ID
		doc[RecycledAtField] = stamp
		doc[RecycleBatchField] = batch
		moved[i] = doc
	}
	if _, err := s.recycled.InsertMultiple(ctx, moved); err != nil {
		return nil, err
	}
	origIDs := GetIDs(targets)
	if _, err := s.store.Remove(ctx, nil, origIDs); err != nil {
		return nil, err
	}
	s.log.Debug("documents recycled",
		zap.String("table", s.name), zap.Int("count", len(origIDs)), zap.String("batch", batch))
	return origIDs, nil
}

// Recycled returns the companion table holding recycled documents.
func (s *Sheet) Recycled() storage.Table { return s.recycled }

// SaveConfig persists the sheet's validation config as a document in the
// store's _config table, keyed by sheet name. Later saves overwrite.
func (s *Sheet) SaveConfig(ctx context.Context) error {
	doc := s.Options()
	doc["sheet"] = s.name
	recs, err := s.confTab.Search(ctx, storage.Where("sheet").Eq(s.name))
	if err != nil {
		return err
	}
	if len(recs) > 0 {
		_, err = s.confTab.Update(ctx, storage.Fields(doc), nil, []int64{recs[0].ID})
		return err
	}
	_, err = s.confTab.Insert(ctx, doc)
	return err
}

// LoadConfig restores the sheet's validation config from the _config table.
// No stored entry is a no-op. A corrupt entry fails with
// ErrInvalidConfigValue and leaves the already-applied options in place.
func (s *Sheet) LoadConfig(ctx context.Context) error {
	recs, err := s.confTab.Search(ctx, storage.Where("sheet").Eq(s.name))
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}
	doc := recs[0].Doc
	for _, name := range []string{
		"allow_unknown", "ignore_none_values", "normalize",
		"purge_unknown", "purge_readonly", "require_all",
	} {
		value, ok := doc[name]
		if !ok {
			continue
		}
		if err := s.SetOption(name, value); err != nil {
			return err
		}
	}
	return nil
}

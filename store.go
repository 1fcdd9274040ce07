package sheetdb

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/reoring/sheetdb/dsl"
	"github.com/reoring/sheetdb/rules"
	"github.com/reoring/sheetdb/storage"
)

// configTable is the store-wide table holding per-sheet validation config.
const configTable = "_config"

// Store hands out validated sheets over one storage engine. Sheets are
// singletons per name: the first open creates the sheet, its recycled
// companion and the shared _config table; later opens return the same
// instance.
type Store struct {
	engine   storage.Engine
	log      *zap.Logger
	types    *rules.TypeRegistry
	rulesets *rules.SchemaRegistry

	mu      sync.Mutex
	sheets  map[string]*Sheet
	confTab storage.Table
}

// Open wraps a storage engine in a Store. The default logger is a nop; the
// default registries are the process-wide ones, override with WithTypes and
// WithRulesets for isolation.
func Open(engine storage.Engine, opts ...Option) (*Store, error) {
	if engine == nil {
		return nil, errors.New("sheetdb: nil storage engine")
	}
	s := &Store{
		engine:   engine,
		log:      zap.NewNop(),
		types:    rules.DefaultTypes,
		rulesets: rules.DefaultRulesets,
		sheets:   map[string]*Sheet{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sheet opens the named sheet, creating it on first use. Options apply only
// on that first call; reopening an existing sheet returns it unchanged.
// Names starting with "_" are reserved for store internals.
func (s *Store) Sheet(name string, opts ...SheetOption) (*Sheet, error) {
	if name == "" {
		return nil, errors.New("sheetdb: sheet name must not be empty")
	}
	if strings.HasPrefix(name, "_") {
		return nil, fmt.Errorf("sheetdb: sheet name %q is reserved", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sheet, ok := s.sheets[name]; ok {
		return sheet, nil
	}

	settings := defaultSheetSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	header := settings.header
	if header == nil {
		header = dsl.HeaderWith(name+"_header", s.types, s.rulesets)
	}
	if err := header.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}

	st, err := s.engine.Table(name)
	if err != nil {
		return nil, err
	}
	recycled, err := s.engine.Table(name + "_recycled")
	if err != nil {
		return nil, err
	}
	confTab, err := s.ensureConfigLocked()
	if err != nil {
		return nil, err
	}

	schema := header.Schema()
	tbl, err := newTable(name, st, schema, settings.cfg, s.types, s.rulesets, s.log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	s.rulesets.Register(header.Name(), schema)

	sheet := &Sheet{Table: tbl, header: header, recycled: recycled, confTab: confTab}
	s.sheets[name] = sheet
	s.log.Debug("sheet created",
		zap.String("sheet", name), zap.String("header", header.Name()))
	return sheet, nil
}

// Table is Sheet under the storage-layer name, for callers thinking in
// tables.
func (s *Store) Table(name string, opts ...SheetOption) (*Sheet, error) {
	return s.Sheet(name, opts...)
}

func (s *Store) ensureConfigLocked() (storage.Table, error) {
	if s.confTab != nil {
		return s.confTab, nil
	}
	ct, err := s.engine.Table(configTable)
	if err != nil {
		return nil, err
	}
	s.confTab = ct
	return ct, nil
}

// Sheets returns the names of the open sheets in ascending order.
func (s *Store) Sheets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.sheets))
	for name := range s.sheets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Engine returns the underlying storage engine.
func (s *Store) Engine() storage.Engine { return s.engine }

// Close closes the underlying engine. Sheets obtained from the store are
// unusable afterwards.
func (s *Store) Close() error {
	return s.engine.Close()
}

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	json "github.com/goccy/go-json"
)

// jsonFileEngine persists every table into a single JSON file, written
// through on each mutation. Identifiers serialize as string keys because
// JSON object keys are strings.
//
// Layout:
//
//	{
//	  "users":          {"1": {"name": "ada"}, "2": {"name": "lin"}},
//	  "users_recycled": {}
//	}
type jsonFileEngine struct {
	mu     sync.Mutex
	path   string
	tables map[string]map[int64]Document
	nextID map[string]int64
}

// OpenJSONFile opens the engine backed by the JSON file at path, creating
// the file's directory when needed. A missing file is an empty store.
func OpenJSONFile(path string) (Engine, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	e := &jsonFileEngine{
		path:   path,
		tables: map[string]map[int64]Document{},
		nextID: map[string]int64{},
	}
	if err := e.load(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *jsonFileEngine) load() error {
	data, err := os.ReadFile(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var raw map[string]map[string]Document
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("storage: %s is not a document store file: %w", e.path, err)
	}
	for name, docs := range raw {
		table := make(map[int64]Document, len(docs))
		var max int64
		for key, doc := range docs {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return fmt.Errorf("storage: %s table %q has a non-integer id %q", e.path, name, key)
			}
			table[id] = doc
			if id > max {
				max = id
			}
		}
		e.tables[name] = table
		e.nextID[name] = max + 1
	}
	return nil
}

// flushLocked rewrites the whole file. Callers hold e.mu.
func (e *jsonFileEngine) flushLocked() error {
	out := make(map[string]map[string]Document, len(e.tables))
	for name, docs := range e.tables {
		enc := make(map[string]Document, len(docs))
		for id, doc := range docs {
			enc[strconv.FormatInt(id, 10)] = doc
		}
		out[name] = enc
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(e.path, data, 0o644)
}

func (e *jsonFileEngine) Table(name string) (Table, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.tables[name]; !ok {
		e.tables[name] = map[int64]Document{}
		e.nextID[name] = 1
		if err := e.flushLocked(); err != nil {
			return nil, err
		}
	}
	return &jsonTable{eng: e, name: name}, nil
}

func (e *jsonFileEngine) Tables() ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.tables))
	for n := range e.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (e *jsonFileEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushLocked()
}

type jsonTable struct {
	eng  *jsonFileEngine
	name string
}

func (t *jsonTable) Name() string { return t.name }

// docsLocked returns the live table map. Callers hold t.eng.mu.
func (t *jsonTable) docsLocked() map[int64]Document {
	return t.eng.tables[t.name]
}

func sortedTableIDs(docs map[int64]Document) []int64 {
	ids := make([]int64, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (t *jsonTable) Insert(ctx context.Context, doc Document) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t.eng.mu.Lock()
	defer t.eng.mu.Unlock()
	docs := t.docsLocked()
	id := t.eng.nextID[t.name]
	t.eng.nextID[t.name]++
	docs[id] = cloneDoc(doc)
	return id, t.eng.flushLocked()
}

func (t *jsonTable) InsertMultiple(ctx context.Context, batch []Document) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.eng.mu.Lock()
	defer t.eng.mu.Unlock()
	docs := t.docsLocked()
	ids := make([]int64, len(batch))
	for i, doc := range batch {
		ids[i] = t.eng.nextID[t.name]
		t.eng.nextID[t.name]++
		docs[ids[i]] = cloneDoc(doc)
	}
	return ids, t.eng.flushLocked()
}

func (t *jsonTable) Update(ctx context.Context, u Update, cond Condition, ids []int64) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.eng.mu.Lock()
	defer t.eng.mu.Unlock()
	docs := t.docsLocked()
	get := func(id int64) (Document, bool) { d, ok := docs[id]; return d, ok }
	targets, err := targetIDs(sortedTableIDs(docs), get, cond, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range targets {
		u.run(docs[id])
	}
	return targets, t.eng.flushLocked()
}

func (t *jsonTable) UpdateMultiple(ctx context.Context, specs []UpdateSpec) ([]int64, error) {
	var out []int64
	for _, spec := range specs {
		ids, err := t.Update(ctx, spec.Update, spec.Cond, nil)
		if err != nil {
			return out, err
		}
		out = append(out, ids...)
	}
	return out, nil
}

func (t *jsonTable) Get(ctx context.Context, id int64) (Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	t.eng.mu.Lock()
	defer t.eng.mu.Unlock()
	d, ok := t.docsLocked()[id]
	if !ok {
		return nil, false, nil
	}
	return cloneDoc(d), true, nil
}

func (t *jsonTable) All(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.eng.mu.Lock()
	defer t.eng.mu.Unlock()
	docs := t.docsLocked()
	out := make([]Record, 0, len(docs))
	for _, id := range sortedTableIDs(docs) {
		out = append(out, Record{ID: id, Doc: cloneDoc(docs[id])})
	}
	return out, nil
}

func (t *jsonTable) Search(ctx context.Context, cond Condition) ([]Record, error) {
	all, err := t.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(all))
	for _, r := range all {
		if cond == nil || cond.Match(r.Doc) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *jsonTable) Remove(ctx context.Context, cond Condition, ids []int64) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.eng.mu.Lock()
	defer t.eng.mu.Unlock()
	docs := t.docsLocked()
	get := func(id int64) (Document, bool) { d, ok := docs[id]; return d, ok }
	targets, err := targetIDs(sortedTableIDs(docs), get, cond, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range targets {
		delete(docs, id)
	}
	return targets, t.eng.flushLocked()
}

func (t *jsonTable) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t.eng.mu.Lock()
	defer t.eng.mu.Unlock()
	return len(t.docsLocked()), nil
}

func (t *jsonTable) Truncate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.eng.mu.Lock()
	defer t.eng.mu.Unlock()
	t.eng.tables[t.name] = map[int64]Document{}
	t.eng.nextID[t.name] = 1
	return t.eng.flushLocked()
}

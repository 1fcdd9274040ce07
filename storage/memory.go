package storage

import (
	"context"
	"sort"
	"sync"
)

// memEngine keeps every table in process memory. No persistence; it is the
// reference engine and the natural choice for tests.
type memEngine struct {
	mu     sync.Mutex
	tables map[string]*memTable
}

// Memory returns an empty in-memory engine.
func Memory() Engine {
	return &memEngine{tables: map[string]*memTable{}}
}

func (e *memEngine) Table(name string) (Table, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.tables[name]
	if !ok {
		t = &memTable{name: name, docs: map[int64]Document{}, nextID: 1}
		e.tables[name] = t
	}
	return t, nil
}

func (e *memEngine) Tables() ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.tables))
	for n := range e.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (e *memEngine) Close() error { return nil }

type memTable struct {
	mu     sync.RWMutex
	name   string
	docs   map[int64]Document
	nextID int64
}

func (t *memTable) Name() string { return t.name }

func (t *memTable) sortedIDs() []int64 {
	ids := make([]int64, 0, len(t.docs))
	for id := range t.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (t *memTable) Insert(ctx context.Context, doc Document) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.docs[id] = cloneDoc(doc)
	return id, nil
}

func (t *memTable) InsertMultiple(ctx context.Context, docs []Document) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]int64, len(docs))
	for i, doc := range docs {
		ids[i] = t.nextID
		t.nextID++
		t.docs[ids[i]] = cloneDoc(doc)
	}
	return ids, nil
}

func (t *memTable) Update(ctx context.Context, u Update, cond Condition, ids []int64) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	targets, err := targetIDs(t.sortedIDs(), t.get, cond, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range targets {
		u.run(t.docs[id])
	}
	return targets, nil
}

func (t *memTable) UpdateMultiple(ctx context.Context, specs []UpdateSpec) ([]int64, error) {
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

func (t *memTable) get(id int64) (Document, bool) {
	d, ok := t.docs[id]
	return d, ok
}

func (t *memTable) Get(ctx context.Context, id int64) (Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.docs[id]
	if !ok {
		return nil, false, nil
	}
	return cloneDoc(d), true, nil
}

func (t *memTable) All(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Record, 0, len(t.docs))
	for _, id := range t.sortedIDs() {
		out = append(out, Record{ID: id, Doc: cloneDoc(t.docs[id])})
	}
	return out, nil
}

func (t *memTable) Search(ctx context.Context, cond Condition) ([]Record, error) {
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

func (t *memTable) Remove(ctx context.Context, cond Condition, ids []int64) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	targets, err := targetIDs(t.sortedIDs(), t.get, cond, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range targets {
		delete(t.docs, id)
	}
	return targets, nil
}

func (t *memTable) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.docs), nil
}

func (t *memTable) Truncate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.docs = map[int64]Document{}
	t.nextID = 1
	return nil
}

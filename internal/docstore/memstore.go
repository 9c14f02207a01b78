package docstore

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

type memDoc struct {
	data    map[string]any
	version int64
	updated time.Time
}

// MemStore is an in-process Store. Transactions are serialized and their
// writes are buffered until commit.
type MemStore struct {
	mu   sync.RWMutex
	docs map[string]*memDoc
	seq  int64

	txMu sync.Mutex
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{docs: make(map[string]*memDoc)}
}

func (s *MemStore) Get(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, _, err := splitPath(path); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	return d.document(path), nil
}

func (s *MemStore) Set(ctx context.Context, path string, data any, opts ...SetOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := splitPath(path); err != nil {
		return err
	}
	m, err := toMap(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(path, m, merging(opts))
	return nil
}

// put writes m at path. s.mu must be held.
func (s *MemStore) put(path string, m map[string]any, merge bool) {
	s.seq++
	if cur, ok := s.docs[path]; ok && merge {
		next := copyData(cur.data)
		for k, v := range m {
			next[k] = v
		}
		m = next
	}
	s.docs[path] = &memDoc{data: m, version: s.seq, updated: time.Now()}
}

func (s *MemStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := splitPath(path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, path)
	return nil
}

func (s *MemStore) Query(ctx context.Context, q Query) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths, err := s.match(q)
	if err != nil {
		return nil, err
	}
	if q.Limit > 0 && len(paths) > q.Limit {
		paths = paths[:q.Limit]
	}
	out := make([]*Document, 0, len(paths))
	for _, p := range paths {
		out = append(out, s.docs[p].document(p))
	}
	return out, nil
}

func (s *MemStore) Count(ctx context.Context, q Query) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	q.Limit = 0
	paths, err := s.match(q)
	return len(paths), err
}

// match returns the sorted paths selected by q. s.mu must be held.
func (s *MemStore) match(q Query) ([]string, error) {
	want := make([][]byte, len(q.Filters))
	for i, f := range q.Filters {
		b, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		want[i] = b
	}

	var paths []string
	for p, d := range s.docs {
		if q.StartAfter != "" && p <= q.StartAfter {
			continue
		}
		parent, coll, _ := splitPath(p)
		if q.Group && coll != q.Collection || !q.Group && parent != q.Collection {
			continue
		}
		if !fieldsEqual(d.data, q.Filters, want) {
			continue
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

func fieldsEqual(data map[string]any, filters []Filter, want [][]byte) bool {
	for i, f := range filters {
		v, ok := data[f.Field]
		if !ok {
			return false
		}
		got, err := json.Marshal(v)
		if err != nil || !bytes.Equal(got, want[i]) {
			return false
		}
	}
	return true
}

func (s *MemStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memTx{s: s, pending: make(map[string]*memDoc)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.commit()
}

func (s *MemStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (d *memDoc) document(path string) *Document {
	return &Document{Path: path, Data: copyData(d.data), Version: d.version, UpdatedAt: d.updated}
}

type memWrite struct {
	path  string
	data  map[string]any // nil deletes
	merge bool
}

type memCond struct {
	path    string
	version int64
}

type memTx struct {
	s       *MemStore
	pending map[string]*memDoc // nil value marks a pending delete
	writes  []memWrite
	conds   []memCond
}

func (t *memTx) Get(ctx context.Context, path string) (*Document, error) {
	if d, ok := t.pending[path]; ok {
		if d == nil {
			return nil, ErrNotFound
		}
		return d.document(path), nil
	}
	return t.s.Get(ctx, path)
}

func (t *memTx) Set(ctx context.Context, path string, data any, opts ...SetOption) error {
	if _, _, err := splitPath(path); err != nil {
		return err
	}
	m, err := toMap(data)
	if err != nil {
		return err
	}
	merge := merging(opts)
	view := m
	if merge {
		if cur, err := t.Get(ctx, path); err == nil {
			view = copyData(cur.Data)
			for k, v := range m {
				view[k] = v
			}
		}
	}
	t.pending[path] = &memDoc{data: view, updated: time.Now()}
	t.writes = append(t.writes, memWrite{path: path, data: m, merge: merge})
	return nil
}

func (t *memTx) DeleteIfVersion(ctx context.Context, path string, version int64) error {
	cur, err := t.Get(ctx, path)
	if err != nil {
		if err == ErrNotFound {
			return ErrConflict
		}
		return err
	}
	if cur.Version != version {
		return ErrConflict
	}
	t.pending[path] = nil
	t.writes = append(t.writes, memWrite{path: path})
	t.conds = append(t.conds, memCond{path: path, version: version})
	return nil
}

func (t *memTx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range t.conds {
		d, ok := s.docs[c.path]
		if !ok || d.version != c.version {
			return ErrConflict
		}
	}
	for _, w := range t.writes {
		if w.data == nil {
			delete(s.docs, w.path)
			continue
		}
		s.put(w.path, w.data, w.merge)
	}
	return nil
}

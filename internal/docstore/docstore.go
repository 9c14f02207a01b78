// Package docstore is a small hierarchical document store abstraction.
//
// Documents live at slash-separated paths that alternate collection and
// document ids, e.g. "donor_master/d1/donations/c1". Every document carries a
// version that increases on each write so callers can make conditional
// deletes. Two backends are provided: PgStore (PostgreSQL, JSONB) and
// MemStore (in-process).
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrConflict is returned when a conditional write loses against a concurrent change.
	ErrConflict = errors.New("docstore: version conflict")
	// ErrInvalidPath is returned for paths that do not address a document.
	ErrInvalidPath = errors.New("docstore: invalid document path")
	// ErrInvalidData is returned when document data cannot be encoded, such as
	// a NaN or infinite number.
	ErrInvalidData = errors.New("docstore: invalid document data")
	// ErrUnavailable is returned when the store is temporarily refusing calls.
	ErrUnavailable = errors.New("docstore: store unavailable")
)

// Store is the contract the rest of the application needs from a document store.
type Store interface {
	Get(ctx context.Context, path string) (*Document, error)
	// Set writes data at path. With MergeAll, top-level fields are merged into
	// an existing document; otherwise the document is replaced.
	Set(ctx context.Context, path string, data any, opts ...SetOption) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, path string) error
	// Query returns matching documents ordered by path.
	Query(ctx context.Context, q Query) ([]*Document, error)
	Count(ctx context.Context, q Query) (int, error)
	// RunTransaction runs fn atomically. Writes made through tx are applied
	// only if fn returns nil and every conditional delete still holds.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
}

// Tx is the view of the store inside RunTransaction.
type Tx interface {
	Get(ctx context.Context, path string) (*Document, error)
	Set(ctx context.Context, path string, data any, opts ...SetOption) error
	// DeleteIfVersion deletes path only if its version still equals version.
	DeleteIfVersion(ctx context.Context, path string, version int64) error
}

// SetOption changes the behaviour of Set.
type SetOption int

// MergeAll merges top-level fields into the existing document.
const MergeAll SetOption = 1

func merging(opts []SetOption) bool {
	for _, o := range opts {
		if o == MergeAll {
			return true
		}
	}
	return false
}

// Document is a stored document.
type Document struct {
	Path      string
	Data      map[string]any
	Version   int64
	UpdatedAt time.Time
}

// ID returns the last path segment.
func (d *Document) ID() string {
	return lastSegment(d.Path)
}

// DataTo decodes the document fields into v.
func (d *Document) DataTo(v any) error {
	b, err := json.Marshal(d.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// NewID returns a new random document id.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// Filter is an equality constraint on a top-level field.
type Filter struct {
	Field string
	Value any
}

// Query selects documents from one collection, or from every collection with
// the same id when Group is set.
type Query struct {
	Collection string
	Group      bool
	Filters    []Filter
	Limit      int
	StartAfter string
}

// Collection queries the documents directly under a collection path.
func Collection(path string) Query {
	return Query{Collection: path}
}

// CollectionGroup queries every collection named id, whatever its parent.
func CollectionGroup(id string) Query {
	return Query{Collection: id, Group: true}
}

// Where adds an equality filter.
func (q Query) Where(field string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Value: value})
	return q
}

// WithLimit caps the number of returned documents. Zero means no limit.
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// After starts the query after the document at path.
func (q Query) After(path string) Query {
	q.StartAfter = path
	return q
}

// splitPath validates a document path and returns its parent collection path
// and the collection id.
func splitPath(path string) (parent, collection string, err error) {
	segs := strings.Split(path, "/")
	if len(segs) < 2 || len(segs)%2 != 0 {
		return "", "", ErrInvalidPath
	}
	for _, s := range segs {
		if s == "" {
			return "", "", ErrInvalidPath
		}
	}
	return strings.Join(segs[:len(segs)-1], "/"), segs[len(segs)-2], nil
}

func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// toMap converts a struct or map into a plain field map.
func toMap(data any) (map[string]any, error) {
	if m, ok := data.(map[string]any); ok {
		return normalize(m)
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// normalize round-trips m through JSON so stored values have the same shapes
// regardless of what the caller passed in.
func normalize(m map[string]any) (map[string]any, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func copyData(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

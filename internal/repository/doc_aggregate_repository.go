package repository

import (
	"context"
	"fmt"

	"github.com/givers/learnerfund/internal/docstore"
)

type docAggregateRepository struct {
	store docstore.Store
}

// NewDocAggregateRepository returns an AggregateRepository over the document store.
func NewDocAggregateRepository(store docstore.Store) AggregateRepository {
	return &docAggregateRepository{store: store}
}

// Value returns the numeric field key of the aggregates document. A missing
// document or field is ErrNotFound.
func (r *docAggregateRepository) Value(ctx context.Context, key string) (int64, error) {
	doc, err := r.store.Get(ctx, docstore.Join(aggregatesCollection, aggregatesDocument))
	if err != nil {
		return 0, err
	}
	v, ok := doc.Data[key]
	if !ok || v == nil {
		return 0, ErrNotFound
	}
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	}
	return 0, fmt.Errorf("aggregate %q: unexpected type %T", key, v)
}

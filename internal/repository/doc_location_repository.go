package repository

import (
	"context"
	"log/slog"

	"github.com/givers/learnerfund/internal/docstore"
	"github.com/givers/learnerfund/internal/model"
)

type docLocationRepository struct {
	store    docstore.Store
	pageSize int
}

// NewDocLocationRepository returns a LocationRepository over the document store.
func NewDocLocationRepository(store docstore.Store, pageSize int) LocationRepository {
	return &docLocationRepository{store: store, pageSize: pageSize}
}

func (r *docLocationRepository) Get(ctx context.Context, country string) (*model.LocationRef, error) {
	doc, err := r.store.Get(ctx, docstore.Join(locationsCollection, country))
	if err != nil {
		return nil, notFound(err)
	}
	return decodeLocation(doc)
}

func decodeLocation(doc *docstore.Document) (*model.LocationRef, error) {
	ref := &model.LocationRef{}
	if err := doc.DataTo(ref); err != nil {
		return nil, err
	}
	if ref.Country == "" {
		ref.Country = doc.ID()
	}
	return ref, nil
}

func (r *docLocationRepository) All(ctx context.Context) (map[string]*model.LocationRef, error) {
	out := map[string]*model.LocationRef{}
	err := scan(ctx, r.store, docstore.Collection(locationsCollection), r.pageSize, func(d *docstore.Document) error {
		ref, err := decodeLocation(d)
		if err != nil {
			slog.Warn("skipping undecodable location", "path", d.Path, "error", err)
			return nil
		}
		out[ref.Country] = ref
		return nil
	})
	return out, err
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/givers/learnerfund/internal/docstore"
	"github.com/givers/learnerfund/internal/model"
)

type docPoolRepository struct {
	store    docstore.Store
	pageSize int
}

// NewDocPoolRepository returns a LearnerPoolRepository over the document store.
func NewDocPoolRepository(store docstore.Store, pageSize int) LearnerPoolRepository {
	return &docPoolRepository{store: store, pageSize: pageSize}
}

func (r *docPoolRepository) ListByCountry(ctx context.Context, country string, limit int) ([]*model.Learner, error) {
	if limit <= 0 {
		return nil, nil
	}
	docs, err := r.store.Query(ctx,
		docstore.Collection(poolCollection).Where("country", country).WithLimit(limit))
	if err != nil {
		return nil, err
	}
	list := make([]*model.Learner, 0, len(docs))
	for _, d := range docs {
		l, err := decodeLearner(d)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", d.Path, err)
		}
		list = append(list, l)
	}
	return list, nil
}

// assigned returns the pool document's fields stamped with the owning donation.
func assigned(doc *docstore.Document, donorID, campaignID string) map[string]any {
	data := make(map[string]any, len(doc.Data)+2)
	for k, v := range doc.Data {
		data[k] = v
	}
	data["sourceDonor"] = donorID
	data["sourceCampaign"] = campaignID
	return data
}

func (r *docPoolRepository) Transfer(ctx context.Context, learnerID, donorID, campaignID string) error {
	src := poolPath(learnerID)
	doc, err := r.store.Get(ctx, src)
	if err != nil {
		return notFound(err)
	}
	dst := docstore.Join(assignedPath(donorID, campaignID), learnerID)
	if err := r.store.Set(ctx, dst, assigned(doc, donorID, campaignID)); err != nil {
		return fmt.Errorf("copy learner: %w", err)
	}
	if err := r.store.Delete(ctx, src); err != nil {
		return fmt.Errorf("remove pool learner: %w", err)
	}
	return nil
}

func (r *docPoolRepository) Claim(ctx context.Context, learnerID, donorID, campaignID string) error {
	src := poolPath(learnerID)
	dst := docstore.Join(assignedPath(donorID, campaignID), learnerID)
	return r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		doc, err := tx.Get(ctx, src)
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrAlreadyClaimed
		}
		if err != nil {
			return err
		}
		if err := tx.Set(ctx, dst, assigned(doc, donorID, campaignID)); err != nil {
			return err
		}
		return tx.DeleteIfVersion(ctx, src, doc.Version)
	})
}

func (r *docPoolRepository) RemoveIfUnchanged(ctx context.Context, learnerID string, version int64) error {
	return r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.DeleteIfVersion(ctx, poolPath(learnerID), version)
	})
}

func (r *docPoolRepository) Versions(ctx context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	err := scan(ctx, r.store, docstore.Collection(poolCollection), r.pageSize, func(d *docstore.Document) error {
		out[d.ID()] = d.Version
		return nil
	})
	return out, err
}

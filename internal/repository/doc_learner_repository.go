package repository

import (
	"context"

	"github.com/givers/learnerfund/internal/docstore"
	"github.com/givers/learnerfund/internal/model"
)

type docLearnerRepository struct {
	store    docstore.Store
	pageSize int
}

// NewDocLearnerRepository returns a LearnerRepository over the document store.
func NewDocLearnerRepository(store docstore.Store, pageSize int) LearnerRepository {
	return &docLearnerRepository{store: store, pageSize: pageSize}
}

func (r *docLearnerRepository) ListByDonor(ctx context.Context, donorID string) ([]*model.Learner, error) {
	q := docstore.CollectionGroup(assignedCollection).Where("sourceDonor", donorID)
	return scanLearners(ctx, r.store, q, r.pageSize, nil)
}

func (r *docLearnerRepository) ListAll(ctx context.Context) ([]*model.Learner, error) {
	var (
		out []*model.Learner
		err error
	)
	for _, q := range []docstore.Query{
		docstore.CollectionGroup(assignedCollection),
		docstore.Collection(poolCollection),
		docstore.Collection(unassignedCollection),
	} {
		out, err = scanLearners(ctx, r.store, q, r.pageSize, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *docLearnerRepository) AssignedIDs(ctx context.Context) (map[string]struct{}, error) {
	ids := map[string]struct{}{}
	err := scan(ctx, r.store, docstore.CollectionGroup(assignedCollection), r.pageSize, func(d *docstore.Document) error {
		ids[d.ID()] = struct{}{}
		return nil
	})
	return ids, err
}

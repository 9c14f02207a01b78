package repository

import (
	"context"
	"log/slog"

	"github.com/givers/learnerfund/internal/docstore"
	"github.com/givers/learnerfund/internal/model"
)

type docDonorRepository struct {
	store docstore.Store
}

// NewDocDonorRepository returns a DonorRepository over the document store.
func NewDocDonorRepository(store docstore.Store) DonorRepository {
	return &docDonorRepository{store: store}
}

func (r *docDonorRepository) FindByEmail(ctx context.Context, email string) (*model.Donor, error) {
	docs, err := r.store.Query(ctx,
		docstore.Collection(donorsCollection).Where("email", email).WithLimit(1))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	d := &model.Donor{}
	if err := docs[0].DataTo(d); err != nil {
		return nil, err
	}
	// The key is the identity; the stored field is informational.
	if id := docs[0].ID(); d.DonorID != id {
		if d.DonorID != "" {
			slog.Warn("donor id field does not match key", "key", id, "field", d.DonorID)
		}
		d.DonorID = id
	}
	return d, nil
}

func (r *docDonorRepository) Create(ctx context.Context, donor *model.Donor) error {
	if donor.DonorID == "" {
		donor.DonorID = docstore.NewID()
	}
	return r.store.Set(ctx, donorPath(donor.DonorID), donor, docstore.MergeAll)
}

package repository

import (
	"context"

	"github.com/givers/learnerfund/internal/docstore"
	"github.com/givers/learnerfund/internal/model"
)

type docDonationRepository struct {
	store    docstore.Store
	pageSize int
}

// NewDocDonationRepository returns a DonationRepository over the document store.
func NewDocDonationRepository(store docstore.Store, pageSize int) DonationRepository {
	return &docDonationRepository{store: store, pageSize: pageSize}
}

func (r *docDonationRepository) Upsert(ctx context.Context, d *model.Donation) error {
	err := r.store.Set(ctx, donationPath(d.SourceDonor, d.CampaignID), d, docstore.MergeAll)
	if err != nil {
		return err
	}
	d.ID = d.CampaignID
	return nil
}

func (r *docDonationRepository) Get(ctx context.Context, donorID, campaignID string) (*model.Donation, error) {
	doc, err := r.store.Get(ctx, donationPath(donorID, campaignID))
	if err != nil {
		return nil, notFound(err)
	}
	return decodeDonation(doc)
}

func decodeDonation(doc *docstore.Document) (*model.Donation, error) {
	d := &model.Donation{}
	if err := doc.DataTo(d); err != nil {
		return nil, err
	}
	d.ID = doc.ID()
	return d, nil
}

func (r *docDonationRepository) ListByDonor(ctx context.Context, donorID string) ([]*model.Donation, error) {
	var list []*model.Donation
	err := scan(ctx, r.store, docstore.Collection(donationsPath(donorID)), r.pageSize, func(doc *docstore.Document) error {
		d, err := decodeDonation(doc)
		if err != nil {
			return err
		}
		list = append(list, d)
		return nil
	})
	return list, err
}

func (r *docDonationRepository) CountLearners(ctx context.Context, donorID, campaignID string) (int, error) {
	return r.store.Count(ctx, docstore.Collection(assignedPath(donorID, campaignID)))
}

func (r *docDonationRepository) ListLearners(ctx context.Context, donorID, campaignID string) ([]*model.Learner, error) {
	return scanLearners(ctx, r.store, docstore.Collection(assignedPath(donorID, campaignID)), r.pageSize, nil)
}

func (r *docDonationRepository) CountDonorsByRegion(ctx context.Context, region string) (int, error) {
	donors := map[string]struct{}{}
	q := docstore.CollectionGroup(donationsCollection).Where("region", region)
	err := scan(ctx, r.store, q, r.pageSize, func(doc *docstore.Document) error {
		if id, _ := doc.Data["sourceDonor"].(string); id != "" {
			donors[id] = struct{}{}
		}
		return nil
	})
	return len(donors), err
}

package repository

import (
	"context"

	"github.com/givers/learnerfund/internal/docstore"
	"github.com/givers/learnerfund/internal/model"
)

type docCampaignRepository struct {
	store    docstore.Store
	pageSize int
}

// NewDocCampaignRepository returns a CampaignRepository over the document store.
func NewDocCampaignRepository(store docstore.Store, pageSize int) CampaignRepository {
	return &docCampaignRepository{store: store, pageSize: pageSize}
}

func (r *docCampaignRepository) FindByCampaignID(ctx context.Context, campaignID string) (*model.Campaign, error) {
	docs, err := r.store.Query(ctx,
		docstore.Collection(campaignsCollection).Where("campaignID", campaignID).WithLimit(1))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	c := &model.Campaign{}
	if err := docs[0].DataTo(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *docCampaignRepository) ListActive(ctx context.Context) ([]*model.Campaign, error) {
	var list []*model.Campaign
	q := docstore.Collection(campaignsCollection).Where("isActive", true)
	err := scan(ctx, r.store, q, r.pageSize, func(d *docstore.Document) error {
		c := &model.Campaign{}
		if err := d.DataTo(c); err != nil {
			return err
		}
		list = append(list, c)
		return nil
	})
	return list, err
}

package service

import (
	"context"

	"github.com/givers/learnerfund/internal/model"
	"github.com/givers/learnerfund/internal/repository"
)

// CampaignService reads campaigns.
type CampaignService interface {
	// Find returns the campaign with this id whether or not it is active.
	Find(ctx context.Context, campaignID string) (*model.Campaign, error)
	ListActive(ctx context.Context) ([]model.ActiveCampaign, error)
	// DonorCount returns the number of distinct donors who gave to region.
	DonorCount(ctx context.Context, region string) (int, error)
}

type campaignService struct {
	campaigns       repository.CampaignRepository
	donations       repository.DonationRepository
	suggestedAmount string
}

// NewCampaignService creates a CampaignService. suggestedAmount is shown as
// the amount of every listed campaign.
func NewCampaignService(campaigns repository.CampaignRepository, donations repository.DonationRepository, suggestedAmount string) CampaignService {
	return &campaignService{campaigns: campaigns, donations: donations, suggestedAmount: suggestedAmount}
}

func (s *campaignService) Find(ctx context.Context, campaignID string) (*model.Campaign, error) {
	c, err := s.campaigns.FindByCampaignID(ctx, campaignID)
	if err != nil {
		return nil, upstream("find campaign", err)
	}
	return c, nil
}

func (s *campaignService) ListActive(ctx context.Context) ([]model.ActiveCampaign, error) {
	list, err := s.campaigns.ListActive(ctx)
	if err != nil {
		return nil, upstream("list campaigns", err)
	}
	out := make([]model.ActiveCampaign, 0, len(list))
	for _, c := range list {
		out = append(out, model.ActiveCampaign{
			CampaignID: c.CampaignID,
			Country:    c.Country,
			ImgRef:     c.ImgRef,
			Body:       c.Summary,
			Amount:     s.suggestedAmount,
		})
	}
	return out, nil
}

func (s *campaignService) DonorCount(ctx context.Context, region string) (int, error) {
	n, err := s.donations.CountDonorsByRegion(ctx, region)
	if err != nil {
		return 0, upstream("count donors", err)
	}
	return n, nil
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/url"
	"time"

	"github.com/givers/learnerfund/internal/metrics"
	"github.com/givers/learnerfund/internal/model"
	"github.com/givers/learnerfund/internal/repository"
)

// DonationRequest is one submitted donation.
type DonationRequest struct {
	Email      string
	FirstName  string
	LastName   string
	CampaignID string
	Amount     float64
}

// Receipt is the outcome of a donation.
type Receipt struct {
	DonorID     string   `json:"donorID"`
	CampaignID  string   `json:"campaignID"`
	Entitlement int      `json:"entitlement"`
	Available   int      `json:"available"`
	Transferred []string `json:"transferred"`
	Failed      int      `json:"failed"`
	// Shortfall is Entitlement minus the learners actually transferred.
	Shortfall   int    `json:"shortfall"`
	ReferralURL string `json:"referralURL,omitempty"`
}

// CacheInvalidator drops cached responses that depend on donation state.
type CacheInvalidator interface {
	InvalidateDonor(ctx context.Context, email string)
	InvalidateRegion(ctx context.Context, region string)
}

// Referral builds the app store link handed to donors after a donation.
type Referral struct {
	PlayAppID string
	Source    string
}

// URL returns the referral link, or "" when no app id is configured.
func (r Referral) URL(campaignID, donorID string) string {
	if r.PlayAppID == "" {
		return ""
	}
	// The referrer value is itself an encoded query string.
	referrer := "utm_source=" + r.Source + "&utm_campaign=" + campaignID + "_" + donorID
	return "https://play.google.com/store/apps/details?id=" + url.QueryEscape(r.PlayAppID) +
		"&referrer=" + url.QueryEscape(referrer)
}

// AssignmentOptions tune AssignmentService.
type AssignmentOptions struct {
	// AtomicTransfer claims each learner in one store transaction. When false
	// learners are copied and then deleted.
	AtomicTransfer bool
	Referral       Referral
}

// AssignmentService records donations and assigns pool learners to them.
type AssignmentService interface {
	Submit(ctx context.Context, req DonationRequest) (*Receipt, error)
}

type assignmentService struct {
	campaigns repository.CampaignRepository
	donations repository.DonationRepository
	pool      repository.LearnerPoolRepository
	donors    DonorService
	cache     CacheInvalidator
	opts      AssignmentOptions
	now       func() time.Time
}

// NewAssignmentService creates an AssignmentService. cache can be nil.
func NewAssignmentService(
	campaigns repository.CampaignRepository,
	donations repository.DonationRepository,
	pool repository.LearnerPoolRepository,
	donors DonorService,
	cache CacheInvalidator,
	opts AssignmentOptions,
) AssignmentService {
	return &assignmentService{
		campaigns: campaigns,
		donations: donations,
		pool:      pool,
		donors:    donors,
		cache:     cache,
		opts:      opts,
		now:       time.Now,
	}
}

func (s *assignmentService) Submit(ctx context.Context, req DonationRequest) (*Receipt, error) {
	// 1. validate
	if !validAmount(req.Amount) {
		return nil, ErrInvalidAmount
	}
	campaign, err := s.campaigns.FindByCampaignID(ctx, req.CampaignID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInactiveCampaign
	}
	if err != nil {
		return nil, upstream("find campaign", err)
	}
	if !campaign.IsActive {
		return nil, ErrInactiveCampaign
	}

	// 2. resolve donor
	donorID, created, err := s.donors.ResolveOrCreate(ctx, req.Email, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}
	log := slog.With("donor_id", donorID, "campaign_id", campaign.CampaignID, "country", campaign.Country)
	if created {
		log.Info("donor created")
	}

	// 3. persist donation
	donation := &model.Donation{
		CampaignID:  campaign.CampaignID,
		SourceDonor: donorID,
		Amount:      req.Amount,
		Region:      campaign.Country,
		StartDate:   s.now().UTC(),
	}
	if err := s.donations.Upsert(ctx, donation); err != nil {
		return nil, upstream("save donation", err)
	}
	s.invalidate(ctx, req.Email, campaign.Country)

	// 4. entitlement
	entitlement := campaign.Entitlement(req.Amount)
	if campaign.CostPerLearner <= 0 {
		log.Warn("campaign has no positive cost per learner", "cost_per_learner", campaign.CostPerLearner)
	}
	receipt := &Receipt{
		DonorID:     donorID,
		CampaignID:  campaign.CampaignID,
		Entitlement: entitlement,
		Transferred: []string{},
		ReferralURL: s.opts.Referral.URL(campaign.CampaignID, donorID),
	}

	// 5. eligible pool
	if entitlement > 0 {
		learners, err := s.pool.ListByCountry(ctx, campaign.Country, entitlement)
		if err != nil {
			return nil, upstream("query pool", err)
		}
		receipt.Available = min(entitlement, len(learners))

		// 6. transfer loop
		s.transfer(ctx, log, learners[:receipt.Available], donorID, campaign.CampaignID, receipt)
	}

	// 7. terminal
	receipt.Shortfall = receipt.Entitlement - len(receipt.Transferred)
	metrics.LearnersTransferred.WithLabelValues(campaign.Country).Add(float64(len(receipt.Transferred)))
	if receipt.Shortfall > 0 {
		metrics.LearnerShortfall.WithLabelValues(campaign.Country).Add(float64(receipt.Shortfall))
		log.Info("donation entitlement not fully met",
			"entitlement", receipt.Entitlement, "transferred", len(receipt.Transferred), "shortfall", receipt.Shortfall)
	}
	s.invalidate(ctx, req.Email, campaign.Country)
	return receipt, nil
}

// MaxAmount is the largest donation amount accepted.
const MaxAmount = 1e9

func validAmount(a float64) bool {
	return !math.IsNaN(a) && !math.IsInf(a, 0) && a > 0 && a <= MaxAmount
}

func (s *assignmentService) transfer(ctx context.Context, log *slog.Logger, learners []*model.Learner, donorID, campaignID string, receipt *Receipt) {
	for i, l := range learners {
		if ctx.Err() != nil {
			remaining := len(learners) - i
			receipt.Failed += remaining
			metrics.TransferFailures.WithLabelValues("error").Add(float64(remaining))
			log.Warn("transfer loop canceled", "remaining", remaining, "error", ctx.Err())
			return
		}
		var err error
		if s.opts.AtomicTransfer {
			err = s.pool.Claim(ctx, l.ID, donorID, campaignID)
		} else {
			err = s.pool.Transfer(ctx, l.ID, donorID, campaignID)
		}
		switch {
		case err == nil:
			receipt.Transferred = append(receipt.Transferred, l.ID)
		case errors.Is(err, repository.ErrAlreadyClaimed), errors.Is(err, repository.ErrNotFound):
			receipt.Failed++
			metrics.TransferFailures.WithLabelValues("conflict").Inc()
			log.Warn("learner left the pool before transfer", "learner_id", l.ID)
		default:
			receipt.Failed++
			metrics.TransferFailures.WithLabelValues("error").Inc()
			log.Error("learner transfer failed", "learner_id", l.ID, "error", err)
		}
	}
}

func (s *assignmentService) invalidate(ctx context.Context, email, region string) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateDonor(ctx, email)
	s.cache.InvalidateRegion(ctx, region)
}

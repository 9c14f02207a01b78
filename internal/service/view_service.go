package service

import (
	"context"
	"errors"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/givers/learnerfund/internal/model"
	"github.com/givers/learnerfund/internal/repository"
)

// StartDateLayout is how donation start dates are shown to donors.
const StartDateLayout = "01 / 02 / 2006 15:04"

// AllLearnersCountKey is the aggregate holding the total learner count.
const AllLearnersCountKey = "allLearnersCount"

// summaryConcurrency bounds the per-donation learner counts run at once.
const summaryConcurrency = 8

// RegionView is the learners of one donor, optionally one donation, with
// their map data.
type RegionView struct {
	Learners []model.RegionLearner `json:"learners"`
	LocData  model.LocData         `json:"locData"`
	Skipped  model.SkipReport      `json:"skipped"`
}

// GeoView is map data for every learner.
type GeoView struct {
	LocData model.LocData    `json:"locData"`
	Skipped model.SkipReport `json:"skipped"`
}

// EmptyRegionView returns a view with no learners.
func EmptyRegionView() *RegionView {
	return &RegionView{Learners: []model.RegionLearner{}, LocData: model.NewLocData()}
}

// ViewService builds read models for donors and maps.
type ViewService interface {
	// Summary lists the donor's donations with their learner counts.
	Summary(ctx context.Context, email string) ([]model.DonationSummary, error)
	// LearnersForRegion returns the donor's learners for campaignID, or for
	// every donation when campaignID is empty.
	LearnersForRegion(ctx context.Context, email, campaignID string) (*RegionView, error)
	AllLearnersGeoData(ctx context.Context) (*GeoView, error)
	AllLearnersCount(ctx context.Context) (int64, error)
}

type viewService struct {
	donors     DonorService
	donations  repository.DonationRepository
	learners   repository.LearnerRepository
	locations  repository.LocationRepository
	aggregates repository.AggregateRepository
}

// NewViewService creates a ViewService.
func NewViewService(
	donors DonorService,
	donations repository.DonationRepository,
	learners repository.LearnerRepository,
	locations repository.LocationRepository,
	aggregates repository.AggregateRepository,
) ViewService {
	return &viewService{
		donors:     donors,
		donations:  donations,
		learners:   learners,
		locations:  locations,
		aggregates: aggregates,
	}
}

func (s *viewService) Summary(ctx context.Context, email string) ([]model.DonationSummary, error) {
	donorID, err := s.donors.Resolve(ctx, email)
	if err != nil {
		return nil, err
	}
	list, err := s.donations.ListByDonor(ctx, donorID)
	if err != nil {
		return nil, upstream("list donations", err)
	}

	out := make([]model.DonationSummary, len(list))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(summaryConcurrency)
	for i, d := range list {
		out[i] = model.DonationSummary{
			Name:        d.ID,
			CampaignID:  d.CampaignID,
			SourceDonor: d.SourceDonor,
			Amount:      d.Amount,
			Region:      d.Region,
		}
		if !d.StartDate.IsZero() {
			out[i].StartDate = d.StartDate.Format(StartDateLayout)
		}
		g.Go(func() error {
			n, err := s.donations.CountLearners(gctx, donorID, d.ID)
			if err != nil {
				return upstream("count learners", err)
			}
			out[i].UserCount = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *viewService) LearnersForRegion(ctx context.Context, email, campaignID string) (*RegionView, error) {
	donorID, err := s.donors.Resolve(ctx, email)
	if err != nil {
		return nil, err
	}
	if campaignID == "" {
		return s.allForDonor(ctx, donorID)
	}

	donation, err := s.donations.Get(ctx, donorID, campaignID)
	if errors.Is(err, repository.ErrNotFound) {
		return EmptyRegionView(), nil
	}
	if err != nil {
		return nil, upstream("get donation", err)
	}
	learners, err := s.donations.ListLearners(ctx, donorID, donation.ID)
	if err != nil {
		return nil, upstream("list learners", err)
	}
	ref, err := s.locations.Get(ctx, donation.Region)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, upstream("get location", err)
	}

	join := &geoJoin{lookup: fixed(ref)}
	view := &RegionView{
		Learners: regionLearners(learners),
		LocData:  join.build(slices.Values(learners)),
	}
	if ref != nil {
		if _, ok := view.LocData.Facts[ref.Country]; !ok {
			view.LocData.Facts[ref.Country] = factsOf(ref)
		}
	}
	view.Skipped = join.Skipped
	return view, nil
}

func (s *viewService) allForDonor(ctx context.Context, donorID string) (*RegionView, error) {
	learners, err := s.learners.ListByDonor(ctx, donorID)
	if err != nil {
		return nil, upstream("list donor learners", err)
	}
	refs, err := s.locations.All(ctx)
	if err != nil {
		return nil, upstream("list locations", err)
	}
	join := &geoJoin{lookup: byCountry(refs)}
	view := &RegionView{
		Learners: regionLearners(learners),
		LocData:  join.build(join.withCountry(slices.Values(learners))),
	}
	view.Skipped = join.Skipped
	return view, nil
}

func regionLearners(list []*model.Learner) []model.RegionLearner {
	out := make([]model.RegionLearner, 0, len(list))
	for _, l := range list {
		out = append(out, model.RegionLearner{
			Region:         l.Region,
			SourceCampaign: l.SourceCampaign,
			LearnerLevel:   l.LearnerLevel,
		})
	}
	return out
}

func (s *viewService) AllLearnersGeoData(ctx context.Context) (*GeoView, error) {
	var (
		learners []*model.Learner
		refs     map[string]*model.LocationRef
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		learners, err = s.learners.ListAll(gctx)
		return upstream("list learners", err)
	})
	g.Go(func() error {
		var err error
		refs, err = s.locations.All(gctx)
		return upstream("list locations", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	join := &geoJoin{lookup: byCountry(refs)}
	view := &GeoView{LocData: join.build(join.withCountry(slices.Values(learners)))}
	view.Skipped = join.Skipped
	return view, nil
}

func (s *viewService) AllLearnersCount(ctx context.Context) (int64, error) {
	n, err := s.aggregates.Value(ctx, AllLearnersCountKey)
	if err != nil {
		return 0, upstream("read aggregate", err)
	}
	return n, nil
}

package repository

import (
	"context"

	"github.com/givers/learnerfund/internal/model"
)

// DB checks that the backing store is reachable.
type DB interface {
	Ping(ctx context.Context) error
}

// DonorRepository persists donors.
type DonorRepository interface {
	// FindByEmail returns the donor with exactly this email.
	FindByEmail(ctx context.Context, email string) (*model.Donor, error)
	// Create stores a new donor, allocating DonorID when it is empty.
	Create(ctx context.Context, donor *model.Donor) error
}

// CampaignRepository reads campaigns.
type CampaignRepository interface {
	FindByCampaignID(ctx context.Context, campaignID string) (*model.Campaign, error)
	ListActive(ctx context.Context) ([]*model.Campaign, error)
}

// DonationRepository persists donations and the learners assigned to them.
type DonationRepository interface {
	// Upsert merges d into the donation keyed by (d.SourceDonor, d.CampaignID).
	Upsert(ctx context.Context, d *model.Donation) error
	Get(ctx context.Context, donorID, campaignID string) (*model.Donation, error)
	ListByDonor(ctx context.Context, donorID string) ([]*model.Donation, error)
	CountLearners(ctx context.Context, donorID, campaignID string) (int, error)
	ListLearners(ctx context.Context, donorID, campaignID string) ([]*model.Learner, error)
	// CountDonorsByRegion counts distinct donors across every donation to region.
	CountDonorsByRegion(ctx context.Context, region string) (int, error)
}

// LearnerPoolRepository manages unassigned learners.
type LearnerPoolRepository interface {
	// ListByCountry returns up to limit pool learners for country.
	ListByCountry(ctx context.Context, country string, limit int) ([]*model.Learner, error)
	// Transfer copies a pool learner under a donation, then deletes it from the
	// pool. The copy is written before the delete is issued.
	Transfer(ctx context.Context, learnerID, donorID, campaignID string) error
	// Claim moves a pool learner under a donation in one transaction. It
	// returns ErrAlreadyClaimed if the learner left the pool meanwhile.
	Claim(ctx context.Context, learnerID, donorID, campaignID string) error
	// RemoveIfUnchanged deletes a pool learner unless it changed since it was read.
	RemoveIfUnchanged(ctx context.Context, learnerID string, version int64) error
	// Versions returns the id → version of every pool learner.
	Versions(ctx context.Context) (map[string]int64, error)
}

// LearnerRepository reads learners wherever they are stored.
type LearnerRepository interface {
	// ListByDonor returns every learner assigned to any donation of donorID.
	ListByDonor(ctx context.Context, donorID string) ([]*model.Learner, error)
	// ListAll returns assigned, pooled and unassigned learners.
	ListAll(ctx context.Context) ([]*model.Learner, error)
	// AssignedIDs returns the ids of every assigned learner.
	AssignedIDs(ctx context.Context) (map[string]struct{}, error)
}

// LocationRepository reads location reference data.
type LocationRepository interface {
	Get(ctx context.Context, country string) (*model.LocationRef, error)
	// All returns every reference keyed by country.
	All(ctx context.Context) (map[string]*model.LocationRef, error)
}

// AggregateRepository reads precomputed counters.
type AggregateRepository interface {
	Value(ctx context.Context, key string) (int64, error)
}

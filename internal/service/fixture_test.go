package service

import (
	"context"
	"sync"
	"testing"

	"github.com/givers/learnerfund/internal/docstore"
	"github.com/givers/learnerfund/internal/repository"
)

// ---------------------------------------------------------------------------
// In-memory fixture wiring real repositories over docstore.MemStore
// ---------------------------------------------------------------------------

type fixture struct {
	store      *docstore.MemStore
	campaigns  repository.CampaignRepository
	donations  repository.DonationRepository
	pool       repository.LearnerPoolRepository
	learners   repository.LearnerRepository
	locations  repository.LocationRepository
	aggregates repository.AggregateRepository
	donors     DonorService
	cache      *recordingInvalidator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := docstore.NewMemStore()
	f := &fixture{
		store:      s,
		campaigns:  repository.NewDocCampaignRepository(s, 2),
		donations:  repository.NewDocDonationRepository(s, 2),
		pool:       repository.NewDocPoolRepository(s, 2),
		learners:   repository.NewDocLearnerRepository(s, 2),
		locations:  repository.NewDocLocationRepository(s, 2),
		aggregates: repository.NewDocAggregateRepository(s),
		cache:      &recordingInvalidator{},
	}
	f.donors = NewDonorService(repository.NewDocDonorRepository(s))
	return f
}

func (f *fixture) put(t *testing.T, path string, data map[string]any) {
	t.Helper()
	if err := f.store.Set(context.Background(), path, data); err != nil {
		t.Fatalf("seed %s: %v", path, err)
	}
}

func (f *fixture) exists(t *testing.T, path string) bool {
	t.Helper()
	_, err := f.store.Get(context.Background(), path)
	return err == nil
}

func (f *fixture) count(t *testing.T, q docstore.Query) int {
	t.Helper()
	n, err := f.store.Count(context.Background(), q)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func (f *fixture) assignment(atomic bool) AssignmentService {
	return NewAssignmentService(f.campaigns, f.donations, f.pool, f.donors, f.cache,
		AssignmentOptions{AtomicTransfer: atomic})
}

func (f *fixture) views() ViewService {
	return NewViewService(f.donors, f.donations, f.learners, f.locations, f.aggregates)
}

func (f *fixture) donorID(t *testing.T, email string) string {
	t.Helper()
	id, err := f.donors.Resolve(context.Background(), email)
	if err != nil {
		t.Fatalf("Resolve(%q): %v", email, err)
	}
	return id
}

type recordingInvalidator struct {
	mu      sync.Mutex
	donors  []string
	regions []string
}

func (r *recordingInvalidator) InvalidateDonor(_ context.Context, email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.donors = append(r.donors, email)
}

func (r *recordingInvalidator) InvalidateRegion(_ context.Context, region string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regions = append(r.regions, region)
}

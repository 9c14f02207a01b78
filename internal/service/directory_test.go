package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/givers/learnerfund/internal/docstore"
	"github.com/givers/learnerfund/internal/model"
	"github.com/givers/learnerfund/internal/repository"
)

// ---------------------------------------------------------------------------
// DonorService tests
// ---------------------------------------------------------------------------

func TestDonorService_ResolveOrCreate_ThenResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, created, err := f.donors.ResolveOrCreate(ctx, "ann@example.org", "Ann", "Lee")
	if err != nil || !created || id == "" {
		t.Fatalf("ResolveOrCreate = %q, %v, %v", id, created, err)
	}
	again, created, err := f.donors.ResolveOrCreate(ctx, "ann@example.org", "Other", "Name")
	if err != nil || created || again != id {
		t.Fatalf("second ResolveOrCreate = %q, %v, %v; want %q", again, created, err, id)
	}
	if got := f.donorID(t, "ann@example.org"); got != id {
		t.Errorf("Resolve = %q, want %q", got, id)
	}
}

func TestDonorService_ResolveOrCreate_Concurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, _, err := f.donors.ResolveOrCreate(ctx, "same@example.org", "S", "M")
			if err != nil {
				t.Errorf("ResolveOrCreate: %v", err)
			}
			ids[i] = id
		}()
	}
	wg.Wait()
	for _, id := range ids {
		if id == "" {
			t.Fatal("empty donor id")
		}
	}
	if n := f.count(t, docstore.Collection("donor_master").Where("email", "same@example.org")); n < 1 {
		t.Errorf("donors = %d", n)
	}
}

type mockDonorRepository struct {
	findFunc   func(ctx context.Context, email string) (*model.Donor, error)
	createFunc func(ctx context.Context, d *model.Donor) error
}

func (m *mockDonorRepository) FindByEmail(ctx context.Context, email string) (*model.Donor, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, email)
	}
	return nil, repository.ErrNotFound
}

func (m *mockDonorRepository) Create(ctx context.Context, d *model.Donor) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, d)
	}
	d.DonorID = "d1"
	return nil
}

func TestDonorService_ResolveOrCreate_FirstCallerCanceled(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	createErr := make(chan error, 2)
	var once sync.Once
	svc := NewDonorService(&mockDonorRepository{
		createFunc: func(ctx context.Context, d *model.Donor) error {
			once.Do(func() { close(entered) })
			<-release
			createErr <- ctx.Err()
			d.DonorID = "d1"
			return nil
		},
	})

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := svc.ResolveOrCreate(first, "race@example.org", "R", "C")
		firstErr <- err
	}()
	<-entered
	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("first caller: want context.Canceled, got %v", err)
	}

	type result struct {
		id  string
		err error
	}
	second := make(chan result, 1)
	go func() {
		id, _, err := svc.ResolveOrCreate(context.Background(), "race@example.org", "R", "C")
		second <- result{id, err}
	}()
	close(release)

	if err := <-createErr; err != nil {
		t.Errorf("create saw canceled context: %v", err)
	}
	if r := <-second; r.err != nil || r.id != "d1" {
		t.Errorf("second caller = %q, %v", r.id, r.err)
	}
}

func TestDonorService_Resolve_NotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.donors.Resolve(context.Background(), "nobody@example.org"); !errors.Is(err, ErrDonorNotFound) {
		t.Fatalf("want ErrDonorNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// CampaignService tests
// ---------------------------------------------------------------------------

func TestCampaignService_ListActive(t *testing.T) {
	f := newFixture(t)
	f.put(t, "campaigns/a", map[string]any{"campaignID": "c1", "country": "Kenya", "isActive": true, "summary": "Read in Kenya", "imgRef": "kenya.jpg"})
	f.put(t, "campaigns/b", map[string]any{"campaignID": "c2", "country": "Peru", "isActive": false})
	svc := NewCampaignService(f.campaigns, f.donations, "5.00")

	list, err := svc.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	want := []model.ActiveCampaign{{CampaignID: "c1", Country: "Kenya", ImgRef: "kenya.jpg", Body: "Read in Kenya", Amount: "5.00"}}
	if len(list) != 1 || list[0] != want[0] {
		t.Errorf("ListActive = %+v, want %+v", list, want)
	}
}

func TestCampaignService_ListActive_Empty(t *testing.T) {
	f := newFixture(t)
	list, err := NewCampaignService(f.campaigns, f.donations, "5.00").ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("ListActive = %#v, want empty list", list)
	}
}

func TestCampaignService_Find_IgnoresActivity(t *testing.T) {
	f := newFixture(t)
	f.put(t, "campaigns/b", map[string]any{"campaignID": "c2", "country": "Peru", "isActive": false})
	c, err := NewCampaignService(f.campaigns, f.donations, "5.00").Find(context.Background(), "c2")
	if err != nil || c.Country != "Peru" {
		t.Fatalf("Find = %+v, %v", c, err)
	}
}

func TestCampaignService_DonorCount(t *testing.T) {
	f := newFixture(t)
	f.put(t, "donor_master/d1/donations/c1", map[string]any{"sourceDonor": "d1", "region": "Kenya"})
	f.put(t, "donor_master/d2/donations/c1", map[string]any{"sourceDonor": "d2", "region": "Kenya"})
	f.put(t, "donor_master/d2/donations/c3", map[string]any{"sourceDonor": "d2", "region": "Kenya"})
	svc := NewCampaignService(f.campaigns, f.donations, "5.00")

	n, err := svc.DonorCount(context.Background(), "Kenya")
	if err != nil || n != 2 {
		t.Fatalf("DonorCount = %d, %v; want 2", n, err)
	}
	n, err = svc.DonorCount(context.Background(), "Mars")
	if err != nil || n != 0 {
		t.Fatalf("DonorCount = %d, %v; want 0", n, err)
	}
}

// ---------------------------------------------------------------------------
// Reconciler tests
// ---------------------------------------------------------------------------

func TestReconciler_Run_RemovesAssignedLeftovers(t *testing.T) {
	f := newFixture(t)
	f.put(t, "user_pool/l1", map[string]any{"country": "Kenya"})
	f.put(t, "user_pool/l2", map[string]any{"country": "Kenya"})
	f.put(t, "donor_master/d1/donations/c1/users/l1", map[string]any{"country": "Kenya", "sourceDonor": "d1"})

	n, err := NewReconciler(f.pool, f.learners, 0).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}
	if f.exists(t, "user_pool/l1") {
		t.Error("l1 still in pool")
	}
	if !f.exists(t, "user_pool/l2") || !f.exists(t, "donor_master/d1/donations/c1/users/l1") {
		t.Error("reconcile removed the wrong documents")
	}
}

func TestReconciler_Run_EmptyPool(t *testing.T) {
	f := newFixture(t)
	n, err := NewReconciler(f.pool, f.learners, 0).Run(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("Run = %d, %v", n, err)
	}
}

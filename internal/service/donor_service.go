package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/givers/learnerfund/internal/model"
	"github.com/givers/learnerfund/internal/repository"
)

// DonorService resolves emails to donor ids.
type DonorService interface {
	// Resolve returns the id of the donor with exactly this email, or
	// ErrDonorNotFound.
	Resolve(ctx context.Context, email string) (string, error)
	// ResolveOrCreate returns the donor id for email, creating the donor on
	// first contact. The profile is stored before the id is returned.
	ResolveOrCreate(ctx context.Context, email, firstName, lastName string) (donorID string, created bool, err error)
}

type donorService struct {
	repo  repository.DonorRepository
	group singleflight.Group
	now   func() time.Time
}

// NewDonorService creates a DonorService.
func NewDonorService(repo repository.DonorRepository) DonorService {
	return &donorService{repo: repo, now: time.Now}
}

func (s *donorService) Resolve(ctx context.Context, email string) (string, error) {
	d, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrDonorNotFound
	}
	if err != nil {
		return "", upstream("find donor", err)
	}
	return d.DonorID, nil
}

type resolved struct {
	id      string
	created bool
}

func (s *donorService) ResolveOrCreate(ctx context.Context, email, firstName, lastName string) (string, bool, error) {
	// Concurrent first donations from one email share a single create. The
	// shared call outlives any one caller's cancellation.
	ch := s.group.DoChan(email, func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		id, err := s.Resolve(ctx, email)
		if err == nil {
			return resolved{id: id}, nil
		}
		if !errors.Is(err, ErrDonorNotFound) {
			return nil, err
		}
		d := &model.Donor{
			FirstName:   firstName,
			LastName:    lastName,
			Email:       email,
			DateCreated: s.now().UTC(),
		}
		if err := s.repo.Create(ctx, d); err != nil {
			return nil, upstream("create donor", err)
		}
		return resolved{id: d.DonorID, created: true}, nil
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return "", false, res.Err
	}
	r := res.Val.(resolved)
	return r.id, r.created, nil
}

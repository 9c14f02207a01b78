package service

import (
	"errors"
	"fmt"

	"github.com/givers/learnerfund/internal/repository"
)

var (
	// ErrDonorNotFound is returned when no donor has the given email.
	ErrDonorNotFound = errors.New("donor not found")
	// ErrInactiveCampaign is returned when a donation names a campaign that is
	// missing or not active. Its text is shown to the donor.
	ErrInactiveCampaign = errors.New("not an active campaign")
	// ErrInvalidAmount is returned for donation amounts that are not a finite
	// positive number.
	ErrInvalidAmount = errors.New("invalid donation amount")
	// ErrUpstream wraps document store faults so callers can tell "empty" from
	// "broken".
	ErrUpstream = errors.New("upstream unavailable")
)

// upstream wraps a store error as ErrUpstream, keeping the cause in the chain.
// Not-found errors pass through untouched; data the store refused to encode
// is the caller's fault and is not an upstream fault.
func upstream(op string, err error) error {
	if err == nil || errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if errors.Is(err, repository.ErrInvalidData) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}

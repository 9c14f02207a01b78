package docstore

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

// failingStore fails every call with err once armed.
type failingStore struct {
	*MemStore
	err error
}

func (f *failingStore) Get(ctx context.Context, path string) (*Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.MemStore.Get(ctx, path)
}

func newTestResilient(next Store) *Resilient {
	return NewResilient(next, BreakerSettings{
		Name:         "test",
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Hour,
		MinRequests:  3,
		FailureRatio: 0.5,
	})
}

func TestResilient_Contract(t *testing.T) {
	runContract(t, func(t *testing.T) Store { return newTestResilient(NewMemStore()) })
}

func TestResilient_OpensOnFailures(t *testing.T) {
	fs := &failingStore{MemStore: NewMemStore(), err: errors.New("connection reset")}
	r := newTestResilient(fs)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := r.Get(ctx, "campaigns/c1"); errors.Is(err, ErrUnavailable) {
			t.Fatalf("call %d: circuit opened too early", i+1)
		}
	}
	_, err := r.Get(ctx, "campaigns/c1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
	if r.RetryAfter() != time.Hour {
		t.Errorf("RetryAfter = %s", r.RetryAfter())
	}
}

func TestResilient_NotFoundIsNotAFailure(t *testing.T) {
	r := newTestResilient(NewMemStore())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := r.Get(ctx, "campaigns/none"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("call %d: want ErrNotFound, got %v", i+1, err)
		}
	}
}

func TestResilient_InvalidDataIsNotAFailure(t *testing.T) {
	r := newTestResilient(NewMemStore())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		err := r.Set(ctx, "donor_master/d1", map[string]any{"amount": math.Inf(1)})
		if !errors.Is(err, ErrInvalidData) {
			t.Fatalf("call %d: want ErrInvalidData, got %v", i+1, err)
		}
	}
}

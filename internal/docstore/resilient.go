package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/givers/learnerfund/internal/metrics"
)

// BreakerSettings configures Resilient.
type BreakerSettings struct {
	Name         string
	MaxRequests  uint32        // calls allowed while half-open
	Interval     time.Duration // closed-state counting window
	Timeout      time.Duration // open → half-open delay
	MinRequests  uint32
	FailureRatio float64
}

// Resilient wraps a Store with a circuit breaker and per-operation metrics.
// Missing documents and lost conditional writes are expected outcomes and do
// not count as failures.
type Resilient struct {
	next    Store
	cb      *gobreaker.CircuitBreaker[any]
	name    string
	timeout time.Duration
}

// NewResilient wraps next.
func NewResilient(next Store, st BreakerSettings) *Resilient {
	if st.Name == "" {
		st.Name = "docstore"
	}
	metrics.CircuitBreakerState.WithLabelValues(st.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        st.Name,
		MaxRequests: st.MaxRequests,
		Interval:    st.Interval,
		Timeout:     st.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < st.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= st.FailureRatio {
				slog.Warn("opening circuit", "name", st.Name, "failures", counts.TotalFailures, "failure_ratio", ratio)
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Info("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) ||
				errors.Is(err, ErrInvalidPath) || errors.Is(err, ErrInvalidData) ||
				errors.Is(err, context.Canceled)
		},
	})
	return &Resilient{next: next, cb: cb, name: st.Name, timeout: st.Timeout}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// RetryAfter is how long callers should wait before retrying after ErrUnavailable.
func (r *Resilient) RetryAfter() time.Duration {
	return r.timeout
}

func (r *Resilient) execute(op string, fn func() (any, error)) (any, error) {
	start := time.Now()
	v, err := r.cb.Execute(fn)
	metrics.StoreOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err == nil {
		return v, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.StoreOpErrors.WithLabelValues(op).Inc()
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrConflict) {
		metrics.StoreOpErrors.WithLabelValues(op).Inc()
	}
	return nil, err
}

func (r *Resilient) Get(ctx context.Context, path string) (*Document, error) {
	v, err := r.execute("get", func() (any, error) { return r.next.Get(ctx, path) })
	if err != nil {
		return nil, err
	}
	return v.(*Document), nil
}

func (r *Resilient) Set(ctx context.Context, path string, data any, opts ...SetOption) error {
	_, err := r.execute("set", func() (any, error) { return nil, r.next.Set(ctx, path, data, opts...) })
	return err
}

func (r *Resilient) Delete(ctx context.Context, path string) error {
	_, err := r.execute("delete", func() (any, error) { return nil, r.next.Delete(ctx, path) })
	return err
}

func (r *Resilient) Query(ctx context.Context, q Query) ([]*Document, error) {
	v, err := r.execute("query", func() (any, error) { return r.next.Query(ctx, q) })
	if err != nil {
		return nil, err
	}
	return v.([]*Document), nil
}

func (r *Resilient) Count(ctx context.Context, q Query) (int, error) {
	v, err := r.execute("count", func() (any, error) { return r.next.Count(ctx, q) })
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (r *Resilient) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	_, err := r.execute("transaction", func() (any, error) { return nil, r.next.RunTransaction(ctx, fn) })
	return err
}

func (r *Resilient) Ping(ctx context.Context) error {
	_, err := r.execute("ping", func() (any, error) { return nil, r.next.Ping(ctx) })
	return err
}

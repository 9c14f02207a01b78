package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/givers/learnerfund/internal/metrics"
	"github.com/givers/learnerfund/internal/repository"
)

// Reconciler removes pool learners that already have an assigned copy, which
// is what a copy-then-delete transfer leaves behind when it stops halfway.
type Reconciler struct {
	pool     repository.LearnerPoolRepository
	learners repository.LearnerRepository
	timeout  time.Duration
}

// NewReconciler creates a Reconciler. timeout bounds one scheduled run.
func NewReconciler(pool repository.LearnerPoolRepository, learners repository.LearnerRepository, timeout time.Duration) *Reconciler {
	return &Reconciler{pool: pool, learners: learners, timeout: timeout}
}

// Run removes every pool learner whose id is also assigned to a donation. A
// learner that changed since it was read is left alone.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	versions, err := r.pool.Versions(ctx)
	if err != nil {
		return 0, upstream("list pool", err)
	}
	if len(versions) == 0 {
		return 0, nil
	}
	assigned, err := r.learners.AssignedIDs(ctx)
	if err != nil {
		return 0, upstream("list assigned", err)
	}

	removed := 0
	for id, version := range versions {
		if _, ok := assigned[id]; !ok {
			continue
		}
		err := r.pool.RemoveIfUnchanged(ctx, id, version)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, repository.ErrAlreadyClaimed):
			slog.Debug("pool learner changed during reconcile", "learner_id", id)
		default:
			return removed, upstream("remove pool learner", err)
		}
	}
	metrics.ReconciledLearners.Add(float64(removed))
	return removed, nil
}

// Job adapts Run to a cron job.
func (r *Reconciler) Job() func() {
	return func() {
		ctx := context.Background()
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		start := time.Now()
		n, err := r.Run(ctx)
		if err != nil {
			slog.Error("reconcile failed", "removed", n, "error", err)
			return
		}
		slog.Info("reconcile finished", "removed", n, "duration_ms", time.Since(start).Milliseconds())
	}
}

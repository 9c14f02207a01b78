package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/givers/learnerfund/internal/docstore"
	"github.com/givers/learnerfund/internal/model"
)

// Collection names.
const (
	campaignsCollection  = "campaigns"
	donorsCollection     = "donor_master"
	donationsCollection  = "donations"
	assignedCollection   = "users"
	poolCollection       = "user_pool"
	unassignedCollection = "unassigned_users"
	locationsCollection  = "loc_ref"
	aggregatesCollection = "aggregate_data"
	aggregatesDocument   = "data"
	defaultPageSize      = 500
)

func donorPath(donorID string) string {
	return docstore.Join(donorsCollection, donorID)
}

func donationsPath(donorID string) string {
	return docstore.Join(donorsCollection, donorID, donationsCollection)
}

func donationPath(donorID, campaignID string) string {
	return docstore.Join(donorsCollection, donorID, donationsCollection, campaignID)
}

func assignedPath(donorID, campaignID string) string {
	return docstore.Join(donorsCollection, donorID, donationsCollection, campaignID, assignedCollection)
}

func poolPath(learnerID string) string {
	return docstore.Join(poolCollection, learnerID)
}

// scan pages through every document matched by q and calls fn for each.
func scan(ctx context.Context, store docstore.Store, q docstore.Query, pageSize int, fn func(*docstore.Document) error) error {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	q = q.WithLimit(pageSize)
	for {
		page, err := store.Query(ctx, q)
		if err != nil {
			return err
		}
		for _, d := range page {
			if err := fn(d); err != nil {
				return err
			}
		}
		if len(page) < pageSize {
			return nil
		}
		q = q.After(page[len(page)-1].Path)
	}
}

// scanLearners collects learners matched by q. Documents that cannot be
// decoded are logged and skipped.
func scanLearners(ctx context.Context, store docstore.Store, q docstore.Query, pageSize int, out []*model.Learner) ([]*model.Learner, error) {
	err := scan(ctx, store, q, pageSize, func(d *docstore.Document) error {
		l, err := decodeLearner(d)
		if err != nil {
			slog.Warn("skipping undecodable learner", "path", d.Path, "error", err)
			return nil
		}
		out = append(out, l)
		return nil
	})
	return out, err
}

func decodeLearner(d *docstore.Document) (*model.Learner, error) {
	l := &model.Learner{}
	if err := d.DataTo(l); err != nil {
		return nil, err
	}
	l.ID = d.ID()
	return l, nil
}

// notFound folds invalid paths built from caller input into ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, docstore.ErrInvalidPath) {
		return ErrNotFound
	}
	return err
}

package docstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// runContract exercises the Store behaviour every backend must share.
// newStore must return an empty store.
func runContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Get(ctx, "campaigns/none"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
	})

	t.Run("InvalidPath", func(t *testing.T) {
		s := newStore(t)
		for _, p := range []string{"", "campaigns", "a/b/c", "a//b/c", "/a/b"} {
			if err := s.Set(ctx, p, map[string]any{"x": 1}); !errors.Is(err, ErrInvalidPath) {
				t.Errorf("Set(%q): want ErrInvalidPath, got %v", p, err)
			}
		}
	})

	t.Run("SetReplaceAndMerge", func(t *testing.T) {
		s := newStore(t)
		p := "donor_master/d1"
		if err := s.Set(ctx, p, map[string]any{"email": "a@x.org", "firstName": "A"}); err != nil {
			t.Fatalf("Set: %v", err)
		}
		first, _ := s.Get(ctx, p)

		if err := s.Set(ctx, p, map[string]any{"lastName": "B"}, MergeAll); err != nil {
			t.Fatalf("merge Set: %v", err)
		}
		merged, err := s.Get(ctx, p)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if merged.Data["email"] != "a@x.org" || merged.Data["lastName"] != "B" {
			t.Errorf("merged = %v", merged.Data)
		}
		if merged.Version <= first.Version {
			t.Errorf("version did not increase: %d -> %d", first.Version, merged.Version)
		}

		if err := s.Set(ctx, p, map[string]any{"email": "c@x.org"}); err != nil {
			t.Fatalf("replace Set: %v", err)
		}
		replaced, _ := s.Get(ctx, p)
		if _, ok := replaced.Data["lastName"]; ok || replaced.Data["email"] != "c@x.org" {
			t.Errorf("replaced = %v", replaced.Data)
		}
	})

	t.Run("StructData", func(t *testing.T) {
		s := newStore(t)
		type donation struct {
			CampaignID string  `json:"campaignID"`
			Amount     float64 `json:"amount"`
		}
		if err := s.Set(ctx, "donor_master/d1/donations/c1", donation{CampaignID: "c1", Amount: 50}); err != nil {
			t.Fatalf("Set: %v", err)
		}
		doc, err := s.Get(ctx, "donor_master/d1/donations/c1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		var got donation
		if err := doc.DataTo(&got); err != nil {
			t.Fatalf("DataTo: %v", err)
		}
		if got.CampaignID != "c1" || got.Amount != 50 || doc.ID() != "c1" {
			t.Errorf("got %+v id=%s", got, doc.ID())
		}
	})

	t.Run("DeleteIdempotent", func(t *testing.T) {
		s := newStore(t)
		_ = s.Set(ctx, "user_pool/l1", map[string]any{"country": "Kenya"})
		for i := 0; i < 2; i++ {
			if err := s.Delete(ctx, "user_pool/l1"); err != nil {
				t.Fatalf("Delete #%d: %v", i+1, err)
			}
		}
		if _, err := s.Get(ctx, "user_pool/l1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("want ErrNotFound, got %v", err)
		}
	})

	t.Run("QueryFiltersAndPages", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 5; i++ {
			country := "Kenya"
			if i%2 == 1 {
				country = "Peru"
			}
			_ = s.Set(ctx, fmt.Sprintf("user_pool/l%d", i), map[string]any{"country": country, "level": i})
		}
		_ = s.Set(ctx, "unassigned_users/x", map[string]any{"country": "Kenya"})

		q := Collection("user_pool").Where("country", "Kenya")
		all, err := s.Query(ctx, q)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(all) != 3 || all[0].ID() != "l0" || all[1].ID() != "l2" || all[2].ID() != "l4" {
			t.Fatalf("Query = %v", ids(all))
		}

		page, _ := s.Query(ctx, q.WithLimit(2))
		if len(page) != 2 {
			t.Fatalf("page 1 = %v", ids(page))
		}
		rest, _ := s.Query(ctx, q.WithLimit(2).After(page[1].Path))
		if len(rest) != 1 || rest[0].ID() != "l4" {
			t.Errorf("page 2 = %v", ids(rest))
		}

		n, err := s.Count(ctx, q)
		if err != nil || n != 3 {
			t.Errorf("Count = %d, %v", n, err)
		}

		byNumber, _ := s.Query(ctx, Collection("user_pool").Where("level", 3))
		if len(byNumber) != 1 || byNumber[0].ID() != "l3" {
			t.Errorf("numeric filter = %v", ids(byNumber))
		}
	})

	t.Run("CollectionGroup", func(t *testing.T) {
		s := newStore(t)
		_ = s.Set(ctx, "donor_master/d1/donations/c1/users/a", map[string]any{"sourceDonor": "d1"})
		_ = s.Set(ctx, "donor_master/d2/donations/c1/users/b", map[string]any{"sourceDonor": "d2"})
		_ = s.Set(ctx, "users/top", map[string]any{"sourceDonor": "d1"})
		_ = s.Set(ctx, "donor_master/d1", map[string]any{"sourceDonor": "d1"})

		got, err := s.Query(ctx, CollectionGroup("users").Where("sourceDonor", "d1"))
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("group query = %v", ids(got))
		}
		n, _ := s.Count(ctx, Collection("donor_master/d1/donations/c1/users"))
		if n != 1 {
			t.Errorf("sub-collection count = %d", n)
		}
	})

	t.Run("TransactionCommit", func(t *testing.T) {
		s := newStore(t)
		_ = s.Set(ctx, "user_pool/l1", map[string]any{"country": "Kenya"})

		err := s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
			doc, err := tx.Get(ctx, "user_pool/l1")
			if err != nil {
				return err
			}
			if err := tx.Set(ctx, "donor_master/d1/donations/c1/users/l1", doc.Data); err != nil {
				return err
			}
			return tx.DeleteIfVersion(ctx, "user_pool/l1", doc.Version)
		})
		if err != nil {
			t.Fatalf("RunTransaction: %v", err)
		}
		if _, err := s.Get(ctx, "user_pool/l1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("pool doc still present: %v", err)
		}
		if _, err := s.Get(ctx, "donor_master/d1/donations/c1/users/l1"); err != nil {
			t.Errorf("assigned doc missing: %v", err)
		}
	})

	t.Run("TransactionStaleVersion", func(t *testing.T) {
		s := newStore(t)
		_ = s.Set(ctx, "user_pool/l1", map[string]any{"country": "Kenya"})
		doc, _ := s.Get(ctx, "user_pool/l1")
		_ = s.Set(ctx, "user_pool/l1", map[string]any{"country": "Peru"})

		err := s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
			if err := tx.Set(ctx, "donor_master/d1/donations/c1/users/l1", doc.Data); err != nil {
				return err
			}
			return tx.DeleteIfVersion(ctx, "user_pool/l1", doc.Version)
		})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("want ErrConflict, got %v", err)
		}
		if _, err := s.Get(ctx, "donor_master/d1/donations/c1/users/l1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("write of a failed transaction is visible: %v", err)
		}
		if _, err := s.Get(ctx, "user_pool/l1"); err != nil {
			t.Errorf("pool doc lost: %v", err)
		}
	})

	t.Run("TransactionRollbackOnError", func(t *testing.T) {
		s := newStore(t)
		boom := errors.New("boom")
		err := s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
			if err := tx.Set(ctx, "campaigns/c1", map[string]any{"x": 1}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("want boom, got %v", err)
		}
		if _, err := s.Get(ctx, "campaigns/c1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("rolled back write visible: %v", err)
		}
	})
}

func ids(docs []*Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID()
	}
	return out
}

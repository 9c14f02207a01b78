// Package cache stores serialized HTTP responses in BadgerDB with a TTL.
//
// Keys are the request path followed by the normalised query string, so every
// response about one donor or one region shares a key prefix and can be dropped
// in one call.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/givers/learnerfund/internal/metrics"
)

// Entry is one cached response.
type Entry struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// Badger is a response cache backed by BadgerDB.
type Badger struct {
	db  *badger.DB
	ttl time.Duration
	gen atomic.Uint64
}

// Open opens a cache in dir, or in memory when dir is empty.
func Open(dir string, ttl time.Duration) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Badger{db: db, ttl: ttl}, nil
}

// Close releases the underlying database.
func (c *Badger) Close() error {
	return c.db.Close()
}

// Get returns the entry stored under key.
func (c *Badger) Get(key string) (*Entry, bool) {
	var e Entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			slog.Warn("response cache read failed", "key", key, "error", err)
		}
		metrics.CacheMisses.Inc()
		return nil, false
	}
	metrics.CacheHits.Inc()
	return &e, true
}

// Set stores e under key for the cache TTL.
func (c *Badger) Set(key string, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), data).WithTTL(c.ttl))
	})
}

// Generation returns a counter that moves on every invalidation.
func (c *Badger) Generation() uint64 {
	return c.gen.Load()
}

// SetIfCurrent stores e under key only while no invalidation has happened
// since gen was read. It reports whether the entry was kept.
func (c *Badger) SetIfCurrent(key string, e *Entry, gen uint64) (bool, error) {
	if c.gen.Load() != gen {
		return false, nil
	}
	if err := c.Set(key, e); err != nil {
		return false, err
	}
	// An invalidation racing the write may have dropped its prefix before
	// the entry landed.
	if c.gen.Load() != gen {
		err := c.db.Update(func(txn *badger.Txn) error {
			return txn.Delete([]byte(key))
		})
		return false, err
	}
	return true, nil
}

// DeletePrefix drops every entry whose key starts with prefix.
func (c *Badger) DeletePrefix(prefix string) error {
	c.gen.Add(1)
	metrics.CacheInvalidations.Inc()
	return c.db.DropPrefix([]byte(prefix))
}

// InvalidateDonor drops every cached response about the donor with email.
func (c *Badger) InvalidateDonor(_ context.Context, email string) {
	c.drop(DonorPrefix(email))
}

// InvalidateRegion drops every cached response about region.
func (c *Badger) InvalidateRegion(_ context.Context, region string) {
	c.drop(RegionPrefix(region))
}

func (c *Badger) drop(prefix string) {
	if err := c.DeletePrefix(prefix); err != nil {
		slog.Error("response cache invalidation failed", "prefix", prefix, "error", err)
	}
}

// Key returns the cache key of r: path plus sorted query.
func Key(r *http.Request) string {
	q := r.URL.Query()
	if len(q) == 0 {
		return r.URL.Path
	}
	return r.URL.Path + "?" + q.Encode()
}

// DonorPrefix is the key prefix shared by all responses about one donor.
func DonorPrefix(email string) string {
	return "/api/donors/" + email + "/"
}

// RegionPrefix is the key prefix shared by all responses about one region.
func RegionPrefix(region string) string {
	return "/api/regions/" + region + "/"
}

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/givers/learnerfund/internal/cache"
)

func TestCached_HitAfterMiss(t *testing.T) {
	c, err := cache.Open("", time.Minute)
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	defer c.Close()

	calls := 0
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusOK, map[string]int{"calls": calls})
	})
	h := Cached(c, inner)

	get := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
		return rec
	}

	first := get("/api/donors/a@x.org/learners?campaign=c1&b=2")
	second := get("/api/donors/a@x.org/learners?b=2&campaign=c1")
	if calls != 1 {
		t.Fatalf("handler called %d times, want 1", calls)
	}
	if first.Header().Get("X-Cache") != "MISS" || second.Header().Get("X-Cache") != "HIT" {
		t.Errorf("X-Cache = %q, %q", first.Header().Get("X-Cache"), second.Header().Get("X-Cache"))
	}
	if second.Body.String() != first.Body.String() || second.Header().Get("Content-Type") != "application/json" {
		t.Errorf("cached response differs: %q vs %q", second.Body.String(), first.Body.String())
	}

	c.InvalidateDonor(context.Background(), "a@x.org")
	get("/api/donors/a@x.org/learners?campaign=c1&b=2")
	if calls != 2 {
		t.Errorf("handler called %d times after invalidation, want 2", calls)
	}
}

func TestCached_SkipsNonOK(t *testing.T) {
	c, err := cache.Open("", time.Minute)
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	defer c.Close()

	calls := 0
	h := Cached(c, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeError(w, http.StatusServiceUnavailable, "upstream_unavailable")
	}))
	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/learners/geodata", nil))
	}
	if calls != 2 {
		t.Errorf("handler called %d times, want 2", calls)
	}
}

func TestCached_NilCache(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if got := Cached(nil, inner); got == nil {
		t.Fatal("Cached(nil) returned nil")
	}
}

func TestCached_InvalidatedDuringRequest(t *testing.T) {
	c, err := cache.Open("", time.Minute)
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	defer c.Close()

	calls := 0
	h := Cached(c, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			// A donation lands while the first response is being built.
			c.InvalidateDonor(r.Context(), "a@x.org")
		}
		writeJSON(w, http.StatusOK, map[string]int{"calls": calls})
	}))

	target := "/api/donors/a@x.org/campaigns"
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
		if rec.Header().Get("X-Cache") != "MISS" {
			t.Errorf("request %d: X-Cache = %q, want MISS", i, rec.Header().Get("X-Cache"))
		}
	}
	if calls != 2 {
		t.Fatalf("handler called %d times, want 2", calls)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
	if rec.Header().Get("X-Cache") != "HIT" || calls != 2 {
		t.Errorf("third request: X-Cache = %q, calls = %d", rec.Header().Get("X-Cache"), calls)
	}
}

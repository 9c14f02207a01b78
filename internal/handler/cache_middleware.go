package handler

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/givers/learnerfund/internal/cache"
)

// ResponseCache stores whole responses by key. Generation moves whenever
// entries are invalidated.
type ResponseCache interface {
	Get(key string) (*cache.Entry, bool)
	Generation() uint64
	SetIfCurrent(key string, e *cache.Entry, gen uint64) (bool, error)
}

type bodyRecorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (br *bodyRecorder) WriteHeader(code int) {
	br.status = code
	br.ResponseWriter.WriteHeader(code)
}

func (br *bodyRecorder) Write(b []byte) (int, error) {
	br.buf.Write(b)
	return br.ResponseWriter.Write(b)
}

// Cached serves GET responses from c and stores fresh 200 responses in it.
// A response is not stored when the cache was invalidated while it was built.
// A nil cache disables caching.
func Cached(c ResponseCache, next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		key := cache.Key(r)
		if e, ok := c.Get(key); ok {
			w.Header().Set("Content-Type", e.ContentType)
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(e.Status)
			_, _ = w.Write(e.Body)
			return
		}

		w.Header().Set("X-Cache", "MISS")
		gen := c.Generation()
		br := &bodyRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(br, r)
		if br.status != http.StatusOK {
			return
		}
		e := &cache.Entry{
			Status:      br.status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        br.buf.Bytes(),
		}
		kept, err := c.SetIfCurrent(key, e, gen)
		if err != nil {
			slog.Warn("response cache write failed", "key", key, "error", err)
			return
		}
		if !kept {
			slog.Debug("response not cached after invalidation", "key", key)
		}
	})
}

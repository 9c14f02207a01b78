package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/givers/learnerfund/internal/docstore"
	"github.com/givers/learnerfund/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// responder renders service failures. Upstream faults become 503 with a
// retry hint; anything unexpected becomes 500.
type responder struct {
	retryAfter time.Duration
}

func (rs responder) fail(w http.ResponseWriter, op string, err error, attrs ...any) {
	attrs = append(attrs, "error", err)
	if errors.Is(err, service.ErrUpstream) || errors.Is(err, docstore.ErrUnavailable) {
		slog.Error(op+" failed: upstream unavailable", attrs...)
		w.Header().Set("Retry-After", retryAfterSeconds(rs.retryAfter))
		writeError(w, http.StatusServiceUnavailable, "upstream_unavailable")
		return
	}
	slog.Error(op+" failed", attrs...)
	writeError(w, http.StatusInternalServerError, op+"_failed")
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(d.Seconds())
	if d > time.Duration(secs)*time.Second {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

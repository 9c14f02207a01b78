package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/givers/learnerfund/internal/repository"
	"github.com/givers/learnerfund/internal/service"
)

// LearnerHandler serves the global learner views.
type LearnerHandler struct {
	svc service.ViewService
	responder
}

// NewLearnerHandler creates a LearnerHandler.
func NewLearnerHandler(svc service.ViewService, retryAfter time.Duration) *LearnerHandler {
	return &LearnerHandler{svc: svc, responder: responder{retryAfter: retryAfter}}
}

// GeoData handles GET /api/learners/geodata.
func (h *LearnerHandler) GeoData(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.AllLearnersGeoData(r.Context())
	if err != nil {
		h.fail(w, "geodata", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Count handles GET /api/learners/count. A missing counter is 204.
func (h *LearnerHandler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.AllLearnersCount(r.Context())
	if errors.Is(err, repository.ErrNotFound) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		h.fail(w, "learner_count", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{service.AllLearnersCountKey: n})
}

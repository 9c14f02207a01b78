package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/givers/learnerfund/internal/model"
	"github.com/givers/learnerfund/internal/service"
)

// DonorHandler serves the per-donor views.
type DonorHandler struct {
	svc service.ViewService
	responder
}

// NewDonorHandler creates a DonorHandler.
func NewDonorHandler(svc service.ViewService, retryAfter time.Duration) *DonorHandler {
	return &DonorHandler{svc: svc, responder: responder{retryAfter: retryAfter}}
}

// Campaigns handles GET /api/donors/{email}/campaigns. An unknown donor gets
// an empty list.
func (h *DonorHandler) Campaigns(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PathValue("email"))
	list, err := h.svc.Summary(r.Context(), email)
	if errors.Is(err, service.ErrDonorNotFound) {
		list = nil
		err = nil
	}
	if err != nil {
		h.fail(w, "donor_summary", err)
		return
	}
	if list == nil {
		list = []model.DonationSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": list})
}

// Learners handles GET /api/donors/{email}/learners?campaign=. An unknown
// donor gets an empty view.
func (h *DonorHandler) Learners(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PathValue("email"))
	campaign := strings.TrimSpace(r.URL.Query().Get("campaign"))
	view, err := h.svc.LearnersForRegion(r.Context(), email, campaign)
	if errors.Is(err, service.ErrDonorNotFound) {
		view, err = service.EmptyRegionView(), nil
	}
	if err != nil {
		h.fail(w, "donor_learners", err, "campaign_id", campaign)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

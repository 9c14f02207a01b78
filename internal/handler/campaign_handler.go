package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/givers/learnerfund/internal/model"
	"github.com/givers/learnerfund/internal/service"
)

// CampaignHandler handles campaign listing endpoints.
type CampaignHandler struct {
	svc service.CampaignService
	responder
}

// NewCampaignHandler creates a CampaignHandler.
func NewCampaignHandler(svc service.CampaignService, retryAfter time.Duration) *CampaignHandler {
	return &CampaignHandler{svc: svc, responder: responder{retryAfter: retryAfter}}
}

// List handles GET /api/campaigns.
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListActive(r.Context())
	if err != nil {
		h.fail(w, "campaign_list", err)
		return
	}
	if list == nil {
		list = []model.ActiveCampaign{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": list})
}

// DonorCount handles GET /api/regions/{region}/donors/count.
func (h *CampaignHandler) DonorCount(w http.ResponseWriter, r *http.Request) {
	region := strings.TrimSpace(r.PathValue("region"))
	if region == "" {
		writeError(w, http.StatusBadRequest, "region_required")
		return
	}
	n, err := h.svc.DonorCount(r.Context(), region)
	if err != nil {
		h.fail(w, "donor_count", err, "region", region)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"region": region, "donorCount": n})
}

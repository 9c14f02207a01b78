package handler

import (
	"errors"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/givers/learnerfund/internal/service"
)

const maxDonationBody = 64 << 10

var errInvalidAmount = errors.New("invalid amount")

// DonationHandler handles donation submission.
type DonationHandler struct {
	svc      service.AssignmentService
	validate *validator.Validate
	responder
}

// NewDonationHandler creates a DonationHandler.
func NewDonationHandler(svc service.AssignmentService, retryAfter time.Duration) *DonationHandler {
	return &DonationHandler{
		svc:       svc,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		responder: responder{retryAfter: retryAfter},
	}
}

type donationRequest struct {
	Email      string  `json:"email" validate:"required,email,max=254"`
	FirstName  string  `json:"firstName" validate:"max=100"`
	LastName   string  `json:"lastName" validate:"max=100"`
	CampaignID string  `json:"campaignID" validate:"required,max=128,excludesall=/"`
	Amount     float64 `json:"amount" validate:"gt=0,lte=1000000000"`
}

// decodeDonation reads a JSON body or an urlencoded form. Form posts use the
// field name "campaign" for the campaign id.
func decodeDonation(w http.ResponseWriter, r *http.Request) (*donationRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDonationBody)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	req := &donationRequest{}
	if ct == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		req.Email = r.PostForm.Get("email")
		req.FirstName = r.PostForm.Get("firstName")
		req.LastName = r.PostForm.Get("lastName")
		req.CampaignID = r.PostForm.Get("campaign")
		if req.CampaignID == "" {
			req.CampaignID = r.PostForm.Get("campaignID")
		}
		if s := r.PostForm.Get("amount"); s != "" {
			amount, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil || math.IsInf(amount, 0) || math.IsNaN(amount) {
				return nil, errInvalidAmount
			}
			req.Amount = amount
		}
	} else if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return nil, err
	}
	req.Email = strings.TrimSpace(req.Email)
	req.CampaignID = strings.TrimSpace(req.CampaignID)
	return req, nil
}

// Submit handles POST /api/donations.
func (h *DonationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDonation(w, r)
	if errors.Is(err, errInvalidAmount) {
		writeError(w, http.StatusUnprocessableEntity, "invalid_amount")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": "invalid_" + strings.ToLower(verrs[0].Field()),
			})
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	receipt, err := h.svc.Submit(r.Context(), service.DonationRequest{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		CampaignID: req.CampaignID,
		Amount:     req.Amount,
	})
	if errors.Is(err, service.ErrInvalidAmount) {
		writeError(w, http.StatusUnprocessableEntity, "invalid_amount")
		return
	}
	if errors.Is(err, service.ErrInactiveCampaign) {
		writeError(w, http.StatusUnprocessableEntity, service.ErrInactiveCampaign.Error())
		return
	}
	if err != nil {
		h.fail(w, "donation", err, "campaign_id", req.CampaignID)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Thank you for your donation!",
		"receipt": receipt,
	})
}

package model

import (
	"math"
	"time"
)

// Donor is a person who has donated at least once. The document key is the
// donor id; DonorID mirrors it for readers of the raw document.
type Donor struct {
	DonorID     string    `json:"donorID"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	DateCreated time.Time `json:"dateCreated"`
}

// Campaign is a country-scoped funding program. Managed outside this service.
type Campaign struct {
	CampaignID     string  `json:"campaignID"`
	Country        string  `json:"country"`
	CostPerLearner float64 `json:"costPerLearner"`
	IsActive       bool    `json:"isActive"`
	Summary        string  `json:"summary"`
	ImgRef         string  `json:"imgRef"`
}

// MaxEntitlement caps how many learners a single donation can fund.
const MaxEntitlement = math.MaxInt32

// Entitlement returns how many learners amount funds: floor(amount/cost),
// capped at MaxEntitlement. A campaign without a positive cost funds nobody,
// and neither does an amount that is not a finite positive number.
func (c *Campaign) Entitlement(amount float64) int {
	if c.CostPerLearner <= 0 || math.IsNaN(c.CostPerLearner) || math.IsInf(c.CostPerLearner, 0) {
		return 0
	}
	if math.IsNaN(amount) || amount <= 0 {
		return 0
	}
	q := math.Floor(amount / c.CostPerLearner)
	if q >= MaxEntitlement {
		return MaxEntitlement
	}
	return int(q)
}

// Donation is a donor's contribution to one campaign. There is at most one per
// (donor, campaign); later donations overwrite the fields.
type Donation struct {
	ID          string    `json:"-"` // document id; equals CampaignID for new writes
	CampaignID  string    `json:"campaignID"`
	SourceDonor string    `json:"sourceDonor"`
	Amount      float64   `json:"amount"`
	Region      string    `json:"region"` // the campaign's country
	StartDate   time.Time `json:"startDate"`
}

// DonationSummary is a donation as shown to its donor.
type DonationSummary struct {
	Name        string  `json:"name"` // document id, i.e. the campaign id
	CampaignID  string  `json:"campaignID"`
	SourceDonor string  `json:"sourceDonor"`
	Amount      float64 `json:"amount"`
	Region      string  `json:"region"`
	StartDate   string  `json:"startDate"`
	UserCount   int     `json:"userCount"`
}

// ActiveCampaign is the listing view of a campaign.
type ActiveCampaign struct {
	CampaignID string `json:"campaignID"`
	Country    string `json:"country"`
	ImgRef     string `json:"imgRef"`
	Body       string `json:"body"`
	Amount     string `json:"amount"`
}

package model

import "strings"

// Learner is a beneficiary, either waiting in the pool or assigned to a
// donation. Only the fields this service reads are declared; stored documents
// may carry more and those are preserved on transfer.
type Learner struct {
	ID             string `json:"-"`
	Country        string `json:"country,omitempty"`
	Region         string `json:"region"`
	LearnerLevel   any    `json:"learnerLevel,omitempty"`
	SourceDonor    string `json:"sourceDonor,omitempty"`
	SourceCampaign string `json:"sourceCampaign,omitempty"`
}

// HasCountry reports whether the learner can be placed on a map.
func (l *Learner) HasCountry() bool {
	return strings.TrimSpace(l.Country) != ""
}

// RegionLearner is the learner shape returned to donors.
type RegionLearner struct {
	Region         string `json:"region"`
	SourceCampaign string `json:"sourceCampaign,omitempty"`
	LearnerLevel   any    `json:"learnerLevel,omitempty"`
}

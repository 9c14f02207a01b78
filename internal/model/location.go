package model

import "strings"

// LocationRef is the static reference data for one country.
type LocationRef struct {
	Country string      `json:"country"`
	Facts   []string    `json:"facts"`
	Regions []RegionRef `json:"regions"`
}

// RegionRef is one region inside a LocationRef.
type RegionRef struct {
	Region      string       `json:"region"`
	StreetViews *StreetViews `json:"streetViews"`
}

// StreetViews holds parallel arrays of coordinates and camera headings.
type StreetViews struct {
	Locations     []GeoPoint `json:"locations"`
	HeadingValues []float64  `json:"headingValues"`
}

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// FindRegion matches name against the reference regions, ignoring case.
// Blank names never match.
func (l *LocationRef) FindRegion(name string) (*RegionRef, bool) {
	if strings.TrimSpace(name) == "" {
		return nil, false
	}
	for i := range l.Regions {
		r := &l.Regions[i]
		if strings.TrimSpace(r.Region) == "" {
			continue
		}
		if strings.EqualFold(r.Region, name) {
			return r, true
		}
	}
	return nil, false
}

// WellFormed reports whether the payload can produce a marker: both arrays
// present, non-empty and the same length.
func (s *StreetViews) WellFormed() bool {
	if s == nil || s.Locations == nil || s.HeadingValues == nil {
		return false
	}
	return len(s.Locations) > 0 && len(s.Locations) == len(s.HeadingValues)
}

// View is one camera position.
type View struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	HeadingValue float64 `json:"headingValue"`
}

// Marker is one learner on the map.
type Marker struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	Country      string  `json:"country"`
	Region       string  `json:"region"`
	HeadingValue float64 `json:"headingValue"`
	OtherViews   []View  `json:"otherViews"`
}

// LocData is map-ready data: facts keyed by country and one marker per learner.
type LocData struct {
	Facts      map[string][]string `json:"facts"`
	MarkerData []Marker            `json:"markerData"`
}

// NewLocData returns an empty, JSON-friendly LocData.
func NewLocData() LocData {
	return LocData{Facts: map[string][]string{}, MarkerData: []Marker{}}
}

// SkipReport counts learners left out of map data, by reason.
type SkipReport struct {
	MissingCountry      int `json:"missingCountry"`
	MissingLocation     int `json:"missingLocation"`
	UnmatchedRegion     int `json:"unmatchedRegion"`
	MalformedStreetView int `json:"malformedStreetView"`
}

// Total is the number of skipped learners.
func (r SkipReport) Total() int {
	return r.MissingCountry + r.MissingLocation + r.UnmatchedRegion + r.MalformedStreetView
}

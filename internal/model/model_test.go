package model

import (
	"math"
	"testing"
)

func TestCampaign_Entitlement(t *testing.T) {
	tests := []struct {
		name   string
		cost   float64
		amount float64
		want   int
	}{
		{"exact", 25, 50, 2},
		{"floors", 25, 60, 2},
		{"below cost", 25, 10, 0},
		{"zero cost", 0, 100, 0},
		{"negative cost", -5, 100, 0},
		{"zero amount", 25, 0, 0},
		{"fractional", 0.5, 1.75, 3},
		{"huge amount capped", 10, 1e300, MaxEntitlement},
		{"infinite amount capped", 10, math.Inf(1), MaxEntitlement},
		{"tiny cost capped", 1e-300, 50, MaxEntitlement},
		{"NaN amount", 10, math.NaN(), 0},
		{"NaN cost", math.NaN(), 50, 0},
		{"infinite cost", math.Inf(1), 50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Campaign{CostPerLearner: tt.cost}
			if got := c.Entitlement(tt.amount); got != tt.want {
				t.Errorf("Entitlement(%v) at cost %v = %d, want %d", tt.amount, tt.cost, got, tt.want)
			}
		})
	}
}

func TestLocationRef_FindRegion(t *testing.T) {
	ref := LocationRef{
		Country: "Brazil",
		Regions: []RegionRef{
			{Region: ""},
			{Region: "São Paulo"},
			{Region: "Bahia"},
		},
	}

	r, ok := ref.FindRegion("são paulo")
	if !ok || r.Region != "São Paulo" {
		t.Errorf("FindRegion(são paulo) = %v, %v", r, ok)
	}
	if _, ok := ref.FindRegion("Ceará"); ok {
		t.Error("FindRegion(Ceará) matched")
	}
	if _, ok := ref.FindRegion("  "); ok {
		t.Error("blank name matched")
	}
}

func TestStreetViews_WellFormed(t *testing.T) {
	pt := GeoPoint{Lat: 1, Lng: 2}
	tests := []struct {
		name string
		sv   *StreetViews
		want bool
	}{
		{"nil", nil, false},
		{"missing headings", &StreetViews{Locations: []GeoPoint{pt}}, false},
		{"missing locations", &StreetViews{HeadingValues: []float64{90}}, false},
		{"empty", &StreetViews{Locations: []GeoPoint{}, HeadingValues: []float64{}}, false},
		{"length mismatch", &StreetViews{Locations: []GeoPoint{pt, pt}, HeadingValues: []float64{90}}, false},
		{"ok", &StreetViews{Locations: []GeoPoint{pt, pt}, HeadingValues: []float64{90, 180}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sv.WellFormed(); got != tt.want {
				t.Errorf("WellFormed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSkipReport_Total(t *testing.T) {
	r := SkipReport{MissingCountry: 1, MissingLocation: 2, UnmatchedRegion: 3, MalformedStreetView: 4}
	if r.Total() != 10 {
		t.Errorf("Total() = %d", r.Total())
	}
}

func TestLearner_HasCountry(t *testing.T) {
	if (&Learner{Country: " "}).HasCountry() {
		t.Error("blank country counted")
	}
	if !(&Learner{Country: "Kenya"}).HasCountry() {
		t.Error("Kenya not counted")
	}
}

func TestNewLocData_Empty(t *testing.T) {
	d := NewLocData()
	if d.Facts == nil || d.MarkerData == nil {
		t.Errorf("NewLocData() = %+v", d)
	}
}

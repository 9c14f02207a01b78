package service

import (
	"iter"
	"log/slog"
	"strings"

	"github.com/givers/learnerfund/internal/metrics"
	"github.com/givers/learnerfund/internal/model"
)

// Skip reasons, used as metric labels.
const (
	skipMissingCountry  = "missing_country"
	skipMissingLocation = "missing_location"
	skipUnmatchedRegion = "unmatched_region"
	skipMalformedViews  = "malformed_street_view"
)

// placement is a learner matched to a reference region.
type placement struct {
	learner *model.Learner
	ref     *model.LocationRef
	region  *model.RegionRef
}

// geoJoin turns learners into map markers in one lazy pass. Learners that
// cannot be placed are counted in Skipped and logged; they never stop the batch.
type geoJoin struct {
	// lookup returns the location reference a learner is placed against.
	lookup  func(*model.Learner) *model.LocationRef
	Skipped model.SkipReport
}

func (g *geoJoin) skip(reason string, l *model.Learner) {
	switch reason {
	case skipMissingCountry:
		g.Skipped.MissingCountry++
	case skipMissingLocation:
		g.Skipped.MissingLocation++
	case skipUnmatchedRegion:
		g.Skipped.UnmatchedRegion++
	case skipMalformedViews:
		g.Skipped.MalformedStreetView++
	}
	metrics.GeoRecordsSkipped.WithLabelValues(reason).Inc()
	slog.Warn("learner skipped from map data",
		"reason", reason, "learner_id", l.ID, "country", l.Country, "region", l.Region)
}

// withCountry drops learners whose country is blank.
func (g *geoJoin) withCountry(seq iter.Seq[*model.Learner]) iter.Seq[*model.Learner] {
	return func(yield func(*model.Learner) bool) {
		for l := range seq {
			if !l.HasCountry() {
				g.skip(skipMissingCountry, l)
				continue
			}
			if !yield(l) {
				return
			}
		}
	}
}

// matched pairs each learner with its reference region, ignoring case.
func (g *geoJoin) matched(seq iter.Seq[*model.Learner]) iter.Seq[placement] {
	return func(yield func(placement) bool) {
		for l := range seq {
			ref := g.lookup(l)
			if ref == nil {
				g.skip(skipMissingLocation, l)
				continue
			}
			region, ok := ref.FindRegion(l.Region)
			if !ok {
				g.skip(skipUnmatchedRegion, l)
				continue
			}
			if !yield(placement{learner: l, ref: ref, region: region}) {
				return
			}
		}
	}
}

// wellFormed drops placements whose street views cannot produce a marker.
func (g *geoJoin) wellFormed(seq iter.Seq[placement]) iter.Seq[placement] {
	return func(yield func(placement) bool) {
		for p := range seq {
			if !p.region.StreetViews.WellFormed() {
				g.skip(skipMalformedViews, p.learner)
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// build drains seq into map data. Facts are emitted once per country that
// produced a marker.
func (g *geoJoin) build(seq iter.Seq[*model.Learner]) model.LocData {
	out := model.NewLocData()
	for p := range g.wellFormed(g.matched(seq)) {
		out.MarkerData = append(out.MarkerData, newMarker(p))
		if _, ok := out.Facts[p.ref.Country]; !ok {
			out.Facts[p.ref.Country] = factsOf(p.ref)
		}
	}
	return out
}

func factsOf(ref *model.LocationRef) []string {
	if ref.Facts == nil {
		return []string{}
	}
	return ref.Facts
}

func newMarker(p placement) model.Marker {
	sv := p.region.StreetViews
	m := model.Marker{
		Lat:          sv.Locations[0].Lat,
		Lng:          sv.Locations[0].Lng,
		Country:      p.ref.Country,
		Region:       p.region.Region,
		HeadingValue: sv.HeadingValues[0],
		OtherViews:   make([]model.View, 0, len(sv.Locations)-1),
	}
	for i := 1; i < len(sv.Locations); i++ {
		m.OtherViews = append(m.OtherViews, model.View{
			Lat:          sv.Locations[i].Lat,
			Lng:          sv.Locations[i].Lng,
			HeadingValue: sv.HeadingValues[i],
		})
	}
	return m
}

// byCountry looks references up by the learner's own country, falling back
// to a case-insensitive match.
func byCountry(refs map[string]*model.LocationRef) func(*model.Learner) *model.LocationRef {
	folded := make(map[string]*model.LocationRef, len(refs))
	for k, ref := range refs {
		folded[strings.ToLower(k)] = ref
	}
	return func(l *model.Learner) *model.LocationRef {
		if ref, ok := refs[l.Country]; ok {
			return ref
		}
		return folded[strings.ToLower(strings.TrimSpace(l.Country))]
	}
}

// fixed places every learner against one reference, which may be nil.
func fixed(ref *model.LocationRef) func(*model.Learner) *model.LocationRef {
	return func(*model.Learner) *model.LocationRef { return ref }
}

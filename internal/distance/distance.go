// Package distance provides the distance policies used to rank stations.
package distance

import (
	"github.com/rubiojr/gasfinder/internal/station"
	"github.com/tkrajina/gpxgo/gpx"
)

// FromPoint measures great-circle distances from Origin. When Destination is
// set the distance is the detour a station adds to the Origin-Destination
// trip.
type FromPoint struct {
	Origin      station.LatLng
	Destination *station.LatLng
}

// Between returns the distance in meters between two coordinates.
func Between(a, b station.LatLng) float64 {
	return gpx.Distance2D(a.Lat, a.Lng, b.Lat, b.Lng, true)
}

// Distance returns the distance in meters to s, or false when s has no
// coordinates.
func (p FromPoint) Distance(s *station.Station) (float64, bool) {
	if s.Coordinates == nil {
		return 0, false
	}
	d := Between(p.Origin, *s.Coordinates)
	if p.Destination == nil {
		return d, true
	}
	return d + Between(*p.Destination, *s.Coordinates) - Between(p.Origin, *p.Destination), true
}

// BeyondSea reports whether s lies on a land mass other than the ones of the
// trip ends, so reaching it requires a ferry.
func (p FromPoint) BeyondSea(s *station.Station, classify station.LandMassFunc) bool {
	if s.Coordinates == nil || classify == nil {
		return false
	}
	at := classify(s.Coordinates.Lat, s.Coordinates.Lng)
	if at == classify(p.Origin.Lat, p.Origin.Lng) {
		return false
	}
	if p.Destination != nil && at == classify(p.Destination.Lat, p.Destination.Lng) {
		return false
	}
	return true
}

// Static serves precomputed distances keyed by station ID.
type Static map[int]float64

// Distance implements the filter distance policy.
func (m Static) Distance(s *station.Station) (float64, bool) {
	d, ok := m[s.ID]
	return d, ok
}

// Package search runs a nearby query over a snapshot: it keeps the stations
// within reach of the trip and hands them to the selection filter.
package search

import (
	"errors"
	"time"

	"github.com/rubiojr/gasfinder/internal/distance"
	"github.com/rubiojr/gasfinder/internal/filter"
	"github.com/rubiojr/gasfinder/internal/station"
)

// DefaultRadiusKm is the radius searches start from unless the user sets one.
const DefaultRadiusKm = 5.0

// ErrNoData is returned by Run when there is no snapshot to search yet.
var ErrNoData = errors.New("no station data available yet")

// Query describes what the user is looking for.
type Query struct {
	Origin      station.LatLng
	Destination *station.LatLng
	Product     string
	// RadiusKm bounds the distance, or the detour when Destination is set.
	// Zero or less means no bound.
	RadiusKm float64
	// Limit caps the result, zero keeps everything.
	Limit int
	// IncludeOverseas keeps stations that need a ferry to be reached.
	IncludeOverseas bool
}

// Run selects the stations of snap matching q at now.
func Run(snap *station.Snapshot, country *station.Country, cfg filter.Config, q Query, now time.Time) ([]filter.Ranked, error) {
	if snap == nil {
		return nil, ErrNoData
	}

	policy := distance.FromPoint{Origin: q.Origin, Destination: q.Destination}
	limit := q.RadiusKm * 1000

	var classify station.LandMassFunc
	if country != nil && !q.IncludeOverseas {
		classify = country.LandMass
	}

	candidates := make([]*station.Station, 0, len(snap.Stations))
	for _, s := range snap.Stations {
		d, ok := policy.Distance(s)
		if !ok {
			continue
		}
		if limit > 0 && d > limit {
			continue
		}
		if policy.BeyondSea(s, classify) {
			continue
		}
		candidates = append(candidates, s)
	}

	ranked := filter.FilterRanked(candidates, cfg, policy, q.Product, now)
	if q.Limit > 0 && len(ranked) > q.Limit {
		ranked = ranked[:q.Limit]
	}
	return ranked, nil
}

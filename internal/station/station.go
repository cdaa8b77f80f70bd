// Package station holds the fuel station model shared by the parsers, the
// repository and the filter, plus the per-country feed capabilities.
package station

import (
	"time"

	"github.com/rubiojr/gasfinder/internal/hours"

	// Station zones must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"
)

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

// Station is a fuel station as published by a country feed.
type Station struct {
	ID      int
	Name    string
	Address string
	City    string
	State   string
	// Coordinates is nil when the feed does not locate the station.
	Coordinates   *LatLng
	IsPublicPrice bool
	// OpeningHours is nil when no schedule is known.
	OpeningHours *hours.OpeningHours
	// Prices maps product names to their price. A product missing from the
	// map is not sold, a nil price means it is sold at an unknown price.
	Prices map[string]*float64
	// TimeZone is the zone the opening hours are expressed in. Nil means UTC.
	TimeZone *time.Location
}

// Price returns the known price of product.
func (s *Station) Price(product string) (float64, bool) {
	p, ok := s.Prices[product]
	if !ok || p == nil {
		return 0, false
	}
	return *p, true
}

// Location returns the station coordinates, if known.
func (s *Station) Location() (lat, lng float64, ok bool) {
	if s.Coordinates == nil {
		return 0, 0, false
	}
	return s.Coordinates.Lat, s.Coordinates.Lng, true
}

// Status evaluates the opening hours at the given instant in the station
// zone. Stations without a known schedule are reported closed for good.
func (s *Station) Status(at time.Time) hours.Status {
	if s.OpeningHours == nil {
		return hours.Status{}
	}
	return s.OpeningHours.Status(at, s.TimeZone)
}

// Snapshot is a parsed feed payload.
type Snapshot struct {
	Stations []*Station
	byID     map[int]*Station
}

// NewSnapshot indexes stations by ID. Later duplicates win.
func NewSnapshot(stations []*Station) *Snapshot {
	byID := make(map[int]*Station, len(stations))
	for _, s := range stations {
		byID[s.ID] = s
	}
	return &Snapshot{Stations: stations, byID: byID}
}

// ByID returns the station with the given ID or nil.
func (s *Snapshot) ByID(id int) *Station {
	if s == nil {
		return nil
	}
	return s.byID[id]
}

// Len returns the number of stations, zero for a nil snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Stations)
}

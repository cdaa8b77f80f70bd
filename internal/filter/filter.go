// Package filter selects the stations worth showing for a product, nearest
// first.
package filter

import (
	"math"
	"slices"
	"time"

	"github.com/rubiojr/gasfinder/internal/station"
)

// Config holds the user filtering preferences.
type Config struct {
	HideExpensiveFurther bool
	OnlyPublicPrices     bool
	// HideClosedMarginInMinutes keeps closed stations that open within this
	// many minutes. Must not be negative.
	HideClosedMarginInMinutes int
}

// DefaultConfig returns the preferences of a fresh install.
func DefaultConfig() Config {
	return Config{
		HideExpensiveFurther:      true,
		OnlyPublicPrices:          false,
		HideClosedMarginInMinutes: 30,
	}
}

func (c Config) margin() time.Duration {
	return time.Duration(max(c.HideClosedMarginInMinutes, 0)) * time.Minute
}

// DistancePolicy measures how far a station is. ok is false when the
// distance cannot be computed.
type DistancePolicy interface {
	Distance(s *station.Station) (meters float64, ok bool)
}

// Ranked is a selected station along with its price and distance.
type Ranked struct {
	Station *station.Station
	Price   float64
	// Distance is +Inf when unknown.
	Distance float64
}

// Filter returns the stations to show for product at now, nearest first.
func Filter(stations []*station.Station, cfg Config, policy DistancePolicy, product string, now time.Time) []*station.Station {
	ranked := FilterRanked(stations, cfg, policy, product, now)
	result := make([]*station.Station, len(ranked))
	for i, r := range ranked {
		result[i] = r.Station
	}
	return result
}

// FilterRanked is Filter keeping the price and distance of each survivor.
func FilterRanked(stations []*station.Station, cfg Config, policy DistancePolicy, product string, now time.Time) []Ranked {
	candidates := make([]Ranked, len(stations))
	for i, s := range stations {
		d, ok := policy.Distance(s)
		if !ok {
			d = math.Inf(1)
		}
		candidates[i] = Ranked{Station: s, Distance: d}
	}
	slices.SortStableFunc(candidates, func(a, b Ranked) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})

	var (
		result []Ranked
		cutoff = math.Inf(1)
		margin = cfg.margin()
	)
	for _, c := range candidates {
		price, ok := c.Station.Price(product)
		if !ok {
			continue
		}
		if cfg.OnlyPublicPrices && !c.Station.IsPublicPrice {
			continue
		}
		if cfg.HideExpensiveFurther && price > cutoff {
			continue
		}
		if closedTooLong(c.Station, now, margin) {
			continue
		}

		c.Price = price
		result = append(result, c)
		if c.Station.IsPublicPrice {
			cutoff = min(cutoff, price)
		}
	}
	return result
}

// closedTooLong reports whether s is closed at now and reopens later than
// margin. Stations that never change state are kept.
func closedTooLong(s *station.Station, now time.Time, margin time.Duration) bool {
	status := s.Status(now)
	if status.Open || status.NextChange == nil {
		return false
	}
	return status.NextChange.Sub(now) > margin
}

// Package geocode turns free-form place names into coordinates using
// OpenStreetMap Nominatim.
package geocode

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/muesli/gominatim"
	"github.com/patrickmn/go-cache"
)

const (
	DefaultServer = "https://nominatim.openstreetmap.org/"

	cacheExpiration = 30 * time.Minute
	cacheCleanup    = 90 * time.Minute
)

// ErrNotFound is returned when a query matches no place.
var ErrNotFound = errors.New("no results found")

// Place is a geocoded location.
type Place struct {
	Lat         float64
	Lng         float64
	DisplayName string
}

// SearchFunc queries the geocoding service.
type SearchFunc func(query string) ([]gominatim.SearchResult, error)

// Option configures a Geocoder.
type Option func(*Geocoder)

// WithSearch replaces the Nominatim query.
func WithSearch(search SearchFunc) Option {
	return func(g *Geocoder) {
		g.search = search
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Geocoder) {
		g.log = logger
	}
}

// Geocoder resolves place names, memoising results in memory.
type Geocoder struct {
	search SearchFunc
	cache  *cache.Cache
	log    *slog.Logger
}

func New(opts ...Option) *Geocoder {
	g := &Geocoder{
		search: nominatim(DefaultServer),
		cache:  cache.New(cacheExpiration, cacheCleanup),
		log:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Locate returns the best match for location.
func (g *Geocoder) Locate(location string) (Place, error) {
	key := strings.ToLower(strings.TrimSpace(location))
	if key == "" {
		return Place{}, fmt.Errorf("%w: empty location", ErrNotFound)
	}
	if cached, ok := g.cache.Get(key); ok {
		g.log.Debug("using cached location", "location", location)
		return cached.(Place), nil
	}

	results, err := g.search(location)
	if err != nil {
		return Place{}, fmt.Errorf("geocoding error: %w", err)
	}
	if len(results) == 0 {
		return Place{}, fmt.Errorf("%w for location: %s", ErrNotFound, location)
	}

	place, err := toPlace(results[0])
	if err != nil {
		return Place{}, err
	}
	g.cache.Set(key, place, cache.DefaultExpiration)
	g.log.Debug("location geocoded", "location", location, "lat", place.Lat, "lng", place.Lng)
	return place, nil
}

func nominatim(server string) SearchFunc {
	return func(query string) ([]gominatim.SearchResult, error) {
		gominatim.SetServer(server)
		q := gominatim.SearchQuery{
			Q: url.QueryEscape(query),
		}
		return q.Get()
	}
}

func toPlace(result gominatim.SearchResult) (Place, error) {
	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("error parsing latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("error parsing longitude: %w", err)
	}
	return Place{Lat: lat, Lng: lng, DisplayName: result.DisplayName}, nil
}

package station

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rubiojr/gasfinder/pkg/api"
)

// ErrUnknownCountry is returned by Lookup for unsupported country codes.
var ErrUnknownCountry = errors.New("unknown country")

// DefaultCountry is used when no country is configured.
const DefaultCountry = "ES"

// Country bundles what differs between national feeds.
type Country struct {
	Code           string
	Name           string
	DefaultProduct string
	Products       []string
	LandMass       LandMassFunc

	newSource func(opts ...api.Option) *api.FuelPriceAPI
	parse     func(raw string, brands Brands) (*Snapshot, error)
	zone      func(lat, lng float64) *time.Location
}

var countries = map[string]*Country{
	"ES": {
		Code:           "ES",
		Name:           "Spain",
		DefaultProduct: "Gasoleo A",
		Products: []string{
			"Biodiesel",
			"Bioetanol",
			"Gas Natural Comprimido",
			"Gas Natural Licuado",
			"Gases licuados del petróleo",
			"Gasoleo A",
			"Gasoleo B",
			"Gasoleo Premium",
			"Gasolina 95 E10",
			"Gasolina 95 E5",
			"Gasolina 95 E5 Premium",
			"Gasolina 98 E10",
			"Gasolina 98 E5",
			"Hidrogeno",
		},
		LandMass:  SpainLandMass,
		newSource: api.NewFuelPriceAPI,
		parse: func(raw string, _ Brands) (*Snapshot, error) {
			return ParseSpain(raw)
		},
		zone: SpainZone,
	},
	"FR": {
		Code:           "FR",
		Name:           "France",
		DefaultProduct: "Gasoleo A",
		Products: []string{
			"Gasoleo A",
			"Gasolina 95 E5",
			"Gasolina 98 E5",
			"Gasolina 95 E10",
			"Gasolina 95 E85",
			"Gases licuados del petróleo",
		},
		LandMass:  FranceLandMass,
		newSource: api.NewFranceAPI,
		parse:     ParseFrance,
		zone: func(float64, float64) *time.Location {
			return parisZone
		},
	},
}

// Lookup returns the country with the given ISO code, case insensitive. An
// empty code selects DefaultCountry.
func Lookup(code string) (*Country, error) {
	if code == "" {
		code = DefaultCountry
	}
	c, ok := countries[strings.ToUpper(code)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCountry, code)
	}
	return c, nil
}

// Codes lists the supported country codes, sorted.
func Codes() []string {
	codes := make([]string, 0, len(countries))
	for code := range countries {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// Source returns a client for the country feed.
func (c *Country) Source(opts ...api.Option) *api.FuelPriceAPI {
	return c.newSource(opts...)
}

// Parser returns the feed parser. brands is only used by feeds without
// station names and may be nil.
func (c *Country) Parser(brands Brands) func(raw string) (*Snapshot, error) {
	return func(raw string) (*Snapshot, error) {
		return c.parse(raw, brands)
	}
}

// Zone returns the time zone of a station at the given coordinate.
func (c *Country) Zone(lat, lng float64) *time.Location {
	return c.zone(lat, lng)
}

// SellsProduct reports whether the feed publishes prices for product.
func (c *Country) SellsProduct(product string) bool {
	return slices.Contains(c.Products, product)
}

// productAliases are the short names accepted on the command line.
var productAliases = map[string]string{
	"gasolina95":        "Gasolina 95 E5",
	"gasolina98":        "Gasolina 98 E5",
	"gasolina95premium": "Gasolina 95 E5 Premium",
	"gasoleo":           "Gasoleo A",
	"diesel":            "Gasoleo A",
	"glp":               "Gases licuados del petróleo",
	"gnc":               "Gas Natural Comprimido",
	"gnl":               "Gas Natural Licuado",
}

// ResolveProduct maps a product name or alias onto the name used by the
// feed. Names match ignoring case and spaces, so "gasolina95e10" selects
// "Gasolina 95 E10".
func (c *Country) ResolveProduct(name string) (string, bool) {
	key := compactName(name)
	if alias, ok := productAliases[key]; ok {
		key = compactName(alias)
	}
	for _, p := range c.Products {
		if compactName(p) == key {
			return p, true
		}
	}
	return "", false
}

func compactName(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}

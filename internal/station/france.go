package station

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rubiojr/gasfinder/internal/hours"
)

const (
	frenchPriceSuffix = "_prix"
	// The export gives coordinates in 1e-5 degrees.
	frenchCoordinateScale = 100000.0
)

var parisZone = mustLoadLocation("Europe/Paris")

// French product codes mapped onto the product names of the Spanish feed so
// filters and configuration share one vocabulary.
var frenchProducts = map[string]string{
	"gazole": "Gasoleo A",
	"sp95":   "Gasolina 95 E5",
	"sp98":   "Gasolina 98 E5",
	"e10":    "Gasolina 95 E10",
	"e85":    "Gasolina 95 E85",
	"gplc":   "Gases licuados del petróleo",
}

// Brand is station metadata missing from the French export.
type Brand struct {
	ID    int    `csv:"id"`
	Brand string `csv:"brand"`
	Name  string `csv:"name"`
}

// Brands indexes Brand records by station ID.
type Brands map[int]Brand

func (b Brands) displayName(id int) string {
	if meta, ok := b[id]; ok {
		return meta.Brand + " - " + meta.Name
	}
	return strconv.Itoa(id)
}

// LoadBrands reads tab separated "id brand name" lines.
func LoadBrands(r io.Reader) (Brands, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true

	dec, err := csvutil.NewDecoder(cr, "id", "brand", "name")
	if err != nil {
		return nil, fmt.Errorf("error creating brands decoder: %w", err)
	}
	brands := Brands{}
	for {
		var b Brand
		if err := dec.Decode(&b); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("error decoding brands: %w", err)
		}
		brands[b.ID] = b
	}
	return brands, nil
}

// ParseFrance parses the French open data export, a JSON array of stations.
// Prices come as "<code>_prix" fields; unknown product codes are ignored.
// Station names are looked up in brands and fall back to the station ID.
func ParseFrance(raw string, brands Brands) (*Snapshot, error) {
	var entries []map[string]any
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("error unmarshaling french feed: %w", err)
	}

	stations := make([]*Station, 0, len(entries))
	for i, fields := range entries {
		s, err := frenchStation(fields, brands)
		if err != nil {
			return nil, fmt.Errorf("error parsing station %d: %w", i, err)
		}
		stations = append(stations, s)
	}
	return NewSnapshot(stations), nil
}

func frenchStation(fields map[string]any, brands Brands) (*Station, error) {
	rawID, _ := content(fields["id"])
	id, err := strconv.Atoi(strings.TrimSpace(rawID))
	if err != nil {
		return nil, fmt.Errorf("bad id %q: %w", rawID, err)
	}

	s := &Station{
		ID:            id,
		Name:          brands.displayName(id),
		Address:       text(fields["adresse"]),
		City:          text(fields["ville"]),
		State:         text(fields["departement"]),
		IsPublicPrice: true,
		Prices:        map[string]*float64{},
		TimeZone:      parisZone,
	}

	lat, latOK := frenchNumber(fields["latitude"])
	lng, lngOK := frenchNumber(fields["longitude"])
	if latOK && lngOK {
		s.Coordinates = &LatLng{Lat: lat / frenchCoordinateScale, Lng: lng / frenchCoordinateScale}
	}

	if schedule, ok := content(fields["horaires_jour"]); ok {
		if oh, err := hours.ParseFrench(schedule); err == nil {
			s.OpeningHours = oh
		}
	}

	for key, value := range fields {
		code, found := strings.CutSuffix(key, frenchPriceSuffix)
		if !found {
			continue
		}
		product, known := frenchProducts[code]
		if !known {
			continue
		}
		if price, ok := frenchNumber(value); ok {
			s.Prices[product] = &price
		} else {
			s.Prices[product] = nil
		}
	}
	return s, nil
}

func frenchNumber(v any) (float64, bool) {
	s, ok := content(v)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

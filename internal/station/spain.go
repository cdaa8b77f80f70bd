package station

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rubiojr/gasfinder/internal/hours"
)

const (
	spanishPricePrefix = "Precio "
	spanishPublicSale  = "P"
	// Stations published without a schedule are open around the clock.
	spanishDefaultSchedule = "L-D: 24H"
)

var (
	madridZone = mustLoadLocation("Europe/Madrid")
	canaryZone = mustLoadLocation("Atlantic/Canary")
)

type spanishPayload struct {
	Fecha             string           `json:"Fecha"`
	ListaEESSPrecio   []map[string]any `json:"ListaEESSPrecio"`
	ResultadoConsulta string           `json:"ResultadoConsulta"`
}

// ParseSpain parses the Ministry feed (ListaEESSPrecio). Numbers use a
// decimal comma, every "Precio <product>" key is a product price and blank
// prices are unknown.
func ParseSpain(raw string) (*Snapshot, error) {
	var payload spanishPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("error unmarshaling spanish feed: %w", err)
	}
	if payload.ListaEESSPrecio == nil {
		return nil, fmt.Errorf("spanish feed without station list")
	}

	stations := make([]*Station, 0, len(payload.ListaEESSPrecio))
	for i, fields := range payload.ListaEESSPrecio {
		s, err := spanishStation(fields)
		if err != nil {
			return nil, fmt.Errorf("error parsing station %d: %w", i, err)
		}
		stations = append(stations, s)
	}
	return NewSnapshot(stations), nil
}

func spanishStation(fields map[string]any) (*Station, error) {
	rawID, _ := content(fields["IDEESS"])
	id, err := strconv.Atoi(strings.TrimSpace(rawID))
	if err != nil {
		return nil, fmt.Errorf("bad IDEESS %q: %w", rawID, err)
	}

	s := &Station{
		ID:            id,
		Name:          text(fields["Rótulo"]),
		Address:       text(fields["Dirección"]),
		City:          text(fields["Localidad"]),
		State:         text(fields["Provincia"]),
		IsPublicPrice: true,
		Prices:        map[string]*float64{},
		TimeZone:      madridZone,
	}

	lat, latOK := spanishNumber(fields["Latitud"])
	lng, lngOK := spanishNumber(fields["Longitud (WGS84)"])
	if latOK && lngOK {
		s.Coordinates = &LatLng{Lat: lat, Lng: lng}
		s.TimeZone = SpainZone(lat, lng)
	}

	if sale, ok := content(fields["Tipo Venta"]); ok {
		s.IsPublicPrice = strings.EqualFold(sale, spanishPublicSale)
	}

	schedule, ok := content(fields["Horario"])
	if !ok {
		schedule = spanishDefaultSchedule
	}
	if oh, err := hours.Parse(schedule); err == nil {
		s.OpeningHours = oh
	}

	for key, value := range fields {
		product, found := strings.CutPrefix(key, spanishPricePrefix)
		if !found {
			continue
		}
		if price, ok := spanishNumber(value); ok {
			s.Prices[product] = &price
		} else {
			s.Prices[product] = nil
		}
	}
	return s, nil
}

// SpainZone returns the zone of a Spanish station: the Canary Islands run an
// hour behind the rest of the country.
func SpainZone(lat, lng float64) *time.Location {
	if SpainLandMass(lat, lng) == LandMassCanary {
		return canaryZone
	}
	return madridZone
}

// ParseSpanishNumber parses a number written with a decimal comma.
func ParseSpanishNumber(s string) (float64, error) {
	s = strings.Replace(strings.TrimSpace(s), ",", ".", 1)
	return strconv.ParseFloat(s, 64)
}

func spanishNumber(v any) (float64, bool) {
	s, ok := content(v)
	if !ok || strings.TrimSpace(s) == "" {
		return 0, false
	}
	f, err := ParseSpanishNumber(s)
	if err != nil {
		return 0, false
	}
	return f, true
}

// content returns the textual form of a JSON scalar. JSON null and absent
// keys report false.
func content(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func text(v any) string {
	s, _ := content(v)
	return strings.TrimSpace(s)
}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("loading time zone %s: %v", name, err))
	}
	return loc
}

package station

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

const spanishFeed = `{
  "Fecha": "01/09/2025 10:04:33",
  "ListaEESSPrecio": [
    {
      "IDEESS": "4375",
      "Rótulo": "REPSOL",
      "Dirección": "CALLE MAYOR, 1",
      "Localidad": "MADRID",
      "Provincia": "MADRID",
      "Latitud": "40,416800",
      "Longitud (WGS84)": "-3,703800",
      "Horario": "L-V: 06:00-22:00; S-D: 08:00-14:00",
      "Precio Gasoleo A": "1,459",
      "Precio Gasolina 95 E5": "",
      "Tipo Venta": "P"
    },
    {
      "IDEESS": "10",
      "Rótulo": "DISA",
      "Latitud": "28,123456",
      "Longitud (WGS84)": "-15,436",
      "Precio Gasoleo A": "1,199",
      "Tipo Venta": "R"
    },
    {
      "IDEESS": "11",
      "Rótulo": "NO COORDS",
      "Latitud": "",
      "Longitud (WGS84)": "",
      "Horario": "nonsense"
    }
  ],
  "Nota": "",
  "ResultadoConsulta": "OK"
}`

func TestParseSpain(t *testing.T) {
	snap, err := ParseSpain(spanishFeed)
	if err != nil {
		t.Fatalf("ParseSpain() failed: %v", err)
	}
	if snap.Len() != 3 {
		t.Fatalf("Len() = %d, expected 3", snap.Len())
	}

	s := snap.ByID(4375)
	if s == nil {
		t.Fatal("ByID(4375) = nil")
	}
	if s.Name != "REPSOL" || s.Address != "CALLE MAYOR, 1" || s.City != "MADRID" || s.State != "MADRID" {
		t.Errorf("unexpected descriptive fields %+v", s)
	}
	if s.Coordinates == nil || s.Coordinates.Lat != 40.4168 || s.Coordinates.Lng != -3.7038 {
		t.Errorf("Coordinates = %+v", s.Coordinates)
	}
	if !s.IsPublicPrice {
		t.Error("expected public price")
	}
	if price, ok := s.Price("Gasoleo A"); !ok || price != 1.459 {
		t.Errorf("Price(Gasoleo A) = %v, %v", price, ok)
	}
	if p, sold := s.Prices["Gasolina 95 E5"]; !sold || p != nil {
		t.Errorf("blank price should be sold at unknown price, got %v, %v", p, sold)
	}
	if _, ok := s.Price("Gasolina 95 E5"); ok {
		t.Error("Price() should not report unknown prices")
	}
	if _, sold := s.Prices["Hidrogeno"]; sold {
		t.Error("products without a key are not sold")
	}
	if got := s.OpeningHours.String(); got != "L-V: 06:00-22:00; S-D: 08:00-14:00" {
		t.Errorf("OpeningHours = %q", got)
	}
	if s.TimeZone.String() != "Europe/Madrid" {
		t.Errorf("TimeZone = %v", s.TimeZone)
	}

	canary := snap.ByID(10)
	if canary.IsPublicPrice {
		t.Error("Tipo Venta R should be restricted")
	}
	if canary.TimeZone.String() != "Atlantic/Canary" {
		t.Errorf("TimeZone = %v, expected Atlantic/Canary", canary.TimeZone)
	}
	if got := canary.OpeningHours.String(); got != "L-D: 24H" {
		t.Errorf("missing Horario should default to 24H, got %q", got)
	}

	unknown := snap.ByID(11)
	if unknown.Coordinates != nil {
		t.Errorf("blank coordinates should be absent, got %+v", unknown.Coordinates)
	}
	if unknown.OpeningHours != nil {
		t.Errorf("unparseable Horario should leave no schedule, got %q", unknown.OpeningHours)
	}
	if got := unknown.Status(time.Now()); got.Open || got.NextChange != nil {
		t.Errorf("Status() = %+v, expected closed for good", got)
	}
}

func TestParseSpainErrors(t *testing.T) {
	tests := []string{
		"not json",
		`{"ResultadoConsulta": "OK"}`,
		`{"ListaEESSPrecio": [{"IDEESS": "abc"}]}`,
		`{"ListaEESSPrecio": [{"Rótulo": "no id"}]}`,
	}
	for _, raw := range tests {
		if _, err := ParseSpain(raw); err == nil {
			t.Errorf("ParseSpain(%q) expected error", raw)
		}
	}
}

func TestParseSpanishNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		hasError bool
	}{
		{"40.4168", 40.4168, false},
		{"40,4168", 40.4168, false},
		{"-3.7038", -3.7038, false},
		{"-3,7038", -3.7038, false},
		{" 1,459 ", 1.459, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, test := range tests {
		result, err := ParseSpanishNumber(test.input)
		if test.hasError {
			if err == nil {
				t.Errorf("ParseSpanishNumber(%q) expected error but got none", test.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSpanishNumber(%q) unexpected error: %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("ParseSpanishNumber(%q) = %f, expected %f", test.input, result, test.expected)
		}
	}
}

const frenchFeed = `[
  {
    "id": "1000001",
    "latitude": "4620114",
    "longitude": 519791,
    "adresse": "596 AVENUE DE TREVOUX",
    "ville": "SAINT-DENIS-LèS-BOURG",
    "departement": "Ain",
    "horaires_jour": "Lundi07.00-19.00, Dimanche",
    "gazole_prix": "1.669",
    "sp98_prix": null,
    "xx_prix": "2.0"
  },
  {
    "id": 20000,
    "latitude": 4215000,
    "longitude": 900000,
    "horaires_jour": "Automate-24-24"
  }
]`

func TestParseFrance(t *testing.T) {
	brands := Brands{1000001: {ID: 1000001, Brand: "Total", Name: "Relais Bourg"}}
	snap, err := ParseFrance(frenchFeed, brands)
	if err != nil {
		t.Fatalf("ParseFrance() failed: %v", err)
	}
	s := snap.ByID(1000001)
	if s == nil {
		t.Fatal("ByID(1000001) = nil")
	}
	if s.Name != "Total - Relais Bourg" {
		t.Errorf("Name = %q", s.Name)
	}
	if s.Address != "596 AVENUE DE TREVOUX" || s.State != "Ain" {
		t.Errorf("unexpected fields %+v", s)
	}
	if s.Coordinates == nil || math.Abs(s.Coordinates.Lat-46.20114) > 1e-9 || math.Abs(s.Coordinates.Lng-5.19791) > 1e-9 {
		t.Errorf("Coordinates = %+v", s.Coordinates)
	}
	if price, ok := s.Price("Gasoleo A"); !ok || price != 1.669 {
		t.Errorf("Price(Gasoleo A) = %v, %v", price, ok)
	}
	if p, sold := s.Prices["Gasolina 98 E5"]; !sold || p != nil {
		t.Errorf("null price should be sold at unknown price, got %v, %v", p, sold)
	}
	if len(s.Prices) != 2 {
		t.Errorf("unknown product codes should be ignored, got %v", s.Prices)
	}
	if !s.IsPublicPrice {
		t.Error("french prices are always public")
	}
	if got := s.OpeningHours.String(); got != "L: 07:00-19:00" {
		t.Errorf("OpeningHours = %q", got)
	}
	if s.TimeZone.String() != "Europe/Paris" {
		t.Errorf("TimeZone = %v", s.TimeZone)
	}

	unnamed := snap.ByID(20000)
	if unnamed.Name != "20000" {
		t.Errorf("Name should fall back to the id, got %q", unnamed.Name)
	}
	if got := unnamed.OpeningHours.String(); got != "L-D: 24H" {
		t.Errorf("OpeningHours = %q", got)
	}
}

func TestLoadBrands(t *testing.T) {
	tsv := "1000001\tTotal\tRelais Bourg\n1000002\tEsso\tExpress Centre\n"
	brands, err := LoadBrands(strings.NewReader(tsv))
	if err != nil {
		t.Fatalf("LoadBrands() failed: %v", err)
	}
	if len(brands) != 2 {
		t.Fatalf("expected 2 brands, got %d", len(brands))
	}
	if b := brands[1000002]; b.Brand != "Esso" || b.Name != "Express Centre" {
		t.Errorf("brands[1000002] = %+v", b)
	}

	if _, err := LoadBrands(strings.NewReader("notanumber\tX\tY\n")); err == nil {
		t.Error("LoadBrands() expected error for a bad id")
	}
}

func TestSpainLandMass(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		expected LandMass
	}{
		{"Madrid", 40.4168, -3.7038, LandMassMainland},
		{"Barcelona", 41.3874, 2.1686, LandMassMainland},
		{"Valencia", 39.4699, -0.3763, LandMassMainland},
		{"Palma", 39.5696, 2.6502, LandMassBalearic},
		{"Ibiza", 38.9067, 1.4206, LandMassBalearic},
		{"Las Palmas", 28.1235, -15.4363, LandMassCanary},
		{"Ceuta", 35.8894, -5.3213, LandMassAutonomousCities},
		{"Melilla", 35.2923, -2.9381, LandMassAutonomousCities},
	}
	for _, test := range tests {
		if got := SpainLandMass(test.lat, test.lng); got != test.expected {
			t.Errorf("SpainLandMass(%s) = %s, expected %s", test.name, got, test.expected)
		}
	}
}

func TestFranceLandMass(t *testing.T) {
	if got := FranceLandMass(41.9192, 8.7386); got != LandMassCorsica {
		t.Errorf("Ajaccio = %s, expected corsica", got)
	}
	if got := FranceLandMass(48.8566, 2.3522); got != LandMassMainland {
		t.Errorf("Paris = %s, expected mainland", got)
	}
	if got := FranceLandMass(43.7102, 7.2620); got != LandMassMainland {
		t.Errorf("Nice = %s, expected mainland", got)
	}
}

func TestLookup(t *testing.T) {
	es, err := Lookup("")
	if err != nil || es.Code != "ES" {
		t.Fatalf("Lookup(\"\") = %v, %v", es, err)
	}
	fr, err := Lookup("fr")
	if err != nil || fr.Code != "FR" {
		t.Fatalf("Lookup(\"fr\") = %v, %v", fr, err)
	}
	if !fr.SellsProduct("Gasolina 95 E85") || fr.SellsProduct("Hidrogeno") {
		t.Error("unexpected french product catalog")
	}
	if fr.Zone(48.8, 2.3).String() != "Europe/Paris" {
		t.Errorf("Zone() = %v", fr.Zone(48.8, 2.3))
	}
	if es.Zone(28.1, -15.4).String() != "Atlantic/Canary" {
		t.Errorf("Zone() = %v", es.Zone(28.1, -15.4))
	}
	if fr.Source().URL() == es.Source().URL() {
		t.Error("countries should use different feeds")
	}

	snap, err := es.Parser(nil)(spanishFeed)
	if err != nil || snap.Len() != 3 {
		t.Errorf("Parser() = %v, %v", snap, err)
	}

	if _, err := Lookup("PT"); !errors.Is(err, ErrUnknownCountry) {
		t.Errorf("Lookup(\"PT\") expected ErrUnknownCountry, got %v", err)
	}
	if got := Codes(); len(got) != 2 || got[0] != "ES" || got[1] != "FR" {
		t.Errorf("Codes() = %v", got)
	}
}

func TestSnapshotNil(t *testing.T) {
	var snap *Snapshot
	if snap.ByID(1) != nil || snap.Len() != 0 {
		t.Error("nil snapshot should be empty")
	}
}

func TestResolveProduct(t *testing.T) {
	spain, _ := Lookup("ES")
	france, _ := Lookup("FR")

	tests := []struct {
		country  *Country
		name     string
		expected string
		ok       bool
	}{
		{spain, "Gasoleo A", "Gasoleo A", true},
		{spain, "gasoleo a", "Gasoleo A", true},
		{spain, "gasolina95e10", "Gasolina 95 E10", true},
		{spain, "gasolina95", "Gasolina 95 E5", true},
		{spain, "diesel", "Gasoleo A", true},
		{spain, "glp", "Gases licuados del petróleo", true},
		{spain, "hidrogeno", "Hidrogeno", true},
		{spain, "kerosene", "", false},
		{france, "gnc", "", false},
		{france, "Gasolina 95 E85", "Gasolina 95 E85", true},
	}
	for _, tt := range tests {
		got, ok := tt.country.ResolveProduct(tt.name)
		if got != tt.expected || ok != tt.ok {
			t.Errorf("%s.ResolveProduct(%q) = %q, %v, expected %q, %v", tt.country.Code, tt.name, got, ok, tt.expected, tt.ok)
		}
	}
}

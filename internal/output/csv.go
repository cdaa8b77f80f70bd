package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rubiojr/gasfinder/internal/filter"
)

// Row is one exported station.
type Row struct {
	ID         int     `csv:"id"`
	Name       string  `csv:"name"`
	Address    string  `csv:"address"`
	City       string  `csv:"city"`
	State      string  `csv:"state"`
	Lat        float64 `csv:"lat,omitempty"`
	Lng        float64 `csv:"lng,omitempty"`
	Product    string  `csv:"product"`
	Price      float64 `csv:"price"`
	DistanceKm float64 `csv:"distance_km,omitempty"`
	Public     bool    `csv:"public"`
	Open       bool    `csv:"open"`
	Hours      string  `csv:"hours,omitempty"`
}

// Rows converts ranked stations into export rows.
func Rows(ranked []filter.Ranked, product string, now time.Time) []Row {
	rows := make([]Row, 0, len(ranked))
	for _, r := range ranked {
		s := r.Station
		row := Row{
			ID:      s.ID,
			Name:    s.Name,
			Address: s.Address,
			City:    s.City,
			State:   s.State,
			Product: product,
			Price:   r.Price,
			Public:  s.IsPublicPrice,
			Open:    s.Status(now).Open,
		}
		if lat, lng, ok := s.Location(); ok {
			row.Lat, row.Lng = lat, lng
		}
		if !math.IsInf(r.Distance, 0) {
			row.DistanceKm = math.Round(r.Distance) / metersPerKm
		}
		if s.OpeningHours != nil {
			row.Hours = s.OpeningHours.String()
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(rows) == 0 {
		if err := enc.EncodeHeader(Row{}); err != nil {
			return fmt.Errorf("error writing csv header: %w", err)
		}
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("error writing csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("error writing csv: %w", err)
	}
	return nil
}

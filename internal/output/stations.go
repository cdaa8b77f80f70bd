// Package output renders station selections for terminals and files.
package output

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/rubiojr/gasfinder/internal/filter"
	"github.com/rubiojr/gasfinder/internal/hours"
	"github.com/rubiojr/gasfinder/internal/station"
)

const metersPerKm = 1000.0

// TableOptions configures the station listing
type TableOptions struct {
	Colors  *Colors
	Product string
	Now     time.Time
}

// RenderStations renders ranked stations as a numbered list, nearest first.
// The cheapest price of the list is highlighted.
func RenderStations(w io.Writer, ranked []filter.Ranked, opts TableOptions) {
	if len(ranked) == 0 {
		_, _ = fmt.Fprintln(w, "No stations found.")
		return
	}

	c := opts.Colors
	if c == nil {
		c = NewColors(ColorNever)
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cheapest := math.Inf(1)
	for _, r := range ranked {
		cheapest = min(cheapest, r.Price)
	}

	if opts.Product != "" {
		_, _ = fmt.Fprintln(w, c.Header("%s prices", opts.Product))
		_, _ = fmt.Fprintln(w)
	}

	for i, r := range ranked {
		s := r.Station
		_, _ = fmt.Fprintf(w, "%d. %s %s\n", i+1, c.Name(s.Name), c.Muted("(%s)", s.Address))
		_, _ = fmt.Fprintf(w, "   %s %s\n", c.Muted("City:"), s.City)
		_, _ = fmt.Fprintf(w, "   %s %s\n", c.Muted("Distance:"), FormatDistance(r.Distance))

		price := c.Price("%.3f €", r.Price)
		if r.Price == cheapest {
			price = c.Cheapest("%.3f € (cheapest)", r.Price)
		}
		if !s.IsPublicPrice {
			price += c.Muted(" restricted sale")
		}
		_, _ = fmt.Fprintf(w, "   %s %s\n", c.Muted("Price:"), price)
		_, _ = fmt.Fprintf(w, "   %s %s\n\n", c.Muted("Status:"), statusText(c, s, now))
	}

	_, _ = fmt.Fprintf(w, "Found %d stations\n", len(ranked))
}

// FormatDistance renders meters as kilometers, "?" when unknown.
func FormatDistance(meters float64) string {
	if math.IsInf(meters, 0) || math.IsNaN(meters) {
		return "?"
	}
	return fmt.Sprintf("%.2f km", meters/metersPerKm)
}

func statusText(c *Colors, s *station.Station, now time.Time) string {
	if s.OpeningHours == nil {
		return c.Muted("hours unknown")
	}
	return FormatStatus(c, s.Status(now), now)
}

// FormatStatus describes an opening status relative to now.
func FormatStatus(c *Colors, st hours.Status, now time.Time) string {
	if c == nil {
		c = NewColors(ColorNever)
	}
	switch {
	case st.Open && st.NextChange == nil:
		return c.Open("open 24h")
	case st.Open:
		return c.Open("open until %s", clock(*st.NextChange, now))
	case st.NextChange == nil:
		return c.Closed("closed")
	default:
		return c.Closed("closed, opens %s", clock(*st.NextChange, now))
	}
}

// clock formats t, adding the weekday when it is not on the day of now.
func clock(t, now time.Time) string {
	now = now.In(t.Location())
	if t.YearDay() == now.YearDay() && t.Year() == now.Year() {
		return t.Format("15:04")
	}
	return t.Format("Mon 15:04")
}

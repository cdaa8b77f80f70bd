package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rubiojr/gasfinder/internal/geocode"
	"github.com/rubiojr/gasfinder/internal/output"
	"github.com/rubiojr/gasfinder/internal/search"
	"github.com/rubiojr/gasfinder/internal/station"
	"github.com/urfave/cli/v2"
)

func nearbyCommand() *cli.Command {
	return &cli.Command{
		Name:    "nearby",
		Aliases: []string{"list-nearby"},
		Usage:   "List nearby gas stations, cheapest first among the closest",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "location",
				Usage: "Location to search",
			},
			&cli.Float64Flag{
				Name:  "lat",
				Usage: "Latitude of the location",
			},
			&cli.Float64Flag{
				Name:  "long",
				Usage: "Longitude of the location",
			},
			&cli.StringFlag{
				Name:  "to",
				Usage: "Destination, ranks stations by the detour they add",
			},
			&cli.Float64Flag{
				Name:  "to-lat",
				Usage: "Latitude of the destination",
			},
			&cli.Float64Flag{
				Name:  "to-long",
				Usage: "Longitude of the destination",
			},
			&cli.Float64Flag{
				Name:    "radius",
				Aliases: []string{"r"},
				Usage:   "Search radius in kilometers, 0 for no limit",
				Value:   search.DefaultRadiusKm,
			},
			&cli.StringFlag{
				Name:    "product",
				Aliases: []string{"p"},
				Usage:   "Fuel to compare (name or alias such as diesel, gasolina95)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of stations to show, 0 for all",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format (table, csv)",
				Value: "table",
			},
			&cli.BoolFlag{
				Name:  "only-public",
				Usage: "Skip stations with restricted sale",
			},
			&cli.BoolFlag{
				Name:  "show-expensive",
				Usage: "Keep stations that are both further and pricier",
			},
			&cli.IntFlag{
				Name:  "closed-margin",
				Usage: "Hide stations closed for longer than this many minutes",
			},
			&cli.BoolFlag{
				Name:  "overseas",
				Usage: "Include stations across the sea",
			},
			&cli.BoolFlag{
				Name:  "refresh",
				Usage: "Download the feed even if the cache is recent",
			},
		},
		Action: nearbyAction,
	}
}

func nearbyAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}

	product := e.cfg.ProductOrDefault(e.country)
	if c.IsSet("product") {
		resolved, ok := e.country.ResolveProduct(c.String("product"))
		if !ok {
			return fmt.Errorf("unknown product %q, available: %v", c.String("product"), e.country.Products)
		}
		product = resolved
	}

	geocoder := geocode.New(geocode.WithLogger(e.log))
	origin, err := resolvePoint(geocoder, c.String("location"), c.Float64("lat"), c.Float64("long"))
	if err != nil {
		return err
	}
	if origin == nil {
		return errors.New("location or latitude and longitude are required")
	}
	destination, err := resolvePoint(geocoder, c.String("to"), c.Float64("to-lat"), c.Float64("to-long"))
	if err != nil {
		return err
	}

	cfg := e.cfg.FilterConfig()
	if c.IsSet("only-public") {
		cfg.OnlyPublicPrices = c.Bool("only-public")
	}
	if c.IsSet("show-expensive") {
		cfg.HideExpensiveFurther = !c.Bool("show-expensive")
	}
	if c.IsSet("closed-margin") {
		cfg.HideClosedMarginInMinutes = c.Int("closed-margin")
	}

	repo, err := e.openRepository(c.Context)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := refresh(c.Context, repo, c.Bool("refresh")); err != nil {
		if repo.GetData() == nil {
			return err
		}
		e.log.Warn("using cached prices", "error", err)
	}

	now := time.Now()
	ranked, err := search.Run(repo.GetData(), e.country, cfg, search.Query{
		Origin:          *origin,
		Destination:     destination,
		Product:         product,
		RadiusKm:        c.Float64("radius"),
		Limit:           c.Int("limit"),
		IncludeOverseas: c.Bool("overseas"),
	}, now)
	if err != nil {
		return err
	}

	storage, err := e.openArchive(c.Context, false)
	if err != nil {
		return err
	}
	if storage != nil {
		defer storage.Close()
		if err := storage.LogSearchLocation(c.Context, origin.Lat, origin.Lng, c.Float64("radius")); err != nil {
			e.log.Warn("error logging search location", "error", err)
		}
	}

	switch c.String("format") {
	case "csv":
		return output.WriteCSV(os.Stdout, output.Rows(ranked, product, now))
	case "table":
		output.RenderStations(os.Stdout, ranked, output.TableOptions{
			Colors:  e.colors,
			Product: product,
			Now:     now,
		})
		return nil
	default:
		return fmt.Errorf("unknown format %q", c.String("format"))
	}
}

// resolvePoint geocodes name, or uses lat and lng when no name is given.
// It returns nil when neither is set.
func resolvePoint(g *geocode.Geocoder, name string, lat, lng float64) (*station.LatLng, error) {
	if name != "" {
		place, err := g.Locate(name)
		if err != nil {
			return nil, fmt.Errorf("error locating %q: %w", name, err)
		}
		fmt.Fprintln(os.Stderr, "Location found:", place.DisplayName)
		return &station.LatLng{Lat: place.Lat, Lng: place.Lng}, nil
	}
	if lat == 0 && lng == 0 {
		return nil, nil
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("invalid coordinates %g, %g", lat, lng)
	}
	return &station.LatLng{Lat: lat, Lng: lng}, nil
}

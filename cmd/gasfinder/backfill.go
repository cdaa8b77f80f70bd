package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rubiojr/gasfinder/pkg/api"
	"github.com/urfave/cli/v2"
)

const defaultSleepMs = 200

// firstArchivedDay is the oldest day served by the Spanish history endpoint.
var firstArchivedDay = time.Date(2007, 1, 1, 0, 0, 0, 0, time.UTC)

func backfillCommand() *cli.Command {
	return &cli.Command{
		Name:  "backfill",
		Usage: "Archive historic prices for the days missing in the database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "start",
				Usage: "Start date (YYYY-MM-DD)",
			},
			&cli.StringFlag{
				Name:  "end",
				Usage: "End date (YYYY-MM-DD), defaults to yesterday",
			},
			&cli.DurationFlag{
				Name:  "pause",
				Usage: "Pause between requests",
				Value: defaultSleepMs * time.Millisecond,
			},
		},
		Action: backfillAction,
	}
}

func backfillAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	start, err := parseDate(c.String("start"), firstArchivedDay)
	if err != nil {
		return err
	}
	end, err := parseDate(c.String("end"), time.Now().AddDate(0, 0, -1))
	if err != nil {
		return err
	}

	storage, err := e.openArchive(c.Context, true)
	if err != nil {
		return err
	}
	defer storage.Close()

	missing, err := storage.MissingDates(c.Context, e.country.Code, start, end)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		fmt.Println("No missing days in the given range.")
		return nil
	}

	fuelAPI := e.source()
	saved := 0
	for _, date := range missing {
		day := date.Format(dateLayout)
		e.log.Debug("fetching data for", "date", day)

		prices, err := fuelAPI.FetchPricesForDate(c.Context, date)
		if errors.Is(err, api.ErrNoHistory) {
			return fmt.Errorf("%s feed has no historic prices", e.country.Name)
		}
		if err != nil {
			if c.Context.Err() != nil {
				return c.Context.Err()
			}
			e.log.Warn("error fetching prices for date", "date", day, "error", err)
			continue
		}

		if published, err := prices.Date(); err == nil && published.Format(dateLayout) != day {
			e.log.Warn("feed returned another day", "requested", day, "published", published.Format(dateLayout))
		}

		data, err := json.Marshal(prices)
		if err != nil {
			e.log.Warn("error marshaling JSON", "date", day, "error", err)
			continue
		}
		if err := storage.SavePrices(c.Context, e.country.Code, date, string(data)); err != nil {
			return fmt.Errorf("error saving data for %s: %w", day, err)
		}
		saved++
		e.log.Info("saved data", "date", day, "stations", len(prices.ListaEESSPrecio))

		select {
		case <-c.Context.Done():
			return c.Context.Err()
		case <-time.After(c.Duration("pause")):
		}
	}

	fmt.Printf("Archived %d of %d missing days\n", saved, len(missing))
	return nil
}

package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
)

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Show the archived prices of a Spanish station",
		ArgsUsage: "STATION_ID",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of days to show",
				Value: 30,
			},
			&cli.BoolFlag{
				Name:  "searches",
				Usage: "Show the most searched locations instead",
			},
		},
		Action: historyAction,
	}
}

func historyAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	storage, err := e.openArchive(c.Context, true)
	if err != nil {
		return err
	}
	defer storage.Close()

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	if c.Bool("searches") {
		logs, err := storage.GetLocationLogs(c.Context, c.Int("limit"))
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, e.colors.Header("LAT\tLNG\tRADIUS\tSEARCHES\tLAST SEARCH"))
		for _, l := range logs {
			fmt.Fprintf(tw, "%.2f\t%.2f\t%g\t%d\t%s\n", l.Latitude, l.Longitude, l.Distance, l.SearchCount, l.LastSearch.Format("2006-01-02 15:04"))
		}
		return nil
	}

	if c.NArg() != 1 {
		return fmt.Errorf("expected a station id, got %d arguments", c.NArg())
	}
	history, err := storage.StationHistory(c.Context, c.Args().First(), c.Int("limit"))
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("No archived prices for station", c.Args().First())
		return nil
	}

	first := history[0]
	fmt.Fprintln(tw, e.colors.Name("%s (%s)", first.Brand, first.City))
	fmt.Fprintln(tw, e.colors.Header("DATE\tGASOLEO A\tGASOLEO PREMIUM\tGASOLINA 95\tGASOLINA 98"))
	for _, h := range history {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", h.Date.Format(dateLayout),
			decimal(h.GasoleoA), decimal(h.GasoleoPremium), decimal(h.Gasolina95E5), decimal(h.Gasolina98E5))
	}
	return nil
}

func decimal(value string) string {
	if value == "" {
		return "-"
	}
	return strings.Replace(value, ",", ".", 1)
}

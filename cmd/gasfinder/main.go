package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "gasfinder",
		Usage: "Find open and cheap fuel stations nearby or along a trip",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "country",
				Aliases: []string{"c"},
				Usage:   "Country feed to use (ES, FR)",
			},
			&cli.StringFlag{
				Name:  "cache-dir",
				Usage: "Directory holding the downloaded feeds",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Price archive database file",
			},
			&cli.StringFlag{
				Name:  "brands",
				Usage: "Tab separated brands file used to name French stations",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "color",
				Usage: "Color output (auto, always, never)",
				Value: "auto",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Environment file to load settings from",
				Value: ".env",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Timeout for feed downloads",
				Value: 2 * time.Minute,
			},
		},
		Commands: []*cli.Command{
			nearbyCommand(),
			updateCommand(),
			backfillCommand(),
			checkStatusCommand(),
			historyCommand(),
			pruneCommand(),
			hoursCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

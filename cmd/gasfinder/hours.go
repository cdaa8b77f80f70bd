package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rubiojr/gasfinder/internal/hours"
	"github.com/rubiojr/gasfinder/internal/output"
	"github.com/urfave/cli/v2"
)

func hoursCommand() *cli.Command {
	return &cli.Command{
		Name:      "hours",
		Usage:     "Parse an opening hours string and tell whether it is open",
		ArgsUsage: "SCHEDULE",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "french",
				Usage: "Parse the French feed format",
			},
			&cli.StringFlag{
				Name:  "at",
				Usage: "Instant to evaluate (YYYY-MM-DD HH:MM), defaults to now",
			},
			&cli.StringFlag{
				Name:  "zone",
				Usage: "Time zone of the station",
				Value: "Europe/Madrid",
			},
		},
		Action: hoursAction,
	}
}

func hoursAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("expected a schedule such as %q", "L-V: 07:00-22:00; S: 08:00-14:00")
	}
	spec := strings.Join(c.Args().Slice(), " ")

	parse := hours.Parse
	if c.Bool("french") {
		parse = hours.ParseFrench
	}
	oh, err := parse(spec)
	if err != nil {
		return err
	}

	loc, err := time.LoadLocation(c.String("zone"))
	if err != nil {
		return fmt.Errorf("invalid time zone: %w", err)
	}
	at := time.Now()
	if v := c.String("at"); v != "" {
		at, err = time.ParseInLocation("2006-01-02 15:04", v, loc)
		if err != nil {
			return fmt.Errorf("invalid instant %q: %w", v, err)
		}
	}

	colors := output.NewColors(output.ParseColorMode(c.String("color")))
	fmt.Println(colors.Name("%s", oh))
	fmt.Println(output.FormatStatus(colors, oh.Status(at, loc), at))
	return nil
}

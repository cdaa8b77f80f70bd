package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

func checkStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "check-status",
		Usage: "Check for days with missing fuel prices",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "start",
				Usage: "Start date (YYYY-MM-DD)",
			},
			&cli.StringFlag{
				Name:  "end",
				Usage: "End date (YYYY-MM-DD)",
			},
		},
		Action: checkStatusAction,
	}
}

func checkStatusAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	storage, err := e.openArchive(c.Context, true)
	if err != nil {
		return err
	}
	defer storage.Close()

	last, err := storage.GetLastUpdateDate(c.Context, e.country.Code)
	if err != nil {
		return err
	}
	if last == nil {
		fmt.Println("No dates found in database.")
		return nil
	}
	fmt.Println("Last archived day:", last.Format(dateLayout))

	startDate, err := parseDate(c.String("start"), firstArchivedDay)
	if err != nil {
		return err
	}
	endDate, err := parseDate(c.String("end"), time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("Checking for missing days in range: %s to %s\n", startDate.Format(dateLayout), endDate.Format(dateLayout))

	missing, err := storage.MissingDates(c.Context, e.country.Code, startDate, endDate)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		fmt.Println("No missing days in the given range.")
		return nil
	}
	fmt.Println("Missing days:")
	for _, m := range missing {
		fmt.Println(m.Format(dateLayout))
	}
	return nil
}

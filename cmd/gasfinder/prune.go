package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func pruneCommand() *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "Delete archived prices older than the given number of days",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "days",
				Usage: "Keep this many days",
				Value: 365,
			},
		},
		Action: pruneAction,
	}
}

func pruneAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	if c.Int("days") < 1 {
		return fmt.Errorf("invalid number of days: %d", c.Int("days"))
	}
	storage, err := e.openArchive(c.Context, true)
	if err != nil {
		return err
	}
	defer storage.Close()

	deleted, err := storage.DeleteOldRecords(c.Context, c.Int("days"))
	if err != nil {
		return err
	}
	if err := storage.VacuumDatabase(c.Context); err != nil {
		return err
	}
	fmt.Printf("Deleted %d archived days\n", deleted)
	return nil
}

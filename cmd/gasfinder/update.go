package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

func updateCommand() *cli.Command {
	return &cli.Command{
		Name:   "update",
		Usage:  "Download the latest prices and archive them when a database is set",
		Action: updateAction,
	}
}

func updateAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}

	repo, err := e.openRepository(c.Context)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := refresh(c.Context, repo, true); err != nil {
		return err
	}
	fmt.Printf("Updated %s prices: %d stations in %s\n", e.country.Name, repo.GetData().Len(), repo.CachePath())

	storage, err := e.openArchive(c.Context, false)
	if err != nil || storage == nil {
		return err
	}
	defer storage.Close()

	raw, ok := repo.Cache()
	if !ok {
		return errors.New("no downloaded prices to archive")
	}
	if err := storage.SavePrices(c.Context, e.country.Code, time.Now(), raw); err != nil {
		return err
	}
	fmt.Println("Archived prices in", e.cfg.DBPath)
	return nil
}

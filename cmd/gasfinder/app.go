package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rubiojr/gasfinder/internal/archive"
	"github.com/rubiojr/gasfinder/internal/config"
	"github.com/rubiojr/gasfinder/internal/output"
	"github.com/rubiojr/gasfinder/internal/repository"
	"github.com/rubiojr/gasfinder/internal/station"
	"github.com/rubiojr/gasfinder/pkg/api"
	"github.com/urfave/cli/v2"
)

const dateLayout = "2006-01-02"

// env is what every command needs: settings, logging and the country feed.
type env struct {
	cfg     *config.Config
	log     *slog.Logger
	country *station.Country
	colors  *output.Colors
	timeout time.Duration
}

func newEnv(c *cli.Context) (*env, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	country, err := cfg.CountryInfo()
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:     cfg,
		log:     newLogger(cfg),
		country: country,
		colors:  output.NewColors(output.ParseColorMode(c.String("color"))),
		timeout: c.Duration("timeout"),
	}, nil
}

// loadConfig layers defaults, the environment file, the environment and
// finally the command line flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := config.LoadDotEnv(c.String("env-file")); err != nil {
		return nil, err
	}
	cfg := config.DefaultConfig()
	cfg.LoadFromEnv()

	if c.IsSet("country") {
		cfg.Country = strings.ToUpper(c.String("country"))
	}
	if c.IsSet("cache-dir") {
		cfg.CacheDir = c.String("cache-dir")
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("brands") {
		cfg.BrandsPath = c.String("brands")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
}

func loadBrands(path string) (station.Brands, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening brands file: %w", err)
	}
	defer f.Close()
	return station.LoadBrands(f)
}

func (e *env) source() *api.FuelPriceAPI {
	return e.country.Source(api.WithTimeout(e.timeout))
}

func (e *env) openRepository(ctx context.Context, opts ...repository.Option) (*repository.Repository, error) {
	brands, err := loadBrands(e.cfg.BrandsPath)
	if err != nil {
		return nil, err
	}
	opts = append([]repository.Option{
		repository.WithLogger(e.log),
		repository.WithContext(ctx),
	}, opts...)
	return repository.New(e.source(), e.cfg.CachePath(), e.country.Parser(brands), opts...), nil
}

// openArchive opens the price archive. It fails when no database is
// configured and required is set; otherwise it returns nil.
func (e *env) openArchive(ctx context.Context, required bool) (*archive.Storage, error) {
	if e.cfg.DBPath == "" {
		if required {
			return nil, errors.New("no archive database configured, use --db or GASFINDER_DB")
		}
		return nil, nil
	}
	storage, err := archive.NewStorage(ctx, e.cfg.DBPath, e.log)
	if err != nil {
		return nil, fmt.Errorf("error initializing storage: %w", err)
	}
	return storage, nil
}

// refresh waits for the cache to load and then downloads the feed when it
// is expired, or always when force is set. It returns once the download
// finished or ctx is done.
func refresh(ctx context.Context, repo *repository.Repository, force bool) error {
	repo.Wait()
	if !force && !repo.IsExpired() {
		return nil
	}

	events, unsubscribe := repo.Subscribe()
	defer unsubscribe()
	repo.LaunchFetch()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return errors.New("repository closed")
			}
			switch ev.Kind {
			case repository.UpdateReady:
				return nil
			case repository.UpdateFailed:
				return fmt.Errorf("error updating prices: %s", ev.Message)
			}
		case <-ctx.Done():
			repo.CancelFetch()
			return ctx.Err()
		}
	}
}

func parseDate(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return d, nil
}

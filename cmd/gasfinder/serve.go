package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rubiojr/gasfinder/internal/archive"
	"github.com/rubiojr/gasfinder/internal/geocode"
	"github.com/rubiojr/gasfinder/internal/metrics"
	"github.com/rubiojr/gasfinder/internal/repository"
	"github.com/rubiojr/gasfinder/internal/server"
	"github.com/urfave/cli/v2"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve station searches over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "HTTP listen address",
			},
			&cli.DurationFlag{
				Name:  "update-interval",
				Usage: "How often to download the feed",
				Value: repository.DefaultExpiry,
			},
			&cli.IntFlag{
				Name:  "rate-limit",
				Usage: "Requests per minute per client, 0 to disable",
				Value: server.DefaultRequestsPerMinute,
			},
			&cli.BoolFlag{
				Name:  "json-logs",
				Usage: "Log requests as JSON",
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	addr := e.cfg.HTTPAddr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}

	logger := httplog.NewLogger("gasfinder", httplog.Options{
		JSON:            c.Bool("json-logs"),
		LogLevel:        e.cfg.Level(),
		Concise:         true,
		QuietDownPeriod: 10 * time.Second,
	})
	e.log = logger.Logger

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	updates := make(chan repository.Event, 8)
	repo, err := e.openRepository(ctx,
		repository.WithExpiry(c.Duration("update-interval")),
		repository.WithMetrics(metrics.New(reg), e.country.Code),
		repository.WithSubscription(updates),
	)
	if err != nil {
		return err
	}
	defer repo.Close()

	storage, err := e.openArchive(ctx, false)
	if err != nil {
		return err
	}
	if storage != nil {
		defer storage.Close()
	}
	archived := make(chan struct{})
	go func() {
		defer close(archived)
		archiveUpdates(ctx, repo, storage, e.country.Code, updates, e.log)
	}()
	// Runs before storage.Close so no save is left in flight.
	defer func() {
		cancel()
		<-archived
	}()

	// Download on start when the cache is missing or old, then periodically.
	go func() {
		ticker := time.NewTicker(c.Duration("update-interval"))
		defer ticker.Stop()

		repo.Wait()
		for {
			if repo.GetData() == nil || repo.IsExpired() {
				repo.LaunchFetch()
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				repo.LaunchFetch()
			}
		}
	}()

	router, err := server.NewRouter(repo, server.Options{
		Country:           e.country,
		Filter:            e.cfg.FilterConfig(),
		Gatherer:          reg,
		Locator:           geocode.New(geocode.WithLogger(e.log)),
		Logger:            logger,
		RequestsPerMinute: c.Int("rate-limit"),
	})
	if err != nil {
		return err
	}
	httpServer := server.New(addr, router, e.log)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpServer.Start(); err != nil {
			e.log.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	select {
	case sig := <-sigCh:
		e.log.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		e.log.Error("HTTP server shutdown error", "error", err)
	}
	cancel()
	e.log.Info("shutdown complete")
	return nil
}

// archiveUpdates saves every payload the repository makes available, dated
// by the day it was downloaded. It returns when ctx is done or updates is
// closed.
func archiveUpdates(ctx context.Context, repo *repository.Repository, storage *archive.Storage, country string, updates <-chan repository.Event, log *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-updates:
			if !ok {
				return
			}
			switch ev.Kind {
			case repository.UpdateFailed:
				log.Warn("price update failed", "error", ev.Message)
			case repository.UpdateReady:
				log.Info("prices ready", "stations", repo.GetData().Len())
				if storage == nil {
					continue
				}
				raw, ok := repo.Cache()
				if !ok {
					continue
				}
				info, err := os.Stat(repo.CachePath())
				if err != nil {
					log.Warn("error reading cache file", "error", err)
					continue
				}
				if err := storage.SavePrices(ctx, country, info.ModTime(), raw); err != nil {
					log.Error("error archiving prices", "error", err)
				}
			}
		}
	}
}

package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rubiojr/gasfinder/internal/archive"
	"github.com/rubiojr/gasfinder/internal/repository"
)

func TestArchiveUpdates(t *testing.T) {
	ctx := context.Background()
	storage, err := archive.NewStorage(ctx, filepath.Join(t.TempDir(), "archive.db"), nil)
	if err != nil {
		t.Fatalf("NewStorage() failed: %v", err)
	}
	defer storage.Close()

	updates := make(chan repository.Event, 8)
	path := filepath.Join(t.TempDir(), "FR.json")
	repo := repository.New(&stubSource{raw: "a,b"}, path, parseCount, repository.WithSubscription(updates))
	defer repo.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		archiveUpdates(ctx, repo, storage, "FR", updates, slog.New(slog.DiscardHandler))
	}()

	repo.LaunchFetch()
	repo.Wait()
	close(updates)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("archiveUpdates should return once updates is closed")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("cache file not written: %v", err)
	}
	raw, err := storage.GetPrices(ctx, "FR", info.ModTime())
	if err != nil {
		t.Fatalf("GetPrices() failed: %v", err)
	}
	if raw != "a,b" {
		t.Errorf("archived payload = %q, expected %q", raw, "a,b")
	}
}

func TestArchiveUpdatesStopsWithContext(t *testing.T) {
	repo := repository.New(&stubSource{}, filepath.Join(t.TempDir(), "FR.json"), parseCount)
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		archiveUpdates(ctx, repo, nil, "FR", make(chan repository.Event), slog.New(slog.DiscardHandler))
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("archiveUpdates should return once ctx is done")
	}
}

// Package repository keeps the latest station snapshot of a feed. Readers get
// the best known snapshot without blocking while the repository refreshes it
// in the background, one task at a time, persisting every good payload to a
// cache file.
package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rubiojr/gasfinder/internal/metrics"
	"github.com/rubiojr/gasfinder/internal/station"
)

// DefaultExpiry is how long a cache file is fresh after being written.
const DefaultExpiry = 30 * time.Minute

// Source fetches the raw payload of a feed.
type Source interface {
	Fetch(ctx context.Context) (string, error)
}

// Parser turns a raw payload into a snapshot.
type Parser func(raw string) (*station.Snapshot, error)

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		r.log = logger
	}
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// WithExpiry sets how long the cache file stays fresh.
func WithExpiry(d time.Duration) Option {
	return func(r *Repository) {
		r.expiry = d
	}
}

// WithMetrics records fetches and snapshots under the given label.
func WithMetrics(m *metrics.Metrics, label string) Option {
	return func(r *Repository) {
		r.metrics = m
		r.label = label
	}
}

// WithContext sets the parent context of every background task.
func WithContext(ctx context.Context) Option {
	return func(r *Repository) {
		r.parent = ctx
	}
}

// WithSubscription delivers events to ch from construction on, so the
// initial cache load can be observed. ch is never closed by the repository.
// Sends never block: events that do not fit in ch are dropped, so give it
// enough buffer for the reader to keep up.
func WithSubscription(ch chan<- Event) Option {
	return func(r *Repository) {
		r.external = append(r.external, ch)
	}
}

// Repository serves the snapshot of a single feed backed by a cache file.
type Repository struct {
	source  Source
	parser  Parser
	log     *slog.Logger
	now     func() time.Time
	expiry  time.Duration
	metrics *metrics.Metrics
	label   string
	parent  context.Context
	stop    context.CancelFunc

	mu        sync.Mutex
	idle      *sync.Cond
	cachePath string
	raw       *string
	snapshot  *station.Snapshot
	// generation identifies the current task. Tasks commit only while the
	// generation they were launched with is still current.
	generation uint64
	active     bool
	cancel     context.CancelFunc
	running    int
	closed     bool

	subscribers    map[int]chan Event
	nextSubscriber int
	external       []chan<- Event

	wg sync.WaitGroup
}

// New creates a repository and, when cachePath exists, starts loading it.
func New(source Source, cachePath string, parser Parser, opts ...Option) *Repository {
	r := &Repository{
		source:      source,
		parser:      parser,
		log:         slog.New(slog.DiscardHandler),
		now:         time.Now,
		expiry:      DefaultExpiry,
		label:       "default",
		parent:      context.Background(),
		cachePath:   cachePath,
		subscribers: map[int]chan Event{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.idle = sync.NewCond(&r.mu)
	r.parent, r.stop = context.WithCancel(r.parent)

	r.mu.Lock()
	defer r.mu.Unlock()
	if fileExists(cachePath) {
		r.startLocked("load", r.load)
	}
	return r
}

// GetData returns the best known snapshot, nil before any successful load.
// When the data is expired it launches a fetch without waiting for it.
func (r *Repository) GetData() *station.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.expiredLocked() {
		r.launchLocked()
	}
	return r.snapshot
}

// GetStationByID returns the station with the given ID from GetData.
func (r *Repository) GetStationByID(id int) *station.Station {
	return r.GetData().ByID(id)
}

// LaunchFetch starts fetching the feed unless a task is already running.
func (r *Repository) LaunchFetch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.launchLocked()
}

func (r *Repository) launchLocked() {
	if r.closed {
		return
	}
	if r.active {
		r.log.Debug("fetch already in progress, skipping")
		return
	}
	r.startLocked("fetch", r.fetch)
}

// SetCache switches to another cache file. The running task is cancelled and
// the snapshot dropped; the new file is then loaded. When it does not exist a
// single UpdateReady signals that the now empty data should be read again.
func (r *Repository) SetCache(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.log.Info("switching cache", "path", path)
	r.supersedeLocked()
	r.cachePath = path
	r.raw = nil
	r.snapshot = nil
	if !fileExists(path) {
		r.emitLocked(Event{Kind: UpdateReady})
		return
	}
	r.startLocked("load", r.load)
}

// CancelFetch cancels the running task, if any. No event is emitted.
func (r *Repository) CancelFetch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		r.log.Info("cancelling running task")
		r.supersedeLocked()
	}
}

// IsFetchInProgress reports whether a load or a fetch is running.
func (r *Repository) IsFetchInProgress() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// IsExpired reports whether there is no data or the cache file is older than
// the expiry window.
func (r *Repository) IsExpired() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.expiredLocked()
}

func (r *Repository) expiredLocked() bool {
	if r.snapshot == nil {
		return true
	}
	info, err := os.Stat(r.cachePath)
	if err != nil {
		return true
	}
	return !info.ModTime().After(r.now().Add(-r.expiry))
}

// Cache returns the raw payload the current snapshot was parsed from.
func (r *Repository) Cache() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.raw == nil {
		return "", false
	}
	return *r.raw, true
}

// ClearCache drops the payload, the snapshot and the cache file.
func (r *Repository) ClearCache() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raw = nil
	r.snapshot = nil
	if err := os.Remove(r.cachePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error removing cache file: %w", err)
	}
	return nil
}

// CachePath returns the active cache file path.
func (r *Repository) CachePath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cachePath
}

// Wait blocks until no background task is running.
func (r *Repository) Wait() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.running > 0 {
		r.idle.Wait()
	}
}

// Close cancels every task, waits for them and closes the subscriber
// channels. The repository launches nothing afterwards.
func (r *Repository) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.supersedeLocked()
	r.mu.Unlock()

	r.stop()
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ch := range r.subscribers {
		delete(r.subscribers, id)
		close(ch)
	}
}

// supersedeLocked invalidates the running task.
func (r *Repository) supersedeLocked() {
	r.generation++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.active = false
}

type task func(ctx context.Context, generation uint64, path string)

func (r *Repository) startLocked(name string, run task) {
	r.generation++
	generation := r.generation
	path := r.cachePath
	ctx, cancel := context.WithCancel(r.parent)
	r.cancel = cancel
	r.active = true
	r.running++
	r.log.Debug("task started", "task", name, "generation", generation)
	r.emitLocked(Event{Kind: UpdateStarted})

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			r.running--
			r.idle.Broadcast()
			r.mu.Unlock()
		}()
		run(ctx, generation, path)
	}()
}

// commitLocked marks the task of generation as done and reports whether it
// may commit its result: it must still be current and not cancelled.
func (r *Repository) commitLocked(ctx context.Context, generation uint64) bool {
	if generation != r.generation {
		return false
	}
	ok := ctx.Err() == nil
	r.cancel()
	r.cancel = nil
	r.active = false
	return ok
}

func (r *Repository) load(ctx context.Context, generation uint64, path string) {
	data, err := os.ReadFile(path)
	var snapshot *station.Snapshot
	if err == nil && ctx.Err() == nil {
		snapshot, err = r.parser(string(data))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.commitLocked(ctx, generation) {
		r.log.Debug("cancelled cache load dropped", "generation", generation)
		return
	}
	if err != nil {
		r.log.Error("cache load failed, removing cache file", "path", path, "error", err)
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			r.log.Warn("error removing cache file", "path", path, "error", rmErr)
		}
		r.raw = nil
		r.snapshot = nil
		r.emitLocked(Event{Kind: UpdateFailed, Message: errorMessage(err)})
		return
	}

	raw := string(data)
	r.raw = &raw
	r.snapshot = snapshot
	r.log.Info("cache loaded", "path", path, "stations", snapshot.Len())
	r.metrics.RecordSnapshot(r.label, snapshot.Len(), r.now())
	r.emitLocked(Event{Kind: UpdateReady})
}

func (r *Repository) fetch(ctx context.Context, generation uint64, path string) {
	start := r.now()
	raw, err := r.source.Fetch(ctx)
	var snapshot *station.Snapshot
	if err == nil && ctx.Err() == nil {
		snapshot, err = r.parser(raw)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.commitLocked(ctx, generation) {
		r.log.Debug("cancelled fetch dropped", "generation", generation)
		return
	}
	if err == nil {
		err = writeCache(path, raw)
	}
	if err != nil {
		r.log.Error("fetch failed", "error", err)
		r.metrics.RecordFetch(r.label, metrics.StatusFailed, r.now().Sub(start))
		r.emitLocked(Event{Kind: UpdateFailed, Message: errorMessage(err)})
		return
	}

	r.raw = &raw
	r.snapshot = snapshot
	r.log.Info("fetch completed", "stations", snapshot.Len(), "duration", r.now().Sub(start))
	r.metrics.RecordFetch(r.label, metrics.StatusOK, r.now().Sub(start))
	r.metrics.RecordSnapshot(r.label, snapshot.Len(), r.now())
	r.emitLocked(Event{Kind: UpdateReady})
}

// writeCache replaces the cache file atomically.
func writeCache(path, raw string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("error creating cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error writing cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("error replacing cache file: %w", err)
	}
	return nil
}

func errorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fmt.Sprintf("%T", err)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Package archive stores committed feed payloads in SQLite, one per country
// and day, together with the locations users searched around.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/patrickmn/go-cache"
)

const (
	dateLayout = "2006-01-02"

	defaultCacheExpiration  = 10 * time.Minute
	defaultCacheCleanup     = 30 * time.Minute
	defaultLocationDecimals = 2
	defaultCacheSize        = -1024 * 1024 // negative value for pages
	defaultPageSize         = 4096
	deleteBatchSize         = 500
	deleteBatchPause        = 50 * time.Millisecond
	decimalBase             = 10
)

// ErrNoData is returned when the archive holds nothing for a query.
var ErrNoData = errors.New("no data available")

type Storage struct {
	db    *sql.DB
	cache *cache.Cache
	log   *slog.Logger
}

func NewStorage(ctx context.Context, dbPath string, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	db, err := sql.Open("sqlite3", "file:"+dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := configureSQLitePragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	for _, stmt := range []string{createPricesSQL, createHistoricPricesSQL, createTriggerSQL, createLocationLogsSQL} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("error creating tables: %w", err)
		}
	}

	return &Storage{
		db:    db,
		cache: cache.New(defaultCacheExpiration, defaultCacheCleanup),
		log:   logger,
	}, nil
}

const createPricesSQL = `
CREATE TABLE IF NOT EXISTS fuel_prices (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	country TEXT NOT NULL,
	date TEXT NOT NULL,
	data TEXT NOT NULL,
	UNIQUE(country, date)
);
CREATE INDEX IF NOT EXISTS idx_fuel_prices_date ON fuel_prices(country, date);
`

// historic_prices flattens the Spanish payloads so a single station can be
// followed over time without decoding whole snapshots.
const createHistoricPricesSQL = `
CREATE TABLE IF NOT EXISTS historic_prices (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL,
	ideess TEXT NOT NULL,
	rotulo TEXT,
	localidad TEXT,
	precio_gasoleo_a TEXT,
	precio_gasoleo_premium TEXT,
	precio_gasolina_95_e5 TEXT,
	precio_gasolina_98_e5 TEXT,
	UNIQUE(date, ideess)
);
CREATE INDEX IF NOT EXISTS idx_historic_prices_ideess ON historic_prices(ideess);
`

const createTriggerSQL = `
CREATE TRIGGER IF NOT EXISTS insert_historic_prices
AFTER INSERT ON fuel_prices
WHEN NEW.country = 'ES'
BEGIN
	INSERT OR REPLACE INTO historic_prices (
		date, ideess, rotulo, localidad, precio_gasoleo_a, precio_gasoleo_premium,
		precio_gasolina_95_e5, precio_gasolina_98_e5
	)
	SELECT
		NEW.date,
		json_extract(station.value, '$.IDEESS'),
		json_extract(station.value, '$."Rótulo"'),
		json_extract(station.value, '$.Localidad'),
		json_extract(station.value, '$."Precio Gasoleo A"'),
		json_extract(station.value, '$."Precio Gasoleo Premium"'),
		json_extract(station.value, '$."Precio Gasolina 95 E5"'),
		json_extract(station.value, '$."Precio Gasolina 98 E5"')
	FROM json_each(json_extract(NEW.data, '$.ListaEESSPrecio')) AS station;
END;
`

const createLocationLogsSQL = `
CREATE TABLE IF NOT EXISTS location_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	distance REAL NOT NULL,
	search_count INTEGER NOT NULL DEFAULT 1,
	search_time TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	last_search TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_location_logs_coordinates ON location_logs (latitude, longitude);
`

func (s *Storage) Close() error {
	if s.cache != nil {
		s.cache.Flush()
	}
	return s.db.Close()
}

// SavePrices archives the raw payload of country for the day of date,
// replacing any payload already stored for that day.
func (s *Storage) SavePrices(ctx context.Context, country string, date time.Time, raw string) error {
	country = strings.ToUpper(country)
	dateStr := date.Format(dateLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Warn("rollback error", "error", err)
		}
	}()

	// INSERT OR REPLACE deletes then inserts, so the trigger sees every save.
	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO fuel_prices (country, date, data) VALUES (?, ?, ?)",
		country, dateStr, raw)
	if err != nil {
		return fmt.Errorf("error inserting data: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	s.cache.Flush()
	s.log.Debug("prices archived", "country", country, "date", dateStr, "bytes", len(raw))
	return nil
}

func (s *Storage) HasDate(ctx context.Context, country string, date time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM fuel_prices WHERE country = ? AND date = ?",
		strings.ToUpper(country), date.Format(dateLayout)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("error checking date existence: %w", err)
	}
	return count > 0, nil
}

// GetAllDates returns the archived days of country, sorted ascending.
func (s *Storage) GetAllDates(ctx context.Context, country string) ([]time.Time, error) {
	country = strings.ToUpper(country)
	cacheKey := "dates_" + country
	if cached, found := s.cache.Get(cacheKey); found {
		s.log.Debug("using cached data", "key", cacheKey)
		return cached.([]time.Time), nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT date FROM fuel_prices WHERE country = ? ORDER BY date ASC", country)
	if err != nil {
		return nil, fmt.Errorf("error querying dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var dateStr string
		if err := rows.Scan(&dateStr); err != nil {
			return nil, fmt.Errorf("error scanning date: %w", err)
		}
		date, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			continue
		}
		dates = append(dates, date)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error: %w", err)
	}

	s.cache.Set(cacheKey, dates, cache.DefaultExpiration)
	return dates, nil
}

// MissingDates returns the days in [from, to] with no archived payload.
func (s *Storage) MissingDates(ctx context.Context, country string, from, to time.Time) ([]time.Time, error) {
	dates, err := s.GetAllDates(ctx, country)
	if err != nil {
		return nil, err
	}
	have := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		have[d.Format(dateLayout)] = struct{}{}
	}

	from = truncateDay(from)
	to = truncateDay(to)
	var missing []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if _, ok := have[d.Format(dateLayout)]; !ok {
			missing = append(missing, d)
		}
	}
	return missing, nil
}

// GetPrices returns the raw payload archived for country on date.
func (s *Storage) GetPrices(ctx context.Context, country string, date time.Time) (string, error) {
	dateStr := date.Format(dateLayout)
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM fuel_prices WHERE country = ? AND date = ?",
		strings.ToUpper(country), dateStr).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w for date %s", ErrNoData, dateStr)
		}
		return "", fmt.Errorf("error querying database: %w", err)
	}
	return string(data), nil
}

// GetLastUpdateDate returns the newest archived day of country, nil when
// nothing has been archived.
func (s *Storage) GetLastUpdateDate(ctx context.Context, country string) (*time.Time, error) {
	var dateStr string
	err := s.db.QueryRowContext(ctx,
		"SELECT date FROM fuel_prices WHERE country = ? ORDER BY date DESC LIMIT 1",
		strings.ToUpper(country)).Scan(&dateStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying last update date: %w", err)
	}

	lastUpdate, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing date %s: %w", dateStr, err)
	}
	return &lastUpdate, nil
}

// HistoricPrice is one archived day of a Spanish station. Prices keep the
// feed's decimal comma and are empty when the station did not sell the
// product.
type HistoricPrice struct {
	Date           time.Time
	StationID      string
	Brand          string
	City           string
	GasoleoA       string
	GasoleoPremium string
	Gasolina95E5   string
	Gasolina98E5   string
}

// StationHistory returns the archived prices of a Spanish station, oldest
// first.
func (s *Storage) StationHistory(ctx context.Context, stationID string, limit int) ([]HistoricPrice, error) {
	query := `SELECT date, ideess, COALESCE(rotulo, ''), COALESCE(localidad, ''),
		COALESCE(precio_gasoleo_a, ''), COALESCE(precio_gasoleo_premium, ''),
		COALESCE(precio_gasolina_95_e5, ''), COALESCE(precio_gasolina_98_e5, '')
		FROM historic_prices WHERE ideess = ? ORDER BY date ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, stationID)
	if err != nil {
		return nil, fmt.Errorf("error querying station history: %w", err)
	}
	defer rows.Close()

	var history []HistoricPrice
	for rows.Next() {
		var h HistoricPrice
		var dateStr string
		if err := rows.Scan(&dateStr, &h.StationID, &h.Brand, &h.City,
			&h.GasoleoA, &h.GasoleoPremium, &h.Gasolina95E5, &h.Gasolina98E5); err != nil {
			return nil, fmt.Errorf("error scanning station history: %w", err)
		}
		if h.Date, err = time.Parse(dateLayout, dateStr); err != nil {
			continue
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return history, nil
}

// LogSearchLocation counts a search around a location. Coordinates are
// rounded to two decimals, so nearby searches share a row.
func (s *Storage) LogSearchLocation(ctx context.Context, latitude, longitude, distance float64) error {
	lat, lng := reduceLocationPrecision(latitude, longitude, defaultLocationDecimals)

	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM location_logs WHERE latitude = ? AND longitude = ? LIMIT 1",
		lat, lng).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("error checking for existing location: %w", err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		_, err = s.db.ExecContext(ctx,
			"INSERT INTO location_logs (latitude, longitude, distance) VALUES (?, ?, ?)",
			lat, lng, distance)
		if err != nil {
			return fmt.Errorf("error logging search location: %w", err)
		}
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE location_logs
		SET search_count = search_count + 1, last_search = CURRENT_TIMESTAMP, distance = ?
		WHERE id = ?`, distance, id)
	if err != nil {
		return fmt.Errorf("error updating search location: %w", err)
	}
	return nil
}

// LocationLog represents a row in the location_logs table
type LocationLog struct {
	ID          int64
	Latitude    float64
	Longitude   float64
	Distance    float64
	SearchCount int64
	SearchTime  time.Time
	LastSearch  time.Time
}

// GetLocationLogs returns the most searched locations first. A limit of 0
// returns all of them.
func (s *Storage) GetLocationLogs(ctx context.Context, limit int) ([]LocationLog, error) {
	query := `SELECT id, latitude, longitude, distance, search_count, search_time, last_search
		FROM location_logs ORDER BY search_count DESC, id ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error retrieving location logs: %w", err)
	}
	defer rows.Close()

	var logs []LocationLog
	for rows.Next() {
		var entry LocationLog
		if err := rows.Scan(
			&entry.ID,
			&entry.Latitude,
			&entry.Longitude,
			&entry.Distance,
			&entry.SearchCount,
			&entry.SearchTime,
			&entry.LastSearch,
		); err != nil {
			return nil, fmt.Errorf("error scanning location log: %w", err)
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return logs, nil
}

// DeleteOldRecords removes archived payloads and station history older than
// daysOld days, in small batches to keep memory low on large archives. It
// returns the number of payloads removed.
func (s *Storage) DeleteOldRecords(ctx context.Context, daysOld int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -daysOld).Format(dateLayout)
	s.log.Info("starting cleanup of old records", "cutoff_date", cutoff)

	deleted, err := s.deleteBefore(ctx, "fuel_prices", cutoff)
	if err != nil {
		return deleted, err
	}
	s.log.Info("completed fuel_prices cleanup", "deleted_count", deleted)

	history, err := s.deleteBefore(ctx, "historic_prices", cutoff)
	if err != nil {
		return deleted, err
	}
	s.log.Info("completed historic_prices cleanup", "deleted_count", history)

	s.cache.Flush()
	return deleted, nil
}

func (s *Storage) deleteBefore(ctx context.Context, table, cutoff string) (int, error) {
	query := fmt.Sprintf(
		"DELETE FROM %[1]s WHERE ROWID IN (SELECT ROWID FROM %[1]s WHERE date < ? LIMIT %d)",
		table, deleteBatchSize)

	total := 0
	for {
		res, err := s.db.ExecContext(ctx, query, cutoff)
		if err != nil {
			return total, fmt.Errorf("error deleting %s records: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("error counting deleted %s records: %w", table, err)
		}
		total += int(n)
		if n < deleteBatchSize {
			return total, nil
		}
		s.log.Debug("deleted records", "table", table, "count", total)

		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case <-time.After(deleteBatchPause):
		}
	}
}

func (s *Storage) VacuumDatabase(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "PRAGMA incremental_vacuum(1000)")
	if err != nil {
		return fmt.Errorf("error performing incremental vacuum: %w", err)
	}
	return nil
}

func configureSQLitePragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []struct{ stmt, what string }{
		{"PRAGMA busy_timeout = 10000", "busy timeout"},
		{"PRAGMA journal_mode = WAL", "journal mode"},
		{"PRAGMA auto_vacuum = INCREMENTAL", "auto vacuum"},
		{"PRAGMA temp_store = FILE", "temp store"},
		{"PRAGMA mmap_size = 0", "mmap size"},
		{"PRAGMA synchronous = NORMAL", "synchronous"},
		{fmt.Sprintf("PRAGMA cache_size = %d", defaultCacheSize), "cache size"},
		{fmt.Sprintf("PRAGMA page_size = %d", defaultPageSize), "page size"},
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p.stmt); err != nil {
			return fmt.Errorf("error setting %s: %w", p.what, err)
		}
	}
	return nil
}

func reduceLocationPrecision(lat, lng float64, decimalPlaces int) (roundedLat, roundedLng float64) {
	factor := math.Pow(decimalBase, float64(decimalPlaces))
	roundedLat = math.Round(lat*factor) / factor
	roundedLng = math.Round(lng*factor) / factor
	return
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

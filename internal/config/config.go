// Package config provides configuration structures and loading for gasfinder.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rubiojr/gasfinder/internal/filter"
	"github.com/rubiojr/gasfinder/internal/station"
)

const appName = "gasfinder"

// Config holds all configuration for gasfinder.
type Config struct {
	// Country code of the feed (ES, FR)
	Country string
	// Product to rank stations by, empty for the country default
	Product string
	// Directory holding one cache file per country
	CacheDir string
	// SQLite archive path, empty disables archiving
	DBPath string
	// Tab separated brand list naming the stations of feeds without names
	BrandsPath string
	// Log level (debug, info, warn, error)
	LogLevel string
	// HTTP server address
	HTTPAddr string
	// Selection filter settings
	HideExpensiveFurther      bool
	OnlyPublicPrices          bool
	HideClosedMarginInMinutes int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	f := filter.DefaultConfig()
	return &Config{
		Country:                   station.DefaultCountry,
		CacheDir:                  DefaultCacheDir(),
		LogLevel:                  "info",
		HTTPAddr:                  ":8080",
		HideExpensiveFurther:      f.HideExpensiveFurther,
		OnlyPublicPrices:          f.OnlyPublicPrices,
		HideClosedMarginInMinutes: f.HideClosedMarginInMinutes,
	}
}

// LoadDotEnv loads path into the environment without overriding variables
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables. Malformed
// values are ignored.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("GASFINDER_COUNTRY"); v != "" {
		c.Country = strings.ToUpper(v)
	}
	if v := os.Getenv("GASFINDER_PRODUCT"); v != "" {
		c.Product = v
	}
	if v := os.Getenv("GASFINDER_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv("GASFINDER_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("GASFINDER_BRANDS"); v != "" {
		c.BrandsPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("GASFINDER_HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("GASFINDER_HIDE_EXPENSIVE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.HideExpensiveFurther = b
		}
	}
	if v := os.Getenv("GASFINDER_ONLY_PUBLIC"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.OnlyPublicPrices = b
		}
	}
	if v := os.Getenv("GASFINDER_CLOSED_MARGIN"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			c.HideClosedMarginInMinutes = i
		}
	}
}

// CachePath is the cache file of the configured country.
func (c *Config) CachePath() string {
	return CachePathFor(c.CacheDir, c.Country)
}

// CachePathFor is the cache file of country inside dir.
func CachePathFor(dir, country string) string {
	return filepath.Join(dir, strings.ToUpper(country)+".json")
}

// FilterConfig returns the selection filter settings.
func (c *Config) FilterConfig() filter.Config {
	return filter.Config{
		HideExpensiveFurther:      c.HideExpensiveFurther,
		OnlyPublicPrices:          c.OnlyPublicPrices,
		HideClosedMarginInMinutes: c.HideClosedMarginInMinutes,
	}
}

// CountryInfo resolves the configured country.
func (c *Config) CountryInfo() (*station.Country, error) {
	return station.Lookup(c.Country)
}

// ProductOrDefault returns the configured product or the default product of
// the country.
func (c *Config) ProductOrDefault(country *station.Country) string {
	if c.Product != "" {
		return c.Product
	}
	return country.DefaultProduct
}

// Level parses LogLevel, falling back to info.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// DefaultCacheDir returns the default cache directory following XDG.
func DefaultCacheDir() string {
	if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
		return filepath.Join(xdgCache, appName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName+"-cache")
	}
	return filepath.Join(home, ".cache", appName)
}

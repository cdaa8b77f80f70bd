// Package api provides a client for the public fuel price feeds: the Spanish
// government REST service and the French open data export.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	ApiResultOK    = "OK"
	DefaultTimeout = 30 * time.Second

	SpainBaseURL = "https://sedeaplicaciones.minetur.gob.es/ServiciosRESTCarburantes/PreciosCarburantes"
	FranceURL    = "https://data.economie.gouv.fr/api/explore/v2.1/catalog/datasets/prix-des-carburants-en-france-flux-instantane-v2/exports/json?limit=-1&select=exclude(services),exclude(prix),exclude(rupture),exclude(horaires)"

	latestPath  = "/EstacionesTerrestres/"
	historyPath = "/EstacionesTerrestresHist/"
)

// ErrUnexpectedStatus is wrapped when the feed answers with a non 2xx code.
var ErrUnexpectedStatus = errors.New("unexpected status code")

// ErrNoHistory is returned by FetchPricesForDate on feeds without history.
var ErrNoHistory = errors.New("feed has no historic prices")

// FuelPriceAPI provides methods to fetch fuel price data from the official API.
type FuelPriceAPI struct {
	latestURL  string
	historyURL string
	httpClient *http.Client
}

// Option configures a FuelPriceAPI.
type Option func(*FuelPriceAPI)

// WithBaseURL points the client at a Spanish style service root.
func WithBaseURL(base string) Option {
	return func(api *FuelPriceAPI) {
		base = strings.TrimSuffix(base, "/")
		api.latestURL = base + latestPath
		api.historyURL = base + historyPath
	}
}

// WithFeedURL sets the URL of the latest snapshot and disables history.
func WithFeedURL(url string) Option {
	return func(api *FuelPriceAPI) {
		api.latestURL = url
		api.historyURL = ""
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(api *FuelPriceAPI) {
		api.httpClient = c
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(api *FuelPriceAPI) {
		api.httpClient = &http.Client{Timeout: d}
	}
}

// NewFuelPriceAPI creates a client for the Spanish Ministry feed.
func NewFuelPriceAPI(opts ...Option) *FuelPriceAPI {
	api := &FuelPriceAPI{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	WithBaseURL(SpainBaseURL)(api)
	for _, opt := range opts {
		opt(api)
	}
	return api
}

// NewFranceAPI creates a client for the French open data export.
func NewFranceAPI(opts ...Option) *FuelPriceAPI {
	return NewFuelPriceAPI(append([]Option{WithFeedURL(FranceURL)}, opts...)...)
}

// URL returns the address of the latest snapshot.
func (api *FuelPriceAPI) URL() string {
	return api.latestURL
}

// Fetch downloads the latest snapshot and returns the payload untouched.
func (api *FuelPriceAPI) Fetch(ctx context.Context) (string, error) {
	body, err := api.get(ctx, api.latestURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchPrices fetches the latest available fuel station prices.
func (api *FuelPriceAPI) FetchPrices(ctx context.Context) (*GasStationList, error) {
	body, err := api.get(ctx, api.latestURL)
	if err != nil {
		return nil, err
	}
	return decodeList(body)
}

// FetchPricesForDate fetches fuel station prices for a specific date.
func (api *FuelPriceAPI) FetchPricesForDate(ctx context.Context, date time.Time) (*GasStationList, error) {
	if api.historyURL == "" {
		return nil, ErrNoHistory
	}
	body, err := api.get(ctx, api.historyURL+date.Format("02-01-2006"))
	if err != nil {
		return nil, err
	}
	return decodeList(body)
}

func (api *FuelPriceAPI) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := api.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	return body, nil
}

func decodeList(body []byte) (*GasStationList, error) {
	var pricesResponse GasStationList
	if err := json.Unmarshal(body, &pricesResponse); err != nil {
		return nil, fmt.Errorf("error unmarshaling JSON: %w", err)
	}
	if pricesResponse.ResultadoConsulta != ApiResultOK {
		return nil, fmt.Errorf("API returned non-OK result: %s", pricesResponse.ResultadoConsulta)
	}
	return &pricesResponse, nil
}

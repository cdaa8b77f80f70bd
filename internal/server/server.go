// Package server exposes the station repository over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rubiojr/gasfinder/internal/filter"
	"github.com/rubiojr/gasfinder/internal/geocode"
	"github.com/rubiojr/gasfinder/internal/search"
	"github.com/rubiojr/gasfinder/internal/station"
)

const (
	DefaultRequestsPerMinute = 20
	retryAfterSeconds        = 5
	maxLimit                 = 200
)

// Repository is the part of the station repository the server reads.
type Repository interface {
	GetData() *station.Snapshot
	LaunchFetch()
	IsFetchInProgress() bool
	IsExpired() bool
}

// Locator geocodes the location query parameter.
type Locator interface {
	Locate(location string) (geocode.Place, error)
}

// Options configures the router.
type Options struct {
	Country *station.Country
	Filter  filter.Config
	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Locator resolves ?location=. Nil only accepts coordinates.
	Locator Locator
	Logger  *httplog.Logger
	// RequestsPerMinute per client IP, zero disables rate limiting.
	RequestsPerMinute int
	Now               func() time.Time
}

type handler struct {
	repo    Repository
	opts    Options
	log     *slog.Logger
	country *station.Country
}

// NewRouter builds the HTTP routes over repo.
func NewRouter(repo Repository, opts Options) (http.Handler, error) {
	if opts.Country == nil {
		return nil, errors.New("server needs a country")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	h := &handler{repo: repo, opts: opts, country: opts.Country, log: slog.New(slog.DiscardHandler)}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	if opts.Logger != nil {
		h.log = opts.Logger.Logger
		r.Use(httplog.RequestLogger(opts.Logger))
	}
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if opts.RequestsPerMinute > 0 {
			r.Use(httprate.LimitByIP(opts.RequestsPerMinute, time.Minute))
		}
		r.Get("/stations", h.stations)
		r.Get("/stations/{id}", h.station)
		r.Get("/status", h.status)
		r.Post("/refresh", h.refresh)
	})
	return r, nil
}

// StationJSON is a station in API responses.
type StationJSON struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	City       string   `json:"city"`
	State      string   `json:"state,omitempty"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
	Price      *float64 `json:"price,omitempty"`
	DistanceM  *float64 `json:"distance_m,omitempty"`
	Public     bool     `json:"public"`
	Open       bool     `json:"open"`
	NextChange *string  `json:"next_change,omitempty"`
	Hours      string   `json:"hours,omitempty"`
}

type stationsResponse struct {
	Country  string        `json:"country"`
	Product  string        `json:"product"`
	Count    int           `json:"count"`
	Stations []StationJSON `json:"stations"`
}

type statusResponse struct {
	Country         string `json:"country"`
	FetchInProgress bool   `json:"fetch_in_progress"`
	Expired         bool   `json:"expired"`
	Stations        int    `json:"stations"`
}

func (h *handler) stations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	product := h.country.DefaultProduct
	if p := query.Get("product"); p != "" {
		resolved, ok := h.country.ResolveProduct(p)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown product %q", p))
			return
		}
		product = resolved
	}

	origin, err := h.origin(query.Get("location"), query.Get("lat"), query.Get("lng"))
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, geocode.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}

	q := search.Query{Origin: origin, Product: product, RadiusKm: search.DefaultRadiusKm}
	if query.Get("dest_lat") != "" || query.Get("dest_lng") != "" {
		dest, err := parseLatLng(query.Get("dest_lat"), query.Get("dest_lng"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid destination: "+err.Error())
			return
		}
		q.Destination = &dest
	}
	if v := query.Get("radius"); v != "" {
		radius, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(radius) || math.IsInf(radius, 0) || radius < 0 {
			writeError(w, http.StatusBadRequest, "invalid radius")
			return
		}
		q.RadiusKm = radius
	}
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 || limit > maxLimit {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		q.Limit = limit
	}

	now := h.opts.Now()
	ranked, err := search.Run(h.repo.GetData(), h.country, h.opts.Filter, q, now)
	if errors.Is(err, search.ErrNoData) {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := stationsResponse{
		Country:  h.country.Code,
		Product:  product,
		Count:    len(ranked),
		Stations: make([]StationJSON, 0, len(ranked)),
	}
	for _, rk := range ranked {
		sj := toJSON(rk.Station, now)
		price, dist := rk.Price, rk.Distance
		sj.Price = &price
		sj.DistanceM = &dist
		resp.Stations = append(resp.Stations, sj)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) station(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid station id")
		return
	}
	snap := h.repo.GetData()
	if snap == nil {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		writeError(w, http.StatusServiceUnavailable, search.ErrNoData.Error())
		return
	}
	s := snap.ByID(id)
	if s == nil {
		writeError(w, http.StatusNotFound, "station not found")
		return
	}

	sj := toJSON(s, h.opts.Now())
	if p := r.URL.Query().Get("product"); p != "" {
		if product, ok := h.country.ResolveProduct(p); ok {
			if price, ok := s.Price(product); ok {
				sj.Price = &price
			}
		}
	}
	writeJSON(w, http.StatusOK, sj)
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Country:         h.country.Code,
		FetchInProgress: h.repo.IsFetchInProgress(),
		Expired:         h.repo.IsExpired(),
		Stations:        h.repo.GetData().Len(),
	})
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	h.log.Info("refresh requested", "remote", r.RemoteAddr)
	h.repo.LaunchFetch()
	writeJSON(w, http.StatusAccepted, map[string]bool{"fetch_in_progress": h.repo.IsFetchInProgress()})
}

func (h *handler) origin(location, lat, lng string) (station.LatLng, error) {
	if location != "" {
		if h.opts.Locator == nil {
			return station.LatLng{}, errors.New("location search is not enabled, use lat and lng")
		}
		place, err := h.opts.Locator.Locate(location)
		if err != nil {
			return station.LatLng{}, err
		}
		return station.LatLng{Lat: place.Lat, Lng: place.Lng}, nil
	}
	if lat == "" || lng == "" {
		return station.LatLng{}, errors.New("location or lat and lng are required")
	}
	return parseLatLng(lat, lng)
}

func parseLatLng(latStr, lngStr string) (station.LatLng, error) {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || math.IsNaN(lat) || lat < -90 || lat > 90 {
		return station.LatLng{}, errors.New("invalid latitude value")
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil || math.IsNaN(lng) || lng < -180 || lng > 180 {
		return station.LatLng{}, errors.New("invalid longitude value")
	}
	return station.LatLng{Lat: lat, Lng: lng}, nil
}

func toJSON(s *station.Station, now time.Time) StationJSON {
	sj := StationJSON{
		ID:      s.ID,
		Name:    s.Name,
		Address: s.Address,
		City:    s.City,
		State:   s.State,
		Public:  s.IsPublicPrice,
	}
	if lat, lng, ok := s.Location(); ok {
		sj.Lat, sj.Lng = &lat, &lng
	}
	if s.OpeningHours != nil {
		sj.Hours = s.OpeningHours.String()
		st := s.Status(now)
		sj.Open = st.Open
		if st.NextChange != nil {
			next := st.NextChange.Format(time.RFC3339)
			sj.NextChange = &next
		}
	}
	return sj
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Server wraps http.Server with the timeouts used in production.
type Server struct {
	server *http.Server
	log    *slog.Logger
}

func New(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: logger,
	}
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("starting HTTP server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

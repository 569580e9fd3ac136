// In file: internal/weather/client.go

// Package weather is a client for the US National Weather Service API
// (api.weather.gov). Forecasts are resolved in two hops: /points/{lat},{lon}
// yields the grid's forecast URL, which is then fetched for the periods.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
	"go.uber.org/zap"

	"github.com/dileep-u-k/tempusvestis/internal/cache"
	"github.com/dileep-u-k/tempusvestis/internal/httpretry"
)

const (
	DefaultBaseURL   = "https://api.weather.gov"
	DefaultUserAgent = "(tempusvestis, contact@example.com)"

	pointsCacheTTL = 24 * time.Hour
)

// Config controls how the client talks to the NWS.
type Config struct {
	BaseURL   string
	UserAgent string
	// RateLimit is the sustained requests per second. Zero disables limiting.
	RateLimit float64
	// RetryDelay overrides the initial backoff; zero keeps the default.
	RetryDelay time.Duration
	Timeout    time.Duration
}

// Client fetches NWS points and forecasts.
type Client struct {
	baseURL   string
	userAgent string
	doer      *httpretry.Doer
	limiter   *rate.Limiter
	cache     *cache.Cache
}

// NewClient builds a client. c may be nil, in which case point lookups are
// not cached.
func NewClient(cfg Config, c *cache.Cache) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	doer := httpretry.New(&http.Client{Timeout: cfg.Timeout})
	if cfg.RetryDelay > 0 {
		doer.InitialDelay = cfg.RetryDelay
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		doer:      doer,
		limiter:   limiter,
		cache:     c,
	}
}

// Points resolves the forecast URL and nearest place for a coordinate pair.
// Coordinates are rounded to four decimals, the precision the NWS accepts
// without redirecting.
func (c *Client) Points(ctx context.Context, lat, lon float64) (*Point, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("%w: %v,%v", ErrInvalidCoordinates, lat, lon)
	}
	lat, lon = round4(lat), round4(lon)
	coords := formatCoord(lat) + "," + formatCoord(lon)

	cacheKey := "points:" + coords
	var cached Point
	if c.cache.GetJSON(ctx, cacheKey, &cached) {
		zap.S().Debugf("NWS points cache HIT for %s", coords)
		return &cached, nil
	}

	body, err := c.get(ctx, c.baseURL+"/points/"+coords)
	if err != nil {
		var statusErr *httpretry.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrOutsideCoverage, coords)
		}
		return nil, fmt.Errorf("NWS points request failed for %s: %w", coords, err)
	}

	var resp pointsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode NWS points response: %w", err)
	}
	if resp.Properties.Forecast == "" {
		return nil, fmt.Errorf("%w: no properties.forecast for %s", ErrOutsideCoverage, coords)
	}

	p := &Point{
		Latitude:    lat,
		Longitude:   lon,
		ForecastURL: resp.Properties.Forecast,
		City:        resp.Properties.RelativeLocation.Properties.City,
		State:       resp.Properties.RelativeLocation.Properties.State,
	}
	c.cache.SetJSON(ctx, cacheKey, p, pointsCacheTTL)
	return p, nil
}

// ForecastRaw returns the forecast GeoJSON document exactly as the NWS sent it.
func (c *Client) ForecastRaw(ctx context.Context, lat, lon float64) (*Point, []byte, error) {
	p, err := c.Points(ctx, lat, lon)
	if err != nil {
		return nil, nil, err
	}
	body, err := c.get(ctx, p.ForecastURL)
	if err != nil {
		var statusErr *httpretry.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return p, nil, fmt.Errorf("%w: %s", ErrNotFound, p.ForecastURL)
		}
		return p, nil, fmt.Errorf("NWS forecast request failed: %w", err)
	}
	return p, body, nil
}

// Forecast fetches and parses the forecast for a coordinate pair.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (*Forecast, error) {
	p, body, err := c.ForecastRaw(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	f, err := ParseForecast(body)
	if err != nil {
		return nil, err
	}
	f.Location = p.Location()
	return f, nil
}

// ParseForecast decodes an NWS forecast document.
func ParseForecast(body []byte) (*Forecast, error) {
	var resp forecastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode NWS forecast response: %w", err)
	}
	f := &Forecast{
		Updated: resp.Properties.Updated,
		Periods: make([]Period, 0, len(resp.Properties.Periods)),
	}
	for _, r := range resp.Properties.Periods {
		f.Periods = append(f.Periods, r.toPeriod())
	}
	return f, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create NWS request: %w", err)
	}
	// The NWS rejects requests without an identifying User-Agent.
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json")

	zap.S().Debugf("🌦️ GET %s", url)
	return c.doer.Do(ctx, req)
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/live-dashboard/internal/models"
)

// SourceOpenMeteo is the metric and cache label for the weather source.
const SourceOpenMeteo = "openmeteo"

var openMeteoTimeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// OpenMeteoConfig configures the forecast endpoint for one coordinate.
type OpenMeteoConfig struct {
	URL       string // e.g. https://api.open-meteo.com/v1/forecast
	Latitude  float64
	Longitude float64
	Timeout   time.Duration
}

// OpenMeteoClient fetches current temperature and wind speed for a fixed location.
type OpenMeteoClient struct {
	httpSource
	url       string
	latitude  float64
	longitude float64
}

type openMeteoResponse struct {
	Current *struct {
		Time        string   `json:"time"`
		Temperature *float64 `json:"temperature_2m"`
		WindSpeed   *float64 `json:"wind_speed_10m"`
	} `json:"current"`
}

// NewOpenMeteoClient validates cfg and returns a client.
func NewOpenMeteoClient(cfg OpenMeteoConfig) (*OpenMeteoClient, error) {
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("openmeteo url: %w", err)
	}
	if cfg.Latitude < -90 || cfg.Latitude > 90 || cfg.Longitude < -180 || cfg.Longitude > 180 {
		return nil, fmt.Errorf("openmeteo: coordinates out of range (%v, %v)", cfg.Latitude, cfg.Longitude)
	}
	return &OpenMeteoClient{
		httpSource: newHTTPSource(SourceOpenMeteo, cfg.Timeout, map[string]string{
			"Accept": "application/json",
		}),
		url:       cfg.URL,
		latitude:  cfg.Latitude,
		longitude: cfg.Longitude,
	}, nil
}

// Source implements Fetcher.
func (c *OpenMeteoClient) Source() string { return SourceOpenMeteo }

// CacheKey identifies this client's fixed query.
func (c *OpenMeteoClient) CacheKey() string {
	return "weather:" + formatCoord(c.latitude) + "," + formatCoord(c.longitude)
}

// RequestURL builds the query URL for the current-conditions variables.
func (c *OpenMeteoClient) RequestURL() string {
	return c.url + "?latitude=" + formatCoord(c.latitude) +
		"&longitude=" + formatCoord(c.longitude) +
		"&current=temperature_2m,wind_speed_10m"
}

// Fetch implements Fetcher.
func (c *OpenMeteoClient) Fetch(ctx context.Context) models.Outcome[models.WeatherReading] {
	reading, err := c.GetCurrent(ctx)
	c.record(err)
	if err != nil {
		return fail[models.WeatherReading](SourceOpenMeteo, err)
	}
	return models.Success([]models.WeatherReading{reading})
}

// GetCurrent returns the current reading.
func (c *OpenMeteoClient) GetCurrent(ctx context.Context) (models.WeatherReading, error) {
	var payload openMeteoResponse
	if err := c.getJSON(ctx, c.RequestURL(), &payload); err != nil {
		return models.WeatherReading{}, err
	}
	cur := payload.Current
	if cur == nil {
		return models.WeatherReading{}, &ParseError{Err: errors.New(`missing "current"`)}
	}
	if cur.Temperature == nil || cur.WindSpeed == nil {
		return models.WeatherReading{}, &ParseError{Err: errors.New(`"current" lacks temperature_2m or wind_speed_10m`)}
	}
	ts, err := parseOpenMeteoTime(cur.Time)
	if err != nil {
		return models.WeatherReading{}, &ParseError{Err: err}
	}
	return models.WeatherReading{
		Timestamp:   ts,
		Temperature: *cur.Temperature,
		WindSpeed:   *cur.WindSpeed,
	}, nil
}

// parseOpenMeteoTime accepts the ISO8601 forms the API emits. Zoneless times are UTC.
func parseOpenMeteoTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New(`missing "current.time"`)
	}
	for _, layout := range openMeteoTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

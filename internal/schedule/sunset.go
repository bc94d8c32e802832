package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Fixed coordinates the sunset lookup is made for
const (
	DefaultLatitude  = 18.16
	DefaultLongitude = -77.03
)

// DefaultSunsetURL is the public sunrise/sunset service
const DefaultSunsetURL = "https://api.sunrise-sunset.org/json"

// SunsetResolver looks up the local time of day of sunset
type SunsetResolver interface {
	Sunset(ctx context.Context, lat, lng float64, day time.Time) (TimeOfDay, error)
}

// LookupObserver is notified of every upstream sunset lookup
type LookupObserver interface {
	SunsetLookup(duration time.Duration, success bool)
}

// SunsetConfig holds settings for the sunset client
type SunsetConfig struct {
	URL      string
	Timeout  time.Duration // 0 disables the client timeout
	Location *time.Location
	Observer LookupObserver
}

// SunsetClient resolves sunset through the sunrise-sunset HTTP API.
// Every call makes exactly one request; nothing is cached or retried.
type SunsetClient struct {
	httpClient *resty.Client
	url        string
	loc        *time.Location
	observer   LookupObserver
	logger     zerolog.Logger
}

type sunsetResponse struct {
	Results struct {
		Sunset string `json:"sunset"`
	} `json:"results"`
	Status string `json:"status"`
}

// NewSunsetClient creates a sunset client
func NewSunsetClient(config SunsetConfig, logger zerolog.Logger) *SunsetClient {
	url := config.URL
	if url == "" {
		url = DefaultSunsetURL
	}
	loc := config.Location
	if loc == nil {
		loc = time.Local
	}

	client := resty.New().
		SetTimeout(config.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &SunsetClient{
		httpClient: client,
		url:        url,
		loc:        loc,
		observer:   config.Observer,
		logger:     logger,
	}
}

// Sunset returns the local time of day at which the sun sets on day
func (c *SunsetClient) Sunset(ctx context.Context, lat, lng float64, day time.Time) (TimeOfDay, error) {
	start := time.Now()
	tod, err := c.fetch(ctx, lat, lng, day)
	if c.observer != nil {
		c.observer.SunsetLookup(time.Since(start), err == nil)
	}
	if err != nil {
		return 0, err
	}

	c.logger.Debug().
		Float64("lat", lat).
		Float64("lng", lng).
		Str("sunset", tod.String()).
		Msg("Resolved sunset")
	return tod, nil
}

func (c *SunsetClient) fetch(ctx context.Context, lat, lng float64, day time.Time) (TimeOfDay, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":       strconv.FormatFloat(lat, 'f', -1, 64),
			"lng":       strconv.FormatFloat(lng, 'f', -1, 64),
			"formatted": "0",
			"date":      day.In(c.loc).Format("2006-01-02"),
		}).
		Get(c.url)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode())
	}

	var body sunsetResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return 0, fmt.Errorf("%w: failed to decode response: %v", ErrUpstreamUnavailable, err)
	}
	if body.Status != "" && body.Status != "OK" {
		return 0, fmt.Errorf("%w: service status %s", ErrUpstreamUnavailable, body.Status)
	}

	sunset, err := time.Parse(time.RFC3339, body.Results.Sunset)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to parse sunset %q: %v", ErrUpstreamUnavailable, body.Results.Sunset, err)
	}

	return ClockOf(sunset.In(c.loc)), nil
}

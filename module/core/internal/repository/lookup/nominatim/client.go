package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/internal/repository/lookup"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/observability/metrics"
)

var _ lookup.ReverseGeocoder = (*Client)(nil)

const (
	DefaultURL       = "https://nominatim.openstreetmap.org"
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "phone_tracking_system"

	provider = "nominatim"
)

type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// ReverseGeocode returns the display name of the place at (lat, lon).
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (string, bool) {
	start := time.Now()
	address, err := c.reverse(ctx, lat, lon)
	metrics.ObserveLookup(provider, err == nil, time.Since(start))
	if err != nil {
		log.Printf("nominatim: reverse geocoding failed: %v", err)
		return "", false
	}
	return address, true
}

func (c *Client) reverse(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if body.Error != "" {
		return "", fmt.Errorf("provider error: %s", body.Error)
	}
	if body.DisplayName == "" {
		return "", fmt.Errorf("empty address")
	}
	return body.DisplayName, nil
}

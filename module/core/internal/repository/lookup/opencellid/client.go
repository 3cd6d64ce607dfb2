package opencellid

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/domain"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/internal/repository/lookup"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/observability/metrics"
)

var _ lookup.TowerLocator = (*Client)(nil)

const (
	DefaultURL     = "https://opencellid.org/cell/get"
	DefaultTimeout = 5 * time.Second

	defaultRange = 1000
	provider     = "opencellid"
)

// Client looks up registered tower positions in the OpenCellID database.
// Calls are never retried; any failure reads as "no data".
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type cellResponse struct {
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Range *float64 `json:"range"`
	Error string   `json:"error"`
}

func (c *Client) LocateTower(ctx context.Context, tower domain.CellTowerObservation) (domain.TowerPosition, bool) {
	if c.apiKey == "" {
		log.Printf("opencellid: api key not configured")
		return domain.TowerPosition{}, false
	}

	start := time.Now()
	pos, err := c.fetch(ctx, tower)
	metrics.ObserveLookup(provider, err == nil, time.Since(start))
	if err != nil {
		log.Printf("opencellid: tower %d/%d/%d/%d: %v", tower.MCC, tower.MNC, tower.LAC, tower.CellID, err)
		return domain.TowerPosition{}, false
	}
	return pos, true
}

func (c *Client) fetch(ctx context.Context, tower domain.CellTowerObservation) (domain.TowerPosition, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("mcc", strconv.FormatInt(tower.MCC, 10))
	q.Set("mnc", strconv.FormatInt(tower.MNC, 10))
	q.Set("lac", strconv.FormatInt(tower.LAC, 10))
	q.Set("cellid", strconv.FormatInt(tower.CellID, 10))
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return domain.TowerPosition{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.TowerPosition{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return domain.TowerPosition{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	var body cellResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.TowerPosition{}, fmt.Errorf("decode: %w", err)
	}
	if body.Error != "" {
		return domain.TowerPosition{}, fmt.Errorf("provider error: %s", body.Error)
	}
	if body.Lat == nil || body.Lon == nil {
		return domain.TowerPosition{}, fmt.Errorf("response without coordinates")
	}

	pos := domain.TowerPosition{Lat: *body.Lat, Lon: *body.Lon, Range: defaultRange}
	if body.Range != nil {
		pos.Range = *body.Range
	}
	return pos, nil
}

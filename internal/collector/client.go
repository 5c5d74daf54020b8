package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Endpoint is one realtime feed: a data type and the URL serving it.
type Endpoint struct {
	DataType string
	URL      string
}

// StationMeta is the station metadata a feed ships alongside its readings.
type StationMeta struct {
	ID          string
	Name        string
	Lat         float64
	Lng         float64
	HasLocation bool
}

// Client fetches and decodes the realtime feeds. Each data type gets its
// own circuit breaker so one misbehaving feed cannot trip the others.
type Client struct {
	cfg      FetchConfig
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewClient creates a feed client sharing one HTTP client across all
// endpoints.
func NewClient(httpClient *http.Client, timeout time.Duration, backoff BackoffConfig) *Client {
	return &Client{
		cfg: FetchConfig{
			Client:  httpClient,
			Timeout: timeout,
			Backoff: backoff,
		},
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (c *Client) breaker(dataType string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	cb, ok := c.breakers[dataType]
	if !ok {
		cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        dataType,
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		})
		c.breakers[dataType] = cb
	}
	return cb
}

// Wire format of the realtime environment API.

type feedLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type feedStation struct {
	ID       string       `json:"id"`
	DeviceID string       `json:"device_id"`
	Name     string       `json:"name"`
	Location feedLocation `json:"location"`
}

type feedReading struct {
	StationID string  `json:"station_id"`
	Value     float64 `json:"value"`
}

type feedItem struct {
	Timestamp string        `json:"timestamp"`
	Readings  []feedReading `json:"readings"`
}

type feedPayload struct {
	Metadata struct {
		Stations []feedStation `json:"stations"`
	} `json:"metadata"`
	Items   []feedItem `json:"items"`
	APIInfo struct {
		Status string `json:"status"`
	} `json:"api_info"`
}

// Fetch retrieves one feed and returns its most recent readings plus the
// station metadata block, keyed by station id. The attempt count is
// reported even on failure. A payload with no items is still fulfilled;
// feeds legitimately go quiet between observations.
func (c *Client) Fetch(ctx context.Context, ep Endpoint) ([]Reading, map[string]StationMeta, int, error) {
	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, ep.URL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	body, attempts, err := fetchWithResilience(ctx, c.cfg, c.breaker(ep.DataType), buildRequest)
	if err != nil {
		return nil, nil, attempts, err
	}

	var payload feedPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, nil, attempts, fmt.Errorf("%w: decoding %s payload: %v", ErrEndpointBadResponse, ep.DataType, err)
	}

	if payload.APIInfo.Status != "" && payload.APIInfo.Status != "healthy" {
		log.Printf("INFO: %s feed reports api status %q", ep.DataType, payload.APIInfo.Status)
	}

	stations := make(map[string]StationMeta, len(payload.Metadata.Stations))
	for _, st := range payload.Metadata.Stations {
		id := st.ID
		if id == "" {
			id = st.DeviceID
		}
		if id == "" {
			continue
		}
		stations[id] = StationMeta{
			ID:          id,
			Name:        st.Name,
			Lat:         st.Location.Latitude,
			Lng:         st.Location.Longitude,
			HasLocation: st.Location.Latitude != 0 || st.Location.Longitude != 0,
		}
	}

	item, ok := newestItem(payload.Items)
	if !ok {
		return nil, stations, attempts, nil
	}

	var observedAt time.Time
	if ts, err := time.Parse(time.RFC3339, item.Timestamp); err == nil {
		observedAt = ts.UTC()
	}

	readings := make([]Reading, 0, len(item.Readings))
	for _, r := range item.Readings {
		if r.StationID == "" {
			continue
		}
		readings = append(readings, Reading{StationID: r.StationID, Value: r.Value, Timestamp: observedAt})
	}
	return readings, stations, attempts, nil
}

// newestItem picks the item with the latest parseable timestamp, falling
// back to the final one when nothing parses.
func newestItem(items []feedItem) (feedItem, bool) {
	if len(items) == 0 {
		return feedItem{}, false
	}

	best := items[len(items)-1]
	var bestTS time.Time
	for _, it := range items {
		ts, err := time.Parse(time.RFC3339, it.Timestamp)
		if err != nil {
			continue
		}
		if ts.After(bestTS) {
			bestTS = ts
			best = it
		}
	}
	return best, true
}

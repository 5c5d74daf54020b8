package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func feedServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientFetchParsesFeed(t *testing.T) {
	srv := feedServer(t, `{
		"metadata": {"stations": [
			{"id": "S109", "device_id": "S109", "name": "Ang Mo Kio Avenue 5",
			 "location": {"latitude": 1.3764, "longitude": 103.8492}},
			{"id": "S900", "device_id": "S900", "name": "Unplaced Station", "location": {}}
		]},
		"items": [{"timestamp": "2024-06-01T12:00:00+08:00", "readings": [
			{"station_id": "S109", "value": 29.8},
			{"station_id": "S900", "value": 31.2}
		]}],
		"api_info": {"status": "healthy"}
	}`)

	c := NewClient(srv.Client(), time.Second, testBackoff())
	readings, stations, attempts, err := c.Fetch(context.Background(), Endpoint{DataType: "air-temperature", URL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if len(readings) != 2 {
		t.Fatalf("got %d readings, want 2", len(readings))
	}
	if readings[0].StationID != "S109" || readings[0].Value != 29.8 {
		t.Errorf("unexpected first reading %+v", readings[0])
	}
	observedAt := time.Date(2024, 6, 1, 4, 0, 0, 0, time.UTC)
	if !readings[0].Timestamp.Equal(observedAt) {
		t.Errorf("reading timestamp = %v, want %v", readings[0].Timestamp, observedAt)
	}

	meta, ok := stations["S109"]
	if !ok {
		t.Fatal("S109 missing from station metadata")
	}
	if meta.Name != "Ang Mo Kio Avenue 5" || !meta.HasLocation || meta.Lat != 1.3764 {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if stations["S900"].HasLocation {
		t.Error("station without location reported as placed")
	}
}

func TestClientFetchEmptyItemsIsFulfilled(t *testing.T) {
	srv := feedServer(t, `{
		"metadata": {"stations": [
			{"id": "S50", "name": "Clementi Road", "location": {"latitude": 1.3337, "longitude": 103.7768}}
		]},
		"items": [],
		"api_info": {"status": "healthy"}
	}`)

	c := NewClient(srv.Client(), time.Second, testBackoff())
	readings, stations, _, err := c.Fetch(context.Background(), Endpoint{DataType: "rainfall", URL: srv.URL})
	if err != nil {
		t.Fatalf("a quiet feed is not a failure, got %v", err)
	}
	if len(readings) != 0 {
		t.Errorf("got %d readings from an empty feed", len(readings))
	}
	if _, ok := stations["S50"]; !ok {
		t.Error("station metadata dropped for a quiet feed")
	}
}

func TestClientFetchUndecodablePayload(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("<!doctype html><html>maintenance</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), time.Second, testBackoff())
	_, _, _, err := c.Fetch(context.Background(), Endpoint{DataType: "wind-speed", URL: srv.URL})
	if !errors.Is(err, ErrEndpointBadResponse) {
		t.Fatalf("expected ErrEndpointBadResponse, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("server hit %d times, want 1: undecodable payloads are not retried", got)
	}
}

func TestClientFetchDeviceIDFallback(t *testing.T) {
	srv := feedServer(t, `{
		"metadata": {"stations": [
			{"device_id": "S44", "name": "Nanyang Avenue",
			 "location": {"latitude": 1.34583, "longitude": 103.68166}}
		]},
		"items": [{"timestamp": "2024-06-01T12:00:00+08:00",
			"readings": [{"station_id": "S44", "value": 2.1}]}],
		"api_info": {"status": "healthy"}
	}`)

	c := NewClient(srv.Client(), time.Second, testBackoff())
	_, stations, _, err := c.Fetch(context.Background(), Endpoint{DataType: "wind-speed", URL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := stations["S44"]; !ok {
		t.Errorf("expected device_id fallback to key the station, got %v", stations)
	}
}

func TestClientFetchPicksNewestItem(t *testing.T) {
	// Deliberately out of order: the newest observation comes first.
	srv := feedServer(t, `{
		"metadata": {"stations": [{"id": "S107", "name": "East Coast Parkway",
			"location": {"latitude": 1.3135, "longitude": 103.9625}}]},
		"items": [
			{"timestamp": "2024-06-01T13:00:00+08:00",
			 "readings": [{"station_id": "S107", "value": 30.4}]},
			{"timestamp": "2024-06-01T12:00:00+08:00",
			 "readings": [{"station_id": "S107", "value": 25.0}]}
		],
		"api_info": {"status": "healthy"}
	}`)

	c := NewClient(srv.Client(), time.Second, testBackoff())
	readings, _, _, err := c.Fetch(context.Background(), Endpoint{DataType: "air-temperature", URL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(readings) != 1 || readings[0].Value != 30.4 {
		t.Errorf("expected the 13:00 reading, got %+v", readings)
	}
}

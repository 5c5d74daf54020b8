package collector

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sgweather/station-aggregation/internal/geo"
	"github.com/sgweather/station-aggregation/internal/station"
)

// SnapshotStore is the persistence surface the service needs. The store
// package provides the in-memory implementation.
type SnapshotStore interface {
	SaveSnapshot(snap WeatherSnapshot)
	Latest() (WeatherSnapshot, error)
	Range(from, to time.Time) ([]WeatherSnapshot, error)
}

// ServiceConfig carries the per-cycle settings.
type ServiceConfig struct {
	Endpoints []Endpoint
	// InterCallDelay spaces consecutive feed calls; zero disables it.
	InterCallDelay time.Duration
	// ExpectedStations anchors the station coverage term of the quality
	// score.
	ExpectedStations int
	Quality          QualityWeights
}

// Service orchestrates one collection cycle: fetch every feed in turn,
// record every station sighted, pick the best stations per data type, and
// fold the survivors into a quality-scored snapshot.
type Service struct {
	registry *station.Registry
	resolver *station.Resolver
	scorer   *station.Scorer
	selector *station.Selector
	client   *Client
	store    SnapshotStore
	cfg      ServiceConfig
}

// NewService wires the collection pipeline together.
func NewService(
	registry *station.Registry,
	resolver *station.Resolver,
	scorer *station.Scorer,
	selector *station.Selector,
	client *Client,
	store SnapshotStore,
	cfg ServiceConfig,
) *Service {
	return &Service{
		registry: registry,
		resolver: resolver,
		scorer:   scorer,
		selector: selector,
		client:   client,
		store:    store,
		cfg:      cfg,
	}
}

// endpointResult is one feed's settled outcome within a cycle.
type endpointResult struct {
	endpoint Endpoint
	readings []Reading
	attempts int
	duration time.Duration
	err      error
}

func (r endpointResult) fulfilled() bool { return r.err == nil }

func (r endpointResult) outcome() EndpointOutcome {
	out := EndpointOutcome{
		DataType:   r.endpoint.DataType,
		Status:     StatusFulfilled,
		Attempts:   r.attempts,
		DurationMs: r.duration.Milliseconds(),
		Readings:   len(r.readings),
	}
	if r.err != nil {
		out.Status = StatusRejected
		out.Error = r.err.Error()
	}
	return out
}

// Collect runs one cycle. Feeds are called sequentially with a politeness
// delay in between; a failed feed is recorded and skipped, never fatal.
// The snapshot is always built and stored, even degraded. Only a cycle in
// which no feed settled fulfilled additionally returns
// ErrAllEndpointsFailed.
func (s *Service) Collect(ctx context.Context) (WeatherSnapshot, error) {
	started := time.Now()
	id := uuid.New()
	log.Printf("DEBUG: collection %s started with %d endpoints", id, len(s.cfg.Endpoints))

	results := make([]endpointResult, 0, len(s.cfg.Endpoints))
	for i, ep := range s.cfg.Endpoints {
		if i > 0 {
			s.pause(ctx)
		}
		if ctx.Err() != nil {
			// Cancellation settles the remaining feeds as rejected; work
			// already done still reaches the snapshot.
			results = append(results, endpointResult{endpoint: ep, err: ctx.Err()})
			continue
		}
		results = append(results, s.collectEndpoint(ctx, ep))
	}

	snap := s.buildSnapshot(id, started, results)
	s.store.SaveSnapshot(snap)
	if err := s.registry.Save(); err != nil {
		log.Printf("collector: persisting station registry: %v", err)
	}

	if snap.APICallsSucceeded == 0 {
		log.Printf("collection %s: all %d endpoints failed", id, snap.APICallsTotal)
		return snap, ErrAllEndpointsFailed
	}

	log.Printf("INFO: collection %s finished: quality %d, %d/%d endpoints, %d stations, %dms",
		id, snap.DataQualityScore, snap.APICallsSucceeded, snap.APICallsTotal,
		len(snap.StationsUsed), snap.CollectionDurationMs)
	return snap, nil
}

// pause waits the inter-call delay, cut short by cancellation.
func (s *Service) pause(ctx context.Context) {
	if s.cfg.InterCallDelay <= 0 {
		return
	}
	timer := time.NewTimer(s.cfg.InterCallDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// collectEndpoint fetches one feed and folds everything it mentioned into
// the registry before the snapshot stage runs.
func (s *Service) collectEndpoint(ctx context.Context, ep Endpoint) endpointResult {
	start := time.Now()
	readings, stations, attempts, err := s.client.Fetch(ctx, ep)
	res := endpointResult{
		endpoint: ep,
		readings: readings,
		attempts: attempts,
		duration: time.Since(start),
		err:      err,
	}
	if err != nil {
		log.Printf("collector: endpoint %s failed after %d attempts: %v", ep.DataType, attempts, err)
		return res
	}

	// Metadata first: it names stations and often carries their position,
	// including stations with no value this cycle.
	for sid, meta := range stations {
		obs := station.Observation{StationID: sid, Name: meta.Name, DataType: ep.DataType}
		if meta.HasLocation {
			obs.Coords = &station.Coordinates{
				Lat:    meta.Lat,
				Lng:    meta.Lng,
				Name:   meta.Name,
				Source: station.SourceKnown,
			}
		}
		s.registry.Observe(obs)
	}
	for _, r := range readings {
		s.registry.Observe(station.Observation{
			StationID:  r.StationID,
			DataType:   ep.DataType,
			HasReading: true,
		})
	}

	log.Printf("collector: endpoint %s fulfilled: %d readings, %d stations known, %d attempts",
		ep.DataType, len(readings), len(stations), attempts)
	return res
}

// buildSnapshot resolves and scores the registry, selects the stations to
// keep per data type, and assembles the cycle outcome.
func (s *Service) buildSnapshot(id uuid.UUID, started time.Time, results []endpointResult) WeatherSnapshot {
	filled := s.registry.EnsureCoordinates(s.resolver.Resolve)
	if filled > 0 {
		log.Printf("DEBUG: estimated coordinates for %d stations", filled)
	}
	s.scorer.ScoreRegistry(s.registry)

	perType := make(map[string]DataTypeSummary, len(results))
	usedSet := make(map[string]bool)
	outcomes := make([]EndpointOutcome, 0, len(results))
	succeeded := 0

	for _, res := range results {
		outcomes = append(outcomes, res.outcome())
		if !res.fulfilled() {
			continue
		}
		succeeded++

		chosen := make(map[string]bool)
		for _, st := range s.selector.SelectForType(s.registry, res.endpoint.DataType) {
			chosen[st.ID] = true
		}

		kept := filterReadings(res.readings, chosen)
		perType[res.endpoint.DataType] = summarize(kept)
		for _, r := range kept {
			usedSet[r.StationID] = true
		}
	}

	used := make([]string, 0, len(usedSet))
	for sid := range usedSet {
		used = append(used, sid)
	}
	sort.Strings(used)

	return WeatherSnapshot{
		CollectionID:         id,
		Timestamp:            time.Now().UTC(),
		CollectionDurationMs: time.Since(started).Milliseconds(),
		APICallsTotal:        len(results),
		APICallsSucceeded:    succeeded,
		APICallsFailed:       len(results) - succeeded,
		StationsUsed:         used,
		DataQualityScore: qualityScore(qualityInputs{
			callsTotal:       len(results),
			callsSucceeded:   succeeded,
			stationsUsed:     len(used),
			expectedStations: s.cfg.ExpectedStations,
			typesFulfilled:   succeeded,
			typesTotal:       len(results),
		}, s.cfg.Quality),
		PerDataType:        perType,
		GeographicCoverage: s.buildCoverage(used),
		Endpoints:          outcomes,
	}
}

// buildCoverage buckets the used stations into named regions by their
// resolved coordinates.
func (s *Service) buildCoverage(used []string) GeographicCoverage {
	byRegion := make(map[string][]string)
	for _, sid := range used {
		st, ok := s.registry.Get(sid)
		if !ok || st.Coordinates == nil {
			continue
		}
		region := string(geo.RegionFor(st.Coordinates.Lat, st.Coordinates.Lng))
		byRegion[region] = append(byRegion[region], sid)
	}
	for _, ids := range byRegion {
		sort.Strings(ids)
	}

	total := len(geo.Regions)
	return GeographicCoverage{
		RegionsCovered:     len(byRegion),
		TotalRegions:       total,
		CoveragePercentage: round2(float64(len(byRegion)) / float64(total) * 100),
		StationsByRegion:   byRegion,
	}
}

// Latest delegates to the underlying store.
func (s *Service) Latest() (WeatherSnapshot, error) {
	return s.store.Latest()
}

// Range delegates to the underlying store.
func (s *Service) Range(from, to time.Time) ([]WeatherSnapshot, error) {
	return s.store.Range(from, to)
}

// Stations lists the registry, optionally narrowed to one data type.
func (s *Service) Stations(dataType string) []station.Station {
	if dataType == "" {
		return s.registry.All()
	}
	return s.registry.ByDataType(dataType)
}

// Station looks up a single station by id.
func (s *Service) Station(id string) (station.Station, bool) {
	return s.registry.Get(id)
}

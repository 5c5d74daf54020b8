package station

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"time"
)

// Observation is one station sighting inside a feed response.
type Observation struct {
	StationID string
	Name      string
	DataType  string
	// Coords carries feed-supplied metadata when present; nil otherwise.
	Coords *Coordinates
	// HasReading marks a sighting backed by an actual value. Feed metadata
	// mentions stations that stayed quiet; those must not inflate the
	// reading counter.
	HasReading bool
}

// Registry is the catalog of every station ever observed across feeds,
// keyed by station id. It is safe for concurrent use: collection cycles
// upsert while API handlers read. Stations are never deleted within a run.
type Registry struct {
	mu       sync.RWMutex
	stations map[string]*Station
	path     string
}

// NewRegistry creates an empty registry. path names the JSON persistence
// file; an empty path disables persistence.
func NewRegistry(path string) *Registry {
	return &Registry{
		stations: make(map[string]*Station),
		path:     path,
	}
}

// Observe upserts one sighting: unknown ids create a station, known ids
// extend its data types and refresh LastSeen. Only sightings carrying a
// reading bump the counter.
func (r *Registry) Observe(obs Observation) {
	if obs.StationID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	st, ok := r.stations[obs.StationID]
	if !ok {
		st = &Station{
			ID:               obs.StationID,
			FirstSeen:        now,
			ReliabilityScore: 1.0,
		}
		r.stations[obs.StationID] = st
	}

	if obs.Name != "" {
		st.Name = obs.Name
	}
	st.LastSeen = now
	if obs.HasReading {
		st.ReadingsCount++
	}
	st.addDataType(obs.DataType)
	st.applyCoordinates(obs.Coords)
}

// SetReliability stores an externally computed reliability score, clamped
// to [0, 1]. Unknown ids are ignored.
func (r *Registry) SetReliability(id string, score float64) {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	r.update(id, func(st *Station) {
		st.ReliabilityScore = score
	})
}

// EnsureCoordinates fills a position for every station that has none,
// using the supplied resolver. Returns how many stations were filled.
func (r *Registry) EnsureCoordinates(resolve func(id string) Coordinates) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	filled := 0
	for id, st := range r.stations {
		if st.Coordinates != nil {
			continue
		}
		c := resolve(id)
		st.Coordinates = &c
		filled++
	}
	return filled
}

// Get returns a copy of the station, if present.
func (r *Registry) Get(id string) (Station, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.stations[id]
	if !ok {
		return Station{}, false
	}
	return st.clone(), true
}

// All returns copies of every station, sorted by id.
func (r *Registry) All() []Station {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked(func(*Station) bool { return true })
}

// ByDataType returns copies of the stations reporting the data type,
// sorted by id.
func (r *Registry) ByDataType(dataType string) []Station {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked(func(st *Station) bool { return st.HasDataType(dataType) })
}

// Len returns the number of stations observed so far.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stations)
}

// snapshotLocked copies matching stations; callers hold at least a read
// lock.
func (r *Registry) snapshotLocked(match func(*Station) bool) []Station {
	out := make([]Station, 0, len(r.stations))
	for _, st := range r.stations {
		if match(st) {
			out = append(out, st.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// update runs fn on the live station under the write lock.
func (r *Registry) update(id string, fn func(*Station)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.stations[id]
	if !ok {
		return false
	}
	fn(st)
	return true
}

// Save persists the registry to its JSON file so the next run can
// warm-start discovery. A registry without a path is a no-op.
func (r *Registry) Save() error {
	if r.path == "" {
		return nil
	}

	stations := r.All()
	data, err := json.MarshalIndent(stations, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling registry: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("writing registry file: %w", err)
	}
	return nil
}

// Load merges a previously saved registry file into this one. A missing
// file is a fresh start, not an error.
func (r *Registry) Load() error {
	if r.path == "" {
		return nil
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading registry file: %w", err)
	}

	var stations []Station
	if err := json.Unmarshal(data, &stations); err != nil {
		return fmt.Errorf("parsing registry file: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range stations {
		r.mergeLocked(&stations[i])
	}
	log.Printf("INFO: loaded %d stations from %s", len(stations), r.path)
	return nil
}

// mergeLocked folds one persisted station into the live set, keeping the
// monotonic fields monotonic: data types union, counters never shrink,
// known coordinates win over estimates.
func (r *Registry) mergeLocked(in *Station) {
	if in.ID == "" {
		return
	}

	st, ok := r.stations[in.ID]
	if !ok {
		cp := in.clone()
		if cp.ReliabilityScore == 0 && cp.ReadingsCount == 0 {
			// A record that never saw a reading carries the default.
			cp.ReliabilityScore = 1.0
		}
		r.stations[in.ID] = &cp
		return
	}

	for _, dt := range in.DataTypes {
		st.addDataType(dt)
	}
	if in.ReadingsCount > st.ReadingsCount {
		st.ReadingsCount = in.ReadingsCount
	}
	if !in.FirstSeen.IsZero() && (st.FirstSeen.IsZero() || in.FirstSeen.Before(st.FirstSeen)) {
		st.FirstSeen = in.FirstSeen
	}
	if in.LastSeen.After(st.LastSeen) {
		st.LastSeen = in.LastSeen
	}
	if st.Name == "" {
		st.Name = in.Name
	}
	st.applyCoordinates(in.Coordinates)
	// The persisted reliability reflects accumulated history; prefer it.
	st.ReliabilityScore = in.ReliabilityScore
}

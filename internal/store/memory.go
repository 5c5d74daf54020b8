package store

import (
	"errors"
	"sync"
	"time"

	"github.com/sgweather/station-aggregation/internal/collector"
)

// ErrNotFound is returned when no snapshot matches the request.
var ErrNotFound = errors.New("no snapshots collected yet")

// MemoryStore is a concurrency-safe in-memory history of collection
// snapshots, ordered oldest to newest.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots []collector.WeatherSnapshot

	maxHistory int           // max number of kept snapshots; <= 0 is unlimited
	maxAge     time.Duration // optional max snapshot age
}

// NewMemoryStore creates a store with the given retention limits.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// SaveSnapshot appends a snapshot and enforces retention.
func (s *MemoryStore) SaveSnapshot(snap collector.WeatherSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots = append(s.snapshots, snap)

	// Retention by count.
	if s.maxHistory > 0 && len(s.snapshots) > s.maxHistory {
		over := len(s.snapshots) - s.maxHistory
		s.snapshots = s.snapshots[over:]
	}

	// Retention by age.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.snapshots); i++ {
			if !s.snapshots[i].Timestamp.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			s.snapshots = s.snapshots[i:]
		}
	}
}

// Latest returns the most recent snapshot.
func (s *MemoryStore) Latest() (collector.WeatherSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.snapshots) == 0 {
		return collector.WeatherSnapshot{}, ErrNotFound
	}
	return s.snapshots[len(s.snapshots)-1], nil
}

// Range returns the snapshots taken between from and to, inclusive.
func (s *MemoryStore) Range(from, to time.Time) ([]collector.WeatherSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.snapshots) == 0 {
		return nil, ErrNotFound
	}

	var result []collector.WeatherSnapshot
	for _, snap := range s.snapshots {
		if !snap.Timestamp.Before(from) && !snap.Timestamp.After(to) {
			result = append(result, snap)
		}
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// Len reports how many snapshots are currently retained.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

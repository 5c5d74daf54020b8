package station

import (
	"math"
	"sort"
)

// SelectionConfig bounds how many stations are chosen per data type.
type SelectionConfig struct {
	// Ratio is the fraction of available stations to aim for.
	Ratio      float64
	MinPerType int
	MaxPerType int
}

// DefaultSelectionConfig returns the standard bounds: 30% of the
// candidates, at least 3, at most 10.
func DefaultSelectionConfig() SelectionConfig {
	return SelectionConfig{Ratio: 0.3, MinPerType: 3, MaxPerType: 10}
}

// Selector picks the top-ranked stations for each data type.
type Selector struct {
	cfg      SelectionConfig
	resolver *Resolver
}

// NewSelector creates a selector. The resolver places fallback stations
// when the registry has no candidates yet.
func NewSelector(resolver *Resolver, cfg SelectionConfig) *Selector {
	return &Selector{cfg: cfg, resolver: resolver}
}

// fallbackStationIDs lists stations known to report each data type, used
// on the first cycle before anything has been discovered. Selection must
// never come back empty.
var fallbackStationIDs = map[string][]string{
	"air-temperature":   {"S107", "S109", "S111", "S117", "S50"},
	"relative-humidity": {"S107", "S109", "S111", "S50", "S60"},
	"rainfall":          {"S08", "S33", "S66", "S71", "S81"},
	"wind-speed":        {"S104", "S107", "S108", "S115", "S24"},
	"wind-direction":    {"S104", "S106", "S107", "S108", "S115"},
}

var fallbackDefault = []string{"S107", "S109", "S117"}

// SelectForType returns the stations to query for one data type, ranked
// by priority score with ties broken by id. An empty registry yields the
// hard-coded fallback set instead of an empty slice.
func (s *Selector) SelectForType(reg *Registry, dataType string) []Station {
	candidates := reg.ByDataType(dataType)
	if len(candidates) == 0 {
		return s.fallback(dataType)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].PriorityScore != candidates[j].PriorityScore {
			return candidates[i].PriorityScore > candidates[j].PriorityScore
		}
		return candidates[i].ID < candidates[j].ID
	})

	k := s.targetCount(len(candidates))
	if k > len(candidates) {
		k = len(candidates)
	}
	return candidates[:k]
}

// targetCount applies the ratio and clamps it to the configured bounds.
func (s *Selector) targetCount(available int) int {
	k := int(math.Ceil(s.cfg.Ratio * float64(available)))
	if k < s.cfg.MinPerType {
		k = s.cfg.MinPerType
	}
	if k > s.cfg.MaxPerType {
		k = s.cfg.MaxPerType
	}
	return k
}

// fallback builds placeholder stations for the given data type with
// resolver-assigned coordinates.
func (s *Selector) fallback(dataType string) []Station {
	ids, ok := fallbackStationIDs[dataType]
	if !ok {
		ids = fallbackDefault
	}

	out := make([]Station, 0, len(ids))
	for _, id := range ids {
		coords := s.resolver.Resolve(id)
		out = append(out, Station{
			ID:               id,
			Name:             coords.Name,
			DataTypes:        []string{dataType},
			Coordinates:      &coords,
			ReliabilityScore: 1.0,
			PriorityLevel:    PriorityLow,
		})
	}
	return out
}

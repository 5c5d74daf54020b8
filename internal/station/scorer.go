package station

import (
	"math"

	"github.com/sgweather/station-aggregation/internal/geo"
)

// ScoringWeights holds the tunable constants of the priority formula. The
// defaults reproduce the long-standing behavior; none of them is an
// algorithmic invariant.
type ScoringWeights struct {
	// ProximityCutoffKm is the distance beyond which a station earns no
	// proximity bonus; inside it the bonus falls off linearly.
	ProximityCutoffKm float64
	ProximityWeight   float64
	DataTypeWeight    float64
	ReliabilityWeight float64
}

// DefaultScoringWeights returns the standard weighting.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		ProximityCutoffKm: 10,
		ProximityWeight:   10,
		DataTypeWeight:    5,
		ReliabilityWeight: 20,
	}
}

// Scorer computes composite relevance scores for stations against a fixed
// set of reference locations.
type Scorer struct {
	weights ScoringWeights
	refs    []ReferenceLocation
}

// NewScorer creates a scorer for the given reference locations.
func NewScorer(refs []ReferenceLocation, weights ScoringWeights) *Scorer {
	return &Scorer{weights: weights, refs: refs}
}

// The three bonus terms stay separate so each can be checked on its own.

func (sc *Scorer) proximityBonus(minDistanceKm float64) float64 {
	return math.Max(0, sc.weights.ProximityCutoffKm-minDistanceKm) * sc.weights.ProximityWeight
}

func (sc *Scorer) dataTypeBonus(dataTypeCount int) float64 {
	return float64(dataTypeCount) * sc.weights.DataTypeWeight
}

func (sc *Scorer) reliabilityBonus(reliability float64) float64 {
	return reliability * sc.weights.ReliabilityWeight
}

// Score fills the station's proximity map, nearest reference location,
// priority score, and priority level. Stations without coordinates are
// left untouched; they get scored once the resolver has placed them.
func (sc *Scorer) Score(st *Station) {
	if st.Coordinates == nil || len(sc.refs) == 0 {
		return
	}

	proximities := make(map[string]Proximity, len(sc.refs))
	nearestKey := ""
	minDistance := math.MaxFloat64

	for _, ref := range sc.refs {
		d := geo.DistanceKm(st.Coordinates.Lat, st.Coordinates.Lng, ref.Lat, ref.Lng)
		proximities[ref.Key] = Proximity{
			DistanceKm:   roundKm(d),
			LocationName: ref.Name,
			Priority:     ref.Priority,
		}
		if d < minDistance {
			minDistance = d
			nearestKey = ref.Key
		}
	}

	st.Proximities = proximities
	st.NearestKeyLocation = nearestKey
	st.PriorityScore = sc.proximityBonus(minDistance) +
		sc.dataTypeBonus(len(st.DataTypes)) +
		sc.reliabilityBonus(st.ReliabilityScore)
	st.PriorityLevel = LevelForScore(st.PriorityScore)
}

// ScoreRegistry scores every station that has coordinates and returns how
// many were scored.
func (sc *Scorer) ScoreRegistry(reg *Registry) int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	scored := 0
	for _, st := range reg.stations {
		if st.Coordinates == nil {
			continue
		}
		sc.Score(st)
		scored++
	}
	return scored
}

// roundKm keeps reported distances at two decimals; scoring always uses
// the raw value.
func roundKm(km float64) float64 {
	return math.Round(km*100) / 100
}

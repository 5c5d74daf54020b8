package collector

import (
	"time"

	"github.com/google/uuid"
)

// Reading is one station's value for one data type within a cycle.
// Timestamp is the feed's observation time, which trails the collection
// time; it stays zero when the feed omits or mangles it.
type Reading struct {
	StationID string    `json:"stationId"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// EndpointStatus says how a feed settled during a collection cycle.
type EndpointStatus string

const (
	// StatusFulfilled means the feed answered with a decodable payload,
	// even one carrying zero readings.
	StatusFulfilled EndpointStatus = "fulfilled"
	// StatusRejected means the feed failed after all retries. A rejected
	// feed never aborts the cycle; it is recorded and skipped.
	StatusRejected EndpointStatus = "rejected"
)

// EndpointOutcome records how one feed behaved during a cycle.
type EndpointOutcome struct {
	DataType   string         `json:"dataType"`
	Status     EndpointStatus `json:"status"`
	Attempts   int            `json:"attempts"`
	DurationMs int64          `json:"durationMs"`
	Readings   int            `json:"readings"`
	Error      string         `json:"error,omitempty"`
}

// DataTypeSummary aggregates the readings of one data type. Min and Max
// are pointers so an empty summary serializes as null rather than zero.
type DataTypeSummary struct {
	Readings []Reading `json:"readings"`
	Count    int       `json:"count"`
	Average  float64   `json:"average"`
	Min      *float64  `json:"min"`
	Max      *float64  `json:"max"`
}

// GeographicCoverage reports which of the island's regions contributed
// at least one station to the cycle.
type GeographicCoverage struct {
	RegionsCovered     int                 `json:"regionsCovered"`
	TotalRegions       int                 `json:"totalRegions"`
	CoveragePercentage float64             `json:"coveragePercentage"`
	StationsByRegion   map[string][]string `json:"stationsByRegion"`
}

// WeatherSnapshot is the full outcome of one collection cycle.
type WeatherSnapshot struct {
	CollectionID         uuid.UUID                  `json:"collectionId"`
	Timestamp            time.Time                  `json:"timestamp"` // always UTC
	CollectionDurationMs int64                      `json:"collectionDurationMs"`
	APICallsTotal        int                        `json:"apiCallsTotal"`
	APICallsSucceeded    int                        `json:"apiCallsSucceeded"`
	APICallsFailed       int                        `json:"apiCallsFailed"`
	StationsUsed         []string                   `json:"stationsUsed"`
	DataQualityScore     int                        `json:"dataQualityScore"`
	PerDataType          map[string]DataTypeSummary `json:"perDataType"`
	GeographicCoverage   GeographicCoverage         `json:"geographicCoverage"`
	Endpoints            []EndpointOutcome          `json:"endpoints"`
}

// QualityWeights splits the quality score between its three components.
// They are expected to sum to 1.
type QualityWeights struct {
	SuccessRate      float64
	StationCoverage  float64
	DataTypeCoverage float64
}

// DefaultQualityWeights returns the standard 40/30/30 split.
func DefaultQualityWeights() QualityWeights {
	return QualityWeights{SuccessRate: 0.4, StationCoverage: 0.3, DataTypeCoverage: 0.3}
}

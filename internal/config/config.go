package config

import (
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/sgweather/station-aggregation/internal/collector"
	"github.com/sgweather/station-aggregation/internal/station"
)

var defaultDataTypes = []string{
	"air-temperature",
	"relative-humidity",
	"rainfall",
	"wind-speed",
	"wind-direction",
}

type AppConfig struct {
	// Upstream realtime API.
	APIBaseURL string   `validate:"required,url"`
	DataTypes  []string `validate:"min=1,dive,required"`

	// Outbound resilience.
	FetchTimeout   time.Duration `validate:"gt=0"`
	MaxRetries     int           `validate:"gte=0"`
	BackoffInitial time.Duration `validate:"gt=0"`
	BackoffMax     time.Duration `validate:"gte=0"`
	BackoffJitter  time.Duration `validate:"gte=0"`
	InterCallDelay time.Duration `validate:"gte=0"`

	// Collection cadence.
	CollectInterval time.Duration `validate:"gt=0"`
	CollectTimeout  time.Duration `validate:"gt=0"`

	// Station selection and scoring.
	SelectionRatio    float64 `validate:"gt=0,lte=1"`
	MinPerType        int     `validate:"gte=1"`
	MaxPerType        int     `validate:"gtefield=MinPerType"`
	ExpectedStations  int     `validate:"gte=1"`
	ProximityCutoffKm float64 `validate:"gt=0"`
	ProximityWeight   float64 `validate:"gte=0"`
	DataTypeWeight    float64 `validate:"gte=0"`
	ReliabilityWeight float64 `validate:"gte=0"`

	// Data quality weighting; the three must sum to 1.
	QualitySuccessWeight float64 `validate:"gte=0,lte=1"`
	QualityStationWeight float64 `validate:"gte=0,lte=1"`
	QualityTypeWeight    float64 `validate:"gte=0,lte=1"`

	// Scoring anchors.
	ReferenceLocations []station.ReferenceLocation `validate:"min=1,dive"`

	// Snapshot retention.
	StoreMaxHistory int           `validate:"gte=0"` // 0 = unlimited
	StoreMaxAge     time.Duration `validate:"gte=0"` // 0 = unlimited

	// Station registry persistence; empty disables it.
	RegistryFile string

	Port string `validate:"required"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		APIBaseURL:           getenvDefault("API_BASE_URL", "https://api.data.gov.sg/v1/environment"),
		DataTypes:            splitList(getenvDefault("DATA_TYPES", strings.Join(defaultDataTypes, ","))),
		MaxRetries:           getenvInt("FETCH_MAX_RETRIES", 3),
		SelectionRatio:       getenvFloat("SELECTION_RATIO", 0.3),
		MinPerType:           getenvInt("SELECTION_MIN_PER_TYPE", 3),
		MaxPerType:           getenvInt("SELECTION_MAX_PER_TYPE", 10),
		ExpectedStations:     getenvInt("EXPECTED_TOTAL_STATIONS", 40),
		ProximityCutoffKm:    getenvFloat("PROXIMITY_CUTOFF_KM", 10),
		ProximityWeight:      getenvFloat("PROXIMITY_WEIGHT", 10),
		DataTypeWeight:       getenvFloat("DATA_TYPE_WEIGHT", 5),
		ReliabilityWeight:    getenvFloat("RELIABILITY_WEIGHT", 20),
		QualitySuccessWeight: getenvFloat("QUALITY_SUCCESS_WEIGHT", 0.4),
		QualityStationWeight: getenvFloat("QUALITY_STATION_WEIGHT", 0.3),
		QualityTypeWeight:    getenvFloat("QUALITY_TYPE_WEIGHT", 0.3),
		StoreMaxHistory:      getenvInt("STORE_MAX_HISTORY", 96),
		RegistryFile:         getenvDefault("REGISTRY_FILE", "stations.json"),
		Port:                 getenvDefault("PORT", "8080"),
	}

	var err error
	if cfg.FetchTimeout, err = getenvDuration("FETCH_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.BackoffInitial, err = getenvDuration("BACKOFF_INITIAL", "500ms"); err != nil {
		return nil, err
	}
	if cfg.BackoffMax, err = getenvDuration("BACKOFF_MAX", "5s"); err != nil {
		return nil, err
	}
	if cfg.BackoffJitter, err = getenvDuration("BACKOFF_JITTER", "250ms"); err != nil {
		return nil, err
	}
	if cfg.InterCallDelay, err = getenvDuration("INTER_CALL_DELAY", "250ms"); err != nil {
		return nil, err
	}
	if cfg.CollectInterval, err = getenvDuration("COLLECT_INTERVAL", "5m"); err != nil {
		return nil, err
	}
	if cfg.CollectTimeout, err = getenvDuration("COLLECT_TIMEOUT", "2m"); err != nil {
		return nil, err
	}
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	if raw := os.Getenv("REFERENCE_LOCATIONS"); raw != "" {
		refs, err := parseReferenceLocations(raw)
		if err != nil {
			return nil, err
		}
		cfg.ReferenceLocations = refs
	} else {
		cfg.ReferenceLocations = defaultReferenceLocations()
	}

	sum := cfg.QualitySuccessWeight + cfg.QualityStationWeight + cfg.QualityTypeWeight
	if math.Abs(sum-1) > 0.001 {
		return nil, fmt.Errorf("quality weights must sum to 1, got %.3f", sum)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Endpoints expands the base URL into one endpoint per data type.
func (c *AppConfig) Endpoints() []collector.Endpoint {
	base := strings.TrimRight(c.APIBaseURL, "/")
	eps := make([]collector.Endpoint, 0, len(c.DataTypes))
	for _, dt := range c.DataTypes {
		eps = append(eps, collector.Endpoint{DataType: dt, URL: base + "/" + dt})
	}
	return eps
}

func (c *AppConfig) BackoffConfig() collector.BackoffConfig {
	return collector.BackoffConfig{
		MaxRetries:      c.MaxRetries,
		InitialInterval: c.BackoffInitial,
		MaxInterval:     c.BackoffMax,
		JitterMax:       c.BackoffJitter,
	}
}

func (c *AppConfig) QualityWeights() collector.QualityWeights {
	return collector.QualityWeights{
		SuccessRate:      c.QualitySuccessWeight,
		StationCoverage:  c.QualityStationWeight,
		DataTypeCoverage: c.QualityTypeWeight,
	}
}

func (c *AppConfig) ScoringWeights() station.ScoringWeights {
	return station.ScoringWeights{
		ProximityCutoffKm: c.ProximityCutoffKm,
		ProximityWeight:   c.ProximityWeight,
		DataTypeWeight:    c.DataTypeWeight,
		ReliabilityWeight: c.ReliabilityWeight,
	}
}

func (c *AppConfig) SelectionConfig() station.SelectionConfig {
	return station.SelectionConfig{
		Ratio:      c.SelectionRatio,
		MinPerType: c.MinPerType,
		MaxPerType: c.MaxPerType,
	}
}

func defaultReferenceLocations() []station.ReferenceLocation {
	return []station.ReferenceLocation{
		{Key: "marina-bay", Name: "Marina Bay", Lat: 1.2830, Lng: 103.8607, Priority: station.TierPrimary},
		{Key: "changi-airport", Name: "Changi Airport", Lat: 1.3644, Lng: 103.9915, Priority: station.TierPrimary},
		{Key: "jurong-east", Name: "Jurong East", Lat: 1.3329, Lng: 103.7436, Priority: station.TierSecondary},
		{Key: "woodlands", Name: "Woodlands", Lat: 1.4382, Lng: 103.7890, Priority: station.TierSecondary},
		{Key: "sentosa", Name: "Sentosa", Lat: 1.2494, Lng: 103.8303, Priority: station.TierTertiary},
	}
}

// parseReferenceLocations reads the override format
// "key:name:lat:lng:tier;key:name:lat:lng:tier;...".
func parseReferenceLocations(raw string) ([]station.ReferenceLocation, error) {
	var refs []station.ReferenceLocation
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 5 {
			return nil, fmt.Errorf("reference location %q: want key:name:lat:lng:tier", entry)
		}
		lat, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("reference location %q: bad latitude: %w", entry, err)
		}
		lng, err := strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return nil, fmt.Errorf("reference location %q: bad longitude: %w", entry, err)
		}
		refs = append(refs, station.ReferenceLocation{
			Key:      parts[0],
			Name:     parts[1],
			Lat:      lat,
			Lng:      lng,
			Priority: station.PriorityTier(parts[4]),
		})
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("no reference locations configured")
	}
	return refs, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

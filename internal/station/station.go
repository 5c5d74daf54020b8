package station

import (
	"sort"
	"time"
)

// CoordinateSource tells how a station position was obtained.
type CoordinateSource string

const (
	// SourceKnown marks coordinates from an authoritative source: the
	// static lookup table or feed metadata.
	SourceKnown CoordinateSource = "known"
	// SourceEstimated marks coordinates derived from the station id by the
	// regional fallback heuristic.
	SourceEstimated CoordinateSource = "estimated"
)

// Coordinates is a resolved station position.
type Coordinates struct {
	Lat    float64          `json:"lat"`
	Lng    float64          `json:"lng"`
	Name   string           `json:"name"`
	Source CoordinateSource `json:"source"`
}

// PriorityTier is the tier of a reference location. It anchors scoring and
// is copied verbatim into each station's proximity entries.
type PriorityTier string

const (
	TierPrimary   PriorityTier = "primary"
	TierSecondary PriorityTier = "secondary"
	TierTertiary  PriorityTier = "tertiary"
)

// ReferenceLocation is a fixed named point of interest used only as a
// scoring anchor. It is configuration, never derived data.
type ReferenceLocation struct {
	Key      string       `json:"key" validate:"required"`
	Name     string       `json:"name" validate:"required"`
	Lat      float64      `json:"lat" validate:"gte=-90,lte=90"`
	Lng      float64      `json:"lng" validate:"gte=-180,lte=180"`
	Priority PriorityTier `json:"priority" validate:"required,oneof=primary secondary tertiary"`
}

// Proximity describes a station's relation to one reference location.
type Proximity struct {
	DistanceKm   float64      `json:"distanceKm"`
	LocationName string       `json:"locationName"`
	Priority     PriorityTier `json:"priority"`
}

// PriorityLevel is the coarse relevance bucket derived from PriorityScore.
type PriorityLevel string

const (
	PriorityCritical PriorityLevel = "critical"
	PriorityHigh     PriorityLevel = "high"
	PriorityMedium   PriorityLevel = "medium"
	PriorityLow      PriorityLevel = "low"
)

// LevelForScore maps a priority score onto its level.
func LevelForScore(score float64) PriorityLevel {
	switch {
	case score >= 80:
		return PriorityCritical
	case score >= 60:
		return PriorityHigh
	case score >= 40:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Station is one physical sensor location observed across the feeds.
// DataTypes and the coordinate source only ever move from unknown/partial
// to known/complete; they never regress.
type Station struct {
	ID                 string               `json:"id"`
	Name               string               `json:"name,omitempty"`
	DataTypes          []string             `json:"dataTypes"`
	Coordinates        *Coordinates         `json:"coordinates,omitempty"`
	ReadingsCount      int64                `json:"readingsCount"`
	FirstSeen          time.Time            `json:"firstSeen"`
	LastSeen           time.Time            `json:"lastSeen"`
	ReliabilityScore   float64              `json:"reliabilityScore"`
	Proximities        map[string]Proximity `json:"proximities,omitempty"`
	NearestKeyLocation string               `json:"nearestKeyLocation,omitempty"`
	PriorityScore      float64              `json:"priorityScore"`
	PriorityLevel      PriorityLevel        `json:"priorityLevel,omitempty"`
}

// HasDataType reports whether the station reports the given data type.
func (s *Station) HasDataType(dataType string) bool {
	for _, dt := range s.DataTypes {
		if dt == dataType {
			return true
		}
	}
	return false
}

// addDataType inserts the data type keeping the set sorted. Growth only;
// nothing is ever removed.
func (s *Station) addDataType(dataType string) {
	if dataType == "" || s.HasDataType(dataType) {
		return
	}
	s.DataTypes = append(s.DataTypes, dataType)
	sort.Strings(s.DataTypes)
}

// applyCoordinates sets the position honoring the non-regression rule: an
// estimate never replaces anything already set, while a known position may
// replace an estimate or refresh an older known one.
func (s *Station) applyCoordinates(c *Coordinates) {
	if c == nil {
		return
	}
	if s.Coordinates == nil || c.Source == SourceKnown {
		cc := *c
		s.Coordinates = &cc
	}
}

// clone returns a deep copy so callers outside the registry never share
// mutable state with it.
func (s *Station) clone() Station {
	out := *s
	if s.Coordinates != nil {
		c := *s.Coordinates
		out.Coordinates = &c
	}
	if s.DataTypes != nil {
		out.DataTypes = append([]string(nil), s.DataTypes...)
	}
	if s.Proximities != nil {
		out.Proximities = make(map[string]Proximity, len(s.Proximities))
		for k, v := range s.Proximities {
			out.Proximities[k] = v
		}
	}
	return out
}

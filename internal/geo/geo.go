package geo

import "math"

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance in kilometers between two
// points, computed with the haversine formula. The result is symmetric and
// zero for identical points; no ellipsoid correction is applied because
// proximity ranking does not need sub-permille accuracy.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Bounds is a latitude/longitude bounding box.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// Contains reports whether the point lies inside the box, borders included.
func (b Bounds) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// Clip clamps the point to the box.
func (b Bounds) Clip(lat, lng float64) (float64, float64) {
	lat = math.Max(b.MinLat, math.Min(b.MaxLat, lat))
	lng = math.Max(b.MinLng, math.Min(b.MaxLng, lng))
	return lat, lng
}

// CoverageBounds is the bounding box of the whole coverage area: Singapore
// including the surrounding islands.
var CoverageBounds = Bounds{MinLat: 1.16, MaxLat: 1.48, MinLng: 103.60, MaxLng: 104.10}

// RegionName identifies one of the five fixed coverage regions.
type RegionName string

const (
	RegionNorth     RegionName = "north"
	RegionNorthEast RegionName = "north-east"
	RegionEast      RegionName = "east"
	RegionWest      RegionName = "west"
	RegionCentral   RegionName = "central"
)

// Region pairs a region name with the sub-bounds used when estimating a
// position for a station that has no known coordinates. The sub-bounds are
// chosen so that every point inside them buckets back into the same region
// via RegionFor.
type Region struct {
	Name   RegionName
	Bounds Bounds
}

// Regions lists the five coverage regions in a stable order.
var Regions = []Region{
	{Name: RegionNorth, Bounds: Bounds{MinLat: 1.415, MaxLat: 1.46, MinLng: 103.78, MaxLng: 103.92}},
	{Name: RegionNorthEast, Bounds: Bounds{MinLat: 1.35, MaxLat: 1.41, MinLng: 103.83, MaxLng: 103.92}},
	{Name: RegionEast, Bounds: Bounds{MinLat: 1.30, MaxLat: 1.40, MinLng: 103.94, MaxLng: 104.05}},
	{Name: RegionWest, Bounds: Bounds{MinLat: 1.25, MaxLat: 1.40, MinLng: 103.62, MaxLng: 103.76}},
	{Name: RegionCentral, Bounds: Bounds{MinLat: 1.25, MaxLat: 1.34, MinLng: 103.78, MaxLng: 103.91}},
}

// RegionFor buckets a point into one of the five regions using simple
// latitude/longitude thresholds. Every point gets a bucket, including
// points outside the coverage box; callers that care should Clip first.
func RegionFor(lat, lng float64) RegionName {
	switch {
	case lat >= 1.415:
		return RegionNorth
	case lng < 103.77:
		return RegionWest
	case lng >= 103.93:
		return RegionEast
	case lat >= 1.345 && lng >= 103.82:
		return RegionNorthEast
	default:
		return RegionCentral
	}
}

package geo

import (
	"math"
	"testing"
)

func TestDistanceKmZeroForIdenticalPoints(t *testing.T) {
	points := [][2]float64{
		{1.2834, 103.8607},
		{1.3644, 103.9915},
		{0, 0},
		{-45.5, 170.2},
	}
	for _, p := range points {
		if d := DistanceKm(p[0], p[1], p[0], p[1]); d != 0 {
			t.Errorf("expected zero distance for identical point (%f, %f), got %f", p[0], p[1], d)
		}
	}
}

func TestDistanceKmSymmetry(t *testing.T) {
	pairs := [][4]float64{
		{1.2834, 103.8607, 1.3644, 103.9915}, // Marina Bay <-> Changi
		{1.29377, 103.61843, 1.3644, 103.9915}, // Tuas <-> Changi
		{1.44387, 103.78538, 1.25, 103.8279}, // Woodlands <-> Sentosa
	}
	for _, p := range pairs {
		ab := DistanceKm(p[0], p[1], p[2], p[3])
		ba := DistanceKm(p[2], p[3], p[0], p[1])
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("distance not symmetric: %f vs %f", ab, ba)
		}
	}
}

func TestDistanceKmKnownDistances(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		minKm, maxKm           float64
	}{
		{"marina bay to changi", 1.2834, 103.8607, 1.3644, 103.9915, 16, 18.5},
		{"tuas to changi", 1.29377, 103.61843, 1.3644, 103.9915, 41, 43.5},
		{"scotts road to ang mo kio", 1.31055, 103.8365, 1.3764, 103.8492, 7, 8},
	}
	for _, tt := range tests {
		d := DistanceKm(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
		if d < tt.minKm || d > tt.maxKm {
			t.Errorf("%s: expected distance in [%f, %f] km, got %f", tt.name, tt.minKm, tt.maxKm, d)
		}
	}
}

func TestDistanceKmTriangleInequality(t *testing.T) {
	// Marina Bay, Ang Mo Kio, Changi.
	a := [2]float64{1.2834, 103.8607}
	b := [2]float64{1.3764, 103.8492}
	c := [2]float64{1.3644, 103.9915}

	ab := DistanceKm(a[0], a[1], b[0], b[1])
	bc := DistanceKm(b[0], b[1], c[0], c[1])
	ac := DistanceKm(a[0], a[1], c[0], c[1])

	if ac > ab+bc+1e-9 {
		t.Errorf("triangle inequality violated: %f > %f + %f", ac, ab, bc)
	}
}

func TestRegionFor(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		want     RegionName
	}{
		{"woodlands avenue 9", 1.44387, 103.78538, RegionNorth},
		{"woodlands road", 1.4172, 103.74855, RegionNorth},
		{"ang mo kio avenue 5", 1.3764, 103.8492, RegionNorthEast},
		{"upper changi road north", 1.3678, 103.9826, RegionEast},
		{"east coast parkway", 1.3135, 103.9625, RegionEast},
		{"tuas south avenue 3", 1.29377, 103.61843, RegionWest},
		{"nanyang avenue", 1.34583, 103.68166, RegionWest},
		{"scotts road", 1.31055, 103.8365, RegionCentral},
		{"sentosa", 1.25, 103.8279, RegionCentral},
		{"marina gardens drive", 1.2799, 103.8703, RegionCentral},
	}
	for _, tt := range tests {
		if got := RegionFor(tt.lat, tt.lng); got != tt.want {
			t.Errorf("%s: expected region %s, got %s", tt.name, tt.want, got)
		}
	}
}

// Points sampled inside a region's estimation sub-bounds must bucket back
// into the same region, otherwise estimated stations would report coverage
// for the wrong region.
func TestRegionBoundsConsistentWithRegionFor(t *testing.T) {
	for _, region := range Regions {
		b := region.Bounds
		samples := [][2]float64{
			{b.MinLat, b.MinLng},
			{b.MinLat, b.MaxLng},
			{b.MaxLat, b.MinLng},
			{b.MaxLat, b.MaxLng},
			{(b.MinLat + b.MaxLat) / 2, (b.MinLng + b.MaxLng) / 2},
		}
		for _, p := range samples {
			if got := RegionFor(p[0], p[1]); got != region.Name {
				t.Errorf("point (%f, %f) in %s sub-bounds bucketed as %s", p[0], p[1], region.Name, got)
			}
		}
	}
}

func TestRegionBoundsInsideCoverage(t *testing.T) {
	for _, region := range Regions {
		b := region.Bounds
		if !CoverageBounds.Contains(b.MinLat, b.MinLng) || !CoverageBounds.Contains(b.MaxLat, b.MaxLng) {
			t.Errorf("region %s sub-bounds extend outside the coverage box", region.Name)
		}
	}
}

func TestClip(t *testing.T) {
	tests := []struct {
		name             string
		lat, lng         float64
		wantLat, wantLng float64
	}{
		{"inside untouched", 1.30, 103.85, 1.30, 103.85},
		{"north of box", 2.00, 103.85, 1.48, 103.85},
		{"south west of box", 1.00, 103.00, 1.16, 103.60},
		{"east of box", 1.30, 105.00, 1.30, 104.10},
	}
	for _, tt := range tests {
		lat, lng := CoverageBounds.Clip(tt.lat, tt.lng)
		if lat != tt.wantLat || lng != tt.wantLng {
			t.Errorf("%s: expected (%f, %f), got (%f, %f)", tt.name, tt.wantLat, tt.wantLng, lat, lng)
		}
	}
}

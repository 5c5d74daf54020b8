package collector

import "math"

// summarize folds one data type's readings into its summary. Zero
// readings produce a zero-count summary with nil bounds.
func summarize(readings []Reading) DataTypeSummary {
	if len(readings) == 0 {
		return DataTypeSummary{Readings: []Reading{}}
	}

	sum := 0.0
	min := readings[0].Value
	max := readings[0].Value
	for _, r := range readings {
		sum += r.Value
		if r.Value < min {
			min = r.Value
		}
		if r.Value > max {
			max = r.Value
		}
	}

	return DataTypeSummary{
		Readings: readings,
		Count:    len(readings),
		Average:  round2(sum / float64(len(readings))),
		Min:      &min,
		Max:      &max,
	}
}

// qualityInputs are the raw counts a cycle feeds into its quality score.
type qualityInputs struct {
	callsTotal       int
	callsSucceeded   int
	stationsUsed     int
	expectedStations int
	typesFulfilled   int
	typesTotal       int
}

// qualityScore blends success rate, station coverage, and data type
// coverage into a 0-100 integer. Each ratio is clamped to 1 before
// weighting so an over-delivering feed cannot push the score past 100.
func qualityScore(in qualityInputs, w QualityWeights) int {
	score := math.Round(100 * (w.SuccessRate*ratio(in.callsSucceeded, in.callsTotal) +
		w.StationCoverage*ratio(in.stationsUsed, in.expectedStations) +
		w.DataTypeCoverage*ratio(in.typesFulfilled, in.typesTotal)))

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score)
}

// ratio divides clamped to [0, 1]; a zero denominator counts as zero.
func ratio(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	r := float64(num) / float64(den)
	if r > 1 {
		return 1
	}
	if r < 0 {
		return 0
	}
	return r
}

// filterReadings keeps only readings from the chosen stations, preserving
// feed order.
func filterReadings(readings []Reading, chosen map[string]bool) []Reading {
	out := make([]Reading, 0, len(readings))
	for _, r := range readings {
		if chosen[r.StationID] {
			out = append(out, r)
		}
	}
	return out
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

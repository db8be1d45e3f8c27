package fusion

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// outlierSigmas is how many standard deviations from the mean are still accepted
const outlierSigmas = 2.0

// ClusterCorrespondences associates region with the correspondences whose previous keypoint it contains.
// Candidates are filtered by previous keypoint's X coordinate: everything outside of
// mean ± 2·stddev (sample standard deviation) is dropped. Result replaces region's correspondences.
func ClusterCorrespondences(region *DetectionRegion, kptsPrev, kptsCurr []Keypoint, matches []Correspondence) {
	candidates := make([]Correspondence, 0, len(matches))
	xs := make([]float64, 0, len(matches))
	skipped := 0
	for _, match := range matches {
		if match.PrevIdx < 0 || match.PrevIdx >= len(kptsPrev) || match.CurrIdx < 0 || match.CurrIdx >= len(kptsCurr) {
			skipped++
			continue
		}
		pt := kptsPrev[match.PrevIdx].Pt
		if region.ROI.Contains(pt) {
			candidates = append(candidates, match)
			xs = append(xs, pt.X)
		}
	}
	if skipped > 0 {
		logger.Warn("fusion: skipped correspondences with out-of-range keypoint index",
			"region", region.ID, "count", skipped)
	}
	region.Correspondences = filterByDeviation(candidates, xs)
}

// filterByDeviation keeps items whose value lies within mean ± 2·stddev.
func filterByDeviation(items []Correspondence, values []float64) []Correspondence {
	if len(items) < 2 {
		return items
	}
	mean, stdDev := meanStdDev(values)
	kept := items[:0]
	for i := range items {
		if math.Abs(values[i]-mean) <= outlierSigmas*stdDev {
			kept = append(kept, items[i])
		}
	}
	return kept
}

// meanStdDev returns mean and sample (N-1) standard deviation.
// Deviation of a single value is zero, empty input gives zeros.
func meanStdDev(values []float64) (float64, float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

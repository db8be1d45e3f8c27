package fusion

import (
	"math"
)

const (
	// DefaultMinKeypointSeparation is minimal distance (pixels) between two current keypoints
	// for their distance ratio to be taken into account
	DefaultMinKeypointSeparation = 100.0
	// minPrevSeparation guards distance ratio against division by zero
	minPrevSeparation = 1e-12
)

// Both estimators use the same sign convention: positive TTC means the object is closing in.
//
// TTCNotClosing is reported when distance to the object is not decreasing.
// TTCUnknown is reported when there is not enough data to estimate anything.
var (
	TTCNotClosing = math.Inf(1)
	TTCUnknown    = math.NaN()
)

// IsNotClosing reports whether ttc is the "not closing" sentinel
func IsNotClosing(ttc float64) bool {
	return math.IsInf(ttc, 1)
}

// IsUnknown reports whether ttc is the "insufficient data" sentinel
func IsUnknown(ttc float64) bool {
	return math.IsNaN(ttc)
}

// TTCEstimator computes time-to-collision from lidar points and from keypoint correspondences
type TTCEstimator struct {
	// Minimal distance between two keypoints in current frame. Default is 100 pixels
	minKeypointSeparation float64
}

// NewDefaultTTCEstimator creates default instance of TTCEstimator
func NewDefaultTTCEstimator() *TTCEstimator {
	return &TTCEstimator{
		minKeypointSeparation: DefaultMinKeypointSeparation,
	}
}

// NewTTCEstimator creates new instance of TTCEstimator
func NewTTCEstimator(minKeypointSeparation float64) *TTCEstimator {
	return &TTCEstimator{
		minKeypointSeparation: minKeypointSeparation,
	}
}

// RangeTTC estimates TTC with default estimator. See TTCEstimator.RangeTTC
func RangeTTC(pointsPrev, pointsCurr []RangePoint, frameRate float64) float64 {
	return NewDefaultTTCEstimator().RangeTTC(pointsPrev, pointsCurr, frameRate)
}

// CameraTTC estimates TTC with default estimator. See TTCEstimator.CameraTTC
func CameraTTC(kptsPrev, kptsCurr []Keypoint, matches []Correspondence, frameRate float64) float64 {
	return NewDefaultTTCEstimator().CameraTTC(kptsPrev, kptsCurr, matches, frameRate)
}

// RangeTTC estimates TTC from lidar points of the same object in two consecutive frames.
// Object distance is the lower median of forward (X) coordinates, which is robust to single close outliers.
// Returns TTCNotClosing when object is static or moving away, TTCUnknown for empty input.
func (estimator *TTCEstimator) RangeTTC(pointsPrev, pointsCurr []RangePoint, frameRate float64) float64 {
	if len(pointsPrev) == 0 || len(pointsCurr) == 0 || frameRate <= 0 {
		return TTCUnknown
	}
	medianPrev := lowerMedian(forwardDistances(pointsPrev))
	medianCurr := lowerMedian(forwardDistances(pointsCurr))
	if medianPrev <= medianCurr {
		return TTCNotClosing
	}
	return medianCurr / (frameRate * (medianPrev - medianCurr))
}

// CameraTTC estimates TTC from scale change of keypoint constellation between two frames.
// For every unordered pair of correspondences it computes ratio of keypoints' distance
// in current frame to their distance in previous frame and uses lower median of ratios.
// Returns negative value for receding object, TTCNotClosing for no scale change and
// TTCUnknown when no pair passes the separation threshold.
func (estimator *TTCEstimator) CameraTTC(kptsPrev, kptsCurr []Keypoint, matches []Correspondence, frameRate float64) float64 {
	if frameRate <= 0 {
		return TTCUnknown
	}
	valid := make([]Correspondence, 0, len(matches))
	for _, match := range matches {
		if match.PrevIdx < 0 || match.PrevIdx >= len(kptsPrev) || match.CurrIdx < 0 || match.CurrIdx >= len(kptsCurr) {
			continue
		}
		valid = append(valid, match)
	}
	if len(valid) < len(matches) {
		logger.Warn("fusion: skipped correspondences with out-of-range keypoint index", "count", len(matches)-len(valid))
	}

	distRatios := make([]float64, 0)
	for i := 0; i < len(valid)-1; i++ {
		firstPrev := kptsPrev[valid[i].PrevIdx].Pt
		firstCurr := kptsCurr[valid[i].CurrIdx].Pt
		for j := i + 1; j < len(valid); j++ {
			secondPrev := kptsPrev[valid[j].PrevIdx].Pt
			secondCurr := kptsCurr[valid[j].CurrIdx].Pt

			distCurr := euclideanDistance(firstCurr, secondCurr)
			distPrev := euclideanDistance(firstPrev, secondPrev)
			if distPrev <= minPrevSeparation || distCurr < estimator.minKeypointSeparation {
				continue
			}
			distRatios = append(distRatios, distCurr/distPrev)
		}
	}
	if len(distRatios) == 0 {
		return TTCUnknown
	}

	medianRatio := lowerMedian(distRatios)
	if medianRatio == 1 {
		return TTCNotClosing
	}
	dt := 1.0 / frameRate
	return -dt / (1 - medianRatio)
}

func forwardDistances(points []RangePoint) []float64 {
	xs := make([]float64, len(points))
	for i := range points {
		xs[i] = points[i].Position.X
	}
	return xs
}

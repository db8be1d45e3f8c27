package fusion

import (
	"math"
	"testing"
)

// keypointsAt builds keypoints from x coordinates (y is fixed)
func keypointsAt(xs ...float64) []Keypoint {
	kpts := make([]Keypoint, len(xs))
	for i, x := range xs {
		kpts[i] = Keypoint{Pt: Point{X: x, Y: 50}}
	}
	return kpts
}

// identityMatches links i-th previous keypoint with i-th current keypoint
func identityMatches(n int) []Correspondence {
	matches := make([]Correspondence, n)
	for i := range matches {
		matches[i] = Correspondence{PrevIdx: i, CurrIdx: i}
	}
	return matches
}

func TestClusterCorrespondencesRemovesOutlier(t *testing.T) {
	kpts := keypointsAt(100, 102, 104, 106, 108, 110, 112, 114, 116, 118, 190)
	region := NewDetectionRegion(1, NewRect(0, 0, 200, 200))
	ClusterCorrespondences(region, kpts, kpts, identityMatches(len(kpts)))
	if len(region.Correspondences) != 10 {
		t.Fatalf("Expected 10 correspondences after filtering, got %d", len(region.Correspondences))
	}
	for _, match := range region.Correspondences {
		if match.PrevIdx == 10 {
			t.Errorf("Outlier correspondence should be removed")
		}
	}
}

func TestClusterCorrespondencesSelectsByPreviousKeypoint(t *testing.T) {
	kptsPrev := keypointsAt(10, 20, 30, 199.99, 200, 250)
	// Current keypoints are all outside of region: only previous ones decide
	kptsCurr := keypointsAt(500, 500, 500, 500, 500, 500)
	region := NewDetectionRegion(1, NewRect(0, 0, 200, 200))
	ClusterCorrespondences(region, kptsPrev, kptsCurr, identityMatches(len(kptsPrev)))
	if len(region.Correspondences) != 4 {
		t.Errorf("Expected 4 correspondences inside [0, 200), got %d", len(region.Correspondences))
	}
}

func TestClusterCorrespondencesSingleElement(t *testing.T) {
	kpts := keypointsAt(42)
	region := NewDetectionRegion(1, NewRect(0, 0, 200, 200))
	ClusterCorrespondences(region, kpts, kpts, identityMatches(1))
	if len(region.Correspondences) != 1 {
		t.Errorf("Single correspondence must be kept, got %d", len(region.Correspondences))
	}
}

func TestClusterCorrespondencesEmpty(t *testing.T) {
	region := NewDetectionRegion(1, NewRect(0, 0, 200, 200))
	region.Correspondences = append(region.Correspondences, Correspondence{PrevIdx: 7, CurrIdx: 7})
	ClusterCorrespondences(region, nil, nil, nil)
	if len(region.Correspondences) != 0 {
		t.Errorf("Expected no correspondences, got %d", len(region.Correspondences))
	}
	kpts := keypointsAt(300, 400)
	ClusterCorrespondences(region, kpts, kpts, identityMatches(2))
	if len(region.Correspondences) != 0 {
		t.Errorf("Expected no correspondences for keypoints outside region, got %d", len(region.Correspondences))
	}
}

func TestClusterCorrespondencesSkipsBadIndices(t *testing.T) {
	kpts := keypointsAt(10, 20)
	matches := []Correspondence{{PrevIdx: 0, CurrIdx: 0}, {PrevIdx: 5, CurrIdx: 1}, {PrevIdx: 1, CurrIdx: -1}, {PrevIdx: 1, CurrIdx: 1}}
	region := NewDetectionRegion(1, NewRect(0, 0, 200, 200))
	ClusterCorrespondences(region, kpts, kpts, matches)
	if len(region.Correspondences) != 2 {
		t.Errorf("Expected 2 valid correspondences, got %d", len(region.Correspondences))
	}
}

// Accumulators must start from zero on every call: repeated calls give identical results
// and statistics don't depend on previous invocations.
func TestClusterCorrespondencesZeroInitializedAccumulator(t *testing.T) {
	kpts := keypointsAt(100, 102, 104, 106, 108, 110, 112, 114, 116, 118, 190)
	for i := 0; i < 3; i++ {
		region := NewDetectionRegion(1, NewRect(0, 0, 200, 200))
		ClusterCorrespondences(region, kpts, kpts, identityMatches(len(kpts)))
		if len(region.Correspondences) != 10 {
			t.Errorf("Call %d: expected 10 correspondences, got %d", i, len(region.Correspondences))
		}
	}

	mean, stdDev := meanStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(mean-5) > eps {
		t.Errorf("Wrong mean: %v, correct answer: %v", mean, 5)
	}
	correctStdDev := math.Sqrt(32.0 / 7.0)
	if math.Abs(stdDev-correctStdDev) > eps {
		t.Errorf("Wrong sample standard deviation: %v, correct answer: %v", stdDev, correctStdDev)
	}
	mean, stdDev = meanStdDev(nil)
	if mean != 0 || stdDev != 0 {
		t.Errorf("Empty input should give zeros, got %v and %v", mean, stdDev)
	}
	mean, stdDev = meanStdDev([]float64{3})
	if mean != 3 || stdDev != 0 {
		t.Errorf("Single value should give (3, 0), got %v and %v", mean, stdDev)
	}
}

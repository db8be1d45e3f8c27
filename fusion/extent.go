package fusion

import (
	"math"

	"github.com/golang/geo/r3"
)

// RegionExtent summarizes lidar points of a single region in vehicle frame
type RegionExtent struct {
	NumPoints int
	// Smallest forward distance (meters)
	MinForward float64
	// Lateral size: max Y minus min Y (meters)
	Width float64
	// Mean position of all points
	Centroid r3.Vector
}

// Extent computes RegionExtent of the region's range points.
// Second value is false when region has no points.
func (region *DetectionRegion) Extent() (RegionExtent, bool) {
	if len(region.RangePoints) == 0 {
		return RegionExtent{}, false
	}
	minForward := math.Inf(1)
	minLateral := math.Inf(1)
	maxLateral := math.Inf(-1)
	sum := r3.Vector{}
	for _, pt := range region.RangePoints {
		minForward = minFloat64(minForward, pt.Position.X)
		minLateral = minFloat64(minLateral, pt.Position.Y)
		maxLateral = maxFloat64(maxLateral, pt.Position.Y)
		sum = sum.Add(pt.Position)
	}
	return RegionExtent{
		NumPoints:  len(region.RangePoints),
		MinForward: minForward,
		Width:      maxLateral - minLateral,
		Centroid:   sum.Mul(1.0 / float64(len(region.RangePoints))),
	}, true
}

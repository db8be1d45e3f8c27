// Package fusion estimates time-to-collision from lidar points and camera keypoints
// and associates detection regions between consecutive frames.
package fusion

import (
	"github.com/golang/geo/r3"
)

// RangePoint is a single lidar return.
// Position is in vehicle frame: X forward, Y left, Z up (meters).
type RangePoint struct {
	Position     r3.Vector
	Reflectivity float64
}

// NewRangePoint creates range point from raw coordinates
func NewRangePoint(x, y, z, reflectivity float64) RangePoint {
	return RangePoint{
		Position:     r3.Vector{X: x, Y: y, Z: z},
		Reflectivity: reflectivity,
	}
}

// Keypoint is a detected image feature
type Keypoint struct {
	Pt       Point
	Size     float64
	Response float64
}

// Correspondence links keypoint of previous frame with keypoint of current frame.
// PrevIdx indexes previous frame's keypoints, CurrIdx indexes current frame's keypoints.
type Correspondence struct {
	PrevIdx int
	CurrIdx int
	// Descriptor distance reported by the matcher (lower is better)
	Distance float64
}

// DetectionRegion is a detector's bounding box enriched with lidar points and keypoint correspondences
type DetectionRegion struct {
	ID         int
	ClassID    int
	Confidence float64
	ROI        Rectangle
	// Lidar points assigned by AssignRangePoints
	RangePoints []RangePoint
	// Correspondences assigned by ClusterCorrespondences
	Correspondences []Correspondence
}

// NewDetectionRegion creates region with empty point and correspondence sets
func NewDetectionRegion(id int, roi Rectangle) *DetectionRegion {
	return &DetectionRegion{
		ID:              id,
		ROI:             roi,
		RangePoints:     make([]RangePoint, 0),
		Correspondences: make([]Correspondence, 0),
	}
}

// Reset drops assigned points and correspondences
func (region *DetectionRegion) Reset() {
	region.RangePoints = region.RangePoints[:0]
	region.Correspondences = region.Correspondences[:0]
}

// Frame holds everything known about single time step
type Frame struct {
	Regions     []*DetectionRegion
	Keypoints   []Keypoint
	RangePoints []RangePoint
	// Correspondences between previous frame's keypoints and this frame's keypoints
	Correspondences []Correspondence
	// Previous region ID -> this frame's region ID. Filled by FramePipeline
	RegionMatches map[int]int
}

// RegionByID returns region with given identifier or nil
func (frame *Frame) RegionByID(id int) *DetectionRegion {
	for _, region := range frame.Regions {
		if region.ID == id {
			return region
		}
	}
	return nil
}

// enclosingRegionIDs returns identifiers of all regions which contain point
func enclosingRegionIDs(regions []*DetectionRegion, pt Point) []int {
	ids := make([]int, 0, 2)
	for _, region := range regions {
		if region.ROI.Contains(pt) {
			ids = append(ids, region.ID)
		}
	}
	return ids
}

package fusion

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ObjectTrack is a physical object followed across frames.
// It smooths region center with 2D Kalman filter and keeps latest TTC estimates.
type ObjectTrack struct {
	id                    uuid.UUID
	regionID              int
	currentBBox           Rectangle
	currentCenter         Point
	predictedNextPosition Point
	track                 []Point
	maxTrackLen           int
	noMatchTimes          int
	lidarTTC              float64
	cameraTTC             float64
	extent                RegionExtent
	tracker               *kalman_filter.Kalman2D
}

// NewObjectTrackWithTime creates track from the region with specified time step.
func NewObjectTrackWithTime(region *DetectionRegion, dt float64) *ObjectTrack {
	center := region.ROI.Center()

	/* Kalman filter props */
	ux := 1.0
	uy := 1.0
	stdDevA := 2.0
	stdDevMx := 0.1
	stdDevMy := 0.1
	kf := kalman_filter.NewKalman2D(dt, ux, uy, stdDevA, stdDevMx, stdDevMy, kalman_filter.WithState2D(center.X, center.Y))
	track := ObjectTrack{
		id:                    uuid.New(),
		regionID:              region.ID,
		currentBBox:           region.ROI,
		currentCenter:         center,
		predictedNextPosition: center,
		track:                 make([]Point, 0, 150),
		maxTrackLen:           150,
		noMatchTimes:          0,
		lidarTTC:              TTCUnknown,
		cameraTTC:             TTCUnknown,
		tracker:               kf,
	}
	track.extent, _ = region.Extent()
	track.track = append(track.track, center)
	return &track
}

// NewObjectTrack creates track with default time step of 1.0
func NewObjectTrack(region *DetectionRegion) *ObjectTrack {
	return NewObjectTrackWithTime(region, 1.0)
}

// GetID returns track's identifier
func (track *ObjectTrack) GetID() uuid.UUID {
	return track.id
}

// GetRegionID returns identifier of the region matched in the latest frame
func (track *ObjectTrack) GetRegionID() int {
	return track.regionID
}

// GetCenter returns track's current (smoothed) center
func (track *ObjectTrack) GetCenter() Point {
	return track.currentCenter
}

// GetBBox returns track's current bounding box
func (track *ObjectTrack) GetBBox() Rectangle {
	return track.currentBBox
}

// GetPredictedBBox returns bounding box centered on the predicted next position
func (track *ObjectTrack) GetPredictedBBox() Rectangle {
	return Rectangle{
		X:      track.predictedNextPosition.X - track.currentBBox.Width/2.0,
		Y:      track.predictedNextPosition.Y - track.currentBBox.Height/2.0,
		Width:  track.currentBBox.Width,
		Height: track.currentBBox.Height,
	}
}

// GetTrack returns track's history of centers. Be careful: this is not copy of track, but reference to it
func (track *ObjectTrack) GetTrack() []Point {
	return track.track
}

// GetNoMatchTimes returns number of consecutive frames without match
func (track *ObjectTrack) GetNoMatchTimes() int {
	return track.noMatchTimes
}

// IncNoMatch increases track's no match times
func (track *ObjectTrack) IncNoMatch() {
	track.noMatchTimes++
}

// ResetNoMatch resets track's no match times
func (track *ObjectTrack) ResetNoMatch() {
	track.noMatchTimes = 0
}

// GetLidarTTC returns latest lidar based TTC (TTCUnknown if never estimated)
func (track *ObjectTrack) GetLidarTTC() float64 {
	return track.lidarTTC
}

// GetCameraTTC returns latest camera based TTC (TTCUnknown if never estimated)
func (track *ObjectTrack) GetCameraTTC() float64 {
	return track.cameraTTC
}

// GetExtent returns lidar extent of the latest matched region
func (track *ObjectTrack) GetExtent() RegionExtent {
	return track.extent
}

// SetTTC stores latest estimates
func (track *ObjectTrack) SetTTC(lidarTTC, cameraTTC float64) {
	track.lidarTTC = lidarTTC
	track.cameraTTC = cameraTTC
}

// DistanceToPredicted returns distance from predicted center to the given point
func (track *ObjectTrack) DistanceToPredicted(pt Point) float64 {
	return euclideanDistance(track.predictedNextPosition, pt)
}

// PredictNextPosition execute Kalman filter's first step but without re-evaluating state vector based on Kalman gain
func (track *ObjectTrack) PredictNextPosition() {
	track.tracker.Predict()
	stateX, stateY := track.tracker.GetState()
	track.predictedNextPosition.X = stateX
	track.predictedNextPosition.Y = stateY
}

// Update moves track onto the region and execute Kalman filter's second step
func (track *ObjectTrack) Update(region *DetectionRegion) error {
	measured := region.ROI.Center()
	err := track.tracker.Update(measured.X, measured.Y)
	if err != nil {
		return errors.Wrap(err, "Can't update object tracker")
	}
	// Re-evaluate bounding box around smoothed center
	stateX, stateY := track.tracker.GetState()
	track.currentCenter = Point{X: stateX, Y: stateY}
	track.currentBBox = Rectangle{
		X:      stateX - region.ROI.Width/2.0,
		Y:      stateY - region.ROI.Height/2.0,
		Width:  region.ROI.Width,
		Height: region.ROI.Height,
	}
	track.regionID = region.ID
	if extent, ok := region.Extent(); ok {
		track.extent = extent
	}
	track.ResetNoMatch()
	track.track = append(track.track, track.currentCenter)
	if len(track.track) > track.maxTrackLen {
		track.track = track.track[1:]
	}
	return nil
}

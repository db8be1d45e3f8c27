package fusion

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// CollisionEstimate is result for a single object seen in both frames
type CollisionEstimate struct {
	PrevRegionID int
	CurrRegionID int
	TrackID      uuid.UUID
	LidarTTC     float64
	CameraTTC    float64
	Extent       RegionExtent
}

// FramePipeline runs lidar assignment, region association, keypoint clustering and
// TTC estimation for every pair of consecutive frames.
type FramePipeline struct {
	calib        *Calibration
	shrinkFactor float64
	frameRate    float64
	workers      int
	estimator    *TTCEstimator
	associator   *RegionAssociator
	tracker      *ObjectTracker
	prev         *Frame
}

// NewFramePipeline creates pipeline from configuration.
// When calib is nil the calibration block of cfg is used.
func NewFramePipeline(cfg *Config, calib *Calibration) (*FramePipeline, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	if calib == nil {
		var err error
		calib, err = cfg.BuildCalibration()
		if err != nil {
			return nil, err
		}
	}
	frameRate := cfg.GetFrameRate()
	return &FramePipeline{
		calib:        calib,
		shrinkFactor: cfg.GetShrinkFactor(),
		frameRate:    frameRate,
		workers:      cfg.GetWorkers(),
		estimator:    NewTTCEstimator(cfg.GetMinKeypointSeparation()),
		associator:   NewRegionAssociator(cfg.GetMinSupport(), cfg.GetMatchingAlgorithm()),
		tracker:      NewObjectTracker(cfg.GetMaxNoMatch(), cfg.GetMaxRecoverDistance(), 1.0/frameRate),
	}, nil
}

// Tracker returns underlying object tracker
func (pipeline *FramePipeline) Tracker() *ObjectTracker {
	return pipeline.tracker
}

// Push processes next frame. Frame's Correspondences must link keypoints of the previously pushed frame
// to keypoints of this frame. First frame yields no estimates.
func (pipeline *FramePipeline) Push(ctx context.Context, frame *Frame) ([]CollisionEstimate, error) {
	for _, region := range frame.Regions {
		region.Reset()
	}
	var err error
	if pipeline.workers > 1 {
		err = AssignRangePointsParallel(ctx, frame.Regions, frame.RangePoints, pipeline.shrinkFactor, pipeline.calib, pipeline.workers)
	} else {
		err = AssignRangePoints(frame.Regions, frame.RangePoints, pipeline.shrinkFactor, pipeline.calib)
	}
	if err != nil {
		return nil, errors.Wrap(err, "Can't assign range points")
	}

	if pipeline.prev == nil {
		if _, err := pipeline.tracker.Update(nil, frame.Regions); err != nil {
			return nil, errors.Wrap(err, "Can't update tracker")
		}
		pipeline.prev = frame
		return nil, nil
	}
	prev := pipeline.prev

	frame.RegionMatches = pipeline.associator.MatchRegions(frame.Correspondences, prev, frame)
	trackIDs, err := pipeline.tracker.Update(frame.RegionMatches, frame.Regions)
	if err != nil {
		return nil, errors.Wrap(err, "Can't update tracker")
	}

	prevIDs := make([]int, 0, len(frame.RegionMatches))
	for prevID := range frame.RegionMatches {
		prevIDs = append(prevIDs, prevID)
	}
	sort.Ints(prevIDs)

	estimates := make([]CollisionEstimate, 0, len(prevIDs))
	for _, prevID := range prevIDs {
		currID := frame.RegionMatches[prevID]
		prevRegion := prev.RegionByID(prevID)
		currRegion := frame.RegionByID(currID)
		if prevRegion == nil || currRegion == nil {
			continue
		}
		ClusterCorrespondences(currRegion, prev.Keypoints, frame.Keypoints, frame.Correspondences)
		estimate := CollisionEstimate{
			PrevRegionID: prevID,
			CurrRegionID: currID,
			TrackID:      trackIDs[currID],
			LidarTTC:     pipeline.estimator.RangeTTC(prevRegion.RangePoints, currRegion.RangePoints, pipeline.frameRate),
			CameraTTC:    pipeline.estimator.CameraTTC(prev.Keypoints, frame.Keypoints, currRegion.Correspondences, pipeline.frameRate),
		}
		estimate.Extent, _ = currRegion.Extent()
		if object, ok := pipeline.tracker.Objects[estimate.TrackID]; ok {
			object.SetTTC(estimate.LidarTTC, estimate.CameraTTC)
		}
		logger.Debug("fusion: collision estimate",
			"prev_region", prevID, "curr_region", currID,
			"lidar_ttc", estimate.LidarTTC, "camera_ttc", estimate.CameraTTC,
			"points", len(currRegion.RangePoints), "correspondences", len(currRegion.Correspondences))
		estimates = append(estimates, estimate)
	}
	pipeline.prev = frame
	return estimates, nil
}

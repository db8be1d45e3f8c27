package fusion

import (
	"container/heap"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// recoverIoU is overlap between predicted box of lost track and a region which is enough to recover the track
const recoverIoU = 0.5

// ObjectTracker keeps stable identifiers of physical objects over many frames.
// Per-frame region identifiers are chained using RegionAssociator's output;
// regions left without association are matched to lost tracks by predicted position.
type ObjectTracker struct {
	// Main storage
	Objects map[uuid.UUID]*ObjectTrack
	// Max no match (max number of frames when object could not be found again). Default is 5
	maxNoMatch int
	// Max distance (pixels) between predicted center of lost track and region center. Default is 50.0
	maxRecoverDistance float64
	// Time step between frames for Kalman filter
	dt float64
}

// NewDefaultObjectTracker creates default instance of ObjectTracker
func NewDefaultObjectTracker() *ObjectTracker {
	return &ObjectTracker{
		Objects:            make(map[uuid.UUID]*ObjectTrack),
		maxNoMatch:         5,
		maxRecoverDistance: 50.0,
		dt:                 1.0,
	}
}

// NewObjectTracker creates new instance of ObjectTracker
func NewObjectTracker(maxNoMatch int, maxRecoverDistance, dt float64) *ObjectTracker {
	return &ObjectTracker{
		Objects:            make(map[uuid.UUID]*ObjectTrack),
		maxNoMatch:         maxNoMatch,
		maxRecoverDistance: maxRecoverDistance,
		dt:                 dt,
	}
}

// recoveryCandidate is an unmatched region with its nearest lost track
type recoveryCandidate struct {
	region   *DetectionRegion
	trackID  uuid.UUID
	distance float64
}

// recoveryHeap implements heap.Interface for min-heap by distance
type recoveryHeap []*recoveryCandidate

func (h recoveryHeap) Len() int           { return len(h) }
func (h recoveryHeap) Less(i, j int) bool { return h[i].distance < h[j].distance }
func (h recoveryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *recoveryHeap) Push(x any) {
	*h = append(*h, x.(*recoveryCandidate))
}

func (h *recoveryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return item
}

// Update consumes current frame regions and mapping from previous region IDs to current region IDs.
// Returns current region ID -> track ID.
func (tracker *ObjectTracker) Update(regionMatches map[int]int, regions []*DetectionRegion) (map[int]uuid.UUID, error) {
	// Only tracks seen in the previous frame can be chained by region ID
	byPrevRegion := make(map[int]uuid.UUID)
	for id, object := range tracker.Objects {
		if object.GetNoMatchTimes() == 0 {
			byPrevRegion[object.GetRegionID()] = id
		}
		object.PredictNextPosition()
	}
	regionsByID := make(map[int]*DetectionRegion, len(regions))
	for _, region := range regions {
		regionsByID[region.ID] = region
	}

	assigned := make(map[int]uuid.UUID)
	// Prevent double update of objects
	reservedObjects := make(map[uuid.UUID]struct{})

	// 1. Chain tracks through associated regions
	prevIDs := make([]int, 0, len(regionMatches))
	for prevID := range regionMatches {
		prevIDs = append(prevIDs, prevID)
	}
	sort.Ints(prevIDs)
	for _, prevID := range prevIDs {
		currID := regionMatches[prevID]
		trackID, ok := byPrevRegion[prevID]
		if !ok {
			continue
		}
		region, ok := regionsByID[currID]
		if !ok {
			continue
		}
		if _, taken := assigned[currID]; taken {
			continue
		}
		err := tracker.Objects[trackID].Update(region)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't update track with id %s", trackID.String())
		}
		assigned[currID] = trackID
		reservedObjects[trackID] = struct{}{}
	}

	// 2. Try to recover remaining tracks for unassigned regions, nearest first
	pq := &recoveryHeap{}
	heap.Init(pq)
	newRegions := make([]*DetectionRegion, 0)
	for _, region := range regions {
		if _, ok := assigned[region.ID]; ok {
			continue
		}
		center := region.ROI.Center()
		minID := uuid.Nil
		minDistance := math.MaxFloat64
		for id, object := range tracker.Objects {
			if _, ok := reservedObjects[id]; ok {
				continue
			}
			distance := object.DistanceToPredicted(center)
			if distance > tracker.maxRecoverDistance && IoU(object.GetPredictedBBox(), region.ROI) < recoverIoU {
				continue
			}
			if distance < minDistance {
				minDistance = distance
				minID = id
			}
		}
		if minID == uuid.Nil {
			newRegions = append(newRegions, region)
			continue
		}
		heap.Push(pq, &recoveryCandidate{region: region, trackID: minID, distance: minDistance})
	}
	for pq.Len() > 0 {
		candidate := heap.Pop(pq).(*recoveryCandidate)
		// Nearest region has already taken this track
		if _, ok := reservedObjects[candidate.trackID]; ok {
			newRegions = append(newRegions, candidate.region)
			continue
		}
		err := tracker.Objects[candidate.trackID].Update(candidate.region)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't recover track with id %s", candidate.trackID.String())
		}
		assigned[candidate.region.ID] = candidate.trackID
		reservedObjects[candidate.trackID] = struct{}{}
	}

	// 3. Clean up existing data: remove objects not found for a long time
	for id, object := range tracker.Objects {
		if _, ok := reservedObjects[id]; ok {
			continue
		}
		object.IncNoMatch()
		if object.GetNoMatchTimes() > tracker.maxNoMatch {
			delete(tracker.Objects, id)
		}
	}

	// 4. Register new objects
	for _, region := range newRegions {
		object := NewObjectTrackWithTime(region, tracker.dt)
		tracker.Objects[object.GetID()] = object
		assigned[region.ID] = object.GetID()
	}
	return assigned, nil
}

// GetActiveTracks returns tracks matched in the latest frame
func (tracker *ObjectTracker) GetActiveTracks() []*ObjectTrack {
	active := make([]*ObjectTrack, 0, len(tracker.Objects))
	for _, object := range tracker.Objects {
		if object.GetNoMatchTimes() == 0 {
			active = append(active, object)
		}
	}
	return active
}

package fusion

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// AssignRangePoints groups lidar points whose projection into the camera falls into the same region.
// Each region is shrunk by shrinkFactor around its center to avoid points at the edges.
// Point is appended to a region only when exactly one shrunk region encloses it:
// points enclosed by several regions (or by none) are dropped.
func AssignRangePoints(regions []*DetectionRegion, points []RangePoint, shrinkFactor float64, calib *Calibration) error {
	shrunk, err := prepareAssignment(regions, shrinkFactor, calib)
	if err != nil {
		return err
	}
	ambiguous := 0
	for i := range points {
		idx, state := enclosingShrunkRegion(shrunk, points[i], calib)
		switch state {
		case assignOne:
			regions[idx].RangePoints = append(regions[idx].RangePoints, points[i])
		case assignMany:
			ambiguous++
		}
	}
	if ambiguous > 0 {
		logger.Debug("fusion: dropped ambiguous range points", "count", ambiguous)
	}
	return nil
}

// AssignRangePointsParallel does the same as AssignRangePoints but splits points across workers.
// Each worker fills its own per-region buckets; buckets are merged in partition order,
// so regions end up with exactly the same content as after the serial call.
func AssignRangePointsParallel(ctx context.Context, regions []*DetectionRegion, points []RangePoint, shrinkFactor float64, calib *Calibration, workers int) error {
	shrunk, err := prepareAssignment(regions, shrinkFactor, calib)
	if err != nil {
		return err
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(points) {
		workers = maxInt(len(points), 1)
	}
	chunk := (len(points) + workers - 1) / workers
	buckets := make([][][]RangePoint, workers)
	ambiguous := make([]int, workers)

	group, groupCtx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		from := w * chunk
		to := minInt(from+chunk, len(points))
		if from >= to {
			continue
		}
		group.Go(func() error {
			local := make([][]RangePoint, len(regions))
			for i := from; i < to; i++ {
				if i%1024 == 0 {
					if err := groupCtx.Err(); err != nil {
						return err
					}
				}
				idx, state := enclosingShrunkRegion(shrunk, points[i], calib)
				switch state {
				case assignOne:
					local[idx] = append(local[idx], points[i])
				case assignMany:
					ambiguous[w]++
				}
			}
			buckets[w] = local
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return errors.Wrap(err, "Can't assign range points")
	}

	dropped := 0
	for w, local := range buckets {
		for idx := range local {
			regions[idx].RangePoints = append(regions[idx].RangePoints, local[idx]...)
		}
		dropped += ambiguous[w]
	}
	if dropped > 0 {
		logger.Debug("fusion: dropped ambiguous range points", "count", dropped)
	}
	return nil
}

type assignState int

const (
	assignNone assignState = iota
	assignOne
	assignMany
)

func prepareAssignment(regions []*DetectionRegion, shrinkFactor float64, calib *Calibration) ([]Rectangle, error) {
	if calib == nil {
		return nil, ErrNilCalibration
	}
	if shrinkFactor < 0 || shrinkFactor >= 1 {
		return nil, errors.Wrapf(ErrShrinkFactor, "got %f", shrinkFactor)
	}
	shrunk := make([]Rectangle, len(regions))
	for i, region := range regions {
		shrunk[i] = region.ROI.Shrink(shrinkFactor)
	}
	return shrunk, nil
}

// enclosingShrunkRegion returns index of the only shrunk region containing projected point
func enclosingShrunkRegion(shrunk []Rectangle, pt RangePoint, calib *Calibration) (int, assignState) {
	pixel, ok := calib.Project(pt)
	if !ok {
		return -1, assignNone
	}
	found := -1
	for i := range shrunk {
		if !shrunk[i].Contains(pixel) {
			continue
		}
		if found >= 0 {
			return -1, assignMany
		}
		found = i
	}
	if found < 0 {
		return -1, assignNone
	}
	return found, assignOne
}

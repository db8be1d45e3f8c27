package fusion

import "github.com/pkg/errors"

var (
	// ErrShrinkFactor is returned when shrink factor is not in [0, 1)
	ErrShrinkFactor = errors.New("shrink factor must be in [0, 1)")
	// ErrNilCalibration is returned when no calibration has been provided
	ErrNilCalibration = errors.New("calibration is nil")
	// ErrMatrixShape is returned when calibration matrix has unexpected dimensions
	ErrMatrixShape = errors.New("unexpected matrix shape")
	// ErrFrameRate is returned when frame rate is not positive
	ErrFrameRate = errors.New("frame rate must be positive")
)

package fusion

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// minProjectedDepth is smallest third projected coordinate accepted as valid divisor
const minProjectedDepth = 1e-9

// Calibration maps homogeneous lidar points into image pixels.
// It holds composition P_rect * R_rect * RT and is read-only after creation.
type Calibration struct {
	projection *mat.Dense
}

// NewCalibration composes calibration from:
// pRect - 3x4 intrinsic projection matrix of rectified camera,
// rRect - 3x3 or 4x4 rectifying rotation,
// rt - 3x4 or 4x4 rigid transform from lidar frame into camera frame.
func NewCalibration(pRect, rRect, rt mat.Matrix) (*Calibration, error) {
	if pRect == nil || rRect == nil || rt == nil {
		return nil, ErrNilCalibration
	}
	if r, c := pRect.Dims(); r != 3 || c != 4 {
		return nil, errors.Wrapf(ErrMatrixShape, "P_rect must be 3x4, got %dx%d", r, c)
	}
	rRectH, err := homogeneous(rRect, 3, 3)
	if err != nil {
		return nil, errors.Wrap(err, "R_rect")
	}
	rtH, err := homogeneous(rt, 3, 4)
	if err != nil {
		return nil, errors.Wrap(err, "RT")
	}
	var rectified mat.Dense
	rectified.Mul(rRectH, rtH)
	projection := mat.NewDense(3, 4, nil)
	projection.Mul(pRect, &rectified)
	return &Calibration{
		projection: projection,
	}, nil
}

// NewCalibrationFromSlices creates calibration from row-major values:
// 12 values for P_rect (3x4), 9 values for R_rect (3x3) and 12 values for RT (3x4).
func NewCalibrationFromSlices(pRect, rRect, rt []float64) (*Calibration, error) {
	if len(pRect) != 12 {
		return nil, errors.Wrapf(ErrMatrixShape, "P_rect needs 12 values, got %d", len(pRect))
	}
	if len(rRect) != 9 {
		return nil, errors.Wrapf(ErrMatrixShape, "R_rect needs 9 values, got %d", len(rRect))
	}
	if len(rt) != 12 {
		return nil, errors.Wrapf(ErrMatrixShape, "RT needs 12 values, got %d", len(rt))
	}
	return NewCalibration(
		mat.NewDense(3, 4, append([]float64(nil), pRect...)),
		mat.NewDense(3, 3, append([]float64(nil), rRect...)),
		mat.NewDense(3, 4, append([]float64(nil), rt...)),
	)
}

// homogeneous pads matrix of reduced shape (rows x cols) into 4x4 homogeneous form.
// 4x4 matrices are copied as is.
func homogeneous(m mat.Matrix, rows, cols int) (*mat.Dense, error) {
	r, c := m.Dims()
	if r == 4 && c == 4 {
		return mat.DenseCopyOf(m), nil
	}
	if r != rows || c != cols {
		return nil, errors.Wrapf(ErrMatrixShape, "expected %dx%d or 4x4, got %dx%d", rows, cols, r, c)
	}
	out := mat.NewDense(4, 4, nil)
	out.Set(3, 3, 1)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(i, j))
		}
	}
	return out, nil
}

// Project returns pixel coordinates of lidar point.
// Second value is false when point can't be projected (non-positive depth in camera).
func (calib *Calibration) Project(pt RangePoint) (Point, bool) {
	x := mat.NewVecDense(4, []float64{pt.Position.X, pt.Position.Y, pt.Position.Z, 1})
	var y mat.VecDense
	y.MulVec(calib.projection, x)
	w := y.AtVec(2)
	if w <= minProjectedDepth {
		return Point{}, false
	}
	return Point{
		X: y.AtVec(0) / w,
		Y: y.AtVec(1) / w,
	}, true
}

// Projection returns copy of composed 3x4 projection matrix
func (calib *Calibration) Projection() *mat.Dense {
	return mat.DenseCopyOf(calib.projection)
}

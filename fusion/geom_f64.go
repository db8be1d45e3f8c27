package fusion

import (
	"image"
	"math"
)

// Rectangle is an axis-aligned box in pixel coordinates
type Rectangle struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func NewRect(x, y, width, height float64) Rectangle {
	return Rectangle{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

func NewRectFrom(rect image.Rectangle) Rectangle {
	return Rectangle{
		X:      float64(rect.Min.X),
		Y:      float64(rect.Min.Y),
		Width:  float64(rect.Dx()),
		Height: float64(rect.Dy()),
	}
}

// Contains reports whether point lies in [X, X+Width) x [Y, Y+Height)
func (rect Rectangle) Contains(pt Point) bool {
	return pt.X >= rect.X && pt.X < rect.X+rect.Width &&
		pt.Y >= rect.Y && pt.Y < rect.Y+rect.Height
}

// Shrink returns rectangle reduced by given fraction of its width and height and
// re-centered on the same center. Factor is expected in [0, 1).
func (rect Rectangle) Shrink(factor float64) Rectangle {
	return Rectangle{
		X:      rect.X + factor*rect.Width/2.0,
		Y:      rect.Y + factor*rect.Height/2.0,
		Width:  rect.Width * (1 - factor),
		Height: rect.Height * (1 - factor),
	}
}

// Center returns center of the rectangle
func (rect Rectangle) Center() Point {
	return Point{
		X: rect.X + rect.Width/2.0,
		Y: rect.Y + rect.Height/2.0,
	}
}

// Diagonal returns length of the rectangle's diagonal
func (rect Rectangle) Diagonal() float64 {
	return math.Sqrt(math.Pow(rect.Width, 2) + math.Pow(rect.Height, 2))
}

type Point struct {
	X float64
	Y float64
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

func NewPointFrom(point image.Point) Point {
	return Point{
		X: float64(point.X),
		Y: float64(point.Y),
	}
}

func euclideanDistance(p1, p2 Point) float64 {
	return math.Sqrt(math.Pow(p1.X-p2.X, 2) + math.Pow(p1.Y-p2.Y, 2))
}

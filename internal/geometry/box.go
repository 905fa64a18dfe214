// Package geometry provides the axis-aligned box arithmetic used for
// overlap scoring between predicted and ground-truth region boxes.
package geometry

import "math"

// Box represents an axis-aligned bounding box in float coordinates,
// stored as (x0, y0) top-left and (x1, y1) bottom-right corners.
type Box struct {
	X0 float64
	Y0 float64
	X1 float64
	Y1 float64
}

// NewBox constructs a Box from two corner coordinates ensuring ordering.
func NewBox(x0, y0, x1, y1 float64) Box {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return Box{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// Width returns the box width.
func (b Box) Width() float64 { return b.X1 - b.X0 }

// Height returns the box height.
func (b Box) Height() float64 { return b.Y1 - b.Y0 }

// Area returns the box area. Boxes with inverted corners yield a signed
// value; callers that construct boxes via NewBox always get >= 0.
func (b Box) Area() float64 { return b.Width() * b.Height() }

// Intersection returns the overlap area of a and b and whether the two
// boxes actually intersect. The corner ordering check matters: the raw
// corner arithmetic produces a positive "area" for some disjoint pairs,
// so the area must only be trusted when valid is true.
func Intersection(a, b Box) (area float64, valid bool) {
	x0 := math.Max(a.X0, b.X0)
	y0 := math.Max(a.Y0, b.Y0)
	x1 := math.Min(a.X1, b.X1)
	y1 := math.Min(a.Y1, b.Y1)

	if x0 >= x1 || y0 >= y1 {
		return 0, false
	}
	return (x1 - x0) * (y1 - y0), true
}

// Union returns the union area of a and b.
func Union(a, b Box) float64 {
	inter, _ := Intersection(a, b)
	return a.Area() + b.Area() - inter
}

// IoU computes Intersection over Union for two boxes. Disjoint boxes
// yield 0. A degenerate pair whose union area is not positive yields 0.
func IoU(a, b Box) float64 {
	inter, valid := Intersection(a, b)
	if !valid {
		return 0
	}
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

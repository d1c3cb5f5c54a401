// Package statistics summarises the pixels of a rectangular or elliptical
// region of one image plane.
package statistics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Shape selects the region outline.
type Shape int

const (
	Rect Shape = iota
	Ellipse
)

func (s Shape) String() string {
	if s == Ellipse {
		return "ellipse"
	}
	return "rect"
}

// Region is a selection in data coordinates, x along columns and y along
// rows, as a plot selector reports it. The corners may be given in any
// order. A pixel belongs to the region when its centre lies inside.
type Region struct {
	Shape  Shape
	X0, Y0 float64
	X1, Y1 float64
}

// ParseRegion reads "rect:x0,y0,x1,y1" or "ellipse:x0,y0,x1,y1".
func ParseRegion(s string) (Region, error) {
	var r Region
	var kind string
	for i, c := range s {
		if c == ':' {
			kind, s = s[:i], s[i+1:]
			break
		}
	}
	switch kind {
	case "rect":
		r.Shape = Rect
	case "ellipse":
		r.Shape = Ellipse
	default:
		return Region{}, fmt.Errorf("region %q: want rect:... or ellipse:...", kind)
	}

	if _, err := fmt.Sscanf(s, "%g,%g,%g,%g", &r.X0, &r.Y0, &r.X1, &r.Y1); err != nil {
		return Region{}, fmt.Errorf("region coordinates %q: %v", s, err)
	}
	return r, nil
}

func (r Region) bounds() (xmin, ymin, xmax, ymax float64) {
	return math.Min(r.X0, r.X1), math.Min(r.Y0, r.Y1), math.Max(r.X0, r.X1), math.Max(r.Y0, r.Y1)
}

// Contains reports whether pixel (row, col) is inside the region.
func (r Region) Contains(row, col int) bool {
	x, y := float64(col), float64(row)
	xmin, ymin, xmax, ymax := r.bounds()
	if x < xmin || x > xmax || y < ymin || y > ymax {
		return false
	}
	if r.Shape == Rect {
		return true
	}

	a, b := (xmax-xmin)/2, (ymax-ymin)/2
	if a == 0 || b == 0 {
		return false
	}
	dx := (x - (xmin + a)) / a
	dy := (y - (ymin + b)) / b
	return dx*dx+dy*dy <= 1
}

// Summary holds the statistics of the pixels inside a region.
type Summary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Median float64
}

// Compute summarises the pixels of a rows x cols row-major plane that lie
// inside r. A region that covers no pixel yields Count 0 and NaN moments.
func Compute(plane []float64, rows, cols int, r Region) (Summary, error) {
	if rows*cols != len(plane) {
		return Summary{}, fmt.Errorf("plane has %d values, want %dx%d", len(plane), rows, cols)
	}

	values := Pixels(plane, rows, cols, r)
	if len(values) == 0 {
		nan := math.NaN()
		return Summary{Mean: nan, StdDev: nan, Min: nan, Max: nan, Median: nan}, nil
	}

	// numpy's median: an even count averages the two middle values
	sort.Float64s(values)
	s := Summary{
		Count:  len(values),
		Mean:   stat.Mean(values, nil),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Median: (values[(len(values)-1)/2] + values[len(values)/2]) / 2,
	}
	if len(values) > 1 {
		s.StdDev = stat.PopStdDev(values, nil)
	}
	return s, nil
}

// Pixels returns the values of plane that lie inside r, in row-major order.
func Pixels(plane []float64, rows, cols int, r Region) []float64 {
	if rows <= 0 || cols <= 0 {
		return nil
	}
	xmin, ymin, xmax, ymax := r.bounds()
	r0, r1 := clamp(int(math.Ceil(ymin)), 0, rows-1), clamp(int(math.Floor(ymax)), 0, rows-1)
	c0, c1 := clamp(int(math.Ceil(xmin)), 0, cols-1), clamp(int(math.Floor(xmax)), 0, cols-1)

	var out []float64
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			if r.Contains(row, col) {
				out = append(out, plane[row*cols+col])
			}
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

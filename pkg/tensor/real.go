package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Real is a dense float64 tensor. The viewer keeps its magnitude and phase
// views as rank-4 Real tensors ordered (slice, dynamic, row, column).
type Real struct {
	Shape Shape
	Data  []float64
}

// NewReal allocates a zero-filled tensor.
func NewReal(shape Shape) *Real {
	return &Real{Shape: shape.Clone(), Data: make([]float64, shape.Len())}
}

// FromValues wraps data without copying.
func FromValues(shape Shape, data []float64) (*Real, error) {
	if len(data) != shape.Len() {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, shape.Len(), len(data))
	}
	return &Real{Shape: shape.Clone(), Data: data}, nil
}

// Rank returns the number of axes.
func (t *Real) Rank() int { return len(t.Shape) }

// Rows returns the size of the second to last axis.
func (t *Real) Rows() int { return t.Shape[len(t.Shape)-2] }

// Cols returns the size of the last axis.
func (t *Real) Cols() int { return t.Shape[len(t.Shape)-1] }

// At returns the element at the given index.
func (t *Real) At(idx ...int) float64 {
	return t.Data[t.offset(idx)]
}

// Set stores v at the given index.
func (t *Real) Set(v float64, idx ...int) {
	t.Data[t.offset(idx)] = v
}

func (t *Real) offset(idx []int) int {
	if len(idx) != len(t.Shape) {
		panic(fmt.Sprintf("tensor: index %v does not match rank of shape %v", idx, t.Shape))
	}
	off := 0
	for i, s := range t.Shape.Strides() {
		if idx[i] < 0 || idx[i] >= t.Shape[i] {
			panic(fmt.Sprintf("tensor: index %v out of range for shape %v", idx, t.Shape))
		}
		off += idx[i] * s
	}
	return off
}

// Plane returns the row-major image at [slice, dynamic, :, :] of a rank-4 tensor.
// The returned slice aliases the tensor storage.
func (t *Real) Plane(slice, dynamic int) ([]float64, error) {
	if t.Rank() != 4 {
		return nil, fmt.Errorf("plane access needs a rank-4 tensor, got shape %v", t.Shape)
	}
	if slice < 0 || slice >= t.Shape[0] {
		return nil, fmt.Errorf("slice %d out of range [0,%d)", slice, t.Shape[0])
	}
	if dynamic < 0 || dynamic >= t.Shape[1] {
		return nil, fmt.Errorf("dynamic %d out of range [0,%d)", dynamic, t.Shape[1])
	}
	n := t.Rows() * t.Cols()
	start := (slice*t.Shape[1] + dynamic) * n
	return t.Data[start : start+n], nil
}

// MinMax returns the smallest and largest element. An empty tensor yields zeros.
func (t *Real) MinMax() (min, max float64) {
	if len(t.Data) == 0 {
		return 0, 0
	}
	return floats.Min(t.Data), floats.Max(t.Data)
}

// Clone returns a deep copy.
func (t *Real) Clone() *Real {
	data := make([]float64, len(t.Data))
	copy(data, t.Data)
	return &Real{Shape: t.Shape.Clone(), Data: data}
}

// Rot90 rotates every plane spanned by the last two axes by k quarter turns
// counter-clockwise, in place. Odd k swaps the row and column axes.
func (t *Real) Rot90(k int) {
	k = ((k % 4) + 4) % 4
	if k == 0 || t.Rank() < 2 {
		return
	}

	rows, cols := t.Rows(), t.Cols()
	n := rows * cols
	buf := make([]float64, n)

	for start := 0; start+n <= len(t.Data); start += n {
		plane := t.Data[start : start+n]
		switch k {
		case 1:
			// out is cols x rows: out[i][j] = in[j][cols-1-i]
			for i := 0; i < cols; i++ {
				for j := 0; j < rows; j++ {
					buf[i*rows+j] = plane[j*cols+(cols-1-i)]
				}
			}
		case 2:
			for i := 0; i < rows; i++ {
				for j := 0; j < cols; j++ {
					buf[i*cols+j] = plane[(rows-1-i)*cols+(cols-1-j)]
				}
			}
		case 3:
			// out is cols x rows: out[i][j] = in[rows-1-j][i]
			for i := 0; i < cols; i++ {
				for j := 0; j < rows; j++ {
					buf[i*rows+j] = plane[(rows-1-j)*cols+i]
				}
			}
		}
		copy(plane, buf)
	}

	if k%2 == 1 {
		last := len(t.Shape) - 1
		t.Shape[last-1], t.Shape[last] = t.Shape[last], t.Shape[last-1]
	}
}

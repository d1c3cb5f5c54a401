package tensor

import (
	"fmt"

	"mriview/internal/models"
)

// Raw is an array as decoded from storage, before normalization.
// Complex sources fill Complex, integer and real sources fill Values.
type Raw struct {
	Shape   Shape
	Kind    models.ElementKind
	Complex []complex128
	Values  []float64
}

// NewComplex wraps complex samples of the given shape.
func NewComplex(shape Shape, data []complex128) (*Raw, error) {
	if len(data) != shape.Len() {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, shape.Len(), len(data))
	}
	return &Raw{Shape: shape.Clone(), Kind: models.Complex, Complex: data}, nil
}

// NewValues wraps integer or real samples of the given shape.
func NewValues(shape Shape, kind models.ElementKind, data []float64) (*Raw, error) {
	if kind != models.Integer && kind != models.Real {
		return nil, fmt.Errorf("NewValues holds integer or real samples, not %s", kind)
	}
	if len(data) != shape.Len() {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, shape.Len(), len(data))
	}
	return &Raw{Shape: shape.Clone(), Kind: kind, Values: data}, nil
}

// Rank returns the number of axes.
func (r *Raw) Rank() int { return len(r.Shape) }

// IsComplex reports whether the samples carry phase information.
func (r *Raw) IsComplex() bool { return r.Kind == models.Complex }

// ExpandDims returns a view with a new size-1 axis at position axis.
// The returned tensor shares its samples with r.
func (r *Raw) ExpandDims(axis int) *Raw {
	out := *r
	out.Shape = r.Shape.insertAxis(axis)
	return &out
}

// Squeeze returns a view with every size-1 axis removed.
// The returned tensor shares its samples with r.
func (r *Raw) Squeeze() *Raw {
	shape := make(Shape, 0, len(r.Shape))
	for _, v := range r.Shape {
		if v != 1 {
			shape = append(shape, v)
		}
	}
	out := *r
	out.Shape = shape
	return &out
}

// Take returns a copy of the sub-array at index along axis; the axis is dropped.
func (r *Raw) Take(axis, index int) (*Raw, error) {
	if axis < 0 || axis >= len(r.Shape) {
		return nil, fmt.Errorf("axis %d out of range for shape %v", axis, r.Shape)
	}
	if index < 0 || index >= r.Shape[axis] {
		return nil, fmt.Errorf("index %d out of range for axis %d of shape %v", index, axis, r.Shape)
	}

	out := &Raw{Shape: r.Shape.removeAxis(axis), Kind: r.Kind}
	if r.IsComplex() {
		out.Complex = take(r.Complex, r.Shape, axis, index)
	} else {
		out.Values = take(r.Values, r.Shape, axis, index)
	}
	return out, nil
}

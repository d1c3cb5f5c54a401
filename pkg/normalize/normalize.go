// Package normalize brings arrays of rank 2 to 5 into the canonical rank-4
// (slice, dynamic, row, column) layout and derives magnitude and phase views.
package normalize

import (
	"fmt"
	"math/cmplx"

	"mriview/pkg/tensor"
)

// Dim3Axis is the axis of a rank-5 array that holds the extra dimension.
const Dim3Axis = 2

// ShapeInferenceError reports an array whose layout cannot be mapped onto
// the canonical axes.
type ShapeInferenceError struct {
	Shape    tensor.Shape
	Slices   int
	Dynamics int
	Reason   string
}

func (e *ShapeInferenceError) Error() string {
	return fmt.Sprintf("cannot infer canonical layout of shape %v (slices=%d, dynamics=%d): %s",
		e.Shape, e.Slices, e.Dynamics, e.Reason)
}

// Result is the outcome of a normalization.
type Result struct {
	// Canonical is the rank-4 array display and statistics work on
	Canonical *tensor.Raw

	// Original is what the data store keeps: Canonical itself, or the full
	// rank-5 array when an extra axis of size > 1 survived squeezing
	Original *tensor.Raw

	// Dim3Index is the index selected along Dim3Axis, or -1 without an extra axis
	Dim3Index int
}

// HasDim3 reports whether Original carries an extra axis.
func (r Result) HasDim3() bool {
	return r.Original != nil && r.Original.Rank() == 5
}

// Normalize maps raw onto the canonical layout. The slice and dynamic counts
// are only consulted for rank-3 input, where they decide which axis is missing.
func Normalize(raw *tensor.Raw, slices, dynamics int) (Result, error) {
	if raw == nil {
		return Result{}, fmt.Errorf("normalize: nil tensor")
	}
	if err := raw.Shape.Validate(); err != nil {
		return Result{}, &ShapeInferenceError{Shape: raw.Shape, Slices: slices, Dynamics: dynamics, Reason: err.Error()}
	}

	if raw.Rank() == 5 {
		squeezed := raw.Squeeze()
		if squeezed.Rank() == 5 {
			canonical, err := raw.Take(Dim3Axis, 0)
			if err != nil {
				return Result{}, err
			}
			return Result{Canonical: canonical, Original: raw, Dim3Index: 0}, nil
		}
		// Squeezing may drop below rank 4 when several axes are singular.
		// The caller's counts described the unsqueezed array, so the
		// lower-rank rules run on counts taken from the squeezed shape.
		raw = squeezed
		slices, dynamics = Counts(raw.Shape)
	}

	canonical, err := toRank4(raw, slices, dynamics)
	if err != nil {
		return Result{}, err
	}
	return Result{Canonical: canonical, Original: canonical, Dim3Index: -1}, nil
}

// Counts derives the slice and dynamic counts implied by a shape: rank <= 2
// gives (1, 1), rank 3 gives (shape[0], 1) and rank >= 4 gives
// (shape[0], shape[1]).
func Counts(shape tensor.Shape) (slices, dynamics int) {
	switch {
	case len(shape) <= 2:
		return 1, 1
	case len(shape) == 3:
		return shape[0], 1
	default:
		return shape[0], shape[1]
	}
}

func toRank4(raw *tensor.Raw, slices, dynamics int) (*tensor.Raw, error) {
	switch raw.Rank() {
	case 2:
		return raw.ExpandDims(0).ExpandDims(0), nil
	case 3:
		switch {
		case slices > 1:
			return raw.ExpandDims(1), nil
		case dynamics > 1:
			return raw.ExpandDims(0), nil
		default:
			return nil, &ShapeInferenceError{
				Shape:    raw.Shape,
				Slices:   slices,
				Dynamics: dynamics,
				Reason:   "a rank-3 array needs more than one slice or more than one dynamic",
			}
		}
	case 4:
		return raw, nil
	default:
		return nil, &ShapeInferenceError{
			Shape:    raw.Shape,
			Slices:   slices,
			Dynamics: dynamics,
			Reason:   fmt.Sprintf("unsupported rank %d", raw.Rank()),
		}
	}
}

// SelectDim3 re-slices a rank-5 original array at index along Dim3Axis.
func SelectDim3(original *tensor.Raw, index int) (*tensor.Raw, error) {
	if original.Rank() != 5 {
		return nil, fmt.Errorf("select dim3: need a rank-5 array, got shape %v", original.Shape)
	}
	return original.Take(Dim3Axis, index)
}

// Derive computes the magnitude and phase views of a canonical array.
// Complex samples yield their modulus and argument in radians. Integer and
// real samples are passed through as magnitude and get an all-zero phase.
// The returned tensors never share storage with canonical.
func Derive(canonical *tensor.Raw) (magnitude, phase *tensor.Real) {
	magnitude = tensor.NewReal(canonical.Shape)
	phase = tensor.NewReal(canonical.Shape)

	if canonical.IsComplex() {
		for i, c := range canonical.Complex {
			magnitude.Data[i] = cmplx.Abs(c)
			phase.Data[i] = cmplx.Phase(c)
		}
		return magnitude, phase
	}

	copy(magnitude.Data, canonical.Values)
	return magnitude, phase
}

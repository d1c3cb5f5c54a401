// Package tensor provides the dense, row-major arrays the viewer core works on:
// Raw holds data as decoded from storage, Real holds the derived magnitude and
// phase views in the canonical (slice, dynamic, row, column) layout.
package tensor

import (
	"fmt"
	"slices"
	"strings"
)

// Shape is the size of each axis, outermost first.
type Shape []int

// Rank returns the number of axes.
func (s Shape) Rank() int { return len(s) }

// Len returns the number of elements a tensor of this shape holds.
// A rank-0 shape holds a single element.
func (s Shape) Len() int {
	n := 1
	for _, v := range s {
		n *= v
	}
	return n
}

// Strides returns row-major element strides for the shape.
func (s Shape) Strides() []int {
	strides := make([]int, len(s))
	acc := 1
	for i := len(s) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= s[i]
	}
	return strides
}

// Equal reports whether both shapes have the same axes.
func (s Shape) Equal(o Shape) bool {
	return slices.Equal(s, o)
}

// Clone returns a copy that does not share storage with s.
func (s Shape) Clone() Shape {
	return slices.Clone(s)
}

// Validate checks that every axis has a positive size.
func (s Shape) Validate() error {
	for i, v := range s {
		if v <= 0 {
			return fmt.Errorf("axis %d of shape %v has non-positive size %d", i, s, v)
		}
	}
	return nil
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = fmt.Sprint(v)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// insertAxis returns a shape with a size-1 axis at position axis.
func (s Shape) insertAxis(axis int) Shape {
	out := make(Shape, 0, len(s)+1)
	out = append(out, s[:axis]...)
	out = append(out, 1)
	return append(out, s[axis:]...)
}

// removeAxis returns a shape without the given axis.
func (s Shape) removeAxis(axis int) Shape {
	out := make(Shape, 0, len(s)-1)
	out = append(out, s[:axis]...)
	return append(out, s[axis+1:]...)
}

// take copies the sub-array at position index along axis.
func take[T any](data []T, shape Shape, axis, index int) []T {
	outer := Shape(shape[:axis]).Len()
	inner := Shape(shape[axis+1:]).Len()
	n := shape[axis]

	out := make([]T, 0, outer*inner)
	for o := 0; o < outer; o++ {
		start := (o*n + index) * inner
		out = append(out, data[start:start+inner]...)
	}
	return out
}

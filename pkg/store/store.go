// Package store holds the dataset currently shown by the viewer together
// with its derived magnitude and phase views.
//
// A Store is either empty or loaded. AddData always replaces the whole state,
// ClearData returns to empty, and every other operation is a no-op on an
// empty store. A Store has no internal locking; callers serialize access.
package store

import (
	"errors"

	"mriview/internal/models"
	"mriview/pkg/normalize"
	"mriview/pkg/tensor"
)

// ErrDim3OutOfRange is returned by ChangeDim3 for an index outside the extra axis.
var ErrDim3OutOfRange = errors.New("dim3 index out of range")

// Store owns the canonical tensors of one viewer session.
type Store struct {
	original  *tensor.Raw
	magnitude *tensor.Real
	phase     *tensor.Real

	// active aliases magnitude or phase
	active    *tensor.Real
	view      models.View
	activeMin float64
	activeMax float64

	dim3Index int
	rotation  int
	empty     bool
}

// New returns an empty store that will show the given view once loaded.
func New(view models.View) *Store {
	return &Store{view: view, dim3Index: -1, empty: true}
}

// AddData normalizes raw and replaces the stored state with it. On error the
// previous state is left untouched.
func (s *Store) AddData(raw *tensor.Raw, slices, dynamics int) error {
	res, err := normalize.Normalize(raw, slices, dynamics)
	if err != nil {
		return err
	}

	s.original = res.Original
	s.magnitude, s.phase = normalize.Derive(res.Canonical)
	s.dim3Index = res.Dim3Index
	s.rotation = 0
	s.empty = false
	s.ChangeActiveData()
	return nil
}

// ClearData drops all tensors.
func (s *Store) ClearData() {
	view := s.view
	*s = *New(view)
}

// SetView selects magnitude or phase and refreshes the active view.
func (s *Store) SetView(v models.View) {
	s.view = v
	s.ChangeActiveData()
}

// View returns the selected view.
func (s *Store) View() models.View { return s.view }

// ChangeActiveData points the active view at magnitude or phase according to
// the selected view and recomputes the active min and max.
func (s *Store) ChangeActiveData() {
	if s.empty {
		return
	}
	if s.view == models.ViewPhase {
		s.active = s.phase
	} else {
		s.active = s.magnitude
	}
	s.activeMin, s.activeMax = s.active.MinMax()
}

// ChangeDim3 re-derives magnitude and phase from the stored rank-5 array at
// index along its extra axis, then refreshes the active view. Rotation
// applied so far is kept. It is a no-op on an empty store or when the data
// has no extra axis.
func (s *Store) ChangeDim3(index int) error {
	if s.empty || s.original.Rank() != 5 {
		return nil
	}
	if index < 0 || index >= s.original.Shape[normalize.Dim3Axis] {
		return ErrDim3OutOfRange
	}

	canonical, err := normalize.SelectDim3(s.original, index)
	if err != nil {
		return err
	}
	s.magnitude, s.phase = normalize.Derive(canonical)
	s.magnitude.Rot90(s.rotation)
	s.phase.Rot90(s.rotation)
	s.dim3Index = index
	s.ChangeActiveData()
	return nil
}

// Rotate turns every image of the magnitude and phase views by k quarter
// turns counter-clockwise. The rotation is baked into the data and persists
// until new data is added.
func (s *Store) Rotate(k int) {
	if s.empty {
		return
	}
	// active aliases one of the two, so it turns with them
	s.magnitude.Rot90(k)
	s.phase.Rot90(k)
	s.rotation = ((s.rotation+k)%4 + 4) % 4
	s.ChangeActiveData()
}

// IsEmpty reports whether no data has been added since creation or the last clear.
func (s *Store) IsEmpty() bool { return s.empty }

// ActiveData returns the active rank-4 view, or nil when empty.
// The tensor is owned by the store and must not be modified.
func (s *Store) ActiveData() *tensor.Real { return s.active }

// MagnitudeData returns the magnitude view, or nil when empty.
func (s *Store) MagnitudeData() *tensor.Real { return s.magnitude }

// PhaseData returns the phase view, or nil when empty.
func (s *Store) PhaseData() *tensor.Real { return s.phase }

// OriginalData returns the stored array: rank 4, or rank 5 when an extra
// axis is kept for ChangeDim3.
func (s *Store) OriginalData() *tensor.Raw { return s.original }

// ActiveMin returns the smallest value of the active view.
func (s *Store) ActiveMin() float64 { return s.activeMin }

// ActiveMax returns the largest value of the active view.
func (s *Store) ActiveMax() float64 { return s.activeMax }

// ElementKind returns the element type of the stored data, or
// models.UnknownKind while the store is empty.
func (s *Store) ElementKind() models.ElementKind {
	if s.empty {
		return models.UnknownKind
	}
	return s.original.Kind
}

// HasPhase reports whether the phase view carries information.
func (s *Store) HasPhase() bool {
	return !s.empty && s.original.IsComplex()
}

// Dim3Size returns the length of the extra axis, or 0 without one.
func (s *Store) Dim3Size() int {
	if s.empty || s.original.Rank() != 5 {
		return 0
	}
	return s.original.Shape[normalize.Dim3Axis]
}

// Dim3Index returns the selected index along the extra axis, or -1.
func (s *Store) Dim3Index() int { return s.dim3Index }

// Rotation returns the accumulated quarter turns, in [0, 4).
func (s *Store) Rotation() int { return s.rotation }

// Slices returns the size of the slice axis, or 0 when empty.
func (s *Store) Slices() int {
	if s.empty {
		return 0
	}
	return s.active.Shape[0]
}

// Dynamics returns the size of the dynamic axis, or 0 when empty.
func (s *Store) Dynamics() int {
	if s.empty {
		return 0
	}
	return s.active.Shape[1]
}

// Plane returns the active image at [slice, dynamic, :, :] along with its
// row and column counts.
func (s *Store) Plane(slice, dynamic int) (data []float64, rows, cols int, err error) {
	if s.empty {
		return nil, 0, 0, errors.New("store is empty")
	}
	data, err = s.active.Plane(slice, dynamic)
	if err != nil {
		return nil, 0, 0, err
	}
	return data, s.active.Rows(), s.active.Cols(), nil
}

package models

// DatasetDescriptor identifies one logical dataset inside a DICOM directory.
// Descriptors are produced once per directory scan and never mutated.
type DatasetDescriptor struct {
	// ReferenceName is the filename of the first file of the set in sorted order.
	// It serves as a stable key and as the file shared header fields are read from.
	ReferenceName string

	// SliceCount is the number of distinct slice positions in the set
	SliceCount int

	// DynamicCount is the number of distinct time points or repetitions in the set
	DynamicCount int
}

// Frames returns the number of files the descriptor expects to find on disk.
func (d DatasetDescriptor) Frames() int {
	return d.SliceCount * d.DynamicCount
}

// SourceKind tells which loader contract applies to a dataset.
type SourceKind int

const (
	SourceH5 SourceKind = iota
	SourceDicom
)

func (k SourceKind) String() string {
	switch k {
	case SourceH5:
		return "h5"
	case SourceDicom:
		return "dicom"
	default:
		return "unknown"
	}
}

// ElementKind describes the element type of a decoded array.
type ElementKind int

const (
	// Complex samples carry magnitude and phase
	Complex ElementKind = iota

	// Integer samples are raw pixel values, e.g. DICOM pixel data
	Integer

	// Real samples are floating point values without phase information
	Real

	// UnknownKind is reported when there is no data to describe
	UnknownKind
)

func (k ElementKind) String() string {
	switch k {
	case Complex:
		return "complex"
	case Integer:
		return "integer"
	case Real:
		return "real"
	default:
		return "unknown"
	}
}

// View selects which derived tensor is displayed.
type View int

const (
	ViewMagnitude View = iota
	ViewPhase
)

func (v View) String() string {
	if v == ViewPhase {
		return "phase"
	}
	return "magnitude"
}

// ParseView converts a configuration string into a View.
func ParseView(s string) (View, bool) {
	switch s {
	case "magnitude", "intensity", "":
		return ViewMagnitude, true
	case "phase":
		return ViewPhase, true
	default:
		return ViewMagnitude, false
	}
}

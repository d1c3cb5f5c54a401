package visualization

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"mriview/internal/models"
	"mriview/pkg/store"
	"mriview/pkg/tensor"
)

// newTestStore loads a (slices, dynamics, rows, cols) volume where every
// plane holds a single value, slice*dynamics + dynamic.
func newTestStore(t *testing.T, slices, dynamics, rows, cols int) *store.Store {
	t.Helper()

	shape := tensor.Shape{slices, dynamics, rows, cols}
	values := make([]float64, shape.Len())
	plane := rows * cols
	for i := range values {
		values[i] = float64(i / plane)
	}

	raw, err := tensor.NewValues(shape, models.Real, values)
	if err != nil {
		t.Fatalf("Failed to build tensor: %v", err)
	}

	s := store.New(models.ViewMagnitude)
	if err := s.AddData(raw, slices, dynamics); err != nil {
		t.Fatalf("Failed to load data: %v", err)
	}
	return s
}

// TestNewViewer verifies that zero options fall back to defaults
func TestNewViewer(t *testing.T) {
	viewer := NewViewer(newTestStore(t, 1, 1, 2, 2), Options{Format: ".JPG"})

	if viewer.opts.Scale != 1 {
		t.Errorf("Expected scale 1, got %d", viewer.opts.Scale)
	}

	if viewer.opts.Quality != 90 {
		t.Errorf("Expected quality 90, got %d", viewer.opts.Quality)
	}

	if viewer.opts.Format != "jpg" {
		t.Errorf("Expected format jpg, got %s", viewer.opts.Format)
	}
}

// TestExtractSlice verifies the linear grey mapping of the active range
func TestExtractSlice(t *testing.T) {
	slices, dynamics, rows, cols := 3, 2, 4, 5
	viewer := NewViewer(newTestStore(t, slices, dynamics, rows, cols), Options{})

	// Active range is [0, 5]
	for s := 0; s < slices; s++ {
		for d := 0; d < dynamics; d++ {
			img, err := viewer.ExtractSlice(s, d)
			if err != nil {
				t.Fatalf("Failed to extract plane (%d,%d): %v", s, d, err)
			}

			bounds := img.Bounds()
			if bounds.Dx() != cols || bounds.Dy() != rows {
				t.Errorf("Expected dimensions %dx%d, got %dx%d", cols, rows, bounds.Dx(), bounds.Dy())
			}

			gray16Img, ok := img.(*image.Gray16)
			if !ok {
				t.Fatalf("Expected *image.Gray16, got %T", img)
			}

			expected := uint16(float64(s*dynamics+d) / 5 * 65535)
			got := gray16Img.Gray16At(cols/2, rows/2).Y
			if diff := int(got) - int(expected); diff < -1 || diff > 1 {
				t.Errorf("Expected value ~%d at (%d,%d), got %d", expected, s, d, got)
			}
		}
	}

	// Test out of bounds position
	if _, err := viewer.ExtractSlice(slices, 0); err == nil {
		t.Error("Expected error for out of bounds slice, got nil")
	}
}

// TestExtractSliceScaled verifies nearest-neighbour upscaling
func TestExtractSliceScaled(t *testing.T) {
	viewer := NewViewer(newTestStore(t, 2, 1, 3, 4), Options{Scale: 3})

	img, err := viewer.ExtractSlice(1, 0)
	if err != nil {
		t.Fatalf("Failed to extract plane: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 12 || bounds.Dy() != 9 {
		t.Errorf("Expected dimensions 12x9, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	if got := img.(*image.Gray16).Gray16At(11, 8).Y; got != 65535 {
		t.Errorf("Expected white corner, got %d", got)
	}
}

// TestExtractSliceFlatRange verifies that a constant plane renders black
func TestExtractSliceFlatRange(t *testing.T) {
	viewer := NewViewer(newTestStore(t, 1, 1, 2, 2), Options{})

	img, err := viewer.ExtractSlice(0, 0)
	if err != nil {
		t.Fatalf("Failed to extract plane: %v", err)
	}

	if got := img.(*image.Gray16).Gray16At(1, 1).Y; got != 0 {
		t.Errorf("Expected 0 for flat range, got %d", got)
	}
}

// TestExtractSliceEmptyStore verifies that an empty store has no planes
func TestExtractSliceEmptyStore(t *testing.T) {
	viewer := NewViewer(store.New(models.ViewMagnitude), Options{})

	if _, err := viewer.ExtractSlice(0, 0); err == nil {
		t.Error("Expected error for empty store, got nil")
	}
}

// TestExtractRegion verifies that 2D regions are correctly extracted
func TestExtractRegion(t *testing.T) {
	rows, cols := 6, 5
	values := make([]float64, rows*cols)
	for i := range values {
		values[i] = float64(i)
	}
	raw, err := tensor.NewValues(tensor.Shape{rows, cols}, models.Real, values)
	if err != nil {
		t.Fatalf("Failed to build tensor: %v", err)
	}
	s := store.New(models.ViewMagnitude)
	if err := s.AddData(raw, 1, 1); err != nil {
		t.Fatalf("Failed to load data: %v", err)
	}

	viewer := NewViewer(s, Options{})

	startRow, startCol, height, width := 2, 1, 3, 2
	region, err := viewer.ExtractRegion(0, 0, startRow, startCol, height, width)
	if err != nil {
		t.Fatalf("Failed to extract region: %v", err)
	}

	if len(region) != height*width {
		t.Errorf("Expected region size %d, got %d", height*width, len(region))
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			expected := values[(startRow+y)*cols+startCol+x]
			if region[y*width+x] != expected {
				t.Errorf("Region value mismatch at (%d,%d): expected %f, got %f",
					y, x, expected, region[y*width+x])
			}
		}
	}

	// Test invalid parameters
	if _, err := viewer.ExtractRegion(0, 0, -1, 0, 1, 1); err == nil {
		t.Error("Expected error for negative start coordinate, got nil")
	}

	if _, err := viewer.ExtractRegion(0, 0, 0, 0, 0, 1); err == nil {
		t.Error("Expected error for zero size, got nil")
	}

	if _, err := viewer.ExtractRegion(0, 0, 0, cols-1, 1, 2); err == nil {
		t.Error("Expected error for region extending beyond plane, got nil")
	}
}

// TestSaveSlice verifies that slices can be saved to disk
func TestSaveSlice(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	tempDir := t.TempDir()
	viewer := NewViewer(newTestStore(t, 2, 1, 8, 8), Options{})

	img, err := viewer.ExtractSlice(1, 0)
	if err != nil {
		t.Fatalf("Failed to extract slice: %v", err)
	}

	for _, name := range []string{"slice.jpg", "slice.png", "slice.tif"} {
		filename := filepath.Join(tempDir, name)
		if err := viewer.SaveSlice(img, filename); err != nil {
			t.Fatalf("Failed to save %s: %v", name, err)
		}
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Saved file does not exist: %s", filename)
		}
	}

	if err := viewer.SaveSlice(img, filepath.Join(tempDir, "slice.xyz")); err == nil {
		t.Error("Expected error for unknown extension, got nil")
	}
}

// TestSaveSliceSequence verifies that a sequence of slices can be saved
func TestSaveSliceSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	tempDir := t.TempDir()
	viewer := NewViewer(newTestStore(t, 3, 2, 5, 5), Options{Format: "png"})

	outputDir := filepath.Join(tempDir, "slices")
	files, err := viewer.SaveSliceSequence("slice", 1, outputDir)
	if err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}

	if len(files) != 3 {
		t.Fatalf("Expected 3 files, got %d", len(files))
	}

	expected := filepath.Join(outputDir, "slice_s002_d001.png")
	if files[2] != expected {
		t.Errorf("Expected %s, got %s", expected, files[2])
	}

	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			t.Errorf("Expected slice file does not exist: %s", f)
		}
	}

	files, err = viewer.SaveSliceSequence("dynamic", 0, outputDir)
	if err != nil {
		t.Fatalf("Failed to save dynamic sequence: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("Expected 2 files, got %d", len(files))
	}

	// Test invalid axis
	if _, err := viewer.SaveSliceSequence("invalid", 0, outputDir); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
}

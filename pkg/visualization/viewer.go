package visualization

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Source is the display side of a loaded dataset: planes of the active
// view and the range used to map them to grey levels.
type Source interface {
	Plane(slice, dynamic int) (data []float64, rows, cols int, err error)
	ActiveMin() float64
	ActiveMax() float64
	Slices() int
	Dynamics() int
}

// Options controls how exported planes are rendered and encoded.
type Options struct {
	// Scale is the integer upscale factor applied before saving.
	Scale int

	// Quality is the JPEG quality used when the output is a JPEG file.
	Quality int

	// Format is the file extension used by SaveSliceSequence.
	Format string
}

// DefaultOptions returns 1x scale, JPEG quality 90 and PNG sequences.
func DefaultOptions() Options {
	return Options{Scale: 1, Quality: 90, Format: "png"}
}

// Viewer renders planes of the active view of a dataset as grey images.
type Viewer struct {
	source Source
	opts   Options
}

// NewViewer creates a viewer over src. Zero option fields take their
// defaults.
func NewViewer(src Source, opts Options) *Viewer {
	def := DefaultOptions()
	if opts.Scale < 1 {
		opts.Scale = def.Scale
	}
	if opts.Quality <= 0 {
		opts.Quality = def.Quality
	}
	if opts.Format == "" {
		opts.Format = def.Format
	}
	opts.Format = strings.TrimPrefix(strings.ToLower(opts.Format), ".")

	return &Viewer{source: src, opts: opts}
}

// ExtractSlice renders plane (slice, dynamic) as a 16-bit grey image. The
// active range [min, max] maps linearly onto [0, 65535]; a flat range
// renders black.
func (v *Viewer) ExtractSlice(slice, dynamic int) (image.Image, error) {
	data, rows, cols, err := v.source.Plane(slice, dynamic)
	if err != nil {
		return nil, err
	}

	lo, hi := v.source.ActiveMin(), v.source.ActiveMax()
	span := hi - lo

	img := image.NewGray16(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var level float64
			if span > 0 {
				level = (data[y*cols+x] - lo) / span * 65535
			}
			value := uint16(math.Max(0, math.Min(65535, math.Round(level))))
			img.SetGray16(x, y, color.Gray16{Y: value})
		}
	}

	if v.opts.Scale == 1 {
		return img, nil
	}

	dst := image.NewGray16(image.Rect(0, 0, cols*v.opts.Scale, rows*v.opts.Scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst, nil
}

// ExtractRegion copies a height x width block of plane (slice, dynamic)
// starting at (row, col), in row-major order.
func (v *Viewer) ExtractRegion(slice, dynamic, row, col, height, width int) ([]float64, error) {
	if row < 0 || col < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}

	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}

	data, rows, cols, err := v.source.Plane(slice, dynamic)
	if err != nil {
		return nil, err
	}

	if row+height > rows || col+width > cols {
		return nil, fmt.Errorf("region extends beyond plane boundaries")
	}

	region := make([]float64, height*width)
	for y := 0; y < height; y++ {
		copy(region[y*width:(y+1)*width], data[(row+y)*cols+col:(row+y)*cols+col+width])
	}

	return region, nil
}

// SaveSlice encodes img into filename. The format follows the extension.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	return imaging.Save(img, filename, imaging.JPEGQuality(v.opts.Quality))
}

// SaveSliceSequence saves every plane along axis into outputDir. Axis
// "slice" walks the slices at dynamic index fixed, axis "dynamic" walks
// the dynamics at slice index fixed.
func (v *Viewer) SaveSliceSequence(axis string, fixed int, outputDir string) ([]string, error) {
	var count int
	switch axis {
	case "slice", "s":
		axis, count = "slice", v.source.Slices()
	case "dynamic", "d":
		axis, count = "dynamic", v.source.Dynamics()
	default:
		return nil, fmt.Errorf("invalid axis: %s (must be slice or dynamic)", axis)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	var files []string
	for pos := 0; pos < count; pos++ {
		slice, dynamic := pos, fixed
		if axis == "dynamic" {
			slice, dynamic = fixed, pos
		}

		img, err := v.ExtractSlice(slice, dynamic)
		if err != nil {
			return files, err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("%s_s%03d_d%03d.%s", axis, slice, dynamic, v.opts.Format))
		if err := v.SaveSlice(img, filename); err != nil {
			return files, err
		}
		files = append(files, filename)
	}

	return files, nil
}

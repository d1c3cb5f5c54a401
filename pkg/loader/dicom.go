package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"mriview/internal/models"
	"mriview/pkg/fileset"
	"mriview/pkg/tensor"
)

// DefaultExtensions is the extension family accepted for DICOM files.
var DefaultExtensions = []string{".dcm"}

// Image is one decoded 2-D pixel plane.
type Image struct {
	Rows   int
	Cols   int
	Kind   models.ElementKind
	Pixels []float64 // row-major, len == Rows*Cols
}

// Decoder turns one file into a pixel plane.
type Decoder interface {
	Decode(path string) (Image, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(path string) (Image, error)

func (f DecoderFunc) Decode(path string) (Image, error) { return f(path) }

type dicomOptions struct {
	decoder    Decoder
	workers    int
	extensions []string
}

// DicomOption configures LoadDicom.
type DicomOption func(*dicomOptions)

// WithDecoder replaces the default DICOM decoder.
func WithDecoder(d Decoder) DicomOption {
	return func(o *dicomOptions) { o.decoder = d }
}

// WithWorkers sets how many files are decoded in parallel.
func WithWorkers(n int) DicomOption {
	return func(o *dicomOptions) { o.workers = n }
}

// WithExtensions sets the accepted extension family.
func WithExtensions(exts ...string) DicomOption {
	return func(o *dicomOptions) { o.extensions = exts }
}

// ListDicomFiles returns the sorted names of the regular files in dir whose
// lower-cased name contains one of exts. With no exts, DefaultExtensions
// is used.
func ListDicomFiles(dir string, exts ...string) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, readError(dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		lower := strings.ToLower(e.Name())
		for _, ext := range exts {
			if strings.Contains(lower, strings.ToLower(ext)) {
				names = append(names, e.Name())
				break
			}
		}
	}

	sort.Strings(names)
	return names, nil
}

// LoadDicom reads every file of desc from dir into a tensor of shape
// (slices, dynamics, rows, cols). Files are matched on their dataset key,
// sorted, and assigned to (s, d) at position s*dynamics+d. The first
// file fixes the plane size and pixel kind; any missing, unreadable or
// mismatched file fails the whole load.
func LoadDicom(desc models.DatasetDescriptor, dir string, opts ...DicomOption) (*tensor.Raw, error) {
	o := dicomOptions{decoder: defaultDecoder{}, workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&o)
	}

	key := fileset.KeyOf(desc)
	all, err := ListDicomFiles(dir, o.extensions...)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, name := range all {
		if k, err := fileset.Key(name); err == nil && k == key {
			files = append(files, name)
		}
	}

	frames := desc.Frames()
	if frames <= 0 {
		return nil, readError(desc.ReferenceName, fmt.Errorf("descriptor has %d frames", frames))
	}
	if len(files) < frames {
		return nil, readError(desc.ReferenceName,
			fmt.Errorf("found %d files for key %q, need %d (first missing position %d)",
				len(files), key, frames, len(files)))
	}
	files = files[:frames]

	// Read the reference file to get the plane geometry
	ref, err := decodeFile(o.decoder, filepath.Join(dir, files[0]))
	if err != nil {
		return nil, readError(files[0], err)
	}
	planeSize := ref.Rows * ref.Cols
	data := make([]float64, frames*planeSize)
	copy(data, ref.Pixels)

	if err := fillPlanes(o, dir, files[0], files[1:], ref, data[planeSize:]); err != nil {
		return nil, err
	}

	shape := tensor.Shape{desc.SliceCount, desc.DynamicCount, ref.Rows, ref.Cols}
	return tensor.NewValues(shape, ref.Kind, data)
}

// fillPlanes decodes files in parallel, copying plane i into
// data[i*rows*cols:]. The first error wins.
func fillPlanes(o dicomOptions, dir, refName string, files []string, ref Image, data []float64) error {
	if len(files) == 0 {
		return nil
	}

	numWorkers := o.workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	planeSize := ref.Rows * ref.Cols
	taskChan := make(chan int, len(files))
	errChan := make(chan error, len(files))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range taskChan {
				img, err := decodeFile(o.decoder, filepath.Join(dir, files[i]))
				if err == nil && (img.Rows != ref.Rows || img.Cols != ref.Cols) {
					err = fmt.Errorf("plane is %dx%d, reference %s is %dx%d",
						img.Rows, img.Cols, refName, ref.Rows, ref.Cols)
				}
				if err == nil && len(img.Pixels) != planeSize {
					err = fmt.Errorf("decoded %d pixels, want %d", len(img.Pixels), planeSize)
				}
				if err != nil {
					errChan <- readError(files[i], err)
					continue
				}
				copy(data[i*planeSize:(i+1)*planeSize], img.Pixels)
			}
		}()
	}

	for i := range files {
		taskChan <- i
	}
	close(taskChan)

	wg.Wait()
	close(errChan)

	var firstErr error
	for err := range errChan {
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// decodeFile calls d and turns a panic raised inside the decoder into an
// error.
func decodeFile(d Decoder, path string) (img Image, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("decoder panic: %v", panicErr)
		}
	}()

	img, err = d.Decode(path)
	if err == nil && len(img.Pixels) != img.Rows*img.Cols {
		err = fmt.Errorf("decoded %d pixels for a %dx%d plane", len(img.Pixels), img.Rows, img.Cols)
	}
	return img, err
}

type defaultDecoder struct{}

// Decode parses a DICOM file and returns its first native frame as
// integer pixels. Signed pixel data is sign-extended from BitsStored.
func (defaultDecoder) Decode(path string) (Image, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return Image{}, err
	}

	pixelElem, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return Image{}, fmt.Errorf("no pixel data: %w", err)
	}
	info := dicom.MustGetPixelDataInfo(pixelElem.Value)
	if len(info.Frames) == 0 {
		return Image{}, fmt.Errorf("pixel data holds no frames")
	}

	native, err := info.Frames[0].GetNativeFrame()
	if err != nil {
		return Image{}, fmt.Errorf("native frame: %w", err)
	}

	signed := intTag(&ds, tag.PixelRepresentation, 0) == 1
	bitsStored := intTag(&ds, tag.BitsStored, native.BitsPerSample())

	rows, cols := native.Rows(), native.Cols()
	pixels := make([]float64, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			px, err := native.GetPixel(x, y)
			if err != nil {
				return Image{}, fmt.Errorf("pixel (%d,%d): %w", x, y, err)
			}
			v := px[0]
			if signed && bitsStored > 0 && v >= 1<<(bitsStored-1) {
				v -= 1 << bitsStored
			}
			pixels[y*cols+x] = float64(v)
		}
	}

	return Image{Rows: rows, Cols: cols, Kind: models.Integer, Pixels: pixels}, nil
}

func intTag(ds *dicom.Dataset, t tag.Tag, fallback int) int {
	elem, err := ds.FindElementByTag(t)
	if err != nil {
		return fallback
	}
	ints, ok := elem.Value.GetValue().([]int)
	if !ok || len(ints) == 0 {
		return fallback
	}
	return ints[0]
}

package loader

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/scigolib/hdf5"

	"mriview/internal/models"
	"mriview/pkg/normalize"
	"mriview/pkg/tensor"
)

// H5Dataset is one named array inside an HDF5 container.
type H5Dataset interface {
	Name() string
	Shape() (tensor.Shape, error)
	Attributes() ([]string, error)
	Read() (*tensor.Raw, error)
}

// LoadH5 eagerly reads ds and derives the slice and dynamic counts from
// its rank: rank <= 2 gives (1, 1), rank 3 gives (shape[0], 1) and rank
// >= 4 gives (shape[0], shape[1]).
func LoadH5(ds H5Dataset) (raw *tensor.Raw, slices, dynamics int, err error) {
	raw, err = ds.Read()
	if err != nil {
		var re *DatasetReadError
		if !errors.As(err, &re) {
			err = readError(ds.Name(), err)
		}
		return nil, 0, 0, err
	}

	slices, dynamics = normalize.Counts(raw.Shape)
	return raw, slices, dynamics, nil
}

// H5File is an open HDF5 container with its datasets listed in walk order.
type H5File struct {
	path     string
	file     *hdf5.File
	datasets []*h5Dataset
}

// OpenH5 opens the HDF5 file at path and indexes every dataset it holds.
func OpenH5(path string) (*H5File, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, readError(path, err)
	}

	h := &H5File{path: path, file: f}
	f.Walk(func(p string, obj hdf5.Object) {
		if ds, ok := obj.(*hdf5.Dataset); ok {
			h.datasets = append(h.datasets, &h5Dataset{
				name: strings.TrimPrefix(p, "/"),
				ds:   ds,
			})
		}
	})

	return h, nil
}

// Path returns the file the container was opened from.
func (h *H5File) Path() string { return h.path }

// Datasets returns the dataset names in walk order.
func (h *H5File) Datasets() []string {
	names := make([]string, len(h.datasets))
	for i, d := range h.datasets {
		names[i] = d.name
	}
	return names
}

// Dataset looks a dataset up by name. A leading slash is ignored.
func (h *H5File) Dataset(name string) (H5Dataset, error) {
	name = strings.TrimPrefix(name, "/")
	for _, d := range h.datasets {
		if d.name == name {
			return d, nil
		}
	}
	return nil, readError(name, fmt.Errorf("no such dataset in %s", h.path))
}

// Close releases the underlying file.
func (h *H5File) Close() error {
	return h.file.Close()
}

type h5Dataset struct {
	name string
	ds   *hdf5.Dataset
}

func (d *h5Dataset) Name() string { return d.name }

func (d *h5Dataset) Shape() (tensor.Shape, error) {
	info, err := d.info()
	if err != nil {
		return nil, err
	}
	return info.shape, nil
}

func (d *h5Dataset) Attributes() ([]string, error) {
	names, err := d.ds.ListAttributes()
	if err != nil {
		return nil, readError(d.name, err)
	}
	return names, nil
}

func (d *h5Dataset) Read() (*tensor.Raw, error) {
	info, err := d.info()
	if err != nil {
		return nil, err
	}

	switch info.class {
	case "compound":
		values, err := d.ds.ReadCompound()
		if err != nil {
			return nil, readError(d.name, err)
		}
		data := make([]complex128, len(values))
		for i, v := range values {
			c, err := complexMember(v)
			if err != nil {
				return nil, readError(d.name, fmt.Errorf("element %d: %w", i, err))
			}
			data[i] = c
		}
		raw, err := tensor.NewComplex(info.shape, data)
		if err != nil {
			return nil, readError(d.name, err)
		}
		return raw, nil

	case "integer", "float":
		values, err := d.ds.Read()
		if err != nil {
			return nil, readError(d.name, err)
		}
		kind := models.Real
		if info.class == "integer" {
			kind = models.Integer
		}
		raw, err := tensor.NewValues(info.shape, kind, values)
		if err != nil {
			return nil, readError(d.name, err)
		}
		return raw, nil

	default:
		return nil, readError(d.name, fmt.Errorf("unsupported element class %q", info.class))
	}
}

func (d *h5Dataset) info() (datasetInfo, error) {
	s, err := d.ds.Info()
	if err != nil {
		return datasetInfo{}, readError(d.name, err)
	}
	info, err := parseInfo(s)
	if err != nil {
		return datasetInfo{}, readError(d.name, err)
	}
	return info, nil
}

type datasetInfo struct {
	class string
	shape tensor.Shape
}

var (
	classPattern = regexp.MustCompile(`^Dataset: (\w+) \(size=\d+ bytes\)`)
	spacePattern = regexp.MustCompile(`\d+D array \[([0-9 x]*)\]`)
)

// parseInfo extracts the element class and dimensions from the summary
// line the hdf5 package renders for a dataset, for example
// "Dataset: compound (size=16 bytes), 4D array [13 2 216 216], ...".
func parseInfo(s string) (datasetInfo, error) {
	m := classPattern.FindStringSubmatch(s)
	if m == nil {
		return datasetInfo{}, fmt.Errorf("unrecognised dataset info %q", s)
	}
	info := datasetInfo{class: m[1]}

	if strings.Contains(s, ", scalar,") || strings.HasSuffix(s, ", scalar") {
		info.shape = tensor.Shape{}
		return info, nil
	}

	sm := spacePattern.FindStringSubmatch(s)
	if sm == nil {
		return datasetInfo{}, fmt.Errorf("no dataspace in dataset info %q", s)
	}
	for _, f := range strings.Fields(sm[1]) {
		if f == "x" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return datasetInfo{}, fmt.Errorf("bad dimension %q in %q", f, s)
		}
		info.shape = append(info.shape, n)
	}
	return info, nil
}

// complexMember reads the real and imaginary members of an h5py-style
// complex compound ("r"/"i", or "real"/"imag").
func complexMember(v map[string]interface{}) (complex128, error) {
	re, okR := lookupNumber(v, "r", "real")
	im, okI := lookupNumber(v, "i", "imag")
	if !okR || !okI {
		return 0, fmt.Errorf("compound is not complex: members %v", memberNames(v))
	}
	return complex(re, im), nil
}

func lookupNumber(v map[string]interface{}, keys ...string) (float64, bool) {
	for _, k := range keys {
		if x, ok := v[k]; ok {
			return toFloat(x)
		}
	}
	return 0, false
}

func memberNames(v map[string]interface{}) []string {
	names := make([]string, 0, len(v))
	for k := range v {
		names = append(names, k)
	}
	return names
}

func toFloat(x interface{}) (float64, bool) {
	switch n := x.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

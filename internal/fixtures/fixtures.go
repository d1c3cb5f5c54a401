// Package fixtures writes small synthetic DICOM series and HDF5 files for
// tests.
package fixtures

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/scigolib/hdf5"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// DicomName returns an export-style filename: the key followed by a
// 24-character block carrying the slice and dynamic counters.
func DicomName(key string, slice, dynamic int) string {
	return fmt.Sprintf("%s_IM_%04d_SER001_%04d.dcm", key, slice, dynamic)
}

// PixelFunc returns the stored value for a pixel of frame (slice, dynamic).
type PixelFunc func(slice, dynamic, row, col int) uint16

// Ramp encodes the frame position and pixel position in the value.
func Ramp(slice, dynamic, row, col int) uint16 {
	return uint16(slice*1000 + dynamic*100 + row*10 + col)
}

// WriteDicomSeries writes slices*dynamics single-frame 16-bit MR images
// named after key into dir and returns their names in write order.
func WriteDicomSeries(dir, key string, slices, dynamics, rows, cols int, px PixelFunc) ([]string, error) {
	var names []string
	for s := 0; s < slices; s++ {
		for d := 0; d < dynamics; d++ {
			name := DicomName(key, s, d)
			values := make([]uint16, rows*cols)
			for r := 0; r < rows; r++ {
				for c := 0; c < cols; c++ {
					values[r*cols+c] = px(s, d, r, c)
				}
			}
			uid := fmt.Sprintf("1.2.826.0.1.3680043.8.498.%d.%d", s, d)
			if err := WriteDicomImage(filepath.Join(dir, name), uid, rows, cols, values); err != nil {
				return nil, err
			}
			names = append(names, name)
		}
	}
	return names, nil
}

// WriteDicomImage writes a single-frame 16-bit MONOCHROME2 image.
func WriteDicomImage(path, sopInstanceUID string, rows, cols int, values []uint16) error {
	if len(values) != rows*cols {
		return fmt.Errorf("need %d values, got %d", rows*cols, len(values))
	}

	nativeFrame := frame.NewNativeFrame[uint16](16, rows, cols, rows*cols, 1)
	copy(nativeFrame.RawData, values)

	pixelDataInfo := dicom.PixelDataInfo{
		Frames: []*frame.Frame{
			{
				Encapsulated: false,
				NativeData:   nativeFrame,
			},
		},
	}

	elements := []*dicom.Element{
		mustNewElement(tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustNewElement(tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.4"}),
		mustNewElement(tag.MediaStorageSOPInstanceUID, []string{sopInstanceUID}),
		mustNewElement(tag.SOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.4"}),
		mustNewElement(tag.SOPInstanceUID, []string{sopInstanceUID}),
		mustNewElement(tag.Modality, []string{"MR"}),
		mustNewElement(tag.Rows, []int{rows}),
		mustNewElement(tag.Columns, []int{cols}),
		mustNewElement(tag.BitsAllocated, []int{16}),
		mustNewElement(tag.BitsStored, []int{16}),
		mustNewElement(tag.HighBit, []int{15}),
		mustNewElement(tag.PixelRepresentation, []int{0}),
		mustNewElement(tag.SamplesPerPixel, []int{1}),
		mustNewElement(tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
		mustNewElement(tag.PixelData, pixelDataInfo),
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return dicom.Write(f, dicom.Dataset{Elements: elements})
}

// WriteH5 writes float64 datasets into a new HDF5 file at path.
func WriteH5(path string, datasets ...H5Dataset) error {
	fw, err := hdf5.CreateForWrite(path, hdf5.CreateTruncate)
	if err != nil {
		return err
	}

	for _, ds := range datasets {
		if err := ds.write(fw); err != nil {
			_ = fw.Close()
			return fmt.Errorf("dataset %s: %w", ds.Name, err)
		}
	}
	return fw.Close()
}

// H5Dataset describes one dataset to write. Integer datasets are stored as
// int32, the rest as float64.
type H5Dataset struct {
	Name       string
	Dims       []int
	Values     []float64
	Integer    bool
	Attributes map[string]interface{}
}

func (ds H5Dataset) write(fw *hdf5.FileWriter) error {
	dims := make([]uint64, len(ds.Dims))
	for i, d := range ds.Dims {
		dims[i] = uint64(d)
	}

	dtype := hdf5.Float64
	if ds.Integer {
		dtype = hdf5.Int32
	}
	dw, err := fw.CreateDataset("/"+ds.Name, dtype, dims)
	if err != nil {
		return err
	}

	if ds.Integer {
		ints := make([]int32, len(ds.Values))
		for i, v := range ds.Values {
			ints[i] = int32(v)
		}
		err = dw.Write(ints)
	} else {
		err = dw.Write(ds.Values)
	}
	if err != nil {
		return err
	}

	for name, value := range ds.Attributes {
		if err := dw.WriteAttribute(name, value); err != nil {
			return err
		}
	}
	return nil
}

func mustNewElement(t tag.Tag, value interface{}) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("failed to create element %v: %v", t, err))
	}
	return elem
}

// Package fileset groups the files of a DICOM export directory into datasets.
//
// The export tool this viewer reads from writes one file per slice and
// dynamic and encodes both counters at fixed offsets from the end of the
// filename:
//
//	<scan name and id>..<slice:4>........<dynamic:4>.dcm
//	                  |-24   |-20 |-16     |-8  |-4
//
// Everything before the trailing 24 characters is the dataset key. Offsets
// count characters (runes), not bytes, so a scan name with non-ASCII letters
// is cut at the same place as an ASCII one. Files are never opened during
// identification; the layout is trusted as long as every name is long enough
// for the offsets to be addressable.
package fileset

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"mriview/internal/models"
)

const (
	// SuffixLength is the width of the trailing block holding the counters and extension
	SuffixLength = 24

	sliceStart, sliceEnd     = 20, 16
	dynamicStart, dynamicEnd = 8, 4
)

// MalformedFilenameError reports a filename too short for the offset scheme.
type MalformedFilenameError struct {
	Name      string
	MinLength int
}

func (e *MalformedFilenameError) Error() string {
	return fmt.Sprintf("malformed DICOM filename %q: need at least %d characters, got %d",
		e.Name, e.MinLength, utf8.RuneCountInString(e.Name))
}

// Key returns the dataset key of a filename, i.e. everything but the
// trailing SuffixLength characters.
func Key(name string) (string, error) {
	i, ok := fromEnd(name, SuffixLength)
	if !ok {
		return "", &MalformedFilenameError{Name: name, MinLength: SuffixLength}
	}
	return name[:i], nil
}

// fromEnd returns the byte offset of the position n runes before the end of
// name. Invalid UTF-8 counts one rune per byte.
func fromEnd(name string, n int) (int, bool) {
	i := len(name)
	for ; n > 0; n-- {
		if i == 0 {
			return 0, false
		}
		_, size := utf8.DecodeLastRuneInString(name[:i])
		i -= size
	}
	return i, true
}

func field(name string, start, end int) string {
	i, _ := fromEnd(name, start)
	j, _ := fromEnd(name, end)
	return name[i:j]
}

func sliceField(name string) string {
	return field(name, sliceStart, sliceEnd)
}

func dynamicField(name string) string {
	return field(name, dynamicStart, dynamicEnd)
}

// Identify partitions filenames into datasets by their key and counts the
// distinct slice and dynamic fields of each group. Descriptors come back in
// key order; the reference name of each is the group's first file in sorted
// order. The caller's slice is not modified.
func Identify(filenames []string) ([]models.DatasetDescriptor, error) {
	if len(filenames) == 0 {
		return []models.DatasetDescriptor{}, nil
	}

	names := make([]string, len(filenames))
	copy(names, filenames)
	sort.Strings(names)

	type group struct {
		reference string
		slices    map[string]struct{}
		dynamics  map[string]struct{}
	}

	var order []string
	groups := make(map[string]*group)

	for _, name := range names {
		key, err := Key(name)
		if err != nil {
			return nil, err
		}

		g, ok := groups[key]
		if !ok {
			g = &group{
				reference: name,
				slices:    make(map[string]struct{}),
				dynamics:  make(map[string]struct{}),
			}
			groups[key] = g
			order = append(order, key)
		}
		g.slices[sliceField(name)] = struct{}{}
		g.dynamics[dynamicField(name)] = struct{}{}
	}

	// A key that is a prefix of another key can sort after it (e.g. "ab" vs
	// "ab_..." filenames), so order by key explicitly.
	sort.Strings(order)

	descriptors := make([]models.DatasetDescriptor, 0, len(order))
	for _, key := range order {
		g := groups[key]
		descriptors = append(descriptors, models.DatasetDescriptor{
			ReferenceName: g.reference,
			SliceCount:    len(g.slices),
			DynamicCount:  len(g.dynamics),
		})
	}
	return descriptors, nil
}

// KeyOf returns the dataset key of a descriptor.
func KeyOf(d models.DatasetDescriptor) string {
	key, err := Key(d.ReferenceName)
	if err != nil {
		return d.ReferenceName
	}
	return key
}

// Find returns the descriptor whose key equals key.
func Find(descriptors []models.DatasetDescriptor, key string) (models.DatasetDescriptor, bool) {
	for _, d := range descriptors {
		if KeyOf(d) == key {
			return d, true
		}
	}
	return models.DatasetDescriptor{}, false
}

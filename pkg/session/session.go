// Package session ties a source path to a DataStore: it decides the
// source kind, lists the datasets the source holds and loads one of them
// into the store with the configured display settings.
package session

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"mriview/internal/models"
	"mriview/pkg/config"
	"mriview/pkg/fileset"
	"mriview/pkg/loader"
	"mriview/pkg/store"
)

// ErrUnknownSource is returned for a path that is neither a directory nor
// an HDF5 file.
var ErrUnknownSource = errors.New("source is neither a directory nor an .h5/.hdf5 file")

// Option configures a Session.
type Option func(*Session)

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Session) { s.cfg = cfg }
}

// WithLogger sets the logger used when output is verbose.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Session holds one opened source and the store its datasets load into.
// It is not safe for concurrent use.
type Session struct {
	path   string
	kind   models.SourceKind
	cfg    *config.Config
	logger *log.Logger

	h5          *loader.H5File
	descriptors []models.DatasetDescriptor
	names       []string

	store   *store.Store
	current string
}

// Kind decides how path is read: directories hold DICOM series, .h5 and
// .hdf5 files are HDF5 containers.
func Kind(path string) (models.SourceKind, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return models.SourceDicom, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".h5", ".hdf5":
		return models.SourceH5, nil
	}
	return 0, fmt.Errorf("%s: %w", path, ErrUnknownSource)
}

// Open inspects path and lists its datasets. Nothing is loaded yet.
func Open(path string, opts ...Option) (*Session, error) {
	s := &Session{path: path, cfg: config.DefaultConfig()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil || !s.cfg.Output.Verbose {
		s.logger = log.New(io.Discard, "", 0)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	kind, err := Kind(path)
	if err != nil {
		return nil, err
	}
	s.kind = kind
	s.store = store.New(s.cfg.View())

	switch kind {
	case models.SourceH5:
		f, err := loader.OpenH5(path)
		if err != nil {
			return nil, err
		}
		s.h5 = f
		s.names = f.Datasets()
		s.logger.Printf("opened %s: %d datasets", path, len(s.names))

	case models.SourceDicom:
		files, err := loader.ListDicomFiles(path, s.cfg.Dicom.Extensions...)
		if err != nil {
			return nil, err
		}
		descs, err := fileset.Identify(files)
		if err != nil {
			return nil, err
		}
		s.descriptors = descs
		for _, d := range descs {
			s.names = append(s.names, fileset.KeyOf(d))
			s.logger.Printf("dataset %q: %d slices x %d dynamics", fileset.KeyOf(d), d.SliceCount, d.DynamicCount)
		}
		s.logger.Printf("scanned %s: %d files, %d datasets", path, len(files), len(descs))
	}

	return s, nil
}

// Path returns the opened source.
func (s *Session) Path() string { return s.path }

// Kind returns the source kind.
func (s *Session) Kind() models.SourceKind { return s.kind }

// Datasets returns the dataset names: HDF5 dataset paths or DICOM keys.
func (s *Session) Datasets() []string {
	return append([]string(nil), s.names...)
}

// Descriptor returns the DICOM descriptor for a dataset key.
func (s *Session) Descriptor(name string) (models.DatasetDescriptor, bool) {
	return fileset.Find(s.descriptors, name)
}

// Attributes lists the attribute names of an HDF5 dataset. DICOM
// datasets have none.
func (s *Session) Attributes(name string) ([]string, error) {
	if s.h5 == nil {
		return nil, nil
	}
	ds, err := s.h5.Dataset(name)
	if err != nil {
		return nil, err
	}
	return ds.Attributes()
}

// Store returns the store datasets load into.
func (s *Session) Store() *store.Store { return s.store }

// Current returns the name of the loaded dataset, empty before the first
// successful load.
func (s *Session) Current() string { return s.current }

// Load reads dataset name into the store and applies the configured view
// and rotation. An empty name selects the first dataset. On failure the
// store keeps its previous contents.
func (s *Session) Load(name string) error {
	if name == "" {
		if len(s.names) == 0 {
			return fmt.Errorf("%s holds no datasets", s.path)
		}
		name = s.names[0]
	}

	var err error
	switch s.kind {
	case models.SourceH5:
		err = s.loadH5(name)
	case models.SourceDicom:
		err = s.loadDicom(name)
	default:
		err = fmt.Errorf("unsupported source kind %v", s.kind)
	}
	if err != nil {
		s.logger.Printf("load %q failed: %v", name, err)
		return err
	}

	s.current = name
	s.store.SetView(s.cfg.View())
	s.store.Rotate(s.cfg.Display.Rotation)

	s.logger.Printf("loaded %q: %v %s, range [%g, %g], dim3 %d",
		name, s.store.ActiveData().Shape, s.store.ElementKind(),
		s.store.ActiveMin(), s.store.ActiveMax(), s.store.Dim3Size())
	return nil
}

func (s *Session) loadH5(name string) error {
	ds, err := s.h5.Dataset(name)
	if err != nil {
		return err
	}
	raw, slices, dynamics, err := loader.LoadH5(ds)
	if err != nil {
		return err
	}
	s.logger.Printf("read %q: shape %v, %d slices, %d dynamics", name, raw.Shape, slices, dynamics)
	return s.store.AddData(raw, slices, dynamics)
}

func (s *Session) loadDicom(name string) error {
	desc, ok := fileset.Find(s.descriptors, name)
	if !ok {
		return &loader.DatasetReadError{Name: name, Err: fmt.Errorf("no such dataset in %s", s.path)}
	}
	raw, err := loader.LoadDicom(desc, s.path,
		loader.WithWorkers(s.cfg.Processing.NumCores),
		loader.WithExtensions(s.cfg.Dicom.Extensions...))
	if err != nil {
		return err
	}
	s.logger.Printf("read %q: shape %v", name, raw.Shape)
	return s.store.AddData(raw, desc.SliceCount, desc.DynamicCount)
}

// Close releases the source. The store stays readable.
func (s *Session) Close() error {
	if s.h5 != nil {
		err := s.h5.Close()
		s.h5 = nil
		return err
	}
	return nil
}

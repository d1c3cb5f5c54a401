package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"mriview/internal/fixtures"
	"mriview/internal/models"
	"mriview/pkg/loader"
	"mriview/pkg/normalize"
)

func TestFeatures(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping feature suite in short mode")
	}

	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

// featureContext holds state for a single scenario
type featureContext struct {
	tmpDir  string
	h5Path  string
	h5Sets  []fixtures.H5Dataset
	session *Session
	loadErr error
}

func InitializeScenario(sc *godog.ScenarioContext) {
	fc := &featureContext{}

	sc.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tmpDir, err := os.MkdirTemp("", "mriview-features-*")
		if err != nil {
			return ctx, err
		}
		*fc = featureContext{tmpDir: tmpDir}
		return ctx, nil
	})

	sc.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if fc.session != nil {
			fc.session.Close()
		}
		if fc.tmpDir != "" {
			os.RemoveAll(fc.tmpDir)
		}
		return ctx, nil
	})

	sc.Step(`^a DICOM series "([^"]*)" with (\d+) slices and (\d+) dynamics of (\d+)x(\d+) pixels$`, fc.aDicomSeries)
	sc.Step(`^the file for slice (\d+) dynamic (\d+) of "([^"]*)" is deleted$`, fc.theFileIsDeleted)
	sc.Step(`^an HDF5 dataset "([^"]*)" of shape "([^"]*)"$`, fc.anHDF5Dataset)
	sc.Step(`^I open the source$`, fc.iOpenTheSource)
	sc.Step(`^I load dataset "([^"]*)"$`, fc.iLoadDataset)
	sc.Step(`^I rotate by (\d+) quarter turns$`, fc.iRotate)
	sc.Step(`^I switch to the "([^"]*)" view$`, fc.iSwitchView)
	sc.Step(`^the datasets should be "([^"]*)"$`, fc.theDatasetsShouldBe)
	sc.Step(`^the active data shape should be "([^"]*)"$`, fc.theShapeShouldBe)
	sc.Step(`^the active range should be (-?[\d.]+) to (-?[\d.]+)$`, fc.theRangeShouldBe)
	sc.Step(`^loading should fail with a dataset read error$`, fc.loadingShouldFailWithReadError)
	sc.Step(`^loading should fail with a shape inference error$`, fc.loadingShouldFailWithShapeError)
	sc.Step(`^the store should be empty$`, fc.theStoreShouldBeEmpty)
}

func (fc *featureContext) aDicomSeries(key string, slices, dynamics, rows, cols int) error {
	_, err := fixtures.WriteDicomSeries(fc.tmpDir, key, slices, dynamics, rows, cols, fixtures.Ramp)
	return err
}

func (fc *featureContext) theFileIsDeleted(slice, dynamic int, key string) error {
	return os.Remove(filepath.Join(fc.tmpDir, fixtures.DicomName(key, slice, dynamic)))
}

func (fc *featureContext) anHDF5Dataset(name, shape string) error {
	var dims []int
	n := 1
	for _, f := range strings.Split(shape, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return err
		}
		dims = append(dims, d)
		n *= d
	}

	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i)
	}
	fc.h5Sets = append(fc.h5Sets, fixtures.H5Dataset{Name: name, Dims: dims, Values: values})
	fc.h5Path = filepath.Join(fc.tmpDir, "source.h5")
	return nil
}

func (fc *featureContext) iOpenTheSource() error {
	path := fc.tmpDir
	if fc.h5Path != "" {
		if err := fixtures.WriteH5(fc.h5Path, fc.h5Sets...); err != nil {
			return err
		}
		path = fc.h5Path
	}

	s, err := Open(path)
	if err != nil {
		return err
	}
	fc.session = s
	return nil
}

func (fc *featureContext) iLoadDataset(name string) error {
	fc.loadErr = fc.session.Load(name)
	return nil
}

func (fc *featureContext) iRotate(k int) error {
	fc.session.Store().Rotate(k)
	return nil
}

func (fc *featureContext) iSwitchView(name string) error {
	v, ok := models.ParseView(name)
	if !ok {
		return fmt.Errorf("unknown view %q", name)
	}
	fc.session.Store().SetView(v)
	return nil
}

func (fc *featureContext) theDatasetsShouldBe(list string) error {
	got := strings.Join(fc.session.Datasets(), ",")
	if got != list {
		return fmt.Errorf("expected datasets %s, got %s", list, got)
	}
	return nil
}

func (fc *featureContext) theShapeShouldBe(shape string) error {
	if fc.loadErr != nil {
		return fmt.Errorf("load failed: %w", fc.loadErr)
	}
	active := fc.session.Store().ActiveData()
	if active == nil {
		return fmt.Errorf("store is empty")
	}
	if got := active.Shape.String(); got != shape {
		return fmt.Errorf("expected shape %s, got %s", shape, got)
	}
	return nil
}

func (fc *featureContext) theRangeShouldBe(lo, hi float64) error {
	st := fc.session.Store()
	if st.ActiveMin() != lo || st.ActiveMax() != hi {
		return fmt.Errorf("expected range [%g, %g], got [%g, %g]", lo, hi, st.ActiveMin(), st.ActiveMax())
	}
	return nil
}

func (fc *featureContext) loadingShouldFailWithReadError() error {
	var readErr *loader.DatasetReadError
	if !errors.As(fc.loadErr, &readErr) {
		return fmt.Errorf("expected a dataset read error, got %v", fc.loadErr)
	}
	return nil
}

func (fc *featureContext) loadingShouldFailWithShapeError() error {
	var shapeErr *normalize.ShapeInferenceError
	if !errors.As(fc.loadErr, &shapeErr) {
		return fmt.Errorf("expected a shape inference error, got %v", fc.loadErr)
	}
	return nil
}

func (fc *featureContext) theStoreShouldBeEmpty() error {
	if !fc.session.Store().IsEmpty() {
		return fmt.Errorf("expected an empty store")
	}
	return nil
}

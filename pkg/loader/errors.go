package loader

import "fmt"

// DatasetReadError reports a file or dataset that could not be read or
// decoded. A load that fails with this error exposes no partial data.
type DatasetReadError struct {
	Name string
	Err  error
}

func (e *DatasetReadError) Error() string {
	return fmt.Sprintf("read dataset %q: %v", e.Name, e.Err)
}

func (e *DatasetReadError) Unwrap() error {
	return e.Err
}

func readError(name string, err error) error {
	return &DatasetReadError{Name: name, Err: err}
}

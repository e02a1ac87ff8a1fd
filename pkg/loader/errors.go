package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrNameRequired indicates an empty dataset name in a batch.
	ErrNameRequired = errors.New("loader: dataset name is required")
	// ErrMalformedDataset indicates a payload that is not valid JSON.
	ErrMalformedDataset = errors.New("loader: malformed dataset payload")
	// ErrStoreRequired indicates New was called without a store.
	ErrStoreRequired = errors.New("loader: state store is required")
	// ErrFetcherRequired indicates New was called without a fetcher.
	ErrFetcherRequired = errors.New("loader: fetcher is required")
)

// StatusError reports a non-2xx response from the HTTP fetcher.
type StatusError struct {
	Dataset    string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("loader: dataset %q: GET %s returned status %d", e.Dataset, e.URL, e.StatusCode)
}

package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// FSFetcher reads `<name>.json` from a filesystem.
type FSFetcher struct {
	fsys fs.FS
}

// NewFSFetcher constructs a fetcher reading from fsys.
func NewFSFetcher(fsys fs.FS) *FSFetcher {
	return &FSFetcher{fsys: fsys}
}

// NewDirFetcher constructs a fetcher reading from the directory dir.
func NewDirFetcher(dir string) *FSFetcher {
	return NewFSFetcher(os.DirFS(dir))
}

// Fetch implements Fetcher.
func (f *FSFetcher) Fetch(ctx context.Context, name string) (any, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file := name + ".json"
	if !fs.ValidPath(file) {
		return nil, fmt.Errorf("loader: invalid dataset name %q", name)
	}
	data, err := fs.ReadFile(f.fsys, file)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", file, err)
	}
	return decode(name, data)
}

func decode(name string, data []byte) (any, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, fmt.Errorf("%w: %s at offset %d: %v", ErrMalformedDataset, name, syntaxErr.Offset, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedDataset, name, err)
	}
	return value, nil
}

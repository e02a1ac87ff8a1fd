// Package discovery builds the ordered fragment manifest the unit registry
// consumes. Manifests are sorted by path so registration order, and therefore
// collision resolution, is deterministic.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"

	partials "github.com/goliatone/go-partials"
)

// DefaultPattern matches the markup fragments of a partials directory.
const DefaultPattern = "*.html"

// ErrNoFilesystem indicates Scan was called without a filesystem.
var ErrNoFilesystem = errors.New("discovery: filesystem is required")

// Scan returns one fragment per file in fsys matching pattern, sorted by path.
// An empty pattern selects DefaultPattern.
func Scan(fsys fs.FS, pattern string) ([]partials.Fragment, error) {
	if fsys == nil {
		return nil, ErrNoFilesystem
	}
	if pattern == "" {
		pattern = DefaultPattern
	}
	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("discovery: pattern %q: %w", pattern, err)
	}
	return readFragments(fsys, matches)
}

// Walk descends every directory of fsys and returns the files whose base name
// matches pattern, sorted by path.
func Walk(fsys fs.FS, pattern string) ([]partials.Fragment, error) {
	if fsys == nil {
		return nil, ErrNoFilesystem
	}
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("discovery: pattern %q: %w", pattern, err)
	}
	var matches []string
	err := fs.WalkDir(fsys, ".", func(name string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if ok, _ := path.Match(pattern, path.Base(name)); ok {
			matches = append(matches, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: walk: %w", err)
	}
	return readFragments(fsys, matches)
}

// FromMap builds a manifest from an explicit path to markup mapping, sorted by
// path.
func FromMap(sources map[string]string) []partials.Fragment {
	paths := make([]string, 0, len(sources))
	for source := range sources {
		paths = append(paths, source)
	}
	sort.Strings(paths)
	fragments := make([]partials.Fragment, 0, len(paths))
	for _, source := range paths {
		fragments = append(fragments, partials.NewFragment(source, sources[source]))
	}
	return fragments
}

func readFragments(fsys fs.FS, matches []string) ([]partials.Fragment, error) {
	sort.Strings(matches)
	fragments := make([]partials.Fragment, 0, len(matches))
	for _, name := range matches {
		info, err := fs.Stat(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("discovery: stat %s: %w", name, err)
		}
		if info.IsDir() {
			continue
		}
		markup, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("discovery: read %s: %w", name, err)
		}
		fragments = append(fragments, partials.NewFragment(name, string(markup)))
	}
	return fragments, nil
}

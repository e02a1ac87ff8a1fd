package partials

import (
	"path"
	"path/filepath"
	"strings"
)

// FragmentName derives a fragment name from its source path by stripping the
// directory and the extension: "partials/hero.html" becomes "hero".
func FragmentName(source string) string {
	base := path.Base(filepath.ToSlash(source))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// NewFragment builds a Fragment whose name is derived from source.
func NewFragment(source, markup string) Fragment {
	return Fragment{
		Name:   FragmentName(source),
		Path:   source,
		Markup: markup,
	}
}

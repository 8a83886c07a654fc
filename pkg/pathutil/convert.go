// Package pathutil converts between absolute and relative paths.
//
// mbnav uses absolute paths internally for consistency; user-facing output
// uses relative paths for readability. This package is the conversion layer
// between the two representations.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails, the path is already
// relative, or the file lives outside the root.
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}

	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}

	// Outside the root: the absolute path is clearer.
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}

	return relPath
}

// ContainsFragment reports whether any path segment of p equals fragment,
// case-insensitively. Used for directory-convention checks ("mapper", "dao")
// where substring matching would false-positive on names like "remapper".
func ContainsFragment(p, fragment string) bool {
	if fragment == "" {
		return false
	}
	fragment = strings.ToLower(fragment)
	for _, seg := range strings.Split(filepath.ToSlash(p), "/") {
		if strings.ToLower(seg) == fragment {
			return true
		}
	}
	return false
}

// Depth returns the number of path separators in the cleaned path. Shallower
// paths sort first during candidate ranking.
func Depth(p string) int {
	return strings.Count(filepath.ToSlash(filepath.Clean(p)), "/")
}

// BaseName returns the file name without its extension.
func BaseName(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Package trackkey derives the canonical identity used for a file across
// every store. Keys are forward-slash separated and lowercase so paths that
// differ only in separator style or case collapse to one entry.
package trackkey

import (
	"path"
	"strings"
)

// Key normalizes a filesystem path into a store key. It replaces backslashes
// with forward slashes and lowercases the result. It never touches the
// filesystem and is idempotent.
func Key(p string) string {
	return strings.ToLower(strings.ReplaceAll(p, "\\", "/"))
}

// Stem returns the base name of the keyed path without its extension.
func Stem(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if ext := path.Ext(base); ext != "" {
		return base[:len(base)-len(ext)]
	}
	return base
}

// Base returns the file name component of the keyed path.
func Base(p string) string {
	return path.Base(strings.ReplaceAll(p, "\\", "/"))
}

// Ext returns the lowercase extension of the path, including the dot.
func Ext(p string) string {
	return strings.ToLower(path.Ext(strings.ReplaceAll(p, "\\", "/")))
}

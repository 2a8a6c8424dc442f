package fileutil

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// GlobEscape escapes glob metacharacters so a literal path can be joined
// with a pattern.
func GlobEscape(path string) string {
	var r strings.Builder
	for _, c := range path {
		switch c {
		case '*', '?', '[':
			r.WriteRune('[')
			r.WriteRune(c)
			r.WriteRune(']')
		default:
			r.WriteRune(c)
		}
	}
	return r.String()
}

// GlobDir matches pattern inside dir, treating dir itself literally.
func GlobDir(dir, pattern string) ([]string, error) {
	return filepath.Glob(filepath.Join(GlobEscape(dir), pattern))
}

// WalkFiles calls f for every regular file under root, skipping hidden
// directories.
func WalkFiles(root string, f func(path string, d fs.DirEntry) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		return f(path, d)
	})
}

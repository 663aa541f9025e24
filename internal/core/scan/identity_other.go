//go:build !unix

package scan

import "path/filepath"

// fileID identifies a file independent of the path used to reach it
type fileID struct {
	dev  uint64
	ino  uint64
	path string
}

// identify falls back to the fully resolved path where inodes are unavailable
func identify(path string) (fileID, bool) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return fileID{}, false
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return fileID{}, false
	}
	return fileID{path: abs}, true
}

//go:build unix

package scan

import "golang.org/x/sys/unix"

// fileID identifies a file independent of the path used to reach it
type fileID struct {
	dev  uint64
	ino  uint64
	path string
}

// identify returns the device and inode of path, following links
func identify(path string) (fileID, bool) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fileID{}, false
	}
	return fileID{dev: uint64(st.Dev), ino: uint64(st.Ino)}, true
}

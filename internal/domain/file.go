package domain

import "time"

// FileType represents the type of a filesystem entry
type FileType int

const (
	FileTypeRegular FileType = iota
	FileTypeDirectory
	FileTypeSymlink
	// FileTypeOther covers devices, sockets and named pipes
	FileTypeOther
)

// FileInfo represents a directory entry as returned by an adapter listing
type FileInfo struct {
	// Path is the slash-separated path relative to the adapter root
	Path string

	// Type indicates if this is a file, directory, symlink or special file
	Type FileType

	// Size in bytes (0 for directories)
	Size int64

	// ModTime is the last modification time
	ModTime time.Time
}

// IsDir returns true if this is a directory
func (f FileInfo) IsDir() bool {
	return f.Type == FileTypeDirectory
}

// IsFile returns true if this is a regular file
func (f FileInfo) IsFile() bool {
	return f.Type == FileTypeRegular
}

// IsSymlink returns true if the entry is a symbolic link
func (f FileInfo) IsSymlink() bool {
	return f.Type == FileTypeSymlink
}

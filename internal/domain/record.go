package domain

import "time"

// ModifiedDateLayout is the layout used for human-readable modification dates
const ModifiedDateLayout = "2006-01-02 15:04:05"

// FileRecord is one scanned file. Records are created once per scan and never
// modified afterwards.
type FileRecord struct {
	// Path is the absolute filesystem path, unique within a scan
	Path string `json:"path"`

	// Name is the base name of Path
	Name string `json:"name"`

	// Size in bytes
	Size int64 `json:"size"`

	// ModTime is the last modification time
	ModTime time.Time `json:"modified_time"`

	// Digest is the lowercase hex content hash; empty means no digest
	Digest string `json:"digest"`
}

// HasDigest reports whether the record carries a content digest
func (r FileRecord) HasDigest() bool {
	return r.Digest != ""
}

// Key returns the candidate key of the record
func (r FileRecord) Key() CandidateKey {
	return CandidateKey{
		Name:    r.Name,
		Size:    r.Size,
		ModTime: r.ModTime.UnixNano(),
	}
}

// CandidateKey is the cheap metadata tuple used to narrow cross-tree
// comparison before digests are compared. It is collision-prone by nature.
type CandidateKey struct {
	Name    string
	Size    int64
	ModTime int64 // Unix nanoseconds
}

// ScanStats summarizes one scan pass
type ScanStats struct {
	// DirsVisited counts directories listed, including the root
	DirsVisited int `json:"dirs_visited"`

	// FilesSeen counts regular files found by the walk
	FilesSeen int `json:"files_seen"`

	// FilesHashed counts files that produced a record
	FilesHashed int `json:"files_hashed"`

	// FilesSkipped counts files that vanished or could not be read
	FilesSkipped int `json:"files_skipped"`

	// FilesFiltered counts files excluded by pattern or minimum size
	FilesFiltered int `json:"files_filtered"`

	// SymlinksSkipped counts links not followed
	SymlinksSkipped int `json:"symlinks_skipped"`

	// BytesHashed is the sum of sizes of hashed files
	BytesHashed int64 `json:"bytes_hashed"`
}

package domain

import "time"

// DuplicateGroup holds every record of one tree that shares a digest.
// Original is the earliest-modified member; Duplicates keeps scan order.
type DuplicateGroup struct {
	Digest     string       `json:"digest"`
	Name       string       `json:"name"`
	Size       int64        `json:"size"`
	Original   FileRecord   `json:"original"`
	Duplicates []FileRecord `json:"duplicates"`
}

// Count returns the number of members including the original
func (g DuplicateGroup) Count() int {
	return len(g.Duplicates) + 1
}

// WastedBytes returns the space that removing every duplicate would reclaim
func (g DuplicateGroup) WastedBytes() int64 {
	return g.Size * int64(len(g.Duplicates))
}

// DuplicatePaths returns the paths of the non-original members
func (g DuplicateGroup) DuplicatePaths() []string {
	paths := make([]string, 0, len(g.Duplicates))
	for _, d := range g.Duplicates {
		paths = append(paths, d.Path)
	}
	return paths
}

// DuplicateMatch pairs a source-tree record with a comparison-tree record
// that has the same name, size, modification time and digest.
type DuplicateMatch struct {
	SourcePath   string    `json:"source_path"`
	ComparePath  string    `json:"compare_path"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	Digest       string    `json:"digest"`
	ModTime      time.Time `json:"modified_time"`
	ModifiedDate string    `json:"modified_date"`
}

// NewDuplicateMatch builds a match from two records already known to be equal
func NewDuplicateMatch(source, compare FileRecord) DuplicateMatch {
	return DuplicateMatch{
		SourcePath:   source.Path,
		ComparePath:  compare.Path,
		Name:         source.Name,
		Size:         source.Size,
		Digest:       source.Digest,
		ModTime:      source.ModTime,
		ModifiedDate: source.ModTime.Local().Format(ModifiedDateLayout),
	}
}

// Summary aggregates duplicate findings for display and history
type Summary struct {
	Groups          int   `json:"groups"`
	DuplicateFiles  int   `json:"duplicate_files"`
	BytesDuplicated int64 `json:"bytes_duplicated"`
}

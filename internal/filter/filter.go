// Package filter narrows resolver output for display.
// Filters never change which files are duplicates; they only select rows.
package filter

import (
	"fmt"
	"strings"

	units "github.com/docker/go-units"
	"github.com/samber/lo"

	"github.com/Ning0612/dupfinder/internal/domain"
)

// Bucket is a size range used by the size filter
type Bucket string

const (
	BucketAll       Bucket = "all"
	BucketUnder1MB  Bucket = "lt1mb"
	Bucket1To10MB   Bucket = "1-10mb"
	Bucket10To100MB Bucket = "10-100mb"
	BucketOver100MB Bucket = "gt100mb"
)

// Buckets lists every bucket in display order
var Buckets = []Bucket{BucketAll, BucketUnder1MB, Bucket1To10MB, Bucket10To100MB, BucketOver100MB}

// ParseBucket parses a bucket name; empty means all
func ParseBucket(s string) (Bucket, error) {
	if s == "" {
		return BucketAll, nil
	}
	b := Bucket(strings.ToLower(s))
	if !lo.Contains(Buckets, b) {
		return "", fmt.Errorf("unknown size bucket %q (valid: %v)", s, Buckets)
	}
	return b, nil
}

// Contains reports whether size falls into the bucket
func (b Bucket) Contains(size int64) bool {
	switch b {
	case BucketUnder1MB:
		return size < units.MiB
	case Bucket1To10MB:
		return size >= units.MiB && size < 10*units.MiB
	case Bucket10To100MB:
		return size >= 10*units.MiB && size < 100*units.MiB
	case BucketOver100MB:
		return size >= 100*units.MiB
	}
	return true
}

// Criteria combines the display filters; zero value selects everything
type Criteria struct {
	// Name is a case-insensitive substring of the file name
	Name string
	Size Bucket
}

func (c Criteria) match(name string, size int64) bool {
	if c.Name != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(c.Name)) {
		return false
	}
	return c.Size.Contains(size)
}

// Matches returns the matches selected by c, in order
func Matches(matches []domain.DuplicateMatch, c Criteria) []domain.DuplicateMatch {
	return lo.Filter(matches, func(m domain.DuplicateMatch, _ int) bool {
		return c.match(m.Name, m.Size)
	})
}

// Groups returns the groups selected by c, in order.
// A group is selected by its original's name.
func Groups(groups []domain.DuplicateGroup, c Criteria) []domain.DuplicateGroup {
	return lo.Filter(groups, func(g domain.DuplicateGroup, _ int) bool {
		return c.match(g.Name, g.Size)
	})
}

// ByName selects matches whose name contains substr
func ByName(matches []domain.DuplicateMatch, substr string) []domain.DuplicateMatch {
	return Matches(matches, Criteria{Name: substr})
}

// BySize selects matches whose size falls in bucket
func BySize(matches []domain.DuplicateMatch, bucket Bucket) []domain.DuplicateMatch {
	return Matches(matches, Criteria{Size: bucket})
}

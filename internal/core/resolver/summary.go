package resolver

import (
	"github.com/samber/lo"

	"github.com/Ning0612/dupfinder/internal/domain"
)

// Summarize totals single-tree groups.
// BytesDuplicated is the space reclaimed by removing every duplicate.
func Summarize(groups []domain.DuplicateGroup) domain.Summary {
	files := lo.SumBy(groups, func(g domain.DuplicateGroup) int {
		return len(g.Duplicates)
	})
	wasted := lo.SumBy(groups, func(g domain.DuplicateGroup) int64 {
		return g.WastedBytes()
	})
	return domain.Summary{
		Groups:          len(groups),
		DuplicateFiles:  files,
		BytesDuplicated: wasted,
	}
}

// SummarizeMatches totals cross-tree matches.
// Groups counts distinct source files; a comparison file matched by several
// source files is counted once.
func SummarizeMatches(matches []domain.DuplicateMatch) domain.Summary {
	sources := lo.UniqBy(matches, func(m domain.DuplicateMatch) string {
		return m.SourcePath
	})
	targets := lo.UniqBy(matches, func(m domain.DuplicateMatch) string {
		return m.ComparePath
	})
	wasted := lo.SumBy(targets, func(m domain.DuplicateMatch) int64 {
		return m.Size
	})
	return domain.Summary{
		Groups:          len(sources),
		DuplicateFiles:  len(targets),
		BytesDuplicated: wasted,
	}
}

// DuplicatePaths selects every non-original member of the groups
func DuplicatePaths(groups []domain.DuplicateGroup) []string {
	return lo.FlatMap(groups, func(g domain.DuplicateGroup, _ int) []string {
		return g.DuplicatePaths()
	})
}

// ComparePaths selects the comparison-side path of every match, once each
func ComparePaths(matches []domain.DuplicateMatch) []string {
	return lo.Uniq(lo.Map(matches, func(m domain.DuplicateMatch, _ int) string {
		return m.ComparePath
	}))
}

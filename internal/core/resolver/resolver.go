package resolver

import "github.com/Ning0612/dupfinder/internal/domain"

// Resolver turns scanned records into duplicate findings
type Resolver interface {
	// MatchAcrossTrees pairs source records with comparison records that
	// share name, size, modification time and digest
	MatchAcrossTrees(source, compare []domain.FileRecord) []domain.DuplicateMatch

	// GroupWithinTree groups records of one tree by digest
	GroupWithinTree(records []domain.FileRecord) []domain.DuplicateGroup
}

// DefaultResolver implements the candidate-key and digest policies.
// It holds no state; every call works only on its arguments.
type DefaultResolver struct{}

// NewDefaultResolver creates a new DefaultResolver
func NewDefaultResolver() *DefaultResolver {
	return &DefaultResolver{}
}

// MatchAcrossTrees implements the Resolver interface.
//
// The comparison records are indexed by candidate key; each source record is
// then looked up and every bucket member with an equal digest yields a match.
// Output follows source order, then bucket order. The result is never nil.
func (r *DefaultResolver) MatchAcrossTrees(source, compare []domain.FileRecord) []domain.DuplicateMatch {
	index := make(map[domain.CandidateKey][]domain.FileRecord, len(compare))
	for _, rec := range compare {
		if !rec.HasDigest() {
			continue
		}
		key := rec.Key()
		index[key] = append(index[key], rec)
	}

	matches := []domain.DuplicateMatch{}
	for _, src := range source {
		if !src.HasDigest() {
			continue
		}
		for _, cmp := range index[src.Key()] {
			// Same key is only a candidate; content must agree too
			if cmp.Digest != src.Digest {
				continue
			}
			matches = append(matches, domain.NewDuplicateMatch(src, cmp))
		}
	}

	return matches
}

// GroupWithinTree implements the Resolver interface.
//
// Records without a digest are ignored and unique digests produce no group.
// The original is the earliest-modified member; on an exact tie the member
// seen first in records wins. Groups are ordered by the first appearance of
// their digest. The result is never nil.
func (r *DefaultResolver) GroupWithinTree(records []domain.FileRecord) []domain.DuplicateGroup {
	partitions := make(map[string][]domain.FileRecord)
	var order []string
	for _, rec := range records {
		if !rec.HasDigest() {
			continue
		}
		if _, seen := partitions[rec.Digest]; !seen {
			order = append(order, rec.Digest)
		}
		partitions[rec.Digest] = append(partitions[rec.Digest], rec)
	}

	groups := []domain.DuplicateGroup{}
	for _, digest := range order {
		members := partitions[digest]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, newGroup(digest, members))
	}

	return groups
}

func newGroup(digest string, members []domain.FileRecord) domain.DuplicateGroup {
	orig := 0
	for i := 1; i < len(members); i++ {
		// Strict comparison keeps the earlier member on ties
		if members[i].ModTime.Before(members[orig].ModTime) {
			orig = i
		}
	}

	duplicates := make([]domain.FileRecord, 0, len(members)-1)
	for i, m := range members {
		if i != orig {
			duplicates = append(duplicates, m)
		}
	}

	original := members[orig]
	return domain.DuplicateGroup{
		Digest:     digest,
		Name:       original.Name,
		Size:       original.Size,
		Original:   original,
		Duplicates: duplicates,
	}
}

var defaultResolver = NewDefaultResolver()

// MatchAcrossTrees runs the default cross-tree policy
func MatchAcrossTrees(source, compare []domain.FileRecord) []domain.DuplicateMatch {
	return defaultResolver.MatchAcrossTrees(source, compare)
}

// GroupWithinTree runs the default single-tree policy
func GroupWithinTree(records []domain.FileRecord) []domain.DuplicateGroup {
	return defaultResolver.GroupWithinTree(records)
}

package scan

import (
	"context"
	"iter"

	"github.com/Ning0612/dupfinder/internal/domain"
)

// Records returns a lazy, sequential sequence of records for root.
// The root is validated immediately; walking and hashing happen while the
// sequence is consumed, one file at a time. Unreadable files are skipped.
// Walk errors after validation end the sequence early.
func (s *Scanner) Records(ctx context.Context, root string, opts Options) (iter.Seq[domain.FileRecord], error) {
	adp, err := openRoot(root)
	if err != nil {
		return nil, err
	}
	w, err := newWalker(adp, opts)
	if err != nil {
		return nil, err
	}

	return func(yield func(domain.FileRecord) bool) {
		defer adp.Close()
		_ = w.walk(ctx, func(c candidate) bool {
			record := s.digest(ctx, c)
			if !record.HasDigest() {
				return ctx.Err() == nil
			}
			return yield(record)
		})
	}, nil
}

package scan

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	conciter "github.com/sourcegraph/conc/iter"

	"github.com/Ning0612/dupfinder/internal/adapter"
	"github.com/Ning0612/dupfinder/internal/adapter/local"
	"github.com/Ning0612/dupfinder/internal/core/checksum"
	"github.com/Ning0612/dupfinder/internal/domain"
	"github.com/Ning0612/dupfinder/internal/logger"
	"github.com/Ning0612/dupfinder/internal/progress"
)

// Options controls a single scan pass
type Options struct {
	// Recursive descends into subdirectories; otherwise only direct
	// children of the root are visited
	Recursive bool

	// FollowSymlinks resolves symbolic links instead of skipping them.
	// Directories and files reached more than once are visited once.
	FollowSymlinks bool

	// Workers bounds concurrent hashing (values below 1 mean 1)
	Workers int

	// Exclude holds doublestar patterns matched against the slash path
	// relative to the root; patterns without a slash also match base names
	Exclude []string

	// SkipPaths are absolute paths never descended into or hashed
	SkipPaths []string

	// MinSize skips files smaller than this many bytes
	MinSize int64
}

// DefaultOptions returns a recursive, sequential scan without filters
func DefaultOptions() Options {
	return Options{
		Recursive: true,
		Workers:   1,
	}
}

// Result is the output of one scan pass
type Result struct {
	Root    string
	Records []domain.FileRecord
	Stats   domain.ScanStats
}

// Scanner walks a tree and produces digested file records.
// A Scanner holds no per-scan state, so concurrent scans of different roots
// through the same Scanner are independent.
type Scanner struct {
	calc     checksum.Calculator
	reporter progress.Reporter
}

// New creates a scanner using the given calculator; nil means MD5 defaults
func New(calc checksum.Calculator) *Scanner {
	if calc == nil {
		calc = checksum.NewDefaultCalculator()
	}
	return &Scanner{calc: calc}
}

// SetProgressReporter sets the reporter notified while hashing
func (s *Scanner) SetProgressReporter(reporter progress.Reporter) {
	s.reporter = reporter
}

func (s *Scanner) getReporter() progress.Reporter {
	if s.reporter != nil {
		return s.reporter
	}
	return progress.NullReporter{}
}

// candidate is a regular file found by the walk, waiting to be hashed
type candidate struct {
	path    string
	name    string
	size    int64
	modTime time.Time
}

// Scan walks root and returns a record for every readable regular file.
// Records are in walk order regardless of the number of workers.
func (s *Scanner) Scan(ctx context.Context, root string, opts Options) (*Result, error) {
	adp, err := openRoot(root)
	if err != nil {
		return nil, err
	}
	defer adp.Close()

	log := logger.With("component", "scanner", "root", adp.Root())
	log.Debug("scan started", "recursive", opts.Recursive, "follow_symlinks", opts.FollowSymlinks)

	w, err := newWalker(adp, opts)
	if err != nil {
		return nil, err
	}

	var candidates []candidate
	var totalBytes int64
	err = w.walk(ctx, func(c candidate) bool {
		candidates = append(candidates, c)
		totalBytes += c.size
		return true
	})
	if err != nil {
		return nil, err
	}

	reporter := s.getReporter()
	reporter.Begin(progress.PhaseHashing, len(candidates), totalBytes)

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	// Mapper keeps output aligned with input, so walk order survives
	// parallel hashing
	mapper := conciter.Mapper[candidate, domain.FileRecord]{MaxGoroutines: workers}
	hashed := mapper.Map(candidates, func(c *candidate) domain.FileRecord {
		record := s.digest(ctx, *c)
		if record.HasDigest() {
			reporter.Advance(c.path, c.size)
		} else if ctx.Err() == nil {
			log.Debug("skipping unreadable file", "path", c.path)
			reporter.Skip(c.path, domain.ErrUnreadable)
		}
		return record
	})
	reporter.Done()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		Root:    adp.Root(),
		Records: make([]domain.FileRecord, 0, len(hashed)),
		Stats:   w.stats,
	}
	for _, record := range hashed {
		if !record.HasDigest() {
			result.Stats.FilesSkipped++
			continue
		}
		result.Stats.FilesHashed++
		result.Stats.BytesHashed += record.Size
		result.Records = append(result.Records, record)
	}

	log.Info("scan completed",
		"files_hashed", result.Stats.FilesHashed,
		"files_skipped", result.Stats.FilesSkipped,
		"bytes_hashed", result.Stats.BytesHashed,
	)

	return result, nil
}

// digest hashes one candidate; the record has no digest when reading failed
func (s *Scanner) digest(ctx context.Context, c candidate) domain.FileRecord {
	record := domain.FileRecord{
		Path:    c.path,
		Name:    c.name,
		Size:    c.size,
		ModTime: c.modTime,
	}
	if digest, ok := s.calc.File(ctx, c.path); ok {
		record.Digest = digest
	}
	return record
}

// openRoot validates the scan root before any work starts
func openRoot(root string) (*local.Adapter, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: empty path", domain.ErrInvalidRoot)
	}
	adp, err := local.New(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidRoot, root, err)
	}
	return adp, nil
}

// errStop ends a walk early when the consumer stops
var errStop = errors.New("walk stopped")

// walker holds the state of one traversal
type walker struct {
	adp     adapter.Adapter
	opts    Options
	exclude []string
	skip    map[string]struct{}
	visited map[fileID]struct{}
	stats   domain.ScanStats
}

func newWalker(adp adapter.Adapter, opts Options) (*walker, error) {
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern: %q", pattern)
		}
	}

	w := &walker{
		adp:     adp,
		opts:    opts,
		exclude: opts.Exclude,
		skip:    make(map[string]struct{}, len(opts.SkipPaths)),
	}
	for _, p := range opts.SkipPaths {
		if abs, err := filepath.Abs(p); err == nil {
			w.skip[filepath.Clean(abs)] = struct{}{}
		}
	}
	if opts.FollowSymlinks {
		w.visited = make(map[fileID]struct{})
		if id, ok := identify(adp.Root()); ok {
			w.visited[id] = struct{}{}
		}
	}
	return w, nil
}

// walk visits the tree; emit returning false stops the walk
func (w *walker) walk(ctx context.Context, emit func(candidate) bool) error {
	err := w.walkDir(ctx, "", emit)
	if errors.Is(err, errStop) {
		return nil
	}
	return err
}

func (w *walker) walkDir(ctx context.Context, dir string, emit func(candidate) bool) error {
	items, err := w.adp.List(ctx, dir)
	if err != nil {
		if dir == "" || ctx.Err() != nil {
			return err
		}
		// Subdirectory removed or unreadable mid-walk
		logger.Get().Debug("skipping unreadable directory", "path", dir, "error", err)
		return nil
	}
	w.stats.DirsVisited++

	for _, item := range items {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		abs, err := w.adp.Abs(item.Path)
		if err != nil {
			continue
		}
		if _, skip := w.skip[abs]; skip {
			continue
		}
		if w.isExcluded(item.Path) {
			if item.IsFile() {
				w.stats.FilesSeen++
				w.stats.FilesFiltered++
			}
			continue
		}

		if item.IsSymlink() {
			if !w.opts.FollowSymlinks {
				w.stats.SymlinksSkipped++
				continue
			}
			resolved, err := w.adp.Stat(ctx, item.Path)
			if err != nil {
				// Dangling link
				w.stats.SymlinksSkipped++
				continue
			}
			item.Type = resolved.Type
			item.Size = resolved.Size
			item.ModTime = resolved.ModTime
		}

		switch {
		case item.IsDir():
			if !w.opts.Recursive || !w.firstVisit(abs) {
				continue
			}
			if err := w.walkDir(ctx, item.Path, emit); err != nil {
				return err
			}

		case item.IsFile():
			if !w.firstVisit(abs) {
				continue
			}
			w.stats.FilesSeen++
			if item.Size < w.opts.MinSize {
				w.stats.FilesFiltered++
				continue
			}
			c := candidate{
				path:    abs,
				name:    filepath.Base(item.Path),
				size:    item.Size,
				modTime: item.ModTime,
			}
			if !emit(c) {
				return errStop
			}
		}
	}

	return nil
}

// firstVisit records the identity of abs when following links
func (w *walker) firstVisit(abs string) bool {
	if w.visited == nil {
		return true
	}
	id, ok := identify(abs)
	if !ok {
		return true
	}
	if _, seen := w.visited[id]; seen {
		return false
	}
	w.visited[id] = struct{}{}
	return true
}

// isExcluded matches rel against the exclude patterns
func (w *walker) isExcluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, _ := doublestar.Match(pattern, path.Base(rel)); ok {
				return true
			}
		}
	}
	return false
}

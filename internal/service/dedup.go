package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/Ning0612/dupfinder/internal/config"
	"github.com/Ning0612/dupfinder/internal/core/action"
	"github.com/Ning0612/dupfinder/internal/core/checksum"
	"github.com/Ning0612/dupfinder/internal/core/resolver"
	"github.com/Ning0612/dupfinder/internal/core/scan"
	"github.com/Ning0612/dupfinder/internal/domain"
	"github.com/Ning0612/dupfinder/internal/lock"
	"github.com/Ning0612/dupfinder/internal/logger"
	"github.com/Ning0612/dupfinder/internal/progress"
	"github.com/Ning0612/dupfinder/internal/report"
	"github.com/Ning0612/dupfinder/internal/state"
)

// DedupService orchestrates scans, resolution, actions and their bookkeeping
type DedupService struct {
	config   *config.Config
	calc     checksum.Calculator
	resolver resolver.Resolver
	executor *action.Executor
	lock     *lock.FileLock
	stateMgr *state.Manager
	reporter progress.Reporter

	// snapshotPath is a file or directory receiving result documents;
	// empty disables snapshots
	snapshotPath string
	now          func() time.Time
}

// WithinResult is the outcome of a single-tree run
type WithinResult struct {
	Root         string
	Groups       []domain.DuplicateGroup
	Stats        domain.ScanStats
	Summary      domain.Summary
	SnapshotPath string
}

// AcrossResult is the outcome of a cross-tree run
type AcrossResult struct {
	SourceRoot   string
	CompareRoot  string
	Matches      []domain.DuplicateMatch
	SourceStats  domain.ScanStats
	CompareStats domain.ScanStats
	Summary      domain.Summary
	SnapshotPath string
}

// ApplyResult is the outcome of an action batch
type ApplyResult struct {
	action.BatchResult
	SnapshotPath string
}

// NewDedupService creates a service from a validated configuration
func NewDedupService(cfg *config.Config) (*DedupService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	algo, err := checksum.ParseAlgorithm(cfg.Scan.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	fileLock, err := lock.NewFileLock(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create file lock: %w", err)
	}

	stateMgr, err := state.NewManager(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create state manager: %w", err)
	}

	opts := checksum.DefaultOptions()
	opts.Algorithm = algo

	return &DedupService{
		config:   cfg,
		calc:     checksum.NewCalculator(opts),
		resolver: resolver.NewDefaultResolver(),
		executor: action.NewExecutor(action.Options{DryRun: cfg.Actions.DryRun}),
		lock:     fileLock,
		stateMgr: stateMgr,
		now:      time.Now,
	}, nil
}

// SetProgressReporter sets the reporter for hashing and applying phases
func (s *DedupService) SetProgressReporter(reporter progress.Reporter) {
	s.reporter = reporter
	s.executor.SetProgressReporter(reporter)
}

// SetSnapshotPath enables result documents. An existing directory receives
// a time-stamped file; any other path is written as given. The format
// follows the path's extension, falling back to report.format.
func (s *DedupService) SetSnapshotPath(path string) {
	s.snapshotPath = path
}

// History exposes the run history store
func (s *DedupService) History() *state.Manager {
	return s.stateMgr
}

// Lock exposes the session lock
func (s *DedupService) Lock() *lock.FileLock {
	return s.lock
}

func (s *DedupService) getReporter() progress.Reporter {
	if s.reporter != nil {
		return s.reporter
	}
	return progress.NullReporter{}
}

// QuarantineDir returns the relocation folder for duplicates found under
// root. Relative folders are resolved against root.
func (s *DedupService) QuarantineDir(root string) string {
	dir := config.ExpandPath(s.config.Actions.QuarantineDir)
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return filepath.Join(root, dir)
}

// scanOptions converts the scan section into scanner options. The
// quarantine folders of roots are never scanned, so relocated files do not
// show up as duplicates on the next run.
func (s *DedupService) scanOptions(roots ...string) scan.Options {
	minSize, _ := s.config.Scan.MinSizeBytes() // validated in NewDedupService

	opts := scan.Options{
		Recursive:      s.config.Scan.Recursive,
		FollowSymlinks: s.config.Scan.FollowSymlinks,
		Workers:        s.config.Scan.Workers,
		Exclude:        s.config.Scan.Exclude,
		MinSize:        minSize,
	}
	for _, root := range roots {
		opts.SkipPaths = append(opts.SkipPaths, s.QuarantineDir(root))
	}
	return opts
}

func (s *DedupService) newScanner(reporter progress.Reporter) *scan.Scanner {
	scanner := scan.New(s.calc)
	scanner.SetProgressReporter(reporter)
	return scanner
}

// FindWithinTree groups duplicate files under root
func (s *DedupService) FindWithinTree(ctx context.Context, root string) (*WithinResult, error) {
	log := logger.With("component", "service", "mode", string(state.ModeWithin))
	run := &state.Run{Mode: state.ModeWithin, SourceRoot: root, StartTime: s.now()}

	scanned, err := s.newScanner(s.getReporter()).Scan(ctx, root, s.scanOptions(root))
	if err != nil {
		log.Error("scan failed", "root", root, "error", err)
		s.finish(run, err)
		return nil, err
	}

	groups := s.resolver.GroupWithinTree(scanned.Records)
	result := &WithinResult{
		Root:    scanned.Root,
		Groups:  groups,
		Stats:   scanned.Stats,
		Summary: resolver.Summarize(groups),
	}
	run.SourceRoot = scanned.Root
	run.FilesScanned = scanned.Stats.FilesHashed
	run.DuplicatesFound = result.Summary.DuplicateFiles
	run.BytesDuplicated = result.Summary.BytesDuplicated

	log.Info("duplicate groups resolved",
		"root", scanned.Root,
		"groups", result.Summary.Groups,
		"duplicates", result.Summary.DuplicateFiles,
		"bytes_duplicated", result.Summary.BytesDuplicated,
	)

	path, err := s.writeSnapshot(groups)
	result.SnapshotPath = path
	run.SnapshotPath = path
	s.finish(run, err)
	return result, err
}

// CompareTrees matches files under source against files under compare.
// Both trees are scanned concurrently.
func (s *DedupService) CompareTrees(ctx context.Context, source, compare string) (*AcrossResult, error) {
	log := logger.With("component", "service", "mode", string(state.ModeAcross))
	run := &state.Run{
		Mode:        state.ModeAcross,
		SourceRoot:  source,
		CompareRoot: compare,
		StartTime:   s.now(),
	}

	reporters := progress.Combine(s.getReporter(), 2)
	// A scan that fails before hashing never reports Done
	defer func() {
		for _, r := range reporters {
			r.Done()
		}
	}()
	var sourceScan, compareScan *scan.Result

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := s.newScanner(reporters[0]).Scan(gctx, source, s.scanOptions(source))
		if err != nil {
			return fmt.Errorf("source tree: %w", err)
		}
		sourceScan = res
		return nil
	})
	g.Go(func() error {
		res, err := s.newScanner(reporters[1]).Scan(gctx, compare, s.scanOptions(compare))
		if err != nil {
			return fmt.Errorf("compare tree: %w", err)
		}
		compareScan = res
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error("scan failed", "source", source, "compare", compare, "error", err)
		s.finish(run, err)
		return nil, err
	}

	matches := s.resolver.MatchAcrossTrees(sourceScan.Records, compareScan.Records)
	result := &AcrossResult{
		SourceRoot:   sourceScan.Root,
		CompareRoot:  compareScan.Root,
		Matches:      matches,
		SourceStats:  sourceScan.Stats,
		CompareStats: compareScan.Stats,
		Summary:      resolver.SummarizeMatches(matches),
	}
	run.SourceRoot = sourceScan.Root
	run.CompareRoot = compareScan.Root
	run.FilesScanned = sourceScan.Stats.FilesHashed + compareScan.Stats.FilesHashed
	run.DuplicatesFound = result.Summary.DuplicateFiles
	run.BytesDuplicated = result.Summary.BytesDuplicated

	log.Info("cross-tree matches resolved",
		"source", sourceScan.Root,
		"compare", compareScan.Root,
		"matches", len(matches),
		"bytes_duplicated", result.Summary.BytesDuplicated,
	)

	path, err := s.writeSnapshot(matches)
	result.SnapshotPath = path
	run.SnapshotPath = path
	s.finish(run, err)
	return result, err
}

// NewBatch builds a batch for paths found under root. Relocations go to
// the root's quarantine folder unless dest is given.
func (s *DedupService) NewBatch(act domain.ActionType, root, dest string, paths []string) action.Batch {
	batch := action.Batch{Action: act, Paths: paths}
	if act == domain.ActionRelocate {
		if dest == "" {
			dest = s.QuarantineDir(root)
		}
		batch.Destination = config.ExpandPath(dest)
	}
	return batch
}

// Apply runs batch while holding the session lock. Per-file failures are in
// the result; the returned error is non-nil only when the batch could not
// run at all or its outcome document could not be written.
func (s *DedupService) Apply(ctx context.Context, batch action.Batch) (*ApplyResult, error) {
	log := logger.With("component", "service", "mode", string(state.ModeApply), "action", string(batch.Action))
	run := &state.Run{
		Mode:        state.ModeApply,
		CompareRoot: batch.Destination,
		StartTime:   s.now(),
	}

	if !batch.Action.IsValid() {
		err := fmt.Errorf("%w: %q", domain.ErrUnknownAction, batch.Action)
		s.finish(run, err)
		return nil, err
	}

	var result action.BatchResult
	err := s.lock.Do(string(batch.Action), func() error {
		result = s.executor.Apply(ctx, batch)
		return nil
	})
	if err != nil {
		log.Error("batch not started", "error", err)
		s.finish(run, err)
		return nil, err
	}

	run.ActionsSucceeded = result.Succeeded
	run.ActionsFailed = result.Failed()
	log.Info("batch completed",
		"succeeded", result.Succeeded,
		"failed", result.Failed(),
		"dry_run", s.config.Actions.DryRun,
	)

	applied := &ApplyResult{BatchResult: result}
	path, err := s.writeSnapshot(result.Outcomes)
	applied.SnapshotPath = path
	run.SnapshotPath = path
	if err == nil && result.Failed() > 0 {
		run.Status = state.StatusPartial
		if result.Succeeded == 0 {
			run.Status = state.StatusFailed
		}
		run.Error = result.Err().Error()
	}
	s.finish(run, err)
	return applied, err
}

// Selection is the set of paths a snapshot proposes for action
type Selection struct {
	Kind  report.Kind
	Paths []string

	// Root anchors a relative quarantine folder
	Root string
}

// LoadSelection reads a snapshot and returns the paths an action should
// target: the non-original members of groups, or the compare side of
// matches.
func (s *DedupService) LoadSelection(path string) (*Selection, error) {
	kind, err := report.DetectKind(path)
	if err != nil {
		return nil, err
	}

	sel := &Selection{Kind: kind, Root: filepath.Dir(path)}
	switch kind {
	case report.KindGroups:
		groups, err := report.LoadGroups(path)
		if err != nil {
			return nil, err
		}
		sel.Paths = resolver.DuplicatePaths(groups)
	case report.KindMatches:
		matches, err := report.LoadMatches(path)
		if err != nil {
			return nil, err
		}
		sel.Paths = resolver.ComparePaths(matches)
	case report.KindEmpty:
	default:
		return nil, fmt.Errorf("%w: %s holds no duplicates (%s)", domain.ErrSerialization, path, kind)
	}
	return sel, nil
}

// actionsPrefix names outcome documents, which sit next to result documents
const actionsPrefix = "actions"

// writeSnapshot saves v when snapshots are enabled and returns where
func (s *DedupService) writeSnapshot(v any) (string, error) {
	if s.snapshotPath == "" {
		return "", nil
	}

	var path string
	var err error
	if _, ok := v.([]domain.Outcome); ok {
		// Outcomes have no tabular form and never replace the result document
		path = s.resolveSnapshot(actionsPrefix, "json")
		err = report.SaveJSON(path, v)
	} else {
		format := s.snapshotFormat()
		path = s.resolveSnapshot("", format)
		if format == "csv" {
			err = report.SaveCSV(path, v)
		} else {
			err = report.SaveJSON(path, v)
		}
	}
	if err != nil {
		logger.Get().Error("failed to write snapshot", "path", path, "error", err)
		return "", err
	}

	logger.Get().Info("snapshot written", "path", path)
	return path, nil
}

// snapshotFormat follows the snapshot file's extension, then report.format
func (s *DedupService) snapshotFormat() string {
	switch strings.ToLower(filepath.Ext(s.snapshotPath)) {
	case ".csv":
		return "csv"
	case ".json":
		return "json"
	}
	return strings.ToLower(s.config.Report.Format)
}

// resolveSnapshot returns the document path. A directory receives a
// time-stamped file; a file path gets "_<prefix>" appended to its stem
// when prefix is set.
func (s *DedupService) resolveSnapshot(prefix, ext string) string {
	path := config.ExpandPath(s.snapshotPath)

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, report.DefaultFileName(prefix, s.now(), ext))
	}
	if prefix == "" {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + "_" + prefix + "." + ext
}

// finish records run in history. History failures are logged, never returned:
// the run itself already happened.
func (s *DedupService) finish(run *state.Run, runErr error) {
	run.EndTime = s.now()
	if runErr != nil {
		run.Status = state.StatusFailed
		run.Error = runErr.Error()
	} else if run.Status == "" {
		run.Status = state.StatusSuccess
	}

	if err := s.stateMgr.SaveRun(run); err != nil {
		logger.Get().Warn("failed to record run", "mode", string(run.Mode), "error", err)
	}
}

// Close releases the session lock if held and closes the history database
func (s *DedupService) Close() error {
	var result *multierror.Error
	if err := s.lock.Release(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.stateMgr.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

var _ io.Closer = (*DedupService)(nil)

package action

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"

	"github.com/Ning0612/dupfinder/internal/adapter/local"
	"github.com/Ning0612/dupfinder/internal/domain"
	"github.com/Ning0612/dupfinder/internal/logger"
	"github.com/Ning0612/dupfinder/internal/progress"
)

// copyBufferSize is used when a relocation has to copy across devices
const copyBufferSize = 1024 * 1024

// Options configures an Executor
type Options struct {
	// DryRun reports what would happen without touching any file
	DryRun bool
}

// Executor relocates or deletes selected files one at a time.
// Every file is handled independently; one failure never stops the others.
//
// Relocations into the same folder are serialized so that two movers never
// pick the same free name. A free name is also reserved on disk with an
// exclusive create, which keeps other processes from claiming it.
type Executor struct {
	opts     Options
	reporter progress.Reporter

	mu      sync.Mutex
	folders map[string]*folder
}

// folder serializes name allocation in one destination directory.
// In dry-run mode nothing is reserved on disk, so names already handed out
// are remembered here instead.
type folder struct {
	mu       sync.Mutex
	promised map[string]bool
}

// NewExecutor creates a new Executor
func NewExecutor(opts Options) *Executor {
	return &Executor{
		opts:    opts,
		folders: make(map[string]*folder),
	}
}

// SetProgressReporter sets the reporter notified by Apply
func (e *Executor) SetProgressReporter(reporter progress.Reporter) {
	e.reporter = reporter
}

func (e *Executor) getReporter() progress.Reporter {
	if e.reporter != nil {
		return e.reporter
	}
	return progress.NullReporter{}
}

// folderFor returns the allocation state of dir
func (e *Executor) folderFor(dir string) *folder {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.folders[dir]
	if !ok {
		f = &folder{promised: make(map[string]bool)}
		e.folders[dir] = f
	}
	return f
}

// Relocate moves path into destFolder, creating the folder when needed.
// When the name is taken, name_1.ext, name_2.ext and so on are tried until a
// free one is found. An existing file is never overwritten.
func (e *Executor) Relocate(path, destFolder string) domain.Outcome {
	outcome := domain.Outcome{Path: path, Action: domain.ActionRelocate, DryRun: e.opts.DryRun}

	if strings.TrimSpace(destFolder) == "" {
		outcome.Err = domain.ErrNoDestination
		return outcome
	}
	if err := checkRegular(path); err != nil {
		outcome.Err = err
		return outcome
	}

	dest, err := filepath.Abs(destFolder)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	dest = filepath.Clean(dest)

	target, err := e.allocate(dest, filepath.Base(path))
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Destination = target

	if e.opts.DryRun {
		return outcome
	}

	if err := move(path, target); err != nil {
		// Drop the reservation; it is still an empty placeholder
		os.Remove(target)
		outcome.Err = err
		return outcome
	}

	logger.Get().Debug("relocated file", "path", path, "destination", target)
	return outcome
}

// Delete removes path permanently
func (e *Executor) Delete(path string) domain.Outcome {
	outcome := domain.Outcome{Path: path, Action: domain.ActionDelete, DryRun: e.opts.DryRun}

	if err := checkRegular(path); err != nil {
		outcome.Err = err
		return outcome
	}
	if e.opts.DryRun {
		return outcome
	}

	if err := os.Remove(path); err != nil {
		outcome.Err = local.MapError(err)
		return outcome
	}

	logger.Get().Debug("deleted file", "path", path)
	return outcome
}

// allocate picks and reserves a free name for base inside dest
func (e *Executor) allocate(dest, base string) (string, error) {
	dir := e.folderFor(dest)
	dir.mu.Lock()
	defer dir.mu.Unlock()

	if !e.opts.DryRun {
		if err := os.MkdirAll(dest, 0755); err != nil {
			return "", local.MapError(err)
		}
	}

	for n := 0; ; n++ {
		candidate := filepath.Join(dest, SuffixedName(base, n))

		if e.opts.DryRun {
			if dir.promised[candidate] {
				continue
			}
			if _, err := os.Lstat(candidate); errors.Is(err, fs.ErrNotExist) {
				dir.promised[candidate] = true
				return candidate, nil
			} else if err != nil {
				return "", local.MapError(err)
			}
			continue
		}

		f, err := os.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err == nil {
			f.Close()
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", local.MapError(err)
		}
	}
}

// SuffixedName inserts _n before the last extension of name.
// n == 0 returns name unchanged. Names without an extension and dotfiles
// such as .bashrc get the suffix appended.
func SuffixedName(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		stem, ext = name, ""
	}
	return fmt.Sprintf("%s_%d%s", stem, n, ext)
}

// checkRegular verifies that path exists and is a regular file
func checkRegular(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return local.MapError(err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", domain.ErrNotFile, path)
	}
	return nil
}

// move renames src onto target, copying when they are on different devices
func move(src, target string) error {
	err := os.Rename(src, target)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return local.MapError(err)
	}

	if err := copyFile(src, target); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		// Keep exactly one copy
		os.Remove(target)
		return local.MapError(err)
	}
	return nil
}

// copyFile copies content, mode and modification time of src into target
func copyFile(src, target string) error {
	in, err := os.Open(src)
	if err != nil {
		return local.MapError(err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return local.MapError(err)
	}

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return local.MapError(err)
	}

	_, copyErr := io.CopyBuffer(out, in, make([]byte, copyBufferSize))
	syncErr := out.Sync()
	closeErr := out.Close()

	switch {
	case copyErr != nil:
		return copyErr
	case syncErr != nil:
		return syncErr
	case closeErr != nil:
		return closeErr
	}

	os.Chmod(target, info.Mode().Perm())
	os.Chtimes(target, info.ModTime(), info.ModTime())
	return nil
}

// Batch is a set of files to process with one action
type Batch struct {
	Action domain.ActionType
	Paths  []string

	// Destination is the quarantine folder for relocations
	Destination string
}

// BatchResult aggregates per-file outcomes of a batch
type BatchResult struct {
	Succeeded int
	Outcomes  []domain.Outcome
}

// Failures returns the outcomes that did not succeed
func (r BatchResult) Failures() []domain.Outcome {
	return lo.Filter(r.Outcomes, func(o domain.Outcome, _ int) bool {
		return !o.OK()
	})
}

// Failed returns the number of failed outcomes
func (r BatchResult) Failed() int {
	return len(r.Outcomes) - r.Succeeded
}

// Err combines every failure into one error, or returns nil
func (r BatchResult) Err() error {
	var result *multierror.Error
	for _, o := range r.Failures() {
		result = multierror.Append(result, fmt.Errorf("%s %s: %w", o.Action, o.Path, o.Err))
	}
	return result.ErrorOrNil()
}

// Apply runs the batch action on every path in order.
// Failures are recorded and processing continues. When ctx is cancelled the
// remaining paths are recorded as failed with the context error.
func (e *Executor) Apply(ctx context.Context, batch Batch) BatchResult {
	result := BatchResult{Outcomes: make([]domain.Outcome, 0, len(batch.Paths))}
	log := logger.With("component", "executor", "action", string(batch.Action), "dry_run", e.opts.DryRun)

	reporter := e.getReporter()
	reporter.Begin(progress.PhaseApplying, len(batch.Paths), 0)
	defer reporter.Done()

	for i, path := range batch.Paths {
		if err := ctx.Err(); err != nil {
			for _, rest := range batch.Paths[i:] {
				result.Outcomes = append(result.Outcomes, domain.Outcome{
					Path:   rest,
					Action: batch.Action,
					DryRun: e.opts.DryRun,
					Err:    err,
				})
			}
			log.Warn("batch cancelled", "remaining", len(batch.Paths)-i)
			break
		}

		var outcome domain.Outcome
		switch batch.Action {
		case domain.ActionDelete:
			outcome = e.Delete(path)
		case domain.ActionRelocate:
			outcome = e.Relocate(path, batch.Destination)
		default:
			outcome = domain.Outcome{
				Path:   path,
				Action: batch.Action,
				DryRun: e.opts.DryRun,
				Err:    fmt.Errorf("%w: %q", domain.ErrUnknownAction, batch.Action),
			}
		}

		result.Outcomes = append(result.Outcomes, outcome)
		if outcome.OK() {
			result.Succeeded++
			reporter.Advance(path, 0)
		} else {
			log.Warn("action failed", "path", path, "error", outcome.Err)
			reporter.Skip(path, outcome.Err)
		}
	}

	log.Info("batch completed", "succeeded", result.Succeeded, "failed", result.Failed())
	return result
}

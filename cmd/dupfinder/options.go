package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ning0612/dupfinder/internal/config"
	"github.com/Ning0612/dupfinder/internal/domain"
	"github.com/Ning0612/dupfinder/internal/filter"
)

// quarantineDefault marks a bare --move: relocate into the configured
// quarantine folder
const quarantineDefault = "@quarantine"

// scanFlags are the traversal and output flags shared by scan and compare
type scanFlags struct {
	noRecursive    bool
	followSymlinks bool
	workers        int
	exclude        []string
	minSize        string
	name           string
	size           string
	output         string
	format         string
}

func (f *scanFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.BoolVar(&f.noRecursive, "no-recursive", false, "Only scan the direct children of each root")
	flags.BoolVar(&f.followSymlinks, "follow-symlinks", false, "Follow symbolic links (each file and directory is visited once)")
	flags.IntVarP(&f.workers, "workers", "w", 0, "Number of concurrent hashing workers (default from config)")
	flags.StringSliceVarP(&f.exclude, "exclude", "e", nil, "Glob patterns to exclude, e.g. '*.tmp' or 'node_modules'")
	flags.StringVar(&f.minSize, "min-size", "", "Skip files smaller than this, e.g. 4KB or 1MB")
	flags.StringVar(&f.name, "name", "", "Only show and act on files whose name contains this text")
	flags.StringVar(&f.size, "size", string(filter.BucketAll), "Size bucket: "+bucketNames())
	flags.StringVarP(&f.output, "output", "o", "", "Write results to this file or directory")
	flags.StringVar(&f.format, "format", "", "Result document format: json or csv (default from config)")
}

// apply overrides configuration with the flags the user set
func (f *scanFlags) apply(cfg *config.Config) {
	if f.noRecursive {
		cfg.Scan.Recursive = false
	}
	if f.followSymlinks {
		cfg.Scan.FollowSymlinks = true
	}
	if f.workers > 0 {
		cfg.Scan.Workers = f.workers
	}
	if len(f.exclude) > 0 {
		cfg.Scan.Exclude = append(append([]string{}, cfg.Scan.Exclude...), f.exclude...)
	}
	if f.minSize != "" {
		cfg.Scan.MinSize = f.minSize
	}
	if f.format != "" {
		cfg.Report.Format = strings.ToLower(f.format)
	}
}

// criteria builds the display filter
func (f *scanFlags) criteria() (filter.Criteria, error) {
	bucket, err := filter.ParseBucket(f.size)
	if err != nil {
		return filter.Criteria{}, err
	}
	return filter.Criteria{Name: f.name, Size: bucket}, nil
}

func bucketNames() string {
	names := make([]string, 0, len(filter.Buckets))
	for _, b := range filter.Buckets {
		names = append(names, string(b))
	}
	return strings.Join(names, ", ")
}

// actionFlags select what happens to the duplicates found
type actionFlags struct {
	delete bool
	move   string
	dryRun bool
	yes    bool
}

func (f *actionFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.BoolVar(&f.delete, "delete", false, "Delete duplicates permanently")
	flags.StringVar(&f.move, "move", "", "Move duplicates into a folder (--move alone uses the quarantine folder)")
	flags.Lookup("move").NoOptDefVal = quarantineDefault
	flags.BoolVarP(&f.dryRun, "dry-run", "n", false, "Report what would happen without touching files")
	flags.BoolVarP(&f.yes, "yes", "y", false, "Do not ask for confirmation")
}

// action returns the requested action, or "" when only reporting
func (f *actionFlags) action() (domain.ActionType, error) {
	switch {
	case f.delete && f.move != "":
		return "", fmt.Errorf("--delete and --move cannot be used together")
	case f.delete:
		return domain.ActionDelete, nil
	case f.move != "":
		return domain.ActionRelocate, nil
	}
	return "", nil
}

// destination is the explicit relocation folder, or "" for the quarantine
func (f *actionFlags) destination() string {
	if f.move == quarantineDefault {
		return ""
	}
	return f.move
}

func (f *actionFlags) apply(cfg *config.Config) {
	if f.dryRun {
		cfg.Actions.DryRun = true
	}
}

// confirm asks the user before a destructive batch
func (f *actionFlags) confirm(in io.Reader, out io.Writer, act domain.ActionType, count int, dryRun bool) bool {
	if f.yes || dryRun {
		return true
	}

	verb := "Delete"
	if act == domain.ActionRelocate {
		verb = "Move"
	}
	fmt.Fprintf(out, "%s %d file(s)? [y/N]: ", verb, count)

	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ning0612/dupfinder/internal/core/resolver"
	"github.com/Ning0612/dupfinder/internal/domain"
	"github.com/Ning0612/dupfinder/internal/filter"
	"github.com/Ning0612/dupfinder/internal/service"
)

// scanCmd groups duplicates inside one tree
func scanCmd(a *app) *cobra.Command {
	var sf scanFlags
	var af actionFlags

	cmd := &cobra.Command{
		Use:   "scan <root>",
		Short: "Find duplicate files within one directory tree",
		Long: `Scan a directory tree and group files with identical content. In every
group the earliest-modified file is the original; the others are duplicates
and are the targets of --delete and --move.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := af.action()
			if err != nil {
				return err
			}
			criteria, err := sf.criteria()
			if err != nil {
				return err
			}

			svc, err := a.newService(&sf, &af)
			if err != nil {
				return err
			}
			defer svc.Close()

			result, err := svc.FindWithinTree(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			groups := filter.Groups(result.Groups, criteria)
			if len(groups) == 0 {
				fmt.Fprintln(a.out, "No duplicates found.")
			} else {
				renderGroups(a.out, groups)
			}
			renderSummary(a.out, resolver.Summarize(groups), result.Stats)
			if result.SnapshotPath != "" {
				fmt.Fprintf(a.out, "Results written to %s\n", result.SnapshotPath)
			}

			return a.act(cmd.Context(), svc, &af, act, result.Root, resolver.DuplicatePaths(groups))
		},
	}

	sf.register(cmd)
	af.register(cmd)
	return cmd
}

// compareCmd matches files of a source tree against a compare tree
func compareCmd(a *app) *cobra.Command {
	var sf scanFlags
	var af actionFlags

	cmd := &cobra.Command{
		Use:   "compare <source> <compare>",
		Short: "Find files of one tree that already exist in another",
		Long: `Compare two directory trees. A file of the compare tree is a duplicate when
a file of the source tree has the same name, size, modification time and
content. --delete and --move act on the compare-tree copies.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := af.action()
			if err != nil {
				return err
			}
			criteria, err := sf.criteria()
			if err != nil {
				return err
			}

			svc, err := a.newService(&sf, &af)
			if err != nil {
				return err
			}
			defer svc.Close()

			result, err := svc.CompareTrees(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			matches := filter.Matches(result.Matches, criteria)
			if len(matches) == 0 {
				fmt.Fprintln(a.out, "No duplicates found.")
			} else {
				renderMatches(a.out, matches)
			}
			renderSummary(a.out, resolver.SummarizeMatches(matches), result.SourceStats, result.CompareStats)
			if result.SnapshotPath != "" {
				fmt.Fprintf(a.out, "Results written to %s\n", result.SnapshotPath)
			}

			return a.act(cmd.Context(), svc, &af, act, result.CompareRoot, resolver.ComparePaths(matches))
		},
	}

	sf.register(cmd)
	af.register(cmd)
	return cmd
}

// newService applies command flags to the loaded configuration and builds
// the service
func (a *app) newService(sf *scanFlags, af *actionFlags) (*service.DedupService, error) {
	cfg := *a.cfg
	if sf != nil {
		sf.apply(&cfg)
	}
	af.apply(&cfg)

	svc, err := service.NewDedupService(&cfg)
	if err != nil {
		return nil, err
	}
	if !a.noProgress {
		svc.SetProgressReporter(newProgressBar(a.errOut))
	}
	if sf != nil && sf.output != "" {
		svc.SetSnapshotPath(sf.output)
	}
	return svc, nil
}

// act runs the requested action on paths after confirmation
func (a *app) act(ctx context.Context, svc *service.DedupService, af *actionFlags, act domain.ActionType, root string, paths []string) error {
	if act == "" || len(paths) == 0 {
		return nil
	}

	dryRun := af.dryRun || a.cfg.Actions.DryRun
	if !af.confirm(a.in, a.out, act, len(paths), dryRun) {
		fmt.Fprintln(a.out, "Aborted.")
		return nil
	}

	batch := svc.NewBatch(act, root, af.destination(), paths)
	applied, err := svc.Apply(ctx, batch)
	if applied != nil {
		renderOutcomes(a.out, applied.Outcomes)
		countSummary(a.out, applied.Succeeded, applied.Failed())
	}
	if err != nil {
		return err
	}
	if applied.Failed() > 0 {
		return fmt.Errorf("%d of %d actions failed", applied.Failed(), len(applied.Outcomes))
	}
	return nil
}

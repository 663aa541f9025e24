package main

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"

	"github.com/Ning0612/dupfinder/internal/domain"
	"github.com/Ning0612/dupfinder/internal/progress"
	"github.com/Ning0612/dupfinder/internal/state"
)

var (
	okColor      = color.New(color.FgGreen)
	failColor    = color.New(color.FgRed)
	dryRunColor  = color.New(color.FgYellow)
	originalMark = color.New(color.FgCyan).Sprint("original")
)

// newProgressBar renders hashing and applying phases on w
func newProgressBar(w io.Writer) progress.Reporter {
	var mu sync.Mutex
	var bar *progressbar.ProgressBar
	var description string

	return progress.NewCallbackReporter(func(u progress.Update) {
		mu.Lock()
		defer mu.Unlock()

		switch u.Type {
		case progress.UpdateBegin:
			if u.FilesTotal == 0 {
				bar = nil
				return
			}
			description = "Hashing files..."
			if u.Phase == progress.PhaseApplying {
				description = "Applying actions..."
			}
			bar = progressbar.NewOptions(u.FilesTotal,
				progressbar.OptionSetWriter(w),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(15),
				progressbar.OptionSetDescription(description),
				progressbar.OptionShowElapsedTimeOnFinish(),
			)
		case progress.UpdateAdvance, progress.UpdateSkip:
			if bar == nil {
				return
			}
			if u.Phase == progress.PhaseHashing && u.BytesPerSecond > 0 {
				bar.Describe(description + " " + progress.FormatSpeed(u.BytesPerSecond))
			}
			bar.Add(1)
		case progress.UpdateDone:
			if bar != nil {
				bar.Finish()
				fmt.Fprintln(w)
				bar = nil
			}
		}
	})
}

func renderGroups(w io.Writer, groups []domain.DuplicateGroup) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Role", "Path", "Size", "Modified"})

	for i, g := range groups {
		if i > 0 {
			t.AppendSeparator()
		}
		t.AppendRow(recordRow(i+1, originalMark, g.Original))
		t.AppendRows(lo.Map(g.Duplicates, func(d domain.FileRecord, _ int) table.Row {
			return recordRow(i+1, "duplicate", d)
		}))
	}

	fmt.Fprintln(w, t.Render())
}

func recordRow(group int, role string, r domain.FileRecord) table.Row {
	return table.Row{
		group,
		role,
		r.Path,
		progress.FormatBytes(r.Size),
		r.ModTime.Local().Format(domain.ModifiedDateLayout),
	}
}

func renderMatches(w io.Writer, matches []domain.DuplicateMatch) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Source", "Duplicate", "Size", "Modified"})
	t.AppendRows(lo.Map(matches, func(m domain.DuplicateMatch, _ int) table.Row {
		return table.Row{m.SourcePath, m.ComparePath, progress.FormatBytes(m.Size), m.ModifiedDate}
	}))
	fmt.Fprintln(w, t.Render())
}

func renderSummary(w io.Writer, s domain.Summary, stats ...domain.ScanStats) {
	scanned := lo.SumBy(stats, func(st domain.ScanStats) int { return st.FilesHashed })
	skipped := lo.SumBy(stats, func(st domain.ScanStats) int { return st.FilesSkipped })

	fmt.Fprintf(w, "Scanned %d files", scanned)
	if skipped > 0 {
		fmt.Fprintf(w, " (%s)", failColor.Sprintf("%d unreadable", skipped))
	}
	fmt.Fprintf(w, ": %d duplicate files in %d groups, %s reclaimable\n",
		s.DuplicateFiles, s.Groups, progress.FormatBytes(s.BytesDuplicated))
}

func renderOutcomes(w io.Writer, outcomes []domain.Outcome) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Status", "Action", "Path", "Destination / Error"})

	for _, o := range outcomes {
		status := okColor.Sprint("ok")
		detail := o.Destination
		switch {
		case !o.OK():
			status = failColor.Sprint("failed")
			detail = o.Err.Error()
		case o.DryRun:
			status = dryRunColor.Sprint("dry-run")
		}
		t.AppendRow(table.Row{status, string(o.Action), o.Path, detail})
	}

	fmt.Fprintln(w, t.Render())
}

func renderHistory(w io.Writer, runs []state.Run) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Started", "Mode", "Status", "Roots", "Files", "Duplicates", "Bytes", "Actions", "Duration"})

	for _, r := range runs {
		roots := r.SourceRoot
		if r.CompareRoot != "" {
			roots += " -> " + r.CompareRoot
		}

		status := string(r.Status)
		switch r.Status {
		case state.StatusSuccess:
			status = okColor.Sprint(status)
		case state.StatusPartial:
			status = dryRunColor.Sprint(status)
		case state.StatusFailed:
			status = failColor.Sprint(status)
		}

		actions := ""
		if r.Mode == state.ModeApply {
			actions = strconv.Itoa(r.ActionsSucceeded) + "/" + strconv.Itoa(r.ActionsSucceeded+r.ActionsFailed)
		}

		t.AppendRow(table.Row{
			r.StartTime.Local().Format(domain.ModifiedDateLayout),
			string(r.Mode),
			status,
			roots,
			r.FilesScanned,
			r.DuplicatesFound,
			progress.FormatBytes(r.BytesDuplicated),
			actions,
			r.Duration().Round(time.Millisecond).String(),
		})
	}

	fmt.Fprintln(w, t.Render())
}

// countSummary is a one-line result of an action batch
func countSummary(w io.Writer, succeeded, failed int) {
	line := okColor.Sprintf("%d succeeded", succeeded)
	if failed > 0 {
		line += ", " + failColor.Sprintf("%d failed", failed)
	}
	fmt.Fprintln(w, line)
}

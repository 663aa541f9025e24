package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/Ning0612/dupfinder/internal/domain"
	"github.com/Ning0612/dupfinder/internal/progress"
)

// utf8BOM lets spreadsheet applications detect the encoding
const utf8BOM = "\ufeff"

var (
	matchesHeader = []string{"source_path", "compare_path", "name", "size", "size_bytes", "modified_date", "digest"}
	groupsHeader  = []string{"digest", "role", "path", "name", "size", "size_bytes", "modified_date"}
)

// WriteMatchesCSV writes one row per cross-tree match
func WriteMatchesCSV(w io.Writer, matches []domain.DuplicateMatch) error {
	return writeCSV(w, matchesHeader, func(cw *csv.Writer) error {
		for _, m := range matches {
			row := []string{
				m.SourcePath,
				m.ComparePath,
				m.Name,
				progress.FormatBytes(m.Size),
				strconv.FormatInt(m.Size, 10),
				m.ModifiedDate,
				m.Digest,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteGroupsCSV writes one row per group member, original first
func WriteGroupsCSV(w io.Writer, groups []domain.DuplicateGroup) error {
	return writeCSV(w, groupsHeader, func(cw *csv.Writer) error {
		for _, g := range groups {
			if err := cw.Write(groupRow(g.Digest, "original", g.Original)); err != nil {
				return err
			}
			for _, d := range g.Duplicates {
				if err := cw.Write(groupRow(g.Digest, "duplicate", d)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func groupRow(digest, role string, r domain.FileRecord) []string {
	return []string{
		digest,
		role,
		r.Path,
		r.Name,
		progress.FormatBytes(r.Size),
		strconv.FormatInt(r.Size, 10),
		r.ModTime.Local().Format(domain.ModifiedDateLayout),
	}
}

func writeCSV(w io.Writer, header []string, rows func(*csv.Writer) error) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSerialization, err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSerialization, err)
	}
	if err := rows(cw); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSerialization, err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSerialization, err)
	}
	return nil
}

// SaveCSV writes matches or groups to path atomically
func SaveCSV(path string, v any) error {
	var buf bytes.Buffer
	var err error
	switch items := v.(type) {
	case []domain.DuplicateMatch:
		err = WriteMatchesCSV(&buf, items)
	case []domain.DuplicateGroup:
		err = WriteGroupsCSV(&buf, items)
	default:
		err = fmt.Errorf("%w: cannot export %T as csv", domain.ErrSerialization, v)
	}
	if err != nil {
		return err
	}
	return writeAtomic(path, buf.Bytes())
}

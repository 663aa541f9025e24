package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/dupfinder/internal/domain"
	"github.com/Ning0612/dupfinder/internal/testutil"
)

var mtime = time.Date(2024, 2, 29, 23, 59, 58, 123456789, time.UTC)

func sampleMatches() []domain.DuplicateMatch {
	src := domain.FileRecord{Path: "/src/報告.pdf", Name: "報告.pdf", Size: 2048, ModTime: mtime, Digest: "5d41402abc4b2a76b9719d911017c592"}
	cmp := src
	cmp.Path = "/cmp/old/報告.pdf"
	return []domain.DuplicateMatch{domain.NewDuplicateMatch(src, cmp)}
}

func sampleGroups() []domain.DuplicateGroup {
	orig := domain.FileRecord{Path: "/t/a/x.txt", Name: "x.txt", Size: 5, ModTime: mtime, Digest: "abc"}
	dup := orig
	dup.Path = "/t/b/x.txt"
	dup.ModTime = mtime.Add(time.Hour)
	return []domain.DuplicateGroup{{
		Digest:     "abc",
		Name:       "x.txt",
		Size:       5,
		Original:   orig,
		Duplicates: []domain.FileRecord{dup},
	}}
}

func TestJSON_MatchesRoundTrip(t *testing.T) {
	matches := sampleMatches()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, matches))

	// Non-ASCII names stay readable and the layout is indented
	assert.Contains(t, buf.String(), "報告.pdf")
	assert.Contains(t, buf.String(), "\n  {\n    \"source_path\"")

	got, err := ReadMatches(&buf)
	require.NoError(t, err)
	assert.Equal(t, matches, got)
}

func TestJSON_FieldNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleMatches()))

	for _, field := range []string{"source_path", "compare_path", "name", "size", "digest", "modified_time", "modified_date"} {
		assert.Contains(t, buf.String(), `"`+field+`"`)
	}
}

func TestJSON_GroupsAndRecordsRoundTrip(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	groups := sampleGroups()
	groupsPath := filepath.Join(dir, "groups.json")
	require.NoError(t, SaveJSON(groupsPath, groups))

	gotGroups, err := LoadGroups(groupsPath)
	require.NoError(t, err)
	assert.Equal(t, groups, gotGroups)

	records := []domain.FileRecord{groups[0].Original, groups[0].Duplicates[0]}
	recordsPath := filepath.Join(dir, "records.json")
	require.NoError(t, SaveJSON(recordsPath, records))

	gotRecords, err := LoadRecords(recordsPath)
	require.NoError(t, err)
	assert.Equal(t, records, gotRecords)
}

func TestJSON_OutcomesRoundTrip(t *testing.T) {
	outcomes := []domain.Outcome{
		{Path: "/a", Action: domain.ActionRelocate, Destination: "/q/a"},
		{Path: "/b", Action: domain.ActionDelete, Err: errors.New("not found")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, outcomes))

	got, err := ReadOutcomes(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/q/a", got[0].Destination)
	assert.NoError(t, got[0].Err)
	require.Error(t, got[1].Err)
	assert.Equal(t, "not found", got[1].Err.Error())
}

func TestWriteJSON_EmptyResultIsArray(t *testing.T) {
	docs := []struct {
		name string
		v    any
	}{
		{"groups", []domain.DuplicateGroup(nil)},
		{"matches", []domain.DuplicateMatch(nil)},
		{"records", []domain.FileRecord(nil)},
		{"outcomes", []domain.Outcome(nil)},
	}
	for _, d := range docs {
		t.Run(d.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteJSON(&buf, d.v))
			assert.Equal(t, "[]\n", buf.String())
		})
	}
}

func TestSaveJSON_CreatesParentAndLeavesNoTemp(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	path := filepath.Join(dir, "out", "report.json")
	require.NoError(t, SaveJSON(path, sampleMatches()))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "report.json", entries[0].Name())
}

func TestSaveJSON_Failure(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	// Parent is a regular file
	blocker := testutil.CreateTestFile(t, dir, "blocker", []byte("x"))

	err := SaveJSON(filepath.Join(blocker, "report.json"), sampleMatches())
	assert.ErrorIs(t, err, domain.ErrSerialization)

	err = WriteJSON(&bytes.Buffer{}, make(chan int))
	assert.ErrorIs(t, err, domain.ErrSerialization)
}

func TestLoad_Errors(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	_, err := LoadMatches(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, domain.ErrSerialization)

	bad := testutil.CreateTestFile(t, dir, "bad.json", []byte("{not json"))
	_, err = LoadGroups(bad)
	assert.ErrorIs(t, err, domain.ErrSerialization)
}

func TestDetectKind(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	matchesPath := filepath.Join(dir, "m.json")
	groupsPath := filepath.Join(dir, "g.json")
	recordsPath := filepath.Join(dir, "r.json")
	emptyPath := filepath.Join(dir, "e.json")
	outcomesPath := filepath.Join(dir, "a.json")
	require.NoError(t, SaveJSON(outcomesPath, []domain.Outcome{{Path: "/a", Action: domain.ActionDelete}}))
	require.NoError(t, SaveJSON(matchesPath, sampleMatches()))
	require.NoError(t, SaveJSON(groupsPath, sampleGroups()))
	require.NoError(t, SaveJSON(recordsPath, []domain.FileRecord{sampleGroups()[0].Original}))
	require.NoError(t, SaveJSON(emptyPath, []domain.DuplicateMatch{}))

	tests := []struct {
		path string
		want Kind
	}{
		{matchesPath, KindMatches},
		{groupsPath, KindGroups},
		{recordsPath, KindRecords},
		{outcomesPath, KindOutcomes},
		{emptyPath, KindEmpty},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			kind, err := DetectKind(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
		})
	}

	other := testutil.CreateTestFile(t, dir, "o.json", []byte(`[{"foo": 1}]`))
	_, err := DetectKind(other)
	assert.ErrorIs(t, err, domain.ErrSerialization)
}

func TestDefaultFileName(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)

	assert.Equal(t, "duplicates_20240102_030405.json", DefaultFileName("", now, ""))
	assert.Equal(t, "compare_20240102_030405.csv", DefaultFileName("compare", now, "csv"))
}

func TestWriteMatchesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMatchesCSV(&buf, sampleMatches()))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\ufeff"), "missing BOM")

	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, matchesHeader, rows[0])
	assert.Equal(t, "/src/報告.pdf", rows[1][0])
	assert.Equal(t, "/cmp/old/報告.pdf", rows[1][1])
	assert.Equal(t, "2.00 KB", rows[1][3])
	assert.Equal(t, "2048", rows[1][4])
}

func TestWriteGroupsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGroupsCSV(&buf, sampleGroups()))

	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(buf.String(), "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, groupsHeader, rows[0])
	assert.Equal(t, []string{"original", "/t/a/x.txt"}, rows[1][1:3])
	assert.Equal(t, []string{"duplicate", "/t/b/x.txt"}, rows[2][1:3])
}

func TestSaveCSV(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	path := filepath.Join(dir, "out.csv")
	require.NoError(t, SaveCSV(path, sampleGroups()))
	assert.True(t, bytes.HasPrefix(testutil.ReadFile(t, path), []byte("\ufeff")))

	err := SaveCSV(path, []domain.FileRecord{})
	assert.ErrorIs(t, err, domain.ErrSerialization)
}

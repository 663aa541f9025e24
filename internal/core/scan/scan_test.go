package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/dupfinder/internal/domain"
	"github.com/Ning0612/dupfinder/internal/progress"
	"github.com/Ning0612/dupfinder/internal/testutil"
)

const helloMD5 = "5d41402abc4b2a76b9719d911017c592"

func paths(records []domain.FileRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Path
	}
	return out
}

func TestScan_Recursive(t *testing.T) {
	root, cleanup := testutil.TempDir(t)
	defer cleanup()

	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := testutil.CreateTestFileAt(t, root, "a.txt", []byte("hello"), mtime)
	b := testutil.CreateTestFile(t, root, "sub/b.txt", []byte("world"))

	result, err := New(nil).Scan(context.Background(), root, DefaultOptions())
	require.NoError(t, err)

	absRoot, _ := filepath.Abs(root)
	assert.Equal(t, absRoot, result.Root)
	require.Len(t, result.Records, 2)
	assert.Equal(t, []string{a, b}, paths(result.Records))

	first := result.Records[0]
	assert.Equal(t, "a.txt", first.Name)
	assert.Equal(t, int64(5), first.Size)
	assert.Equal(t, helloMD5, first.Digest)
	assert.True(t, first.ModTime.Equal(mtime), "mtime %v", first.ModTime)

	assert.Equal(t, 2, result.Stats.DirsVisited)
	assert.Equal(t, 2, result.Stats.FilesSeen)
	assert.Equal(t, 2, result.Stats.FilesHashed)
	assert.Equal(t, int64(10), result.Stats.BytesHashed)
}

func TestScan_NonRecursive(t *testing.T) {
	root, cleanup := testutil.TempDir(t)
	defer cleanup()

	a := testutil.CreateTestFile(t, root, "a.txt", []byte("hello"))
	testutil.CreateTestFile(t, root, "sub/b.txt", []byte("world"))

	opts := DefaultOptions()
	opts.Recursive = false
	result, err := New(nil).Scan(context.Background(), root, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{a}, paths(result.Records))
	assert.Equal(t, 1, result.Stats.DirsVisited)
}

func TestScan_EmptyDirectory(t *testing.T) {
	root, cleanup := testutil.TempDir(t)
	defer cleanup()

	result, err := New(nil).Scan(context.Background(), root, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, result.Records)
}

func TestScan_InvalidRoot(t *testing.T) {
	root, cleanup := testutil.TempDir(t)
	defer cleanup()

	file := testutil.CreateTestFile(t, root, "file.txt", []byte("x"))

	tests := []struct {
		name string
		root string
		want error
	}{
		{"missing", filepath.Join(root, "nope"), domain.ErrNotFound},
		{"file", file, domain.ErrNotDirectory},
		{"empty", "", domain.ErrInvalidRoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil).Scan(context.Background(), tt.root, DefaultOptions())
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidRoot)
			assert.ErrorIs(t, err, tt.want)

			_, err = New(nil).Records(context.Background(), tt.root, DefaultOptions())
			assert.ErrorIs(t, err, domain.ErrInvalidRoot)
		})
	}
}

func TestScan_SymlinksSkippedByDefault(t *testing.T) {
	root, cleanup := testutil.TempDir(t)
	defer cleanup()

	a := testutil.CreateTestFile(t, root, "a.txt", []byte("hello"))
	if err := os.Symlink(a, filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.Symlink(root, filepath.Join(root, "loop")))

	result, err := New(nil).Scan(context.Background(), root, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{a}, paths(result.Records))
	assert.Equal(t, 2, result.Stats.SymlinksSkipped)
}

func TestScan_FollowSymlinks(t *testing.T) {
	root, cleanup := testutil.TempDir(t)
	defer cleanup()
	outside, cleanupOutside := testutil.TempDir(t)
	defer cleanupOutside()

	a := testutil.CreateTestFile(t, root, "a.txt", []byte("hello"))
	ext := testutil.CreateTestFile(t, outside, "ext.txt", []byte("external"))
	if err := os.Symlink(a, filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	// Cycle back to the root and a link to a file outside the tree
	require.NoError(t, os.Symlink(root, filepath.Join(root, "loop")))
	require.NoError(t, os.Symlink(ext, filepath.Join(root, "x_ext.txt")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "dangling")))

	opts := DefaultOptions()
	opts.FollowSymlinks = true

	done := make(chan struct{})
	var result *Result
	var err error
	go func() {
		result, err = New(nil).Scan(context.Background(), root, opts)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not terminate; symlink cycle not detected")
	}

	require.NoError(t, err)
	// a.txt is reachable directly and through link.txt but is hashed once
	require.Len(t, result.Records, 2)
	assert.Equal(t, a, result.Records[0].Path)
	assert.Equal(t, filepath.Join(result.Root, "x_ext.txt"), result.Records[1].Path)
	assert.Equal(t, int64(len("external")), result.Records[1].Size)
	assert.Equal(t, 1, result.Stats.SymlinksSkipped)
}

func TestScan_Exclude(t *testing.T) {
	root, cleanup := testutil.TempDir(t)
	defer cleanup()

	keep := testutil.CreateTestFile(t, root, "keep.txt", []byte("keep"))
	testutil.CreateTestFile(t, root, "cache.tmp", []byte("tmp"))
	testutil.CreateTestFile(t, root, "deep/nested/x.tmp", []byte("tmp"))
	testutil.CreateTestFile(t, root, "node_modules/pkg/index.js", []byte("js"))

	opts := DefaultOptions()
	opts.Exclude = []string{"*.tmp", "node_modules"}

	result, err := New(nil).Scan(context.Background(), root, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{keep}, paths(result.Records))
	assert.Equal(t, 2, result.Stats.FilesFiltered)
}

func TestScan_ExcludeRelativePath(t *testing.T) {
	root, cleanup := testutil.TempDir(t)
	defer cleanup()

	testutil.CreateTestFile(t, root, "logs/app.log", []byte("a"))
	other := testutil.CreateTestFile(t, root, "src/logs/app.log", []byte("b"))

	opts := DefaultOptions()
	opts.Exclude = []string{"logs/*.log"}

	result, err := New(nil).Scan(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{other}, paths(result.Records))
}

func TestScan_InvalidExcludePattern(t *testing.T) {
	root, cleanup := testutil.TempDir(t)
	defer cleanup()

	opts := DefaultOptions()
	opts.Exclude = []string{"[unclosed"}

	_, err := New(nil).Scan(context.Background(), root, opts)
	assert.Error(t, err)
}

func TestScan_SkipPaths(t *testing.T) {
	root, cleanup := testutil.TempDir(t)
	defer cleanup()

	keep := testutil.CreateTestFile(t, root, "a.txt", []byte("hello"))
	testutil.CreateTestFile(t, root, "_duplicates/a.txt", []byte("hello"))

	opts := DefaultOptions()
	opts.SkipPaths = []string{filepath.Join(root, "_duplicates")}

	result, err := New(nil).Scan(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, paths(result.Records))
}

func TestScan_MinSize(t *testing.T) {
	root, cleanup := testutil.TempDir(t)
	defer cleanup()

	testutil.CreateTestFile(t, root, "small.txt", []byte("hi"))
	big := testutil.CreateTestFileWithSize(t, root, "big.bin", 4096)

	opts := DefaultOptions()
	opts.MinSize = 1024

	result, err := New(nil).Scan(context.Background(), root, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{big}, paths(result.Records))
	stats := result.Stats
	assert.Equal(t, stats.FilesSeen, stats.FilesHashed+stats.FilesSkipped+stats.FilesFiltered)
}

func TestScan_UnreadableFileSkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root; permissions are not enforced")
	}

	root, cleanup := testutil.TempDir(t)
	defer cleanup()

	ok := testutil.CreateTestFile(t, root, "a.txt", []byte("hello"))
	locked := testutil.CreateTestFile(t, root, "b.txt", []byte("secret"))
	require.NoError(t, os.Chmod(locked, 0000))
	defer os.Chmod(locked, 0644)

	result, err := New(nil).Scan(context.Background(), root, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{ok}, paths(result.Records))
	assert.Equal(t, 1, result.Stats.FilesSkipped)
}

func TestScan_ParallelMatchesSequential(t *testing.T) {
	root, cleanup := testutil.TempDir(t)
	defer cleanup()

	for i := 0; i < 40; i++ {
		name := fmt.Sprintf("dir%d/file%02d.txt", i%4, i)
		testutil.CreateTestFile(t, root, name, []byte(fmt.Sprintf("content %d", i%7)))
	}

	seqOpts := DefaultOptions()
	sequential, err := New(nil).Scan(context.Background(), root, seqOpts)
	require.NoError(t, err)

	parOpts := DefaultOptions()
	parOpts.Workers = 8
	parallel, err := New(nil).Scan(context.Background(), root, parOpts)
	require.NoError(t, err)

	require.Len(t, parallel.Records, 40)
	assert.Equal(t, sequential.Records, parallel.Records)
}

func TestScan_Cancelled(t *testing.T) {
	root, cleanup := testutil.TempDir(t)
	defer cleanup()

	testutil.CreateTestFile(t, root, "a.txt", []byte("hello"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil).Scan(ctx, root, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScan_ReportsProgress(t *testing.T) {
	root, cleanup := testutil.TempDir(t)
	defer cleanup()

	testutil.CreateTestFile(t, root, "a.txt", []byte("hello"))
	testutil.CreateTestFile(t, root, "b.txt", []byte("world!"))

	var mu sync.Mutex
	var updates []progress.Update
	s := New(nil)
	s.SetProgressReporter(progress.NewCallbackReporter(func(u progress.Update) {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
	}))

	_, err := s.Scan(context.Background(), root, DefaultOptions())
	require.NoError(t, err)

	require.NotEmpty(t, updates)
	begin := updates[0]
	assert.Equal(t, progress.UpdateBegin, begin.Type)
	assert.Equal(t, 2, begin.FilesTotal)
	assert.Equal(t, int64(11), begin.BytesTotal)

	last := updates[len(updates)-1]
	assert.Equal(t, progress.UpdateDone, last.Type)
	assert.Equal(t, 2, last.FilesCompleted)
}

func TestRecords_Lazy(t *testing.T) {
	root, cleanup := testutil.TempDir(t)
	defer cleanup()

	a := testutil.CreateTestFile(t, root, "a.txt", []byte("hello"))
	b := testutil.CreateTestFile(t, root, "b.txt", []byte("world"))
	testutil.CreateTestFile(t, root, "c.txt", []byte("again"))

	seq, err := New(nil).Records(context.Background(), root, DefaultOptions())
	require.NoError(t, err)

	var got []string
	for record := range seq {
		got = append(got, record.Path)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{a, b}, got)
}

func TestRecords_MatchesScan(t *testing.T) {
	root, cleanup := testutil.TempDir(t)
	defer cleanup()

	testutil.CreateTestFile(t, root, "a.txt", []byte("hello"))
	testutil.CreateTestFile(t, root, "x/y/z.txt", []byte("hello"))

	s := New(nil)
	result, err := s.Scan(context.Background(), root, DefaultOptions())
	require.NoError(t, err)

	seq, err := s.Records(context.Background(), root, DefaultOptions())
	require.NoError(t, err)

	var lazy []domain.FileRecord
	for record := range seq {
		lazy = append(lazy, record)
	}
	assert.Equal(t, result.Records, lazy)
}

package action

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/dupfinder/internal/domain"
	"github.com/Ning0612/dupfinder/internal/progress"
	"github.com/Ning0612/dupfinder/internal/testutil"
)

func TestRelocate_CreatesDestination(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	src := testutil.CreateTestFile(t, dir, "data/report.txt", []byte("duplicate"))
	dest := filepath.Join(dir, "quarantine", "nested")

	outcome := NewExecutor(Options{}).Relocate(src, dest)

	require.NoError(t, outcome.Err)
	assert.True(t, outcome.OK())
	assert.Equal(t, domain.ActionRelocate, outcome.Action)
	assert.Equal(t, filepath.Join(dest, "report.txt"), outcome.Destination)
	assert.False(t, testutil.Exists(src))
	assert.Equal(t, []byte("duplicate"), testutil.ReadFile(t, outcome.Destination))
}

func TestRelocate_NeverOverwrites(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	dest := filepath.Join(dir, "dest")
	existing := testutil.CreateTestFile(t, dest, "report.txt", []byte("original"))
	src := testutil.CreateTestFile(t, dir, "src/report.txt", []byte("incoming"))

	outcome := NewExecutor(Options{}).Relocate(src, dest)

	require.NoError(t, outcome.Err)
	assert.Equal(t, filepath.Join(dest, "report_1.txt"), outcome.Destination)
	assert.Equal(t, []byte("original"), testutil.ReadFile(t, existing))
	assert.Equal(t, []byte("incoming"), testutil.ReadFile(t, outcome.Destination))
}

func TestRelocate_IncrementsSuffix(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	dest := filepath.Join(dir, "dest")
	testutil.CreateTestFile(t, dest, "report.txt", []byte("0"))
	testutil.CreateTestFile(t, dest, "report_1.txt", []byte("1"))
	src := testutil.CreateTestFile(t, dir, "src/report.txt", []byte("2"))

	outcome := NewExecutor(Options{}).Relocate(src, dest)

	require.NoError(t, outcome.Err)
	assert.Equal(t, filepath.Join(dest, "report_2.txt"), outcome.Destination)
}

func TestRelocate_ConcurrentSameDestination(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	dest := filepath.Join(dir, "dest")
	const n = 20
	var sources []string
	for i := 0; i < n; i++ {
		sources = append(sources, testutil.CreateTestFile(t, dir, fmt.Sprintf("src%d/same.txt", i), []byte(fmt.Sprintf("%d", i))))
	}

	exec := NewExecutor(Options{})
	outcomes := make([]domain.Outcome, n)
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src string) {
			defer wg.Done()
			outcomes[i] = exec.Relocate(src, dest)
		}(i, src)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, o := range outcomes {
		require.NoError(t, o.Err)
		assert.False(t, seen[o.Destination], "destination %s used twice", o.Destination)
		seen[o.Destination] = true
	}

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Len(t, entries, n)
}

func TestRelocate_Errors(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))
	file := testutil.CreateTestFile(t, dir, "a.txt", []byte("a"))

	exec := NewExecutor(Options{})

	o := exec.Relocate(filepath.Join(dir, "missing.txt"), filepath.Join(dir, "q"))
	assert.ErrorIs(t, o.Err, domain.ErrNotFound)

	o = exec.Relocate(sub, filepath.Join(dir, "q"))
	assert.ErrorIs(t, o.Err, domain.ErrNotFile)

	o = exec.Relocate(file, "")
	assert.ErrorIs(t, o.Err, domain.ErrNoDestination)
	assert.True(t, testutil.Exists(file))
}

func TestRelocate_DryRun(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	dest := filepath.Join(dir, "dest")
	testutil.CreateTestFile(t, dest, "a.txt", []byte("old"))
	src := testutil.CreateTestFile(t, dir, "a.txt", []byte("new"))

	outcome := NewExecutor(Options{DryRun: true}).Relocate(src, dest)

	require.NoError(t, outcome.Err)
	assert.True(t, outcome.DryRun)
	assert.Equal(t, filepath.Join(dest, "a_1.txt"), outcome.Destination)
	assert.True(t, testutil.Exists(src))
	assert.False(t, testutil.Exists(outcome.Destination))
}

func TestApply_DryRunMatchesRealNames(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	first := testutil.CreateTestFile(t, dir, "x/r.txt", []byte("r"))
	second := testutil.CreateTestFile(t, dir, "y/r.txt", []byte("r"))
	batch := Batch{
		Action:      domain.ActionRelocate,
		Destination: filepath.Join(dir, "q"),
		Paths:       []string{first, second},
	}

	destinations := func(r BatchResult) []string {
		var out []string
		for _, o := range r.Outcomes {
			require.NoError(t, o.Err)
			out = append(out, o.Destination)
		}
		return out
	}

	preview := destinations(NewExecutor(Options{DryRun: true}).Apply(context.Background(), batch))
	assert.Equal(t, []string{
		filepath.Join(dir, "q", "r.txt"),
		filepath.Join(dir, "q", "r_1.txt"),
	}, preview)
	assert.True(t, testutil.Exists(first))
	assert.False(t, testutil.Exists(filepath.Join(dir, "q")))

	applied := destinations(NewExecutor(Options{}).Apply(context.Background(), batch))
	assert.Equal(t, preview, applied)
}

func TestDelete(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	file := testutil.CreateTestFile(t, dir, "a.txt", []byte("a"))

	outcome := NewExecutor(Options{}).Delete(file)

	require.NoError(t, outcome.Err)
	assert.Equal(t, domain.ActionDelete, outcome.Action)
	assert.False(t, testutil.Exists(file))
}

func TestDelete_Errors(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	exec := NewExecutor(Options{})

	o := exec.Delete(filepath.Join(dir, "gone.txt"))
	assert.ErrorIs(t, o.Err, domain.ErrNotFound)

	o = exec.Delete(dir)
	assert.ErrorIs(t, o.Err, domain.ErrNotFile)
	assert.True(t, testutil.Exists(dir))
}

func TestDelete_DryRun(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	file := testutil.CreateTestFile(t, dir, "a.txt", []byte("a"))

	outcome := NewExecutor(Options{DryRun: true}).Delete(file)

	require.NoError(t, outcome.Err)
	assert.True(t, outcome.DryRun)
	assert.True(t, testutil.Exists(file))
}

func TestApply_ContinuesAfterFailure(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	first := testutil.CreateTestFile(t, dir, "1.txt", []byte("1"))
	removed := testutil.CreateTestFile(t, dir, "2.txt", []byte("2"))
	last := testutil.CreateTestFile(t, dir, "3.txt", []byte("3"))

	// Removed externally between selection and execution
	require.NoError(t, os.Remove(removed))

	result := NewExecutor(Options{}).Apply(context.Background(), Batch{
		Action: domain.ActionDelete,
		Paths:  []string{first, removed, last},
	})

	require.Len(t, result.Outcomes, 3)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed())

	failures := result.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, removed, failures[0].Path)
	assert.ErrorIs(t, failures[0].Err, domain.ErrNotFound)

	assert.False(t, testutil.Exists(first))
	assert.False(t, testutil.Exists(last))

	err := result.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApply_Relocate(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	a := testutil.CreateTestFile(t, dir, "x/dup.txt", []byte("a"))
	b := testutil.CreateTestFile(t, dir, "y/dup.txt", []byte("b"))
	dest := filepath.Join(dir, "_duplicates")

	var mu sync.Mutex
	var updates []progress.Update
	exec := NewExecutor(Options{})
	exec.SetProgressReporter(progress.NewCallbackReporter(func(u progress.Update) {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
	}))

	result := exec.Apply(context.Background(), Batch{
		Action:      domain.ActionRelocate,
		Paths:       []string{a, b},
		Destination: dest,
	})

	require.NoError(t, result.Err())
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, filepath.Join(dest, "dup.txt"), result.Outcomes[0].Destination)
	assert.Equal(t, filepath.Join(dest, "dup_1.txt"), result.Outcomes[1].Destination)

	require.NotEmpty(t, updates)
	assert.Equal(t, progress.PhaseApplying, updates[0].Phase)
	assert.Equal(t, progress.UpdateDone, updates[len(updates)-1].Type)
}

func TestApply_UnknownAction(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	file := testutil.CreateTestFile(t, dir, "a.txt", []byte("a"))

	result := NewExecutor(Options{}).Apply(context.Background(), Batch{
		Action: domain.ActionType("shred"),
		Paths:  []string{file},
	})

	require.Len(t, result.Outcomes, 1)
	assert.ErrorIs(t, result.Outcomes[0].Err, domain.ErrUnknownAction)
	assert.True(t, testutil.Exists(file))
}

func TestApply_Cancelled(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	a := testutil.CreateTestFile(t, dir, "a.txt", []byte("a"))
	b := testutil.CreateTestFile(t, dir, "b.txt", []byte("b"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewExecutor(Options{}).Apply(ctx, Batch{
		Action: domain.ActionDelete,
		Paths:  []string{a, b},
	})

	require.Len(t, result.Outcomes, 2)
	assert.Equal(t, 0, result.Succeeded)
	for _, o := range result.Outcomes {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
	assert.True(t, testutil.Exists(a))
	assert.True(t, testutil.Exists(b))
}

func TestSuffixedName(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want string
	}{
		{"report.txt", 0, "report.txt"},
		{"report.txt", 1, "report_1.txt"},
		{"archive.tar.gz", 2, "archive.tar_2.gz"},
		{"Makefile", 3, "Makefile_3"},
		{".bashrc", 1, ".bashrc_1"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, SuffixedName(tt.name, tt.n))
		})
	}
}

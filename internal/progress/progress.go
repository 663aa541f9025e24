package progress

import (
	"sync"
	"time"

	units "github.com/docker/go-units"
)

// Phase names a stage of a dupfinder run
type Phase string

const (
	PhaseHashing Phase = "hashing"
	PhaseApplying Phase = "applying"
)

// Reporter receives progress for long-running scan and apply phases.
// Implementations must be safe for concurrent use: hashing workers call
// Advance and Skip from several goroutines.
type Reporter interface {
	// Begin starts a phase with the known amount of work
	Begin(phase Phase, totalFiles int, totalBytes int64)
	// Advance reports one file finished
	Advance(path string, bytes int64)
	// Skip reports one file given up on
	Skip(path string, err error)
	// Done marks the current phase as finished
	Done()
}

// Callback is a function that receives progress updates
type Callback func(update Update)

// Update represents a progress update
type Update struct {
	Type           UpdateType
	Phase          Phase
	CurrentFile    string
	FilesCompleted int
	FilesSkipped   int
	FilesTotal     int
	BytesCompleted int64
	BytesTotal     int64
	BytesPerSecond float64
	Error          error
}

// UpdateType indicates the type of progress update
type UpdateType int

const (
	UpdateBegin UpdateType = iota
	UpdateAdvance
	UpdateSkip
	UpdateDone
)

// CallbackReporter implements Reporter with a callback function
type CallbackReporter struct {
	callback       Callback
	mu             sync.Mutex
	phase          Phase
	filesTotal     int
	bytesTotal     int64
	filesCompleted int
	filesSkipped   int
	bytesCompleted int64
	startTime      time.Time
}

// NewCallbackReporter creates a new CallbackReporter
func NewCallbackReporter(callback Callback) *CallbackReporter {
	return &CallbackReporter{
		callback: callback,
	}
}

// Begin resets counters and starts a new phase
func (r *CallbackReporter) Begin(phase Phase, totalFiles int, totalBytes int64) {
	r.mu.Lock()
	r.phase = phase
	r.filesTotal = totalFiles
	r.bytesTotal = totalBytes
	r.filesCompleted = 0
	r.filesSkipped = 0
	r.bytesCompleted = 0
	r.startTime = time.Now()

	update := r.snapshotLocked(UpdateBegin)
	callback := r.callback
	r.mu.Unlock()

	// Call callback outside lock to prevent deadlock
	if callback != nil {
		callback(update)
	}
}

// Advance reports one finished file
func (r *CallbackReporter) Advance(path string, bytes int64) {
	r.mu.Lock()
	r.filesCompleted++
	r.bytesCompleted += bytes

	update := r.snapshotLocked(UpdateAdvance)
	update.CurrentFile = path
	callback := r.callback
	r.mu.Unlock()

	if callback != nil {
		callback(update)
	}
}

// Skip reports a file that was not processed
func (r *CallbackReporter) Skip(path string, err error) {
	r.mu.Lock()
	r.filesSkipped++

	update := r.snapshotLocked(UpdateSkip)
	update.CurrentFile = path
	update.Error = err
	callback := r.callback
	r.mu.Unlock()

	if callback != nil {
		callback(update)
	}
}

// Done marks the current phase as complete
func (r *CallbackReporter) Done() {
	r.mu.Lock()
	update := r.snapshotLocked(UpdateDone)
	callback := r.callback
	r.mu.Unlock()

	if callback != nil {
		callback(update)
	}
}

// snapshotLocked builds an update from current counters; r.mu must be held
func (r *CallbackReporter) snapshotLocked(t UpdateType) Update {
	var bytesPerSecond float64
	if elapsed := time.Since(r.startTime).Seconds(); elapsed > 0 {
		bytesPerSecond = float64(r.bytesCompleted) / elapsed
	}

	return Update{
		Type:           t,
		Phase:          r.phase,
		FilesCompleted: r.filesCompleted,
		FilesSkipped:   r.filesSkipped,
		FilesTotal:     r.filesTotal,
		BytesCompleted: r.bytesCompleted,
		BytesTotal:     r.bytesTotal,
		BytesPerSecond: bytesPerSecond,
	}
}

// NullReporter is a no-op reporter
type NullReporter struct{}

func (NullReporter) Begin(phase Phase, totalFiles int, totalBytes int64) {}
func (NullReporter) Advance(path string, bytes int64)                   {}
func (NullReporter) Skip(path string, err error)                        {}
func (NullReporter) Done()                                              {}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes formats bytes into human-readable string, e.g. "1.50 MB"
func FormatBytes(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}
	return units.CustomSize("%.2f %s", float64(bytes), 1024.0, sizeUnits)
}

// FormatSpeed formats bytes per second into human-readable string
func FormatSpeed(bytesPerSecond float64) string {
	return FormatBytes(int64(bytesPerSecond)) + "/s"
}

// Package lock provides the session lock that keeps two dupfinder processes
// from relocating or deleting files of the same data set at the same time.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Ning0612/dupfinder/internal/domain"
)

const (
	// LockFileName is the name of the lock file inside the data directory
	LockFileName = ".dupfinder.lock"
	// DefaultStaleTimeout is used for locks held by another host
	DefaultStaleTimeout = 30 * time.Minute
)

// Holder describes the process holding the lock
type Holder struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartTime time.Time `json:"start_time"`
	Operation string    `json:"operation,omitempty"`
}

// FileLock is an exclusive lock backed by a file created with O_EXCL
type FileLock struct {
	lockPath     string
	staleTimeout time.Duration
	held         *Holder
}

// NewFileLock creates a lock in dataDir; empty means the user config
// directory
func NewFileLock(dataDir string) (*FileLock, error) {
	if dataDir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config dir: %w", err)
		}
		dataDir = filepath.Join(configDir, "dupfinder")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	return &FileLock{
		lockPath:     filepath.Join(dataDir, LockFileName),
		staleTimeout: DefaultStaleTimeout,
	}, nil
}

// Path returns the lock file path
func (l *FileLock) Path() string {
	return l.lockPath
}

// SetStaleTimeout sets the duration after which a lock is considered stale
func (l *FileLock) SetStaleTimeout(d time.Duration) {
	l.staleTimeout = d
}

// Acquire takes the lock for operation.
// Acquiring again through the same FileLock only updates the operation.
func (l *FileLock) Acquire(operation string) error {
	if l.held != nil {
		current, err := l.read()
		if err == nil && l.ownedBy(current) {
			current.Operation = operation
			if err := l.write(current); err != nil {
				return err
			}
			// Keep held in sync with the file so Release still recognizes it
			l.held.Operation = operation
			return nil
		}
	}

	if current, err := l.read(); err == nil {
		if !l.isStale(current) {
			return &LockError{Holder: current, Reason: "lock is held by another process"}
		}
		if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale lock: %w", err)
		}
	}

	hostname, _ := os.Hostname()
	holder := &Holder{
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartTime: time.Now(),
		Operation: operation,
	}

	file, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			// Lost the race to another process
			current, readErr := l.read()
			if readErr != nil {
				return fmt.Errorf("lock acquisition race condition: %w", err)
			}
			return &LockError{Holder: current, Reason: "lock acquired by another process during acquisition"}
		}
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(holder); err != nil {
		os.Remove(l.lockPath)
		return fmt.Errorf("failed to write lock info: %w", err)
	}

	l.held = holder
	return nil
}

// Release gives the lock up; releasing an unheld lock is a no-op
func (l *FileLock) Release() error {
	if l.held == nil {
		return nil
	}
	defer func() { l.held = nil }()

	current, err := l.read()
	if err != nil {
		return nil
	}
	if !l.ownedBy(current) {
		return errors.New("lock was taken over by another process")
	}

	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// Do runs fn while holding the lock
func (l *FileLock) Do(operation string, fn func() error) error {
	if err := l.Acquire(operation); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

// IsLocked reports whether a live lock exists
func (l *FileLock) IsLocked() bool {
	current, err := l.read()
	if err != nil {
		return false
	}
	return !l.isStale(current)
}

// GetHolder returns the current holder of a live lock
func (l *FileLock) GetHolder() (*Holder, error) {
	current, err := l.read()
	if err != nil {
		return nil, err
	}
	if l.isStale(current) {
		return nil, errors.New("lock is stale")
	}
	return current, nil
}

// ForceRelease removes the lock file regardless of the holder.
// Only for a holder known to have crashed.
func (l *FileLock) ForceRelease() error {
	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to force remove lock: %w", err)
	}
	l.held = nil
	return nil
}

func (l *FileLock) read() (*Holder, error) {
	data, err := os.ReadFile(l.lockPath)
	if err != nil {
		return nil, err
	}

	var h Holder
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("invalid lock file format: %w", err)
	}
	return &h, nil
}

func (l *FileLock) write(h *Holder) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.lockPath, data, 0644)
}

// isStale reports whether the holder is gone.
// On the same host only a dead process makes a lock stale; a different
// host's lock expires after the stale timeout.
func (l *FileLock) isStale(h *Holder) bool {
	hostname, _ := os.Hostname()
	if h.Hostname == hostname {
		return !processExists(h.PID)
	}
	return time.Since(h.StartTime) > l.staleTimeout
}

// ownedBy reports whether h was written by this FileLock
func (l *FileLock) ownedBy(h *Holder) bool {
	if l.held == nil {
		return false
	}
	hostname, _ := os.Hostname()
	return h.PID == os.Getpid() &&
		h.Hostname == hostname &&
		l.held.StartTime.Equal(h.StartTime) &&
		l.held.Operation == h.Operation
}

// LockError is returned when the lock is held elsewhere.
// It matches domain.ErrSessionLocked with errors.Is.
type LockError struct {
	Holder *Holder
	Reason string
}

func (e *LockError) Error() string {
	if e.Holder != nil {
		return fmt.Sprintf("cannot acquire lock: %s (held by PID %d on %s since %s, operation: %s)",
			e.Reason,
			e.Holder.PID,
			e.Holder.Hostname,
			e.Holder.StartTime.Format(time.RFC3339),
			e.Holder.Operation,
		)
	}
	return fmt.Sprintf("cannot acquire lock: %s", e.Reason)
}

func (e *LockError) Unwrap() error {
	return domain.ErrSessionLocked
}

// IsLockError checks if an error is a LockError
func IsLockError(err error) bool {
	var lockErr *LockError
	return errors.As(err, &lockErr)
}

package domain

import "errors"

// Filesystem errors - 檔案系統層錯誤
var (
	// ErrNotFound indicates the requested file or directory does not exist
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the destination already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrPermissionDenied indicates insufficient permissions
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotDirectory indicates expected a directory but got a file
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotFile indicates expected a regular file but got something else
	ErrNotFile = errors.New("not a regular file")
)

// Scan errors - 掃描層錯誤
var (
	// ErrInvalidRoot indicates a scan root that does not exist or is not a directory
	ErrInvalidRoot = errors.New("invalid scan root")

	// ErrUnreadable marks a file whose content could not be digested
	ErrUnreadable = errors.New("file unreadable")
)

// Action and output errors
var (
	// ErrUnknownAction indicates a batch with an unsupported action type
	ErrUnknownAction = errors.New("unknown action")

	// ErrNoDestination indicates a relocation without a destination folder
	ErrNoDestination = errors.New("no destination folder")

	// ErrSerialization indicates a result document could not be written or parsed
	ErrSerialization = errors.New("serialization failed")

	// ErrSessionLocked indicates another dupfinder process holds the session lock
	ErrSessionLocked = errors.New("another session is in progress")
)

// Config errors - 設定檔錯誤
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")
)

package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Ning0612/dupfinder/internal/domain"
)

// Adapter implements the adapter.Adapter interface for the local filesystem
type Adapter struct {
	root string
}

// New creates a new local filesystem adapter
// root must name an existing directory; it is converted to an absolute path
func New(root string) (*Adapter, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, MapError(err)
	}
	if !info.IsDir() {
		return nil, domain.ErrNotDirectory
	}

	return &Adapter{root: absRoot}, nil
}

// resolvePath safely resolves a relative path to absolute path within root
// Returns error if path attempts to escape root directory
func (a *Adapter) resolvePath(relPath string) (string, error) {
	if relPath == "" || relPath == "." {
		return a.root, nil
	}

	relPath = filepath.Clean(filepath.FromSlash(relPath))

	if filepath.IsAbs(relPath) {
		return "", domain.ErrPermissionDenied
	}

	fullPath := filepath.Join(a.root, relPath)

	// Use filepath.Rel to verify the path is within root
	// This handles edge cases like root="C:\root" and fullPath="C:\root2"
	rel, err := filepath.Rel(a.root, fullPath)
	if err != nil {
		return "", domain.ErrPermissionDenied
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.ErrPermissionDenied
	}

	return fullPath, nil
}

// List returns the direct children of the given directory
func (a *Adapter) List(ctx context.Context, path string) ([]domain.FileInfo, error) {
	fullPath, err := a.resolvePath(path)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, MapError(err)
	}

	result := make([]domain.FileInfo, 0, len(entries))
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		info, err := entry.Info()
		if err != nil {
			continue // Removed between ReadDir and Lstat
		}

		entryPath := entry.Name()
		if path != "" && path != "." {
			entryPath = filepath.Join(filepath.FromSlash(path), entry.Name())
		}
		result = append(result, fileInfoFromOS(entryPath, info))
	}

	return result, nil
}

// Stat returns metadata for a single path, following symbolic links
func (a *Adapter) Stat(ctx context.Context, path string) (domain.FileInfo, error) {
	fullPath, err := a.resolvePath(path)
	if err != nil {
		return domain.FileInfo{}, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return domain.FileInfo{}, MapError(err)
	}

	return fileInfoFromOS(path, info), nil
}

// Abs converts a relative path into an absolute path under root
func (a *Adapter) Abs(path string) (string, error) {
	return a.resolvePath(path)
}

// Close releases any resources (no-op for local adapter)
func (a *Adapter) Close() error {
	return nil
}

// Root returns the root path of this adapter
func (a *Adapter) Root() string {
	return a.root
}

// fileInfoFromOS converts os.FileInfo to domain.FileInfo
func fileInfoFromOS(path string, info os.FileInfo) domain.FileInfo {
	mode := info.Mode()

	fileType := domain.FileTypeOther
	switch {
	case mode.IsRegular():
		fileType = domain.FileTypeRegular
	case mode.IsDir():
		fileType = domain.FileTypeDirectory
	case mode&os.ModeSymlink != 0:
		fileType = domain.FileTypeSymlink
	}

	size := info.Size()
	if fileType != domain.FileTypeRegular {
		size = 0
	}

	return domain.FileInfo{
		Path:    filepath.ToSlash(path), // Normalize to forward slashes
		Type:    fileType,
		Size:    size,
		ModTime: info.ModTime(),
	}
}

// MapError converts OS errors to domain errors.
// The original error is kept in the chain so callers can still report it.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %w", domain.ErrPermissionDenied, err)
	case errors.Is(err, os.ErrExist):
		return fmt.Errorf("%w: %w", domain.ErrAlreadyExists, err)
	case errors.Is(err, syscall.ENOTDIR):
		return fmt.Errorf("%w: %w", domain.ErrNotDirectory, err)
	case errors.Is(err, syscall.EISDIR):
		return fmt.Errorf("%w: %w", domain.ErrNotFile, err)
	}

	return err
}

package checksum

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// Algorithm represents the hashing algorithm to use
type Algorithm string

const (
	// MD5 algorithm (128-bit, the default content fingerprint)
	MD5 Algorithm = "md5"
	// SHA256 algorithm (slower, for users who want a stronger digest)
	SHA256 Algorithm = "sha256"
)

// DefaultBufferSize is the chunk size used for streaming reads
const DefaultBufferSize = 4096

// Options configures the checksum calculator
type Options struct {
	// Algorithm used by File; Calculate takes it explicitly
	// Default: MD5
	Algorithm Algorithm

	// MaxSize: inputs larger than this are rejected (0 = unlimited)
	// Default: 0
	MaxSize int64

	// BufferSize: size of buffer for streaming reads
	// Default: 4KB
	BufferSize int
}

// DefaultOptions returns the recommended default options
func DefaultOptions() Options {
	return Options{
		Algorithm:  MD5,
		MaxSize:    0,
		BufferSize: DefaultBufferSize,
	}
}

// Calculator computes content digests
type Calculator interface {
	// Calculate computes checksum from an io.Reader
	Calculate(ctx context.Context, reader io.Reader, algo Algorithm) (string, error)

	// File computes the digest of the file at path.
	// ok is false when the file could not be opened or read to the end.
	File(ctx context.Context, path string) (digest string, ok bool)
}

// DefaultCalculator implements Calculator with streaming support
type DefaultCalculator struct {
	opts Options
}

// NewCalculator creates a new calculator with the given options
func NewCalculator(opts Options) *DefaultCalculator {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.Algorithm == "" {
		opts.Algorithm = MD5
	}
	return &DefaultCalculator{opts: opts}
}

// NewDefaultCalculator creates a calculator with default options
func NewDefaultCalculator() *DefaultCalculator {
	return NewCalculator(DefaultOptions())
}

// Algorithm returns the algorithm File uses
func (c *DefaultCalculator) Algorithm() Algorithm {
	return c.opts.Algorithm
}

// Calculate implements the Calculator interface
func (c *DefaultCalculator) Calculate(ctx context.Context, reader io.Reader, algo Algorithm) (string, error) {
	h, err := newHash(algo)
	if err != nil {
		return "", err
	}

	// Create a limited reader if MaxSize is set
	var limitedReader io.Reader = reader
	if c.opts.MaxSize > 0 {
		limitedReader = io.LimitReader(reader, c.opts.MaxSize+1)
	}

	// Stream the data through the hasher
	buffer := make([]byte, c.opts.BufferSize)
	totalBytes := int64(0)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := limitedReader.Read(buffer)
		if n > 0 {
			totalBytes += int64(n)

			if c.opts.MaxSize > 0 && totalBytes > c.opts.MaxSize {
				return "", fmt.Errorf("file size exceeds maximum (%d bytes)", c.opts.MaxSize)
			}

			if _, hashErr := h.Write(buffer[:n]); hashErr != nil {
				return "", fmt.Errorf("hash write error: %w", hashErr)
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read error: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// File implements the Calculator interface.
// Any failure (permission, file removed mid-read, device that cannot be
// read) yields ("", false) instead of an error.
func (c *DefaultCalculator) File(ctx context.Context, path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	digest, err := c.Calculate(ctx, f, c.opts.Algorithm)
	if err != nil || digest == "" {
		return "", false
	}
	return digest, true
}

// Digest returns the MD5 digest of the file at path using default options
func Digest(ctx context.Context, path string) (string, bool) {
	return NewDefaultCalculator().File(ctx, path)
}

// IsSupported checks if the given algorithm is supported
func IsSupported(algo Algorithm) bool {
	switch algo {
	case MD5, SHA256:
		return true
	default:
		return false
	}
}

// ParseAlgorithm parses a case-insensitive algorithm name
func ParseAlgorithm(s string) (Algorithm, error) {
	algo := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	if algo == "" {
		return MD5, nil
	}
	if !IsSupported(algo) {
		return "", fmt.Errorf("unsupported algorithm: %s", s)
	}
	return algo, nil
}

func newHash(algo Algorithm) (hash.Hash, error) {
	switch algo {
	case MD5:
		return md5.New(), nil
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", algo)
	}
}

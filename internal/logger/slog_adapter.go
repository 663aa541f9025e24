package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SlogLogger slog 實作
//
// Loggers returned by With share the handler but do not own the writers;
// only the root logger closes them on Shutdown.
type SlogLogger struct {
	logger    *slog.Logger
	sanitizer *Sanitizer
	level     *slog.LevelVar   // shared with children
	writers   []io.WriteCloser // 需要關閉的 writers，子 logger 為 nil
}

// NewSlogLogger 建立新的 slog logger
func NewSlogLogger(config Config) (*SlogLogger, error) {
	var writers []io.Writer
	var closers []io.WriteCloser

	for _, output := range config.Outputs {
		switch output.Type {
		case OutputStdout, OutputStderr:
			w := streamWriter(output)
			writers = append(writers, w)
			if c, ok := ownedCloser(w); ok {
				closers = append(closers, c)
			}
		case OutputFile:
			if !config.File.Enabled {
				continue
			}
			fileWriter, err := createFileWriter(config.File)
			if err != nil {
				return nil, fmt.Errorf("failed to create file writer: %w", err)
			}
			writers = append(writers, fileWriter)
			closers = append(closers, fileWriter)
		}
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	level := new(slog.LevelVar)
	level.Set(config.Level.slogLevel())
	opts := &slog.HandlerOptions{Level: level}
	out := io.MultiWriter(writers...)

	var handler slog.Handler
	if config.Format == FormatJSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &SlogLogger{
		logger:    slog.New(handler),
		level:     level,
		sanitizer: NewSanitizer(),
		writers:   closers,
	}, nil
}

// streamWriter returns the configured writer or the matching standard stream
func streamWriter(output OutputConfig) io.Writer {
	if output.Writer != nil {
		return output.Writer
	}
	if output.Type == OutputStdout {
		return os.Stdout
	}
	return os.Stderr
}

// ownedCloser reports whether w must be closed on shutdown.
// Standard streams are never closed.
func ownedCloser(w io.Writer) (io.WriteCloser, bool) {
	wc, ok := w.(io.WriteCloser)
	if !ok || wc == os.Stdout || wc == os.Stderr || wc == os.Stdin {
		return nil, false
	}
	return wc, true
}

// createFileWriter 建立檔案 writer（使用 lumberjack 支援 rotation）
func createFileWriter(config FileConfig) (io.WriteCloser, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("log file path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   config.Path,
		MaxSize:    config.MaxSizeMB,
		MaxAge:     config.MaxAgeDays,
		MaxBackups: config.MaxBackups,
		Compress:   config.Compress,
	}, nil
}

// SetLevel changes the threshold for this logger and every logger derived from it
func (l *SlogLogger) SetLevel(level Level) {
	l.level.Set(level.slogLevel())
}

func (l *SlogLogger) log(level slog.Level, msg string, args []any) {
	l.logger.Log(context.Background(), level, l.sanitizer.Sanitize(msg), l.sanitizer.SanitizeArgs(args)...)
}

// Debug 記錄 debug 級別日誌
func (l *SlogLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args) }

// Info 記錄 info 級別日誌
func (l *SlogLogger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args) }

// Warn 記錄 warn 級別日誌
func (l *SlogLogger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args) }

// Error 記錄 error 級別日誌
func (l *SlogLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args) }

// With 建立帶 context 的子 logger
func (l *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{
		logger:    l.logger.With(l.sanitizer.SanitizeArgs(args)...),
		level:     l.level,
		sanitizer: l.sanitizer,
	}
}

// Sync 強制 flush（lumberjack 每次寫入即落盤）
func (l *SlogLogger) Sync() error {
	return nil
}

// Shutdown 優雅關閉，關閉所有擁有的 writers
func (l *SlogLogger) Shutdown() error {
	var lastErr error
	for _, w := range l.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	l.writers = nil
	return lastErr
}

package logger

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// LegacyLogger 舊版 logger（純文字輸出，用於回退）
//
// Lines look like "[WARN] msg key=value". Every level goes to stderr so
// results printed on stdout stay parseable.
type LegacyLogger struct {
	shared    *legacyState
	attrs     []any
	sanitizer *Sanitizer
}

// legacyState is shared by a logger and its children
type legacyState struct {
	mu    sync.Mutex
	level Level
	out   io.Writer
}

// NewLegacyLogger 建立 legacy logger
func NewLegacyLogger() *LegacyLogger {
	return &LegacyLogger{
		shared:    &legacyState{level: LevelInfo, out: os.Stderr},
		sanitizer: NewSanitizer(),
	}
}

// SetLevel 設定日誌級別
func (l *LegacyLogger) SetLevel(level Level) {
	l.shared.mu.Lock()
	l.shared.level = level
	l.shared.mu.Unlock()
}

// SetOutput 設定輸出目標
func (l *LegacyLogger) SetOutput(w io.Writer) {
	l.shared.mu.Lock()
	l.shared.out = w
	l.shared.mu.Unlock()
}

// formatValue quotes values that would make the line ambiguous
func formatValue(v any) string {
	s := fmt.Sprint(v)
	if s == "" || strings.ContainsAny(s, " =\"") {
		return strconv.Quote(s)
	}
	return s
}

func (l *LegacyLogger) write(level Level, msg string, args []any) {
	all := l.sanitizer.SanitizeArgs(append(append([]any{}, l.attrs...), args...))

	var b strings.Builder
	b.WriteString("[" + strings.ToUpper(level.String()) + "] ")
	b.WriteString(l.sanitizer.Sanitize(msg))
	for i := 0; i < len(all); i += 2 {
		if i+1 == len(all) {
			b.WriteString(" " + formatValue(all[i]))
			break
		}
		fmt.Fprintf(&b, " %v=%s", all[i], formatValue(all[i+1]))
	}
	b.WriteByte('\n')

	l.shared.mu.Lock()
	defer l.shared.mu.Unlock()
	if level < l.shared.level {
		return
	}
	io.WriteString(l.shared.out, b.String())
}

func (l *LegacyLogger) Debug(msg string, args ...any) { l.write(LevelDebug, msg, args) }
func (l *LegacyLogger) Info(msg string, args ...any)  { l.write(LevelInfo, msg, args) }
func (l *LegacyLogger) Warn(msg string, args ...any)  { l.write(LevelWarn, msg, args) }
func (l *LegacyLogger) Error(msg string, args ...any) { l.write(LevelError, msg, args) }

// With 建立帶 context 的子 logger，共用級別與輸出
func (l *LegacyLogger) With(args ...any) Logger {
	return &LegacyLogger{
		shared:    l.shared,
		attrs:     append(append([]any{}, l.attrs...), args...),
		sanitizer: l.sanitizer,
	}
}

func (l *LegacyLogger) Sync() error     { return nil }
func (l *LegacyLogger) Shutdown() error { return nil }

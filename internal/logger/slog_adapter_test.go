package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T, level Level, format Format) (*SlogLogger, *bytes.Buffer) {
	t.Helper()

	buf := &bytes.Buffer{}
	cfg := bufferConfig(buf, level)
	cfg.Format = format
	l, err := NewSlogLogger(cfg)
	if err != nil {
		t.Fatalf("NewSlogLogger() error = %v", err)
	}
	t.Cleanup(func() { l.Shutdown() })
	return l, buf
}

func TestSlogLogger_Text(t *testing.T) {
	l, buf := newBufferLogger(t, LevelDebug, FormatText)

	l.Info("group found", "digest", "5d41402abc4b2a76b9719d911017c592", "members", 2)

	output := buf.String()
	for _, want := range []string{"level=INFO", "msg=\"group found\"", "digest=5d41402abc4b2a76b9719d911017c592", "members=2"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q: %s", want, output)
		}
	}
}

func TestSlogLogger_Levels(t *testing.T) {
	tests := []struct {
		name      string
		level     Level
		log       func(Logger)
		shouldLog bool
	}{
		{"debug at debug", LevelDebug, func(l Logger) { l.Debug("hashing") }, true},
		{"debug at info", LevelInfo, func(l Logger) { l.Debug("hashing") }, false},
		{"info at warn", LevelWarn, func(l Logger) { l.Info("scan done") }, false},
		{"error at warn", LevelWarn, func(l Logger) { l.Error("delete failed") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newBufferLogger(t, tt.level, FormatText)
			tt.log(l)

			if logged := buf.Len() > 0; logged != tt.shouldLog {
				t.Errorf("logged=%v, want %v: %s", logged, tt.shouldLog, buf.String())
			}
		})
	}
}

func TestSlogLogger_JSONFormat(t *testing.T) {
	l, buf := newBufferLogger(t, LevelInfo, FormatJSON)

	l.Info("file skipped", "path", "/data/a\nb.txt", "size", 5)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not one JSON object: %v: %s", err, buf.String())
	}
	if rec["msg"] != "file skipped" {
		t.Errorf("msg = %v", rec["msg"])
	}
	if rec["path"] != `/data/a\nb.txt` {
		t.Errorf("path = %v, want control characters escaped", rec["path"])
	}
	if rec["size"] != float64(5) {
		t.Errorf("size = %v", rec["size"])
	}
}

func TestSlogLogger_With(t *testing.T) {
	l, buf := newBufferLogger(t, LevelInfo, FormatText)

	l.With("component", "resolver", "root", "/data").Info("grouping")

	output := buf.String()
	if !strings.Contains(output, "component=resolver") || !strings.Contains(output, "root=/data") {
		t.Errorf("child logger output missing context: %s", output)
	}
}

func TestSlogLogger_Sanitization(t *testing.T) {
	l, buf := newBufferLogger(t, LevelInfo, FormatText)

	l.Info("config loaded", "password", "secret123")
	l.Warn("odd name\nlevel=ERROR forged")

	output := buf.String()
	if strings.Contains(output, "secret123") {
		t.Errorf("log output contains unsanitized password: %s", output)
	}
	if n := strings.Count(output, "\n"); n != 2 {
		t.Errorf("expected 2 lines, got %d: %q", n, output)
	}
}

func TestSlogLogger_FileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "dupfinder.log")

	l, err := NewSlogLogger(Config{
		Level:  LevelInfo,
		Format: FormatText,
		File: FileConfig{
			Enabled:    true,
			Path:       logPath,
			MaxSizeMB:  1,
			MaxAgeDays: 7,
			MaxBackups: 3,
		},
		Outputs: []OutputConfig{{Type: OutputFile}},
	})
	if err != nil {
		t.Fatalf("NewSlogLogger() error = %v", err)
	}

	l.Info("batch completed", "succeeded", 3)
	l.Shutdown()

	// 讀取並驗證內容
	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "batch completed") {
		t.Errorf("log file missing message: %s", content)
	}
}

func TestSlogLogger_FileOutputNeedsPath(t *testing.T) {
	_, err := NewSlogLogger(Config{
		File:    FileConfig{Enabled: true},
		Outputs: []OutputConfig{{Type: OutputFile}},
	})
	if err == nil {
		t.Fatal("expected error for empty log file path")
	}
}

func TestSlogLogger_MultipleOutputs(t *testing.T) {
	buf1 := &bytes.Buffer{}
	buf2 := &bytes.Buffer{}

	l, err := NewSlogLogger(Config{
		Level: LevelInfo,
		Outputs: []OutputConfig{
			{Type: OutputStdout, Writer: buf1},
			{Type: OutputStderr, Writer: buf2},
		},
	})
	if err != nil {
		t.Fatalf("NewSlogLogger() error = %v", err)
	}
	defer l.Shutdown()

	l.Info("test multi-output")

	// 兩個 buffer 都應該有內容
	if !strings.Contains(buf1.String(), "test multi-output") || !strings.Contains(buf2.String(), "test multi-output") {
		t.Errorf("message missing from an output: %q / %q", buf1.String(), buf2.String())
	}
}

func TestSlogLogger_PathsNotMasked(t *testing.T) {
	l, buf := newBufferLogger(t, LevelInfo, FormatText)

	l.Info("relocated file", "path", "/home/alice/photos/icon@2x.png")

	if !strings.Contains(buf.String(), "/home/alice/photos/icon@2x.png") {
		t.Errorf("path should be logged verbatim: %s", buf.String())
	}
}

type closeCounter struct {
	bytes.Buffer
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func TestSlogLogger_ChildDoesNotClose(t *testing.T) {
	w := &closeCounter{}
	l, err := NewSlogLogger(Config{
		Level:   LevelInfo,
		Outputs: []OutputConfig{{Type: OutputStderr, Writer: w}},
	})
	if err != nil {
		t.Fatalf("NewSlogLogger() error = %v", err)
	}

	child := l.With("component", "executor")
	child.Info("batch completed")
	if err := child.Shutdown(); err != nil {
		t.Fatalf("child Shutdown() error = %v", err)
	}
	if w.closed != 0 {
		t.Errorf("child logger closed the writer")
	}

	l.Shutdown()
	l.Shutdown()
	if w.closed != 1 {
		t.Errorf("expected writer closed once, got %d", w.closed)
	}
}

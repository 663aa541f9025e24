package logger

import (
	"errors"
	"os"
	"sync"
)

// LegacyEnvVar selects the plain fallback logger when set to "true"
const LegacyEnvVar = "DUPFINDER_USE_LEGACY_LOGGER"

// ErrAlreadyInitialized is returned by Init until Shutdown is called
var ErrAlreadyInitialized = errors.New("logger already initialized")

// levelSetter is implemented by loggers whose threshold can change at runtime
type levelSetter interface {
	SetLevel(Level)
}

// global 全域 logger 狀態
var global struct {
	sync.RWMutex
	logger Logger
}

// Init 初始化全域 logger
func Init(config Config) error {
	global.Lock()
	defer global.Unlock()

	if global.logger != nil {
		return ErrAlreadyInitialized
	}

	// 回退機制
	if os.Getenv(LegacyEnvVar) == "true" {
		legacy := NewLegacyLogger()
		legacy.SetLevel(config.Level)
		global.logger = legacy
		return nil
	}

	l, err := NewSlogLogger(config)
	if err != nil {
		return err
	}
	global.logger = l
	return nil
}

// Get 取得全域 logger；未初始化時回傳 NullLogger
func Get() Logger {
	global.RLock()
	defer global.RUnlock()

	if global.logger == nil {
		return NullLogger{}
	}
	return global.logger
}

// With 建立帶 context 的子 logger
func With(args ...any) Logger {
	return Get().With(args...)
}

// Sync 強制 flush
func Sync() error {
	return Get().Sync()
}

// Shutdown closes the global logger. Init may be called again afterwards.
func Shutdown() error {
	global.Lock()
	l := global.logger
	global.logger = nil
	global.Unlock()

	if l == nil {
		return nil
	}
	return l.Shutdown()
}

// SetLevel 動態調整日誌級別
func SetLevel(level Level) {
	if s, ok := Get().(levelSetter); ok {
		s.SetLevel(level)
	}
}

// NullLogger discards everything
type NullLogger struct{}

func (NullLogger) Debug(string, ...any) {}
func (NullLogger) Info(string, ...any)  {}
func (NullLogger) Warn(string, ...any)  {}
func (NullLogger) Error(string, ...any) {}
func (n NullLogger) With(...any) Logger { return n }
func (NullLogger) Sync() error          { return nil }
func (NullLogger) Shutdown() error      { return nil }

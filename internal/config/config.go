package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	units "github.com/docker/go-units"

	"github.com/Ning0612/dupfinder/internal/core/checksum"
	"github.com/Ning0612/dupfinder/internal/domain"
	"github.com/Ning0612/dupfinder/internal/logger"
)

// Config represents the complete configuration for dupfinder
type Config struct {
	// Scan controls directory traversal and hashing
	Scan ScanConfig `mapstructure:"scan"`

	// Actions controls relocation and deletion
	Actions ActionsConfig `mapstructure:"actions"`

	// Report controls where result documents are written
	Report ReportConfig `mapstructure:"report"`

	// DataDir holds the session lock and run history
	DataDir string `mapstructure:"data_dir"`

	Log LogConfig `mapstructure:"log"`
}

// ScanConfig holds scanner defaults
type ScanConfig struct {
	Recursive      bool     `mapstructure:"recursive"`
	FollowSymlinks bool     `mapstructure:"follow_symlinks"`
	Workers        int      `mapstructure:"workers"`
	Exclude        []string `mapstructure:"exclude"`
	MinSize        string   `mapstructure:"min_size"` // human size, e.g. "4KB"
	Algorithm      string   `mapstructure:"algorithm"`
}

// MinSizeBytes parses MinSize; sizes use binary units (1KB = 1024 bytes)
func (s ScanConfig) MinSizeBytes() (int64, error) {
	if strings.TrimSpace(s.MinSize) == "" {
		return 0, nil
	}
	n, err := units.RAMInBytes(s.MinSize)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative size: %s", s.MinSize)
	}
	return n, nil
}

// ActionsConfig holds executor defaults
type ActionsConfig struct {
	// QuarantineDir receives relocated duplicates; relative paths are
	// resolved against the scanned root
	QuarantineDir string `mapstructure:"quarantine_dir"`
	DryRun        bool   `mapstructure:"dry_run"`
}

// ReportConfig holds snapshot output settings
type ReportConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"` // json or csv
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig holds rotating log file settings
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Recursive: true,
			Workers:   runtime.NumCPU(),
			MinSize:   "0",
			Algorithm: string(checksum.MD5),
		},
		Actions: ActionsConfig{
			QuarantineDir: "_duplicates",
		},
		Report: ReportConfig{
			Dir:    ".",
			Format: "json",
		},
		DataDir: defaultDataDir(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File: LogFileConfig{
				MaxSizeMB:  10,
				MaxAgeDays: 30,
				MaxBackups: 5,
				Compress:   true,
			},
		},
	}
}

func defaultDataDir() string {
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "dupfinder")
	}
	return ".dupfinder"
}

// Validate checks if the configuration is complete and consistent
func (c *Config) Validate() error {
	if c.Scan.Workers < 1 {
		return fmt.Errorf("%w: scan.workers must be at least 1, got %d", domain.ErrConfigInvalid, c.Scan.Workers)
	}

	algo, err := checksum.ParseAlgorithm(c.Scan.Algorithm)
	if err != nil || !checksum.IsSupported(algo) {
		return fmt.Errorf("%w: unsupported scan.algorithm: %s", domain.ErrConfigInvalid, c.Scan.Algorithm)
	}

	if _, err := c.Scan.MinSizeBytes(); err != nil {
		return fmt.Errorf("%w: invalid scan.min_size: %v", domain.ErrConfigInvalid, err)
	}

	if strings.TrimSpace(c.Actions.QuarantineDir) == "" {
		return fmt.Errorf("%w: actions.quarantine_dir cannot be empty", domain.ErrConfigInvalid)
	}

	switch strings.ToLower(c.Report.Format) {
	case "json", "csv":
	default:
		return fmt.Errorf("%w: report.format must be json or csv, got %s", domain.ErrConfigInvalid, c.Report.Format)
	}

	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir cannot be empty", domain.ErrConfigInvalid)
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", domain.ErrConfigInvalid, err)
	}
	if _, err := logger.ParseFormat(c.Log.Format); err != nil {
		return fmt.Errorf("%w: log.format: %v", domain.ErrConfigInvalid, err)
	}

	if c.Log.File.Enabled && c.Log.File.Path == "" {
		return fmt.Errorf("%w: log.file.path is required when file logging is enabled", domain.ErrConfigInvalid)
	}

	return nil
}

// LoggerConfig converts the log section into a logger configuration.
// Console output goes to stderr so stdout stays clean for results.
func (c *Config) LoggerConfig() logger.Config {
	// Validate has already rejected unknown names
	level, _ := logger.ParseLevel(c.Log.Level)
	format, _ := logger.ParseFormat(c.Log.Format)

	cfg := logger.Config{
		Level:   level,
		Format:  format,
		Outputs: []logger.OutputConfig{{Type: logger.OutputStderr}},
	}
	if c.Log.File.Enabled {
		cfg.Outputs = append(cfg.Outputs, logger.OutputConfig{Type: logger.OutputFile})
		cfg.File = logger.FileConfig{
			Enabled:    true,
			Path:       ExpandPath(c.Log.File.Path),
			MaxSizeMB:  c.Log.File.MaxSizeMB,
			MaxAgeDays: c.Log.File.MaxAgeDays,
			MaxBackups: c.Log.File.MaxBackups,
			Compress:   c.Log.File.Compress,
		}
	}
	return cfg
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	// Expand ~ to home directory
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}

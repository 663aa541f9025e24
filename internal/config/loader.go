package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Ning0612/dupfinder/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. DUPFINDER_SCAN_WORKERS
const EnvPrefix = "DUPFINDER"

// DefaultConfigPaths returns the default paths to search for config files
func DefaultConfigPaths() []string {
	paths := []string{
		".",
		"./configs",
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "dupfinder"))
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "dupfinder"))
		paths = append(paths, filepath.Join(homeDir, ".dupfinder"))
	}

	return paths
}

// newViper returns a viper instance with defaults and env overrides bound
func newViper() *viper.Viper {
	v := viper.New()

	d := Default()
	v.SetDefault("scan.recursive", d.Scan.Recursive)
	v.SetDefault("scan.follow_symlinks", d.Scan.FollowSymlinks)
	v.SetDefault("scan.workers", d.Scan.Workers)
	v.SetDefault("scan.exclude", []string{})
	v.SetDefault("scan.min_size", d.Scan.MinSize)
	v.SetDefault("scan.algorithm", d.Scan.Algorithm)
	v.SetDefault("actions.quarantine_dir", d.Actions.QuarantineDir)
	v.SetDefault("actions.dry_run", d.Actions.DryRun)
	v.SetDefault("report.dir", d.Report.Dir)
	v.SetDefault("report.format", d.Report.Format)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file.enabled", d.Log.File.Enabled)
	v.SetDefault("log.file.path", d.Log.File.Path)
	v.SetDefault("log.file.max_size_mb", d.Log.File.MaxSizeMB)
	v.SetDefault("log.file.max_age_days", d.Log.File.MaxAgeDays)
	v.SetDefault("log.file.max_backups", d.Log.File.MaxBackups)
	v.SetDefault("log.file.compress", d.Log.File.Compress)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the configuration.
// If path is empty, default locations are searched for config.yaml and a
// missing file means built-in defaults. An explicit path must exist.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
		}
	}

	return decode(v)
}

// LoadFromString parses configuration from a YAML string
func LoadFromString(yamlContent string) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(strings.NewReader(yamlContent)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	cfg.DataDir = ExpandPath(cfg.DataDir)
	cfg.Report.Dir = ExpandPath(cfg.Report.Dir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Package config loads the wzpatch settings from .wzpatch.yaml, WZPATCH_*
// environment variables and command-line flags.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Index modes accepted by the index_mode key.
const (
	IndexModeRWAR = "rwar"
	IndexModeRWSD = "rwsd"
)

// UI modes accepted by the ui key.
const (
	UIAuto  = "auto"
	UITUI   = "tui"
	UIPlain = "plain"
	UILog   = "log"
)

// ArchiveConfig locates the vendor archives relative to the work directory.
type ArchiveConfig struct {
	Primary   string `mapstructure:"primary"`
	SideDir   string `mapstructure:"side_dir"`
	SideExt   string `mapstructure:"side_ext"`
	BaseBlank string `mapstructure:"base_blank"`
}

// Config holds all runtime configuration for a wzpatch session.
// Values are populated from .wzpatch.yaml, WZPATCH_* env vars, and CLI flags.
type Config struct {
	WorkDir     string        `mapstructure:"work_dir"`
	Project     string        `mapstructure:"project"`
	IndexMode   string        `mapstructure:"index_mode"`
	CatalogPath string        `mapstructure:"catalog_path"`
	Telemetry   bool          `mapstructure:"telemetry"`
	UI          string        `mapstructure:"ui"`
	Verbose     bool          `mapstructure:"verbose"`
	Archives    ArchiveConfig `mapstructure:"archives"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("work_dir", ".")
	viper.SetDefault("project", "")
	viper.SetDefault("index_mode", IndexModeRWAR)
	viper.SetDefault("catalog_path", ".wzpatch/catalog.db")
	viper.SetDefault("telemetry", true)
	viper.SetDefault("ui", UIAuto)
	viper.SetDefault("verbose", false)
	viper.SetDefault("archives.primary", "ProgramData/WZSound.brsar")
	viper.SetDefault("archives.side_dir", "ProgramData/demo")
	viper.SetDefault("archives.side_ext", ".brsar")
	viper.SetDefault("archives.base_blank", "ProgramData/BaseBlankFile.brwsd")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values that no command can act on.
func (c Config) Validate() error {
	switch c.IndexMode {
	case IndexModeRWAR, IndexModeRWSD:
	default:
		return fmt.Errorf("config: index_mode %q: want %q or %q", c.IndexMode, IndexModeRWAR, IndexModeRWSD)
	}
	switch c.UI {
	case UIAuto, UITUI, UIPlain, UILog:
	default:
		return fmt.Errorf("config: ui %q: want auto, tui, plain or log", c.UI)
	}
	if c.WorkDir == "" {
		return fmt.Errorf("config: work_dir must not be empty")
	}
	return nil
}

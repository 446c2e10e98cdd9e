// Package config loads the server configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"voxeledit.ai/internal/logger"
	"voxeledit.ai/internal/octree"
	"voxeledit.ai/internal/persistence/store"
)

type Config struct {
	Listen       string        `yaml:"listen"`
	DataDir      string        `yaml:"data_dir"`
	Levels       int           `yaml:"levels"`
	DefaultScene string        `yaml:"default_scene"`
	Autosave     time.Duration `yaml:"autosave"`

	Store   StoreConfig   `yaml:"store"`
	Journal JournalConfig `yaml:"journal"`
	Archive ArchiveConfig `yaml:"archive"`
	Logging LoggingConfig `yaml:"logging"`
	WS      WSConfig      `yaml:"ws"`
}

// StoreConfig selects the scene store. An empty Path is derived from DataDir.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type JournalConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ArchiveConfig controls backups taken before HTTP deletes and imports.
type ArchiveConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// FileConfig is the rotating log file setup; a zero value when File is
// empty disables file logging.
func (l LoggingConfig) FileConfig() logger.FileConfig {
	if l.File == "" {
		return logger.FileConfig{}
	}
	return logger.FileConfig{
		Path:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
		Compress:   l.Compress,
	}
}

type WSConfig struct {
	MaxQueue     int           `yaml:"max_queue"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	ReadLimit    int64         `yaml:"read_limit"`
}

func Default() Config {
	fc := logger.DefaultFileConfig("")
	return Config{
		Listen:   ":8080",
		DataDir:  "./data",
		Levels:   octree.DefaultLevels,
		Autosave: 30 * time.Second,
		Store: StoreConfig{
			Backend: "sqlite",
		},
		Journal: JournalConfig{Enabled: true},
		Archive: ArchiveConfig{Enabled: true},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  fc.MaxSizeMB,
			MaxBackups: fc.MaxBackups,
			MaxAgeDays: fc.MaxAgeDays,
			Compress:   fc.Compress,
		},
		WS: WSConfig{
			MaxQueue:     64,
			WriteTimeout: 10 * time.Second,
			ReadLimit:    4 << 20,
		},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Normalize() {
	def := Default()
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = def.Store.Backend
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Levels == 0 {
		c.Levels = def.Levels
	}
	if c.WS.MaxQueue <= 0 {
		c.WS.MaxQueue = def.WS.MaxQueue
	}
	if c.WS.WriteTimeout <= 0 {
		c.WS.WriteTimeout = def.WS.WriteTimeout
	}
	if c.WS.ReadLimit <= 0 {
		c.WS.ReadLimit = def.WS.ReadLimit
	}
}

func (c Config) Validate() error {
	if c.Levels < octree.MinLevels || c.Levels > octree.MaxLevels {
		return fmt.Errorf("levels %d outside %d..%d", c.Levels, octree.MinLevels, octree.MaxLevels)
	}
	switch c.Store.Backend {
	case "sqlite", "file", "memory":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	if c.Autosave < 0 {
		return fmt.Errorf("autosave must be >= 0")
	}
	if c.DefaultScene != "" {
		if err := store.ValidName(c.DefaultScene); err != nil {
			return fmt.Errorf("default_scene: %w", err)
		}
	}
	if c.Store.Backend != "memory" && c.Store.Path == "" && c.DataDir == "" {
		return fmt.Errorf("store.path or data_dir is required for backend %q", c.Store.Backend)
	}
	return nil
}

// StorePath is the store location for the configured backend.
func (c Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	switch c.Store.Backend {
	case "sqlite":
		return filepath.Join(c.DataDir, "scenes.sqlite")
	case "file":
		return filepath.Join(c.DataDir, "scenes")
	}
	return ""
}

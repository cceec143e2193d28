package config

import (
	"time"

	redisclient "github.com/vietddude/luna/internal/infra/redis"
	"github.com/vietddude/luna/internal/infra/storage/file"
	"github.com/vietddude/luna/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Paths       PathsConfig       `yaml:"paths"`
	Sources     []SourceConfig    `yaml:"sources"     validate:"dive"`
	Retry       RetryConfig       `yaml:"retry"`
	Download    DownloadConfig    `yaml:"download"`
	GreenLuma   GreenLumaConfig   `yaml:"greenluma"`
	Koalageddon KoalageddonConfig `yaml:"koalageddon"`
	Exclusions  ExclusionsConfig  `yaml:"exclusions"`
	Shortcuts   []ShortcutConfig  `yaml:"shortcuts"   validate:"dive"`
	Cleanup     CleanupConfig     `yaml:"cleanup"`
	Logging     LoggingConfig     `yaml:"logging"`
	Storage     StorageConfig     `yaml:"storage"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// PathsConfig holds the install locations.
type PathsConfig struct {
	InstallDir   string `yaml:"install_dir"   validate:"required"`
	TempDir      string `yaml:"temp_dir"`
	SteamDir     string `yaml:"steam_dir"` // empty = detect
	RequireAdmin bool   `yaml:"require_admin"`
}

// SourceConfig describes one vendor archive to download and extract.
type SourceConfig struct {
	Name    string `yaml:"name"    validate:"required"`
	URL     string `yaml:"url"     validate:"required,url"`
	Dest    string `yaml:"dest"    validate:"required"` // relative to install_dir
	Flatten bool   `yaml:"flatten"`
}

// RetryConfig defines retry behavior for network operations.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" validate:"gte=1,lte=20"`
	BaseDelay   time.Duration `yaml:"base_delay"   validate:"gte=0"`
	MaxDelay    time.Duration `yaml:"max_delay"    validate:"gte=0"`
	Jitter      float64       `yaml:"jitter"       validate:"gte=0,lte=1"`
}

// DownloadConfig tunes the HTTP downloader.
type DownloadConfig struct {
	Concurrency int           `yaml:"concurrency" validate:"gte=1,lte=16"`
	Timeout     time.Duration `yaml:"timeout"     validate:"gte=0"`
	UserAgent   string        `yaml:"user_agent"`
}

// GreenLumaConfig points at a legacy GreenLuma install and the injector
// settings Luna writes into DLLInjector.ini.
type GreenLumaConfig struct {
	LegacyDir string            `yaml:"legacy_dir"`
	Settings  map[string]string `yaml:"settings"`
}

// KoalageddonConfig points at a legacy Koalageddon install and the keys Luna
// sets in its JSON config. Values must be scalars.
type KoalageddonConfig struct {
	LegacyDir  string                 `yaml:"legacy_dir"`
	ConfigFile string                 `yaml:"config_file"`
	Settings   map[string]interface{} `yaml:"settings"`
}

// ExclusionsConfig controls Windows Defender exclusions.
type ExclusionsConfig struct {
	Enabled bool     `yaml:"enabled"`
	Paths   []string `yaml:"paths"` // in addition to install_dir
}

// ShortcutConfig describes one desktop shortcut.
type ShortcutConfig struct {
	Name        string `yaml:"name"        validate:"required"`
	Target      string `yaml:"target"      validate:"required"` // relative to install_dir unless absolute
	Args        string `yaml:"args"`
	WorkingDir  string `yaml:"working_dir"`
	Icon        string `yaml:"icon"`
	Description string `yaml:"description"`
}

// CleanupConfig holds rollback settings.
type CleanupConfig struct {
	CriticalPaths []string `yaml:"critical_paths"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	File  string `yaml:"file"`
}

// StorageConfig selects where run history is kept.
type StorageConfig struct {
	Backend   string             `yaml:"backend"   validate:"oneof=file memory postgres redis"`
	Retention time.Duration      `yaml:"retention" validate:"gte=0"` // 0 = keep forever
	File      file.Config        `yaml:"file"`
	Database  postgres.Config    `yaml:"database"`
	Redis     redisclient.Config `yaml:"redis"`
}

// MetricsConfig holds the Prometheus textfile export path.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

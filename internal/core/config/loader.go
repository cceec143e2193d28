package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/vietddude/luna/internal/core/domain"
)

// Load reads configuration from a YAML file. Unknown keys are rejected.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewError(domain.KindConfig, "read config", path, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates configuration content.
func Parse(data []byte) (*AppConfig, error) {
	cfg := defaultConfig()
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.UnmarshalStrict([]byte(expandedData), &cfg); err != nil {
		return nil, domain.NewError(domain.KindConfig, "parse config", "", err)
	}

	applyDefaults(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, domain.NewError(domain.KindConfig, "validate config", "", err)
	}
	return &cfg, nil
}

// defaultConfig holds defaults for settings where zero is a valid choice,
// so they are decoded over instead of filled in afterwards.
func defaultConfig() AppConfig {
	return AppConfig{
		Retry: RetryConfig{
			BaseDelay: 1 * time.Second,
			MaxDelay:  30 * time.Second,
			Jitter:    0.1,
		},
		Download: DownloadConfig{
			Timeout: 5 * time.Minute,
		},
	}
}

// applyDefaults fills settings whose zero value is not usable.
func applyDefaults(cfg *AppConfig) {
	if cfg.Paths.InstallDir == "" {
		cfg.Paths.InstallDir = defaultInstallDir()
	}
	if cfg.Paths.TempDir == "" {
		cfg.Paths.TempDir = os.TempDir()
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}

	if cfg.Download.Concurrency == 0 {
		cfg.Download.Concurrency = 2
	}
	if cfg.Download.UserAgent == "" {
		cfg.Download.UserAgent = "luna-setup"
	}

	if cfg.Koalageddon.ConfigFile == "" {
		cfg.Koalageddon.ConfigFile = "Config.jsonc"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "file"
	}
	if cfg.Storage.File.Dir == "" {
		cfg.Storage.File.Dir = defaultRunsDir()
	}
}

// defaultRunsDir keeps run history outside install_dir so rolling back an
// install does not delete it.
func defaultRunsDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "luna", "runs")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".luna", "runs")
	}
	return filepath.Join(os.TempDir(), "luna", "runs")
}

func defaultInstallDir() string {
	if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
		return filepath.Join(dir, "Luna")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Luna")
	}
	return "Luna"
}

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the persisted configuration file, kept at the base
// directory root so it rides along in the secrets bundle.
const ConfigFileName = "dockhand.yaml"

type Config struct {
	General   GeneralConfig   `yaml:"General"`
	Remote    RemoteConfig    `yaml:"Remote"`
	Retention RetentionConfig `yaml:"Retention"`
}

type GeneralConfig struct {
	BaseDir    string `yaml:"baseDir"`    // root of all app subtrees
	BackupRoot string `yaml:"backupRoot"` // holds archive/ and latest/
	LogLevel   string `yaml:"logLevel"`
}

type RemoteConfig struct {
	Name string `yaml:"name"` // rclone remote name, empty disables mirroring
	Path string `yaml:"path"` // path prefix inside the remote
}

type RetentionConfig struct {
	Local  int `yaml:"local"`
	Remote int `yaml:"remote"`
}

// Default values
var (
	defaultBaseDir   = "/srv/dockhand"
	defaultLogLevel  = "info"
	defaultRetention = RetentionConfig{Local: 7, Remote: 4}
)

func Default() *Config {
	return &Config{
		General: GeneralConfig{
			BaseDir:    defaultBaseDir,
			BackupRoot: filepath.Join(defaultBaseDir, "backups"),
			LogLevel:   defaultLogLevel,
		},
		Remote:    RemoteConfig{Path: "dockhand"},
		Retention: defaultRetention,
	}
}

// Path returns the config file location: DOCKHAND_CONFIG if set,
// otherwise the file at the (possibly defaulted) base directory.
func Path() string {
	if p := os.Getenv("DOCKHAND_CONFIG"); p != "" {
		return p
	}
	base := defaultBaseDir
	if b := os.Getenv("DOCKHAND_BASE_DIR"); b != "" {
		base = b
	}
	return filepath.Join(base, ConfigFileName)
}

// Load reads the config file, layering it over defaults. A missing file
// is not an error: the defaults are returned so first-run flows (backup
// before any explicit setup, disaster recovery) can proceed.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		applyEnv(cfg)
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnv(cfg)

	if cfg.General.BackupRoot == "" {
		cfg.General.BackupRoot = filepath.Join(cfg.General.BaseDir, "backups")
	}
	if cfg.Retention.Local < 0 || cfg.Retention.Remote < 0 {
		return nil, fmt.Errorf("retention counts must not be negative (local=%d remote=%d)",
			cfg.Retention.Local, cfg.Retention.Remote)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if b := os.Getenv("DOCKHAND_BASE_DIR"); b != "" {
		cfg.General.BaseDir = b
		cfg.General.BackupRoot = filepath.Join(b, "backups")
	}
	if r := os.Getenv("DOCKHAND_REMOTE"); r != "" {
		cfg.Remote.Name = r
	}
}

// Save writes the config to its canonical location under the base
// directory, creating the directory if needed. Disaster recovery uses
// this to persist the minimal configuration before any restore runs.
func (c *Config) Save() error {
	path := filepath.Join(c.General.BaseDir, ConfigFileName)
	if err := os.MkdirAll(c.General.BaseDir, 0755); err != nil {
		return fmt.Errorf("failed to create base directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
